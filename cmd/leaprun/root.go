package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wippyai/wasm-host/config"
)

const usage = "Usage: leaprun path/to/file.wasm"

type options struct {
	configPath  string
	logLevel    string
	year        int32
	interactive bool
}

func newRootCmd() *cobra.Command {
	o := &options{}
	cmd := &cobra.Command{
		Use:   "leaprun path/to/file.wasm",
		Short: "Run a leap-year WebAssembly module",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				fmt.Fprintln(cmd.OutOrStdout(), usage)
				return nil
			}
			cfg, err := o.loadConfig()
			if err != nil {
				return err
			}
			if o.interactive {
				return runInteractive(cmd.Context(), cfg, args[0], o.year)
			}
			return run(cmd.Context(), cmd.OutOrStdout(), cfg, args[0], o.year)
		},
	}

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.DisableAutoGenTag = true
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})

	cmd.Flags().Int32Var(&o.year, "year", 2022, "year to check")
	cmd.Flags().StringVar(&o.configPath, "config", "", "path to a YAML config file")
	cmd.Flags().StringVar(&o.logLevel, "log-level", "", "log level (debug, info, warn, error); overrides the config")
	cmd.Flags().BoolVarP(&o.interactive, "interactive", "i", false, "interactive mode with TUI")
	return cmd
}

func (o *options) loadConfig() (config.Config, error) {
	cfg := config.Default()
	if o.configPath != "" {
		var err error
		if cfg, err = config.Load(o.configPath); err != nil {
			return config.Config{}, err
		}
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
		if err := cfg.Validate(); err != nil {
			return config.Config{}, err
		}
	}
	return cfg, nil
}
