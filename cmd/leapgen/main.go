// Command leapgen writes the leap-year guest module.
//
//	leapgen -o leap.wasm [--namespace time-provider] [--start trap]
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/wippyai/wasm-host/guest"
	"github.com/wippyai/wasm-host/module"
)

var starts = map[string]guest.Start{
	"none":      guest.StartNone,
	"nop":       guest.StartNop,
	"trap":      guest.StartTrap,
	"call-host": guest.StartCallHost,
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		output string
		start  string
		opts   guest.Options
	)
	cmd := &cobra.Command{
		Use:   "leapgen",
		Short: "Write the leap-year guest module",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, ok := starts[start]
			if !ok {
				return fmt.Errorf("unknown start routine %q (none, nop, trap, call-host)", start)
			}
			opts.Start = s
			return generate(cmd.OutOrStdout(), output, opts)
		},
	}
	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	cmd.Flags().StringVarP(&output, "output", "o", "leap.wasm", "output file, - for stdout")
	cmd.Flags().StringVar(&opts.Namespace, "namespace", guest.NamespaceEnv, "namespace of the get_current_year import")
	cmd.Flags().BoolVar(&opts.WithoutClock, "without-clock", false, "omit get_current_year and is_it_leap_year_now")
	cmd.Flags().BoolVar(&opts.Divide, "divide", false, "add the divide export")
	cmd.Flags().StringVar(&start, "start", "none", "start routine: none, nop, trap, call-host")
	return cmd
}

func generate(stdout io.Writer, output string, opts guest.Options) error {
	data := guest.LeapYear(opts)

	// Anything written must load.
	mod, err := module.Load(data)
	if err != nil {
		return err
	}

	if output == "-" {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %s (%d bytes, %d imports, %d exports)\n",
		output, len(data), len(mod.Imports()), len(mod.Exports()))
	return nil
}
