package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/wippyai/wasm-host/config"
	"github.com/wippyai/wasm-host/guest"
	"github.com/wippyai/wasm-host/runtime"
	"github.com/wippyai/wasm-host/value"
)

var (
	leapStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#90EE90"))
	notLeapStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFB86C"))
	rawStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
)

// session is a loaded and instantiated leap-year module.
type session struct {
	rt       *runtime.Runtime
	inst     *runtime.Instance
	closeLog func()
	hasNow   bool
}

func openSession(ctx context.Context, cfg config.Config, path string, console io.Writer) (*session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	log, closeLog, err := newLogger(cfg.Log, console)
	if err != nil {
		return nil, err
	}

	rt, err := runtime.New(ctx, runtime.WithConfig(cfg), runtime.WithLogger(log))
	if err != nil {
		closeLog()
		return nil, err
	}

	s := &session{rt: rt, closeLog: closeLog}
	mod, err := rt.Load(ctx, data)
	if err != nil {
		s.close(ctx)
		return nil, err
	}
	if _, ok := mod.Descriptor().Export(guest.ExportIsLeapYear); !ok {
		s.close(ctx)
		return nil, fmt.Errorf("module does not export %s", guest.ExportIsLeapYear)
	}
	_, s.hasNow = mod.Descriptor().Export(guest.ExportIsLeapYearNow)

	s.inst, err = mod.Instantiate(ctx)
	if err != nil {
		s.close(ctx)
		return nil, err
	}
	return s, nil
}

func (s *session) close(ctx context.Context) {
	if s.inst != nil {
		_ = s.inst.Close(ctx)
	}
	_ = s.rt.Close(ctx)
	s.closeLog()
}

// check calls is_leap_year(year). raw is the i32 the guest returned.
func (s *session) check(ctx context.Context, year int32) (leap bool, raw value.Value, err error) {
	raw, err = s.inst.Invoke(ctx, guest.ExportIsLeapYear, value.I32(year))
	if err != nil {
		return false, raw, err
	}
	leap, err = raw.Bool()
	if err != nil {
		return false, raw, fmt.Errorf("%s returned a value of unexpected type: %w", guest.ExportIsLeapYear, err)
	}
	return leap, raw, nil
}

// checkNow calls is_it_leap_year_now().
func (s *session) checkNow(ctx context.Context) (bool, error) {
	raw, err := s.inst.Invoke(ctx, guest.ExportIsLeapYearNow)
	if err != nil {
		return false, err
	}
	leap, err := raw.Bool()
	if err != nil {
		return false, fmt.Errorf("%s returned a value of unexpected type: %w", guest.ExportIsLeapYearNow, err)
	}
	return leap, nil
}

func run(ctx context.Context, out io.Writer, cfg config.Config, path string, year int32) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := openSession(ctx, cfg, path, stderr)
	if err != nil {
		return err
	}
	defer s.close(ctx)

	styled := isTerminal(out)

	leap, raw, err := s.check(ctx, year)
	if err != nil {
		return err
	}
	n, _ := raw.Int32()
	fmt.Fprintln(out, render(styled, rawStyle, fmt.Sprintf("Return value: %d", n)))
	fmt.Fprintln(out, verdict(styled, fmt.Sprintf("Year %d", year), leap))

	if s.hasNow {
		now, err := s.checkNow(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, verdict(styled, "Current year", now))
	}
	return nil
}

func verdict(styled bool, subject string, leap bool) string {
	if leap {
		return render(styled, leapStyle, subject+" is a leap year")
	}
	return render(styled, notLeapStyle, subject+" is not a leap year")
}

func render(styled bool, style lipgloss.Style, s string) string {
	if !styled {
		return s
	}
	return style.Render(s)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
