package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/wippyai/wasm-host/config"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const historySize = 8

type interactiveModel struct {
	err      error
	checker  yearChecker
	filename string
	now      string
	history  []string
	input    textinput.Model
}

// yearChecker is the part of a session the TUI drives.
type yearChecker interface {
	check(ctx context.Context, year int32) (bool, error)
	checkNow(ctx context.Context) (bool, error)
	hasNow() bool
}

// sessionChecker serializes guest calls: bubbletea runs every command on its
// own goroutine, and an instance has a single owner.
type sessionChecker struct {
	mu sync.Mutex
	s  *session
}

func (c *sessionChecker) check(ctx context.Context, year int32) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	leap, _, err := c.s.check(ctx, year)
	return leap, err
}

func (c *sessionChecker) checkNow(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.s.checkNow(ctx)
}

func (c *sessionChecker) hasNow() bool { return c.s.hasNow }

type checkedMsg struct {
	err  error
	year int32
	leap bool
}

type nowMsg struct {
	err  error
	leap bool
}

func newInteractiveModel(filename string, checker yearChecker, year int32) *interactiveModel {
	ti := textinput.New()
	ti.Placeholder = "year"
	ti.Prompt = "Year: "
	ti.CharLimit = 11
	ti.Width = 20
	ti.SetValue(strconv.Itoa(int(year)))
	ti.Focus()
	return &interactiveModel{
		checker:  checker,
		filename: filename,
		input:    ti,
	}
}

func (m *interactiveModel) Init() tea.Cmd {
	if !m.checker.hasNow() {
		return textinput.Blink
	}
	return tea.Batch(textinput.Blink, m.checkCurrentYear())
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "enter":
			year, err := strconv.ParseInt(strings.TrimSpace(m.input.Value()), 10, 32)
			if err != nil {
				m.err = fmt.Errorf("not a 32-bit year: %q", m.input.Value())
				return m, nil
			}
			m.err = nil
			return m, m.checkYear(int32(year))

		case "esc":
			m.input.SetValue("")
			m.err = nil
			return m, nil
		}

	case checkedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.history = append([]string{verdict(true, fmt.Sprintf("Year %d", msg.year), msg.leap)}, m.history...)
		if len(m.history) > historySize {
			m.history = m.history[:historySize]
		}
		return m, nil

	case nowMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.now = verdict(true, "Current year", msg.leap)
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *interactiveModel) checkYear(year int32) tea.Cmd {
	return func() tea.Msg {
		leap, err := m.checker.check(context.Background(), year)
		return checkedMsg{year: year, leap: leap, err: err}
	}
}

func (m *interactiveModel) checkCurrentYear() tea.Cmd {
	return func() tea.Msg {
		leap, err := m.checker.checkNow(context.Background())
		return nowMsg{leap: leap, err: err}
	}
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Leap Year"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	b.WriteString("\n\n")

	if m.now != "" {
		b.WriteString(m.now)
		b.WriteString("\n\n")
	}

	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n\n")
	}

	for _, line := range m.history {
		b.WriteString(line)
		b.WriteString("\n")
	}
	if len(m.history) > 0 {
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render("enter check • esc clear • q quit"))
	return b.String()
}

func runInteractive(ctx context.Context, cfg config.Config, filename string, year int32) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("interactive mode requires a terminal")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	// Console logging would tear the alt screen; only the log file is kept.
	s, err := openSession(ctx, cfg, filename, nil)
	if err != nil {
		return err
	}
	defer s.close(ctx)

	p := tea.NewProgram(newInteractiveModel(filename, &sessionChecker{s: s}, year), tea.WithAltScreen())
	_, err = p.Run()
	return err
}
