package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/rplisten/internal/session"
)

// Run shows the interactive screen until the user quits or ctx ends.
// Status events reach the screen alongside whatever observer ctrl already
// has, which is restored on return.
func Run(ctx context.Context, ctrl Controller, opts ...tea.ProgramOption) error {
	model := NewModel(ctx, ctrl)

	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	p := tea.NewProgram(model, opts...)

	previous := ctrl.Subscribe(nil)
	ctrl.Subscribe(session.Fanout(previous, session.ObserverFunc(func(e session.Event) {
		p.Send(statusMsg{event: e})
	})))
	defer ctrl.Subscribe(previous)

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("terminal ui: %w", err)
	}
	return nil
}

// Printer writes styled output for the non-interactive commands.
type Printer struct {
	out   io.Writer
	width int
}

// NewPrinter creates a Printer that writes to w, or stdout when w is nil.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{out: w, width: GetTerminalWidth()}
}

// Width returns the width used for boxes
func (p *Printer) Width() int {
	return p.width
}

// Println writes content with a newline
func (p *Printer) Println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

// Newline prints an empty line
func (p *Printer) Newline() {
	_, _ = fmt.Fprintln(p.out)
}

// PrintHeader prints a command header box
func (p *Printer) PrintHeader(title, command string, params ...Field) {
	p.Println(NewHeader(title, command, params...).SetWidth(p.width).Render())
	p.Newline()
}

// PrintSuccess prints a success result box
func (p *Printer) PrintSuccess(title string, details ...Field) {
	p.Println(NewSuccessResult(title, details...).SetWidth(p.width).Render())
}

// PrintWarning prints a warning result box
func (p *Printer) PrintWarning(title string, details ...Field) {
	p.Println(NewWarningResult(title, details...).SetWidth(p.width).Render())
}

// PrintFailure prints a failure result box with troubleshooting tips
func (p *Printer) PrintFailure(title string, err error, troubleshooting []string) {
	p.Println(NewFailureResult(title, err, troubleshooting).SetWidth(p.width).Render())
}

// PrintStatus prints one status event as a timestamped line.
func (p *Printer) PrintStatus(e session.Event) {
	line := fmt.Sprintf("%s  %s", e.At.Format(time.TimeOnly), RenderStatus(e.Status))
	if e.Address != "" {
		line += " " + SubtitleStyle.Render(e.Address)
	}
	p.Println(line)
}
