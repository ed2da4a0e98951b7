package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/rplisten/internal/app"
	"github.com/muurk/rplisten/internal/notify"
	"github.com/muurk/rplisten/internal/selection"
	"github.com/muurk/rplisten/internal/session"
)

// Controller is what the terminal front end drives. *app.App implements it.
type Controller interface {
	Discover(ctx context.Context) (app.DiscoveryResult, error)
	Entries() []selection.Entry
	StartSelected(entry selection.Entry, manualText string) error
	Stop()
	State() session.State
	Controls(entry selection.Entry, manualText string) session.Controls
	Subscribe(o session.Observer) session.Observer
}

// Messages for async operations
type discoveredMsg struct {
	result app.DiscoveryResult
	err    error
}

type statusMsg struct {
	event session.Event
}

// entryItem wraps a selection entry for bubbles/list.
type entryItem struct {
	entry selection.Entry
}

func (i entryItem) Title() string { return i.entry.Label() }

func (i entryItem) Description() string {
	d, ok := i.entry.Device()
	if !ok {
		return "Type the address of a device"
	}
	host, err := selection.HostOf(d.Host)
	if err != nil {
		host = d.Host
	}
	if d.UserDeviceName != "" && d.ModelName != "" {
		return fmt.Sprintf("%s • %s", d.ModelName, host)
	}
	return host
}

func (i entryItem) FilterValue() string { return i.entry.Label() }

// Model is the interactive session screen: a device selector with a manual
// address field, the session status line and start/stop.
type Model struct {
	ctx  context.Context
	ctrl Controller

	list    list.Model
	input   textinput.Model
	spinner spinner.Model
	help    help.Model
	keys    keyMap

	scanning bool
	timedOut bool
	scanErr  error

	status  session.Status
	address string
	err     error

	width  int
	height int
}

// NewModel creates the screen. Discovery starts from Init.
func NewModel(ctx context.Context, ctrl Controller) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	input := textinput.New()
	input.Placeholder = "192.168.1.9"
	input.Prompt = "Address: "
	input.PromptStyle = FocusedInputStyle
	input.CharLimit = 255
	input.Width = 40

	delegate := list.NewDefaultDelegate()
	l := list.New(nil, delegate, MinTerminalWidth, 12)
	l.Title = "Devices"
	l.Styles.Title = TitleStyle
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)

	width, height := GetTerminalSize()

	m := Model{
		ctx:      ctx,
		ctrl:     ctrl,
		list:     l,
		input:    input,
		spinner:  s,
		help:     help.New(),
		keys:     newKeyMap(),
		// Init starts the first discovery run
		scanning: true,
		status:   ctrl.State().Phase.Status(),
		width:    width,
		height:   height,
	}
	m.setEntries(ctrl.Entries())
	m.refresh()
	return m
}

// Init starts the first discovery run.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.discover(), m.spinner.Tick)
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width-8, max(4, msg.Height-16))

	case spinner.TickMsg:
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case discoveredMsg:
		m.scanning = false
		m.scanErr = msg.err
		m.timedOut = msg.result.TimedOut
		m.setEntries(msg.result.Entries)

	case statusMsg:
		m.status = msg.event.Status
		m.address = msg.event.Address
		switch {
		case msg.event.Err != nil:
			m.err = msg.event.Err
		case msg.event.Status == session.Connecting:
			m.err = nil
		}

	case tea.KeyMsg:
		m, cmd = m.handleKey(msg)
	}

	m.refresh()
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		m.list.CursorUp()
		m.err = nil
		return m, nil

	case key.Matches(msg, m.keys.Down):
		m.list.CursorDown()
		m.err = nil
		return m, nil

	case key.Matches(msg, m.keys.Stop):
		m.ctrl.Stop()
		return m, nil

	case key.Matches(msg, m.keys.Start):
		if err := m.ctrl.StartSelected(m.Selected(), m.input.Value()); err != nil {
			m.err = err
		}
		return m, nil

	case key.Matches(msg, m.keys.Rescan):
		return m, m.discover()
	}

	if m.input.Focused() {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

// discover marks the model as scanning and returns the command running
// discovery in the background.
func (m *Model) discover() tea.Cmd {
	m.scanning = true
	m.scanErr = nil
	m.timedOut = false

	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		res, err := ctrl.Discover(ctx)
		return discoveredMsg{result: res, err: err}
	}
}

func (m *Model) setEntries(entries []selection.Entry) {
	items := make([]list.Item, len(entries))
	for i, e := range entries {
		items[i] = entryItem{entry: e}
	}
	m.list.SetItems(items)
	if m.list.Index() >= len(items) {
		m.list.Select(0)
	}
}

// refresh derives focus and key availability from the current controls.
func (m *Model) refresh() {
	c := m.Controls()

	if c.ManualField {
		m.input.Focus()
	} else {
		m.input.Blur()
	}

	m.keys.apply(c.Selector, c.Start, c.Stop, c.Selector && !m.scanning)
}

// Selected returns the highlighted entry; the manual entry when the list
// is empty.
func (m Model) Selected() selection.Entry {
	if item, ok := m.list.SelectedItem().(entryItem); ok {
		return item.entry
	}
	return selection.ManualAddress()
}

// Controls returns the control state for the current selection and text.
func (m Model) Controls() session.Controls {
	return m.ctrl.Controls(m.Selected(), m.input.Value())
}

// Status returns the last status received.
func (m Model) Status() session.Status {
	return m.status
}

// Err returns the error currently shown, if any.
func (m Model) Err() error {
	return m.err
}

// View renders the session screen
func (m Model) View() string {
	c := m.Controls()

	var b strings.Builder

	status := RenderStatus(m.status)
	if m.address != "" {
		status += " " + SubtitleStyle.Render(m.address)
	}
	if m.status == session.Connecting {
		status = m.spinner.View() + " " + status
	}
	b.WriteString("  " + status + "\n\n")

	switch {
	case m.scanning:
		b.WriteString("  " + m.spinner.View() + " " + SubtitleStyle.Render("Searching for devices...") + "\n\n")
	case m.scanErr != nil:
		b.WriteString("  " + ErrorTitleStyle.Render(FailureMarker+" Scan failed: "+m.scanErr.Error()) + "\n\n")
	case m.timedOut:
		b.WriteString("  " + WarningTitleStyle.Render(WarningMarker+" No devices responded") + "\n\n")
	}

	listView := m.list.View()
	if !c.Selector {
		listView = DisabledStyle.Render(listView)
	}
	b.WriteString(listView + "\n")

	if c.ManualShown {
		field := m.input.View()
		if !c.ManualField {
			field = DisabledStyle.Render(m.input.Prompt + m.input.Value())
		}
		b.WriteString("\n  " + field + "\n")
	}

	b.WriteString("\n  " + renderButton("Start", c.Start) + "  " + renderButton("Stop", c.Stop) + "\n")

	if m.err != nil {
		b.WriteString("\n  " + ErrorMessageStyle.Render(FailureMarker+" "+notify.Describe(m.err)) + "\n")
	}

	return RenderApplicationContainer(b.String(), m.help.View(m.keys), m.width, m.height)
}

func renderButton(label string, enabled bool) string {
	style := lipgloss.NewStyle().Padding(0, 1).Border(lipgloss.RoundedBorder())
	if enabled {
		style = style.BorderForeground(PrimaryColor).Foreground(TextColor).Bold(true)
	} else {
		style = style.BorderForeground(MutedColor).Foreground(MutedColor)
	}
	return style.Render(label)
}
