package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap holds the bindings of the session screen. Letter keys are avoided
// where the manual address field may have focus.
type keyMap struct {
	Up     key.Binding
	Down   key.Binding
	Start  key.Binding
	Stop   key.Binding
	Rescan key.Binding
	Quit   key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Up: key.NewBinding(
			key.WithKeys("up"),
			key.WithHelp("↑", "previous"),
		),
		Down: key.NewBinding(
			key.WithKeys("down"),
			key.WithHelp("↓", "next"),
		),
		Start: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "start"),
		),
		Stop: key.NewBinding(
			key.WithKeys("enter", "ctrl+x"),
			key.WithHelp("enter", "stop"),
		),
		Rescan: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "rescan"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "esc"),
			key.WithHelp("esc", "quit"),
		),
	}
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Start, k.Stop, k.Rescan, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down},
		{k.Start, k.Stop},
		{k.Rescan, k.Quit},
	}
}

// apply enables exactly the bindings the controls allow.
func (k *keyMap) apply(selector, start, stop, rescan bool) {
	k.Up.SetEnabled(selector)
	k.Down.SetEnabled(selector)
	k.Start.SetEnabled(start)
	k.Stop.SetEnabled(stop)
	k.Rescan.SetEnabled(rescan)
}
