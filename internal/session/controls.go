package session

// Controls tells the presentation layer which inputs are usable.
type Controls struct {
	Start       bool
	Stop        bool
	Selector    bool
	ManualField bool
	ManualShown bool
}

// ControlsFor derives the control state from the session phase, whether the
// manual-address entry is selected and whether the current selection
// resolves to an address.
func ControlsFor(phase Phase, manualSelected, resolvable bool) Controls {
	c := Controls{ManualShown: manualSelected}

	switch phase {
	case Idle:
		c.Start = resolvable
		c.Selector = true
		c.ManualField = manualSelected
	case PhaseConnected:
		c.Stop = true
	}

	return c
}
