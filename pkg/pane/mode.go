package pane

// Mode is the host's windowing mode.
type Mode int

const (
	// ModeShared: one surface serves the whole process.
	ModeShared Mode = iota
	// ModePerWindow: each window may own one surface.
	ModePerWindow
)

func (m Mode) String() string {
	switch m {
	case ModeShared:
		return "shared"
	case ModePerWindow:
		return "per-window"
	}
	return "unknown"
}

// ModeFromHost maps the host's per-window flag to a Mode.
func ModeFromHost(perWindow bool) Mode {
	if perWindow {
		return ModePerWindow
	}
	return ModeShared
}

// Transition describes a mode change.
type Transition struct {
	From, To Mode
}

// ModeTracker remembers the last known mode.
type ModeTracker struct {
	current Mode
}

func NewModeTracker(initial Mode) *ModeTracker {
	return &ModeTracker{current: initial}
}

func (t *ModeTracker) Current() Mode { return t.current }

// ReconcileIfChanged records reported as the current mode. It returns the
// transition and true only when the mode actually changed.
func (t *ModeTracker) ReconcileIfChanged(reported Mode) (Transition, bool) {
	if reported == t.current {
		return Transition{}, false
	}
	tr := Transition{From: t.current, To: reported}
	t.current = reported
	return tr, true
}
