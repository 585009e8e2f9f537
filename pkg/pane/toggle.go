package pane

// ToggleState is what the show/hide command displays.
type ToggleState struct {
	Checked bool `json:"checked"`
	Enabled bool `json:"enabled"`
}

// SurfaceView is a snapshot of one surface for toggle derivation.
type SurfaceView struct {
	Present bool
	Visible bool
}

// ToggleInput carries everything DeriveToggle looks at.
type ToggleInput struct {
	Mode          Mode
	DocumentCount int
	// Singleton is the shared surface, used in shared mode.
	Singleton SurfaceView
	// ActiveWindow is the active window's registered surface, used in
	// per-window mode.
	ActiveWindow SurfaceView
}

// DeriveToggle computes the toggle state. With no documents open the
// command is disabled and unchecked. Otherwise it is enabled and checked iff
// the surface relevant to the mode exists and is visible.
func DeriveToggle(in ToggleInput) ToggleState {
	if in.DocumentCount <= 0 {
		return ToggleState{}
	}
	view := in.Singleton
	if in.Mode == ModePerWindow {
		view = in.ActiveWindow
	}
	return ToggleState{Checked: view.Present && view.Visible, Enabled: true}
}

// ToggleSink receives every published toggle state.
type ToggleSink interface {
	SetToggle(s ToggleState)
}
