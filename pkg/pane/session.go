// Package pane keeps per-window mapping panes in step with a host
// application's windows, documents and data streams.
//
// A Session owns every pane. All host input reaches it through Dispatch,
// one event at a time. Handlers may dispatch again from inside a transition
// (a surface becoming visible fires SurfaceVisibilityChanged), but a Session
// is not safe for concurrent use.
package pane

import (
	"io"
	"log"

	"github.com/b/mappane/pkg/config"
	"github.com/b/mappane/pkg/host"
	"github.com/b/mappane/pkg/mapping"
	"github.com/b/mappane/pkg/perf"
)

// Event is host input for Session.Dispatch.
type Event interface {
	event()
}

// DocumentCountChanged fires when a document opens, closes or gains focus.
type DocumentCountChanged struct {
	Count int
}

// WindowActivated fires when a window gains focus. The host does not say
// which window closed, if any.
type WindowActivated struct {
	Document host.Document
	Window   host.WindowID
}

// WindowClosed is an explicit close notification.
type WindowClosed struct {
	Window host.WindowID
}

// SurfaceVisibilityChanged is fired by a surface after it is shown or
// hidden.
type SurfaceVisibilityChanged struct {
	Surface host.Surface
}

// ToggleClicked is the user pressing the show/hide command.
type ToggleClicked struct {
	Checked bool
}

// SettingsChanged carries new display options for every pane.
type SettingsChanged struct {
	Options config.Options
}

// StreamSelected is a pane's user picking another stream.
type StreamSelected struct {
	SurfaceID string
	StreamID  string
}

func (DocumentCountChanged) event()     {}
func (WindowActivated) event()          {}
func (WindowClosed) event()             {}
func (SurfaceVisibilityChanged) event() {}
func (ToggleClicked) event()            {}
func (SettingsChanged) event()          {}
func (StreamSelected) event()           {}

// Config holds what a Session needs besides the host.
type Config struct {
	// Title is the caption of every created surface.
	Title        string
	Placeholders mapping.Placeholders
	Display      config.Options
	Renderers    RendererFactory
	Toggle       ToggleSink
	Logger       *log.Logger
}

// Session is the pane lifecycle controller for one host.
type Session struct {
	host         host.Host
	mode         *ModeTracker
	registry     *Registry
	singleton    *Pane
	newRenderer  RendererFactory
	toggleSink   ToggleSink
	placeholders mapping.Placeholders
	display      config.Options
	title        string
	log          *log.Logger

	lastDocCount    int
	lastWindowCount int
	lastWindow      host.WindowID

	toggle  ToggleState
	defects int
}

// NewSession starts a session in the host's current mode with no panes.
func NewSession(h host.Host, cfg Config) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	newRenderer := cfg.Renderers
	if newRenderer == nil {
		newRenderer = func(host.Surface) Renderer { return nopRenderer{} }
	}
	return &Session{
		host:            h,
		mode:            NewModeTracker(ModeFromHost(h.PerWindowMode())),
		registry:        NewRegistry(),
		newRenderer:     newRenderer,
		toggleSink:      cfg.Toggle,
		placeholders:    cfg.Placeholders.WithDefaults(),
		display:         cfg.Display,
		title:           cfg.Title,
		log:             logger,
		lastDocCount:    h.DocumentCount(),
		lastWindowCount: h.WindowCount(),
		lastWindow:      h.ActiveWindow(),
	}
}

// Dispatch handles one event. Failures are logged and healed, never
// returned.
func (s *Session) Dispatch(ev Event) {
	defer perf.Start("dispatch." + eventName(ev)).Stop()
	switch ev := ev.(type) {
	case DocumentCountChanged:
		s.documentCountChanged(ev.Count)
	case WindowActivated:
		s.windowActivated(ev)
	case WindowClosed:
		s.windowClosed(ev.Window)
	case SurfaceVisibilityChanged:
		s.publish()
	case ToggleClicked:
		s.toggleClicked(ev.Checked)
	case SettingsChanged:
		s.settingsChanged(ev.Options)
	case StreamSelected:
		s.streamSelected(ev)
	default:
		s.log.Printf("DISPATCH_UNKNOWN type=%T", ev)
	}
}

// eventName names ev for timing and logs.
func eventName(ev Event) string {
	switch ev.(type) {
	case DocumentCountChanged:
		return "document_count_changed"
	case WindowActivated:
		return "window_activated"
	case WindowClosed:
		return "window_closed"
	case SurfaceVisibilityChanged:
		return "surface_visibility_changed"
	case ToggleClicked:
		return "toggle_clicked"
	case SettingsChanged:
		return "settings_changed"
	case StreamSelected:
		return "stream_selected"
	}
	return "unknown"
}

func (s *Session) Mode() Mode              { return s.mode.Current() }
func (s *Session) Registry() *Registry     { return s.registry }
func (s *Session) Toggle() ToggleState     { return s.toggle }
func (s *Session) Display() config.Options { return s.display }

// Defects counts internal consistency violations found and healed.
func (s *Session) Defects() int { return s.defects }

// Singleton returns the shared-mode pane.
func (s *Session) Singleton() (*Pane, bool) {
	return s.singleton, s.singleton != nil
}

// Panes returns every pane the session owns.
func (s *Session) Panes() []*Pane {
	var out []*Pane
	if s.singleton != nil {
		out = append(out, s.singleton)
	}
	for _, w := range s.registry.Windows() {
		p, _ := s.registry.Get(w)
		out = append(out, p)
	}
	return out
}

// PaneBySurface finds the pane hosted on the surface with the given ID.
func (s *Session) PaneBySurface(id string) (*Pane, bool) {
	for _, p := range s.Panes() {
		if p.surface.ID() == id {
			return p, true
		}
	}
	return nil, false
}

// ActivePane returns the pane the toggle acts on: the singleton in shared
// mode, the active window's pane in per-window mode.
func (s *Session) ActivePane() (*Pane, bool) {
	if s.mode.Current() == ModeShared {
		return s.Singleton()
	}
	return s.registry.Get(s.host.ActiveWindow())
}

func (s *Session) settingsChanged(o config.Options) {
	s.display = o
	for _, p := range s.Panes() {
		p.renderer.RefreshSettings(o)
	}
}

func (s *Session) streamSelected(ev StreamSelected) {
	p, ok := s.PaneBySurface(ev.SurfaceID)
	if !ok {
		s.log.Printf("STREAM_SELECT_SKIP surface=%s reason=unknown_surface", ev.SurfaceID)
		return
	}
	if err := p.binding.SelectStream(ev.StreamID); err != nil {
		s.log.Printf("STREAM_SELECT_SKIP surface=%s stream=%s err=%v", ev.SurfaceID, ev.StreamID, err)
	}
}
