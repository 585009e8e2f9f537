package pane

import (
	"errors"

	"github.com/b/mappane/pkg/host"
)

func (s *Session) documentCountChanged(n int) {
	prev := s.lastDocCount
	s.lastDocCount = n
	s.reconcileMode()

	if n == 0 {
		s.reclaimAll(prev)
	} else if s.mode.Current() == ModeShared && s.singleton != nil {
		// The shared pane follows whichever document has focus.
		s.focusSingleton()
	}
	s.publish()
}

// reclaimAll returns to the surface-free baseline. More than one live
// surface at this point is a defect; everything is destroyed regardless.
func (s *Session) reclaimAll(prevDocs int) {
	var owned []*Pane
	if s.singleton != nil {
		owned = append(owned, s.singleton)
		s.singleton = nil
	}
	owned = append(owned, s.registry.ClearAll()...)

	live := make(map[string]bool)
	for _, p := range owned {
		if p.alive() {
			live[p.surface.ID()] = true
		}
	}
	var orphans []host.Surface
	for _, surf := range s.host.Surfaces() {
		if !owns(owned, surf) {
			orphans = append(orphans, surf)
		}
		live[surf.ID()] = true
	}

	if len(live) > 1 {
		s.defect("DEFECT surfaces_at_zero_docs=%d prev_docs=%d", len(live), prevDocs)
	}
	for _, p := range owned {
		s.destroy(p)
	}
	for _, surf := range orphans {
		if err := s.host.RemoveSurface(surf); err != nil {
			s.log.Printf("RECLAIM_SKIP surface=%s err=%v", surf.ID(), err)
		}
	}
	if len(owned)+len(orphans) > 0 {
		s.log.Printf("RECLAIM panes=%d orphans=%d", len(owned), len(orphans))
	}
}

func owns(owned []*Pane, surf host.Surface) bool {
	for _, p := range owned {
		if p.surface.ID() == surf.ID() {
			return true
		}
	}
	return false
}

func (s *Session) windowActivated(ev WindowActivated) {
	n := s.host.WindowCount()

	// The host only reports the new count. A drop by one means the window
	// that was active before may be gone; the liveness probe confirms it.
	if n-s.lastWindowCount == -1 && s.lastWindow != "" && !s.host.WindowAlive(s.lastWindow) {
		if p, ok := s.registry.Unregister(s.lastWindow); ok {
			s.log.Printf("WINDOW_GONE window=%s surface=%s", s.lastWindow, p.surface.ID())
			s.destroy(p)
		}
	}
	for _, p := range s.registry.RetainOnly(s.host.WindowAlive) {
		s.log.Printf("WINDOW_SWEEP surface=%s", p.surface.ID())
		s.destroy(p)
	}

	s.reconcileMode()
	if s.mode.Current() == ModeShared && s.singleton != nil && !s.singletonShows(ev.Document) {
		s.focusSingleton()
	}

	s.lastWindowCount = n
	s.lastWindow = ev.Window
	if s.lastWindow == "" {
		s.lastWindow = s.host.ActiveWindow()
	}
	s.publish()
}

func (s *Session) windowClosed(w host.WindowID) {
	if p, ok := s.registry.Unregister(w); ok {
		s.log.Printf("WINDOW_CLOSED window=%s surface=%s", w, p.surface.ID())
		s.destroy(p)
	}
	s.lastWindowCount = s.host.WindowCount()
	s.publish()
}

func (s *Session) singletonShows(doc host.Document) bool {
	if doc == nil {
		doc = s.host.ActiveDocument()
	}
	ctx, ok := s.singleton.binding.CurrentContext()
	return ok && doc != nil && ctx.Document == doc
}

func (s *Session) focusSingleton() {
	doc := s.host.ActiveDocument()
	if doc == nil {
		return
	}
	if err := s.singleton.binding.FocusDocument(doc); err != nil {
		s.log.Printf("FOCUS_SKIP surface=%s err=%v", s.singleton.surface.ID(), err)
	}
}

// reconcileMode applies a pending mode change, if any.
func (s *Session) reconcileMode() {
	tr, changed := s.mode.ReconcileIfChanged(ModeFromHost(s.host.PerWindowMode()))
	if !changed {
		return
	}
	s.log.Printf("MODE_TRANSITION from=%s to=%s", tr.From, tr.To)
	switch tr.To {
	case ModePerWindow:
		s.enterPerWindow()
	case ModeShared:
		s.enterShared()
	}
}

// enterPerWindow hands the shared pane to the active window.
func (s *Session) enterPerWindow() {
	p := s.singleton
	s.singleton = nil
	if p == nil {
		return
	}
	w := s.host.ActiveWindow()
	if w == "" || !p.alive() {
		s.destroy(p)
		return
	}
	s.registry.Register(w, p)

	// The shared pane may still follow another window's document.
	doc := s.host.ActiveDocument()
	if ctx, ok := p.binding.CurrentContext(); doc != nil && (!ok || ctx.Document != doc) {
		if err := p.binding.FocusDocument(doc); err != nil {
			s.log.Printf("FOCUS_SKIP surface=%s err=%v", p.surface.ID(), err)
		}
	}
}

// enterShared keeps only the active window's pane, as the new singleton.
func (s *Session) enterShared() {
	survivor, _ := s.registry.Get(s.host.ActiveWindow())
	for _, p := range s.registry.ClearAll() {
		if p != survivor {
			s.destroy(p)
		}
	}
	if survivor != nil && !survivor.alive() {
		s.destroy(survivor)
		survivor = nil
	}
	if s.singleton != nil && s.singleton != survivor {
		s.defect("DEFECT singleton_in_per_window surface=%s", s.singleton.surface.ID())
		s.destroy(s.singleton)
	}
	s.singleton = survivor
}

func (s *Session) toggleClicked(checked bool) {
	s.reconcileMode()
	if s.host.DocumentCount() == 0 {
		s.publish()
		return
	}

	p := s.activeLivePane()
	switch {
	case !checked:
		if p != nil {
			s.setVisible(p, false)
		}
	case p == nil:
		s.createPane()
	default:
		s.setVisible(p, true)
	}
	s.publish()
}

// activeLivePane is ActivePane with stale panes purged.
func (s *Session) activeLivePane() *Pane {
	p, ok := s.ActivePane()
	if !ok {
		return nil
	}
	if !p.alive() {
		s.purge(p)
		return nil
	}
	return p
}

func (s *Session) setVisible(p *Pane, v bool) {
	if err := p.surface.SetVisible(v); err != nil {
		if errors.Is(err, host.ErrStaleHandle) {
			s.purge(p)
			return
		}
		s.log.Printf("SET_VISIBLE_SKIP surface=%s visible=%v err=%v", p.surface.ID(), v, err)
	}
}

// createPane builds, registers, binds and shows a pane for the active
// window (per-window mode) or the process (shared mode).
func (s *Session) createPane() *Pane {
	surf, err := s.host.CreateSurface(s.title)
	if err != nil {
		s.log.Printf("CREATE_SKIP err=%v", err)
		return nil
	}
	r := s.newRenderer(surf)
	p := newPane(surf, r, NewBindingManager(s.host, r, s.placeholders, s.log))
	r.RefreshSettings(s.display)

	if s.mode.Current() == ModePerWindow {
		s.registry.Register(s.host.ActiveWindow(), p)
	} else {
		if s.singleton != nil {
			s.defect("DEFECT replaced_singleton surface=%s", s.singleton.surface.ID())
			s.destroy(s.singleton)
		}
		s.singleton = p
	}
	p.watch = surf.WatchVisibility(func(host.Surface) {
		s.Dispatch(SurfaceVisibilityChanged{Surface: surf})
	})
	s.log.Printf("CREATE surface=%s mode=%s window=%s", surf.ID(), s.mode.Current(), surf.Window())

	if err := p.binding.FocusDocument(s.host.ActiveDocument()); err != nil {
		s.log.Printf("FOCUS_SKIP surface=%s err=%v", surf.ID(), err)
	}
	s.setVisible(p, true)
	return p
}

// purge forgets a pane whose surface the host already destroyed.
func (s *Session) purge(p *Pane) {
	if s.singleton == p {
		s.singleton = nil
	}
	for _, w := range s.registry.Windows() {
		if q, _ := s.registry.Get(w); q == p {
			s.registry.Unregister(w)
		}
	}
	s.log.Printf("STALE_PURGE surface=%s", p.surface.ID())
	s.destroy(p)
}

// destroy releases p and removes its surface from the host.
func (s *Session) destroy(p *Pane) {
	p.release()
	if err := s.host.RemoveSurface(p.surface); err != nil {
		if errors.Is(err, host.ErrStaleHandle) {
			s.log.Printf("REMOVE_STALE surface=%s", p.surface.ID())
			return
		}
		s.log.Printf("REMOVE_SKIP surface=%s err=%v", p.surface.ID(), err)
	}
}

func (s *Session) defect(format string, args ...interface{}) {
	s.defects++
	s.log.Printf(format, args...)
}

// publish recomputes the toggle state and hands it to the sink.
func (s *Session) publish() {
	in := ToggleInput{
		Mode:          s.mode.Current(),
		DocumentCount: s.host.DocumentCount(),
	}
	if in.Mode == ModeShared {
		in.Singleton = s.viewOf(s.singleton)
	} else {
		p, _ := s.registry.Get(s.host.ActiveWindow())
		in.ActiveWindow = s.viewOf(p)
	}

	s.toggle = DeriveToggle(in)
	if s.toggleSink != nil {
		s.toggleSink.SetToggle(s.toggle)
	}
}

// viewOf snapshots p. A stale pane is purged and reads as absent.
func (s *Session) viewOf(p *Pane) SurfaceView {
	if p == nil {
		return SurfaceView{}
	}
	v, err := p.view()
	if err != nil {
		s.purge(p)
		return SurfaceView{}
	}
	return v
}
