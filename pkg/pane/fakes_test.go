package pane

import (
	"bytes"
	"log"
	"testing"

	"github.com/b/mappane/pkg/config"
	"github.com/b/mappane/pkg/host"
	"github.com/b/mappane/pkg/host/memhost"
)

type fakeRenderer struct {
	refreshes []Refresh
	settings  []config.Options
	dragging  bool
	closed    int
}

func (r *fakeRenderer) RefreshControls(ref Refresh)      { r.refreshes = append(r.refreshes, ref) }
func (r *fakeRenderer) RefreshSettings(o config.Options) { r.settings = append(r.settings, o) }
func (r *fakeRenderer) RecentDragDrop() bool             { return r.dragging }
func (r *fakeRenderer) Close()                           { r.closed++ }

func (r *fakeRenderer) count(reason ChangeReason) int {
	n := 0
	for _, ref := range r.refreshes {
		if ref.Reason == reason {
			n++
		}
	}
	return n
}

type toggleRecorder struct {
	states []ToggleState
}

func (t *toggleRecorder) SetToggle(s ToggleState) { t.states = append(t.states, s) }

type fixture struct {
	t         *testing.T
	h         *memhost.Host
	s         *Session
	toggles   *toggleRecorder
	renderers map[string]*fakeRenderer
	logs      *bytes.Buffer
}

func newFixture(t *testing.T, perWindow bool) *fixture {
	t.Helper()
	f := &fixture{
		t:         t,
		h:         memhost.New(),
		toggles:   &toggleRecorder{},
		renderers: make(map[string]*fakeRenderer),
		logs:      &bytes.Buffer{},
	}
	f.h.SetPerWindowMode(perWindow)
	f.s = NewSession(f.h, Config{
		Title: "XML Mapping",
		Renderers: func(s host.Surface) Renderer {
			r := &fakeRenderer{}
			f.renderers[s.ID()] = r
			return r
		},
		Toggle: f.toggles,
		Logger: log.New(f.logs, "", 0),
	})
	return f
}

// openDoc opens a document the way the host reports it.
func (f *fixture) openDoc(name string) (*memhost.Document, host.WindowID) {
	doc, w := f.h.OpenDocument(name)
	f.s.Dispatch(DocumentCountChanged{Count: f.h.DocumentCount()})
	f.s.Dispatch(WindowActivated{Document: doc, Window: w})
	return doc, w
}

func (f *fixture) activate(w host.WindowID) {
	f.t.Helper()
	if err := f.h.ActivateWindow(w); err != nil {
		f.t.Fatal(err)
	}
	doc, _ := f.h.DocumentOf(w)
	f.s.Dispatch(WindowActivated{Document: doc, Window: w})
}

// closeWindow closes w and reports it with the count-only notifications the
// host sends.
func (f *fixture) closeWindow(w host.WindowID) {
	f.t.Helper()
	docs := f.h.DocumentCount()
	if err := f.h.CloseWindow(w); err != nil {
		f.t.Fatal(err)
	}
	if f.h.DocumentCount() != docs {
		f.s.Dispatch(DocumentCountChanged{Count: f.h.DocumentCount()})
	}
	if f.h.WindowCount() > 0 {
		f.s.Dispatch(WindowActivated{Document: f.h.ActiveDocument(), Window: f.h.ActiveWindow()})
	}
}

func (f *fixture) activePane() *Pane {
	f.t.Helper()
	p, ok := f.s.ActivePane()
	if !ok {
		f.t.Fatal("no active pane")
	}
	return p
}

func (f *fixture) rendererOf(p *Pane) *fakeRenderer {
	return f.renderers[p.Surface().ID()]
}

func (f *fixture) lastToggle() ToggleState {
	if len(f.toggles.states) == 0 {
		return ToggleState{}
	}
	return f.toggles.states[len(f.toggles.states)-1]
}
