package pane

import (
	"sort"

	"github.com/b/mappane/pkg/host"
)

// Registry maps windows to the pane each one owns. It is only populated in
// per-window mode.
type Registry struct {
	panes map[host.WindowID]*Pane
}

func NewRegistry() *Registry {
	return &Registry{panes: make(map[host.WindowID]*Pane)}
}

// Register records p as the pane of window w, replacing any previous entry.
func (r *Registry) Register(w host.WindowID, p *Pane) {
	r.panes[w] = p
}

// Unregister removes and returns the pane of w.
func (r *Registry) Unregister(w host.WindowID) (*Pane, bool) {
	p, ok := r.panes[w]
	if ok {
		delete(r.panes, w)
	}
	return p, ok
}

func (r *Registry) Get(w host.WindowID) (*Pane, bool) {
	p, ok := r.panes[w]
	return p, ok
}

// RetainOnly drops every entry whose window fails alive and returns the
// dropped panes for disposal.
func (r *Registry) RetainOnly(alive func(host.WindowID) bool) []*Pane {
	var removed []*Pane
	for _, w := range r.Windows() {
		if !alive(w) {
			removed = append(removed, r.panes[w])
			delete(r.panes, w)
		}
	}
	return removed
}

// ClearAll empties the registry and returns what it held.
func (r *Registry) ClearAll() []*Pane {
	out := make([]*Pane, 0, len(r.panes))
	for _, w := range r.Windows() {
		out = append(out, r.panes[w])
	}
	r.panes = make(map[host.WindowID]*Pane)
	return out
}

func (r *Registry) Len() int { return len(r.panes) }

// Windows returns the registered windows, sorted.
func (r *Registry) Windows() []host.WindowID {
	out := make([]host.WindowID, 0, len(r.panes))
	for w := range r.panes {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
