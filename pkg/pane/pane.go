package pane

import (
	"github.com/b/mappane/pkg/config"
	"github.com/b/mappane/pkg/host"
)

// Pane is a surface together with the renderer it hosts and the bindings
// feeding that renderer. A pane owns all three exclusively.
type Pane struct {
	surface  host.Surface
	renderer Renderer
	binding  *BindingManager
	watch    host.Subscription
	released bool
}

func newPane(s host.Surface, r Renderer, b *BindingManager) *Pane {
	return &Pane{surface: s, renderer: r, binding: b}
}

func (p *Pane) Surface() host.Surface    { return p.surface }
func (p *Pane) Renderer() Renderer       { return p.renderer }
func (p *Pane) Binding() *BindingManager { return p.binding }
func (p *Pane) Released() bool           { return p.released }

// alive reports whether the host still knows the surface.
func (p *Pane) alive() bool {
	_, err := p.surface.Visible()
	return err == nil
}

// view snapshots the surface for toggle derivation.
func (p *Pane) view() (SurfaceView, error) {
	vis, err := p.surface.Visible()
	if err != nil {
		return SurfaceView{}, err
	}
	return SurfaceView{Present: true, Visible: vis}, nil
}

// release drops the pane's bindings and renderer. The surface itself is
// removed by the caller.
func (p *Pane) release() {
	if p.released {
		return
	}
	p.released = true
	if p.watch != nil {
		p.watch.Cancel()
		p.watch = nil
	}
	p.binding.Release()
	p.renderer.Close()
}

type nopRenderer struct{}

func (nopRenderer) RefreshControls(Refresh)        {}
func (nopRenderer) RefreshSettings(config.Options) {}
func (nopRenderer) RecentDragDrop() bool           { return false }
func (nopRenderer) Close()                         {}
