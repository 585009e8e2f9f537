package main

import (
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/termenv"

	"github.com/b/mappane/pkg/config"
	"github.com/b/mappane/pkg/daemon"
	"github.com/b/mappane/pkg/host"
	"github.com/b/mappane/pkg/host/memhost"
	"github.com/b/mappane/pkg/pane"
)

// AliasSource resolves friendly names for stream root namespaces.
type AliasSource interface {
	GetAlias(namespace string, lcid int) string
}

// Coordinator owns the host mirror, the pane session and one view per
// surface. It is driven from a single goroutine.
type Coordinator struct {
	host    *memhost.Host
	session *pane.Session
	cfg     *config.Config
	aliases AliasSource
	views   map[string]*paneView
	log     *log.Logger

	// now is swapped in tests
	now func() time.Time
}

// NewCoordinator builds a coordinator around an empty host.
func NewCoordinator(cfg *config.Config, aliases AliasSource, logger *log.Logger) *Coordinator {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if cfg == nil {
		cfg = config.Default()
	}
	lipgloss.SetColorProfile(termenv.ANSI256)

	c := &Coordinator{
		host:    memhost.New(),
		cfg:     cfg,
		aliases: aliases,
		views:   make(map[string]*paneView),
		log:     logger,
		now:     time.Now,
	}
	c.session = pane.NewSession(c.host, pane.Config{
		Title:        cfg.PaneTitle,
		Placeholders: cfg.Placeholders,
		Display:      cfg.Display.Options(),
		Renderers:    c.newView,
		Toggle:       c,
		Logger:       logger,
	})
	return c
}

// SetToggle records the published toggle state.
func (c *Coordinator) SetToggle(s pane.ToggleState) {
	c.log.Printf("TOGGLE checked=%v enabled=%v", s.Checked, s.Enabled)
}

func (c *Coordinator) newView(s host.Surface) pane.Renderer {
	v := &paneView{c: c, surfaceID: s.ID()}
	c.views[s.ID()] = v
	return v
}

// ReloadConfig re-reads path and pushes the new display options to every
// pane. Placeholder texts and the title apply to panes created afterwards
// only on restart.
func (c *Coordinator) ReloadConfig(path string) error {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.session.Dispatch(pane.SettingsChanged{Options: cfg.Display.Options()})
	c.log.Printf("CONFIG_RELOAD path=%s options=%d", path, cfg.Display.Options())
	return nil
}

// SetColorProfile switches rendering to the weakest profile among the
// connected renderers.
func (c *Coordinator) SetColorProfile(name string) {
	profile := termenv.ANSI256
	switch name {
	case "Ascii":
		profile = termenv.Ascii
	case "ANSI":
		profile = termenv.ANSI
	case "TrueColor":
		profile = termenv.TrueColor
	}
	lipgloss.SetColorProfile(profile)
}

// HandleInput applies a renderer action.
func (c *Coordinator) HandleInput(clientID string, in *daemon.InputPayload) {
	v, ok := c.views[clientID]
	if !ok {
		c.log.Printf("INPUT_SKIP client=%s reason=unknown_surface", clientID)
		return
	}
	switch in.ResolvedAction {
	case daemon.ActionHide:
		if s, ok := c.host.Surface(clientID); ok {
			if err := s.SetVisible(false); err != nil {
				c.log.Printf("INPUT_SKIP client=%s action=hide err=%v", clientID, err)
			}
		}
	case daemon.ActionNextStream:
		target := in.ResolvedTarget
		if target == "" {
			target = c.nextStream(clientID)
		}
		if target != "" {
			c.session.Dispatch(pane.StreamSelected{SurfaceID: clientID, StreamID: target})
		}
	case daemon.ActionDrag:
		v.dragAt = c.now()
		c.log.Printf("DRAG surface=%s node=%s", clientID, in.ResolvedTarget)
	case daemon.ActionRefresh:
		v.RefreshControls(pane.DocumentChangedRefresh())
	default:
		c.log.Printf("INPUT_SKIP client=%s action=%q", clientID, in.ResolvedAction)
	}
}

// nextStream returns the stream after the pane's active one, wrapping.
func (c *Coordinator) nextStream(surfaceID string) string {
	p, ok := c.session.PaneBySurface(surfaceID)
	if !ok {
		return ""
	}
	ctx, ok := p.Binding().CurrentContext()
	if !ok || ctx.Streams == nil {
		return ""
	}
	streams := ctx.Streams.Streams()
	if len(streams) == 0 {
		return ""
	}
	for i, s := range streams {
		if ctx.Stream != nil && s.ID() == ctx.Stream.ID() {
			return streams[(i+1)%len(streams)].ID()
		}
	}
	return streams[0].ID()
}

// Render produces the content for one renderer.
func (c *Coordinator) Render(clientID string, width, height int) *daemon.RenderPayload {
	v, ok := c.views[clientID]
	if !ok || v.closed {
		return &daemon.RenderPayload{Title: c.cfg.PaneTitle, Width: width, Height: height}
	}
	visible := false
	if s, ok := c.host.Surface(clientID); ok {
		visible, _ = s.Visible()
	}
	content := v.render(width)
	return &daemon.RenderPayload{
		Title:      c.cfg.PaneTitle,
		Content:    content,
		Width:      width,
		Height:     height,
		TotalLines: strings.Count(content, "\n") + 1,
		Visible:    visible,
	}
}

// streamName is the alias for a stream's namespace, or the namespace.
func (c *Coordinator) streamName(s host.Stream) string {
	ns := s.RootNamespace()
	if c.aliases != nil {
		if alias := c.aliases.GetAlias(ns, c.cfg.Locale); alias != "" {
			return alias
		}
	}
	if ns == "" {
		return "(no namespace)"
	}
	return ns
}

// paneView is the daemon-side renderer of one pane.
type paneView struct {
	c         *Coordinator
	surfaceID string
	options   config.Options
	history   []string
	selected  string // XPath of the auto-selected node
	dragAt    time.Time
	closed    bool
}

func (v *paneView) RefreshControls(ref pane.Refresh) {
	if ref.Reason == pane.OnEnter && v.options.Has(config.OptionAutoSelectNode) && ref.NewNode != nil {
		v.selected = ref.NewNode.XPath()
	}
	if ref.Reason == pane.DocumentChanged {
		v.selected = ""
	}
	v.history = append(v.history, describe(ref))
	if limit := v.c.cfg.History; limit > 0 && len(v.history) > limit {
		v.history = v.history[len(v.history)-limit:]
	}
}

func (v *paneView) RefreshSettings(o config.Options) { v.options = o }

// RecentDragDrop reports a drag started from this pane within the
// configured window.
func (v *paneView) RecentDragDrop() bool {
	if v.dragAt.IsZero() {
		return false
	}
	return v.c.now().Sub(v.dragAt) <= v.c.cfg.DragDropWindow
}

func (v *paneView) Close() {
	v.closed = true
	delete(v.c.views, v.surfaceID)
}

func describe(ref pane.Refresh) string {
	var b strings.Builder
	b.WriteString(ref.Reason.String())
	switch {
	case ref.DeletedStream != nil:
		fmt.Fprintf(&b, " %s", ref.DeletedStream.ID())
	case ref.DeletedNode != nil && ref.NewNode != nil:
		fmt.Fprintf(&b, " %s -> %s", ref.DeletedNode.XPath(), ref.NewNode.XPath())
	case ref.DeletedNode != nil:
		b.WriteString(" ")
		b.WriteString(ref.DeletedNode.ID())
		if ref.ParentNode != nil {
			fmt.Fprintf(&b, " from %s", ref.ParentNode.XPath())
		}
	case ref.NewNode != nil:
		fmt.Fprintf(&b, " %s", ref.NewNode.XPath())
	}
	return b.String()
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#e0e0e0"))
	activeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#56b6c2")).Bold(true)
	inactiveStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7f848e"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#282c34")).Background(lipgloss.Color("#e5c07b"))
	textStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#98c379"))
	dividerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#333333"))
	historyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#5c6370")).Italic(true)
)

// fit truncates s to width display cells.
func fit(s string, width int) string {
	if width <= 0 {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}

func (v *paneView) render(width int) string {
	var lines []string
	add := func(style lipgloss.Style, s string) {
		lines = append(lines, style.Render(fit(s, width)))
	}
	divider := strings.Repeat("─", max(width, 1))

	p, ok := v.c.session.PaneBySurface(v.surfaceID)
	var ctx pane.Context
	bound := false
	if ok {
		ctx, bound = p.Binding().CurrentContext()
	}
	if !bound {
		add(titleStyle, "No document")
		return strings.Join(lines, "\n")
	}

	add(titleStyle, ctx.Document.Name())
	if ctx.Streams != nil {
		for _, s := range ctx.Streams.Streams() {
			if ctx.Stream != nil && s.ID() == ctx.Stream.ID() {
				add(activeStyle, "▸ "+v.c.streamName(s))
			} else {
				add(inactiveStyle, "  "+v.c.streamName(s))
			}
		}
	}
	lines = append(lines, dividerStyle.Render(divider))

	if st, ok := ctx.Stream.(*memhost.Stream); ok {
		v.renderNode(st.Root(), 0, width, &lines)
	}

	if len(v.history) > 0 {
		lines = append(lines, dividerStyle.Render(divider))
		for _, h := range v.history {
			add(historyStyle, h)
		}
	}
	return strings.Join(lines, "\n")
}

func (v *paneView) renderNode(n *memhost.Node, depth, width int, lines *[]string) {
	label := strings.Repeat("  ", depth) + n.Name()
	if v.options.Has(config.OptionShowText) && n.Text() != "" {
		label += " = " + n.Text()
	}
	label = fit(label, width)
	switch {
	case v.selected != "" && n.XPath() == v.selected:
		*lines = append(*lines, selectedStyle.Render(label))
	case n.Text() != "":
		*lines = append(*lines, textStyle.Render(label))
	default:
		*lines = append(*lines, label)
	}
	for _, child := range n.Children() {
		v.renderNode(child, depth+1, width, lines)
	}
}
