package pane

import (
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/b/mappane/pkg/host"
	"github.com/b/mappane/pkg/mapping"
	"github.com/b/mappane/pkg/perf"
)

var (
	ErrNoDocument    = errors.New("no document")
	ErrNotBound      = errors.New("binding manager is not bound")
	ErrUnknownStream = errors.New("unknown stream")
)

// Context is the document, stream collection and stream a pane follows.
// It is replaced as a whole, never edited in place.
type Context struct {
	Document host.Document
	Streams  host.StreamCollection
	// Stream is nil when the document has no streams.
	Stream host.Stream
}

// ResolveContext builds the context for doc with its first stream active.
func ResolveContext(doc host.Document) (Context, error) {
	if doc == nil {
		return Context{}, ErrNoDocument
	}
	coll, err := doc.Streams()
	if err != nil {
		return Context{}, fmt.Errorf("streams of %s: %w", doc.Name(), err)
	}
	ctx := Context{Document: doc, Streams: coll}
	if ss := coll.Streams(); len(ss) > 0 {
		ctx.Stream = ss[0]
	}
	return ctx, nil
}

// layer is one live binding.
type layer struct {
	sub host.Subscription
}

func (l *layer) bind(subscribe func() (host.Subscription, error)) error {
	l.unbind()
	sub, err := subscribe()
	if err != nil {
		return err
	}
	l.sub = sub
	return nil
}

func (l *layer) unbind() {
	if l.sub != nil {
		l.sub.Cancel()
		l.sub = nil
	}
}

func (l *layer) bound() bool { return l.sub != nil }

// Handlers are the receivers the three layers deliver to.
type Handlers struct {
	Regions    host.RegionHandler
	Collection host.CollectionHandler
	Nodes      host.NodeHandler
}

// SubscriptionSet holds the document, collection and stream bindings of one
// context. Each layer is either unbound or bound exactly once.
type SubscriptionSet struct {
	document   layer
	collection layer
	stream     layer
}

// Bind subscribes every layer to ctx. On failure nothing stays bound.
func (s *SubscriptionSet) Bind(ctx Context, h Handlers) error {
	s.Unbind()
	err := s.document.bind(func() (host.Subscription, error) {
		return ctx.Document.SubscribeRegions(h.Regions)
	})
	if err == nil {
		err = s.collection.bind(func() (host.Subscription, error) {
			return ctx.Streams.Subscribe(h.Collection)
		})
	}
	if err == nil && ctx.Stream != nil {
		err = s.stream.bind(func() (host.Subscription, error) {
			return ctx.Stream.Subscribe(h.Nodes)
		})
	}
	if err != nil {
		s.Unbind()
		return err
	}
	return nil
}

// Unbind cancels every layer.
func (s *SubscriptionSet) Unbind() {
	s.stream.unbind()
	s.collection.unbind()
	s.document.unbind()
}

// Bound reports which layers are live.
func (s *SubscriptionSet) Bound() (document, collection, stream bool) {
	return s.document.bound(), s.collection.bound(), s.stream.bound()
}

// BindingManager keeps a pane's subscriptions on whatever document and
// stream are active and forwards their events to the renderer.
type BindingManager struct {
	host         host.Host
	renderer     Renderer
	placeholders mapping.Placeholders
	log          *log.Logger

	ctx      Context
	hasCtx   bool
	subs     SubscriptionSet
	handlers Handlers
}

// NewBindingManager returns an unbound manager. A nil logger discards.
func NewBindingManager(h host.Host, r Renderer, placeholders mapping.Placeholders, logger *log.Logger) *BindingManager {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	m := &BindingManager{
		host:         h,
		renderer:     r,
		placeholders: placeholders,
		log:          logger,
	}
	m.handlers = Handlers{
		Regions:    regionEvents{m},
		Collection: collectionEvents{m},
		Nodes:      nodeEvents{m},
	}
	return m
}

// BindTo moves every layer to ctx. Old bindings are cancelled and the old
// context released before the new one is taken and bound, so no event is
// delivered twice. If binding fails the manager is left unbound.
func (m *BindingManager) BindTo(ctx Context) error {
	defer perf.Start("pane.BindTo").Stop()
	if ctx.Document == nil || ctx.Streams == nil {
		return ErrNoDocument
	}

	m.subs.Unbind()
	m.release()

	m.ctx = ctx
	m.hasCtx = true
	if err := m.subs.Bind(ctx, m.handlers); err != nil {
		m.release()
		return fmt.Errorf("bind %s: %w", ctx.Document.Name(), err)
	}
	m.log.Printf("BIND doc=%s stream=%s", ctx.Document.Name(), streamID(ctx.Stream))
	return nil
}

// RebindStream moves only the stream layer to s.
func (m *BindingManager) RebindStream(s host.Stream) error {
	if !m.hasCtx {
		return ErrNotBound
	}
	m.subs.stream.unbind()
	m.ctx.Stream = s
	if s == nil {
		return nil
	}
	if err := m.subs.stream.bind(func() (host.Subscription, error) {
		return s.Subscribe(m.handlers.Nodes)
	}); err != nil {
		m.ctx.Stream = nil
		return fmt.Errorf("bind stream %s: %w", s.ID(), err)
	}
	m.log.Printf("REBIND_STREAM doc=%s stream=%s", m.ctx.Document.Name(), s.ID())
	return nil
}

// SelectStream rebinds the stream layer to the stream with the given ID in
// the current collection.
func (m *BindingManager) SelectStream(id string) error {
	if !m.hasCtx {
		return ErrNotBound
	}
	for _, s := range m.ctx.Streams.Streams() {
		if s.ID() == id {
			return m.RebindStream(s)
		}
	}
	return fmt.Errorf("select %s: %w", id, ErrUnknownStream)
}

// CurrentContext returns the bound context, if any.
func (m *BindingManager) CurrentContext() (Context, bool) {
	return m.ctx, m.hasCtx
}

// FocusDocument binds to doc and tells the renderer the document changed.
func (m *BindingManager) FocusDocument(doc host.Document) error {
	ctx, err := ResolveContext(doc)
	if err != nil {
		m.Release()
		return err
	}
	if err := m.BindTo(ctx); err != nil {
		return err
	}
	m.renderer.RefreshControls(DocumentChangedRefresh())
	return nil
}

// Release cancels every binding and forgets the context.
func (m *BindingManager) Release() {
	m.subs.Unbind()
	m.release()
}

func (m *BindingManager) release() {
	m.ctx = Context{}
	m.hasCtx = false
}

func (m *BindingManager) regionEntered(r host.Region) {
	node := r.MappedNode()
	if node == nil {
		return
	}
	m.renderer.RefreshControls(OnEnterRefresh(node))
}

func (m *BindingManager) regionAdded(r host.Region, undoRedo bool) {
	if undoRedo || !m.renderer.RecentDragDrop() {
		return
	}
	m.fixupDroppedRegion(r)
}

// fixupDroppedRegion gives a region created by a drop its placeholder. The
// placeholder clears the region, so the bound node's text is put back.
func (m *BindingManager) fixupDroppedRegion(r host.Region) {
	m.host.SetScreenUpdating(false)
	defer func() {
		m.host.SetScreenUpdating(true)
		m.host.ScreenRefresh()
	}()

	node := r.MappedNode()
	var text string
	if node != nil {
		text = node.Text()
	}
	if err := r.SetPlaceholder(m.placeholders.For(r.Kind())); err != nil {
		m.log.Printf("DROP_FIXUP_SKIP region=%s op=placeholder err=%v", r.ID(), err)
		return
	}
	if node == nil {
		return
	}
	if err := r.SetText(text); err != nil {
		m.log.Printf("DROP_FIXUP_SKIP region=%s op=restore err=%v", r.ID(), err)
	}
}

// streamDeleted moves the stream layer off s when s is the active stream.
func (m *BindingManager) streamDeleted(s host.Stream) {
	if !m.hasCtx || m.ctx.Stream == nil || m.ctx.Stream.ID() != s.ID() {
		return
	}
	var next host.Stream
	for _, other := range m.ctx.Streams.Streams() {
		if other.ID() != s.ID() {
			next = other
			break
		}
	}
	if err := m.RebindStream(next); err != nil {
		m.log.Printf("REBIND_STREAM_SKIP doc=%s err=%v", m.ctx.Document.Name(), err)
	}
}

func streamID(s host.Stream) string {
	if s == nil {
		return "-"
	}
	return s.ID()
}

// streamAdded makes s the active stream when the stream layer has none.
func (m *BindingManager) streamAdded(s host.Stream) {
	if !m.hasCtx || m.ctx.Stream != nil {
		return
	}
	if err := m.RebindStream(s); err != nil {
		m.log.Printf("REBIND_STREAM_SKIP doc=%s err=%v", m.ctx.Document.Name(), err)
	}
}

type regionEvents struct{ m *BindingManager }

func (e regionEvents) RegionEntered(r host.Region) {
	e.m.regionEntered(r)
}

func (e regionEvents) RegionAdded(r host.Region, undoRedo bool) {
	e.m.regionAdded(r, undoRedo)
}

type collectionEvents struct{ m *BindingManager }

func (e collectionEvents) StreamAdded(s host.Stream) {
	e.m.streamAdded(s)
	e.m.renderer.RefreshControls(PartAddedRefresh())
}

func (e collectionEvents) StreamDeleted(s host.Stream) {
	e.m.streamDeleted(s)
	e.m.renderer.RefreshControls(PartDeletedRefresh(s))
}

func (e collectionEvents) StreamLoaded(s host.Stream) {
	e.m.renderer.RefreshControls(PartLoadedRefresh())
}

type nodeEvents struct{ m *BindingManager }

func (e nodeEvents) NodeDeleted(node, parent, next host.Node, undoRedo bool) {
	e.m.renderer.RefreshControls(NodeDeletedRefresh(node, parent, next))
}

func (e nodeEvents) NodeInserted(node host.Node, undoRedo bool) {
	e.m.renderer.RefreshControls(NodeAddedRefresh(node))
}

func (e nodeEvents) NodeReplaced(old, new host.Node, undoRedo bool) {
	e.m.renderer.RefreshControls(NodeReplacedRefresh(old, new))
}
