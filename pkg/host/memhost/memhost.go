// Package memhost is an in-memory implementation of package host.
//
// It backs the pane tests and serves as the daemon's mirror of the real
// host application. Events are delivered synchronously, in subscription
// order, to the handlers registered when the event fires. A Host is not safe
// for concurrent use.
package memhost

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/b/mappane/pkg/host"
	"github.com/b/mappane/pkg/mapping"
)

// CoreNamespace is the root namespace of the stream every new document
// starts with.
const CoreNamespace = "http://schemas.openxmlformats.org/package/2006/metadata/core-properties"

var (
	ErrNoWindow      = errors.New("no active window")
	ErrUnknownWindow = errors.New("unknown window")
)

type window struct {
	id  host.WindowID
	doc *Document
}

// Host is the in-memory application.
type Host struct {
	perWindow bool

	docs        []*Document
	windows     map[host.WindowID]*window
	windowOrder []host.WindowID
	active      host.WindowID

	surfaces []*Surface

	nextWindow int
	nextNode   int

	screenUpdating    bool
	screenSuspensions int
	screenRefreshes   int
	placeholderCalls  int
}

var _ host.Host = (*Host)(nil)

// New returns an empty host in shared mode.
func New() *Host {
	return &Host{
		windows:        make(map[host.WindowID]*window),
		screenUpdating: true,
	}
}

func (h *Host) PerWindowMode() bool { return h.perWindow }

// SetPerWindowMode switches the windowing mode. Existing surfaces keep their
// owners.
func (h *Host) SetPerWindowMode(on bool) { h.perWindow = on }

func (h *Host) DocumentCount() int { return len(h.docs) }
func (h *Host) WindowCount() int   { return len(h.windows) }

func (h *Host) WindowAlive(id host.WindowID) bool {
	_, ok := h.windows[id]
	return ok
}

func (h *Host) ActiveWindow() host.WindowID { return h.active }

func (h *Host) ActiveDocument() host.Document {
	if d := h.activeDocument(); d != nil {
		return d
	}
	return nil
}

func (h *Host) activeDocument() *Document {
	w, ok := h.windows[h.active]
	if !ok {
		return nil
	}
	return w.doc
}

// Windows returns the open windows in opening order.
func (h *Host) Windows() []host.WindowID {
	out := make([]host.WindowID, len(h.windowOrder))
	copy(out, h.windowOrder)
	return out
}

// DocumentOf returns the document shown in window id.
func (h *Host) DocumentOf(id host.WindowID) (*Document, bool) {
	w, ok := h.windows[id]
	if !ok {
		return nil, false
	}
	return w.doc, true
}

// Document looks up an open document by name.
func (h *Host) Document(name string) (*Document, bool) {
	for _, d := range h.docs {
		if d.name == name {
			return d, true
		}
	}
	return nil, false
}

// OpenDocument opens a document in a new window and activates that window.
// The document starts with one core properties stream.
func (h *Host) OpenDocument(name string) (*Document, host.WindowID) {
	d := &Document{host: h, name: name}
	d.collection = &Collection{doc: d}
	d.collection.addStream(CoreNamespace, "coreProperties")
	h.docs = append(h.docs, d)
	return d, h.OpenWindow(d)
}

// OpenWindow opens another window on d and activates it.
func (h *Host) OpenWindow(d *Document) host.WindowID {
	h.nextWindow++
	id := host.WindowID(fmt.Sprintf("w%d", h.nextWindow))
	h.windows[id] = &window{id: id, doc: d}
	h.windowOrder = append(h.windowOrder, id)
	h.active = id
	return id
}

// ActivateWindow makes id the active window.
func (h *Host) ActivateWindow(id host.WindowID) error {
	if !h.WindowAlive(id) {
		return fmt.Errorf("activate %s: %w", id, ErrUnknownWindow)
	}
	h.active = id
	return nil
}

// CloseWindow closes id, destroying the surfaces it owns. A document whose
// last window closes is closed too. When the active window closes, the most
// recently opened remaining window becomes active.
func (h *Host) CloseWindow(id host.WindowID) error {
	w, ok := h.windows[id]
	if !ok {
		return fmt.Errorf("close %s: %w", id, ErrUnknownWindow)
	}
	delete(h.windows, id)
	for i, wid := range h.windowOrder {
		if wid == id {
			h.windowOrder = append(h.windowOrder[:i], h.windowOrder[i+1:]...)
			break
		}
	}
	for _, s := range h.surfacesOf(id) {
		h.destroy(s)
	}

	stillShown := false
	for _, other := range h.windows {
		if other.doc == w.doc {
			stillShown = true
			break
		}
	}
	if !stillShown {
		h.closeDoc(w.doc)
	}

	if h.active == id {
		h.active = ""
		if n := len(h.windowOrder); n > 0 {
			h.active = h.windowOrder[n-1]
		}
	}
	return nil
}

// CloseDocument closes every window showing d.
func (h *Host) CloseDocument(d *Document) {
	for _, id := range h.Windows() {
		if h.windows[id].doc == d {
			h.CloseWindow(id)
		}
	}
	h.closeDoc(d)
}

func (h *Host) closeDoc(d *Document) {
	for i, other := range h.docs {
		if other == d {
			h.docs = append(h.docs[:i], h.docs[i+1:]...)
			break
		}
	}
	d.closed = true
}

func (h *Host) surfacesOf(id host.WindowID) []*Surface {
	var out []*Surface
	for _, s := range h.surfaces {
		if s.window == id {
			out = append(out, s)
		}
	}
	return out
}

func (h *Host) Surfaces() []host.Surface {
	out := make([]host.Surface, 0, len(h.surfaces))
	for _, s := range h.surfaces {
		out = append(out, s)
	}
	return out
}

// Surface looks up a live surface by ID.
func (h *Host) Surface(id string) (*Surface, bool) {
	for _, s := range h.surfaces {
		if s.id == id {
			return s, true
		}
	}
	return nil, false
}

// CreateSurface creates a hidden surface. In per-window mode it belongs to
// the active window.
func (h *Host) CreateSurface(title string) (host.Surface, error) {
	s := &Surface{host: h, id: uuid.NewString(), title: title}
	if h.perWindow {
		if !h.WindowAlive(h.active) {
			return nil, ErrNoWindow
		}
		s.window = h.active
	}
	h.surfaces = append(h.surfaces, s)
	return s, nil
}

func (h *Host) RemoveSurface(hs host.Surface) error {
	s, ok := hs.(*Surface)
	if !ok || s.dead {
		return host.ErrStaleHandle
	}
	h.destroy(s)
	return nil
}

// DestroySurface destroys s without telling anyone, as the host does when
// it tears a panel down on its own.
func (h *Host) DestroySurface(s *Surface) {
	if !s.dead {
		h.destroy(s)
	}
}

func (h *Host) destroy(s *Surface) {
	s.dead = true
	s.visible = false
	for i, other := range h.surfaces {
		if other == s {
			h.surfaces = append(h.surfaces[:i], h.surfaces[i+1:]...)
			break
		}
	}
}

func (h *Host) SetScreenUpdating(on bool) {
	if !on && h.screenUpdating {
		h.screenSuspensions++
	}
	h.screenUpdating = on
}

func (h *Host) ScreenRefresh() { h.screenRefreshes++ }

// ScreenUpdating reports whether repaint is currently enabled.
func (h *Host) ScreenUpdating() bool { return h.screenUpdating }

// ScreenSuspensions counts transitions from repaint enabled to disabled.
func (h *Host) ScreenSuspensions() int { return h.screenSuspensions }

func (h *Host) ScreenRefreshes() int { return h.screenRefreshes }

// PlaceholderCalls counts placeholder formats applied to any region.
func (h *Host) PlaceholderCalls() int { return h.placeholderCalls }

func (h *Host) newNodeID() string {
	h.nextNode++
	return fmt.Sprintf("n%d", h.nextNode)
}

// Surface is an in-memory panel.
type Surface struct {
	host     *Host
	id       string
	title    string
	window   host.WindowID
	visible  bool
	dead     bool
	watchers handlers[func(host.Surface)]
}

func (s *Surface) ID() string            { return s.id }
func (s *Surface) Title() string         { return s.title }
func (s *Surface) Window() host.WindowID { return s.window }
func (s *Surface) Alive() bool           { return !s.dead }

func (s *Surface) Visible() (bool, error) {
	if s.dead {
		return false, host.ErrStaleHandle
	}
	return s.visible, nil
}

// SetVisible changes visibility and notifies watchers when it changed.
func (s *Surface) SetVisible(v bool) error {
	if s.dead {
		return host.ErrStaleHandle
	}
	if s.visible == v {
		return nil
	}
	s.visible = v
	s.watchers.each(func(fn func(host.Surface)) { fn(s) })
	return nil
}

func (s *Surface) WatchVisibility(fn func(host.Surface)) host.Subscription {
	return s.watchers.add(fn)
}

// Document is an open document.
type Document struct {
	host       *Host
	name       string
	closed     bool
	collection *Collection
	regions    []*Region
	regionSubs handlers[host.RegionHandler]
	nextRegion int
}

func (d *Document) Name() string { return d.name }

// Closed reports whether the host closed d.
func (d *Document) Closed() bool { return d.closed }

func (d *Document) Streams() (host.StreamCollection, error) {
	if d.closed {
		return nil, host.ErrStaleHandle
	}
	return d.collection, nil
}

// Collection returns the document's streams without the stale check.
func (d *Document) Collection() *Collection { return d.collection }

func (d *Document) SubscribeRegions(h host.RegionHandler) (host.Subscription, error) {
	if d.closed {
		return nil, host.ErrStaleHandle
	}
	return d.regionSubs.add(h), nil
}

// RegionSubscribers counts live region subscriptions.
func (d *Document) RegionSubscribers() int { return d.regionSubs.len() }

// AddRegion inserts a region mapped to node (nil for unmapped) and fires
// RegionAdded. The region starts out showing the node's text.
func (d *Document) AddRegion(kind mapping.Type, node *Node, undoRedo bool) *Region {
	d.nextRegion++
	r := &Region{
		doc:  d,
		id:   fmt.Sprintf("r%d", d.nextRegion),
		kind: kind,
		node: node,
	}
	if node != nil {
		r.text = node.text
	}
	d.regions = append(d.regions, r)
	d.regionSubs.each(func(h host.RegionHandler) { h.RegionAdded(r, undoRedo) })
	return r
}

// EnterRegion moves the selection into r and fires RegionEntered.
func (d *Document) EnterRegion(r *Region) {
	d.regionSubs.each(func(h host.RegionHandler) { h.RegionEntered(r) })
}

// Region looks up a region by ID.
func (d *Document) Region(id string) (*Region, bool) {
	for _, r := range d.regions {
		if r.id == id {
			return r, true
		}
	}
	return nil, false
}

// Collection holds a document's streams.
type Collection struct {
	doc     *Document
	streams []*Stream
	subs    handlers[host.CollectionHandler]
}

func (c *Collection) Streams() []host.Stream {
	out := make([]host.Stream, 0, len(c.streams))
	for _, s := range c.streams {
		out = append(out, s)
	}
	return out
}

func (c *Collection) Subscribe(h host.CollectionHandler) (host.Subscription, error) {
	if c.doc.closed {
		return nil, host.ErrStaleHandle
	}
	return c.subs.add(h), nil
}

// Subscribers counts live collection subscriptions.
func (c *Collection) Subscribers() int { return c.subs.len() }

// Stream looks up a stream by ID.
func (c *Collection) Stream(id string) (*Stream, bool) {
	for _, s := range c.streams {
		if s.id == id {
			return s, true
		}
	}
	return nil, false
}

func (c *Collection) addStream(namespace, rootName string) *Stream {
	s := &Stream{
		coll:      c,
		id:        "{" + strings.ToUpper(uuid.NewString()) + "}",
		namespace: namespace,
	}
	s.root = &Node{stream: s, id: c.doc.host.newNodeID(), name: rootName}
	c.streams = append(c.streams, s)
	return s
}

// AddStream adds a stream whose root element is rootName and fires
// StreamAdded.
func (c *Collection) AddStream(namespace, rootName string) *Stream {
	s := c.addStream(namespace, rootName)
	c.subs.each(func(h host.CollectionHandler) { h.StreamAdded(s) })
	return s
}

// DeleteStream removes s, fires StreamDeleted and invalidates s.
func (c *Collection) DeleteStream(s *Stream) {
	for i, other := range c.streams {
		if other == s {
			c.streams = append(c.streams[:i], c.streams[i+1:]...)
			break
		}
	}
	c.subs.each(func(h host.CollectionHandler) { h.StreamDeleted(s) })
	s.deleted = true
}

// LoadStream fires StreamLoaded for s.
func (c *Collection) LoadStream(s *Stream) {
	c.subs.each(func(h host.CollectionHandler) { h.StreamLoaded(s) })
}

// Stream is one data stream with a single root node.
type Stream struct {
	coll      *Collection
	id        string
	namespace string
	root      *Node
	deleted   bool
	subs      handlers[host.NodeHandler]
}

func (s *Stream) ID() string            { return s.id }
func (s *Stream) RootNamespace() string { return s.namespace }
func (s *Stream) Root() *Node           { return s.root }

func (s *Stream) Subscribe(h host.NodeHandler) (host.Subscription, error) {
	if s.deleted || s.coll.doc.closed {
		return nil, host.ErrStaleHandle
	}
	return s.subs.add(h), nil
}

// Subscribers counts live node subscriptions.
func (s *Stream) Subscribers() int { return s.subs.len() }

// Node finds a node by ID anywhere under the root.
func (s *Stream) Node(id string) (*Node, bool) {
	var found *Node
	s.root.walk(func(n *Node) bool {
		if n.id == id {
			found = n
			return false
		}
		return true
	})
	return found, found != nil
}

// InsertNode appends a child element to parent and fires NodeInserted.
func (s *Stream) InsertNode(parent *Node, name, text string, undoRedo bool) *Node {
	n := &Node{stream: s, id: s.coll.doc.host.newNodeID(), name: name, text: text, parent: parent}
	parent.children = append(parent.children, n)
	s.subs.each(func(h host.NodeHandler) { h.NodeInserted(n, undoRedo) })
	return n
}

// DeleteNode detaches n and fires NodeDeleted with its former parent and
// next sibling.
func (s *Stream) DeleteNode(n *Node, undoRedo bool) {
	parent := n.Parent()
	next := n.NextSibling()
	if n.parent != nil {
		n.parent.removeChild(n)
	}
	n.parent = nil
	s.subs.each(func(h host.NodeHandler) { h.NodeDeleted(n, parent, next, undoRedo) })
}

// ReplaceNode swaps old for a new element in the same position and fires
// NodeReplaced.
func (s *Stream) ReplaceNode(old *Node, name, text string, undoRedo bool) *Node {
	n := &Node{stream: s, id: s.coll.doc.host.newNodeID(), name: name, text: text, parent: old.parent}
	if p := old.parent; p != nil {
		for i, c := range p.children {
			if c == old {
				p.children[i] = n
				break
			}
		}
	} else {
		s.root = n
	}
	old.parent = nil
	s.subs.each(func(h host.NodeHandler) { h.NodeReplaced(old, n, undoRedo) })
	return n
}

// Node is an element in a stream.
type Node struct {
	stream   *Stream
	id       string
	name     string
	text     string
	parent   *Node
	children []*Node
}

func (n *Node) ID() string   { return n.id }
func (n *Node) Name() string { return n.name }
func (n *Node) Text() string { return n.text }

// Children returns the node's child elements in document order.
func (n *Node) Children() []*Node {
	return append([]*Node(nil), n.children...)
}

// SetText changes the node's text without firing events.
func (n *Node) SetText(text string) { n.text = text }

func (n *Node) XPath() string {
	if n.parent == nil {
		return "/" + n.name
	}
	return n.parent.XPath() + "/" + n.name
}

func (n *Node) Parent() host.Node {
	if n.parent == nil {
		return nil
	}
	return n.parent
}

func (n *Node) NextSibling() host.Node {
	if n.parent == nil {
		return nil
	}
	sibs := n.parent.children
	for i, c := range sibs {
		if c == n && i+1 < len(sibs) {
			return sibs[i+1]
		}
	}
	return nil
}

func (n *Node) removeChild(c *Node) {
	for i, other := range n.children {
		if other == c {
			n.children = append(n.children[:i], n.children[i+1:]...)
			return
		}
	}
}

func (n *Node) walk(fn func(*Node) bool) bool {
	if !fn(n) {
		return false
	}
	for _, c := range n.children {
		if !c.walk(fn) {
			return false
		}
	}
	return true
}

// Region is a content region in a document.
type Region struct {
	doc         *Document
	id          string
	kind        mapping.Type
	node        *Node
	text        string
	placeholder string
}

func (r *Region) ID() string         { return r.id }
func (r *Region) Kind() mapping.Type { return r.kind }

func (r *Region) MappedNode() host.Node {
	if r.node == nil {
		return nil
	}
	return r.node
}

func (r *Region) Text() string        { return r.text }
func (r *Region) Placeholder() string { return r.placeholder }

func (r *Region) SetPlaceholder(text string) error {
	if r.doc.closed {
		return host.ErrStaleHandle
	}
	r.doc.host.placeholderCalls++
	r.placeholder = text
	r.text = ""
	return nil
}

func (r *Region) SetText(text string) error {
	if r.doc.closed {
		return host.ErrStaleHandle
	}
	r.text = text
	return nil
}
