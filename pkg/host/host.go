// Package host describes the document-editing application that owns the
// windows, documents and surfaces a pane session manages.
//
// Every handle may be invalidated by the host without notice. Calls on such
// a handle return ErrStaleHandle (or, for accessors without an error result,
// a zero value).
package host

import (
	"errors"

	"github.com/b/mappane/pkg/mapping"
)

// ErrStaleHandle is returned when a handle refers to an object the host has
// already destroyed.
var ErrStaleHandle = errors.New("stale host handle")

// WindowID identifies a host window. The empty ID means "no window".
type WindowID string

// Host is the application-level view.
type Host interface {
	// PerWindowMode reports whether each window may own its own surface.
	PerWindowMode() bool
	DocumentCount() int
	WindowCount() int
	WindowAlive(id WindowID) bool
	ActiveWindow() WindowID
	// ActiveDocument returns nil when no document is open.
	ActiveDocument() Document
	// Surfaces lists every live surface the host knows about, whether or
	// not a session owns it.
	Surfaces() []Surface
	// CreateSurface creates a hidden surface. In per-window mode it belongs
	// to the active window.
	CreateSurface(title string) (Surface, error)
	RemoveSurface(s Surface) error
	SetScreenUpdating(on bool)
	ScreenRefresh()
}

// Surface is an auxiliary panel hosting one pane.
type Surface interface {
	ID() string
	// Window is the owning window, or "" for a shared surface.
	Window() WindowID
	Visible() (bool, error)
	SetVisible(v bool) error
	// WatchVisibility calls fn after every visibility change.
	WatchVisibility(fn func(Surface)) Subscription
}

// Document is an open document.
type Document interface {
	Name() string
	Streams() (StreamCollection, error)
	SubscribeRegions(h RegionHandler) (Subscription, error)
}

// StreamCollection is the set of structured-data streams in a document.
type StreamCollection interface {
	Streams() []Stream
	Subscribe(h CollectionHandler) (Subscription, error)
}

// Stream is one structured-data stream.
type Stream interface {
	ID() string
	RootNamespace() string
	Subscribe(h NodeHandler) (Subscription, error)
}

// Node is a node inside a stream. Parent and NextSibling return nil when
// there is none.
type Node interface {
	ID() string
	XPath() string
	Text() string
	Parent() Node
	NextSibling() Node
}

// Region is a content region in a document body.
type Region interface {
	ID() string
	Kind() mapping.Type
	// MappedNode returns the bound node, or nil when the region is unmapped.
	MappedNode() Node
	// SetPlaceholder applies placeholder formatting. It clears the region's
	// content.
	SetPlaceholder(text string) error
	SetText(text string) error
}

// Subscription is a live event binding. Cancel may be called more than once.
type Subscription interface {
	Cancel()
}

// RegionHandler receives document-level region events.
type RegionHandler interface {
	RegionEntered(r Region)
	RegionAdded(r Region, undoRedo bool)
}

// CollectionHandler receives stream collection events.
type CollectionHandler interface {
	StreamAdded(s Stream)
	StreamDeleted(s Stream)
	StreamLoaded(s Stream)
}

// NodeHandler receives node mutations of one stream.
type NodeHandler interface {
	NodeDeleted(node, parent, next Node, undoRedo bool)
	NodeInserted(node Node, undoRedo bool)
	NodeReplaced(old, new Node, undoRedo bool)
}
