package pane

import (
	"fmt"

	"github.com/b/mappane/pkg/config"
	"github.com/b/mappane/pkg/host"
)

// ChangeReason says why a renderer is asked to refresh.
type ChangeReason int

const (
	DocumentChanged ChangeReason = iota
	OnEnter
	PartAdded
	PartDeleted
	PartLoaded
	NodeDeleted
	NodeAdded
	NodeReplaced
)

var reasonNames = [...]string{
	DocumentChanged: "document_changed",
	OnEnter:         "on_enter",
	PartAdded:       "part_added",
	PartDeleted:     "part_deleted",
	PartLoaded:      "part_loaded",
	NodeDeleted:     "node_deleted",
	NodeAdded:       "node_added",
	NodeReplaced:    "node_replaced",
}

func (r ChangeReason) String() string {
	if r >= 0 && int(r) < len(reasonNames) {
		return reasonNames[r]
	}
	return fmt.Sprintf("reason(%d)", int(r))
}

// Refresh is one notification to a renderer. Only the fields that belong to
// Reason are set:
//
//	OnEnter       NewNode (the region's mapped node)
//	PartDeleted   DeletedStream
//	NodeDeleted   DeletedNode, ParentNode, NextSibling
//	NodeAdded     NewNode
//	NodeReplaced  DeletedNode (old), ParentNode, NextSibling, NewNode
type Refresh struct {
	Reason        ChangeReason
	DeletedNode   host.Node
	ParentNode    host.Node
	NextSibling   host.Node
	NewNode       host.Node
	DeletedStream host.Stream
}

func DocumentChangedRefresh() Refresh { return Refresh{Reason: DocumentChanged} }

func OnEnterRefresh(node host.Node) Refresh {
	return Refresh{Reason: OnEnter, NewNode: node}
}

func PartAddedRefresh() Refresh  { return Refresh{Reason: PartAdded} }
func PartLoadedRefresh() Refresh { return Refresh{Reason: PartLoaded} }

func PartDeletedRefresh(s host.Stream) Refresh {
	return Refresh{Reason: PartDeleted, DeletedStream: s}
}

func NodeDeletedRefresh(node, parent, next host.Node) Refresh {
	return Refresh{Reason: NodeDeleted, DeletedNode: node, ParentNode: parent, NextSibling: next}
}

func NodeAddedRefresh(node host.Node) Refresh {
	return Refresh{Reason: NodeAdded, NewNode: node}
}

// NodeReplacedRefresh locates the replacement by its parent and next sibling
// so the renderer can put it where the old node was.
func NodeReplacedRefresh(old, new host.Node) Refresh {
	r := Refresh{Reason: NodeReplaced, DeletedNode: old, NewNode: new}
	if new != nil {
		r.ParentNode = new.Parent()
		r.NextSibling = new.NextSibling()
	}
	return r
}

// Renderer draws one pane's mapping tree.
type Renderer interface {
	RefreshControls(r Refresh)
	RefreshSettings(o config.Options)
	// RecentDragDrop reports whether a node was dragged out of the pane
	// recently enough that a newly added region is the drop target.
	RecentDragDrop() bool
	// Close is called once when the pane is destroyed.
	Close()
}

// RendererFactory builds the renderer for a newly created surface.
type RendererFactory func(s host.Surface) Renderer
