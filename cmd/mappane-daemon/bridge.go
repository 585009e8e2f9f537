package main

import (
	"errors"
	"fmt"

	"github.com/b/mappane/pkg/daemon"
	"github.com/b/mappane/pkg/host"
	"github.com/b/mappane/pkg/host/memhost"
	"github.com/b/mappane/pkg/mapping"
	"github.com/b/mappane/pkg/pane"
)

var (
	errUnknownDocument = errors.New("unknown document")
	errUnknownStream   = errors.New("unknown stream")
	errUnknownNode     = errors.New("unknown node")
	errUnknownRegion   = errors.New("unknown region")
	errUnknownSurface  = errors.New("unknown surface")
	errBadEvent        = errors.New("bad host event")
)

// HandleHostEvent applies ev to the host mirror, dispatches the session
// events the real host would have raised, and reports the resulting state.
func (c *Coordinator) HandleHostEvent(ev *daemon.HostEventPayload) *daemon.AckPayload {
	created, err := c.apply(ev)
	ack := c.state()
	ack.Created = created
	if err != nil {
		ack.Error = err.Error()
		c.log.Printf("HOST_EVENT kind=%s err=%v", ev.Kind, err)
	} else {
		c.log.Printf("HOST_EVENT kind=%s created=%s checked=%v enabled=%v surfaces=%d",
			ev.Kind, created, ack.Checked, ack.Enabled, len(ack.Surfaces))
	}
	return ack
}

func (c *Coordinator) state() *daemon.AckPayload {
	t := c.session.Toggle()
	ack := &daemon.AckPayload{
		Checked:  t.Checked,
		Enabled:  t.Enabled,
		Mode:     c.session.Mode().String(),
		Surfaces: []daemon.SurfaceInfo{},
	}
	for _, s := range c.host.Surfaces() {
		visible, err := s.Visible()
		if err != nil {
			continue
		}
		ack.Surfaces = append(ack.Surfaces, daemon.SurfaceInfo{
			ID:      s.ID(),
			Window:  string(s.Window()),
			Visible: visible,
		})
	}
	if doc := c.host.ActiveDocument(); doc != nil {
		if coll, err := doc.Streams(); err == nil {
			for _, st := range coll.Streams() {
				ack.Streams = append(ack.Streams, daemon.StreamInfo{ID: st.ID(), Namespace: st.RootNamespace()})
			}
		}
	}
	return ack
}

func (c *Coordinator) apply(ev *daemon.HostEventPayload) (string, error) {
	switch ev.Kind {
	case daemon.HostDocumentOpen:
		if ev.Document == "" {
			return "", fmt.Errorf("%w: document name required", errBadEvent)
		}
		if _, ok := c.host.Document(ev.Document); ok {
			return "", fmt.Errorf("%w: %s already open", errBadEvent, ev.Document)
		}
		doc, w := c.host.OpenDocument(ev.Document)
		c.session.Dispatch(pane.DocumentCountChanged{Count: c.host.DocumentCount()})
		c.session.Dispatch(pane.WindowActivated{Document: doc, Window: w})
		return string(w), nil

	case daemon.HostDocumentClose:
		doc, err := c.document(ev.Document)
		if err != nil {
			return "", err
		}
		c.host.CloseDocument(doc)
		c.afterClose()
		return "", nil

	case daemon.HostWindowOpen:
		doc, err := c.document(ev.Document)
		if err != nil {
			return "", err
		}
		w := c.host.OpenWindow(doc)
		c.session.Dispatch(pane.WindowActivated{Document: doc, Window: w})
		return string(w), nil

	case daemon.HostWindowActivate:
		w := host.WindowID(ev.Window)
		if err := c.host.ActivateWindow(w); err != nil {
			return "", err
		}
		doc, _ := c.host.DocumentOf(w)
		c.session.Dispatch(pane.WindowActivated{Document: doc, Window: w})
		return "", nil

	case daemon.HostWindowClose:
		w := host.WindowID(ev.Window)
		docs := c.host.DocumentCount()
		if err := c.host.CloseWindow(w); err != nil {
			return "", err
		}
		c.session.Dispatch(pane.WindowClosed{Window: w})
		if c.host.DocumentCount() != docs {
			c.session.Dispatch(pane.DocumentCountChanged{Count: c.host.DocumentCount()})
		}
		if c.host.WindowCount() > 0 {
			c.session.Dispatch(pane.WindowActivated{Document: c.host.ActiveDocument(), Window: c.host.ActiveWindow()})
		}
		return "", nil

	case daemon.HostMode:
		c.host.SetPerWindowMode(ev.PerWindow)
		// The host raises no event of its own; the next one reconciles.
		c.session.Dispatch(pane.DocumentCountChanged{Count: c.host.DocumentCount()})
		return "", nil

	case daemon.HostStreamAdd:
		doc, err := c.document(ev.Document)
		if err != nil {
			return "", err
		}
		root := ev.Name
		if root == "" {
			root = "root"
		}
		return doc.Collection().AddStream(ev.Namespace, root).ID(), nil

	case daemon.HostStreamDelete:
		doc, st, err := c.stream(ev)
		if err != nil {
			return "", err
		}
		doc.Collection().DeleteStream(st)
		return "", nil

	case daemon.HostStreamLoad:
		doc, st, err := c.stream(ev)
		if err != nil {
			return "", err
		}
		doc.Collection().LoadStream(st)
		return "", nil

	case daemon.HostNodeInsert:
		_, st, err := c.stream(ev)
		if err != nil {
			return "", err
		}
		parent := st.Root()
		if ev.Node != "" {
			if parent, err = c.node(st, ev.Node); err != nil {
				return "", err
			}
		}
		if ev.Name == "" {
			return "", fmt.Errorf("%w: element name required", errBadEvent)
		}
		return st.InsertNode(parent, ev.Name, ev.Text, ev.UndoRedo).ID(), nil

	case daemon.HostNodeDelete:
		_, st, err := c.stream(ev)
		if err != nil {
			return "", err
		}
		n, err := c.node(st, ev.Node)
		if err != nil {
			return "", err
		}
		if n == st.Root() {
			return "", fmt.Errorf("%w: cannot delete the root element", errBadEvent)
		}
		st.DeleteNode(n, ev.UndoRedo)
		return "", nil

	case daemon.HostNodeReplace:
		_, st, err := c.stream(ev)
		if err != nil {
			return "", err
		}
		n, err := c.node(st, ev.Node)
		if err != nil {
			return "", err
		}
		name := ev.Name
		if name == "" {
			name = n.Name()
		}
		return st.ReplaceNode(n, name, ev.Text, ev.UndoRedo).ID(), nil

	case daemon.HostRegionAdd:
		doc, err := c.document(ev.Document)
		if err != nil {
			return "", err
		}
		kind := mapping.Text
		if ev.MappingType != "" {
			if kind, err = mapping.ParseType(ev.MappingType); err != nil {
				return "", fmt.Errorf("%w: %v", errBadEvent, err)
			}
		}
		var node *memhost.Node
		if ev.Node != "" {
			_, st, err := c.stream(ev)
			if err != nil {
				return "", err
			}
			if node, err = c.node(st, ev.Node); err != nil {
				return "", err
			}
		}
		return doc.AddRegion(kind, node, ev.UndoRedo).ID(), nil

	case daemon.HostRegionEnter:
		doc, err := c.document(ev.Document)
		if err != nil {
			return "", err
		}
		r, ok := doc.Region(ev.Region)
		if !ok {
			return "", fmt.Errorf("%w: %s", errUnknownRegion, ev.Region)
		}
		doc.EnterRegion(r)
		return "", nil

	case daemon.HostSurfaceVisible:
		s, ok := c.host.Surface(ev.Surface)
		if !ok {
			return "", fmt.Errorf("%w: %s", errUnknownSurface, ev.Surface)
		}
		return "", s.SetVisible(ev.Visible)

	case daemon.HostToggle:
		c.session.Dispatch(pane.ToggleClicked{Checked: ev.Checked})
		return "", nil

	case daemon.HostState:
		return "", nil
	}
	return "", fmt.Errorf("%w: kind %q", errBadEvent, ev.Kind)
}

// afterClose reports a document close the way the host does: a new count,
// then activation of whatever window is left.
func (c *Coordinator) afterClose() {
	c.session.Dispatch(pane.DocumentCountChanged{Count: c.host.DocumentCount()})
	if c.host.WindowCount() > 0 {
		c.session.Dispatch(pane.WindowActivated{Document: c.host.ActiveDocument(), Window: c.host.ActiveWindow()})
	}
}

func (c *Coordinator) document(name string) (*memhost.Document, error) {
	doc, ok := c.host.Document(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", errUnknownDocument, name)
	}
	return doc, nil
}

func (c *Coordinator) stream(ev *daemon.HostEventPayload) (*memhost.Document, *memhost.Stream, error) {
	doc, err := c.document(ev.Document)
	if err != nil {
		return nil, nil, err
	}
	st, ok := doc.Collection().Stream(ev.Stream)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", errUnknownStream, ev.Stream)
	}
	return doc, st, nil
}

func (c *Coordinator) node(st *memhost.Stream, id string) (*memhost.Node, error) {
	n, ok := st.Node(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", errUnknownNode, id)
	}
	return n, nil
}
