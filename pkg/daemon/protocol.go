package daemon

import (
	"encoding/json"
	"fmt"
)

// MessageType identifies the type of message
type MessageType string

const (
	MsgSubscribe      MessageType = "subscribe"
	MsgUnsubscribe    MessageType = "unsubscribe"
	MsgRender         MessageType = "render"
	MsgInput          MessageType = "input"
	MsgResize         MessageType = "resize"
	MsgViewportUpdate MessageType = "viewport_update"
	MsgPing           MessageType = "ping"
	MsgPong           MessageType = "pong"
	MsgHostEvent      MessageType = "host_event" // Host bridge -> Daemon
	MsgAck            MessageType = "ack"        // Daemon -> Host bridge
)

// Message is the base message structure for all daemon traffic
type Message struct {
	Type     MessageType `json:"type"`
	ClientID string      `json:"client_id,omitempty"`
	Payload  interface{} `json:"payload,omitempty"`
}

// DecodePayload re-decodes msg.Payload into v. Payloads arrive as generic
// JSON values after the first unmarshal.
func DecodePayload(msg Message, v interface{}) error {
	if msg.Payload == nil {
		return fmt.Errorf("%s: missing payload", msg.Type)
	}
	data, err := json.Marshal(msg.Payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// RenderPayload contains pre-rendered content for a renderer
type RenderPayload struct {
	SequenceNum    uint64 `json:"seq"`             // Monotonic sequence for race detection
	Title          string `json:"title"`           // Surface caption
	Content        string `json:"content"`         // Pre-rendered scrollable content
	Width          int    `json:"width"`           // Rendered for this width
	Height         int    `json:"height"`          // Rendered for this height
	TotalLines     int    `json:"total_lines"`     // Total lines in content for scroll calc
	ViewportOffset int    `json:"viewport_offset"` // Suggested scroll position
	Visible        bool   `json:"visible"`         // Surface visibility; hidden renderers draw nothing
}

// InputPayload contains input events from renderer
type InputPayload struct {
	SequenceNum uint64 `json:"seq"`           // Render frame this input references
	Type        string `json:"type"`          // "key" or "action"
	Key         string `json:"key,omitempty"` // Key string for keyboard events
	// Semantic action resolved by the renderer
	ResolvedAction string `json:"resolved_action,omitempty"` // "hide", "next_stream", "drag", "refresh"
	ResolvedTarget string `json:"resolved_target,omitempty"` // stream ID for next_stream, node ID for drag
}

// Renderer actions understood by the daemon.
const (
	ActionHide       = "hide"
	ActionNextStream = "next_stream"
	ActionDrag       = "drag"
	ActionRefresh    = "refresh"
)

// ResizePayload contains terminal dimensions and capabilities
type ResizePayload struct {
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	ColorProfile string `json:"color_profile,omitempty"` // "Ascii", "ANSI", "ANSI256", "TrueColor"
}

// ViewportUpdatePayload contains scroll position update
type ViewportUpdatePayload struct {
	ViewportOffset int `json:"viewport_offset"`
}

// HostEventKind names a host notification or command forwarded by the bridge.
type HostEventKind string

const (
	HostDocumentOpen   HostEventKind = "document_open"   // Document; opens and activates a window
	HostDocumentClose  HostEventKind = "document_close"  // Document
	HostWindowOpen     HostEventKind = "window_open"     // Document; another window on it
	HostWindowActivate HostEventKind = "window_activate" // Window
	HostWindowClose    HostEventKind = "window_close"    // Window
	HostMode           HostEventKind = "mode"            // PerWindow
	HostStreamAdd      HostEventKind = "stream_add"      // Document, Namespace, Name (root element)
	HostStreamDelete   HostEventKind = "stream_delete"   // Document, Stream
	HostStreamLoad     HostEventKind = "stream_load"     // Document, Stream
	HostNodeInsert     HostEventKind = "node_insert"     // Document, Stream, Node (parent), Name, Text
	HostNodeDelete     HostEventKind = "node_delete"     // Document, Stream, Node
	HostNodeReplace    HostEventKind = "node_replace"    // Document, Stream, Node, Name, Text
	HostRegionAdd      HostEventKind = "region_add"      // Document, MappingType, optional Stream+Node
	HostRegionEnter    HostEventKind = "region_enter"    // Document, Region
	HostSurfaceVisible HostEventKind = "surface_visible" // Surface, Visible
	HostToggle         HostEventKind = "toggle"          // Checked
	HostState          HostEventKind = "state"           // no change; reply with current state
)

// HostEventPayload is one host notification. Only the fields named for the
// kind are read.
type HostEventPayload struct {
	Kind        HostEventKind `json:"kind"`
	Document    string        `json:"document,omitempty"`
	Window      string        `json:"window,omitempty"`
	Stream      string        `json:"stream,omitempty"`
	Node        string        `json:"node,omitempty"`
	Region      string        `json:"region,omitempty"`
	Surface     string        `json:"surface,omitempty"`
	Namespace   string        `json:"namespace,omitempty"`
	Name        string        `json:"name,omitempty"`
	Text        string        `json:"text,omitempty"`
	MappingType string        `json:"mapping_type,omitempty"`
	PerWindow   bool          `json:"per_window,omitempty"`
	Visible     bool          `json:"visible,omitempty"`
	Checked     bool          `json:"checked,omitempty"`
	UndoRedo    bool          `json:"undo_redo,omitempty"`
}

// SurfaceInfo describes a live surface so the bridge can run its renderer.
type SurfaceInfo struct {
	ID      string `json:"id"`
	Window  string `json:"window,omitempty"`
	Visible bool   `json:"visible"`
}

// StreamInfo describes one data stream of the active document.
type StreamInfo struct {
	ID        string `json:"id"`
	Namespace string `json:"namespace"`
}

// AckPayload answers a host event with the resulting state.
type AckPayload struct {
	Created  string        `json:"created,omitempty"` // ID of the window, stream, node or region the event made
	Checked  bool          `json:"checked"`
	Enabled  bool          `json:"enabled"`
	Mode     string        `json:"mode"`
	Surfaces []SurfaceInfo `json:"surfaces"`
	Streams  []StreamInfo  `json:"streams,omitempty"` // Active document only
	Error    string        `json:"error,omitempty"`
}

// SocketPath returns the daemon socket path for a session
func SocketPath(sessionID string) string {
	if sessionID == "" {
		sessionID = "default"
	}
	return fmt.Sprintf("/tmp/mappane-daemon-%s.sock", sessionID)
}

// PidPath returns the pidfile path for a session
func PidPath(sessionID string) string {
	if sessionID == "" {
		sessionID = "default"
	}
	return fmt.Sprintf("/tmp/mappane-daemon-%s.pid", sessionID)
}
