package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	flag "github.com/spf13/pflag"

	"github.com/b/mappane/pkg/daemon"
)

var (
	sessionID = flag.StringP("session", "s", "", "host session ID")
	surfaceID = flag.String("surface", "", "surface ID this renderer draws")
	debug     = flag.BoolP("debug", "d", false, "Enable debug logging")
)

var debugLog *log.Logger

// link is the daemon connection. Writes are serialized.
type link struct {
	mu   sync.Mutex
	conn net.Conn
}

func (l *link) send(msg daemon.Message) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn == nil {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	l.conn.SetWriteDeadline(time.Now().Add(time.Second))
	l.conn.Write(append(data, '\n'))
}

// rendererModel draws the content the daemon renders for one surface.
type rendererModel struct {
	clientID  string
	width     int
	height    int
	connected bool

	// Render state from daemon
	title       string
	visible     bool
	sequenceNum uint64
	vp          viewport.Model

	send func(daemon.Message)
}

type connectedMsg struct {
	conn net.Conn
}

type disconnectedMsg struct{}

type renderMsg struct {
	payload *daemon.RenderPayload
}

type tickMsg time.Time

// keyActions maps keys to the daemon actions they trigger.
var keyActions = map[string]string{
	"h": daemon.ActionHide,
	"n": daemon.ActionNextStream,
	"d": daemon.ActionDrag,
	"r": daemon.ActionRefresh,
}

func newModel(clientID string, send func(daemon.Message)) rendererModel {
	return rendererModel{
		clientID: clientID,
		width:    80,
		height:   24,
		vp:       viewport.New(80, 23),
		send:     send,
	}
}

// Init implements tea.Model
func (m rendererModel) Init() tea.Cmd {
	return tea.Batch(connectCmd(), tickCmd())
}

// connectCmd connects to the daemon
func connectCmd() tea.Cmd {
	return func() tea.Msg {
		sockPath := daemon.SocketPath(*sessionID)

		// Try connecting with retry
		var conn net.Conn
		var err error
		for i := 0; i < 10; i++ {
			conn, err = net.Dial("unix", sockPath)
			if err == nil {
				break
			}
			time.Sleep(100 * time.Millisecond)
		}
		if err != nil {
			debugLog.Printf("Failed to connect to daemon: %v", err)
			return disconnectedMsg{}
		}
		return connectedMsg{conn: conn}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model
func (m rendererModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case connectedMsg:
		daemonLink.mu.Lock()
		daemonLink.conn = msg.conn
		daemonLink.mu.Unlock()
		m.connected = true
		debugLog.Printf("Connected as %s", m.clientID)
		go receiveLoop(msg.conn)
		m.sendSubscribe()
		return m, nil

	case disconnectedMsg:
		m.connected = false
		debugLog.Printf("Disconnected from daemon")
		return m, tea.Tick(time.Second, func(t time.Time) tea.Msg {
			return connectCmd()()
		})

	case renderMsg:
		if msg.payload.SequenceNum != 0 && msg.payload.SequenceNum < m.sequenceNum {
			return m, nil
		}
		m.sequenceNum = msg.payload.SequenceNum
		m.title = msg.payload.Title
		m.visible = msg.payload.Visible
		m.vp.SetContent(msg.payload.Content)
		if *debug {
			debugLog.Printf("RENDER seq=%d lines=%d visible=%v", m.sequenceNum, msg.payload.TotalLines, m.visible)
		}
		return m, nil

	case tickMsg:
		if m.connected {
			m.send(daemon.Message{Type: daemon.MsgPing, ClientID: m.clientID})
		}
		return m, tickCmd()

	case tea.KeyMsg:
		key := msg.String()
		if key == "q" || key == "ctrl+c" {
			m.send(daemon.Message{Type: daemon.MsgUnsubscribe, ClientID: m.clientID})
			return m, tea.Quit
		}
		if action, ok := keyActions[key]; ok {
			m.sendInput(&daemon.InputPayload{
				SequenceNum:    m.sequenceNum,
				Type:           "action",
				Key:            key,
				ResolvedAction: action,
			})
			return m, nil
		}
		before := m.vp.YOffset
		var cmd tea.Cmd
		m.vp, cmd = m.vp.Update(msg)
		if m.vp.YOffset != before {
			m.send(daemon.Message{
				Type:     daemon.MsgViewportUpdate,
				ClientID: m.clientID,
				Payload:  daemon.ViewportUpdatePayload{ViewportOffset: m.vp.YOffset},
			})
		}
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.vp.Width = msg.Width
		m.vp.Height = max(msg.Height-1, 1)
		if m.connected {
			m.send(daemon.Message{
				Type:     daemon.MsgResize,
				ClientID: m.clientID,
				Payload:  daemon.ResizePayload{Width: m.width, Height: m.height},
			})
		}
		return m, nil
	}

	return m, nil
}

var spinnerFrames = []string{"◐", "◓", "◑", "◒"}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#e0e0e0")).Background(lipgloss.Color("#3e4451"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
)

// View implements tea.Model
func (m rendererModel) View() string {
	if !m.connected {
		frame := spinnerFrames[int(time.Now().UnixMilli()/100)%len(spinnerFrames)]
		return dimStyle.Render(fmt.Sprintf(" %s Connecting...", frame))
	}
	if !m.visible {
		return dimStyle.Render(" hidden")
	}
	header := headerStyle.Width(m.width).Render(m.title)
	return header + "\n" + m.vp.View()
}

func (m rendererModel) sendSubscribe() {
	// Detect color profile
	colorProfile := "ANSI256"
	switch termenv.ColorProfile() {
	case termenv.TrueColor:
		colorProfile = "TrueColor"
	case termenv.Ascii:
		colorProfile = "Ascii"
	case termenv.ANSI:
		colorProfile = "ANSI"
	}

	m.send(daemon.Message{
		Type:     daemon.MsgSubscribe,
		ClientID: m.clientID,
		Payload: daemon.ResizePayload{
			Width:        m.width,
			Height:       m.height,
			ColorProfile: colorProfile,
		},
	})
}

func (m rendererModel) sendInput(input *daemon.InputPayload) {
	m.send(daemon.Message{
		Type:     daemon.MsgInput,
		ClientID: m.clientID,
		Payload:  input,
	})
}

// receiveLoop reads messages from the daemon
func receiveLoop(c net.Conn) {
	scanner := bufio.NewScanner(c)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		var msg daemon.Message
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			continue
		}
		if msg.Type != daemon.MsgRender {
			continue
		}
		var payload daemon.RenderPayload
		if daemon.DecodePayload(msg, &payload) == nil && globalProgram != nil {
			globalProgram.Send(renderMsg{payload: &payload})
		}
	}

	if globalProgram != nil {
		globalProgram.Send(disconnectedMsg{})
	}
}

var daemonLink = &link{}

// Global program reference for message passing from receiveLoop
var globalProgram *tea.Program

func main() {
	flag.Parse()

	if *surfaceID == "" {
		fmt.Fprintln(os.Stderr, "mappane-renderer: --surface is required")
		os.Exit(2)
	}

	if *debug {
		// Write debug log to file instead of stderr to avoid corrupting the display
		logPath := fmt.Sprintf("/tmp/mappane-renderer-%s.log", *surfaceID)
		logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			debugLog = log.New(os.Stderr, "[renderer] ", log.LstdFlags|log.Lmicroseconds)
		} else {
			debugLog = log.New(logFile, "[renderer] ", log.LstdFlags|log.Lmicroseconds)
		}
	} else {
		debugLog = log.New(io.Discard, "", 0)
	}
	debugLog.Printf("Starting renderer for session %s surface %s", *sessionID, *surfaceID)

	p := tea.NewProgram(newModel(*surfaceID, daemonLink.send), tea.WithAltScreen())
	globalProgram = p

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		p.Send(tea.Quit())
	}()

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
