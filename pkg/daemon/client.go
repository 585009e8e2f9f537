package daemon

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"
)

// ErrNoReply is returned when the daemon closes the connection without
// answering.
var ErrNoReply = errors.New("daemon sent no reply")

// Call sends one message to the daemon at socketPath and waits for the
// first reply line.
func Call(socketPath string, msg Message, timeout time.Duration) (Message, error) {
	var conn net.Conn
	var err error
	for i := 0; i < 3; i++ {
		conn, err = net.DialTimeout("unix", socketPath, timeout)
		if err == nil {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	if err != nil {
		return Message{}, fmt.Errorf("failed to connect to daemon: %w", err)
	}
	defer conn.Close()

	data, err := json.Marshal(msg)
	if err != nil {
		return Message{}, err
	}
	conn.SetDeadline(time.Now().Add(timeout))
	if _, err := conn.Write(append(data, '\n')); err != nil {
		return Message{}, fmt.Errorf("failed to send %s: %w", msg.Type, err)
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return Message{}, fmt.Errorf("failed to read reply: %w", err)
		}
		return Message{}, ErrNoReply
	}
	var reply Message
	if err := json.Unmarshal(scanner.Bytes(), &reply); err != nil {
		return Message{}, fmt.Errorf("failed to decode reply: %w", err)
	}
	return reply, nil
}

// SendHostEvent delivers ev and returns the daemon's ack.
func SendHostEvent(socketPath string, ev HostEventPayload, timeout time.Duration) (*AckPayload, error) {
	reply, err := Call(socketPath, Message{Type: MsgHostEvent, Payload: ev}, timeout)
	if err != nil {
		return nil, err
	}
	if reply.Type != MsgAck {
		return nil, fmt.Errorf("unexpected reply %q to %s", reply.Type, ev.Kind)
	}
	var ack AckPayload
	if err := DecodePayload(reply, &ack); err != nil {
		return nil, err
	}
	return &ack, nil
}
