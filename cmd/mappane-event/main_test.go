package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/b/mappane/pkg/daemon"
	"github.com/b/mappane/pkg/mapping"
)

func TestParseEvent(t *testing.T) {
	ev, err := parseEvent("node_insert", []string{
		"document=a.docx", "stream={AB}", "node=n1", "name=company", "text=Acme Corp", "undo_redo=true",
	})
	if err != nil {
		t.Fatal(err)
	}
	want := daemon.HostEventPayload{
		Kind: daemon.HostNodeInsert, Document: "a.docx", Stream: "{AB}", Node: "n1",
		Name: "company", Text: "Acme Corp", UndoRedo: true,
	}
	if ev != want {
		t.Errorf("event = %+v", ev)
	}
}

func TestParseEventErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"not a pair", []string{"document"}},
		{"unknown key", []string{"colour=red"}},
		{"bad bool", []string{"checked=maybe"}},
		{"bad type", []string{"type=table"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseEvent("toggle", tt.args); err == nil {
				t.Errorf("parseEvent(%v) succeeded", tt.args)
			}
		})
	}
}

// startDaemon serves acks on a throwaway session socket.
func startDaemon(t *testing.T) string {
	t.Helper()
	session := "evtest-" + strconv.Itoa(os.Getpid()) + "-" + t.Name()
	s := daemon.NewServer(session)
	s.OnHostEvent = func(ev *daemon.HostEventPayload) *daemon.AckPayload {
		ack := &daemon.AckPayload{Mode: "shared", Enabled: true, Surfaces: []daemon.SurfaceInfo{}}
		if ev.Kind == daemon.HostToggle {
			ack.Checked = ev.Checked
			ack.Surfaces = append(ack.Surfaces, daemon.SurfaceInfo{ID: "s1", Visible: ev.Checked})
		}
		if ev.Kind == "explode" {
			ack.Error = "bad host event"
		}
		return ack
	}
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(s.Stop)
	return session
}

func TestRunPrintsJSONWhenPiped(t *testing.T) {
	session := startDaemon(t)
	var out, errOut bytes.Buffer

	code := run([]string{"--session", session, "toggle", "checked=true"}, &out, &errOut, false)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut.String())
	}
	var ack daemon.AckPayload
	if err := json.Unmarshal(out.Bytes(), &ack); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out.String())
	}
	if !ack.Checked || len(ack.Surfaces) != 1 {
		t.Errorf("ack = %+v", ack)
	}
}

func TestRunPrintsTextOnTerminal(t *testing.T) {
	session := startDaemon(t)
	var out, errOut bytes.Buffer

	if code := run([]string{"-s", session, "toggle", "checked=true"}, &out, &errOut, true); code != 0 {
		t.Fatalf("exit %d: %s", code, errOut.String())
	}
	for _, want := range []string{"mode:    shared", "checked=true enabled=true", "surface: s1 window=(shared) visible=true"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestRunReportsAckError(t *testing.T) {
	session := startDaemon(t)
	var out, errOut bytes.Buffer
	if code := run([]string{"-s", session, "--json", "explode"}, &out, &errOut, true); code != 1 {
		t.Errorf("exit = %d, want 1", code)
	}
}

func TestRunWithoutDaemon(t *testing.T) {
	var out, errOut bytes.Buffer
	code := run([]string{"-s", "evtest-missing-" + strconv.Itoa(os.Getpid()), "--timeout", "100ms", "state"}, &out, &errOut, false)
	if code != 1 || !strings.Contains(errOut.String(), "connect") {
		t.Errorf("exit %d stderr %q", code, errOut.String())
	}
}

func TestRunUsage(t *testing.T) {
	var out, errOut bytes.Buffer
	if code := run(nil, &out, &errOut, true); code != 2 {
		t.Errorf("exit = %d", code)
	}
	if !strings.Contains(errOut.String(), "Usage:") {
		t.Errorf("stderr = %q", errOut.String())
	}
}

func TestDragDropHTML(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("placeholders:\n  date: Pick a day.\n"), 0644); err != nil {
		t.Fatal(err)
	}
	var out, errOut bytes.Buffer

	code := run([]string{"dragdrop-html", "--xpath", "/customer/since", "--store", "{1B2C-77}", "--type", "date", "--config", cfgPath}, &out, &errOut, true)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut.String())
	}
	html := out.String()
	for _, want := range []string{"Version: 1.0", `Xpath="/customer/since"`, `StoreItemID="X_1B2C-77"`, "Pick a day.", mapping.Date.Attributes()} {
		if !strings.Contains(html, want) {
			t.Errorf("payload missing %q", want)
		}
	}
}

func TestDragDropHTMLNeedsXPath(t *testing.T) {
	var out, errOut bytes.Buffer
	if code := run([]string{"dragdrop-html", "--store", "{A}"}, &out, &errOut, true); code != 2 {
		t.Errorf("exit = %d", code)
	}
}
