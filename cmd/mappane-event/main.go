package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	flag "github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/b/mappane/pkg/clipboard"
	"github.com/b/mappane/pkg/config"
	"github.com/b/mappane/pkg/daemon"
	"github.com/b/mappane/pkg/mapping"
)

const usage = `Usage:
  mappane-event [--session ID] [--json] <kind> [key=value ...]
  mappane-event dragdrop-html --xpath PATH --store ID [--type text] [--prefix MAP]

Kinds: document_open document_close window_open window_activate window_close
       mode stream_add stream_delete stream_load node_insert node_delete
       node_replace region_add region_enter surface_visible toggle state

Keys:  document window stream node region surface namespace name text type
       per_window visible checked undo_redo
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr, term.IsTerminal(int(os.Stdout.Fd()))))
}

func run(args []string, stdout, stderr io.Writer, tty bool) int {
	if len(args) > 0 && args[0] == "dragdrop-html" {
		return runDragDrop(args[1:], stdout, stderr)
	}

	fs := flag.NewFlagSet("mappane-event", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	sessionID := fs.StringP("session", "s", "", "host session ID")
	asJSON := fs.Bool("json", false, "print the ack as JSON even on a terminal")
	timeout := fs.Duration("timeout", 2*time.Second, "how long to wait for the daemon")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return 2
	}

	ev, err := parseEvent(fs.Arg(0), fs.Args()[1:])
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	ack, err := daemon.SendHostEvent(daemon.SocketPath(*sessionID), ev, *timeout)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if *asJSON || !tty {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		enc.Encode(ack)
	} else {
		printAck(stdout, ack)
	}
	if ack.Error != "" {
		return 1
	}
	return 0
}

// parseEvent builds a host event from its kind and key=value arguments.
func parseEvent(kind string, pairs []string) (daemon.HostEventPayload, error) {
	ev := daemon.HostEventPayload{Kind: daemon.HostEventKind(kind)}
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return ev, fmt.Errorf("argument %q is not key=value", pair)
		}
		switch key {
		case "document":
			ev.Document = value
		case "window":
			ev.Window = value
		case "stream":
			ev.Stream = value
		case "node":
			ev.Node = value
		case "region":
			ev.Region = value
		case "surface":
			ev.Surface = value
		case "namespace":
			ev.Namespace = value
		case "name":
			ev.Name = value
		case "text":
			ev.Text = value
		case "type":
			if _, err := mapping.ParseType(value); err != nil {
				return ev, err
			}
			ev.MappingType = value
		case "per_window", "visible", "checked", "undo_redo":
			b, err := strconv.ParseBool(value)
			if err != nil {
				return ev, fmt.Errorf("%s: %w", key, err)
			}
			switch key {
			case "per_window":
				ev.PerWindow = b
			case "visible":
				ev.Visible = b
			case "checked":
				ev.Checked = b
			case "undo_redo":
				ev.UndoRedo = b
			}
		default:
			return ev, fmt.Errorf("unknown key %q", key)
		}
	}
	return ev, nil
}

func printAck(w io.Writer, ack *daemon.AckPayload) {
	if ack.Error != "" {
		fmt.Fprintf(w, "error:   %s\n", ack.Error)
	}
	if ack.Created != "" {
		fmt.Fprintf(w, "created: %s\n", ack.Created)
	}
	fmt.Fprintf(w, "mode:    %s\n", ack.Mode)
	fmt.Fprintf(w, "toggle:  checked=%v enabled=%v\n", ack.Checked, ack.Enabled)
	for _, s := range ack.Surfaces {
		window := s.Window
		if window == "" {
			window = "(shared)"
		}
		fmt.Fprintf(w, "surface: %s window=%s visible=%v\n", s.ID, window, s.Visible)
	}
	for _, s := range ack.Streams {
		fmt.Fprintf(w, "stream:  %s %s\n", s.ID, s.Namespace)
	}
}

// runDragDrop prints the HTML clipboard payload for dragging a node into a
// document.
func runDragDrop(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("dragdrop-html", flag.ContinueOnError)
	fs.SetOutput(stderr)
	xpath := fs.String("xpath", "", "XPath of the dragged node")
	store := fs.String("store", "", "stream ID, e.g. {1B2C...}")
	typeName := fs.String("type", "text", "mapping type: text, dropdown, picture, date")
	prefix := fs.String("prefix", "", "namespace prefix mappings")
	cfgPath := fs.String("config", config.DefaultConfigPath(), "config file for placeholder text")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *xpath == "" || *store == "" {
		fmt.Fprintln(stderr, "Usage: mappane-event dragdrop-html --xpath PATH --store ID [--type text] [--prefix MAP]")
		return 2
	}
	typ, err := mapping.ParseType(*typeName)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	// A missing config still yields the stock placeholders.
	cfg, _ := config.LoadOrDefault(*cfgPath)

	html, _ := clipboard.GenerateHTML(*xpath, *prefix, *store, typ, cfg.Placeholders.For(typ))
	fmt.Fprint(stdout, html)
	return 0
}
