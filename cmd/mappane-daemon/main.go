package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/b/mappane/pkg/config"
	"github.com/b/mappane/pkg/daemon"
	"github.com/b/mappane/pkg/paths"
	"github.com/b/mappane/pkg/perf"
	"github.com/b/mappane/pkg/schemalib"
)

var crashLog *log.Logger
var eventLog *log.Logger

func initCrashLog(sessionID string) {
	crashLogPath := fmt.Sprintf("/tmp/mappane-daemon-%s-crash.log", sessionID)
	f, err := os.OpenFile(crashLogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		crashLog = log.New(os.Stderr, "[CRASH] ", log.LstdFlags)
		return
	}
	crashLog = log.New(f, "", log.LstdFlags|log.Lmicroseconds)
}

func initEventLog(sessionID string) {
	eventLogPath := fmt.Sprintf("/tmp/mappane-daemon-%s-events.log", sessionID)
	f, err := os.OpenFile(eventLogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		eventLog = log.New(os.Stderr, "[EVENT] ", log.LstdFlags)
		return
	}
	eventLog = log.New(f, "[event] ", log.LstdFlags|log.Lmicroseconds)
}

func logCrash(context string, r interface{}) {
	crashLog.Printf("=== CRASH in %s ===", context)
	crashLog.Printf("Panic: %v", r)
	crashLog.Printf("Stack trace:\n%s", debug.Stack())
	crashLog.Printf("=== END CRASH ===\n")
}

func recoverAndLog(context string) {
	if r := recover(); r != nil {
		logCrash(context, r)
	}
}

var (
	sessionID  = flag.StringP("session", "s", "", "host session ID")
	debugMode  = flag.BoolP("debug", "d", false, "Enable debug logging")
	configPath = flag.String("config", "", "config file (default $MAPPANE_CONFIG_DIR/config.yaml)")
)

var debugLog *log.Logger

// loop runs every coordinator call on one goroutine. Server goroutines
// hand work over and wait for it to finish.
type loop struct {
	reqs chan func()
}

func newLoop() *loop {
	return &loop{reqs: make(chan func())}
}

func (l *loop) run() {
	for fn := range l.reqs {
		func() {
			defer recoverAndLog("loop")
			fn()
		}()
	}
}

func (l *loop) do(fn func()) {
	done := make(chan struct{})
	l.reqs <- func() {
		defer close(done)
		fn()
	}
	<-done
}

// loadConfig reads the config, writing the default file and seeding the
// schema library on first run.
func loadConfig(path string, lib *schemalib.Library) *config.Config {
	cfg, err := config.EnsureDefault(path)
	switch {
	case err == nil:
		debugLog.Printf("First run: wrote %s", path)
		seedAliases(cfg, lib)
		return cfg
	case !errors.Is(err, config.ErrExists):
		debugLog.Printf("Cannot write default config: %v", err)
	}
	cfg, err = config.LoadOrDefault(path)
	if err != nil {
		debugLog.Printf("Config load failed, using defaults: %v", err)
		return config.Default()
	}
	return cfg
}

// seedAliases stores the configured schema aliases as culture-invariant
// names.
func seedAliases(cfg *config.Config, lib *schemalib.Library) {
	for _, s := range cfg.Schemas {
		if !lib.SetAlias(s.Namespace, s.Alias, 0) {
			logEvent("SCHEMALIB_SEED_SKIP namespace=%s", s.Namespace)
		}
	}
}

func logEvent(format string, args ...interface{}) {
	if eventLog != nil {
		eventLog.Printf(format, args...)
	}
}

func main() {
	flag.Parse()

	initCrashLog(*sessionID)
	initEventLog(*sessionID)
	defer recoverAndLog("main")

	if *debugMode {
		debugLog = log.New(os.Stderr, "[daemon] ", log.LstdFlags|log.Lmicroseconds)
	} else {
		debugLog = log.New(io.Discard, "", 0)
	}

	path := *configPath
	if path == "" {
		if _, err := paths.EnsureConfigDir(); err != nil {
			debugLog.Printf("Cannot create config dir: %v", err)
		}
		path = config.DefaultConfigPath()
	}
	if _, err := paths.EnsureStateDir(); err != nil {
		debugLog.Printf("Cannot create state dir: %v", err)
	}

	lib := schemalib.Default(eventLog)
	cfg := loadConfig(path, lib)
	coordinator := NewCoordinator(cfg, lib, eventLog)

	l := newLoop()
	go l.run()

	server := daemon.NewServer(*sessionID)

	server.OnRenderNeeded = func(clientID string, width, height int) (result *daemon.RenderPayload) {
		defer recoverAndLog("OnRenderNeeded")
		profile := server.GetMinColorProfile()
		l.do(func() {
			coordinator.SetColorProfile(profile)
			result = coordinator.Render(clientID, width, height)
		})
		return result
	}

	server.OnInput = func(clientID string, input *daemon.InputPayload) {
		defer recoverAndLog("OnInput")
		logEvent("INPUT client=%s action=%s target=%s", clientID, input.ResolvedAction, input.ResolvedTarget)
		l.do(func() { coordinator.HandleInput(clientID, input) })
		server.BroadcastRender()
	}

	server.OnHostEvent = func(ev *daemon.HostEventPayload) (ack *daemon.AckPayload) {
		defer recoverAndLog("OnHostEvent")
		ack = &daemon.AckPayload{Error: "internal error"}
		l.do(func() { ack = coordinator.HandleHostEvent(ev) })
		go server.BroadcastRender()
		return ack
	}

	server.OnDisconnect = func(clientID string) {
		logEvent("RENDERER_DISCONNECT client=%s", clientID)
	}

	if err := server.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "mappane-daemon: %v\n", err)
		os.Exit(1)
	}
	debugLog.Printf("Server listening on %s", server.GetSocketPath())
	logEvent("DAEMON_START session=%s pid=%d config=%s", *sessionID, os.Getpid(), path)

	watcher, err := config.Watch(path, func() {
		defer recoverAndLog("config watch")
		var reloadErr error
		l.do(func() {
			lib.Reload()
			reloadErr = coordinator.ReloadConfig(path)
		})
		if reloadErr != nil {
			logEvent("CONFIG_RELOAD_SKIP path=%s err=%v", path, reloadErr)
			return
		}
		server.BroadcastRender()
	}, func(err error) {
		debugLog.Printf("Config watch error: %v", err)
	})
	if err != nil {
		debugLog.Printf("Config watch disabled: %v", err)
	} else {
		defer watcher.Close()
	}

	// Handle signals for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	sig := <-sigCh
	logEvent("DAEMON_STOP signal=%v", sig)
	for _, st := range perf.Summary() {
		logEvent("PERF name=%s count=%d total=%v max=%v", st.Name, st.Count, st.Total, st.Max)
	}
	server.Stop()
}
