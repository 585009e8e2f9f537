package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("display:\n  show_text: true\nplaceholders:\n  text: Type a name\ndrag_drop_window: 5s\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.PaneTitle != defaultPaneTitle {
		t.Errorf("PaneTitle = %q, want %q", cfg.PaneTitle, defaultPaneTitle)
	}
	if cfg.Locale != defaultLocale {
		t.Errorf("Locale = %d, want %d", cfg.Locale, defaultLocale)
	}
	if cfg.DragDropWindow != 5*time.Second {
		t.Errorf("DragDropWindow = %v, want 5s", cfg.DragDropWindow)
	}
	if cfg.Placeholders.Text != "Type a name" {
		t.Errorf("placeholder override lost: %q", cfg.Placeholders.Text)
	}
	if cfg.Placeholders.Date == "" {
		t.Error("date placeholder default not applied")
	}
	if got := cfg.Display.Options(); got != OptionShowText {
		t.Errorf("Options() = %b, want %b", got, OptionShowText)
	}
}

func TestLoadConfigBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	os.WriteFile(path, []byte("display: [oops"), 0644)
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadOrDefaultMissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
	if cfg == nil || !cfg.Display.AutoSelectNode {
		t.Fatalf("expected default config, got %+v", cfg)
	}
}

func TestEnsureDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	cfg, err := EnsureDefault(path)
	if err != nil {
		t.Fatalf("first EnsureDefault: %v", err)
	}
	if len(cfg.Schemas) != 3 {
		t.Errorf("expected 3 seeded schema aliases, got %d", len(cfg.Schemas))
	}
	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig after EnsureDefault: %v", err)
	}
	want := OptionShowAttributes | OptionAutoSelectNode
	if got := loaded.Display.Options(); got != want {
		t.Errorf("Options() = %b, want %b", got, want)
	}
	if loaded.DragDropWindow != defaultDragDropWindow {
		t.Errorf("DragDropWindow = %v after reload", loaded.DragDropWindow)
	}

	if _, err := EnsureDefault(path); !errors.Is(err, ErrExists) {
		t.Fatalf("second EnsureDefault error = %v, want ErrExists", err)
	}
}

func TestOptionsHas(t *testing.T) {
	o := OptionShowAttributes | OptionShowComments
	if !o.Has(OptionShowComments) {
		t.Error("expected ShowComments")
	}
	if o.Has(OptionShowComments | OptionShowText) {
		t.Error("Has must require every bit")
	}
}

func TestWatchReportsWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	os.WriteFile(path, []byte("history: 10\n"), 0644)

	changed := make(chan struct{}, 8)
	w, err := Watch(path, func() { changed <- struct{}{} }, nil)
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer w.Close()

	// Writes to sibling files are ignored.
	os.WriteFile(filepath.Join(filepath.Dir(path), "other.yaml"), []byte("x"), 0644)
	if err := os.WriteFile(path, []byte("history: 20\n"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatal("no change notification")
	}
}
