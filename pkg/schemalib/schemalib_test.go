package schemalib

import (
	"bytes"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const coreNS = "http://schemas.openxmlformats.org/package/2006/metadata/core-properties"

func writeStore(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestGetAliasMachineWins(t *testing.T) {
	dir := t.TempDir()
	machine := filepath.Join(dir, "machine.yaml")
	user := filepath.Join(dir, "user.yaml")
	writeStore(t, machine, `schemas:
  "`+coreNS+`":
    key: "`+coreNS+`"
    aliases:
      "1033": Machine Name
`)
	writeStore(t, user, `schemas:
  "`+coreNS+`":
    key: "`+coreNS+`"
    aliases:
      "1033": User Name
`)

	lib := New(machine, user, nil)
	if got := lib.GetAlias(coreNS, 1033); got != "Machine Name" {
		t.Fatalf("GetAlias() = %q, want machine alias", got)
	}
}

func TestGetAliasFallsBackToInvariant(t *testing.T) {
	dir := t.TempDir()
	user := filepath.Join(dir, "user.yaml")
	writeStore(t, user, `schemas:
  "urn:acme":
    key: "urn:acme"
    aliases:
      "0": Acme
`)
	lib := New(filepath.Join(dir, "missing.yaml"), user, nil)
	if got := lib.GetAlias("urn:acme", 1031); got != "Acme" {
		t.Fatalf("GetAlias() = %q, want invariant alias", got)
	}
	if got := lib.GetAlias("urn:other", 1031); got != "" {
		t.Fatalf("unknown namespace should have no alias, got %q", got)
	}
}

func TestGetAliasIgnoresKeyMismatch(t *testing.T) {
	dir := t.TempDir()
	user := filepath.Join(dir, "user.yaml")
	writeStore(t, user, `schemas:
  "urn:acme":
    key: "urn:not-acme"
    aliases:
      "0": Wrong
`)
	lib := New(filepath.Join(dir, "missing.yaml"), user, nil)
	if got := lib.GetAlias("urn:acme", 1033); got != "" {
		t.Fatalf("mismatched key must be ignored, got %q", got)
	}
}

func TestGetAliasSkipsUnreadableStore(t *testing.T) {
	dir := t.TempDir()
	machine := filepath.Join(dir, "machine.yaml")
	user := filepath.Join(dir, "user.yaml")
	writeStore(t, user, `schemas:
  "urn:acme":
    key: "urn:acme"
    aliases:
      "1033": From User
`)

	var logBuf bytes.Buffer
	lib := New(machine, user, log.New(&logBuf, "", 0))
	lib.readFile = func(path string) ([]byte, error) {
		if path == machine {
			return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrPermission}
		}
		return os.ReadFile(path)
	}

	if got := lib.GetAlias("urn:acme", 1033); got != "From User" {
		t.Fatalf("GetAlias() = %q, want user alias after machine store denied", got)
	}
	if !strings.Contains(logBuf.String(), "reason=permission") {
		t.Errorf("expected permission skip to be logged, got %q", logBuf.String())
	}
}

func TestSetAliasCreatesUserStore(t *testing.T) {
	dir := t.TempDir()
	user := filepath.Join(dir, "state", "user.yaml")
	lib := New(filepath.Join(dir, "missing.yaml"), user, nil)

	if !lib.SetAlias(coreNS, "Core File Properties", 1033) {
		t.Fatal("SetAlias returned false")
	}
	if !lib.SetAlias(coreNS, "Eigenschaften", 1031) {
		t.Fatal("second SetAlias returned false")
	}
	if got := lib.GetAlias(coreNS, 1033); got != "Core File Properties" {
		t.Errorf("GetAlias(1033) = %q", got)
	}
	if got := lib.GetAlias(coreNS, 1031); got != "Eigenschaften" {
		t.Errorf("GetAlias(1031) = %q", got)
	}
}

func TestSetAliasWriteDenied(t *testing.T) {
	dir := t.TempDir()
	lib := New(filepath.Join(dir, "m.yaml"), filepath.Join(dir, "u.yaml"), nil)
	lib.writeFile = func(string, []byte) error { return fs.ErrPermission }

	if lib.SetAlias("urn:acme", "Acme", 0) {
		t.Fatal("SetAlias should report false when the store cannot be written")
	}
}

func TestGetAliasCachesUntilReload(t *testing.T) {
	dir := t.TempDir()
	user := filepath.Join(dir, "user.yaml")
	writeStore(t, user, `schemas:
  "urn:acme":
    key: "urn:acme"
    aliases:
      "0": Acme
`)
	lib := New(filepath.Join(dir, "missing.yaml"), user, nil)
	reads := 0
	lib.readFile = func(path string) ([]byte, error) {
		reads++
		return os.ReadFile(path)
	}

	for i := 0; i < 3; i++ {
		if got := lib.GetAlias("urn:acme", 1033); got != "Acme" {
			t.Fatalf("GetAlias() = %q", got)
		}
	}
	if reads != 2 {
		t.Errorf("stores read %d times, want 2 for the first lookup only", reads)
	}

	writeStore(t, user, `schemas:
  "urn:acme":
    key: "urn:acme"
    aliases:
      "0": Acme Corp
`)
	if got := lib.GetAlias("urn:acme", 1033); got != "Acme" {
		t.Errorf("cached GetAlias() = %q", got)
	}
	lib.Reload()
	if got := lib.GetAlias("urn:acme", 1033); got != "Acme Corp" {
		t.Errorf("GetAlias() after Reload = %q", got)
	}
}

func TestSetAliasInvalidatesCache(t *testing.T) {
	dir := t.TempDir()
	lib := New(filepath.Join(dir, "m.yaml"), filepath.Join(dir, "u.yaml"), nil)

	if got := lib.GetAlias("urn:acme", 0); got != "" {
		t.Fatalf("GetAlias() = %q before any alias exists", got)
	}
	if !lib.SetAlias("urn:acme", "Acme", 0) {
		t.Fatal("SetAlias returned false")
	}
	if got := lib.GetAlias("urn:acme", 0); got != "Acme" {
		t.Errorf("GetAlias() = %q, want the alias just set", got)
	}
}
