// Package schemalib maps data stream root namespaces to friendly names.
//
// Aliases live in two YAML stores: a read-only machine store and a writable
// per-user store. Lookups try the machine store first. Within a store the
// alias for the requested locale wins over the culture-invariant one ("0").
// A store whose entry key does not match the namespace is ignored. Stores the
// process may not read or write are skipped, never reported as errors.
package schemalib

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/b/mappane/pkg/paths"
)

const storeFile = "schema-library.yaml"

type entry struct {
	Key     string            `yaml:"key"`
	Aliases map[string]string `yaml:"aliases"`
}

type store struct {
	Schemas map[string]*entry `yaml:"schemas"`
}

type aliasKey struct {
	namespace string
	lcid      int
}

// Library reads and writes schema aliases. Lookups are cached until the
// next SetAlias or Reload.
type Library struct {
	machinePath string
	userPath    string
	log         *log.Logger

	mu    sync.Mutex
	cache map[aliasKey]string

	readFile  func(string) ([]byte, error)
	writeFile func(string, []byte) error
}

// New returns a library over explicit store paths. A nil logger discards.
func New(machinePath, userPath string, logger *log.Logger) *Library {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Library{
		machinePath: machinePath,
		userPath:    userPath,
		log:         logger,
		cache:       make(map[aliasKey]string),
		readFile:    os.ReadFile,
		writeFile:   writeFileAll,
	}
}

// Default returns a library over the standard machine and user stores.
func Default(logger *log.Logger) *Library {
	return New(filepath.Join(paths.MachineDir(), storeFile), paths.StatePath(storeFile), logger)
}

func writeFileAll(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// GetAlias returns the alias for namespace in locale lcid, or "" if none.
func (l *Library) GetAlias(namespace string, lcid int) string {
	key := aliasKey{namespace, lcid}
	l.mu.Lock()
	defer l.mu.Unlock()
	if alias, ok := l.cache[key]; ok {
		return alias
	}
	alias := l.lookup(namespace, lcid)
	l.cache[key] = alias
	return alias
}

// Reload drops cached lookups so the stores are read again.
func (l *Library) Reload() {
	l.mu.Lock()
	defer l.mu.Unlock()
	clear(l.cache)
}

func (l *Library) lookup(namespace string, lcid int) string {
	for _, path := range []string{l.machinePath, l.userPath} {
		s, err := l.load(path)
		if err != nil {
			if errors.Is(err, fs.ErrPermission) {
				l.log.Printf("SCHEMALIB_SKIP store=%s reason=permission err=%v", path, err)
			}
			continue
		}
		if alias := s.lookup(namespace, lcid); alias != "" {
			return alias
		}
	}
	return ""
}

// SetAlias stores alias for namespace in the user store. It reports whether
// the alias was saved.
func (l *Library) SetAlias(namespace, alias string, lcid int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	clear(l.cache)

	s, err := l.load(l.userPath)
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist):
		s = &store{}
	default:
		l.log.Printf("SCHEMALIB_SKIP store=%s op=set reason=%v", l.userPath, err)
		return false
	}

	if s.Schemas == nil {
		s.Schemas = make(map[string]*entry)
	}
	e, ok := s.Schemas[namespace]
	if !ok {
		e = &entry{Key: namespace}
		s.Schemas[namespace] = e
	}
	if e.Key != namespace {
		return false
	}
	if e.Aliases == nil {
		e.Aliases = make(map[string]string)
	}
	e.Aliases[strconv.Itoa(lcid)] = alias

	data, err := yaml.Marshal(s)
	if err != nil {
		l.log.Printf("SCHEMALIB_SKIP store=%s op=set reason=%v", l.userPath, err)
		return false
	}
	if err := l.writeFile(l.userPath, data); err != nil {
		l.log.Printf("SCHEMALIB_SKIP store=%s op=set reason=%v", l.userPath, err)
		return false
	}
	return true
}

func (l *Library) load(path string) (*store, error) {
	data, err := l.readFile(path)
	if err != nil {
		return nil, err
	}
	var s store
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &s, nil
}

func (s *store) lookup(namespace string, lcid int) string {
	e, ok := s.Schemas[namespace]
	if !ok || e == nil || e.Key != namespace {
		return ""
	}
	if alias := e.Aliases[strconv.Itoa(lcid)]; alias != "" {
		return alias
	}
	return e.Aliases["0"]
}
