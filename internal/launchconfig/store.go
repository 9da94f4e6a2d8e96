package launchconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
	"github.com/tidwall/gjson"
	"github.com/tidwall/jsonc"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

const (
	// LaunchJSONFileName is the standard name for VS Code launch configuration file.
	LaunchJSONFileName = "launch.json"

	// SettingsLaunchKey is the settings key holding the launch document.
	SettingsLaunchKey = "launch"

	// LockFileSuffix is appended to a store's file name to name its lock file.
	LockFileSuffix = ".lock"
)

// Store persists a launch document. Load returns a fresh empty document when nothing is
// stored yet or the stored content is malformed.
type Store interface {
	// Key identifies the underlying resource.
	Key() string

	// Lock blocks until the caller holds the document exclusively, across processes
	// for file-backed stores. The returned function releases it.
	Lock() (unlock func(), err error)

	Load() (*LaunchJSON, error)
	Save(lj *LaunchJSON) error
}

// Update upserts cfg into the document held by store. Load, upsert and save run
// under the store's lock.
func Update(store Store, cfg LaunchConfig) (*LaunchJSON, error) {
	unlock, err := store.Lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	lj, err := store.Load()
	if err != nil {
		return nil, err
	}
	lj.Upsert(cfg)
	if err := store.Save(lj); err != nil {
		return nil, err
	}
	return lj, nil
}

// lockFile takes an advisory lock on path, creating it and its directory if needed.
// Every call uses its own handle, so callers in one process exclude each other too.
func lockFile(path string) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	fl := flock.New(path)
	if err := fl.Lock(); err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", path, err)
	}
	return func() { _ = fl.Unlock() }, nil
}

// DirStore keeps the document in <Dir>/launch.json.
type DirStore struct {
	Dir    string
	Logger *log.Logger
}

// NewDirStore creates a store for the launch.json in dir.
func NewDirStore(dir string, logger *log.Logger) *DirStore {
	return &DirStore{Dir: dir, Logger: logger}
}

// Path returns the launch.json path.
func (s *DirStore) Path() string {
	return filepath.Join(s.Dir, LaunchJSONFileName)
}

func (s *DirStore) Key() string {
	if abs, err := filepath.Abs(s.Path()); err == nil {
		return abs
	}
	return s.Path()
}

// LockPath returns the path of the lock file guarding launch.json.
func (s *DirStore) LockPath() string {
	return s.Path() + LockFileSuffix
}

func (s *DirStore) Lock() (func(), error) {
	return lockFile(s.LockPath())
}

func (s *DirStore) Load() (*LaunchJSON, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NewLaunchJSON(), nil
		}
		return nil, fmt.Errorf("failed to read launch.json: %w", err)
	}

	lj, ok := ParseLaunchJSON(data)
	if !ok {
		loggerOrDefault(s.Logger).Printf("Replacing malformed %s with a new version %s document", s.Path(), Version)
		return NewLaunchJSON(), nil
	}
	if lj.Skipped > 0 {
		loggerOrDefault(s.Logger).Printf("Skipping %d configurations in %s that are not objects", lj.Skipped, s.Path())
	}
	return lj, nil
}

func (s *DirStore) Save(lj *LaunchJSON) error {
	data, err := lj.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode launch.json: %w", err)
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", s.Dir, err)
	}
	if err := writeFile(s.Path(), data); err != nil {
		return fmt.Errorf("failed to write launch.json: %w", err)
	}
	return nil
}

// SettingsStore keeps the document under the "launch" key of a JSON settings file,
// leaving every other setting untouched. Comments in the settings file are tolerated
// on read but not preserved on write.
type SettingsStore struct {
	Path   string
	Logger *log.Logger
}

// NewSettingsStore creates a store backed by the settings file at path.
func NewSettingsStore(path string, logger *log.Logger) *SettingsStore {
	return &SettingsStore{Path: path, Logger: logger}
}

func (s *SettingsStore) Key() string {
	if abs, err := filepath.Abs(s.Path); err == nil {
		return "settings:" + abs
	}
	return "settings:" + s.Path
}

func (s *SettingsStore) Lock() (func(), error) {
	return lockFile(s.Path + LockFileSuffix)
}

func (s *SettingsStore) Load() (*LaunchJSON, error) {
	settings, err := s.read()
	if err != nil {
		return nil, err
	}

	value := gjson.GetBytes(settings, SettingsLaunchKey)
	if !value.Exists() {
		return NewLaunchJSON(), nil
	}
	lj, ok := ParseLaunchJSON([]byte(value.Raw))
	if !ok {
		loggerOrDefault(s.Logger).Printf("Replacing malformed %q setting in %s", SettingsLaunchKey, s.Path)
		return NewLaunchJSON(), nil
	}
	if lj.Skipped > 0 {
		loggerOrDefault(s.Logger).Printf("Skipping %d %q configurations in %s that are not objects", lj.Skipped, SettingsLaunchKey, s.Path)
	}
	return lj, nil
}

func (s *SettingsStore) Save(lj *LaunchJSON) error {
	settings, err := s.read()
	if err != nil {
		return err
	}

	value, err := marshal(lj, "")
	if err != nil {
		return fmt.Errorf("failed to encode launch settings: %w", err)
	}
	updated, err := sjson.SetRawBytes(settings, SettingsLaunchKey, value)
	if err != nil {
		return fmt.Errorf("failed to update launch settings: %w", err)
	}
	updated = pretty.PrettyOptions(updated, &pretty.Options{Width: 80, Indent: "  "})

	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(s.Path), err)
	}
	if err := writeFile(s.Path, updated); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}

// read returns the settings as plain JSON. A missing or malformed file reads as {}.
func (s *SettingsStore) read() ([]byte, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []byte("{}"), nil
		}
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	data = jsonc.ToJSON(data)
	if !gjson.ValidBytes(data) || !gjson.ParseBytes(data).IsObject() {
		loggerOrDefault(s.Logger).Printf("Ignoring malformed settings file %s", s.Path)
		return []byte("{}"), nil
	}
	return data, nil
}

// MemoryStore keeps the document for the lifetime of the process. It stands in for
// host-level settings when there is no settings file.
type MemoryStore struct {
	update sync.Mutex
	mu     sync.Mutex
	lj     *LaunchJSON
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Key() string {
	return fmt.Sprintf("memory:%p", s)
}

func (s *MemoryStore) Lock() (func(), error) {
	s.update.Lock()
	return s.update.Unlock, nil
}

func (s *MemoryStore) Load() (*LaunchJSON, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lj == nil {
		return NewLaunchJSON(), nil
	}
	return s.lj.Clone(), nil
}

func (s *MemoryStore) Save(lj *LaunchJSON) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lj = lj.Clone()
	return nil
}
