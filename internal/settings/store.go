package settings

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	yamlparser "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"gopkg.in/yaml.v3"
)

// Store loads and persists Settings. Every mutation goes through Update so a
// user action is applied and written out atomically; no partial-write state
// is ever observable on disk.
type Store struct {
	mu     sync.Mutex
	path   string
	cur    Settings
	logger *slog.Logger
}

// NewStore creates a store backed by the given settings file. The file does
// not need to exist yet.
func NewStore(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{path: path, cur: DefaultSettings(), logger: logger}
}

// Load reads the settings file. A missing file yields the defaults.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		s.cur = DefaultSettings()
		return nil
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(s.path), yamlparser.Parser()); err != nil {
		return fmt.Errorf("read settings file %s: %w", s.path, err)
	}

	cfg := DefaultSettings()
	if err := k.Unmarshal("", &cfg); err != nil {
		return fmt.Errorf("parse settings file %s: %w", s.path, err)
	}
	s.cur = cfg
	s.logger.Debug("settings loaded", "path", s.path)
	return nil
}

// Get returns a copy of the current settings.
func (s *Store) Get() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copySettings(s.cur)
}

// Update applies fn to the current settings and persists the result. If the
// write fails, the in-memory settings keep the previous value.
func (s *Store) Update(fn func(*Settings)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := copySettings(s.cur)
	fn(&next)
	if err := s.write(next); err != nil {
		return err
	}
	s.cur = next
	return nil
}

// SetSelectedModel persists the reconciled chat-model selection. Implements
// the reconciler's preference store.
func (s *Store) SetSelectedModel(id *string) error {
	return s.Update(func(cfg *Settings) {
		if id == nil {
			cfg.SelectedChatModelID = nil
			return
		}
		v := *id
		cfg.SelectedChatModelID = &v
	})
}

// write marshals and atomically replaces the settings file: write to a temp
// file in the same directory, then rename over the target.
func (s *Store) write(cfg Settings) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".settings-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp settings file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close settings file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace settings file: %w", err)
	}
	return nil
}

func copySettings(cfg Settings) Settings {
	out := cfg
	out.SyncFolders = append([]string(nil), cfg.SyncFolders...)
	out.ExcludeFolders = append([]string(nil), cfg.ExcludeFolders...)
	if cfg.SelectedChatModelID != nil {
		v := *cfg.SelectedChatModelID
		out.SelectedChatModelID = &v
	}
	return out
}
