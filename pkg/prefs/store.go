// Package prefs persists the application preferences blob.
//
// The preferences live in a single pretty-printed JSON file inside the
// per-user config directory:
//
//	<os.UserConfigDir()>/<appID>/config.json
//	{
//	  "preferences": { ... }
//	}
//
// The store never interprets the preferences value. A missing file is
// replaced by a default record; a corrupted file (including one that is not
// an object or lacks the preferences field) is never overwritten so it can
// be inspected by hand.
//
// Store performs no locking. A SetPreferences call is a load followed by a
// save; overlapping calls against the same file lose the earlier write.
package prefs

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
)

// DefaultFileName is the config file name inside the config directory.
const DefaultFileName = "config.json"

// Config is the persisted record.
type Config struct {
	Preferences any `json:"preferences"`
}

// DefaultConfig returns the initial record: an empty preferences object.
func DefaultConfig() *Config {
	return &Config{Preferences: map[string]any{}}
}

// Repository is the get/set surface used by the command boundary.
type Repository interface {
	GetPreferences() (any, error)
	SetPreferences(v any) error
}

// DirFunc resolves the config directory (before creation).
type DirFunc func() (string, error)

// Store is the file-backed Repository.
type Store struct {
	dirFunc  DirFunc
	fileName string
	logger   *slog.Logger

	// overridable in tests
	readFile func(string) ([]byte, error)
}

var _ Repository = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithDirFunc replaces the platform config directory resolver.
func WithDirFunc(fn DirFunc) Option {
	return func(s *Store) { s.dirFunc = fn }
}

// WithDir pins the config directory to a fixed path.
func WithDir(dir string) Option {
	return WithDirFunc(func() (string, error) { return dir, nil })
}

// WithFileName overrides DefaultFileName.
func WithFileName(name string) Option {
	return func(s *Store) {
		if name != "" {
			s.fileName = name
		}
	}
}

// WithLogger sets the logger used for repair-policy messages.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewStore creates a store rooted at <os.UserConfigDir()>/<appID>.
func NewStore(appID string, opts ...Option) *Store {
	s := &Store{
		dirFunc:  UserConfigDir(appID),
		fileName: DefaultFileName,
		logger:   slog.Default(),
		readFile: os.ReadFile,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// UserConfigDir returns a DirFunc for the platform per-user config directory.
func UserConfigDir(appID string) DirFunc {
	return func() (string, error) {
		base, err := os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("could not get app config directory: %w", err)
		}
		if base == "" {
			return "", errors.New("could not get app config directory: empty path")
		}
		return filepath.Join(base, appID), nil
	}
}

// Dir resolves the config directory, creating it if absent. It runs on every
// call so a directory removed at runtime is recreated.
func (s *Store) Dir() (string, error) {
	dir, err := s.dirFunc()
	if err != nil {
		return "", newError(KindDirectory, "", err)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", newError(KindDirectory, dir, err)
	}
	return dir, nil
}

// Path returns the config file path.
func (s *Store) Path() (string, error) {
	dir, err := s.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, s.fileName), nil
}

// Load reads the config file, writing and returning DefaultConfig when the
// file does not exist yet.
func (s *Store) Load() (*Config, error) {
	path, err := s.Path()
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		cfg := DefaultConfig()
		if err := s.save(path, cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	// #nosec G304 path is confined to the resolved config directory
	data, err := s.readFile(path)
	if err != nil {
		return nil, newError(KindRead, path, err)
	}
	cfg, err := decodeConfig(data)
	if err != nil {
		return nil, newError(KindParse, path, err)
	}
	return cfg, nil
}

// Save writes cfg over the config file.
func (s *Store) Save(cfg *Config) error {
	path, err := s.Path()
	if err != nil {
		return err
	}
	return s.save(path, cfg)
}

func (s *Store) save(path string, cfg *Config) error {
	if cfg == nil {
		return newError(KindSerialize, "", errors.New("nil config"))
	}
	data, err := encodeConfig(cfg)
	if err != nil {
		return newError(KindSerialize, "", err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return newError(KindWrite, path, err)
	}
	return nil
}

// GetPreferences returns the stored preferences value.
func (s *Store) GetPreferences() (any, error) {
	cfg, err := s.Load()
	if err != nil {
		return nil, err
	}
	return cfg.Preferences, nil
}

// SetPreferences replaces the stored preferences wholesale.
//
// A read failure is treated as "no existing config" and a fresh record is
// written. Any other failure (a corrupted file in particular) aborts the
// save and leaves the file untouched.
func (s *Store) SetPreferences(v any) error {
	cfg, err := s.Load()
	switch KindOf(err) {
	case 0:
		cfg.Preferences = v
		return s.Save(cfg)
	case KindRead:
		s.logger.Info("No existing config found, creating default", "error", err)
		return s.Save(&Config{Preferences: v})
	default:
		s.logger.Error("Corrupted config - aborting save to prevent data loss", "error", err)
		return err
	}
}

// Initialize runs the startup load-or-create sequence. Failures are logged,
// never returned: the application starts either way.
func (s *Store) Initialize() {
	_, err := s.Load()
	switch {
	case err == nil:
		s.logger.Info("Loaded existing configuration")
	case IsKind(err, KindRead):
		s.logger.Info("Creating default configuration")
		if err := s.Save(DefaultConfig()); err != nil {
			s.logger.Error("Failed to save default config", "error", err)
		}
	default:
		s.logger.Error("Error loading configuration", "error", err)
	}
}

func encodeConfig(cfg *Config) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(cfg); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// decodeConfig keeps numbers as json.Number so values round-trip exactly.
// The top level must be an object carrying a preferences field; an explicit
// null preferences value is kept.
func decodeConfig(data []byte) (*Config, error) {
	var fields map[string]json.RawMessage
	if err := decodeStrict(data, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, errors.New("expected a JSON object, got null")
	}
	raw, ok := fields["preferences"]
	if !ok {
		return nil, errors.New("missing field \"preferences\"")
	}
	var cfg Config
	if err := decodeStrict(raw, &cfg.Preferences); err != nil {
		return nil, fmt.Errorf("preferences: %w", err)
	}
	return &cfg, nil
}

func decodeStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("unexpected data after top-level value")
	}
	return nil
}
