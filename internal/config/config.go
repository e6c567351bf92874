// Package config resolves the appliance settings.
//
// Values come from a key=value file, then CHATTER_* environment variables,
// then built-in defaults. Every value is checked before it is stored or
// used, so a Config returned by Load or Resolve is always usable.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

// dirName is the directory holding the config file.
const dirName = "go-chatter"

// Store reads and writes one config file.
type Store struct {
	path string
}

// NewStore returns a Store over the file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// DefaultStore returns the Store of the user config file:
// $XDG_CONFIG_HOME/go-chatter/config, else ~/.config/go-chatter/config.
func DefaultStore() (*Store, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cannot determine home directory: %w", err)
		}
		base = filepath.Join(home, ".config")
	}
	return NewStore(filepath.Join(base, dirName, "config")), nil
}

// Path returns the file location.
func (s *Store) Path() string { return s.path }

// Values returns every key=value pair of the file. A missing file holds
// no values.
//
// Format: one key=value per line, # comments and blank lines ignored.
// A value may be double-quoted to keep surrounding spaces or a '#'.
func (s *Store) Values() (map[string]string, error) {
	f, err := os.Open(s.path) // #nosec G304 -- path is the user config file
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	defer func() { _ = f.Close() }()

	values := make(map[string]string)
	sc := bufio.NewScanner(f)
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("%s: invalid syntax at line %d: %q", s.path, n, line)
		}
		value = strings.TrimSpace(value)
		if strings.HasPrefix(value, `"`) {
			if value, err = strconv.Unquote(value); err != nil {
				return nil, fmt.Errorf("%s: bad quoting at line %d: %w", s.path, n, err)
			}
		}
		values[strings.TrimSpace(key)] = value
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return values, nil
}

// Set validates value and stores it under key, keeping the other keys.
// Comments are not preserved.
func (s *Store) Set(key, value string) error {
	if err := Check(key, value); err != nil {
		return err
	}
	values, err := s.Values()
	if err != nil {
		return err
	}
	values[key] = value
	return s.write(values)
}

// Unset removes key from the file so the env or default applies again.
func (s *Store) Unset(key string) error {
	if _, ok := lookup(key); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	values, err := s.Values()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return s.write(values)
}

// write replaces the file with values sorted by key. The new content is
// renamed over the old file, so readers never see a partial file.
func (s *Store) write(values map[string]string) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil { // #nosec G301 -- user config dir
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".config-*")
	if err != nil {
		return fmt.Errorf("cannot write config file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	w := bufio.NewWriter(tmp)
	for _, key := range slices.Sorted(maps.Keys(values)) {
		fmt.Fprintf(w, "%s=%s\n", key, quote(values[key]))
	}
	if err := w.Flush(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil { // #nosec G302 -- config holds no secrets
		return fmt.Errorf("failed to write config: %w", err)
	}
	return os.Rename(tmp.Name(), s.path)
}

// quote double-quotes values that would not survive a plain read back.
func quote(v string) string {
	if v != strings.TrimSpace(v) || strings.ContainsAny(v, "#\"\n") {
		return strconv.Quote(v)
	}
	return v
}

// ---------------------------------------------------------------------------
// Package-level access to the user config file
// ---------------------------------------------------------------------------

// Path returns the user config file path.
func Path() (string, error) {
	s, err := DefaultStore()
	if err != nil {
		return "", err
	}
	return s.Path(), nil
}

// Load reads the user config file and the environment and returns the
// validated configuration. A missing file is not an error.
func Load() (Config, error) {
	file, err := List()
	if err != nil {
		return Config{}, err
	}
	return Resolve(file, os.Getenv)
}

// Save validates and writes a single key=value to the user config file.
func Save(key, value string) error {
	s, err := DefaultStore()
	if err != nil {
		return err
	}
	return s.Set(key, value)
}

// Unset removes a key from the user config file.
func Unset(key string) error {
	s, err := DefaultStore()
	if err != nil {
		return err
	}
	return s.Unset(key)
}

// Get reads a single value from the user config file.
// Returns empty string if the key doesn't exist.
func Get(key string) (string, error) {
	data, err := List()
	if err != nil {
		return "", err
	}
	return data[key], nil
}

// List returns all values of the user config file.
func List() (map[string]string, error) {
	s, err := DefaultStore()
	if err != nil {
		return nil, err
	}
	return s.Values()
}

// ExpandPath expands a leading ~/ to the user's home directory.
func ExpandPath(p string) string {
	rest, ok := strings.CutPrefix(p, "~/")
	if !ok {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, rest)
}
