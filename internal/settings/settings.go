// Package settings provides the reference Settings implementation: a flat
// string-keyed map loaded from and saved to YAML, backing the
// `--output-format-option key=value` CLI surface (spec §6) and the
// notifier.Settings trait each codec reads through (spec's REDESIGN FLAGS:
// "the core defines only a Settings trait... all UI widget code lives in
// the collaborator"). YAML rather than a bespoke format matches the
// teacher's own config loading, which leans on structured text over
// hand-rolled key=value parsing.
package settings

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Store is a flat key/value settings map satisfying notifier.Settings.
// Values are always stored as strings; typed accessors parse on read so a
// malformed or hand-edited value degrades to the caller's default instead
// of panicking.
type Store struct {
	Values map[string]string `yaml:"values"`
}

// New returns an empty store.
func New() *Store { return &Store{Values: map[string]string{}} }

// Load reads a YAML settings file. A missing file returns an empty store,
// not an error — a fresh run with no prior `--output-format-option`
// overrides is the common case, not a failure.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, err
	}
	s := New()
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, err
	}
	if s.Values == nil {
		s.Values = map[string]string{}
	}
	return s, nil
}

// Save writes the store to path as YAML.
func (s *Store) Save(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Set stores a raw key=value pair, the shape `--output-format-option`
// parses into before handing it to the owning codec.
func (s *Store) Set(key, value string) {
	if s.Values == nil {
		s.Values = map[string]string{}
	}
	s.Values[key] = value
}

func (s *Store) String(key, def string) string {
	if v, ok := s.Values[key]; ok {
		return v
	}
	return def
}

func (s *Store) Bool(key string, def bool) bool {
	v, ok := s.Values[key]
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func (s *Store) Int(key string, def int) int {
	v, ok := s.Values[key]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func (s *Store) Float(key string, def float64) float64 {
	v, ok := s.Values[key]
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}
