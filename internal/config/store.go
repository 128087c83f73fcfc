// Package config contains the INI-backed configuration store that drives generation
// and the resolver that applies SECTION.KEY=VALUE overrides to it.
package config

import (
	"fmt"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"
)

const (
	// ServerSectionPrefix marks sections that declare a service.
	ServerSectionPrefix = "server."
	// SystemSection holds fleet-wide settings (world/zone ids, gateways, listen defaults).
	SystemSection = "atsystem"
)

// Store is an ordered section -> key -> value mapping loaded from an INI document.
// Lookups only consider a section's own keys: dotted section names do not inherit
// keys from their parents and the DEFAULT section is never consulted.
type Store struct {
	file *ini.File
	path string
}

// loadOptions keeps values as written. "#" and ";" start a comment only after whitespace.
// Quotes and trailing backslashes stay part of the value. Indented lines continue it.
var loadOptions = ini.LoadOptions{
	SpaceBeforeInlineComment:   true,
	IgnoreContinuation:         true,
	PreserveSurroundedQuote:    true,
	AllowPythonMultilineValues: true,
}

// Load reads an INI document from disk into a Store.
func Load(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	file, err := ini.LoadSources(loadOptions, absPath)
	if err != nil {
		return nil, fmt.Errorf("read config %q: %w", absPath, err)
	}
	return &Store{file: file, path: absPath}, nil
}

// Parse builds a Store from an in-memory INI document.
func Parse(data []byte) (*Store, error) {
	file, err := ini.LoadSources(loadOptions, data)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &Store{file: file}, nil
}

// Path returns the absolute path the store was loaded from, if any.
func (s *Store) Path() string {
	return s.path
}

// Sections returns section names in document order, excluding the implicit DEFAULT section.
func (s *Store) Sections() []string {
	names := s.file.SectionStrings()
	out := make([]string, 0, len(names))
	for _, name := range names {
		if name == ini.DefaultSection {
			continue
		}
		out = append(out, name)
	}
	return out
}

// HasSection reports whether a section with the exact name exists.
func (s *Store) HasSection(section string) bool {
	if section == ini.DefaultSection {
		return false
	}
	return s.file.HasSection(section)
}

// Has reports whether section exists and declares key itself.
func (s *Store) Has(section, key string) bool {
	if !s.HasSection(section) {
		return false
	}
	return slices.Contains(s.file.Section(section).KeyStrings(), key)
}

// Get returns the value for section/key and whether it exists.
func (s *Store) Get(section, key string) (string, bool) {
	if !s.Has(section, key) {
		return "", false
	}
	return s.file.Section(section).Key(key).String(), true
}

// Option returns the value for section/key or def when it is absent.
func (s *Store) Option(section, key, def string) string {
	if v, ok := s.Get(section, key); ok {
		return v
	}
	return def
}

// IntOption returns the integer value for section/key or def when absent or malformed.
// Values may be written in decimal or with a 0x/0o/0b prefix.
func (s *Store) IntOption(section, key string, def int64) int64 {
	v, ok := s.Get(section, key)
	if !ok {
		return def
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 0, 64)
	if err != nil {
		return def
	}
	return n
}

// Set assigns value to section/key, creating the section and key when needed.
func (s *Store) Set(section, key, value string) {
	sec := s.file.Section(section)
	if slices.Contains(sec.KeyStrings(), key) {
		sec.Key(key).SetValue(value)
		return
	}
	// NewKey only fails on empty names.
	_, _ = sec.NewKey(key, value)
}

// Items returns the section's own key/value pairs. Keys are returned in document order
// through Keys; the map form is convenient for templates.
func (s *Store) Items(section string) map[string]string {
	out := make(map[string]string)
	if !s.HasSection(section) {
		return out
	}
	sec := s.file.Section(section)
	for _, key := range sec.KeyStrings() {
		out[key] = sec.Key(key).String()
	}
	return out
}

// Keys returns the section's own key names in document order.
func (s *Store) Keys(section string) []string {
	if !s.HasSection(section) {
		return nil
	}
	return s.file.Section(section).KeyStrings()
}

// Services returns the names of all declared services (sections "server.<name>") in document order.
func (s *Store) Services() []string {
	var out []string
	for _, name := range s.Sections() {
		svc, ok := strings.CutPrefix(name, ServerSectionPrefix)
		if !ok || svc == "" {
			continue
		}
		out = append(out, svc)
	}
	return out
}

// ServiceSection returns the section name declaring the given service.
func ServiceSection(service string) string {
	return ServerSectionPrefix + service
}
