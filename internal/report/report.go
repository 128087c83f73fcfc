// Package report records what a generation pass produced and writes it as YAML.
package report

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zeebo/blake3"
	"gopkg.in/yaml.v3"
)

// Output describes one generated file.
type Output struct {
	Service string `yaml:"service"`
	Index   int    `yaml:"index"`
	// Kind is "service", "gateway" or "global".
	Kind string `yaml:"kind"`
	// Path is relative to the install root.
	Path   string `yaml:"path"`
	Digest string `yaml:"blake3"`
}

// Aggregate describes one finalized fleet-control script.
type Aggregate struct {
	Name      string `yaml:"name"`
	Fragments int    `yaml:"fragments"`
}

// Report is the summary of one generation pass. Slices keep generation order.
type Report struct {
	Outputs          []Output    `yaml:"outputs"`
	Aggregates       []Aggregate `yaml:"aggregates"`
	InvalidOverrides []string    `yaml:"invalid_overrides,omitempty"`
	InvalidRules     []string    `yaml:"invalid_rules,omitempty"`
	RenderFailures   []string    `yaml:"render_failures,omitempty"`
}

// AddOutput records a generated file with the digest of its content.
func (r *Report) AddOutput(out Output, content []byte) {
	out.Digest = Digest(content)
	r.Outputs = append(r.Outputs, out)
}

// Problems returns the number of recoverable problems recorded.
func (r *Report) Problems() int {
	return len(r.InvalidOverrides) + len(r.InvalidRules) + len(r.RenderFailures)
}

// Digest returns the hex BLAKE3-256 digest of content.
func Digest(content []byte) string {
	sum := blake3.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Marshal encodes the report as YAML.
func (r *Report) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	return data, nil
}

// WriteFile writes the report as YAML to path, creating parent directories.
func (r *Report) WriteFile(path string) error {
	data, err := r.Marshal()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report directory for %q: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report %q: %w", path, err)
	}
	return nil
}
