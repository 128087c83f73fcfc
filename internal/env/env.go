// Package env contains helpers for loading and merging environment variables and
// template variable files from multiple sources.
package env

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Vars holds environment variables visible to templates through envOr.
type Vars map[string]string

// FromOS captures the process environment. Entries without a name, such as the
// per-drive "=C:" entries on Windows, are dropped.
func FromOS() Vars {
	environ := os.Environ()
	out := make(Vars, len(environ))
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			continue
		}
		out[name] = value
	}
	return out
}

// Merge layers sets in order; later sets win.
func Merge(sets ...Vars) Vars {
	out := make(Vars)
	for _, s := range sets {
		maps.Copy(out, s)
	}
	return out
}

// LoadEnvFile reads one dotenv file.
func LoadEnvFile(path string) (Vars, error) {
	envMap, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("load env file %q: %w", path, err)
	}
	return Vars(envMap), nil
}

// LoadEnvFiles reads dotenv files in order, later files overriding earlier keys.
// Relative paths are taken from workDir; blank entries are ignored.
func LoadEnvFiles(workDir string, files []string) (Vars, error) {
	out := make(Vars)
	for _, name := range files {
		path, ok := resolve(workDir, name)
		if !ok {
			continue
		}
		vars, err := LoadEnvFile(path)
		if err != nil {
			return nil, err
		}
		maps.Copy(out, vars)
	}
	return out, nil
}

// resolve anchors a relative name at workDir. It reports false for a blank name.
func resolve(workDir, name string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", false
	}
	if filepath.IsAbs(name) || workDir == "" {
		return name, true
	}
	return filepath.Join(workDir, name), true
}

// LoadVarFile loads template variables from path. The format is chosen by extension:
// .yaml/.yml as YAML, .json/.jsonc as JSON with comments and trailing commas allowed,
// anything else as key=value or key: value lines.
func LoadVarFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	out := make(map[string]any)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("parse yaml var-file %q: %w", path, err)
		}
	case ".json", ".jsonc":
		if err := json.Unmarshal(jsonc.ToJSON(data), &out); err != nil {
			return nil, fmt.Errorf("parse json var-file %q: %w", path, err)
		}
	default:
		lines, err := parseVarLines(data)
		if err != nil {
			return nil, fmt.Errorf("parse var-file %q: %w", path, err)
		}
		for k, v := range lines {
			out[k] = v
		}
	}
	return out, nil
}

// LoadVarFiles loads and merges var-files in order, later files overriding earlier keys.
// Relative paths are taken from workDir.
func LoadVarFiles(workDir string, files []string) (map[string]any, error) {
	out := make(map[string]any)
	for _, name := range files {
		path, ok := resolve(workDir, name)
		if !ok {
			continue
		}
		vars, err := LoadVarFile(path)
		if err != nil {
			return nil, fmt.Errorf("load var-file %q: %w", path, err)
		}
		maps.Copy(out, vars)
	}
	return out, nil
}

// parseVarLines reads key=value or key: value lines, skipping blanks and # comments.
func parseVarLines(data []byte) (Vars, error) {
	result := make(Vars)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		sep := ":"
		if strings.Contains(line, "=") {
			sep = "="
		}
		parts := strings.SplitN(line, sep, 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		value = strings.TrimPrefix(value, "\"")
		value = strings.TrimSuffix(value, "\"")
		value = strings.TrimPrefix(value, "'")
		value = strings.TrimSuffix(value, "'")
		if key != "" {
			result[key] = value
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
