// Package render is the template collaborator used by generation: it turns a template
// file or string plus a variable map into text.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/atframework/genconf/internal/config"
	"github.com/atframework/genconf/internal/env"
	"github.com/atframework/genconf/internal/ident"
)

// Vars is the data exposed to templates.
type Vars map[string]any

// Merge returns a new Vars holding base overlaid with every set in order.
func Merge(base Vars, sets ...Vars) Vars {
	out := make(Vars, len(base))
	for k, v := range base {
		out[k] = v
	}
	for _, s := range sets {
		for k, v := range s {
			out[k] = v
		}
	}
	return out
}

// Renderer renders templates. Implementations must be deterministic for identical input.
type Renderer interface {
	// RenderFile renders the template stored at path.
	RenderFile(path string, vars Vars) ([]byte, error)
	// RenderString renders an in-memory template; name is used in error messages.
	RenderString(name, text string, vars Vars) ([]byte, error)
	// Lookup resolves a template name against the renderer's search directories.
	Lookup(name string) (string, bool)
}

// TextRenderer renders Go text/template templates with the generator's helper functions.
type TextRenderer struct {
	store    *config.Store
	envMap   env.Vars
	searchIn []string
}

// NewTextRenderer constructs a TextRenderer. store backs the "option" helper, envMap backs
// "envOr" and searchDirs are consulted in order by Lookup.
func NewTextRenderer(store *config.Store, envMap env.Vars, searchDirs ...string) *TextRenderer {
	return &TextRenderer{store: store, envMap: envMap, searchIn: searchDirs}
}

// RenderFile renders the template stored at path.
func (r *TextRenderer) RenderFile(path string, vars Vars) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template %q: %w", path, err)
	}
	return r.RenderString(path, string(raw), vars)
}

// RenderString renders text as a template named name.
func (r *TextRenderer) RenderString(name, text string, vars Vars) ([]byte, error) {
	tmpl, err := template.New(filepath.Base(name)).Funcs(r.funcMap()).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse template %q: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return nil, fmt.Errorf("execute template %q: %w", name, err)
	}
	return buf.Bytes(), nil
}

// Lookup returns the first regular file named name under the search directories.
func (r *TextRenderer) Lookup(name string) (string, bool) {
	if filepath.IsAbs(name) {
		return name, isFile(name)
	}
	for _, dir := range r.searchIn {
		candidate := filepath.Join(dir, name)
		if isFile(candidate) {
			return candidate, true
		}
	}
	return "", false
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

// Exists reports whether a template file exists at path. A missing file is not an error.
func Exists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat template %q: %w", path, err)
	}
	return info.Mode().IsRegular(), nil
}

// funcMap constructs the helper functions available in every template.
func (r *TextRenderer) funcMap() template.FuncMap {
	return template.FuncMap{
		"default":    funcDef,
		"toLower":    strings.ToLower,
		"toUpper":    strings.ToUpper,
		"slug":       funcSlug,
		"envOr":      funcEnvOr(r.envMap),
		"ternary":    funcTernary,
		"join":       funcJoin,
		"trimPrefix": strings.TrimPrefix,
		"option":     r.funcOption,
		"serverID":   funcServerID,
		"busID":      ident.FormatProcID,
		"hex":        funcHex,
	}
}

// funcDef returns def when value is empty or whitespace, otherwise value.
func funcDef(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return value
}

// funcSlug normalizes a value into a lower-case dash-separated slug.
func funcSlug(value string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	v = strings.ReplaceAll(v, " ", "-")
	v = strings.ReplaceAll(v, "_", "-")
	return v
}

// funcEnvOr returns a function that looks up a key in envMap and falls back to def.
func funcEnvOr(envMap env.Vars) func(key, def string) string {
	return func(key, def string) string {
		if v, ok := envMap[key]; ok && v != "" {
			return v
		}
		return def
	}
}

// funcTernary returns a when cond is true, otherwise b.
func funcTernary(cond bool, a, b any) any {
	if cond {
		return a
	}
	return b
}

// funcJoin joins a slice of strings with the given separator.
func funcJoin(values []string, sep string) string {
	return strings.Join(values, sep)
}

// funcOption reads section/key from the configuration store, falling back to def.
func (r *TextRenderer) funcOption(section, key, def string) string {
	if r.store == nil {
		return def
	}
	return r.store.Option(section, key, def)
}

func funcServerID(groupID int, ipv4 string, port int) (uint64, error) {
	return ident.ServerID(uint64(groupID), ipv4, uint64(port))
}

func funcHex(value any) string {
	return fmt.Sprintf("0x%x", value)
}
