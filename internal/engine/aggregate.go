package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

const (
	// RestartAll is the fleet start script; instances are started in generation order.
	RestartAll = "restart_all.sh"
	// ReloadAll is the fleet reload script.
	ReloadAll = "reload_all.sh"
	// StopAll is the fleet stop script; instances are stopped in reverse generation order.
	StopAll = "stop_all.sh"
)

// aggregateMode is the permission of finalized aggregate scripts: rwx for owner and
// group, r-x for others.
const aggregateMode os.FileMode = 0o775

// Fragment dispatches one instance script from an aggregate script.
type Fragment struct {
	// Service is the instance's full name, used to filter by service list.
	Service string
	// ScriptPath is the instance script relative to the aggregate script's directory.
	ScriptPath string
}

// Render returns the shell snippet for the fragment. Values are single-quoted so that
// names and paths never reach the shell unescaped.
func (f Fragment) Render() string {
	var b strings.Builder
	b.WriteString("\n# ==================== ")
	b.WriteString(f.Service)
	b.WriteString(" ====================\n")
	fmt.Fprintf(&b, "if [ $# -eq 0 ] || [ \"0\" == \"$(is_in_server_list %s $*)\" ]; then\n", shellQuote(f.Service))
	fmt.Fprintf(&b, "    bash %s\n", shellQuote(f.ScriptPath))
	b.WriteString("fi\n")
	return b.String()
}

// shellQuote wraps s in single quotes, escaping embedded single quotes.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// AggregateScript collects fragments for one fleet-control script.
type AggregateScript struct {
	// Name is the script's file name, e.g. "stop_all.sh".
	Name string
	// Header is the static template copied to Output before fragments are appended.
	Header string
	// Output is the path of the generated script.
	Output string
	// Reverse writes fragments in the opposite order to which they were appended.
	Reverse bool

	fragments []Fragment
}

// Append adds a fragment in generation order.
func (a *AggregateScript) Append(f Fragment) {
	a.fragments = append(a.fragments, f)
}

// Fragments returns the fragments in write order.
func (a *AggregateScript) Fragments() []Fragment {
	out := slices.Clone(a.fragments)
	if a.Reverse {
		slices.Reverse(out)
	}
	return out
}

// Body renders the fragments in write order, joined by newlines.
func (a *AggregateScript) Body() string {
	fragments := a.Fragments()
	parts := make([]string, len(fragments))
	for i, f := range fragments {
		parts[i] = f.Render()
	}
	return strings.Join(parts, "\n")
}

// Prepare copies the static header to Output and marks it executable, discarding any
// previous content so every run starts clean.
func (a *AggregateScript) Prepare() error {
	header, err := os.ReadFile(a.Header)
	if err != nil {
		return fmt.Errorf("read header of %s: %w", a.Name, err)
	}
	if err := os.MkdirAll(filepath.Dir(a.Output), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", a.Name, err)
	}
	if err := os.WriteFile(a.Output, header, aggregateMode); err != nil {
		return fmt.Errorf("write header of %s: %w", a.Name, err)
	}
	// WriteFile keeps the mode of an existing file and is subject to umask.
	if err := os.Chmod(a.Output, aggregateMode); err != nil {
		return fmt.Errorf("chmod %s: %w", a.Output, err)
	}
	return nil
}

// Finalize appends the rendered fragments after the header already present in Output.
func (a *AggregateScript) Finalize() error {
	f, err := os.OpenFile(a.Output, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("open %s: %w", a.Output, err)
	}
	if _, err := f.WriteString(a.Body()); err != nil {
		_ = f.Close()
		return fmt.Errorf("append to %s: %w", a.Output, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", a.Output, err)
	}
	return nil
}

// Aggregates is the ordered set of fleet-control scripts of one generation pass.
type Aggregates struct {
	scripts []*AggregateScript
}

// NewAggregates returns the restart, reload and stop scripts laid out under layout.
func NewAggregates(layout Layout) *Aggregates {
	newScript := func(name string, reverse bool) *AggregateScript {
		return &AggregateScript{
			Name:    name,
			Header:  filepath.Join(layout.ScriptTemplateDir(), strings.TrimSuffix(name, ".sh")+".template.sh"),
			Output:  filepath.Join(layout.ScriptDir, name),
			Reverse: reverse,
		}
	}
	return &Aggregates{scripts: []*AggregateScript{
		newScript(RestartAll, false),
		newScript(ReloadAll, false),
		newScript(StopAll, true),
	}}
}

// Get returns the script named name.
func (s *Aggregates) Get(name string) (*AggregateScript, bool) {
	for _, a := range s.scripts {
		if a.Name == name {
			return a, true
		}
	}
	return nil, false
}

// All returns the scripts in their fixed order.
func (s *Aggregates) All() []*AggregateScript {
	return s.scripts
}

// Prepare copies every header.
func (s *Aggregates) Prepare() error {
	for _, a := range s.scripts {
		if err := a.Prepare(); err != nil {
			return err
		}
	}
	return nil
}

// Finalize appends fragments to every script.
func (s *Aggregates) Finalize() error {
	for _, a := range s.scripts {
		if err := a.Finalize(); err != nil {
			return err
		}
	}
	return nil
}
