package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/atframework/genconf/internal/render"
	"github.com/atframework/genconf/internal/report"
)

// Output kinds recorded in the report.
const (
	KindService = "service"
	KindGateway = "gateway"
	KindGlobal  = "global"
)

// Binding renders one template to one output file.
type Binding struct {
	// Service and Index identify the instance the output belongs to; Index is ignored
	// for global outputs.
	Service string
	Index   int
	Kind    string
	// FullName is the instance name used by aggregate fragments.
	FullName string

	// Template is the template file. A missing template turns the binding into a no-op.
	Template string
	// InstallPrefix is the output's install prefix relative to the install root.
	InstallPrefix string
	// Output is the output path relative to InstallPrefix.
	Output string
	// Aggregate optionally names the aggregate script that dispatches the output.
	Aggregate string

	Vars render.Vars
}

// OutputError reports an output file that could not be written. Unlike a template that
// fails to render, it aborts the pass.
type OutputError struct {
	Path string
	Err  error
}

func (e *OutputError) Error() string {
	return fmt.Sprintf("write output %q: %v", e.Path, e.Err)
}

func (e *OutputError) Unwrap() error { return e.Err }

// IsOutputError reports whether err carries an *OutputError.
func IsOutputError(err error) bool {
	var outErr *OutputError
	return errors.As(err, &outErr)
}

// Binder renders bindings, writes their outputs and feeds aggregate scripts.
type Binder struct {
	renderer   render.Renderer
	layout     Layout
	aggregates *Aggregates
	report     *report.Report
	logger     *slog.Logger
}

// NewBinder constructs a Binder. report may be nil.
func NewBinder(renderer render.Renderer, layout Layout, aggregates *Aggregates, rep *report.Report, logger *slog.Logger) *Binder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Binder{renderer: renderer, layout: layout, aggregates: aggregates, report: rep, logger: logger}
}

// Render renders b without writing anything and returns the content and the absolute
// output path. The template must exist.
func (bn *Binder) Render(b Binding) ([]byte, string, error) {
	outPath := filepath.Join(bn.layout.InstallRoot, b.InstallPrefix, b.Output)
	relRoot, err := filepath.Rel(filepath.Dir(outPath), bn.layout.InstallRoot)
	if err != nil {
		return nil, "", fmt.Errorf("resolve install prefix for %q: %w", outPath, err)
	}

	vars := render.Merge(b.Vars, render.Vars{"project_install_prefix": filepath.ToSlash(relRoot)})
	content, err := bn.renderer.RenderFile(b.Template, vars)
	if err != nil {
		return nil, "", err
	}
	return content, outPath, nil
}

// Bind renders b.Template and writes it to the output path. It returns the absolute
// output path, or "" when the template does not exist. Write failures are returned as
// *OutputError.
func (bn *Binder) Bind(ctx context.Context, b Binding) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	exists := false
	if b.Template != "" {
		var err error
		if exists, err = render.Exists(b.Template); err != nil {
			return "", err
		}
	}
	if !exists {
		bn.logger.Debug("template not found, skipping", "template", b.Template, "output", b.Output)
		return "", nil
	}

	content, outPath, err := bn.Render(b)
	if err != nil {
		return "", err
	}

	outDir := filepath.Dir(outPath)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", &OutputError{Path: outPath, Err: fmt.Errorf("create directory %q: %w", outDir, err)}
	}
	mode := os.FileMode(0o644)
	if strings.HasSuffix(outPath, ".sh") {
		mode = 0o755
	}
	if err := os.WriteFile(outPath, content, mode); err != nil {
		return "", &OutputError{Path: outPath, Err: err}
	}

	if bn.report != nil {
		relOut, _ := filepath.Rel(bn.layout.InstallRoot, outPath)
		bn.report.AddOutput(report.Output{
			Service: b.Service,
			Index:   b.Index,
			Kind:    b.Kind,
			Path:    filepath.ToSlash(relOut),
		}, content)
	}

	if b.Aggregate != "" {
		if agg, ok := bn.aggregates.Get(b.Aggregate); ok {
			relScript, err := filepath.Rel(filepath.Dir(agg.Output), outPath)
			if err != nil {
				return "", fmt.Errorf("resolve %q relative to %s: %w", outPath, agg.Name, err)
			}
			agg.Append(Fragment{Service: b.FullName, ScriptPath: filepath.ToSlash(relScript)})
		} else {
			bn.logger.Warn("unknown aggregate script", "aggregate", b.Aggregate, "output", outPath)
		}
	}

	bn.logger.Debug("generated", "template", b.Template, "output", outPath)
	return outPath, nil
}

// StandardBindings returns the fixed per-instance convention used when a service has
// no custom rules file.
func StandardBindings(layout Layout, service string, index int) []Binding {
	script := func(name, aggregate string) Binding {
		return Binding{
			Template:  filepath.Join(layout.ScriptTemplateDir(), name+".sh"),
			Output:    filepath.Join("bin", fmt.Sprintf("%s-%d.sh", name, index)),
			Aggregate: aggregate,
		}
	}
	return []Binding{
		{
			Template: filepath.Join(layout.EtcTemplateDir(), service+".conf"),
			Output:   filepath.Join("etc", fmt.Sprintf("%s-%d.conf", service, index)),
		},
		script("start", RestartAll),
		script("stop", StopAll),
		script("reload", ReloadAll),
		script("debug", ""),
		script("run", ""),
	}
}
