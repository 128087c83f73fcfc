// Package engine drives a generation pass: it expands services into instances, binds
// templates to output files and assembles the fleet-control scripts.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/atframework/genconf/internal/config"
	"github.com/atframework/genconf/internal/env"
	"github.com/atframework/genconf/internal/instance"
	"github.com/atframework/genconf/internal/logging"
	"github.com/atframework/genconf/internal/render"
	"github.com/atframework/genconf/internal/report"
	"github.com/atframework/genconf/internal/rules"
)

// DefaultGateway is the gateway service kind used when [atsystem] gateways is unset.
const DefaultGateway = "atgateway"

// Options controls one generation pass.
type Options struct {
	Layout Layout
	// IDOffset is the fleet-wide first instance index.
	IDOffset int
	// ResetNumber, when set, replaces the instance count of every service.
	ResetNumber *int
	// DisableSHM drops shared-memory listen addresses.
	DisableSHM bool
	// DisableUnixSock drops unix socket listen addresses.
	DisableUnixSock bool
	// Overrides are SECTION.KEY=VALUE directives applied after loading.
	Overrides []string
	// Vars are extra template variables exposed as .vars.
	Vars map[string]any
	// Env is exposed as .env and backs the envOr helper.
	Env env.Vars
}

// Engine is the generation orchestrator.
type Engine struct {
	store    *config.Store
	renderer render.Renderer
	opts     Options
	logger   *slog.Logger
	console  *logging.Console

	report     *report.Report
	aggregates *Aggregates
	binder     *Binder
	expander   *instance.Expander
	globals    render.Vars
	prepared   bool
}

// NewEngine constructs an Engine over a loaded store. The renderer is the template
// collaborator used for every template and rules document.
func NewEngine(store *config.Store, renderer render.Renderer, opts Options, logger *slog.Logger, console *logging.Console) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	rep := &report.Report{}
	aggregates := NewAggregates(opts.Layout)
	return &Engine{
		store:      store,
		renderer:   renderer,
		opts:       opts,
		logger:     logger,
		console:    console,
		report:     rep,
		aggregates: aggregates,
		binder:     NewBinder(renderer, opts.Layout, aggregates, rep, logger),
	}
}

// Aggregates exposes the fleet-control scripts of this pass.
func (e *Engine) Aggregates() *Aggregates {
	return e.aggregates
}

// Generate runs the whole pass. Each step completes before the next starts. Invalid
// overrides, invalid rules and render failures are reported and skipped; unreadable
// inputs and unwritable outputs abort the pass.
func (e *Engine) Generate(ctx context.Context) (*report.Report, error) {
	e.prepare()

	if err := e.aggregates.Prepare(); err != nil {
		return e.report, err
	}

	for _, svc := range e.standardServices() {
		section := config.ServiceSection(svc)
		installPrefix := e.store.Option(section, "install_prefix", svc)
		for _, inst := range e.expander.Expand(svc) {
			if err := ctx.Err(); err != nil {
				return e.report, err
			}
			if err := e.generateService(ctx, inst, installPrefix, section, KindService, nil); err != nil {
				return e.report, err
			}
		}
	}

	for _, gw := range e.gateways() {
		if err := e.generateGateway(ctx, gw); err != nil {
			return e.report, err
		}
	}

	if err := e.applyGlobalRules(ctx); err != nil {
		return e.report, err
	}

	if err := e.aggregates.Finalize(); err != nil {
		return e.report, err
	}
	for _, agg := range e.aggregates.All() {
		e.report.Aggregates = append(e.report.Aggregates, report.Aggregate{Name: agg.Name, Fragments: len(agg.Fragments())})
	}
	return e.report, nil
}

// prepare applies options, switches, the instance count reset and overrides once.
func (e *Engine) prepare() {
	if e.prepared {
		return
	}
	e.prepared = true
	e.applyGlobalOptions()
	e.applySwitches()
	e.applyResetNumber()
	e.applyOverrides()
}

// PlannedInstance describes one instance a pass would generate.
type PlannedInstance struct {
	instance.Instance
	Kind          string
	InstallPrefix string
	Listen        []string
	// For is the consumer a gateway instance serves; nil for services.
	For *instance.Instance
}

// Plan returns every instance the pass would generate, in generation order, without
// rendering or writing anything.
func (e *Engine) Plan() ([]PlannedInstance, error) {
	e.prepare()

	var out []PlannedInstance
	for _, svc := range e.standardServices() {
		section := config.ServiceSection(svc)
		installPrefix := e.store.Option(section, "install_prefix", svc)
		for _, inst := range e.expander.Expand(svc) {
			out = append(out, PlannedInstance{
				Instance:      inst,
				Kind:          KindService,
				InstallPrefix: installPrefix,
				Listen:        e.listenAddresses(inst, section),
			})
		}
	}
	for _, gw := range e.gateways() {
		section := config.ServiceSection(gw)
		installPrefix := e.store.Option(section, "install_prefix", filepath.Join("atframe", gw))
		instances, err := e.expander.ExpandGateway(gw)
		if err != nil {
			return nil, err
		}
		for _, gi := range instances {
			consumer := gi.For
			out = append(out, PlannedInstance{
				Instance:      gi.Instance,
				Kind:          KindGateway,
				InstallPrefix: installPrefix,
				Listen:        e.listenAddresses(gi.Instance, section),
				For:           &consumer,
			})
		}
	}
	return out, nil
}

// Preview renders tmpl for instance index of service as if it were written to output
// under the service's install prefix. Nothing is written and the report is untouched.
// Gateway-only variables are not available. tmpl is resolved against the template search
// directories first and used as a literal path otherwise.
func (e *Engine) Preview(service string, index int, tmpl, output string) ([]byte, error) {
	e.prepare()

	if found, ok := e.renderer.Lookup(tmpl); ok {
		tmpl = found
	}

	section := config.ServiceSection(service)
	if !e.store.HasSection(section) {
		return nil, fmt.Errorf("service %q is not declared", service)
	}
	inst := e.expander.Instance(service, index)
	installPrefix := e.store.Option(section, "install_prefix", service)

	content, _, err := e.binder.Render(Binding{
		Template:      tmpl,
		InstallPrefix: installPrefix,
		Output:        output,
		Vars:          render.Merge(e.globals, e.instanceVars(inst, installPrefix, section)),
	})
	return content, err
}

func (e *Engine) applyGlobalOptions() {
	e.expander = instance.NewExpander(e.store, e.opts.IDOffset)
	e.globals = render.Vars{
		"id_offset":    e.opts.IDOffset,
		"install_root": e.opts.Layout.InstallRoot,
		"vars":         nonNilVars(e.opts.Vars),
		"env":          e.opts.Env,
	}
}

func (e *Engine) applySwitches() {
	e.globals["atbus_shm_enabled"] = !e.opts.DisableSHM
	e.globals["atbus_unix_sock_enabled"] = !e.opts.DisableUnixSock
}

func (e *Engine) applyResetNumber() {
	if e.opts.ResetNumber == nil {
		return
	}
	value := strconv.Itoa(*e.opts.ResetNumber)
	for _, svc := range e.store.Services() {
		e.store.Set(config.ServiceSection(svc), "number", value)
	}
}

func (e *Engine) applyOverrides() {
	for _, directive := range e.opts.Overrides {
		if err := config.ApplyOverride(e.store, directive); err != nil {
			e.logger.Error("invalid override", "directive", directive)
			e.console.Failuref("%s", err.Error())
			e.report.InvalidOverrides = append(e.report.InvalidOverrides, directive)
			continue
		}
		e.logger.Debug("override applied", "directive", directive)
	}
	// Overrides may change [atsystem]; expose the final values.
	e.globals["atsystem"] = e.store.Items(config.SystemSection)
}

func (e *Engine) gateways() []string {
	return Gateways(e.store)
}

// Gateways returns the gateway service kinds listed in [atsystem] gateways.
func Gateways(store *config.Store) []string {
	raw := store.Option(config.SystemSection, "gateways", DefaultGateway)
	var out []string
	for _, name := range strings.Split(raw, ",") {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// standardServices returns every declared service except gateway kinds, in document order.
func (e *Engine) standardServices() []string {
	gateways := e.gateways()
	var out []string
	for _, svc := range e.store.Services() {
		isGateway := false
		for _, gw := range gateways {
			if svc == gw {
				isGateway = true
				break
			}
		}
		if !isGateway {
			out = append(out, svc)
		}
	}
	return out
}

func (e *Engine) generateGateway(ctx context.Context, gateway string) error {
	section := config.ServiceSection(gateway)
	installPrefix := e.store.Option(section, "install_prefix", filepath.Join("atframe", gateway))

	instances, err := e.expander.ExpandGateway(gateway)
	if err != nil {
		return err
	}
	for _, gw := range instances {
		if err := ctx.Err(); err != nil {
			return err
		}
		ext := render.Vars{
			"for_server_name":         gw.For.Service,
			"for_server_index":        gw.For.Index,
			"for_server_id":           gw.For.ProcID,
			"for_server_type_id":      gw.For.TypeID,
			"for_server_gateway_port": gw.Port,
		}
		if err := e.generateService(ctx, gw.Instance, installPrefix, section, KindGateway, ext); err != nil {
			return err
		}
	}
	return nil
}

// generateService renders every output of one instance. Only failures to create the
// install directories or read the rules file are returned.
func (e *Engine) generateService(ctx context.Context, inst instance.Instance, installPrefix, section, kind string, ext render.Vars) error {
	e.console.Progressf("start to generate etc and script of %s", inst.FullName())

	installAbs := filepath.Join(e.opts.Layout.InstallRoot, installPrefix)
	for _, dir := range []string{"etc", "bin"} {
		if err := os.MkdirAll(filepath.Join(installAbs, dir), 0o755); err != nil {
			return fmt.Errorf("create install directory for %s: %w", inst.FullName(), err)
		}
	}

	vars := render.Merge(e.globals, e.instanceVars(inst, installPrefix, section), ext)

	bindings, err := e.serviceBindings(inst, vars)
	if err != nil {
		return err
	}
	for _, b := range bindings {
		b.Service = inst.Service
		b.Index = inst.Index
		b.Kind = kind
		b.FullName = inst.FullName()
		b.InstallPrefix = installPrefix
		b.Vars = vars
		if _, err := e.binder.Bind(ctx, b); err != nil {
			if err := e.bindFailed(ctx, inst.FullName(), err); err != nil {
				return err
			}
		}
	}
	return nil
}

// serviceBindings returns the custom rule bindings of the instance's service, or the
// standard convention when it has no rules file.
func (e *Engine) serviceBindings(inst instance.Instance, vars render.Vars) ([]Binding, error) {
	rulesPath := e.opts.Layout.CustomRulesFile(inst.Service)
	raw, err := os.ReadFile(rulesPath)
	if err != nil {
		if os.IsNotExist(err) {
			return StandardBindings(e.opts.Layout, inst.Service, inst.Index), nil
		}
		return nil, fmt.Errorf("read custom rules of %s: %w", inst.Service, err)
	}

	text, err := e.renderer.RenderString(rulesPath, string(raw), vars)
	if err != nil {
		e.renderFailed(inst.FullName(), err)
		return nil, nil
	}

	parsed, errs := rules.ParseLocalDocument(string(text))
	e.invalidRules(errs)

	bindings := make([]Binding, 0, len(parsed))
	for _, rule := range parsed {
		bindings = append(bindings, Binding{
			Template:  filepath.Join(e.opts.Layout.TemplateDir(), rule.Dir, rule.Src),
			Output:    rule.Dst,
			Aggregate: rule.Aggregate,
		})
	}
	return bindings, nil
}

// applyGlobalRules processes every file in the global rules directory, sorted by name.
func (e *Engine) applyGlobalRules(ctx context.Context) error {
	dir := e.opts.Layout.GlobalRulesDir()
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("list global rules: %w", err)
	}
	// ReadDir returns entries sorted by file name.
	var files []string
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}

	for _, path := range files {
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read global rules %q: %w", path, err)
		}
		text, err := e.renderer.RenderString(path, string(raw), e.globals)
		if err != nil {
			e.renderFailed(filepath.Base(path), err)
			continue
		}

		parsed, errs := rules.ParseGlobalDocument(string(text))
		e.invalidRules(errs)

		for _, rule := range parsed {
			tmpl, ok := e.renderer.Lookup(rule.Src)
			if !ok {
				e.logger.Debug("global rule template not found, skipping", "template", rule.Src)
				continue
			}
			b := Binding{
				Service:  filepath.Base(path),
				Kind:     KindGlobal,
				Template: tmpl,
				Output:   rule.Dst,
				Vars:     e.globals,
			}
			if _, err := e.binder.Bind(ctx, b); err != nil {
				if err := e.bindFailed(ctx, rule.Dst, err); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (e *Engine) invalidRules(errs []error) {
	for _, err := range errs {
		e.logger.Error("invalid rule", "error", err)
		e.console.Failuref("%s", err.Error())
		e.report.InvalidRules = append(e.report.InvalidRules, err.Error())
	}
}

// bindFailed returns the error that must abort the pass, or records err as a render
// failure and returns nil.
func (e *Engine) bindFailed(ctx context.Context, target string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if IsOutputError(err) {
		return err
	}
	e.renderFailed(target, err)
	return nil
}

func (e *Engine) renderFailed(target string, err error) {
	e.logger.Warn("render failed", "target", target, "error", err)
	e.report.RenderFailures = append(e.report.RenderFailures, fmt.Sprintf("%s: %v", target, err))
}

func nonNilVars(vars map[string]any) map[string]any {
	if vars == nil {
		return map[string]any{}
	}
	return vars
}
