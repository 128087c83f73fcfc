package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"

	"github.com/atframework/genconf/internal/config"
	"github.com/atframework/genconf/internal/engine"
	"github.com/atframework/genconf/internal/instance"
	"github.com/atframework/genconf/internal/render"
	"github.com/atframework/genconf/internal/rules"
)

// runDoctorChecks logs every finding and fails when any of them would break generation
// or the generated scripts.
func runDoctorChecks(logger *slog.Logger, ws *workspace) error {
	if logger == nil {
		logger = slog.Default()
	}

	var fatalErrs []error
	fatal := func(msg string, err error, args ...any) {
		logger.Error(msg, append(args, "error", err)...)
		fatalErrs = append(fatalErrs, err)
	}

	if _, err := exec.LookPath("bash"); err != nil {
		fatal("doctor check failed: missing required tool", err, "tool", "bash")
	} else {
		logger.Info("doctor check ok", "tool", "bash")
	}

	for _, agg := range engine.NewAggregates(ws.layout).All() {
		if ok, err := render.Exists(agg.Header); err != nil || !ok {
			fatal("aggregate header missing", fmt.Errorf("header of %s not found at %s", agg.Name, agg.Header), "aggregate", agg.Name)
		}
	}

	gateways := engine.Gateways(ws.store)
	typeIDs := make(map[int64]string)
	for _, svc := range ws.store.Services() {
		section := config.ServiceSection(svc)

		if !ws.store.Has(section, "type_id") {
			logger.Warn("service has no type_id; bus ids will collide", "service", svc)
		} else {
			id := ws.store.IntOption(section, "type_id", 0)
			if other, dup := typeIDs[id]; dup {
				logger.Warn("services share a type_id", "service", svc, "other", other, "type_id", id)
			}
			typeIDs[id] = svc
		}

		rulesFile := ws.layout.CustomRulesFile(svc)
		if ok, _ := render.Exists(rulesFile); ok {
			for _, err := range lintRules(rulesFile, func(line string) error {
				_, err := rules.ParseLocal(line)
				return err
			}) {
				fatal("invalid custom rule", err, "service", svc)
			}
			continue
		}
		if slices.Contains(gateways, svc) {
			continue
		}
		etc := filepath.Join(ws.layout.EtcTemplateDir(), svc+".conf")
		if ok, _ := render.Exists(etc); !ok {
			logger.Warn("service has no configuration template", "service", svc, "template", etc)
		}
	}

	for _, gw := range gateways {
		if ws.store.HasSection(config.ServiceSection(gw)) && len(instance.GatewayConsumers(ws.store, gw)) == 0 {
			logger.Warn("gateway has no consumers", "gateway", gw, "key", gw+"_port")
		}
	}

	entries, err := os.ReadDir(ws.layout.GlobalRulesDir())
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		fatal("list global rules failed", err)
	}
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		path := filepath.Join(ws.layout.GlobalRulesDir(), entry.Name())
		for _, err := range lintRules(path, func(line string) error {
			_, err := rules.ParseGlobal(line)
			return err
		}) {
			fatal("invalid global rule", err, "file", entry.Name())
		}
	}

	if len(fatalErrs) > 0 {
		return fmt.Errorf("doctor found %d fatal issue(s); see log for details", len(fatalErrs))
	}
	return nil
}

// lintRules checks every rule line of a rules document. Lines holding template actions
// are skipped since their final form is only known at generation time.
func lintRules(path string, parse func(string) error) []error {
	data, err := os.ReadFile(path)
	if err != nil {
		return []error{err}
	}
	var errs []error
	for _, line := range strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n") {
		if rules.IsComment(line) || strings.Contains(line, "{{") {
			continue
		}
		if err := parse(line); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
