package engine

import "path/filepath"

// Layout locates the generator's inputs and outputs on disk.
type Layout struct {
	// ScriptDir holds helper/ (templates and rules) and receives the aggregate scripts.
	ScriptDir string
	// InstallRoot is the directory service install prefixes are relative to.
	InstallRoot string
}

// NewLayout returns a layout rooted at scriptDir. An empty installRoot defaults to two
// levels above scriptDir.
func NewLayout(scriptDir, installRoot string) (Layout, error) {
	absScript, err := filepath.Abs(scriptDir)
	if err != nil {
		return Layout{}, err
	}
	if installRoot == "" {
		installRoot = filepath.Join(absScript, "..", "..")
	}
	absRoot, err := filepath.Abs(installRoot)
	if err != nil {
		return Layout{}, err
	}
	return Layout{ScriptDir: absScript, InstallRoot: absRoot}, nil
}

// TemplateDir is the root of all templates; custom rule directories are relative to it.
func (l Layout) TemplateDir() string {
	return filepath.Join(l.ScriptDir, "helper", "template")
}

// EtcTemplateDir holds "<service>.conf" templates.
func (l Layout) EtcTemplateDir() string {
	return filepath.Join(l.TemplateDir(), "etc")
}

// ScriptTemplateDir holds lifecycle script templates and aggregate headers.
func (l Layout) ScriptTemplateDir() string {
	return filepath.Join(l.TemplateDir(), "script")
}

// CustomTemplateDir holds templates referenced only by custom rules.
func (l Layout) CustomTemplateDir() string {
	return filepath.Join(l.TemplateDir(), "custom")
}

// SearchDirs are the directories global rule templates are looked up in, in order.
func (l Layout) SearchDirs() []string {
	return []string{l.EtcTemplateDir(), l.ScriptTemplateDir(), l.CustomTemplateDir()}
}

// CustomRulesFile is the per-service rules file of service.
func (l Layout) CustomRulesFile(service string) string {
	return filepath.Join(l.ScriptDir, "helper", "custom_template_rules", service)
}

// GlobalRulesDir holds process-wide rule files.
func (l Layout) GlobalRulesDir() string {
	return filepath.Join(l.ScriptDir, "helper", "custom_global_rules")
}
