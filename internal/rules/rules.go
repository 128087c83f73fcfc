// Package rules parses custom template rules: per-service "DIR:SRC=DST|GLOBAL" lines and
// process-wide "SRC=DST" lines.
//
// Both grammars are matched from the start of the (trimmed) line and any text after the
// matched prefix is ignored. Field content never includes the delimiter that ends it:
//
//	DIR    run before the first ':'                  (non-empty)
//	SRC    run after it, up to the first '='         (non-empty, may contain ':')
//	DST    run after that, up to the first '|'       (non-empty, may contain ':' and '=')
//	GLOBAL run after that '|', up to the next '|'    (optional, non-empty)
//
// A '|' that is not followed by at least one non-'|' character leaves GLOBAL unset.
// Captured fields are trimmed of surrounding whitespace.
package rules

import (
	"errors"
	"fmt"
	"strings"
)

// Kind names the grammar a rule line was checked against.
type Kind string

const (
	// KindLocal is the per-service grammar.
	KindLocal Kind = "custom service"
	// KindGlobal is the process-wide grammar.
	KindGlobal Kind = "global"
)

// LocalRule binds a template under Dir to an output path inside a service's install prefix.
type LocalRule struct {
	Dir string
	Src string
	Dst string
	// Aggregate names the aggregate script the output is dispatched from; empty for none.
	Aggregate string
}

// GlobalRule binds a template to an output path relative to the install root.
type GlobalRule struct {
	Src string
	Dst string
}

// Empty reports whether either side of the rule is blank after trimming.
func (r GlobalRule) Empty() bool {
	return r.Src == "" || r.Dst == ""
}

// InvalidRuleError reports a rule line that does not match its grammar.
type InvalidRuleError struct {
	Kind Kind
	// Line is the offending line as it appeared in the document.
	Line string
}

func (e *InvalidRuleError) Error() string {
	if e == nil {
		return "invalid rule"
	}
	return fmt.Sprintf("%q is not a valid %s rule", e.Line, e.Kind)
}

// IsInvalidRule reports whether err is an InvalidRuleError.
func IsInvalidRule(err error) bool {
	var target *InvalidRuleError
	return errors.As(err, &target)
}

// ParseLocal parses one per-service rule line.
func ParseLocal(line string) (LocalRule, error) {
	invalid := &InvalidRuleError{Kind: KindLocal, Line: line}
	rest := strings.TrimSpace(line)

	dir, rest, ok := cutNonEmpty(rest, ':')
	if !ok {
		return LocalRule{}, invalid
	}
	src, rest, ok := cutNonEmpty(rest, '=')
	if !ok {
		return LocalRule{}, invalid
	}
	dst, rest := cutRun(rest, '|')
	if dst == "" {
		return LocalRule{}, invalid
	}

	rule := LocalRule{
		Dir: strings.TrimSpace(dir),
		Src: strings.TrimSpace(src),
		Dst: strings.TrimSpace(dst),
	}
	if tail, found := strings.CutPrefix(rest, "|"); found {
		if global, _ := cutRun(tail, '|'); global != "" {
			rule.Aggregate = strings.TrimSpace(global)
		}
	}

	if rule.Dir == "" || rule.Src == "" || rule.Dst == "" {
		return LocalRule{}, invalid
	}
	return rule, nil
}

// ParseGlobal parses one process-wide rule line. A rule whose fields are blank after
// trimming is returned without error; callers skip it via GlobalRule.Empty.
func ParseGlobal(line string) (GlobalRule, error) {
	rest := strings.TrimSpace(line)
	src, dst, ok := cutNonEmpty(rest, '=')
	if !ok || dst == "" {
		return GlobalRule{}, &InvalidRuleError{Kind: KindGlobal, Line: line}
	}
	return GlobalRule{
		Src: strings.TrimSpace(src),
		Dst: strings.TrimSpace(dst),
	}, nil
}

// ParseLocalDocument parses every rule line of a per-service rules document.
// Invalid lines are returned as errors alongside the valid rules, in document order.
func ParseLocalDocument(text string) ([]LocalRule, []error) {
	return parseDocument(text, ParseLocal)
}

// ParseGlobalDocument parses every rule line of a global rules document, dropping rules
// with blank fields.
func ParseGlobalDocument(text string) ([]GlobalRule, []error) {
	parsed, errs := parseDocument(text, ParseGlobal)
	out := parsed[:0]
	for _, rule := range parsed {
		if rule.Empty() {
			continue
		}
		out = append(out, rule)
	}
	return out, errs
}

// IsComment reports whether a line carries no rule: blank, or starting with '#' or ';'.
func IsComment(line string) bool {
	trimmed := strings.TrimSpace(line)
	return trimmed == "" || trimmed[0] == '#' || trimmed[0] == ';'
}

func parseDocument[R any](text string, parse func(string) (R, error)) ([]R, []error) {
	var (
		out  []R
		errs []error
	)
	for _, line := range splitLines(text) {
		if IsComment(line) {
			continue
		}
		rule, err := parse(line)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, rule)
	}
	return out, errs
}

// splitLines splits on \n, \r\n and lone \r.
func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Split(text, "\n")
}

// cutNonEmpty splits s at the first sep. The part before sep must be non-empty.
func cutNonEmpty(s string, sep byte) (before, after string, ok bool) {
	i := strings.IndexByte(s, sep)
	if i <= 0 {
		return "", "", false
	}
	return s[:i], s[i+1:], true
}

// cutRun returns the run of s before the first sep and the remainder starting at sep.
func cutRun(s string, sep byte) (run, rest string) {
	i := strings.IndexByte(s, sep)
	if i < 0 {
		return s, ""
	}
	return s[:i], s[i:]
}
