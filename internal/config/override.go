package config

import (
	"errors"
	"fmt"
	"strings"
)

// InvalidOverrideError reports a SECTION.KEY=VALUE directive that matched no existing key.
type InvalidOverrideError struct {
	// Directive is the literal directive as given by the operator.
	Directive string
}

func (e *InvalidOverrideError) Error() string {
	if e == nil {
		return "invalid override"
	}
	return fmt.Sprintf("set command %s invalid, must be SECTION.KEY=VALUE", e.Directive)
}

// IsInvalidOverride reports whether err is an InvalidOverrideError.
func IsInvalidOverride(err error) bool {
	var target *InvalidOverrideError
	return errors.As(err, &target)
}

// ApplyOverride parses a "<dotted-key>=<value>" directive and assigns it to the store.
func ApplyOverride(store *Store, directive string) error {
	key, value, ok := strings.Cut(directive, "=")
	if !ok || key == "" {
		return &InvalidOverrideError{Directive: directive}
	}
	if !ResolveOverride(store, key, unquote(value)) {
		return &InvalidOverrideError{Directive: directive}
	}
	return nil
}

// ResolveOverride assigns value to the first existing (section, key) split of dottedKey.
// Split points are tried left to right, so the shortest section name wins.
func ResolveOverride(store *Store, dottedKey, value string) bool {
	if store == nil {
		return false
	}
	segments := strings.Split(dottedKey, ".")
	for i := 1; i < len(segments); i++ {
		section := strings.Join(segments[:i], ".")
		key := strings.Join(segments[i:], ".")
		if store.Has(section, key) {
			store.Set(section, key, value)
			return true
		}
	}
	return false
}

// unquote strips one matching pair of surrounding single or double quotes.
func unquote(value string) string {
	if len(value) < 2 {
		return value
	}
	first, last := value[0], value[len(value)-1]
	if (first == '"' || first == '\'') && first == last {
		return value[1 : len(value)-1]
	}
	return value
}
