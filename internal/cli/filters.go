package cli

import "strings"

// nameFilter selects names from a comma-separated list. A nil filter selects everything.
type nameFilter map[string]struct{}

// parseNameFilter splits a comma-separated list into a case-insensitive filter.
func parseNameFilter(raw string) nameFilter {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	out := make(nameFilter)
	for _, part := range strings.Split(raw, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" {
			continue
		}
		out[name] = struct{}{}
	}
	return out
}

// Allows reports whether name passes the filter.
func (f nameFilter) Allows(name string) bool {
	if f == nil {
		return true
	}
	_, ok := f[strings.ToLower(name)]
	return ok
}
