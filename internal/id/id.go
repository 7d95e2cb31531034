package id

import (
	"fmt"
	"net/url"
	"strings"
)

// Prefix namespaces every entity ID produced by this bridge.
const Prefix = "actualbridge"

// Source returns a stable identifier for one budget file on one server,
// like "budget.example.com:5006_a1b2c3". It is keyed on the server host and
// the file ID rather than the file name, so it survives budget renames.
func Source(endpoint, fileID string) string {
	host := endpoint
	if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
		host = u.Host
	}
	return strings.ToLower(host + "_" + fileID)
}

// Account returns the unique ID for an account sensor,
// like "actualbridge-budget.example.com:5006_a1b2c3-account-checking".
func Account(source, name string) string {
	return entity(source, "account", name)
}

// Budget returns the unique ID for a budget-category sensor.
func Budget(source, name string) string {
	return entity(source, "budget", name)
}

func entity(source, kind, name string) string {
	return strings.ToLower(fmt.Sprintf("%s-%s-%s-%s", Prefix, source, kind, sanitize(name)))
}

// sanitize replaces characters that would make the ID awkward as a metric
// label or URL path segment.
func sanitize(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_' || r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
