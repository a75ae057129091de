// Package search finds nodes by label or type and debounces interactive
// queries.
package search

import (
	"strings"

	"github.com/matzehuels/pipescope/pkg/lineage"
)

// Defaults for [Options].
const (
	DefaultMinLength = 2
	DefaultLimit     = 10
)

// Options controls matching.
type Options struct {
	// MinLength is the shortest trimmed query that is evaluated.
	MinLength int `json:"min_length" koanf:"min_length"`
	// Limit caps the number of results. Zero means DefaultLimit.
	Limit int `json:"limit" koanf:"limit"`
}

// DefaultOptions returns the standard matching options.
func DefaultOptions() Options {
	return Options{MinLength: DefaultMinLength, Limit: DefaultLimit}
}

// Normalize lowercases and trims a query.
func Normalize(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

// Match returns nodes whose display label or defaulted type contains the
// query, case-insensitively, in graph order. Queries shorter than
// MinLength after trimming match nothing.
func Match(g *lineage.Graph, query string, opts Options) []lineage.Node {
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	q := Normalize(query)
	if q == "" || len([]rune(q)) < opts.MinLength {
		return nil
	}

	var out []lineage.Node
	for _, n := range g.Nodes() {
		if len(out) == opts.Limit {
			break
		}
		if strings.Contains(strings.ToLower(n.DisplayLabel()), q) ||
			strings.Contains(strings.ToLower(n.TypeOrDefault()), q) {
			out = append(out, n)
		}
	}
	return out
}
