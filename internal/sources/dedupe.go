// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sources normalizes the citation list produced by grounded research.
package sources

import "github.com/pdiddy/veriviz/pkg/types"

// Dedupe drops nil entries and entries missing a title or URI, then removes
// later duplicates by exact URI match. The first occurrence of each URI is
// kept and the input order is preserved. The result is never nil.
func Dedupe(candidates []*types.Source) []types.Source {
	seen := make(map[string]bool, len(candidates))
	out := make([]types.Source, 0, len(candidates))

	for _, c := range candidates {
		if !usable(c) {
			continue
		}
		if seen[c.URI] {
			continue
		}
		seen[c.URI] = true
		out = append(out, *c)
	}
	return out
}

// usable reports whether a candidate carries both a title and a URI.
func usable(c *types.Source) bool {
	return c != nil && c.Title != "" && c.URI != ""
}
