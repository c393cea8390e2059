// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the veriviz pipeline:
// the audience and chart enumerations, the merged report, the generated
// illustration, the pipeline state machine values and the configuration
// structs read by the CLI.
package types

import (
	"fmt"
	"strings"
)

// Audience is the persona a report is written for. The value is the display
// label passed verbatim into every prompt.
type Audience string

const (
	AudienceGeneral   Audience = "General Public"
	AudienceExecutive Audience = "Business Executives"
	AudienceAcademic  Audience = "Researchers & Academics"
	AudienceKids      Audience = "Children (5-10 years)"
	AudienceTeens     Audience = "Students & Teens"
)

// audienceInfo holds the short key and label for each audience, in the
// order they are offered to users.
var audienceInfo = []struct {
	audience Audience
	key      string
	label    string
}{
	{AudienceGeneral, "general", "General Public"},
	{AudienceExecutive, "executive", "Business Executives"},
	{AudienceAcademic, "academic", "Researchers"},
	{AudienceKids, "kids", "Kids"},
	{AudienceTeens, "teens", "Students"},
}

// Audiences returns every supported audience in display order.
func Audiences() []Audience {
	out := make([]Audience, len(audienceInfo))
	for i, info := range audienceInfo {
		out[i] = info.audience
	}
	return out
}

// ParseAudience resolves a short key ("executive"), a short label
// ("Researchers") or a full value ("Business Executives") to an Audience.
// Matching is case-insensitive.
func ParseAudience(s string) (Audience, error) {
	needle := strings.TrimSpace(s)
	for _, info := range audienceInfo {
		if strings.EqualFold(needle, info.key) ||
			strings.EqualFold(needle, info.label) ||
			strings.EqualFold(needle, string(info.audience)) {
			return info.audience, nil
		}
	}
	return "", fmt.Errorf("unknown audience %q (want one of: %s)", s, strings.Join(audienceKeys(), ", "))
}

// Valid reports whether a is one of the supported audiences.
func (a Audience) Valid() bool {
	for _, info := range audienceInfo {
		if info.audience == a {
			return true
		}
	}
	return false
}

// Key returns the short identifier used on the command line and in query files.
func (a Audience) Key() string {
	for _, info := range audienceInfo {
		if info.audience == a {
			return info.key
		}
	}
	return ""
}

// Label returns the short label shown next to the audience picker.
func (a Audience) Label() string {
	for _, info := range audienceInfo {
		if info.audience == a {
			return info.label
		}
	}
	return string(a)
}

func audienceKeys() []string {
	keys := make([]string, len(audienceInfo))
	for i, info := range audienceInfo {
		keys[i] = info.key
	}
	return keys
}
