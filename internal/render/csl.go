// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package render

import (
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"
)

// CSLItem is one bibliography entry in CSL-YAML, readable by Pandoc and
// reference managers.
type CSLItem struct {
	ID        string   `yaml:"id"`
	Type      string   `yaml:"type"`
	Title     string   `yaml:"title"`
	URL       string   `yaml:"URL"`
	Publisher string   `yaml:"publisher,omitempty"`
	Accessed  *CSLDate `yaml:"accessed,omitempty"`
}

// CSLDate is a date in CSL date-parts form.
type CSLDate struct {
	DateParts [][]int `yaml:"date-parts"`
}

// CSLWriter outputs the report's sources as a CSL-YAML reference list.
// Everything except the sources is left out.
type CSLWriter struct {
	output io.Writer
}

// NewCSLWriter creates a CSLWriter that outputs to w.
func NewCSLWriter(w io.Writer) *CSLWriter {
	return &CSLWriter{output: w}
}

// Write outputs the sources of doc as a CSL-YAML list.
func (w *CSLWriter) Write(doc *Document) (int, error) {
	items := CSLItems(doc)
	data, err := yaml.Marshal(items)
	if err != nil {
		return 0, err
	}
	return w.output.Write(data)
}

// CSLItems converts the sources of doc into webpage entries. IDs are the
// topic slug followed by the 1-based source position.
func CSLItems(doc *Document) []CSLItem {
	items := make([]CSLItem, 0, len(doc.Report.Sources))
	prefix := Slug(doc.Topic)
	var accessed *CSLDate
	if !doc.GeneratedAt.IsZero() {
		accessed = cslDate(doc.GeneratedAt)
	}
	for i, s := range doc.Report.Sources {
		title := strings.TrimSpace(s.Title)
		if title == "" {
			title = s.URI
		}
		items = append(items, CSLItem{
			ID:        fmt.Sprintf("%s-%d", prefix, i+1),
			Type:      "webpage",
			Title:     title,
			URL:       s.URI,
			Publisher: publisher(s.Title, s.URI),
			Accessed:  accessed,
		})
	}
	return items
}

func cslDate(t time.Time) *CSLDate {
	return &CSLDate{DateParts: [][]int{{t.Year(), int(t.Month()), t.Day()}}}
}

// redirectHosts serve grounding redirect links; their host names the search
// service, not the cited site.
var redirectHosts = map[string]bool{
	"vertexaisearch.cloud.google.com": true,
}

// publisher names the cited site. For grounding redirect links the title is
// used when it is a bare domain, as search grounding reports it.
func publisher(title, raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	h := strings.ToLower(u.Hostname())
	if !redirectHosts[h] {
		return strings.TrimPrefix(h, "www.")
	}
	title = strings.ToLower(strings.TrimSpace(title))
	if title == "" || strings.ContainsAny(title, " /") || !strings.Contains(title, ".") {
		return ""
	}
	return strings.TrimPrefix(title, "www.")
}
