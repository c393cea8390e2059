// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package render

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/veriviz/pkg/types"
)

func sampleDoc() *Document {
	return &Document{
		RunID:       "run-1",
		Topic:       "Global Energy Mix 2024",
		Audience:    types.AudienceExecutive,
		GeneratedAt: time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC),
		Report: types.ReportResult{
			Summary: "Renewables passed 30% of generation.",
			Sources: []types.Source{
				{Title: "IEA", URI: "https://iea.example/report"},
				{Title: "Ember", URI: "https://ember.example/review"},
			},
			ChartData: []types.DataPoint{
				{Name: "Coal", Value: 35.5},
				{Name: "Gas", Value: 22},
				{Name: "Renewables", Value: 30.2},
			},
			ChartKind:   types.ChartPie,
			ChartTitle:  "Generation share",
			ChartXAxis:  "Source",
			ChartYAxis:  "Share %",
			ImagePrompt: "abstract turbines at dawn",
		},
		Image: &types.GeneratedImage{EncodedContent: "aGVsbG8=", MIMEType: "image/png"},
	}
}

func TestMarkdownReport(t *testing.T) {
	doc := sampleDoc()
	doc.ImagePath = "energy.png"
	var buf bytes.Buffer

	n, err := NewMarkdownWriter(&buf).Write(doc)
	require.NoError(t, err)
	assert.Positive(t, n)

	out := buf.String()
	assert.Contains(t, out, "# Global Energy Mix 2024")
	assert.Contains(t, out, "Business Executives")
	assert.Contains(t, out, "Renewables passed 30% of generation.")
	assert.Contains(t, out, "## Generation share")
	lower := strings.ToLower(out)
	assert.Contains(t, lower, "source")
	assert.Contains(t, lower, "share %")
	assert.Contains(t, out, "35.5")
	assert.Contains(t, out, "```mermaid")
	assert.Contains(t, out, "pie")
	assert.Contains(t, out, "](energy.png)")
	assert.Contains(t, out, "[IEA](https://iea.example/report)")
	assert.Contains(t, out, "abstract turbines at dawn")

	// Chart rows keep their order.
	chart := out[strings.Index(out, "## Generation share"):]
	assert.Less(t, strings.Index(chart, "Coal"), strings.Index(chart, "Gas"))
	assert.Less(t, strings.Index(chart, "Gas"), strings.Index(chart, "Renewables"))
}

func TestMarkdownWithoutChartOrImage(t *testing.T) {
	doc := sampleDoc()
	doc.Report.ChartKind = types.ChartNone
	doc.Report.Sources = nil
	doc.Image = nil
	var buf bytes.Buffer

	_, err := NewMarkdownWriter(&buf).Write(doc)
	require.NoError(t, err)
	out := buf.String()
	assert.NotContains(t, out, "## Generation share")
	assert.NotContains(t, out, "mermaid")
	assert.Contains(t, out, "No illustration was generated.")
	assert.Contains(t, out, "No sources were cited.")
}

func TestMarkdownInlinesUnexportedImage(t *testing.T) {
	doc := sampleDoc()
	var buf bytes.Buffer

	_, err := NewMarkdownWriter(&buf).Write(doc)
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "](data:image/png;base64,aGVsbG8=)")
	assert.NotContains(t, out, "No illustration was generated.")
}

func TestMarkdownBarHasNoMermaid(t *testing.T) {
	doc := sampleDoc()
	doc.Report.ChartKind = types.ChartBar
	var buf bytes.Buffer
	_, err := NewMarkdownWriter(&buf).Write(doc)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "## Generation share")
	assert.NotContains(t, buf.String(), "mermaid")
}

func TestJSONWriter(t *testing.T) {
	var buf bytes.Buffer
	_, err := NewJSONWriter(&buf).Write(sampleDoc())
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	report := got["report"].(map[string]any)
	assert.Equal(t, "pie", report["chartKind"])
	assert.Len(t, report["chartData"], 3)
	assert.Equal(t, "image/png", got["image"].(map[string]any)["mimeType"])
}

func TestYAMLWriterOmitsImagePayload(t *testing.T) {
	doc := sampleDoc()
	doc.ImagePath = "x.png"
	var buf bytes.Buffer
	_, err := NewYAMLWriter(&buf).Write(doc)
	require.NoError(t, err)

	out := buf.String()
	assert.NotContains(t, out, "aGVsbG8=")
	assert.Contains(t, out, "image_path: x.png")

	var back Document
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &back))
	assert.Equal(t, doc.Report.Summary, back.Report.Summary)
	assert.Equal(t, types.ChartPie, back.Report.ChartKind)
	assert.Equal(t, "Coal", back.Report.ChartData[0].Name)
}

func TestNewFormats(t *testing.T) {
	for _, f := range []types.OutputFormat{types.OutputMarkdown, types.OutputJSON, types.OutputYAML, types.OutputCSL, ""} {
		w, err := New(f, &bytes.Buffer{})
		require.NoError(t, err, f)
		assert.NotNil(t, w)
	}
	_, err := New("html", &bytes.Buffer{})
	require.Error(t, err)

	assert.Equal(t, ".md", Extension(types.OutputMarkdown))
	assert.Equal(t, ".json", Extension(types.OutputJSON))
	assert.Equal(t, ".yaml", Extension(types.OutputYAML))
	assert.Equal(t, ".csl.yaml", Extension(types.OutputCSL))
}

func TestCSLWriter(t *testing.T) {
	doc := sampleDoc()
	doc.Report.Sources = []types.Source{
		{Title: "Energy Outlook", URI: "https://www.iea.org/outlook"},
		{Title: "  ", URI: "https://example.com/a"},
	}
	var buf bytes.Buffer
	_, err := NewCSLWriter(&buf).Write(doc)
	require.NoError(t, err)
	assert.NotContains(t, buf.String(), "summary")

	var items []CSLItem
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &items))
	require.Len(t, items, 2)

	first := items[0]
	assert.Equal(t, Slug(doc.Topic)+"-1", first.ID)
	assert.Equal(t, "webpage", first.Type)
	assert.Equal(t, "Energy Outlook", first.Title)
	assert.Equal(t, "https://www.iea.org/outlook", first.URL)
	assert.Equal(t, "iea.org", first.Publisher)
	require.NotNil(t, first.Accessed)
	assert.Equal(t, []int{doc.GeneratedAt.Year(), int(doc.GeneratedAt.Month()), doc.GeneratedAt.Day()}, first.Accessed.DateParts[0])

	assert.Equal(t, "https://example.com/a", items[1].Title)
}

func TestCSLPublisherForGroundingRedirects(t *testing.T) {
	doc := sampleDoc()
	redirect := "https://vertexaisearch.cloud.google.com/grounding-api-redirect/AbC123"
	doc.Report.Sources = []types.Source{
		{Title: "www.IEA.org", URI: redirect},
		{Title: "World Energy Outlook 2024", URI: redirect + "x"},
	}

	items := CSLItems(doc)
	require.Len(t, items, 2)
	assert.Equal(t, "iea.org", items[0].Publisher)
	assert.Empty(t, items[1].Publisher)
	assert.Equal(t, redirect, items[0].URL)
}

func TestCSLItemsWithoutSources(t *testing.T) {
	doc := sampleDoc()
	doc.Report.Sources = nil
	doc.GeneratedAt = time.Time{}
	assert.Empty(t, CSLItems(doc))

	doc.Report.Sources = []types.Source{{Title: "T", URI: "::bad"}}
	items := CSLItems(doc)
	require.Len(t, items, 1)
	assert.Nil(t, items[0].Accessed)
	assert.Empty(t, items[0].Publisher)
}

func TestWriteImage(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	path, err := WriteImage(dir, "pic", types.GeneratedImage{EncodedContent: "aGVsbG8=", MIMEType: "image/png"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "pic.png"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)

	path, err = WriteImage(dir, "raw", types.GeneratedImage{EncodedContent: "aGVsbG8=", MIMEType: "application/x-unknown"})
	require.NoError(t, err)
	assert.Equal(t, ".bin", filepath.Ext(path))

	_, err = WriteImage(dir, "bad", types.GeneratedImage{EncodedContent: "%%%"})
	require.Error(t, err)
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	doc := sampleDoc()

	path, err := Save(dir, types.OutputMarkdown, doc)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "global-energy-mix-2024-20260304-050607.md"), path)
	assert.Equal(t, "global-energy-mix-2024-20260304-050607.png", doc.ImagePath)
	assert.FileExists(t, filepath.Join(dir, doc.ImagePath))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), doc.ImagePath)
}

func TestSaveWithoutImage(t *testing.T) {
	dir := t.TempDir()
	doc := sampleDoc()
	doc.Image = nil

	path, err := Save(dir, types.OutputJSON, doc)
	require.NoError(t, err)
	assert.Equal(t, ".json", filepath.Ext(path))
	assert.Empty(t, doc.ImagePath)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSaveCSLSkipsImage(t *testing.T) {
	dir := t.TempDir()
	path, err := Save(dir, types.OutputCSL, sampleDoc())
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, ".csl.yaml"), path)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSlug(t *testing.T) {
	tests := map[string]string{
		"Global Energy Mix 2024":   "global-energy-mix-2024",
		"  AI & Jobs: What's next?": "ai-jobs-what-s-next",
		"???":                      "report",
		"":                         "report",
		strings.Repeat("ab ", 40):  strings.TrimRight(strings.Repeat("ab-", 20), "-"),
	}
	for in, want := range tests {
		assert.Equal(t, want, Slug(in), "Slug(%q)", in)
	}
}
