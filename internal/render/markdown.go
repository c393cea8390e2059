// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package render

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/pdiddy/veriviz/pkg/types"
)

// MarkdownWriter outputs reports as GitHub-flavoured markdown.
type MarkdownWriter struct {
	output io.Writer
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to w.
func NewMarkdownWriter(w io.Writer) *MarkdownWriter {
	return &MarkdownWriter{output: w}
}

// Write outputs the full report.
func (w *MarkdownWriter) Write(doc *Document) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, doc)
	w.writeSummary(md, doc)
	w.writeChart(md, doc)
	w.writeIllustration(md, doc)
	w.writeSources(md, doc)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, doc *Document) {
	md.H1(doc.Topic)
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Audience", string(doc.Audience)},
			{"Generated", doc.GeneratedAt.Format("2006-01-02 15:04:05 MST")},
			{"Sources", strconv.Itoa(len(doc.Report.Sources))},
			{"Run", "`" + doc.RunID + "`"},
		},
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, doc *Document) {
	md.H2("Summary")
	md.PlainText("")
	md.PlainText(doc.Report.Summary)
	md.PlainText("")
}

func (w *MarkdownWriter) writeChart(md *markdown.Markdown, doc *Document) {
	r := doc.Report
	if !r.HasChart() {
		return
	}

	md.H2(r.ChartTitle)
	md.PlainText("")

	nameHeader, valueHeader := "Name", "Value"
	if r.ChartXAxis != "" {
		nameHeader = r.ChartXAxis
	}
	if r.ChartYAxis != "" {
		valueHeader = r.ChartYAxis
	}
	rows := make([][]string, len(r.ChartData))
	for i, p := range r.ChartData {
		rows[i] = []string{p.Name, formatValue(p.Value)}
	}
	md.Table(markdown.TableSet{
		Header: []string{nameHeader, valueHeader},
		Rows:   rows,
	})
	md.PlainText("")

	if r.ChartKind == types.ChartPie {
		w.writePieChart(md, r)
	}
}

// writePieChart adds a mermaid pie chart. Negative values cannot be drawn
// as slices and are left out.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, r types.ReportResult) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle(r.ChartTitle),
		piechart.WithShowData(true),
	)
	for _, p := range r.ChartData {
		if p.Value < 0 {
			continue
		}
		chart.LabelAndFloatValue(p.Name, p.Value)
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeIllustration(md *markdown.Markdown, doc *Document) {
	md.H2("Illustration")
	md.PlainText("")
	switch {
	case doc.ImagePath != "":
		md.PlainText(markdown.Image(doc.Report.ChartTitle, doc.ImagePath))
	case doc.Image != nil:
		// Not exported to a file; inline the payload.
		md.PlainText(markdown.Image(doc.Report.ChartTitle, doc.Image.DataURI()))
	default:
		md.Note("No illustration was generated.")
	}
	md.PlainText("")
	if doc.Report.ImagePrompt != "" {
		md.Details("Image prompt", doc.Report.ImagePrompt)
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeSources(md *markdown.Markdown, doc *Document) {
	md.H2("Sources")
	md.PlainText("")
	if len(doc.Report.Sources) == 0 {
		md.PlainText("No sources were cited.")
		return
	}
	links := make([]string, len(doc.Report.Sources))
	for i, s := range doc.Report.Sources {
		links[i] = markdown.Link(s.Title, s.URI)
	}
	md.BulletList(links...)
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
