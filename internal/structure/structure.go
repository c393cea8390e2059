// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package structure turns raw research text into the report shape used for
// display: summary, chart data and an illustration prompt. The model is
// asked for schema-constrained JSON and the payload is validated locally
// before it is decoded; any violation fails the stage.
package structure

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"text/template"

	"github.com/sirupsen/logrus"

	"github.com/pdiddy/veriviz/internal/provider"
	"github.com/pdiddy/veriviz/internal/schema"
	"github.com/pdiddy/veriviz/pkg/types"
)

// ErrFailed marks a failed structuring call or an unusable payload.
var ErrFailed = errors.New("data structuring failed")

var promptTmpl = template.Must(template.New("structure").Parse(`Analyze the following research text and extract structured data for a visual presentation tailored to {{.Audience}}.

Research Text:
"""
{{.Text}}
"""

Requirements:
1. Create a "summary" of the research (max 100 words).
2. Identify the best chart type (bar, pie, area, line) to represent the key statistics found. If no stats are found, use 'none'.
3. Provide "chartData" with 'name' and 'value' fields for the chart, in the order they should be plotted.
4. A "chartTitle", "chartXAxis" label, and "chartYAxis" label.
5. A creative "imagePrompt" to generate a high-quality, modern, abstract or illustrative header image representing this topic.

Output JSON only.`))

// ReportSchema returns the response shape requested from the model. The
// summary, chart kind, chart data, chart title and image prompt are
// required; axis labels are optional. The report object is closed: any
// other key, including a case variant of a known one, is rejected. Chart
// points may carry extra fields.
func ReportSchema() *schema.Schema {
	kinds := make([]string, 0, len(types.ChartKinds()))
	for _, k := range types.ChartKinds() {
		kinds = append(kinds, string(k))
	}
	return &schema.Schema{
		Type: schema.TypeObject,
		Properties: map[string]*schema.Schema{
			"summary":   {Type: schema.TypeString},
			"chartKind": {Type: schema.TypeString, Enum: kinds},
			"chartData": {
				Type: schema.TypeArray,
				Items: &schema.Schema{
					Type: schema.TypeObject,
					Properties: map[string]*schema.Schema{
						"name":  {Type: schema.TypeString},
						"value": {Type: schema.TypeNumber},
					},
					Required: []string{"name", "value"},
				},
			},
			"chartTitle":  {Type: schema.TypeString},
			"chartXAxis":  {Type: schema.TypeString},
			"chartYAxis":  {Type: schema.TypeString},
			"imagePrompt": {Type: schema.TypeString},
		},
		Required:             []string{"summary", "chartKind", "chartData", "chartTitle", "imagePrompt"},
		AdditionalProperties: schema.Closed(),
	}
}

var reportValidator = schema.MustCompile(ReportSchema())

// Client calls a SchemaGenerator with the structuring prompt.
type Client struct {
	gen    provider.SchemaGenerator
	model  string
	logger logrus.FieldLogger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a structuring client. An empty model falls back to
// types.DefaultTextModel.
func New(gen provider.SchemaGenerator, cfg types.StructuringConfig, opts ...Option) (*Client, error) {
	if gen == nil {
		return nil, errors.New("structuring client requires a schema generator")
	}
	model := cfg.Model
	if model == "" {
		model = types.DefaultTextModel
	}
	c := &Client{gen: gen, model: model, logger: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Structure asks the model to structure researchText for audience. The
// returned report always has an empty, non-nil Sources slice; merging the
// research citations is the caller's job.
func (c *Client) Structure(ctx context.Context, researchText string, audience types.Audience) (types.ReportResult, error) {
	prompt, err := renderPrompt(researchText, audience)
	if err != nil {
		return types.ReportResult{}, fmt.Errorf("%w: rendering prompt: %v", ErrFailed, err)
	}

	raw, err := c.gen.GenerateStructured(ctx, c.model, prompt, ReportSchema())
	if err != nil {
		return types.ReportResult{}, fmt.Errorf("%w: %w", ErrFailed, err)
	}

	report, err := Parse(raw)
	if err != nil {
		c.logger.WithError(err).WithField("payload_bytes", len(raw)).Debug("rejected structuring payload")
		return types.ReportResult{}, fmt.Errorf("%w: %w", ErrFailed, err)
	}
	return report, nil
}

// Parse validates raw model output against ReportSchema and decodes it.
// Surrounding markdown code fences are ignored. A non-none chart kind with
// no data points is downgraded to none.
func Parse(raw string) (types.ReportResult, error) {
	payload := stripFences(raw)
	if err := reportValidator.Validate(payload); err != nil {
		return types.ReportResult{}, err
	}

	var report types.ReportResult
	if err := json.Unmarshal([]byte(payload), &report); err != nil {
		return types.ReportResult{}, fmt.Errorf("decoding report: %w", err)
	}
	if !report.ChartKind.Valid() {
		return types.ReportResult{}, fmt.Errorf("decoding report: unknown chart kind %q", report.ChartKind)
	}

	if report.ChartKind != types.ChartNone && len(report.ChartData) == 0 {
		report.ChartKind = types.ChartNone
	}
	if report.ChartData == nil {
		report.ChartData = []types.DataPoint{}
	}
	report.Sources = []types.Source{}
	return report, nil
}

var fenceRe = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*\n?(.*?)\\s*```$")

// stripFences removes a single surrounding ``` or ```json fence.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if m := fenceRe.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return s
}

func renderPrompt(text string, audience types.Audience) (string, error) {
	var buf bytes.Buffer
	err := promptTmpl.Execute(&buf, struct {
		Text     string
		Audience types.Audience
	}{text, audience})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
