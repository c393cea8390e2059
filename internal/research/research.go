// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package research runs the grounded research stage: it asks a web-grounded
// text model for recent, verifiable facts about a topic and returns the raw
// findings together with the deduplicated citation sources.
package research

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/sirupsen/logrus"

	"github.com/pdiddy/veriviz/internal/provider"
	"github.com/pdiddy/veriviz/internal/sources"
	"github.com/pdiddy/veriviz/pkg/types"
)

// ErrFailed marks a failed research call. The pipeline cannot continue
// without research text, so callers treat it as fatal.
var ErrFailed = errors.New("research failed")

// FallbackText replaces an empty model answer so later stages still run.
const FallbackText = "No research data found."

var promptTmpl = template.Must(template.New("research").Parse(`Conduct thorough research on the topic: "{{.Topic}}".
Focus on finding recent, verifiable statistics, data trends, and key facts that would appeal to a {{.Audience}} audience.
Provide a comprehensive summary of the findings including specific numbers and dates where available.`))

// Findings is the output of the research stage.
type Findings struct {
	// Text is the model's free-text research, or FallbackText.
	Text string

	// Sources are the usable citations, deduplicated by URI in first-seen order.
	Sources []types.Source
}

// Client calls a TextGenerator with the research prompt.
type Client struct {
	gen       provider.TextGenerator
	model     string
	reasoning provider.ReasoningEffort
	logger    logrus.FieldLogger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a research client. An empty model falls back to
// types.DefaultTextModel and an empty reasoning setting to none.
func New(gen provider.TextGenerator, cfg types.ResearchConfig, opts ...Option) (*Client, error) {
	if gen == nil {
		return nil, errors.New("research client requires a text generator")
	}
	effort, err := provider.ParseReasoningEffort(cfg.Reasoning)
	if err != nil {
		return nil, fmt.Errorf("research config: %w", err)
	}
	model := cfg.Model
	if model == "" {
		model = types.DefaultTextModel
	}

	c := &Client{
		gen:       gen,
		model:     model,
		reasoning: effort,
		logger:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Research runs one grounded generation call. Any provider error is
// returned wrapped in ErrFailed with the upstream message preserved.
func (c *Client) Research(ctx context.Context, topic string, audience types.Audience) (Findings, error) {
	prompt, err := renderPrompt(topic, audience)
	if err != nil {
		return Findings{}, fmt.Errorf("%w: rendering prompt: %v", ErrFailed, err)
	}

	res, err := c.gen.GenerateText(ctx, c.model, prompt, provider.TextOptions{
		EnableWebGrounding: true,
		Reasoning:          c.reasoning,
	})
	if err != nil {
		return Findings{}, fmt.Errorf("%w: %w", ErrFailed, err)
	}

	text := res.Text
	if strings.TrimSpace(text) == "" {
		c.logger.WithField("topic", topic).Info("model returned no research text, using fallback")
		text = FallbackText
	}

	found := sources.Dedupe(candidates(res.Citations))
	c.logger.WithFields(logrus.Fields{
		"topic":     topic,
		"citations": len(res.Citations),
		"sources":   len(found),
	}).Debug("research finished")

	return Findings{Text: text, Sources: found}, nil
}

// candidates maps provider citations to source candidates. Citations
// without any web reference become nil entries, which Dedupe drops.
func candidates(cites []provider.Citation) []*types.Source {
	out := make([]*types.Source, len(cites))
	for i, c := range cites {
		if c.Title == "" && c.URI == "" {
			continue
		}
		out[i] = &types.Source{Title: c.Title, URI: c.URI}
	}
	return out
}

func renderPrompt(topic string, audience types.Audience) (string, error) {
	var buf bytes.Buffer
	err := promptTmpl.Execute(&buf, struct {
		Topic    string
		Audience types.Audience
	}{topic, audience})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
