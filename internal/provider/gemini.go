// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/pdiddy/veriviz/internal/schema"
)

// GeminiConfig holds the connection settings for the Gemini API.
type GeminiConfig struct {
	// APIKey authenticates requests. Required.
	APIKey string

	// BaseURL overrides the API endpoint. Tests point it at httptest servers.
	BaseURL string

	// RequestsPerMinute throttles calls made through this client (0 = unlimited).
	RequestsPerMinute int

	// HTTPClient overrides the transport (nil uses the SDK default).
	HTTPClient *http.Client
}

// Gemini implements TextGenerator, SchemaGenerator and ImageGenerator with a
// single genai client. It is safe for concurrent use.
type Gemini struct {
	client  *genai.Client
	limiter *rate.Limiter
	logger  logrus.FieldLogger
}

// GeminiOption configures a Gemini client.
type GeminiOption func(*Gemini)

// WithGeminiLogger sets the logger used for request-level debug output.
func WithGeminiLogger(logger logrus.FieldLogger) GeminiOption {
	return func(g *Gemini) {
		g.logger = logger
	}
}

var (
	_ TextGenerator   = (*Gemini)(nil)
	_ SchemaGenerator = (*Gemini)(nil)
	_ ImageGenerator  = (*Gemini)(nil)
)

// NewGemini creates a Gemini client. It fails when no API key is configured.
func NewGemini(ctx context.Context, cfg GeminiConfig, opts ...GeminiOption) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("missing API key for Gemini provider")
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating Gemini client: %w", err)
	}

	g := &Gemini{
		client:  client,
		limiter: newLimiter(cfg.RequestsPerMinute),
		logger:  logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// newLimiter spreads rpm requests evenly over a minute with no burst.
func newLimiter(rpm int) *rate.Limiter {
	if rpm <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1)
}

// GenerateText calls the model with optional Google Search grounding and a
// fixed thinking budget derived from opts.Reasoning.
func (g *Gemini) GenerateText(ctx context.Context, model, prompt string, opts TextOptions) (TextResult, error) {
	config := &genai.GenerateContentConfig{
		ThinkingConfig: &genai.ThinkingConfig{
			ThinkingBudget: genai.Ptr(opts.Reasoning.thinkingBudget()),
		},
	}
	if opts.EnableWebGrounding {
		config.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}

	resp, err := g.generate(ctx, model, prompt, config)
	if err != nil {
		return TextResult{}, err
	}

	return TextResult{
		Text:      resp.Text(),
		Citations: citations(resp),
	}, nil
}

// GenerateStructured asks for application/json output constrained to shape
// and returns the raw text. Callers validate the payload themselves.
func (g *Gemini) GenerateStructured(ctx context.Context, model, prompt string, shape *schema.Schema) (string, error) {
	if shape == nil {
		return "", errors.New("structured generation requires a response schema")
	}
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   toGenaiSchema(shape),
	}

	resp, err := g.generate(ctx, model, prompt, config)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// GenerateImage calls an image model and returns every content part of the
// first candidate, with inline data re-encoded as base64.
func (g *Gemini) GenerateImage(ctx context.Context, model, prompt string, opts ImageOptions) (ImageResult, error) {
	config := &genai.GenerateContentConfig{}
	if opts.AspectRatio != "" {
		config.ImageConfig = &genai.ImageConfig{AspectRatio: opts.AspectRatio}
	}

	resp, err := g.generate(ctx, model, prompt, config)
	if err != nil {
		return ImageResult{}, err
	}

	var result ImageResult
	if len(resp.Candidates) == 0 || resp.Candidates[0] == nil || resp.Candidates[0].Content == nil {
		return result, nil
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.InlineData == nil {
			result.Parts = append(result.Parts, Part{})
			continue
		}
		result.Parts = append(result.Parts, Part{
			MIMEType:   part.InlineData.MIMEType,
			Base64Data: base64.StdEncoding.EncodeToString(part.InlineData.Data),
		})
	}
	return result, nil
}

// generate waits for the limiter and issues one GenerateContent call.
// Provider errors are returned unchanged so their message reaches the user.
func (g *Gemini) generate(ctx context.Context, model, prompt string, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	if model == "" {
		return nil, errors.New("missing model for Gemini provider")
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	g.logger.WithField("model", model).Debug("calling Gemini generateContent")
	return g.client.Models.GenerateContent(ctx, model, genai.Text(prompt), config)
}

// citations extracts grounding references from the first candidate. Chunks
// without a web reference are returned as empty citations.
func citations(resp *genai.GenerateContentResponse) []Citation {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return nil
	}
	meta := resp.Candidates[0].GroundingMetadata
	if meta == nil {
		return nil
	}

	out := make([]Citation, 0, len(meta.GroundingChunks))
	for _, chunk := range meta.GroundingChunks {
		if chunk == nil || chunk.Web == nil {
			out = append(out, Citation{})
			continue
		}
		out = append(out, Citation{Title: chunk.Web.Title, URI: chunk.Web.URI})
	}
	return out
}

var genaiTypes = map[schema.Type]genai.Type{
	schema.TypeString:  genai.TypeString,
	schema.TypeNumber:  genai.TypeNumber,
	schema.TypeInteger: genai.TypeInteger,
	schema.TypeBoolean: genai.TypeBoolean,
	schema.TypeArray:   genai.TypeArray,
	schema.TypeObject:  genai.TypeObject,
}

// toGenaiSchema converts the neutral schema description to the Gemini dialect.
func toGenaiSchema(s *schema.Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:        genaiTypes[s.Type],
		Description: s.Description,
		Required:    s.Required,
		Enum:        s.Enum,
		Items:       toGenaiSchema(s.Items),
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = toGenaiSchema(prop)
		}
	}
	return out
}
