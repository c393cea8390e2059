// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package provider defines the three remote model capabilities the pipeline
// depends on and implements them on top of the Gemini API. Stage clients
// depend on the interfaces so tests can supply fakes.
package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/pdiddy/veriviz/internal/schema"
)

// ReasoningEffort controls how much deliberation the model may spend
// before answering.
type ReasoningEffort string

const (
	ReasoningNone   ReasoningEffort = "none"
	ReasoningLow    ReasoningEffort = "low"
	ReasoningMedium ReasoningEffort = "medium"
	ReasoningHigh   ReasoningEffort = "high"
)

// ParseReasoningEffort maps a config string to a ReasoningEffort. An empty
// string selects ReasoningNone.
func ParseReasoningEffort(s string) (ReasoningEffort, error) {
	switch e := ReasoningEffort(strings.ToLower(strings.TrimSpace(s))); e {
	case "":
		return ReasoningNone, nil
	case ReasoningNone, ReasoningLow, ReasoningMedium, ReasoningHigh:
		return e, nil
	default:
		return "", fmt.Errorf("unknown reasoning effort %q", s)
	}
}

// thinkingBudget returns the token budget the effort maps to.
func (e ReasoningEffort) thinkingBudget() int32 {
	switch e {
	case ReasoningLow:
		return 1024
	case ReasoningMedium:
		return 8192
	case ReasoningHigh:
		return 24576
	default:
		return 0
	}
}

// TextOptions configures a free-text generation call.
type TextOptions struct {
	// EnableWebGrounding lets the model search the web and cite pages.
	EnableWebGrounding bool

	// Reasoning is the deliberation budget.
	Reasoning ReasoningEffort
}

// Citation is a grounding reference as reported by the provider. Either
// field may be empty.
type Citation struct {
	Title string
	URI   string
}

// TextResult is the output of a free-text generation call.
type TextResult struct {
	// Text is the generated text; empty when the model returned none.
	Text string

	// Citations lists grounding references in provider order.
	Citations []Citation
}

// ImageOptions configures an image generation call.
type ImageOptions struct {
	// AspectRatio is the requested aspect ratio (e.g. "16:9").
	AspectRatio string
}

// Part is one content part of an image generation response. Parts that
// carry no inline data have empty fields.
type Part struct {
	MIMEType   string
	Base64Data string
}

// ImageResult is the output of an image generation call.
type ImageResult struct {
	Parts []Part
}

// TextGenerator produces free text, optionally grounded in web search.
type TextGenerator interface {
	GenerateText(ctx context.Context, model, prompt string, opts TextOptions) (TextResult, error)
}

// SchemaGenerator produces text constrained to the given response shape.
type SchemaGenerator interface {
	GenerateStructured(ctx context.Context, model, prompt string, shape *schema.Schema) (string, error)
}

// ImageGenerator produces an image from a prompt.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, model, prompt string, opts ImageOptions) (ImageResult, error)
}
