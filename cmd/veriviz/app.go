// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/pdiddy/veriviz/internal/pipeline"
	"github.com/pdiddy/veriviz/internal/provider"
	"github.com/pdiddy/veriviz/internal/research"
	"github.com/pdiddy/veriviz/internal/secrets"
	"github.com/pdiddy/veriviz/internal/structure"
	"github.com/pdiddy/veriviz/internal/visual"
	"github.com/pdiddy/veriviz/pkg/types"
)

// stages holds the three stage clients built from one provider.
type stages struct {
	research  *research.Client
	structure *structure.Client
	visual    *visual.Client
}

// newStages resolves the API key and builds the Gemini provider and the
// stage clients. The clients are safe to share between orchestrators.
func newStages(ctx context.Context, c types.Config, log logrus.FieldLogger) (*stages, error) {
	key, source := secrets.ResolveAPIKey(c.AI.APIKey, loadedSecrets, os.Getenv)
	if key == "" {
		return nil, errors.New("no Gemini API key: set ai.api_key, --api-key, .secrets/gemini-api-key or GEMINI_API_KEY")
	}
	log.WithField("source", source).Debug("resolved API key")

	gemini, err := provider.NewGemini(ctx, provider.GeminiConfig{
		APIKey:            key,
		BaseURL:           c.AI.BaseURL,
		RequestsPerMinute: c.AI.RequestsPerMinute,
	}, provider.WithGeminiLogger(log))
	if err != nil {
		return nil, err
	}

	r, err := research.New(gemini, c.Research, research.WithLogger(log))
	if err != nil {
		return nil, err
	}
	s, err := structure.New(gemini, c.Structuring, structure.WithLogger(log))
	if err != nil {
		return nil, err
	}
	v, err := visual.New(gemini, c.Image, visual.WithLogger(log))
	if err != nil {
		return nil, err
	}
	return &stages{research: r, structure: s, visual: v}, nil
}

// orchestrator builds a fresh orchestrator over the shared stage clients.
func (s *stages) orchestrator(c types.Config, log logrus.FieldLogger, opts ...pipeline.Option) *pipeline.Orchestrator {
	opts = append([]pipeline.Option{
		pipeline.WithLogger(log),
		pipeline.WithRunTimeout(c.Pipeline.RunTimeout),
	}, opts...)
	return pipeline.New(s.research, s.structure, s.visual, opts...)
}
