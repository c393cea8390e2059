// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package visual generates the report illustration from the prompt chosen
// during structuring.
package visual

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/pdiddy/veriviz/internal/provider"
	"github.com/pdiddy/veriviz/pkg/types"
)

var (
	// ErrFailed marks a failed image generation call.
	ErrFailed = errors.New("image generation failed")

	// ErrNoImageReturned is returned, wrapped in ErrFailed, when the
	// response carries no inline image data.
	ErrNoImageReturned = errors.New("no image data returned from model")
)

// Client calls an ImageGenerator with a fixed aspect ratio.
type Client struct {
	gen         provider.ImageGenerator
	model       string
	aspectRatio string
	logger      logrus.FieldLogger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates an image client. Empty config fields fall back to
// types.DefaultImageModel and types.DefaultAspectRatio.
func New(gen provider.ImageGenerator, cfg types.ImageConfig, opts ...Option) (*Client, error) {
	if gen == nil {
		return nil, errors.New("image client requires an image generator")
	}
	c := &Client{
		gen:         gen,
		model:       cfg.Model,
		aspectRatio: cfg.AspectRatio,
		logger:      logrus.StandardLogger(),
	}
	if c.model == "" {
		c.model = types.DefaultImageModel
	}
	if c.aspectRatio == "" {
		c.aspectRatio = types.DefaultAspectRatio
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// GenerateImage returns the first inline image part of the response. It is
// attempted once; callers decide whether a failure matters.
func (c *Client) GenerateImage(ctx context.Context, prompt string) (types.GeneratedImage, error) {
	res, err := c.gen.GenerateImage(ctx, c.model, prompt, provider.ImageOptions{AspectRatio: c.aspectRatio})
	if err != nil {
		return types.GeneratedImage{}, fmt.Errorf("%w: %w", ErrFailed, err)
	}

	for _, part := range res.Parts {
		if part.Base64Data == "" {
			continue
		}
		return types.GeneratedImage{EncodedContent: part.Base64Data, MIMEType: part.MIMEType}, nil
	}
	c.logger.WithField("parts", len(res.Parts)).Debug("image response had no inline data")
	return types.GeneratedImage{}, fmt.Errorf("%w: %w", ErrFailed, ErrNoImageReturned)
}
