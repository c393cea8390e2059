// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package visual

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/veriviz/internal/provider"
	"github.com/pdiddy/veriviz/pkg/types"
)

type fakeImage struct {
	result provider.ImageResult
	err    error

	model  string
	prompt string
	opts   provider.ImageOptions
	calls  int
}

func (f *fakeImage) GenerateImage(_ context.Context, model, prompt string, opts provider.ImageOptions) (provider.ImageResult, error) {
	f.calls++
	f.model, f.prompt, f.opts = model, prompt, opts
	return f.result, f.err
}

func newClient(t *testing.T, gen provider.ImageGenerator) *Client {
	t.Helper()
	c, err := New(gen, types.ImageConfig{})
	require.NoError(t, err)
	return c
}

func TestGenerateImageFirstInlinePart(t *testing.T) {
	gen := &fakeImage{result: provider.ImageResult{Parts: []provider.Part{
		{},
		{MIMEType: "image/png", Base64Data: "Zmlyc3Q="},
		{MIMEType: "image/jpeg", Base64Data: "c2Vjb25k"},
	}}}
	c := newClient(t, gen)

	img, err := c.GenerateImage(context.Background(), "abstract growth graphic")
	require.NoError(t, err)
	assert.Equal(t, types.GeneratedImage{EncodedContent: "Zmlyc3Q=", MIMEType: "image/png"}, img)

	assert.Equal(t, types.DefaultImageModel, gen.model)
	assert.Equal(t, "abstract growth graphic", gen.prompt)
	assert.Equal(t, "16:9", gen.opts.AspectRatio)
}

func TestGenerateImageNoInlineData(t *testing.T) {
	for name, res := range map[string]provider.ImageResult{
		"no parts":   {},
		"text parts": {Parts: []provider.Part{{}, {}}},
	} {
		t.Run(name, func(t *testing.T) {
			c := newClient(t, &fakeImage{result: res})
			_, err := c.GenerateImage(context.Background(), "p")
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrNoImageReturned)
			assert.ErrorIs(t, err, ErrFailed)
			assert.Equal(t, "image generation failed: no image data returned from model", err.Error())
		})
	}
}

func TestGenerateImageProviderError(t *testing.T) {
	gen := &fakeImage{err: errors.New("safety filter")}
	c := newClient(t, gen)

	_, err := c.GenerateImage(context.Background(), "p")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFailed)
	assert.NotErrorIs(t, err, ErrNoImageReturned)
	assert.Equal(t, 1, gen.calls)
}

func TestNewOverrides(t *testing.T) {
	_, err := New(nil, types.ImageConfig{})
	require.Error(t, err)

	gen := &fakeImage{result: provider.ImageResult{Parts: []provider.Part{{MIMEType: "image/png", Base64Data: "eA=="}}}}
	c, err := New(gen, types.ImageConfig{Model: "img-x", AspectRatio: "1:1"})
	require.NoError(t, err)
	_, err = c.GenerateImage(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "img-x", gen.model)
	assert.Equal(t, "1:1", gen.opts.AspectRatio)
}
