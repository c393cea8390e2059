// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// AIConfig holds settings shared by every call to the Generative AI API.
type AIConfig struct {
	// APIKey is the authentication key for the Gemini API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// BaseURL overrides the API endpoint (empty uses the SDK default).
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`

	// RequestsPerMinute throttles outgoing calls on the client side (0 = unlimited).
	RequestsPerMinute int `json:"requests_per_minute" yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
}

// ResearchConfig holds settings for the grounded research step.
type ResearchConfig struct {
	// Model is the text model used for research (e.g. "gemini-3-flash-preview").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// Reasoning is the reasoning effort: none, low, medium or high (default none).
	Reasoning string `json:"reasoning" yaml:"reasoning" mapstructure:"reasoning"`
}

// StructuringConfig holds settings for the schema-constrained structuring step.
type StructuringConfig struct {
	// Model is the text model used for structuring.
	Model string `json:"model" yaml:"model" mapstructure:"model"`
}

// ImageConfig holds settings for the illustration step.
type ImageConfig struct {
	// Model is the image model (e.g. "gemini-2.5-flash-image").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// AspectRatio is the requested image aspect ratio (default "16:9").
	AspectRatio string `json:"aspect_ratio" yaml:"aspect_ratio" mapstructure:"aspect_ratio"`
}

// RunConfig holds orchestration settings.
type RunConfig struct {
	// RunTimeout bounds one whole run (0 = no deadline).
	RunTimeout time.Duration `json:"run_timeout" yaml:"run_timeout" mapstructure:"run_timeout"`

	// Concurrency is the number of batch queries run at once (default 2).
	Concurrency int `json:"concurrency" yaml:"concurrency" mapstructure:"concurrency"`
}

// OutputFormat selects the report file format.
type OutputFormat string

const (
	OutputMarkdown OutputFormat = "markdown"
	OutputJSON     OutputFormat = "json"
	OutputYAML     OutputFormat = "yaml"

	// OutputCSL writes only the cited sources as a CSL-YAML bibliography.
	OutputCSL OutputFormat = "csl"
)

// OutputConfig holds settings for writing reports to disk.
type OutputConfig struct {
	// Dir is the directory for report and image files (default "output/reports").
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`

	// Format selects the report format: markdown, json, yaml or csl.
	Format OutputFormat `json:"format" yaml:"format" mapstructure:"format"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// File is an optional log file appended to alongside stderr.
	File string `json:"file,omitempty" yaml:"file,omitempty" mapstructure:"file"`
}

// ServeConfig holds settings for the HTTP server.
type ServeConfig struct {
	// Addr is the listen address (default ":8080").
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`
}

// Config groups all configuration sections.
type Config struct {
	AI          AIConfig          `json:"ai" yaml:"ai" mapstructure:"ai"`
	Research    ResearchConfig    `json:"research" yaml:"research" mapstructure:"research"`
	Structuring StructuringConfig `json:"structuring" yaml:"structuring" mapstructure:"structuring"`
	Image       ImageConfig       `json:"image" yaml:"image" mapstructure:"image"`
	Pipeline    RunConfig         `json:"pipeline" yaml:"pipeline" mapstructure:"pipeline"`
	Output      OutputConfig      `json:"output" yaml:"output" mapstructure:"output"`
	Log         LogConfig         `json:"log" yaml:"log" mapstructure:"log"`
	Serve       ServeConfig       `json:"serve" yaml:"serve" mapstructure:"serve"`
}

const (
	DefaultTextModel   = "gemini-3-flash-preview"
	DefaultImageModel  = "gemini-2.5-flash-image"
	DefaultAspectRatio = "16:9"
)

// DefaultConfig returns the configuration used when no file, flag or
// environment variable overrides a key.
func DefaultConfig() Config {
	return Config{
		Research: ResearchConfig{
			Model:     DefaultTextModel,
			Reasoning: "none",
		},
		Structuring: StructuringConfig{
			Model: DefaultTextModel,
		},
		Image: ImageConfig{
			Model:       DefaultImageModel,
			AspectRatio: DefaultAspectRatio,
		},
		Pipeline: RunConfig{
			Concurrency: 2,
		},
		Output: OutputConfig{
			Dir:    "output/reports",
			Format: OutputMarkdown,
		},
		Log: LogConfig{
			Level: "info",
		},
		Serve: ServeConfig{
			Addr: ":8080",
		},
	}
}
