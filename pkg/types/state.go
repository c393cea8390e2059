// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// PipelineState is the progress of one research run. States advance in
// declaration order; StateError is reachable only from StateResearching and
// StateStructuring.
type PipelineState string

const (
	StateIdle            PipelineState = "idle"
	StateResearching     PipelineState = "researching"
	StateStructuring     PipelineState = "structuring"
	StateGeneratingImage PipelineState = "generating_image"
	StateComplete        PipelineState = "complete"
	StateError           PipelineState = "error"
)

// String returns the state name.
func (s PipelineState) String() string {
	return string(s)
}

// Terminal reports whether the state ends a run.
func (s PipelineState) Terminal() bool {
	return s == StateComplete || s == StateError
}

// Progress returns the completion percentage shown for the state.
func (s PipelineState) Progress() int {
	switch s {
	case StateResearching:
		return 30
	case StateStructuring:
		return 60
	case StateGeneratingImage:
		return 90
	case StateComplete, StateError:
		return 100
	default:
		return 0
	}
}

// Message returns the status line shown while the state is active.
func (s PipelineState) Message() string {
	switch s {
	case StateResearching:
		return "Scanning global database & verifying sources..."
	case StateStructuring:
		return "Analyzing data points & structuring report..."
	case StateGeneratingImage:
		return "Painting custom visualization..."
	case StateComplete:
		return "Report ready."
	case StateError:
		return "Generation failed."
	default:
		return ""
	}
}

// Snapshot is the complete pipeline state handed to observers. Each
// snapshot is an independent copy taken after one transition.
type Snapshot struct {
	// RunID identifies the run that produced the snapshot (empty while idle).
	RunID string `json:"run_id" yaml:"run_id"`

	// Epoch increases by one for every run started on the same orchestrator.
	Epoch uint64 `json:"epoch" yaml:"epoch"`

	// State is the current pipeline state.
	State PipelineState `json:"state" yaml:"state"`

	// Topic is the research topic of the run.
	Topic string `json:"topic,omitempty" yaml:"topic,omitempty"`

	// Audience is the persona of the run.
	Audience Audience `json:"audience,omitempty" yaml:"audience,omitempty"`

	// Error is the failure message when State is StateError.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`

	// Report is set once structuring succeeded.
	Report *ReportResult `json:"report,omitempty" yaml:"report,omitempty"`

	// Image is set when the illustration was generated.
	Image *GeneratedImage `json:"image,omitempty" yaml:"image,omitempty"`

	// UpdatedAt is the time of the transition.
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// Clone returns a deep copy so observers cannot mutate shared state.
func (s Snapshot) Clone() Snapshot {
	out := s
	if s.Report != nil {
		r := s.Report.Clone()
		out.Report = &r
	}
	if s.Image != nil {
		img := *s.Image
		out.Image = &img
	}
	return out
}
