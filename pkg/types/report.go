// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Source is a web page cited by the grounded research step. Two sources are
// the same source when their URI matches, whatever their titles.
type Source struct {
	// Title is the page title reported by the search grounding.
	Title string `json:"title" yaml:"title"`

	// URI is the page address. It is the equality key for deduplication.
	URI string `json:"uri" yaml:"uri"`
}

// ChartKind selects how the display layer renders ChartData.
type ChartKind string

const (
	ChartBar  ChartKind = "bar"
	ChartPie  ChartKind = "pie"
	ChartArea ChartKind = "area"
	ChartLine ChartKind = "line"
	ChartNone ChartKind = "none"
)

// ChartKinds returns the fixed chart enumeration in declaration order.
func ChartKinds() []ChartKind {
	return []ChartKind{ChartBar, ChartPie, ChartArea, ChartLine, ChartNone}
}

// Valid reports whether k is one of the declared chart kinds.
func (k ChartKind) Valid() bool {
	for _, c := range ChartKinds() {
		if c == k {
			return true
		}
	}
	return false
}

// DataPoint is one labelled value of the chart. Bar, line and area charts
// are order-sensitive, so slices of DataPoint keep insertion order.
type DataPoint struct {
	// Name is the category or x-axis label (e.g. "2023").
	Name string `json:"name" yaml:"name"`

	// Value is the numeric measurement for Name.
	Value float64 `json:"value" yaml:"value"`

	// Extra holds any additional named fields the model attached to the
	// point. They are emitted next to name and value.
	Extra map[string]any `json:"-" yaml:",inline"`
}

// MarshalJSON flattens Extra into the object alongside name and value.
func (p DataPoint) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.Extra)+2)
	for k, v := range p.Extra {
		out[k] = v
	}
	out["name"] = p.Name
	out["value"] = p.Value
	return json.Marshal(out)
}

// UnmarshalJSON reads name and value and keeps every other field in Extra.
func (p *DataPoint) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var dp DataPoint
	for k, v := range raw {
		switch k {
		case "name":
			if err := json.Unmarshal(v, &dp.Name); err != nil {
				return fmt.Errorf("data point name: %w", err)
			}
		case "value":
			if err := json.Unmarshal(v, &dp.Value); err != nil {
				return fmt.Errorf("data point value: %w", err)
			}
		default:
			var extra any
			if err := json.Unmarshal(v, &extra); err != nil {
				return fmt.Errorf("data point field %q: %w", k, err)
			}
			if dp.Extra == nil {
				dp.Extra = make(map[string]any)
			}
			dp.Extra[k] = extra
		}
	}
	*p = dp
	return nil
}

// ReportResult is the merged output of the structuring step and the
// deduplicated research sources. It is only handed out fully built.
type ReportResult struct {
	// Summary is the short audience-tailored summary of the research.
	Summary string `json:"summary" yaml:"summary"`

	// Sources lists the deduplicated grounding citations in first-seen order.
	Sources []Source `json:"sources" yaml:"sources"`

	// ChartData holds the chart points in the order the model produced them.
	ChartData []DataPoint `json:"chartData" yaml:"chart_data"`

	// ChartKind selects the chart rendering; ChartNone means no chart.
	ChartKind ChartKind `json:"chartKind" yaml:"chart_kind"`

	// ChartTitle is the heading shown above the chart.
	ChartTitle string `json:"chartTitle" yaml:"chart_title"`

	// ChartXAxis is the optional x-axis label.
	ChartXAxis string `json:"chartXAxis,omitempty" yaml:"chart_x_axis,omitempty"`

	// ChartYAxis is the optional y-axis label.
	ChartYAxis string `json:"chartYAxis,omitempty" yaml:"chart_y_axis,omitempty"`

	// ImagePrompt is the prompt handed to the image generation step.
	ImagePrompt string `json:"imagePrompt" yaml:"image_prompt"`
}

// HasChart reports whether the report carries renderable chart data.
func (r ReportResult) HasChart() bool {
	return r.ChartKind != ChartNone && len(r.ChartData) > 0
}

// Clone returns a deep copy of r. Nil slices stay nil.
func (r ReportResult) Clone() ReportResult {
	out := r
	if r.Sources != nil {
		out.Sources = append([]Source{}, r.Sources...)
	}
	if r.ChartData != nil {
		out.ChartData = make([]DataPoint, len(r.ChartData))
		for i, p := range r.ChartData {
			out.ChartData[i] = p
			if p.Extra != nil {
				out.ChartData[i].Extra = make(map[string]any, len(p.Extra))
				for k, v := range p.Extra {
					out.ChartData[i].Extra[k] = v
				}
			}
		}
	}
	return out
}

// GeneratedImage is a self-contained illustration returned by the image step.
type GeneratedImage struct {
	// EncodedContent is the base64-encoded image payload.
	EncodedContent string `json:"encodedContent" yaml:"encoded_content"`

	// MIMEType is the image media type (e.g. "image/png").
	MIMEType string `json:"mimeType" yaml:"mime_type"`
}

// DataURI returns the image as a data: URI suitable for an <img> tag.
func (g GeneratedImage) DataURI() string {
	return fmt.Sprintf("data:%s;base64,%s", g.MIMEType, g.EncodedContent)
}

// Bytes decodes the base64 payload.
func (g GeneratedImage) Bytes() ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(g.EncodedContent)
	if err != nil {
		return nil, fmt.Errorf("decoding image payload: %w", err)
	}
	return data, nil
}
