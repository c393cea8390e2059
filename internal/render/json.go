// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package render

import (
	"encoding/json"
	"io"
)

// JSONWriter outputs reports as indented JSON for tool integration. The
// image payload is included inline.
type JSONWriter struct {
	output io.Writer
}

// NewJSONWriter creates a JSONWriter that outputs to w.
func NewJSONWriter(w io.Writer) *JSONWriter {
	return &JSONWriter{output: w}
}

// Write outputs doc as JSON.
func (w *JSONWriter) Write(doc *Document) (int, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return 0, err
	}
	data = append(data, '\n')
	return w.output.Write(data)
}
