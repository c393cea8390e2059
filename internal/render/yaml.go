// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package render

import (
	"io"

	"go.yaml.in/yaml/v3"
)

// YAMLWriter outputs reports as YAML. The image payload is left out; the
// exported image file is referenced by image_path.
type YAMLWriter struct {
	output io.Writer
}

// NewYAMLWriter creates a YAMLWriter that outputs to w.
func NewYAMLWriter(w io.Writer) *YAMLWriter {
	return &YAMLWriter{output: w}
}

// Write outputs doc as YAML.
func (w *YAMLWriter) Write(doc *Document) (int, error) {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return 0, err
	}
	return w.output.Write(data)
}
