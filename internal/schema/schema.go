// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package schema describes the shape of structured model output once, in a
// form that is independent of any provider's schema dialect. The same
// description is sent to the provider (converted by the provider adapter)
// and compiled locally into a JSON Schema validator that checks the
// returned payload before it is trusted.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Type is a JSON Schema primitive type name.
type Type string

const (
	TypeString  Type = "string"
	TypeNumber  Type = "number"
	TypeInteger Type = "integer"
	TypeBoolean Type = "boolean"
	TypeArray   Type = "array"
	TypeObject  Type = "object"
)

// Schema is a subset of JSON Schema sufficient for model response shapes.
type Schema struct {
	Type        Type               `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
	Items       *Schema            `json:"items,omitempty"`

	// AdditionalProperties, when set to false, rejects object keys not
	// listed in Properties.
	AdditionalProperties *bool `json:"additionalProperties,omitempty"`
}

// Closed returns a pointer to false for AdditionalProperties.
func Closed() *bool {
	b := false
	return &b
}

// JSON renders s as a JSON Schema document.
func (s *Schema) JSON() ([]byte, error) {
	return json.Marshal(s)
}

// resourceName is the in-memory location the compiler registers the
// document under.
const resourceName = "response.schema.json"

// Validator checks raw model output against a compiled schema.
type Validator struct {
	compiled *jsonschema.Schema
}

// Compile builds a Validator for s.
func Compile(s *Schema) (*Validator, error) {
	if s == nil {
		return nil, fmt.Errorf("compiling schema: nil schema")
	}
	raw, err := s.JSON()
	if err != nil {
		return nil, fmt.Errorf("rendering schema: %w", err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("reading schema document: %w", err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource(resourceName, doc); err != nil {
		return nil, fmt.Errorf("adding schema resource: %w", err)
	}
	compiled, err := c.Compile(resourceName)
	if err != nil {
		return nil, fmt.Errorf("compiling schema: %w", err)
	}
	return &Validator{compiled: compiled}, nil
}

// MustCompile is like Compile but panics on error. It is meant for
// package-level schemas that are fixed at build time.
func MustCompile(s *Schema) *Validator {
	v, err := Compile(s)
	if err != nil {
		panic(err)
	}
	return v
}

// Validate parses payload as JSON and checks it against the schema. It
// returns a descriptive error for invalid JSON or any schema violation.
func (v *Validator) Validate(payload string) error {
	if strings.TrimSpace(payload) == "" {
		return fmt.Errorf("empty payload")
	}
	inst, err := jsonschema.UnmarshalJSON(strings.NewReader(payload))
	if err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := v.compiled.Validate(inst); err != nil {
		return fmt.Errorf("schema violation: %w", err)
	}
	return nil
}
