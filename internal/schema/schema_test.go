// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pointSchema() *Schema {
	return &Schema{
		Type: TypeObject,
		Properties: map[string]*Schema{
			"label": {Type: TypeString},
			"kind":  {Type: TypeString, Enum: []string{"a", "b"}},
			"items": {
				Type: TypeArray,
				Items: &Schema{
					Type: TypeObject,
					Properties: map[string]*Schema{
						"name":  {Type: TypeString},
						"value": {Type: TypeNumber},
					},
					Required: []string{"name", "value"},
				},
			},
		},
		Required: []string{"label", "kind", "items"},
	}
}

func TestSchemaJSON(t *testing.T) {
	raw, err := pointSchema().JSON()
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "object", doc["type"])
	assert.ElementsMatch(t, []any{"label", "kind", "items"}, doc["required"])
	props := doc["properties"].(map[string]any)
	assert.Equal(t, []any{"a", "b"}, props["kind"].(map[string]any)["enum"])
}

func TestValidate(t *testing.T) {
	v, err := Compile(pointSchema())
	require.NoError(t, err)

	tests := []struct {
		name    string
		payload string
		wantErr string
	}{
		{
			name:    "valid",
			payload: `{"label":"x","kind":"a","items":[{"name":"n","value":1.5}]}`,
		},
		{
			name:    "extra fields allowed",
			payload: `{"label":"x","kind":"b","items":[{"name":"n","value":1,"unit":"kg"}],"note":"ok"}`,
		},
		{
			name:    "missing required",
			payload: `{"label":"x","items":[]}`,
			wantErr: "schema violation",
		},
		{
			name:    "enum violation",
			payload: `{"label":"x","kind":"c","items":[]}`,
			wantErr: "schema violation",
		},
		{
			name:    "wrong item type",
			payload: `{"label":"x","kind":"a","items":[{"name":"n","value":"one"}]}`,
			wantErr: "schema violation",
		},
		{
			name:    "not json",
			payload: `label: x`,
			wantErr: "invalid JSON",
		},
		{
			name:    "empty",
			payload: "  ",
			wantErr: "empty payload",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.payload)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateClosedObject(t *testing.T) {
	s := pointSchema()
	s.AdditionalProperties = Closed()
	raw, err := s.JSON()
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"additionalProperties":false`)

	v, err := Compile(s)
	require.NoError(t, err)

	require.NoError(t, v.Validate(`{"label":"x","kind":"a","items":[{"name":"n","value":1,"unit":"kg"}]}`))

	err = v.Validate(`{"label":"x","kind":"a","items":[],"KIND":"z"}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema violation")
}

func TestCompileNil(t *testing.T) {
	_, err := Compile(nil)
	require.Error(t, err)
}

func TestMustCompilePanicsOnBadSchema(t *testing.T) {
	assert.Panics(t, func() {
		MustCompile(&Schema{Type: "no-such-type"})
	})
}
