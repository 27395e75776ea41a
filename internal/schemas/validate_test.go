package schemas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const raceSchema = `{
  "type": "object",
  "required": ["name", "year"],
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "year": {"type": "integer", "minimum": 1897},
    "events": {"type": "array", "items": {"type": "string"}}
  },
  "additionalProperties": false
}`

func TestCompile_InvalidSchema(t *testing.T) {
	_, err := Compile("broken", `{"type": 12}`)
	var loadErr *SchemaLoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, "broken", loadErr.Name)
}

func TestValidate_YAMLDocument(t *testing.T) {
	s, err := Compile("race", raceSchema)
	require.NoError(t, err)

	tests := []struct {
		name       string
		doc        string
		wantErr    bool
		wantFields []string
	}{
		{name: "valid", doc: "name: Chicago Marathon\nyear: 2024\nevents: [Marathon]\n"},
		{name: "missing year", doc: "name: Chicago Marathon\n", wantErr: true, wantFields: []string{"(root)"}},
		{name: "wrong type", doc: "name: Chicago Marathon\nyear: soon\n", wantErr: true, wantFields: []string{"year"}},
		{name: "too early", doc: "name: Chicago Marathon\nyear: 1800\n", wantErr: true, wantFields: []string{"year"}},
		{name: "unknown key", doc: "name: X\nyear: 2024\ncity: Chicago\n", wantErr: true},
		{name: "nested item", doc: "name: X\nyear: 2024\nevents: [1]\n", wantErr: true, wantFields: []string{"events.0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var doc any
			require.NoError(t, yaml.Unmarshal([]byte(tt.doc), &doc))

			err := s.Validate(doc)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			require.NotEmpty(t, ve.Errors)
			fields := make([]string, 0, len(ve.Errors))
			for _, fe := range ve.Errors {
				fields = append(fields, fe.Field)
			}
			for _, want := range tt.wantFields {
				assert.Contains(t, fields, want)
			}
			assert.Contains(t, ve.Error(), "validation failed")
			assert.NotEmpty(t, ve.Summary())
		})
	}
}

func TestValidate_MapAnyKeys(t *testing.T) {
	s, err := Compile("race", raceSchema)
	require.NoError(t, err)

	doc := map[any]any{"name": "Boston Marathon", "year": 2024}
	assert.NoError(t, s.Validate(doc))
}
