package openai

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRepairJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "valid json untouched",
			input: `{"items":[{"index_1":0,"index_2":1}]}`,
			want:  `{"items":[{"index_1":0,"index_2":1}]}`,
		},
		{
			name:  "missing opening quote on key",
			input: `{"items":[{"index_1":0, index_2":1}]}`,
			want:  `{"items":[{"index_1":0, "index_2":1}]}`,
		},
		{
			name:  "trailing comma in array",
			input: `{"items":[{"index_1":0},]}`,
			want:  `{"items":[{"index_1":0}]}`,
		},
		{
			name:  "trailing comma in object",
			input: "{\"index_1\":0,\n}",
			want:  "{\"index_1\":0\n}",
		},
		{
			name:  "comma inside string kept",
			input: `{"name":"Milk, ]"}`,
			want:  `{"name":"Milk, ]"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := repairJSON(tt.input)
			assert.Equal(t, tt.want, got)
			assert.True(t, json.Valid([]byte(got)), "repaired output should be valid JSON: %s", got)
		})
	}
}

func TestStripCodeFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripCodeFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFences("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFences("  {\"a\":1}  "))
}
