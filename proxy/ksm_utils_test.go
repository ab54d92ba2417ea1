package proxy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCustomStrings(t *testing.T) {
	var fields = []map[string]any{
		{"label": "Google Groups", "value": []any{"eng@x.com\nops@x.com", 5}},
		{"label": "Google Groups", "value": "research@x.com"},
		{"label": "Google Groups", "value": nil},
		{"label": "Google Groups"},
	}
	assert.Equal(t, []string{"eng@x.com\nops@x.com", "research@x.com"}, ParseCustomStrings(fields))
	assert.Nil(t, ParseCustomStrings(nil))
}

func TestCustomBoolean(t *testing.T) {
	var b, ok = customBoolean([]map[string]any{{"value": []any{"Yes"}}})
	assert.True(t, ok)
	assert.True(t, b)

	_, ok = customBoolean(nil)
	assert.False(t, ok)

	_, ok = customBoolean([]map[string]any{{"value": []any{"maybe"}}})
	assert.False(t, ok)
}
