package extractor

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRepairArguments(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		repaired bool
	}{
		{name: "valid", input: `{"title":"a"}`, repaired: false},
		{name: "empty", input: "", repaired: true},
		{name: "code fence", input: "```json\n{\"title\":\"a\"}\n```", repaired: true},
		{name: "surrounding prose", input: `here you go: {"title":"a"} thanks`, repaired: true},
		{name: "trailing comma", input: `{"title":"a",}`, repaired: true},
		{name: "single quotes", input: `{'title': 'a'}`, repaired: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, repaired := repairArguments(tt.input)
			assert.Equal(t, tt.repaired, repaired)
			assert.True(t, json.Valid([]byte(out)), "output %q is not valid json", out)
		})
	}
}
