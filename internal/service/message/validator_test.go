package message

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	v := NewValidator(10)

	tests := []struct {
		name    string
		input   string
		valid   bool
		length  int
		wantErr error
	}{
		{name: "empty", input: "", valid: false, length: 0, wantErr: ErrEmpty},
		{name: "whitespace only", input: " \t\n ", valid: false, length: 4, wantErr: ErrEmpty},
		{name: "short", input: "hello", valid: true, length: 5},
		{name: "exactly max ascii", input: strings.Repeat("a", 10), valid: true, length: 10},
		{name: "max plus one", input: strings.Repeat("a", 11), valid: false, length: 11, wantErr: ErrTooLong},
		{name: "hebrew counts runes", input: strings.Repeat("ש", 10), valid: true, length: 10},
		{name: "hebrew over max", input: strings.Repeat("ש", 11), valid: false, length: 11, wantErr: ErrTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := v.Validate(tt.input)
			assert.Equal(t, tt.valid, res.Valid)
			assert.Equal(t, tt.length, res.Length)
			assert.Equal(t, 10, res.MaxLength)
			if tt.wantErr == nil {
				assert.NoError(t, res.Error)
				return
			}
			require.Error(t, res.Error)
			assert.ErrorIs(t, res.Error, tt.wantErr)
		})
	}
}

func TestValidate_TooLongReportsLengths(t *testing.T) {
	v := NewValidator(10)
	res := v.Validate(strings.Repeat("א", 11))
	require.Error(t, res.Error)
	assert.Contains(t, res.Error.Error(), "11")
	assert.Contains(t, res.Error.Error(), "10")
}

func TestNewValidator_Default(t *testing.T) {
	v := NewValidator(0)
	assert.Equal(t, DefaultMaxLength, v.MaxLength())
	assert.True(t, v.Validate(strings.Repeat("a", DefaultMaxLength)).Valid)
	assert.False(t, v.Validate(strings.Repeat("a", DefaultMaxLength+1)).Valid)
}
