package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainsPattern(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"бот", "%бот%"},
		{"100%", `%100\%%`},
		{"snake_case", `%snake\_case%`},
		{`C:\dir`, `%C:\\dir%`},
		{"", "%%"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ContainsPattern(tt.input))
		})
	}
}
