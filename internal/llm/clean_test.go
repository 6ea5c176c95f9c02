package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "plain array", raw: `[{"a":1}]`, want: `[{"a":1}]`},
		{name: "json fence", raw: "```json\n[{\"a\":1}]\n```", want: `[{"a":1}]`},
		{name: "bare fence", raw: "```\n[]\n```", want: `[]`},
		{name: "leading prose", raw: "Here you go:\n[1, 2]\nThanks!", want: `[1, 2]`},
		{name: "object payload", raw: "```json\n{\"transactions\": [1]}\n```", want: `{"transactions": [1]}`},
		{name: "whitespace", raw: "  \n [ ] \n ", want: `[ ]`},
		{name: "single line fence", raw: "```", want: "```"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanJSON(tt.raw))
		})
	}
}
