package shell

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArgs(t *testing.T) {
	tests := []struct {
		line string
		want []string
	}{
		{line: "", want: nil},
		{line: "   ", want: nil},
		{line: "boards", want: []string{"boards"}},
		{line: "  move  n1\t10 20 ", want: []string{"move", "n1", "10", "20"}},
		{line: `rename b1 "Sprint 2"`, want: []string{"rename", "b1", "Sprint 2"}},
		{line: `edit n1 'it''s'`, want: []string{"edit", "n1", "its"}},
		{line: `edit n1 "say \"hi\""`, want: []string{"edit", "n1", `say "hi"`}},
		{line: `edit n1 ""`, want: []string{"edit", "n1", ""}},
		{line: `new-board Retro\ 2`, want: []string{"new-board", "Retro 2"}},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := ParseArgs(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseArgsErrors(t *testing.T) {
	_, err := ParseArgs(`rename b1 "Sprint`)
	assert.EqualError(t, err, `unterminated " quote`)

	_, err = ParseArgs(`edit n1 abc\`)
	assert.EqualError(t, err, "trailing backslash")
}
