package prompt

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfirm(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"y\n", true},
		{"Y\n", true},
		{"yes\n", true},
		{" YES \n", true},
		{"n\n", false},
		{"no\n", false},
		{"\n", false},
		{"", false},
		{"maybe\n", false},
		{"y", true},
	}

	for _, tt := range tests {
		var out bytes.Buffer
		p := New(strings.NewReader(tt.input), &out)

		ok, err := p.Confirm("Overwrite output.pdf?")
		require.NoError(t, err)
		assert.Equal(t, tt.expected, ok, "input %q", tt.input)
		assert.Equal(t, "Overwrite output.pdf? [y/N] ", out.String())
	}
}

func TestConfirm_ReadsSuccessiveAnswers(t *testing.T) {
	p := New(strings.NewReader("y\nn\n"), &bytes.Buffer{})

	first, err := p.Confirm("first?")
	require.NoError(t, err)
	second, err := p.Confirm("second?")
	require.NoError(t, err)

	assert.True(t, first)
	assert.False(t, second)
}

func TestAlways(t *testing.T) {
	ok, err := Always(true).Confirm("anything")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Always(false).Confirm("anything")
	require.NoError(t, err)
	assert.False(t, ok)
}
