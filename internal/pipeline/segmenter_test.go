package pipeline

import (
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name  string
		input string
		texts []string
		lines []int
	}{
		{"two lines", "Hello\nWorld", []string{"Hello", "World"}, []int{1, 2}},
		{"blank lines skipped", "\n  Hello \n\n\t\nWorld\n", []string{"Hello", "World"}, []int{2, 5}},
		{"crlf", "one\r\ntwo\r\n\r\nthree", []string{"one", "two", "three"}, []int{1, 2, 4}},
		{"bare cr", "one\rtwo", []string{"one", "two"}, []int{1, 2}},
		{"single line", "only", []string{"only"}, []int{1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seq, err := Split(tt.input)
			require.NoError(t, err)

			units := slices.Collect(seq)
			require.Len(t, units, len(tt.texts))
			assert.Equal(t, len(tt.texts), Count(tt.input))

			for i, u := range units {
				assert.Equal(t, i, u.Index)
				assert.Equal(t, tt.texts[i], u.Text)
				assert.Equal(t, tt.lines[i], u.Line)
			}
		})
	}
}

func TestSplit_Empty(t *testing.T) {
	for _, input := range []string{"", "   ", "\n\n", "\r\n \t\r\n"} {
		seq, err := Split(input)
		assert.Nil(t, seq)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrEmptyInput)

		var empty *EmptyInputError
		assert.True(t, errors.As(err, &empty))
		assert.Zero(t, Count(input))
	}
}

func TestSplit_Restartable(t *testing.T) {
	seq, err := Split("a\nb\nc")
	require.NoError(t, err)

	first := slices.Collect(seq)
	second := slices.Collect(seq)
	assert.Equal(t, first, second)
}

func TestSplit_StopsEarly(t *testing.T) {
	seq, err := Split("a\nb\nc")
	require.NoError(t, err)

	var got []string
	for u := range seq {
		got = append(got, u.Text)
		if len(got) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"a", "b"}, got)
}
