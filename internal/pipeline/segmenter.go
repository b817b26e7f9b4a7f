package pipeline

import (
	"iter"
	"strings"
)

// Split splits text into narration units, one per non-blank line, in
// source order. The returned sequence is lazy and may be ranged over any
// number of times. Lines may end in \n, \r\n or \r.
func Split(text string) (iter.Seq[Unit], error) {
	if Count(text) == 0 {
		return nil, &EmptyInputError{Reason: "no non-blank lines"}
	}

	return func(yield func(Unit) bool) {
		index := 0
		for line, raw := range lines(text) {
			t := strings.TrimSpace(raw)
			if t == "" {
				continue
			}
			if !yield(Unit{Index: index, Line: line, Text: t}) {
				return
			}
			index++
		}
	}, nil
}

// Count returns the number of non-blank lines in text.
func Count(text string) int {
	n := 0
	for _, raw := range lines(text) {
		if strings.TrimSpace(raw) != "" {
			n++
		}
	}
	return n
}

// lines yields each line of text with its one-based line number.
func lines(text string) iter.Seq2[int, string] {
	return func(yield func(int, string) bool) {
		line := 1
		for text != "" {
			i := strings.IndexAny(text, "\r\n")
			if i < 0 {
				yield(line, text)
				return
			}

			if !yield(line, text[:i]) {
				return
			}

			if text[i] == '\r' && i+1 < len(text) && text[i+1] == '\n' {
				i++
			}
			text = text[i+1:]
			line++
		}
	}
}
