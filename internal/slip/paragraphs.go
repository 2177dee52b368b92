package slip

import (
	"iter"
	"slices"
	"strings"
)

// DefaultParagraphMarker separates paragraphs in long register text.
const DefaultParagraphMarker = "br"

// Splitter turns free text into paragraphs. Implementations must trim each
// paragraph and drop the ones left empty. The returned sequence may be
// ranged over any number of times.
type Splitter interface {
	Split(text string) iter.Seq[string]
}

// MarkerSplitter splits on every occurrence of Marker as a bare substring,
// including occurrences inside words.
type MarkerSplitter struct {
	Marker string
}

// Split implements Splitter.
func (s MarkerSplitter) Split(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		if text == "" {
			return
		}
		if s.Marker == "" || !strings.Contains(text, s.Marker) {
			if p := strings.TrimSpace(text); p != "" {
				yield(p)
			}
			return
		}
		for part := range strings.SplitSeq(text, s.Marker) {
			p := strings.TrimSpace(part)
			if p == "" {
				continue
			}
			if !yield(p) {
				return
			}
		}
	}
}

// LineSeparatorSplitter splits on line feeds, carriage returns and the
// Unicode line and paragraph separators.
type LineSeparatorSplitter struct{}

// Split implements Splitter.
func (LineSeparatorSplitter) Split(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, part := range strings.FieldsFunc(text, isLineBreak) {
			p := strings.TrimSpace(part)
			if p == "" {
				continue
			}
			if !yield(p) {
				return
			}
		}
	}
}

func isLineBreak(r rune) bool {
	return r == '\n' || r == '\r' || r == '\u2028' || r == '\u2029'
}

// Paragraphs collects the paragraphs of text.
func Paragraphs(s Splitter, text string) []string {
	return slices.Collect(s.Split(text))
}
