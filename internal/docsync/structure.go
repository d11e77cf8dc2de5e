// Package docsync mirrors issue records into a structured document. It
// locates an issue's section among the document's paragraphs, renders
// records to text and plans the edit batches that replace a single section
// or rewrite the whole body.
package docsync

import (
	"strings"
	"unicode"
	"unicode/utf16"
)

// Block is one paragraph of the document. Offsets are half-open and counted
// in UTF-16 code units.
type Block struct {
	StartIndex int64
	EndIndex   int64

	// HeadingLevel is 1-6 for headings and 0 for any other paragraph style
	HeadingLevel int

	// Runs are the paragraph's text runs in order
	Runs []string
}

// Text joins the block's text runs.
func (b Block) Text() string {
	return strings.Join(b.Runs, "")
}

// IsSectionHeading reports whether the block can open or close a section.
func (b Block) IsSectionHeading() bool {
	return b.HeadingLevel == 1 || b.HeadingLevel == 2
}

// Structure is a point-in-time view of a document body.
type Structure struct {
	Blocks []Block
}

// EndIndex is the last editable index: the final block's end minus the
// trailing newline every document carries.
func (s Structure) EndIndex() int64 {
	if len(s.Blocks) == 0 {
		return 1
	}
	end := s.Blocks[len(s.Blocks)-1].EndIndex - 1
	if end < 1 {
		return 1
	}
	return end
}

// HasText reports whether any block holds visible text.
func (s Structure) HasText() bool {
	for _, b := range s.Blocks {
		if strings.TrimSpace(b.Text()) != "" {
			return true
		}
	}
	return false
}

// SectionRange is the span owned by one issue.
type SectionRange struct {
	StartIndex int64
	EndIndex   int64
}

// Locate finds the section for key. A section opens at a level 1 or 2
// heading whose text starts with key as a whole token, ignoring leading
// punctuation such as brackets. It closes before the next level 1 or 2
// heading, after a "---" or "***" rule, or at the document end.
func Locate(blocks []Block, key string) (SectionRange, bool) {
	start := int64(-1)

	for _, b := range blocks {
		text := strings.TrimSpace(b.Text())

		if start < 0 {
			if b.IsSectionHeading() && startsWithKey(text, key) {
				start = b.StartIndex
			}
			continue
		}

		if b.IsSectionHeading() {
			return SectionRange{StartIndex: start, EndIndex: b.StartIndex}, true
		}
		if isRule(text) {
			return SectionRange{StartIndex: start, EndIndex: b.EndIndex}, true
		}
	}

	if start < 0 {
		return SectionRange{}, false
	}
	return SectionRange{StartIndex: start, EndIndex: Structure{Blocks: blocks}.EndIndex()}, true
}

// startsWithKey reports whether text, stripped of leading non-alphanumerics,
// begins with key followed by a character that cannot continue a key.
func startsWithKey(text, key string) bool {
	if key == "" {
		return false
	}
	text = strings.TrimLeftFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if !strings.HasPrefix(text, key) {
		return false
	}
	rest := text[len(key):]
	if rest == "" {
		return true
	}
	next := []rune(rest)[0]
	return !unicode.IsLetter(next) && !unicode.IsDigit(next) && next != '-' && next != '_'
}

func isRule(text string) bool {
	return text == "---" || text == "***"
}

// utf16Len is the length of s in document index units.
func utf16Len(s string) int64 {
	var n int64
	for _, r := range s {
		n += int64(utf16.RuneLen(r))
	}
	return n
}
