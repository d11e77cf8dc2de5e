package docsync

// NamedStyle is a paragraph style applied by SetParagraphStyle.
type NamedStyle string

const (
	StyleHeading1   NamedStyle = "HEADING_1"
	StyleNormalText NamedStyle = "NORMAL_TEXT"
)

// Operation is one edit of a batch. Indices of each operation assume every
// earlier operation of the same batch has been applied.
type Operation interface {
	operation()
}

// DeleteRange removes [Start, End).
type DeleteRange struct {
	Start int64
	End   int64
}

// InsertText inserts Text before Index.
type InsertText struct {
	Index int64
	Text  string
}

// SetParagraphStyle restyles every paragraph overlapping [Start, End).
type SetParagraphStyle struct {
	Start int64
	End   int64
	Style NamedStyle
}

func (DeleteRange) operation()       {}
func (InsertText) operation()        {}
func (SetParagraphStyle) operation() {}

// Section is the rendered form of one issue.
type Section struct {
	Key    string
	Header string
	Body   string
}

// Text is the header line followed by the body.
func (s Section) Text() string {
	return s.Header + "\n" + s.Body
}

// layout concatenates sections starting at index start and returns the text
// with the style operations for each section's header and body.
func layout(start int64, sections []Section) (string, []Operation) {
	type acc struct {
		cursor int64
		text   []byte
		styles []Operation
	}

	state := acc{cursor: start}
	for _, s := range sections {
		headerEnd := state.cursor + utf16Len(s.Header)
		bodyStart := headerEnd + 1
		bodyEnd := bodyStart + utf16Len(s.Body)

		state = acc{
			cursor: bodyEnd,
			text:   append(state.text, s.Text()...),
			styles: append(state.styles,
				SetParagraphStyle{Start: state.cursor, End: headerEnd, Style: StyleHeading1},
				SetParagraphStyle{Start: bodyStart, End: bodyEnd, Style: StyleNormalText},
			),
		}
	}
	return string(state.text), state.styles
}

// PlanSectionReplace replaces the section of s.Key in place or, when the
// document has none, appends it after a newline separator.
func PlanSectionReplace(doc Structure, s Section) []Operation {
	var ops []Operation
	var cursor int64

	if r, ok := Locate(doc.Blocks, s.Key); ok {
		ops = append(ops, DeleteRange{Start: r.StartIndex, End: r.EndIndex})
		cursor = r.StartIndex
	} else {
		cursor = doc.EndIndex()
		if doc.HasText() {
			ops = append(ops, InsertText{Index: cursor, Text: "\n"})
			cursor++
		}
	}

	text, styles := layout(cursor, []Section{s})
	ops = append(ops, InsertText{Index: cursor, Text: text})
	return append(ops, styles...)
}

// PlanWipeAndRewrite clears the document body and writes sections in order
// as one insertion.
func PlanWipeAndRewrite(doc Structure, sections []Section) []Operation {
	var ops []Operation

	if end := doc.EndIndex(); end > 1 {
		ops = append(ops, DeleteRange{Start: 1, End: end})
	}
	if len(sections) == 0 {
		return ops
	}

	text, styles := layout(1, sections)
	ops = append(ops, InsertText{Index: 1, Text: text})
	return append(ops, styles...)
}
