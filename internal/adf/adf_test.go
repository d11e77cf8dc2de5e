package adf

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paragraph(text string) *Node {
	return &Node{Type: "paragraph", Content: []*Node{{Type: "text", Text: text}}}
}

func TestToPlainTextParagraphs(t *testing.T) {
	doc := &Node{Type: "doc", Content: []*Node{paragraph("A"), paragraph("B")}}

	assert.Equal(t, "A\nB\n", ToPlainText(doc))
}

func TestToPlainTextCardsAreNotExpanded(t *testing.T) {
	testCases := []struct {
		name     string
		node     *Node
		contains string
	}{
		{
			name: "Block card with URL",
			node: &Node{
				Type:  "blockCard",
				Attrs: map[string]any{"url": "http://x"},
				// A card never carries its target inline, but make sure that
				// even if it did we would not render it.
				Content: []*Node{paragraph("EXPANDED TARGET BODY")},
			},
			contains: "[Link: http://x]",
		},
		{
			name:     "Inline card without URL",
			node:     &Node{Type: "inlineCard"},
			contains: "[Linked Item]",
		},
		{
			name:     "Embed card",
			node:     &Node{Type: "embedCard", Attrs: map[string]any{"url": "https://jira/browse/X-1"}},
			contains: "[Link: https://jira/browse/X-1]",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out := ToPlainText(tc.node)
			assert.Contains(t, out, tc.contains)
			assert.NotContains(t, out, "EXPANDED TARGET BODY")
		})
	}
}

func TestToPlainTextInlineNodes(t *testing.T) {
	doc := &Node{Type: "doc", Content: []*Node{
		{Type: "paragraph", Content: []*Node{
			{Type: "text", Text: "ping"},
			{Type: "mention", Attrs: map[string]any{"text": "@Ada"}},
			{Type: "mention"},
			{Type: "hardBreak"},
			{Type: "text", Text: "next"},
		}},
		{Type: "bodiedExtension", Attrs: map[string]any{"extensionKey": "jira-filter"}, Content: []*Node{paragraph("hundreds of rows")}},
		{Type: "extension"},
	}}

	out := ToPlainText(doc)

	assert.Equal(t, "ping @Ada  @user \nnext\n [Embedded Content: jira-filter]  [Embedded Content: Extension] ", out)
	assert.NotContains(t, out, "hundreds of rows")
}

func TestToPlainTextLists(t *testing.T) {
	doc := &Node{Type: "doc", Content: []*Node{
		{Type: "bulletList", Content: []*Node{
			{Type: "listItem", Content: []*Node{paragraph("one")}},
			{Type: "listItem", Content: []*Node{paragraph("two")}},
		}},
	}}

	assert.Equal(t, "one\n\ntwo\n\n\n", ToPlainText(doc))
}

func TestToPlainTextTable(t *testing.T) {
	row := func(cellType string, values ...string) *Node {
		r := &Node{Type: "tableRow"}
		for _, v := range values {
			r.Content = append(r.Content, &Node{Type: cellType, Content: []*Node{paragraph(v)}})
		}
		return r
	}
	doc := &Node{Type: "doc", Content: []*Node{
		{Type: "table", Content: []*Node{
			row("tableHeader", "Name", "Size"),
			row("tableCell", "alpha", "M"),
		}},
	}}

	assert.Equal(t, "Name | Size\nalpha | M\n", ToPlainText(doc))
}

func TestToPlainTextUnknownAndMissing(t *testing.T) {
	assert.Equal(t, "", ToPlainText(nil))
	assert.Equal(t, "", ToPlainText(&Node{Type: "rule"}))
	assert.Equal(t, "", ToPlainText(&Node{Type: "paragraph"}))
	assert.Equal(t, "inner", ToPlainText(&Node{Type: "panel", Content: []*Node{{Type: "text", Text: "inner"}}}))
	assert.Equal(t, "\n", ToPlainText(&Node{Type: "paragraph", Content: []*Node{}}))
}

func TestParse(t *testing.T) {
	t.Run("ADF document", func(t *testing.T) {
		raw := json.RawMessage(`{"type":"doc","version":1,"content":[{"type":"paragraph","content":[{"type":"text","text":"hello"}]}]}`)
		node := Parse(raw)
		require.NotNil(t, node)
		assert.Equal(t, "hello\n", ToPlainText(node))
	})

	t.Run("Plain string body", func(t *testing.T) {
		assert.Equal(t, "legacy body", RawToPlainText(json.RawMessage(`"legacy body"`)))
	})

	t.Run("Null and empty", func(t *testing.T) {
		assert.Nil(t, Parse(nil))
		assert.Nil(t, Parse(json.RawMessage("null")))
	})

	t.Run("Garbage", func(t *testing.T) {
		assert.Nil(t, Parse(json.RawMessage(`[1,2,3]`)))
	})
}
