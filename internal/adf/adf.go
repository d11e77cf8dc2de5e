// Package adf flattens Atlassian Document Format trees into plain text.
//
// Embedded cards, mentions and macros are replaced by short placeholders and
// never expanded, so a description that embeds a Jira filter or a linked
// issue renders as a reference rather than as the referenced content.
package adf

import (
	"encoding/json"
	"strings"
)

// Node is a single node of an ADF document tree.
type Node struct {
	Type    string         `json:"type"`
	Text    string         `json:"text,omitempty"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Content []*Node        `json:"content,omitempty"`
}

// Parse decodes a raw ADF payload. Jira v2 style plain string bodies are
// wrapped in a single text node. Anything undecodable yields nil.
func Parse(raw json.RawMessage) *Node {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var node Node
	if err := json.Unmarshal(raw, &node); err == nil && node.Type != "" {
		return &node
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return &Node{Type: "text", Text: s}
	}

	return nil
}

// ToPlainText renders a node and its descendants as flat text.
func ToPlainText(node *Node) string {
	var b strings.Builder
	render(&b, node)
	return b.String()
}

// RawToPlainText is a convenience wrapper around Parse and ToPlainText.
func RawToPlainText(raw json.RawMessage) string {
	return ToPlainText(Parse(raw))
}

func render(b *strings.Builder, node *Node) {
	if node == nil {
		return
	}

	switch node.Type {
	case "doc", "paragraph", "bulletList", "orderedList", "listItem", "blockquote":
		if node.Content == nil {
			return
		}
		renderChildren(b, node)
		if node.Type != "doc" {
			b.WriteString("\n")
		}

	case "text":
		b.WriteString(node.Text)

	case "hardBreak":
		b.WriteString("\n")

	case "inlineCard", "blockCard", "embedCard":
		if url := attr(node, "url"); url != "" {
			b.WriteString(" [Link: " + url + "] ")
		} else {
			b.WriteString(" [Linked Item] ")
		}

	case "mention":
		if name := attr(node, "text"); name != "" {
			b.WriteString(" " + name + " ")
		} else {
			b.WriteString(" @user ")
		}

	case "extension", "bodiedExtension", "inlineExtension":
		key := attr(node, "extensionKey")
		if key == "" {
			key = "Extension"
		}
		b.WriteString(" [Embedded Content: " + key + "] ")

	case "table":
		for _, row := range node.Content {
			render(b, row)
		}

	case "tableRow":
		cells := make([]string, 0, len(node.Content))
		for _, cell := range node.Content {
			cells = append(cells, cellText(cell))
		}
		b.WriteString(strings.Join(cells, " | "))
		b.WriteString("\n")

	case "tableHeader", "tableCell":
		b.WriteString(cellText(node))

	default:
		renderChildren(b, node)
	}
}

func renderChildren(b *strings.Builder, node *Node) {
	for _, child := range node.Content {
		render(b, child)
	}
}

// cellText collapses a table cell onto a single line.
func cellText(cell *Node) string {
	if cell == nil {
		return ""
	}
	var b strings.Builder
	renderChildren(&b, cell)
	lines := strings.Fields(strings.ReplaceAll(b.String(), "\n", " "))
	return strings.Join(lines, " ")
}

func attr(node *Node, name string) string {
	if node.Attrs == nil {
		return ""
	}
	s, _ := node.Attrs[name].(string)
	return s
}
