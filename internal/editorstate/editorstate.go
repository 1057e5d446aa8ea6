// Package editorstate is the bridge to the rich-text editor engine. The
// operational value of a rich-text field is a Document tree; the storage value
// is the HTML string the tree renders to. The raw tree is persisted alongside
// in the article's fields_meta side table so no formatting is lost.
package editorstate

import (
	"encoding/json"
	"fmt"
	"html"
	"strings"
)

// Mark is a text formatting annotation.
type Mark struct {
	Type  string         `json:"type"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

// Node is a node of the editor document tree.
type Node struct {
	Type    string         `json:"type"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Content []Node         `json:"content,omitempty"`
	Text    string         `json:"text,omitempty"`
	Marks   []Mark         `json:"marks,omitempty"`
}

// Document is the root node of an editor state.
type Document struct {
	Content []Node `json:"content,omitempty"`
}

// Parse decodes a stored editor state.
func Parse(raw json.RawMessage) (Document, error) {
	var doc Document
	if len(raw) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Document{}, fmt.Errorf("parse editor state: %w", err)
	}
	return doc, nil
}

// Raw encodes the document for storage in fields_meta.
func (d Document) Raw() json.RawMessage {
	raw, err := json.Marshal(d)
	if err != nil {
		return json.RawMessage("{}")
	}
	return raw
}

// FromText builds a document with one paragraph per input line.
func FromText(text string) Document {
	var doc Document
	if text == "" {
		return doc
	}
	for _, line := range strings.Split(text, "\n") {
		paragraph := Node{Type: "paragraph"}
		if line != "" {
			paragraph.Content = []Node{{Type: "text", Text: line}}
		}
		doc.Content = append(doc.Content, paragraph)
	}
	return doc
}

// FromHTML builds a document from stored HTML. Only block boundaries are
// recovered; inline formatting is dropped, which is acceptable because the
// authoritative tree is kept in fields_meta and this path only runs for
// articles saved by the legacy editor.
func FromHTML(input string) Document {
	if input == "" {
		return Document{}
	}
	for _, tag := range []string{"</p>", "<br>", "<br/>", "<br />", "</li>", "</h1>", "</h2>", "</h3>", "</h4>"} {
		input = strings.ReplaceAll(input, tag, "\n")
	}
	var text strings.Builder
	inTag := false
	for _, r := range input {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			text.WriteRune(r)
		}
	}
	var lines []string
	for _, line := range strings.Split(text.String(), "\n") {
		line = strings.TrimSpace(html.UnescapeString(line))
		if line != "" {
			lines = append(lines, line)
		}
	}
	return FromText(strings.Join(lines, "\n"))
}

// PlainText flattens the document to text, one line per block.
func (d Document) PlainText() string {
	var lines []string
	for _, node := range d.Content {
		line := nodeText(node)
		lines = append(lines, line)
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}

func nodeText(node Node) string {
	if node.Type == "text" {
		return node.Text
	}
	var b strings.Builder
	for _, child := range node.Content {
		b.WriteString(nodeText(child))
	}
	return b.String()
}

// ToHTML renders the document tree to HTML.
func (d Document) ToHTML() string {
	var b strings.Builder
	for _, node := range d.Content {
		b.WriteString(renderNode(node))
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderNode(node Node) string {
	switch node.Type {
	case "paragraph":
		return fmt.Sprintf("<p>%s</p>\n", renderContent(node.Content))
	case "heading":
		level := 1
		if lvl, ok := node.Attrs["level"].(float64); ok {
			level = int(lvl)
		}
		return fmt.Sprintf("<h%d>%s</h%d>\n", level, renderContent(node.Content), level)
	case "bulletList":
		return fmt.Sprintf("<ul>\n%s</ul>\n", renderContent(node.Content))
	case "orderedList":
		return fmt.Sprintf("<ol>\n%s</ol>\n", renderContent(node.Content))
	case "listItem":
		return fmt.Sprintf("<li>%s</li>\n", renderContent(node.Content))
	case "blockquote":
		return fmt.Sprintf("<blockquote>\n%s</blockquote>\n", renderContent(node.Content))
	case "codeBlock":
		return fmt.Sprintf("<pre><code>%s</code></pre>\n", html.EscapeString(nodeText(node)))
	case "text":
		return renderTextWithMarks(node.Text, node.Marks)
	case "hardBreak":
		return "<br>"
	case "horizontalRule":
		return "<hr>\n"
	case "table":
		return fmt.Sprintf("<table>\n%s</table>\n", renderContent(node.Content))
	case "tableRow":
		return fmt.Sprintf("<tr>\n%s</tr>\n", renderContent(node.Content))
	case "tableCell":
		return fmt.Sprintf("<td>%s</td>\n", renderContent(node.Content))
	case "tableHeader":
		return fmt.Sprintf("<th>%s</th>\n", renderContent(node.Content))
	default:
		return renderContent(node.Content)
	}
}

func renderContent(content []Node) string {
	var b strings.Builder
	for _, node := range content {
		b.WriteString(renderNode(node))
	}
	return b.String()
}

func renderTextWithMarks(text string, marks []Mark) string {
	if text == "" {
		return ""
	}
	out := html.EscapeString(text)
	// Apply marks from outside in.
	for i := len(marks) - 1; i >= 0; i-- {
		switch marks[i].Type {
		case "bold":
			out = "<strong>" + out + "</strong>"
		case "italic":
			out = "<em>" + out + "</em>"
		case "underline":
			out = "<u>" + out + "</u>"
		case "strike":
			out = "<s>" + out + "</s>"
		case "code":
			out = "<code>" + out + "</code>"
		case "link":
			href, _ := marks[i].Attrs["href"].(string)
			out = fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(href), out)
		}
	}
	return out
}
