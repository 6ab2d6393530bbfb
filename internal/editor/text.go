package editor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var blockElements = map[string]bool{
	"p": true, "div": true, "li": true, "blockquote": true, "pre": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"tr": true, "dt": true, "dd": true, "hr": true,
}

var skippedElements = map[string]bool{
	"script": true, "style": true, "head": true, "template": true,
}

// HTMLToText returns the plain text of markup with a newline after every
// block element. Markup without any tags is returned unchanged.
func HTMLToText(markup string) string {
	if strings.TrimSpace(markup) == "" {
		return ""
	}
	if !strings.Contains(markup, "<") {
		return html.UnescapeString(markup)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return markup
	}

	var sb strings.Builder
	for _, n := range doc.Find("body").Nodes {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			writeText(&sb, c, false)
		}
	}
	out := sb.String()
	if out != "" && !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	return out
}

func writeText(sb *strings.Builder, n *html.Node, inPre bool) {
	switch n.Type {
	case html.TextNode:
		if !inPre && strings.TrimSpace(n.Data) == "" && strings.Contains(n.Data, "\n") {
			return
		}
		sb.WriteString(n.Data)
		return
	case html.ElementNode:
	default:
		return
	}

	tag := n.Data
	if skippedElements[tag] {
		return
	}
	if tag == "br" {
		sb.WriteByte('\n')
		return
	}

	block := blockElements[tag]
	if block && sb.Len() > 0 && !strings.HasSuffix(sb.String(), "\n") {
		sb.WriteByte('\n')
	}

	start := sb.Len()
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(sb, c, inPre || tag == "pre")
	}
	if !block {
		return
	}

	// A block always ends its line; a trailing <br> already did so.
	if sb.Len() == start || !strings.HasSuffix(sb.String(), "\n") {
		sb.WriteByte('\n')
	}
}

// TextToHTML renders plain text as one paragraph per line. Blank lines
// become empty paragraphs so that they survive a round trip.
func TextToHTML(text string) string {
	if text == "" {
		return ""
	}
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")

	var sb strings.Builder
	for _, line := range lines {
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			sb.WriteString("<p><br></p>")
			continue
		}
		sb.WriteString("<p>")
		sb.WriteString(html.EscapeString(line))
		sb.WriteString("</p>")
	}
	return sb.String()
}
