package editor

import (
	"bytes"
	"fmt"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
)

var renderer = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		highlighting.NewHighlighting(
			highlighting.WithStyle("github"),
		),
	),
)

// MarkdownToHTML renders markdown source to HTML.
func MarkdownToHTML(source string) (string, error) {
	var buf bytes.Buffer
	if err := renderer.Convert([]byte(source), &buf); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return buf.String(), nil
}

// HTMLToMarkdown converts markup to markdown for editing as plain text.
func HTMLToMarkdown(markup string) (string, error) {
	if strings.TrimSpace(markup) == "" {
		return "", nil
	}
	if !strings.Contains(markup, "<") {
		return markup, nil
	}
	converter := md.NewConverter("", true, nil)
	out, err := converter.ConvertString(markup)
	if err != nil {
		return "", fmt.Errorf("converting html to markdown: %w", err)
	}
	return out, nil
}

// Markdown returns the buffer's content as markdown.
func (b *Buffer) Markdown() (string, error) {
	return HTMLToMarkdown(b.HTML())
}

// SetMarkdown renders source and replaces the buffer's content with it.
func (b *Buffer) SetMarkdown(source string, src Source) error {
	markup, err := MarkdownToHTML(source)
	if err != nil {
		return err
	}
	b.SetHTML(strings.TrimSpace(markup), src)
	return nil
}
