// Package importer turns local files into plain text documents ready for
// upload. Word and PDF files are reduced to their text; Markdown and HTML
// are rendered and stripped of markup.
package importer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ziadkadry99/feedback-coach/internal/editor"
)

// Kind is a supported input format.
type Kind string

const (
	KindText     Kind = "txt"
	KindMarkdown Kind = "md"
	KindHTML     Kind = "html"
	KindDocx     Kind = "docx"
	KindPDF      Kind = "pdf"
)

var kindsByExt = map[string]Kind{
	".txt":      KindText,
	".text":     KindText,
	".md":       KindMarkdown,
	".markdown": KindMarkdown,
	".html":     KindHTML,
	".htm":      KindHTML,
	".docx":     KindDocx,
	".pdf":      KindPDF,
}

// KindOf returns the format of path by extension.
func KindOf(path string) (Kind, bool) {
	k, ok := kindsByExt[strings.ToLower(filepath.Ext(path))]
	return k, ok
}

// Document is an imported file.
type Document struct {
	Path    string
	Name    string // upload name, always ending in .txt
	Kind    Kind
	Content []byte
}

// UploadName returns the .txt name a file is uploaded under.
func UploadName(path string) string {
	base := filepath.Base(path)
	if strings.EqualFold(filepath.Ext(base), ".txt") {
		return base
	}
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".txt"
}

// Load reads path and extracts its text.
func Load(path string) (Document, error) {
	kind, ok := KindOf(path)
	if !ok {
		return Document{}, fmt.Errorf("importing %s: unsupported file type %q", path, filepath.Ext(path))
	}

	var (
		text string
		err  error
	)
	switch kind {
	case KindText:
		var raw []byte
		raw, err = os.ReadFile(path)
		if err == nil {
			return Document{Path: path, Name: UploadName(path), Kind: kind, Content: raw}, nil
		}
	case KindMarkdown:
		text, err = markdownText(path)
	case KindHTML:
		text, err = htmlText(path)
	case KindDocx:
		text, err = docxText(path)
	case KindPDF:
		text, err = pdfText(path)
	}
	if err != nil {
		return Document{}, fmt.Errorf("importing %s: %w", path, err)
	}
	return Document{Path: path, Name: UploadName(path), Kind: kind, Content: []byte(text)}, nil
}

func markdownText(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	markup, err := editor.MarkdownToHTML(string(raw))
	if err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return editor.HTMLToText(markup), nil
}

func htmlText(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return editor.HTMLToText(string(raw)), nil
}
