// Package editor holds the rich-text content of the open document.
//
// Content is kept as HTML. The plain text view is derived from it the way a
// rich-text widget reports its text: one line per block element.
package editor

// Source tells listeners who caused a change.
type Source int

const (
	// SourceUser is an edit made by the person typing.
	SourceUser Source = iota
	// SourceAPI is a programmatic change that listeners should see.
	SourceAPI
	// SourceSilent is a programmatic change that is not announced.
	SourceSilent
)

func (s Source) String() string {
	switch s {
	case SourceUser:
		return "user"
	case SourceAPI:
		return "api"
	case SourceSilent:
		return "silent"
	default:
		return "unknown"
	}
}

// Change describes a content change delivered to listeners.
type Change struct {
	Source Source
	HTML   string
}

// Editor is the capability the document controller needs from an editing
// surface.
type Editor interface {
	Text() string
	HTML() string
	SetText(text string, src Source)
	SetHTML(html string, src Source)
	// OnChange registers fn and returns a function that unregisters it.
	OnChange(fn func(Change)) (unsubscribe func())
}
