// Package notify delivers user-facing messages: transient notifications
// and errors attached to a form field.
package notify

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Level is a notification's severity.
type Level string

const (
	Info    Level = "info"
	Success Level = "success"
	Warning Level = "warning"
	Error   Level = "error"
)

// Notifier shows messages to the user.
type Notifier interface {
	Notify(level Level, msg string)
	FieldError(field, msg string)
}

// Terminal writes messages as lines to a writer.
type Terminal struct {
	mu sync.Mutex
	w  io.Writer
}

// NewTerminal returns a Terminal writing to w, or to stderr when w is nil.
func NewTerminal(w io.Writer) *Terminal {
	if w == nil {
		w = os.Stderr
	}
	return &Terminal{w: w}
}

var symbols = map[Level]string{
	Info:    "i",
	Success: "✓",
	Warning: "!",
	Error:   "✗",
}

func (t *Terminal) Notify(level Level, msg string) {
	sym, ok := symbols[level]
	if !ok {
		sym = "-"
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.w, "%s %s\n", sym, msg)
}

func (t *Terminal) FieldError(field, msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.w, "✗ %s: %s\n", field, msg)
}

// Entry is one recorded message. Field is empty for notifications.
type Entry struct {
	Level   Level
	Field   string
	Message string
}

// Recorder keeps every message in memory.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

func (r *Recorder) Notify(level Level, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, Entry{Level: level, Message: msg})
}

func (r *Recorder) FieldError(field, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, Entry{Level: Error, Field: field, Message: msg})
}

// Entries returns a copy of everything recorded.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry(nil), r.entries...)
}

// Messages returns the notification texts recorded at level.
func (r *Recorder) Messages(level Level) []string {
	var out []string
	for _, e := range r.Entries() {
		if e.Field == "" && e.Level == level {
			out = append(out, e.Message)
		}
	}
	return out
}

// FieldErrors returns the latest error recorded per field.
func (r *Recorder) FieldErrors() map[string]string {
	out := make(map[string]string)
	for _, e := range r.Entries() {
		if e.Field != "" {
			out[e.Field] = e.Message
		}
	}
	return out
}

// Reset forgets everything recorded.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = nil
}

// Discard drops every message.
type Discard struct{}

func (Discard) Notify(Level, string)      {}
func (Discard) FieldError(string, string) {}
