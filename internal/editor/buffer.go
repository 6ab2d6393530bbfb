package editor

import (
	"sort"
	"sync"
)

// Buffer is an in-memory Editor. It is safe for concurrent use; listeners
// run on the goroutine that made the change, after the buffer is unlocked.
type Buffer struct {
	mu        sync.Mutex
	html      string
	text      string
	textValid bool

	nextID    int
	listeners map[int]func(Change)
}

var _ Editor = (*Buffer)(nil)

// NewBuffer returns an empty Buffer.
func NewBuffer() *Buffer {
	return &Buffer{listeners: make(map[int]func(Change))}
}

// HTML returns the rich content.
func (b *Buffer) HTML() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.html
}

// Text returns the plain text derived from the rich content.
func (b *Buffer) Text() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.textValid {
		b.text = HTMLToText(b.html)
		b.textValid = true
	}
	return b.text
}

// SetHTML replaces the content with markup.
func (b *Buffer) SetHTML(markup string, src Source) {
	b.mu.Lock()
	if markup == b.html {
		b.mu.Unlock()
		return
	}
	b.html = markup
	b.textValid = false
	listeners := b.snapshotLocked(src)
	b.mu.Unlock()

	b.notify(listeners, Change{Source: src, HTML: markup})
}

// SetText replaces the content with plain text, one paragraph per line.
func (b *Buffer) SetText(text string, src Source) {
	b.SetHTML(TextToHTML(text), src)
}

// OnChange registers fn for announced changes.
func (b *Buffer) OnChange(fn func(Change)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.listeners[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.listeners, id)
			b.mu.Unlock()
		})
	}
}

func (b *Buffer) snapshotLocked(src Source) []func(Change) {
	if src == SourceSilent || len(b.listeners) == 0 {
		return nil
	}
	ids := make([]int, 0, len(b.listeners))
	for id := range b.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]func(Change), len(ids))
	for i, id := range ids {
		out[i] = b.listeners[id]
	}
	return out
}

func (b *Buffer) notify(listeners []func(Change), c Change) {
	for _, fn := range listeners {
		fn(c)
	}
}
