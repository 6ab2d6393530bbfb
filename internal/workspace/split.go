package workspace

import (
	"fmt"
	"strings"

	"github.com/ziadkadry99/feedback-coach/internal/chunker"
)

// Chunk status messages.
const (
	StatusEmpty     = "Document is empty"
	StatusSplitting = "Splitting document..."
	StatusUpdating  = "Updating chunks..."
)

// Status describes the chunk view.
type Status struct {
	Message string
	Chunks  []chunker.Chunk
}

// Working reports whether a split is in progress.
func (s Status) Working() bool {
	return s.Message == StatusSplitting || s.Message == StatusUpdating
}

// Ready reports whether the chunks are up to date.
func (s Status) Ready() bool {
	return strings.HasPrefix(s.Message, "Ready")
}

func readyMessage(n int) string {
	return fmt.Sprintf("Ready (%d chunks)", n)
}

func (c *Controller) statusLocked() Status {
	return Status{Message: c.status, Chunks: append([]chunker.Chunk(nil), c.chunks...)}
}

// Resplit runs a pending re-split now.
func (c *Controller) Resplit() {
	c.resplit.Flush()
}

func (c *Controller) scheduleResplit(gen uint64) {
	c.resplit.Trigger(func() {
		c.split(gen, c.editor.Text(), c.editor.HTML(), true)
	})
}

// split rebuilds the chunks from text. An update is skipped when text is
// what the last split saw.
func (c *Controller) split(gen uint64, text, html string, update bool) {
	var statuses []Status

	c.mu.Lock()
	if c.doc == nil || c.gen != gen {
		c.mu.Unlock()
		return
	}
	if update && text == c.lastSplit {
		c.mu.Unlock()
		return
	}

	if strings.TrimSpace(text) == "" {
		c.chunks = nil
		c.selected = -1
		c.status = StatusEmpty
		statuses = append(statuses, c.statusLocked())
	} else {
		c.status = StatusSplitting
		if update {
			c.status = StatusUpdating
		}
		statuses = append(statuses, c.statusLocked())

		c.chunks = chunker.BuildWithConfig(text, c.cfg.Chunking)
		c.lastSplit = text
		if update {
			c.lastPolledText, c.lastPolledHTML = text, html
		}
		if c.selected >= len(c.chunks) {
			c.selected = -1
		}
		c.status = readyMessage(len(c.chunks))
		statuses = append(statuses, c.statusLocked())
	}
	c.mu.Unlock()

	if c.onStatus != nil {
		for _, s := range statuses {
			c.onStatus(s)
		}
	}
}
