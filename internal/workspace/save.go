package workspace

import (
	"context"
	"fmt"

	"github.com/phuslu/log"

	"github.com/ziadkadry99/feedback-coach/internal/backend"
	"github.com/ziadkadry99/feedback-coach/internal/notify"
)

// SizeLevel grades content size against the limit.
type SizeLevel int

const (
	SizeOK SizeLevel = iota
	SizeWarning
	SizeDanger
)

func (l SizeLevel) String() string {
	switch l {
	case SizeWarning:
		return "warning"
	case SizeDanger:
		return "danger"
	default:
		return "ok"
	}
}

// Size is the byte size of the rich content.
type Size struct {
	Bytes int
	Limit int
	Level SizeLevel
}

const mib = 1024 * 1024

// MeasureSize grades content against limit bytes: warning from 75% and
// danger from 90%.
func MeasureSize(content string, limit int) Size {
	s := Size{Bytes: len(content), Limit: limit}
	switch pct := s.Percent(); {
	case pct >= 90:
		s.Level = SizeDanger
	case pct >= 75:
		s.Level = SizeWarning
	}
	return s
}

// Percent returns the share of the limit in use.
func (s Size) Percent() float64 {
	if s.Limit <= 0 {
		return 0
	}
	return float64(s.Bytes) / float64(s.Limit) * 100
}

// String formats the size as "x.y KB" below one megabyte, else "x.yy MB".
func (s Size) String() string {
	if s.Bytes >= mib {
		return fmt.Sprintf("%.2f MB", float64(s.Bytes)/mib)
	}
	return fmt.Sprintf("%.1f KB", float64(s.Bytes)/1024)
}

// Size measures the editor's current content.
func (c *Controller) Size() Size {
	return MeasureSize(c.editor.HTML(), c.cfg.MaxContentBytes)
}

func (c *Controller) emitSize(html string) {
	if c.onSize != nil {
		c.onSize(MeasureSize(html, c.cfg.MaxContentBytes))
	}
}

// Save stores the editor's rich content as the open document's content.
func (c *Controller) Save(ctx context.Context) error {
	if !c.saving.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer c.saving.Store(false)

	c.mu.Lock()
	if c.doc == nil {
		c.mu.Unlock()
		return ErrNoDocument
	}
	id, gen := c.doc.ID, c.gen
	c.mu.Unlock()

	html := c.editor.HTML()
	if err := c.api.UpdateDocument(ctx, id, html); err != nil {
		c.report(err, "Failed to save document")
		return fmt.Errorf("saving document %d: %w", id, err)
	}
	c.markSaved(gen, html)
	c.notifier.Notify(notify.Success, "Document saved successfully!")
	return nil
}

// Dirty reports whether the editor holds content that was never saved.
func (c *Controller) Dirty() bool {
	html := c.editor.HTML()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.doc != nil && html != c.lastSaved
}

func (c *Controller) markSaved(gen uint64, html string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.doc != nil && c.gen == gen {
		c.lastSaved = html
		c.doc.Content = html
	}
}

func (c *Controller) scheduleAutosave(gen uint64) {
	c.autosave.Trigger(func() { c.autosaveNow(gen) })
}

// autosaveNow sends the content on its own goroutine and posts the result
// back to the queue.
func (c *Controller) autosaveNow(gen uint64) {
	html := c.editor.HTML()

	c.mu.Lock()
	if c.doc == nil || c.gen != gen || html == c.lastSaved {
		c.mu.Unlock()
		return
	}
	id := c.doc.ID
	c.mu.Unlock()

	c.saves.Add(1)
	go func() {
		defer c.saves.Done()
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.SaveTimeout)
		defer cancel()
		err := c.api.UpdateDocument(ctx, id, html)
		c.queue.Post(func() { c.autosaveDone(gen, id, html, err) })
	}()
}

func (c *Controller) autosaveDone(gen uint64, id int64, html string, err error) {
	if err == nil {
		c.markSaved(gen, html)
		c.notifier.Notify(notify.Info, "Auto-saved")
		log.Debug().Int64("document_id", id).Int("bytes", len(html)).Msg("auto-saved")
		return
	}

	switch backend.Classify(err) {
	case backend.KindBadRequest:
		c.notifier.Notify(notify.Error,
			fmt.Sprintf("Auto-save failed: %s. Please reduce content size.", backend.Detail(err)))
	case backend.KindUnauthorized, backend.KindNoSession:
		c.reportSession(err)
	default:
		log.Warn().Err(err).Int64("document_id", id).Msg("auto-save failed")
	}
}
