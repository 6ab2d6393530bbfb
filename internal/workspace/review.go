package workspace

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/phuslu/log"

	"github.com/ziadkadry99/feedback-coach/internal/backend"
	"github.com/ziadkadry99/feedback-coach/internal/chunker"
	"github.com/ziadkadry99/feedback-coach/internal/editor"
	"github.com/ziadkadry99/feedback-coach/internal/feedback"
	"github.com/ziadkadry99/feedback-coach/internal/notify"
)

// ErrChunkNotFound is returned for a chunk index outside the chunk view.
var ErrChunkNotFound = errors.New("chunk not found")

// SelectChunk marks chunk index as the one feedback applies to.
func (c *Controller) SelectChunk(index int) (chunker.Chunk, error) {
	c.mu.Lock()
	if c.doc == nil {
		c.mu.Unlock()
		return chunker.Chunk{}, ErrNoDocument
	}
	chunk, ok := chunker.Find(c.chunks, index)
	if !ok {
		c.mu.Unlock()
		return chunker.Chunk{}, fmt.Errorf("chunk %d: %w", index+1, ErrChunkNotFound)
	}
	c.selected = index
	c.mu.Unlock()

	c.notifier.Notify(notify.Info, fmt.Sprintf("Selected Chunk %d (%d words)", index+1, chunk.WordCount))
	return chunk, nil
}

// Selected returns the selected chunk.
func (c *Controller) Selected() (chunker.Chunk, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selected < 0 {
		return chunker.Chunk{}, false
	}
	return chunker.Find(c.chunks, c.selected)
}

// RequestFeedback selects chunk index and produces a simulated correction
// and feedback for it. With a review recorder configured the result is
// kept in history.
func (c *Controller) RequestFeedback(ctx context.Context, index int) (feedback.Review, error) {
	chunk, err := c.SelectChunk(index)
	if err != nil {
		return feedback.Review{}, err
	}
	c.notifier.Notify(notify.Info, fmt.Sprintf("Getting feedback for Chunk %d...", index+1))

	doc, _ := c.Document()
	res := feedback.Simulate(chunk.Text)
	review := feedback.Review{
		DocumentID: strconv.FormatInt(doc.ID, 10),
		ChunkIndex: index,
		Original:   res.Original,
		Corrected:  res.Corrected,
		Feedback:   res.Feedback,
	}
	if c.reviews == nil {
		return review, nil
	}
	saved, err := c.reviews.Record(ctx, review)
	if err != nil {
		log.Warn().Err(err).Int("chunk", index).Msg("could not record review")
		return review, nil
	}
	return saved, nil
}

// ApplyCorrection replaces chunk index of the current text with corrected,
// re-splits at once and schedules an auto-save. The chunk is located by
// chunking the text as it is now, not as it was when feedback was asked.
func (c *Controller) ApplyCorrection(index int, corrected string) error {
	c.mu.Lock()
	if c.doc == nil {
		c.mu.Unlock()
		return ErrNoDocument
	}
	gen := c.gen
	c.mu.Unlock()

	text := c.editor.Text()
	chunk, ok := chunker.Find(chunker.BuildWithConfig(text, c.cfg.Chunking), index)
	if !ok {
		return fmt.Errorf("chunk %d: %w", index+1, ErrChunkNotFound)
	}

	c.editor.SetText(chunker.Splice(text, chunk, feedback.StripMarker(corrected)), editor.SourceAPI)
	c.split(gen, c.editor.Text(), c.editor.HTML(), false)
	c.scheduleAutosave(gen)

	c.notifier.Notify(notify.Success, "Correction applied successfully")
	return nil
}

// SubmitCorrection sends a teacher's correction of original as training
// data.
func (c *Controller) SubmitCorrection(ctx context.Context, original, correction, cbcFeedback string) (*backend.TrainingResult, error) {
	correction = strings.TrimSpace(correction)
	cbcFeedback = strings.TrimSpace(cbcFeedback)

	var msg string
	switch {
	case original == "":
		msg = "No original text available. Please select a chunk first."
	case correction == "":
		msg = "Please enter your correction."
	case cbcFeedback == "":
		msg = "Please provide CBC feedback."
	}
	if msg != "" {
		c.notifier.Notify(notify.Error, msg)
		return nil, &InputError{Message: msg}
	}

	if !c.submitting.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer c.submitting.Store(false)

	res, err := c.api.SubmitTrainingData(ctx, backend.TrainingData{
		OriginalText:      original,
		TeacherCorrection: correction,
		CBCFeedback:       cbcFeedback,
	})
	if err != nil {
		if !c.reportSession(err) {
			c.reportPrefixed(err, "Failed to submit training data: ", "Failed to submit training data")
		}
		return nil, fmt.Errorf("submitting training data: %w", err)
	}
	c.notifier.Notify(notify.Success, "Thank you! Your P3 correction has been submitted for training data.")
	return res, nil
}

// Translate renders text in lang.
func (c *Controller) Translate(text string, lang feedback.Language) (string, error) {
	return feedback.Translate(text, lang)
}
