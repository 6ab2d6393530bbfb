// Package workspace hosts the open document. It keeps the chunk view in
// step with edits, saves after a quiet period, and runs document
// management and the feedback workflow against the backend.
//
// Timers and polling run as tasks on a scheduler.Queue. Controller state is
// guarded by one mutex that is never held while the editor is written to,
// because editor listeners run on the writing goroutine.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/phuslu/log"

	"github.com/ziadkadry99/feedback-coach/internal/backend"
	"github.com/ziadkadry99/feedback-coach/internal/chunker"
	"github.com/ziadkadry99/feedback-coach/internal/editor"
	"github.com/ziadkadry99/feedback-coach/internal/feedback"
	"github.com/ziadkadry99/feedback-coach/internal/notify"
	"github.com/ziadkadry99/feedback-coach/internal/scheduler"
)

var (
	// ErrNoDocument is returned by operations that need an open document.
	ErrNoDocument = errors.New("no document is open")

	// ErrBusy is returned when the same kind of submission is in flight.
	ErrBusy = errors.New("an operation of this kind is already in progress")
)

// API is the part of the backend the controller calls.
type API interface {
	ListDocuments(ctx context.Context) ([]backend.DocumentSummary, error)
	GetDocument(ctx context.Context, id int64) (*backend.Document, error)
	UpdateDocument(ctx context.Context, id int64, content string) error
	RenameDocument(ctx context.Context, id int64, title string) error
	DeleteDocument(ctx context.Context, id int64) error
	UploadDocument(ctx context.Context, name string, content []byte) (*backend.UploadResult, error)
	FilenameExists(ctx context.Context, name string) (bool, error)
	NextUntitledNumber(ctx context.Context) (int, error)
	SubmitTrainingData(ctx context.Context, in backend.TrainingData) (*backend.TrainingResult, error)
}

// ReviewRecorder keeps feedback results.
type ReviewRecorder interface {
	Record(ctx context.Context, r feedback.Review) (feedback.Review, error)
}

// Config holds the controller's timings and limits.
type Config struct {
	ResplitDelay    time.Duration
	AutosaveDelay   time.Duration
	PollInterval    time.Duration
	SaveTimeout     time.Duration
	MaxContentBytes int
	Chunking        chunker.Config
}

// DefaultConfig returns the editor's standard timings.
func DefaultConfig() Config {
	return Config{
		ResplitDelay:    3 * time.Second,
		AutosaveDelay:   2 * time.Second,
		PollInterval:    100 * time.Millisecond,
		SaveTimeout:     backend.DefaultTimeout,
		MaxContentBytes: backend.MaxContentBytes,
		Chunking:        chunker.DefaultConfig(),
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.ResplitDelay <= 0 {
		c.ResplitDelay = def.ResplitDelay
	}
	if c.AutosaveDelay <= 0 {
		c.AutosaveDelay = def.AutosaveDelay
	}
	if c.PollInterval <= 0 {
		c.PollInterval = def.PollInterval
	}
	if c.SaveTimeout <= 0 {
		c.SaveTimeout = def.SaveTimeout
	}
	if c.MaxContentBytes <= 0 {
		c.MaxContentBytes = def.MaxContentBytes
	}
	if c.Chunking.TargetWords <= 0 {
		c.Chunking.TargetWords = def.Chunking.TargetWords
	}
	if c.Chunking.MinWords <= 0 {
		c.Chunking.MinWords = def.Chunking.MinWords
	}
	if c.Chunking.MaxWords <= 0 {
		c.Chunking.MaxWords = def.Chunking.MaxWords
	}
	return c
}

// Option configures a Controller.
type Option func(*Controller)

// WithConfig replaces the default timings. Zero fields keep their default.
func WithConfig(cfg Config) Option {
	return func(c *Controller) { c.cfg = cfg.withDefaults() }
}

// WithReviews records every feedback result in r.
func WithReviews(r ReviewRecorder) Option {
	return func(c *Controller) { c.reviews = r }
}

// WithStatusListener calls fn whenever the chunk status changes.
func WithStatusListener(fn func(Status)) Option {
	return func(c *Controller) { c.onStatus = fn }
}

// WithSizeListener calls fn whenever the content size is re-measured.
func WithSizeListener(fn func(Size)) Option {
	return func(c *Controller) { c.onSize = fn }
}

// Controller is the document controller.
type Controller struct {
	api      API
	editor   editor.Editor
	queue    *scheduler.Queue
	notifier notify.Notifier
	reviews  ReviewRecorder
	cfg      Config

	onStatus func(Status)
	onSize   func(Size)

	resplit  *scheduler.Debouncer
	autosave *scheduler.Debouncer
	saves    sync.WaitGroup

	uploading  atomic.Bool
	saving     atomic.Bool
	submitting atomic.Bool

	mu sync.Mutex
	// gen changes on every open and close so that late timer and network
	// callbacks for an earlier document are ignored.
	gen            uint64
	doc            *backend.Document
	documents      []backend.DocumentSummary
	chunks         []chunker.Chunk
	selected       int
	status         string
	lastSplit      string
	lastSaved      string
	lastPolledText string
	lastPolledHTML string
	unsubscribe    func()
	poll           *scheduler.Task
}

// New creates a Controller editing through ed. Timers run on queue.
func New(api API, ed editor.Editor, queue *scheduler.Queue, notifier notify.Notifier, opts ...Option) *Controller {
	if notifier == nil {
		notifier = notify.Discard{}
	}
	c := &Controller{
		api:      api,
		editor:   ed,
		queue:    queue,
		notifier: notifier,
		cfg:      DefaultConfig(),
		selected: -1,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.resplit = scheduler.NewDebouncer(queue, c.cfg.ResplitDelay)
	c.autosave = scheduler.NewDebouncer(queue, c.cfg.AutosaveDelay)
	return c
}

// Config returns the controller's timings.
func (c *Controller) Config() Config { return c.cfg }

// Document returns the open document.
func (c *Controller) Document() (backend.Document, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.doc == nil {
		return backend.Document{}, false
	}
	return *c.doc, true
}

// Chunks returns the current chunk view.
func (c *Controller) Chunks() []chunker.Chunk {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]chunker.Chunk(nil), c.chunks...)
}

// Status returns the chunk status and the chunks it describes.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusLocked()
}

// Open loads document id into the editor and starts tracking edits. Any
// open document is closed first.
func (c *Controller) Open(ctx context.Context, id int64) (*backend.Document, error) {
	doc, err := c.api.GetDocument(ctx, id)
	if err != nil {
		if !c.reportSession(err) {
			c.notifier.Notify(notify.Error, "Failed to load document. Please try again.")
		}
		return nil, fmt.Errorf("loading document %d: %w", id, err)
	}
	c.Close()

	if strings.Contains(doc.Content, "<") {
		c.editor.SetHTML(doc.Content, editor.SourceSilent)
	} else {
		c.editor.SetText(doc.Content, editor.SourceSilent)
	}
	text, html := c.editor.Text(), c.editor.HTML()

	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.doc = doc
	c.lastSaved = html
	c.lastPolledText, c.lastPolledHTML = text, html
	c.mu.Unlock()

	c.split(gen, text, html, false)
	c.emitSize(html)

	unsubscribe := c.editor.OnChange(func(editor.Change) {
		c.queue.Post(func() { c.contentChanged(gen) })
	})
	poll := c.queue.Every(c.cfg.PollInterval, func() { c.pollEditor(gen) })

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		unsubscribe()
		poll.Cancel()
		return doc, nil
	}
	c.unsubscribe, c.poll = unsubscribe, poll
	c.mu.Unlock()

	log.Debug().Int64("document_id", doc.ID).Str("title", doc.Title).Msg("document opened")
	return doc, nil
}

// Close stops tracking the open document and drops its chunks. Pending
// re-splits and auto-saves are discarded.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.doc == nil {
		c.mu.Unlock()
		return
	}
	id := c.doc.ID
	c.gen++
	c.doc = nil
	c.chunks = nil
	c.selected = -1
	c.status = ""
	c.lastSplit, c.lastSaved = "", ""
	c.lastPolledText, c.lastPolledHTML = "", ""
	unsubscribe, poll := c.unsubscribe, c.poll
	c.unsubscribe, c.poll = nil, nil
	c.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	if poll != nil {
		poll.Cancel()
	}
	c.resplit.Cancel()
	c.autosave.Cancel()
	c.editor.SetHTML("", editor.SourceSilent)

	log.Debug().Int64("document_id", id).Msg("document closed")
}

// Wait blocks until auto-saves already sent to the backend have returned.
// Their results are posted to the queue.
func (c *Controller) Wait() {
	c.saves.Wait()
}

func (c *Controller) isCurrent(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.doc != nil && c.gen == gen
}

// contentChanged handles an announced editor change.
func (c *Controller) contentChanged(gen uint64) {
	if !c.isCurrent(gen) {
		return
	}
	c.scheduleAutosave(gen)
	c.emitSize(c.editor.HTML())
	c.scheduleResplit(gen)
}

// pollEditor catches content changes the editor did not announce.
func (c *Controller) pollEditor(gen uint64) {
	text, html := c.editor.Text(), c.editor.HTML()

	c.mu.Lock()
	if c.doc == nil || c.gen != gen {
		c.mu.Unlock()
		return
	}
	if text == c.lastPolledText && html == c.lastPolledHTML {
		c.mu.Unlock()
		return
	}
	c.lastPolledText, c.lastPolledHTML = text, html
	immediate := strings.TrimSpace(text) != "" && len(c.chunks) == 0
	if immediate {
		c.lastSplit = ""
	}
	c.mu.Unlock()

	if immediate {
		c.split(gen, text, html, true)
	} else {
		c.scheduleResplit(gen)
	}
	c.emitSize(html)
}
