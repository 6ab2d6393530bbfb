package workspace

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/feedback-coach/internal/backend"
	"github.com/ziadkadry99/feedback-coach/internal/chunker"
	"github.com/ziadkadry99/feedback-coach/internal/editor"
	"github.com/ziadkadry99/feedback-coach/internal/notify"
	"github.com/ziadkadry99/feedback-coach/internal/scheduler"
)

var epoch = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

// fakeAPI is an in-memory backend with injectable failures.
type fakeAPI struct {
	mu       sync.Mutex
	docs     map[int64]*backend.Document
	nextID   int64
	updates  []string
	uploads  []string
	renames  []string
	deletes  []int64
	training []backend.TrainingData
	lists    int

	getErr      error
	updateErr   error
	existsErr   error
	uploadErr   error
	renameErr   error
	deleteErr   error
	nextErr     error
	nextNumber  int
	trainingErr error
	listErr     error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{docs: make(map[int64]*backend.Document), nextNumber: 1}
}

func (f *fakeAPI) add(title, content string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.docs[f.nextID] = &backend.Document{ID: f.nextID, Title: title, Content: content, CreatedAt: "2025-03-01T09:00:00.000000"}
	return f.nextID
}

func (f *fakeAPI) ListDocuments(context.Context) ([]backend.DocumentSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []backend.DocumentSummary
	for id := f.nextID; id > 0; id-- {
		if d, ok := f.docs[id]; ok {
			out = append(out, backend.DocumentSummary{ID: d.ID, Title: d.Title, CreatedAt: d.CreatedAt})
		}
	}
	return out, nil
}

func (f *fakeAPI) GetDocument(_ context.Context, id int64) (*backend.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	d, ok := f.docs[id]
	if !ok {
		return nil, &backend.APIError{StatusCode: 404, Detail: "Document not found or access denied"}
	}
	cp := *d
	return &cp, nil
}

func (f *fakeAPI) UpdateDocument(_ context.Context, id int64, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates = append(f.updates, content)
	if d, ok := f.docs[id]; ok {
		d.Content = content
	}
	return nil
}

func (f *fakeAPI) RenameDocument(_ context.Context, id int64, title string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.renameErr != nil {
		return f.renameErr
	}
	f.renames = append(f.renames, title)
	if d, ok := f.docs[id]; ok {
		d.Title = title
	}
	return nil
}

func (f *fakeAPI) DeleteDocument(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletes = append(f.deletes, id)
	delete(f.docs, id)
	return nil
}

func (f *fakeAPI) UploadDocument(_ context.Context, name string, content []byte) (*backend.UploadResult, error) {
	f.mu.Lock()
	if f.uploadErr != nil {
		f.mu.Unlock()
		return nil, f.uploadErr
	}
	f.uploads = append(f.uploads, name)
	f.mu.Unlock()
	id := f.add(name, string(content))
	return &backend.UploadResult{Message: "Document uploaded successfully", DocumentID: id, Filename: name}, nil
}

func (f *fakeAPI) FilenameExists(_ context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.existsErr != nil {
		return false, f.existsErr
	}
	for _, d := range f.docs {
		if d.Title == name {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeAPI) NextUntitledNumber(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nextNumber, f.nextErr
}

func (f *fakeAPI) SubmitTrainingData(_ context.Context, in backend.TrainingData) (*backend.TrainingResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.trainingErr != nil {
		return nil, f.trainingErr
	}
	f.training = append(f.training, in)
	return &backend.TrainingResult{Message: "Training data submitted successfully", TrainingDataID: int64(len(f.training))}, nil
}

func (f *fakeAPI) updateCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.updates)
}

type harness struct {
	api      *fakeAPI
	ed       *editor.Buffer
	clock    *scheduler.ManualClock
	queue    *scheduler.Queue
	notes    *notify.Recorder
	c        *Controller
	statuses []Status
	sizes    []Size
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		api:   newFakeAPI(),
		ed:    editor.NewBuffer(),
		clock: scheduler.NewManualClock(epoch),
		notes: &notify.Recorder{},
	}
	h.queue = scheduler.NewQueue(h.clock)
	opts = append([]Option{
		WithStatusListener(func(s Status) { h.statuses = append(h.statuses, s) }),
		WithSizeListener(func(s Size) { h.sizes = append(h.sizes, s) }),
	}, opts...)
	h.c = New(h.api, h.ed, h.queue, h.notes, opts...)
	t.Cleanup(h.c.Close)
	return h
}

// advance moves the clock one poll interval at a time, running whatever
// became due after each step the way the live queue would.
func (h *harness) advance(d time.Duration) {
	step := h.c.cfg.PollInterval
	for d > 0 {
		s := min(step, d)
		h.clock.Advance(s)
		h.queue.Drain()
		d -= s
	}
}

// typeText simulates a user edit and lets the change notification run.
func (h *harness) typeText(text string) {
	h.ed.SetText(text, editor.SourceUser)
	h.queue.Drain()
}

// settle waits for in-flight auto-saves and runs their completions.
func (h *harness) settle() {
	h.c.Wait()
	h.queue.Drain()
}

func (h *harness) statusMessages() []string {
	out := make([]string, len(h.statuses))
	for i, s := range h.statuses {
		out[i] = s.Message
	}
	return out
}

func (h *harness) count(msg string) int {
	n := 0
	for _, s := range h.statuses {
		if s.Message == msg {
			n++
		}
	}
	return n
}

func (h *harness) open(t *testing.T, title, content string) int64 {
	t.Helper()
	id := h.api.add(title, content)
	_, err := h.c.Open(context.Background(), id)
	require.NoError(t, err)
	return id
}

func words(n int, stops ...int) string {
	stop := make(map[int]bool, len(stops))
	for _, s := range stops {
		stop[s] = true
	}
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("w%d", i+1)
		if stop[i+1] {
			out[i] += "."
		}
	}
	return strings.Join(out, " ")
}

func TestOpen_LoadsPlainTextAndSplits(t *testing.T) {
	h := newHarness(t)
	h.open(t, "essay.txt", words(400, 180))

	assert.Equal(t, []string{StatusSplitting, "Ready (2 chunks)"}, h.statusMessages())
	assert.True(t, strings.HasPrefix(h.ed.HTML(), "<p>w1 "))
	require.Len(t, h.c.Chunks(), 2)
	assert.Equal(t, 180, h.c.Chunks()[0].WordCount)
	assert.False(t, h.c.Dirty())
	assert.True(t, h.c.Status().Ready())

	doc, ok := h.c.Document()
	require.True(t, ok)
	assert.Equal(t, "essay.txt", doc.Title)
}

func TestOpen_LoadsHTMLAsIs(t *testing.T) {
	h := newHarness(t)
	h.open(t, "rich.txt", "<p>Hello <strong>there</strong>.</p>")

	assert.Equal(t, "<p>Hello <strong>there</strong>.</p>", h.ed.HTML())
	assert.Equal(t, "Hello there.\n", h.ed.Text())
	assert.Equal(t, []string{StatusSplitting, "Ready (1 chunks)"}, h.statusMessages())
}

func TestOpen_EmptyDocument(t *testing.T) {
	h := newHarness(t)
	h.open(t, "Untitled 1.txt", "")

	assert.Equal(t, []string{StatusEmpty}, h.statusMessages())
	assert.Empty(t, h.c.Chunks())
}

func TestOpen_FailureNotifies(t *testing.T) {
	h := newHarness(t)
	h.api.getErr = &backend.NetworkError{Op: "GET /documents/1", Err: errors.New("connection refused")}

	_, err := h.c.Open(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, []string{"Failed to load document. Please try again."}, h.notes.Messages(notify.Error))
	_, ok := h.c.Document()
	assert.False(t, ok)
}

func TestOpen_ExpiredSession(t *testing.T) {
	h := newHarness(t)
	h.api.getErr = fmt.Errorf("%w: boom", backend.ErrUnauthorized)

	_, err := h.c.Open(context.Background(), 1)
	require.ErrorIs(t, err, backend.ErrUnauthorized)
	assert.Equal(t, []string{SessionExpiredMessage}, h.notes.Messages(notify.Error))
}

func TestResplit_BurstOfEditsSplitsOnceWithLastContent(t *testing.T) {
	h := newHarness(t)
	h.open(t, "essay.txt", words(200))
	h.statuses = nil

	var last string
	for i := 1; i <= 5; i++ {
		last = words(200+i*50, 170)
		h.typeText(last)
		h.advance(500 * time.Millisecond)
		assert.Zero(t, h.count(StatusUpdating), "split ran during the burst")
	}

	h.advance(4 * time.Second)
	assert.Equal(t, 1, h.count(StatusUpdating))
	assert.Equal(t, []string{StatusUpdating, "Ready (2 chunks)"}, h.statusMessages())

	chunks := h.c.Chunks()
	require.Len(t, chunks, 2)
	assert.Equal(t, 450, chunks[0].WordCount+chunks[1].WordCount)
	assert.Equal(t, last+"\n", h.ed.Text())
}

func TestResplit_SameContentIsNoop(t *testing.T) {
	h := newHarness(t)
	h.open(t, "essay.txt", words(300))
	before := h.c.Chunks()
	h.statuses = nil

	h.c.mu.Lock()
	gen := h.c.gen
	h.c.mu.Unlock()
	h.c.scheduleResplit(gen)
	h.advance(5 * time.Second)

	assert.Empty(t, h.statuses)
	assert.Equal(t, before, h.c.Chunks())
}

func TestPoll_FirstContentInEmptyDocumentSplitsImmediately(t *testing.T) {
	h := newHarness(t)
	h.open(t, "Untitled 1.txt", "")
	h.statuses = nil

	h.ed.SetText(words(20), editor.SourceUser)
	h.advance(100 * time.Millisecond)

	assert.Equal(t, []string{StatusUpdating, "Ready (1 chunks)"}, h.statusMessages())
	require.Len(t, h.c.Chunks(), 1)
	assert.Equal(t, 20, h.c.Chunks()[0].WordCount)
}

func TestPoll_CatchesUnannouncedChanges(t *testing.T) {
	h := newHarness(t)
	h.open(t, "essay.txt", words(100))
	h.statuses = nil

	h.ed.SetText(words(160), editor.SourceSilent)
	h.advance(time.Second)
	assert.Empty(t, h.statuses)

	h.advance(3 * time.Second)
	assert.Equal(t, []string{StatusUpdating, "Ready (1 chunks)"}, h.statusMessages())
	assert.Equal(t, 160, h.c.Chunks()[0].WordCount)
}

func TestResplit_BlankContentClearsChunks(t *testing.T) {
	h := newHarness(t)
	h.open(t, "essay.txt", words(100))
	_, err := h.c.SelectChunk(0)
	require.NoError(t, err)
	h.statuses = nil

	h.typeText("   ")
	h.advance(4 * time.Second)

	assert.Contains(t, h.statusMessages(), StatusEmpty)
	assert.Empty(t, h.c.Chunks())
	_, ok := h.c.Selected()
	assert.False(t, ok)
}

func TestAutosave_SavesOnceAfterQuietPeriod(t *testing.T) {
	h := newHarness(t)
	h.open(t, "essay.txt", "first draft")

	h.typeText("second draft")
	h.advance(time.Second)
	h.typeText("third draft")
	h.advance(1900 * time.Millisecond)
	h.settle()
	assert.Zero(t, h.api.updateCount())

	h.advance(100 * time.Millisecond)
	h.settle()
	require.Equal(t, 1, h.api.updateCount())
	assert.Equal(t, "<p>third draft</p>", h.api.updates[0])
	assert.Equal(t, []string{"Auto-saved"}, h.notes.Messages(notify.Info))
	assert.False(t, h.c.Dirty())

	// Nothing changed since; a later trigger sends nothing.
	h.c.mu.Lock()
	gen := h.c.gen
	h.c.mu.Unlock()
	h.c.scheduleAutosave(gen)
	h.advance(3 * time.Second)
	h.settle()
	assert.Equal(t, 1, h.api.updateCount())
}

func TestAutosave_BadRequestIsSurfaced(t *testing.T) {
	h := newHarness(t)
	h.open(t, "essay.txt", "draft")
	h.api.updateErr = &backend.APIError{StatusCode: 400, Detail: "Document content exceeds 1MB limit. Current size: 1048600 bytes"}

	h.typeText("much longer draft")
	h.advance(2 * time.Second)
	h.settle()

	assert.Equal(t,
		[]string{"Auto-save failed: Document content exceeds 1MB limit. Current size: 1048600 bytes. Please reduce content size."},
		h.notes.Messages(notify.Error))
	assert.True(t, h.c.Dirty())
}

func TestAutosave_NetworkErrorIsSilent(t *testing.T) {
	h := newHarness(t)
	h.open(t, "essay.txt", "draft")
	h.api.updateErr = &backend.NetworkError{Op: "PUT /documents/1", Err: errors.New("connection reset")}

	h.typeText("edited")
	h.advance(2 * time.Second)
	h.settle()

	assert.Empty(t, h.notes.Entries())
	assert.True(t, h.c.Dirty())
}

func TestSave(t *testing.T) {
	h := newHarness(t)
	assert.ErrorIs(t, h.c.Save(context.Background()), ErrNoDocument)

	h.open(t, "essay.txt", "draft")
	h.typeText("final")
	require.True(t, h.c.Dirty())

	require.NoError(t, h.c.Save(context.Background()))
	assert.Equal(t, []string{"Document saved successfully!"}, h.notes.Messages(notify.Success))
	assert.False(t, h.c.Dirty())

	doc, _ := h.c.Document()
	assert.Equal(t, "<p>final</p>", doc.Content)

	// The pending auto-save finds nothing new to send.
	h.advance(3 * time.Second)
	h.settle()
	assert.Equal(t, 1, h.api.updateCount())
}

func TestSave_ErrorIsSurfaced(t *testing.T) {
	h := newHarness(t)
	h.open(t, "essay.txt", "draft")
	h.api.updateErr = &backend.NetworkError{Op: "PUT", Err: errors.New("refused")}

	require.Error(t, h.c.Save(context.Background()))
	assert.Equal(t, []string{ConnectionMessage}, h.notes.Messages(notify.Error))
}

func TestClose_DropsPendingWork(t *testing.T) {
	h := newHarness(t)
	h.open(t, "essay.txt", words(200))
	h.typeText(words(250))

	h.c.Close()
	assert.Zero(t, h.clock.Pending())
	assert.Empty(t, h.c.Chunks())
	assert.Empty(t, h.ed.HTML())

	h.statuses = nil
	h.advance(10 * time.Second)
	h.settle()
	assert.Zero(t, h.api.updateCount())
	assert.Empty(t, h.statuses)
}

func TestOpen_SwitchingDocumentsIgnoresEarlierTimers(t *testing.T) {
	h := newHarness(t)
	h.open(t, "a.txt", "alpha")
	h.typeText("alpha edited")

	h.open(t, "b.txt", "beta")
	h.advance(5 * time.Second)
	h.settle()

	assert.Zero(t, h.api.updateCount())
	assert.Equal(t, "<p>beta</p>", h.ed.HTML())
}

func TestMeasureSize(t *testing.T) {
	tests := []struct {
		bytes int
		want  string
		level SizeLevel
	}{
		{0, "0.0 KB", SizeOK},
		{1536, "1.5 KB", SizeOK},
		{786431, "768.0 KB", SizeOK},
		{786432, "768.0 KB", SizeWarning},
		{943719, "921.6 KB", SizeDanger},
		{1048576, "1.00 MB", SizeDanger},
		{1572864, "1.50 MB", SizeDanger},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			s := MeasureSize(strings.Repeat("x", tt.bytes), 1048576)
			assert.Equal(t, tt.want, s.String())
			assert.Equal(t, tt.level, s.Level)
		})
	}
}

func TestSizeListenerFollowsEdits(t *testing.T) {
	h := newHarness(t)
	h.open(t, "essay.txt", "abc")
	require.NotEmpty(t, h.sizes)
	assert.Equal(t, len("<p>abc</p>"), h.sizes[len(h.sizes)-1].Bytes)

	h.typeText("abcdef")
	assert.Equal(t, len("<p>abcdef</p>"), h.sizes[len(h.sizes)-1].Bytes)
	assert.Equal(t, len("<p>abcdef</p>"), h.c.Size().Bytes)
}

func TestConfig_ZeroFieldsKeepDefaults(t *testing.T) {
	h := newHarness(t, WithConfig(Config{ResplitDelay: time.Second}))
	cfg := h.c.Config()
	assert.Equal(t, time.Second, cfg.ResplitDelay)
	assert.Equal(t, 2*time.Second, cfg.AutosaveDelay)
	assert.Equal(t, 100*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, backend.MaxContentBytes, cfg.MaxContentBytes)
	assert.Equal(t, chunker.DefaultConfig(), cfg.Chunking)

	h.open(t, "essay.txt", words(700))
	counts := make([]int, 0, 2)
	for _, c := range h.c.Chunks() {
		counts = append(counts, c.WordCount)
	}
	assert.Equal(t, []int{300, 400}, counts)
}
