package workspace

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/feedback-coach/internal/backend"
	"github.com/ziadkadry99/feedback-coach/internal/devserver"
	"github.com/ziadkadry99/feedback-coach/internal/editor"
	"github.com/ziadkadry99/feedback-coach/internal/notify"
	"github.com/ziadkadry99/feedback-coach/internal/scheduler"
)

func TestValidateUpload(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content []byte
		want    string
	}{
		{"ok", "essay.txt", []byte("hello"), ""},
		{"upper case extension", "ESSAY.TXT", []byte("hello"), ""},
		{"too large", "big.txt", make([]byte, backend.MaxContentBytes+1), "File size must be less than 1MB"},
		{"wrong type", "essay.md", []byte("# hi"), "Only plain text (.txt) files are allowed. For other formats, please save as .txt first."},
		{"not utf8", "bin.txt", []byte{0xff, 0xfe, 0x00}, "File must be a valid UTF-8 text file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUpload(tt.file, tt.content, backend.MaxContentBytes)
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			var inputErr *InputError
			require.ErrorAs(t, err, &inputErr)
			assert.Equal(t, tt.want, inputErr.Message)
		})
	}
}

func TestUpload_Success(t *testing.T) {
	h := newHarness(t)

	res, err := h.c.Upload(context.Background(), "essay.txt", []byte("My essay."))
	require.NoError(t, err)
	assert.Equal(t, "essay.txt", res.Filename)

	assert.Equal(t, []string{"Uploading document..."}, h.notes.Messages(notify.Info))
	assert.Equal(t, []string{"Document uploaded successfully!"}, h.notes.Messages(notify.Success))
	require.Len(t, h.c.Documents(), 1)
	assert.Equal(t, "essay.txt", h.c.Documents()[0].Title)
}

func TestUpload_LocalValidationSendsNothing(t *testing.T) {
	h := newHarness(t)

	_, err := h.c.Upload(context.Background(), "essay.docx", []byte("x"))
	var inputErr *InputError
	require.ErrorAs(t, err, &inputErr)
	assert.Empty(t, h.api.uploads)
	assert.Equal(t, []string{inputErr.Message}, h.notes.Messages(notify.Error))
}

func TestUpload_ExistingName(t *testing.T) {
	h := newHarness(t)
	h.api.add("essay.txt", "old")

	_, err := h.c.Upload(context.Background(), "essay.txt", []byte("new"))
	var taken *FilenameTakenError
	require.ErrorAs(t, err, &taken)
	assert.Equal(t, "essay.txt", taken.Name)
	assert.Equal(t,
		[]string{`A document with the name "essay.txt" already exists. Please rename the file or choose a different name.`},
		h.notes.Messages(notify.Error))
	assert.Empty(t, h.api.uploads)
}

func TestUpload_FailedCheckStillUploads(t *testing.T) {
	h := newHarness(t)
	h.api.existsErr = &backend.APIError{StatusCode: 404, Detail: "Not Found"}

	_, err := h.c.Upload(context.Background(), "essay.txt", []byte("text"))
	require.NoError(t, err)
	assert.Equal(t, []string{"essay.txt"}, h.api.uploads)
}

func TestUpload_BackendRejections(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			"duplicate",
			&backend.APIError{StatusCode: 400, Detail: "A document with the name 'a.txt' already exists. Please choose a different name."},
			"Filename conflict: A document with the name 'a.txt' already exists. Please choose a different name.",
		},
		{
			"other bad request",
			&backend.APIError{StatusCode: 400, Detail: "File size exceeds 1MB limit"},
			"File size exceeds 1MB limit",
		},
		{
			"network",
			&backend.NetworkError{Op: "POST /documents/upload", Err: errors.New("connection refused")},
			ConnectionMessage,
		},
		{
			"server",
			&backend.APIError{StatusCode: 500, Detail: "Error processing upload: disk full"},
			"Error processing upload: disk full",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.api.uploadErr = tt.err

			_, err := h.c.Upload(context.Background(), "a.txt", []byte("text"))
			require.Error(t, err)
			assert.Equal(t, []string{tt.want}, h.notes.Messages(notify.Error))
		})
	}
}

func TestCreate(t *testing.T) {
	h := newHarness(t)

	res, err := h.c.Create(context.Background(), "  notes ")
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", res.Filename)
	assert.Equal(t, []string{`Document "notes.txt" created successfully!`}, h.notes.Messages(notify.Success))

	h.notes.Reset()
	_, err = h.c.Create(context.Background(), "notes.txt")
	var taken *FilenameTakenError
	require.ErrorAs(t, err, &taken)
	assert.Equal(t, []string{`Filename "notes.txt" already exists. Please choose a different name.`}, h.notes.Messages(notify.Error))

	h.notes.Reset()
	_, err = h.c.Create(context.Background(), "   ")
	require.Error(t, err)
	assert.Len(t, h.api.uploads, 1)
}

func TestCreate_CheckFailure(t *testing.T) {
	h := newHarness(t)
	h.api.existsErr = &backend.NetworkError{Op: "GET", Err: errors.New("refused")}

	_, err := h.c.Create(context.Background(), "notes")
	require.Error(t, err)
	assert.Equal(t, []string{"Error checking filename. Please try again."}, h.notes.Messages(notify.Error))
	assert.Empty(t, h.api.uploads)
}

func TestCreateUntitled(t *testing.T) {
	t.Run("backend number", func(t *testing.T) {
		h := newHarness(t)
		h.api.nextNumber = 4
		res, err := h.c.CreateUntitled(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "Untitled 4.txt", res.Filename)
	})

	t.Run("unreachable falls back to a timestamp", func(t *testing.T) {
		h := newHarness(t)
		h.api.nextErr = &backend.NetworkError{Op: "GET", Err: errors.New("refused")}
		res, err := h.c.CreateUntitled(context.Background())
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("Untitled %d.txt", epoch.UnixMilli()), res.Filename)
	})

	t.Run("bad answer stops", func(t *testing.T) {
		h := newHarness(t)
		h.api.nextErr = errors.New("invalid next untitled number 0")
		_, err := h.c.CreateUntitled(context.Background())
		require.Error(t, err)
		assert.Equal(t, []string{"Error generating filename. Please try again."}, h.notes.Messages(notify.Error))
		assert.Empty(t, h.api.uploads)
	})
}

func TestNextUntitledNumber(t *testing.T) {
	assert.Equal(t, 1, NextUntitledNumber(nil))
	assert.Equal(t, 1, NextUntitledNumber([]string{"essay.txt", "Untitled.txt", "Untitled two.txt"}))
	assert.Equal(t, 10, NextUntitledNumber([]string{"Untitled 3.txt", "Untitled 9.txt", "Untitled 12.md"}))
}

func TestLocalUntitledNumber(t *testing.T) {
	h := newHarness(t)
	h.api.add("Untitled 2.txt", "")
	h.api.add("Untitled 5.txt", "")
	_, err := h.c.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, h.c.LocalUntitledNumber())
}

func TestRename(t *testing.T) {
	h := newHarness(t)
	id := h.open(t, "draft.txt", "text")
	h.api.add("taken.txt", "")
	ctx := context.Background()

	for _, name := range []string{"", "   ", "draft.txt", "draft"} {
		title, err := h.c.Rename(ctx, id, "draft.txt", name)
		require.NoError(t, err)
		assert.Equal(t, "draft.txt", title)
	}
	assert.Empty(t, h.api.renames)

	_, err := h.c.Rename(ctx, id, "draft.txt", "taken")
	var taken *FilenameTakenError
	require.ErrorAs(t, err, &taken)
	assert.Equal(t, []string{`Filename "taken.txt" already exists. Please choose a different name.`}, h.notes.Messages(notify.Error))

	title, err := h.c.Rename(ctx, id, "draft.txt", " final ")
	require.NoError(t, err)
	assert.Equal(t, "final.txt", title)
	assert.Equal(t, []string{`Document renamed to "final.txt" successfully!`}, h.notes.Messages(notify.Success))

	doc, _ := h.c.Document()
	assert.Equal(t, "final.txt", doc.Title)
}

func TestRename_BackendError(t *testing.T) {
	h := newHarness(t)
	h.api.renameErr = &backend.APIError{StatusCode: 400, Detail: "Document title cannot be empty"}

	_, err := h.c.Rename(context.Background(), 1, "a.txt", "b")
	require.Error(t, err)
	assert.Equal(t, []string{"Document title cannot be empty"}, h.notes.Messages(notify.Error))
}

func TestDelete(t *testing.T) {
	h := newHarness(t)
	other := h.api.add("other.txt", "x")
	id := h.open(t, "open.txt", "y")

	require.NoError(t, h.c.Delete(context.Background(), other, "other.txt"))
	_, stillOpen := h.c.Document()
	assert.True(t, stillOpen)

	require.NoError(t, h.c.Delete(context.Background(), id, "open.txt"))
	_, stillOpen = h.c.Document()
	assert.False(t, stillOpen)
	assert.Empty(t, h.ed.HTML())

	assert.Equal(t, []string{
		`Document "other.txt" deleted successfully`,
		`Document "open.txt" deleted successfully`,
	}, h.notes.Messages(notify.Success))
	assert.Empty(t, h.c.Documents())
}

func TestDelete_Failure(t *testing.T) {
	h := newHarness(t)
	h.api.deleteErr = &backend.APIError{StatusCode: 404, Detail: "Document not found or access denied"}

	require.Error(t, h.c.Delete(context.Background(), 9, "gone.txt"))
	assert.Equal(t, []string{"Failed to delete document: Document not found or access denied"}, h.notes.Messages(notify.Error))
}

func TestList_Timeout(t *testing.T) {
	h := newHarness(t)
	h.api.listErr = &backend.NetworkError{Op: "GET /documents/list", Err: context.DeadlineExceeded, Timeout: true}

	_, err := h.c.List(context.Background())
	require.Error(t, err)
	assert.Equal(t, backend.KindTimeout, backend.Classify(err))
	assert.Equal(t, []string{TimeoutMessage}, h.notes.Messages(notify.Error))
}

func TestWorkspaceAgainstDevServer(t *testing.T) {
	dev := devserver.New(devserver.Config{FastHashing: true})
	ts := httptest.NewServer(dev.Router())
	t.Cleanup(ts.Close)

	_, err := dev.CreateUser("grace@example.com", "password123", "Grace", "Hopper")
	require.NoError(t, err)
	token, err := dev.IssueToken("grace@example.com", "password123")
	require.NoError(t, err)
	client := backend.New(ts.URL, backend.StaticToken(token), backend.WithRateLimit(0))

	clock := scheduler.NewManualClock(epoch)
	queue := scheduler.NewQueue(clock)
	ed := editor.NewBuffer()
	notes := &notify.Recorder{}
	c := New(client, ed, queue, notes)
	t.Cleanup(c.Close)
	ctx := context.Background()

	res, err := c.Upload(ctx, "essay.txt", []byte("i think teh essay is done."))
	require.NoError(t, err)

	_, err = c.Upload(ctx, "essay.txt", []byte("again"))
	var taken *FilenameTakenError
	require.ErrorAs(t, err, &taken)

	_, err = c.Open(ctx, res.DocumentID)
	require.NoError(t, err)
	require.Len(t, c.Chunks(), 1)

	ed.SetText("An edited essay.", editor.SourceUser)
	queue.Drain()
	clock.Advance(2 * time.Second)
	queue.Drain()
	c.Wait()
	queue.Drain()

	doc, err := client.GetDocument(ctx, res.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, "<p>An edited essay.</p>", doc.Content)
	assert.Contains(t, notes.Messages(notify.Info), "Auto-saved")

	big := "<p>" + strings.Repeat("a", backend.MaxContentBytes) + "</p>"
	ed.SetHTML(big, editor.SourceUser)
	queue.Drain()
	clock.Advance(2 * time.Second)
	queue.Drain()
	c.Wait()
	queue.Drain()

	errs := notes.Messages(notify.Error)
	require.NotEmpty(t, errs)
	assert.True(t, strings.HasPrefix(errs[len(errs)-1], "Auto-save failed: Document content exceeds 1MB limit."), errs)
	assert.Equal(t, SizeDanger, c.Size().Level)
}
