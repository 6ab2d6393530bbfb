package workspace

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/phuslu/log"

	"github.com/ziadkadry99/feedback-coach/internal/backend"
	"github.com/ziadkadry99/feedback-coach/internal/notify"
)

// InputError is a local check that failed before anything was sent.
type InputError struct {
	Message string
}

func (e *InputError) Error() string { return e.Message }

// FilenameTakenError is returned when a document with the name exists.
type FilenameTakenError struct {
	Name string
}

func (e *FilenameTakenError) Error() string {
	return fmt.Sprintf("a document named %q already exists", e.Name)
}

// List fetches the user's documents, newest first.
func (c *Controller) List(ctx context.Context) ([]backend.DocumentSummary, error) {
	docs, err := c.api.ListDocuments(ctx)
	if err != nil {
		c.report(err, "Failed to load documents")
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	c.mu.Lock()
	c.documents = docs
	c.mu.Unlock()
	return docs, nil
}

// Documents returns the last fetched document list.
func (c *Controller) Documents() []backend.DocumentSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]backend.DocumentSummary(nil), c.documents...)
}

func (c *Controller) refresh(ctx context.Context) {
	if _, err := c.List(ctx); err != nil {
		log.Debug().Err(err).Msg("document list refresh failed")
	}
}

// ValidateUpload checks a file before upload: size, a .txt name, and
// UTF-8 content.
func ValidateUpload(name string, content []byte, limit int) error {
	if len(content) > limit {
		return &InputError{Message: "File size must be less than 1MB"}
	}
	if !strings.HasSuffix(strings.ToLower(name), ".txt") {
		return &InputError{Message: "Only plain text (.txt) files are allowed. For other formats, please save as .txt first."}
	}
	if !utf8.Valid(content) {
		return &InputError{Message: "File must be a valid UTF-8 text file"}
	}
	return nil
}

// Upload stores content as a new document named name and refreshes the
// list. A failed existence check does not stop the upload; the backend
// has the final say.
func (c *Controller) Upload(ctx context.Context, name string, content []byte) (*backend.UploadResult, error) {
	if !c.uploading.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer c.uploading.Store(false)

	if err := ValidateUpload(name, content, c.cfg.MaxContentBytes); err != nil {
		c.notifier.Notify(notify.Error, err.Error())
		return nil, err
	}

	exists, err := c.api.FilenameExists(ctx, name)
	if err != nil {
		log.Debug().Err(err).Str("name", name).Msg("filename check failed, uploading anyway")
	}
	if exists {
		c.notifier.Notify(notify.Error, fmt.Sprintf(
			"A document with the name %q already exists. Please rename the file or choose a different name.", name))
		return nil, &FilenameTakenError{Name: name}
	}

	c.notifier.Notify(notify.Info, "Uploading document...")
	res, err := c.api.UploadDocument(ctx, name, content)
	if err != nil {
		if backend.Classify(err) == backend.KindBadRequest {
			detail := backend.Detail(err)
			if strings.Contains(detail, "already exists") || strings.Contains(detail, "filename") {
				detail = "Filename conflict: " + detail
			}
			c.notifier.Notify(notify.Error, detail)
		} else {
			c.report(err, "Failed to upload document")
		}
		return nil, fmt.Errorf("uploading %s: %w", name, err)
	}

	c.notifier.Notify(notify.Success, "Document uploaded successfully!")
	c.refresh(ctx)
	return res, nil
}

// Create makes an empty document. ".txt" is appended when missing.
func (c *Controller) Create(ctx context.Context, name string) (*backend.UploadResult, error) {
	name = withTxt(strings.TrimSpace(name))
	if name == ".txt" {
		c.notifier.Notify(notify.Error, "Please enter a document name.")
		return nil, &InputError{Message: "document name is empty"}
	}

	exists, err := c.api.FilenameExists(ctx, name)
	if err != nil {
		if !c.reportSession(err) {
			c.notifier.Notify(notify.Error, "Error checking filename. Please try again.")
		}
		return nil, fmt.Errorf("checking filename %s: %w", name, err)
	}
	if exists {
		c.notifier.Notify(notify.Error, fmt.Sprintf("Filename %q already exists. Please choose a different name.", name))
		return nil, &FilenameTakenError{Name: name}
	}
	return c.createEmpty(ctx, name)
}

// CreateUntitled makes an empty "Untitled N.txt" with the backend's next
// number. When the backend is unreachable the number is the current time
// in milliseconds.
func (c *Controller) CreateUntitled(ctx context.Context) (*backend.UploadResult, error) {
	n, err := c.api.NextUntitledNumber(ctx)
	var name string
	switch kind := backend.Classify(err); kind {
	case backend.KindNone:
		name = untitledName(int64(n))
	case backend.KindNetwork, backend.KindTimeout:
		name = untitledName(c.queue.Clock().Now().UnixMilli())
		log.Debug().Err(err).Str("name", name).Msg("next untitled number unavailable, using fallback")
	default:
		if !c.reportSession(err) {
			c.notifier.Notify(notify.Error, "Error generating filename. Please try again.")
		}
		return nil, fmt.Errorf("getting next untitled number: %w", err)
	}
	return c.createEmpty(ctx, name)
}

func (c *Controller) createEmpty(ctx context.Context, name string) (*backend.UploadResult, error) {
	res, err := c.api.UploadDocument(ctx, name, nil)
	if err != nil {
		c.report(err, "Failed to create document")
		return nil, fmt.Errorf("creating %s: %w", name, err)
	}
	c.notifier.Notify(notify.Success, fmt.Sprintf("Document %q created successfully!", name))
	c.refresh(ctx)
	return res, nil
}

// NextUntitledNumber returns one more than the highest N among titles of
// the form "Untitled N.txt", or 1 when there are none.
func NextUntitledNumber(titles []string) int {
	highest := 0
	for _, title := range titles {
		if !strings.HasPrefix(title, "Untitled ") || !strings.HasSuffix(title, ".txt") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(title, "Untitled "), ".txt"))
		if err == nil && n > highest {
			highest = n
		}
	}
	return highest + 1
}

// LocalUntitledNumber numbers the next untitled document from the last
// fetched list.
func (c *Controller) LocalUntitledNumber() int {
	docs := c.Documents()
	titles := make([]string, len(docs))
	for i, d := range docs {
		titles[i] = d.Title
	}
	return NextUntitledNumber(titles)
}

func untitledName(n int64) string {
	return "Untitled " + strconv.FormatInt(n, 10) + ".txt"
}

func withTxt(name string) string {
	if strings.HasSuffix(name, ".txt") {
		return name
	}
	return name + ".txt"
}

// Rename gives document id a new title. Blank names and names equal to
// current are ignored; ".txt" is appended when missing. It returns the
// title the document ends up with.
func (c *Controller) Rename(ctx context.Context, id int64, current, newName string) (string, error) {
	trimmed := strings.TrimSpace(newName)
	if trimmed == "" || newName == current {
		return current, nil
	}
	full := withTxt(trimmed)
	if full == current {
		return current, nil
	}

	exists, err := c.api.FilenameExists(ctx, full)
	if err != nil {
		c.report(err, "Failed to rename document")
		return current, fmt.Errorf("checking filename %s: %w", full, err)
	}
	if exists {
		c.notifier.Notify(notify.Error, fmt.Sprintf("Filename %q already exists. Please choose a different name.", full))
		return current, &FilenameTakenError{Name: full}
	}

	if err := c.api.RenameDocument(ctx, id, full); err != nil {
		c.report(err, "Failed to rename document")
		return current, fmt.Errorf("renaming document %d: %w", id, err)
	}

	c.mu.Lock()
	if c.doc != nil && c.doc.ID == id {
		c.doc.Title = full
	}
	c.mu.Unlock()

	c.notifier.Notify(notify.Success, fmt.Sprintf("Document renamed to %q successfully!", full))
	c.refresh(ctx)
	return full, nil
}

// Delete removes document id. The editor is closed when it holds that
// document.
func (c *Controller) Delete(ctx context.Context, id int64, title string) error {
	if err := c.api.DeleteDocument(ctx, id); err != nil {
		c.reportPrefixed(err, "Failed to delete document: ", "Failed to delete document")
		return fmt.Errorf("deleting document %d: %w", id, err)
	}
	c.notifier.Notify(notify.Success, fmt.Sprintf("Document %q deleted successfully", title))
	c.refresh(ctx)

	c.mu.Lock()
	open := c.doc != nil && c.doc.ID == id
	c.mu.Unlock()
	if open {
		c.Close()
	}
	return nil
}
