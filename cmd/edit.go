package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/fsnotify/fsnotify"
	"github.com/phuslu/log"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/feedback-coach/internal/editor"
	"github.com/ziadkadry99/feedback-coach/internal/workspace"
)

var editNoSave bool

var editCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Edit a document in $EDITOR with live chunking and auto-save",
	Long: `Opens the document as Markdown in your editor. Every time the file is
written the document is re-chunked after a quiet period and auto-saved to
the server. The document is saved once more when the editor exits.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.requireLogin(); err != nil {
			return err
		}

		s := a.startWorkspace(cmd.Context(),
			workspace.WithStatusListener(statusPrinter()),
			workspace.WithSizeListener(sizeWarner()),
		)
		defer s.stop()

		doc, err := s.ws.Open(cmd.Context(), id)
		if err != nil {
			return err
		}

		path, err := writeScratch(doc.Title, s.buf)
		if err != nil {
			return err
		}
		defer os.RemoveAll(filepath.Dir(path))

		watchCtx, stopWatch := context.WithCancel(cmd.Context())
		watchDone := make(chan error, 1)
		go func() { watchDone <- watchScratch(watchCtx, path, s.buf) }()

		runErr := runEditor(cmd.Context(), a.cfg.Editor, path)
		stopWatch()
		if err := <-watchDone; err != nil {
			log.Warn().Err(err).Msg("watching scratch file")
		}
		if runErr != nil {
			return runErr
		}

		if err := loadScratch(path, s.buf); err != nil {
			return err
		}
		s.sync()
		s.ws.Resplit()
		s.ws.Wait()

		if !editNoSave && s.ws.Dirty() {
			if err := s.ws.Save(cmd.Context()); err != nil {
				return err
			}
		}
		printChunks(s.ws.Chunks(), false)
		return nil
	},
}

// writeScratch writes the buffer as Markdown to a new temp file named
// after the document.
func writeScratch(title string, buf *editor.Buffer) (string, error) {
	dir, err := os.MkdirTemp("", "coach-edit-")
	if err != nil {
		return "", fmt.Errorf("creating scratch dir: %w", err)
	}
	md, err := buf.Markdown()
	if err != nil {
		os.RemoveAll(dir)
		return "", err
	}
	name := strings.TrimSuffix(filepath.Base(title), filepath.Ext(title)) + ".md"
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(md), 0o600); err != nil {
		os.RemoveAll(dir)
		return "", fmt.Errorf("writing scratch file: %w", err)
	}
	return path, nil
}

// loadScratch copies the scratch file into the buffer as a user edit when
// it differs from what the buffer holds.
func loadScratch(path string, buf *editor.Buffer) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading scratch file: %w", err)
	}
	current, err := buf.Markdown()
	if err == nil && strings.TrimSpace(current) == strings.TrimSpace(string(raw)) {
		return nil
	}
	return buf.SetMarkdown(string(raw), editor.SourceUser)
}

// watchScratch reloads the buffer whenever the editor writes path. The
// directory is watched because many editors replace the file on save.
func watchScratch(ctx context.Context, path string, buf *editor.Buffer) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(filepath.Dir(path)); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if err := loadScratch(path, buf); err != nil {
				log.Debug().Err(err).Msg("reloading scratch file")
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Debug().Err(err).Msg("watcher error")
		}
	}
}

// editorCommand picks the configured editor, then $VISUAL, then $EDITOR.
func editorCommand(configured string) []string {
	for _, candidate := range []string{configured, os.Getenv("VISUAL"), os.Getenv("EDITOR")} {
		if argv := strings.Fields(candidate); len(argv) > 0 {
			return argv
		}
	}
	return []string{"vi"}
}

func runEditor(ctx context.Context, configured, path string) error {
	argv := editorCommand(configured)
	c := exec.CommandContext(ctx, argv[0], append(argv[1:], path)...)
	c.Stdin, c.Stdout, c.Stderr = os.Stdin, os.Stdout, os.Stderr
	if err := c.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("editor exited with status %d", exitErr.ExitCode())
		}
		return fmt.Errorf("running editor: %w", err)
	}
	return nil
}

// statusPrinter prints chunk status changes, skipping repeats.
func statusPrinter() func(workspace.Status) {
	var (
		mu   sync.Mutex
		last string
	)
	return func(st workspace.Status) {
		mu.Lock()
		defer mu.Unlock()
		if st.Message == last {
			return
		}
		last = st.Message
		fmt.Fprintf(os.Stderr, "· %s\n", st.Message)
	}
}

// sizeWarner reports when the document crosses into a new size level.
func sizeWarner() func(workspace.Size) {
	var mu sync.Mutex
	level := workspace.SizeOK
	return func(sz workspace.Size) {
		mu.Lock()
		defer mu.Unlock()
		if sz.Level == level {
			return
		}
		level = sz.Level
		if sz.Level != workspace.SizeOK {
			fmt.Fprintf(os.Stderr, "! Document size %s of %s (%.0f%%)\n",
				sz, humanize.IBytes(uint64(sz.Limit)), sz.Percent())
		}
	}
}

func init() {
	editCmd.Flags().BoolVar(&editNoSave, "no-save", false, "skip the final save when the editor exits")
	rootCmd.AddCommand(editCmd)
}
