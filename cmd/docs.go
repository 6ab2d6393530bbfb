package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/feedback-coach/internal/backend"
	"github.com/ziadkadry99/feedback-coach/internal/editor"
	"github.com/ziadkadry99/feedback-coach/internal/importer"
	"github.com/ziadkadry99/feedback-coach/internal/progress"
)

var (
	newUntitled  bool
	deleteYes    bool
	showFormat   string
	uploadDryRun bool
)

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Manage your documents",
}

var docsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your documents, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, s, err := openWorkspace(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		defer s.stop()

		docs, err := s.ws.List(cmd.Context())
		if err != nil {
			return err
		}
		if len(docs) == 0 {
			fmt.Println("No documents yet. Upload one with `coach docs upload <file>`.")
			return nil
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tTITLE\tCREATED")
		for _, d := range docs {
			fmt.Fprintf(tw, "%d\t%s\t%s\n", d.ID, d.Title, createdAgo(d.CreatedAt))
		}
		return tw.Flush()
	},
}

var docsUploadCmd = &cobra.Command{
	Use:   "upload <file|dir|glob>...",
	Short: "Upload text, Markdown, HTML, Word or PDF files as .txt documents",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := importer.Expand(args)
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			return fmt.Errorf("no supported files matched %s", strings.Join(args, " "))
		}

		if uploadDryRun {
			for _, p := range paths {
				fmt.Printf("%s -> %s\n", p, importer.UploadName(p))
			}
			return nil
		}

		a, s, err := openWorkspace(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		defer s.stop()

		reporter := progress.NewReporter(os.Stderr)
		reporter.Start(len(paths))
		for _, p := range paths {
			doc, err := importer.Load(p)
			if err == nil {
				_, err = s.ws.Upload(cmd.Context(), doc.Name, doc.Content)
			}
			reporter.Step(p, err)
		}
		failed := reporter.Finish()

		if failed > 0 {
			return fmt.Errorf("%d of %d uploads failed", failed, len(paths))
		}
		return nil
	},
}

var docsNewCmd = &cobra.Command{
	Use:   "new [name]",
	Short: "Create an empty document",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, s, err := openWorkspace(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		defer s.stop()

		var res *backend.UploadResult
		if newUntitled || len(args) == 0 {
			res, err = s.ws.CreateUntitled(cmd.Context())
		} else {
			res, err = s.ws.Create(cmd.Context(), args[0])
		}
		if err != nil {
			return err
		}
		fmt.Printf("%d\t%s\n", res.DocumentID, res.Filename)
		return nil
	},
}

var docsRenameCmd = &cobra.Command{
	Use:   "rename <id> <new-name>",
	Short: "Rename a document",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		a, s, err := openWorkspace(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		defer s.stop()

		current, err := documentTitle(cmd, s, id)
		if err != nil {
			return err
		}
		_, err = s.ws.Rename(cmd.Context(), id, current, args[1])
		return err
	},
}

var docsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		a, s, err := openWorkspace(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		defer s.stop()

		title, err := documentTitle(cmd, s, id)
		if err != nil {
			return err
		}
		if !deleteYes && !confirm(fmt.Sprintf("Are you sure you want to delete %q? This action cannot be undone", title)) {
			fmt.Println("Cancelled.")
			return nil
		}
		return s.ws.Delete(cmd.Context(), id, title)
	},
}

var docsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a document as text, Markdown or HTML",
	Args:  cobra.ExactArgs(1),
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

		doc, err := a.client.GetDocument(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("loading document %d: %w", id, err)
		}
		out, err := renderDocument(doc.Content, showFormat)
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	},
}

// renderDocument converts stored content, plain text or HTML, to format.
func renderDocument(content, format string) (string, error) {
	buf := editor.NewBuffer()
	if strings.Contains(content, "<") {
		buf.SetHTML(content, editor.SourceSilent)
	} else {
		buf.SetText(content, editor.SourceSilent)
	}
	switch format {
	case "", "text":
		return buf.Text(), nil
	case "html":
		return buf.HTML() + "\n", nil
	case "markdown", "md":
		md, err := buf.Markdown()
		if err != nil {
			return "", err
		}
		return md + "\n", nil
	default:
		return "", fmt.Errorf("unknown format %q: must be text, markdown or html", format)
	}
}

// documentTitle looks id up in the document list.
func documentTitle(cmd *cobra.Command, s *workspaceSession, id int64) (string, error) {
	docs, err := s.ws.List(cmd.Context())
	if err != nil {
		return "", err
	}
	for _, d := range docs {
		if d.ID == id {
			return d.Title, nil
		}
	}
	return "", fmt.Errorf("document %d not found", id)
}

var createdLayouts = []string{
	"2006-01-02T15:04:05.999999",
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
}

// createdAgo renders a backend timestamp relative to now, or verbatim when
// it cannot be parsed.
func createdAgo(raw string) string {
	for _, layout := range createdLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return humanize.Time(t)
		}
	}
	return raw
}

// openWorkspace opens the app and a workspace for a signed-in user.
func openWorkspace(cmd *cobra.Command) (*app, *workspaceSession, error) {
	a, err := openApp()
	if err != nil {
		return nil, nil, err
	}
	if err := a.requireLogin(); err != nil {
		a.Close()
		return nil, nil, err
	}
	return a, a.startWorkspace(cmd.Context()), nil
}

func init() {
	docsNewCmd.Flags().BoolVar(&newUntitled, "untitled", false, "pick the next free \"Untitled N.txt\" name")
	docsDeleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "skip the confirmation prompt")
	docsShowCmd.Flags().StringVar(&showFormat, "format", "text", "output format: text, markdown or html")
	docsUploadCmd.Flags().BoolVar(&uploadDryRun, "dry-run", false, "list the files and names without uploading")

	docsCmd.AddCommand(docsListCmd, docsUploadCmd, docsNewCmd, docsRenameCmd, docsDeleteCmd, docsShowCmd)
	rootCmd.AddCommand(docsCmd)
}
