package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/feedback-coach/internal/chunker"
	"github.com/ziadkadry99/feedback-coach/internal/importer"
)

var (
	chunksDoc  int64
	chunksJSON bool
	chunksFull bool
)

const previewWords = 12

var chunksCmd = &cobra.Command{
	Use:   "chunks [file]",
	Short: "Show how a file or stored document splits into chunks",
	Long: `Splits text into chunks of roughly 300 words that end on a sentence
boundary, the same way the editor does. Pass a local file (text, Markdown,
HTML, Word or PDF) or --doc with a document id.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		var text string
		switch {
		case chunksDoc > 0:
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.requireLogin(); err != nil {
				return err
			}
			doc, err := a.client.GetDocument(cmd.Context(), chunksDoc)
			if err != nil {
				return fmt.Errorf("loading document %d: %w", chunksDoc, err)
			}
			text, _ = renderDocument(doc.Content, "text")
		case len(args) == 1:
			doc, err := importer.Load(args[0])
			if err != nil {
				return err
			}
			text = string(doc.Content)
		default:
			return fmt.Errorf("pass a file or --doc <id>")
		}

		chunks := chunker.BuildWithConfig(text, cfg.Chunking())
		if chunksJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(chunks)
		}
		printChunks(chunks, chunksFull)
		return nil
	},
}

func printChunks(chunks []chunker.Chunk, full bool) {
	if len(chunks) == 0 {
		fmt.Println("Document is empty")
		return
	}
	for _, c := range chunks {
		fmt.Printf("Chunk %d (%d words)\n", c.Index+1, c.WordCount)
		if full {
			fmt.Printf("%s\n\n", c.Text)
			continue
		}
		fmt.Printf("  %s\n", preview(c.Text))
	}
	fmt.Printf("Ready (%d chunks)\n", len(chunks))
}

func preview(text string) string {
	words := strings.Fields(text)
	if len(words) <= previewWords {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:previewWords], " ") + " ..."
}

func init() {
	chunksCmd.Flags().Int64Var(&chunksDoc, "doc", 0, "split a stored document instead of a file")
	chunksCmd.Flags().BoolVar(&chunksJSON, "json", false, "print chunks as JSON")
	chunksCmd.Flags().BoolVar(&chunksFull, "full", false, "print each chunk's full text")
	rootCmd.AddCommand(chunksCmd)
}
