package cmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/feedback-coach/internal/feedback"
)

var (
	feedbackReview  string
	feedbackLimit   int
	feedbackLang    string
	submitOriginal  string
	submitCorrected string
	submitCBC       string
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Get feedback on chunks and submit teacher corrections",
}

var feedbackRequestCmd = &cobra.Command{
	Use:   "request <id> <chunk>",
	Short: "Get a correction and feedback for one chunk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		index, err := parseChunk(args[1])
		if err != nil {
			return err
		}
		a, s, err := openWorkspace(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		defer s.stop()

		if _, err := s.ws.Open(cmd.Context(), id); err != nil {
			return err
		}
		review, err := s.ws.RequestFeedback(cmd.Context(), index)
		if err != nil {
			return err
		}

		fb := review.Feedback
		if feedbackLang != "" {
			lang, err := feedback.ParseLanguage(feedbackLang)
			if err != nil {
				return err
			}
			if fb, err = s.ws.Translate(fb, lang); err != nil {
				return err
			}
		}
		printReview(review, fb)
		return nil
	},
}

var feedbackApplyCmd = &cobra.Command{
	Use:   "apply <id> <chunk>",
	Short: "Replace a chunk with its correction and save the document",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		index, err := parseChunk(args[1])
		if err != nil {
			return err
		}
		a, s, err := openWorkspace(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		defer s.stop()

		if _, err := s.ws.Open(cmd.Context(), id); err != nil {
			return err
		}

		var corrected string
		if feedbackReview != "" {
			review, err := feedback.NewStore(a.db).Get(cmd.Context(), feedbackReview)
			if err != nil {
				return err
			}
			corrected = review.Corrected
		} else {
			review, err := s.ws.RequestFeedback(cmd.Context(), index)
			if err != nil {
				return err
			}
			corrected = review.Corrected
		}

		if err := s.ws.ApplyCorrection(index, corrected); err != nil {
			return err
		}
		s.sync()
		s.ws.Wait()
		if s.ws.Dirty() {
			return s.ws.Save(cmd.Context())
		}
		return nil
	},
}

var feedbackSubmitCmd = &cobra.Command{
	Use:   "submit [review-id]",
	Short: "Submit a teacher correction as training data",
	Long: `Submits your correction of a chunk together with CBC feedback. Pass the
id of a review from "coach feedback history" to use its original text, or
--original. Missing values are prompted for.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, s, err := openWorkspace(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		defer s.stop()

		store := feedback.NewStore(a.db)
		original := submitOriginal
		var reviewID string
		if len(args) == 1 {
			review, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			reviewID, original = review.ID, review.Original
			fmt.Printf("Original:\n%s\n\n", review.Original)
		}

		correction := submitCorrected
		if correction == "" {
			if correction, err = ask("Your correction", "", nil); err != nil {
				return err
			}
		}
		cbc := submitCBC
		if cbc == "" {
			if cbc, err = ask("CBC feedback", "", nil); err != nil {
				return err
			}
		}

		res, err := s.ws.SubmitCorrection(cmd.Context(), original, correction, cbc)
		if err != nil {
			return err
		}
		if reviewID != "" {
			if err := store.MarkSubmitted(cmd.Context(), reviewID); err != nil {
				return err
			}
		}
		fmt.Printf("Training record %d\n", res.TrainingDataID)
		return nil
	},
}

var feedbackHistoryCmd = &cobra.Command{
	Use:   "history <id>",
	Short: "List feedback requested for a document",
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

		reviews, err := feedback.NewStore(a.db).List(cmd.Context(), strconv.FormatInt(id, 10), feedbackLimit)
		if err != nil {
			return err
		}
		if len(reviews) == 0 {
			fmt.Println("No feedback requested for this document yet.")
			return nil
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "REVIEW\tCHUNK\tREQUESTED\tSUBMITTED\tORIGINAL")
		for _, r := range reviews {
			submitted := "-"
			if r.SubmittedAt != nil {
				submitted = humanize.Time(*r.SubmittedAt)
			}
			fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n", r.ID, r.ChunkIndex+1, humanize.Time(r.CreatedAt), submitted, preview(r.Original))
		}
		return tw.Flush()
	},
}

var feedbackTranslateCmd = &cobra.Command{
	Use:   "translate <text>...",
	Short: "Translate feedback text",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if feedbackLang == "" {
			return errors.New("--lang is required")
		}
		lang, err := feedback.ParseLanguage(feedbackLang)
		if err != nil {
			return err
		}
		out, err := feedback.Translate(strings.Join(args, " "), lang)
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	},
}

func printReview(r feedback.Review, fb string) {
	fmt.Printf("Chunk %d\n\n", r.ChunkIndex+1)
	fmt.Printf("Original:\n%s\n\n", r.Original)
	fmt.Printf("Corrected:\n%s\n\n", r.Corrected)
	fmt.Printf("Feedback:\n%s\n", fb)
	if r.ID != "" {
		fmt.Printf("\nReview %s\n", r.ID)
	}
}

func init() {
	feedbackRequestCmd.Flags().StringVar(&feedbackLang, "lang", "", "translate the feedback (kinyarwanda or english)")
	feedbackTranslateCmd.Flags().StringVar(&feedbackLang, "lang", "", "target language (kinyarwanda or english)")
	feedbackApplyCmd.Flags().StringVar(&feedbackReview, "review", "", "apply the correction from this review instead of requesting a new one")
	feedbackHistoryCmd.Flags().IntVar(&feedbackLimit, "limit", 20, "maximum number of reviews to show")
	feedbackSubmitCmd.Flags().StringVar(&submitOriginal, "original", "", "original text, when no review id is given")
	feedbackSubmitCmd.Flags().StringVar(&submitCorrected, "correction", "", "your corrected text")
	feedbackSubmitCmd.Flags().StringVar(&submitCBC, "cbc", "", "CBC feedback for the learner")

	feedbackCmd.AddCommand(feedbackRequestCmd, feedbackApplyCmd, feedbackSubmitCmd, feedbackHistoryCmd, feedbackTranslateCmd)
	rootCmd.AddCommand(feedbackCmd)
}
