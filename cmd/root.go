package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/feedback-coach/internal/config"
	"github.com/ziadkadry99/feedback-coach/internal/logging"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "coach",
	Short: "Terminal client for the CBC Feedback Coach",
	Long: `coach signs you in to a Feedback Coach server, manages your documents,
splits them into reviewable chunks as you edit, and collects feedback
and teacher corrections for each chunk.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := string(config.LogInfo)
		if cfg, err := config.Load(cfgFile); err == nil {
			level = string(cfg.LogLevel)
		}
		logging.Setup(os.Stderr, level, verbose)
		return nil
	},
}

// Execute runs the root command; Ctrl-C cancels the command's context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.FileName, "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
