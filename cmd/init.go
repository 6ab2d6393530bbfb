package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/feedback-coach/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize coach configuration with an interactive wizard",
	Long:  `Runs an interactive wizard that asks for the server address and local data directory and writes them to the config file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard(cfgFile)
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
