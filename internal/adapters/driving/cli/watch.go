package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragindex/internal/logger"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rebuild indexes when documents change",
	Long: `Watches every company's document directory and rebuilds a company's
index once its documents stop changing. Runs until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	if watcher == nil {
		return notConfigured("watch")
	}

	cmd.Println("Watching documents for changes. Press Ctrl+C to stop.")
	err := watcher.Start(cmd.Context())

	if stopErr := watcher.Stop(); stopErr != nil {
		logger.Warn("watcher stop: %v", stopErr)
	}
	if cmd.Context().Err() != nil {
		return nil
	}
	return err
}
