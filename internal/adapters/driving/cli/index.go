package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragindex/internal/core/domain"
)

var (
	indexStatusJSON   bool
	indexHistoryLimit int
	indexHistoryJSON  bool
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build and inspect company indexes",
}

var indexRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the company's index from its documents",
	Long: `Loads every document, chunks and embeds it, builds a new vector index and
replaces the stored one. The previous index keeps serving queries until the
new one is saved, and stays in place if the rebuild fails.`,
	Args: cobra.NoArgs,
	RunE: runIndexRebuild,
}

var indexStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of the company's index",
	Args:  cobra.NoArgs,
	RunE:  runIndexStatus,
}

var indexHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List the company's past rebuilds",
	Args:  cobra.NoArgs,
	RunE:  runIndexHistory,
}

func init() {
	indexStatusCmd.Flags().BoolVar(&indexStatusJSON, "json", false, "output status as JSON")
	indexHistoryCmd.Flags().IntVarP(&indexHistoryLimit, "limit", "n", 10, "number of builds to show")
	indexHistoryCmd.Flags().BoolVar(&indexHistoryJSON, "json", false, "output builds as JSON")
	indexCmd.AddCommand(indexRebuildCmd)
	indexCmd.AddCommand(indexHistoryCmd)
	indexCmd.AddCommand(indexStatusCmd)
	rootCmd.AddCommand(indexCmd)
}

func runIndexRebuild(cmd *cobra.Command, _ []string) error {
	if indexService == nil {
		return notConfigured("index")
	}
	_, tenant, err := resolveTenant(cmd.Context())
	if err != nil {
		return err
	}

	cmd.Printf("Rebuilding index for %s...\n", tenant)
	status, err := indexService.Rebuild(cmd.Context(), tenant)
	if err != nil {
		return err
	}

	cmd.Printf("Indexed %d documents into %d chunks in %s\n",
		status.Documents, status.Chunks, status.FinishedAt.Sub(status.StartedAt).Round(time.Millisecond))
	return nil
}

func runIndexStatus(cmd *cobra.Command, _ []string) error {
	if indexService == nil {
		return notConfigured("index")
	}
	_, tenant, err := resolveTenant(cmd.Context())
	if err != nil {
		return err
	}

	status := indexService.Status(tenant)
	if indexStatusJSON {
		return printJSON(cmd, status)
	}

	cmd.Printf("Company: %s\n", tenant)
	if status.Running() {
		cmd.Printf("Rebuild: %s (started %s)\n", status.Stage, status.StartedAt.Format(time.DateTime))
	} else {
		cmd.Println("Rebuild: idle")
	}
	if status.Error != "" {
		cmd.Printf("Last error: %s\n", status.Error)
	}

	if tenantService == nil {
		return nil
	}
	stats, err := tenantService.Stats(cmd.Context(), tenant)
	if err != nil {
		return err
	}
	printIndexState(cmd, stats)
	return nil
}

func runIndexHistory(cmd *cobra.Command, _ []string) error {
	if tenantService == nil {
		return notConfigured("tenant")
	}
	_, tenant, err := resolveTenant(cmd.Context())
	if err != nil {
		return err
	}

	builds, err := tenantService.BuildHistory(cmd.Context(), tenant, indexHistoryLimit)
	if err != nil {
		return err
	}
	if indexHistoryJSON {
		return printJSON(cmd, builds)
	}
	if len(builds) == 0 {
		cmd.Println("No builds recorded.")
		return nil
	}

	for _, b := range builds {
		cmd.Printf("%s  %-9s %4d docs %6d chunks  %s\n",
			b.FinishedAt.Format(time.DateTime), b.Outcome, b.Documents, b.Chunks, b.FinishedAt.Sub(b.StartedAt).Round(time.Millisecond))
		if b.Error != "" {
			cmd.Printf("  %s\n", b.Error)
		}
	}
	return nil
}

func printIndexState(cmd *cobra.Command, stats *domain.TenantStats) {
	if stats.IndexExists {
		cmd.Println("Index: built")
	} else {
		cmd.Println("Index: not built")
	}
	if stats.InCache {
		cmd.Println("Cache: loaded")
	}
	if b := stats.LastBuild; b != nil {
		cmd.Printf("Last build: %s at %s (%d documents, %d chunks, %s)\n",
			b.Outcome, b.FinishedAt.Format(time.DateTime), b.Documents, b.Chunks, b.Model)
		if b.Error != "" {
			cmd.Printf("  %s\n", b.Error)
		}
	}
}
