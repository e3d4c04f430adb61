package cli

import (
	"github.com/spf13/cobra"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show document and index statistics for a company",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "output statistics as JSON")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	if tenantService == nil {
		return notConfigured("tenant")
	}
	_, tenant, err := resolveTenant(cmd.Context())
	if err != nil {
		return err
	}

	stats, err := tenantService.Stats(cmd.Context(), tenant)
	if err != nil {
		return err
	}

	if statsJSON {
		return printJSON(cmd, stats)
	}

	cmd.Printf("Company: %s\n", stats.Tenant)
	cmd.Printf("Documents: %d (%s)\n", stats.DocumentCount, formatBytes(stats.TotalSizeBytes))
	printIndexState(cmd, stats)
	return nil
}
