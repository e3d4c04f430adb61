package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragindex/internal/core/domain"
)

var cacheClearAll bool

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the in-memory index cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Evict cached indexes (admin only)",
	Long: `Evicts the company's cached index so the next query reloads it from
storage. With --all every company's cache entry is evicted.`,
	Args: cobra.NoArgs,
	RunE: runCacheClear,
}

func init() {
	cacheClearCmd.Flags().BoolVar(&cacheClearAll, "all", false, "evict every company")
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheClear(cmd *cobra.Command, _ []string) error {
	if tenantService == nil {
		return notConfigured("tenant")
	}
	principal, tenant, err := resolveTenant(cmd.Context())
	if err != nil {
		return err
	}

	var target domain.TenantID
	if !cacheClearAll {
		target = tenant
	}
	if err := tenantService.ClearCache(cmd.Context(), principal, target); err != nil {
		return err
	}

	if target == "" {
		cmd.Println("Cleared the cache for every company.")
	} else {
		cmd.Printf("Cleared the cache for %s.\n", target)
	}
	return nil
}
