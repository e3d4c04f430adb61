package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// doctorTimeout bounds each health probe.
const doctorTimeout = 10 * time.Second

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration and reachability of dependencies",
	Long: `Validates the settings, then pings the embedding service, the language
model and the blob store.`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	failed := 0

	if settingsService != nil {
		settings, err := settingsService.Get()
		if err == nil {
			err = settingsService.Validate(settings)
		}
		failed += report(cmd, "settings", err)
	}
	if unavailable != nil {
		failed += report(cmd, "services", unavailable)
	}

	for _, check := range healthChecks {
		ctx, cancel := context.WithTimeout(cmd.Context(), doctorTimeout)
		err := check.Ping(ctx)
		cancel()
		failed += report(cmd, check.Name, err)
	}

	if failed > 0 {
		return fmt.Errorf("%d check(s) failed", failed)
	}
	cmd.Println("All checks passed.")
	return nil
}

func report(cmd *cobra.Command, name string, err error) int {
	if err != nil {
		cmd.Printf("  [FAIL] %-10s %v\n", name, err)
		return 1
	}
	cmd.Printf("  [ OK ] %s\n", name)
	return 0
}
