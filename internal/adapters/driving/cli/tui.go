package cli

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragindex/internal/adapters/driving/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive terminal UI",
	Long: `Launch the interactive terminal interface for one company.

Ask questions, open the sources behind an answer, and manage the company's
documents with keyboard navigation.

Controls:
  ↑/k, ↓/j - Navigate
  Enter    - Ask / Open
  Esc      - Back
  ?        - Help
  Ctrl+C   - Quit`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
			err = fmt.Errorf("TUI panic: %v", r)
		}
	}()

	if queryService == nil {
		return notConfigured("query")
	}
	if tenantService == nil {
		return notConfigured("tenant")
	}
	principal, tenant, err := resolveTenant(cmd.Context())
	if err != nil {
		return err
	}
	principal.Tenant = tenant

	app, err := tui.NewApp(tui.NewPorts(queryService, indexService, tenantService, principal))
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}

	if err := app.WithContext(cmd.Context()).Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
