package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
)

var docsListJSON bool

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Manage a company's documents",
	Long: `List, upload or delete the documents a company's index is built from.
Uploads and deletions schedule a background rebuild.

Supported formats: .pdf, .docx, .txt, .md`,
}

var docsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored documents",
	Args:  cobra.NoArgs,
	RunE:  runDocsList,
}

var docsUploadCmd = &cobra.Command{
	Use:   "upload [file]...",
	Short: "Upload documents",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDocsUpload,
}

var docsDeleteCmd = &cobra.Command{
	Use:   "delete [name]...",
	Short: "Delete documents",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDocsDelete,
}

func init() {
	docsListCmd.Flags().BoolVar(&docsListJSON, "json", false, "output documents as JSON")
	docsCmd.AddCommand(docsListCmd)
	docsCmd.AddCommand(docsUploadCmd)
	docsCmd.AddCommand(docsDeleteCmd)
	rootCmd.AddCommand(docsCmd)
}

func runDocsList(cmd *cobra.Command, _ []string) error {
	if tenantService == nil {
		return notConfigured("tenant")
	}
	_, tenant, err := resolveTenant(cmd.Context())
	if err != nil {
		return err
	}

	docs, err := tenantService.ListDocuments(cmd.Context(), tenant)
	if err != nil {
		return err
	}

	if docsListJSON {
		return printJSON(cmd, docs)
	}
	if len(docs) == 0 {
		cmd.Printf("No documents for %s.\n", tenant)
		return nil
	}

	cmd.Printf("Documents for %s:\n\n", tenant)
	for _, d := range docs {
		cmd.Printf("  %-40s %10s  %s\n", d.Name, formatBytes(d.Size), d.ModifiedAt.Format(time.DateTime))
	}
	return nil
}

func runDocsUpload(cmd *cobra.Command, args []string) error {
	if tenantService == nil {
		return notConfigured("tenant")
	}
	_, tenant, err := resolveTenant(cmd.Context())
	if err != nil {
		return err
	}

	var errs []error
	for _, path := range args {
		f, err := os.Open(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("open %s: %w", path, err))
			continue
		}
		info, err := tenantService.Upload(cmd.Context(), tenant, filepath.Base(path), f)
		f.Close()
		if err != nil {
			errs = append(errs, fmt.Errorf("upload %s: %w", path, err))
			continue
		}
		cmd.Printf("Uploaded %s (%s)\n", info.Name, formatBytes(info.Size))
	}
	return errors.Join(errs...)
}

func runDocsDelete(cmd *cobra.Command, args []string) error {
	if tenantService == nil {
		return notConfigured("tenant")
	}
	_, tenant, err := resolveTenant(cmd.Context())
	if err != nil {
		return err
	}

	var errs []error
	for _, name := range args {
		if err := tenantService.Delete(cmd.Context(), tenant, name); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", name, err))
			continue
		}
		cmd.Printf("Deleted %s\n", name)
	}
	return errors.Join(errs...)
}

// formatBytes renders n with binary units.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
