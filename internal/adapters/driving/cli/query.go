package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragindex/internal/core/domain"
)

var (
	askK        int
	askTopN     int
	askLanguage string
	askJSON     bool

	retrieveK    int
	retrieveJSON bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question from a company's documents",
	Long: `Retrieves the chunks closest to the question, reranks them and asks the
language model to answer from those sources only.

Zero --k or --top-n uses the configured defaults.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

var retrieveCmd = &cobra.Command{
	Use:   "retrieve [query]",
	Short: "Show the chunks most similar to a query",
	Args:  cobra.ExactArgs(1),
	RunE:  runRetrieve,
}

func init() {
	askCmd.Flags().IntVarP(&askK, "k", "k", 0, "number of chunks to retrieve")
	askCmd.Flags().IntVarP(&askTopN, "top-n", "n", 0, "number of chunks kept after reranking")
	askCmd.Flags().StringVarP(&askLanguage, "language", "l", "", "language of the answer")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	rootCmd.AddCommand(askCmd)

	retrieveCmd.Flags().IntVarP(&retrieveK, "k", "k", 10, "number of chunks to return")
	retrieveCmd.Flags().BoolVar(&retrieveJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(retrieveCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if queryService == nil {
		return notConfigured("query")
	}
	_, tenant, err := resolveTenant(cmd.Context())
	if err != nil {
		return err
	}

	answer, err := queryService.Ask(cmd.Context(), tenant, domain.AskRequest{
		Question: args[0],
		K:        askK,
		TopN:     askTopN,
		Language: askLanguage,
	})
	if err != nil {
		return err
	}

	if askJSON {
		return printJSON(cmd, answer)
	}

	cmd.Println(answer.Text)
	cmd.Println()
	printSources(cmd, answer.Sources)
	return nil
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	if queryService == nil {
		return notConfigured("query")
	}
	_, tenant, err := resolveTenant(cmd.Context())
	if err != nil {
		return err
	}

	chunks, err := queryService.Retrieve(cmd.Context(), tenant, args[0], retrieveK)
	if err != nil {
		return err
	}

	if retrieveJSON {
		return printJSON(cmd, chunks)
	}
	if len(chunks) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	for i := range chunks {
		c := &chunks[i]
		cmd.Printf("  [%d] %s #%d (%.3f)\n", i+1, c.DocumentName, c.Position, c.Score)
		cmd.Printf("      %s\n", preview(c.Content, 160))
		cmd.Println()
	}
	return nil
}

func printSources(cmd *cobra.Command, sources []domain.ScoredChunk) {
	if len(sources) == 0 {
		return
	}
	cmd.Println("Sources:")
	for i := range sources {
		cmd.Printf("  [%d] %s #%d (%.3f)\n", i+1, sources[i].DocumentName, sources[i].Position, sources[i].Score)
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

// preview collapses whitespace and cuts s to n runes.
func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
