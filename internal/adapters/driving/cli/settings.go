package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/ragindex/internal/core/domain"
)

// Default models offered by the wizard.
var (
	defaultEmbeddingModels = map[domain.AIProvider]string{
		domain.AIProviderOpenAI:  "text-embedding-3-large",
		domain.AIProviderMistral: "mistral-embed",
		domain.AIProviderOllama:  "nomic-embed-text",
	}
	defaultLLMModels = map[domain.AIProvider]string{
		domain.AIProviderMistral:   "mistral-small-latest",
		domain.AIProviderOpenAI:    "gpt-4o-mini",
		domain.AIProviderAnthropic: "claude-3-5-haiku-latest",
		domain.AIProviderOllama:    "llama3.2",
	}
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and change chunking, embedding, index, retrieval, language model and
storage settings. Values are stored in config.toml in the config directory.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	Args:  cobra.NoArgs,
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set one setting",
	Long: `Parses, validates and stores one setting, for example:

  ragindex settings set chunking.size 1000
  ragindex settings set retrieval.reranker llm`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

var settingsSetKeyCmd = &cobra.Command{
	Use:   "set-key [provider]",
	Short: "Store an API key without echoing it",
	Long: `Prompts for the API key of a provider (openai, mistral or anthropic) and
stores it for the embedding and language model roles that use the provider.`,
	Args: cobra.ExactArgs(1),
	RunE: runSettingsSetKey,
}

var settingsWizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Interactive setup wizard",
	Long:  `Choose the embedding and language model providers step by step.`,
	Args:  cobra.NoArgs,
	RunE:  runSettingsWizard,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsSetKeyCmd)
	settingsCmd.AddCommand(settingsWizardCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")

	section := ""
	for _, key := range settingsService.Keys() {
		if s, _, _ := strings.Cut(key, "."); s != section {
			section = s
			cmd.Printf("\n[%s]\n", section)
		}
		value, _ := settingsService.Value(settings, key)
		if settingsService.IsSecret(key) {
			if value == "" {
				value = "(not set)"
			} else {
				value = maskAPIKey(value)
			}
		}
		cmd.Printf("  %-28s %s\n", key, value)
	}
	cmd.Println()

	if err := settingsService.Validate(settings); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'ragindex settings wizard' to fix configuration issues.")
		return nil
	}
	cmd.Println("Configuration is valid.")
	if !settings.Embedding.IsConfigured() {
		cmd.Println("Note: the embedding provider needs an API key.")
	}
	if !settings.LLM.IsConfigured() {
		cmd.Println("Note: the language model provider needs an API key.")
	}
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	key, value := args[0], args[1]
	if err := settingsService.Set(key, value); err != nil {
		return err
	}

	if settingsService.IsSecret(key) {
		value = maskAPIKey(value)
	}
	cmd.Printf("Set %s = %s\n", key, value)
	return nil
}

func runSettingsSetKey(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	provider := domain.AIProvider(strings.ToLower(args[0]))
	if !provider.IsValid() || !provider.RequiresAPIKey() {
		return fmt.Errorf("%w: %q does not take an API key", domain.ErrInvalidInput, args[0])
	}

	cmd.Printf("Enter %s API key: ", provider.Description())
	key := readPassword()
	cmd.Println()

	if err := settingsService.SetAPIKey(provider, key); err != nil {
		return err
	}
	cmd.Printf("Stored API key %s\n", maskAPIKey(key))
	return nil
}

func runSettingsWizard(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	cmd.Println("ragindex Settings Wizard")
	cmd.Println("========================")
	cmd.Println()

	reader := bufio.NewReader(os.Stdin)

	cmd.Println("Step 1: Embedding Provider")
	cmd.Println("--------------------------")
	if err := configureProvider(cmd, reader, "embedding", defaultEmbeddingModels); err != nil {
		return err
	}
	cmd.Print("Validating configuration... ")
	if err := settingsService.ValidateEmbeddingConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("embedding configuration validation failed: %w", err)
	}
	cmd.Println("OK")
	cmd.Println()

	cmd.Println("Step 2: Language Model Provider")
	cmd.Println("-------------------------------")
	if err := configureProvider(cmd, reader, "llm", defaultLLMModels); err != nil {
		return err
	}
	cmd.Print("Validating configuration... ")
	if err := settingsService.ValidateLLMConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("LLM configuration validation failed: %w", err)
	}
	cmd.Println("OK")
	cmd.Println()

	cmd.Println("Configuration Complete!")
	return nil
}

// configureProvider asks for the provider, model and API key of one role
// ("embedding" or "llm") and stores them.
func configureProvider(cmd *cobra.Command, reader *bufio.Reader, role string, models map[domain.AIProvider]string) error {
	providers := providerChoices(models)
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	selected := providers[parseChoice(readLine(reader), len(providers), 1)-1]

	defaultModel := models[selected]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	if err := settingsService.Set(role+".provider", string(selected)); err != nil {
		return fmt.Errorf("failed to set %s provider: %w", role, err)
	}
	if err := settingsService.Set(role+".model", model); err != nil {
		return fmt.Errorf("failed to set %s model: %w", role, err)
	}

	if selected.RequiresAPIKey() {
		cmd.Print("Enter API key (empty keeps the current one): ")
		apiKey := readPassword()
		cmd.Println()
		if apiKey != "" {
			if err := settingsService.Set(role+".api_key", apiKey); err != nil {
				return fmt.Errorf("failed to set %s API key: %w", role, err)
			}
		}
	}

	cmd.Printf("Configured %s: %s (%s)\n", role, selected.Description(), model)
	return nil
}

// providerChoices lists the providers with a default model, in a stable order.
func providerChoices(models map[domain.AIProvider]string) []domain.AIProvider {
	order := []domain.AIProvider{
		domain.AIProviderOpenAI,
		domain.AIProviderMistral,
		domain.AIProviderAnthropic,
		domain.AIProviderOllama,
	}
	var out []domain.AIProvider
	for _, p := range order {
		if _, ok := models[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

//nolint:errcheck // CLI helper, error ignored for UX
func readPassword() string {
	// Try to read password without echo
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return string(password)
		}
	}
	// Fallback to regular input
	reader := bufio.NewReader(os.Stdin)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
