// Package cli implements the ragindex command line.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragindex/internal/core/domain"
	"github.com/custodia-labs/ragindex/internal/core/ports/driven"
	"github.com/custodia-labs/ragindex/internal/core/ports/driving"
	"github.com/custodia-labs/ragindex/internal/logger"
)

// version is set at build time with -ldflags.
var version = "dev"

// localSubject names the principal of commands run without a token.
const localSubject = "local"

// skipBootstrap marks commands that run without services.
const skipBootstrap = "skip-bootstrap"

// Global flags.
var (
	verbose    bool
	configDir  string
	tenantFlag string
	tokenFlag  string
	adminFlag  bool
)

// SettingsManager is the settings surface the CLI needs beyond the port.
type SettingsManager interface {
	driving.SettingsService

	// Value returns the display form of one key.
	Value(settings *domain.Settings, key string) (string, bool)

	// Keys lists every supported key in display order.
	Keys() []string

	// IsSecret reports whether a key holds a credential.
	IsSecret(key string) bool

	// SetAPIKey stores a provider key for every role that uses it.
	SetAPIKey(provider domain.AIProvider, key string) error

	ValidateEmbeddingConfig() error
	ValidateLLMConfig() error
}

// Watcher rebuilds tenants whose documents change.
type Watcher interface {
	Start(ctx context.Context) error
	Stop() error
}

// HealthCheck is one dependency probed by the doctor command.
type HealthCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

// Services holds everything the commands run against.
type Services struct {
	Query    driving.QueryService
	Index    driving.IndexService
	Tenants  driving.TenantService
	Settings SettingsManager
	Verifier driven.TokenVerifier
	Watcher  Watcher
	Health   []HealthCheck

	// Unavailable explains why the pipeline services are nil, for example
	// a missing API key. Settings commands still work.
	Unavailable error

	// Close releases adapters. May be nil.
	Close func()
}

// Bootstrap builds the services from a config directory.
// An empty configDir selects the default location.
type Bootstrap func(ctx context.Context, configDir string) (*Services, error)

// Injected services.
var (
	queryService    driving.QueryService
	indexService    driving.IndexService
	tenantService   driving.TenantService
	settingsService SettingsManager
	tokenVerifier   driven.TokenVerifier
	watcher         Watcher
	healthChecks    []HealthCheck
	unavailable     error
	closeServices   func()

	bootstrap     Bootstrap
	servicesReady bool
)

// SetServices injects the services used by every command.
func SetServices(s *Services) {
	queryService = s.Query
	indexService = s.Index
	tenantService = s.Tenants
	settingsService = s.Settings
	tokenVerifier = s.Verifier
	watcher = s.Watcher
	healthChecks = s.Health
	unavailable = s.Unavailable
	closeServices = s.Close
	servicesReady = true
}

// SetBootstrap registers the function that builds services once flags are parsed.
func SetBootstrap(b Bootstrap) {
	bootstrap = b
}

var rootCmd = &cobra.Command{
	Use:   "ragindex",
	Short: "Multi-tenant document indexing and question answering",
	Long: `ragindex indexes each company's documents into a private vector index
and answers questions from them with a language model.

Every command that touches tenant data runs as a principal: pass a signed
--token, or name the company with --tenant for local use.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	flags.StringVar(&configDir, "config-dir", "", "configuration directory (default ~/.ragindex)")
	flags.StringVarP(&tenantFlag, "tenant", "t", "", "company identifier")
	flags.StringVar(&tokenFlag, "token", "", "bearer token identifying the caller")
	flags.BoolVar(&adminFlag, "admin", false, "act as an administrator when no token is given")
}

func setup(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	if servicesReady || bootstrap == nil || cmd.Annotations[skipBootstrap] != "" {
		return nil
	}
	svc, err := bootstrap(cmd.Context(), configDir)
	if err != nil {
		return err
	}
	SetServices(svc)
	return nil
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if closeServices != nil {
		closeServices()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, formatError(err))
		os.Exit(1)
	}
}

// formatError renders err as "kind: message".
func formatError(err error) string {
	return fmt.Sprintf("%s: %v", domain.KindOf(err), err)
}

// notConfigured reports a missing service, with the bootstrap reason if known.
func notConfigured(name string) error {
	if unavailable != nil {
		return fmt.Errorf("%s service not configured: %w", name, unavailable)
	}
	return fmt.Errorf("%s service not configured", name)
}

// resolvePrincipal identifies the caller. A token wins over --tenant.
func resolvePrincipal(ctx context.Context) (domain.Principal, error) {
	if tokenFlag != "" {
		if tokenVerifier == nil {
			return domain.Principal{}, fmt.Errorf("%w: token verification is not configured (set auth.jwt_secret)",
				domain.ErrUnauthorized)
		}
		return tokenVerifier.Verify(ctx, tokenFlag)
	}

	if tenantFlag == "" {
		return domain.Principal{}, fmt.Errorf("%w: --tenant or --token is required", domain.ErrInvalidInput)
	}
	tenant := domain.TenantID(tenantFlag)
	if err := tenant.Validate(); err != nil {
		return domain.Principal{}, err
	}

	role := domain.RoleMember
	if adminFlag {
		role = domain.RoleAdmin
	}
	return domain.Principal{Subject: localSubject, Tenant: tenant, Role: role}, nil
}

// resolveTenant returns the caller and the tenant the command targets.
// Token holders may only target their own tenant unless they are admins.
func resolveTenant(ctx context.Context) (domain.Principal, domain.TenantID, error) {
	p, err := resolvePrincipal(ctx)
	if err != nil {
		return domain.Principal{}, "", err
	}
	if tenantFlag == "" || domain.TenantID(tenantFlag) == p.Tenant {
		return p, p.Tenant, nil
	}
	if !p.IsAdmin() {
		return domain.Principal{}, "", fmt.Errorf("%w: %s may not act for %s", domain.ErrForbidden, p.Subject, tenantFlag)
	}
	tenant := domain.TenantID(tenantFlag)
	if err := tenant.Validate(); err != nil {
		return domain.Principal{}, "", err
	}
	return p, tenant, nil
}
