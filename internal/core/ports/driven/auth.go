package driven

import (
	"context"

	"github.com/custodia-labs/ragindex/internal/core/domain"
)

// TokenVerifier resolves a bearer credential to a principal.
// Invalid or expired tokens return domain.ErrUnauthorized.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (domain.Principal, error)
}
