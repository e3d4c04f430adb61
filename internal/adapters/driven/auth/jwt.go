// Package auth resolves bearer tokens to principals.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/custodia-labs/ragindex/internal/core/domain"
	"github.com/custodia-labs/ragindex/internal/core/ports/driven"
)

// Ensure JWTVerifier implements the interface.
var _ driven.TokenVerifier = (*JWTVerifier)(nil)

// ErrNoSecret is returned when the verifier is built without a secret.
var ErrNoSecret = errors.New("jwt secret not configured")

// Claims is the token payload: the standard registered claims plus the
// tenant the caller acts for and its role.
type Claims struct {
	Tenant string `json:"tenant"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// JWTVerifier verifies HS256 tokens signed with a shared secret.
type JWTVerifier struct {
	secret []byte
	issuer string
	leeway time.Duration
	now    func() time.Time
}

// Option configures a JWTVerifier.
type Option func(*JWTVerifier)

// WithIssuer requires tokens to carry this "iss" claim.
func WithIssuer(issuer string) Option {
	return func(v *JWTVerifier) {
		v.issuer = issuer
	}
}

// WithLeeway tolerates clock skew when checking exp and nbf.
func WithLeeway(d time.Duration) Option {
	return func(v *JWTVerifier) {
		v.leeway = d
	}
}

// withClock overrides the time source in tests.
func withClock(now func() time.Time) Option {
	return func(v *JWTVerifier) {
		v.now = now
	}
}

// NewJWTVerifier creates a verifier for the given secret.
func NewJWTVerifier(secret string, opts ...Option) (*JWTVerifier, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	v := &JWTVerifier{
		secret: []byte(secret),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// FromSettings creates a verifier from auth settings.
func FromSettings(s domain.AuthSettings) (*JWTVerifier, error) {
	return NewJWTVerifier(s.JWTSecret, WithIssuer(s.Issuer), WithLeeway(30*time.Second))
}

// Verify parses and validates the token. Any failure, including a missing
// tenant claim or an unknown role, returns domain.ErrUnauthorized.
func (v *JWTVerifier) Verify(ctx context.Context, token string) (domain.Principal, error) {
	if err := ctx.Err(); err != nil {
		return domain.Principal{}, err
	}
	if token == "" {
		return domain.Principal{}, fmt.Errorf("%w: missing token", domain.ErrUnauthorized)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return domain.Principal{}, fmt.Errorf("%w: %w", domain.ErrUnauthorized, err)
	}

	return claims.principal()
}

func (c Claims) principal() (domain.Principal, error) {
	tenant := domain.TenantID(c.Tenant)
	if err := tenant.Validate(); err != nil {
		return domain.Principal{}, fmt.Errorf("%w: tenant claim: %w", domain.ErrUnauthorized, err)
	}

	role := domain.Role(c.Role)
	if role == "" {
		role = domain.RoleMember
	}
	if !role.IsValid() {
		return domain.Principal{}, fmt.Errorf("%w: unknown role %q", domain.ErrUnauthorized, c.Role)
	}

	return domain.Principal{
		Subject: c.Subject,
		Tenant:  tenant,
		Role:    role,
	}, nil
}

// Issue signs a token for the principal, valid for ttl.
// It backs `ragindex token issue` for local setups sharing the secret.
func (v *JWTVerifier) Issue(p domain.Principal, ttl time.Duration) (string, error) {
	if err := p.Tenant.Validate(); err != nil {
		return "", err
	}
	if ttl <= 0 {
		return "", fmt.Errorf("%w: token lifetime must be positive", domain.ErrInvalidInput)
	}

	now := v.now()
	claims := Claims{
		Tenant: string(p.Tenant),
		Role:   string(p.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.Subject,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
