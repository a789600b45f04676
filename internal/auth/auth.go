// Package auth verifies bearer tokens issued by the external identity
// provider and carries the resulting identity through request contexts.
package auth

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/KirkDiggler/tabletop-api/internal/errors"
	"github.com/KirkDiggler/tabletop-api/internal/pkg/clock"
)

// Identity is the verified caller of a request
type Identity struct {
	UserID string
	Email  string
}

type claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// Config configures token verification
type Config struct {
	Secret   []byte
	Issuer   string
	Audience string
	Clock    clock.Clock
}

// Validate ensures the verifier can be built
func (c *Config) Validate() error {
	vb := errors.NewValidationBuilder()
	if len(c.Secret) == 0 {
		vb.RequiredField("secret")
	}
	if c.Clock == nil {
		vb.RequiredField("clock")
	}
	return vb.Build()
}

// Verifier validates HS256 tokens
type Verifier struct {
	secret   []byte
	issuer   string
	audience string
	clock    clock.Clock
}

// NewVerifier creates a token verifier
func NewVerifier(cfg *Config) (*Verifier, error) {
	if cfg == nil {
		return nil, errors.InvalidArgument("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	return &Verifier{
		secret:   cfg.Secret,
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		clock:    cfg.Clock,
	}, nil
}

// Verify parses a raw token and returns the identity it carries
func (v *Verifier) Verify(raw string) (*Identity, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.Unauthenticated("bearer token is required")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.clock.Now),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	var parsed claims
	_, err := jwt.ParseWithClaims(raw, &parsed, func(token *jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, mapJWTError(err)
	}

	if strings.TrimSpace(parsed.Subject) == "" {
		return nil, errors.Unauthenticated("token subject is required")
	}

	return &Identity{
		UserID: parsed.Subject,
		Email:  parsed.Email,
	}, nil
}

// Sign issues a token for the identity. Used by the test client and tests;
// production tokens come from the identity provider.
func (v *Verifier) Sign(identity Identity, ttl time.Duration) (string, error) {
	now := v.clock.Now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.UserID,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email: identity.Email,
	}
	if v.audience != "" {
		c.Audience = jwt.ClaimStrings{v.audience}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(v.secret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign token")
	}
	return signed, nil
}

func mapJWTError(err error) error {
	switch {
	case stderrors.Is(err, jwt.ErrTokenExpired):
		return errors.Unauthenticated("token is expired")
	case stderrors.Is(err, jwt.ErrTokenSignatureInvalid):
		return errors.Unauthenticated("token signature is invalid")
	case stderrors.Is(err, jwt.ErrTokenInvalidIssuer), stderrors.Is(err, jwt.ErrTokenInvalidAudience):
		return errors.Unauthenticated("token was not issued for this service")
	default:
		return errors.Unauthenticated("token is invalid")
	}
}

type identityKey struct{}

// WithIdentity stores the identity on the context
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// FromContext returns the identity stored by WithIdentity
func FromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(*Identity)
	return identity, ok && identity != nil
}

// Require returns the identity or an Unauthenticated error
func Require(ctx context.Context) (*Identity, error) {
	identity, ok := FromContext(ctx)
	if !ok {
		return nil, errors.Unauthenticated("authentication required")
	}
	return identity, nil
}
