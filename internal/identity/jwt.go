package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// JWTConfig configures an HMAC-signed JWT verifier.
type JWTConfig struct {
	// Secret is the shared HMAC key. Required.
	Secret []byte
	// Issuer is the expected iss claim. Empty disables the check.
	Issuer string
	// Audience is the expected aud claim. Empty disables the check.
	Audience string
	// Leeway tolerates clock skew on exp/nbf/iat.
	Leeway time.Duration
}

// JWTVerifier verifies HS256/HS384/HS512 tokens issued by the identity provider.
type JWTVerifier struct {
	secret []byte
	opts   []jwtlib.ParserOption
}

var _ Verifier = (*JWTVerifier)(nil)

// NewJWTVerifier returns a verifier for cfg. An empty secret is rejected.
func NewJWTVerifier(cfg JWTConfig) (*JWTVerifier, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("identity: jwt secret must not be empty")
	}
	opts := []jwtlib.ParserOption{
		jwtlib.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwtlib.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwtlib.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwtlib.WithAudience(cfg.Audience))
	}
	if cfg.Leeway > 0 {
		opts = append(opts, jwtlib.WithLeeway(cfg.Leeway))
	}
	return &JWTVerifier{secret: cfg.Secret, opts: opts}, nil
}

// Verify parses and validates token. ctx is not consulted: verification is
// local and CPU bound.
func (v *JWTVerifier) Verify(_ context.Context, token string) (Claims, error) {
	claims := jwtlib.MapClaims{}
	parsed, err := jwtlib.ParseWithClaims(token, claims, func(*jwtlib.Token) (any, error) {
		return v.secret, nil
	}, v.opts...)
	if err != nil {
		return Claims{}, fmt.Errorf("parse jwt: %w", err)
	}
	if !parsed.Valid {
		return Claims{}, errors.New("jwt not valid")
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return Claims{}, errors.New("jwt missing sub claim")
	}
	out := Claims{Subject: sub, Values: map[string]any(claims)}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	return out, nil
}
