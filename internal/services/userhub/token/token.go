// Package token issues and verifies the platform's access tokens.
//
// Tokens are Ed25519-signed JWTs. The signer runs inside the API process,
// so both halves of the key live in one Config.
package token

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/meridianpress/meridian/internal/platform/errors"
	"github.com/meridianpress/meridian/internal/services/userhub/domain"
)

const (
	// DefaultTTL is the access-token lifetime.
	DefaultTTL = 12 * time.Hour
	// RefreshTTL is the refresh-token lifetime.
	RefreshTTL = 30 * 24 * time.Hour

	signingMethod = "EdDSA"
	scopeRefresh  = "refresh"
)

// Config defines how access tokens are issued and verified.
type Config struct {
	Issuer   string
	Audience string
	Private  ed25519.PrivateKey
	Public   ed25519.PublicKey
	TTL      time.Duration
	Now      func() time.Time
}

// Claims captures the validated identity carried by an access token.
type Claims struct {
	UserID    string
	Role      domain.Role
	ExpiresAt time.Time
}

// wireClaims is the internal claims type used for JWT parsing.
type wireClaims struct {
	jwt.RegisteredClaims
	Role  string `json:"role"`
	Scope string `json:"scope,omitempty"`
}

// NewConfig builds a token config from a base64-encoded Ed25519 seed.
// Issuer and audience default to the platform identity when empty.
func NewConfig(issuer, audience, seedBase64 string) (Config, error) {
	seedBase64 = strings.TrimSpace(seedBase64)
	if seedBase64 == "" {
		return Config{}, errors.New("token signing seed is required")
	}
	seed, err := decodeBase64(seedBase64)
	if err != nil {
		return Config{}, fmt.Errorf("decode token seed: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return Config{}, fmt.Errorf("token seed must be %d bytes", ed25519.SeedSize)
	}
	private := ed25519.NewKeyFromSeed(seed)
	if issuer = strings.TrimSpace(issuer); issuer == "" {
		issuer = "meridian"
	}
	if audience = strings.TrimSpace(audience); audience == "" {
		audience = "meridian-api"
	}
	return Config{
		Issuer:   issuer,
		Audience: audience,
		Private:  private,
		Public:   private.Public().(ed25519.PublicKey),
		TTL:      DefaultTTL,
		Now:      time.Now,
	}, nil
}

// Issue signs an access token for the user.
func Issue(user domain.User, cfg Config) (string, time.Time, error) {
	return sign(user, cfg, "", cfg.TTL)
}

// IssueRefresh signs a long-lived refresh token for the user. Refresh
// tokens carry a scope claim and are rejected by Verify, so one can
// never authenticate a request directly.
func IssueRefresh(user domain.User, cfg Config) (string, time.Time, error) {
	return sign(user, cfg, scopeRefresh, RefreshTTL)
}

func sign(user domain.User, cfg Config, scope string, ttl time.Duration) (string, time.Time, error) {
	if len(cfg.Private) != ed25519.PrivateKeySize {
		return "", time.Time{}, errors.New("token signer is not configured")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := cfg.Now().UTC()
	expires := now.Add(ttl)
	claims := wireClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Audience:  jwt.ClaimStrings{cfg.Audience},
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		Role:  user.Role.String(),
		Scope: scope,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(cfg.Private)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expires, nil
}

// Verify parses and validates an access token.
func Verify(value string, cfg Config) (Claims, error) {
	claims, scope, err := verify(value, cfg)
	if err != nil {
		return Claims{}, err
	}
	if scope == scopeRefresh {
		return Claims{}, apperrors.New(apperrors.CodeTokenInvalid, "refresh token cannot authenticate a request")
	}
	return claims, nil
}

// VerifyRefresh parses and validates a refresh token.
func VerifyRefresh(value string, cfg Config) (Claims, error) {
	claims, scope, err := verify(value, cfg)
	if err != nil {
		return Claims{}, err
	}
	if scope != scopeRefresh {
		return Claims{}, apperrors.New(apperrors.CodeTokenInvalid, "not a refresh token")
	}
	return claims, nil
}

func verify(value string, cfg Config) (Claims, string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Claims{}, "", apperrors.New(apperrors.CodeAuthenticationMissing, "token is required")
	}
	if len(cfg.Public) != ed25519.PublicKeySize {
		return Claims{}, "", errors.New("token verifier is not configured")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	var parsed wireClaims
	_, err := jwt.ParseWithClaims(value, &parsed, func(t *jwt.Token) (any, error) {
		return cfg.Public, nil
	},
		jwt.WithValidMethods([]string{signingMethod}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithAudience(cfg.Audience),
		jwt.WithTimeFunc(cfg.Now),
	)
	if err != nil {
		return Claims{}, "", mapJWTError(err)
	}
	if strings.TrimSpace(parsed.Subject) == "" {
		return Claims{}, "", apperrors.New(apperrors.CodeTokenInvalid, "token subject missing")
	}
	role, roleErr := domain.ParseRole(parsed.Role)
	if roleErr != nil {
		return Claims{}, "", apperrors.New(apperrors.CodeTokenInvalid, "token role invalid")
	}
	var expires time.Time
	if parsed.ExpiresAt != nil {
		expires = parsed.ExpiresAt.Time
	}
	return Claims{
		UserID:    parsed.Subject,
		Role:      role,
		ExpiresAt: expires,
	}, parsed.Scope, nil
}

func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return apperrors.Wrap(apperrors.CodeTokenExpired, "token expired", err)
	default:
		return apperrors.Wrap(apperrors.CodeTokenInvalid, "token invalid", err)
	}
}

func decodeBase64(value string) ([]byte, error) {
	if decoded, err := base64.StdEncoding.DecodeString(value); err == nil {
		return decoded, nil
	}
	return base64.RawStdEncoding.DecodeString(value)
}
