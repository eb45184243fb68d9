package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const defaultTokenTTL = 12 * time.Hour

var (
	// ErrInvalidToken indicates the bearer token failed signature or claim validation.
	ErrInvalidToken = errors.New("auth: invalid token")
	// ErrExpiredToken indicates the bearer token is past its expiry.
	ErrExpiredToken = errors.New("auth: token expired")
)

// StaffClaims carries the portal-specific claims embedded in staff session tokens.
type StaffClaims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// TokenVerifier validates and mints HS256 staff session tokens.
type TokenVerifier struct {
	secret []byte
	issuer string
	ttl    time.Duration
	clock  func() time.Time
}

// VerifierOption customises TokenVerifier construction.
type VerifierOption func(*TokenVerifier)

// WithTokenTTL overrides the lifetime applied to newly issued tokens.
func WithTokenTTL(ttl time.Duration) VerifierOption {
	return func(v *TokenVerifier) {
		if ttl > 0 {
			v.ttl = ttl
		}
	}
}

// WithClock injects a deterministic clock, primarily for tests.
func WithClock(clock func() time.Time) VerifierOption {
	return func(v *TokenVerifier) {
		if clock != nil {
			v.clock = clock
		}
	}
}

// NewTokenVerifier constructs a TokenVerifier over the shared signing secret.
func NewTokenVerifier(secret string, issuer string, opts ...VerifierOption) (*TokenVerifier, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("auth: signing secret is required")
	}
	v := &TokenVerifier{
		secret: []byte(secret),
		issuer: strings.TrimSpace(issuer),
		ttl:    defaultTokenTTL,
		clock:  time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	return v, nil
}

// Issue mints a signed session token for the supplied identity.
func (v *TokenVerifier) Issue(identity Identity) (string, error) {
	if v == nil {
		return "", errors.New("auth: verifier is nil")
	}
	staffID := strings.TrimSpace(identity.StaffID)
	if staffID == "" {
		return "", errors.New("auth: staff id is required")
	}
	now := v.clock().UTC()
	claims := StaffClaims{
		Email: strings.TrimSpace(identity.Email),
		Role:  string(identity.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   staffID,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(v.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// Verify parses the token and returns the identity it asserts.
func (v *TokenVerifier) Verify(raw string) (*Identity, error) {
	if v == nil {
		return nil, errors.New("auth: verifier is nil")
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrInvalidToken
	}

	claims := &StaffClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return v.clock().UTC() }),
	)
	token, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if v.issuer != "" && claims.Issuer != v.issuer {
		return nil, ErrInvalidToken
	}
	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return nil, ErrInvalidToken
	}

	return &Identity{
		StaffID: subject,
		Email:   strings.TrimSpace(claims.Email),
		Role:    ParseRole(claims.Role),
	}, nil
}
