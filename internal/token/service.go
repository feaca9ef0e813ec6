// Package token mints and verifies the self-contained bearer credentials the
// service issues: short-lived access tokens and long-lived refresh tokens,
// both HS256-signed JWTs sharing one process-wide secret.
//
// Tokens are stateless: no store is consulted at verification time, so a
// leaked refresh token stays valid until expiry. Refresh tokens carry a jti
// claim so a persisted deny list could be added without changing the wire
// format.
package token

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Kind discriminates the two credentials minted by the service.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Payload is the verified content of a token.
type Payload struct {
	UserID    string
	Username  string
	Admin     bool
	Kind      Kind
	IssuedAt  int64
	ExpiresAt int64
	TokenID   string // jti, refresh tokens only
}

type accessClaims struct {
	Username string `json:"username"`
	Admin    bool   `json:"admin"`
	Type     string `json:"type"`
	jwt.RegisteredClaims
}

type refreshClaims struct {
	Type string `json:"type"`
	jwt.RegisteredClaims
}

// wireClaims is the superset used on the verify path.
type wireClaims struct {
	Username string `json:"username,omitempty"`
	Admin    bool   `json:"admin,omitempty"`
	Type     string `json:"type"`
	jwt.RegisteredClaims
}

// Service mints and verifies tokens. It is stateless beyond the immutable
// secret and safe for concurrent use without locking.
type Service struct {
	secret        []byte
	accessExpiry  time.Duration
	refreshExpiry time.Duration
	now           func() time.Time
}

// NewService creates a token service around a shared symmetric secret.
func NewService(secret []byte, accessExpiry, refreshExpiry time.Duration) *Service {
	return &Service{
		secret:        secret,
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
		now:           time.Now,
	}
}

// GenerateSecret produces a random 32-byte secret for processes started
// without one configured.
func GenerateSecret() ([]byte, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("failed to generate token secret: %w", err)
	}
	return secret, nil
}

// MintAccess issues a short-lived access token for the given user.
func (s *Service) MintAccess(userID, username string, admin bool) (string, error) {
	now := s.now()
	claims := accessClaims{
		Username: username,
		Admin:    admin,
		Type:     string(KindAccess),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessExpiry)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

// MintRefresh issues a long-lived refresh token. The jti uniquely identifies
// the token so it could be named on a future revocation list.
func (s *Service) MintRefresh(userID string) (string, error) {
	now := s.now()
	claims := refreshClaims{
		Type: string(KindRefresh),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.refreshExpiry)),
			ID:        uuid.New().String(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign refresh token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry of a token of either kind and
// returns its payload. The signature comparison inside the JWT library is
// constant-time, so verification leaks no timing information about how much
// of the signature matched.
func (s *Service) Verify(tokenString string) (*Payload, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)

	var claims wireClaims
	_, err := parser.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrBadSignature
		default:
			return nil, ErrMalformed
		}
	}

	if claims.Subject == "" || claims.ExpiresAt == nil {
		return nil, ErrMalformed
	}

	payload := &Payload{
		UserID:    claims.Subject,
		Username:  claims.Username,
		Admin:     claims.Admin,
		Kind:      Kind(claims.Type),
		ExpiresAt: claims.ExpiresAt.Unix(),
		TokenID:   claims.ID,
	}
	if claims.IssuedAt != nil {
		payload.IssuedAt = claims.IssuedAt.Unix()
	}

	return payload, nil
}

// VerifyAccess verifies a token and requires it to be an access token.
func (s *Service) VerifyAccess(tokenString string) (*Payload, error) {
	return s.verifyKind(tokenString, KindAccess)
}

// VerifyRefresh verifies a token and requires it to be a refresh token.
func (s *Service) VerifyRefresh(tokenString string) (*Payload, error) {
	return s.verifyKind(tokenString, KindRefresh)
}

func (s *Service) verifyKind(tokenString string, kind Kind) (*Payload, error) {
	payload, err := s.Verify(tokenString)
	if err != nil {
		return nil, err
	}
	if payload.Kind != kind {
		return nil, ErrWrongKind
	}
	return payload, nil
}

// AccessExpirySeconds returns the access token lifetime in whole seconds,
// for expires_in response fields.
func (s *Service) AccessExpirySeconds() int {
	return int(s.accessExpiry.Seconds())
}

// RefreshExpirySeconds returns the refresh token lifetime in whole seconds.
func (s *Service) RefreshExpirySeconds() int {
	return int(s.refreshExpiry.Seconds())
}
