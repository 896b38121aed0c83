// Package auth issues and checks the bearer tokens the VibeCoders API hands out
// at login, hashes passwords, and talks to GitHub for "sign in with GitHub".
//
// A token is an HS256 JWT:
//
//	sub  user ID
//	jti  random token ID, the handle used to revoke the token at logout
//	exp  issue time + configured TTL
//	iss  "vibecoders"
//
// Signature and expiry are checked without touching the database. Revocation
// is the one stateful check and lives in Authenticator.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "vibecoders"

// DefaultTokenTTL applies when the configured TTL is zero.
const DefaultTokenTTL = 24 * time.Hour

var (
	ErrTokenExpired = errors.New("auth: token expired")
	ErrInvalidToken = errors.New("auth: invalid token")
)

// Claims is what a validated token says about its bearer.
type Claims struct {
	UserID    string
	TokenID   string
	ExpiresAt time.Time
}

// TokenService signs and verifies tokens with a shared HMAC secret. It holds
// no state besides the secret and TTL, so one instance serves every request.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService. The secret must be at least 16
// characters; generate one with `openssl rand -hex 32`.
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// Issue signs a new token for userID using the configured TTL.
func (s *TokenService) Issue(userID string) (string, *Claims, error) {
	return s.IssueWithTTL(userID, s.ttl)
}

// IssueWithTTL signs a token with an explicit lifetime. A negative d yields an
// already-expired token, which tests use.
func (s *TokenService) IssueWithTTL(userID string, d time.Duration) (string, *Claims, error) {
	now := time.Now()
	c := &Claims{
		UserID:    userID,
		TokenID:   uuid.NewString(),
		ExpiresAt: now.Add(d),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   c.UserID,
		ID:        c.TokenID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(c.ExpiresAt),
		Issuer:    issuer,
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, c, nil
}

// Validate verifies the signature, algorithm, issuer and expiry of tokenStr.
// Errors wrap ErrTokenExpired or ErrInvalidToken.
//
// A token that passes Validate may still have been revoked at logout. Only
// Authenticator, which also consults the revocation store, decides whether a
// request is signed in.
func (s *TokenService) Validate(tokenStr string) (*Claims, error) {
	var rc jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&rc,
		func(token *jwt.Token) (any, error) {
			return s.secret, nil
		},
		// Pinning the method rejects "alg: none" and RSA/HMAC confusion.
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || rc.Subject == "" || rc.ID == "" {
		return nil, fmt.Errorf("%w: missing subject or token id", ErrInvalidToken)
	}

	return &Claims{
		UserID:    rc.Subject,
		TokenID:   rc.ID,
		ExpiresAt: rc.ExpiresAt.Time,
	}, nil
}
