package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken covers every structural or cryptographic token failure.
// HTTP callers never learn which check rejected the token.
var ErrInvalidToken = errors.New("auth: invalid token")

// ErrExpiredToken wraps ErrInvalidToken for tokens past their exp claim, so
// metrics can count expiries separately. The HTTP response stays generic.
var ErrExpiredToken = fmt.Errorf("%w: expired", ErrInvalidToken)

// Claims is the payload carried by every issued token. Districts are a
// snapshot at login time; the guard re-reads them from the directory on
// each request.
type Claims struct {
	UserID       int64    `json:"user_id"`
	Username     string   `json:"username"`
	Role         Role     `json:"role"`
	Districts    []string `json:"districts"`
	SessionToken string   `json:"session_token"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies signed bearer tokens. The signing secret
// is fixed at construction and never mutated afterwards.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService constructs a TokenService. An empty secret is a
// configuration error, not a degraded mode.
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if secret == "" {
		return nil, errors.New("auth: token secret must be provided")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// TTL exposes the configured token lifetime.
func (ts *TokenService) TTL() time.Duration {
	return ts.ttl
}

// Issue signs the claims with iat/exp stamped from the configured lifetime.
func (ts *TokenService) Issue(userID int64, username string, role Role, districts []string, sessionToken string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:       userID,
		Username:     username,
		Role:         role,
		Districts:    districts,
		SessionToken: sessionToken,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.ttl)),
			Issuer:    "namhatta",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(ts.secret)
}

// Verify checks signature and expiry. Any failure maps to ErrInvalidToken.
func (ts *TokenService) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return ts.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if _, err := ParseRole(string(claims.Role)); err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Fingerprint returns the one-way digest under which a token is recorded in
// the revocation store. Raw tokens are never persisted or logged.
func (ts *TokenService) Fingerprint(tokenString string) string {
	sum := sha256.Sum256([]byte(tokenString))
	return hex.EncodeToString(sum[:])
}

// NewSessionSecret returns the opaque 256-bit session correlator embedded in
// claims for single-login enforcement.
func (ts *TokenService) NewSessionSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
