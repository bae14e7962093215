// internal/app/system/auth/token.go
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RealtimeTokenTTL is how long a token for the WebSocket auth frame lives.
const RealtimeTokenTTL = 5 * time.Minute

const realtimeAudience = "perfhub-realtime"

// ErrInvalidToken covers every reason a realtime token is rejected.
var ErrInvalidToken = errors.New("invalid realtime token")

// TokenIssuer signs and verifies short-lived HS256 tokens that let a
// non-browser client authenticate its WebSocket without a session cookie.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer creates an issuer. ttl <= 0 uses RealtimeTokenTTL.
func NewTokenIssuer(secret string, ttl time.Duration) (*TokenIssuer, error) {
	if len(secret) < MinSessionKeyLen {
		return nil, fmt.Errorf("realtime token secret must be at least %d chars", MinSessionKeyLen)
	}
	if ttl <= 0 {
		ttl = RealtimeTokenTTL
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue returns a token whose subject is userID.
func (ti *TokenIssuer) Issue(userID string) (string, time.Time, error) {
	now := ti.now()
	exp := now.Add(ti.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Audience:  jwt.ClaimStrings{realtimeAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ti.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return s, exp, nil
}

// Verify returns the token's subject.
func (ti *TokenIssuer) Verify(token string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(t *jwt.Token) (any, error) { return ti.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(realtimeAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(ti.now),
	)
	if err != nil || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
