// middleware/token.go
package middleware

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "rps-arena"

var ErrInvalidToken = errors.New("invalid connection token")

// ConnectionTokens signs connection IDs. Rooms see raw IDs; only the owner of
// a connection holds its token, so only the owner can act as it or resume it.
type ConnectionTokens struct {
	key []byte
	now func() time.Time
}

// NewConnectionTokens signs with secret. An empty secret draws a random key,
// so tokens stop verifying after a restart.
func NewConnectionTokens(secret string) *ConnectionTokens {
	if secret == "" {
		secret = rand.Text()
	}
	return &ConnectionTokens{key: []byte(secret), now: time.Now}
}

// Issue returns an HS256 token whose subject is connID.
func (t *ConnectionTokens) Issue(connID string) (string, error) {
	claims := jwt.RegisteredClaims{
		Issuer:   tokenIssuer,
		Subject:  connID,
		IssuedAt: jwt.NewNumericDate(t.now()),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.key)
	if err != nil {
		return "", fmt.Errorf("sign connection token: %w", err)
	}
	return signed, nil
}

// Verify returns the connection ID a token was issued for.
func (t *ConnectionTokens) Verify(token string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return t.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: no subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}
