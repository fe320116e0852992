// filepath: internal/grid/token.go
package grid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// configClaims carries the grid configuration inside a signed token.
// The token is embedded in the rendered page and posted back with every
// action request, so the server can rehydrate the exact configuration
// without keeping any session state.
type configClaims struct {
	Grid *Config `json:"grid"`
	jwt.RegisteredClaims
}

// SignConfig serializes the config into an HS256-signed token.
func SignConfig(cfg *Config, secret string) (string, error) {
	claims := configClaims{
		Grid: cfg,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  cfg.Table,
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign grid config: %w", err)
	}
	return signed, nil
}

// VerifyConfig parses a signed token back into a validated Config.
// Tampered, unsigned, or wrongly-signed tokens are rejected.
func VerifyConfig(tokenString, secret string) (*Config, error) {
	var claims configClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Grid == nil {
		return nil, ErrInvalidToken
	}
	// Defense in depth: a valid signature does not excuse bad identifiers.
	if err := claims.Grid.Validate(); err != nil {
		return nil, err
	}
	return claims.Grid, nil
}

// GenerateSecret returns a random hex secret for token signing.
func GenerateSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
