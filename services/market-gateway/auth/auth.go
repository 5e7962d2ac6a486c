package auth

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey struct{}

// Claims is the JWT payload expected by the gateway: the registered claims
// plus the caller's principal address.
type Claims struct {
	Addr string `json:"addr"`
	jwt.RegisteredClaims
}

// ParsePrincipal decodes a 0x-prefixed, 40-hex-digit principal address.
func ParsePrincipal(value string) ([20]byte, error) {
	var principal [20]byte
	trimmed := strings.TrimPrefix(strings.TrimSpace(value), "0x")
	if len(trimmed) != 40 {
		return principal, fmt.Errorf("auth: principal must be 20 bytes of hex")
	}
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return principal, fmt.Errorf("auth: principal is not valid hex: %w", err)
	}
	copy(principal[:], raw)
	if principal == ([20]byte{}) {
		return principal, fmt.Errorf("auth: principal must be non-zero")
	}
	return principal, nil
}

// FormatPrincipal renders a principal as a 0x-prefixed hex string.
func FormatPrincipal(principal [20]byte) string {
	return "0x" + hex.EncodeToString(principal[:])
}

// NewToken signs an HS256 bearer token for the given principal. Primarily
// used by tests and operator tooling.
func NewToken(secret []byte, principal [20]byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Addr: FormatPrincipal(principal),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// Middleware verifies the Bearer token on every request and stores the
// caller principal in the request context.
func Middleware(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}
			raw := strings.TrimPrefix(header, "Bearer ")
			claims := &Claims{}
			token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
				if t.Method != jwt.SigningMethodHS256 {
					return nil, fmt.Errorf("auth: unexpected signing method %v", t.Method.Alg())
				}
				return secret, nil
			})
			if err != nil || !token.Valid {
				http.Error(w, "invalid bearer token", http.StatusUnauthorized)
				return
			}
			principal, err := ParsePrincipal(claims.Addr)
			if err != nil {
				http.Error(w, "invalid principal claim", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKey{}, principal)))
		})
	}
}

// Caller returns the authenticated principal stored by Middleware.
func Caller(ctx context.Context) ([20]byte, bool) {
	principal, ok := ctx.Value(contextKey{}).([20]byte)
	return principal, ok
}
