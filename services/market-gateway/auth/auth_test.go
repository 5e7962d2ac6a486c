package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParsePrincipal(t *testing.T) {
	addr, err := ParsePrincipal("0x0101010101010101010101010101010101010101")
	require.NoError(t, err)
	require.Equal(t, byte(0x01), addr[0])
	require.Equal(t, "0x0101010101010101010101010101010101010101", FormatPrincipal(addr))

	_, err = ParsePrincipal("0101010101010101010101010101010101010101")
	require.Error(t, err)
	_, err = ParsePrincipal("0x01")
	require.Error(t, err)
	_, err = ParsePrincipal("0x0000000000000000000000000000000000000000")
	require.Error(t, err)
}

func TestMiddlewareRoundTrip(t *testing.T) {
	secret := []byte("test-secret")
	var principal [20]byte
	principal[19] = 0x7f

	handler := Middleware(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, ok := Caller(r.Context())
		require.True(t, ok)
		require.Equal(t, principal, caller)
		w.WriteHeader(http.StatusNoContent)
	}))

	token, err := NewToken(secret, principal, time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestMiddlewareRejectsBadTokens(t *testing.T) {
	secret := []byte("test-secret")
	handler := Middleware(secret)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var principal [20]byte
	principal[0] = 1
	expired, err := NewToken([]byte("other-secret"), principal, time.Minute)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+expired)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
