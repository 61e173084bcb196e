package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequireBearerAuthDisabledWhenNoSecret(t *testing.T) {
	called := false
	h := RequireBearerAuth(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.True(t, called)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireBearerAuthRejectsMissingHeader(t *testing.T) {
	secret := []byte("0123456789abcdef0123456789abcdef")
	h := RequireBearerAuth(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireBearerAuthAcceptsValidToken(t *testing.T) {
	secret := []byte("0123456789abcdef0123456789abcdef")
	token, _, err := GenerateToken(secret, "handle-1")
	require.NoError(t, err)

	var gotID string
	h := RequireBearerAuth(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = HandleIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "handle-1", gotID)
}

func TestRequireBearerAuthRejectsWrongSecret(t *testing.T) {
	secret := []byte("0123456789abcdef0123456789abcdef")
	other := []byte("fedcba9876543210fedcba9876543210")
	token, _, err := GenerateToken(other, "handle-1")
	require.NoError(t, err)

	h := RequireBearerAuth(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
