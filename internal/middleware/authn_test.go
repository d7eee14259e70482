package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/workstack/workstack/internal/auth"
)

type staticValidator struct {
	claims *auth.Claims
	err    error
}

func (v staticValidator) Validate(token string) (*auth.Claims, error) {
	return v.claims, v.err
}

func runAuthn(t *testing.T, validator TokenValidator, header string) (*httptest.ResponseRecorder, *auth.Principal) {
	t.Helper()
	var got *auth.Principal
	handler := RequireAuth(validator, func(w http.ResponseWriter, r *http.Request, err error) {
		w.WriteHeader(http.StatusUnauthorized)
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = auth.PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/projects", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, got
}

func TestRequireAuthAttachesPrincipal(t *testing.T) {
	validator := staticValidator{claims: &auth.Claims{
		Subject:  "user-1",
		Username: "alice",
		Roles:    []string{"developer"},
	}}

	rec, principal := runAuthn(t, validator, "Bearer sometoken")
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, principal)
	assert.Equal(t, "user-1", principal.ID)
	assert.Equal(t, []string{"developer"}, principal.Roles)
}

func TestRequireAuthRejectsMissingHeader(t *testing.T) {
	rec, principal := runAuthn(t, staticValidator{}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, principal)
}

func TestRequireAuthRejectsNonBearerScheme(t *testing.T) {
	rec, _ := runAuthn(t, staticValidator{}, "Basic dXNlcjpwYXNz")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuthRejectsInvalidToken(t *testing.T) {
	validator := staticValidator{err: auth.ErrExpiredToken}
	rec, principal := runAuthn(t, validator, "Bearer expired")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, principal)
}
