package middleware

import (
	"net/http"
	"strings"

	"github.com/workstack/workstack/internal/auth"
)

// TokenValidator validates a bearer token and returns its decoded claims.
type TokenValidator interface {
	Validate(token string) (*auth.Claims, error)
}

// RequireAuth validates the Authorization bearer token and attaches the
// resulting principal to the request context. Requests without a valid token
// are rejected with 401; the response body is written by onError so the
// error shape stays consistent with the rest of the API.
func RequireAuth(tokens TokenValidator, onError func(w http.ResponseWriter, r *http.Request, err error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				onError(w, r, auth.ErrMalformedToken)
				return
			}
			claims, err := tokens.Validate(token)
			if err != nil {
				onError(w, r, err)
				return
			}
			principal := &auth.Principal{
				ID:       claims.Subject,
				Username: claims.Username,
				Roles:    claims.Roles,
			}
			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), principal)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return header[len(prefix):], true
}
