package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/zitadel/oidc/v3/pkg/client/rp"
	httphelper "github.com/zitadel/oidc/v3/pkg/http"
	"github.com/zitadel/oidc/v3/pkg/oidc"

	"github.com/workstack/workstack/internal/config"
)

const stateCookieName = "workstack.state"

// RelyingParty wraps a zitadel/oidc relying party for one federated provider.
type RelyingParty struct {
	provider string
	rp       rp.RelyingParty
}

// NewRelyingParty creates a relying party for one configured provider.
func NewRelyingParty(ctx context.Context, provider string, cfg config.SSOProviderConfig) (*RelyingParty, error) {
	// Cookie keys are regenerated on startup; in-flight logins do not survive
	// a restart, which is acceptable for a short-lived auth handshake.
	hashKey, err := generateRandomBytes(32)
	if err != nil {
		return nil, fmt.Errorf("generate cookie hash key: %w", err)
	}
	cryptoKey, err := generateRandomBytes(32)
	if err != nil {
		return nil, fmt.Errorf("generate cookie crypto key: %w", err)
	}

	cookieHandler := httphelper.NewCookieHandler(hashKey, cryptoKey, httphelper.WithUnsecure())

	options := []rp.Option{
		rp.WithCookieHandler(cookieHandler),
		rp.WithVerifierOpts(rp.WithIssuedAtMaxAge(10 * time.Second)),
		rp.WithPKCE(cookieHandler),
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, oidc.ScopeProfile, oidc.ScopeEmail}
	}
	relyingParty, err := rp.NewRelyingPartyOIDC(ctx, cfg.Issuer, cfg.ClientID, cfg.ClientSecret, cfg.RedirectURI,
		scopes, options...)
	if err != nil {
		return nil, fmt.Errorf("create relying party for %s: %w", provider, err)
	}

	return &RelyingParty{provider: provider, rp: relyingParty}, nil
}

// Provider returns the provider name this relying party authenticates against.
func (r *RelyingParty) Provider() string { return r.provider }

// AuthCodeURL returns the provider's authorization endpoint URL.
func (r *RelyingParty) AuthCodeURL(state string) string {
	return rp.AuthURL(state, r.rp)
}

// Exchange trades an authorization code for verified ID token claims.
func (r *RelyingParty) Exchange(ctx context.Context, code string) (*oidc.Tokens[*oidc.IDTokenClaims], error) {
	return rp.CodeExchange[*oidc.IDTokenClaims](ctx, code, r.rp)
}

// NewRelyingParties builds a relying party per configured SSO provider.
func NewRelyingParties(ctx context.Context, providers map[string]config.SSOProviderConfig) (map[string]*RelyingParty, error) {
	parties := make(map[string]*RelyingParty, len(providers))
	for name, cfg := range providers {
		party, err := NewRelyingParty(ctx, name, cfg)
		if err != nil {
			return nil, err
		}
		parties[name] = party
	}
	return parties, nil
}

func generateRandomBytes(size int) ([]byte, error) {
	b := make([]byte, size)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, fmt.Errorf("generate random bytes: %w", err)
	}
	return b, nil
}

// GenerateNonce generates a random state nonce.
func GenerateNonce() (string, error) {
	b, err := generateRandomBytes(32)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// SetStateCookie stores the login state nonce in a short-lived cookie.
func SetStateCookie(w http.ResponseWriter, r *http.Request, state string) {
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		Expires:  time.Now().Add(10 * time.Minute),
		HttpOnly: true,
		Secure:   r.URL.Scheme == "https",
		SameSite: http.SameSiteLaxMode,
	})
}

// VerifyStateCookie checks the callback state against the stored nonce.
func VerifyStateCookie(r *http.Request, state string) error {
	cookie, err := r.Cookie(stateCookieName)
	if err != nil {
		return fmt.Errorf("state cookie not found")
	}
	if cookie.Value != state {
		return fmt.Errorf("invalid state")
	}
	return nil
}
