package server

import (
	"encoding/json"
	"net/http"

	"github.com/workstack/workstack/internal/auth"
	"github.com/workstack/workstack/internal/db/models"
	"github.com/workstack/workstack/internal/services/iam"
)

// tokenResponse is the success body for every login flavour.
type tokenResponse struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType"`
}

type userResponse struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Provider string   `json:"provider"`
	Roles    []string `json:"roles"`
	Active   bool     `json:"active"`
	Approved bool     `json:"approved"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Provider: u.Provider,
		Roles:    []string(u.Roles),
		Active:   u.Active,
		Approved: u.Approved,
	}
}

func writeToken(w http.ResponseWriter, r *http.Request, tokens *auth.TokenService, user *models.User) {
	token, err := tokens.Issue(user)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: token, TokenType: "Bearer"})
}

// HandleRegister creates a local account.
func HandleRegister(accounts *iam.Accounts) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input iam.RegisterInput
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid request body")
			return
		}
		fields := map[string]string{}
		if input.Username == "" {
			fields["username"] = "required"
		}
		if input.Email == "" {
			fields["email"] = "required"
		}
		if input.Password == "" {
			fields["password"] = "required"
		}
		if len(fields) > 0 {
			writeErrorFields(w, r, http.StatusBadRequest, "validation failed", fields)
			return
		}
		user, err := accounts.Register(r.Context(), input)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, toUserResponse(user))
	}
}

// HandleLogin verifies local credentials and issues a session token.
func HandleLogin(accounts *iam.Accounts, tokens *auth.TokenService) http.HandlerFunc {
	type loginRequest struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var input loginRequest
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid request body")
			return
		}
		user, err := accounts.Login(r.Context(), input.Username, input.Password)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeToken(w, r, tokens, user)
	}
}

// HandleRefresh issues a fresh token for the already-authenticated principal.
func HandleRefresh(accounts *iam.Accounts, tokens *auth.TokenService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := auth.PrincipalFromContext(r.Context())
		if !ok {
			writeError(w, r, http.StatusUnauthorized, "authentication required")
			return
		}
		user, err := accounts.GetByID(r.Context(), principal.ID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeToken(w, r, tokens, user)
	}
}

// HandleMe returns the authenticated principal's account.
func HandleMe(accounts *iam.Accounts) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := auth.PrincipalFromContext(r.Context())
		if !ok {
			writeError(w, r, http.StatusUnauthorized, "authentication required")
			return
		}
		user, err := accounts.GetByID(r.Context(), principal.ID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toUserResponse(user))
	}
}

// HandleSSOLogin starts the federated login handshake by redirecting the
// browser to the provider's authorization endpoint.
func HandleSSOLogin(party *auth.RelyingParty) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, err := auth.GenerateNonce()
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		auth.SetStateCookie(w, r, state)
		http.Redirect(w, r, party.AuthCodeURL(state), http.StatusFound)
	}
}

// HandleSSOCallback completes the handshake: it verifies the state nonce,
// exchanges the code, reconciles the external identity into a local account,
// and answers with a session token.
func HandleSSOCallback(party *auth.RelyingParty, provisioner *iam.Provisioner, tokens *auth.TokenService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := r.URL.Query().Get("state")
		if err := auth.VerifyStateCookie(r, state); err != nil {
			writeError(w, r, http.StatusUnauthorized, "login state mismatch")
			return
		}
		code := r.URL.Query().Get("code")
		if code == "" {
			writeError(w, r, http.StatusBadRequest, "missing authorization code")
			return
		}

		exchanged, err := party.Exchange(r.Context(), code)
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, "code exchange failed")
			return
		}
		claims := exchanged.IDTokenClaims

		user, err := provisioner.Provision(r.Context(), iam.ExternalIdentity{
			Provider:    party.Provider(),
			ExternalID:  claims.Subject,
			Email:       claims.Email,
			DisplayName: claims.Name,
		})
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeToken(w, r, tokens, user)
	}
}
