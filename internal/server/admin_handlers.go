package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/workstack/workstack/internal/db/models"
	"github.com/workstack/workstack/internal/services/admin"
)

func toUserResponses(users []models.User) []userResponse {
	out := make([]userResponse, len(users))
	for i := range users {
		out[i] = toUserResponse(&users[i])
	}
	return out
}

// HandleListUsers returns accounts for the user management view.
func HandleListUsers(svc *admin.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := svc.ListUsers(r.Context(), listParamsFromQuery(r))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toUserResponses(users))
	}
}

// HandleListPendingUsers returns accounts awaiting approval.
func HandleListPendingUsers(svc *admin.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := svc.ListPendingApproval(r.Context())
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toUserResponses(users))
	}
}

// HandleUpdateUserRoles replaces a user's role set.
func HandleUpdateUserRoles(svc *admin.Service) http.HandlerFunc {
	type rolesRequest struct {
		Roles []string `json:"roles"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var input rolesRequest
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid request body")
			return
		}
		user, err := svc.UpdateRoles(r.Context(), chi.URLParam(r, "id"), input.Roles)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toUserResponse(user))
	}
}

// HandleApproveUser marks a pending account as approved.
func HandleApproveUser(svc *admin.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := svc.Approve(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toUserResponse(user))
	}
}

// HandleSetUserActive toggles an account's active flag.
func HandleSetUserActive(svc *admin.Service) http.HandlerFunc {
	type activeRequest struct {
		Active bool `json:"active"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var input activeRequest
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid request body")
			return
		}
		user, err := svc.SetActive(r.Context(), chi.URLParam(r, "id"), input.Active)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toUserResponse(user))
	}
}

// HandleDashboard returns the cached administration overview counts.
func HandleDashboard(svc *admin.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dashboard, err := svc.GetDashboard(r.Context())
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, dashboard)
	}
}

// HandleCacheStats returns per-region cache hit/miss counters.
func HandleCacheStats(svc *admin.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := svc.CacheStats(r.Context())
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}
