package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/workstack/workstack/internal/repository"
	"github.com/workstack/workstack/internal/services/project"
)

// listParamsFromQuery parses the shared paging and filter parameters.
func listParamsFromQuery(r *http.Request) repository.ListParams {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("size"))
	return repository.ListParams{
		Page:       page,
		Size:       size,
		Sort:       q.Get("sort"),
		Status:     q.Get("status"),
		ProjectID:  q.Get("projectId"),
		AssigneeID: q.Get("assigneeId"),
	}
}

// HandleListProjects returns a page of projects.
func HandleListProjects(svc *project.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := svc.List(r.Context(), listParamsFromQuery(r))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, page)
	}
}

// HandleCreateProject creates a project owned by the caller.
func HandleCreateProject(svc *project.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input project.CreateInput
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid request body")
			return
		}
		if input.Name == "" {
			writeErrorFields(w, r, http.StatusBadRequest, "validation failed", map[string]string{"name": "required"})
			return
		}
		created, err := svc.Create(r.Context(), input)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

// HandleGetProject returns one project by id.
func HandleGetProject(svc *project.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := svc.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

// HandleUpdateProject applies a partial update to a project.
func HandleUpdateProject(svc *project.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input project.UpdateInput
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid request body")
			return
		}
		updated, err := svc.Update(r.Context(), chi.URLParam(r, "id"), input)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	}
}

// HandleDeleteProject removes a project.
func HandleDeleteProject(svc *project.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
