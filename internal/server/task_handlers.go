package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/workstack/workstack/internal/services/task"
)

// HandleListTasks returns a page of tasks, optionally filtered by status,
// project, or assignee.
func HandleListTasks(svc *task.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := svc.List(r.Context(), listParamsFromQuery(r))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, page)
	}
}

// HandleListOverdueTasks returns unfinished tasks past their due date.
func HandleListOverdueTasks(svc *task.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := svc.ListOverdue(r.Context(), listParamsFromQuery(r))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, page)
	}
}

// HandleTaskStatusCounts returns task counts grouped by status.
func HandleTaskStatusCounts(svc *task.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		counts, err := svc.StatusCounts(r.Context(), r.URL.Query().Get("projectId"))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, counts)
	}
}

// HandleCreateTask creates a task under an existing project.
func HandleCreateTask(svc *task.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input task.CreateInput
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid request body")
			return
		}
		fields := map[string]string{}
		if input.Title == "" {
			fields["title"] = "required"
		}
		if input.ProjectID == "" {
			fields["projectId"] = "required"
		}
		if len(fields) > 0 {
			writeErrorFields(w, r, http.StatusBadRequest, "validation failed", fields)
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

// HandleGetTask returns one task by id.
func HandleGetTask(svc *task.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := svc.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}

// HandleUpdateTask applies a partial update to a task.
func HandleUpdateTask(svc *task.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input task.UpdateInput
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

// HandleAssignTask sets or clears a task's assignee.
func HandleAssignTask(svc *task.Service) http.HandlerFunc {
	type assignRequest struct {
		AssigneeID *string `json:"assigneeId"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var input assignRequest
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid request body")
			return
		}
		updated, err := svc.Assign(r.Context(), chi.URLParam(r, "id"), input.AssigneeID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	}
}

// HandleDeleteTask removes a task.
func HandleDeleteTask(svc *task.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
