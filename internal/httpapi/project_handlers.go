package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"fbms.app/internal/audit"
	"fbms.app/internal/obs"
	"fbms.app/internal/project"
)

type statusRequest struct {
	Status string `json:"status"`
}

func (a *API) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var p project.Project
	if err := decodeJSON(w, r, &p); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	created, err := a.projects.CreateProject(r.Context(), p)
	if err != nil {
		if errors.Is(err, project.ErrConflict) {
			writeError(w, r, http.StatusConflict, fmt.Sprintf("Project ID '%d' already exists.", p.ID))
			return
		}
		handleProjectError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), audit.EventProjectCreate, map[string]any{
		"proj_id":   created.ID,
		"proj_name": created.Name,
	})
	w.Header().Set("Location", fmt.Sprintf("/projects/%d", created.ID))
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Project created successfully",
		"project": created,
	})
}

func (a *API) handleListProjects(w http.ResponseWriter, r *http.Request) {
	list, err := a.projects.ListProjects(r.Context())
	if err != nil {
		handleProjectError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) handleGetProject(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Var(r, "id")
	if !ok {
		writeError(w, r, http.StatusBadRequest, "project id must be a positive integer")
		return
	}
	p, err := a.projects.GetProject(r.Context(), id)
	if err != nil {
		handleProjectError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Var(r, "id")
	if !ok {
		writeError(w, r, http.StatusBadRequest, "project id must be a positive integer")
		return
	}
	var u project.Update
	if err := decodeJSON(w, r, &u); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	updated, err := a.projects.UpdateProject(r.Context(), id, u)
	if err != nil {
		handleProjectError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), audit.EventProjectUpdate, map[string]any{
		"proj_id": id,
		"fields":  u.Fields(),
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Project updated successfully",
		"project": updated,
	})
}

func (a *API) handleSetProjectStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Var(r, "id")
	if !ok {
		writeError(w, r, http.StatusBadRequest, "project id must be a positive integer")
		return
	}
	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Status) == "" {
		writeError(w, r, http.StatusBadRequest, "status is required")
		return
	}
	if err := a.projects.SetStatus(r.Context(), id, req.Status); err != nil {
		handleProjectError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), audit.EventProjectUpdate, map[string]any{
		"proj_id": id,
		"status":  strings.TrimSpace(req.Status),
	})
	writeMessage(w, http.StatusOK, "Project status updated successfully")
}

func (a *API) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Var(r, "id")
	if !ok {
		writeError(w, r, http.StatusBadRequest, "project id must be a positive integer")
		return
	}
	if err := a.projects.DeleteProject(r.Context(), id); err != nil {
		handleProjectError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), audit.EventProjectDelete, map[string]any{"proj_id": id})
	writeMessage(w, http.StatusOK, "Project deleted successfully")
}

func (a *API) handleProjectBreakdown(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Var(r, "id")
	if !ok {
		writeError(w, r, http.StatusBadRequest, "project id must be a positive integer")
		return
	}
	b, err := a.projects.Breakdown(r.Context(), id)
	if err != nil {
		handleProjectError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (a *API) handleCostBreakdown(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Var(r, "id")
	if !ok {
		writeError(w, r, http.StatusBadRequest, "project id must be a positive integer")
		return
	}
	c, err := a.projects.CostBreakdown(r.Context(), id)
	if err != nil {
		handleProjectError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (a *API) handleCreateClient(w http.ResponseWriter, r *http.Request) {
	var c project.Client
	if err := decodeJSON(w, r, &c); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	created, err := a.projects.CreateClient(r.Context(), c)
	if err != nil {
		if errors.Is(err, project.ErrConflict) {
			writeError(w, r, http.StatusBadRequest, "Client ID already exists")
			return
		}
		handleProjectError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Client added successfully",
		"client":  created,
	})
}

func (a *API) handleListClients(w http.ResponseWriter, r *http.Request) {
	list, err := a.projects.ListClients(r.Context())
	if err != nil {
		handleProjectError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) handleSuggestClients(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("query"))
	if q == "" {
		writeJSON(w, http.StatusOK, []project.ClientSuggestion{})
		return
	}
	list, err := a.projects.SuggestClients(r.Context(), q)
	if err != nil {
		handleProjectError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func handleProjectError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, project.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, errorDetail(err, project.ErrInvalidInput, "Invalid input"))
	case errors.Is(err, project.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "Project not found")
	case errors.Is(err, project.ErrConflict):
		writeError(w, r, http.StatusConflict, "already exists")
	default:
		obs.Logger().Error().Err(err).Str("request_id", RequestIDFromContext(r.Context())).Msg("project operation failed")
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
