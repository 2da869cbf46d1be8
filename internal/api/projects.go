package api

import (
	"net/http"

	"github.com/danielfabbri/logzone-api/internal/errs"
	"github.com/danielfabbri/logzone-api/internal/model"
	"github.com/danielfabbri/logzone-api/internal/repo"
)

type createProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Avatar      string `json:"avatar"`
	APIKey      string `json:"apiKey"`
}

func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.Name == "" {
		h.writeError(w, r, &errs.ValidationError{Field: "name", Detail: "must not be empty"})
		return
	}

	p, err := h.projects.Create(r.Context(), &model.Project{
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
		Avatar:      req.Avatar,
		APIKey:      req.APIKey,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, p)
}

func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	limit := parseInt(r.URL.Query().Get("limit"), 50)
	skip := parseInt(r.URL.Query().Get("skip"), 0)

	items, err := h.projects.List(r.Context(), limit, skip)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	total, err := h.projects.Count(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if items == nil {
		items = []model.Project{}
	}
	writeList(w, items, len(items), total)
}

func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	p, err := h.projects.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, p)
}

type updateProjectRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	Avatar      *string `json:"avatar"`
}

func (h *Handler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req updateProjectRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.Name != nil && *req.Name == "" {
		h.writeError(w, r, &errs.ValidationError{Field: "name", Detail: "must not be empty"})
		return
	}

	p, err := h.projects.UpdateByID(r.Context(), id, repo.ProjectPatch{
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
		Avatar:      req.Avatar,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, p)
}

func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.projects.DeleteByID(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "project deleted"})
}
