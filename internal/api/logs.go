package api

import (
	"net/http"
	"time"

	"github.com/danielfabbri/logzone-api/internal/errs"
	"github.com/danielfabbri/logzone-api/internal/model"
	"github.com/danielfabbri/logzone-api/internal/repo"
)

type createLogRequest struct {
	ProjectID   int64          `json:"project"`
	Source      string         `json:"source"`
	Environment string         `json:"environment"`
	Level       model.LogLevel `json:"level"`
	Message     string         `json:"message"`
	Context     string         `json:"context"`
	Metadata    map[string]any `json:"metadata"`
	Tags        []string       `json:"tags"`
	OccurredAt  *time.Time     `json:"occurredAt"`
}

func (h *Handler) CreateLog(w http.ResponseWriter, r *http.Request) {
	var req createLogRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.Message == "" {
		h.writeError(w, r, &errs.ValidationError{Field: "message", Detail: "must not be empty"})
		return
	}

	// Agents may identify their project by api key instead of id.
	if req.ProjectID == 0 {
		if key := r.Header.Get("X-API-Key"); key != "" {
			p, err := h.projects.GetByAPIKey(r.Context(), key)
			if err != nil {
				h.writeError(w, r, err)
				return
			}
			req.ProjectID = p.ID
		}
	}

	entry := &model.Log{
		ProjectID:   req.ProjectID,
		Source:      req.Source,
		Environment: req.Environment,
		Level:       req.Level,
		Message:     req.Message,
		Context:     req.Context,
		Metadata:    req.Metadata,
		Tags:        req.Tags,
	}
	if req.OccurredAt != nil {
		entry.OccurredAt = *req.OccurredAt
	}

	created, err := h.logs.Create(r.Context(), entry)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, created)
}

func (h *Handler) ListLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := repo.LogFilter{
		ProjectID: parseInt64Ptr(q.Get("project")),
		Level:     model.LogLevel(q.Get("level")),
		Source:    q.Get("source"),
		StartDate: parseTimePtr(q.Get("startDate")),
		EndDate:   parseTimePtr(q.Get("endDate")),
	}
	limit := parseInt(q.Get("limit"), 50)
	skip := parseInt(q.Get("skip"), 0)

	items, err := h.logs.Find(r.Context(), f, limit, skip)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	total, err := h.logs.Count(r.Context(), f)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if items == nil {
		items = []model.Log{}
	}
	writeList(w, items, len(items), total)
}

func (h *Handler) GetLog(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	entry, err := h.logs.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, entry)
}

func (h *Handler) DeleteLog(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.logs.DeleteByID(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "log deleted"})
}
