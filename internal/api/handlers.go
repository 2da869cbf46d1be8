package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/danielfabbri/logzone-api/internal/errs"
	"github.com/danielfabbri/logzone-api/internal/repo"
	"github.com/danielfabbri/logzone-api/internal/scheduler"
	"github.com/danielfabbri/logzone-api/internal/service"
)

type Handler struct {
	messages repo.MessageRepository
	projects repo.ProjectRepository
	users    repo.UserRepository
	logs     repo.LogRepository

	pipeline *service.Pipeline
	history  *service.History
	outbox   *scheduler.Loop

	log *slog.Logger
}

func NewHandler(
	messages repo.MessageRepository,
	projects repo.ProjectRepository,
	users repo.UserRepository,
	logs repo.LogRepository,
	pipeline *service.Pipeline,
	history *service.History,
	outbox *scheduler.Loop,
	log *slog.Logger,
) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		messages: messages,
		projects: projects,
		users:    users,
		logs:     logs,
		pipeline: pipeline,
		history:  history,
		outbox:   outbox,
		log:      log,
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) SchedulerStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": h.outbox.Status()})
}

func (h *Handler) SchedulerStart(w http.ResponseWriter, r *http.Request) {
	h.outbox.Start()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": h.outbox.Status()})
}

func (h *Handler) SchedulerStop(w http.ResponseWriter, r *http.Request) {
	h.outbox.Stop()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": h.outbox.Status()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, map[string]any{"success": true, "data": data})
}

func writeList(w http.ResponseWriter, data any, count int, total int64) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"count":   count,
		"total":   total,
		"data":    data,
	})
}

// writeError maps the error taxonomy to HTTP statuses: validation
// problems are 400, unknown ids 404, everything else 500.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	var ve *errs.ValidationError
	var nf *errs.NotFoundError
	switch {
	case errors.As(err, &ve):
		status = http.StatusBadRequest
		message = "invalid request"
	case errors.As(err, &nf):
		status = http.StatusNotFound
		message = "not found"
	}

	if status == http.StatusInternalServerError {
		h.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, map[string]any{
		"success": false,
		"message": message,
		"error":   err.Error(),
	})
}

func pathID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, &errs.ValidationError{Field: "id", Detail: "must be a positive integer"}
	}
	return id, nil
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &errs.ValidationError{Field: "body", Detail: "malformed JSON: " + err.Error()}
	}
	return nil
}

func parseInt(raw string, def int) int {
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func parseInt64Ptr(raw string) *int64 {
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	return &v
}

func parseTimePtr(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil
	}
	return &t
}
