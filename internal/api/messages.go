package api

import (
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/danielfabbri/logzone-api/internal/errs"
	"github.com/danielfabbri/logzone-api/internal/model"
	"github.com/danielfabbri/logzone-api/internal/repo"
	"github.com/danielfabbri/logzone-api/internal/service"
)

type createMessageRequest struct {
	ProjectID         int64             `json:"project"`
	Content           string            `json:"content"`
	FromPhone         string            `json:"fromPhone"`
	ToPhone           string            `json:"toPhone"`
	Type              model.MessageType `json:"type"`
	Priority          model.Priority    `json:"priority"`
	ScheduledAt       *time.Time        `json:"scheduledAt"`
	Metadata          map[string]any    `json:"metadata"`
	Tags              []string          `json:"tags"`
	Template          *string           `json:"template"`
	TemplateVariables map[string]any    `json:"templateVariables"`
}

func (req *createMessageRequest) validate() error {
	switch {
	case req.Content == "":
		return &errs.ValidationError{Field: "content", Detail: "must not be empty"}
	case utf8.RuneCountInString(req.Content) > model.MaxContentLength:
		return &errs.ValidationError{Field: "content", Detail: "exceeds maximum length"}
	case req.FromPhone == "":
		return &errs.ValidationError{Field: "fromPhone", Detail: "must not be empty"}
	case req.ToPhone == "":
		return &errs.ValidationError{Field: "toPhone", Detail: "must not be empty"}
	}
	return nil
}

// CreateMessage accepts an inbound message. A message carrying
// scheduledAt is stored for the outbox to dispatch later; anything
// else runs the automated-reply pipeline. Either way the HTTP boundary
// answers 201 with success true, and pipeline sub-step failures are
// reported inside the composite body.
func (h *Handler) CreateMessage(w http.ResponseWriter, r *http.Request) {
	var req createMessageRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := req.validate(); err != nil {
		h.writeError(w, r, err)
		return
	}

	msg := &model.Message{
		ProjectID:         req.ProjectID,
		Content:           req.Content,
		FromPhone:         req.FromPhone,
		ToPhone:           req.ToPhone,
		Type:              req.Type,
		Priority:          req.Priority,
		ScheduledAt:       req.ScheduledAt,
		Metadata:          req.Metadata,
		Tags:              req.Tags,
		Template:          req.Template,
		TemplateVariables: req.TemplateVariables,
	}

	if req.ScheduledAt != nil {
		created, err := h.messages.Create(r.Context(), msg)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeData(w, http.StatusCreated, created)
		return
	}

	res, err := h.pipeline.Process(r.Context(), msg, service.HistoryQuery{})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"data": map[string]any{
			"userMessage":    res.UserMessage,
			"aiMessage":      res.AIMessage,
			"aiResponse":     res.AIResponse,
			"whatsappResult": res.WhatsAppResult,
		},
		"history": res.History,
	})
}

func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	f := messageFilterFromQuery(r)
	limit := parseInt(r.URL.Query().Get("limit"), 50)
	skip := parseInt(r.URL.Query().Get("skip"), 0)

	items, err := h.messages.Find(r.Context(), f, false, limit, skip)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	total, err := h.messages.Count(r.Context(), f)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if items == nil {
		items = []model.Message{}
	}
	writeList(w, items, len(items), total)
}

func (h *Handler) GetMessage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	m, err := h.messages.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, m)
}

type updateMessageRequest struct {
	Content           *string            `json:"content"`
	Status            *model.Status      `json:"status"`
	Type              *model.MessageType `json:"type"`
	Priority          *model.Priority    `json:"priority"`
	ExternalID        *string            `json:"externalId"`
	Provider          *string            `json:"provider"`
	Cost              *float64           `json:"cost"`
	Currency          *string            `json:"currency"`
	ScheduledAt       *time.Time         `json:"scheduledAt"`
	DeliveredAt       *time.Time         `json:"deliveredAt"`
	ReadAt            *time.Time         `json:"readAt"`
	Metadata          map[string]any     `json:"metadata"`
	Tags              []string           `json:"tags"`
	Template          *string            `json:"template"`
	TemplateVariables map[string]any     `json:"templateVariables"`
}

func (h *Handler) UpdateMessage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req updateMessageRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.Content != nil && utf8.RuneCountInString(*req.Content) > model.MaxContentLength {
		h.writeError(w, r, &errs.ValidationError{Field: "content", Detail: "exceeds maximum length"})
		return
	}

	m, err := h.messages.UpdateByID(r.Context(), id, repo.MessagePatch{
		Content:           req.Content,
		Status:            req.Status,
		Type:              req.Type,
		Priority:          req.Priority,
		ExternalID:        req.ExternalID,
		Provider:          req.Provider,
		Cost:              req.Cost,
		Currency:          req.Currency,
		ScheduledAt:       req.ScheduledAt,
		DeliveredAt:       req.DeliveredAt,
		ReadAt:            req.ReadAt,
		Metadata:          req.Metadata,
		Tags:              req.Tags,
		Template:          req.Template,
		TemplateVariables: req.TemplateVariables,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, m)
}

func (h *Handler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.messages.DeleteByID(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "message deleted"})
}

func (h *Handler) MessageStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.messages.Stats(r.Context(), messageFilterFromQuery(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, stats)
}

// MessagesByPhone returns the raw conversation page for a phone
// number, newest first, matching the number on either side.
func (h *Handler) MessagesByPhone(w http.ResponseWriter, r *http.Request) {
	phone := r.PathValue("phone")
	if phone == "" {
		h.writeError(w, r, &errs.ValidationError{Field: "phone", Detail: "must not be empty"})
		return
	}

	q := service.HistoryQuery{
		ProjectID: parseInt64Ptr(r.URL.Query().Get("project")),
		Status:    model.Status(r.URL.Query().Get("status")),
		Type:      model.MessageType(r.URL.Query().Get("type")),
		StartDate: parseTimePtr(r.URL.Query().Get("startDate")),
		EndDate:   parseTimePtr(r.URL.Query().Get("endDate")),
		Limit:     parseInt(r.URL.Query().Get("limit"), 50),
		Skip:      parseInt(r.URL.Query().Get("skip"), 0),
	}

	page, err := h.history.MessagesByPhone(r.Context(), phone, q)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if page.Messages == nil {
		page.Messages = []model.Message{}
	}
	writeData(w, http.StatusOK, page)
}

func messageFilterFromQuery(r *http.Request) repo.MessageFilter {
	q := r.URL.Query()
	return repo.MessageFilter{
		ProjectID: parseInt64Ptr(q.Get("project")),
		Status:    model.Status(q.Get("status")),
		Type:      model.MessageType(q.Get("type")),
		Priority:  model.Priority(q.Get("priority")),
		FromPhone: q.Get("fromPhone"),
		ToPhone:   q.Get("toPhone"),
		Phone:     q.Get("phone"),
		StartDate: parseTimePtr(q.Get("startDate")),
		EndDate:   parseTimePtr(q.Get("endDate")),
	}
}
