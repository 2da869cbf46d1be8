package service

import (
	"context"
	"time"

	"github.com/danielfabbri/logzone-api/internal/model"
	"github.com/danielfabbri/logzone-api/internal/repo"
)

// HistoryQuery narrows a phone-number history lookup. Limit and Skip
// are clamped: non-positive Limit falls back to 50, negative Skip to 0
// (the repository applies the clamping).
type HistoryQuery struct {
	ProjectID *int64
	Status    model.Status
	Type      model.MessageType
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
	Skip      int
}

// History answers conversation-history queries for a phone number,
// matching messages where the number is sender or recipient.
type History struct {
	messages repo.MessageRepository
}

func NewHistory(messages repo.MessageRepository) *History {
	return &History{messages: messages}
}

// HistoryPage is one raw page of a phone number's history, newest
// first.
type HistoryPage struct {
	PhoneNumber string          `json:"phoneNumber"`
	Messages    []model.Message `json:"messages"`
	Count       int             `json:"count"`
	Total       int64           `json:"total"`
	Limit       int             `json:"limit"`
	Skip        int             `json:"skip"`
}

func (h *History) MessagesByPhone(ctx context.Context, phone string, q HistoryQuery) (*HistoryPage, error) {
	f := historyFilter(phone, q)

	msgs, err := h.messages.Find(ctx, f, false, q.Limit, q.Skip)
	if err != nil {
		return nil, err
	}
	total, err := h.messages.Count(ctx, f)
	if err != nil {
		return nil, err
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	skip := q.Skip
	if skip < 0 {
		skip = 0
	}

	return &HistoryPage{
		PhoneNumber: phone,
		Messages:    msgs,
		Count:       len(msgs),
		Total:       total,
		Limit:       limit,
		Skip:        skip,
	}, nil
}

// ConversationTurns returns the history in chronological order as
// role-tagged turns for the language model: messages sent by the
// queried phone map to the user role, everything else to the
// assistant role. A phone with no history yields an empty sequence.
func (h *History) ConversationTurns(ctx context.Context, phone string, q HistoryQuery) ([]model.Turn, error) {
	msgs, err := h.messages.Find(ctx, historyFilter(phone, q), true, q.Limit, q.Skip)
	if err != nil {
		return nil, err
	}

	turns := make([]model.Turn, 0, len(msgs))
	for _, m := range msgs {
		role := model.RoleAssistant
		if m.FromPhone == phone {
			role = model.RoleUser
		}
		turns = append(turns, model.Turn{Role: role, Content: m.Content})
	}
	return turns, nil
}

func historyFilter(phone string, q HistoryQuery) repo.MessageFilter {
	return repo.MessageFilter{
		Phone:     phone,
		ProjectID: q.ProjectID,
		Status:    q.Status,
		Type:      q.Type,
		StartDate: q.StartDate,
		EndDate:   q.EndDate,
	}
}
