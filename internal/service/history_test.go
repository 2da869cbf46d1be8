package service

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/danielfabbri/logzone-api/internal/errs"
	"github.com/danielfabbri/logzone-api/internal/model"
	"github.com/danielfabbri/logzone-api/internal/repo"
)

// fakeMessageRepo is an in-memory MessageRepository shared by the
// service tests.
type fakeMessageRepo struct {
	messages []model.Message
	nextID   int64

	createErr    error
	failCreateOn int
	createCalls  int
	findErr      error
	updateErr    error
	claimErr     error

	updates []int64
}

var _ repo.MessageRepository = (*fakeMessageRepo)(nil)

func (f *fakeMessageRepo) Create(ctx context.Context, m *model.Message) (*model.Message, error) {
	f.createCalls++
	if f.createErr != nil && (f.failCreateOn == 0 || f.failCreateOn == f.createCalls) {
		return nil, f.createErr
	}
	out := *m
	f.nextID++
	out.ID = f.nextID
	if out.Status == "" {
		out.Status = model.StatusPending
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = time.Now().UTC()
	}
	f.messages = append(f.messages, out)
	return &out, nil
}

func (f *fakeMessageRepo) GetByID(ctx context.Context, id int64) (*model.Message, error) {
	for i := range f.messages {
		if f.messages[i].ID == id {
			m := f.messages[i]
			return &m, nil
		}
	}
	return nil, &errs.NotFoundError{Entity: "message", ID: id}
}

func (f *fakeMessageRepo) Find(ctx context.Context, fl repo.MessageFilter, ascending bool, limit, skip int) ([]model.Message, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	matched := f.match(fl)
	sort.SliceStable(matched, func(i, j int) bool {
		if ascending {
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if limit <= 0 {
		limit = 50
	}
	if skip < 0 {
		skip = 0
	}
	if skip >= len(matched) {
		return nil, nil
	}
	matched = matched[skip:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (f *fakeMessageRepo) Count(ctx context.Context, fl repo.MessageFilter) (int64, error) {
	if f.findErr != nil {
		return 0, f.findErr
	}
	return int64(len(f.match(fl))), nil
}

func (f *fakeMessageRepo) UpdateByID(ctx context.Context, id int64, p repo.MessagePatch) (*model.Message, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	for i := range f.messages {
		if f.messages[i].ID != id {
			continue
		}
		m := &f.messages[i]
		if p.Status != nil {
			m.Status = *p.Status
		}
		if p.ExternalID != nil {
			v := *p.ExternalID
			m.ExternalID = &v
		}
		if p.Provider != nil {
			m.Provider = *p.Provider
		}
		if p.Metadata != nil {
			m.Metadata = p.Metadata
		}
		f.updates = append(f.updates, id)
		out := *m
		return &out, nil
	}
	return nil, &errs.NotFoundError{Entity: "message", ID: id}
}

func (f *fakeMessageRepo) DeleteByID(ctx context.Context, id int64) error {
	return &errs.NotFoundError{Entity: "message", ID: id}
}

func (f *fakeMessageRepo) Stats(ctx context.Context, fl repo.MessageFilter) (*model.MessageStats, error) {
	return &model.MessageStats{}, nil
}

func (f *fakeMessageRepo) ClaimDue(ctx context.Context, now time.Time, limit int) ([]model.Message, error) {
	if f.claimErr != nil {
		return nil, f.claimErr
	}
	var due []model.Message
	for i := range f.messages {
		m := &f.messages[i]
		if m.Status != model.StatusPending || m.ScheduledAt == nil || m.ScheduledAt.After(now) || m.LastAttemptAt != nil {
			continue
		}
		m.Attempts++
		t := now
		m.LastAttemptAt = &t
		due = append(due, *m)
		if len(due) == limit {
			break
		}
	}
	return due, nil
}

func (f *fakeMessageRepo) match(fl repo.MessageFilter) []model.Message {
	var out []model.Message
	for _, m := range f.messages {
		if fl.Phone != "" && m.FromPhone != fl.Phone && m.ToPhone != fl.Phone {
			continue
		}
		if fl.Status != "" && m.Status != fl.Status {
			continue
		}
		if fl.Type != "" && m.Type != fl.Type {
			continue
		}
		if fl.ProjectID != nil && m.ProjectID != *fl.ProjectID {
			continue
		}
		if fl.StartDate != nil && m.CreatedAt.Before(*fl.StartDate) {
			continue
		}
		if fl.EndDate != nil && m.CreatedAt.After(*fl.EndDate) {
			continue
		}
		out = append(out, m)
	}
	return out
}

func seedConversation(f *fakeMessageRepo, phone, system string, n int) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		from, to := phone, system
		if i%2 == 1 {
			from, to = system, phone
		}
		f.nextID++
		f.messages = append(f.messages, model.Message{
			ID:        f.nextID,
			FromPhone: from,
			ToPhone:   to,
			Content:   string(rune('a' + i)),
			Status:    model.StatusSent,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}
}

func TestHistory_ConversationTurns_RoleMapping(t *testing.T) {
	t.Parallel()

	fr := &fakeMessageRepo{}
	seedConversation(fr, "5521911111111", "5521922222222", 4)

	h := NewHistory(fr)

	turns, err := h.ConversationTurns(context.Background(), "5521911111111", HistoryQuery{})
	if err != nil {
		t.Fatalf("ConversationTurns() error: %v", err)
	}

	if len(turns) != 4 {
		t.Fatalf("expected 4 turns, got %d", len(turns))
	}
	for i, turn := range turns {
		want := model.RoleUser
		if i%2 == 1 {
			want = model.RoleAssistant
		}
		if turn.Role != want {
			t.Fatalf("turn %d: expected role %q, got %q", i, want, turn.Role)
		}
	}
}

func TestHistory_ConversationTurns_ChronologicalOrder(t *testing.T) {
	t.Parallel()

	fr := &fakeMessageRepo{}
	seedConversation(fr, "5521911111111", "5521922222222", 3)

	h := NewHistory(fr)

	turns, err := h.ConversationTurns(context.Background(), "5521911111111", HistoryQuery{})
	if err != nil {
		t.Fatalf("ConversationTurns() error: %v", err)
	}

	// Oldest first: contents were seeded a, b, c in time order.
	if turns[0].Content != "a" || turns[1].Content != "b" || turns[2].Content != "c" {
		t.Fatalf("expected chronological order, got %+v", turns)
	}
}

func TestHistory_ConversationTurns_NoMatchesIsEmptyNotError(t *testing.T) {
	t.Parallel()

	fr := &fakeMessageRepo{}
	h := NewHistory(fr)

	turns, err := h.ConversationTurns(context.Background(), "5521900000000", HistoryQuery{})
	if err != nil {
		t.Fatalf("expected no error for unknown phone, got %v", err)
	}
	if len(turns) != 0 {
		t.Fatalf("expected empty sequence, got %+v", turns)
	}
}

func TestHistory_MessagesByPhone_Pagination(t *testing.T) {
	t.Parallel()

	fr := &fakeMessageRepo{}
	seedConversation(fr, "5521911111111", "5521922222222", 5)

	h := NewHistory(fr)

	page, err := h.MessagesByPhone(context.Background(), "5521911111111", HistoryQuery{Limit: 2, Skip: 0})
	if err != nil {
		t.Fatalf("MessagesByPhone() error: %v", err)
	}

	if page.Count != 2 || len(page.Messages) != 2 {
		t.Fatalf("expected exactly 2 messages, got %d", len(page.Messages))
	}
	if page.Total != 5 {
		t.Fatalf("expected total 5, got %d", page.Total)
	}

	// Raw mode is newest first.
	if !page.Messages[0].CreatedAt.After(page.Messages[1].CreatedAt) {
		t.Fatalf("expected descending order, got %v then %v", page.Messages[0].CreatedAt, page.Messages[1].CreatedAt)
	}
}

func TestHistory_MessagesByPhone_ClampsLimitAndSkip(t *testing.T) {
	t.Parallel()

	fr := &fakeMessageRepo{}
	seedConversation(fr, "5521911111111", "5521922222222", 3)

	h := NewHistory(fr)

	page, err := h.MessagesByPhone(context.Background(), "5521911111111", HistoryQuery{Limit: -4, Skip: -2})
	if err != nil {
		t.Fatalf("MessagesByPhone() error: %v", err)
	}
	if page.Limit != 50 || page.Skip != 0 {
		t.Fatalf("expected clamped defaults limit=50 skip=0, got limit=%d skip=%d", page.Limit, page.Skip)
	}
	if page.Count != 3 {
		t.Fatalf("expected all 3 messages, got %d", page.Count)
	}
}
