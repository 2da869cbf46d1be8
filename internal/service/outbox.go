package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/danielfabbri/logzone-api/internal/cache"
	"github.com/danielfabbri/logzone-api/internal/model"
	"github.com/danielfabbri/logzone-api/internal/repo"
)

// Outbox drains scheduled messages that have come due. Each tick
// claims one batch, pushes every claimed message through the gateway
// and records the outcome on the message row.
type Outbox struct {
	messages   repo.MessageRepository
	dispatcher *Dispatcher
	dispatches cache.DispatchCache
	log        *slog.Logger

	batchSize int
	now       func() time.Time
}

func NewOutbox(messages repo.MessageRepository, dispatcher *Dispatcher, dispatches cache.DispatchCache, batchSize int, log *slog.Logger) *Outbox {
	if batchSize <= 0 {
		batchSize = 10
	}
	if log == nil {
		log = slog.Default()
	}
	return &Outbox{
		messages:   messages,
		dispatcher: dispatcher,
		dispatches: dispatches,
		log:        log,
		batchSize:  batchSize,
		now:        time.Now,
	}
}

// Tick claims and dispatches one batch of due messages. Per-message
// failures mark the row failed and move on; only the claim itself can
// return an error.
func (o *Outbox) Tick(ctx context.Context) (sent, failed int, err error) {
	due, err := o.messages.ClaimDue(ctx, o.now().UTC(), o.batchSize)
	if err != nil {
		return 0, 0, fmt.Errorf("claim due messages: %w", err)
	}

	for _, m := range due {
		if utf8.RuneCountInString(m.Content) > model.MaxContentLength {
			failed++
			o.markFailed(ctx, &m, fmt.Sprintf("content exceeds %d chars", model.MaxContentLength))
			continue
		}

		res, err := o.dispatcher.Send(ctx, m.ToPhone, m.Content, DispatchOptions{})
		if err != nil {
			failed++
			o.markFailed(ctx, &m, err.Error())
			continue
		}

		sent++
		o.markSent(ctx, &m, res)
	}

	if len(due) > 0 {
		o.log.Info("outbox batch processed", "claimed", len(due), "sent", sent, "failed", failed)
	}
	return sent, failed, nil
}

func (o *Outbox) markSent(ctx context.Context, m *model.Message, res *DispatchResult) {
	status := model.StatusSent
	provider := providerName
	patch := repo.MessagePatch{
		Status:   &status,
		Provider: &provider,
		Metadata: mergeMetadata(m.Metadata, map[string]any{
			"whatsappMessageId": res.MessageID,
			"whatsappStatus":    res.Status,
		}),
	}
	if res.MessageID != "" {
		id := res.MessageID
		patch.ExternalID = &id
	}

	if _, err := o.messages.UpdateByID(ctx, m.ID, patch); err != nil {
		o.log.Error("outbox status update failed", "messageId", m.ID, "error", err)
	}
	if o.dispatches != nil {
		if err := o.dispatches.StoreDispatch(ctx, m.ID, res.MessageID, res.Status, o.now().UTC()); err != nil {
			o.log.Warn("dispatch cache write failed", "messageId", m.ID, "error", err)
		}
	}
}

func (o *Outbox) markFailed(ctx context.Context, m *model.Message, reason string) {
	status := model.StatusFailed
	patch := repo.MessagePatch{
		Status:   &status,
		Metadata: mergeMetadata(m.Metadata, map[string]any{"whatsappError": reason}),
	}
	if _, err := o.messages.UpdateByID(ctx, m.ID, patch); err != nil {
		o.log.Error("outbox status update failed", "messageId", m.ID, "error", err)
	}
}
