package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/danielfabbri/logzone-api/internal/cache"
	"github.com/danielfabbri/logzone-api/internal/client"
	"github.com/danielfabbri/logzone-api/internal/model"
	"github.com/danielfabbri/logzone-api/internal/repo"
)

// providerName tags messages dispatched through the gateway.
const providerName = "apibrasil"

// defaultTypingDelay mimics a human typing cadence before dispatch.
const defaultTypingDelay = 500 * time.Millisecond

// Pipeline runs the automated-reply flow for an inbound message:
// gather the conversation history, draft a reply with the language
// model, persist both sides, dispatch the reply through the gateway
// and record the outcome. Only the inbound persist is fatal; every
// later stage degrades into the result instead of failing the whole
// flow.
type Pipeline struct {
	messages   repo.MessageRepository
	projects   repo.ProjectRepository
	history    *History
	responder  *Responder
	dispatcher *Dispatcher
	dispatches cache.DispatchCache
	log        *slog.Logger

	typingDelay time.Duration
	timeTyping  int
}

func NewPipeline(
	messages repo.MessageRepository,
	projects repo.ProjectRepository,
	history *History,
	responder *Responder,
	dispatcher *Dispatcher,
	dispatches cache.DispatchCache,
	log *slog.Logger,
) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		messages:    messages,
		projects:    projects,
		history:     history,
		responder:   responder,
		dispatcher:  dispatcher,
		dispatches:  dispatches,
		log:         log,
		typingDelay: defaultTypingDelay,
		timeTyping:  1000,
	}
}

// WithTypingDelay overrides the pre-dispatch delay. Tests set zero.
func (p *Pipeline) WithTypingDelay(d time.Duration) *Pipeline {
	p.typingDelay = d
	return p
}

// GenerationResult reports the language-model stage of the pipeline.
type GenerationResult struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	Model   string       `json:"model,omitempty"`
	Usage   client.Usage `json:"usage"`
	Turns   int          `json:"conversationLength"`
	Error   string       `json:"error,omitempty"`
}

// DispatchOutcome reports the gateway stage of the pipeline. A failure
// to record the final status does not undo the dispatch, so it is
// surfaced separately instead of masking the outcome.
type DispatchOutcome struct {
	Success           bool   `json:"success"`
	MessageID         string `json:"messageId,omitempty"`
	Status            string `json:"status,omitempty"`
	Error             string `json:"error,omitempty"`
	StatusUpdateError string `json:"statusUpdateError,omitempty"`
}

// HistoryResult reports the context-gathering stage. A failed lookup
// still ships in the envelope so callers can tell "no history" from
// "history unavailable".
type HistoryResult struct {
	Success bool         `json:"success"`
	Turns   []model.Turn `json:"messages"`
	Count   int          `json:"count"`
	Error   string       `json:"error,omitempty"`
}

// PipelineResult is the full outcome of one inbound message.
type PipelineResult struct {
	UserMessage    *model.Message    `json:"userMessage"`
	AIMessage      *model.Message    `json:"aiMessage,omitempty"`
	AIResponse     *GenerationResult `json:"aiResponse"`
	WhatsAppResult *DispatchOutcome  `json:"whatsappResult,omitempty"`
	History        *HistoryResult    `json:"history"`
}

// Process runs the pipeline for one inbound message. The returned
// error is non-nil only when the inbound message could not be
// persisted; every other failure is reported inside the result.
func (p *Pipeline) Process(ctx context.Context, inbound *model.Message, q HistoryQuery) (*PipelineResult, error) {
	// History is read before the inbound message is stored so the new
	// message does not show up twice in the prompt.
	turns, err := p.history.ConversationTurns(ctx, inbound.FromPhone, q)
	hist := &HistoryResult{Success: true, Turns: turns, Count: len(turns)}
	if err != nil {
		p.log.Warn("history lookup failed, replying without context",
			"phone", inbound.FromPhone, "error", err)
		turns = nil
		hist = &HistoryResult{Turns: []model.Turn{}, Error: err.Error()}
	}
	if hist.Turns == nil {
		hist.Turns = []model.Turn{}
	}

	stored, err := p.messages.Create(ctx, inbound)
	if err != nil {
		return nil, err
	}

	result := &PipelineResult{UserMessage: stored, History: hist}

	var project *model.Project
	if p.projects != nil && stored.ProjectID != 0 {
		project, err = p.projects.GetByID(ctx, stored.ProjectID)
		if err != nil {
			p.log.Warn("project lookup failed, replying without project context",
				"projectId", stored.ProjectID, "error", err)
			project = nil
		}
	}

	gen, err := p.responder.Generate(ctx, stored.Content, stored.FromPhone, turns, GenerateOptions{Project: project})
	if err != nil {
		p.log.Error("reply generation failed", "messageId", stored.ID, "error", err)
		result.AIResponse = &GenerationResult{Error: err.Error()}
		return result, nil
	}
	result.AIResponse = &GenerationResult{
		Success: true,
		Message: gen.Reply,
		Model:   gen.Model,
		Usage:   gen.Usage,
		Turns:   gen.Turns,
	}

	reply, err := p.messages.Create(ctx, &model.Message{
		ProjectID: stored.ProjectID,
		Content:   gen.Reply,
		FromPhone: stored.ToPhone,
		ToPhone:   stored.FromPhone,
		Type:      model.TypeWhatsApp,
		Status:    model.StatusPending,
		Priority:  model.PriorityNormal,
		Metadata: map[string]any{
			"aiGenerated":        true,
			"model":              gen.Model,
			"usage":              gen.Usage,
			"conversationLength": gen.Turns,
		},
	})
	if err != nil {
		p.log.Error("reply persist failed, skipping dispatch", "messageId", stored.ID, "error", err)
		result.WhatsAppResult = &DispatchOutcome{Error: "persist reply: " + err.Error()}
		return result, nil
	}
	result.AIMessage = reply

	res, err := p.dispatcher.Send(ctx, stored.FromPhone, gen.Reply, DispatchOptions{
		TimeTyping: p.timeTyping,
		Delay:      p.typingDelay,
	})
	if err != nil {
		p.log.Error("dispatch failed", "messageId", reply.ID, "error", err)
		result.WhatsAppResult = &DispatchOutcome{Error: err.Error()}
		result.AIMessage = p.markFailed(ctx, reply, err, result.WhatsAppResult)
		return result, nil
	}

	result.WhatsAppResult = &DispatchOutcome{
		Success:   true,
		MessageID: res.MessageID,
		Status:    res.Status,
	}
	result.AIMessage = p.markSent(ctx, reply, res, result.WhatsAppResult)

	if p.dispatches != nil {
		if err := p.dispatches.StoreDispatch(ctx, reply.ID, res.MessageID, res.Status, time.Now().UTC()); err != nil {
			p.log.Warn("dispatch cache write failed", "messageId", reply.ID, "error", err)
		}
	}
	return result, nil
}

func (p *Pipeline) markSent(ctx context.Context, reply *model.Message, res *DispatchResult, out *DispatchOutcome) *model.Message {
	status := model.StatusSent
	provider := providerName
	meta := mergeMetadata(reply.Metadata, map[string]any{
		"whatsappMessageId": res.MessageID,
		"whatsappStatus":    res.Status,
	})

	patch := repo.MessagePatch{Status: &status, Provider: &provider, Metadata: meta}
	if res.MessageID != "" {
		id := res.MessageID
		patch.ExternalID = &id
	}

	updated, err := p.messages.UpdateByID(ctx, reply.ID, patch)
	if err != nil {
		p.log.Error("status update failed after dispatch", "messageId", reply.ID, "error", err)
		out.StatusUpdateError = err.Error()
		return reply
	}
	return updated
}

func (p *Pipeline) markFailed(ctx context.Context, reply *model.Message, sendErr error, out *DispatchOutcome) *model.Message {
	status := model.StatusFailed
	meta := mergeMetadata(reply.Metadata, map[string]any{
		"whatsappError": sendErr.Error(),
	})

	updated, err := p.messages.UpdateByID(ctx, reply.ID, repo.MessagePatch{Status: &status, Metadata: meta})
	if err != nil {
		p.log.Error("status update failed after dispatch error", "messageId", reply.ID, "error", err)
		out.StatusUpdateError = err.Error()
		return reply
	}
	return updated
}

// mergeMetadata layers extra on top of base without mutating either.
func mergeMetadata(base, extra map[string]any) map[string]any {
	merged := make(map[string]any, len(base)+len(extra))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged
}
