package service

import (
	"context"

	"github.com/danielfabbri/logzone-api/internal/client"
	"github.com/danielfabbri/logzone-api/internal/config"
	"github.com/danielfabbri/logzone-api/internal/model"
)

type ChatCompleter interface {
	Complete(ctx context.Context, req client.ChatRequest) (*client.ChatResponse, error)
}

// Responder drafts a reply to an inbound message with one
// chat-completion call: system context first, then the conversation
// history in order, then the new user turn.
type Responder struct {
	llm          ChatCompleter
	model        string
	temperature  float64
	maxTokens    int
	agentContext string
}

func NewResponder(llm ChatCompleter, cfg config.AIConfig) *Responder {
	return &Responder{
		llm:          llm,
		model:        cfg.Model,
		temperature:  cfg.Temperature,
		maxTokens:    cfg.MaxTokens,
		agentContext: cfg.AgentContext,
	}
}

type GenerateOptions struct {
	// Project augments the system context with the project's name and
	// description when set.
	Project *model.Project
	// AgentContext overrides the configured persona.
	AgentContext string
	// Model overrides the configured model id.
	Model string
}

type Generation struct {
	Reply     string       `json:"message"`
	Model     string       `json:"model"`
	Usage     client.Usage `json:"usage"`
	Turns     int          `json:"conversationLength"`
	UserPhone string       `json:"userPhone"`
}

func (r *Responder) Generate(ctx context.Context, userMessage, userPhone string, history []model.Turn, opts GenerateOptions) (*Generation, error) {
	system := r.agentContext
	if opts.AgentContext != "" {
		system = opts.AgentContext
	}
	if opts.Project != nil {
		system += "\n\nContexto do projeto: " + opts.Project.Name
		if opts.Project.Description != "" {
			system += "\nDescrição: " + opts.Project.Description
		}
	}

	modelID := r.model
	if opts.Model != "" {
		modelID = opts.Model
	}

	turns := make([]model.Turn, 0, len(history)+2)
	if system != "" {
		turns = append(turns, model.Turn{Role: model.RoleSystem, Content: system})
	}
	turns = append(turns, history...)
	turns = append(turns, model.Turn{Role: model.RoleUser, Content: userMessage})

	resp, err := r.llm.Complete(ctx, client.ChatRequest{
		Model:       modelID,
		Messages:    turns,
		Temperature: r.temperature,
		MaxTokens:   r.maxTokens,
	})
	if err != nil {
		return nil, err
	}

	return &Generation{
		Reply:     resp.Content,
		Model:     modelID,
		Usage:     resp.Usage,
		Turns:     len(turns),
		UserPhone: userPhone,
	}, nil
}
