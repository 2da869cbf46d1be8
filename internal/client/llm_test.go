package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danielfabbri/logzone-api/internal/errs"
	"github.com/danielfabbri/logzone-api/internal/model"
)

func TestLLMClient_Complete_Success(t *testing.T) {
	t.Parallel()

	type gotReq struct {
		Auth        string
		ContentType string
		Body        []byte
	}

	var captured gotReq

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.Auth = r.Header.Get("Authorization")
		captured.ContentType = r.Header.Get("Content-Type")
		captured.Body, _ = io.ReadAll(r.Body)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"choices":[{"message":{"content":"hello!"}}],
			"usage":{"prompt_tokens":12,"completion_tokens":3,"total_tokens":15}
		}`))
	}))
	defer srv.Close()

	c := NewLLMClient(srv.URL, "sk-test")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	resp, err := c.Complete(ctx, ChatRequest{
		Model: "openai/gpt-4o-mini",
		Messages: []model.Turn{
			{Role: model.RoleSystem, Content: "be nice"},
			{Role: model.RoleUser, Content: "hi"},
		},
		Temperature: 0.7,
		MaxTokens:   1000,
	})
	if err != nil {
		t.Fatalf("Complete() error: %v", err)
	}

	if resp.Content != "hello!" {
		t.Fatalf("expected content %q, got %q", "hello!", resp.Content)
	}
	if resp.Usage.TotalTokens != 15 {
		t.Fatalf("expected total_tokens 15, got %d", resp.Usage.TotalTokens)
	}

	if captured.Auth != "Bearer sk-test" {
		t.Fatalf("expected bearer auth, got %q", captured.Auth)
	}
	if captured.ContentType != "application/json" {
		t.Fatalf("expected json content type, got %q", captured.ContentType)
	}

	var req ChatRequest
	if err := json.Unmarshal(captured.Body, &req); err != nil {
		t.Fatalf("failed to decode request json: %v body=%q", err, string(captured.Body))
	}
	if req.Model != "openai/gpt-4o-mini" {
		t.Fatalf("expected model in payload, got %q", req.Model)
	}
	if len(req.Messages) != 2 || req.Messages[0].Role != model.RoleSystem {
		t.Fatalf("expected ordered messages in payload, got %+v", req.Messages)
	}
	if req.MaxTokens != 1000 {
		t.Fatalf("expected max_tokens 1000, got %d", req.MaxTokens)
	}
}

func TestLLMClient_Complete_MissingAPIKey(t *testing.T) {
	t.Parallel()

	c := NewLLMClient("http://unused", "")

	_, err := c.Complete(context.Background(), ChatRequest{})
	if err == nil {
		t.Fatalf("expected error, got nil")
	}

	var cerr *errs.ConfigError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ConfigError, got %T: %v", err, err)
	}
	if cerr.Missing != "OPENROUTER_API_KEY" {
		t.Fatalf("expected missing OPENROUTER_API_KEY, got %q", cerr.Missing)
	}
}

func TestLLMClient_Complete_NonSuccessStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"rate limited"}`))
	}))
	defer srv.Close()

	c := NewLLMClient(srv.URL, "sk-test")

	_, err := c.Complete(context.Background(), ChatRequest{})
	if err == nil {
		t.Fatalf("expected error, got nil")
	}

	var serr *errs.ServiceError
	if !errors.As(err, &serr) {
		t.Fatalf("expected ServiceError, got %T: %v", err, err)
	}
	if serr.Status != http.StatusTooManyRequests {
		t.Fatalf("expected status 429, got %d", serr.Status)
	}
	if serr.Body != `{"error":"rate limited"}` {
		t.Fatalf("expected provider body preserved, got %q", serr.Body)
	}
}

func TestLLMClient_Complete_EmptyChoices(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[],"usage":{"total_tokens":1}}`))
	}))
	defer srv.Close()

	c := NewLLMClient(srv.URL, "sk-test")

	resp, err := c.Complete(context.Background(), ChatRequest{})
	if err != nil {
		t.Fatalf("Complete() error: %v", err)
	}
	if resp.Content != "" {
		t.Fatalf("expected empty content, got %q", resp.Content)
	}
}

func TestLLMClient_Complete_InvalidJSON(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("NOT JSON"))
	}))
	defer srv.Close()

	c := NewLLMClient(srv.URL, "sk-test")

	_, err := c.Complete(context.Background(), ChatRequest{})
	if err == nil {
		t.Fatalf("expected error, got nil")
	}

	var perr *errs.ProtocolError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ProtocolError, got %T: %v", err, err)
	}
}
