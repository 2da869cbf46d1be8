package model

import "time"

type LogLevel string

const (
	LevelTrace LogLevel = "trace"
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
	LevelFatal LogLevel = "fatal"
)

type Log struct {
	ID          int64          `json:"id"`
	ProjectID   int64          `json:"project"`
	Source      string         `json:"source,omitempty"`
	Environment string         `json:"environment"`
	Level       LogLevel       `json:"level"`
	Message     string         `json:"message"`
	Context     string         `json:"context,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	OccurredAt  time.Time      `json:"occurredAt"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}
