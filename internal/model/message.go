package model

import "time"

type Status string

const (
	StatusPending   Status = "pending"
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusRead      Status = "read"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

type MessageType string

const (
	TypeSMS      MessageType = "sms"
	TypeWhatsApp MessageType = "whatsapp"
	TypeEmail    MessageType = "email"
	TypePush     MessageType = "push"
	TypeOther    MessageType = "other"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// MaxContentLength bounds the free-text content of a message.
const MaxContentLength = 1000

type Message struct {
	ID                int64          `json:"id"`
	ProjectID         int64          `json:"project"`
	Content           string         `json:"content"`
	FromPhone         string         `json:"fromPhone"`
	ToPhone           string         `json:"toPhone"`
	Type              MessageType    `json:"type"`
	Status            Status         `json:"status"`
	ExternalID        *string        `json:"externalId,omitempty"`
	Provider          string         `json:"provider"`
	Cost              float64        `json:"cost"`
	Currency          string         `json:"currency"`
	Attempts          int            `json:"attempts"`
	LastAttemptAt     *time.Time     `json:"lastAttemptAt,omitempty"`
	ScheduledAt       *time.Time     `json:"scheduledAt,omitempty"`
	DeliveredAt       *time.Time     `json:"deliveredAt,omitempty"`
	ReadAt            *time.Time     `json:"readAt,omitempty"`
	Metadata          map[string]any `json:"metadata,omitempty"`
	Tags              []string       `json:"tags,omitempty"`
	Priority          Priority       `json:"priority"`
	Template          *string        `json:"template,omitempty"`
	TemplateVariables map[string]any `json:"templateVariables,omitempty"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
}

// MessageStats aggregates per-status counts over a filtered message set.
type MessageStats struct {
	Total     int64   `json:"total"`
	Pending   int64   `json:"pending"`
	Sent      int64   `json:"sent"`
	Delivered int64   `json:"delivered"`
	Read      int64   `json:"read"`
	Failed    int64   `json:"failed"`
	Cancelled int64   `json:"cancelled"`
	TotalCost float64 `json:"totalCost"`
}
