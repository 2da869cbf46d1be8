package model

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one role-tagged message unit fed to the language model.
// Turns are derived from stored messages and never persisted.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
