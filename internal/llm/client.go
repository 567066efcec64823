// Package llm provides the completion-provider client.
package llm

import "context"

// Message roles understood by chat-completion providers.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry in an assembled completion prompt.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client is the interface the chat flow uses to obtain a completion.
type Client interface {
	// Complete submits the ordered message list and returns the single
	// generated reply text. Provider failures surface as errors; the
	// caller never retries.
	Complete(ctx context.Context, messages []Message) (string, error)
}
