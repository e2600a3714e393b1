package llm

import (
	"context"
	"errors"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string
	Content string
}

type Response struct {
	Content          string
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Client is a text-completion service.
type Client interface {
	Generate(ctx context.Context, messages []Message) (Response, error)
}

var ErrEmptyResponse = errors.New("llm returned empty response")
