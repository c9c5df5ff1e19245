// Package llm is a small chat-completions client for the OpenAI and Groq
// endpoints. Both speak the same wire format and differ only in base URL,
// credentials and model ids.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/zulandar/switchboard/internal/config"
)

// Chat roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Default endpoints per provider.
const (
	OpenAIBaseURL = "https://api.openai.com/v1"
	GroqBaseURL   = "https://api.groq.com/openai/v1"
)

// Message is one chat turn sent to the provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a single chat completion call. An empty Model uses the client's
// configured model; a zero MaxTokens uses MaxTokensFor(model).
type Request struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// Response carries the first choice and the provider's usage figures.
type Response struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
}

// TotalTokens is prompt plus completion tokens.
func (r *Response) TotalTokens() int {
	return r.PromptTokens + r.CompletionTokens
}

// Chatter is anything that can run a chat completion. *Client implements it;
// tests substitute fakes.
type Chatter interface {
	Chat(ctx context.Context, req Request) (*Response, error)
}

// ErrUnsupportedProvider is returned by New for an unknown provider name.
type ErrUnsupportedProvider struct {
	Provider string
}

func (e ErrUnsupportedProvider) Error() string {
	return fmt.Sprintf("llm: unsupported provider: %s", e.Provider)
}

// ProviderError is a non-2xx reply from a provider.
type ProviderError struct {
	Provider string
	Status   int
	Body     string
}

func (e *ProviderError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	if body == "" {
		return fmt.Sprintf("llm: %s: HTTP %d", e.Provider, e.Status)
	}
	return fmt.Sprintf("llm: %s: HTTP %d: %s", e.Provider, e.Status, body)
}

// maxTokens is the reply budget per model. Reasoning models spend part of
// the budget thinking, so they get more room.
var maxTokens = map[string]int{
	"deepseek-r1-distill-llama-70b": 500,
	"llama-3.3-70b-versatile":       250,
	"llama-3.1-70b-versatile":       250,
	"llama-3.1-8b-instant":          150,
	"gemma2-9b-it":                  150,
	"mixtral-8x7b-32768":            200,
	"gpt-4o":                        250,
	"gpt-4o-mini":                   200,
}

const defaultMaxTokens = 200

// MaxTokensFor returns the max_tokens budget for model.
func MaxTokensFor(model string) int {
	if n, ok := maxTokens[model]; ok {
		return n
	}
	return defaultMaxTokens
}

// FromConfig builds a client for the provider selected in cfg, optionally
// overriding it. An empty override keeps cfg.LLM.Provider.
func FromConfig(cfg *config.Config, provider, model string) (*Client, error) {
	if provider == "" {
		provider = cfg.LLM.Provider
	}
	var pc config.ProviderConfig
	switch provider {
	case config.ProviderOpenAI:
		pc = cfg.LLM.OpenAI
	case config.ProviderGroq:
		pc = cfg.LLM.Groq
	default:
		return nil, ErrUnsupportedProvider{Provider: provider}
	}
	if model != "" {
		pc.Model = model
	}
	return New(provider, pc)
}
