package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/zulandar/switchboard/internal/config"
)

const (
	defaultTimeout = 60 * time.Second
	maxRetries     = 3
	initialBackoff = 500 * time.Millisecond
)

// Client calls one provider's /chat/completions endpoint.
type Client struct {
	provider   string
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	backoff    time.Duration
}

// New returns a client for provider ("openai" or "groq").
func New(provider string, pc config.ProviderConfig) (*Client, error) {
	baseURL := pc.BaseURL
	switch provider {
	case config.ProviderOpenAI:
		if baseURL == "" {
			baseURL = OpenAIBaseURL
		}
	case config.ProviderGroq:
		if baseURL == "" {
			baseURL = GroqBaseURL
		}
	default:
		return nil, ErrUnsupportedProvider{Provider: provider}
	}
	return &Client{
		provider:   provider,
		apiKey:     pc.APIKey,
		model:      pc.Model,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		backoff:    initialBackoff,
	}, nil
}

// Provider returns the provider name.
func (c *Client) Provider() string { return c.provider }

// Model returns the default model id.
func (c *Client) Model() string { return c.model }

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Chat sends req and returns the first choice. HTTP 429 is retried with
// exponential backoff; any other non-2xx status is a *ProviderError.
func (c *Client) Chat(ctx context.Context, req Request) (*Response, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("llm: %s: missing API key", c.provider)
	}
	model := req.Model
	if model == "" {
		model = c.model
	}
	if model == "" {
		return nil, fmt.Errorf("llm: %s: missing model", c.provider)
	}
	maxTok := req.MaxTokens
	if maxTok == 0 {
		maxTok = MaxTokensFor(model)
	}
	body, err := json.Marshal(chatRequest{
		Model:       model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   maxTok,
	})
	if err != nil {
		return nil, fmt.Errorf("llm: marshal request: %w", err)
	}

	var lastErr error
	for attempt := range maxRetries {
		resp, err := c.do(ctx, body)
		if err == nil {
			return resp, nil
		}
		var pe *ProviderError
		if !errors.As(err, &pe) || pe.Status != http.StatusTooManyRequests {
			return nil, err
		}
		lastErr = err
		if attempt < maxRetries-1 {
			wait := time.Duration(float64(c.backoff) * math.Pow(2, float64(attempt)))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}
	}
	return nil, fmt.Errorf("llm: rate limited after %d attempts: %w", maxRetries, lastErr)
}

func (c *Client) do(ctx context.Context, body []byte) (*Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("llm: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("llm: %s: %w", c.provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &ProviderError{Provider: c.provider, Status: resp.StatusCode, Body: string(b)}
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("llm: %s: decode response: %w", c.provider, err)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("llm: %s: response had no choices", c.provider)
	}
	return &Response{
		Content:          strings.TrimSpace(parsed.Choices[0].Message.Content),
		PromptTokens:     parsed.Usage.PromptTokens,
		CompletionTokens: parsed.Usage.CompletionTokens,
	}, nil
}
