// Package ollama provides an LLM provider backed by a locally-reachable
// Ollama server. It implements the llm.Provider interface.
//
// Requests are sent to POST /api/chat with stream disabled:
//
//	{"model": "llama3", "messages": [{"role": "user", "content": "..."}], "stream": false}
//
// and the reply text is read from the response's message.content field. Any
// other response shape is a protocol error. This wire format must be
// preserved exactly for compatibility with Ollama's chat API.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/unipodhq/unipod/pkg/provider/llm"
)

// Compile-time interface assertion.
var _ llm.Provider = (*Provider)(nil)

const (
	defaultBaseURL = "http://localhost:11434"
	defaultTimeout = 120 * time.Second

	chatEndpoint = "/api/chat"
)

// Option is a functional option for configuring an Ollama Provider.
type Option func(*Provider)

// WithBaseURL overrides the default server address (http://localhost:11434).
func WithBaseURL(u string) Option {
	return func(p *Provider) {
		p.baseURL = strings.TrimRight(u, "/")
	}
}

// WithTimeout sets the per-request HTTP timeout. Defaults to 120 s; local
// models on CPU can take minutes for long prompts, so size this generously.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		p.httpClient.Timeout = d
	}
}

// WithHTTPClient replaces the underlying HTTP client. Mainly useful in tests.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = c
	}
}

// Provider implements llm.Provider against Ollama's native chat API.
// It is safe for concurrent use.
type Provider struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// New creates a new Ollama Provider for the given model (e.g., "llama3").
func New(model string, opts ...Option) (*Provider, error) {
	if model == "" {
		return nil, errors.New("ollama: model must not be empty")
	}
	p := &Provider{
		baseURL: defaultBaseURL,
		model:   model,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// chatMessage is one message in the Ollama chat wire format.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the JSON body sent to POST /api/chat.
type chatRequest struct {
	Model    string         `json:"model"`
	Messages []chatMessage  `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

// chatResponse is the JSON body returned by POST /api/chat (non-streaming).
type chatResponse struct {
	Model           string      `json:"model"`
	Message         chatMessage `json:"message"`
	Done            bool        `json:"done"`
	PromptEvalCount int         `json:"prompt_eval_count"`
	EvalCount       int         `json:"eval_count"`
}

// Complete implements llm.Provider. It issues a single non-streaming
// /api/chat call and returns the assistant message content.
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if len(req.Messages) == 0 && req.SystemPrompt == "" {
		return nil, errors.New("ollama: request has no messages")
	}

	body := chatRequest{
		Model:  p.model,
		Stream: false,
	}
	if req.SystemPrompt != "" {
		body.Messages = append(body.Messages, chatMessage{Role: "system", Content: req.SystemPrompt})
	}
	for _, m := range req.Messages {
		body.Messages = append(body.Messages, chatMessage{Role: m.Role, Content: m.Content})
	}
	if req.Temperature != 0 || req.MaxTokens > 0 {
		body.Options = map[string]any{}
		if req.Temperature != 0 {
			body.Options["temperature"] = req.Temperature
		}
		if req.MaxTokens > 0 {
			body.Options["num_predict"] = req.MaxTokens
		}
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("ollama: marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+chatEndpoint, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("ollama: create chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ollama: POST %s: %w", chatEndpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("ollama: POST %s returned status %d: %s", chatEndpoint, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("ollama: decode chat response: %w", err)
	}
	if chatResp.Message.Role == "" && chatResp.Message.Content == "" {
		return nil, errors.New("ollama: chat response missing message content")
	}

	return &llm.CompletionResponse{
		Content: chatResp.Message.Content,
		Usage: llm.Usage{
			PromptTokens:     chatResp.PromptEvalCount,
			CompletionTokens: chatResp.EvalCount,
			TotalTokens:      chatResp.PromptEvalCount + chatResp.EvalCount,
		},
	}, nil
}
