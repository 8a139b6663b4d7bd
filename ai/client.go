package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-copilot/core"
	"github.com/goliatone/go-copilot/ratelimit"
)

const (
	defaultBaseURL      = "https://api.openai.com/v1"
	defaultTimeout      = 30 * time.Second
	maxResponseBytes    = 1 << 20
	completionsEndpoint = "/chat/completions"
)

// Client speaks the OpenAI-compatible chat-completions API. It asks the
// model for a JSON body `{"reply": ..., "actions": [...]}`; a model that
// answers in plain text still yields a usable reply with no actions.
// No retries: the chat flow degrades on failure instead of stalling.
type Client struct {
	model      string
	apiKey     string
	baseURL    string
	provider   string
	httpClient *http.Client
	throttle   Throttle
	logger     core.Logger
}

// Throttle gates collaborator calls on the rate-limit state observed in
// earlier responses. ratelimit.AdaptivePolicy is the shipped implementation.
type Throttle interface {
	BeforeCall(ctx context.Context, key ratelimit.Key) error
	AfterCall(ctx context.Context, key ratelimit.Key, res ratelimit.ResponseMeta) error
}

type Config struct {
	Model   string
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

type ClientOption func(*Client)

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

func WithLogger(logger core.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithThrottle(throttle Throttle) ClientOption {
	return func(c *Client) {
		c.throttle = throttle
	}
}

func NewClient(cfg Config, options ...ClientOption) (*Client, error) {
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("ai: model is required")
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	c := &Client{
		model:      cfg.Model,
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		provider:   providerFromBaseURL(baseURL),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range options {
		if opt != nil {
			opt(c)
		}
	}
	c.logger = glog.Ensure(c.logger)
	return c, nil
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model    string        `json:"model"`
	Messages []wireMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type completionResponse struct {
	Choices []struct {
		Message wireMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (c *Client) Complete(ctx context.Context, req core.CompletionRequest) (core.CompletionResult, error) {
	messages := make([]wireMessage, 0, len(req.History)+2)
	if strings.TrimSpace(req.SystemPrompt) != "" {
		messages = append(messages, wireMessage{Role: "system", Content: req.SystemPrompt})
	}
	for _, entry := range req.History {
		messages = append(messages, wireMessage{Role: string(entry.Role), Content: entry.Text})
	}
	if strings.TrimSpace(req.UserMessage) != "" {
		messages = append(messages, wireMessage{Role: "user", Content: req.UserMessage})
	}
	if len(messages) == 0 {
		return core.CompletionResult{}, fmt.Errorf("ai: completion request has no messages")
	}

	body, err := json.Marshal(completionRequest{Model: c.model, Messages: messages})
	if err != nil {
		return core.CompletionResult{}, fmt.Errorf("ai: marshal request: %w", err)
	}

	throttleKey := ratelimit.Key{Provider: c.provider, Model: c.model}
	if c.throttle != nil {
		if err := c.throttle.BeforeCall(ctx, throttleKey); err != nil {
			return core.CompletionResult{}, fmt.Errorf("ai: completion throttled: %w", err)
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+completionsEndpoint, bytes.NewReader(body))
	if err != nil {
		return core.CompletionResult{}, fmt.Errorf("ai: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return core.CompletionResult{}, fmt.Errorf("ai: completion call failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if c.throttle != nil {
		meta := ratelimit.ResponseMeta{
			StatusCode: resp.StatusCode,
			Headers:    flattenHeaders(resp.Header),
		}
		if err := c.throttle.AfterCall(ctx, throttleKey, meta); err != nil {
			c.logger.Warn("record collaborator rate-limit state", "model", c.model, "error", err.Error())
		}
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return core.CompletionResult{}, fmt.Errorf("ai: read response: %w", err)
	}

	var parsed completionResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return core.CompletionResult{}, fmt.Errorf("ai: malformed response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		message := strings.TrimSpace(string(payload))
		if parsed.Error != nil {
			message = parsed.Error.Message
		}
		return core.CompletionResult{}, fmt.Errorf("ai: completion failed with status %d: %s", resp.StatusCode, message)
	}
	if len(parsed.Choices) == 0 {
		return core.CompletionResult{}, fmt.Errorf("ai: completion returned no choices")
	}

	reply, actions := ParseStructuredReply(parsed.Choices[0].Message.Content)
	return core.CompletionResult{
		ReplyText: reply,
		Actions:   actions,
		Usage: core.TokenUsage{
			PromptTokens:     parsed.Usage.PromptTokens,
			CompletionTokens: parsed.Usage.CompletionTokens,
		},
	}, nil
}

type structuredReply struct {
	Reply   string `json:"reply"`
	Actions []struct {
		Type   string         `json:"type"`
		Params map[string]any `json:"params"`
	} `json:"actions"`
}

// ParseStructuredReply extracts the reply text and tagged actions from a
// model answer. Plain-text answers pass through untouched with no actions.
func ParseStructuredReply(content string) (string, []core.StructuredAction) {
	body := strings.TrimSpace(content)
	if trimmed, ok := stripCodeFence(body); ok {
		body = trimmed
	}
	if !strings.HasPrefix(body, "{") {
		return content, nil
	}

	var parsed structuredReply
	if err := json.Unmarshal([]byte(body), &parsed); err != nil || strings.TrimSpace(parsed.Reply) == "" {
		return content, nil
	}

	var actions []core.StructuredAction
	for _, action := range parsed.Actions {
		if strings.TrimSpace(action.Type) == "" {
			continue
		}
		actions = append(actions, core.StructuredAction{Type: action.Type, Params: action.Params})
	}
	return parsed.Reply, actions
}

func providerFromBaseURL(baseURL string) string {
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Host == "" {
		return "openai"
	}
	return strings.ToLower(parsed.Host)
}

func flattenHeaders(header http.Header) map[string]string {
	flat := make(map[string]string, len(header))
	for name := range header {
		flat[name] = header.Get(name)
	}
	return flat
}

func stripCodeFence(body string) (string, bool) {
	if !strings.HasPrefix(body, "```") {
		return body, false
	}
	body = strings.TrimPrefix(body, "```json")
	body = strings.TrimPrefix(body, "```")
	body = strings.TrimSuffix(strings.TrimSpace(body), "```")
	return strings.TrimSpace(body), true
}

var _ core.Collaborator = (*Client)(nil)
