// Package structure turns raw dream transcripts into structured drafts by
// calling a chat-completions endpoint with a strict extraction schema.
package structure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"dreamlog/internal/dream"
	"dreamlog/internal/model"
)

const (
	defaultEndpoint = "https://api.openai.com/v1/chat/completions"
	defaultModel    = "gpt-4o-mini"
)

// Client structures transcripts via a remote language model. It is stateless:
// the same input with the same schema produces the same request.
type Client struct {
	apiKey   string
	endpoint string
	model    string
	http     *http.Client
	logger   dream.Logger
}

// Option adjusts a Client.
type Option func(*Client)

// WithEndpoint overrides the completions endpoint (tests, proxies).
func WithEndpoint(url string) Option {
	return func(c *Client) {
		if url != "" {
			c.endpoint = url
		}
	}
}

// WithModel overrides the model identifier.
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// NewClient creates a structuring client. A missing API key is a
// configuration error surfaced here, before any network call.
func NewClient(apiKey string, logger dream.Logger, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: language-model API key not set", dream.ErrConfig)
	}
	c := &Client{
		apiKey:   apiKey,
		endpoint: defaultEndpoint,
		model:    defaultModel,
		http:     &http.Client{Timeout: 60 * time.Second},
		logger:   logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat any           `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Structure sends rawText to the model and parses the response as a
// DreamDraft. It either returns a draft with all six fields populated and a
// mood from the fixed enumeration, or an error, never a partial draft.
func (c *Client) Structure(ctx context.Context, rawText string) (*model.DreamDraft, error) {
	if strings.TrimSpace(rawText) == "" {
		return nil, fmt.Errorf("%w: nothing to structure", dream.ErrEmptyResult)
	}

	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemInstruction},
			{Role: "user", Content: fmt.Sprintf("Transcription: %q", rawText)},
		},
		ResponseFormat: responseFormat,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("structuring request failed", "error", err)
		return nil, fmt.Errorf("%w: %v", dream.ErrNetwork, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", dream.ErrNetwork, err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("structuring service error", "status", resp.StatusCode, "body", string(respBody))
		return nil, fmt.Errorf("%w: completions endpoint returned %d: %s", dream.ErrService, resp.StatusCode, string(respBody))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("%w: unexpected completions response: %v", dream.ErrSchema, err)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("%w: completions response has no choices", dream.ErrSchema)
	}

	draft, err := parseDraft(parsed.Choices[0].Message.Content)
	if err != nil {
		c.logger.Error("structuring response rejected", "error", err)
		return nil, err
	}

	c.logger.Debug("transcript structured", "title", draft.Title, "mood", string(draft.Mood))
	return draft, nil
}

// parseDraft decodes the model's message content and enforces the draft
// invariants. Mood violations hard-fail rather than clamping to a default;
// a bad value here would otherwise poison the persisted enum.
func parseDraft(content string) (*model.DreamDraft, error) {
	// Some models wrap JSON in markdown fences despite the response format.
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var draft model.DreamDraft
	if err := json.Unmarshal([]byte(content), &draft); err != nil {
		return nil, fmt.Errorf("%w: response is not valid draft JSON: %v", dream.ErrSchema, err)
	}

	if strings.TrimSpace(draft.Transcript) == "" {
		return nil, fmt.Errorf("%w: draft has empty transcript", dream.ErrSchema)
	}
	if draft.Title == "" || draft.Summary == "" {
		return nil, fmt.Errorf("%w: draft is missing required fields", dream.ErrSchema)
	}
	if draft.Tags == nil || draft.Keywords == nil {
		return nil, fmt.Errorf("%w: draft is missing tags or keywords", dream.ErrSchema)
	}
	if !draft.Mood.Valid() {
		return nil, fmt.Errorf("%w: unknown mood %q", dream.ErrSchema, draft.Mood)
	}

	return &draft, nil
}

var _ dream.Structurer = (*Client)(nil)
