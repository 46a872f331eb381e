// Package transcribe sends local audio recordings to a remote
// speech-to-text endpoint and returns the raw transcript text.
package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dreamlog/internal/dream"
)

const (
	defaultEndpoint = "https://api.openai.com/v1/audio/transcriptions"
	defaultModel    = "whisper-1"
)

// Client is a speech-to-text client. It performs one request per call and
// never retries; re-invocation is the caller's decision.
type Client struct {
	apiKey   string
	endpoint string
	model    string
	http     *http.Client
	logger   dream.Logger
}

// Option adjusts a Client.
type Option func(*Client)

// WithEndpoint overrides the transcription endpoint (tests, proxies).
func WithEndpoint(url string) Option {
	return func(c *Client) {
		if url != "" {
			c.endpoint = url
		}
	}
}

// WithModel overrides the transcription model identifier.
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// NewClient creates a transcription client. A missing API key is a
// configuration error surfaced here, before any network call.
func NewClient(apiKey string, logger dream.Logger, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: speech-to-text API key not set", dream.ErrConfig)
	}
	c := &Client{
		apiKey:   apiKey,
		endpoint: defaultEndpoint,
		model:    defaultModel,
		http:     &http.Client{Timeout: 120 * time.Second},
		logger:   logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

// Transcribe uploads the audio file as a multipart request and returns the
// transcript.
func (c *Client) Transcribe(ctx context.Context, audioPath string) (string, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("opening audio file: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := newAudioPart(mw, filepath.Base(audioPath))
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("reading audio file: %w", err)
	}
	if err := mw.WriteField("model", c.model); err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	if err := mw.WriteField("response", "text"); err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("transcription request failed", "error", err)
		return "", fmt.Errorf("%w: %v", dream.ErrNetwork, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: reading response: %v", dream.ErrNetwork, err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("transcription service error", "status", resp.StatusCode, "body", string(respBody))
		return "", fmt.Errorf("%w: transcription endpoint returned %d: %s", dream.ErrService, resp.StatusCode, string(respBody))
	}

	var parsed transcriptionResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("%w: unexpected transcription response: %v", dream.ErrSchema, err)
	}
	if strings.TrimSpace(parsed.Text) == "" {
		return "", fmt.Errorf("%w: service returned no text", dream.ErrEmptyResult)
	}

	c.logger.Debug("audio transcribed", "chars", len(parsed.Text))
	return parsed.Text, nil
}

// newAudioPart creates the "file" form part with an explicit audio/m4a
// content type; mime/multipart's CreateFormFile would default to
// application/octet-stream.
func newAudioPart(mw *multipart.Writer, filename string) (io.Writer, error) {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	h.Set("Content-Type", "audio/m4a")
	return mw.CreatePart(h)
}

var _ dream.Transcriber = (*Client)(nil)
