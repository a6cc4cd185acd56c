package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/zhouzirui/chatty/internal/model/chat"
	"github.com/zhouzirui/chatty/internal/model/persona"
	"github.com/zhouzirui/chatty/internal/session"
)

const (
	chatPath         = "/chat"
	conversationPath = "/conversation.json"
	personasPath     = "/api/personas"

	// DefaultTimeout bounds one exchange, including the model call on the server.
	DefaultTimeout = 90 * time.Second
)

var (
	ErrEndpointRequired   = errors.New("endpoint is required")
	ErrNoConversationFile = errors.New("no conversation file available")
	ErrMalformedResponse  = errors.New("malformed response")
)

// HTTPClient talks to the chat backend over plain JSON.
type HTTPClient struct {
	base   *url.URL
	client *http.Client
	logger zerolog.Logger
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(h *HTTPClient) { h.client = c }
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(l zerolog.Logger) Option {
	return func(h *HTTPClient) { h.logger = l }
}

// New creates a client for the backend rooted at endpoint.
func New(endpoint string, opts ...Option) (*HTTPClient, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, ErrEndpointRequired
	}
	base, err := url.Parse(strings.TrimRight(endpoint, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid endpoint %q: scheme must be http or https", endpoint)
	}

	h := &HTTPClient{
		base:   base,
		client: &http.Client{Timeout: DefaultTimeout},
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

func (h *HTTPClient) url(path string) string {
	return h.base.String() + path
}

// Send posts one message to /chat and classifies the answer.
func (h *HTTPClient) Send(ctx context.Context, req session.Request) (session.Response, error) {
	payload, err := json.Marshal(chat.ChatRequest{
		Message: req.Message,
		Persona: req.Persona,
		Model:   req.Model,
	})
	if err != nil {
		return session.Response{}, fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url(chatPath), bytes.NewReader(payload))
	if err != nil {
		return session.Response{}, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if req.Token != "" {
		httpReq.Header.Set(chat.TokenHeader, req.Token)
	}

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return session.Response{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return session.Response{}, fmt.Errorf("read response: %w", err)
	}

	h.logger.Debug().Int("status", resp.StatusCode).Int("bytes", len(body)).Msg("chat response")

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return session.Response{Status: session.StatusRateLimited, Text: noticeText(body)}, nil
	case resp.StatusCode == http.StatusUnauthorized:
		return session.Response{Status: session.StatusUnauthorized, Text: noticeText(body)}, nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return session.Response{Status: session.StatusError, Text: string(body)}, nil
	}

	var decoded chat.ChatResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return session.Response{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return session.Response{Status: session.StatusOK, Text: decoded.Reply}, nil
}

// noticeText pulls the reply field out of an error answer. A body that is
// not the expected JSON yields "" so the caller falls back to its default.
func noticeText(body []byte) string {
	var decoded chat.ChatResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return ""
	}
	return decoded.Reply
}

// FetchConversationFile downloads the server-side conversation archive.
func (h *HTTPClient) FetchConversationFile(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url(conversationPath), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s", ErrNoConversationFile, strings.TrimSpace(string(body)))
	}
	return body, nil
}

// ListPersonas returns the presets the backend knows about.
func (h *HTTPClient) ListPersonas(ctx context.Context) ([]persona.Persona, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url(personasPath), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("list personas: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var personas []persona.Persona
	if err := json.NewDecoder(resp.Body).Decode(&personas); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return personas, nil
}
