// Package chat talks to an OpenAI-compatible chat-completion endpoint
// (llama.cpp, vLLM, LiteLLM). Payloads are built with the go-openai request
// types, but transport and decoding are handled here: the node's debug
// channel needs the raw response body, and llama.cpp-family servers emit
// fields (reasoning_content, block-structured content) the SDK client
// does not surface.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	apperrors "openai-ask/pkg/errors"
	"openai-ask/pkg/logger"
)

// Request carries everything needed for a single completion call.
type Request struct {
	APIBase      string // e.g. http://127.0.0.1:10000, trailing slash tolerated
	EndpointPath string // e.g. /v1/chat/completions, leading slash tolerated
	APIKey       string // optional bearer token
	ExtraHeaders string // optional JSON object of extra headers

	Model       string
	Temperature float64
	TopP        float64
	MaxTokens   int

	SystemPrompt string
	Question     string
	ImageDataURL string // empty = text-only request
}

// Response is the raw outcome of a completion call. Any HTTP status counts
// as a response; only transport-level failures are errors.
type Response struct {
	URL        string
	StatusCode int
	RawBody    []byte
	Latency    time.Duration
}

// Client posts chat-completion requests.
type Client struct {
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a chat client. Per-call deadlines come from the context,
// so the underlying http.Client carries no timeout of its own.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{},
		logger:     logger.Named("chat"),
	}
}

// Complete sends the request and returns the raw response. The caller decides
// how to treat non-2xx statuses and undecodable bodies.
func (c *Client) Complete(ctx context.Context, req Request) (*Response, error) {
	url := EndpointURL(req.APIBase, req.EndpointPath)

	payload := openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    buildMessages(req.SystemPrompt, req.Question, req.ImageDataURL),
		Temperature: float32(req.Temperature),
		TopP:        float32(req.TopP),
		MaxTokens:   req.MaxTokens,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, apperrors.NewRequestFailed(url, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.NewRequestFailed(url, err)
	}
	for k, v := range MergeHeaders(req.APIKey, req.ExtraHeaders) {
		httpReq.Header.Set(k, v)
	}

	c.logger.Debug("Sending chat completion",
		zap.String("url", url),
		zap.String("model", req.Model),
		zap.Bool("has_image", req.ImageDataURL != ""),
		zap.Int("max_tokens", req.MaxTokens),
	)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Error("Chat completion request failed",
			zap.String("url", url),
			zap.Error(err),
		)
		return nil, apperrors.NewRequestFailed(url, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewRequestFailed(url, err)
	}

	latency := time.Since(start)
	c.logger.Info("Chat completion finished",
		zap.String("url", url),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", latency),
	)

	return &Response{
		URL:        url,
		StatusCode: resp.StatusCode,
		RawBody:    raw,
		Latency:    latency,
	}, nil
}

// buildMessages assembles the chat messages. The user message is sent as
// multi-part content whenever there is a question or an image; an all-blank
// question without an image falls back to plain string content.
func buildMessages(systemPrompt, question, imageDataURL string) []openai.ChatCompletionMessage {
	var parts []openai.ChatMessagePart
	if strings.TrimSpace(question) != "" {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeText,
			Text: question,
		})
	}
	if imageDataURL != "" {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL: imageDataURL,
			},
		})
	}

	var messages []openai.ChatCompletionMessage
	if strings.TrimSpace(systemPrompt) != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		})
	}

	user := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser}
	if len(parts) > 0 {
		user.MultiContent = parts
	} else {
		user.Content = question
	}
	return append(messages, user)
}

// EndpointURL joins the API base and endpoint path, normalizing slashes.
func EndpointURL(base, path string) string {
	base = strings.TrimRight(base, "/")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}

// MergeHeaders builds the request headers: JSON content type, optional bearer
// auth, then extra headers parsed from a JSON object. Invalid extra-header
// JSON is ignored rather than failing the call.
func MergeHeaders(apiKey, extraJSON string) map[string]string {
	headers := map[string]string{
		"Content-Type": "application/json",
	}
	if apiKey != "" {
		headers["Authorization"] = "Bearer " + apiKey
	}
	if extraJSON != "" {
		var extra map[string]any
		if err := json.Unmarshal([]byte(extraJSON), &extra); err == nil {
			for k, v := range extra {
				if s, ok := v.(string); ok {
					headers[k] = s
				} else {
					headers[k] = fmt.Sprint(v)
				}
			}
		}
	}
	return headers
}
