package chat

import (
	"bytes"
	"encoding/json"
	"strings"

	"openai-ask/pkg/config"
	apperrors "openai-ask/pkg/errors"
)

// completionEnvelope mirrors the fields of an OpenAI-style completion
// response this node cares about. Content fields stay raw because servers
// return either a plain string or a list of typed text blocks.
type completionEnvelope struct {
	Choices []struct {
		Message struct {
			Content          json.RawMessage `json:"content"`
			ReasoningContent json.RawMessage `json:"reasoning_content"`
		} `json:"message"`
		Text json.RawMessage `json:"text"`
	} `json:"choices"`
}

// Completion is a decoded completion response.
type Completion struct {
	envelope completionEnvelope
}

// Decode parses the response body. A body that is not a JSON object (HTML
// error pages, plain-text proxies) is a parse error; the node reports it on
// its debug channels.
func (r *Response) Decode() (*Completion, error) {
	var env completionEnvelope
	if err := json.Unmarshal(r.RawBody, &env); err != nil {
		return nil, apperrors.NewResponseParseFailed(r.StatusCode, err)
	}
	return &Completion{envelope: env}, nil
}

// PrettyJSON returns the body re-indented when it is valid JSON, or the body
// verbatim (with ok=false) when it is not.
func (r *Response) PrettyJSON() (string, bool) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, r.RawBody, "", "  "); err != nil {
		return string(r.RawBody), false
	}
	return buf.String(), true
}

// ContentText returns the flattened message.content of the first choice.
func (c *Completion) ContentText() string {
	if len(c.envelope.Choices) == 0 {
		return ""
	}
	return Flatten(c.envelope.Choices[0].Message.Content)
}

// ReasoningText returns the flattened message.reasoning_content of the first
// choice. Only emitted by reasoning-capable servers.
func (c *Completion) ReasoningText() string {
	if len(c.envelope.Choices) == 0 {
		return ""
	}
	return Flatten(c.envelope.Choices[0].Message.ReasoningContent)
}

// FallbackText returns the flattened legacy choices[0].text field.
func (c *Completion) FallbackText() string {
	if len(c.envelope.Choices) == 0 {
		return ""
	}
	return Flatten(c.envelope.Choices[0].Text)
}

// SelectText picks the source text for the node outputs according to the
// content-source mode.
func (c *Completion) SelectText(source string) string {
	content := c.ContentText()
	reasoning := c.ReasoningText()
	fallback := c.FallbackText()

	switch source {
	case config.SourceReasoningOnly:
		if reasoning != "" {
			return reasoning
		}
		if fallback != "" {
			return fallback
		}
		return content
	case config.SourceAuto:
		if content != "" {
			return content
		}
		if reasoning != "" {
			return reasoning
		}
		return fallback
	default: // content_only
		if content != "" {
			return content
		}
		if fallback != "" {
			return fallback
		}
		return reasoning
	}
}

// Flatten extracts plain text from a content value that is either a JSON
// string or a list of blocks like {"type":"text","text":"..."} (some servers
// use "content" for the block payload). Block texts are joined with newlines.
func Flatten(raw json.RawMessage) string {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err == nil {
		var parts []string
		for _, item := range items {
			var block map[string]json.RawMessage
			if json.Unmarshal(item, &block) != nil {
				continue
			}
			text := stringField(block, "text")
			if text == "" {
				text = stringField(block, "content")
			}
			if strings.TrimSpace(text) != "" {
				parts = append(parts, text)
			}
		}
		return strings.TrimSpace(strings.Join(parts, "\n"))
	}

	// Last resort: the raw JSON value itself
	return strings.TrimSpace(string(raw))
}

func stringField(block map[string]json.RawMessage, key string) string {
	raw, ok := block[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}
