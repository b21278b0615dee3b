// Package node implements the OpenAI Ask node: a synchronous vision Q&A /
// prompt-inversion step for an image-generation graph. It forwards an image
// and/or question to an OpenAI-compatible endpoint and post-processes the
// answer into positive/negative prompt channels plus debug channels.
package node

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"openai-ask/internal/chat"
	"openai-ask/internal/imaging"
	"openai-ask/internal/splitter"
	"openai-ask/pkg/config"
	"openai-ask/pkg/logger"
)

// errTag prefixes diagnostics carried on the answer_text channel.
const errTag = "[openai-ask]"

// Params are the per-invocation inputs. Defaults come from
// ParamsFromConfig; the host overrides individual fields per call.
type Params struct {
	Question     string
	SystemPrompt string

	APIBase      string
	EndpointPath string
	APIKey       string
	ExtraHeaders string

	Model       string
	Temperature float64
	TopP        float64
	MaxTokens   int
	TimeoutSec  int

	UseVision     string
	ContentSource string

	// Image holds raw PNG/JPEG bytes; nil means text-only
	Image       []byte
	MaxSide     int
	ImageFormat string
	JPEGQuality int
}

// Result carries the four output channels. Network, server, and parse
// failures are reported here rather than as errors: a failed upstream call
// must not abort the host graph run.
type Result struct {
	Positive   string
	Negative   string
	AnswerText string
	RawJSON    string

	// Latency is the upstream call duration; zero when the call never
	// completed.
	Latency time.Duration
}

// Node executes ask invocations.
type Node struct {
	chat   *chat.Client
	logger *zap.Logger
}

// New creates a node backed by the given chat client.
func New(client *chat.Client) *Node {
	return &Node{
		chat:   client,
		logger: logger.Named("node"),
	}
}

// ParamsFromConfig builds invocation defaults from the loaded configuration.
func ParamsFromConfig(cfg *config.Config) Params {
	return Params{
		Question:      cfg.Question,
		SystemPrompt:  cfg.SystemPrompt,
		APIBase:       cfg.APIBase,
		EndpointPath:  cfg.EndpointPath,
		APIKey:        cfg.APIKey,
		ExtraHeaders:  cfg.ExtraHeaders,
		Model:         cfg.Model,
		Temperature:   cfg.Temperature,
		TopP:          cfg.TopP,
		MaxTokens:     cfg.MaxTokens,
		TimeoutSec:    cfg.TimeoutSec,
		UseVision:     cfg.UseVision,
		ContentSource: cfg.ContentSource,
		MaxSide:       cfg.MaxSide,
		ImageFormat:   cfg.ImageFormat,
		JPEGQuality:   cfg.JPEGQuality,
	}
}

// Ask runs one node invocation.
func (n *Node) Ask(ctx context.Context, p Params) *Result {
	// 1) Prepare the image. Imaging failures degrade to a text-only ask.
	dataURL := ""
	if p.UseVision != config.VisionForceOff && len(p.Image) > 0 {
		url, err := imaging.DataURL(p.Image, imaging.Options{
			MaxSide:     p.MaxSide,
			Format:      p.ImageFormat,
			JPEGQuality: p.JPEGQuality,
		})
		if err != nil {
			n.logger.Warn("Failed to prepare image, continuing without it", zap.Error(err))
		} else {
			dataURL = url
		}
	}

	timeout := time.Duration(p.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// 2) Call the endpoint
	resp, err := n.chat.Complete(ctx, chat.Request{
		APIBase:      p.APIBase,
		EndpointPath: p.EndpointPath,
		APIKey:       p.APIKey,
		ExtraHeaders: p.ExtraHeaders,
		Model:        p.Model,
		Temperature:  p.Temperature,
		TopP:         p.TopP,
		MaxTokens:    p.MaxTokens,
		SystemPrompt: p.SystemPrompt,
		Question:     p.Question,
		ImageDataURL: dataURL,
	})
	if err != nil {
		msg := fmt.Sprintf("%s request error: %v", errTag, err)
		raw, _ := json.MarshalIndent(map[string]string{"error": msg}, "", "  ")
		return &Result{AnswerText: msg, RawJSON: string(raw)}
	}

	// 3) Decode. A non-JSON body goes out verbatim on the raw channel.
	completion, err := resp.Decode()
	if err != nil {
		return &Result{
			AnswerText: fmt.Sprintf("%s parse error: %v\nHTTP %d Body: %s",
				errTag, err, resp.StatusCode, string(resp.RawBody)),
			RawJSON: string(resp.RawBody),
			Latency: resp.Latency,
		}
	}

	rawJSON, _ := resp.PrettyJSON()
	result := &Result{RawJSON: rawJSON, Latency: resp.Latency}

	if resp.StatusCode >= 400 {
		result.AnswerText = fmt.Sprintf("%s HTTP %d: %s",
			errTag, resp.StatusCode, strings.TrimSpace(string(resp.RawBody)))
	} else {
		source := completion.SelectText(p.ContentSource)

		// Split on the raw source text so a leading "Prompt:" label is
		// still visible to the splitter; sanitize only the full answer.
		result.Positive, result.Negative = splitter.Split(source)
		result.AnswerText = splitter.Sanitize(source)

		if result.AnswerText == "" {
			result.AnswerText = errTag + " Empty content from server."
		}
	}

	result.AnswerText += fmt.Sprintf("\n\n[latency: %.2fs]", resp.Latency.Seconds())
	return result
}
