package node

import "openai-ask/pkg/config"

// InputSpec describes one node input for the host editor's property panel.
type InputSpec struct {
	Name      string   `json:"name"`
	Type      string   `json:"type"` // STRING, FLOAT, INT, CHOICE, IMAGE
	Default   any      `json:"default,omitempty"`
	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`
	Step      *float64 `json:"step,omitempty"`
	Choices   []string `json:"choices,omitempty"`
	Multiline bool     `json:"multiline,omitempty"`
	Required  bool     `json:"required"`
	Tooltip   string   `json:"tooltip,omitempty"`
}

// Manifest describes the node to the host editor.
type Manifest struct {
	Name        string      `json:"name"`
	DisplayName string      `json:"display_name"`
	Category    string      `json:"category"`
	Outputs     []string    `json:"outputs"`
	Inputs      []InputSpec `json:"inputs"`
}

// NodeManifest returns the descriptor for the OpenAI Ask node.
func NodeManifest() Manifest {
	return Manifest{
		Name:        "OpenAIAsk",
		DisplayName: "OpenAI Ask (Vision/QA)",
		Category:    "integrations/openai",
		Outputs:     []string{"positive", "negative", "answer_text", "raw_json"},
		Inputs: []InputSpec{
			{
				Name: "question", Type: "STRING", Default: config.DefaultQuestion,
				Multiline: true, Required: true,
			},
			{
				Name: "api_base", Type: "STRING", Default: "http://127.0.0.1:10000",
				Required: true,
				Tooltip:  "OpenAI-compatible server base URL, no trailing slash",
			},
			{
				Name: "endpoint_path", Type: "STRING", Default: "/v1/chat/completions",
				Required: true,
			},
			{
				Name: "model", Type: "STRING", Default: "minicpm-v-4.5",
				Required: true,
				Tooltip:  "llama.cpp usually ignores this, but the protocol requires it",
			},
			{
				Name: "temperature", Type: "FLOAT", Default: 0.3,
				Min: f(0), Max: f(2), Step: f(0.05), Required: true,
			},
			{
				Name: "top_p", Type: "FLOAT", Default: 1.0,
				Min: f(0), Max: f(1), Step: f(0.05), Required: true,
			},
			{
				Name: "max_tokens", Type: "INT", Default: 512,
				Min: f(1), Max: f(8192), Step: f(1), Required: true,
			},
			{
				Name: "system_prompt", Type: "STRING", Default: config.DefaultSystemPrompt,
				Multiline: true, Required: true,
			},
			{
				Name: "use_vision", Type: "CHOICE", Default: config.VisionAuto,
				Choices:  []string{config.VisionAuto, config.VisionForceOn, config.VisionForceOff},
				Required: true,
				Tooltip:  "auto: attach image when present; force_off: text only",
			},
			{
				Name: "content_source", Type: "CHOICE", Default: config.SourceContentOnly,
				Choices: []string{config.SourceContentOnly, config.SourceAuto, config.SourceReasoningOnly},
				Tooltip: "which response field feeds the outputs",
			},
			{
				Name: "image", Type: "IMAGE",
			},
			{
				Name: "api_key", Type: "STRING",
				Tooltip: "bearer token; llama.cpp accepts empty",
			},
			{
				Name: "extra_headers_json", Type: "STRING", Multiline: true,
				Tooltip: `extra HTTP headers as JSON, e.g. {"X-My-Header":"abc"}`,
			},
			{
				Name: "timeout_sec", Type: "INT", Default: 60,
				Min: f(1), Max: f(600), Step: f(1),
			},
			{
				Name: "max_side", Type: "INT", Default: 1280,
				Min: f(256), Max: f(4096), Step: f(16),
				Tooltip: "longest side after downscale; 0 disables scaling",
			},
			{
				Name: "image_format", Type: "CHOICE", Default: config.FormatJPEG,
				Choices: []string{config.FormatJPEG, config.FormatPNG},
			},
			{
				Name: "jpeg_quality", Type: "INT", Default: 90,
				Min: f(50), Max: f(100), Step: f(1),
			},
		},
	}
}

func f(v float64) *float64 {
	return &v
}
