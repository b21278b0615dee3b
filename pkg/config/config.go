package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Vision modes control whether an image is attached to the request.
const (
	VisionAuto     = "auto"
	VisionForceOn  = "force_on"
	VisionForceOff = "force_off"
)

// Content sources select which response field feeds the node outputs.
const (
	SourceContentOnly   = "content_only"
	SourceAuto          = "auto"
	SourceReasoningOnly = "reasoning_only"
)

// Image output formats for the vision data URL.
const (
	FormatJPEG = "JPEG"
	FormatPNG  = "PNG"
)

// DefaultQuestion is the question sent when the host supplies none.
const DefaultQuestion = "Provide a detailed prompt based on this image. Output exactly two lines:\nPrompt: xxx\nNegative: xxx"

// DefaultSystemPrompt instructs the model to answer in the two-line format
// the splitter expects.
const DefaultSystemPrompt = "You are a vision-language assistant. " +
	"Return exactly TWO lines with no extra words:\n" +
	"Prompt: <positive>\nNegative: <negative>"

// Config holds all application configuration
type Config struct {
	// App
	Port string
	Env  string

	// Upstream endpoint
	APIBase      string // no trailing slash, e.g. http://127.0.0.1:10000
	EndpointPath string // e.g. /v1/chat/completions
	APIKey       string // optional bearer token; llama.cpp ignores it
	ExtraHeaders string // optional JSON object of extra HTTP headers

	// Completion parameters
	Model       string
	Temperature float64
	TopP        float64
	MaxTokens   int
	TimeoutSec  int

	// Node defaults
	Question      string
	SystemPrompt  string
	UseVision     string
	ContentSource string

	// Image preparation
	MaxSide     int // longest side after downscale; 0 disables scaling
	ImageFormat string
	JPEGQuality int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		APIBase:       getEnv("API_BASE", "http://127.0.0.1:10000"),
		EndpointPath:  getEnv("ENDPOINT_PATH", "/v1/chat/completions"),
		APIKey:        getEnv("API_KEY", ""),
		ExtraHeaders:  getEnv("EXTRA_HEADERS_JSON", ""),
		Model:         getEnv("MODEL_ID", "minicpm-v-4.5"),
		Temperature:   getEnvFloat("TEMPERATURE", 0.3),
		TopP:          getEnvFloat("TOP_P", 1.0),
		MaxTokens:     getEnvInt("MAX_TOKENS", 512),
		TimeoutSec:    getEnvInt("TIMEOUT_SEC", 60),
		Question:      getEnv("QUESTION", DefaultQuestion),
		SystemPrompt:  getEnv("SYSTEM_PROMPT", DefaultSystemPrompt),
		UseVision:     getEnv("USE_VISION", VisionAuto),
		ContentSource: getEnv("CONTENT_SOURCE", SourceContentOnly),
		MaxSide:       getEnvInt("MAX_SIDE", 1280),
		ImageFormat:   strings.ToUpper(getEnv("IMAGE_FORMAT", FormatJPEG)),
		JPEGQuality:   getEnvInt("JPEG_QUALITY", 90),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are set and within bounds
func (c *Config) Validate() error {
	if c.APIBase == "" {
		return fmt.Errorf("API_BASE is required")
	}
	if c.Model == "" {
		return fmt.Errorf("MODEL_ID is required")
	}
	switch c.UseVision {
	case VisionAuto, VisionForceOn, VisionForceOff:
	default:
		return fmt.Errorf("USE_VISION must be one of auto, force_on, force_off (got %q)", c.UseVision)
	}
	switch c.ContentSource {
	case SourceContentOnly, SourceAuto, SourceReasoningOnly:
	default:
		return fmt.Errorf("CONTENT_SOURCE must be one of content_only, auto, reasoning_only (got %q)", c.ContentSource)
	}
	switch c.ImageFormat {
	case FormatJPEG, FormatPNG:
	default:
		return fmt.Errorf("IMAGE_FORMAT must be JPEG or PNG (got %q)", c.ImageFormat)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("TEMPERATURE must be in [0, 2] (got %v)", c.Temperature)
	}
	if c.TopP < 0 || c.TopP > 1 {
		return fmt.Errorf("TOP_P must be in [0, 1] (got %v)", c.TopP)
	}
	if c.MaxTokens < 1 || c.MaxTokens > 8192 {
		return fmt.Errorf("MAX_TOKENS must be in [1, 8192] (got %d)", c.MaxTokens)
	}
	if c.TimeoutSec < 1 || c.TimeoutSec > 600 {
		return fmt.Errorf("TIMEOUT_SEC must be in [1, 600] (got %d)", c.TimeoutSec)
	}
	if c.MaxSide != 0 && (c.MaxSide < 256 || c.MaxSide > 4096) {
		return fmt.Errorf("MAX_SIDE must be 0 or in [256, 4096] (got %d)", c.MaxSide)
	}
	if c.JPEGQuality < 50 || c.JPEGQuality > 100 {
		return fmt.Errorf("JPEG_QUALITY must be in [50, 100] (got %d)", c.JPEGQuality)
	}
	// API key and extra headers are optional; llama.cpp does not check auth
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		var result float64
		if _, err := fmt.Sscanf(value, "%f", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}
