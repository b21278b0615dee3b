package node

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"openai-ask/internal/chat"
	"openai-ask/pkg/config"
)

func testParams(srvURL string) Params {
	return Params{
		Question:      "Describe this image.",
		SystemPrompt:  config.DefaultSystemPrompt,
		APIBase:       srvURL,
		EndpointPath:  "/v1/chat/completions",
		Model:         "minicpm-v-4.5",
		Temperature:   0.3,
		TopP:          1.0,
		MaxTokens:     512,
		TimeoutSec:    5,
		UseVision:     config.VisionAuto,
		ContentSource: config.SourceContentOnly,
		MaxSide:       1280,
		ImageFormat:   config.FormatJPEG,
		JPEGQuality:   90,
	}
}

func completionBody(content string) string {
	body, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	})
	return string(body)
}

func smallPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestAsk_SplitsPromptAndNegative(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(completionBody("Prompt: a cat on a mat\nNegative: blurry")))
	}))
	defer srv.Close()

	n := New(chat.NewClient())
	result := n.Ask(context.Background(), testParams(srv.URL))

	if result.Positive != "a cat on a mat" {
		t.Errorf("unexpected positive: %q", result.Positive)
	}
	if result.Negative != "blurry" {
		t.Errorf("unexpected negative: %q", result.Negative)
	}
	if !strings.HasPrefix(result.AnswerText, "Prompt: a cat on a mat") {
		t.Errorf("unexpected answer text: %q", result.AnswerText)
	}
	if !strings.Contains(result.AnswerText, "[latency: ") {
		t.Errorf("missing latency suffix: %q", result.AnswerText)
	}
	if !strings.Contains(result.RawJSON, "\"choices\"") {
		t.Errorf("raw json channel missing response: %q", result.RawJSON)
	}
}

func TestAsk_AttachesImageInAutoMode(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		w.Write([]byte(completionBody("ok")))
	}))
	defer srv.Close()

	p := testParams(srv.URL)
	p.Image = smallPNG(t)

	New(chat.NewClient()).Ask(context.Background(), p)

	messages := captured["messages"].([]any)
	user := messages[len(messages)-1].(map[string]any)
	parts := user["content"].([]any)
	if len(parts) != 2 {
		t.Fatalf("expected text + image parts, got %d", len(parts))
	}
	imagePart := parts[1].(map[string]any)
	url := imagePart["image_url"].(map[string]any)["url"].(string)
	if !strings.HasPrefix(url, "data:image/jpeg;base64,") {
		t.Errorf("expected jpeg data URL, got prefix %q", url[:30])
	}
}

func TestAsk_ForceOffDropsImage(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		w.Write([]byte(completionBody("ok")))
	}))
	defer srv.Close()

	p := testParams(srv.URL)
	p.Image = smallPNG(t)
	p.UseVision = config.VisionForceOff

	New(chat.NewClient()).Ask(context.Background(), p)

	messages := captured["messages"].([]any)
	user := messages[len(messages)-1].(map[string]any)
	parts := user["content"].([]any)
	if len(parts) != 1 {
		t.Fatalf("expected text part only, got %d", len(parts))
	}
}

func TestAsk_UndecodableImageDegradesToTextOnly(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		w.Write([]byte(completionBody("ok")))
	}))
	defer srv.Close()

	p := testParams(srv.URL)
	p.Image = []byte("definitely not an image")

	result := New(chat.NewClient()).Ask(context.Background(), p)

	if strings.Contains(result.AnswerText, "error") {
		t.Errorf("imaging failure must not fail the ask: %q", result.AnswerText)
	}
	messages := captured["messages"].([]any)
	user := messages[len(messages)-1].(map[string]any)
	parts := user["content"].([]any)
	if len(parts) != 1 {
		t.Fatalf("expected text-only request after image failure, got %d parts", len(parts))
	}
}

func TestAsk_HTTPErrorReportedOnChannels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"message":"model not loaded"}}`))
	}))
	defer srv.Close()

	result := New(chat.NewClient()).Ask(context.Background(), testParams(srv.URL))

	if result.Positive != "" || result.Negative != "" {
		t.Errorf("expected empty prompt channels, got %q / %q", result.Positive, result.Negative)
	}
	if !strings.Contains(result.AnswerText, "HTTP 500") {
		t.Errorf("expected HTTP 500 diagnostic, got %q", result.AnswerText)
	}
	if !strings.Contains(result.RawJSON, "model not loaded") {
		t.Errorf("raw channel should carry the error body: %q", result.RawJSON)
	}
}

func TestAsk_NonJSONBodyReportedAsParseError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>Bad Gateway</html>"))
	}))
	defer srv.Close()

	result := New(chat.NewClient()).Ask(context.Background(), testParams(srv.URL))

	if !strings.Contains(result.AnswerText, "parse error") {
		t.Errorf("expected parse error diagnostic, got %q", result.AnswerText)
	}
	if result.RawJSON != "<html>Bad Gateway</html>" {
		t.Errorf("raw channel should carry the body verbatim: %q", result.RawJSON)
	}
}

func TestAsk_TransportErrorReportedOnChannels(t *testing.T) {
	p := testParams("http://127.0.0.1:1")

	result := New(chat.NewClient()).Ask(context.Background(), p)

	if !strings.Contains(result.AnswerText, "request error") {
		t.Errorf("expected request error diagnostic, got %q", result.AnswerText)
	}
	var raw map[string]string
	if err := json.Unmarshal([]byte(result.RawJSON), &raw); err != nil {
		t.Fatalf("raw channel should carry an error object: %v", err)
	}
	if raw["error"] == "" {
		t.Error("expected error field in raw channel")
	}
}

func TestAsk_EmptyContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":""}}]}`))
	}))
	defer srv.Close()

	result := New(chat.NewClient()).Ask(context.Background(), testParams(srv.URL))

	if !strings.Contains(result.AnswerText, "Empty content from server.") {
		t.Errorf("expected empty-content diagnostic, got %q", result.AnswerText)
	}
}

func TestParamsFromConfig(t *testing.T) {
	cfg := &config.Config{
		APIBase:       "http://h:1",
		EndpointPath:  "/v1/chat/completions",
		Model:         "m",
		Temperature:   0.5,
		TopP:          0.9,
		MaxTokens:     128,
		TimeoutSec:    30,
		Question:      "q",
		SystemPrompt:  "s",
		UseVision:     config.VisionAuto,
		ContentSource: config.SourceAuto,
		MaxSide:       512,
		ImageFormat:   config.FormatPNG,
		JPEGQuality:   80,
	}
	p := ParamsFromConfig(cfg)
	if p.APIBase != "http://h:1" || p.Model != "m" || p.MaxTokens != 128 {
		t.Errorf("unexpected params: %+v", p)
	}
	if p.ContentSource != config.SourceAuto || p.ImageFormat != config.FormatPNG {
		t.Errorf("unexpected params: %+v", p)
	}
}

func TestNodeManifest(t *testing.T) {
	m := NodeManifest()
	if m.Name != "OpenAIAsk" {
		t.Errorf("unexpected name: %s", m.Name)
	}
	if len(m.Outputs) != 4 || m.Outputs[0] != "positive" || m.Outputs[3] != "raw_json" {
		t.Errorf("unexpected outputs: %v", m.Outputs)
	}
	byName := map[string]InputSpec{}
	for _, in := range m.Inputs {
		byName[in.Name] = in
	}
	temp, ok := byName["temperature"]
	if !ok || *temp.Min != 0 || *temp.Max != 2 {
		t.Errorf("unexpected temperature spec: %+v", temp)
	}
	if len(byName["use_vision"].Choices) != 3 {
		t.Errorf("unexpected use_vision choices: %v", byName["use_vision"].Choices)
	}
	if _, err := json.Marshal(m); err != nil {
		t.Errorf("manifest must be JSON-serializable: %v", err)
	}
}
