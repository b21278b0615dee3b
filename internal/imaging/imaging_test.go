package imaging

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	apperrors "openai-ask/pkg/errors"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode test image: %v", err)
	}
	return buf.Bytes()
}

func decodeDataURL(t *testing.T, url string) (image.Image, string) {
	t.Helper()
	parts := strings.SplitN(url, ",", 2)
	if len(parts) != 2 {
		t.Fatalf("malformed data URL: %q", url)
	}
	raw, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		t.Fatalf("decode base64 payload: %v", err)
	}
	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("decode payload image: %v", err)
	}
	return img, format
}

func TestDataURL_JPEGOutput(t *testing.T) {
	url, err := DataURL(pngBytes(t, 100, 50), Options{MaxSide: 1280, Format: FormatJPEG, JPEGQuality: 90})
	if err != nil {
		t.Fatalf("DataURL failed: %v", err)
	}
	if !strings.HasPrefix(url, "data:image/jpeg;base64,") {
		t.Errorf("expected image/jpeg data URL, got prefix %q", url[:30])
	}
	img, format := decodeDataURL(t, url)
	if format != "jpeg" {
		t.Errorf("expected jpeg payload, got %s", format)
	}
	if img.Bounds().Dx() != 100 || img.Bounds().Dy() != 50 {
		t.Errorf("small image should not be resized, got %v", img.Bounds())
	}
}

func TestDataURL_PNGOutput(t *testing.T) {
	url, err := DataURL(pngBytes(t, 32, 32), Options{MaxSide: 0, Format: FormatPNG})
	if err != nil {
		t.Fatalf("DataURL failed: %v", err)
	}
	if !strings.HasPrefix(url, "data:image/png;base64,") {
		t.Errorf("expected image/png data URL, got prefix %q", url[:30])
	}
}

func TestPrepare_DownscalesLongestSide(t *testing.T) {
	data, mime, err := Prepare(pngBytes(t, 400, 200), Options{MaxSide: 100, Format: FormatJPEG, JPEGQuality: 90})
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if mime != "image/jpeg" {
		t.Errorf("unexpected mime: %s", mime)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if img.Bounds().Dx() != 100 || img.Bounds().Dy() != 50 {
		t.Errorf("expected 100x50 after downscale, got %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestPrepare_ZeroMaxSideDisablesScaling(t *testing.T) {
	data, _, err := Prepare(pngBytes(t, 300, 100), Options{MaxSide: 0, Format: FormatPNG})
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if img.Bounds().Dx() != 300 || img.Bounds().Dy() != 100 {
		t.Errorf("expected original size, got %v", img.Bounds())
	}
}

func TestPrepare_InvalidImage(t *testing.T) {
	_, _, err := Prepare([]byte("not an image"), Options{Format: FormatJPEG, JPEGQuality: 90})
	if err == nil {
		t.Fatal("expected error for invalid image data")
	}
	if !apperrors.IsErrorType(err, apperrors.ErrorTypeImage) {
		t.Errorf("expected image error type, got %v", err)
	}
}
