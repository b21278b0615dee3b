// Package imaging prepares input images for vision chat requests: decode,
// proportional downscale, re-encode, and data URL formatting.
package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"image/png"
	"math"

	"github.com/anthonynsimon/bild/transform"

	apperrors "openai-ask/pkg/errors"
)

// Supported output formats.
const (
	FormatJPEG = "JPEG"
	FormatPNG  = "PNG"
)

// Options controls image preparation.
type Options struct {
	// MaxSide is the target length of the longest side. Zero or negative
	// disables scaling. Images are never upscaled.
	MaxSide int
	// Format is FormatJPEG or FormatPNG.
	Format string
	// JPEGQuality applies only when Format is FormatJPEG.
	JPEGQuality int
}

// DataURL decodes raw PNG/JPEG bytes, downscales them so the longest side is
// at most opts.MaxSide, re-encodes per opts, and returns an OpenAI Chat
// Vision data URL (data:image/jpeg;base64,...).
func DataURL(data []byte, opts Options) (string, error) {
	encoded, mime, err := Prepare(data, opts)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(encoded)), nil
}

// Prepare returns the re-encoded image bytes and their MIME type.
func Prepare(data []byte, opts Options) ([]byte, string, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", apperrors.NewImageDecodeFailed(err)
	}

	img = resizeMaxSide(img, opts.MaxSide)

	var buf bytes.Buffer
	switch opts.Format {
	case FormatPNG:
		if err := png.Encode(&buf, img); err != nil {
			return nil, "", apperrors.NewImageEncodeFailed(FormatPNG, err)
		}
		return buf.Bytes(), "image/png", nil
	default:
		// JPEG has no alpha channel; flatten onto an opaque canvas first
		if err := jpeg.Encode(&buf, flatten(img), &jpeg.Options{Quality: opts.JPEGQuality}); err != nil {
			return nil, "", apperrors.NewImageEncodeFailed(FormatJPEG, err)
		}
		return buf.Bytes(), "image/jpeg", nil
	}
}

// resizeMaxSide scales img proportionally so its longest side equals maxSide.
// Smaller images pass through untouched.
func resizeMaxSide(img image.Image, maxSide int) image.Image {
	if maxSide <= 0 {
		return img
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	longest := w
	if h > longest {
		longest = h
	}
	if longest <= maxSide {
		return img
	}

	scale := float64(maxSide) / float64(longest)
	newW := int(math.Round(float64(w) * scale))
	newH := int(math.Round(float64(h) * scale))
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	return transform.Resize(img, newW, newH, transform.Lanczos)
}

// flatten draws img onto an opaque RGBA canvas, discarding alpha.
func flatten(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(out, out.Bounds(), img, bounds.Min, draw.Src)
	return out
}
