package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"golang.org/x/image/draw"
)

// MinOCRHeight is the shortest side below which images are upscaled before
// recognition.
const MinOCRHeight = 300

// Preprocess converts img to opaque RGBA on a white background, upscales it
// when its shorter side is below MinOCRHeight, and encodes it as PNG.
func Preprocess(img image.Image) ([]byte, error) {
	if img == nil {
		return nil, fmt.Errorf("nil image")
	}
	b := img.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("empty image")
	}

	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Over)

	var out image.Image = rgba
	if scale := upscaleFactor(b.Dx(), b.Dy()); scale > 1 {
		w := int(float64(b.Dx()) * scale)
		h := int(float64(b.Dy()) * scale)
		scaled := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(scaled, scaled.Bounds(), rgba, rgba.Bounds(), draw.Src, nil)
		out = scaled
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// upscaleFactor returns the factor that brings the shorter side up to
// MinOCRHeight, capped at 4x.
func upscaleFactor(w, h int) float64 {
	short := w
	if h < short {
		short = h
	}
	if short <= 0 || short >= MinOCRHeight {
		return 1
	}
	f := float64(MinOCRHeight) / float64(short)
	if f > 4 {
		f = 4
	}
	return f
}
