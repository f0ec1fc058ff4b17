// Package ocr recognizes text in raster images.
//
// The tesseract backend needs cgo and the tesseract/leptonica libraries and is
// only compiled with -tags tesseract. Without it New returns ErrNotAvailable and
// callers skip OCR entirely.
package ocr

import (
	"context"
	"errors"
)

// DefaultLanguages is the recognition language set used when none is configured.
var DefaultLanguages = []string{"kor", "eng"}

// ErrNotAvailable is returned by New when no OCR backend is compiled in.
var ErrNotAvailable = errors.New("ocr: not available (build with -tags tesseract)")

// Engine recognizes text in a PNG-encoded image.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, png []byte, languages []string) (string, error)
	Close() error
}

// Available reports whether an OCR backend is compiled in.
func Available() bool {
	return available
}
