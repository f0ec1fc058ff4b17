//go:build !tesseract || !cgo

package ocr

const available = false

// New returns ErrNotAvailable; rebuild with -tags tesseract for OCR support.
func New() (Engine, error) {
	return nil, ErrNotAvailable
}
