//go:build tesseract && cgo

package ocr

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"
)

const available = true

// TesseractEngine runs recognition through gosseract. A client is created per
// call; gosseract clients are not safe for concurrent use.
type TesseractEngine struct {
	mu            sync.Mutex
	clientFactory func() *gosseract.Client
}

// New returns the tesseract engine.
func New() (Engine, error) {
	return &TesseractEngine{clientFactory: gosseract.NewClient}, nil
}

func (e *TesseractEngine) Name() string { return "tesseract" }

// Recognize runs OCR on png. The call is abandoned when ctx is done; the
// underlying client finishes in the background and is closed there.
func (e *TesseractEngine) Recognize(ctx context.Context, png []byte, languages []string) (string, error) {
	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)

	go func() {
		e.mu.Lock()
		c := e.clientFactory()
		e.mu.Unlock()
		defer c.Close()

		if err := c.SetImageFromBytes(png); err != nil {
			done <- result{err: fmt.Errorf("set image: %w", err)}
			return
		}
		if len(languages) > 0 {
			if err := c.SetLanguage(languages...); err != nil {
				done <- result{err: fmt.Errorf("set languages: %w", err)}
				return
			}
		}
		text, err := c.Text()
		if err != nil {
			done <- result{err: fmt.Errorf("recognize text: %w", err)}
			return
		}
		done <- result{text: strings.TrimSpace(text)}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		return r.text, r.err
	}
}

func (e *TesseractEngine) Close() error { return nil }
