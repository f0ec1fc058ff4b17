package pdf

import (
	"context"
	"image"
	"strings"
	"time"

	"github.com/euel88/law-chatbot/internal/logger"
	"github.com/euel88/law-chatbot/internal/ocr"
)

// DefaultOCRTimeout bounds recognition of a single image.
const DefaultOCRTimeout = 30 * time.Second

// OCRProcessor runs OCR over extracted images. With a nil engine every call
// is a no-op.
type OCRProcessor struct {
	engine    ocr.Engine
	languages []string
	timeout   time.Duration
}

// NewOCRProcessor creates a processor. Empty languages default to Korean and
// English, a zero timeout to DefaultOCRTimeout.
func NewOCRProcessor(engine ocr.Engine, languages []string, timeout time.Duration) *OCRProcessor {
	if len(languages) == 0 {
		languages = ocr.DefaultLanguages
	}
	if timeout <= 0 {
		timeout = DefaultOCRTimeout
	}
	return &OCRProcessor{engine: engine, languages: languages, timeout: timeout}
}

// Available reports whether an engine is configured.
func (p *OCRProcessor) Available() bool {
	return p != nil && p.engine != nil
}

// ProcessImage returns the trimmed text recognized in img, or "" when OCR is
// unavailable or fails.
func (p *OCRProcessor) ProcessImage(ctx context.Context, img image.Image) string {
	if !p.Available() || img == nil {
		return ""
	}

	data, err := ocr.Preprocess(img)
	if err != nil {
		logger.Warn("image preprocessing failed", logger.Err(err))
		return ""
	}

	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	text, err := p.engine.Recognize(callCtx, data, p.languages)
	if err != nil {
		logger.Warn("ocr failed",
			logger.String("engine", p.engine.Name()),
			logger.Err(NewPDFError(ErrOCRFailed, "recognition failed", err)))
		return ""
	}
	return strings.TrimSpace(text)
}

// ProcessImages fills OCRText of every image in place.
func (p *OCRProcessor) ProcessImages(ctx context.Context, images []*ImageBlock) []*ImageBlock {
	if !p.Available() {
		logger.Debug("ocr backend unavailable, skipping", logger.Int("images", len(images)))
		return images
	}

	recognized := 0
	for _, img := range images {
		if ctx.Err() != nil {
			break
		}
		img.OCRText = p.ProcessImage(ctx, img.Image)
		if img.OCRText != "" {
			recognized++
		}
	}
	logger.Info("ocr complete",
		logger.Int("images", len(images)),
		logger.Int("withText", recognized))
	return images
}
