package pdf

import (
	"context"
	"fmt"
	"sync"

	"github.com/euel88/law-chatbot/internal/logger"
)

// Progress stage boundaries.
const (
	progressExtracting  = 0.1
	progressTranslating = 0.3
	progressOCR         = 0.5
	progressImages      = 0.6
	progressRendering   = 0.8
	progressDone        = 1.0

	// stageSpan keeps a stage's sub-progress below the next boundary.
	stageSpan = 0.19
)

// Options selects the pipeline stages to run.
type Options struct {
	TranslateText   bool `json:"translate_text"`
	TranslateImages bool `json:"translate_images"`
}

// DefaultOptions translates text only.
func DefaultOptions() Options {
	return Options{TranslateText: true}
}

// PDFTranslatorConfig holds configuration options for creating a PDFTranslator
type PDFTranslatorConfig struct {
	// Translator may be nil; text then passes through unchanged.
	Translator   TextTranslator
	OCR          *OCRProcessor
	Concurrency  int
	Mode         RenderMode
	Engine       RenderEngine
	MinImageSize int
	FontPath     string
}

// PDFTranslator runs extraction, translation and rendering for one document
// at a time and exposes the progress of the current run.
type PDFTranslator struct {
	blocks       *BlockTranslator
	ocr          *OCRProcessor
	renderer     *Renderer
	minImageSize int

	mu     sync.RWMutex
	status *PDFStatus
}

// NewPDFTranslator creates a new PDFTranslator with the given configuration
func NewPDFTranslator(cfg PDFTranslatorConfig) *PDFTranslator {
	minSize := cfg.MinImageSize
	if minSize <= 0 {
		minSize = DefaultMinImageSize
	}
	ocrProc := cfg.OCR
	if ocrProc == nil {
		ocrProc = NewOCRProcessor(nil, nil, 0)
	}
	return &PDFTranslator{
		blocks:       NewBlockTranslator(cfg.Translator, cfg.Concurrency),
		ocr:          ocrProc,
		renderer:     NewRenderer(RendererConfig{Mode: cfg.Mode, Engine: cfg.Engine, FontPath: cfg.FontPath}),
		minImageSize: minSize,
		status:       newIdleStatus(),
	}
}

func newIdleStatus() *PDFStatus {
	return &PDFStatus{Phase: PDFPhaseIdle}
}

// TranslatePDF translates data and returns the rendered PDF. Only an
// unreadable input or a cancelled context fails the call; translation, OCR
// and drawing problems degrade to untranslated content. progress receives a
// non-decreasing fraction that reaches 1 only on success.
func (p *PDFTranslator) TranslatePDF(ctx context.Context, data []byte, opts Options, progress ProgressFunc) ([]byte, error) {
	rep := &progressReporter{cb: progress}
	p.resetStatus()
	p.updateStatus(PDFPhaseLoading, 0, "opening document")

	logger.Info("starting PDF translation",
		logger.Int("bytes", len(data)),
		logger.Bool("translateText", opts.TranslateText),
		logger.Bool("translateImages", opts.TranslateImages))

	doc, err := OpenDocument(data)
	if err != nil {
		return nil, p.fail(err)
	}
	defer doc.Close()

	if err := p.checkCancelled(ctx); err != nil {
		return nil, err
	}
	p.stage(rep, PDFPhaseExtracting, progressExtracting, "extracting text")
	blocks, err := ExtractTextBlocks(doc)
	if err != nil {
		return nil, p.fail(err)
	}
	p.mu.Lock()
	p.status.TotalBlocks = len(blocks)
	for _, b := range blocks {
		if b.IsFormula {
			p.status.FormulaBlocks++
		}
	}
	p.mu.Unlock()

	if err := p.checkCancelled(ctx); err != nil {
		return nil, err
	}
	var translated []TranslatedBlock
	if opts.TranslateText {
		p.stage(rep, PDFPhaseTranslating, progressTranslating, "translating text")
		translated = p.blocks.TranslateBlocks(ctx, blocks, func(f float64) {
			p.report(rep, progressTranslating+stageSpan*f, fmt.Sprintf("translating text (%.0f%%)", f*100))
			p.mu.Lock()
			p.status.CompletedBlocks = int(f * float64(len(blocks)))
			p.mu.Unlock()
		})
	} else {
		translated = PassthroughBlocks(blocks)
	}
	p.mu.Lock()
	p.status.CompletedBlocks = len(blocks)
	for _, b := range translated {
		if b.Changed() {
			p.status.TranslatedBlocks++
		}
	}
	p.mu.Unlock()

	if err := p.checkCancelled(ctx); err != nil {
		return nil, err
	}
	var images []*ImageBlock
	if opts.TranslateImages {
		p.stage(rep, PDFPhaseOCR, progressOCR, "recognizing text in images")
		images, err = ExtractImages(doc, p.minImageSize)
		if err != nil {
			return nil, p.fail(err)
		}
		p.ocr.ProcessImages(ctx, images)
		p.mu.Lock()
		p.status.ImageCount = len(images)
		p.mu.Unlock()

		if err := p.checkCancelled(ctx); err != nil {
			return nil, err
		}
		p.stage(rep, PDFPhaseTranslating, progressImages, "translating image text")
		p.blocks.TranslateImages(ctx, images, func(f float64) {
			p.report(rep, progressImages+stageSpan*f, "translating image text")
		})
	}

	if err := p.checkCancelled(ctx); err != nil {
		return nil, err
	}
	p.stage(rep, PDFPhaseGenerating, progressRendering, "rendering")
	out, stats, err := p.renderer.Render(doc, translated, images)
	if err != nil {
		return nil, p.fail(err)
	}

	p.stage(rep, PDFPhaseComplete, progressDone, "done")
	logger.Info("PDF translation completed",
		logger.Int("pages", stats.Pages),
		logger.Int("blocks", len(blocks)),
		logger.Int("drawn", stats.DrawnBlocks),
		logger.Int("captions", stats.Captions),
		logger.Int("bytes", len(out)))
	return out, nil
}

// GetStatus returns a snapshot of the current run.
func (p *PDFTranslator) GetStatus() *PDFStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s := *p.status
	return &s
}

// Reset returns the status to idle.
func (p *PDFTranslator) Reset() {
	p.resetStatus()
}

func (p *PDFTranslator) resetStatus() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = newIdleStatus()
}

func (p *PDFTranslator) stage(rep *progressReporter, phase PDFPhase, fraction float64, message string) {
	p.updateStatus(phase, fraction, message)
	rep.report(fraction, message)
}

func (p *PDFTranslator) report(rep *progressReporter, fraction float64, message string) {
	f := rep.report(fraction, message)
	p.mu.Lock()
	if f > p.status.Progress {
		p.status.Progress = f
	}
	p.status.Message = message
	p.mu.Unlock()
}

// updateStatus sets phase, progress and message. Progress never decreases
// within a run.
func (p *PDFTranslator) updateStatus(phase PDFPhase, progress float64, message string) {
	if !IsValidPhase(phase) {
		logger.Warn("invalid phase, defaulting to error", logger.String("phase", string(phase)))
		phase = PDFPhaseError
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status.Phase = phase
	if progress > p.status.Progress {
		p.status.Progress = progress
	}
	p.status.Message = message
	if phase != PDFPhaseError {
		p.status.Error = ""
	}
}

func (p *PDFTranslator) fail(err error) error {
	logger.Error("PDF translation failed", err)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status.Phase = PDFPhaseError
	p.status.Message = err.Error()
	p.status.Error = err.Error()
	return err
}

func (p *PDFTranslator) checkCancelled(ctx context.Context) error {
	if ctx.Err() == nil {
		return nil
	}
	return p.fail(NewPDFError(ErrCancelled, "translation cancelled", ctx.Err()))
}

// progressReporter forwards progress to a callback, clamped to [0,1] and
// never decreasing.
type progressReporter struct {
	mu   sync.Mutex
	last float64
	cb   ProgressFunc
}

func (r *progressReporter) report(fraction float64, message string) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if fraction > 1 {
		fraction = 1
	}
	if fraction < r.last {
		fraction = r.last
	}
	r.last = fraction
	if r.cb != nil {
		r.cb(fraction, message)
	}
	return fraction
}
