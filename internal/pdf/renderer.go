package pdf

import (
	"fmt"
	"math"
	"strings"

	"github.com/euel88/law-chatbot/internal/logger"
)

// RenderMode selects which blocks are redrawn.
type RenderMode string

const (
	// RenderOverlay redraws only blocks whose translation differs from the original.
	RenderOverlay RenderMode = "overlay"
	// RenderReplace redraws every non-formula block.
	RenderReplace RenderMode = "replace"
)

// ParseRenderMode parses a mode name; empty means overlay.
func ParseRenderMode(s string) (RenderMode, error) {
	switch RenderMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", RenderOverlay:
		return RenderOverlay, nil
	case RenderReplace:
		return RenderReplace, nil
	default:
		return "", fmt.Errorf("unknown render mode %q (want overlay or replace)", s)
	}
}

const (
	minFontSize       = 6.0
	boxFillRatio      = 0.8
	captionOffset     = 2.0
	captionHeight     = 28.0
	captionPadding    = 2.0
	captionSize       = 8.0
	captionRunes      = 100
	captionLabel      = "[OCR 번역] "
	captionLabelLatin = "[OCR] "
)

var (
	eraseColor         = Gray(1)
	captionFillColor   = Gray(0.95)
	captionStrokeColor = Gray(0.9)
	captionTextColor   = Gray(0.2)
)

// RenderEngine selects the PDF writer.
type RenderEngine string

const (
	// EngineGofpdf writes with jung-kurt/gofpdf; core Helvetica is the fallback font.
	EngineGofpdf RenderEngine = "gofpdf"
	// EngineGoPDF2 writes with GoPDF2; Go Regular is the fallback font.
	EngineGoPDF2 RenderEngine = "gopdf2"
)

// ParseRenderEngine parses an engine name; empty means gofpdf.
func ParseRenderEngine(s string) (RenderEngine, error) {
	switch RenderEngine(strings.ToLower(strings.TrimSpace(s))) {
	case "", EngineGofpdf:
		return EngineGofpdf, nil
	case EngineGoPDF2:
		return EngineGoPDF2, nil
	default:
		return "", fmt.Errorf("unknown render engine %q (want gofpdf or gopdf2)", s)
	}
}

// RendererConfig holds configuration options for creating a Renderer
type RendererConfig struct {
	Mode   RenderMode
	Engine RenderEngine
	// FontPath is a TrueType font for translated text; empty searches the system.
	FontPath string
}

// Renderer writes translated blocks over the pages of the source document.
type Renderer struct {
	mode     RenderMode
	engine   RenderEngine
	fontPath string
}

// RenderStats counts what a render pass drew. Erased counts blocks whose
// area was cleared but whose text could not be written afterwards.
type RenderStats struct {
	Pages        int `json:"pages"`
	DrawnBlocks  int `json:"drawn_blocks"`
	FallbackUsed int `json:"fallback_used"`
	Skipped      int `json:"skipped"`
	Erased       int `json:"erased"`
	Captions     int `json:"captions"`
	BlankPages   int `json:"blank_pages"`
}

// NewRenderer creates a Renderer; an empty mode is overlay and an empty
// engine is gofpdf.
func NewRenderer(cfg RendererConfig) *Renderer {
	mode := cfg.Mode
	if mode == "" {
		mode = RenderOverlay
	}
	engine := cfg.Engine
	if engine == "" {
		engine = EngineGofpdf
	}
	return &Renderer{mode: mode, engine: engine, fontPath: cfg.FontPath}
}

// Mode returns the render mode.
func (r *Renderer) Mode() RenderMode { return r.mode }

// Engine returns the PDF writer in use.
func (r *Renderer) Engine() RenderEngine { return r.engine }

// fontChoice is a font family able to show a string, with the string encoded
// for that font.
type fontChoice struct {
	family   string
	text     string
	fallback bool
}

// canvas is the output document a render pass draws on. Coordinates are in
// points from the top-left corner of the current page.
type canvas interface {
	addPage(size PageSize)
	// importPage places page pageNr of the source document on the current page.
	importPage(pageNr int, size PageSize) error
	// fonts lists the families that can show text, preferred first.
	fonts(text string) []fontChoice
	setFont(family string, size float64) error
	fillRect(r Rect, c Color) error
	// drawText writes text with its baseline starting at (x, y), turned
	// clockwise by rotation degrees around that point.
	drawText(x, y float64, rotation int, text string, c Color) error
	// drawCaption draws a shaded box and wraps text inside it.
	drawCaption(box Rect, family, text string) error
	output() ([]byte, error)
}

func (r *Renderer) newCanvas(doc *Document) canvas {
	face, err := loadFontFace(r.fontPath)
	if err != nil {
		logger.Warn("configured font unusable, using built-in font", logger.String("path", r.fontPath), logger.Err(err))
		face, _ = loadFontFace("")
	}
	first := doc.PageSize(0)
	if r.engine == EngineGoPDF2 {
		return newGoPDFCanvas(doc.sourceBytes(), first, face)
	}
	return newFpdfCanvas(doc.sourceBytes(), first, face)
}

// pageRender is the per-call drawing state.
type pageRender struct {
	c     canvas
	stats RenderStats
}

// Render produces a new PDF with the same page count and page sizes as doc.
// Each source page is imported as a template; translated blocks are erased
// and redrawn on top, and translated image text is added as a caption under
// the image. A block that cannot be drawn is skipped and the original stays
// visible.
func (r *Renderer) Render(doc *Document, blocks []TranslatedBlock, images []*ImageBlock) ([]byte, RenderStats, error) {
	if doc == nil || doc.isClosed() {
		return nil, RenderStats{}, NewPDFError(ErrGenerateFailed, "document is closed", nil)
	}
	if doc.PageCount() == 0 {
		return nil, RenderStats{}, NewPDFError(ErrGenerateFailed, "document has no pages", nil)
	}

	pr := &pageRender{c: r.newCanvas(doc)}

	byPage := make([][]TranslatedBlock, doc.PageCount())
	for _, b := range blocks {
		if b.Block.PageIndex >= 0 && b.Block.PageIndex < len(byPage) {
			byPage[b.Block.PageIndex] = append(byPage[b.Block.PageIndex], b)
		}
	}
	imagesByPage := make([][]*ImageBlock, doc.PageCount())
	for _, img := range images {
		if img != nil && img.PageIndex >= 0 && img.PageIndex < len(imagesByPage) {
			imagesByPage[img.PageIndex] = append(imagesByPage[img.PageIndex], img)
		}
	}

	for i := 0; i < doc.PageCount(); i++ {
		size := doc.PageSize(i)
		pr.c.addPage(size)

		if err := pr.c.importPage(i+1, size); err != nil {
			pr.stats.BlankPages++
			logger.Warn("failed to copy original page, continuing on a blank page",
				logger.Int("page", i+1), logger.Err(err))
		}

		for _, b := range byPage[i] {
			if b.Block.IsFormula {
				continue
			}
			if r.mode == RenderOverlay && !b.Changed() {
				continue
			}
			pr.drawBlock(b, i, size)
		}
		for _, img := range imagesByPage[i] {
			if img.TranslatedText != "" {
				pr.drawCaption(img, size)
			}
		}
		pr.stats.Pages++
	}

	out, err := pr.c.output()
	if err != nil {
		return nil, pr.stats, NewPDFError(ErrGenerateFailed, "failed to write document", err)
	}

	logger.Info("render complete",
		logger.String("mode", string(r.mode)),
		logger.String("engine", string(r.engine)),
		logger.Int("pages", pr.stats.Pages),
		logger.Int("drawn", pr.stats.DrawnBlocks),
		logger.Int("fallback", pr.stats.FallbackUsed),
		logger.Int("skipped", pr.stats.Skipped),
		logger.Int("erased", pr.stats.Erased),
		logger.Int("captions", pr.stats.Captions),
		logger.Int("bytes", len(out)))
	return out, pr.stats, nil
}

func blockFontSize(b TextBlock) float64 {
	return math.Max(math.Min(b.FontSize, boxFillRatio*b.BBox.Height()), minFontSize)
}

// readingBox returns the block's box in the frame of its text direction.
func readingBox(b TextBlock, size PageSize) Rect {
	if b.Rotation == 0 {
		return b.BBox
	}
	x0, y0 := toReading(b.Rotation, size, b.BBox.X0, b.BBox.Y0)
	x1, y1 := toReading(b.Rotation, size, b.BBox.X1, b.BBox.Y1)
	return NewRect(x0, y0, x1, y1)
}

// drawBlock erases a block and writes its translation. Nothing is painted
// until a font has been selected, so a block no font can show keeps its
// original text.
func (pr *pageRender) drawBlock(tb TranslatedBlock, page int, pageSize PageSize) {
	b := tb.Block
	box := readingBox(b, pageSize)
	sized := b
	sized.BBox = box
	size := blockFontSize(sized)

	choices := pr.c.fonts(tb.TranslatedText)
	for len(choices) > 0 && pr.c.setFont(choices[0].family, size) != nil {
		choices = choices[1:]
	}
	if len(choices) == 0 {
		pr.stats.Skipped++
		logger.Debug("no font can show block, keeping original",
			logger.Int("page", page+1),
			logger.String("text", truncateRunes(tb.TranslatedText, 40)))
		return
	}

	if err := pr.c.fillRect(b.BBox, eraseColor); err != nil {
		pr.stats.Skipped++
		logger.Warn("failed to erase block", logger.Int("page", page+1), logger.Err(err))
		return
	}

	x, y := fromReading(b.Rotation, pageSize, box.X0, box.Y0+size)
	for i, ch := range choices {
		if i > 0 && pr.c.setFont(ch.family, size) != nil {
			continue
		}
		if err := pr.c.drawText(x, y, b.Rotation, ch.text, b.Color); err != nil {
			logger.Debug("text insertion failed", logger.String("font", ch.family), logger.Err(err))
			continue
		}
		pr.stats.DrawnBlocks++
		if ch.fallback {
			pr.stats.FallbackUsed++
		}
		return
	}
	pr.stats.Erased++
	logger.Warn("failed to draw block after erasing it", logger.Int("page", page+1))
}

// captionText returns the caption shown under a translated image.
func captionText(translated string, label string) string {
	return label + truncateRunes(translated, captionRunes) + "..."
}

func (pr *pageRender) drawCaption(img *ImageBlock, size PageSize) {
	var choices []fontChoice
	for _, label := range []string{captionLabel, captionLabelLatin} {
		if choices = pr.c.fonts(captionText(img.TranslatedText, label)); len(choices) > 0 {
			break
		}
	}
	if len(choices) == 0 {
		pr.stats.Skipped++
		return
	}

	box := Rect{X0: img.BBox.X0, Y0: img.BBox.Y1 + captionOffset, X1: img.BBox.X1, Y1: img.BBox.Y1 + captionOffset + captionHeight}
	if box.Width() <= 0 || box.Y0 >= size.Height {
		pr.stats.Skipped++
		return
	}

	if err := pr.c.drawCaption(box, choices[0].family, choices[0].text); err != nil {
		pr.stats.Skipped++
		logger.Warn("failed to draw image caption", logger.Int("page", img.PageIndex+1), logger.Err(err))
		return
	}
	pr.stats.Captions++
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
