// Package pdf extracts positioned text and images from PDF documents,
// translates them and renders the translation back onto the original pages.
package pdf

import (
	"errors"
	"image"
	"math"
)

// Rect is an axis-aligned rectangle in page space: points, origin at the
// top-left corner of the page, y growing downward.
type Rect struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// NewRect returns the rectangle spanned by two corners, normalised so that
// X0 <= X1 and Y0 <= Y1.
func NewRect(x0, y0, x1, y1 float64) Rect {
	return Rect{
		X0: math.Min(x0, x1),
		Y0: math.Min(y0, y1),
		X1: math.Max(x0, x1),
		Y1: math.Max(y0, y1),
	}
}

func (r Rect) Width() float64  { return r.X1 - r.X0 }
func (r Rect) Height() float64 { return r.Y1 - r.Y0 }

// IsEmpty reports whether the rectangle has no area.
func (r Rect) IsEmpty() bool { return r.X1 <= r.X0 || r.Y1 <= r.Y0 }

// Union returns the smallest rectangle containing r and o.
func (r Rect) Union(o Rect) Rect {
	return Rect{
		X0: math.Min(r.X0, o.X0),
		Y0: math.Min(r.Y0, o.Y0),
		X1: math.Max(r.X1, o.X1),
		Y1: math.Max(r.Y1, o.Y1),
	}
}

// Clip returns r clamped to [0,w]x[0,h].
func (r Rect) Clip(w, h float64) Rect {
	clamp := func(v, hi float64) float64 { return math.Max(0, math.Min(v, hi)) }
	return Rect{X0: clamp(r.X0, w), Y0: clamp(r.Y0, h), X1: clamp(r.X1, w), Y1: clamp(r.Y1, h)}
}

// Color is an RGB colour with components in [0,1].
type Color struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
}

// Black is the default text colour.
var Black = Color{}

// Gray returns a neutral colour of the given level.
func Gray(level float64) Color { return Color{R: level, G: level, B: level} }

// RGB255 converts the colour to 8-bit components.
func (c Color) RGB255() (int, int, int) {
	conv := func(v float64) int {
		v = math.Max(0, math.Min(1, v))
		return int(math.Round(v * 255))
	}
	return conv(c.R), conv(c.G), conv(c.B)
}

// TextBlock is one extracted line of text. It is not modified after extraction.
type TextBlock struct {
	Text      string  `json:"text"`
	BBox      Rect    `json:"bbox"`
	PageIndex int     `json:"page_index"`
	FontName  string  `json:"font_name"`
	FontSize  float64 `json:"font_size"`
	IsFormula bool    `json:"is_formula"`
	Color     Color   `json:"color"`
	// Rotation is the clockwise angle of the text on the displayed page:
	// 0, 90, 180 or 270.
	Rotation  int     `json:"rotation,omitempty"`
}

// ImageBlock is an embedded raster image. OCRText and TranslatedText are
// filled in by the OCR and translation stages.
type ImageBlock struct {
	Image          image.Image `json:"-"`
	BBox           Rect        `json:"bbox"`
	PageIndex      int         `json:"page_index"`
	Name           string      `json:"name"`
	Width          int         `json:"width"`
	Height         int         `json:"height"`
	OCRText        string      `json:"ocr_text,omitempty"`
	TranslatedText string      `json:"translated_text,omitempty"`
}

// TranslatedBlock pairs a text block with its translation. Formula blocks and
// untranslated blocks carry their original text.
type TranslatedBlock struct {
	Block          TextBlock `json:"block"`
	TranslatedText string    `json:"translated_text"`
}

// Changed reports whether the translation differs from the original text.
func (b TranslatedBlock) Changed() bool {
	return b.TranslatedText != b.Block.Text
}

// PDFInfo is the preflight summary of a document.
type PDFInfo struct {
	PageCount      int               `json:"page_count"`
	Metadata       map[string]string `json:"metadata"`
	TextBlockCount int               `json:"text_block_count"`
	ImageCount     int               `json:"image_count"`
}

// PageSize is the width and height of a page in points.
type PageSize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ProgressFunc receives the completed fraction in [0,1] and a stage message.
type ProgressFunc func(fraction float64, message string)

// PDFPhase is a stage of the translation pipeline.
type PDFPhase string

const (
	PDFPhaseIdle        PDFPhase = "idle"
	PDFPhaseLoading     PDFPhase = "loading"
	PDFPhaseExtracting  PDFPhase = "extracting"
	PDFPhaseTranslating PDFPhase = "translating"
	PDFPhaseOCR         PDFPhase = "ocr"
	PDFPhaseGenerating  PDFPhase = "generating"
	PDFPhaseComplete    PDFPhase = "complete"
	PDFPhaseError       PDFPhase = "error"
)

// IsValidPhase checks if the given phase is a valid PDFPhase
func IsValidPhase(phase PDFPhase) bool {
	switch phase {
	case PDFPhaseIdle, PDFPhaseLoading, PDFPhaseExtracting, PDFPhaseTranslating,
		PDFPhaseOCR, PDFPhaseGenerating, PDFPhaseComplete, PDFPhaseError:
		return true
	default:
		return false
	}
}

// PDFStatus is a snapshot of a running or finished translation.
type PDFStatus struct {
	Phase            PDFPhase `json:"phase"`
	Progress         float64  `json:"progress"`
	Message          string   `json:"message"`
	TotalBlocks      int      `json:"total_blocks"`
	CompletedBlocks  int      `json:"completed_blocks"`
	TranslatedBlocks int      `json:"translated_blocks"`
	FormulaBlocks    int      `json:"formula_blocks"`
	ImageCount       int      `json:"image_count"`
	Error            string   `json:"error,omitempty"`
}

// PDFErrorCode classifies pipeline errors.
type PDFErrorCode string

const (
	ErrPDFInvalid      PDFErrorCode = "PDF_INVALID"
	ErrPDFEncrypted    PDFErrorCode = "PDF_ENCRYPTED"
	ErrExtractFailed   PDFErrorCode = "EXTRACT_FAILED"
	ErrOCRFailed       PDFErrorCode = "OCR_FAILED"
	ErrTranslateFailed PDFErrorCode = "TRANSLATE_FAILED"
	ErrGenerateFailed  PDFErrorCode = "GENERATE_FAILED"
	ErrCacheFailed     PDFErrorCode = "CACHE_FAILED"
	ErrAPIFailed       PDFErrorCode = "API_FAILED"
	ErrCancelled       PDFErrorCode = "CANCELLED"
)

// PDFError is the error type returned by the pipeline.
type PDFError struct {
	Code    PDFErrorCode `json:"code"`
	Message string       `json:"message"`
	Details string       `json:"details,omitempty"`
	Page    int          `json:"page,omitempty"`
	Cause   error        `json:"-"`
}

// Error implements the error interface for PDFError
func (e *PDFError) Error() string {
	msg := e.Message
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause of the error
func (e *PDFError) Unwrap() error {
	return e.Cause
}

// NewPDFError creates a new PDFError with the given code, message, and optional cause
func NewPDFError(code PDFErrorCode, message string, cause error) *PDFError {
	return &PDFError{Code: code, Message: message, Cause: cause}
}

// NewPDFErrorWithPage creates a new PDFError carrying a 1-based page number
func NewPDFErrorWithPage(code PDFErrorCode, message string, page int, cause error) *PDFError {
	return &PDFError{Code: code, Message: message, Page: page, Cause: cause}
}

// IsPDFError reports whether err is a PDFError with the given code.
func IsPDFError(err error, code PDFErrorCode) bool {
	var pdfErr *PDFError
	return errors.As(err, &pdfErr) && pdfErr.Code == code
}
