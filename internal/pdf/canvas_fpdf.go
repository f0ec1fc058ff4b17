package pdf

import (
	"bytes"
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"
	"github.com/jung-kurt/gofpdf/contrib/gofpdi"

	"github.com/euel88/law-chatbot/internal/logger"
)

// fpdfCanvas draws with gofpdf. Source pages are copied in as gofpdi
// templates; text the primary font lacks falls back to core Helvetica.
type fpdfCanvas struct {
	pdf      *gofpdf.Fpdf
	importer *gofpdi.Importer
	source   io.ReadSeeker
	face     *fontFace
}

func newFpdfCanvas(source []byte, first PageSize, face *fontFace) *fpdfCanvas {
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: first.Width, Ht: first.Height},
	})
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)
	pdf.SetCellMargin(0)

	c := &fpdfCanvas{pdf: pdf, importer: gofpdi.NewImporter(), source: bytes.NewReader(source)}
	if face == nil {
		return c
	}
	pdf.AddUTF8FontFromBytes(primaryFamily, "", face.data)
	if err := c.takeError(); err != nil {
		logger.Warn("font rejected by renderer", logger.String("source", face.source), logger.Err(err))
		return c
	}
	logger.Debug("primary font registered", logger.String("source", face.source))
	c.face = face
	return c
}

// takeError returns and clears the document's sticky error.
func (c *fpdfCanvas) takeError() error {
	if err := c.pdf.Error(); err != nil {
		c.pdf.ClearError()
		return err
	}
	return nil
}

func (c *fpdfCanvas) addPage(size PageSize) {
	c.pdf.AddPageFormat("P", gofpdf.SizeType{Wd: size.Width, Ht: size.Height})
}

// importPage copies a source page onto the current page. The importer
// panics on unreadable input.
func (c *fpdfCanvas) importPage(pageNr int, size PageSize) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("import page %d: %v", pageNr, r)
		}
	}()
	tpl := c.importer.ImportPageFromStream(c.pdf, &c.source, pageNr, "/MediaBox")
	c.importer.UseImportedTemplate(c.pdf, tpl, 0, 0, size.Width, size.Height)
	return c.takeError()
}

func (c *fpdfCanvas) fonts(text string) []fontChoice {
	var out []fontChoice
	if c.face.covers(text) {
		out = append(out, fontChoice{family: primaryFamily, text: text})
	}
	if family, enc, ok := fallbackText(text); ok {
		out = append(out, fontChoice{family: family, text: enc, fallback: true})
	}
	return out
}

// fallbackText encodes text for core Helvetica when it fits Windows-1252.
func fallbackText(text string) (string, string, bool) {
	if enc, ok := encodeFallback(text); ok {
		return fallbackFamily, enc, true
	}
	return "", "", false
}

func (c *fpdfCanvas) setFont(family string, size float64) error {
	c.pdf.SetFont(family, "", size)
	return c.takeError()
}

func (c *fpdfCanvas) fillRect(r Rect, col Color) error {
	c.pdf.SetFillColor(col.RGB255())
	c.pdf.Rect(r.X0, r.Y0, r.Width(), r.Height(), "F")
	return c.takeError()
}

func (c *fpdfCanvas) drawText(x, y float64, rotation int, text string, col Color) error {
	c.pdf.SetTextColor(col.RGB255())
	if rotation != 0 {
		c.pdf.TransformBegin()
		c.pdf.TransformRotate(float64(-rotation), x, y)
	}
	c.pdf.Text(x, y, text)
	if rotation != 0 {
		c.pdf.TransformEnd()
	}
	return c.takeError()
}

func (c *fpdfCanvas) drawCaption(box Rect, family, text string) error {
	pdf := c.pdf
	pdf.SetFillColor(captionFillColor.RGB255())
	pdf.SetDrawColor(captionStrokeColor.RGB255())
	pdf.Rect(box.X0, box.Y0, box.Width(), box.Height(), "FD")

	pdf.ClipRect(box.X0, box.Y0, box.Width(), box.Height(), false)
	pdf.SetFont(family, "", captionSize)
	pdf.SetTextColor(captionTextColor.RGB255())
	pdf.SetXY(box.X0+captionPadding, box.Y0+captionPadding)
	pdf.MultiCell(box.Width()-2*captionPadding, captionSize+1, text, "", "L", false)
	pdf.ClipEnd()
	return c.takeError()
}

func (c *fpdfCanvas) output() ([]byte, error) {
	if err := c.pdf.Error(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := c.pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
