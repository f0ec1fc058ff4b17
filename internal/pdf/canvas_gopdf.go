package pdf

import (
	"bytes"
	"fmt"
	"io"

	gopdf "github.com/VantageDataChat/GoPDF2"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/euel88/law-chatbot/internal/logger"
)

const goFallbackFamily = "goregular"

// goPDFCanvas draws with GoPDF2. GoPDF2 has no core fonts, so text the
// primary font lacks falls back to an embedded Go Regular.
type goPDFCanvas struct {
	pdf      *gopdf.GoPdf
	source   io.ReadSeeker
	face     *fontFace
	fallback *fontFace
}

func newGoPDFCanvas(source []byte, first PageSize, face *fontFace) *goPDFCanvas {
	pdf := &gopdf.GoPdf{}
	pdf.Start(gopdf.Config{
		Unit:     gopdf.UnitPT,
		PageSize: gopdf.Rect{W: first.Width, H: first.Height},
	})
	pdf.SetMargins(0, 0, 0, 0)

	c := &goPDFCanvas{pdf: pdf, source: bytes.NewReader(source)}
	if face != nil {
		if err := pdf.AddTTFFontData(primaryFamily, face.data); err != nil {
			logger.Warn("font rejected by renderer", logger.String("source", face.source), logger.Err(err))
		} else {
			logger.Debug("primary font registered", logger.String("source", face.source))
			c.face = face
		}
	}
	if c.face == nil || c.face.source != goFallbackFamily {
		fb, err := parseFontFace(goFallbackFamily, goregular.TTF)
		if err == nil {
			err = pdf.AddTTFFontData(goFallbackFamily, fb.data)
		}
		if err != nil {
			logger.Warn("fallback font unavailable", logger.Err(err))
		} else {
			c.fallback = fb
		}
	}
	return c
}

func (c *goPDFCanvas) addPage(size PageSize) {
	c.pdf.AddPageWithOption(gopdf.PageOption{PageSize: &gopdf.Rect{W: size.Width, H: size.Height}})
}

// importPage copies a source page onto the current page. gofpdi panics on
// unreadable input.
func (c *goPDFCanvas) importPage(pageNr int, size PageSize) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("import page %d: %v", pageNr, r)
		}
	}()
	tpl := c.pdf.ImportPageStream(&c.source, pageNr, "/MediaBox")
	c.pdf.UseImportedTemplate(tpl, 0, 0, size.Width, size.Height)
	return nil
}

func (c *goPDFCanvas) fonts(text string) []fontChoice {
	var out []fontChoice
	if c.face.covers(text) {
		out = append(out, fontChoice{family: primaryFamily, text: text})
	}
	if c.fallback.covers(text) {
		out = append(out, fontChoice{family: goFallbackFamily, text: text, fallback: true})
	}
	return out
}

func (c *goPDFCanvas) setFont(family string, size float64) error {
	return c.pdf.SetFont(family, "", size)
}

func rgb8(col Color) (uint8, uint8, uint8) {
	r, g, b := col.RGB255()
	return uint8(r), uint8(g), uint8(b)
}

func (c *goPDFCanvas) fillRect(r Rect, col Color) error {
	c.pdf.SetFillColor(rgb8(col))
	return c.pdf.RectFromUpperLeftWithOpts(gopdf.DrawableRectOptions{
		X:          r.X0,
		Y:          r.Y0,
		Rect:       gopdf.Rect{W: r.Width(), H: r.Height()},
		PaintStyle: gopdf.FillPaintStyle,
	})
}

func (c *goPDFCanvas) drawText(x, y float64, rotation int, text string, col Color) error {
	c.pdf.SetTextColor(rgb8(col))
	if rotation != 0 {
		c.pdf.Rotate(float64(-rotation), x, y)
		defer c.pdf.RotateReset()
	}
	c.pdf.SetXY(x, y)
	return c.pdf.Text(text)
}

func (c *goPDFCanvas) drawCaption(box Rect, family, text string) error {
	pdf := c.pdf
	pdf.SetFillColor(rgb8(captionFillColor))
	pdf.SetStrokeColor(rgb8(captionStrokeColor))
	if err := pdf.RectFromUpperLeftWithOpts(gopdf.DrawableRectOptions{
		X:          box.X0,
		Y:          box.Y0,
		Rect:       gopdf.Rect{W: box.Width(), H: box.Height()},
		PaintStyle: gopdf.DrawFillPaintStyle,
	}); err != nil {
		return err
	}

	pdf.SaveGraphicsState()
	defer pdf.RestoreGraphicsState()
	pdf.ClipPolygon([]gopdf.Point{
		{X: box.X0, Y: box.Y0},
		{X: box.X1, Y: box.Y0},
		{X: box.X1, Y: box.Y1},
		{X: box.X0, Y: box.Y1},
	})
	if err := pdf.SetFont(family, "", captionSize); err != nil {
		return err
	}
	pdf.SetTextColor(rgb8(captionTextColor))
	pdf.SetXY(box.X0+captionPadding, box.Y0+captionPadding)
	return pdf.MultiCell(&gopdf.Rect{W: box.Width() - 2*captionPadding, H: box.Height() - 2*captionPadding}, text)
}

func (c *goPDFCanvas) output() ([]byte, error) {
	return c.pdf.GetBytesPdfReturnErr()
}
