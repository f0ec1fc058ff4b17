package pdf

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/euel88/law-chatbot/internal/pdf/pdftest"
)

// Shorthands over pdftest.

func buildPDF(t testing.TB, pages ...pdftest.Page) []byte {
	t.Helper()
	return pdftest.Build(pages...)
}

func letterPage(content string, images ...pdftest.Image) pdftest.Page {
	return pdftest.Letter(content, images...)
}

func jpegImage(t testing.TB, name string, w, h int) pdftest.Image {
	t.Helper()
	img, err := pdftest.JPEG(name, w, h)
	if err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return img
}

var (
	corruptImage = pdftest.CorruptJPEG
	drawImage    = pdftest.DrawImage
	showText     = pdftest.TextLine
)

// upperTranslator upper-cases text and counts calls.
type upperTranslator struct {
	calls atomic.Int64
}

func (u *upperTranslator) TranslateText(ctx context.Context, text string) string {
	u.calls.Add(1)
	return strings.ToUpper(text)
}

func openFixture(t testing.TB, data []byte) *Document {
	t.Helper()
	doc, err := OpenDocument(data)
	if err != nil {
		t.Fatalf("OpenDocument failed: %v", err)
	}
	t.Cleanup(func() { doc.Close() })
	return doc
}
