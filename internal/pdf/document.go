package pdf

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	lpdf "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/euel88/law-chatbot/internal/logger"
)

// Document is an opened PDF. pdfcpu provides the validated structure, page
// geometry and image payloads; ledongthuc/pdf provides content streams and
// font decoding. Close releases both.
type Document struct {
	data []byte
	// source is what page readers parse: data itself, or pdfcpu's rewrite of
	// it when the cross-reference data needed repair.
	source []byte
	ctx    *model.Context
	reader *lpdf.Reader
	pages  []PageSize
	frames []pageFrame

	mu       sync.Mutex
	contents map[int]*pageContent
	closed   bool
}

// OpenDocument parses data as a PDF. Any failure is returned as a PDFError
// with code PDF_INVALID, or PDF_ENCRYPTED for password-protected files.
func OpenDocument(data []byte) (*Document, error) {
	if len(data) == 0 {
		return nil, NewPDFError(ErrPDFInvalid, "empty input", nil)
	}
	if !bytes.HasPrefix(bytes.TrimLeft(data, "\x00\t\r\n "), []byte("%PDF-")) {
		return nil, NewPDFError(ErrPDFInvalid, "missing PDF header", nil)
	}

	ctx, err := readContext(data)
	if err != nil {
		return nil, err
	}
	frames, err := pageFrames(ctx)
	if err != nil {
		return nil, err
	}

	source := data
	reader, err := openContentReader(data)
	if err != nil {
		// pdfcpu tolerates damaged cross-reference tables that ledongthuc
		// rejects; read the content streams from pdfcpu's rewrite instead.
		logger.Warn("content reader rejected document, reading repaired copy", logger.Err(err))
		source, reader, err = repairContent(ctx)
		if err != nil {
			return nil, NewPDFError(ErrPDFInvalid, "failed to open content streams", err)
		}
	}
	if reader.NumPage() != ctx.PageCount {
		return nil, NewPDFError(ErrPDFInvalid, fmt.Sprintf("page count mismatch: %d vs %d", reader.NumPage(), ctx.PageCount), nil)
	}

	pages := make([]PageSize, len(frames))
	for i, f := range frames {
		pages[i] = f.size()
	}

	logger.Debug("document opened",
		logger.Int("pages", len(pages)),
		logger.Int("bytes", len(data)),
		logger.Bool("repaired", !bytes.Equal(source, data)))

	return &Document{
		data:     data,
		source:   source,
		ctx:      ctx,
		reader:   reader,
		pages:    pages,
		frames:   frames,
		contents: make(map[int]*pageContent),
	}, nil
}

func readContext(data []byte) (*model.Context, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "encrypt") ||
			strings.Contains(strings.ToLower(err.Error()), "password") {
			return nil, NewPDFError(ErrPDFEncrypted, "document is encrypted", err)
		}
		return nil, NewPDFError(ErrPDFInvalid, "failed to read PDF", err)
	}
	return ctx, nil
}

// pageFrames returns the unrotated media box and rotation of every page.
func pageFrames(ctx *model.Context) ([]pageFrame, error) {
	boundaries, err := ctx.PageBoundaries(nil)
	if err != nil {
		return nil, NewPDFError(ErrPDFInvalid, "failed to read page boundaries", err)
	}
	if len(boundaries) != ctx.PageCount {
		return nil, NewPDFError(ErrPDFInvalid, fmt.Sprintf("page tree lists %d pages but %d have boundaries", ctx.PageCount, len(boundaries)), nil)
	}

	frames := make([]pageFrame, len(boundaries))
	for i, pb := range boundaries {
		box := pb.MediaBox()
		if box == nil {
			return nil, NewPDFError(ErrPDFInvalid, fmt.Sprintf("page %d has no media box", i+1), nil)
		}
		frames[i] = pageFrame{
			llx:    box.LL.X,
			lly:    box.LL.Y,
			w:      box.Width(),
			h:      box.Height(),
			rotate: normalizeRotation(pb.Rot),
		}
	}
	return frames, nil
}

// repairContent writes ctx back out and opens the result for content reading.
func repairContent(ctx *model.Context) ([]byte, *lpdf.Reader, error) {
	var buf bytes.Buffer
	if err := api.WriteContext(ctx, &buf); err != nil {
		return nil, nil, fmt.Errorf("rewrite document: %w", err)
	}
	repaired := buf.Bytes()
	reader, err := openContentReader(repaired)
	if err != nil {
		return nil, nil, err
	}
	return repaired, reader, nil
}

// openContentReader wraps lpdf.NewReader, which panics on some malformed
// cross-reference data.
func openContentReader(data []byte) (r *lpdf.Reader, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("pdf reader panic: %v", p)
		}
	}()
	return lpdf.NewReader(bytes.NewReader(data), int64(len(data)))
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int { return len(d.pages) }

// PageSize returns the size of the zero-based page i.
func (d *Document) PageSize(i int) PageSize {
	if i < 0 || i >= len(d.pages) {
		return PageSize{}
	}
	return d.pages[i]
}

// PageSizes returns the sizes of all pages.
func (d *Document) PageSizes() []PageSize {
	out := make([]PageSize, len(d.pages))
	copy(out, d.pages)
	return out
}

// Bytes returns the original document bytes.
func (d *Document) Bytes() []byte { return d.data }

// sourceBytes returns the bytes page importers should parse.
func (d *Document) sourceBytes() []byte { return d.source }

// Close releases the parsed document. It is safe to call more than once.
func (d *Document) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	d.ctx = nil
	d.reader = nil
	d.contents = nil
	return nil
}

func (d *Document) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// content returns the interpreted content of the zero-based page i, parsing
// it on first use.
func (d *Document) content(i int) *pageContent {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return &pageContent{}
	}
	if c, ok := d.contents[i]; ok {
		return c
	}
	c := interpretPage(d.reader.Page(i+1), i, d.frames[i])
	d.contents[i] = c
	return c
}
