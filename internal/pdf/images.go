package pdf

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"sort"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"golang.org/x/image/tiff"

	"github.com/euel88/law-chatbot/internal/logger"
)

// DefaultMinImageSize is the smallest width or height, in pixels, of an image
// worth running OCR on. Smaller images are usually rules and bullets.
const DefaultMinImageSize = 50

// ExtractImages decodes the embedded raster images of every page. Images
// narrower or shorter than minSize pixels are dropped. A page or image that
// cannot be read is logged and skipped.
func ExtractImages(doc *Document, minSize int) ([]*ImageBlock, error) {
	if doc == nil || doc.isClosed() {
		return nil, NewPDFError(ErrExtractFailed, "document is closed", nil)
	}
	if minSize < 0 {
		minSize = 0
	}

	var out []*ImageBlock
	skipped, failed := 0, 0
	for i := 0; i < doc.PageCount(); i++ {
		images, err := pageImages(doc.ctx, i+1)
		if err != nil {
			logger.Warn("failed to enumerate page images", logger.Int("page", i+1), logger.Err(err))
			continue
		}

		size := doc.PageSize(i)
		content := doc.content(i)
		for _, raw := range images {
			img, err := decodeImage(raw)
			if err != nil {
				failed++
				logger.Warn("failed to decode image",
					logger.Int("page", i+1),
					logger.String("name", raw.Name),
					logger.String("type", raw.FileType),
					logger.Err(err))
				continue
			}

			w, h := img.Bounds().Dx(), img.Bounds().Dy()
			if w < minSize || h < minSize {
				skipped++
				continue
			}

			bbox, ok := content.placement(raw.Name)
			if !ok {
				bbox = NewRect(0, 0, float64(w), float64(h))
			}
			out = append(out, &ImageBlock{
				Image:     img,
				BBox:      bbox.Clip(size.Width, size.Height),
				PageIndex: i,
				Name:      raw.Name,
				Width:     w,
				Height:    h,
			})
		}
	}

	logger.Info("image extraction complete",
		logger.Int("images", len(out)),
		logger.Int("tooSmall", skipped),
		logger.Int("failed", failed))
	return out, nil
}

// pageImages lists the page's images in object number order.
func pageImages(ctx *model.Context, pageNr int) (images []model.Image, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("image enumeration panic: %v", r)
		}
	}()

	byObj, err := pdfcpu.ExtractPageImages(ctx, pageNr, false)
	if err != nil {
		return nil, err
	}
	objNrs := make([]int, 0, len(byObj))
	for nr := range byObj {
		objNrs = append(objNrs, nr)
	}
	sort.Ints(objNrs)
	for _, nr := range objNrs {
		images = append(images, byObj[nr])
	}
	return images, nil
}

func decodeImage(raw model.Image) (image.Image, error) {
	if raw.Reader == nil {
		return nil, fmt.Errorf("image has no data")
	}
	data, err := io.ReadAll(raw)
	if err != nil {
		return nil, fmt.Errorf("read image data: %w", err)
	}

	r := bytes.NewReader(data)
	switch raw.FileType {
	case "jpg", "jpeg":
		return jpeg.Decode(r)
	case "png":
		return png.Decode(r)
	case "tif", "tiff":
		return tiff.Decode(r)
	default:
		img, _, err := image.Decode(r)
		return img, err
	}
}
