package pdf

import (
	"github.com/euel88/law-chatbot/internal/logger"
)

// GetPDFInfo opens data and reports page count, metadata and how many text
// blocks and images extraction finds. Nothing is translated or rendered.
func GetPDFInfo(data []byte) (*PDFInfo, error) {
	doc, err := OpenDocument(data)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	blocks, err := ExtractTextBlocks(doc)
	if err != nil {
		return nil, err
	}
	images, err := ExtractImages(doc, DefaultMinImageSize)
	if err != nil {
		return nil, err
	}

	info := &PDFInfo{
		PageCount:      doc.PageCount(),
		Metadata:       readMetadata(doc),
		TextBlockCount: len(blocks),
		ImageCount:     len(images),
	}
	logger.Debug("pdf info",
		logger.Int("pages", info.PageCount),
		logger.Int("textBlocks", info.TextBlockCount),
		logger.Int("images", info.ImageCount))
	return info, nil
}
