package pdf

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/euel88/law-chatbot/internal/logger"
)

// TextTranslator translates one piece of text. Implementations never fail;
// they return the input when no translation is possible.
type TextTranslator interface {
	TranslateText(ctx context.Context, text string) string
}

// FractionFunc receives the completed fraction of a stage.
type FractionFunc func(fraction float64)

// BlockTranslator translates text blocks and image captions. Concurrency 1
// translates in order; larger values use a bounded pool whose results are
// stored by index.
type BlockTranslator struct {
	text        TextTranslator
	concurrency int
}

// NewBlockTranslator creates a BlockTranslator. A nil text translator passes
// everything through.
func NewBlockTranslator(text TextTranslator, concurrency int) *BlockTranslator {
	if concurrency < 1 {
		concurrency = 1
	}
	return &BlockTranslator{text: text, concurrency: concurrency}
}

// TranslateBlocks pairs every block with its translation, index-aligned with
// blocks. Formula blocks keep their own text and are never sent out.
func (t *BlockTranslator) TranslateBlocks(ctx context.Context, blocks []TextBlock, progress FractionFunc) []TranslatedBlock {
	out := PassthroughBlocks(blocks)
	if t.text == nil {
		reportDone(progress, len(blocks))
		return out
	}

	t.forEach(ctx, len(blocks), progress, func(i int) {
		if blocks[i].IsFormula {
			return
		}
		out[i].TranslatedText = t.text.TranslateText(ctx, blocks[i].Text)
	})

	changed := 0
	for _, b := range out {
		if b.Changed() {
			changed++
		}
	}
	logger.Info("block translation complete",
		logger.Int("blocks", len(blocks)),
		logger.Int("translated", changed),
		logger.Int("concurrency", t.concurrency))
	return out
}

// TranslateImages sets TranslatedText for every image with OCR text. Images
// without OCR text are left untouched.
func (t *BlockTranslator) TranslateImages(ctx context.Context, images []*ImageBlock, progress FractionFunc) []*ImageBlock {
	if t.text == nil {
		reportDone(progress, len(images))
		return images
	}
	t.forEach(ctx, len(images), progress, func(i int) {
		if images[i].OCRText == "" {
			return
		}
		images[i].TranslatedText = t.text.TranslateText(ctx, images[i].OCRText)
	})
	return images
}

// PassthroughBlocks pairs every block with its original text.
func PassthroughBlocks(blocks []TextBlock) []TranslatedBlock {
	out := make([]TranslatedBlock, len(blocks))
	for i, b := range blocks {
		out[i] = TranslatedBlock{Block: b, TranslatedText: b.Text}
	}
	return out
}

// forEach calls fn for 0..n-1 and reports progress after each call. Items not
// started before ctx is done are skipped.
func (t *BlockTranslator) forEach(ctx context.Context, n int, progress FractionFunc, fn func(i int)) {
	if n == 0 {
		return
	}

	if t.concurrency == 1 {
		for i := 0; i < n; i++ {
			if ctx.Err() == nil {
				fn(i)
			}
			if progress != nil {
				progress(float64(i+1) / float64(n))
			}
		}
		return
	}

	var (
		mu   sync.Mutex
		done int
	)
	var g errgroup.Group
	g.SetLimit(t.concurrency)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			if ctx.Err() == nil {
				fn(i)
			}
			mu.Lock()
			done++
			if progress != nil {
				progress(float64(done) / float64(n))
			}
			mu.Unlock()
			return nil
		})
	}
	g.Wait()
}

func reportDone(progress FractionFunc, n int) {
	if progress != nil && n > 0 {
		progress(1)
	}
}
