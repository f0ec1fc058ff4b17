package pdf

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"
)

func sampleBlocks(n int) []TextBlock {
	blocks := make([]TextBlock, n)
	for i := range blocks {
		blocks[i] = TextBlock{
			Text:      fmt.Sprintf("block %d", i),
			BBox:      Rect{X0: 72, Y0: float64(i * 14), X1: 300, Y1: float64(i*14 + 12)},
			FontName:  "Helvetica",
			FontSize:  12,
			PageIndex: i % 3,
		}
		if i%5 == 0 {
			blocks[i].Text = fmt.Sprintf("x_%d = α + β", i)
			blocks[i].FontName = "CMMI10"
			blocks[i].IsFormula = true
		}
	}
	return blocks
}

// jitterTranslator upper-cases text after a short, index-dependent delay so
// pool workers finish out of order.
type jitterTranslator struct {
	upperTranslator
}

func (j *jitterTranslator) TranslateText(ctx context.Context, text string) string {
	time.Sleep(time.Duration(len(text)%4) * time.Millisecond)
	return j.upperTranslator.TranslateText(ctx, text)
}

func TestTranslateBlocks_FormulaPreserved(t *testing.T) {
	doc := openFixture(t, buildPDF(t, letterPage(
		showText("F1", 12, 72, 720, "plain text")+
			showText("F2", 12, 72, 700, "a+b"))))
	blocks, err := ExtractTextBlocks(doc)
	if err != nil {
		t.Fatalf("ExtractTextBlocks failed: %v", err)
	}
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}

	tr := &upperTranslator{}
	out := NewBlockTranslator(tr, 1).TranslateBlocks(context.Background(), blocks, nil)

	if out[0].TranslatedText != "PLAIN TEXT" {
		t.Errorf("plain block = %q", out[0].TranslatedText)
	}
	if out[1].TranslatedText != "α+β" {
		t.Errorf("formula block = %q, want it unchanged", out[1].TranslatedText)
	}
	if tr.calls.Load() != 1 {
		t.Errorf("translator called %d times, want 1", tr.calls.Load())
	}
}

func TestTranslateBlocks_OrderAndConcurrency(t *testing.T) {
	blocks := sampleBlocks(50)

	for _, workers := range []int{0, 1, 4, 16} {
		t.Run(fmt.Sprintf("concurrency=%d", workers), func(t *testing.T) {
			tr := &jitterTranslator{}
			var (
				mu        sync.Mutex
				fractions []float64
			)
			out := NewBlockTranslator(tr, workers).TranslateBlocks(context.Background(), blocks, func(f float64) {
				mu.Lock()
				fractions = append(fractions, f)
				mu.Unlock()
			})

			if len(out) != len(blocks) {
				t.Fatalf("got %d results, want %d", len(out), len(blocks))
			}
			formulas := 0
			for i, b := range out {
				if b.Block != blocks[i] {
					t.Fatalf("result %d is not aligned with its block", i)
				}
				if blocks[i].IsFormula {
					formulas++
					if b.TranslatedText != blocks[i].Text {
						t.Errorf("formula block %d changed to %q", i, b.TranslatedText)
					}
					continue
				}
				if b.TranslatedText != strings.ToUpper(blocks[i].Text) {
					t.Errorf("block %d = %q", i, b.TranslatedText)
				}
			}
			if got := tr.calls.Load(); got != int64(len(blocks)-formulas) {
				t.Errorf("translator called %d times, want %d", got, len(blocks)-formulas)
			}

			if len(fractions) != len(blocks) {
				t.Fatalf("progress reported %d times, want %d", len(fractions), len(blocks))
			}
			if !sort.Float64sAreSorted(fractions) {
				t.Errorf("progress not monotonic: %v", fractions)
			}
			if fractions[len(fractions)-1] != 1 {
				t.Errorf("final progress = %v, want 1", fractions[len(fractions)-1])
			}
		})
	}
}

func TestTranslateBlocks_NoTranslator(t *testing.T) {
	blocks := sampleBlocks(6)
	var last float64
	out := NewBlockTranslator(nil, 4).TranslateBlocks(context.Background(), blocks, func(f float64) { last = f })

	for i, b := range out {
		if b.TranslatedText != blocks[i].Text || b.Changed() {
			t.Errorf("block %d = %q, want original text", i, b.TranslatedText)
		}
	}
	if last != 1 {
		t.Errorf("progress = %v, want 1", last)
	}
}

func TestTranslateBlocks_Empty(t *testing.T) {
	called := false
	out := NewBlockTranslator(&upperTranslator{}, 4).TranslateBlocks(context.Background(), nil, func(float64) { called = true })
	if len(out) != 0 {
		t.Errorf("expected no results, got %d", len(out))
	}
	if called {
		t.Error("progress reported for an empty input")
	}
}

func TestTranslateBlocks_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tr := &upperTranslator{}
	blocks := sampleBlocks(10)
	out := NewBlockTranslator(tr, 3).TranslateBlocks(ctx, blocks, nil)
	if tr.calls.Load() != 0 {
		t.Errorf("translator called %d times after cancel", tr.calls.Load())
	}
	for i, b := range out {
		if b.TranslatedText != blocks[i].Text {
			t.Errorf("block %d = %q, want original", i, b.TranslatedText)
		}
	}
}

func TestTranslateImages(t *testing.T) {
	images := []*ImageBlock{
		{Name: "a", OCRText: "hello"},
		{Name: "b"},
		{Name: "c", OCRText: "world"},
	}
	tr := &upperTranslator{}
	NewBlockTranslator(tr, 2).TranslateImages(context.Background(), images, nil)

	want := []string{"HELLO", "", "WORLD"}
	for i, img := range images {
		if img.TranslatedText != want[i] {
			t.Errorf("image %d TranslatedText = %q, want %q", i, img.TranslatedText, want[i])
		}
	}
	if tr.calls.Load() != 2 {
		t.Errorf("translator called %d times, want 2", tr.calls.Load())
	}
}

func TestPassthroughBlocks(t *testing.T) {
	blocks := sampleBlocks(3)
	out := PassthroughBlocks(blocks)
	for i, b := range out {
		if b.Block != blocks[i] || b.TranslatedText != blocks[i].Text {
			t.Errorf("block %d not passed through: %+v", i, b)
		}
	}
}
