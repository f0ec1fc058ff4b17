package pdf

import (
	"testing"

	"github.com/euel88/law-chatbot/internal/pdf/pdftest"
)

func TestExtractImages(t *testing.T) {
	img := jpegImage(t, "Im1", 60, 60)
	data := buildPDF(t, letterPage(drawImage("Im1", 100, 600, 60, 60), img))
	doc := openFixture(t, data)

	images, err := ExtractImages(doc, DefaultMinImageSize)
	if err != nil {
		t.Fatalf("ExtractImages failed: %v", err)
	}
	if len(images) != 1 {
		t.Fatalf("expected 1 image, got %d", len(images))
	}

	got := images[0]
	if got.Width != 60 || got.Height != 60 {
		t.Errorf("size = %dx%d, want 60x60", got.Width, got.Height)
	}
	if got.Image == nil {
		t.Fatal("decoded image is nil")
	}
	if got.PageIndex != 0 {
		t.Errorf("PageIndex = %d, want 0", got.PageIndex)
	}
	if got.BBox.IsEmpty() || got.BBox.X1 > 612 || got.BBox.Y1 > 792 {
		t.Errorf("BBox = %+v, want a non-empty box on the page", got.BBox)
	}
}

func TestImagePlacement(t *testing.T) {
	img := jpegImage(t, "Im1", 60, 60)
	doc := openFixture(t, buildPDF(t, letterPage(drawImage("Im1", 100, 600, 60, 60), img)))

	bbox, ok := doc.content(0).placement("Im1")
	if !ok {
		t.Fatal("placement for Im1 not recorded")
	}
	want := Rect{X0: 100, Y0: 792 - 660, X1: 160, Y1: 792 - 600}
	if bbox != want {
		t.Errorf("placement = %+v, want %+v", bbox, want)
	}
	if _, ok := doc.content(0).placement("Missing"); ok {
		t.Error("placement reported for an unknown image")
	}
}

func TestExtractImages_MinSize(t *testing.T) {
	small := jpegImage(t, "Im1", 10, 10)
	doc := openFixture(t, buildPDF(t, letterPage(drawImage("Im1", 72, 700, 10, 10), small)))

	tests := []struct {
		name    string
		minSize int
		want    int
	}{
		{name: "default drops 10x10", minSize: DefaultMinImageSize, want: 0},
		{name: "exact size kept", minSize: 10, want: 1},
		{name: "zero keeps everything", minSize: 0, want: 1},
		{name: "negative treated as zero", minSize: -5, want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			images, err := ExtractImages(doc, tt.minSize)
			if err != nil {
				t.Fatalf("ExtractImages failed: %v", err)
			}
			if len(images) != tt.want {
				t.Errorf("got %d images, want %d", len(images), tt.want)
			}
		})
	}
}

func TestExtractImages_SkipsUndecodable(t *testing.T) {
	var pages []pdftest.Page
	for i := 0; i < 5; i++ {
		img := jpegImage(t, "Im1", 60, 60)
		if i == 2 {
			img = corruptImage("Im1", 60, 60)
		}
		pages = append(pages, letterPage(drawImage("Im1", 72, 600, 60, 60), img))
	}
	doc := openFixture(t, buildPDF(t, pages...))

	images, err := ExtractImages(doc, DefaultMinImageSize)
	if err != nil {
		t.Fatalf("ExtractImages failed: %v", err)
	}
	if len(images) != 4 {
		t.Fatalf("expected 4 images, got %d", len(images))
	}
	for _, img := range images {
		if img.PageIndex == 2 {
			t.Error("image from the corrupt page should be skipped")
		}
	}
}

func TestExtractImages_NoImages(t *testing.T) {
	doc := openFixture(t, buildPDF(t, letterPage(showText("F1", 12, 72, 700, "text only"))))
	images, err := ExtractImages(doc, 0)
	if err != nil {
		t.Fatalf("ExtractImages failed: %v", err)
	}
	if len(images) != 0 {
		t.Errorf("expected no images, got %d", len(images))
	}
}

func TestExtractImages_ClosedDocument(t *testing.T) {
	doc, err := OpenDocument(buildPDF(t, letterPage("")))
	if err != nil {
		t.Fatalf("OpenDocument failed: %v", err)
	}
	doc.Close()
	if _, err := ExtractImages(doc, 0); !IsPDFError(err, ErrExtractFailed) {
		t.Errorf("expected EXTRACT_FAILED, got %v", err)
	}
}
