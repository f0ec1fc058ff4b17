package pdf

import (
	"testing"
)

func TestGetPDFInfo(t *testing.T) {
	img := jpegImage(t, "Im1", 60, 60)
	small := jpegImage(t, "Im2", 10, 10)
	data := buildPDF(t,
		letterPage(showText("F1", 12, 72, 720, "Title line")+showText("F1", 12, 72, 700, "Body line")),
		letterPage(drawImage("Im1", 72, 500, 60, 60)+drawImage("Im2", 200, 500, 10, 10), img, small),
	)

	info, err := GetPDFInfo(data)
	if err != nil {
		t.Fatalf("GetPDFInfo failed: %v", err)
	}
	if info.PageCount != 2 {
		t.Errorf("PageCount = %d, want 2", info.PageCount)
	}
	if info.TextBlockCount != 2 {
		t.Errorf("TextBlockCount = %d, want 2", info.TextBlockCount)
	}
	if info.ImageCount != 1 {
		t.Errorf("ImageCount = %d, want 1", info.ImageCount)
	}

	wantMeta := map[string]string{
		"format":   "PDF 1.4",
		"title":    "Fixture Document",
		"author":   "pdftrans tests",
		"producer": "hand assembled",
		"subject":  "",
		"modDate":  "",
	}
	for k, want := range wantMeta {
		got, ok := info.Metadata[k]
		if !ok {
			t.Errorf("metadata key %q missing", k)
			continue
		}
		if got != want {
			t.Errorf("metadata[%q] = %q, want %q", k, got, want)
		}
	}
	for _, m := range metadataAliases {
		if _, ok := info.Metadata[m.key]; !ok {
			t.Errorf("metadata key %q missing", m.key)
		}
	}
}

func TestGetPDFInfo_Invalid(t *testing.T) {
	if _, err := GetPDFInfo([]byte("%PDF-1.7\ngarbage")); !IsPDFError(err, ErrPDFInvalid) {
		t.Errorf("expected PDF_INVALID, got %v", err)
	}
}

func TestLookupAlias(t *testing.T) {
	record := map[string]string{
		"Title":        "Exact",
		"title":        "lower",
		"AUTHOR":       "Shouting",
		"Subject":      "   ",
		"Description":  "fallback subject",
		"CreationDate": "D:20240101000000Z",
	}

	tests := []struct {
		name    string
		aliases []string
		want    string
		wantOK  bool
	}{
		{name: "exact match wins", aliases: []string{"Title"}, want: "Exact", wantOK: true},
		{name: "case-insensitive match", aliases: []string{"Author"}, want: "Shouting", wantOK: true},
		{name: "blank value skipped", aliases: []string{"Subject", "Description"}, want: "fallback subject", wantOK: true},
		{name: "later alias", aliases: []string{"Created", "CreationDate"}, want: "D:20240101000000Z", wantOK: true},
		{name: "missing", aliases: []string{"Keywords"}, want: "", wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := lookupAlias(record, tt.aliases...)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("lookupAlias(%v) = %q, %v; want %q, %v", tt.aliases, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestPDFFormat(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "%PDF-1.7\n%...", want: "PDF 1.7"},
		{in: "%PDF-2.0\r\n", want: "PDF 2.0"},
		{in: "\n\n%PDF-1.4 trailing", want: "PDF 1.4"},
		{in: "%PDF-", want: ""},
		{in: "hello", want: ""},
	}
	for _, tt := range tests {
		if got := pdfFormat([]byte(tt.in)); got != tt.want {
			t.Errorf("pdfFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
