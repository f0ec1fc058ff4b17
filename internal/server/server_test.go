package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/image/font/gofont/goregular"

	"github.com/euel88/law-chatbot/internal/app"
	"github.com/euel88/law-chatbot/internal/config"
	"github.com/euel88/law-chatbot/internal/pdf"
	"github.com/euel88/law-chatbot/internal/pdf/pdftest"
	"github.com/euel88/law-chatbot/internal/results"
	"github.com/euel88/law-chatbot/internal/types"
)

type upperBackend struct{}

func (upperBackend) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	return strings.ToUpper(text), nil
}

func newTestServer(t *testing.T) (*app.App, *httptest.Server) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.FontPath = filepath.Join(t.TempDir(), "goregular.ttf")
	if err := os.WriteFile(cfg.FontPath, goregular.TTF, 0644); err != nil {
		t.Fatal(err)
	}
	manager, err := results.NewManager(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	a := app.New(app.Options{Config: cfg, Backend: upperBackend{}, Results: manager})
	ts := httptest.NewServer(New(a).Handler())
	t.Cleanup(func() {
		ts.Close()
		a.Close()
	})
	return a, ts
}

func samplePDF() []byte {
	return pdftest.Build(pdftest.Letter(pdftest.TextLine("F1", 12, 72, 720, "Hello world")))
}

// upload posts data as the multipart "file" field plus extra form fields.
func upload(t *testing.T, url string, data []byte, fields map[string]string) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if data != nil {
		fw, err := mw.CreateFormFile("file", "paper.pdf")
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(data)
	}
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	mw.Close()

	resp, err := http.Post(url, mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("POST %s failed: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHealthAndLanguages(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var health map[string]interface{}
	decode(t, resp, &health)
	if health["status"] != "ok" || health["backend"] != true || health["ocr"] != false {
		t.Errorf("health = %v", health)
	}
	if resp.Header.Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type = %q", resp.Header.Get("Content-Type"))
	}

	resp, err = http.Get(ts.URL + "/languages")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var langs []LanguageInfo
	decode(t, resp, &langs)
	if len(langs) != 8 {
		t.Fatalf("got %d languages, want 8", len(langs))
	}
	if langs[1].Code != "ko" || langs[1].Name != "Korean" {
		t.Errorf("languages[1] = %+v", langs[1])
	}
}

func TestInfo(t *testing.T) {
	_, ts := newTestServer(t)

	resp := upload(t, ts.URL+"/info", samplePDF(), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var info pdf.PDFInfo
	decode(t, resp, &info)
	if info.PageCount != 1 || info.TextBlockCount != 1 {
		t.Errorf("info = %+v", info)
	}
	if info.Metadata["title"] != "Fixture Document" {
		t.Errorf("title = %q", info.Metadata["title"])
	}
}

func TestTranslate(t *testing.T) {
	_, ts := newTestServer(t)

	resp := upload(t, ts.URL+"/translate", samplePDF(), map[string]string{"target": "ja", "mode": "replace"})
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "translated_paper.pdf") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	out, _ := io.ReadAll(resp.Body)
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Errorf("response is not a PDF: %q", out[:min(len(out), 16)])
	}
}

func TestTranslateErrors(t *testing.T) {
	_, ts := newTestServer(t)

	tests := []struct {
		name     string
		data     []byte
		fields   map[string]string
		status   int
		wantCode string
	}{
		{name: "missing file", status: http.StatusBadRequest, wantCode: "INVALID_INPUT"},
		{name: "bad bool", data: samplePDF(), fields: map[string]string{"images": "maybe"}, status: http.StatusBadRequest, wantCode: "INVALID_INPUT"},
		{name: "unsupported language", data: samplePDF(), fields: map[string]string{"target": "sw"}, status: http.StatusBadRequest, wantCode: "INVALID_INPUT"},
		{name: "bad mode", data: samplePDF(), fields: map[string]string{"mode": "sideways"}, status: http.StatusBadRequest, wantCode: "INVALID_INPUT"},
		{name: "not a pdf", data: []byte("hello"), status: http.StatusUnprocessableEntity, wantCode: "PDF_INVALID"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := upload(t, ts.URL+"/translate", tt.data, tt.fields)
			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			var body errorBody
			decode(t, resp, &body)
			if body.Code != tt.wantCode {
				t.Errorf("code = %q, want %q (%s)", body.Code, tt.wantCode, body.Message)
			}
		})
	}
}

func TestUploadTooLarge(t *testing.T) {
	a, _ := newTestServer(t)
	ts := httptest.NewServer(New(a, WithMaxUploadBytes(512)).Handler())
	defer ts.Close()

	resp := upload(t, ts.URL+"/info", bytes.Repeat([]byte("x"), 4096), nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestJobs(t *testing.T) {
	a, ts := newTestServer(t)

	resp := upload(t, ts.URL+"/jobs", samplePDF(), map[string]string{"source": "en", "target": "ko"})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var rec results.JobRecord
	decode(t, resp, &rec)
	if rec.ID == "" || resp.Header.Get("Location") != "/jobs/"+rec.ID {
		t.Fatalf("job = %+v, Location = %q", rec, resp.Header.Get("Location"))
	}

	a.Wait()

	get, err := http.Get(ts.URL + "/jobs/" + rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	defer get.Body.Close()
	var done results.JobRecord
	decode(t, get, &done)
	if done.Status != results.StatusComplete {
		t.Fatalf("job status = %q (%s)", done.Status, done.ErrorMessage)
	}

	pdfResp, err := http.Get(ts.URL + "/jobs/" + rec.ID + "/pdf")
	if err != nil {
		t.Fatal(err)
	}
	defer pdfResp.Body.Close()
	if pdfResp.StatusCode != http.StatusOK || pdfResp.Header.Get("Content-Type") != "application/pdf" {
		t.Errorf("pdf status = %d, type %q", pdfResp.StatusCode, pdfResp.Header.Get("Content-Type"))
	}

	list, err := http.Get(ts.URL + "/jobs")
	if err != nil {
		t.Fatal(err)
	}
	defer list.Body.Close()
	var jobs []results.JobRecord
	decode(t, list, &jobs)
	if len(jobs) != 1 || jobs[0].ID != rec.ID {
		t.Errorf("jobs = %+v", jobs)
	}

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/jobs/"+rec.ID, nil)
	del, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	del.Body.Close()
	if del.StatusCode != http.StatusNoContent {
		t.Errorf("delete status = %d", del.StatusCode)
	}

	gone, err := http.Get(ts.URL + "/jobs/" + rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	gone.Body.Close()
	if gone.StatusCode != http.StatusNotFound {
		t.Errorf("status after delete = %d, want 404", gone.StatusCode)
	}
}

func TestJobNotFound(t *testing.T) {
	_, ts := newTestServer(t)

	for _, path := range []string{"/jobs/7d444840-9dc0-11d1-b245-5ffdce74fad2", "/jobs/latest", "/jobs/latest/pdf"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("GET %s = %d, want 404", path, resp.StatusCode)
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"invalid input", types.NewAppError(types.ErrInvalidInput, "bad", nil), http.StatusBadRequest, "INVALID_INPUT"},
		{"config", types.NewAppError(types.ErrConfig, "no store", nil), http.StatusServiceUnavailable, "CONFIG_ERROR"},
		{"encrypted", pdf.NewPDFError(pdf.ErrPDFEncrypted, "locked", nil), http.StatusUnprocessableEntity, "PDF_ENCRYPTED"},
		{"cancelled", pdf.NewPDFError(pdf.ErrCancelled, "stop", nil), http.StatusServiceUnavailable, "CANCELLED"},
		{"generate", pdf.NewPDFError(pdf.ErrGenerateFailed, "boom", nil), http.StatusInternalServerError, "GENERATE_FAILED"},
		{"job not found", results.ErrJobNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"plain", errors.New("disk on fire"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := classify(tt.err)
			if status != tt.status || code != tt.code {
				t.Errorf("classify = %d %s, want %d %s", status, code, tt.status, tt.code)
			}
		})
	}
}

func TestListenAndServe_Shutdown(t *testing.T) {
	a, _ := newTestServer(t)
	s := New(a)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0") }()
	cancel()

	if err := <-done; err != nil {
		t.Errorf("ListenAndServe returned %v after cancel", err)
	}
}
