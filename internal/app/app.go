// Package app wires configuration, the translation backend and cache, OCR and
// the job store into the PDF translation pipeline. The CLI and the HTTP
// service both drive the pipeline through an App.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/euel88/law-chatbot/internal/config"
	"github.com/euel88/law-chatbot/internal/logger"
	"github.com/euel88/law-chatbot/internal/ocr"
	"github.com/euel88/law-chatbot/internal/pdf"
	"github.com/euel88/law-chatbot/internal/results"
	"github.com/euel88/law-chatbot/internal/translator"
	"github.com/euel88/law-chatbot/internal/types"
)

// DefaultMaxJobs is the number of background jobs run at once.
const DefaultMaxJobs = 2

// Request describes one translation.
type Request struct {
	SourceLang      string `json:"source_lang"`
	TargetLang      string `json:"target_lang"`
	TranslateText   bool   `json:"translate_text"`
	TranslateImages bool   `json:"translate_images"`
	Mode            string `json:"mode,omitempty"`
}

// Options holds the components an App is built from. Nil components are
// allowed: without a backend text passes through, without an OCR engine image
// translation is skipped, without a results manager jobs are unavailable.
type Options struct {
	Config  *config.Config
	Backend translator.Backend
	Cache   translator.Cache
	OCR     ocr.Engine
	Results *results.Manager
	MaxJobs int
}

// App is the pipeline controller shared by the CLI and the HTTP service.
type App struct {
	cfg     *config.Config
	backend translator.Backend
	cache   translator.Cache
	ocr     *pdf.OCRProcessor
	engine  ocr.Engine
	results *results.Manager

	mu          sync.Mutex
	translators map[string]*translator.Translator

	jobs       *semaphore.Weighted
	jobsWG     sync.WaitGroup
	baseCtx    context.Context
	cancelJobs context.CancelFunc
}

// New creates an App from already constructed components.
func New(opts Options) *App {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	cache := opts.Cache
	if cache == nil {
		cache = translator.NewMemoryCache("")
	}
	maxJobs := opts.MaxJobs
	if maxJobs <= 0 {
		maxJobs = DefaultMaxJobs
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &App{
		cfg:         cfg,
		backend:     opts.Backend,
		cache:       cache,
		ocr:         pdf.NewOCRProcessor(opts.OCR, cfg.OCRLanguages, cfg.Timeout()),
		engine:      opts.OCR,
		results:     opts.Results,
		translators: make(map[string]*translator.Translator),
		jobs:        semaphore.NewWeighted(int64(maxJobs)),
		baseCtx:     ctx,
		cancelJobs:  cancel,
	}
}

// NewFromConfig builds every component from the configuration. A missing API
// key or OCR backend is logged and the App runs without it.
func NewFromConfig(ctx context.Context, cm *config.ConfigManager) (*App, error) {
	cfg := cm.GetConfig()
	if cfg.FontPath == "" {
		cfg.FontPath = cm.GetFontPath()
	}
	opts := Options{Config: cfg}

	backend, err := translator.NewEinoBackend(ctx, translator.EinoBackendConfig{
		APIKey:  cm.GetAPIKey(),
		BaseURL: cm.GetBaseURL(),
		Model:   cm.GetModel(),
		Timeout: cfg.Timeout(),
	})
	switch {
	case errors.Is(err, translator.ErrNoAPIKey):
		logger.Warn("no API key configured, text will pass through untranslated")
	case err != nil:
		return nil, types.NewAppError(types.ErrConfig, "failed to create translation backend", err)
	default:
		opts.Backend = backend
	}

	cache, err := openCache(cfg.CacheBackend, cm.GetCachePath())
	if err != nil {
		return nil, err
	}
	opts.Cache = cache

	engine, err := ocr.New()
	if err != nil {
		logger.Info("ocr unavailable, image translation disabled", logger.Err(err))
	} else {
		opts.OCR = engine
	}

	manager, err := results.NewManager(cm.GetResultsDir())
	if err != nil {
		return nil, types.NewAppError(types.ErrStorage, "failed to open results directory", err)
	}
	opts.Results = manager

	a := New(opts)
	a.recoverJobs()
	return a, nil
}

// openCache creates the configured translation cache.
func openCache(backend, path string) (translator.Cache, error) {
	switch backend {
	case "", "memory":
		cache := translator.NewMemoryCache(path)
		if err := cache.Load(); err != nil {
			logger.Warn("failed to load translation cache, starting empty", logger.String("path", path), logger.Err(err))
		}
		return cache, nil
	case "sqlite":
		if path == "" {
			path = ":memory:"
		}
		cache, err := translator.OpenSQLiteCache(path)
		if err != nil {
			return nil, err
		}
		return cache, nil
	default:
		return nil, types.NewAppErrorWithDetails(types.ErrConfig, "unknown cache backend", backend, nil)
	}
}

// recoverJobs marks jobs left running by a previous process as failed.
func (a *App) recoverJobs() {
	if a.results == nil {
		return
	}
	stale, err := a.results.Incomplete()
	if err != nil {
		logger.Warn("failed to scan unfinished jobs", logger.Err(err))
		return
	}
	for _, job := range stale {
		if err := a.results.UpdateStatus(job.ID, results.StatusError, "interrupted by restart"); err != nil {
			logger.Warn("failed to mark job interrupted", logger.String("job", job.ID), logger.Err(err))
		}
	}
	if len(stale) > 0 {
		logger.Info("marked interrupted jobs", logger.Int("count", len(stale)))
	}
}

// SetMaxJobs changes how many background jobs run at once. It must be called
// before the first SubmitJob.
func (a *App) SetMaxJobs(n int) {
	if n > 0 {
		a.jobs = semaphore.NewWeighted(int64(n))
	}
}

// GetConfig returns the active configuration.
func (a *App) GetConfig() *config.Config { return a.cfg }

// HasBackend reports whether text can actually be translated.
func (a *App) HasBackend() bool { return a.backend != nil }

// OCRAvailable reports whether image translation is possible.
func (a *App) OCRAvailable() bool { return a.ocr.Available() }

// Results returns the job store, or nil.
func (a *App) Results() *results.Manager { return a.results }

// DefaultRequest returns a request with the configured languages that
// translates text only.
func (a *App) DefaultRequest() Request {
	return Request{
		SourceLang:    a.cfg.SourceLang,
		TargetLang:    a.cfg.TargetLang,
		TranslateText: true,
		Mode:          a.cfg.RenderMode,
	}
}

// Normalize validates a request and fills defaults. Language codes are mapped
// onto the supported set.
func (a *App) Normalize(req Request) (Request, error) {
	if req.SourceLang == "" {
		req.SourceLang = a.cfg.SourceLang
	}
	if req.TargetLang == "" {
		req.TargetLang = a.cfg.TargetLang
	}
	src, err := translator.NormalizeLanguage(req.SourceLang)
	if err != nil {
		return req, types.NewAppError(types.ErrInvalidInput, "invalid source language", err)
	}
	tgt, err := translator.NormalizeLanguage(req.TargetLang)
	if err != nil {
		return req, types.NewAppError(types.ErrInvalidInput, "invalid target language", err)
	}
	req.SourceLang, req.TargetLang = src, tgt

	if req.Mode == "" {
		req.Mode = a.cfg.RenderMode
	}
	mode, err := pdf.ParseRenderMode(req.Mode)
	if err != nil {
		return req, types.NewAppError(types.ErrInvalidInput, "invalid render mode", err)
	}
	req.Mode = string(mode)
	return req, nil
}

// textTranslator returns the shared translator for a language pair.
func (a *App) textTranslator(src, tgt string) *translator.Translator {
	a.mu.Lock()
	defer a.mu.Unlock()

	key := src + "_" + tgt
	if t, ok := a.translators[key]; ok {
		return t
	}
	t := translator.New(translator.Config{
		Backend:    a.backend,
		Cache:      a.cache,
		SourceLang: src,
		TargetLang: tgt,
		Timeout:    a.cfg.Timeout(),
	})
	a.translators[key] = t
	return t
}

// NewPipeline returns a PDFTranslator for a normalised request.
func (a *App) NewPipeline(req Request) *pdf.PDFTranslator {
	engine, err := pdf.ParseRenderEngine(a.cfg.RenderEngine)
	if err != nil {
		logger.Warn("unknown render engine, using default", logger.String("engine", a.cfg.RenderEngine))
		engine = pdf.EngineGofpdf
	}
	// The translator is passed even without a backend so cached
	// translations are still applied.
	return pdf.NewPDFTranslator(pdf.PDFTranslatorConfig{
		Translator:   a.textTranslator(req.SourceLang, req.TargetLang),
		OCR:          a.ocr,
		Concurrency:  a.cfg.Concurrency,
		Mode:         pdf.RenderMode(req.Mode),
		Engine:       engine,
		MinImageSize: a.cfg.MinImageSize,
		FontPath:     a.cfg.FontPath,
	})
}

// TranslatePDF runs the pipeline synchronously.
func (a *App) TranslatePDF(ctx context.Context, data []byte, req Request, progress pdf.ProgressFunc) ([]byte, error) {
	req, err := a.Normalize(req)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	out, err := a.NewPipeline(req).TranslatePDF(ctx, data, pdf.Options{
		TranslateText:   req.TranslateText,
		TranslateImages: req.TranslateImages,
	}, progress)
	if err != nil {
		return nil, err
	}
	logger.Info("translation finished",
		logger.String("languages", req.SourceLang+"->"+req.TargetLang),
		logger.Duration("elapsed", time.Since(start)))
	return out, nil
}

// GetPDFInfo reports page count, metadata and block counts without translating.
func (a *App) GetPDFInfo(data []byte) (*pdf.PDFInfo, error) {
	return pdf.GetPDFInfo(data)
}

// Stats returns the translator counters of every language pair used so far.
func (a *App) Stats() map[string]translator.Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string]translator.Stats, len(a.translators))
	for key, t := range a.translators {
		out[key] = t.Stats()
	}
	return out
}

// SubmitJob stores the request as a job and runs it in the background. A
// completed job for the same document and languages is returned instead of
// translating again.
func (a *App) SubmitJob(data []byte, fileName string, req Request) (*results.JobRecord, error) {
	if a.results == nil {
		return nil, types.NewAppError(types.ErrConfig, "job store not configured", nil)
	}
	req, err := a.Normalize(req)
	if err != nil {
		return nil, err
	}

	hash := results.CalculateMD5(data)
	done, err := a.results.FindByMD5(hash, req.SourceLang, req.TargetLang)
	if err == nil && done != nil && done.TranslateText == req.TranslateText &&
		done.TranslateImages == req.TranslateImages && done.Mode == req.Mode {
		logger.Info("reusing completed job", logger.String("job", done.ID))
		return done, nil
	}

	rec := &results.JobRecord{
		FileName:        fileName,
		SourceMD5:       hash,
		SourceLang:      req.SourceLang,
		TargetLang:      req.TargetLang,
		TranslateText:   req.TranslateText,
		TranslateImages: req.TranslateImages,
		Mode:            req.Mode,
	}
	if err := a.results.Create(rec); err != nil {
		return nil, types.NewAppError(types.ErrStorage, "failed to create job", err)
	}

	a.jobsWG.Add(1)
	go a.runJob(rec.ID, data, req)
	return rec, nil
}

func (a *App) runJob(id string, data []byte, req Request) {
	defer a.jobsWG.Done()

	if err := a.jobs.Acquire(a.baseCtx, 1); err != nil {
		a.failJob(id, pdf.NewPDFError(pdf.ErrCancelled, "job cancelled before start", err))
		return
	}
	defer a.jobs.Release(1)

	logger.Info("job started", logger.String("job", id))
	pipeline := a.NewPipeline(req)
	out, err := pipeline.TranslatePDF(a.baseCtx, data, pdf.Options{
		TranslateText:   req.TranslateText,
		TranslateImages: req.TranslateImages,
	}, func(fraction float64, message string) {
		if fraction >= 1 {
			return
		}
		phase := string(pipeline.GetStatus().Phase)
		if err := a.results.UpdateProgress(id, phase, fraction, message); err != nil {
			logger.Warn("failed to record job progress", logger.String("job", id), logger.Err(err))
		}
	})
	if err != nil {
		a.failJob(id, err)
		return
	}

	if doc, err := pdf.OpenDocument(out); err == nil {
		pages := doc.PageCount()
		doc.Close()
		if _, err := a.results.Update(id, func(rec *results.JobRecord) { rec.PageCount = pages }); err != nil {
			logger.Warn("failed to record page count", logger.String("job", id), logger.Err(err))
		}
	}
	if err := a.results.SaveOutput(id, out); err != nil {
		a.failJob(id, err)
		return
	}
	logger.Info("job complete", logger.String("job", id), logger.Int("bytes", len(out)))
}

func (a *App) failJob(id string, err error) {
	logger.Error("job failed", err, logger.String("job", id))
	code := string(types.ErrInternal)
	var pdfErr *pdf.PDFError
	if errors.As(err, &pdfErr) {
		code = string(pdfErr.Code)
	}
	_, uerr := a.results.Update(id, func(rec *results.JobRecord) {
		rec.Status = results.StatusError
		rec.ErrorCode = code
		rec.ErrorMessage = err.Error()
	})
	if uerr != nil {
		logger.Warn("failed to record job failure", logger.String("job", id), logger.Err(uerr))
	}
}

// Job returns the record of a job.
func (a *App) Job(id string) (*results.JobRecord, error) {
	if a.results == nil {
		return nil, results.ErrJobNotFound
	}
	return a.results.Load(id)
}

// JobOutput returns the translated PDF of a completed job.
func (a *App) JobOutput(id string) ([]byte, error) {
	rec, err := a.Job(id)
	if err != nil {
		return nil, err
	}
	if rec.Status != results.StatusComplete {
		return nil, fmt.Errorf("%w: job %s is %s", errJobNotReady, id, rec.Status)
	}
	return a.results.ReadOutput(id)
}

// Jobs lists every stored job, newest first.
func (a *App) Jobs() ([]*results.JobRecord, error) {
	if a.results == nil {
		return []*results.JobRecord{}, nil
	}
	return a.results.List()
}

// DeleteJob removes a finished job and its output.
func (a *App) DeleteJob(id string) error {
	rec, err := a.Job(id)
	if err != nil {
		return err
	}
	if !rec.Done() {
		return fmt.Errorf("%w: job %s is %s", errJobNotReady, id, rec.Status)
	}
	return a.results.Delete(id)
}

// errJobNotReady is returned by JobOutput for unfinished jobs.
var errJobNotReady = errors.New("job not ready")

// IsJobNotReady reports whether err means the job has not finished.
func IsJobNotReady(err error) bool { return errors.Is(err, errJobNotReady) }

// Wait blocks until every submitted job has finished.
func (a *App) Wait() {
	a.jobsWG.Wait()
}

// Close cancels running jobs, waits for them and releases the cache and OCR engine.
func (a *App) Close() error {
	a.cancelJobs()
	a.jobsWG.Wait()

	var errs []error
	switch c := a.cache.(type) {
	case *translator.MemoryCache:
		errs = append(errs, c.Save())
	case *translator.SQLiteCache:
		errs = append(errs, c.Close())
	}
	if a.engine != nil {
		errs = append(errs, a.engine.Close())
	}
	return errors.Join(errs...)
}
