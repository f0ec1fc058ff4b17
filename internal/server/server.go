// Package server exposes the translation pipeline over HTTP.
//
// Routes:
//
//	GET    /healthz          liveness and available capabilities
//	GET    /languages        supported language codes
//	GET    /stats            translator counters per language pair
//	POST   /info             multipart "file" -> page count, metadata, block counts
//	POST   /translate        multipart "file" -> translated PDF
//	POST   /jobs             multipart "file" -> background job record
//	GET    /jobs             all jobs, newest first
//	GET    /jobs/{id}        job record
//	GET    /jobs/{id}/pdf    translated PDF of a completed job
//	DELETE /jobs/{id}        remove a finished job
//
// The translate and jobs endpoints read the form fields source, target, text,
// images and mode.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/euel88/law-chatbot/internal/app"
	"github.com/euel88/law-chatbot/internal/logger"
)

// DefaultMaxUploadBytes bounds the size of an uploaded PDF.
const DefaultMaxUploadBytes = 64 << 20

const shutdownTimeout = 10 * time.Second

// Server serves the HTTP API of an App.
type Server struct {
	app       *app.App
	router    *chi.Mux
	maxUpload int64
}

// Option configures a Server.
type Option func(*Server)

// WithMaxUploadBytes overrides DefaultMaxUploadBytes.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUpload = n
		}
	}
}

// New creates a Server with its routes registered.
func New(a *app.App, opts ...Option) *Server {
	s := &Server{app: a, maxUpload: DefaultMaxUploadBytes}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/languages", s.handleLanguages)
	r.Get("/stats", s.handleStats)
	r.Post("/info", s.handleInfo)
	r.Post("/translate", s.handleTranslate)
	r.Route("/jobs", func(r chi.Router) {
		r.Post("/", s.handleSubmitJob)
		r.Get("/", s.handleListJobs)
		r.Get("/{id}", s.handleGetJob)
		r.Get("/{id}/pdf", s.handleJobPDF)
		r.Delete("/{id}", s.handleDeleteJob)
	})

	s.router = r
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", logger.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server error: %w", err)
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("http server stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}
	return <-errCh
}

// requestLogger logs one line per request through the package logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			logger.Info("http request",
				logger.String("request_id", middleware.GetReqID(r.Context())),
				logger.String("method", r.Method),
				logger.String("path", r.URL.Path),
				logger.Int("status", ww.Status()),
				logger.Int("bytes", ww.BytesWritten()),
				logger.Duration("elapsed", time.Since(start)))
		}()
		next.ServeHTTP(ww, r)
	})
}

// readUpload parses the multipart form and returns the "file" field.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		return nil, "", badRequest("parse form: %v", err)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", badRequest("missing file field: %v", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", badRequest("read file: %v", err)
	}
	return data, header.Filename, nil
}

// formRequest builds a pipeline request from form fields. Text translation
// defaults to on and image translation to off.
func formRequest(r *http.Request) (app.Request, error) {
	req := app.Request{
		SourceLang:    r.FormValue("source"),
		TargetLang:    r.FormValue("target"),
		TranslateText: true,
		Mode:          r.FormValue("mode"),
	}
	var err error
	if req.TranslateText, err = formBool(r, "text", true); err != nil {
		return req, err
	}
	if req.TranslateImages, err = formBool(r, "images", false); err != nil {
		return req, err
	}
	return req, nil
}

func formBool(r *http.Request, key string, def bool) (bool, error) {
	v := r.FormValue(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, badRequest("invalid %s value %q", key, v)
	}
	return b, nil
}
