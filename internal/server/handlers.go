package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/euel88/law-chatbot/internal/app"
	"github.com/euel88/law-chatbot/internal/logger"
	"github.com/euel88/law-chatbot/internal/pdf"
	"github.com/euel88/law-chatbot/internal/results"
	"github.com/euel88/law-chatbot/internal/translator"
	"github.com/euel88/law-chatbot/internal/types"
)

// errorBody is the JSON body of every error response.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// LanguageInfo describes one supported language.
type LanguageInfo struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Native string `json:"native"`
}

func badRequest(format string, args ...interface{}) error {
	return types.NewAppError(types.ErrInvalidInput, fmt.Sprintf(format, args...), nil)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("failed to encode response", logger.Err(err))
	}
}

func writePDF(w http.ResponseWriter, name string, data []byte) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// writeError maps an error onto a status code and JSON body.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", err, logger.String("path", r.URL.Path))
	}
	writeJSON(w, status, errorBody{Code: code, Message: err.Error()})
}

func classify(err error) (int, string) {
	var pdfErr *pdf.PDFError
	if errors.As(err, &pdfErr) {
		switch pdfErr.Code {
		case pdf.ErrPDFInvalid, pdf.ErrPDFEncrypted:
			return http.StatusUnprocessableEntity, string(pdfErr.Code)
		case pdf.ErrCancelled:
			return http.StatusServiceUnavailable, string(pdfErr.Code)
		default:
			return http.StatusInternalServerError, string(pdfErr.Code)
		}
	}

	switch {
	case errors.Is(err, results.ErrJobNotFound):
		return http.StatusNotFound, string(types.ErrNotFound)
	case app.IsJobNotReady(err):
		return http.StatusConflict, "NOT_READY"
	}

	var appErr *types.AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case types.ErrInvalidInput:
			return http.StatusBadRequest, string(appErr.Code)
		case types.ErrNotFound, types.ErrFileNotFound:
			return http.StatusNotFound, string(appErr.Code)
		case types.ErrConfig:
			return http.StatusServiceUnavailable, string(appErr.Code)
		default:
			return http.StatusInternalServerError, string(appErr.Code)
		}
	}
	return http.StatusInternalServerError, string(types.ErrInternal)
}

// GET /healthz
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"backend": s.app.HasBackend(),
		"ocr":     s.app.OCRAvailable(),
	})
}

// GET /languages
func (s *Server) handleLanguages(w http.ResponseWriter, r *http.Request) {
	langs := make([]LanguageInfo, 0, len(translator.SupportedLanguages))
	for _, code := range translator.SupportedLanguages {
		langs = append(langs, LanguageInfo{
			Code:   code,
			Name:   translator.LanguageName(code),
			Native: translator.NativeName(code),
		})
	}
	writeJSON(w, http.StatusOK, langs)
}

// GET /stats
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Stats())
}

// POST /info
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	data, _, err := s.readUpload(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	info, err := s.app.GetPDFInfo(data)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// POST /translate
func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	data, name, err := s.readUpload(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	req, err := formRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out, err := s.app.TranslatePDF(r.Context(), data, req, nil)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writePDF(w, "translated_"+name, out)
}

// POST /jobs
func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	data, name, err := s.readUpload(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	req, err := formRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	rec, err := s.app.SubmitJob(data, name, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/jobs/"+rec.ID)
	writeJSON(w, http.StatusAccepted, rec)
}

// GET /jobs
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.app.Jobs()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

// GET /jobs/{id}
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	rec, err := s.app.Job(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// GET /jobs/{id}/pdf
func (s *Server) handleJobPDF(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	out, err := s.app.JobOutput(id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	name := "translated.pdf"
	if rec, err := s.app.Job(id); err == nil && rec.FileName != "" {
		name = "translated_" + rec.FileName
	}
	writePDF(w, name, out)
}

// DELETE /jobs/{id}
func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	if err := s.app.DeleteJob(chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
