// Package downloader fetches PDF documents over HTTP(S) so they can be
// translated from a URL instead of a local file.
package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/euel88/law-chatbot/internal/logger"
	"github.com/euel88/law-chatbot/internal/types"
)

const (
	// DefaultTimeout bounds a single download attempt.
	DefaultTimeout = 120 * time.Second
	// MaxRetries is the maximum number of attempts for retryable failures.
	MaxRetries = 3
	// BaseRetryDelay is multiplied by the attempt number between retries.
	BaseRetryDelay = 2 * time.Second
	// DefaultMaxBytes is the largest document accepted.
	DefaultMaxBytes = 64 << 20

	userAgent = "pdftrans/1.0"
)

// Downloader fetches documents with retries.
type Downloader struct {
	httpClient *http.Client
	maxBytes   int64
	retryDelay time.Duration
}

// New creates a Downloader. A zero timeout uses DefaultTimeout.
func New(timeout time.Duration) *Downloader {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Downloader{
		httpClient: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return types.NewAppError(types.ErrNetwork, "too many redirects", nil)
				}
				return nil
			},
		},
		maxBytes:   DefaultMaxBytes,
		retryDelay: BaseRetryDelay,
	}
}

// SetMaxBytes changes the size limit.
func (d *Downloader) SetMaxBytes(n int64) {
	if n > 0 {
		d.maxBytes = n
	}
}

// IsURL reports whether s is an http or https URL.
func IsURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Fetch downloads rawURL and returns its body and a file name derived from the
// URL path.
func (d *Downloader) Fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	logger.Info("downloading document", logger.String("url", rawURL))
	if !IsURL(rawURL) {
		return nil, "", types.NewAppErrorWithDetails(types.ErrInvalidInput, "not an http(s) URL", rawURL, nil)
	}

	var lastErr error
	for attempt := 1; attempt <= MaxRetries; attempt++ {
		logger.Debug("download attempt", logger.Int("attempt", attempt), logger.String("url", rawURL))
		data, err := d.fetchOnce(ctx, rawURL)
		if err == nil {
			logger.Info("download complete", logger.String("url", rawURL), logger.Int("bytes", len(data)))
			return data, fileNameFromURL(rawURL), nil
		}

		lastErr = err
		logger.Warn("download attempt failed", logger.Int("attempt", attempt), logger.Err(err))
		if !isRetryableError(err) || ctx.Err() != nil {
			return nil, "", err
		}

		if attempt < MaxRetries {
			select {
			case <-ctx.Done():
				return nil, "", types.NewAppError(types.ErrNetwork, "download cancelled", ctx.Err())
			case <-time.After(d.retryDelay * time.Duration(attempt)):
			}
		}
	}

	logger.Error("download failed after all retries", lastErr, logger.String("url", rawURL), logger.Int("maxRetries", MaxRetries))
	return nil, "", types.NewAppErrorWithDetails(
		types.ErrNetwork,
		"download failed after multiple retries",
		fmt.Sprintf("attempted %d times", MaxRetries),
		lastErr,
	)
}

func (d *Downloader) fetchOnce(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, types.NewAppError(types.ErrInvalidInput, "failed to create HTTP request", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/pdf, */*;q=0.5")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, types.NewAppError(types.ErrNetwork, "network request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, handleHTTPError(resp.StatusCode, rawURL)
	}
	if resp.ContentLength > d.maxBytes {
		return nil, tooLarge(d.maxBytes)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, d.maxBytes+1))
	if err != nil {
		return nil, types.NewAppError(types.ErrNetwork, "failed to read response body", err)
	}
	if int64(len(data)) > d.maxBytes {
		return nil, tooLarge(d.maxBytes)
	}
	return data, nil
}

func tooLarge(limit int64) error {
	return types.NewAppErrorWithDetails(types.ErrDownload, "document too large", fmt.Sprintf("limit is %d bytes", limit), nil)
}

// fileNameFromURL returns the last path segment, with ".pdf" added when it
// has no extension.
func fileNameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "download.pdf"
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return "download.pdf"
	}
	if path.Ext(name) == "" {
		name += ".pdf"
	}
	return name
}

// handleHTTPError maps a non-200 status onto an AppError.
func handleHTTPError(statusCode int, rawURL string) error {
	details := fmt.Sprintf("URL: %s returned %d", rawURL, statusCode)
	switch {
	case statusCode == http.StatusNotFound:
		return types.NewAppErrorWithDetails(types.ErrNotFound, "resource not found", details, nil)
	case statusCode == http.StatusForbidden || statusCode == http.StatusUnauthorized:
		return types.NewAppErrorWithDetails(types.ErrDownload, "access forbidden", details, nil)
	case statusCode == http.StatusTooManyRequests || statusCode >= 500:
		return types.NewAppErrorWithDetails(types.ErrNetwork, "server unavailable", details, nil)
	default:
		return types.NewAppErrorWithDetails(types.ErrDownload, "download failed", details, nil)
	}
}

// isRetryableError reports whether another attempt may succeed.
func isRetryableError(err error) bool {
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		return appErr.Code == types.ErrNetwork
	}
	return err != nil && !errors.Is(err, context.Canceled)
}
