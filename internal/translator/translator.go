// Package translator translates short pieces of document text through a chat
// model backend. Results are cached per (source, target, text) and every failure
// degrades to returning the input unchanged.
package translator

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/euel88/law-chatbot/internal/logger"
)

// DefaultTimeout bounds a single backend call.
const DefaultTimeout = 60 * time.Second

// Config holds configuration options for creating a Translator
type Config struct {
	// Backend may be nil; the translator then passes text through unchanged.
	Backend    Backend
	Cache      Cache
	SourceLang string
	TargetLang string
	Timeout    time.Duration
}

// Stats counts translator outcomes since creation.
type Stats struct {
	Requests  int64 `json:"requests"`
	CacheHits int64 `json:"cache_hits"`
	Calls     int64 `json:"calls"`
	Failures  int64 `json:"failures"`
}

// Translator is safe for concurrent use.
type Translator struct {
	backend    Backend
	cache      Cache
	sourceLang string
	targetLang string
	timeout    time.Duration
	group      singleflight.Group

	requests  atomic.Int64
	cacheHits atomic.Int64
	calls     atomic.Int64
	failures  atomic.Int64
}

// New creates a Translator. A nil cache gets an in-memory one.
func New(cfg Config) *Translator {
	cache := cfg.Cache
	if cache == nil {
		cache = NewMemoryCache("")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	sourceLang := cfg.SourceLang
	if sourceLang == "" {
		sourceLang = "en"
	}
	targetLang := cfg.TargetLang
	if targetLang == "" {
		targetLang = "ko"
	}
	return &Translator{
		backend:    cfg.Backend,
		cache:      cache,
		sourceLang: sourceLang,
		targetLang: targetLang,
		timeout:    timeout,
	}
}

// HasBackend reports whether a translation backend is configured.
func (t *Translator) HasBackend() bool { return t.backend != nil }

// SourceLang returns the source language code.
func (t *Translator) SourceLang() string { return t.sourceLang }

// TargetLang returns the target language code.
func (t *Translator) TargetLang() string { return t.targetLang }

// Cache returns the underlying cache.
func (t *Translator) Cache() Cache { return t.cache }

// Stats returns a snapshot of the counters.
func (t *Translator) Stats() Stats {
	return Stats{
		Requests:  t.requests.Load(),
		CacheHits: t.cacheHits.Load(),
		Calls:     t.calls.Load(),
		Failures:  t.failures.Load(),
	}
}

// TranslateText returns the translation of text, or text itself when it is
// blank, no backend is configured, or the backend fails or times out.
// Concurrent requests for the same text share one backend call.
func (t *Translator) TranslateText(ctx context.Context, text string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	t.requests.Add(1)

	key := CacheKey(t.sourceLang, t.targetLang, text)
	if cached, ok := t.cache.Get(key); ok {
		t.cacheHits.Add(1)
		return cached
	}
	if t.backend == nil {
		return text
	}

	v, _, _ := t.group.Do(key, func() (interface{}, error) {
		if cached, ok := t.cache.Get(key); ok {
			t.cacheHits.Add(1)
			return cached, nil
		}
		return t.callBackend(ctx, key, text), nil
	})
	return v.(string)
}

func (t *Translator) callBackend(ctx context.Context, key, text string) string {
	callCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	t.calls.Add(1)
	start := time.Now()
	translated, err := t.backend.Translate(callCtx, text, t.sourceLang, t.targetLang)
	if err != nil {
		t.failures.Add(1)
		logger.Warn("translation failed, keeping original text",
			logger.Err(err),
			logger.Int("length", len(text)),
			logger.Duration("elapsed", time.Since(start)))
		return text
	}

	t.cache.Set(key, translated)
	return translated
}
