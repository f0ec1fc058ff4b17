package translator

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/euel88/law-chatbot/internal/types"
)

// Cache stores translations by CacheKey. Implementations must be safe for
// concurrent use.
type Cache interface {
	Get(key string) (string, bool)
	Set(key, translation string)
	Len() int
}

// CacheKey builds the lookup key for one (source, target, text) triple.
func CacheKey(sourceLang, targetLang, text string) string {
	return sourceLang + "_" + targetLang + "_" + text
}

// HashKey returns the hex SHA-256 of a cache key, used as the storage address.
func HashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// CacheEntry is one persisted translation.
type CacheEntry struct {
	Hash        string    `json:"hash"`
	Key         string    `json:"key"`
	Translation string    `json:"translation"`
	CreatedAt   time.Time `json:"created_at"`
}

type cacheFile struct {
	Version string       `json:"version"`
	Entries []CacheEntry `json:"entries"`
}

const cacheFileVersion = "1.0"

// MemoryCache is a mutex-guarded map with optional JSON persistence.
type MemoryCache struct {
	path    string
	entries map[string]CacheEntry
	mu      sync.RWMutex
}

// NewMemoryCache creates a cache persisted at path; an empty path keeps it in memory only.
func NewMemoryCache(path string) *MemoryCache {
	return &MemoryCache{
		path:    path,
		entries: make(map[string]CacheEntry),
	}
}

// Get returns the cached translation for key.
func (c *MemoryCache) Get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[HashKey(key)]
	if !ok {
		return "", false
	}
	return entry.Translation, true
}

// Set stores a translation for key.
func (c *MemoryCache) Set(key, translation string) {
	hash := HashKey(key)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[hash] = CacheEntry{
		Hash:        hash,
		Key:         key,
		Translation: translation,
		CreatedAt:   time.Now(),
	}
}

// Len returns the number of cached translations.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear removes every entry.
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]CacheEntry)
}

// Path returns the persistence path.
func (c *MemoryCache) Path() string {
	return c.path
}

// Load replaces the in-memory entries with the file contents. A missing file is
// not an error.
func (c *MemoryCache) Load() error {
	if c.path == "" {
		return nil
	}

	data, err := os.ReadFile(c.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return types.NewAppError(types.ErrStorage, "failed to read cache file", err)
	}

	var file cacheFile
	if err := json.Unmarshal(data, &file); err != nil {
		return types.NewAppError(types.ErrStorage, "failed to parse cache file", err)
	}

	entries := make(map[string]CacheEntry, len(file.Entries))
	for _, entry := range file.Entries {
		if entry.Hash == "" {
			entry.Hash = HashKey(entry.Key)
		}
		entries[entry.Hash] = entry
	}

	c.mu.Lock()
	c.entries = entries
	c.mu.Unlock()
	return nil
}

// Save writes all entries to the cache file.
func (c *MemoryCache) Save() error {
	if c.path == "" {
		return nil
	}

	c.mu.RLock()
	file := cacheFile{Version: cacheFileVersion, Entries: make([]CacheEntry, 0, len(c.entries))}
	for _, entry := range c.entries {
		file.Entries = append(file.Entries, entry)
	}
	c.mu.RUnlock()

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return types.NewAppError(types.ErrStorage, "failed to marshal cache", err)
	}
	if dir := filepath.Dir(c.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return types.NewAppError(types.ErrStorage, "failed to create cache directory", err)
		}
	}
	if err := os.WriteFile(c.path, data, 0644); err != nil {
		return types.NewAppError(types.ErrStorage, "failed to write cache file", err)
	}
	return nil
}
