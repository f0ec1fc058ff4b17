package translator

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/euel88/law-chatbot/internal/logger"
	"github.com/euel88/law-chatbot/internal/types"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS translations (
	key_hash    TEXT PRIMARY KEY,
	cache_key   TEXT NOT NULL,
	translation TEXT NOT NULL,
	created_at  INTEGER NOT NULL
)`

// SQLiteCache persists translations in a SQLite database so repeated runs
// over the same documents skip the backend entirely.
type SQLiteCache struct {
	db   *sql.DB
	path string
}

// OpenSQLiteCache opens (or creates) the cache database at path.
// ":memory:" gives a private in-memory database.
func OpenSQLiteCache(path string) (*SQLiteCache, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, types.NewAppError(types.ErrStorage, "failed to create cache directory", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, types.NewAppError(types.ErrStorage, "failed to open cache database", err)
	}
	// A single connection keeps ":memory:" databases shared and serialises writers.
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
		sqliteSchema,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, types.NewAppErrorWithDetails(types.ErrStorage, "failed to initialise cache database", stmt, err)
		}
	}

	logger.Debug("sqlite translation cache opened", logger.String("path", path))
	return &SQLiteCache{db: db, path: path}, nil
}

// Get returns the cached translation for key. Database errors count as misses.
func (c *SQLiteCache) Get(key string) (string, bool) {
	var translation string
	err := c.db.QueryRow(`SELECT translation FROM translations WHERE key_hash = ?`, HashKey(key)).Scan(&translation)
	if err == sql.ErrNoRows {
		return "", false
	}
	if err != nil {
		logger.Warn("sqlite cache lookup failed", logger.Err(err))
		return "", false
	}
	return translation, true
}

// Set stores or replaces the translation for key.
func (c *SQLiteCache) Set(key, translation string) {
	_, err := c.db.Exec(`
		INSERT INTO translations (key_hash, cache_key, translation, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key_hash) DO UPDATE SET translation = excluded.translation, created_at = excluded.created_at`,
		HashKey(key), key, translation, time.Now().Unix())
	if err != nil {
		logger.Warn("sqlite cache write failed", logger.Err(err))
	}
}

// Len returns the number of stored translations, or 0 on error.
func (c *SQLiteCache) Len() int {
	var n int
	if err := c.db.QueryRow(`SELECT COUNT(*) FROM translations`).Scan(&n); err != nil {
		logger.Warn("sqlite cache count failed", logger.Err(err))
		return 0
	}
	return n
}

// Prune deletes entries older than maxAge and returns how many were removed.
func (c *SQLiteCache) Prune(maxAge time.Duration) (int64, error) {
	res, err := c.db.Exec(`DELETE FROM translations WHERE created_at < ?`, time.Now().Add(-maxAge).Unix())
	if err != nil {
		return 0, fmt.Errorf("prune translations: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database.
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}
