package translator

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestCacheKey(t *testing.T) {
	if got := CacheKey("en", "ko", "Hello"); got != "en_ko_Hello" {
		t.Errorf("unexpected key %q", got)
	}
	if HashKey("a") == HashKey("b") {
		t.Error("distinct keys must hash differently")
	}
	if len(HashKey("a")) != 64 {
		t.Error("expected hex sha256")
	}
}

func TestMemoryCache_GetSet(t *testing.T) {
	c := NewMemoryCache("")

	if _, ok := c.Get("missing"); ok {
		t.Error("expected miss")
	}
	c.Set("k", "v1")
	c.Set("k", "v2")
	if got, ok := c.Get("k"); !ok || got != "v2" {
		t.Errorf("expected v2, got %q (%v)", got, ok)
	}
	if c.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", c.Len())
	}
	c.Clear()
	if c.Len() != 0 {
		t.Error("Clear left entries behind")
	}
}

func TestMemoryCache_Persistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache", "translations.json")

	c := NewMemoryCache(path)
	c.Set(CacheKey("en", "ko", "Introduction"), "서론")
	c.Set(CacheKey("en", "ko", "Page 1"), "1쪽")
	if err := c.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded := NewMemoryCache(path)
	if err := loaded.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", loaded.Len())
	}
	if got, _ := loaded.Get(CacheKey("en", "ko", "Introduction")); got != "서론" {
		t.Errorf("unexpected translation %q", got)
	}
}

func TestMemoryCache_LoadEdgeCases(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file is empty cache", func(t *testing.T) {
		c := NewMemoryCache(filepath.Join(dir, "absent.json"))
		if err := c.Load(); err != nil {
			t.Errorf("unexpected error %v", err)
		}
	})

	t.Run("corrupt file is an error", func(t *testing.T) {
		path := filepath.Join(dir, "corrupt.json")
		os.WriteFile(path, []byte("{not json"), 0644)
		if err := NewMemoryCache(path).Load(); err == nil {
			t.Error("expected parse error")
		}
	})

	t.Run("empty path never touches disk", func(t *testing.T) {
		c := NewMemoryCache("")
		c.Set("k", "v")
		if err := c.Save(); err != nil {
			t.Error(err)
		}
		if err := c.Load(); err != nil {
			t.Error(err)
		}
	})
}

func TestMemoryCache_Concurrent(t *testing.T) {
	c := NewMemoryCache("")
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i%10)
			c.Set(key, "v")
			c.Get(key)
		}(i)
	}
	wg.Wait()
	if c.Len() != 10 {
		t.Errorf("expected 10 keys, got %d", c.Len())
	}
}

func TestSQLiteCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")

	c, err := OpenSQLiteCache(path)
	if err != nil {
		t.Fatalf("OpenSQLiteCache failed: %v", err)
	}

	key := CacheKey("en", "ko", "Abstract")
	if _, ok := c.Get(key); ok {
		t.Error("expected miss on empty database")
	}
	c.Set(key, "초록")
	c.Set(key, "요약")
	if got, ok := c.Get(key); !ok || got != "요약" {
		t.Errorf("expected upserted value, got %q (%v)", got, ok)
	}
	if c.Len() != 1 {
		t.Errorf("expected 1 row, got %d", c.Len())
	}
	c.Close()

	reopened, err := OpenSQLiteCache(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()
	if got, _ := reopened.Get(key); got != "요약" {
		t.Errorf("translation did not persist, got %q", got)
	}

	removed, err := reopened.Prune(-time.Hour)
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if removed != 1 || reopened.Len() != 0 {
		t.Errorf("expected prune to remove the row, removed=%d len=%d", removed, reopened.Len())
	}
}

func TestSQLiteCache_InMemory(t *testing.T) {
	c, err := OpenSQLiteCache(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLiteCache failed: %v", err)
	}
	defer c.Close()

	tr := New(Config{Backend: &upperBackend{}, Cache: c})
	tr.TranslateText(t.Context(), "cached through sqlite")
	if got, ok := c.Get(CacheKey("en", "ko", "cached through sqlite")); !ok || got != "CACHED THROUGH SQLITE" {
		t.Errorf("unexpected cache content %q (%v)", got, ok)
	}
}
