package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCache(t *testing.T) *Cache {
	t.Helper()
	c, err := New(filepath.Join(t.TempDir(), "cache"), 24, true)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return c
}

func TestNew(t *testing.T) {
	tmpDir := t.TempDir()

	c, err := New(filepath.Join(tmpDir, "cache"), 24, true)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if !c.Enabled() {
		t.Error("cache should be enabled")
	}

	c, err = New("", 0, false)
	if err != nil {
		t.Fatalf("New() error for disabled cache: %v", err)
	}
	if c.Enabled() {
		t.Error("cache should be disabled")
	}

	_, err = New(filepath.Join(tmpDir, "bad"), -1, true)
	assert.Error(t, err)
}

func TestNewCreatesDirectory(t *testing.T) {
	cacheDir := filepath.Join(t.TempDir(), "nested", "cache", "dir")

	_, err := New(cacheDir, 24, true)
	require.NoError(t, err)

	if _, err := os.Stat(cacheDir); os.IsNotExist(err) {
		t.Error("New() should create cache directory")
	}
}

func TestSetAndGet(t *testing.T) {
	c := newCache(t)

	key := Key([]byte("let a = 1;"), Fingerprint("passes=0"))
	data := []byte("let a = 1;\n")

	require.NoError(t, c.Set(key, data))

	got, ok := c.Get(key)
	if !ok {
		t.Fatal("Get() returned false for existing key")
	}
	assert.Equal(t, data, got)
}

func TestGetNonExistent(t *testing.T) {
	c := newCache(t)

	if _, ok := c.Get("missing"); ok {
		t.Error("Get() should return false for missing key")
	}
}

func TestSetOverwrites(t *testing.T) {
	c := newCache(t)

	require.NoError(t, c.Set("k", []byte("first")))
	require.NoError(t, c.Set("k", []byte("second")))

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "second", string(got))

	stats, err := c.GetStats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Entries, "temp files must not linger")
}

func TestInvalidate(t *testing.T) {
	c := newCache(t)

	require.NoError(t, c.Set("k", []byte("data")))
	require.NoError(t, c.Invalidate("k"))

	if _, ok := c.Get("k"); ok {
		t.Error("Get() should return false after Invalidate()")
	}
	assert.NoError(t, c.Invalidate("k"), "invalidating a missing entry is fine")
}

func TestClear(t *testing.T) {
	c := newCache(t)

	require.NoError(t, c.Set("a", []byte("1")))
	require.NoError(t, c.Set("b", []byte("2")))
	require.NoError(t, c.Clear())

	_, okA := c.Get("a")
	_, okB := c.Get("b")
	assert.False(t, okA)
	assert.False(t, okB)

	stats, err := c.GetStats()
	require.NoError(t, err)
	assert.Zero(t, stats.Entries)
}

func TestDisabledCache(t *testing.T) {
	c := Disabled()

	require.NoError(t, c.Set("k", []byte("data")))
	if _, ok := c.Get("k"); ok {
		t.Error("disabled cache should never hit")
	}
	assert.NoError(t, c.Invalidate("k"))
	assert.NoError(t, c.Clear())

	stats, err := c.GetStats()
	require.NoError(t, err)
	assert.Equal(t, &Stats{}, stats)

	var nilCache *Cache
	assert.False(t, nilCache.Enabled())
	_, ok := nilCache.Get("k")
	assert.False(t, ok)
}

func TestHashBytes(t *testing.T) {
	h1 := HashBytes([]byte("hello"))
	h2 := HashBytes([]byte("hello"))
	h3 := HashBytes([]byte("world"))

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.Len(t, h1, 64, "BLAKE3-256 hex digest")
}

func TestFingerprint(t *testing.T) {
	assert.Equal(t, Fingerprint("a", "b"), Fingerprint("a", "b"))
	assert.NotEqual(t, Fingerprint("ab", "c"), Fingerprint("a", "bc"))
	assert.NotEqual(t, Fingerprint("a"), Fingerprint("a", ""))
}

func TestKey(t *testing.T) {
	src := []byte("function f() {}")

	assert.Equal(t, Key(src, 1), Key(src, 1))
	assert.NotEqual(t, Key(src, 1), Key(src, 2), "settings change the key")
	assert.NotEqual(t, Key(src, 1), Key([]byte("function g() {}"), 1), "content changes the key")
}

func TestTTLExpiration(t *testing.T) {
	c := newCache(t)
	c.ttl = time.Hour

	stale, err := json.Marshal(Entry{
		Key:       "old",
		Timestamp: time.Now().Add(-2 * time.Hour),
		Data:      []byte("stale"),
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(c.keyPath("old"), stale, 0600))

	if _, ok := c.Get("old"); ok {
		t.Error("Get() should return false after TTL expires")
	}
	if _, err := os.Stat(c.keyPath("old")); !os.IsNotExist(err) {
		t.Error("expired entry should be removed")
	}
}

func TestZeroTTLNeverExpires(t *testing.T) {
	c, err := New(filepath.Join(t.TempDir(), "cache"), 0, true)
	require.NoError(t, err)

	old, err := json.Marshal(Entry{
		Key:       "old",
		Timestamp: time.Now().Add(-24 * 365 * time.Hour),
		Data:      []byte("kept"),
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(c.keyPath("old"), old, 0600))

	got, ok := c.Get("old")
	require.True(t, ok)
	assert.Equal(t, "kept", string(got))
}

func TestGetRejectsMismatchedKey(t *testing.T) {
	c := newCache(t)

	other, err := json.Marshal(Entry{Key: "other", Timestamp: time.Now(), Data: []byte("x")})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(c.keyPath("mine"), other, 0600))

	_, ok := c.Get("mine")
	assert.False(t, ok)
}

func TestGetCorruptEntry(t *testing.T) {
	c := newCache(t)

	require.NoError(t, os.WriteFile(c.keyPath("k"), []byte("not json"), 0600))
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestKeyPathSpecialCharacters(t *testing.T) {
	c := newCache(t)

	keys := []string{"../escape", "a/b/c", "with spaces", "unicode-ключ"}
	for _, key := range keys {
		path := c.keyPath(key)
		assert.Equal(t, c.dir, filepath.Dir(path), "key %q must stay inside the cache dir", key)

		require.NoError(t, c.Set(key, []byte(key)))
		got, ok := c.Get(key)
		require.True(t, ok)
		assert.Equal(t, key, string(got))
	}
}

func TestGetStats(t *testing.T) {
	c := newCache(t)

	require.NoError(t, c.Set("a", []byte("1")))
	require.NoError(t, c.Set("b", []byte("22")))

	stats, err := c.GetStats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Entries)
	assert.Positive(t, stats.TotalSize)
	assert.GreaterOrEqual(t, stats.OldestAge, stats.NewestAge)
}

func TestGetStatsAges(t *testing.T) {
	c := newCache(t)
	require.NoError(t, c.Set("a", []byte("1")))
	require.NoError(t, c.Set("b", []byte("2")))

	t.Run("same mtime", func(t *testing.T) {
		mtime := time.Now().Add(-time.Hour)
		require.NoError(t, os.Chtimes(c.keyPath("a"), mtime, mtime))
		require.NoError(t, os.Chtimes(c.keyPath("b"), mtime, mtime))

		stats, err := c.GetStats()
		require.NoError(t, err)
		assert.Equal(t, stats.OldestAge, stats.NewestAge)
		assert.GreaterOrEqual(t, stats.OldestAge, time.Hour)
	})

	t.Run("different mtimes", func(t *testing.T) {
		old := time.Now().Add(-2 * time.Hour)
		recent := time.Now().Add(-time.Hour)
		require.NoError(t, os.Chtimes(c.keyPath("a"), old, old))
		require.NoError(t, os.Chtimes(c.keyPath("b"), recent, recent))

		stats, err := c.GetStats()
		require.NoError(t, err)
		assert.Equal(t, time.Hour, (stats.OldestAge - stats.NewestAge).Round(time.Second))
	})
}

func TestConcurrentSet(t *testing.T) {
	c := newCache(t)

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.Set("shared", []byte("same output"))
		}()
	}
	wg.Wait()

	got, ok := c.Get("shared")
	require.True(t, ok)
	assert.Equal(t, "same output", string(got))
}
