package audio

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/chimebot/chime/internal/config"
)

const (
	cacheExt = ".cache"
	metaExt  = ".meta.json"
)

// cacheSidecar is the JSON layout of the <key>.meta.json file.
type cacheSidecar struct {
	FormatInfo *FormatInfo `json:"format_info,omitempty"`
	CachedAt   time.Time   `json:"cached_at"`
}

// Cache is a file-backed store for downloaded remote audio, keyed by source
// locator. Entries expire after a TTL and total size is bounded by evicting
// the oldest entries after every write. Caching is a performance layer:
// every I/O failure degrades to a miss or a skipped eviction, never to a
// playback error.
type Cache struct {
	logger   *zap.Logger
	dir      string
	ttl      time.Duration
	maxBytes int64

	// evictMu serializes size-eviction passes; concurrent writers may
	// transiently overshoot the budget between passes.
	evictMu sync.Mutex
}

// NewCache creates the cache, ensuring its directory exists.
func NewCache(logger *zap.Logger, cfg *config.Config) (*Cache, error) {
	dir := cfg.Audio.CacheDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	return &Cache{
		logger:   logger,
		dir:      dir,
		ttl:      cfg.Audio.CacheTTL(),
		maxBytes: cfg.Audio.MaxCacheBytes(),
	}, nil
}

// Get returns a stream over the cached payload for desc, plus sidecar format
// info when present and parseable. ok is false on a miss or an expired entry;
// expired entries are deleted best-effort.
func (c *Cache) Get(desc SourceDescriptor) (io.ReadCloser, *FormatInfo, bool) {
	key := CacheKey(desc)
	payloadPath := filepath.Join(c.dir, key+cacheExt)

	st, err := os.Stat(payloadPath)
	if err != nil {
		return nil, nil, false
	}

	if time.Since(st.ModTime()) > c.ttl {
		c.removeEntry(key)
		c.logger.Debug("Cache entry expired",
			zap.String("key", key),
			zap.Time("mtime", st.ModTime()))
		return nil, nil, false
	}

	f, err := os.Open(payloadPath)
	if err != nil {
		c.logger.Warn("Failed to open cache payload, treating as miss",
			zap.String("key", key), zap.Error(err))
		return nil, nil, false
	}

	return f, c.readSidecar(key), true
}

// Put writes the payload (temp-then-rename) and an optional format sidecar,
// then runs size eviction. Eviction failures never fail the put.
func (c *Cache) Put(desc SourceDescriptor, r io.Reader, fi *FormatInfo) error {
	key := CacheKey(desc)
	payloadPath := filepath.Join(c.dir, key+cacheExt)

	tmp, err := os.CreateTemp(c.dir, key+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, payloadPath); err != nil {
		os.Remove(tmpName)
		return err
	}

	c.writeSidecar(key, fi)

	c.evictOverBudget()

	c.logger.Debug("Cached audio payload",
		zap.String("key", key),
		zap.String("locator", desc.Locator))

	return nil
}

// EvictExpired deletes every entry older than the TTL, running deletions
// concurrently, and returns the number of entries removed. Per-file errors
// are isolated and logged.
func (c *Cache) EvictExpired(ctx context.Context) int {
	entries, err := c.listEntries()
	if err != nil {
		c.logger.Warn("Failed to list cache directory for expiry sweep", zap.Error(err))
		return 0
	}

	var removed atomic.Int64
	var wg sync.WaitGroup
	for _, e := range entries {
		if ctx.Err() != nil {
			break
		}
		if time.Since(e.mtime) <= c.ttl {
			continue
		}
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			if c.removeEntry(key) {
				removed.Add(1)
			}
		}(e.key)
	}
	wg.Wait()

	if n := removed.Load(); n > 0 {
		c.logger.Info("Evicted expired cache entries", zap.Int64("count", n))
		return int(n)
	}
	return 0
}

// Janitor runs an expiry sweep every interval until ctx is cancelled. One
// sweep runs immediately so stale entries from a previous run do not linger
// a full interval after startup.
func (c *Cache) Janitor(ctx context.Context, interval time.Duration) {
	c.EvictExpired(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.EvictExpired(ctx)
		}
	}
}

type cacheEntryInfo struct {
	key   string
	size  int64
	mtime time.Time
}

func (c *Cache) listEntries() ([]cacheEntryInfo, error) {
	dirEntries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, err
	}

	entries := make([]cacheEntryInfo, 0, len(dirEntries))
	for _, de := range dirEntries {
		name := de.Name()
		if !strings.HasSuffix(name, cacheExt) {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		key := strings.TrimSuffix(name, cacheExt)
		size := info.Size()
		if st, err := os.Stat(filepath.Join(c.dir, key+metaExt)); err == nil {
			size += st.Size()
		}
		entries = append(entries, cacheEntryInfo{key: key, size: size, mtime: info.ModTime()})
	}
	return entries, nil
}

// evictOverBudget deletes entries in ascending mtime order until the total
// cache size fits the configured byte budget.
func (c *Cache) evictOverBudget() {
	c.evictMu.Lock()
	defer c.evictMu.Unlock()

	entries, err := c.listEntries()
	if err != nil {
		c.logger.Warn("Failed to list cache directory for size eviction", zap.Error(err))
		return
	}

	var total int64
	for _, e := range entries {
		total += e.size
	}
	if total <= c.maxBytes {
		return
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].mtime.Before(entries[j].mtime)
	})

	for _, e := range entries {
		if total <= c.maxBytes {
			break
		}
		if !c.removeEntry(e.key) {
			continue
		}
		total -= e.size
		c.logger.Debug("Evicted cache entry over size budget",
			zap.String("key", e.key),
			zap.Int64("freed_bytes", e.size),
			zap.Int64("remaining_bytes", total))
	}
}

// removeEntry deletes both payload and sidecar, best-effort. It reports
// whether the payload was actually removed by this call.
func (c *Cache) removeEntry(key string) bool {
	payloadErr := os.Remove(filepath.Join(c.dir, key+cacheExt))
	if err := os.Remove(filepath.Join(c.dir, key+metaExt)); err != nil && !os.IsNotExist(err) {
		c.logger.Debug("Failed to remove cache sidecar", zap.String("key", key), zap.Error(err))
	}
	if payloadErr != nil {
		if !os.IsNotExist(payloadErr) {
			c.logger.Warn("Failed to remove cache payload",
				zap.String("key", key), zap.Error(payloadErr))
		}
		return false
	}
	return true
}

func (c *Cache) readSidecar(key string) *FormatInfo {
	data, err := os.ReadFile(filepath.Join(c.dir, key+metaExt))
	if err != nil {
		return nil
	}

	var sc cacheSidecar
	if err := json.Unmarshal(data, &sc); err != nil {
		// Malformed metadata is not a cache miss, the payload is still good.
		c.logger.Warn("Malformed cache sidecar, ignoring metadata",
			zap.String("key", key), zap.Error(err))
		return nil
	}
	return sc.FormatInfo
}

func (c *Cache) writeSidecar(key string, fi *FormatInfo) {
	if fi == nil {
		return
	}
	data, err := json.Marshal(cacheSidecar{FormatInfo: fi, CachedAt: time.Now()})
	if err != nil {
		c.logger.Warn("Failed to encode cache sidecar", zap.String("key", key), zap.Error(err))
		return
	}
	if err := os.WriteFile(filepath.Join(c.dir, key+metaExt), data, 0o644); err != nil {
		c.logger.Warn("Failed to write cache sidecar", zap.String("key", key), zap.Error(err))
	}
}
