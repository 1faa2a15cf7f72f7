package audio

import (
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/chimebot/chime/internal/config"
)

// ClipCache keeps recently used fully-processed PCM payloads in memory so
// repeated catalog plays skip the transcode entirely. Backed by a fixed-size
// LRU; evicted entries are simply re-transcoded on next use.
type ClipCache struct {
	logger *zap.Logger
	cache  *lru.Cache[string, []byte]
}

// NewClipCache creates a ClipCache sized from configuration.
func NewClipCache(logger *zap.Logger, cfg *config.Config) (*ClipCache, error) {
	cache, err := lru.New[string, []byte](cfg.Audio.ClipCacheSize)
	if err != nil {
		return nil, err
	}
	return &ClipCache{logger: logger, cache: cache}, nil
}

// Get returns the cached PCM for key, if present.
func (c *ClipCache) Get(key string) ([]byte, bool) {
	return c.cache.Get(key)
}

// Put stores pcm under key. Callers must not mutate pcm afterwards.
func (c *ClipCache) Put(key string, pcm []byte) {
	evicted := c.cache.Add(key, pcm)
	c.logger.Debug("Cached processed clip",
		zap.String("key", key),
		zap.Int("pcmBytes", len(pcm)),
		zap.Bool("evicted", evicted))
}

// Len reports the number of cached clips.
func (c *ClipCache) Len() int {
	return c.cache.Len()
}
