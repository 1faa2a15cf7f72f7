// Package audio implements the media pipeline: source resolution, download,
// caching, transcoding to canonical PCM, prebuffering and sequencing.
package audio

import (
	"context"
	"time"

	"go.uber.org/fx"
)

// cacheJanitorInterval is how often the cache sheds expired entries while
// the application runs.
const cacheJanitorInterval = time.Hour

// Module provides the audio pipeline components.
var Module = fx.Module("audio",
	fx.Provide(
		NewCache,
		NewClipCache,
		NewDownloader,
		NewTranscoder,
		NewPrebuffer,
		NewSequencer,
	),
	fx.Invoke(registerCacheJanitor),
)

func registerCacheJanitor(lc fx.Lifecycle, cache *Cache) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				cache.Janitor(ctx, cacheJanitorInterval)
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			<-done
			return nil
		},
	})
}
