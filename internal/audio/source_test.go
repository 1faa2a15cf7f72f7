package audio_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chimebot/chime/internal/audio"
)

func TestResolveCatalogName(t *testing.T) {
	desc := audio.Resolve("airhorn")

	assert.Equal(t, audio.SourceCatalog, desc.Kind)
	assert.Equal(t, "airhorn", desc.Locator)
	assert.Empty(t, desc.VideoID)
}

func TestResolveDirectURL(t *testing.T) {
	desc := audio.Resolve("https://example.com/clip.mp3")

	assert.Equal(t, audio.SourceURL, desc.Kind)
	assert.Equal(t, "https://example.com/clip.mp3", desc.Locator)
}

func TestResolveStreamingURL(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		videoID string
	}{
		{"watch URL", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"short URL", "https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"shorts URL", "https://youtube.com/shorts/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"music URL", "https://music.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desc := audio.Resolve(tt.input)

			assert.Equal(t, audio.SourceYouTube, desc.Kind)
			assert.Equal(t, tt.videoID, desc.VideoID)
		})
	}
}

func TestResolveStreamingURLWithoutVideoID(t *testing.T) {
	// A streaming-host URL whose video id cannot be extracted still
	// resolves, it just cannot use the id-based cache key.
	desc := audio.Resolve("https://www.youtube.com/playlist?list=abc")

	assert.Equal(t, audio.SourceYouTube, desc.Kind)
	assert.Empty(t, desc.VideoID)
}

func TestCacheKeyYouTube(t *testing.T) {
	desc := audio.Resolve("https://youtu.be/dQw4w9WgXcQ")

	assert.Equal(t, "yt_dQw4w9WgXcQ", audio.CacheKey(desc))
}

func TestCacheKeyDirectURLIsStable(t *testing.T) {
	a := audio.CacheKey(audio.Resolve("https://example.com/a.mp3"))
	b := audio.CacheKey(audio.Resolve("https://example.com/a.mp3"))
	c := audio.CacheKey(audio.Resolve("https://example.com/b.mp3"))

	require.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, len("url_")+16)
}

func TestCacheKeySameVideoDifferentURLForms(t *testing.T) {
	long := audio.CacheKey(audio.Resolve("https://www.youtube.com/watch?v=dQw4w9WgXcQ"))
	short := audio.CacheKey(audio.Resolve("https://youtu.be/dQw4w9WgXcQ"))

	assert.Equal(t, long, short)
}
