package audio

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"regexp"
	"strings"
)

// SourceKind is the closed set of playback source types. Downstream
// consumers switch exhaustively on it; there is no silent fallthrough.
type SourceKind int

const (
	// SourceCatalog names a sound from the local catalog.
	SourceCatalog SourceKind = iota
	// SourceURL is a direct http(s) link to an audio payload.
	SourceURL
	// SourceYouTube is a streaming-video locator fetched through the
	// external downloader.
	SourceYouTube
)

func (k SourceKind) String() string {
	switch k {
	case SourceCatalog:
		return "catalog"
	case SourceURL:
		return "url"
	case SourceYouTube:
		return "youtube"
	default:
		return "unknown"
	}
}

// SourceOptions carries optional per-request encoding overrides.
type SourceOptions struct {
	SampleRate int
	Channels   int
	Bitrate    int
	Codec      string
}

// SourceDescriptor is the immutable, typed form of a raw playback request.
type SourceDescriptor struct {
	Kind    SourceKind
	Locator string
	// VideoID is set for SourceYouTube locators with a recognizable id.
	VideoID string
	Options *SourceOptions
}

var videoIDPattern = regexp.MustCompile(`(?:v=|youtu\.be/|/shorts/|/embed/)([A-Za-z0-9_-]{11})`)

var streamingHosts = []string{
	"youtube.com",
	"youtu.be",
	"music.youtube.com",
}

// Resolve classifies a raw playback request string. It is pure and total:
// unrecognized strings default to the catalog and are resolved later by
// catalog lookup.
func Resolve(input string) SourceDescriptor {
	input = strings.TrimSpace(input)

	if !strings.HasPrefix(input, "http://") && !strings.HasPrefix(input, "https://") {
		return SourceDescriptor{Kind: SourceCatalog, Locator: input}
	}

	if isStreamingHost(input) {
		return SourceDescriptor{
			Kind:    SourceYouTube,
			Locator: input,
			VideoID: ExtractVideoID(input),
		}
	}

	return SourceDescriptor{Kind: SourceURL, Locator: input}
}

func isStreamingHost(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.ToLower(strings.TrimPrefix(u.Hostname(), "www."))
	for _, h := range streamingHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

// ExtractVideoID pulls the 11-character video id out of a streaming URL,
// or returns "" when none is recognizable.
func ExtractVideoID(rawURL string) string {
	m := videoIDPattern.FindStringSubmatch(rawURL)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

// CacheKey derives the stable cache key for a remote source. Streaming-video
// locators with a recognizable id collapse to yt_<id> so that URL variants of
// the same video share one cache entry; everything else hashes the locator.
func CacheKey(desc SourceDescriptor) string {
	if desc.Kind == SourceYouTube && desc.VideoID != "" {
		return "yt_" + desc.VideoID
	}
	sum := sha256.Sum256([]byte(desc.Locator))
	return "url_" + hex.EncodeToString(sum[:])[:16]
}
