package audio

import "time"

// FormatInfo describes a probed media stream. It is attached to cache
// entries and to pre-transcode streams so the transcoder can skip format
// auto-detection on headerless or ambiguous payloads.
type FormatInfo struct {
	Format        string        `json:"format"`
	Container     string        `json:"container"`
	Codec         string        `json:"codec"`
	SampleRate    int           `json:"sample_rate"`
	Channels      int           `json:"channels"`
	Bitrate       int           `json:"bitrate"`
	Duration      time.Duration `json:"duration,omitempty"`
	ChannelLayout string        `json:"channel_layout,omitempty"`
	BitDepth      int           `json:"bit_depth,omitempty"`
}

// Valid reports whether the probe produced enough information to drive
// the transcoder with explicit input flags.
func (f *FormatInfo) Valid() bool {
	if f == nil {
		return false
	}
	return f.Format != "" && f.Container != "" && f.Codec != "" &&
		f.SampleRate > 0 && f.Channels > 0 && f.Bitrate >= 0
}
