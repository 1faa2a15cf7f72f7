package audio

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProbeJSON(t *testing.T) {
	raw := []byte(`{
		"format": {"format_name": "mov,mp4,m4a,3gp,3g2,mj2", "duration": "12.5", "bit_rate": "128000"},
		"streams": [
			{"codec_type": "video", "codec_name": "h264"},
			{"codec_type": "audio", "codec_name": "aac", "sample_rate": "44100", "channels": 2, "channel_layout": "stereo"}
		]
	}`)

	fi, err := parseProbeJSON(raw)
	require.NoError(t, err)

	assert.Equal(t, "mov", fi.Container)
	assert.Equal(t, "aac", fi.Codec)
	assert.Equal(t, 44100, fi.SampleRate)
	assert.Equal(t, 2, fi.Channels)
	assert.Equal(t, "stereo", fi.ChannelLayout)
	assert.Equal(t, 128000, fi.Bitrate)
	assert.Equal(t, 12500*time.Millisecond, fi.Duration)
	assert.True(t, fi.Valid())
}

func TestParseProbeJSONNoAudioStream(t *testing.T) {
	raw := []byte(`{"format": {"format_name": "mp4"}, "streams": [{"codec_type": "video", "codec_name": "h264"}]}`)

	fi, err := parseProbeJSON(raw)
	require.NoError(t, err)
	assert.False(t, fi.Valid())
}

func TestTranscodeArgsHintGating(t *testing.T) {
	valid := &FormatInfo{
		Format: "mp3", Container: "mp3", Codec: "mp3",
		SampleRate: 44100, Channels: 2, Bitrate: 192000,
	}
	args := transcodeArgs(streamFilter, valid)
	assert.Contains(t, args, "-acodec")
	assert.Contains(t, args, "mp3")
	// The explicit input format precedes the input; the output -f s16le
	// must stay last regardless.
	assert.Equal(t, "pipe:1", args[len(args)-1])

	// A partial probe result must not inject input flags.
	partial := &FormatInfo{Container: "mp3"}
	assert.NotContains(t, transcodeArgs(streamFilter, partial), "-acodec")

	noHint := transcodeArgs(streamFilter, nil)
	assert.NotContains(t, noHint, "-acodec")
	assert.Equal(t, []string{"-f", "s16le"}, noHint[len(noHint)-3:len(noHint)-1])
}

func TestClassifyConvertError(t *testing.T) {
	base := errors.New("exit status 1")

	err := classifyConvertError(base, "pipe:0: Invalid data found when processing input")
	assert.True(t, IsKind(err, KindUnsupportedFormat))

	err = classifyConvertError(base, "something else went wrong")
	assert.True(t, IsKind(err, KindProcessingFailed))
	assert.ErrorIs(t, err, base)
}
