package audio

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	pcmfmt "github.com/chimebot/chime/pkg/audio"
)

// loudnormFilter is the two-pass-free normalization chain used on the
// full-quality path. The resample keeps the output locked to the canonical
// rate regardless of what the filter emits.
const loudnormFilter = "loudnorm=I=-16:TP=-1.5:LRA=11,aresample=48000"

const streamFilter = "aresample=48000"

// Transcoder converts arbitrary compressed audio into canonical PCM
// (48 kHz, stereo, signed 16-bit little-endian) by piping it through an
// external ffmpeg process.
type Transcoder struct {
	logger *zap.Logger
}

// NewTranscoder creates a Transcoder.
func NewTranscoder(logger *zap.Logger) *Transcoder {
	return &Transcoder{logger: logger}
}

// transcodeArgs builds the converter invocation. Input flags come from the
// hint only when the probe produced a complete picture; a partial hint is
// worse than autodetection on headerless streams.
func transcodeArgs(filter string, hint *FormatInfo) []string {
	args := []string{"-hide_banner", "-loglevel", "error"}
	if hint.Valid() {
		args = append(args, "-f", hint.Container, "-acodec", hint.Codec)
	}
	args = append(args, "-i", "pipe:0")
	args = append(args, "-vn", "-af", filter, "-ac", "2", "-ar", "48000")
	args = append(args, "-f", "s16le", "pipe:1")
	return args
}

// DeepProcess decodes in full, applies loudness normalization and returns
// the complete canonical PCM payload. Identical input yields identical
// output, which is what makes the result cacheable.
func (t *Transcoder) DeepProcess(ctx context.Context, in io.Reader, hint *FormatInfo) ([]byte, error) {
	input, err := io.ReadAll(in)
	if err != nil {
		return nil, WrapError(KindCorruptedStream, "reading source stream", err)
	}
	if len(input) == 0 {
		return nil, NewError(KindCorruptedStream, "empty source stream")
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", transcodeArgs(loudnormFilter, hint)...)
	cmd.Stdin = bytes.NewReader(input)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		return nil, classifyConvertError(err, stderr.String())
	}
	if out.Len() == 0 {
		return nil, &Error{Kind: KindCorruptedStream, Detail: "converter produced no output", Bytes: int64(len(input))}
	}

	// Truncate to a whole sample frame so downstream mixing never sees a
	// torn 16-bit pair.
	pcm := out.Bytes()
	pcm = pcm[:len(pcm)-len(pcm)%(pcmfmt.Channels*pcmfmt.BytesPerSample)]

	t.logger.Debug("Deep processed audio",
		zap.Int("inputBytes", len(input)),
		zap.Int("pcmBytes", len(pcm)),
		zap.Duration("took", time.Since(start)))

	return pcm, nil
}

// StreamProcess starts a low-latency conversion of in and returns the PCM
// output as a stream. No normalization is applied; first output bytes are
// available while the source is still downloading. Closing the returned
// stream releases the process and the source reader.
func (t *Transcoder) StreamProcess(ctx context.Context, in io.ReadCloser, hint *FormatInfo) (io.ReadCloser, error) {
	procCtx, cancel := context.WithCancel(ctx)

	cmd := exec.CommandContext(procCtx, "ffmpeg", transcodeArgs(streamFilter, hint)...)
	cmd.Stdin = in
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, WrapError(KindProcessingFailed, "converter stdout pipe", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, WrapError(KindProcessingFailed, "converter spawn failed", err)
	}

	return &convertStream{
		stdout: stdout,
		src:    in,
		cmd:    cmd,
		cancel: cancel,
		stderr: &stderr,
	}, nil
}

// Probe inspects up to the whole of in with ffprobe and reports the
// detected container and audio stream parameters.
func (t *Transcoder) Probe(ctx context.Context, in io.Reader) (*FormatInfo, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-hide_banner", "-loglevel", "error",
		"-print_format", "json",
		"-show_format", "-show_streams",
		"-i", "pipe:0")
	cmd.Stdin = in
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, &Error{
			Kind:   KindFormatDetectionFailed,
			Detail: tailOf(stderr.String(), 256),
			Err:    err,
		}
	}

	fi, err := parseProbeJSON(out.Bytes())
	if err != nil {
		return nil, WrapError(KindFormatDetectionFailed, "parsing probe output", err)
	}
	if !fi.Valid() {
		return nil, NewError(KindFormatDetectionFailed, "probe found no usable audio stream")
	}
	return fi, nil
}

func classifyConvertError(err error, stderr string) error {
	detail := tailOf(stderr, 256)
	lower := strings.ToLower(stderr)
	kind := KindProcessingFailed
	if strings.Contains(lower, "invalid data") ||
		strings.Contains(lower, "could not find codec") ||
		strings.Contains(lower, "decoder not found") {
		kind = KindUnsupportedFormat
	}
	return &Error{Kind: kind, Detail: detail, Err: err}
}

type ffprobeOutput struct {
	Format struct {
		FormatName string `json:"format_name"`
		Duration   string `json:"duration"`
		BitRate    string `json:"bit_rate"`
	} `json:"format"`
	Streams []struct {
		CodecType     string `json:"codec_type"`
		CodecName     string `json:"codec_name"`
		SampleRate    string `json:"sample_rate"`
		Channels      int    `json:"channels"`
		ChannelLayout string `json:"channel_layout"`
		BitsPerSample int    `json:"bits_per_raw_sample,string"`
	} `json:"streams"`
}

func parseProbeJSON(raw []byte) (*FormatInfo, error) {
	var probed ffprobeOutput
	if err := json.Unmarshal(raw, &probed); err != nil {
		return nil, err
	}

	fi := &FormatInfo{
		Format:    probed.Format.FormatName,
		Container: firstOf(probed.Format.FormatName),
	}
	if secs, err := strconv.ParseFloat(probed.Format.Duration, 64); err == nil {
		fi.Duration = time.Duration(secs * float64(time.Second))
	}
	if br, err := strconv.Atoi(probed.Format.BitRate); err == nil {
		fi.Bitrate = br
	}

	for _, s := range probed.Streams {
		if s.CodecType != "audio" {
			continue
		}
		fi.Codec = s.CodecName
		fi.Channels = s.Channels
		fi.ChannelLayout = s.ChannelLayout
		fi.BitDepth = s.BitsPerSample
		if rate, err := strconv.Atoi(s.SampleRate); err == nil {
			fi.SampleRate = rate
		}
		break
	}
	return fi, nil
}

// firstOf reduces ffprobe's comma-separated demuxer aliases
// ("mov,mp4,m4a,3gp,3g2,mj2") to a single stable container name.
func firstOf(formatName string) string {
	if i := strings.IndexByte(formatName, ','); i >= 0 {
		return formatName[:i]
	}
	return formatName
}

// convertStream couples the converter's stdout with the lifetime of both
// the process and the upstream source reader.
type convertStream struct {
	stdout io.ReadCloser
	src    io.Closer
	cmd    *exec.Cmd
	cancel context.CancelFunc
	stderr *bytes.Buffer
	closed bool
}

func (c *convertStream) Read(b []byte) (int, error) {
	n, err := c.stdout.Read(b)
	if err == io.EOF && !c.closed {
		c.closed = true
		if waitErr := c.cmd.Wait(); waitErr != nil {
			return n, classifyConvertError(waitErr, c.stderr.String())
		}
	}
	return n, err
}

func (c *convertStream) Close() error {
	c.cancel()
	_ = c.src.Close()
	if !c.closed {
		c.closed = true
		_ = c.cmd.Wait()
	}
	return nil
}
