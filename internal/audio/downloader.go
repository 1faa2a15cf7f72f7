package audio

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/lrstanley/go-ytdlp"
	"go.uber.org/zap"
)

// startTimeout bounds how long Fetch waits for the first payload byte.
// It unblocks the caller; the process itself is torn down on Close.
const startTimeout = 10 * time.Second

const bestAudioFormat = "bestaudio[ext=webm]/bestaudio[ext=m4a]/bestaudio/best"

// Downloader spawns the external streaming downloader for internet media
// locators and exposes its stdout as a byte stream.
type Downloader struct {
	logger *zap.Logger
}

// NewDownloader creates a Downloader.
func NewDownloader(logger *zap.Logger) *Downloader {
	return &Downloader{logger: logger}
}

func newDownloadCommand() *ytdlp.Command {
	return ytdlp.New().
		NoWarnings().
		IgnoreConfig().
		NoPlaylist().
		NoCheckCertificates().
		NoPart().
		BufferSize("4M").
		ConcurrentFragments(3).
		ThrottledRate("100K")
}

// Fetch starts a best-audio download of locator and resolves with a readable
// stream as soon as the first data chunk arrives, not when the process exits.
// It fails if the process dies before producing data, or if no data arrives
// within the startup timeout. The caller owns the returned stream: its Read
// errors and EOF are the terminal state, and Close tears the process down.
func (d *Downloader) Fetch(ctx context.Context, locator string) (io.ReadCloser, error) {
	procCtx, cancel := context.WithCancel(ctx)

	cmd := newDownloadCommand().
		Format(bestAudioFormat).
		Output("-").
		NoSimulate().
		BuildCommand(procCtx, locator)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, WrapError(KindProcessingFailed, "downloader stdout pipe", err)
	}

	// stderr is diagnostics only. It is logged, and surfaced as the failure
	// reason only when the process dies without a better signal.
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, &Error{Kind: KindProcessingFailed, Locator: locator, Detail: "downloader spawn failed", Err: err}
	}

	br := bufio.NewReaderSize(stdout, 64*1024)

	firstByte := make(chan error, 1)
	go func() {
		_, err := br.Peek(1)
		firstByte <- err
	}()

	timer := time.NewTimer(startTimeout)
	defer timer.Stop()

	select {
	case err := <-firstByte:
		if err != nil {
			// Exited before producing any data.
			cancel()
			waitErr := cmd.Wait()
			d.logger.Warn("Downloader exited before producing data",
				zap.String("locator", locator),
				zap.Error(waitErr),
				zap.String("stderr", tailOf(stderr.String(), 512)))
			if waitErr == nil {
				waitErr = err
			}
			return nil, &Error{
				Kind:    KindSourceNotFound,
				Locator: locator,
				Detail:  tailOf(stderr.String(), 256),
				Err:     waitErr,
			}
		}
	case <-timer.C:
		cancel()
		go cmd.Wait() // reap
		d.logger.Warn("Downloader start timeout",
			zap.String("locator", locator),
			zap.Duration("timeout", startTimeout))
		return nil, &Error{Kind: KindFetchTimeout, Locator: locator, Detail: "no data within startup timeout"}
	case <-ctx.Done():
		cancel()
		go cmd.Wait()
		return nil, ctx.Err()
	}

	d.logger.Debug("Downloader produced first chunk", zap.String("locator", locator))

	return &processStream{
		r:      br,
		cmd:    cmd,
		cancel: cancel,
		logger: d.logger,
		stderr: &stderr,
	}, nil
}

// Probe asks the downloader for stream metadata without downloading.
func (d *Downloader) Probe(ctx context.Context, locator string) (*FormatInfo, error) {
	res, err := newDownloadCommand().
		Format(bestAudioFormat).
		Print("%(acodec)s\t%(ext)s\t%(abr)s\t%(asr)s\t%(audio_channels)s\t%(duration)s").
		Run(ctx, "--skip-download", locator)
	if err != nil {
		detail := ""
		if res != nil {
			detail = tailOf(res.Stderr, 256)
		}
		return nil, &Error{Kind: KindFormatDetectionFailed, Locator: locator, Detail: detail, Err: err}
	}

	for _, line := range strings.Split(strings.TrimSpace(res.Stdout), "\n") {
		fields := strings.Split(line, "\t")
		if len(fields) < 6 {
			continue
		}
		fi := &FormatInfo{
			Codec:      normalizeProbeField(fields[0]),
			Container:  normalizeProbeField(fields[1]),
			Format:     normalizeProbeField(fields[1]),
			Bitrate:    int(parseProbeFloat(fields[2]) * 1000),
			SampleRate: int(parseProbeFloat(fields[3])),
			Channels:   int(parseProbeFloat(fields[4])),
			Duration:   time.Duration(parseProbeFloat(fields[5]) * float64(time.Second)),
		}
		return fi, nil
	}

	return nil, &Error{Kind: KindFormatDetectionFailed, Locator: locator, Detail: "no probe output"}
}

func normalizeProbeField(s string) string {
	s = strings.TrimSpace(s)
	if s == "NA" || s == "none" {
		return ""
	}
	return s
}

func parseProbeFloat(s string) float64 {
	v, err := strconv.ParseFloat(normalizeProbeField(s), 64)
	if err != nil {
		return 0
	}
	return v
}

func tailOf(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

// processStream adapts a child process stdout into an io.ReadCloser whose
// Close reliably releases the process. Double Close is a no-op.
type processStream struct {
	r        io.Reader
	cmd      *exec.Cmd
	cancel   context.CancelFunc
	logger   *zap.Logger
	stderr   *bytes.Buffer
	waitOnce sync.Once
	waitErr  error
}

func (p *processStream) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if err == io.EOF {
		// Reap the process; a non-zero exit after data was delivered is
		// logged but the stream terminates as a normal EOF.
		if waitErr := p.wait(); waitErr != nil {
			p.logger.Debug("Downloader exited non-zero after streaming",
				zap.Error(waitErr),
				zap.String("stderr", tailOf(p.stderr.String(), 512)))
		}
	}
	return n, err
}

func (p *processStream) Close() error {
	p.cancel()
	_ = p.wait()
	return nil
}

func (p *processStream) wait() error {
	p.waitOnce.Do(func() {
		p.waitErr = p.cmd.Wait()
	})
	return p.waitErr
}
