package voice

import (
	"bytes"
	"context"
	"io"
	"os"
	"time"

	"github.com/diamondburned/arikawa/v3/discord"
	"go.uber.org/zap"

	"github.com/chimebot/chime/internal/audio"
	"github.com/chimebot/chime/internal/catalog"
	"github.com/chimebot/chime/internal/config"
)

// Service is the playback front door: it resolves a request to canonical
// PCM through the catalog, cache, downloader and transcoder, and schedules
// the result on the guild's playback session.
type Service struct {
	logger     *zap.Logger
	cfg        *config.Config
	sessions   SessionManager
	catalog    catalog.Catalog
	cache      *audio.Cache
	clipCache  *audio.ClipCache
	downloader *audio.Downloader
	transcoder *audio.Transcoder
	prebuffer  *audio.Prebuffer
	sequencer  *audio.Sequencer
}

// NewService creates the playback service.
func NewService(
	logger *zap.Logger,
	cfg *config.Config,
	sessions SessionManager,
	cat catalog.Catalog,
	cache *audio.Cache,
	clipCache *audio.ClipCache,
	downloader *audio.Downloader,
	transcoder *audio.Transcoder,
	prebuffer *audio.Prebuffer,
	sequencer *audio.Sequencer,
) *Service {
	return &Service{
		logger:     logger,
		cfg:        cfg,
		sessions:   sessions,
		catalog:    cat,
		cache:      cache,
		clipCache:  clipCache,
		downloader: downloader,
		transcoder: transcoder,
		prebuffer:  prebuffer,
		sequencer:  sequencer,
	}
}

// Play resolves input (catalog name or URL), connects the guild's session
// to channelID if needed, and starts the clip. It returns the clip id as
// soon as mixing begins.
func (s *Service) Play(ctx context.Context, guildID discord.GuildID, channelID discord.ChannelID, input string, volume float64) (string, error) {
	desc := audio.Resolve(input)

	session := s.sessions.GetOrCreate(guildID)
	if err := session.Connect(ctx, channelID); err != nil {
		return "", err
	}

	pcm, err := s.resolvePCM(ctx, desc)
	if err != nil {
		return "", err
	}

	id, err := session.Play(desc.Locator, pcm, volume)
	if err != nil {
		if closer, ok := pcm.(io.Closer); ok {
			_ = closer.Close()
		}
		return "", err
	}

	s.logger.Info("Playback started",
		zap.String("guild_id", guildID.String()),
		zap.String("source", desc.Kind.String()),
		zap.String("locator", desc.Locator),
		zap.String("clip_id", id))
	return id, nil
}

// PlayRepeat plays a catalog sound count times with delay of silence
// between repetitions, as a single clip.
func (s *Service) PlayRepeat(ctx context.Context, guildID discord.GuildID, channelID discord.ChannelID, name string, count int, delay time.Duration, volume float64) (string, error) {
	if count < 1 {
		count = 1
	}
	names := make([]string, count)
	delays := make([]time.Duration, count)
	for i := 0; i < count; i++ {
		names[i] = name
		if i < count-1 {
			delays[i] = delay
		}
	}
	return s.SequenceNamed(ctx, guildID, channelID, names, delays, volume)
}

// SequenceNamed plays several catalog sounds back to back with silence gaps,
// as a single clip. Each distinct name is resolved and transcoded once no
// matter how often it repeats in the sequence.
func (s *Service) SequenceNamed(ctx context.Context, guildID discord.GuildID, channelID discord.ChannelID, names []string, delays []time.Duration, volume float64) (string, error) {
	if len(names) == 0 {
		return "", NewVoiceError("empty sound sequence")
	}

	distinct := make(map[string][]byte, len(names))
	for _, name := range names {
		if _, ok := distinct[name]; ok {
			continue
		}
		pcm, err := s.catalogPCM(ctx, name)
		if err != nil {
			return "", err
		}
		distinct[name] = pcm
	}

	clips := make([][]byte, len(names))
	for i, name := range names {
		clips[i] = distinct[name]
	}

	session := s.sessions.GetOrCreate(guildID)
	if err := session.Connect(ctx, channelID); err != nil {
		return "", err
	}

	return session.Play(names[0], s.sequencer.Sequence(clips, delays), volume)
}

// PlayEntrance plays the configured entrance sound for userID, if any.
// Missing configuration is not an error.
func (s *Service) PlayEntrance(ctx context.Context, guildID discord.GuildID, channelID discord.ChannelID, userID discord.UserID) {
	name, ok := s.cfg.Audio.EntranceSounds[userID.String()]
	if !ok {
		return
	}
	if _, err := s.Play(ctx, guildID, channelID, name, s.cfg.Audio.DefaultVolume); err != nil {
		s.logger.Warn("Entrance sound failed",
			zap.String("user_id", userID.String()),
			zap.String("sound", name),
			zap.Error(err))
	}
}

// Stop cancels one clip on the guild's session.
func (s *Service) Stop(guildID discord.GuildID, clipID string) error {
	session, err := s.sessions.Get(guildID)
	if err != nil {
		return err
	}
	if !session.StopByID(clipID) {
		return ErrClipNotFound
	}
	return nil
}

// StopAll cancels every clip on the guild's session.
func (s *Service) StopAll(guildID discord.GuildID) error {
	session, err := s.sessions.Get(guildID)
	if err != nil {
		return err
	}
	session.StopAll()
	return nil
}

// Leave disconnects the guild's session entirely.
func (s *Service) Leave(ctx context.Context, guildID discord.GuildID) error {
	return s.sessions.Remove(ctx, guildID)
}

// Shutdown disconnects every session.
func (s *Service) Shutdown(ctx context.Context) {
	s.sessions.Shutdown(ctx)
}

// resolvePCM turns a source descriptor into a canonical PCM stream that is
// safe to hand to the mix loop: fully buffered for catalog sounds, cached
// or prebuffered for remote media.
func (s *Service) resolvePCM(ctx context.Context, desc audio.SourceDescriptor) (io.Reader, error) {
	if desc.Kind == audio.SourceCatalog {
		pcm, err := s.catalogPCM(ctx, desc.Locator)
		if err != nil {
			return nil, err
		}
		return bytes.NewReader(pcm), nil
	}
	return s.remotePCM(ctx, desc)
}

// catalogPCM returns the deep-processed PCM for a catalog sound, fetching
// it from the in-memory clip cache when possible.
func (s *Service) catalogPCM(ctx context.Context, name string) ([]byte, error) {
	sound, err := s.catalog.Lookup(name)
	if err != nil {
		return nil, err
	}

	key := "catalog:" + sound.Name
	if pcm, ok := s.clipCache.Get(key); ok {
		return pcm, nil
	}

	f, err := os.Open(sound.FilePath)
	if err != nil {
		return nil, &audio.Error{
			Kind:    audio.KindSourceNotFound,
			Locator: sound.Name,
			Detail:  "catalog file unreadable",
			Err:     err,
		}
	}
	defer f.Close()

	pcm, err := s.transcoder.DeepProcess(ctx, f, nil)
	if err != nil {
		return nil, err
	}

	s.clipCache.Put(key, pcm)
	return pcm, nil
}

// remotePCM resolves a URL or streaming-video source. Cache hits stream the
// raw payload through the light transcode path; misses download fully, probe
// and populate the cache, then deep-process. Either way the result is
// prebuffered so the mixer never touches a live pipe.
func (s *Service) remotePCM(ctx context.Context, desc audio.SourceDescriptor) (io.Reader, error) {
	if cached, fi, ok := s.cache.Get(desc); ok {
		s.logger.Debug("Cache hit", zap.String("locator", desc.Locator))
		stream, err := s.transcoder.StreamProcess(ctx, cached, fi)
		if err != nil {
			_ = cached.Close()
			return nil, err
		}
		return s.prebuffer.Wrap(ctx, stream)
	}

	src, err := s.downloader.Fetch(ctx, desc.Locator)
	if err != nil {
		return nil, err
	}
	raw, err := io.ReadAll(src)
	closeErr := src.Close()
	if err != nil {
		return nil, audio.WrapError(audio.KindCorruptedStream, "download stream failed", err)
	}
	_ = closeErr

	fi, err := s.transcoder.Probe(ctx, bytes.NewReader(raw))
	if err != nil {
		s.logger.Warn("Probe failed, continuing without format info",
			zap.String("locator", desc.Locator),
			zap.Error(err))
		fi = nil
	}

	if err := s.cache.Put(desc, bytes.NewReader(raw), fi); err != nil {
		// Caching is best-effort; playback proceeds regardless.
		s.logger.Warn("Failed to cache downloaded media",
			zap.String("locator", desc.Locator),
			zap.Error(err))
	}

	pcm, err := s.transcoder.DeepProcess(ctx, bytes.NewReader(raw), fi)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(pcm), nil
}
