package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/diamondburned/arikawa/v3/discord"
	"github.com/diamondburned/arikawa/v3/gateway"
	"github.com/diamondburned/arikawa/v3/session"
	"github.com/diamondburned/arikawa/v3/state"
	"go.uber.org/zap"

	"github.com/chimebot/chime/internal/audio"
	"github.com/chimebot/chime/internal/catalog"
	"github.com/chimebot/chime/internal/config"
	"github.com/chimebot/chime/internal/voice"
)

// PlayCommand plays a catalog sound or remote media in the caller's voice
// channel.
type PlayCommand struct {
	logger  *zap.Logger
	cfg     *config.Config
	service *voice.Service
	catalog catalog.Catalog
	state   *state.State
}

// NewPlayCommand creates a new PlayCommand instance.
func NewPlayCommand(logger *zap.Logger, cfg *config.Config, service *voice.Service, cat catalog.Catalog, st *state.State) Command {
	return &PlayCommand{logger: logger, cfg: cfg, service: service, catalog: cat, state: st}
}

func (c *PlayCommand) Name() string {
	return "play"
}

func (c *PlayCommand) Description() string {
	return "Play a sound or a link in your voice channel"
}

func (c *PlayCommand) Options() []discord.CommandOption {
	return []discord.CommandOption{
		&discord.StringOption{
			OptionName:  "sound",
			Description: "Sound name or URL",
			Required:    true,
		},
		&discord.NumberOption{
			OptionName:  "volume",
			Description: "Volume between 0.0 and 1.0 (default 1.0)",
		},
		&discord.IntegerOption{
			OptionName:  "repeat",
			Description: "Play the sound this many times",
		},
		&discord.IntegerOption{
			OptionName:  "delay_ms",
			Description: "Silence between repeats, in milliseconds",
		},
	}
}

func (c *PlayCommand) Execute(ctx context.Context, s *session.Session, e *gateway.InteractionCreateEvent, data *discord.CommandInteraction) error {
	var (
		input   string
		volume  = c.cfg.Audio.DefaultVolume
		repeat  = 1
		delayMS = 0
	)
	for _, opt := range data.Options {
		switch opt.Name {
		case "sound":
			input = opt.String()
		case "volume":
			if v, err := opt.FloatValue(); err == nil {
				volume = v
			}
		case "repeat":
			if v, err := opt.IntValue(); err == nil {
				repeat = int(v)
			}
		case "delay_ms":
			if v, err := opt.IntValue(); err == nil {
				delayMS = int(v)
			}
		}
	}

	channelID, err := c.callerVoiceChannel(e)
	if err != nil {
		return respondEphemeral(s, e, "Join a voice channel first.")
	}

	desc := audio.Resolve(input)
	if repeat > 1 && desc.Kind == audio.SourceCatalog {
		_, err = c.service.PlayRepeat(ctx, e.GuildID, channelID, desc.Locator, repeat, time.Duration(delayMS)*time.Millisecond, volume)
	} else {
		_, err = c.service.Play(ctx, e.GuildID, channelID, input, volume)
	}
	if err != nil {
		return c.respondPlayError(s, e, desc, err)
	}

	return respond(s, e, fmt.Sprintf("Playing **%s**", desc.Locator))
}

// callerVoiceChannel finds the voice channel the invoking user is in.
func (c *PlayCommand) callerVoiceChannel(e *gateway.InteractionCreateEvent) (discord.ChannelID, error) {
	if e.Member == nil {
		return 0, voice.ErrNotInVoiceChannel
	}
	vs, err := c.state.VoiceState(e.GuildID, e.Member.User.ID)
	if err != nil || !vs.ChannelID.IsValid() {
		return 0, voice.ErrNotInVoiceChannel
	}
	return vs.ChannelID, nil
}

// respondPlayError answers the interaction with a user-facing failure
// message, including close-match suggestions for unknown catalog names.
func (c *PlayCommand) respondPlayError(s *session.Session, e *gateway.InteractionCreateEvent, desc audio.SourceDescriptor, err error) error {
	c.logger.Warn("Play command failed",
		zap.String("locator", desc.Locator),
		zap.Error(err))

	if audio.IsKind(err, audio.KindSourceNotFound) && desc.Kind == audio.SourceCatalog {
		matches := c.catalog.FuzzyMatch(desc.Locator, 3)
		if len(matches) > 0 {
			names := make([]string, len(matches))
			for i, m := range matches {
				names[i] = m.Name
			}
			return respondEphemeral(s, e, fmt.Sprintf("No sound named **%s**. Did you mean: %s?",
				desc.Locator, strings.Join(names, ", ")))
		}
		return respondEphemeral(s, e, fmt.Sprintf("No sound named **%s**.", desc.Locator))
	}
	if audio.IsKind(err, audio.KindFetchTimeout) {
		return respondEphemeral(s, e, "The download took too long to start. Try again.")
	}
	return respondEphemeral(s, e, "Could not play that. Check the name or link and try again.")
}
