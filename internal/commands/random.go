package commands

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/diamondburned/arikawa/v3/discord"
	"github.com/diamondburned/arikawa/v3/gateway"
	"github.com/diamondburned/arikawa/v3/session"
	"github.com/diamondburned/arikawa/v3/state"
	"go.uber.org/zap"

	"github.com/chimebot/chime/internal/catalog"
	"github.com/chimebot/chime/internal/config"
	"github.com/chimebot/chime/internal/voice"
)

// RandomCommand plays a random catalog sound.
type RandomCommand struct {
	logger  *zap.Logger
	cfg     *config.Config
	service *voice.Service
	catalog catalog.Catalog
	state   *state.State
}

// NewRandomCommand creates a new RandomCommand instance.
func NewRandomCommand(logger *zap.Logger, cfg *config.Config, service *voice.Service, cat catalog.Catalog, st *state.State) Command {
	return &RandomCommand{logger: logger, cfg: cfg, service: service, catalog: cat, state: st}
}

func (c *RandomCommand) Name() string {
	return "random"
}

func (c *RandomCommand) Description() string {
	return "Play a random sound"
}

func (c *RandomCommand) Options() []discord.CommandOption {
	return nil
}

func (c *RandomCommand) Execute(ctx context.Context, s *session.Session, e *gateway.InteractionCreateEvent, data *discord.CommandInteraction) error {
	sounds := c.catalog.List()
	if len(sounds) == 0 {
		return respondEphemeral(s, e, "The sound catalog is empty.")
	}

	if e.Member == nil {
		return respondEphemeral(s, e, "Join a voice channel first.")
	}
	vs, err := c.state.VoiceState(e.GuildID, e.Member.User.ID)
	if err != nil || !vs.ChannelID.IsValid() {
		return respondEphemeral(s, e, "Join a voice channel first.")
	}

	pick := sounds[rand.Intn(len(sounds))]
	if _, err := c.service.Play(ctx, e.GuildID, vs.ChannelID, pick.Name, c.cfg.Audio.DefaultVolume); err != nil {
		c.logger.Warn("Random command failed",
			zap.String("sound", pick.Name),
			zap.Error(err))
		return respondEphemeral(s, e, "Could not play that one, try again.")
	}

	return respond(s, e, fmt.Sprintf("Playing **%s**", pick.Name))
}
