package commands

import (
	"context"
	"errors"

	"github.com/diamondburned/arikawa/v3/discord"
	"github.com/diamondburned/arikawa/v3/gateway"
	"github.com/diamondburned/arikawa/v3/session"
	"go.uber.org/zap"

	"github.com/chimebot/chime/internal/voice"
)

// StopCommand stops playback in the caller's guild.
type StopCommand struct {
	logger  *zap.Logger
	service *voice.Service
}

// NewStopCommand creates a new StopCommand instance.
func NewStopCommand(logger *zap.Logger, service *voice.Service) Command {
	return &StopCommand{logger: logger, service: service}
}

func (c *StopCommand) Name() string {
	return "stop"
}

func (c *StopCommand) Description() string {
	return "Stop playback, or one clip by id"
}

func (c *StopCommand) Options() []discord.CommandOption {
	return []discord.CommandOption{
		&discord.StringOption{
			OptionName:  "id",
			Description: "Clip id to stop (omit to stop everything)",
		},
		&discord.BooleanOption{
			OptionName:  "leave",
			Description: "Also leave the voice channel",
		},
	}
}

func (c *StopCommand) Execute(ctx context.Context, s *session.Session, e *gateway.InteractionCreateEvent, data *discord.CommandInteraction) error {
	var (
		clipID string
		leave  bool
	)
	for _, opt := range data.Options {
		switch opt.Name {
		case "id":
			clipID = opt.String()
		case "leave":
			if v, err := opt.BoolValue(); err == nil {
				leave = v
			}
		}
	}

	if clipID != "" {
		if err := c.service.Stop(e.GuildID, clipID); err != nil {
			if errors.Is(err, voice.ErrClipNotFound) {
				return respondEphemeral(s, e, "No playing clip with that id.")
			}
			return respondEphemeral(s, e, "Nothing is playing.")
		}
		return respond(s, e, "Stopped clip.")
	}

	if leave {
		if err := c.service.Leave(ctx, e.GuildID); err != nil {
			return respondEphemeral(s, e, "Not connected.")
		}
		return respond(s, e, "Stopped and left the channel.")
	}

	if err := c.service.StopAll(e.GuildID); err != nil {
		return respondEphemeral(s, e, "Nothing is playing.")
	}
	return respond(s, e, "Stopped all playback.")
}
