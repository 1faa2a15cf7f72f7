// Package bot wires the Discord gateway events to the command and playback
// layers.
package bot

import (
	"context"
	"fmt"
	"sync"

	"github.com/diamondburned/arikawa/v3/discord"
	"github.com/diamondburned/arikawa/v3/gateway"
	"github.com/diamondburned/arikawa/v3/session"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/chimebot/chime/internal/commands"
	"github.com/chimebot/chime/internal/config"
	"github.com/chimebot/chime/internal/voice"
)

// Bot represents the Discord bot.
type Bot struct {
	Session    *session.Session
	Config     *config.Config
	CmdManager *commands.CommandManager
	Service    *voice.Service
	Logger     *zap.Logger

	guildIDs []discord.GuildID

	voiceMu     sync.Mutex
	lastChannel map[discord.UserID]discord.ChannelID
}

// NewBotParameters holds dependencies for NewBot.
type NewBotParameters struct {
	fx.In

	Cfg        *config.Config
	S          *session.Session
	CmdManager *commands.CommandManager
	Service    *voice.Service
	Logger     *zap.Logger
}

// NewBot creates and initializes a new Bot.
func NewBot(params NewBotParameters) (*Bot, error) {
	if params.Cfg.Discord.ApplicationID == nil || *params.Cfg.Discord.ApplicationID == 0 {
		return nil, fmt.Errorf("application ID is not set or is zero in config")
	}

	b := &Bot{
		Session:     params.S,
		Config:      params.Cfg,
		CmdManager:  params.CmdManager,
		Service:     params.Service,
		Logger:      params.Logger,
		lastChannel: make(map[discord.UserID]discord.ChannelID),
	}

	for _, idStr := range params.Cfg.Discord.GuildIDs {
		sf, err := discord.ParseSnowflake(idStr)
		if err != nil {
			params.Logger.Error("Failed to parse guild ID",
				zap.String("guildID", idStr), zap.Error(err))
			continue
		}
		b.guildIDs = append(b.guildIDs, discord.GuildID(sf))
	}

	params.S.AddHandler(func(e *gateway.InteractionCreateEvent) {
		b.handleInteraction(context.Background(), e)
	})
	params.S.AddHandler(func(e *gateway.VoiceStateUpdateEvent) {
		b.handleVoiceStateUpdate(context.Background(), e)
	})

	params.Logger.Info("NewBot created successfully")
	return b, nil
}

// Start registers slash commands for the configured guilds.
func (b *Bot) Start(ctx context.Context) error {
	if len(b.guildIDs) == 0 {
		b.Logger.Warn("No guild IDs configured, slash commands will not be registered")
		return nil
	}
	b.CmdManager.RegisterCommands(b.guildIDs)
	return nil
}

// Stop disconnects every playback session.
func (b *Bot) Stop(ctx context.Context) error {
	b.Service.Shutdown(ctx)
	return nil
}
