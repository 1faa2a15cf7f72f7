package commands

import (
	"github.com/diamondburned/arikawa/v3/api"
	"github.com/diamondburned/arikawa/v3/discord"
	"github.com/diamondburned/arikawa/v3/session"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// CommandManager holds every registered command and handles their
// registration with Discord.
type CommandManager struct {
	session       *session.Session
	applicationID discord.AppID
	logger        *zap.Logger
	commands      map[string]Command
}

// CommandManagerParams holds dependencies for NewCommandManager.
type CommandManagerParams struct {
	fx.In

	Session       *session.Session
	ApplicationID discord.AppID
	Logger        *zap.Logger
	Commands      []Command `group:"commands"`
}

// NewCommandManager creates a new CommandManager from the injected command set.
func NewCommandManager(params CommandManagerParams) *CommandManager {
	commands := make(map[string]Command, len(params.Commands))
	for _, cmd := range params.Commands {
		commands[cmd.Name()] = cmd
	}

	params.Logger.Info("Created CommandManager", zap.Int("commands", len(commands)))

	return &CommandManager{
		session:       params.Session,
		applicationID: params.ApplicationID,
		logger:        params.Logger,
		commands:      commands,
	}
}

// Get retrieves a registered command by its name.
func (cm *CommandManager) Get(name string) (Command, bool) {
	cmd, ok := cm.commands[name]
	return cmd, ok
}

// RegisterCommands registers all commands with Discord for the specified guilds.
func (cm *CommandManager) RegisterCommands(guildIDs []discord.GuildID) {
	var cmds []api.CreateCommandData
	for _, cmd := range cm.commands {
		cmds = append(cmds, api.CreateCommandData{
			Name:        cmd.Name(),
			Description: cmd.Description(),
			Options:     cmd.Options(),
		})
	}

	if len(cmds) == 0 {
		cm.logger.Info("No commands to register.")
		return
	}

	for _, guildID := range guildIDs {
		registered, err := cm.session.BulkOverwriteGuildCommands(cm.applicationID, guildID, cmds)
		if err != nil {
			cm.logger.Error("Failed to bulk overwrite commands for guild",
				zap.Error(err),
				zap.Stringer("applicationID", cm.applicationID),
				zap.Stringer("guildID", guildID),
			)
			continue
		}
		cm.logger.Info("Successfully registered slash commands for guild",
			zap.Int("count", len(registered)),
			zap.Stringer("guildID", guildID),
		)
	}
}

// UnregisterAllCommands unregisters all commands for the specified guilds.
func (cm *CommandManager) UnregisterAllCommands(guildIDs []discord.GuildID) {
	for _, guildID := range guildIDs {
		_, err := cm.session.BulkOverwriteGuildCommands(cm.applicationID, guildID, []api.CreateCommandData{})
		if err != nil {
			cm.logger.Error("Failed to unregister commands for guild",
				zap.Error(err),
				zap.Stringer("guildID", guildID),
			)
			continue
		}
		cm.logger.Info("Unregistered all slash commands for guild", zap.Stringer("guildID", guildID))
	}
}
