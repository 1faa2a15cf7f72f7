package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/diamondburned/arikawa/v3/discord"
	"github.com/diamondburned/arikawa/v3/gateway"
	"github.com/diamondburned/arikawa/v3/session"

	"github.com/chimebot/chime/internal/catalog"
)

// soundsPerMessage bounds the list so the response stays inside Discord's
// message size limit.
const soundsPerMessage = 100

// SoundsCommand lists the sound catalog.
type SoundsCommand struct {
	catalog catalog.Catalog
}

// NewSoundsCommand creates a new SoundsCommand instance.
func NewSoundsCommand(cat catalog.Catalog) Command {
	return &SoundsCommand{catalog: cat}
}

func (c *SoundsCommand) Name() string {
	return "sounds"
}

func (c *SoundsCommand) Description() string {
	return "List the available sounds"
}

func (c *SoundsCommand) Options() []discord.CommandOption {
	return []discord.CommandOption{
		&discord.StringOption{
			OptionName:  "filter",
			Description: "Only show sounds containing this text",
		},
	}
}

func (c *SoundsCommand) Execute(ctx context.Context, s *session.Session, e *gateway.InteractionCreateEvent, data *discord.CommandInteraction) error {
	var filter string
	for _, opt := range data.Options {
		if opt.Name == "filter" {
			filter = strings.ToLower(opt.String())
		}
	}

	names := make([]string, 0)
	for _, sound := range c.catalog.List() {
		if filter != "" && !strings.Contains(sound.Name, filter) {
			continue
		}
		names = append(names, sound.Name)
		if len(names) == soundsPerMessage {
			break
		}
	}

	if len(names) == 0 {
		return respondEphemeral(s, e, "No sounds found.")
	}
	return respondEphemeral(s, e, fmt.Sprintf("**%d sounds:** %s", len(names), strings.Join(names, ", ")))
}
