package bot

import (
	"github.com/bwmarrin/discordgo"
	"github.com/susu3304/tallybot/internal/commands"
)

func (b *Bot) onReady(s *discordgo.Session, event *discordgo.Ready) {
	b.logger.Info("connected", "user", event.User.Username)

	// Register commands for all guilds
	for _, guild := range event.Guilds {
		if err := b.registerGuildCommands(guild.ID); err != nil {
			b.logger.Error("register commands", "guild_id", guild.ID, "error", err)
		}
	}
}

func (b *Bot) onGuildCreate(s *discordgo.Session, event *discordgo.GuildCreate) {
	b.logger.Info("guild available, ensuring commands", "guild", event.Name, "guild_id", event.ID)
	if err := b.registerGuildCommands(event.ID); err != nil {
		b.logger.Error("register commands", "guild_id", event.ID, "error", err)
	}
}

func (b *Bot) registerGuildCommands(guildID string) error {
	cmds := commands.GetCommands()
	// Delete existing commands and register new ones
	_, err := b.session.ApplicationCommandBulkOverwrite(b.session.State.User.ID, guildID, cmds)
	if err != nil {
		return err
	}

	b.logger.Info("registered application commands", "guild_id", guildID)
	return nil
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	// Route by interaction type
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		b.handleApplicationCommand(s, i)
	case discordgo.InteractionMessageComponent:
		commands.HandleComponent(s, i, b.deps)
	case discordgo.InteractionModalSubmit:
		commands.HandleModalSubmit(s, i, b.deps)
	}
}

func (b *Bot) handleApplicationCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()

	switch data.Name {
	// Creation commands share one handler
	case "poll", "wager", "coupon", "claimpool":
		commands.HandleCreate(s, i, b.deps)
	case "redeem":
		commands.HandleRedeem(s, i, b.deps)
	case "close":
		commands.HandleClose(s, i, b.deps)
	case "list":
		commands.HandleList(s, i, b.deps)
	}
}
