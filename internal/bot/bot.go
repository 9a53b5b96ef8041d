package bot

import (
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/susu3304/tallybot/internal/approval"
	"github.com/susu3304/tallybot/internal/commands"
	"github.com/susu3304/tallybot/internal/ledger"
)

type Bot struct {
	session *discordgo.Session
	deps    commands.Deps
	logger  *slog.Logger
}

// New creates the Discord session. The coordinator is attached later with
// SetCoordinator because it needs the bot's dispatcher.
func New(token string, engine *ledger.Engine, logger *slog.Logger) (*Bot, error) {
	if logger == nil {
		logger = slog.Default()
	}
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}

	bot := &Bot{
		session: session,
		deps: commands.Deps{
			Engine: engine,
			Boards: commands.NewBoards(),
		},
		logger: logger,
	}

	// Register event handlers
	session.AddHandler(bot.onReady)
	session.AddHandler(bot.onGuildCreate)
	session.AddHandler(bot.onInteractionCreate)

	// Guild events for command registration, DMs for guardian buttons
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsDirectMessages

	return bot, nil
}

// Dispatcher returns the guardian DM dispatcher backed by this session.
func (b *Bot) Dispatcher() *GuardianDispatcher {
	return NewGuardianDispatcher(b.session, b.deps.Engine, b.logger)
}

func (b *Bot) SetCoordinator(coord *approval.Coordinator) {
	b.deps.Coord = coord
}

func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}
	b.logger.Info("Discord bot is running")
	return nil
}

func (b *Bot) Stop() error {
	return b.session.Close()
}
