package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/susu3304/tallybot/internal/commands"
	"github.com/susu3304/tallybot/internal/entity"
	"github.com/susu3304/tallybot/internal/ledger"
)

// dmSession is the part of *discordgo.Session the dispatcher needs.
type dmSession interface {
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// GuardianDispatcher sends each guardian a DM with approve and deny buttons.
type GuardianDispatcher struct {
	session dmSession
	engine  *ledger.Engine
	logger  *slog.Logger

	attemptTimeout time.Duration
	maxAttempts    int
	pause          func() time.Duration
}

func NewGuardianDispatcher(session dmSession, engine *ledger.Engine, logger *slog.Logger) *GuardianDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &GuardianDispatcher{
		session:        session,
		engine:         engine,
		logger:         logger,
		attemptTimeout: 12 * time.Second,
		maxAttempts:    2,
		pause: func() time.Duration {
			return time.Duration(300+rand.Intn(500)) * time.Millisecond
		},
	}
}

// Dispatch notifies both guardians. It succeeds if at least one of them was
// reached; either one can decide.
func (d *GuardianDispatcher) Dispatch(ctx context.Context, req entity.PendingRequest) error {
	msg := commands.RenderRequest(req, d.poolTitle(ctx, req.PoolID))

	// Send to each guardian independently
	var errs []error
	for _, guardian := range req.GuardianIDs {
		if err := d.sendDM(ctx, guardian, msg); err != nil {
			d.logger.Warn("guardian DM failed", "request_id", req.ID, "guardian_id", guardian, "error", err)
			errs = append(errs, fmt.Errorf("guardian %s: %w", guardian, err))
		}
	}
	if len(errs) == len(req.GuardianIDs) {
		return errors.Join(errs...)
	}
	return nil
}

func (d *GuardianDispatcher) poolTitle(ctx context.Context, poolID string) string {
	if d.engine == nil {
		return ""
	}
	e, err := d.engine.Get(ctx, poolID)
	if err != nil {
		return ""
	}
	return e.Title
}

func (d *GuardianDispatcher) sendDM(ctx context.Context, userID string, msg *discordgo.MessageSend) error {
	// Open DM channel
	ch, err := d.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("open DM channel: %w", err)
	}
	return d.sendWithRetry(ctx, ch.ID, msg)
}

func (d *GuardianDispatcher) sendWithRetry(ctx context.Context, channelID string, msg *discordgo.MessageSend) error {
	var lastErr error
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		sendCtx, cancel := context.WithTimeout(ctx, d.attemptTimeout)
		_, err := d.session.ChannelMessageSendComplex(channelID, msg, discordgo.WithContext(sendCtx))
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
		// Permanent errors such as blocked DMs are final
		if !isTemporaryOrTimeout(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d.pause()):
		}
	}
	return lastErr
}

func isTemporaryOrTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return false
}
