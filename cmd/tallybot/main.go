package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/susu3304/tallybot/internal/api"
	"github.com/susu3304/tallybot/internal/approval"
	"github.com/susu3304/tallybot/internal/bot"
	"github.com/susu3304/tallybot/internal/clock"
	"github.com/susu3304/tallybot/internal/config"
	"github.com/susu3304/tallybot/internal/db"
	"github.com/susu3304/tallybot/internal/entity"
	"github.com/susu3304/tallybot/internal/ledger"
	"github.com/susu3304/tallybot/internal/memstore"
	"github.com/susu3304/tallybot/internal/serializer"
	"github.com/susu3304/tallybot/internal/sqlitestore"
	"github.com/susu3304/tallybot/internal/telemetry"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	level, _ := config.ParseLevel(cfg.LogLevel)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, "tallybot", cfg.OTelEndpoint)
	if err != nil {
		return err
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()
	logger.Info("entity store ready", "backend", cfg.StoreBackend)

	clk := clock.NewSystem()
	locks := serializer.New(store, logger, cfg.LockWaitTimeout)
	engine := ledger.New(store, locks, clk, logger)

	dispatchers := approval.Fanout{approval.LogDispatcher{Logger: logger}}
	var discordBot *bot.Bot
	if cfg.DiscordToken != "" {
		discordBot, err = bot.New(cfg.DiscordToken, engine, logger)
		if err != nil {
			return err
		}
		dispatchers = append(dispatchers, discordBot.Dispatcher())
	} else {
		logger.Warn("DISCORD_TOKEN is empty; running API only")
	}
	coord := approval.New(engine, dispatchers, logger)

	// Start Discord bot
	if discordBot != nil {
		discordBot.SetCoordinator(coord)
		if err := discordBot.Start(); err != nil {
			return err
		}
		defer discordBot.Stop()
	}

	reminder := approval.NewReminder(coord, clk, logger, cfg.ReminderInterval, cfg.ReminderAfter)
	reminder.Start()

	// Start API server
	apiServer := api.New(cfg, engine, coord, logger)
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- apiServer.Start()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-serveErr:
		if err != nil {
			logger.Error("API server error", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	reminder.Stop()
	var errs []error
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	// In-flight mutations finish before the store is closed.
	if err := locks.Close(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func openStore(ctx context.Context, cfg *config.Config) (entity.Store, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		database, err := db.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := database.RunMigrations(ctx); err != nil {
			database.Close()
			return nil, nil, err
		}
		return database, database.Close, nil
	case config.BackendSQLite:
		s, err := sqlitestore.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {
			if err := s.Close(); err != nil {
				slog.Error("close sqlite store", "error", err)
			}
		}, nil
	}
	return memstore.New(), func() {}, nil
}
