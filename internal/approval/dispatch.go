package approval

import (
	"context"
	"log/slog"

	"github.com/susu3304/tallybot/internal/entity"
	"golang.org/x/sync/errgroup"
)

// Dispatcher delivers a pending request to its guardians. It is called
// outside the entity lock and may block on network I/O.
type Dispatcher interface {
	Dispatch(ctx context.Context, req entity.PendingRequest) error
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(ctx context.Context, req entity.PendingRequest) error

func (f DispatcherFunc) Dispatch(ctx context.Context, req entity.PendingRequest) error {
	return f(ctx, req)
}

// LogDispatcher only records the request. It is the default when no chat
// surface is configured; guardians then decide through the REST API.
type LogDispatcher struct {
	Logger *slog.Logger
}

func (d LogDispatcher) Dispatch(_ context.Context, req entity.PendingRequest) error {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("claim request awaiting guardians",
		"request_id", req.ID,
		"entity_id", req.PoolID,
		"requester_id", req.RequesterID,
		"guardian_ids", req.GuardianIDs[:],
	)
	return nil
}

// Fanout sends every request to all dispatchers concurrently and returns the
// first error.
type Fanout []Dispatcher

func (f Fanout) Dispatch(ctx context.Context, req entity.PendingRequest) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, d := range f {
		g.Go(func() error { return d.Dispatch(ctx, req) })
	}
	return g.Wait()
}
