package approval

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/susu3304/tallybot/internal/clock"
)

// Reminder periodically re-dispatches requests that guardians have left
// pending for longer than After. Each request is nudged at most once per
// interval.
type Reminder struct {
	coord    *Coordinator
	clock    clock.Clock
	logger   *slog.Logger
	interval time.Duration
	after    time.Duration

	stopChan chan struct{}
	done     chan struct{}
	ticker   *time.Ticker

	mu       sync.Mutex
	lastSent map[string]time.Time
}

func NewReminder(coord *Coordinator, clk clock.Clock, logger *slog.Logger, interval, after time.Duration) *Reminder {
	if clk == nil {
		clk = clock.NewSystem()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &Reminder{
		coord:    coord,
		clock:    clk,
		logger:   logger,
		interval: interval,
		after:    after,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
		lastSent: make(map[string]time.Time),
	}
}

func (w *Reminder) Start() {
	if w == nil {
		return
	}
	w.ticker = time.NewTicker(w.interval)
	go w.loop()
}

// Stop ends the loop and waits for an in-flight tick.
func (w *Reminder) Stop() {
	if w == nil || w.ticker == nil {
		return
	}
	close(w.stopChan)
	w.ticker.Stop()
	<-w.done
}

func (w *Reminder) loop() {
	defer close(w.done)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-w.stopChan:
			cancel()
		case <-ctx.Done():
		}
	}()
	for {
		select {
		case <-w.ticker.C:
			w.Tick(ctx)
		case <-w.stopChan:
			return
		}
	}
}

// Tick runs one reminder pass and returns how many requests were re-dispatched.
func (w *Reminder) Tick(ctx context.Context) int {
	now := w.clock.Now()
	pending, err := w.coord.Pending(ctx)
	if err != nil {
		w.logger.Error("reminder: load pending requests", "error", err)
		return 0
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	live := make(map[string]bool, len(pending))
	sent := 0
	for _, req := range pending {
		live[req.ID] = true
		if now.Sub(req.RequestedAt) < w.after {
			continue
		}
		if last, ok := w.lastSent[req.ID]; ok && now.Sub(last) < w.interval {
			continue
		}
		if err := w.coord.Redispatch(ctx, req); err != nil {
			w.logger.Warn("reminder: redispatch failed", "request_id", req.ID, "entity_id", req.PoolID, "error", err)
			continue
		}
		w.lastSent[req.ID] = now
		sent++
	}
	for id := range w.lastSent {
		if !live[id] {
			delete(w.lastSent, id)
		}
	}
	return sent
}
