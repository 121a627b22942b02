// Package ingestor keeps the vehicle snapshot set current. Fetches happen
// lazily on demand instead of on a poll loop: the Delhi feed rate-limits
// aggressively, so we only pay for a fetch when a query actually needs fresh
// data.
package ingestor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"delhitransit/internal/domain"
	"delhitransit/internal/store"
)

// VehicleFetcher pulls the current vehicle positions from the realtime feed.
type VehicleFetcher interface {
	Fetch(ctx context.Context) ([]*domain.VehicleSnapshot, error)
}

// Broadcaster fans vehicle deltas out to live subscribers.
type Broadcaster interface {
	Broadcast(deltas []domain.VehicleDelta)
}

type Refresher struct {
	client      VehicleFetcher
	store       *store.Store
	broadcaster Broadcaster
	maxAge      time.Duration
	timeout     time.Duration
	logger      *slog.Logger

	// Serializes fetches so concurrent queries trigger at most one.
	mu sync.Mutex

	ready   bool
	readyMu sync.RWMutex
}

func NewRefresher(client VehicleFetcher, s *store.Store, broadcaster Broadcaster, maxAge, timeout time.Duration, logger *slog.Logger) *Refresher {
	return &Refresher{
		client:      client,
		store:       s,
		broadcaster: broadcaster,
		maxAge:      maxAge,
		timeout:     timeout,
		logger:      logger.With("component", "refresher"),
	}
}

// EnsureFresh fetches new vehicle positions when the snapshot set is older
// than maxAge. Returns true when the set is fresh on exit. A failed fetch
// keeps the stale data and returns false; queries degrade rather than fail.
func (r *Refresher) EnsureFresh(ctx context.Context) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	last := r.store.LastUpdate()
	if !last.IsZero() && time.Since(last) < r.maxAge {
		return true
	}

	fetchCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	vehicles, err := r.client.Fetch(fetchCtx)
	if err != nil {
		r.logger.Error("vehicle fetch failed, keeping stale data",
			"error", err,
			"stale_for", time.Since(last).String(),
		)
		return false
	}

	deltas := r.store.Replace(vehicles)
	if r.broadcaster != nil && len(deltas) > 0 {
		r.broadcaster.Broadcast(deltas)
	}

	if !r.IsReady() {
		r.setReady(true)
		r.logger.Info("refresher ready", "vehicles", len(vehicles))
	}

	r.logger.Debug("vehicle snapshot refreshed",
		"vehicles", len(vehicles),
		"deltas", len(deltas),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return true
}

// IsReady reports whether at least one fetch has succeeded.
func (r *Refresher) IsReady() bool {
	r.readyMu.RLock()
	defer r.readyMu.RUnlock()
	return r.ready
}

func (r *Refresher) setReady(ready bool) {
	r.readyMu.Lock()
	defer r.readyMu.Unlock()
	r.ready = ready
}
