package ingestor

import (
	"context"
	"log/slog"
	"time"

	"delhitransit/internal/predict"
	"delhitransit/internal/store"
)

// Maintenance owns the periodic housekeeping that must not ride on request
// paths: dropping position histories nobody has updated and pruning vehicles
// that vanished from the feed.
type Maintenance struct {
	store       *store.Store
	predictor   *predict.Predictor
	broadcaster Broadcaster
	interval    time.Duration
	logger      *slog.Logger
}

func NewMaintenance(s *store.Store, p *predict.Predictor, broadcaster Broadcaster, interval time.Duration, logger *slog.Logger) *Maintenance {
	return &Maintenance{
		store:       s,
		predictor:   p,
		broadcaster: broadcaster,
		interval:    interval,
		logger:      logger.With("component", "maintenance"),
	}
}

func (m *Maintenance) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

func (m *Maintenance) sweep() {
	swept := m.predictor.SweepStale()

	deltas := m.store.PruneStale()
	if len(deltas) > 0 && m.broadcaster != nil {
		m.broadcaster.Broadcast(deltas)
	}

	if swept > 0 || len(deltas) > 0 {
		m.logger.Info("maintenance sweep",
			"histories_dropped", swept,
			"vehicles_pruned", len(deltas),
			"tracked", m.predictor.TrackedVehicles(),
		)
	}
}
