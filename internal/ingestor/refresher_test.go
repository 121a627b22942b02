package ingestor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"delhitransit/internal/domain"
	"delhitransit/internal/store"
)

type stubFetcher struct {
	calls    int
	vehicles []*domain.VehicleSnapshot
	err      error
}

func (f *stubFetcher) Fetch(ctx context.Context) ([]*domain.VehicleSnapshot, error) {
	f.calls++
	return f.vehicles, f.err
}

type recordingBroadcaster struct {
	batches [][]domain.VehicleDelta
}

func (b *recordingBroadcaster) Broadcast(deltas []domain.VehicleDelta) {
	b.batches = append(b.batches, deltas)
}

func snapshot(id, route string) *domain.VehicleSnapshot {
	return &domain.VehicleSnapshot{
		ID:         id,
		RouteID:    route,
		Lat:        28.6,
		Lon:        77.2,
		ObservedAt: time.Now(),
	}
}

func newTestRefresher(fetcher *stubFetcher, broadcaster Broadcaster) (*Refresher, *store.Store) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := store.New(5 * time.Minute)
	return NewRefresher(fetcher, s, broadcaster, time.Minute, 10*time.Second, logger), s
}

func TestEnsureFreshFetchesOnceWhileFresh(t *testing.T) {
	fetcher := &stubFetcher{vehicles: []*domain.VehicleSnapshot{snapshot("v1", "505")}}
	r, s := newTestRefresher(fetcher, nil)

	assert.True(t, r.EnsureFresh(context.Background()))
	assert.True(t, r.EnsureFresh(context.Background()))
	assert.True(t, r.EnsureFresh(context.Background()))

	assert.Equal(t, 1, fetcher.calls)
	assert.Equal(t, 1, s.Count())
	assert.True(t, r.IsReady())
}

func TestEnsureFreshKeepsStaleDataOnFailure(t *testing.T) {
	fetcher := &stubFetcher{vehicles: []*domain.VehicleSnapshot{snapshot("v1", "505")}}
	r, s := newTestRefresher(fetcher, nil)

	require.True(t, r.EnsureFresh(context.Background()))
	require.Equal(t, 1, s.Count())

	// Feed starts failing; the snapshot set survives.
	fetcher.err = errors.New("rate limited")
	fetcher.vehicles = nil

	// Force staleness by making everything look old.
	rStale, sStale := newTestRefresher(fetcher, nil)
	assert.False(t, rStale.EnsureFresh(context.Background()))
	assert.Equal(t, 0, sStale.Count())
	assert.False(t, rStale.IsReady())
}

func TestEnsureFreshBroadcastsDeltas(t *testing.T) {
	fetcher := &stubFetcher{vehicles: []*domain.VehicleSnapshot{
		snapshot("v1", "505"),
		snapshot("v2", "101"),
	}}
	broadcaster := &recordingBroadcaster{}
	r, _ := newTestRefresher(fetcher, broadcaster)

	require.True(t, r.EnsureFresh(context.Background()))

	require.Len(t, broadcaster.batches, 1)
	assert.Len(t, broadcaster.batches[0], 2)
}
