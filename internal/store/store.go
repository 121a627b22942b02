package store

import (
	"sort"
	"sync"
	"time"

	"delhitransit/internal/domain"
)

// Store holds the current vehicle snapshot set with a by-route index.
// Each refresh replaces the whole set; reads get copies.
type Store struct {
	mu       sync.RWMutex
	vehicles map[string]*domain.VehicleSnapshot
	byRoute  map[string]map[string]struct{}

	staleAfter time.Duration
	lastUpdate time.Time
}

func New(staleAfter time.Duration) *Store {
	return &Store{
		vehicles:   make(map[string]*domain.VehicleSnapshot),
		byRoute:    make(map[string]map[string]struct{}),
		staleAfter: staleAfter,
	}
}

// Replace swaps in a fresh snapshot set and returns the deltas against the
// previous one: updates for new or changed vehicles, removes for vanished ones.
func (s *Store) Replace(vehicles []*domain.VehicleSnapshot) []domain.VehicleDelta {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	next := make(map[string]*domain.VehicleSnapshot, len(vehicles))
	byRoute := make(map[string]map[string]struct{})
	deltas := make([]domain.VehicleDelta, 0, len(vehicles))

	for _, v := range vehicles {
		v.UpdatedAt = now
		next[v.ID] = v

		if byRoute[v.RouteID] == nil {
			byRoute[v.RouteID] = make(map[string]struct{})
		}
		byRoute[v.RouteID][v.ID] = struct{}{}

		existing, exists := s.vehicles[v.ID]
		if !exists || hasChanged(existing, v) {
			deltas = append(deltas, domain.VehicleDelta{
				Type:    domain.DeltaUpdate,
				Vehicle: v,
				RouteID: v.RouteID,
			})
		}
	}

	for id, v := range s.vehicles {
		if _, ok := next[id]; !ok {
			deltas = append(deltas, domain.VehicleDelta{
				Type:    domain.DeltaRemove,
				ID:      id,
				RouteID: v.RouteID,
			})
		}
	}

	s.vehicles = next
	s.byRoute = byRoute
	s.lastUpdate = now

	return deltas
}

// PruneStale removes vehicles not refreshed within the stale window. Only
// relevant when no requests arrive for a long time; refreshes already replace
// the set wholesale.
func (s *Store) PruneStale() []domain.VehicleDelta {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-s.staleAfter)
	var deltas []domain.VehicleDelta

	for id, v := range s.vehicles {
		if v.UpdatedAt.Before(cutoff) {
			deltas = append(deltas, domain.VehicleDelta{
				Type:    domain.DeltaRemove,
				ID:      id,
				RouteID: v.RouteID,
			})
			if s.byRoute[v.RouteID] != nil {
				delete(s.byRoute[v.RouteID], id)
				if len(s.byRoute[v.RouteID]) == 0 {
					delete(s.byRoute, v.RouteID)
				}
			}
			delete(s.vehicles, id)
		}
	}

	return deltas
}

func (s *Store) Get(id string) (*domain.VehicleSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vehicles[id]
	if !ok {
		return nil, false
	}
	copy := *v
	return &copy, true
}

// Snapshot returns a copy of every vehicle in the current set.
func (s *Store) Snapshot() []*domain.VehicleSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.VehicleSnapshot, 0, len(s.vehicles))
	for _, v := range s.vehicles {
		copy := *v
		result = append(result, &copy)
	}
	return result
}

// ByRoute returns copies of all vehicles currently on the given route.
func (s *Store) ByRoute(routeID string) []*domain.VehicleSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids, ok := s.byRoute[routeID]
	if !ok {
		return nil
	}

	result := make([]*domain.VehicleSnapshot, 0, len(ids))
	for id := range ids {
		copy := *s.vehicles[id]
		result = append(result, &copy)
	}
	return result
}

// RouteCounts returns live vehicle counts per route, busiest first.
func (s *Store) RouteCounts() []domain.RouteActivity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.RouteActivity, 0, len(s.byRoute))
	for routeID, ids := range s.byRoute {
		result = append(result, domain.RouteActivity{
			RouteID:        routeID,
			ActiveVehicles: len(ids),
		})
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].ActiveVehicles != result[j].ActiveVehicles {
			return result[i].ActiveVehicles > result[j].ActiveVehicles
		}
		return result[i].RouteID < result[j].RouteID
	})

	return result
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vehicles)
}

// LastUpdate returns when the snapshot set was last replaced; zero if never.
func (s *Store) LastUpdate() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUpdate
}

func hasChanged(old, new *domain.VehicleSnapshot) bool {
	const epsilon = 0.000001

	if old.RouteID != new.RouteID || old.Label != new.Label {
		return true
	}

	latDiff := old.Lat - new.Lat
	if latDiff < 0 {
		latDiff = -latDiff
	}
	lonDiff := old.Lon - new.Lon
	if lonDiff < 0 {
		lonDiff = -lonDiff
	}

	if latDiff > epsilon || lonDiff > epsilon {
		return true
	}

	return !old.ObservedAt.Equal(new.ObservedAt)
}
