package store

import (
	"sync"
	"time"

	"delhitransit/internal/domain"
)

// StaticStore holds the parsed static network feed: stations, route rows and
// trip stop sequences. Written once at startup, read-only afterwards.
type StaticStore struct {
	mu            sync.RWMutex
	stations      map[string]*domain.Station
	routes        map[string]*domain.RouteRow
	tripRoutes    map[string]string
	stopSequences map[string][]domain.StopSequence

	lastUpdate time.Time
}

func NewStaticStore() *StaticStore {
	return &StaticStore{
		stations:      make(map[string]*domain.Station),
		routes:        make(map[string]*domain.RouteRow),
		tripRoutes:    make(map[string]string),
		stopSequences: make(map[string][]domain.StopSequence),
	}
}

func (s *StaticStore) UpdateAll(
	stations map[string]*domain.Station,
	routes map[string]*domain.RouteRow,
	tripRoutes map[string]string,
	stopSequences map[string][]domain.StopSequence,
) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stations = stations
	s.routes = routes
	s.tripRoutes = tripRoutes
	s.stopSequences = stopSequences
	s.lastUpdate = time.Now()
}

func (s *StaticStore) GetStation(id string) (*domain.Station, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.stations[id]
	if !ok {
		return nil, false
	}
	copy := *st
	return &copy, true
}

func (s *StaticStore) AllStations() []*domain.Station {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Station, 0, len(s.stations))
	for _, st := range s.stations {
		copy := *st
		result = append(result, &copy)
	}
	return result
}

func (s *StaticStore) GetRoute(id string) (*domain.RouteRow, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.routes[id]
	if !ok {
		return nil, false
	}
	copy := *r
	return &copy, true
}

func (s *StaticStore) IsLoaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.lastUpdate.IsZero()
}

type StaticStats struct {
	StationsCount int       `json:"stations_count"`
	RoutesCount   int       `json:"routes_count"`
	TripsCount    int       `json:"trips_count"`
	LastUpdate    time.Time `json:"last_update"`
	IsLoaded      bool      `json:"is_loaded"`
}

func (s *StaticStore) Stats() StaticStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return StaticStats{
		StationsCount: len(s.stations),
		RoutesCount:   len(s.routes),
		TripsCount:    len(s.tripRoutes),
		LastUpdate:    s.lastUpdate,
		IsLoaded:      !s.lastUpdate.IsZero(),
	}
}
