package planner

import (
	"container/heap"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"

	"delhitransit/internal/domain"
	"delhitransit/internal/geo"
	"delhitransit/internal/routename"
)

const (
	metroSpeedKmh       = 40.0
	metroWaitMin        = 3
	metroComfort        = 9
	metroConfidence     = 0.95
	stationSearchKm     = 2.0
	stationSearchLimit  = 3
	maxMetroItineraries = 3
)

type metroEdge struct {
	distanceKm float64
	routeID    string
}

// MetroPlanner owns the station adjacency graph built once from the static
// feed. Read-only after Build, safe for concurrent queries.
type MetroPlanner struct {
	stations map[string]*domain.Station
	adj      map[string]map[string]metroEdge
	names    *routename.Resolver
	logger   *slog.Logger
	loaded   bool
}

func NewMetroPlanner(names *routename.Resolver, logger *slog.Logger) *MetroPlanner {
	return &MetroPlanner{
		stations: make(map[string]*domain.Station),
		adj:      make(map[string]map[string]metroEdge),
		names:    names,
		logger:   logger.With("component", "metro_planner"),
	}
}

// Build wires station adjacency from trip stop sequences: consecutive stops of
// each trip become an undirected edge weighted by geodesic distance and tagged
// with the trip's route. The shorter edge wins when two trips connect the same
// station pair.
func (m *MetroPlanner) Build(
	stations map[string]*domain.Station,
	tripRoutes map[string]string,
	stopSequences map[string][]domain.StopSequence,
) {
	m.stations = stations

	edges := 0
	for tripID, seqs := range stopSequences {
		routeID, ok := tripRoutes[tripID]
		if !ok {
			continue
		}

		ordered := make([]domain.StopSequence, len(seqs))
		copy(ordered, seqs)
		sort.Slice(ordered, func(i, j int) bool {
			return ordered[i].Sequence < ordered[j].Sequence
		})

		for i := 0; i < len(ordered)-1; i++ {
			a, okA := stations[ordered[i].StopID]
			b, okB := stations[ordered[i+1].StopID]
			if !okA || !okB {
				continue
			}

			d := geo.Distance(a.Point(), b.Point())
			if m.addEdge(a.ID, b.ID, d, routeID) {
				edges++
			}
		}
	}

	m.loaded = len(stations) > 0 && edges > 0
	m.logger.Info("metro network built",
		"stations", len(stations),
		"edges", edges,
		"loaded", m.loaded,
	)
}

// addEdge inserts the undirected edge, keeping the shorter distance on
// duplicates. Returns true if the pair was new.
func (m *MetroPlanner) addEdge(a, b string, distanceKm float64, routeID string) bool {
	if m.adj[a] == nil {
		m.adj[a] = make(map[string]metroEdge)
	}
	if m.adj[b] == nil {
		m.adj[b] = make(map[string]metroEdge)
	}

	existing, ok := m.adj[a][b]
	if ok && existing.distanceKm <= distanceKm {
		return false
	}

	edge := metroEdge{distanceKm: distanceKm, routeID: routeID}
	m.adj[a][b] = edge
	m.adj[b][a] = edge
	return !ok
}

// IsLoaded reports whether a usable network was built. When false, Plan
// returns no itineraries and the bus side carries the whole request.
func (m *MetroPlanner) IsLoaded() bool {
	return m.loaded
}

// StationDistance pairs a station with its distance to a query point.
type StationDistance struct {
	Station    *domain.Station `json:"station"`
	DistanceKm float64         `json:"distance_km"`
}

// StationsNear returns up to limit stations within maxKm of the point,
// closest first. Linear scan; the station set is small.
func (m *MetroPlanner) StationsNear(point geo.Point, maxKm float64, limit int) []StationDistance {
	var result []StationDistance

	for _, st := range m.stations {
		d := geo.Distance(point, st.Point())
		if d <= maxKm {
			result = append(result, StationDistance{Station: st, DistanceKm: d})
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].DistanceKm < result[j].DistanceKm
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

// Plan synthesizes up to three metro itineraries between the points, shortest
// total duration first. Station pairs with no connecting path are skipped.
func (m *MetroPlanner) Plan(start, end geo.Point) []*domain.Itinerary {
	if !m.loaded {
		return nil
	}

	startStations := m.StationsNear(start, stationSearchKm, stationSearchLimit)
	endStations := m.StationsNear(end, stationSearchKm, stationSearchLimit)
	if len(startStations) == 0 || len(endStations) == 0 {
		return nil
	}

	var itineraries []*domain.Itinerary
	for _, ss := range startStations {
		for _, es := range endStations {
			path, ok := m.shortestPath(ss.Station.ID, es.Station.ID)
			if !ok || len(path) < 2 {
				continue
			}

			if it := m.synthesizeSafe(path, start, end, ss, es); it != nil {
				itineraries = append(itineraries, it)
			}
		}
	}

	sort.Slice(itineraries, func(i, j int) bool {
		return itineraries[i].TotalDuration < itineraries[j].TotalDuration
	})

	if len(itineraries) > maxMetroItineraries {
		itineraries = itineraries[:maxMetroItineraries]
	}
	return itineraries
}

// synthesizeSafe drops a single candidate on an internal failure instead of
// aborting the whole planning request.
func (m *MetroPlanner) synthesizeSafe(path []string, start, end geo.Point, ss, es StationDistance) (it *domain.Itinerary) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("metro itinerary synthesis failed, dropping candidate",
				"start_station", ss.Station.ID,
				"end_station", es.Station.ID,
				"panic", r,
			)
			it = nil
		}
	}()
	return m.synthesize(path, start, end, ss, es)
}

func (m *MetroPlanner) synthesize(path []string, start, end geo.Point, ss, es StationDistance) *domain.Itinerary {
	var metroKm float64
	lineSet := make(map[string]struct{})
	var lines []string

	for i := 0; i < len(path)-1; i++ {
		edge := m.adj[path[i]][path[i+1]]
		metroKm += edge.distanceKm

		name := m.names.Metro(edge.routeID)
		if _, seen := lineSet[name]; !seen {
			lineSet[name] = struct{}{}
			lines = append(lines, name)
		}
	}

	metroMin := roundMin(metroKm / metroSpeedKmh * 60)
	walkToStartMin := roundMin(ss.DistanceKm * walkMinPerKm)
	walkFromEndMin := roundMin(es.DistanceKm * walkMinPerKm)
	totalMin := metroMin + metroWaitMin + walkToStartMin + walkFromEndMin

	segments := make([]domain.Segment, 0, 3)

	if ss.DistanceKm > minWalkLegKm {
		segments = append(segments, domain.Segment{
			Mode:        domain.ModeWalk,
			Description: fmt.Sprintf("Walk to %s Metro Station (%.2f km)", ss.Station.Name, ss.DistanceKm),
			DurationMin: walkToStartMin,
			DistanceKm:  ss.DistanceKm,
			Path:        []geo.Point{start, ss.Station.Point()},
		})
	}

	stationPath := make([]geo.Point, 0, len(path))
	stops := make([]domain.SegmentStop, 0, len(path))
	for _, id := range path {
		st := m.stations[id]
		stationPath = append(stationPath, st.Point())
		stops = append(stops, domain.SegmentStop{Name: st.Name, Lat: st.Lat, Lon: st.Lon})
	}

	segments = append(segments, domain.Segment{
		Mode:         domain.ModeMetro,
		Description:  fmt.Sprintf("Delhi Metro: %s", strings.Join(lines, " → ")),
		DurationMin:  metroMin,
		DistanceKm:   metroKm,
		RealtimeInfo: fmt.Sprintf("%d stations, %d line(s)", len(path), len(lines)),
		Path:         stationPath,
		Stops:        stops,
	})

	if es.DistanceKm > minWalkLegKm {
		segments = append(segments, domain.Segment{
			Mode:        domain.ModeWalk,
			Description: fmt.Sprintf("Walk to destination (%.2f km)", es.DistanceKm),
			DurationMin: walkFromEndMin,
			DistanceKm:  es.DistanceKm,
			Path:        []geo.Point{es.Station.Point(), end},
		})
	}

	return &domain.Itinerary{
		ID:              uuid.NewString(),
		RouteLabel:      fmt.Sprintf("Delhi Metro (%s)", strings.Join(lines, ", ")),
		TotalDuration:   totalMin,
		TotalCost:       metroFare(metroKm),
		ComfortScore:    metroComfort,
		ConfidenceScore: metroConfidence,
		Summary:         fmt.Sprintf("Take Delhi Metro %s - %.1f km, %d stations", strings.Join(lines, ", "), metroKm, len(path)),
		RealtimeInfo:    fmt.Sprintf("Metro route via %d stations", len(path)),
		Segments:        segments,
		Metro: &domain.MetroDetails{
			Lines:        lines,
			Stations:     len(path),
			DistanceKm:   metroKm,
			StartStation: ss.Station.Name,
			EndStation:   es.Station.Name,
		},
	}
}

// metroFare is the DMRC distance-tier schedule. Tier boundaries belong to the
// higher tier: exactly 2.0 km costs 20.
func metroFare(distanceKm float64) int {
	switch {
	case distanceKm < 2:
		return 10
	case distanceKm < 5:
		return 20
	case distanceKm < 12:
		return 30
	case distanceKm < 21:
		return 40
	case distanceKm < 32:
		return 50
	default:
		return 60
	}
}

// shortestPath runs Dijkstra over the adjacency map. The network is a few
// hundred nodes, so a plain binary heap is plenty.
func (m *MetroPlanner) shortestPath(from, to string) ([]string, bool) {
	if _, ok := m.adj[from]; !ok {
		return nil, false
	}
	if _, ok := m.adj[to]; !ok {
		return nil, false
	}
	if from == to {
		return []string{from}, true
	}

	dist := map[string]float64{from: 0}
	prev := make(map[string]string)
	done := make(map[string]bool)

	pq := &stationQueue{{id: from, dist: 0}}
	heap.Init(pq)

	for pq.Len() > 0 {
		item := heap.Pop(pq).(stationItem)
		if done[item.id] {
			continue
		}
		done[item.id] = true

		if item.id == to {
			break
		}

		for neighbor, edge := range m.adj[item.id] {
			if done[neighbor] {
				continue
			}
			alt := item.dist + edge.distanceKm
			if current, seen := dist[neighbor]; !seen || alt < current {
				dist[neighbor] = alt
				prev[neighbor] = item.id
				heap.Push(pq, stationItem{id: neighbor, dist: alt})
			}
		}
	}

	if !done[to] {
		return nil, false
	}

	var path []string
	for at := to; ; {
		path = append(path, at)
		if at == from {
			break
		}
		at = prev[at]
	}
	reverse(path)

	return path, true
}

type stationItem struct {
	id   string
	dist float64
}

type stationQueue []stationItem

func (q stationQueue) Len() int            { return len(q) }
func (q stationQueue) Less(i, j int) bool  { return q[i].dist < q[j].dist }
func (q stationQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *stationQueue) Push(x interface{}) { *q = append(*q, x.(stationItem)) }
func (q *stationQueue) Pop() interface{} {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

func reverse(s []string) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
