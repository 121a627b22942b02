package planner

import (
	"context"
	"log/slog"
	"sort"

	"delhitransit/internal/domain"
	"delhitransit/internal/geo"
	"delhitransit/internal/predict"
	"delhitransit/internal/store"
)

const (
	maxBusCandidates = 3
	maxItineraries   = 5

	balancedDurationWeight = 0.6
	balancedCostWeight     = 0.4
)

// Refresher brings the vehicle snapshot up to date before a query. A false
// return means the fetch failed and queries run against the stale set.
type Refresher interface {
	EnsureFresh(ctx context.Context) bool
}

// Planner is the engine facade consumed by the transport layer: multi-modal
// route planning, proximity queries and arrival predictions against one
// vehicle snapshot set and the static metro network.
type Planner struct {
	store     *store.Store
	refresher Refresher
	predictor *predict.Predictor
	metro     *MetroPlanner
	bus       *BusSynthesizer

	// Candidate search radii in km, tried in order until one yields routes.
	searchRadii []float64

	logger *slog.Logger
}

func New(
	s *store.Store,
	refresher Refresher,
	predictor *predict.Predictor,
	metro *MetroPlanner,
	bus *BusSynthesizer,
	searchRadii []float64,
	logger *slog.Logger,
) *Planner {
	if len(searchRadii) == 0 {
		searchRadii = []float64{2.0, 4.0}
	}
	return &Planner{
		store:       s,
		refresher:   refresher,
		predictor:   predictor,
		metro:       metro,
		bus:         bus,
		searchRadii: searchRadii,
		logger:      logger.With("component", "planner"),
	}
}

// PlanRoute returns up to five itineraries between the points, ranked by the
// given preference. At least one itinerary is always returned; with no usable
// bus candidates the walking fallback covers the request.
func (p *Planner) PlanRoute(ctx context.Context, start, end geo.Point, pref domain.Preference) []*domain.Itinerary {
	p.refresher.EnsureFresh(ctx)
	vehicles := p.store.Snapshot()

	var candidates []RouteCandidate
	for _, radius := range p.searchRadii {
		candidates = FilterByDirection(CandidateRoutes(vehicles, start, end, radius), start, end)
		if len(candidates) > 0 {
			break
		}
	}

	var itineraries []*domain.Itinerary
	if len(candidates) == 0 {
		itineraries = append(itineraries, p.bus.WalkingRoute(start, end))
	} else {
		if len(candidates) > maxBusCandidates {
			candidates = candidates[:maxBusCandidates]
		}
		for _, c := range candidates {
			itineraries = append(itineraries, p.bus.Synthesize(c, start, end))
		}
	}

	itineraries = append(itineraries, p.metro.Plan(start, end)...)

	sortByPreference(itineraries, pref)

	if len(itineraries) > maxItineraries {
		itineraries = itineraries[:maxItineraries]
	}

	p.logger.Debug("route planned",
		"bus_candidates", len(candidates),
		"itineraries", len(itineraries),
		"preference", pref,
	)
	return itineraries
}

// NearbyVehicles returns vehicles within radiusKm of the point, closest first.
func (p *Planner) NearbyVehicles(ctx context.Context, point geo.Point, radiusKm float64) []VehicleDistance {
	p.refresher.EnsureFresh(ctx)
	return Nearby(p.store.Snapshot(), point, radiusKm)
}

// Arrivals predicts the next arrivals at the point. An empty routeID covers
// all routes; an empty result is a valid answer, not an error.
func (p *Planner) Arrivals(ctx context.Context, point geo.Point, routeID string, limit int) []domain.ArrivalPrediction {
	p.refresher.EnsureFresh(ctx)

	var vehicles []*domain.VehicleSnapshot
	if routeID != "" {
		vehicles = p.store.ByRoute(routeID)
	} else {
		vehicles = p.store.Snapshot()
	}

	return p.predictor.RankNextArrivals(point, routeID, vehicles, limit)
}

// ActiveRoutes returns live vehicle counts per route, busiest first.
func (p *Planner) ActiveRoutes(ctx context.Context) []domain.RouteActivity {
	p.refresher.EnsureFresh(ctx)
	return p.store.RouteCounts()
}

// StationsNear exposes the metro station proximity query.
func (p *Planner) StationsNear(point geo.Point, maxKm float64, limit int) []StationDistance {
	return p.metro.StationsNear(point, maxKm, limit)
}

func sortByPreference(itineraries []*domain.Itinerary, pref domain.Preference) {
	switch pref {
	case domain.PreferCheapest:
		sort.Slice(itineraries, func(i, j int) bool {
			return itineraries[i].TotalCost < itineraries[j].TotalCost
		})
	case domain.PreferBalanced:
		score := func(it *domain.Itinerary) float64 {
			return balancedDurationWeight*float64(it.TotalDuration) + balancedCostWeight*float64(it.TotalCost)
		}
		sort.Slice(itineraries, func(i, j int) bool {
			return score(itineraries[i]) < score(itineraries[j])
		})
	default: // fastest
		sort.Slice(itineraries, func(i, j int) bool {
			return itineraries[i].TotalDuration < itineraries[j].TotalDuration
		})
	}
}
