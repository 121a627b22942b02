package planner

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"delhitransit/internal/domain"
	"delhitransit/internal/geo"
	"delhitransit/internal/routename"
)

const (
	busSpeedKmh   = 20.0 // assumed urban average
	busWaitMin    = 5
	busBaseFare   = 10
	busFarePerKm  = 5
	busComfort    = 7
	walkComfort   = 4
	walkMinPerKm  = 12.0 // ~5 km/h
	minWalkLegKm  = 0.1
	busConfFloor  = 0.3
	busConfWeight = 0.7
)

// BusSynthesizer turns direction-validated route candidates into full
// walk-ride-walk itineraries.
type BusSynthesizer struct {
	names *routename.Resolver
}

func NewBusSynthesizer(names *routename.Resolver) *BusSynthesizer {
	return &BusSynthesizer{names: names}
}

// Synthesize builds one itinerary for a qualifying candidate. The vehicle-pair
// distance stands in for on-route travel distance; true path-following
// distance needs trip shapes we don't have.
func (s *BusSynthesizer) Synthesize(c RouteCandidate, start, end geo.Point) *domain.Itinerary {
	rideKm := geo.Distance(c.StartVehicle.Point(), c.EndVehicle.Point())

	travelMin := roundMin(rideKm / busSpeedKmh * 60)
	walkToStartMin := roundMin(c.StartDistanceKm * walkMinPerKm)
	walkFromEndMin := roundMin(c.EndDistanceKm * walkMinPerKm)
	totalMin := travelMin + busWaitMin + walkToStartMin + walkFromEndMin

	cost := busBaseFare + roundMin(rideKm*float64(busFarePerKm))
	confidence := c.BearingMatch*busConfWeight + busConfFloor
	routeName := s.names.Bus(c.RouteID)

	segments := make([]domain.Segment, 0, 3)

	if c.StartDistanceKm > minWalkLegKm {
		segments = append(segments, domain.Segment{
			Mode:        domain.ModeWalk,
			Description: fmt.Sprintf("Walk to bus stop (%.2f km)", c.StartDistanceKm),
			DurationMin: walkToStartMin,
			DistanceKm:  c.StartDistanceKm,
			Path:        []geo.Point{start, c.StartVehicle.Point()},
		})
	}

	segments = append(segments, domain.Segment{
		Mode:         domain.ModeBus,
		Description:  fmt.Sprintf("DTC %s", routeName),
		DurationMin:  travelMin,
		DistanceKm:   rideKm,
		RealtimeInfo: fmt.Sprintf("Live tracking: %d buses on this route", c.ActiveVehicles),
		Path:         []geo.Point{c.StartVehicle.Point(), c.EndVehicle.Point()},
		Stops: []domain.SegmentStop{
			{Name: fmt.Sprintf("Board at nearest stop (%s)", routeName), Lat: c.StartVehicle.Lat, Lon: c.StartVehicle.Lon},
			{Name: "Alight near destination", Lat: c.EndVehicle.Lat, Lon: c.EndVehicle.Lon},
		},
	})

	if c.EndDistanceKm > minWalkLegKm {
		segments = append(segments, domain.Segment{
			Mode:        domain.ModeWalk,
			Description: fmt.Sprintf("Walk to destination (%.2f km)", c.EndDistanceKm),
			DurationMin: walkFromEndMin,
			DistanceKm:  c.EndDistanceKm,
			Path:        []geo.Point{c.EndVehicle.Point(), end},
		})
	}

	return &domain.Itinerary{
		ID:              uuid.NewString(),
		RouteLabel:      routeName,
		TotalDuration:   totalMin,
		TotalCost:       cost,
		ComfortScore:    busComfort,
		ConfidenceScore: confidence,
		Summary:         fmt.Sprintf("Take %s - %.1f km journey with %d buses currently running", routeName, rideKm, c.ActiveVehicles),
		RealtimeInfo:    fmt.Sprintf("%d buses tracked live on this route", c.ActiveVehicles),
		Segments:        segments,
		Bus: &domain.BusDetails{
			RouteID:      c.RouteID,
			RouteName:    routeName,
			LiveVehicles: c.ActiveVehicles,
		},
	}
}

// WalkingRoute is the fallback itinerary when no bus candidate qualifies at
// any tried radius: walk the direct geodesic distance.
func (s *BusSynthesizer) WalkingRoute(start, end geo.Point) *domain.Itinerary {
	distanceKm := geo.Distance(start, end)
	walkMin := roundMin(distanceKm * walkMinPerKm)

	return &domain.Itinerary{
		ID:              uuid.NewString(),
		RouteLabel:      "Walking Route",
		TotalDuration:   walkMin,
		TotalCost:       0,
		ComfortScore:    walkComfort,
		ConfidenceScore: 1.0,
		Summary:         fmt.Sprintf("Walk %.1f km to destination", distanceKm),
		RealtimeInfo:    "No buses found nearby - walking suggested",
		Segments: []domain.Segment{
			{
				Mode:        domain.ModeWalk,
				Description: fmt.Sprintf("Walk %.1f km", distanceKm),
				DurationMin: walkMin,
				DistanceKm:  distanceKm,
				Path:        []geo.Point{start, end},
			},
		},
	}
}

func roundMin(v float64) int {
	return int(math.Round(v))
}
