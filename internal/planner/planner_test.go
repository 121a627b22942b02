package planner

import (
	"context"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"delhitransit/internal/domain"
	"delhitransit/internal/geo"
	"delhitransit/internal/predict"
	"delhitransit/internal/routename"
	"delhitransit/internal/store"
)

type stubRefresher struct {
	calls int
	ok    bool
}

func (r *stubRefresher) EnsureFresh(ctx context.Context) bool {
	r.calls++
	return r.ok
}

func newTestPlanner(t *testing.T, vehicles []*domain.VehicleSnapshot) (*Planner, *stubRefresher) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := store.New(5 * time.Minute)
	if len(vehicles) > 0 {
		s.Replace(vehicles)
	}

	names := routename.NewResolver(nil)
	refresher := &stubRefresher{ok: true}
	p := New(
		s,
		refresher,
		predict.New(logger),
		NewMetroPlanner(names, logger),
		NewBusSynthesizer(names),
		nil,
		logger,
	)
	return p, refresher
}

func TestPlanRouteWalkingFallbackWhenNothingAvailable(t *testing.T) {
	p, refresher := newTestPlanner(t, nil)

	start := geo.Point{Lat: 28.6129, Lon: 77.2295}
	end := geo.Point{Lat: 28.5517, Lon: 77.1983}

	itineraries := p.PlanRoute(context.Background(), start, end, domain.PreferFastest)

	require.Len(t, itineraries, 1)
	it := itineraries[0]
	assert.Equal(t, "Walking Route", it.RouteLabel)
	assert.Equal(t, 0, it.TotalCost)
	assert.Equal(t, 4, it.ComfortScore)
	assert.InDelta(t, 1.0, it.ConfidenceScore, 0.001)
	assert.Equal(t, int(math.Round(geo.Distance(start, end)*walkMinPerKm)), it.TotalDuration)
	assert.Equal(t, 1, refresher.calls)
}

func TestPlanRouteBusItinerary(t *testing.T) {
	start := geo.Point{Lat: 28.60, Lon: 77.20}
	end := geo.Point{Lat: 28.65, Lon: 77.20}

	p, _ := newTestPlanner(t, []*domain.VehicleSnapshot{
		testVehicle("v1", "505", 28.602, 77.20),
		testVehicle("v2", "505", 28.648, 77.20),
	})

	itineraries := p.PlanRoute(context.Background(), start, end, domain.PreferFastest)

	require.Len(t, itineraries, 1)
	it := itineraries[0]
	require.NotNil(t, it.Bus)
	assert.Equal(t, "505", it.Bus.RouteID)
	assert.Equal(t, 2, it.Bus.LiveVehicles)
}

func TestPlanRouteWiderRadiusOnEmptyFirstPass(t *testing.T) {
	start := geo.Point{Lat: 28.60, Lon: 77.20}
	end := geo.Point{Lat: 28.70, Lon: 77.20}

	// Vehicles ~3 km from the endpoints: outside the 2 km first pass,
	// inside the 4 km second pass.
	p, _ := newTestPlanner(t, []*domain.VehicleSnapshot{
		testVehicle("v1", "720", 28.627, 77.20),
		testVehicle("v2", "720", 28.673, 77.20),
	})

	itineraries := p.PlanRoute(context.Background(), start, end, domain.PreferFastest)

	require.Len(t, itineraries, 1)
	require.NotNil(t, itineraries[0].Bus)
	assert.Equal(t, "720", itineraries[0].Bus.RouteID)
}

func TestNearbyVehiclesRefreshesFirst(t *testing.T) {
	point := geo.Point{Lat: 28.60, Lon: 77.20}

	p, refresher := newTestPlanner(t, []*domain.VehicleSnapshot{
		testVehicle("v1", "505", 28.601, 77.20),
	})

	result := p.NearbyVehicles(context.Background(), point, 2.0)

	require.Len(t, result, 1)
	assert.Equal(t, "v1", result[0].Vehicle.ID)
	assert.Equal(t, 1, refresher.calls)
}

func TestArrivalsFiltersByRoute(t *testing.T) {
	point := geo.Point{Lat: 28.60, Lon: 77.20}

	p, _ := newTestPlanner(t, []*domain.VehicleSnapshot{
		testVehicle("v1", "505", 28.601, 77.20),
		testVehicle("v2", "101", 28.602, 77.20),
	})

	predictions := p.Arrivals(context.Background(), point, "505", 5)

	require.Len(t, predictions, 1)
	assert.Equal(t, "v1", predictions[0].VehicleID)
}

func TestActiveRoutes(t *testing.T) {
	p, _ := newTestPlanner(t, []*domain.VehicleSnapshot{
		testVehicle("v1", "505", 28.601, 77.20),
		testVehicle("v2", "505", 28.602, 77.20),
		testVehicle("v3", "101", 28.603, 77.20),
	})

	routes := p.ActiveRoutes(context.Background())

	require.Len(t, routes, 2)
	assert.Equal(t, "505", routes[0].RouteID)
	assert.Equal(t, 2, routes[0].ActiveVehicles)
}

func TestSortByPreference(t *testing.T) {
	make3 := func() []*domain.Itinerary {
		return []*domain.Itinerary{
			{ID: "slow-cheap", TotalDuration: 60, TotalCost: 10},
			{ID: "fast-pricey", TotalDuration: 20, TotalCost: 60},
			{ID: "middle", TotalDuration: 35, TotalCost: 25},
		}
	}

	fastest := make3()
	sortByPreference(fastest, domain.PreferFastest)
	assert.Equal(t, "fast-pricey", fastest[0].ID)

	cheapest := make3()
	sortByPreference(cheapest, domain.PreferCheapest)
	assert.Equal(t, "slow-cheap", cheapest[0].ID)

	// Balanced scores: 0.6*60+0.4*10=40, 0.6*20+0.4*60=36, 0.6*35+0.4*25=31.
	balanced := make3()
	sortByPreference(balanced, domain.PreferBalanced)
	assert.Equal(t, "middle", balanced[0].ID)
	assert.Equal(t, "fast-pricey", balanced[1].ID)
	assert.Equal(t, "slow-cheap", balanced[2].ID)
}
