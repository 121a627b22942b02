package planner

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"delhitransit/internal/domain"
	"delhitransit/internal/geo"
	"delhitransit/internal/routename"
)

// One kilometre of pure latitude on a 6371 km sphere.
const latDegPerKm = 0.0089932

func testStation(id, name string, lat, lon float64) *domain.Station {
	return &domain.Station{ID: id, Name: name, Lat: lat, Lon: lon}
}

// newTestMetro builds a three-station line A-B-C with 1.0 km and 1.5 km
// segments, all on route RED1.
func newTestMetro(t *testing.T) (*MetroPlanner, map[string]*domain.Station) {
	t.Helper()

	stations := map[string]*domain.Station{
		"A": testStation("A", "Alpha", 28.60, 77.20),
		"B": testStation("B", "Bravo", 28.60+1.0*latDegPerKm, 77.20),
		"C": testStation("C", "Charlie", 28.60+2.5*latDegPerKm, 77.20),
	}
	tripRoutes := map[string]string{"trip1": "RED1"}
	stopSequences := map[string][]domain.StopSequence{
		"trip1": {
			{TripID: "trip1", StopID: "A", Sequence: 1},
			{TripID: "trip1", StopID: "B", Sequence: 2},
			{TripID: "trip1", StopID: "C", Sequence: 3},
		},
	}

	names := routename.NewResolver(map[string]*domain.RouteRow{
		"RED1": {ID: "RED1", LongName: "RED_Rithala to Shaheed Sthal"},
	})
	m := NewMetroPlanner(names, slog.New(slog.NewTextHandler(io.Discard, nil)))
	m.Build(stations, tripRoutes, stopSequences)

	require.True(t, m.IsLoaded())
	return m, stations
}

func TestMetroPlanEndToEnd(t *testing.T) {
	m, stations := newTestMetro(t)

	// 0.15 km south of Alpha and 0.15 km north of Charlie, so both
	// walking legs clear the minimum-leg threshold.
	start := geo.Point{Lat: stations["A"].Lat - 0.15*latDegPerKm, Lon: 77.20}
	end := geo.Point{Lat: stations["C"].Lat + 0.15*latDegPerKm, Lon: 77.20}

	itineraries := m.Plan(start, end)
	require.NotEmpty(t, itineraries)

	it := itineraries[0]
	require.NotNil(t, it.Metro)
	assert.InDelta(t, 2.5, it.Metro.DistanceKm, 0.01)
	assert.Equal(t, 3, it.Metro.Stations)
	assert.Equal(t, "Alpha", it.Metro.StartStation)
	assert.Equal(t, "Charlie", it.Metro.EndStation)
	assert.Equal(t, []string{"Red Line"}, it.Metro.Lines)

	// 2.5 km at 40 km/h rounds to 4 min, plus 3 min wait and two 2 min walks.
	assert.Equal(t, 11, it.TotalDuration)
	assert.Equal(t, 20, it.TotalCost)
	assert.Equal(t, 9, it.ComfortScore)
	assert.InDelta(t, 0.95, it.ConfidenceScore, 0.001)

	require.Len(t, it.Segments, 3)
	assert.Equal(t, domain.ModeWalk, it.Segments[0].Mode)
	assert.Equal(t, domain.ModeMetro, it.Segments[1].Mode)
	assert.Equal(t, domain.ModeWalk, it.Segments[2].Mode)
	assert.Len(t, it.Segments[1].Stops, 3)
}

func TestMetroPlanNoNearbyStations(t *testing.T) {
	m, _ := newTestMetro(t)

	// 50 km away from the network.
	start := geo.Point{Lat: 29.05, Lon: 77.20}
	end := geo.Point{Lat: 29.10, Lon: 77.20}

	assert.Empty(t, m.Plan(start, end))
}

func TestMetroPlanSkipsDisconnectedPairs(t *testing.T) {
	stations := map[string]*domain.Station{
		"A": testStation("A", "Alpha", 28.60, 77.20),
		"B": testStation("B", "Bravo", 28.60+1.0*latDegPerKm, 77.20),
		// Island pair far to the east, reachable for the end query
		// but not connected to A-B.
		"X": testStation("X", "Xray", 28.60, 77.40),
		"Y": testStation("Y", "Yankee", 28.60+1.0*latDegPerKm, 77.40),
	}
	tripRoutes := map[string]string{"t1": "RED1", "t2": "BLUE1"}
	stopSequences := map[string][]domain.StopSequence{
		"t1": {
			{TripID: "t1", StopID: "A", Sequence: 1},
			{TripID: "t1", StopID: "B", Sequence: 2},
		},
		"t2": {
			{TripID: "t2", StopID: "X", Sequence: 1},
			{TripID: "t2", StopID: "Y", Sequence: 2},
		},
	}

	m := NewMetroPlanner(routename.NewResolver(nil), slog.New(slog.NewTextHandler(io.Discard, nil)))
	m.Build(stations, tripRoutes, stopSequences)
	require.True(t, m.IsLoaded())

	start := geo.Point{Lat: 28.60, Lon: 77.20}
	end := geo.Point{Lat: 28.60, Lon: 77.40}

	assert.Empty(t, m.Plan(start, end))
}

func TestMetroShortestPathPrefersShorterBranch(t *testing.T) {
	// Diamond: A-B-D is 2.0 km, A-C-D is 2.5 km.
	stations := map[string]*domain.Station{
		"A": testStation("A", "Alpha", 28.60, 77.20),
		"B": testStation("B", "Bravo", 28.60+1.0*latDegPerKm, 77.20),
		"C": testStation("C", "Charlie", 28.60+1.5*latDegPerKm, 77.25),
		"D": testStation("D", "Delta", 28.60+2.0*latDegPerKm, 77.20),
	}
	tripRoutes := map[string]string{"t1": "R1", "t2": "R2"}
	stopSequences := map[string][]domain.StopSequence{
		"t1": {
			{TripID: "t1", StopID: "A", Sequence: 1},
			{TripID: "t1", StopID: "B", Sequence: 2},
			{TripID: "t1", StopID: "D", Sequence: 3},
		},
		"t2": {
			{TripID: "t2", StopID: "A", Sequence: 1},
			{TripID: "t2", StopID: "C", Sequence: 2},
			{TripID: "t2", StopID: "D", Sequence: 3},
		},
	}

	m := NewMetroPlanner(routename.NewResolver(nil), slog.New(slog.NewTextHandler(io.Discard, nil)))
	m.Build(stations, tripRoutes, stopSequences)

	path, ok := m.shortestPath("A", "D")
	require.True(t, ok)
	assert.Equal(t, []string{"A", "B", "D"}, path)
}

func TestMetroFareTiers(t *testing.T) {
	tests := []struct {
		distanceKm float64
		want       int
	}{
		{1.9, 10},
		{2.0, 20},
		{4.99, 20},
		{5.0, 30},
		{11.9, 30},
		{12.0, 40},
		{20.9, 40},
		{21.0, 50},
		{31.9, 50},
		{32.0, 60},
		{80.0, 60},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, metroFare(tt.distanceKm), "distance %.2f", tt.distanceKm)
	}
}

func TestMetroAddEdgeShorterWins(t *testing.T) {
	m := NewMetroPlanner(routename.NewResolver(nil), slog.New(slog.NewTextHandler(io.Discard, nil)))

	assert.True(t, m.addEdge("A", "B", 2.0, "slow"))
	assert.False(t, m.addEdge("A", "B", 1.0, "fast"))
	assert.False(t, m.addEdge("A", "B", 1.5, "middling"))

	edge := m.adj["A"]["B"]
	assert.InDelta(t, 1.0, edge.distanceKm, 0.001)
	assert.Equal(t, "fast", edge.routeID)
	assert.Equal(t, edge, m.adj["B"]["A"])
}
