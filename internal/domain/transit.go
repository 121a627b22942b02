package domain

import (
	"delhitransit/internal/geo"
)

// Station is a metro station from the static network feed.
// Loaded once, immutable for the process lifetime.
type Station struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// Point returns the station location as a coordinate pair.
func (s *Station) Point() geo.Point {
	return geo.Point{Lat: s.Lat, Lon: s.Lon}
}

// RouteRow is one row of the static routes table, used for display names.
type RouteRow struct {
	ID        string `json:"id"`
	ShortName string `json:"short_name"`
	LongName  string `json:"long_name"`
}

// StopSequence is one (trip, stop, sequence) row from the static feed.
type StopSequence struct {
	TripID   string
	StopID   string
	Sequence int
}
