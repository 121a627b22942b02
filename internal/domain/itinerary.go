package domain

import (
	"time"

	"delhitransit/internal/geo"
)

// Mode identifies the means of travel for one itinerary segment.
type Mode string

const (
	ModeWalk  Mode = "WALK"
	ModeBus   Mode = "BUS"
	ModeMetro Mode = "METRO"
)

// Preference selects the ranking criterion for plan requests.
type Preference string

const (
	PreferFastest  Preference = "fastest"
	PreferCheapest Preference = "cheapest"
	PreferBalanced Preference = "balanced"
)

// SegmentStop is one named stop along a segment.
type SegmentStop struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// Segment is one leg of an itinerary.
type Segment struct {
	Mode         Mode          `json:"mode"`
	Description  string        `json:"description"`
	DurationMin  int           `json:"duration"`
	DistanceKm   float64       `json:"distance"`
	Path         []geo.Point   `json:"path"`
	RealtimeInfo string        `json:"realtimeInfo,omitempty"`
	Stops        []SegmentStop `json:"stops,omitempty"`
}

// BusDetails carries bus-specific itinerary information.
type BusDetails struct {
	RouteID      string `json:"route_id"`
	RouteName    string `json:"route_name"`
	LiveVehicles int    `json:"live_vehicles"`
}

// MetroDetails carries metro-specific itinerary information.
type MetroDetails struct {
	Lines        []string `json:"lines"`
	Stations     int      `json:"stations"`
	DistanceKm   float64  `json:"distance_km"`
	StartStation string   `json:"start_station"`
	EndStation   string   `json:"end_station"`
}

// Itinerary is one complete proposed journey composed of ordered segments.
type Itinerary struct {
	ID              string        `json:"id"`
	RouteLabel      string        `json:"routeName"`
	TotalDuration   int           `json:"totalDuration"`
	TotalCost       int           `json:"totalCost"`
	ComfortScore    int           `json:"comfortScore"`
	ConfidenceScore float64       `json:"confidenceScore"`
	Summary         string        `json:"summary"`
	RealtimeInfo    string        `json:"realtimeInfo,omitempty"`
	Segments        []Segment     `json:"segments"`
	Bus             *BusDetails   `json:"busDetails,omitempty"`
	Metro           *MetroDetails `json:"metroDetails,omitempty"`
}

// ApproachStatus classifies a vehicle's movement relative to a target point.
type ApproachStatus string

const (
	StatusApproaching ApproachStatus = "approaching"
	StatusMovingAway  ApproachStatus = "moving_away"
	StatusStationary  ApproachStatus = "stationary"
	StatusUnknown     ApproachStatus = "unknown"
)

// ArrivalPrediction is a short-horizon ETA for one vehicle approaching a point.
// EtaMinutes is clamped to [1, 120]; 999 means unknown/unreachable and EtaTime
// is absent in that case.
type ArrivalPrediction struct {
	VehicleID    string         `json:"bus_id"`
	VehicleLabel string         `json:"vehicle_label,omitempty"`
	EtaMinutes   int            `json:"eta_minutes"`
	EtaTime      *time.Time     `json:"eta_time,omitempty"`
	Confidence   float64        `json:"confidence"`
	Status       ApproachStatus `json:"status"`
	SpeedKmh     float64        `json:"speed_kmh"`
	DistanceKm   float64        `json:"distance_km"`
}
