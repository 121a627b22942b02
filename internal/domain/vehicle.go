package domain

import (
	"time"

	"delhitransit/internal/geo"
)

// VehicleSnapshot is one decoded vehicle position from the realtime feed.
// Immutable once created; a fresh set replaces the previous one per refresh.
type VehicleSnapshot struct {
	ID         string    `json:"id"`
	Label      string    `json:"label,omitempty"`
	RouteID    string    `json:"routeId"`
	Lat        float64   `json:"lat"`
	Lon        float64   `json:"lon"`
	ObservedAt time.Time `json:"observedAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Point returns the vehicle position as a coordinate pair.
func (v *VehicleSnapshot) Point() geo.Point {
	return geo.Point{Lat: v.Lat, Lon: v.Lon}
}

// DeltaType indicates whether a vehicle was updated or removed
type DeltaType string

const (
	DeltaUpdate DeltaType = "update"
	DeltaRemove DeltaType = "remove"
)

// VehicleDelta represents a change in vehicle state between snapshots
type VehicleDelta struct {
	Type    DeltaType        `json:"type"`
	Vehicle *VehicleSnapshot `json:"vehicle,omitempty"`
	ID      string           `json:"id,omitempty"`
	RouteID string           `json:"routeId"`
}

// RouteActivity is the live vehicle count for one route.
type RouteActivity struct {
	RouteID        string `json:"route_id"`
	ActiveVehicles int    `json:"active_vehicles"`
}
