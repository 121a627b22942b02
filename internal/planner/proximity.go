package planner

import (
	"sort"

	"delhitransit/internal/domain"
	"delhitransit/internal/geo"
)

// VehicleDistance pairs a vehicle with its distance to a query point.
type VehicleDistance struct {
	Vehicle    *domain.VehicleSnapshot `json:"vehicle"`
	DistanceKm float64                 `json:"distance_km"`
}

// Nearby returns the vehicles within radiusKm of the point, closest first.
func Nearby(vehicles []*domain.VehicleSnapshot, point geo.Point, radiusKm float64) []VehicleDistance {
	var result []VehicleDistance

	for _, v := range vehicles {
		d := geo.Distance(point, v.Point())
		if d <= radiusKm {
			result = append(result, VehicleDistance{Vehicle: v, DistanceKm: d})
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].DistanceKm < result[j].DistanceKm
	})

	return result
}

// RouteCandidate is a route observed near both journey endpoints, with the
// closest vehicle to each.
type RouteCandidate struct {
	RouteID         string
	StartVehicle    *domain.VehicleSnapshot
	StartDistanceKm float64
	EndVehicle      *domain.VehicleSnapshot
	EndDistanceKm   float64
	ActiveVehicles  int

	// BearingMatch is filled by the direction filter, [0, 1].
	BearingMatch float64
}

// CandidateRoutes finds routes with at least one vehicle within maxKm of the
// start point and one within maxKm of the end point, keeping the closest
// vehicle to each endpoint per route.
func CandidateRoutes(vehicles []*domain.VehicleSnapshot, start, end geo.Point, maxKm float64) []RouteCandidate {
	type endpointBest struct {
		vehicle *domain.VehicleSnapshot
		dist    float64
	}

	nearStart := make(map[string]endpointBest)
	nearEnd := make(map[string]endpointBest)
	activeByRoute := make(map[string]int)

	for _, v := range vehicles {
		activeByRoute[v.RouteID]++

		if d := geo.Distance(start, v.Point()); d <= maxKm {
			if best, ok := nearStart[v.RouteID]; !ok || d < best.dist {
				nearStart[v.RouteID] = endpointBest{vehicle: v, dist: d}
			}
		}
		if d := geo.Distance(end, v.Point()); d <= maxKm {
			if best, ok := nearEnd[v.RouteID]; !ok || d < best.dist {
				nearEnd[v.RouteID] = endpointBest{vehicle: v, dist: d}
			}
		}
	}

	var result []RouteCandidate
	for routeID, sb := range nearStart {
		eb, ok := nearEnd[routeID]
		if !ok {
			continue
		}
		result = append(result, RouteCandidate{
			RouteID:         routeID,
			StartVehicle:    sb.vehicle,
			StartDistanceKm: sb.dist,
			EndVehicle:      eb.vehicle,
			EndDistanceKm:   eb.dist,
			ActiveVehicles:  activeByRoute[routeID],
		})
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].RouteID < result[j].RouteID
	})

	return result
}
