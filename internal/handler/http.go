package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"delhitransit/internal/domain"
	"delhitransit/internal/geo"
	"delhitransit/internal/planner"
)

const (
	defaultNearbyRadiusKm  = 2.0
	maxNearbyRadiusKm      = 10.0
	defaultArrivalsLimit   = 5
	defaultStationsLimit   = 3
	defaultStationSearchKm = 2.0
)

type HTTPHandler struct {
	planner *planner.Planner
}

func NewHTTPHandler(p *planner.Planner) *HTTPHandler {
	return &HTTPHandler{planner: p}
}

// Start and End are pointers so a missing field can be told apart from an
// explicit 0,0 coordinate pair.
type PlanRequest struct {
	Start      *geo.Point        `json:"start"`
	End        *geo.Point        `json:"end"`
	Preference domain.Preference `json:"preference"`
}

type PlanResponse struct {
	Itineraries []*domain.Itinerary `json:"itineraries"`
	Count       int                 `json:"count"`
	ServerTime  time.Time           `json:"serverTime"`
}

func (h *HTTPHandler) PlanRoute(w http.ResponseWriter, r *http.Request) {
	var req PlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if req.Start == nil || req.End == nil {
		respondError(w, http.StatusBadRequest, "start and end coordinates are required")
		return
	}
	if !validLatLon(req.Start.Lat, req.Start.Lon) || !validLatLon(req.End.Lat, req.End.Lon) {
		respondError(w, http.StatusBadRequest, "lat must be in [-90, 90] and lon in [-180, 180]")
		return
	}

	switch req.Preference {
	case "", domain.PreferFastest, domain.PreferCheapest, domain.PreferBalanced:
	default:
		respondError(w, http.StatusBadRequest, "preference must be fastest, cheapest or balanced")
		return
	}
	if req.Preference == "" {
		req.Preference = domain.PreferFastest
	}

	itineraries := h.planner.PlanRoute(r.Context(), *req.Start, *req.End, req.Preference)

	respondJSON(w, http.StatusOK, PlanResponse{
		Itineraries: itineraries,
		Count:       len(itineraries),
		ServerTime:  time.Now(),
	})
}

type NearbyBusesResponse struct {
	Buses      []planner.VehicleDistance `json:"buses"`
	Count      int                       `json:"count"`
	ServerTime time.Time                 `json:"serverTime"`
}

func (h *HTTPHandler) NearbyBuses(w http.ResponseWriter, r *http.Request) {
	point, ok := pointFromQuery(w, r)
	if !ok {
		return
	}

	radius := defaultNearbyRadiusKm
	if v := r.URL.Query().Get("radius_km"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil || parsed <= 0 || parsed > maxNearbyRadiusKm {
			respondError(w, http.StatusBadRequest, "radius_km must be in (0, 10]")
			return
		}
		radius = parsed
	}

	buses := h.planner.NearbyVehicles(r.Context(), point, radius)

	respondJSON(w, http.StatusOK, NearbyBusesResponse{
		Buses:      buses,
		Count:      len(buses),
		ServerTime: time.Now(),
	})
}

type ArrivalsResponse struct {
	Arrivals   []domain.ArrivalPrediction `json:"arrivals"`
	RouteID    string                     `json:"routeId,omitempty"`
	Count      int                        `json:"count"`
	ServerTime time.Time                  `json:"serverTime"`
}

func (h *HTTPHandler) Arrivals(w http.ResponseWriter, r *http.Request) {
	point, ok := pointFromQuery(w, r)
	if !ok {
		return
	}

	routeID := r.URL.Query().Get("route_id")

	limit := defaultArrivalsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	arrivals := h.planner.Arrivals(r.Context(), point, routeID, limit)

	respondJSON(w, http.StatusOK, ArrivalsResponse{
		Arrivals:   arrivals,
		RouteID:    routeID,
		Count:      len(arrivals),
		ServerTime: time.Now(),
	})
}

type ActiveRoutesResponse struct {
	Routes     []domain.RouteActivity `json:"routes"`
	Count      int                    `json:"count"`
	ServerTime time.Time              `json:"serverTime"`
}

func (h *HTTPHandler) ActiveRoutes(w http.ResponseWriter, r *http.Request) {
	routes := h.planner.ActiveRoutes(r.Context())

	respondJSON(w, http.StatusOK, ActiveRoutesResponse{
		Routes:     routes,
		Count:      len(routes),
		ServerTime: time.Now(),
	})
}

type StationsResponse struct {
	Stations   []planner.StationDistance `json:"stations"`
	Count      int                       `json:"count"`
	ServerTime time.Time                 `json:"serverTime"`
}

func (h *HTTPHandler) StationsNearby(w http.ResponseWriter, r *http.Request) {
	point, ok := pointFromQuery(w, r)
	if !ok {
		return
	}

	limit := defaultStationsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	stations := h.planner.StationsNear(point, defaultStationSearchKm, limit)

	respondJSON(w, http.StatusOK, StationsResponse{
		Stations:   stations,
		Count:      len(stations),
		ServerTime: time.Now(),
	})
}

func pointFromQuery(w http.ResponseWriter, r *http.Request) (geo.Point, bool) {
	latStr := r.URL.Query().Get("lat")
	lonStr := r.URL.Query().Get("lon")
	if latStr == "" || lonStr == "" {
		respondError(w, http.StatusBadRequest, "lat and lon query parameters are required")
		return geo.Point{}, false
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid lat: "+err.Error())
		return geo.Point{}, false
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid lon: "+err.Error())
		return geo.Point{}, false
	}

	if !validLatLon(lat, lon) {
		respondError(w, http.StatusBadRequest, "lat must be in [-90, 90] and lon in [-180, 180]")
		return geo.Point{}, false
	}

	return geo.Point{Lat: lat, Lon: lon}, true
}

func validLatLon(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}
