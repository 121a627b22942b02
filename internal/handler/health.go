package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"delhitransit/internal/ingestor"
	"delhitransit/internal/store"
)

type HealthHandler struct {
	refresher *ingestor.Refresher
	store     *store.Store
	static    *store.StaticStore
}

func NewHealthHandler(r *ingestor.Refresher, s *store.Store, static *store.StaticStore) *HealthHandler {
	return &HealthHandler{
		refresher: r,
		store:     s,
		static:    static,
	}
}

func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

type ReadyResponse struct {
	Ready        bool      `json:"ready"`
	VehicleCount int       `json:"vehicleCount"`
	MetroLoaded  bool      `json:"metroLoaded"`
	ServerTime   time.Time `json:"serverTime"`
}

// Readyz attempts a refresh so a freshly started instance can become ready on
// its first probe instead of waiting for client traffic.
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	if !h.refresher.IsReady() {
		h.refresher.EnsureFresh(r.Context())
	}

	ready := h.refresher.IsReady()
	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ReadyResponse{
		Ready:        ready,
		VehicleCount: h.store.Count(),
		MetroLoaded:  h.static.IsLoaded(),
		ServerTime:   time.Now(),
	})
}
