package predict

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"delhitransit/internal/domain"
	"delhitransit/internal/geo"
)

const (
	maxHistoryEntries = 10
	historyTTL        = 30 * time.Minute

	// Dwell buffer added to the raw travel estimate, one minute per km of
	// intermediate stops. Tunable; inherited behavior with no deeper model.
	dwellMinutesPerKm = 1.0

	minEtaMinutes = 1
	maxEtaMinutes = 120

	// EtaUnknown is returned when no arrival can be estimated.
	EtaUnknown = 999
)

type entry struct {
	Lat        float64
	Lon        float64
	ObservedAt time.Time
	ReceivedAt time.Time
}

func (e entry) point() geo.Point {
	return geo.Point{Lat: e.Lat, Lon: e.Lon}
}

// Predictor estimates vehicle arrival times at a target point from recent
// position history. It exclusively owns all per-vehicle histories; every
// mutation happens under one lock.
type Predictor struct {
	mu      sync.Mutex
	history map[string][]entry
	nowFn   func() time.Time
	logger  *slog.Logger
}

func New(logger *slog.Logger) *Predictor {
	return &Predictor{
		history: make(map[string][]entry),
		nowFn:   time.Now,
		logger:  logger.With("component", "arrival_predictor"),
	}
}

// Predict records the vehicle's current position and returns an arrival
// estimate for the target point.
func (p *Predictor) Predict(v *domain.VehicleSnapshot, target geo.Point) domain.ArrivalPrediction {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.nowFn()
	distanceKm := geo.Distance(v.Point(), target)

	hist := p.appendLocked(v.ID, v.Lat, v.Lon, v.ObservedAt, now)

	speed, hasSpeed := speedFromHistory(hist)
	status := approachStatus(hist, target)

	var confidence float64
	switch {
	case !hasSpeed:
		speed = defaultSpeedAt(now)
		confidence = 0.30
	case speed < 1:
		// Stationary or crawling; assume it departs at the ambient speed.
		status = domain.StatusStationary
		speed = defaultSpeedAt(now)
		confidence = 0.20
	default:
		confidence = math.Min(0.90, 0.50+0.05*float64(len(hist)))
	}

	if status == domain.StatusMovingAway {
		// Heading away from the target; assume it loops back on route.
		speed *= 0.5
		confidence *= 0.5
	}

	pred := domain.ArrivalPrediction{
		VehicleID:    v.ID,
		VehicleLabel: v.Label,
		Status:       status,
		SpeedKmh:     round1(speed),
		DistanceKm:   round2(distanceKm),
		Confidence:   round2(confidence),
	}

	if speed > 0 {
		eta := int(math.Round(distanceKm/speed*60)) + int(math.Round(distanceKm*dwellMinutesPerKm))
		if eta < minEtaMinutes {
			eta = minEtaMinutes
		}
		if eta > maxEtaMinutes {
			eta = maxEtaMinutes
		}
		at := now.Add(time.Duration(eta) * time.Minute)
		pred.EtaMinutes = eta
		pred.EtaTime = &at
	} else {
		pred.EtaMinutes = EtaUnknown
		pred.Confidence = 0
	}

	return pred
}

// RankNextArrivals predicts arrivals for every vehicle on the route, keeps
// those approaching (or with unknown heading) and returns the soonest first.
// An empty routeID considers all vehicles.
func (p *Predictor) RankNextArrivals(target geo.Point, routeID string, vehicles []*domain.VehicleSnapshot, limit int) []domain.ArrivalPrediction {
	predictions := make([]domain.ArrivalPrediction, 0, len(vehicles))

	for _, v := range vehicles {
		if routeID != "" && v.RouteID != routeID {
			continue
		}

		pred := p.Predict(v, target)
		if pred.Status == domain.StatusApproaching || pred.Status == domain.StatusUnknown {
			predictions = append(predictions, pred)
		}
	}

	sort.Slice(predictions, func(i, j int) bool {
		return predictions[i].EtaMinutes < predictions[j].EtaMinutes
	})

	if limit > 0 && len(predictions) > limit {
		predictions = predictions[:limit]
	}
	return predictions
}

// SweepStale drops the history of every vehicle not seen for 30 minutes and
// returns how many were removed. Run from the maintenance loop.
func (p *Predictor) SweepStale() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	cutoff := p.nowFn().Add(-historyTTL)
	removed := 0

	for id, hist := range p.history {
		if len(hist) == 0 || hist[len(hist)-1].ReceivedAt.Before(cutoff) {
			delete(p.history, id)
			removed++
		}
	}

	if removed > 0 {
		p.logger.Debug("swept stale vehicle histories", "removed", removed, "remaining", len(p.history))
	}
	return removed
}

// TrackedVehicles returns the number of vehicles with recorded history.
func (p *Predictor) TrackedVehicles() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.history)
}

func (p *Predictor) appendLocked(id string, lat, lon float64, observedAt, now time.Time) []entry {
	hist := append(p.history[id], entry{
		Lat:        lat,
		Lon:        lon,
		ObservedAt: observedAt,
		ReceivedAt: now,
	})
	if len(hist) > maxHistoryEntries {
		hist = hist[len(hist)-maxHistoryEntries:]
	}
	p.history[id] = hist
	return hist
}

// speedFromHistory estimates speed in km/h from the last 2-3 recorded
// positions, summing pairwise distances over pairwise elapsed receipt time.
func speedFromHistory(hist []entry) (float64, bool) {
	if len(hist) < 2 {
		return 0, false
	}

	recent := hist
	if len(recent) > 3 {
		recent = recent[len(recent)-3:]
	}

	var totalKm, totalHours float64
	for i := 0; i < len(recent)-1; i++ {
		dt := recent[i+1].ReceivedAt.Sub(recent[i].ReceivedAt).Hours()
		if dt <= 0 {
			continue
		}
		totalKm += geo.Distance(recent[i].point(), recent[i+1].point())
		totalHours += dt
	}

	if totalHours <= 0 {
		return 0, false
	}
	return totalKm / totalHours, true
}

// approachStatus compares the distance to target of the two most recent
// positions. Strictly closer means approaching; fewer than two entries means
// the heading is unknown.
func approachStatus(hist []entry, target geo.Point) domain.ApproachStatus {
	if len(hist) < 2 {
		return domain.StatusUnknown
	}

	prev := geo.Distance(hist[len(hist)-2].point(), target)
	curr := geo.Distance(hist[len(hist)-1].point(), target)

	if curr < prev {
		return domain.StatusApproaching
	}
	return domain.StatusMovingAway
}

// defaultSpeedAt returns the assumed bus speed for the hour of day, reflecting
// Delhi traffic patterns.
func defaultSpeedAt(t time.Time) float64 {
	hour := t.Hour()
	switch {
	case (hour >= 8 && hour <= 10) || (hour >= 17 && hour <= 20):
		return 15 // peak
	case hour > 10 && hour < 17:
		return 22 // midday
	default:
		return 30
	}
}

// FormatETA renders an ETA in human-readable form.
func FormatETA(minutes int) string {
	switch {
	case minutes < 1:
		return "Arriving now"
	case minutes == 1:
		return "1 minute"
	case minutes < 60:
		return fmt.Sprintf("%d minutes", minutes)
	}

	hours := minutes / 60
	mins := minutes % 60
	if mins == 0 {
		if hours > 1 {
			return fmt.Sprintf("%d hours", hours)
		}
		return "1 hour"
	}
	return fmt.Sprintf("%dh %dm", hours, mins)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
