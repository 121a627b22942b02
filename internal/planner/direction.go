package planner

import (
	"sort"

	"delhitransit/internal/geo"
)

// Candidates whose observed vehicle-pair heading deviates from the desired
// travel direction by 90 degrees or more are rejected outright.
const maxBearingDiffDeg = 90.0

// FilterByDirection drops candidates whose start->end vehicle pair points away
// from the desired direction of travel and scores the rest with a bearing
// match in [0, 1]. Best-aligned candidates come first; bearing match beats
// plain endpoint distance as the preference signal.
func FilterByDirection(candidates []RouteCandidate, start, end geo.Point) []RouteCandidate {
	desired := geo.Bearing(start, end)

	kept := make([]RouteCandidate, 0, len(candidates))
	for _, c := range candidates {
		observed := geo.Bearing(c.StartVehicle.Point(), c.EndVehicle.Point())
		diff := geo.BearingDiff(desired, observed)
		if diff >= maxBearingDiffDeg {
			continue
		}
		c.BearingMatch = 1.0 - diff/maxBearingDiffDeg
		kept = append(kept, c)
	}

	sort.Slice(kept, func(i, j int) bool {
		return kept[i].BearingMatch > kept[j].BearingMatch
	})

	return kept
}
