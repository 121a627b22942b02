package routename

import (
	"fmt"
	"strings"

	"delhitransit/internal/domain"
)

// Resolver maps raw route ids to display names. The realtime bus feed carries
// ids with no static counterpart in most deployments, so bus names routinely
// fall back to a generic label.
type Resolver struct {
	metro map[string]string
	bus   map[string]string
}

func NewResolver(routes map[string]*domain.RouteRow) *Resolver {
	r := &Resolver{
		metro: make(map[string]string, len(routes)),
		bus:   make(map[string]string, len(routes)),
	}

	for id, row := range routes {
		if name := metroLineName(row); name != "" {
			r.metro[id] = name
		}
		if row.ShortName != "" {
			r.bus[id] = "Route " + row.ShortName
		}
	}

	return r
}

// Metro resolves a metro route id to a line name, e.g. "Red Line".
func (r *Resolver) Metro(routeID string) string {
	if r != nil {
		if name, ok := r.metro[routeID]; ok {
			return name
		}
	}
	return fmt.Sprintf("Metro %s", routeID)
}

// Bus resolves a bus route id to a display name.
func (r *Resolver) Bus(routeID string) string {
	if r != nil {
		if name, ok := r.bus[routeID]; ok {
			return name
		}
	}
	return fmt.Sprintf("Bus %s", routeID)
}

// metroLineName parses DMRC long names of the form
// "RED_Rithala to Shaheed Sthal" into "Red Line".
func metroLineName(row *domain.RouteRow) string {
	if row.LongName != "" {
		color, _, found := strings.Cut(row.LongName, "_")
		if found && color != "" {
			return titleCase(color) + " Line"
		}
	}
	if row.ShortName != "" {
		return row.ShortName
	}
	return ""
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	lower := strings.ToLower(s)
	return strings.ToUpper(lower[:1]) + lower[1:]
}
