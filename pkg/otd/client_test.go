package otd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gtfsrt "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
)

func feedEntity(entityID, vehicleID, label, routeID string, lat, lon float32, ts uint64) *gtfsrt.FeedEntity {
	return &gtfsrt.FeedEntity{
		Id: proto.String(entityID),
		Vehicle: &gtfsrt.VehiclePosition{
			Vehicle: &gtfsrt.VehicleDescriptor{
				Id:    proto.String(vehicleID),
				Label: proto.String(label),
			},
			Trip: &gtfsrt.TripDescriptor{
				RouteId: proto.String(routeID),
			},
			Position: &gtfsrt.Position{
				Latitude:  proto.Float32(lat),
				Longitude: proto.Float32(lon),
			},
			Timestamp: proto.Uint64(ts),
		},
	}
}

func TestFetchDecodesFeed(t *testing.T) {
	observed := uint64(1700000000)
	feed := &gtfsrt.FeedMessage{
		Header: &gtfsrt.FeedHeader{
			GtfsRealtimeVersion: proto.String("2.0"),
		},
		Entity: []*gtfsrt.FeedEntity{
			feedEntity("e1", "DL1PC1234", "DL1PC1234", "505", 28.6129, 77.2295, observed),
			// No position, skipped.
			{
				Id: proto.String("e2"),
				Vehicle: &gtfsrt.VehiclePosition{
					Vehicle: &gtfsrt.VehicleDescriptor{Id: proto.String("ghost")},
				},
			},
		},
	}
	body, err := proto.Marshal(feed)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.URL.Query().Get("key"))
		w.Write(body)
	}))
	defer srv.Close()

	vehicles, err := New(srv.URL, "secret").Fetch(context.Background())
	require.NoError(t, err)

	require.Len(t, vehicles, 1)
	v := vehicles[0]
	assert.Equal(t, "DL1PC1234", v.ID)
	assert.Equal(t, "505", v.RouteID)
	assert.InDelta(t, 28.6129, v.Lat, 0.0001)
	assert.InDelta(t, 77.2295, v.Lon, 0.0001)
	assert.Equal(t, time.Unix(int64(observed), 0), v.ObservedAt)
}

func TestFetchFallsBackToEntityID(t *testing.T) {
	feed := &gtfsrt.FeedMessage{
		Header: &gtfsrt.FeedHeader{
			GtfsRealtimeVersion: proto.String("2.0"),
		},
		Entity: []*gtfsrt.FeedEntity{
			{
				Id: proto.String("entity-7"),
				Vehicle: &gtfsrt.VehiclePosition{
					Position: &gtfsrt.Position{
						Latitude:  proto.Float32(28.60),
						Longitude: proto.Float32(77.20),
					},
				},
			},
		},
	}
	body, err := proto.Marshal(feed)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(body)
	}))
	defer srv.Close()

	vehicles, err := New(srv.URL, "").Fetch(context.Background())
	require.NoError(t, err)

	require.Len(t, vehicles, 1)
	assert.Equal(t, "entity-7", vehicles[0].ID)
	assert.Equal(t, "entity-7", vehicles[0].Label)
}

func TestFetchErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := New(srv.URL, "bad").Fetch(context.Background())
	assert.Error(t, err)
}
