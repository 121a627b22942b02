// Package otd talks to the Open Transit Data Delhi realtime feed, which
// publishes DTC bus positions as a GTFS-realtime protobuf blob.
package otd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	gtfsrt "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"delhitransit/internal/domain"
)

type Client struct {
	feedURL    string
	apiKey     string
	httpClient *http.Client
}

func New(feedURL, apiKey string) *Client {
	return &Client{
		feedURL: feedURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Fetch downloads and decodes the VehiclePositions feed. Entities without an
// id or a position are skipped.
func (c *Client) Fetch(ctx context.Context) ([]*domain.VehicleSnapshot, error) {
	reqURL := c.feedURL
	if c.apiKey != "" {
		params := url.Values{}
		params.Set("key", c.apiKey)
		reqURL = fmt.Sprintf("%s?%s", c.feedURL, params.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	feed := &gtfsrt.FeedMessage{}
	if err := proto.Unmarshal(body, feed); err != nil {
		return nil, fmt.Errorf("decoding feed: %w", err)
	}

	return c.toDomain(feed), nil
}

func (c *Client) toDomain(feed *gtfsrt.FeedMessage) []*domain.VehicleSnapshot {
	now := time.Now()
	result := make([]*domain.VehicleSnapshot, 0, len(feed.GetEntity()))

	for _, entity := range feed.GetEntity() {
		vp := entity.GetVehicle()
		if vp == nil || vp.GetPosition() == nil {
			continue
		}

		id := vp.GetVehicle().GetId()
		if id == "" {
			id = entity.GetId()
		}
		if id == "" {
			continue
		}

		label := vp.GetVehicle().GetLabel()
		if label == "" {
			label = id
		}

		observed := now
		if ts := vp.GetTimestamp(); ts > 0 {
			observed = time.Unix(int64(ts), 0)
		}

		result = append(result, &domain.VehicleSnapshot{
			ID:         id,
			Label:      label,
			RouteID:    vp.GetTrip().GetRouteId(),
			Lat:        float64(vp.GetPosition().GetLatitude()),
			Lon:        float64(vp.GetPosition().GetLongitude()),
			ObservedAt: observed,
			UpdatedAt:  now,
		})
	}

	return result
}
