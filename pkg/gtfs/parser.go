package gtfs

import (
	"archive/zip"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"delhitransit/internal/domain"
)

// ParseResult holds everything the planner needs from the static feed:
// stations by id, routes by id, trip-to-route mapping and the per-trip stop
// sequences the network graph is built from.
type ParseResult struct {
	Stations      map[string]*domain.Station
	Routes        map[string]*domain.RouteRow
	TripRoutes    map[string]string
	StopSequences map[string][]domain.StopSequence
}

type Parser struct {
	logger *slog.Logger
}

func NewParser(logger *slog.Logger) *Parser {
	return &Parser{
		logger: logger.With("component", "gtfs_parser"),
	}
}

func (p *Parser) Parse(reader *zip.Reader) (*ParseResult, error) {
	totalStart := time.Now()
	p.logger.Info("starting GTFS parsing")

	result := &ParseResult{
		Stations:      make(map[string]*domain.Station),
		Routes:        make(map[string]*domain.RouteRow),
		TripRoutes:    make(map[string]string),
		StopSequences: make(map[string][]domain.StopSequence),
	}

	fileMap := make(map[string]*zip.File)
	for _, file := range reader.File {
		fileMap[file.Name] = file
	}

	if file, ok := fileMap["stops.txt"]; ok {
		start := time.Now()
		if err := p.parseStops(file, result); err != nil {
			return nil, fmt.Errorf("parse stops: %w", err)
		}
		p.logger.Info("parsed stops.txt",
			"count", len(result.Stations),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}

	if file, ok := fileMap["routes.txt"]; ok {
		start := time.Now()
		if err := p.parseRoutes(file, result); err != nil {
			return nil, fmt.Errorf("parse routes: %w", err)
		}
		p.logger.Info("parsed routes.txt",
			"count", len(result.Routes),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}

	if file, ok := fileMap["trips.txt"]; ok {
		start := time.Now()
		if err := p.parseTrips(file, result); err != nil {
			return nil, fmt.Errorf("parse trips: %w", err)
		}
		p.logger.Info("parsed trips.txt",
			"count", len(result.TripRoutes),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}

	if file, ok := fileMap["stop_times.txt"]; ok {
		start := time.Now()
		if err := p.parseStopTimes(file, result); err != nil {
			return nil, fmt.Errorf("parse stop_times: %w", err)
		}
		p.logger.Info("parsed stop_times.txt",
			"trips_with_sequences", len(result.StopSequences),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}

	p.logger.Info("GTFS parsing completed",
		"total_duration_ms", time.Since(totalStart).Milliseconds(),
		"stations", len(result.Stations),
		"routes", len(result.Routes),
		"trips", len(result.TripRoutes),
	)

	return result, nil
}

func (p *Parser) parseStops(file *zip.File, result *ParseResult) error {
	return forEachRecord(file, func(record []string, idx map[string]int) error {
		id := getField(record, idx, "stop_id")
		if id == "" {
			return nil
		}

		lat, _ := strconv.ParseFloat(getField(record, idx, "stop_lat"), 64)
		lon, _ := strconv.ParseFloat(getField(record, idx, "stop_lon"), 64)

		result.Stations[id] = &domain.Station{
			ID:   id,
			Name: getField(record, idx, "stop_name"),
			Lat:  lat,
			Lon:  lon,
		}
		return nil
	})
}

func (p *Parser) parseRoutes(file *zip.File, result *ParseResult) error {
	return forEachRecord(file, func(record []string, idx map[string]int) error {
		id := getField(record, idx, "route_id")
		if id == "" {
			return nil
		}

		result.Routes[id] = &domain.RouteRow{
			ID:        id,
			ShortName: getField(record, idx, "route_short_name"),
			LongName:  getField(record, idx, "route_long_name"),
		}
		return nil
	})
}

func (p *Parser) parseTrips(file *zip.File, result *ParseResult) error {
	return forEachRecord(file, func(record []string, idx map[string]int) error {
		tripID := getField(record, idx, "trip_id")
		routeID := getField(record, idx, "route_id")
		if tripID != "" && routeID != "" {
			result.TripRoutes[tripID] = routeID
		}
		return nil
	})
}

func (p *Parser) parseStopTimes(file *zip.File, result *ParseResult) error {
	return forEachRecord(file, func(record []string, idx map[string]int) error {
		tripID := getField(record, idx, "trip_id")
		stopID := getField(record, idx, "stop_id")
		if tripID == "" || stopID == "" {
			return nil
		}

		seq, _ := strconv.Atoi(getField(record, idx, "stop_sequence"))

		result.StopSequences[tripID] = append(result.StopSequences[tripID], domain.StopSequence{
			TripID:   tripID,
			StopID:   stopID,
			Sequence: seq,
		})
		return nil
	})
}

func forEachRecord(file *zip.File, fn func(record []string, idx map[string]int) error) error {
	rc, err := file.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	r := csv.NewReader(rc)
	header, err := r.Read()
	if err != nil {
		return err
	}

	idx := makeIndex(header)

	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if err := fn(record, idx); err != nil {
			return err
		}
	}

	return nil
}

func makeIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[name] = i
	}
	return idx
}

func getField(record []string, idx map[string]int, field string) string {
	if i, ok := idx[field]; ok && i < len(record) {
		return record[i]
	}
	return ""
}
