package ingestor

import (
	"archive/zip"
	"context"
	"fmt"
	"log/slog"

	"delhitransit/internal/store"
	"delhitransit/pkg/gtfs"
)

// StaticLoader loads the metro static feed once at startup, preferring a
// local zip over the network when one is configured.
type StaticLoader struct {
	url    string
	path   string
	store  *store.StaticStore
	parser *gtfs.Parser
	logger *slog.Logger
}

func NewStaticLoader(url, path string, s *store.StaticStore, logger *slog.Logger) *StaticLoader {
	return &StaticLoader{
		url:    url,
		path:   path,
		store:  s,
		parser: gtfs.NewParser(logger),
		logger: logger.With("component", "static_loader"),
	}
}

// Load reads and parses the feed into the static store. An error here is not
// fatal to the service: the caller degrades to bus-plus-walking planning.
func (l *StaticLoader) Load(ctx context.Context) (*gtfs.ParseResult, error) {
	reader, err := l.open(ctx)
	if err != nil {
		return nil, err
	}

	result, err := l.parser.Parse(reader)
	if err != nil {
		return nil, fmt.Errorf("parse static feed: %w", err)
	}

	l.store.UpdateAll(result.Stations, result.Routes, result.TripRoutes, result.StopSequences)

	l.logger.Info("static feed loaded",
		"stations", len(result.Stations),
		"routes", len(result.Routes),
		"trips", len(result.TripRoutes),
	)
	return result, nil
}

func (l *StaticLoader) open(ctx context.Context) (*zip.Reader, error) {
	if l.path != "" {
		l.logger.Info("loading static feed from disk", "path", l.path)
		return gtfs.OpenFile(l.path)
	}
	if l.url != "" {
		return gtfs.NewDownloader(l.url, l.logger).Download(ctx)
	}
	return nil, fmt.Errorf("no static feed source configured")
}
