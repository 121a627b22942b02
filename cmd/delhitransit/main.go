package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"delhitransit/internal/config"
	"delhitransit/internal/handler"
	"delhitransit/internal/hub"
	"delhitransit/internal/ingestor"
	"delhitransit/internal/middleware"
	"delhitransit/internal/planner"
	"delhitransit/internal/predict"
	"delhitransit/internal/routename"
	"delhitransit/internal/store"
	"delhitransit/pkg/otd"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("starting delhitransit server",
		"log_level", cfg.LogLevel.String(),
		"http_addr", cfg.HTTPAddr,
		"snapshot_max_age", cfg.SnapshotMaxAge.String(),
	)

	vehicleStore := store.New(cfg.VehicleStaleAfter)
	staticStore := store.NewStaticStore()
	wsHub := hub.NewHub(logger)

	otdClient := otd.New(cfg.OTDFeedURL, cfg.OTDAPIKey)
	refresher := ingestor.NewRefresher(otdClient, vehicleStore, wsHub, cfg.SnapshotMaxAge, cfg.FetchTimeout, logger)
	predictor := predict.New(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The metro network is optional: when the static feed cannot be loaded
	// the planner degrades to bus-plus-walking itineraries.
	staticLoader := ingestor.NewStaticLoader(cfg.MetroGTFSURL, cfg.MetroGTFSPath, staticStore, logger)
	result, err := staticLoader.Load(ctx)
	if err != nil {
		logger.Warn("metro static feed unavailable, planning without metro", "error", err)
	}

	var names *routename.Resolver
	if result != nil {
		names = routename.NewResolver(result.Routes)
	} else {
		names = routename.NewResolver(nil)
	}

	metroPlanner := planner.NewMetroPlanner(names, logger)
	if result != nil {
		metroPlanner.Build(result.Stations, result.TripRoutes, result.StopSequences)
	}

	tripPlanner := planner.New(
		vehicleStore,
		refresher,
		predictor,
		metroPlanner,
		planner.NewBusSynthesizer(names),
		cfg.SearchRadiiKm,
		logger,
	)

	maintenance := ingestor.NewMaintenance(vehicleStore, predictor, wsHub, cfg.SweepInterval, logger)

	httpHandler := handler.NewHTTPHandler(tripPlanner)
	wsHandler := handler.NewWSHandler(wsHub, vehicleStore, logger)
	healthHandler := handler.NewHealthHandler(refresher, vehicleStore, staticStore)
	statsHandler := handler.NewStatsHandler(vehicleStore, staticStore, predictor)

	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/plan-route", httpHandler.PlanRoute)
	mux.HandleFunc("GET /api/nearby-buses", httpHandler.NearbyBuses)
	mux.HandleFunc("GET /api/arrivals", httpHandler.Arrivals)
	mux.HandleFunc("GET /api/routes", httpHandler.ActiveRoutes)
	mux.HandleFunc("GET /api/stations/nearby", httpHandler.StationsNearby)
	mux.HandleFunc("GET /api/stats", statsHandler.GetStats)
	mux.HandleFunc("/api/ws", wsHandler.ServeWS)

	mux.HandleFunc("GET /healthz", healthHandler.Healthz)
	mux.HandleFunc("GET /readyz", healthHandler.Readyz)

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitPerWindow, cfg.RateLimitWindow, cfg.RateLimitWhitelist, logger)

	var root http.Handler = mux
	root = handler.GzipMiddleware(root)
	root = handler.CORSMiddleware(root)
	root = rateLimiter.Middleware(root)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      root,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go wsHub.Run(ctx)
	go maintenance.Run(ctx)

	go func() {
		logger.Info("starting HTTP server", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
