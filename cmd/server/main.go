package main

import (
	"context"
	"database/sql"
	"errors"
	"fleet-route-optimizer/internal/adapters/cache"
	"fleet-route-optimizer/internal/adapters/mapping"
	"fleet-route-optimizer/internal/adapters/notify"
	"fleet-route-optimizer/internal/adapters/oracle"
	"fleet-route-optimizer/internal/adapters/repositories"
	"fleet-route-optimizer/internal/api"
	"fleet-route-optimizer/internal/config"
	"fleet-route-optimizer/internal/platform/db"
	"fleet-route-optimizer/internal/platform/logging"
	"fleet-route-optimizer/internal/platform/tracing"
	"fleet-route-optimizer/internal/ports"
	"fleet-route-optimizer/internal/services"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
)

const version = "1.0.0"

// main is the application composition root.
// It wires concrete adapters (SQL, ORS, Gemini, Redis) behind ports and starts the HTTP server.
func main() {
	config.LoadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatal(err)
	}

	logCloser, err := logging.Setup(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		logrus.Fatal(err)
	}
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, cfg.OTLPEndpoint, version)
	if err != nil {
		logrus.Fatal(err)
	}
	defer shutdownTracing(context.Background())

	conn, err := db.Open(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		logrus.Fatal(err)
	}
	defer conn.Close()

	// Initialize schema and seed demo data on first start for local runs.
	if err := initAndSeed(ctx, conn, cfg.SeedPath); err != nil {
		logrus.Fatal(err)
	}

	store := repositories.NewSQLStore(conn)
	maps := newMaps(cfg, conn)
	traffic := services.NewTrafficPredictor(newOracle(cfg), cfg.OracleTimeout)

	bus, closeBus := newBus(ctx, cfg)
	defer closeBus()

	locks := services.NewRouteLocks()
	router := api.NewRouter(api.Services{
		Planner:     services.NewRoutePlanner(store, maps, traffic, cfg.Plan),
		Reoptimizer: services.NewIncidentReoptimizer(store, maps, bus, locks, cfg.Plan),
		Routes:      services.NewRouteService(store, locks),
		Fleet:       services.NewFleetService(store, bus),
		Traffic:     traffic,
	})

	// Timeouts leave room for a cold ORS call plus an oracle round trip.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logrus.WithError(err).Warn("server shutdown failed")
		}
	}()

	logrus.WithFields(logrus.Fields{
		"addr":      srv.Addr,
		"db_driver": cfg.DBDriver,
		"eta_mode":  cfg.Plan.ETAMode,
	}).Info("server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logrus.Fatal(err)
	}
	logrus.Info("server stopped")
}

func initAndSeed(ctx context.Context, conn *sql.DB, seedPath string) error {
	if err := repositories.InitSchema(conn); err != nil {
		return fmt.Errorf("init and seed: %w", err)
	}

	existing, err := repositories.NewSQLStore(conn).ListVehicles(ctx)
	if err != nil {
		return fmt.Errorf("init and seed: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}
	if _, err := os.Stat(seedPath); errors.Is(err, os.ErrNotExist) {
		logrus.WithField("path", seedPath).Info("no seed file, starting empty")
		return nil
	}

	if err := repositories.SeedFromJSON(conn, seedPath); err != nil {
		return fmt.Errorf("init and seed: %w", err)
	}
	logrus.WithField("path", seedPath).Info("database seeded")
	return nil
}

// newMaps returns nil without an ORS key; planners then draw straight lines.
func newMaps(cfg config.Config, conn *sql.DB) ports.MapRoutingService {
	if cfg.ORSAPIKey == "" {
		logrus.Info("ORS_API_KEY not set, using straight-line geometry")
		return nil
	}
	ors, err := mapping.NewORSDirections(cfg.ORSAPIKey, cfg.MapTimeout,
		mapping.WithProfile(cfg.ORSProfile),
		mapping.WithCache(cache.NewSQLGeometryCache(conn)),
	)
	if err != nil {
		logrus.Fatal(err)
	}
	return ors
}

// newOracle returns nil without a Gemini key; predictions then use the
// historical fallback.
func newOracle(cfg config.Config) ports.TrafficOracle {
	gemini, err := oracle.NewGemini(cfg.GeminiAPIKey, cfg.OracleTimeout, oracle.WithModel(cfg.GeminiModel))
	if errors.Is(err, ports.ErrOracleNotConfigured) {
		logrus.Info("GEMINI_API_KEY not set, using fallback traffic predictions")
		return nil
	}
	if err != nil {
		logrus.Fatal(err)
	}
	return gemini
}

func newBus(ctx context.Context, cfg config.Config) (ports.NotificationBus, func()) {
	if cfg.RedisURL == "" {
		return notify.LogBus{}, func() {}
	}
	bus, err := notify.NewRedisBusFromURL(ctx, cfg.RedisURL)
	if err != nil {
		logrus.WithError(err).Warn("redis unavailable, notifications are logged only")
		return notify.LogBus{}, func() {}
	}
	return bus, func() {
		if err := bus.Close(); err != nil {
			logrus.WithError(err).Warn("close redis bus failed")
		}
	}
}
