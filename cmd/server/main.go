package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"chaintrace/internal/geo"
	geohandler "chaintrace/internal/geo/handler"
	"chaintrace/internal/platform/config"
	"chaintrace/internal/platform/httpserver"
	"chaintrace/internal/platform/logger"
	platformmetrics "chaintrace/internal/platform/metrics"
	platformredis "chaintrace/internal/platform/redis"
	scanhandler "chaintrace/internal/scan/handler"
	scanmetrics "chaintrace/internal/scan/metrics"
	scanservice "chaintrace/internal/scan/service"
	scanstore "chaintrace/internal/scan/store"
	"chaintrace/internal/telemetry"
	"chaintrace/internal/token"
	trackinghandler "chaintrace/internal/tracking/handler"
	trackingmetrics "chaintrace/internal/tracking/metrics"
	trackingservice "chaintrace/internal/tracking/service"
	trackingstore "chaintrace/internal/tracking/store"
	"chaintrace/internal/tracking/stream"
	"chaintrace/internal/tracking/tracker"
	id "chaintrace/pkg/domain"
	"chaintrace/pkg/platform/httputil"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal services.
func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Region registry: file-backed in production, compiled-in defaults
	// for development.
	registry, err := loadRegistry(cfg.RegionsPath)
	if err != nil {
		log.Error("failed to load region registry", "path", cfg.RegionsPath, "error", err.Error())
		os.Exit(1)
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err.Error())
		os.Exit(1)
	}
	var resolver geo.Resolver = registry
	if redisClient != nil {
		resolver = geo.NewCachedResolver(registry, redisClient.Client, log)
		defer redisClient.Close()
		log.Info("region resolution cache enabled")
	}
	detector := geo.NewDetector(registry, resolver)

	records, transactions, db, err := buildStores(cfg.Postgres)
	if err != nil {
		log.Error("failed to connect to postgres", "error", err.Error())
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
		log.Info("using postgres stores")
	} else {
		log.Info("using in-memory stores")
	}

	httpMetrics := platformmetrics.New()
	tokenService := token.NewService(cfg.Server.JWTSigningKey, "chaintrace", "chaintrace-api")

	scans := scanservice.New(records, log,
		scanservice.WithMetrics(scanmetrics.New()))

	custodyMetrics := trackingmetrics.New()
	trackingOpts := []trackingservice.Option{
		trackingservice.WithMetrics(custodyMetrics),
	}
	var publisher *stream.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		publisher, err = stream.New(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		if err != nil {
			log.Error("failed to connect to kafka", "error", err.Error())
			os.Exit(1)
		}
		trackingOpts = append(trackingOpts, trackingservice.WithPublisher(publisher))
		log.Info("custody event stream enabled", "topic", cfg.Kafka.Topic)
	}
	tracking := trackingservice.New(transactions, detector, log, trackingOpts...)

	telemetryClient := telemetry.NewClient(cfg.Telemetry, log)
	orchestrator := telemetry.NewOrchestrator(telemetryClient, cfg.Telemetry, log)

	router := chi.NewRouter()
	scanhandler.New(scans, log, httpMetrics, tokenService).Register(router)
	trackinghandler.New(tracking, scans, log, httpMetrics, tokenService).Register(router)
	telemetry.NewHandler(orchestrator, telemetryClient, scans, cfg.Telemetry.ThingID,
		log, httpMetrics, tokenService).Register(router)
	geohandler.New(registry, log, httpMetrics, tokenService).Register(router)
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", healthHandler(db, redisClient, publisher))

	trackerDone := startTracker(ctx, cfg.Tracking, tracking, custodyMetrics, log)

	srv := httpserver.New(cfg.Server.Addr, router)
	go func() {
		log.Info("chaintrace listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err.Error())
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err.Error())
	}
	if trackerDone != nil {
		<-trackerDone
	}
	if publisher != nil {
		if err := publisher.Close(shutdownCtx); err != nil {
			log.Error("failed to drain custody stream", "error", err.Error())
		}
	}
}

func loadRegistry(path string) (*geo.Registry, error) {
	if path == "" {
		return geo.NewRegistry(geo.DefaultRegions()), nil
	}
	return geo.LoadRegistry(path)
}

// buildStores selects postgres when configured, falling back to the
// in-memory pair. db is nil for the in-memory stores.
func buildStores(cfg config.Postgres) (scanservice.RecordStore, trackingservice.TransactionStore, *sql.DB, error) {
	if cfg.URL == "" {
		return scanstore.NewInMemory(), trackingstore.NewInMemory(), nil, nil
	}
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, nil, nil, err
	}
	return scanstore.NewPostgres(db), trackingstore.NewPostgres(db), db, nil
}

// healthHandler reports per-component health. Components that are not
// configured are omitted.
func healthHandler(db *sql.DB, redisClient *platformredis.Client, publisher *stream.Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		components := map[string]string{}
		healthy := true
		check := func(name string, err error) {
			if err != nil {
				components[name] = "unavailable"
				healthy = false
				return
			}
			components[name] = "ok"
		}

		if db != nil {
			check("postgres", db.PingContext(ctx))
		}
		if redisClient != nil {
			check("redis", redisClient.Health(ctx))
		}
		if publisher != nil {
			check("kafka", publisher.Ping(ctx))
		}

		status := http.StatusOK
		body := map[string]any{"status": "ok", "components": components}
		if !healthy {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
		httputil.WriteJSON(w, status, body)
	}
}

// startTracker runs the background sampling loop when a device position
// is configured. Returns nil when tracking is disabled.
func startTracker(ctx context.Context, cfg config.Tracking, tracking *trackingservice.Service, m *trackingmetrics.Metrics, log *slog.Logger) <-chan struct{} {
	lat, latErr := strconv.ParseFloat(cfg.DeviceLat, 64)
	lon, lonErr := strconv.ParseFloat(cfg.DeviceLon, 64)
	if latErr != nil || lonErr != nil {
		log.Info("background tracking disabled: no device position configured")
		return nil
	}

	provider := tracker.NewStaticProvider(lat, lon)
	tr := tracker.New(tracking, provider, id.NewActorID(),
		cfg.SampleInterval, cfg.LocationTimeout, log,
		tracker.WithMetrics(m))

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := tr.Run(ctx); err != nil {
			log.Error("tracker stopped with error", "error", err.Error())
		}
	}()
	return done
}
