package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	anomalyhandler "trailguard/internal/anomaly/handler"
	anomalyservice "trailguard/internal/anomaly/service"
	anomalystore "trailguard/internal/anomaly/store"
	gfhandler "trailguard/internal/geofence/handler"
	gfservice "trailguard/internal/geofence/service"
	gfstore "trailguard/internal/geofence/store"
	lochandler "trailguard/internal/location/handler"
	locservice "trailguard/internal/location/service"
	locstore "trailguard/internal/location/store"
	"trailguard/internal/platform/config"
	"trailguard/internal/platform/httpserver"
	"trailguard/internal/platform/logger"
	"trailguard/internal/platform/metrics"
	"trailguard/internal/platform/middleware"
	platformredis "trailguard/internal/platform/redis"
	scoreservice "trailguard/internal/safetyscore/service"
	scorestore "trailguard/internal/safetyscore/store"
	"trailguard/internal/token"
	"trailguard/pkg/platform/events"
	"trailguard/pkg/platform/httputil"
)

// main wires storage, services and the HTTP surface, then runs the server
// until a shutdown signal arrives. Business logic lives in the internal
// service packages; everything here is assembly.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	slog.SetDefault(log)

	ctx := context.Background()
	m := metrics.New()

	// Storage. Without POSTGRES_URL everything runs in memory, which is the
	// development mode: state lives as long as the process.
	var (
		db   *sql.DB
		pool *pgxpool.Pool

		locations locationStore
		anomalies anomalyservice.Store
		scores    scoreservice.Store
		zones     gfstore.ListActiver
	)
	if cfg.PostgresURL != "" {
		var err error
		db, err = sql.Open("postgres", cfg.PostgresURL)
		if err != nil {
			log.Error("failed to open postgres", "error", err)
			os.Exit(1)
		}
		if err := db.PingContext(ctx); err != nil {
			log.Error("postgres ping failed", "error", err)
			os.Exit(1)
		}
		pool, err = pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			log.Error("failed to build pgx pool", "error", err)
			os.Exit(1)
		}

		locations = locstore.NewPostgres(pool)
		anomalies = anomalystore.NewPostgres(db)
		scores = scorestore.NewPostgres(db)
		zones = gfstore.NewPostgres(db)
	} else {
		log.Warn("POSTGRES_URL not set, using in-memory stores")
		locations = locstore.NewInMemoryLocationStore()
		anomalies = anomalystore.NewInMemoryAnomalyStore()
		scores = scorestore.NewInMemoryScoreStore()
		zones = gfstore.NewInMemoryZoneStore()
	}

	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	zones = gfstore.NewCached(zones, redisClient, cfg.ZoneCache.TTL, log)

	// Event feed: Kafka when brokers are configured, in-process otherwise.
	var (
		eventStore events.Store
		kafkaStore *events.KafkaStore
	)
	if len(cfg.KafkaBrokers) > 0 {
		kafkaStore, err = events.NewKafkaStore(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			log.Error("failed to connect to kafka", "error", err)
			os.Exit(1)
		}
		eventStore = kafkaStore
	} else {
		log.Warn("KAFKA_BROKERS not set, events stay in process")
		eventStore = events.NewInMemoryStore()
	}
	publisher := events.NewPublisher(eventStore, events.WithAsyncBuffer(256))

	// Services.
	locationSvc, err := locservice.New(locations, locservice.WithLogger(log))
	if err != nil {
		fatal(log, "location service", err)
	}
	scoreSvc, err := scoreservice.New(scores,
		scoreservice.WithLogger(log),
		scoreservice.WithMetrics(m),
		scoreservice.WithEventPublisher(publisher),
	)
	if err != nil {
		fatal(log, "safety score service", err)
	}
	geofenceSvc, err := gfservice.New(zones, cfg.Detection, gfservice.WithLogger(log))
	if err != nil {
		fatal(log, "geofence service", err)
	}
	anomalySvc, err := anomalyservice.New(anomalies, locations, scoreSvc, geofenceSvc, cfg.Detection,
		anomalyservice.WithLogger(log),
		anomalyservice.WithMetrics(m),
		anomalyservice.WithEventPublisher(publisher),
	)
	if err != nil {
		fatal(log, "anomaly service", err)
	}

	tokenSvc := token.NewService(cfg.JWTSigningKey)

	router := chi.NewRouter()
	router.Use(
		middleware.Recovery(log),
		middleware.RequestID,
		middleware.RequestTime,
		middleware.ClientMetadata,
		middleware.Logger(log),
		middleware.Timeout(15*time.Second),
		middleware.ContentTypeJSON,
	)

	router.Get("/healthz", healthz(db, redisClient))
	router.Handle("/metrics", promhttp.Handler())

	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(tokenSvc, log))
		lochandler.New(locationSvc, anomalySvc, log).Register(r)
		anomalyhandler.New(anomalySvc, log).Register(r)
		gfhandler.New(anomalySvc, geofenceSvc, log).Register(r)
	})

	srv := httpserver.New(cfg.Addr, router)

	go func() {
		log.Info("trailguard listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}

	publisher.Close()
	if kafkaStore != nil {
		kafkaStore.Close()
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if pool != nil {
		pool.Close()
	}
	if db != nil {
		_ = db.Close()
	}
}

// locationStore is the union of what the ingest service writes and what
// detection passes read.
type locationStore interface {
	locservice.PingWriter
	anomalyservice.LocationReader
}

// healthz reports process liveness plus the health of attached backends.
func healthz(db *sql.DB, redisClient *platformredis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{"status": "ok"}
		code := http.StatusOK

		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				status["status"] = "degraded"
				status["postgres"] = "unreachable"
				code = http.StatusServiceUnavailable
			}
		}
		if redisClient != nil {
			if err := redisClient.Health(r.Context()); err != nil {
				status["status"] = "degraded"
				status["redis"] = "unreachable"
				code = http.StatusServiceUnavailable
			}
		}
		httputil.WriteJSON(w, code, status)
	}
}

func fatal(log *slog.Logger, component string, err error) {
	log.Error("failed to build "+component, "error", err)
	os.Exit(1)
}
