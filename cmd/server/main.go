package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"medledger/internal/audit"
	"medledger/internal/hospital/handler"
	"medledger/internal/hospital/metrics"
	"medledger/internal/hospital/service"
	hospitalstore "medledger/internal/hospital/store/hospital"
	"medledger/internal/hospital/store/registry"
	jwttoken "medledger/internal/jwt_token"
	"medledger/internal/platform/config"
	"medledger/internal/platform/httpserver"
	"medledger/internal/platform/logger"
	"medledger/internal/platform/redis"
)

// main wires dependencies and owns the process lifecycle. Postgres, Redis
// and Kafka are each optional: without them the process runs self-contained
// on in-memory stores, which is the development default.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var registryStore registry.Store = registry.NewInMemory()
	if cfg.PostgresURL != "" {
		db, err := sql.Open("pgx", cfg.PostgresURL)
		if err != nil {
			log.Error("failed to open postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Error("postgres unreachable", "error", err)
			os.Exit(1)
		}
		if _, err := db.ExecContext(ctx, registry.Schema); err != nil {
			log.Error("failed to apply registry schema", "error", err)
			os.Exit(1)
		}
		registryStore = registry.NewPostgres(db)
		log.Info("registry store: postgres")
	}

	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		registryStore = registry.NewRedisCache(registryStore, redisClient.Client, config.RegistryCacheTTL)
		log.Info("registry cache: redis", "ttl", config.RegistryCacheTTL)
	}

	var auditStore audit.Store = audit.NewInMemoryStore()
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaStore, err := audit.NewKafkaStore(ctx, cfg.Kafka.Brokers, cfg.Kafka.AuditTopic)
		if err != nil {
			log.Error("failed to connect to kafka", "error", err)
			os.Exit(1)
		}
		defer kafkaStore.Close()
		auditStore = kafkaStore
		log.Info("audit sink: kafka", "topic", cfg.Kafka.AuditTopic)
	}
	auditPublisher := audit.NewPublisher(auditStore, audit.WithAsyncBuffer(256))
	defer auditPublisher.Close()

	m := metrics.New()
	hospitals := service.NewHospitalService(hospitalstore.NewInMemory(), registryStore,
		service.WithLogger(log),
		service.WithAuditPublisher(auditPublisher),
		service.WithMetrics(m),
	)
	registrySvc := service.NewRegistryService(registryStore,
		service.WithLogger(log),
		service.WithAuditPublisher(auditPublisher),
	)

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, "medledger", "medledger-api")

	router := chi.NewRouter()
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if redisClient != nil {
			if err := redisClient.Health(r.Context()); err != nil {
				http.Error(w, "redis unhealthy", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})
	handler.New(hospitals, registrySvc, log, jwttoken.NewJWTServiceAdapter(jwtService)).Register(router)

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting medledger", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
