package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"example.com/inara/internal/api"
	"example.com/inara/internal/auth"
	"example.com/inara/internal/config"
	"example.com/inara/internal/domain"
	"example.com/inara/internal/logger"
	"example.com/inara/internal/outbox"
	"example.com/inara/internal/persistence/memory"
	"example.com/inara/internal/persistence/postgres"
	"example.com/inara/internal/persistence/sqlite"
	httptransport "example.com/inara/internal/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	log := logger.New("api", logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo, cleanup, err := openRepository(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to open activity store")
	}
	defer cleanup()

	service := domain.NewService(repo)

	mux := http.NewServeMux()
	api.NewHandler(service, log).RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	middlewares := []httptransport.Middleware{
		httptransport.RequestID(),
		httptransport.AccessLog(log),
		httptransport.CORS(cfg.CORSOrigin),
	}
	if cfg.AuthEnabled() {
		authMiddleware := auth.NewMiddleware(auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer})
		middlewares = append(middlewares, authMiddleware.Wrap)
	} else {
		log.Warn("JWT_SECRET not set, bearer tokens are not enforced")
	}

	server := httptransport.NewServer(httptransport.DefaultServerConfig(cfg.HTTPAddress), httptransport.Chain(mux, middlewares...))

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.WithFields(logrus.Fields{"address": cfg.HTTPAddress, "store": cfg.StoreDriver}).Info("activities api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server error")
		}
	}()

	<-shutdownCh
	log.Info("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("graceful shutdown failed")
	}
	cancel()
}

// openRepository builds the configured store. The returned cleanup releases
// the store and stops any background publisher.
func openRepository(ctx context.Context, cfg config.Config, log *logrus.Entry) (domain.ActivityRepository, func(), error) {
	switch cfg.StoreDriver {
	case config.StoreSQLite:
		repo, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() { _ = repo.Close() }, nil

	case config.StorePostgres:
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		repo := postgres.NewRepository(pool)

		if len(cfg.KafkaBrokers) == 0 {
			log.Info("KAFKA_BROKERS not set, outbox events stay queued")
			return repo, pool.Close, nil
		}

		producer := outbox.NewKafkaProducer(cfg.KafkaBrokers)
		registry := outbox.NewSchemaRegistryClient(cfg.SchemaRegistryURL)
		dispatcher := outbox.NewDispatcher(pool, producer, registry, cfg.OutboxPollInterval, cfg.OutboxBatchSize,
			outbox.WithDispatcherLogger(log.WithField("worker", "outbox")))

		dispatchCtx, stopDispatch := context.WithCancel(ctx)
		go dispatcher.Start(dispatchCtx)

		return repo, func() {
			stopDispatch()
			dispatcher.Wait()
			_ = producer.Close()
			pool.Close()
		}, nil

	default:
		return memory.NewRepository(), func() {}, nil
	}
}
