package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/askdb/askdb/internal/api"
	"github.com/askdb/askdb/internal/config"
	"github.com/askdb/askdb/internal/nl2sql"
	"github.com/askdb/askdb/internal/observability"
	"github.com/askdb/askdb/internal/pipeline"
	"github.com/askdb/askdb/internal/query/sqlpool"
	"github.com/askdb/askdb/internal/schemactx"
	s3store "github.com/askdb/askdb/internal/storage/s3"
)

func main() {
	cfg, err := config.LoadFromEnv("askdb-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)
	pool, err := sqlpool.Open(context.Background(), sqlpool.Config{
		Driver:   cfg.Database.Driver,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Database: cfg.Database.Name,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		SSLMode:  cfg.Database.SSLMode,
		Path:     cfg.Database.Path,
		Options: sqlpool.Options{
			MinConns:         cfg.Database.MinConns,
			MaxConns:         cfg.Database.MaxConns,
			AcquireTimeout:   cfg.Database.AcquireTimeout,
			StatementTimeout: cfg.Database.StatementTimeout,
			ConnMaxIdleTime:  cfg.Database.ConnMaxIdleTime,
			ConnMaxLifetime:  cfg.Database.ConnMaxLifetime,
		},
	})
	if err != nil {
		logger.Error("failed to open database pool", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = pool.Close() }()
	if err := observability.RegisterDBStats(pool.DB(), cfg.Database.Name); err != nil {
		logger.Warn("failed to register pool metrics", slog.Any("error", err))
	}

	readiness := []api.ReadinessCheck{api.CheckDatabase(pool), api.CheckAIConfig(cfg)}
	var source schemactx.Source
	switch cfg.Schema.Source {
	case config.SchemaSourceS3:
		objectStore, err := s3store.New(context.Background(), s3store.Config{
			Endpoint:        cfg.ObjectStore.Endpoint,
			Region:          cfg.ObjectStore.Region,
			Bucket:          cfg.ObjectStore.Bucket,
			AccessKeyID:     cfg.ObjectStore.AccessKeyID,
			SecretAccessKey: cfg.ObjectStore.SecretAccessKey,
			UseSSL:          cfg.ObjectStore.UseSSL,
		})
		if err != nil {
			logger.Error("failed to initialize object store", slog.Any("error", err))
			os.Exit(1)
		}
		source = schemactx.ObjectSource{
			Store:  objectStore,
			Prefix: cfg.Schema.Prefix,
			Suffix: filepath.Ext(cfg.Schema.Pattern),
		}
		readiness = append(readiness, objectStore.HealthCheck)
	default:
		source = schemactx.DirSource{Dir: cfg.Schema.Dir, Pattern: cfg.Schema.Pattern}
	}

	generator, err := nl2sql.NewOpenAIGenerator(nl2sql.OpenAIConfig{
		BaseURL:   cfg.AI.BaseURL,
		APIKey:    cfg.AI.APIKey,
		Model:     cfg.AI.Model,
		MaxTokens: cfg.AI.MaxTokens,
		Timeout:   cfg.AI.Timeout,
	})
	if err != nil {
		logger.Error("failed to initialize query generator", slog.Any("error", err))
		os.Exit(1)
	}

	service := pipeline.NewService(schemactx.NewStore(source, logger), generator, pool, logger)

	handler := api.NewHandler(cfg, api.Dependencies{
		Logger:            logger,
		Pipeline:          service,
		Readiness:         api.CombineReadinessChecks(readiness...),
		DependencyTimeout: time.Second,
	})
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting api server",
			slog.String("addr", cfg.HTTP.Address),
			slog.String("db_driver", cfg.Database.Driver),
			slog.Int("db_max_conns", cfg.Database.MaxConns),
			slog.String("schema_source", cfg.Schema.Source),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		_ = pool.Close()
		os.Exit(1)
	}
}
