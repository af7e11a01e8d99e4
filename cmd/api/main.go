package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Roan1982/saraianew/internal/api"
	"github.com/Roan1982/saraianew/internal/auth"
	"github.com/Roan1982/saraianew/internal/bootstrap"
	"github.com/Roan1982/saraianew/internal/config"
	"github.com/Roan1982/saraianew/internal/logging"
	"github.com/Roan1982/saraianew/internal/outbox"
	httptransport "github.com/Roan1982/saraianew/internal/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Must("info", "json").Fatal("load config", zap.Error(err))
	}
	logger := logging.Must(cfg.LogLevel, cfg.LogFormat).With(zap.String("service", "sara-api"))
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rt, err := bootstrap.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("open store", zap.Error(err))
	}
	defer rt.Close()

	var dispatcher *outbox.Dispatcher
	if rt.Pool != nil {
		producer := outbox.NewKafkaProducer(cfg.KafkaBrokers, logger)
		defer func() { _ = producer.Close() }()

		registry := outbox.NewSchemaRegistryClient(cfg.SchemaRegistryURL)
		dispatcher = outbox.NewDispatcher(rt.Pool, producer, registry, cfg.OutboxPollInterval, cfg.OutboxBatchSize, logger)
		go dispatcher.Start(ctx)
	}

	handler := api.NewHandler(rt.Service, rt.Assistant, logger)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	authMiddleware := auth.NewMiddleware(auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer}, nil)

	server := httptransport.NewServer(httptransport.DefaultServerConfig(cfg.HTTPAddress),
		httptransport.Chain(mux,
			httptransport.Recover(logger),
			httptransport.RequestLogger(logger),
			httptransport.CORS(cfg.CORSOrigin),
			authMiddleware.Wrap,
		))

	go func() {
		logger.Info("sara api listening", zap.String("addr", cfg.HTTPAddress), zap.String("store", cfg.Store))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
	}
	if dispatcher != nil {
		dispatcher.Wait()
	}
}
