package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aopmap/kemapper/internal/bootstrap"
	"github.com/aopmap/kemapper/internal/config"
	"github.com/aopmap/kemapper/internal/core/domain"
	"github.com/aopmap/kemapper/internal/core/usecase"
	natsqueue "github.com/aopmap/kemapper/internal/infrastructure/queue/nats"
	"github.com/aopmap/kemapper/internal/observability/logging"
	"github.com/aopmap/kemapper/internal/observability/metrics"
)

const serviceName = "kemapper-worker"

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger(serviceName, cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	m := metrics.NewSuggestionMetrics(serviceName)
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		addr := ":" + cfg.MetricsPort
		logger.Info("metrics server listening", "addr", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Error("metrics server stopped", "error", err)
		}
	}()

	if app.Cache != nil {
		go purgeExpiredLoop(ctx, app, logger)
	}

	logger.Info("worker subscribed", "subject", cfg.RequestSubject, "queue", cfg.SuggestQueueName)
	err = app.Queue.SubscribeSuggestionRequests(ctx, func(handlerCtx context.Context, req natsqueue.SuggestionRequest) error {
		processCtx, cancel := context.WithTimeout(handlerCtx, 5*time.Minute)
		defer cancel()
		return handleRequest(processCtx, app, m, req)
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}

func handleRequest(ctx context.Context, app *bootstrap.App, m *metrics.SuggestionMetrics, req natsqueue.SuggestionRequest) error {
	svc := app.PathwaySvc
	if req.Domain == "go" {
		svc = app.GoSvc
	}

	ke := domain.KeyEvent{
		ID:          req.KEID,
		Title:       req.Title,
		Description: req.Description,
		Level:       domain.ParseBiologicalLevel(req.Level),
	}
	method := domain.ParseMethodFilter(req.Method)

	m.StartRequest()
	start := time.Now()
	result := svc.Suggest(ctx, ke, method)
	if req.RequestID != "" {
		result.RequestID = req.RequestID
	}
	m.FinishRequest(serviceName, req.Domain, time.Since(start), result.Error != "")
	m.ObserveResult(serviceName, req.Domain, len(result.CombinedSuggestions), len(result.BySignal), len(result.Genes))
	if result.Error == "" {
		if _, ok := result.BySignal[usecase.SignalEmbedding]; !ok && method == domain.MethodAll {
			m.RecordSignalFallback(serviceName, req.Domain, usecase.SignalEmbedding)
		}
	}

	return app.Queue.PublishSuggestionResult(ctx, result)
}

func purgeExpiredLoop(ctx context.Context, app *bootstrap.App, logger *slog.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purged, err := app.Cache.PurgeExpired(ctx)
			if err != nil {
				logger.Warn("cache purge failed", "error", err)
				continue
			}
			if purged > 0 {
				logger.Info("purged expired cache entries", "count", purged)
			}
		}
	}
}
