// cmd/tracker-server/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"application-tracker/internal/common/cache"
	"application-tracker/internal/common/config"
	httpclient "application-tracker/internal/common/http"
	"application-tracker/internal/common/logger"
	"application-tracker/internal/common/observability"
	"application-tracker/internal/tracker/loader"
	"application-tracker/internal/tracker/lookup"
	"application-tracker/internal/tracker/session"
	"application-tracker/internal/web"
)

// retryWithBackoff retries operation on an exponential schedule, giving up
// after maxElapsed.
func retryWithBackoff(operation func() error, maxElapsed time.Duration, log *zap.Logger, operationName string) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 500 * time.Millisecond
	policy.MaxElapsedTime = maxElapsed

	attempt := 0
	return backoff.RetryNotify(operation, policy, func(err error, next time.Duration) {
		attempt++
		log.Warn(operationName+" failed, retrying...",
			zap.Error(err),
			zap.Int("attempt", attempt),
			zap.Duration("nextRetryIn", next),
		)
	})
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting application tracker...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs, err := observability.New(cfg.Observability.ServiceName)
	if err != nil {
		zapLog.Warn("OpenTelemetry metrics unavailable", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Optional dataset cache ---
	readyChecks := map[string]web.ReadyCheck{}
	var datasetCache *cache.DatasetCache
	if cfg.Cache.Enabled {
		redis := cache.NewRedis(cfg.Cache)
		err = retryWithBackoff(func() error {
			pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			defer cancel()
			return redis.Ping(pingCtx)
		}, 30*time.Second, zapLog, "Redis connection")

		if err != nil {
			// The cache is an optimisation; searches still go to origin.
			zapLog.Error("redis unavailable, continuing without dataset cache", zap.Error(err))
			redis.Close()
		} else {
			defer redis.Close()
			datasetCache = cache.NewDatasetCache(redis, config.GetDuration(cfg.Cache.TTL))
			readyChecks["cache"] = redis.Ping
			zapLog.Info("Redis connected successfully", zap.String("address", cfg.Cache.Address))
		}
	}

	// --- Tracker services ---
	loaderCfg := loader.FromAppConfig(cfg)
	if err := loaderCfg.Validate(); err != nil {
		zapLog.Fatal("invalid data configuration", zap.Error(err))
	}
	records := loader.NewService(loader.ServiceDependencies{
		Logger: log.With(map[string]interface{}{"component": "loader"}),
		HTTPClient: httpclient.NewClient(loaderCfg.Timeout,
			httpclient.WithMaxBytes(loaderCfg.MaxBytes),
			httpclient.WithMaxRetries(loaderCfg.MaxRetries),
		),
		Cache: datasetCache,
	}, loaderCfg)

	searcher := lookup.NewService(lookup.ServiceDependencies{
		Logger: log.With(map[string]interface{}{"component": "lookup"}),
		Source: records,
	})

	idleTimeout := config.GetDuration(cfg.Session.IdleTimeout)
	sessions := session.NewStore(idleTimeout, log.With(map[string]interface{}{"component": "session"}))
	sessions.Start(ctx, idleTimeout/4)
	defer sessions.Stop()

	webCfg := web.FromAppConfig(cfg)
	if err := webCfg.Validate(); err != nil {
		zapLog.Fatal("invalid server configuration", zap.Error(err))
	}
	server := web.NewServer(web.ServerDependencies{
		Logger:        log.With(map[string]interface{}{"component": "http"}),
		Searcher:      searcher,
		Sessions:      sessions,
		Observability: obs,
		ReadyChecks:   readyChecks,
	}, webCfg)

	zapLog.Info("Tracker configured",
		zap.String("dataUrl", loaderCfg.URL),
		zap.String("dataFile", webCfg.DataFile),
		zap.Bool("cache", datasetCache != nil),
		zap.Float64("rateLimit", webCfg.RateLimit),
	)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	// --- Graceful Shutdown ---
	select {
	case <-ctx.Done():
		zapLog.Info("Shutdown signal received, stopping server...")
	case err := <-serverErr:
		if err != nil {
			zapLog.Error("HTTP server failed", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), webCfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down HTTP server", zap.Error(err))
	}
	if err := obs.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down metrics provider", zap.Error(err))
	}

	zapLog.Info("Application tracker stopped gracefully")
}
