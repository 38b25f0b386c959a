package intrayservice

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/intraylabs/intray/internal/api"
	"github.com/intraylabs/intray/internal/config"
	"github.com/intraylabs/intray/internal/factory"
	"github.com/intraylabs/intray/internal/health"
	"github.com/intraylabs/intray/internal/jobs"
	"github.com/intraylabs/intray/internal/logger"
	"github.com/intraylabs/intray/internal/metrics"
	"github.com/intraylabs/intray/internal/retention"
	"github.com/intraylabs/intray/internal/services"
	"github.com/intraylabs/intray/internal/store"
	"github.com/intraylabs/intray/internal/stream"
	"github.com/intraylabs/intray/internal/uploader"
)

// Run starts the intray HTTP service and blocks until shutdown or error.
func Run() error {
	log := logger.New("intray-service")

	cfg, err := config.New()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		return err
	}

	if cfg.DebugLogging {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	// Create cancellable root context bound to SIGINT/SIGTERM
	ctx, stop := newServerContext()
	defer stop()

	st, err := factory.NewStore(ctx, cfg, log)
	if err != nil {
		log.Error().Stack().Err(err).Msg("Store unavailable")
		return err
	}

	classifier, aiEnabled := factory.NewClassifier(cfg, log)

	broker := stream.NewBroker(cfg.StreamQueueCapacity)

	// Analysis tasks must outlive the requests that schedule them; the pool
	// runs on its own context and is drained explicitly at shutdown.
	runner := jobs.NewRunner(jobs.Config{
		Workers:   cfg.AnalysisWorkers,
		QueueSize: cfg.AnalysisQueueSize,
	}, log)
	runner.Start(context.Background())

	metrics.RegisterRuntime(broker, runner)

	recordSvc := services.NewRecordService(services.RecordServiceConfig{
		Store:              st,
		Classifier:         classifier,
		Runner:             runner,
		Broker:             broker,
		Calendar:           uploader.NewCalendar(uploader.CalendarConfig{BaseURL: cfg.CalendarBaseURL, Location: cfg.Location()}),
		Notion:             uploader.NewNotion(uploader.NotionConfig{BaseURL: cfg.NotionBaseURL}),
		CalendarCategories: config.ParseCategoryList(cfg.CalendarCategories),
		MemoCategories:     config.ParseCategoryList(cfg.MemoCategories),
	}, log)

	svcHealth := startHealthCheckers(ctx, cfg, log, st)

	router := api.NewRouter(api.Deps{
		Records:     recordSvc,
		Categories:  services.NewCategoryService(st),
		Connections: services.NewConnectionService(st),
		Broker:      broker,
		StreamPing:  time.Duration(cfg.StreamPingSeconds) * time.Second,
		Health:      svcHealth,
		AIEnabled:   aiEnabled,
	})

	if err := waitUntilHealthy(ctx, cfg, svcHealth); err != nil {
		log.Error().Stack().Err(err).Msg("startup health check failed")
		return err
	}

	if cfg.RetentionEnabled {
		sweeper := retention.NewSweeper(st, retention.Config{
			MaxAge:   time.Duration(cfg.RetentionMaxAgeDays) * 24 * time.Hour,
			Interval: time.Duration(cfg.RetentionSweepSeconds) * time.Second,
		}, log)
		go func() { _ = sweeper.Run(ctx) }()
	}

	server := newHTTPServer(ctx, cfg, router)
	errCh := serveHTTP(server, log, cfg)

	// Graceful shutdown on context cancel or server error
	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down server")
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctxShutdown); err != nil {
			log.Error().Stack().Err(err).Msg("Server forced to shutdown")
			return err
		}
		drainCtx, cancelDrain := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelDrain()
		if err := runner.Close(drainCtx); err != nil {
			log.Warn().Err(err).Msg("analysis queue not fully drained")
		}
		log.Info().Msg("Server exited")
		return nil
	case err := <-errCh:
		log.Error().Stack().Err(err).Msg("HTTP server failed")
		return err
	}
}

// startHealthCheckers starts component checkers and the service aggregator.
func startHealthCheckers(ctx context.Context, cfg *config.Config, log zerolog.Logger, st store.Store) *health.ServiceHealthChecker {
	probeTimeout := time.Duration(cfg.HealthProbeTimeoutSeconds) * time.Second
	interval := time.Duration(cfg.HealthIntervalSeconds) * time.Second

	storeChecker := store.NewStoreHealthChecker(st, log, probeTimeout)
	go storeChecker.Start(ctx, interval)

	svcHealth := health.NewServiceHealthChecker(log, storeChecker)
	go svcHealth.Start(ctx, interval)
	return svcHealth
}

func newHTTPServer(ctx context.Context, cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.GetHTTPAddr(),
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		// SSE connections stay open indefinitely; a write timeout would
		// sever every stream.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}
}

func serveHTTP(server *http.Server, log zerolog.Logger, cfg *config.Config) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.HTTPPort).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	return errCh
}

// calculateStartupHealthTimeout returns the startup health timeout in
// seconds, interval*2 with a minimum of 60.
func calculateStartupHealthTimeout(healthIntervalSeconds int) int {
	timeout := healthIntervalSeconds * 2
	if timeout < 60 {
		return 60
	}
	return timeout
}

// waitUntilHealthy blocks until service health is healthy or the startup
// window expires. Checkers start unhealthy and need one probe cycle.
func waitUntilHealthy(ctx context.Context, cfg *config.Config, svcHealth *health.ServiceHealthChecker) error {
	timeoutSeconds := calculateStartupHealthTimeout(cfg.HealthIntervalSeconds)
	deadline := time.Now().Add(time.Duration(timeoutSeconds) * time.Second)
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		if svcHealth.IsHealthy() {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("startup aborted: dependencies not healthy within %d seconds", timeoutSeconds)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// newServerContext returns a cancellable context bound to SIGINT/SIGTERM.
func newServerContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
