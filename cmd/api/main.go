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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Overland-East-Bay/ride-api/internal/adapters/httpapi"
	"github.com/Overland-East-Bay/ride-api/internal/app/trips"
	"github.com/Overland-East-Bay/ride-api/internal/app/users"
	"github.com/Overland-East-Bay/ride-api/internal/platform/auth/jwtverifier"
	"github.com/Overland-East-Bay/ride-api/internal/platform/auth/masterkey"
	"github.com/Overland-East-Bay/ride-api/internal/platform/config"
	"github.com/Overland-East-Bay/ride-api/internal/platform/logging"
	"github.com/Overland-East-Bay/ride-api/internal/platform/ratelimit"
)

func main() {
	if err := newCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	var cfg config.Config
	cmd := &cobra.Command{
		Use:          "api",
		Short:        "Serve the ride API",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg.ApplyDevDefaults()
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}
	config.BindOptions(config.NewViper(), cmd, cfg.Options())
	return cmd
}

func run(ctx context.Context, cfg config.Config) error {
	log, err := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if cfg.Dev {
		log.Warn("running with development defaults; do not use in production")
	}

	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.close()

	limiter, err := ratelimit.New(cfg.RateLimit(), ratelimit.WithLogger(log.With(zap.String("component", "ratelimit"))))
	if err != nil {
		return err
	}

	metrics := httpapi.NewMetrics()
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	reg.MustRegister(metrics.PrometheusCollectors()...)
	reg.MustRegister(limiter.PrometheusCollectors()...)

	secret := []byte(cfg.JWTSecret)
	api := httpapi.NewServer(
		users.NewService(store.users),
		trips.NewService(store.trips),
		jwtverifier.NewSigner(secret, nil),
		httpapi.WithIdempotencyStore(store.idempotency),
		httpapi.WithLogger(log),
	)
	api.MaxTokenTTL = cfg.MaxTokenTTL

	handler := httpapi.NewRouter(api, httpapi.RouterOptions{
		Verifier:          jwtverifier.New(secret),
		MasterKey:         masterkey.NewGate(cfg.MasterKey),
		Limiter:           limiter,
		Logger:            log,
		Metrics:           metrics,
		Gatherer:          reg,
		RequestTimeout:    cfg.RequestTimeout,
		TrustProxyHeaders: cfg.TrustProxyHeaders,
	})

	limiterCtx, stopLimiter := context.WithCancel(ctx)
	defer stopLimiter()
	go limiter.Run(limiterCtx)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("api listening",
			zap.String("addr", srv.Addr),
			zap.String("storage", cfg.StorageBackend),
			zap.Float64("rate_limit_per_second", cfg.RateLimitPerSecond),
			zap.Int("rate_limit_burst", cfg.RateLimitBurst),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down", zap.Duration("timeout", cfg.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
