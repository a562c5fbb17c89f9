package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/httpapi"
	promexport "github.com/MrEthical07/authcore/metrics/export/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, *cfgPath)
		},
	}
}

func runServe(ctx context.Context, cfgPath string) error {
	s, logger, err := loadSettings(cfgPath)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting authd", zap.String("env", s.App.Env), zap.String("version", s.App.Version))

	store, err := openStore(ctx, s, logger)
	if err != nil {
		logger.Error("open user store", zap.Error(err))
		return err
	}
	defer func() { _ = store.Close() }()

	cacheStore, cachePing, closeCache, err := openCache(ctx, s, logger)
	if err != nil {
		logger.Error("open cache", zap.Error(err))
		return err
	}
	defer closeCache()

	authCfg, err := s.AuthConfig()
	if err != nil {
		logger.Error("auth config", zap.Error(err))
		return err
	}
	engine, err := authcore.New().
		WithConfig(authCfg).
		WithCache(cacheStore).
		WithUserStore(store).
		WithLogger(logger.Named("engine")).
		Build()
	if err != nil {
		logger.Error("build engine", zap.Error(err))
		return err
	}
	defer engine.Close()

	cookies, err := s.CookieOptions()
	if err != nil {
		return err
	}
	api := httpapi.New(engine,
		httpapi.WithLogger(logger.Named("http")),
		httpapi.WithCookieOptions(cookies),
		httpapi.WithAuthRateLimit(s.RateLimit.PerSecond, s.RateLimit.Burst),
		httpapi.WithTrustedProxy(s.Server.TrustProxy),
	)

	metricsHandler, err := promexport.NewHandler(engine)
	if err != nil {
		return err
	}
	api.Mount("GET /metrics", metricsHandler)
	api.Mount("GET /healthz", healthHandler(store, cachePing))

	srv := &http.Server{
		Addr:         s.Server.HTTPAddr,
		Handler:      api.Handler(),
		ReadTimeout:  s.Server.ReadTimeout,
		WriteTimeout: s.Server.WriteTimeout,
		IdleTimeout:  s.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve", zap.Error(err))
			return err
		}
	}

	shCtx, cancel := context.WithTimeout(context.Background(), s.Server.GracefulTimeout)
	defer cancel()
	if err := srv.Shutdown(shCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	logger.Info("bye")
	return nil
}

func healthHandler(checks ...pinger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		for _, c := range checks {
			if c == nil {
				continue
			}
			if err := c.Ping(ctx); err != nil {
				http.Error(w, "unhealthy", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})
}
