package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/celerix-dev/celerix-prefs/internal/api"
	"github.com/celerix-dev/celerix-prefs/internal/auth"
	"github.com/celerix-dev/celerix-prefs/internal/config"
	"github.com/celerix-dev/celerix-prefs/internal/metrics"
	"github.com/celerix-dev/celerix-prefs/internal/prefs"
	"github.com/celerix-dev/celerix-prefs/internal/server"
	"github.com/celerix-dev/celerix-prefs/internal/store"
	"github.com/celerix-dev/celerix-prefs/internal/vault"
)

// run starts every listener and blocks until ctx is cancelled or one of
// them fails, then shuts the others down.
func run(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	log.Info("Starting celerix-prefsd",
		zap.String("backend", cfg.Backend),
		zap.String("data_dir", cfg.DataDir),
		zap.Bool("tokens", cfg.TokenSecret != ""),
		zap.String("category", cfg.Category))

	reg := metrics.NewRegistry()

	backend, err := store.New(cfg.Backend, cfg.DataDir, log.With(zap.String("service", "store")))
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.Backend, err)
	}
	var adapter store.Adapter = store.NewLogger(log.With(zap.String("service", "store")), backend)
	adapter = store.NewMetrics(reg, adapter)
	defer func() {
		// Flushes pending background writes of the file backend.
		if err := adapter.Close(); err != nil {
			log.Error("Failed to close store", zap.Error(err))
		}
	}()

	var verifier auth.Verifier
	if cfg.TokenSecret != "" {
		verifier = auth.NewCachingVerifier(auth.NewJWTVerifier(cfg.TokenSecret), cfg.TokenCacheTTL)
	}
	resolver := auth.NewResolver(verifier)

	opts := []prefs.Option{prefs.WithPageSize(cfg.PageSize), prefs.WithLogger(log)}
	if cfg.Category != "" {
		opts = append(opts, prefs.WithCategory(cfg.Category))
	}
	svc := prefs.NewService(adapter, opts...)

	g, ctx := errgroup.WithContext(ctx)

	gin.SetMode(gin.ReleaseMode)
	httpServer := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: api.NewRouter(&api.Handler{
			Service:  svc,
			Resolver: resolver,
			Logger:   log.With(zap.String("transport", "http")),
			Metrics:  metrics.NewHTTPMetrics(reg),
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveHTTP(ctx, g, cfg, log, "http", httpServer)

	if cfg.LineAddr != "" {
		router := server.NewRouter(svc, resolver, log.With(zap.String("transport", "line")))
		if !cfg.DisableTLS {
			cert, err := vault.GenerateSelfSignedCert()
			if err != nil {
				return fmt.Errorf("failed to generate TLS certificate: %w", err)
			}
			router.SetCertificate(cert)
		}
		g.Go(func() error {
			return router.Listen(cfg.LineAddr)
		})
		g.Go(func() error {
			<-ctx.Done()
			return router.Stop()
		})
	}

	if cfg.MetricsAddr != "" {
		health := func(ctx context.Context) error {
			_, err := adapter.ListNamespaces(ctx)
			return err
		}
		metricsServer := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           metrics.Handler(reg, health),
			ReadHeaderTimeout: 10 * time.Second,
		}
		serveHTTP(ctx, g, cfg, log, "metrics", metricsServer)
	}

	err = g.Wait()
	log.Info("Shutdown complete")
	return err
}

// serveHTTP runs srv in g and shuts it down gracefully once ctx is done.
func serveHTTP(ctx context.Context, g *errgroup.Group, cfg config.Config, log *zap.Logger, name string, srv *http.Server) {
	g.Go(func() error {
		log.Info("Listening", zap.String("transport", name), zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s server: %w", name, err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
}
