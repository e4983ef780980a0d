package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/httplog/v2"
	"github.com/vadimbarashkov/shorty/internal/config"
	"github.com/vadimbarashkov/shorty/internal/shortcode"
	"github.com/vadimbarashkov/shorty/internal/usecase"
	"github.com/vadimbarashkov/shorty/pkg/postgres"
	"golang.org/x/sync/errgroup"

	delivery "github.com/vadimbarashkov/shorty/internal/adapter/delivery/http"
	repository "github.com/vadimbarashkov/shorty/internal/adapter/repository/postgres"
)

const migrationsPath = "file://migrations"

func newLogger(env string) *httplog.Logger {
	opts := httplog.Options{
		LogLevel:        slog.LevelDebug,
		Concise:         true,
		RequestHeaders:  true,
		TimeFieldFormat: "2006-01-02T15:04:05.000Z07:00",
		Tags: map[string]string{
			"env": env,
		},
		QuietDownRoutes: []string{
			"/health",
			"/api/v1/ping",
		},
		QuietDownPeriod: 10 * time.Second,
	}

	if env != config.EnvDev {
		opts.LogLevel = slog.LevelInfo
		opts.JSON = true
		opts.Concise = false
	}

	return httplog.NewLogger("shorty", opts)
}

func newGenerator(cfg config.ShortCode) *shortcode.Generator {
	var opts []shortcode.GeneratorOption

	if cfg.Generator == config.GeneratorNanoID {
		opts = append(opts, shortcode.WithSource(shortcode.NanoIDSource()))
	}

	return shortcode.NewGenerator(cfg.Length, opts...)
}

func Run(ctx context.Context, cfg *config.Config) error {
	const op = "app.Run"

	logger := newLogger(cfg.Env)

	db, err := postgres.New(
		ctx,
		cfg.Postgres.DSN(),
		postgres.WithConnMaxIdleTime(cfg.Postgres.ConnMaxIdleTime),
		postgres.WithConnMaxLifetime(cfg.Postgres.ConnMaxLifetime),
		postgres.WithMaxIdleConns(cfg.Postgres.MaxIdleConns),
		postgres.WithMaxOpenConns(cfg.Postgres.MaxOpenConns),
	)
	if err != nil {
		return fmt.Errorf("%s: failed to connect to database: %w", op, err)
	}
	defer db.Close()

	version, err := postgres.RunMigrations(migrationsPath, cfg.Postgres.DSN())
	if err != nil {
		return fmt.Errorf("%s: failed to run migrations: %w", op, err)
	}
	logger.Debug("database ready", slog.Uint64("schema_version", uint64(version)))

	resolver := shortcode.NewResolver(newGenerator(cfg.ShortCode), cfg.ShortCode.MaxAttempts, logger.Logger)
	urlRepo := repository.NewURLRepository(db, repository.WithQueryTimeout(cfg.Postgres.QueryTimeout))
	urlUseCase := usecase.NewURLUseCase(urlRepo, resolver)

	r := delivery.NewRouter(
		logger,
		urlUseCase,
		delivery.WithBaseURL(cfg.BaseURL),
		delivery.WithShortCodeLength(resolver.Length()),
		delivery.WithHealthCheck(db),
	)

	server := &http.Server{
		Addr:           cfg.HTTPServer.Addr(),
		Handler:        r,
		ReadTimeout:    cfg.HTTPServer.ReadTimeout,
		WriteTimeout:   cfg.HTTPServer.WriteTimeout,
		IdleTimeout:    cfg.HTTPServer.IdleTimeout,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting server",
			slog.String("addr", server.Addr),
			slog.String("base_url", cfg.BaseURL),
			slog.Int("short_code_length", resolver.Length()),
			slog.String("generator", cfg.ShortCode.Generator),
		)

		var err error

		switch cfg.Env {
		case config.EnvProd:
			err = server.ListenAndServeTLS(cfg.HTTPServer.CertFile, cfg.HTTPServer.KeyFile)
		default:
			err = server.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s: server error occurred: %w", op, err)
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		logger.Info("shutting down server")

		if err := server.Shutdown(context.Background()); err != nil {
			return fmt.Errorf("%s: failed to shutdown server: %w", op, err)
		}

		return nil
	})

	return g.Wait()
}
