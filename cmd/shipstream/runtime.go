package main

import (
	"context"
	"database/sql"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"shipstream/internal/config"
	"shipstream/internal/database"
	"shipstream/internal/dedupe"
	"shipstream/internal/http/handler"
	"shipstream/internal/http/middleware"
	"shipstream/internal/logging"
	"shipstream/internal/otel"
	"shipstream/internal/queue"
	"shipstream/internal/storage"
)

// runtime bundles the pieces every service command needs.
type runtime struct {
	cfg   *config.AppConfig
	log   *zap.Logger
	db    *sql.DB
	store storage.ObjectStorage
	queue queue.Client
	guard dedupe.Guard

	traceShutdown func(context.Context) error
}

func newRuntime(ctx context.Context, serviceName string) (*runtime, error) {
	cfg := config.Load()

	log, err := logging.New(serviceName, cfg.AppVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	traceShutdown, err := otel.Setup(ctx, serviceName, log)
	if err != nil {
		return nil, fmt.Errorf("failed to set up tracing: %w", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store, err := storage.NewMinIO(ctx, cfg.MinIO, cfg.Buckets)
	if err != nil {
		return nil, fmt.Errorf("failed to set up object storage: %w", err)
	}

	guard := dedupe.NewNoop()
	if cfg.Redis.Addr != "" {
		guard, err = dedupe.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
	}

	return &runtime{
		cfg:           cfg,
		log:           log,
		db:            db,
		store:         store,
		queue:         queue.NewPostgres(db),
		guard:         guard,
		traceShutdown: traceShutdown,
	}, nil
}

func (rt *runtime) newApp(serviceName string) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "shipstream " + serviceName,
		ErrorHandler: handler.ErrorHandler(rt.log),
	})

	app.Use(
		middleware.RequestID(),
		otelfiber.Middleware(),
		middleware.Logger(rt.log),
		middleware.Metrics(serviceName),
	)

	handler.RegisterCommonRoutes(app, handler.NewHealthHandler(rt.db, serviceName, rt.cfg.AppVersion))
	return app
}

// serve runs the fiber app until a termination signal arrives, then
// shuts everything down in order. consumers are stopped before the
// HTTP listener so in-flight queue work can finish.
func (rt *runtime) serve(app *fiber.App, consumers ...*queue.Consumer) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for _, c := range consumers {
		go c.Start(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(":" + rt.cfg.Port)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	rt.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, c := range consumers {
		if err := c.Shutdown(shutdownCtx); err != nil {
			rt.log.Error("consumer shutdown failed", zap.Error(err))
		}
	}
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		rt.log.Error("http shutdown failed", zap.Error(err))
	}

	rt.close(shutdownCtx)
	return nil
}

func (rt *runtime) close(ctx context.Context) {
	if err := rt.guard.Close(); err != nil {
		rt.log.Error("failed to close dedupe guard", zap.Error(err))
	}
	if err := rt.db.Close(); err != nil {
		rt.log.Error("failed to close database", zap.Error(err))
	}
	if rt.traceShutdown != nil {
		if err := rt.traceShutdown(ctx); err != nil {
			rt.log.Error("failed to shut down tracing", zap.Error(err))
		}
	}
	_ = rt.log.Sync()
}
