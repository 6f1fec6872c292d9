package main

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"postboard/docs"
	"postboard/internal/config"
	"postboard/internal/database"
	"postboard/internal/database/migration"
	handlers "postboard/internal/http/handler"
	"postboard/internal/http/middleware"
	"postboard/internal/logging"
	"postboard/internal/otel"
	"postboard/internal/repository"
	"postboard/internal/repository/badgerdb"
	"postboard/internal/repository/postgres"
	"postboard/internal/service"
	"postboard/internal/storage"
)

const shutdownTimeout = 10 * time.Second

// @title Postboard API
// @version 1.0
// @description Create and list short text posts with an optional image.
// @BasePath /
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()
	logger := logging.Stdout(cfg.Location())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, logger)
	if err != nil {
		log.Fatalf("failed to initialize tracing: %v", err)
	}

	repo, repoCloser, err := openRepository(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("failed to initialize post store: %v", err)
	}

	// Object storage is optional; without a bucket, posts with images are rejected.
	var store storage.Storage
	if cfg.Storage.Bucket != "" {
		store, err = storage.NewS3(cfg.Storage)
		if err != nil {
			log.Fatalf("failed to initialize object storage: %v", err)
		}
	} else {
		logger.Info("object_storage_disabled", map[string]any{"component": "storage"})
	}

	postSvc := service.NewPostService(store, repo, service.Options{
		MaxAttachmentBytes: cfg.HTTP.MaxUploadBytes,
		Logger:             logger,
	})

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	app, err := newApp(cfg, logger, reg, repo, postSvc)
	if err != nil {
		log.Fatalf("failed to build http app: %v", err)
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutdown_started", map[string]any{"component": "server"})
		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			logger.Error("shutdown_failed", err, map[string]any{"component": "server"})
		}
	}()

	addr := ":" + cfg.Port
	logger.Info("server_starting", map[string]any{
		"component":    "server",
		"addr":         addr,
		"store_driver": cfg.StoreDriver,
	})
	if err := app.Listen(addr); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := shutdownTracing(flushCtx); err != nil {
		logger.Error("tracing_shutdown_failed", err, nil)
	}
	if err := repoCloser.Close(); err != nil {
		logger.Error("store_close_failed", err, nil)
	}
}

// openRepository builds the configured post store. The returned closer
// releases the underlying database.
func openRepository(ctx context.Context, cfg *config.AppConfig, logger *logging.Logger) (repository.PostRepository, io.Closer, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		if err := migration.EnsureMigrated(ctx, db, logger, cfg.Database.Host); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return postgres.NewPostPostgres(db), db, nil
	case config.StoreDriverBadger:
		db, err := badgerdb.Open(cfg.BadgerPath)
		if err != nil {
			return nil, nil, err
		}
		return badgerdb.NewPostBadger(db), db, nil
	default:
		return nil, nil, errors.New("unknown STORE_DRIVER " + cfg.StoreDriver)
	}
}

// newApp assembles the Fiber app: global middleware, metrics, API routes,
// Swagger UI and the static frontend.
func newApp(cfg *config.AppConfig, logger *logging.Logger, reg *prometheus.Registry, db handlers.Pinger, postSvc service.PostService) (*fiber.App, error) {
	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		BodyLimit:    cfg.HTTP.MaxBodyBytes,
	})

	promMiddleware, err := middleware.NewPrometheusMiddleware(reg, "/healthz")
	if err != nil {
		return nil, err
	}

	app.Use(recover.New())
	app.Use(otelfiber.Middleware())
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	app.Use(middleware.LoggerWith(logger))
	app.Use(promMiddleware.Handler())
	app.Use(cors.New(cors.Config{
		AllowOrigins:  strings.Join(cfg.HTTP.CORSAllowOrigins, ","),
		AllowMethods:  strings.Join(cfg.HTTP.CORSAllowMethods, ","),
		AllowHeaders:  strings.Join(cfg.HTTP.CORSAllowHeaders, ","),
		ExposeHeaders: middleware.RequestIDHeader,
	}))

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))

	handlers.RegisterRoutes(app, db, postSvc, handlers.UploadOptions{
		MaxBytes:  cfg.HTTP.MaxUploadBytes,
		BufferDir: cfg.HTTP.UploadBufferDir,
	})

	app.Get("/swagger/*", swaggerHandler())

	if cfg.HTTP.StaticDir != "" {
		app.Static("/", cfg.HTTP.StaticDir)
	}

	return app, nil
}

// swaggerHandler serves Swagger UI with the document's host and scheme taken
// from the request. docs.SwaggerInfo is global, so requests are serialized
// from the write through rendering.
func swaggerHandler() fiber.Handler {
	var mu sync.Mutex
	return func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
		}

		mu.Lock()
		defer mu.Unlock()
		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	}
}
