// Package config assembles and runs the cache server. It owns the Fiber app,
// the middleware stack, infrastructure clients and route wiring.
package config

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/pprof"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"

	"adaptive-cache/internal/api"
	"adaptive-cache/internal/cache"
	"adaptive-cache/internal/config"
	"adaptive-cache/internal/services/database"
	"adaptive-cache/internal/services/embeddings"
	"adaptive-cache/internal/services/exactcache"
	"adaptive-cache/internal/services/generation"
	"adaptive-cache/internal/services/metricslog"
)

// Server is one adaptive cache server instance.
type Server struct {
	config *config.Config
	app    *fiber.App
	redis  *redis.Client
	db     *database.DB
}

// NewServer creates a Server with the given configuration.
// The cfg parameter is required and must not be nil.
func NewServer(cfg *config.Config) *Server {
	if cfg == nil {
		panic("config cannot be nil - use config.LoadFromFile() to create config")
	}
	return &Server{config: cfg}
}

// Run starts the server and blocks until shutdown.
func (s *Server) Run() error {
	if err := s.config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	setupLogLevel(s.config)

	port := s.config.Server.Port
	if port == "" {
		port = "8080"
	}
	listenAddr := ":" + port

	s.app = createFiberApp(s.config)

	// === Infrastructure ===
	redisClient, err := createRedisClient(s.config)
	if err != nil {
		return err
	}
	s.redis = redisClient
	if s.redis != nil {
		defer func() {
			if err := s.redis.Close(); err != nil {
				fiberlog.Errorf("Failed to close Redis client: %v", err)
			}
		}()
	}

	db, err := createDatabase(s.config)
	if err != nil {
		return err
	}
	s.db = db
	if s.db != nil {
		defer func() {
			if err := s.db.Close(); err != nil {
				fiberlog.Errorf("Failed to close database connection: %v", err)
			}
		}()
	}

	// === Middleware ===
	setupMiddleware(s.app, s.config)

	// === Routes ===
	if err := setupRoutes(s.app, s.config, s.redis, s.db); err != nil {
		return fmt.Errorf("failed to setup routes: %w", err)
	}

	fmt.Printf("AdaptiveCache starting on %s\n", listenAddr)
	fmt.Printf("   Environment: %s\n", s.config.Server.Environment)
	fmt.Printf("   Go version: %s\n", runtime.Version())
	fmt.Printf("   GOMAXPROCS: %d\n", runtime.GOMAXPROCS(0))

	// Graceful shutdown handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	serverErrChan := make(chan error, 1)
	go func() {
		if err := s.app.Listen(listenAddr); err != nil {
			serverErrChan <- err
		}
	}()

	select {
	case sig := <-sigChan:
		fiberlog.Infof("Received signal: %v. Starting graceful shutdown...", sig)
	case err := <-serverErrChan:
		return fmt.Errorf("server error: %w", err)
	}

	fiberlog.Info("Server shutting down gracefully...")
	if err := s.app.ShutdownWithTimeout(30 * time.Second); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	fiberlog.Info("Server shutdown completed successfully")

	return nil
}

func createFiberApp(cfg *config.Config) *fiber.App {
	isProd := cfg.IsProduction()

	return fiber.New(fiber.Config{
		AppName:              "AdaptiveCache v1.0",
		EnablePrintRoutes:    !isProd,
		ReadTimeout:          2 * time.Minute,
		WriteTimeout:         2 * time.Minute,
		IdleTimeout:          5 * time.Minute,
		ReadBufferSize:       8192,
		WriteBufferSize:      8192,
		CompressedFileSuffix: ".gz",
		Prefork:              false,
		CaseSensitive:        true,
		StrictRouting:        false,
		Network:              "tcp",
		ServerHeader:         "AdaptiveCache",
	})
}

func setupMiddleware(app *fiber.App, cfg *config.Config) {
	isProd := cfg.IsProduction()

	// Recover middleware (must be first)
	app.Use(recover.New(recover.Config{
		EnableStackTrace: !isProd,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:               1000,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return fmt.Errorf("1000 requests per minute")
		},
	}))

	// Per-request timeout, extendable per call up to a cap
	app.Use(func(c *fiber.Ctx) error {
		const (
			defaultTimeout = 30 * time.Second
			maxTimeout     = 2 * time.Minute
		)

		timeout := defaultTimeout
		if customTimeout := c.Get("X-Request-Timeout"); customTimeout != "" {
			if d, err := time.ParseDuration(customTimeout); err == nil && d > 0 {
				timeout = min(d, maxTimeout)
			}
		}

		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)

		return c.Next()
	})

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	if isProd {
		app.Use(logger.New(logger.Config{
			Format: "${time} ${status} ${method} ${path} ${latency} ${bytesSent}b\n",
			Output: os.Stdout,
		}))
	} else {
		app.Use(logger.New(logger.Config{
			Format: "[${time}] ${status} - ${latency} ${method} ${path} ${error}\n",
			Output: os.Stdout,
		}))
	}

	allowedOrigins := cfg.Server.AllowedOrigins
	if allowedOrigins == "" {
		allowedOrigins = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:  allowedOrigins,
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, User-Agent, X-Request-ID",
		AllowMethods:  "GET, POST, OPTIONS",
		MaxAge:        86400,
		ExposeHeaders: "Content-Length, Content-Type, X-Request-ID",
	}))

	// Profiler (dev only)
	if !isProd {
		app.Use(pprof.New())
	}
}

func setupLogLevel(cfg *config.Config) {
	logLevel := cfg.GetNormalizedLogLevel()

	switch logLevel {
	case "trace":
		fiberlog.SetLevel(fiberlog.LevelTrace)
	case "debug":
		fiberlog.SetLevel(fiberlog.LevelDebug)
	case "info":
		fiberlog.SetLevel(fiberlog.LevelInfo)
	case "warn", "warning":
		fiberlog.SetLevel(fiberlog.LevelWarn)
	case "error":
		fiberlog.SetLevel(fiberlog.LevelError)
	case "fatal":
		fiberlog.SetLevel(fiberlog.LevelFatal)
	default:
		fiberlog.SetLevel(fiberlog.LevelInfo)
		if logLevel != "" {
			fiberlog.Warnf("Unknown log level '%s', defaulting to 'info'", logLevel)
		}
	}

	fiberlog.Infof("Log level set to: %s", logLevel)
}

func createRedisClient(cfg *config.Config) (*redis.Client, error) {
	if !cfg.ExactCache.Enabled || cfg.ExactCache.RedisURL == "" {
		fiberlog.Info("Redis not configured - exact-match tier disabled")
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.ExactCache.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opt.PoolSize = 50
	opt.MinIdleConns = 10
	opt.PoolTimeout = 4 * time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute
	opt.ConnMaxLifetime = 30 * time.Minute
	opt.DialTimeout = 10 * time.Second
	opt.ReadTimeout = 3 * time.Second
	opt.WriteTimeout = 3 * time.Second
	opt.MaxRetries = 3
	opt.MinRetryBackoff = 8 * time.Millisecond
	opt.MaxRetryBackoff = 512 * time.Millisecond

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	fiberlog.Info("Redis connection established")
	return client, nil
}

func createDatabase(cfg *config.Config) (*database.DB, error) {
	if cfg.Database == nil {
		fiberlog.Info("Database not configured - metrics log disabled")
		return nil, nil
	}

	db, err := database.New(*cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func setupRoutes(app *fiber.App, cfg *config.Config, redisClient *redis.Client, db *database.DB) error {
	semanticCache, err := cache.New(cfg.Cache)
	if err != nil {
		return fmt.Errorf("failed to create semantic cache: %w", err)
	}

	embedder, err := embeddings.NewProvider(cfg.Embeddings)
	if err != nil {
		return fmt.Errorf("failed to create embedding provider: %w", err)
	}

	generator, err := generation.NewGenerator(cfg.Generation)
	if err != nil {
		return fmt.Errorf("failed to create generator: %w", err)
	}

	exactTier := exactcache.New(redisClient, cfg.ExactCache)

	metricsLog, err := metricslog.NewWriter(db)
	if err != nil {
		return err
	}

	queryHandler := api.NewQueryHandler(semanticCache, embedder, generator, exactTier, metricsLog, cfg.Generation, cfg.Batching)
	cacheHandler := api.NewCacheHandler(semanticCache, exactTier, metricsLog)
	healthHandler := api.NewHealthHandler(exactTier, db)

	app.Get("/health", healthHandler.HealthCheck)
	app.Get("/", welcomeHandler())

	v1 := app.Group("/v1")
	v1.Post("/query", queryHandler.Query)
	v1.Get("/metrics", cacheHandler.Metrics)
	v1.Get("/cache/stats", cacheHandler.Stats)
	v1.Get("/cache/entries", cacheHandler.Entries)
	v1.Post("/cache/clear", cacheHandler.Clear)
	v1.Post("/cache/reset", cacheHandler.Reset)
	v1.Get("/evictions/history", cacheHandler.EvictionHistory)
	v1.Get("/optimizer/history", cacheHandler.OptimizerHistory)
	v1.Get("/requests/recent", cacheHandler.RecentRequests)

	return nil
}

func welcomeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"service": "AdaptiveCache",
			"version": "1.0",
			"status":  "running",
		})
	}
}
