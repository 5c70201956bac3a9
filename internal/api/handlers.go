package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/passbi/bikeshare_insights/internal/cache"
	"github.com/passbi/bikeshare_insights/internal/chart"
	"github.com/passbi/bikeshare_insights/internal/models"
	"github.com/passbi/bikeshare_insights/internal/stats"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Options tunes the HTTP layer
type Options struct {
	// DatasetID identifies the loaded data file in cache keys
	DatasetID string
	// GridColumns is the number of panels per row for multi-panel charts
	GridColumns int
	// RateLimiter guards the chart routes when set
	RateLimiter fiber.Handler
	// Redis is reported by the health check when set
	Redis *redis.Client
	// MutexTTL bounds how long one instance holds a render lock
	MutexTTL time.Duration
	// AccessLog enables the request logger
	AccessLog bool
}

// Server exposes the stats service over HTTP
type Server struct {
	svc      *stats.Service
	renderer *chart.Renderer
	cache    cache.Cache
	opts     Options
	renders  singleflight.Group
}

// NewServer wires the service, renderer and optional chart cache
func NewServer(svc *stats.Service, renderer *chart.Renderer, c cache.Cache, opts Options) *Server {
	if opts.GridColumns <= 0 {
		opts.GridColumns = 2
	}
	if opts.MutexTTL <= 0 {
		opts.MutexTTL = 5 * time.Second
	}
	return &Server{svc: svc, renderer: renderer, cache: c, opts: opts}
}

// App builds the fiber application with middleware and routes
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "Bike-share Insights",
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorHandler: ErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	if s.opts.AccessLog {
		app.Use(logger.New(logger.Config{
			Format:     "${time} | ${status} | ${latency} | ${method} ${path}\n",
			TimeFormat: "15:04:05",
			TimeZone:   "Local",
		}))
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	// Routes
	app.Get("/", s.Index)
	app.Get("/health", s.Health)
	app.Get("/api/v1/dataset", s.Dataset)
	app.Get("/api/v1/summaries/:name", s.Summaries)

	limiter := s.opts.RateLimiter
	if limiter == nil {
		limiter = func(c *fiber.Ctx) error { return c.Next() }
	}
	for _, name := range stats.Charts {
		app.Get("/"+name, limiter, s.ChartHandler(name))
	}

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(404).JSON(fiber.Map{
			"error": "endpoint not found",
		})
	})

	return app
}

// ErrorHandler handles errors returned from handlers
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	} else if errors.Is(err, stats.ErrUnknownChart) {
		code = fiber.StatusNotFound
	}

	if code >= fiber.StatusInternalServerError {
		log.Printf("Error: %v", err)
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}

// ChartHandler serves one chart as a PNG image
func (s *Server) ChartHandler(name string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		png, cacheHit, err := s.chartPNG(c.UserContext(), name)
		if err != nil {
			return err
		}

		c.Set(fiber.HeaderContentType, chart.ContentType)
		c.Set("X-Cache-Hit", boolToString(cacheHit))
		return c.Send(png)
	}
}

// SummariesResponse is the JSON form of a chart's summary tables
type SummariesResponse struct {
	Chart  string                `json:"chart"`
	Tables []models.SummaryTable `json:"tables"`
}

// Summaries handles the /api/v1/summaries/:name endpoint
func (s *Server) Summaries(c *fiber.Ctx) error {
	name := c.Params("name")

	tables, err := s.svc.Summary(name)
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, fmt.Sprintf("%v: %s", err, name))
	}

	return c.JSON(SummariesResponse{
		Chart:  name,
		Tables: tables,
	})
}

// Dataset handles the /api/v1/dataset endpoint
func (s *Server) Dataset(c *fiber.Ctx) error {
	return c.JSON(s.svc.Overview())
}

// Health handles the /health endpoint
func (s *Server) Health(c *fiber.Ctx) error {
	ctx := c.UserContext()

	datasetStatus := fmt.Sprintf("ok (%d trips)", s.svc.Dataset().Len())

	redisStatus := "disabled"
	var redisErr error
	if s.opts.Redis != nil {
		redisErr = cache.HealthCheck(ctx, s.opts.Redis)
		redisStatus = "ok"
		if redisErr != nil {
			redisStatus = redisErr.Error()
		}
	}

	// Overall status
	status := "healthy"
	httpStatus := 200
	if redisErr != nil {
		status = "unhealthy"
		httpStatus = 503
	}

	body := fiber.Map{
		"status": status,
		"checks": fiber.Map{
			"dataset": datasetStatus,
			"redis":   redisStatus,
		},
	}
	if s.opts.Redis != nil {
		body["redis_pool"] = cache.Stats(s.opts.Redis)
	}

	return c.Status(httpStatus).JSON(body)
}

// chartPNG returns the rendered chart, from cache when possible. Concurrent
// requests for the same chart share one render.
func (s *Server) chartPNG(ctx context.Context, name string) ([]byte, bool, error) {
	if s.cache == nil {
		png, err := s.render(name)
		return png, false, err
	}

	cacheKey := cache.ChartKey(s.opts.DatasetID, name, s.renderer.Width, s.renderer.Height)

	// Try to get from cache
	if png, ok, err := s.cache.Get(ctx, cacheKey); err == nil && ok {
		return png, true, nil
	}

	v, err, _ := s.renders.Do(cacheKey, func() (interface{}, error) {
		return s.computeChart(ctx, name, cacheKey)
	})
	if err != nil {
		return nil, false, err
	}
	return v.([]byte), false, nil
}

// computeChart renders a chart under the shared cache's lock, if it has one
func (s *Server) computeChart(ctx context.Context, name, cacheKey string) ([]byte, error) {
	var locker cache.Locker
	if tiered, ok := s.cache.(*cache.Tiered); ok {
		locker, _ = tiered.Locker()
	} else {
		locker, _ = s.cache.(cache.Locker)
	}

	acquired := false
	if locker != nil {
		lockKey := cache.LockKey(cacheKey)

		var err error
		acquired, err = locker.AcquireLock(ctx, lockKey, s.opts.MutexTTL)
		if err != nil {
			log.Printf("Failed to acquire lock: %v", err)
			// Continue without lock (degrade gracefully)
		} else if !acquired {
			// Another instance is rendering this chart, wait for it
			png, ok, err := cache.WaitForLock(ctx, s.cache, locker, cacheKey, s.opts.MutexTTL)
			if err == nil && ok {
				return png, nil
			}
			// If waiting failed, render anyway
		}

		// Ensure lock is released
		defer func() {
			if acquired {
				if err := locker.ReleaseLock(ctx, lockKey); err != nil {
					log.Printf("Failed to release lock: %v", err)
				}
			}
		}()
	}

	png, err := s.render(name)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, cacheKey, png); err != nil {
		log.Printf("Failed to cache chart %s: %v", name, err)
	}

	return png, nil
}

func (s *Server) render(name string) ([]byte, error) {
	tables, err := s.svc.Summary(name)
	if err != nil {
		return nil, err
	}

	if len(tables) > 1 {
		return s.renderer.Grid(tables, s.opts.GridColumns)
	}
	return s.renderer.Bar(tables[0])
}

func boolToString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
