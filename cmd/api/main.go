package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/passbi/bikeshare_insights/internal/api"
	"github.com/passbi/bikeshare_insights/internal/cache"
	"github.com/passbi/bikeshare_insights/internal/chart"
	"github.com/passbi/bikeshare_insights/internal/config"
	"github.com/passbi/bikeshare_insights/internal/middleware"
	"github.com/passbi/bikeshare_insights/internal/stats"
	"github.com/passbi/bikeshare_insights/internal/trips"
	"github.com/redis/go-redis/v9"
)

func main() {
	log.Println("Starting bike-share insights server...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Load the trip dataset into memory
	records, err := trips.Load(cfg.DataPath, trips.Options{
		Delimiter: cfg.DataDelimiter,
		Location:  cfg.DataLocation,
	})
	if err != nil {
		log.Fatalf("Failed to load trip dataset: %v", err)
	}
	dataset := stats.NewDataset(records).WithDomains(cfg.UserTypes, cfg.Genders)
	svc := stats.NewService(dataset)
	log.Printf("✓ Dataset loaded (%d trips)", len(records))

	datasetID, err := fingerprint(cfg.DataPath)
	if err != nil {
		log.Fatalf("Failed to stat trip dataset: %v", err)
	}

	// Chart cache: in-process LRU, backed by Redis when enabled
	var chartCache cache.Cache = cache.NewLocal(cfg.CacheSize, cfg.CacheTTL)
	var rdb *redis.Client
	var rateLimiter fiber.Handler
	if cfg.Redis.Enabled {
		rdb, err = cache.NewClient(&cfg.Redis)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer rdb.Close()
		log.Println("✓ Redis connection established")

		chartCache = cache.NewTiered(chartCache, cache.NewRedis(rdb, cfg.Redis.TTL))
		if cfg.RateLimitPerMinute > 0 {
			rateLimiter = middleware.RateLimitMiddleware(middleware.NewRedisCounter(rdb), cfg.RateLimitPerMinute)
			log.Printf("✓ Rate limiting enabled (%d requests/minute)", cfg.RateLimitPerMinute)
		}
	}

	server := api.NewServer(svc, chart.NewRenderer(cfg.ChartWidth, cfg.ChartHeight), chartCache, api.Options{
		DatasetID:   datasetID,
		RateLimiter: rateLimiter,
		Redis:       rdb,
		MutexTTL:    cfg.Redis.MutexTTL,
		AccessLog:   true,
	})
	app := server.App()

	addr := fmt.Sprintf(":%s", cfg.Port)

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down gracefully...")
		if err := app.Shutdown(); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	}()

	// Start server
	log.Printf("🚀 Server listening on http://localhost%s", addr)
	log.Printf("📊 Charts: http://localhost%s/", addr)
	log.Printf("❤️  Health check: http://localhost%s/health", addr)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// fingerprint changes whenever the data file is replaced or modified
func fingerprint(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%d:%d", path, info.Size(), info.ModTime().UnixNano()), nil
}
