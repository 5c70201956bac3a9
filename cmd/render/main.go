package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/passbi/bikeshare_insights/internal/chart"
	"github.com/passbi/bikeshare_insights/internal/config"
	"github.com/passbi/bikeshare_insights/internal/stats"
	"github.com/passbi/bikeshare_insights/internal/trips"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Command-line flags, defaulting to the service configuration
	dataPath := flag.String("data", cfg.DataPath, "Path to the trip CSV or ZIP file")
	outDir := flag.String("out", "charts", "Directory the PNG files are written to")
	width := flag.Int("width", cfg.ChartWidth, "Chart width in pixels")
	height := flag.Int("height", cfg.ChartHeight, "Chart height in pixels")
	columns := flag.Int("grid-columns", 2, "Panels per row for multi-panel charts")
	withJSON := flag.Bool("json", false, "Also write the summary tables as JSON")

	flag.Parse()

	if *dataPath == "" {
		fmt.Println("Usage: bikeshare-render --data=<trips.csv> [--out=charts] [--width=800] [--height=600] [--json]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if _, err := os.Stat(*dataPath); os.IsNotExist(err) {
		log.Fatalf("Trip file not found: %s", *dataPath)
	}

	startTime := time.Now()

	log.Println("Step 1/2: Loading trips...")
	records, err := trips.Load(*dataPath, trips.Options{
		Delimiter: cfg.DataDelimiter,
		Location:  cfg.DataLocation,
	})
	if err != nil {
		log.Fatalf("Failed to load trip dataset: %v", err)
	}
	svc := stats.NewService(stats.NewDataset(records).WithDomains(cfg.UserTypes, cfg.Genders))
	log.Printf("  ✓ Loaded %d trips", len(records))

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	log.Println("Step 2/2: Rendering charts...")
	renderer := chart.NewRenderer(*width, *height)
	for _, name := range stats.Charts {
		if err := renderChart(svc, renderer, name, *outDir, *columns, *withJSON); err != nil {
			log.Fatalf("Failed to render %s: %v", name, err)
		}
		log.Printf("  ✓ %s", name)
	}

	log.Printf("Rendered %d charts to %s in %v", len(stats.Charts), *outDir, time.Since(startTime))
}

func renderChart(svc *stats.Service, renderer *chart.Renderer, name, outDir string, columns int, withJSON bool) error {
	tables, err := svc.Summary(name)
	if err != nil {
		return err
	}

	var png []byte
	if len(tables) > 1 {
		png, err = renderer.Grid(tables, columns)
	} else {
		png, err = renderer.Bar(tables[0])
	}
	if err != nil {
		return fmt.Errorf("failed to render: %w", err)
	}

	if err := os.WriteFile(filepath.Join(outDir, name+".png"), png, 0o644); err != nil {
		return fmt.Errorf("failed to write image: %w", err)
	}

	if !withJSON {
		return nil
	}

	data, err := json.MarshalIndent(tables, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode tables: %w", err)
	}
	return os.WriteFile(filepath.Join(outDir, name+".json"), data, 0o644)
}
