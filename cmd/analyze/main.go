// Command analyze runs a single location analysis against the configured
// Gemini models and prints the result as JSON. It uses the same pipeline
// components as the server, so the output matches what a session would show.
//
// Usage:
//
//	GEMINI_API_KEY=... go run ./cmd/analyze \
//	  -lat 16.0471 -lng 108.2068 \
//	  -layer rain \
//	  -image \
//	  -out analysis.json
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/weather-lens-service/internal/adapter/gemini"
	"github.com/couchcryptid/weather-lens-service/internal/config"
	"github.com/couchcryptid/weather-lens-service/internal/domain"
	"github.com/couchcryptid/weather-lens-service/internal/observability"
	"github.com/couchcryptid/weather-lens-service/internal/pipeline"
)

type result struct {
	Coordinates domain.Coordinates      `json:"coordinates"`
	Layer       domain.LayerType        `json:"layer"`
	Status      pipeline.AnalysisStatus `json:"status"`
	Analysis    domain.WeatherAnalysis  `json:"analysis"`
	ImageURL    string                  `json:"imageUrl,omitempty"`
	Alert       *domain.StormAlert      `json:"alert,omitempty"`
}

func main() {
	if err := run(); err != nil {
		slog.Error("analyze failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	lat := flag.Float64("lat", domain.DefaultLocation.Latitude, "latitude in degrees")
	lng := flag.Float64("lng", domain.DefaultLocation.Longitude, "longitude in degrees")
	layerName := flag.String("layer", string(domain.LayerTerrain), "map layer: terrain, wind, rain or temperature")
	withImage := flag.Bool("image", false, "also generate the scene image")
	out := flag.String("out", "", "output path (default stdout)")
	flag.Parse()

	coords := domain.Coordinates{Latitude: *lat, Longitude: *lng}
	if !coords.Valid() {
		return fmt.Errorf("invalid coordinates %.4f, %.4f", *lat, *lng)
	}
	layer, err := domain.ParseLayer(*layerName)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	// stdout carries the result.
	logger := observability.NewLoggerTo(os.Stderr, cfg)
	metrics := observability.NewMetricsForTesting()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := gemini.NewClient(cfg.Gemini, metrics, logger)
	analyst := pipeline.NewAnalyst(client, metrics, logger)

	res := result{Coordinates: coords, Layer: layer}
	res.Analysis, res.Status = analyst.AnalyzeWithStatus(ctx, coords, layer)
	logger.Info("analysis complete", "status", res.Status, "location", res.Analysis.LocationName)

	// The selected point stands in for the user's own position.
	if alert, ok := domain.NewStormAlert(coords, res.Analysis.StormForecast); ok {
		res.Alert = &alert
	}

	if *withImage {
		illustrator := pipeline.NewIllustrator(client, true, metrics, logger)
		url, ok := illustrator.GenerateImage(ctx, res.Analysis.LocationName, res.Analysis.ImmersiveDescription, layer)
		if !ok {
			logger.Warn("no image generated", "location", res.Analysis.LocationName)
		}
		res.ImageURL = url
	}

	if err := writeResult(*out, os.Stdout, res); err != nil {
		return err
	}
	if *out != "" {
		logger.Info("wrote result", "path", *out)
	}
	return nil
}

// writeResult encodes res to path, or to stdout when path is empty.
func writeResult(path string, stdout io.Writer, res result) (err error) {
	if path == "" {
		return encodeResult(stdout, res)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close output: %w", cerr))
		}
	}()
	return encodeResult(f, res)
}

func encodeResult(w io.Writer, res result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	return nil
}
