package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"

	"github.com/couchcryptid/weather-lens-service/internal/domain"
	"github.com/couchcryptid/weather-lens-service/internal/observability"
)

// JSONGenerator asks a completion model for a document matching schema.
type JSONGenerator interface {
	GenerateJSON(ctx context.Context, prompt string, schema domain.Schema) ([]byte, error)
}

// ImageGenerator asks an image model to render prompt.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) ([]domain.ContentPart, error)
}

// AnalysisStatus tells the renderer whether an analysis is real or the fallback.
type AnalysisStatus string

const (
	StatusOK       AnalysisStatus = "ok"
	StatusDegraded AnalysisStatus = "degraded"
)

const (
	methodAnalyze = "analyze"
	methodImage   = "image"
)

// Analyst produces a WeatherAnalysis for a coordinate. It never fails: any
// model or parse error yields domain.FallbackAnalysis.
type Analyst struct {
	model   JSONGenerator
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewAnalyst creates an Analyst backed by model.
func NewAnalyst(model JSONGenerator, metrics *observability.Metrics, logger *slog.Logger) *Analyst {
	return &Analyst{
		model:   model,
		metrics: metrics,
		logger:  logger,
	}
}

// Analyze returns the analysis for c viewed through layer.
func (a *Analyst) Analyze(ctx context.Context, c domain.Coordinates, layer domain.LayerType) domain.WeatherAnalysis {
	analysis, _ := a.AnalyzeWithStatus(ctx, c, layer)
	return analysis
}

// AnalyzeWithStatus is Analyze plus whether the result is degraded.
func (a *Analyst) AnalyzeWithStatus(ctx context.Context, c domain.Coordinates, layer domain.LayerType) (domain.WeatherAnalysis, AnalysisStatus) {
	prompt := domain.AnalysisPrompt(c, layer)

	raw, err := a.model.GenerateJSON(ctx, prompt, domain.AnalysisSchema)
	if err != nil {
		if ctx.Err() != nil {
			a.count("canceled")
			a.logger.Debug("analysis cancelled", "lat", c.Latitude, "lng", c.Longitude)
		} else {
			a.count("error")
			a.logger.Warn("analysis request failed, using fallback",
				"error", err, "lat", c.Latitude, "lng", c.Longitude, "layer", layer)
		}
		return domain.FallbackAnalysis(), StatusDegraded
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		a.count("empty")
		a.logger.Warn("analysis response empty, using fallback", "lat", c.Latitude, "lng", c.Longitude)
		return domain.FallbackAnalysis(), StatusDegraded
	}

	var analysis domain.WeatherAnalysis
	if err := json.Unmarshal(raw, &analysis); err != nil {
		a.count("parse_error")
		a.logger.Warn("analysis response unparseable, using fallback",
			"error", err, "lat", c.Latitude, "lng", c.Longitude)
		return domain.FallbackAnalysis(), StatusDegraded
	}

	a.count("success")
	return analysis.Normalize(), StatusOK
}

func (a *Analyst) count(outcome string) {
	a.metrics.ModelRequests.WithLabelValues(methodAnalyze, outcome).Inc()
}
