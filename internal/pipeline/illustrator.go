package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/weather-lens-service/internal/domain"
	"github.com/couchcryptid/weather-lens-service/internal/observability"
)

// Illustrator renders a photographic impression of an analysed location.
type Illustrator struct {
	model   ImageGenerator
	enabled bool
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewIllustrator creates an Illustrator. A nil model or enabled=false turns
// every call into an immediate absent result.
func NewIllustrator(model ImageGenerator, enabled bool, metrics *observability.Metrics, logger *slog.Logger) *Illustrator {
	return &Illustrator{
		model:   model,
		enabled: enabled && model != nil,
		metrics: metrics,
		logger:  logger,
	}
}

// GenerateImage returns a data URI for the rendered scene, or ("", false)
// when generation is disabled, fails, or yields no image.
func (il *Illustrator) GenerateImage(ctx context.Context, locationName, description string, layer domain.LayerType) (string, bool) {
	if !il.enabled {
		il.count("disabled")
		return "", false
	}

	parts, err := il.model.GenerateImage(ctx, domain.ImagePrompt(locationName, description, layer))
	if err != nil {
		if ctx.Err() != nil {
			il.count("canceled")
			return "", false
		}
		il.count("error")
		il.logger.Warn("image request failed", "error", err, "location", locationName, "layer", layer)
		return "", false
	}

	img, err := domain.FirstImage(parts)
	if err != nil {
		il.count("no_image")
		il.logger.Warn("image response carried no image", "location", locationName, "parts", len(parts))
		return "", false
	}

	il.count("success")
	return img.DataURI(), true
}

func (il *Illustrator) count(outcome string) {
	il.metrics.ModelRequests.WithLabelValues(methodImage, outcome).Inc()
}
