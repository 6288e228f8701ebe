package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/weather-lens-service/internal/domain"
	"github.com/couchcryptid/weather-lens-service/internal/observability"
)

// ErrInvalidCoordinates is returned for a position outside the valid
// latitude/longitude range.
var ErrInvalidCoordinates = errors.New("invalid coordinates")

// Analyzer produces an analysis and reports whether it is degraded.
type Analyzer interface {
	AnalyzeWithStatus(ctx context.Context, c domain.Coordinates, layer domain.LayerType) (domain.WeatherAnalysis, AnalysisStatus)
}

// ImageRenderer returns a data URI for an analysed location, or false.
type ImageRenderer interface {
	GenerateImage(ctx context.Context, locationName, description string, layer domain.LayerType) (string, bool)
}

// Snapshot is an immutable view of a session for the renderer.
type Snapshot struct {
	ID              string                  `json:"id"`
	Generation      uint64                  `json:"generation"`
	Layer           domain.LayerType        `json:"layer"`
	Selected        *domain.Coordinates     `json:"selected,omitempty"`
	Analysis        *domain.WeatherAnalysis `json:"analysis,omitempty"`
	AnalysisStatus  AnalysisStatus          `json:"analysisStatus,omitempty"`
	AnalysisLoading bool                    `json:"analysisLoading"`
	Image           domain.GeneratedVisual  `json:"image"`
	UserLocation    *domain.Coordinates     `json:"userLocation,omitempty"`
	// Alert is the proximity alert raised for the current analysis, if any.
	Alert *domain.StormAlert `json:"alert,omitempty"`
}

// Session is one user's view: the latest selection, its analysis and image,
// the active layer and the user's own position.
//
// Every selection bumps the generation and cancels the previous run. A
// completion whose generation is no longer current is discarded, so the
// visible analysis and image always belong to the most recent selection.
type Session struct {
	id          string
	analyst     Analyzer
	illustrator ImageRenderer
	alerter     *Alerter
	metrics     *observability.Metrics
	logger      *slog.Logger
	clock       clockwork.Clock

	wg sync.WaitGroup

	mu              sync.Mutex
	generation      uint64
	cancel          context.CancelFunc
	closed          bool
	layer           domain.LayerType
	selected        *domain.Coordinates
	analysis        *domain.WeatherAnalysis
	status          AnalysisStatus
	analysisLoading bool
	image           domain.GeneratedVisual
	userLocation    *domain.Coordinates
	alert           *domain.StormAlert
	lastActive      time.Time
}

func newSession(id string, layer domain.LayerType, deps Deps, clock clockwork.Clock) *Session {
	return &Session{
		id:          id,
		analyst:     deps.Analyst,
		illustrator: deps.Illustrator,
		alerter:     NewAlerter(deps.Notifier, deps.Metrics, deps.Logger),
		metrics:     deps.Metrics,
		logger:      deps.Logger.With("session_id", id),
		clock:       clock,
		layer:       layer,
		lastActive:  clock.Now(),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Select starts analysing c with the current layer and returns the new
// generation. Any run still in flight is cancelled and its results dropped.
// The run is detached from ctx cancellation; only a newer selection or Close
// stops it.
func (s *Session) Select(ctx context.Context, c domain.Coordinates) (uint64, error) {
	if !c.Valid() {
		return 0, ErrInvalidCoordinates
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, ErrSessionNotFound
	}
	if s.cancel != nil {
		s.cancel()
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.generation++
	gen := s.generation
	layer := s.layer
	sel := c
	s.selected = &sel
	s.analysis = nil
	s.status = ""
	s.analysisLoading = true
	s.image = domain.GeneratedVisual{}
	s.alert = nil
	s.lastActive = s.clock.Now()
	s.wg.Add(1)
	s.mu.Unlock()

	s.metrics.Selections.Inc()
	s.logger.Info("location selected", "generation", gen, "lat", c.Latitude, "lng", c.Longitude, "layer", layer)

	go s.run(runCtx, gen, c, layer)
	return gen, nil
}

func (s *Session) run(ctx context.Context, gen uint64, c domain.Coordinates, layer domain.LayerType) {
	defer s.wg.Done()
	start := s.clock.Now()

	analysis, status := s.analyst.AnalyzeWithStatus(ctx, c, layer)
	user, ok := s.landAnalysis(gen, analysis, status)
	if !ok {
		return
	}
	if user != nil {
		s.evaluateProximity(ctx, gen, *user, analysis.StormForecast)
	}

	url, _ := s.illustrator.GenerateImage(ctx, analysis.LocationName, analysis.ImmersiveDescription, layer)
	if s.landImage(gen, url) {
		s.metrics.SelectionDuration.Observe(s.clock.Since(start).Seconds())
	}
}

// landAnalysis stores a completed analysis if gen is still current and moves
// the session on to the image stage. It returns the user location to check
// proximity against.
func (s *Session) landAnalysis(gen uint64, analysis domain.WeatherAnalysis, status AnalysisStatus) (*domain.Coordinates, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation || s.closed {
		s.discard("analysis", gen)
		return nil, false
	}
	s.analysis = &analysis
	s.status = status
	s.analysisLoading = false
	s.image = domain.GeneratedVisual{Loading: true}

	if s.userLocation == nil {
		return nil, true
	}
	user := *s.userLocation
	return &user, true
}

func (s *Session) landImage(gen uint64, url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation || s.closed {
		s.discard("image", gen)
		return false
	}
	s.image = domain.GeneratedVisual{ImageURL: url}
	return true
}

// discard must be called with s.mu held.
func (s *Session) discard(stage string, gen uint64) {
	s.metrics.StaleCompletions.WithLabelValues(stage).Inc()
	s.logger.Debug("discarding stale completion", "stage", stage, "generation", gen, "current", s.generation)
}

// evaluateProximity records an alert for user against storm while gen is
// current and delivers it in the background, tracked by s.wg.
func (s *Session) evaluateProximity(ctx context.Context, gen uint64, user domain.Coordinates, storm domain.StormForecast) *domain.StormAlert {
	s.mu.Lock()
	if gen != s.generation || s.closed {
		s.discard("alert", gen)
		s.mu.Unlock()
		return nil
	}
	alert, ok := s.alerter.Evaluate(s.id, user, storm)
	if !ok {
		s.mu.Unlock()
		return nil
	}
	s.alert = &alert
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		s.alerter.Deliver(ctx, alert)
	}()
	return &alert
}

// SetLayer changes the layer used by the next selection. The current
// analysis is left as is.
func (s *Session) SetLayer(layer domain.LayerType) error {
	if !layer.Valid() {
		return domain.ErrUnknownLayer
	}
	s.mu.Lock()
	s.layer = layer
	s.lastActive = s.clock.Now()
	s.mu.Unlock()
	return nil
}

// SetUserLocation records the user's position and checks it against the
// storm in the current analysis. It returns the alert if a new one was
// issued.
func (s *Session) SetUserLocation(ctx context.Context, c domain.Coordinates) (*domain.StormAlert, error) {
	if !c.Valid() {
		return nil, ErrInvalidCoordinates
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionNotFound
	}
	user := c
	s.userLocation = &user
	s.lastActive = s.clock.Now()
	gen := s.generation
	var storm *domain.StormForecast
	if s.analysis != nil {
		sf := s.analysis.StormForecast
		storm = &sf
	}
	s.mu.Unlock()

	if storm == nil {
		return nil, nil
	}
	return s.evaluateProximity(ctx, gen, c, *storm), nil
}

// Snapshot returns a copy of the session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:              s.id,
		Generation:      s.generation,
		Layer:           s.layer,
		AnalysisStatus:  s.status,
		AnalysisLoading: s.analysisLoading,
		Image:           s.image,
	}
	if s.selected != nil {
		c := *s.selected
		snap.Selected = &c
	}
	if s.analysis != nil {
		a := s.analysis.Clone()
		snap.Analysis = &a
	}
	if s.userLocation != nil {
		c := *s.userLocation
		snap.UserLocation = &c
	}
	if s.alert != nil {
		a := *s.alert
		snap.Alert = &a
	}
	return snap
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastActive = s.clock.Now()
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Close cancels any in-flight run and waits for it and any pending alert
// delivery to finish.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
	s.wg.Wait()
}
