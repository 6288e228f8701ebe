package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/couchcryptid/weather-lens-service/internal/domain"
	"github.com/couchcryptid/weather-lens-service/internal/observability"
)

// Notifier delivers a storm alert to some sink.
type Notifier interface {
	Notify(ctx context.Context, alert domain.StormAlert) error
}

// Notifiers fans an alert out to every sink and joins their errors.
type Notifiers []Notifier

func (ns Notifiers) Notify(ctx context.Context, alert domain.StormAlert) error {
	var errs []error
	for _, n := range ns {
		if err := n.Notify(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogNotifier writes alerts to the service log.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, alert domain.StormAlert) error {
	n.logger.Warn("storm approaching",
		"key", alert.Key,
		"storm", alert.StormName,
		"intensity", alert.Intensity,
		"eta", alert.ETA,
		"distance_deg", alert.DistanceDeg,
		"distance_km", alert.DistanceKm,
		"session_id", alert.SessionID,
	)
	return nil
}

// Alerter evaluates storm proximity and emits each alert scenario once. It
// remembers only the most recent key, so returning to an earlier scenario
// after a different one alerts again.
type Alerter struct {
	notifier Notifier
	metrics  *observability.Metrics
	logger   *slog.Logger

	mu      sync.Mutex
	lastKey string
}

// NewAlerter creates an Alerter. A nil notifier only records alerts.
func NewAlerter(notifier Notifier, metrics *observability.Metrics, logger *slog.Logger) *Alerter {
	return &Alerter{
		notifier: notifier,
		metrics:  metrics,
		logger:   logger,
	}
}

// Check evaluates user against storm and delivers the alert if one is due.
func (a *Alerter) Check(ctx context.Context, sessionID string, user domain.Coordinates, storm domain.StormForecast) (domain.StormAlert, bool) {
	alert, ok := a.Evaluate(sessionID, user, storm)
	if ok {
		a.Deliver(ctx, alert)
	}
	return alert, ok
}

// Evaluate returns the alert for user against storm if one is due and
// records its key. It does no I/O.
func (a *Alerter) Evaluate(sessionID string, user domain.Coordinates, storm domain.StormForecast) (domain.StormAlert, bool) {
	alert, ok := domain.NewStormAlert(user, storm)
	if !ok {
		return domain.StormAlert{}, false
	}

	a.mu.Lock()
	if alert.Key == a.lastKey {
		a.mu.Unlock()
		return domain.StormAlert{}, false
	}
	a.lastKey = alert.Key
	a.mu.Unlock()

	alert.SessionID = sessionID
	a.metrics.StormAlerts.Inc()
	return alert, true
}

// Deliver hands alert to the notifier. Failures are logged and counted but
// do not withdraw the alert.
func (a *Alerter) Deliver(ctx context.Context, alert domain.StormAlert) {
	if a.notifier == nil {
		return
	}
	// Delivery outlives a superseded selection.
	if err := a.notifier.Notify(context.WithoutCancel(ctx), alert); err != nil {
		a.metrics.AlertNotifyErrors.Inc()
		a.logger.Error("storm alert delivery failed", "error", err, "key", alert.Key)
	}
}
