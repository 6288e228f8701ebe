package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"reflect"
	"strings"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/weather-lens-service/internal/domain"
	"github.com/couchcryptid/weather-lens-service/internal/observability"
	"github.com/couchcryptid/weather-lens-service/internal/pipeline"
)

const maxBodyBytes = 1 << 20

// Sessions is the session store behind the API.
type Sessions interface {
	Create(layer domain.LayerType) (*pipeline.Session, error)
	Get(id string) (*pipeline.Session, error)
	Delete(id string) error
	CheckReadiness(ctx context.Context) error
}

// Server exposes the session API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	sessions   Sessions
	locator    domain.Geolocator
	geoTimeout time.Duration
	validate   *validator.Validate
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewServer creates the HTTP server. A nil locator makes every geolocation
// answer the default location.
func NewServer(addr string, sessions Sessions, locator domain.Geolocator, geoTimeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Server {
	r := chi.NewRouter()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		sessions:   sessions,
		locator:    locator,
		geoTimeout: geoTimeout,
		validate:   newValidator(),
		metrics:    metrics,
		logger:     logger,
	}

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", sharedobs.LivenessHandler())
	r.Get("/readyz", sharedobs.ReadinessHandler(sessions))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Snapshots carry inline images, so compress.
		r.Use(func(next http.Handler) http.Handler { return gzhttp.GzipHandler(next) })
		r.Use(middleware.RequestID)

		r.Get("/geolocate", s.handleGeolocate)
		r.Post("/sessions", s.handleCreateSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleDeleteSession)
			r.Put("/layer", s.handleSetLayer)
			r.Post("/selections", s.handleSelect)
			r.Put("/user-location", s.handleUserLocation)
		})
	})

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// --- request bodies ---

type createSessionRequest struct {
	Layer domain.LayerType `json:"layer" validate:"omitempty,oneof=TERRAIN WIND RAIN TEMPERATURE"`
}

type layerRequest struct {
	Layer domain.LayerType `json:"layer" validate:"required,oneof=TERRAIN WIND RAIN TEMPERATURE"`
}

// Pointers so that 0 is a legal coordinate but absence is not.
type coordinatesRequest struct {
	Latitude  *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
}

func (c coordinatesRequest) coordinates() domain.Coordinates {
	return domain.Coordinates{Latitude: *c.Latitude, Longitude: *c.Longitude}
}

type selectResponse struct {
	SessionID  string `json:"sessionId"`
	Generation uint64 `json:"generation"`
}

type userLocationResponse struct {
	Alert *domain.StormAlert `json:"alert"`
}

// --- handlers ---

func (s *Server) handleGeolocate(w http.ResponseWriter, r *http.Request) {
	loc := domain.LocateUser(r.Context(), s.locator, clientIP(r), s.geoTimeout, s.logger)
	s.metrics.GeolocationLookups.WithLabelValues(loc.Source).Inc()
	writeJSON(w, http.StatusOK, loc)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if !s.decode(w, r, &req, true) {
		return
	}
	session, err := s.sessions.Create(req.Layer)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, session.Snapshot())
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, session.Snapshot())
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetLayer(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	var req layerRequest
	if !s.decode(w, r, &req, false) {
		return
	}
	if err := session.SetLayer(req.Layer); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session.Snapshot())
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	var req coordinatesRequest
	if !s.decode(w, r, &req, false) {
		return
	}
	gen, err := session.Select(r.Context(), req.coordinates())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, selectResponse{SessionID: session.ID(), Generation: gen})
}

func (s *Server) handleUserLocation(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	var req coordinatesRequest
	if !s.decode(w, r, &req, false) {
		return
	}
	alert, err := session.SetUserLocation(r.Context(), req.coordinates())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, userLocationResponse{Alert: alert})
}

// --- helpers ---

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*pipeline.Session, bool) {
	session, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return nil, false
	}
	return session, true
}

// decode reads a JSON body into dst and validates it. An empty body is
// accepted only when optional is set.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any, optional bool) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !(optional && errors.Is(err, io.EOF)) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: validationMessage(err)})
		return false
	}
	return true
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, pipeline.ErrSessionNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, pipeline.ErrInvalidCoordinates), errors.Is(err, domain.ErrUnknownLayer):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		s.logger.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client may have gone away
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%s is %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(msgs, "; ")
}

// clientIP strips the port from RemoteAddr, which RealIP has already
// rewritten from forwarding headers when present.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
