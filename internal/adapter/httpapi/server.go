// Package httpapi serves the tracker API: region listing, on-demand
// frames, health and readiness probes, Prometheus metrics.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/foehnwatch/tas-tracker/internal/domain"
	"github.com/foehnwatch/tas-tracker/internal/observability"
	"github.com/foehnwatch/tas-tracker/internal/pipeline"
	"github.com/foehnwatch/tas-tracker/internal/regions"
	"github.com/foehnwatch/tas-tracker/internal/render"
)

// Server exposes the tracker over HTTP.
type Server struct {
	httpServer *http.Server
	engine     *pipeline.Engine
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewServer wires all routes onto a gorilla router.
func NewServer(addr string, engine *pipeline.Engine, logger *slog.Logger, metrics *observability.Metrics) *Server {
	s := &Server{
		engine:  engine,
		logger:  logger,
		metrics: metrics,
	}

	router := mux.NewRouter()
	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/v1/regions", s.handleRegions).Methods(http.MethodGet)
	router.HandleFunc("/v1/regions/{region}/frame", s.handleFrame).Methods(http.MethodGet)
	router.Use(s.instrument)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
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

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.engine.CheckReadiness(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type regionPayload struct {
	ID      string `json:"id"`
	German  string `json:"name_de"`
	English string `json:"name_en"`
}

func (s *Server) handleRegions(w http.ResponseWriter, _ *http.Request) {
	all := s.engine.Regions().All()
	out := make([]regionPayload, 0, len(all))
	for _, r := range all {
		out = append(out, regionPayload{ID: r.ID, German: r.Names.German, English: r.Names.English})
	}
	writeJSON(w, http.StatusOK, map[string]any{"regions": out})
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	regionID := mux.Vars(r)["region"]
	q := r.URL.Query()

	year, err := strconv.Atoi(q.Get("year"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid year: want an integer")
		return
	}
	opts, err := frameOptions(q)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	frame, err := s.engine.BuildFrame(r.Context(), regionID, year, opts)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, frame)
}

// frameOptions parses the optional frame query parameters. Absent
// parameters fall back to both panels, English labels, the median
// center line, the latest day and a record threshold of 1.
func frameOptions(q url.Values) (pipeline.FrameOptions, error) {
	kind, err := render.ParseKind(q.Get("kind"))
	if err != nil {
		return pipeline.FrameOptions{}, err
	}
	lang, err := regions.ParseLanguage(q.Get("lang"))
	if err != nil {
		return pipeline.FrameOptions{}, err
	}

	var center render.CenterLine
	switch q.Get("center") {
	case "", "median":
		center = render.CenterMedian
	case "mean":
		center = render.CenterMean
	default:
		return pipeline.FrameOptions{}, fmt.Errorf("%w: unknown center %q (want mean or median)", domain.ErrInvalidArgument, q.Get("center"))
	}

	opts := pipeline.FrameOptions{Kind: kind, Language: lang, Center: center, Threshold: 1}
	if v := q.Get("day"); v != "" {
		day, err := strconv.Atoi(v)
		if err != nil {
			return pipeline.FrameOptions{}, fmt.Errorf("%w: invalid day %q", domain.ErrInvalidArgument, v)
		}
		opts.Day = day
	}
	if v := q.Get("threshold"); v != "" {
		threshold, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return pipeline.FrameOptions{}, fmt.Errorf("%w: invalid threshold %q", domain.ErrInvalidArgument, v)
		}
		opts.Threshold = threshold
	}
	return opts, nil
}

// writeDomainError maps domain error kinds onto HTTP statuses.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrInvalidRegion):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrMissingData):
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrDataUnavailable):
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.logger.Error("frame request failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response write
}

// instrument logs each request and records route metrics. The mux route
// template keeps the label cardinality fixed.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tmpl, err := cur.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		elapsed := time.Since(start)
		s.metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		s.metrics.HTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())
		s.logger.Debug("http request",
			"method", r.Method, "path", r.URL.Path, "status", rec.status, "duration_ms", elapsed.Milliseconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
