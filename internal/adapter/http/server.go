package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"time"

	"github.com/couchcryptid/air-quality-etl/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const maxBodyBytes = 1 << 20

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// AssessmentSource exposes the pipeline state served by the API.
type AssessmentSource interface {
	ReadinessChecker
	Latest() (domain.AssessmentEvent, bool)
}

// Server exposes health, readiness, metrics, and assessment HTTP endpoints.
type Server struct {
	httpServer *http.Server
	source     AssessmentSource
	assessor   *domain.Assessor
	logger     *slog.Logger
}

// NewServer creates an HTTP server. Ad-hoc assessments use assessor, or a
// copy of it with the request's index table.
func NewServer(addr string, source AssessmentSource, assessor *domain.Assessor, logger *slog.Logger) *Server {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		source:   source,
		assessor: assessor,
		logger:   logger,
	}

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", handleReady(source))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Route("/v1", func(r chi.Router) {
		r.Get("/assessment", s.handleLatest)
		r.Post("/assess", s.handleAssess)
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

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func (s *Server) handleLatest(w http.ResponseWriter, _ *http.Request) {
	event, ok := s.source.Latest()
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "no assessment published yet"})
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// assessRequest is the body of POST /v1/assess. Readings are keyed by
// pollutant name; index_table optionally replaces the index scale with six
// [low, high] pairs.
type assessRequest struct {
	Readings   map[string]float64 `json:"readings"`
	IndexTable [][]float64        `json:"index_table,omitempty"`
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func (s *Server) handleAssess(w http.ResponseWriter, r *http.Request) {
	var req assessRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	assessor := s.assessor
	if req.IndexTable != nil {
		table, err := parseIndexTable(req.IndexTable)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: fmt.Sprintf("invalid index_table: %v", err)})
			return
		}
		assessor = assessor.With(domain.WithIndexTable(table))
	}

	readings, err := parseReadings(req.Readings)
	if err != nil {
		s.writeAssessError(w, err)
		return
	}

	a, err := assessor.Aggregate(readings)
	if err != nil {
		s.writeAssessError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) writeAssessError(w http.ResponseWriter, err error) {
	if domain.IsAssessmentError(err) {
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: err.Error(), Kind: domain.ErrorKind(err)})
		return
	}
	s.logger.Error("assess request failed", "error", err)
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error", Kind: domain.KindInternal})
}

// parseReadings converts pollutant names to readings in name order so the
// response is stable. Two spellings of one pollutant are a duplicate.
func parseReadings(in map[string]float64) ([]domain.Reading, error) {
	names := slices.Sorted(maps.Keys(in))

	seen := make(map[domain.Pollutant]string, len(in))
	readings := make([]domain.Reading, 0, len(in))
	for _, name := range names {
		p, err := domain.ParsePollutant(name)
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[p]; dup {
			return nil, fmt.Errorf("%w: %q and %q", domain.ErrDuplicateReading, prev, name)
		}
		seen[p] = name
		readings = append(readings, domain.Reading{Pollutant: p, Value: in[name]})
	}
	return readings, nil
}

func parseIndexTable(rows [][]float64) (domain.IndexTable, error) {
	var table domain.IndexTable
	if len(rows) != domain.BandCount {
		return table, fmt.Errorf("want %d bands, got %d", domain.BandCount, len(rows))
	}
	for i, row := range rows {
		if len(row) != 2 {
			return table, fmt.Errorf("band %d: want [low, high], got %d values", i, len(row))
		}
		table[i] = domain.Band{Low: row[0], High: row[1]}
	}
	if err := table.Validate(); err != nil {
		return table, err
	}
	return table, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
