// Package api exposes the sampling pipeline over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"motorsync/internal/hub"
	"motorsync/internal/sim"
	"motorsync/internal/store"
)

// DefaultHistoryLimit caps GET /api/readings when no limit is given.
const DefaultHistoryLimit = 50

// Authorizer decides whether a request may run destructive operations.
// A nil Authorizer denies everything.
type Authorizer func(r *http.Request) bool

// TokenAuthorizer allows requests carrying the given bearer token.
func TokenAuthorizer(token string) Authorizer {
	return func(r *http.Request) bool {
		return token != "" && r.Header.Get("Authorization") == "Bearer "+token
	}
}

// Server wires the pipeline's HTTP surface: trigger sampling, query
// history, reset, stream, health and metrics.
type Server struct {
	store  store.SampleStore
	hub    *hub.Hub
	runner *sim.Runner
	auth   Authorizer
	log    *slog.Logger
	mux    *chi.Mux
}

// NewServer builds the router. gatherer serves /metrics; pass a
// prometheus.Registry shared with the pipeline instruments.
func NewServer(st store.SampleStore, h *hub.Hub, runner *sim.Runner, auth Authorizer, gatherer prometheus.Gatherer, log *slog.Logger) *Server {
	s := &Server{store: st, hub: h, runner: runner, auth: auth, log: log}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Route("/api", func(r chi.Router) {
		r.Get("/readings", s.handleListReadings)
		r.Delete("/readings", s.handleDeleteReadings)
		r.Post("/readings/sample", s.handleSample)
		r.Get("/stream", h.ServeSSE)
	})
	r.Get("/health", s.handleHealth)
	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	s.mux = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleSample triggers one sampling operation for ?machine= and returns
// the persisted reading. Without ?machine= every machine is sampled and
// the readings are returned in machine order.
func (s *Server) handleSample(w http.ResponseWriter, r *http.Request) {
	machine := r.URL.Query().Get("machine")
	if machine != "" {
		c := s.runner.Coordinator(machine)
		if c == nil {
			writeError(w, http.StatusNotFound, "unknown machine")
			return
		}
		reading, err := c.Sample(r.Context())
		if err != nil {
			s.log.Error("sample failed", "machine", machine, "err", err)
			writeError(w, http.StatusServiceUnavailable, "sampling failed")
			return
		}
		writeJSON(w, http.StatusCreated, reading)
		return
	}

	coords := s.runner.Coordinators()
	readings := make([]any, 0, len(coords))
	for _, c := range coords {
		reading, err := c.Sample(r.Context())
		if err != nil {
			s.log.Error("sample failed", "machine", c.MachineID(), "err", err)
			writeError(w, http.StatusServiceUnavailable, "sampling failed")
			return
		}
		readings = append(readings, reading)
	}
	writeJSON(w, http.StatusCreated, readings)
}

// handleListReadings returns the most recent readings, newest first.
func (s *Server) handleListReadings(w http.ResponseWriter, r *http.Request) {
	limit := DefaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	rows, err := s.store.ListRecent(r.Context(), limit)
	if err != nil {
		s.log.Error("list readings failed", "err", err)
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// handleDeleteReadings drops all stored readings. Requires authorization;
// motor state survives so accumulators do not reset.
func (s *Server) handleDeleteReadings(w http.ResponseWriter, r *http.Request) {
	if s.auth == nil || !s.auth(r) {
		writeError(w, http.StatusForbidden, "not authorized")
		return
	}
	n, err := s.store.DeleteAll(r.Context())
	if err != nil {
		if errors.Is(err, store.ErrUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "store unavailable")
			return
		}
		s.log.Error("delete readings failed", "err", err)
		writeError(w, http.StatusInternalServerError, "delete failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"subscribers": s.hub.SubscriberCount(),
		"machines":    s.runner.Health(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
