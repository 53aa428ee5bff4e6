// Package api provides the HTTP surface for simulation jobs: creation,
// status polling, and a health probe. All responses use a uniform envelope
// so clients can branch on a single success flag.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/talgya/echelon/internal/config"
	"github.com/talgya/echelon/internal/jobs"
	"github.com/talgya/echelon/internal/store"
)

// Server serves the job API over HTTP.
type Server struct {
	manager *jobs.Manager
	cfg     config.Server
}

// NewServer wires the API around a jobs manager.
func NewServer(manager *jobs.Manager, cfg config.Server) *Server {
	return &Server{manager: manager, cfg: cfg}
}

// Handler builds the routing table. Creation is rate limited per IP; reads
// are not.
func (s *Server) Handler() http.Handler {
	createLimiter := NewRateLimiter(s.cfg.CreatePerHour, time.Hour)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/simulations", rateLimitMiddleware(createLimiter, s.handleCreate))
	mux.HandleFunc("GET /api/v1/simulations/{id}", s.handleStatus)
	mux.HandleFunc("GET /api/v1/health", s.handleHealth)

	return s.corsMiddleware(mux)
}

// NewHTTPServer returns a configured http.Server; the caller owns its
// lifecycle so shutdown can be coordinated with the jobs manager.
func (s *Server) NewHTTPServer() *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req jobs.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "request body must be valid JSON")
		return
	}

	rec, err := s.manager.Create(req)
	if err != nil {
		var verr *jobs.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr.Error())
			return
		}
		slog.Error("job creation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not create simulation")
		return
	}

	writeData(w, http.StatusAccepted, map[string]any{
		"simulationId": rec.ID,
		"status":       rec.Status,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	rec, err := s.manager.Get(id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no simulation with that id")
		return
	}
	if err != nil {
		slog.Error("status read failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "could not read simulation")
		return
	}

	writeData(w, http.StatusOK, rec)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, map[string]string{"status": "ok"})
}

// corsMiddleware allows configured frontend origins plus localhost dev
// servers.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	allowed := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	for _, origin := range s.cfg.CORSOrigins {
		if origin != "" {
			allowed[origin] = true
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowed[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type envelope struct {
	Success bool          `json:"success"`
	Data    any           `json:"data,omitempty"`
	Error   *envelopeBody `json:"error,omitempty"`
}

type envelopeBody struct {
	Message string `json:"message"`
}

func writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{Success: false, Error: &envelopeBody{Message: msg}})
}
