// Package server exposes the medal-table service as a JSON HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/medalfm/medalfm/internal/ranking"
)

// RankingService is the core the HTTP layer is a shell around.
type RankingService interface {
	MedalTable(ctx context.Context, user string, typ ranking.RankingType) (*ranking.Payload, error)
}

type Server struct {
	svc     RankingService
	log     *slog.Logger
	timeout time.Duration
	router  *mux.Router
}

// New builds the router. timeout bounds each request's pipeline run; zero
// means no deadline.
func New(svc RankingService, log *slog.Logger, timeout time.Duration) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{svc: svc, log: log, timeout: timeout}

	r := mux.NewRouter()
	r.Use(s.corsMiddleware)
	r.Use(s.loggingMiddleware)
	r.HandleFunc("/api/ranking", s.handleRanking).Methods(http.MethodGet, http.MethodOptions)
	s.router = r

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleRanking(w http.ResponseWriter, r *http.Request) {
	typ, err := ranking.ParseRankingType(r.URL.Query().Get("type"))
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	user := r.URL.Query().Get("user")

	ctx := r.Context()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	payload, err := s.svc.MedalTable(ctx, user, typ)
	if err != nil {
		switch {
		case errors.Is(err, ranking.ErrInvalidRequest):
			respondJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		case errors.Is(err, ranking.ErrUserNotFound):
			respondJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
		default:
			// Don't leak pipeline internals to clients.
			s.log.Error("medal table failed", "user", user, "type", typ, "err", err)
			respondJSON(w, http.StatusInternalServerError,
				errorResponse{Error: "an unexpected error occurred"})
		}
		return
	}

	respondJSON(w, http.StatusOK, payload)
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
