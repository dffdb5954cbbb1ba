// Package server exposes the verification engine over a small JSON API for
// GUI and reporting clients.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/pharmscope/license-verify/internal/config"
	"github.com/pharmscope/license-verify/internal/model"
	"github.com/pharmscope/license-verify/internal/store"
	"github.com/pharmscope/license-verify/internal/verify"
)

// Server serves the read-side API. All endpoints are stateless; the dataset
// triple arrives as query parameters on every call.
type Server struct {
	engine *verify.Engine
	cfg    config.ServerConfig
}

func New(engine *verify.Engine, cfg config.ServerConfig) *Server {
	return &Server{engine: engine, cfg: cfg}
}

// Router builds the HTTP routing table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/matrix", s.handleMatrix)
		r.Get("/results", s.handleResults)
		r.Get("/warnings", s.handleWarnings)
		r.Post("/score", s.handleScore)
	})

	return r
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("http server listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return eris.Wrap(err, "server: listen")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return eris.Wrap(err, "server: shutdown")
	}
	zap.L().Info("http server stopped")
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMatrix(w http.ResponseWriter, r *http.Request) {
	triple, ok := tripleFromQuery(w, r)
	if !ok {
		return
	}
	matrix, err := s.engine.Matrix(r.Context(), triple)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, matrix)
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	triple, ok := tripleFromQuery(w, r)
	if !ok {
		return
	}
	rows, err := s.engine.Comprehensive(r.Context(), triple)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rows": rows})
}

func (s *Server) handleWarnings(w http.ResponseWriter, r *http.Request) {
	triple, ok := tripleFromQuery(w, r)
	if !ok {
		return
	}
	warnings, err := s.engine.CheckConsistency(r.Context(), triple)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"warnings": warnings})
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	var req model.DatasetTriple
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.PharmaciesTag == "" || req.StatesTag == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "pharmacies_tag and states_tag are required"})
		return
	}

	report, err := s.engine.EnsureScored(r.Context(), req.PharmaciesTag, req.StatesTag)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func tripleFromQuery(w http.ResponseWriter, r *http.Request) (model.DatasetTriple, bool) {
	q := r.URL.Query()
	triple := model.DatasetTriple{
		PharmaciesTag: q.Get("pharmacies_tag"),
		StatesTag:     q.Get("states_tag"),
		ValidatedTag:  q.Get("validated_tag"),
	}
	if triple.PharmaciesTag == "" || triple.StatesTag == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "pharmacies_tag and states_tag are required"})
		return triple, false
	}
	return triple, true
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if eris.Is(err, store.ErrDatasetNotFound) {
		status = http.StatusNotFound
	}
	zap.L().Warn("request failed", zap.Int("status", status), zap.Error(err))
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("encode response", zap.Error(err))
	}
}
