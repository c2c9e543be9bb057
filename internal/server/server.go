// Package server exposes the ingestion pipeline and store over HTTP.
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
	"go.uber.org/zap"

	"github.com/sells-group/prodsheet/internal/config"
	"github.com/sells-group/prodsheet/internal/model"
	"github.com/sells-group/prodsheet/internal/store"
)

// SheetParser is implemented by the ingestion pipeline.
type SheetParser interface {
	Parse(ctx context.Context, path, filename string) ([]model.ProductionItem, error)
}

// Server wires the HTTP surface to the pipeline and store. Both are passed
// in explicitly; the server owns neither lifecycle.
type Server struct {
	store  store.Store
	parser SheetParser
	upload config.UploadConfig
	router chi.Router
}

// New constructs the server with routing and CORS configured.
func New(st store.Store, parser SheetParser, serverCfg config.ServerConfig, uploadCfg config.UploadConfig) *Server {
	s := &Server{
		store:  st,
		parser: parser,
		upload: uploadCfg,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   serverCfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/upload", s.handleUpload)
		r.Route("/production-items", func(r chi.Router) {
			r.Get("/", s.handleList)
			r.Get("/stats", s.handleStats)
			r.Get("/{id}", s.handleGet)
			r.Delete("/{id}", s.handleDelete)
		})
	})

	s.router = r
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbStatus := "connected"
	if err := s.store.Ping(r.Context()); err != nil {
		dbStatus = "error"
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"database":  dbStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zap.L().Warn("server: write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, format string, args ...any) {
	writeJSON(w, status, map[string]string{"error": fmt.Sprintf(format, args...)})
}
