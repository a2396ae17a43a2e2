package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"schooldir/cmd"
	"schooldir/internal/store"
)

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Port  int
	Store *store.Store
}

// NewRouter builds the read-only JSON API
func NewRouter(config ServerConfig) chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	apiHandler := &APIHandler{Store: config.Store}
	r.Route("/api", func(r chi.Router) {
		r.Get("/schools", apiHandler.ListSchools)
		r.Get("/schools/{id}", apiHandler.GetSchool)
		r.Get("/search", apiHandler.Search)
		r.Get("/runs", apiHandler.ListRuns)
		r.Get("/runs/latest", apiHandler.LatestRun)
	})

	return r
}

// StartServer initializes and starts the HTTP server
func StartServer(config ServerConfig) error {
	addr := fmt.Sprintf(":%d", config.Port)
	slog.Info("Starting server", "addr", addr)
	fmt.Printf("Listening on http://localhost%s\n", addr)
	return http.ListenAndServe(addr, NewRouter(config))
}

func startServer(db cmd.DBInterface, port int) error {
	adapter, ok := db.(*dbAdapter)
	if !ok {
		return fmt.Errorf("unsupported database type %T", db)
	}
	return StartServer(ServerConfig{Port: port, Store: adapter.store})
}
