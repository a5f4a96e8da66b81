package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/leoapplecool/discord-x-housing-bridge/usecases/bridge"
)

// StatusHTTPHandler serves a small read-only surface for health checks and
// operator dashboards.
type StatusHTTPHandler struct {
	engine *bridge.Engine
	server *http.Server
}

func NewStatusHTTPHandler(engine *bridge.Engine, port string) *StatusHTTPHandler {
	h := &StatusHTTPHandler{engine: engine}

	router := mux.NewRouter()
	router.HandleFunc("/health", h.handleHealth).Methods("GET")
	router.HandleFunc("/api/status", h.handleStatus).Methods("GET")

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	})

	h.server = &http.Server{
		Addr:              ":" + port,
		Handler:           c.Handler(router),
		ReadHeaderTimeout: 30 * time.Second,
	}
	return h
}

// Start runs the listener in the background; server errors other than a
// graceful close are logged, never fatal.
func (h *StatusHTTPHandler) Start() {
	go func() {
		log.Printf("✅ Status server listening on http://localhost%s", h.server.Addr)
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("❌ Status server error: %v", err)
		}
	}()
}

func (h *StatusHTTPHandler) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.server.Shutdown(ctx); err != nil {
		log.Printf("❌ Status server shutdown error: %v", err)
	}
}

func (h *StatusHTTPHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(`{"status":"ok"}`)); err != nil {
		log.Printf("❌ Failed to write health check response: %v", err)
	}
}

func (h *StatusHTTPHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := h.engine.Status(r.Context())

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(status); err != nil {
		log.Printf("❌ Failed to write status response: %v", err)
	}
}
