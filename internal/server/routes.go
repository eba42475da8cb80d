package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket route (job update stream)
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// API routes - Migrations
	mux.HandleFunc("/api/migrations", s.handleMigrationsRoute)  // POST (submit), GET (list)
	mux.HandleFunc("/api/migrations/", s.handleMigrationRoutes) // GET /{id}, POST /{id}/{action}

	// API routes - System
	mux.HandleFunc("/api/status", s.app.StatusHandler.GetStatusHandler)
	mux.HandleFunc("/api/health", s.app.StatusHandler.HealthHandler)
	mux.HandleFunc("/api/version", s.app.StatusHandler.VersionHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.StatusHandler.NotFoundHandler)

	return mux
}

// handleMigrationsRoute routes /api/migrations requests (submit and list)
func (s *Server) handleMigrationsRoute(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "POST":
		s.app.MigrationHandler.SubmitHandler(w, r)
	case "GET":
		s.app.StatusHandler.ListJobsHandler(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleMigrationRoutes routes /api/migrations/{id} requests
func (s *Server) handleMigrationRoutes(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/migrations/")
	if path == "" {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	// POST /api/migrations/{id}/pause|resume|cancel
	if r.Method == "POST" && strings.Contains(path, "/") {
		s.app.MigrationHandler.ControlHandler(w, r)
		return
	}

	// GET /api/migrations/{id}
	if r.Method == "GET" && !strings.Contains(path, "/") {
		s.app.StatusHandler.GetJobHandler(w, r)
		return
	}

	http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
}
