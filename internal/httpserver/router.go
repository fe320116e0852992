// filepath: internal/httpserver/router.go
package httpserver

import (
	"github.com/gorilla/mux"
	httpSwagger "github.com/swaggo/http-swagger"
)

// SetupRouter configures the main router and its sub-routers.
// It sets up the public endpoints, the grid pages and their action endpoints.
func SetupRouter(h *Handlers) *mux.Router {
	r := mux.NewRouter()

	// Public Endpoints
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.PathPrefix("/swagger/").Handler(httpSwagger.WrapHandler)

	// Grid Routes (protected by Basic Auth when enabled)
	gridRouter := r.PathPrefix("/grid").Subrouter()
	gridRouter.Use(BasicAuthMiddleware(h.Cfg.Auth))
	gridRouter.HandleFunc("/{name}", h.GridPage).Methods("GET")
	// Exports arrive as GET so the browser can download them directly.
	gridRouter.HandleFunc("/{name}/action", h.GridAction).Methods("GET", "POST")

	return r
}
