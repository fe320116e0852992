// filepath: internal/httpserver/handlers.go
package httpserver

import (
	"fmt"
	"net/http"

	"sqlgrid/internal/config"
	"sqlgrid/internal/dispatch"
	"sqlgrid/internal/grid"
	"sqlgrid/internal/logging"
	"sqlgrid/internal/query"
	"sqlgrid/internal/render"

	"github.com/gorilla/mux"
)

// Handlers holds the shared dependencies for the HTTP endpoints: the
// registered grid definitions, the action dispatcher and the page renderer.
type Handlers struct {
	Grids      map[string]*grid.Config
	Dispatcher *dispatch.Dispatcher
	Renderer   *render.Renderer
	Cfg        *config.Config
}

// NewHandlers creates a new instance of Handlers with its dependencies.
func NewHandlers(grids map[string]*grid.Config, d *dispatch.Dispatcher, rnd *render.Renderer, cfg *config.Config) *Handlers {
	return &Handlers{
		Grids:      grids,
		Dispatcher: d,
		Renderer:   rnd,
		Cfg:        cfg,
	}
}

// HealthCheck is a simple public endpoint to confirm the server is running.
// @Summary Health check
// @Description Returns OK when the server is up.
// @Tags system
// @Produce plain
// @Success 200 {string} string "OK"
// @Router /health [get]
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

// GridPage renders the HTML table for a registered grid, preloaded with its
// first page of rows. The signed config token embedded in the page is what
// the client posts back on every subsequent action request.
// @Summary Render a grid page
// @Description Returns the HTML markup for the named grid with its first page of rows.
// @Tags grid
// @Produce html
// @Param name path string true "Grid name"
// @Success 200 {string} string "HTML page"
// @Failure 404 {object} dispatch.ErrorResponse "Unknown grid"
// @Failure 500 {object} dispatch.ErrorResponse "Server error"
// @Security BasicAuth
// @Router /grid/{name} [get]
func (h *Handlers) GridPage(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	cfg, ok := h.Grids[name]
	if !ok {
		respondWithError(w, http.StatusNotFound, fmt.Sprintf("Unknown grid: %s", name))
		return
	}

	token, err := grid.SignConfig(cfg, h.Cfg.Auth.Secret)
	if err != nil {
		logging.Log.Errorf("GridPage: signing config for '%s' failed: %v", name, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to prepare grid.")
		return
	}

	resp, err := h.Dispatcher.FetchPage(cfg, query.FetchParams{Page: 1})
	if err != nil {
		logging.Log.Errorf("GridPage: initial fetch for '%s' failed: %v", name, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to load grid data.")
		return
	}

	actionURL := fmt.Sprintf("/grid/%s/action", name)
	data, err := render.NewPageData(name, cfg, token, actionURL, dispatch.MarkerParam,
		resp.Rows, resp.Page, resp.PageCount, resp.Total)
	if err != nil {
		logging.Log.Errorf("GridPage: building page data for '%s' failed: %v", name, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to render grid.")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.Renderer.Grid(w, data); err != nil {
		// Headers are already sent. Log and let the client see the truncation.
		logging.Log.Errorf("GridPage: rendering '%s' failed: %v", name, err)
	}
}

// GridAction handles the synchronization requests posted back by a rendered
// grid: fetch, read, create, update, delete, duplicate, upload and export.
// @Summary Execute a grid action
// @Description Verifies the posted config token and runs the requested action against the database.
// @Tags grid
// @Accept x-www-form-urlencoded
// @Produce json
// @Param name path string true "Grid name"
// @Param sqlgrid formData string true "Action name"
// @Param config formData string true "Signed grid config token"
// @Success 200 {object} dispatch.FetchResponse
// @Failure 400 {object} dispatch.ErrorResponse "Malformed or tampered request"
// @Failure 403 {object} dispatch.ErrorResponse "Action disabled"
// @Failure 404 {object} dispatch.ErrorResponse "Row or grid not found"
// @Failure 422 {object} dispatch.ValidationResponse "Validation failed"
// @Security BasicAuth
// @Router /grid/{name}/action [post]
func (h *Handlers) GridAction(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if _, ok := h.Grids[name]; !ok {
		respondWithError(w, http.StatusNotFound, fmt.Sprintf("Unknown grid: %s", name))
		return
	}
	if !h.Dispatcher.IsActionRequest(r) {
		respondWithError(w, http.StatusBadRequest, "Not a grid action request.")
		return
	}
	h.Dispatcher.Handle(w, r)
}
