// filepath: internal/dispatch/dispatcher.go
// Package dispatch routes asynchronous grid action requests. Each request
// rehydrates a grid configuration from the signed token the client posts
// back, re-runs the query assembler against it, and answers with structured
// JSON (or a file download for exports). No server-side session state exists
// between requests.
package dispatch

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"sqlgrid/internal/db"
	"sqlgrid/internal/grid"
	"sqlgrid/internal/logging"
	"sqlgrid/internal/query"
)

// MarkerParam flags a request as a grid action request.
const MarkerParam = "sqlgrid"

// parameters with dispatcher meaning; everything else is payload
var reservedParams = map[string]bool{
	MarkerParam: true,
	"action":    true, "table": true, "id": true, "config": true,
	"page": true, "page_size": true, "search": true,
	"order_by": true, "order_dir": true, "data": true,
}

// Dispatcher executes grid actions against the shared database handle.
type Dispatcher struct {
	Conn           *db.Conn
	Secret         string
	Hooks          *grid.HookRegistry
	Store          FileStore
	MaxUploadBytes int64
}

// FileStore is the subset of the storage layer the upload action needs.
type FileStore interface {
	Save(data io.Reader, originalName string) (ref string, size int64, err error)
}

// NewDispatcher wires a dispatcher. store may be nil when uploads are not
// served.
func NewDispatcher(conn *db.Conn, secret string, hooks *grid.HookRegistry, store FileStore, maxUploadBytes int64) *Dispatcher {
	if hooks == nil {
		hooks = grid.NewHookRegistry()
	}
	return &Dispatcher{
		Conn:           conn,
		Secret:         secret,
		Hooks:          hooks,
		Store:          store,
		MaxUploadBytes: maxUploadBytes,
	}
}

// IsActionRequest detects the marker parameter in query or body.
func (d *Dispatcher) IsActionRequest(r *http.Request) bool {
	d.parseForm(r)
	return r.FormValue(MarkerParam) != ""
}

// parseForm parses a multipart body with the configured memory cap. It must
// run before the first FormValue call, which would otherwise parse with the
// stdlib default. Parsing twice is harmless.
func (d *Dispatcher) parseForm(r *http.Request) error {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return nil
	}
	maxMemory := d.MaxUploadBytes
	if maxMemory <= 0 {
		maxMemory = 8 << 20
	}
	return r.ParseMultipartForm(maxMemory)
}

// actionRequest is the per-request dispatcher state. It lives for exactly
// one HTTP call.
type actionRequest struct {
	state  State
	action string
	cfg    *grid.Config
	asm    *query.Assembler
}

func (a *actionRequest) transition(next State) {
	logging.Log.Debugf("dispatch: %s -> %s (action=%s)", a.state, next, a.action)
	a.state = next
}

// Handle runs the full dispatch cycle: detect, validate, execute, respond.
func (d *Dispatcher) Handle(w http.ResponseWriter, r *http.Request) {
	req := &actionRequest{state: StateIdle}

	if err := d.parseForm(r); err != nil {
		logging.Log.Warnf("Failed to parse multipart form: %v", err)
		respondWithError(w, http.StatusBadRequest, "Failed to parse multipart form.")
		return
	}

	req.action = r.FormValue("action")
	if req.action == "" {
		respondWithError(w, http.StatusBadRequest, "Missing required parameter: action")
		return
	}

	// --- Validating ---
	req.transition(StateValidating)

	cfg, err := grid.VerifyConfig(r.FormValue("config"), d.Secret)
	if err != nil {
		logging.Log.Warnf("Rejected config token: %v", err)
		respondWithError(w, http.StatusBadRequest, "Invalid or missing grid configuration.")
		return
	}
	req.cfg = cfg
	req.asm = query.NewAssembler(cfg, d.Conn.Builder)

	if table := r.FormValue("table"); table != "" && table != cfg.Table {
		respondWithError(w, http.StatusBadRequest, "Table does not match the grid configuration.")
		return
	}

	if !knownAction(req.action) {
		respondWithError(w, http.StatusBadRequest,
			fmt.Sprintf("%s: %s", ErrNotSupported.Error(), req.action))
		return
	}
	if !cfg.ActionEnabled(req.action) {
		// authorization-style rejection, nothing executed
		respondWithError(w, http.StatusForbidden,
			fmt.Sprintf("%s: %s", ErrDisabled.Error(), req.action))
		return
	}

	// --- Executing ---
	req.transition(StateExecuting)

	switch req.action {
	case grid.ActionExportCSV, grid.ActionExportExcel:
		// exports stream the response themselves
		d.export(w, r, req)
		return
	case grid.ActionUpload:
		d.upload(w, r, req)
		return
	}

	status, payload, errs, err := d.execute(r, req)

	// --- Responding ---
	req.transition(StateResponding)

	if len(errs) > 0 {
		respondWithJSON(w, http.StatusUnprocessableEntity, ValidationResponse{
			Error:  ErrValidation.Error(),
			Errors: errs,
		})
		return
	}
	if err != nil {
		d.respondError(w, req.action, err)
		return
	}
	respondWithJSON(w, status, payload)
}

// execute routes to the action implementation.
func (d *Dispatcher) execute(r *http.Request, req *actionRequest) (int, interface{}, map[string]string, error) {
	switch req.action {
	case grid.ActionFetch:
		payload, err := d.fetch(r, req)
		return http.StatusOK, payload, nil, err
	case grid.ActionRead:
		payload, err := d.read(r, req)
		return http.StatusOK, payload, nil, err
	case grid.ActionCreate:
		return d.create(r, req)
	case grid.ActionUpdate:
		return d.update(r, req)
	case grid.ActionDelete:
		payload, err := d.delete(r, req)
		return http.StatusOK, payload, nil, err
	case grid.ActionDuplicate:
		return d.duplicate(r, req)
	default:
		return 0, nil, nil, ErrNotSupported
	}
}

// respondError maps dispatcher errors to HTTP answers. Database errors are
// deliberately reported as a generic operation failure.
func (d *Dispatcher) respondError(w http.ResponseWriter, action string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		respondWithError(w, http.StatusNotFound, "Row not found.")
	case errors.Is(err, ErrDisabled):
		respondWithError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, query.ErrInvalidOrder),
		errors.Is(err, query.ErrNoWritableFields),
		errors.Is(err, grid.ErrUnknownHook):
		respondWithError(w, http.StatusBadRequest, err.Error())
	default:
		logging.Log.Errorf("Action %s failed: %v", action, err)
		respondWithError(w, http.StatusInternalServerError, "Operation failed.")
	}
}

func knownAction(action string) bool {
	switch action {
	case grid.ActionFetch, grid.ActionRead, grid.ActionCreate, grid.ActionUpdate,
		grid.ActionDelete, grid.ActionDuplicate, grid.ActionUpload,
		grid.ActionExportCSV, grid.ActionExportExcel:
		return true
	}
	return false
}

// fetchParams reads pagination, search and ordering from the request.
// A page_size of "all" bypasses the limit.
func fetchParams(r *http.Request, cfg *grid.Config) query.FetchParams {
	p := query.FetchParams{Page: 1}
	if v, err := strconv.Atoi(r.FormValue("page")); err == nil && v > 0 {
		p.Page = v
	}
	switch sizeStr := strings.ToLower(r.FormValue("page_size")); {
	case sizeStr == "all":
		p.PageSize = grid.PageSizeAll
	case sizeStr != "":
		if v, err := strconv.Atoi(sizeStr); err == nil && v > 0 {
			p.PageSize = v
		}
	}
	p.Search = r.FormValue("search")
	p.OrderColumn = r.FormValue("order_by")
	p.OrderDir = r.FormValue("order_dir")
	return p
}

// payloadValues extracts field values from a JSON "data" parameter or, when
// absent, from the remaining form parameters.
func payloadValues(r *http.Request) (map[string]interface{}, error) {
	if data := r.FormValue("data"); data != "" {
		values := map[string]interface{}{}
		if err := json.Unmarshal([]byte(data), &values); err != nil {
			return nil, fmt.Errorf("invalid data payload: %w", err)
		}
		return values, nil
	}

	values := map[string]interface{}{}
	for key, vals := range r.Form {
		if reservedParams[key] || len(vals) == 0 {
			continue
		}
		values[key] = vals[0]
	}
	return values, nil
}
