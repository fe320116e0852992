// filepath: internal/dispatch/responses.go
package dispatch

import (
	"encoding/json"
	"net/http"

	"sqlgrid/internal/grid"
)

// ErrorResponse is a standard format for API error messages.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse is a standard format for simple API messages.
type MessageResponse struct {
	Message string `json:"message"`
}

// ValidationResponse carries the field-keyed error map of a rejected payload.
type ValidationResponse struct {
	Error  string            `json:"error"`
	Errors map[string]string `json:"errors"`
}

// FetchResponse is the structured answer to a fetch action.
type FetchResponse struct {
	Rows      []map[string]interface{} `json:"rows"`
	Columns   []grid.Column            `json:"columns"`
	Page      int                      `json:"page"`
	PageCount int                      `json:"page_count"`
	Total     int64                    `json:"total"`
	Summary   map[string]interface{}   `json:"summary,omitempty"`
}

// Option is one entry of a relation select widget.
type Option struct {
	Value interface{} `json:"value"`
	Label interface{} `json:"label"`
}

// ReadResponse answers a read action: the raw row plus the relation options
// needed to render the edit form.
type ReadResponse struct {
	Row     map[string]interface{} `json:"row"`
	Fields  []grid.Field           `json:"fields,omitempty"`
	Options map[string][]Option    `json:"options,omitempty"`
}

// RowResponse wraps a single written row.
type RowResponse struct {
	Row map[string]interface{} `json:"row"`
}

// UploadResponse is the stored-file reference returned by an upload.
type UploadResponse struct {
	Ref      string `json:"ref"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type,omitempty"`
}

// respondWithError sends a JSON error response.
func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, ErrorResponse{Error: message})
}

// respondWithJSON sends a JSON response.
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, `{"error":"Failed to marshal JSON response"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
