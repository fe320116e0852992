// filepath: internal/render/render.go
// Package render emits the initial grid markup plus the companion script
// that replays pagination, sorting and edits through the dispatcher. The
// serialized configuration travels inside the page as a signed token, so
// the client can post it back with every action request.
package render

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"

	"sqlgrid/internal/grid"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Renderer renders grids from the embedded templates.
type Renderer struct {
	tpl *template.Template
}

// New parses the embedded templates.
func New() (*Renderer, error) {
	tpl, err := template.ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse grid templates: %w", err)
	}
	return &Renderer{tpl: tpl}, nil
}

// PageData is everything the grid template needs for the initial render.
type PageData struct {
	Name       string
	PrimaryKey string
	Columns    []grid.Column // visible columns only
	Rows       []map[string]interface{}
	Page       int
	PageCount  int
	Total      int64
	Actions    grid.Actions

	// ClientConfig is the JSON bundle the companion script consumes.
	ClientConfig template.JS
}

// clientConfig is the public configuration embedded for the client runtime.
// Token carries the full signed config; the rest is convenience metadata so
// the script does not need to decode the token.
type clientConfig struct {
	Name      string        `json:"name"`
	Table     string        `json:"table"`
	Marker    string        `json:"marker"`
	ActionURL string        `json:"action_url"`
	Columns   []grid.Column `json:"columns"`
	PageSize  int           `json:"page_size"`
	Actions   grid.Actions  `json:"actions"`
	Token     string        `json:"token"`
}

// NewPageData assembles template data for one rendered grid page.
// marker is the dispatcher's action-request parameter name.
func NewPageData(name string, cfg *grid.Config, token, actionURL, marker string,
	rows []map[string]interface{}, page, pageCount int, total int64) (PageData, error) {

	visible := make([]grid.Column, 0, len(cfg.Columns))
	for _, col := range cfg.Columns {
		if !col.Hidden {
			visible = append(visible, col)
		}
	}

	bundle, err := json.Marshal(clientConfig{
		Name:      name,
		Table:     cfg.Table,
		Marker:    marker,
		ActionURL: actionURL,
		Columns:   visible,
		PageSize:  cfg.PageSize,
		Actions:   cfg.Actions,
		Token:     token,
	})
	if err != nil {
		return PageData{}, fmt.Errorf("failed to marshal client config: %w", err)
	}

	return PageData{
		Name:         name,
		PrimaryKey:   cfg.PrimaryKey,
		Columns:      visible,
		Rows:         rows,
		Page:         page,
		PageCount:    pageCount,
		Total:        total,
		Actions:      cfg.Actions,
		ClientConfig: template.JS(bundle),
	}, nil
}

// Grid writes the grid markup and companion script.
func (r *Renderer) Grid(w io.Writer, data PageData) error {
	return r.tpl.ExecuteTemplate(w, "grid", data)
}
