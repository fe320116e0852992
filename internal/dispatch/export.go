// filepath: internal/dispatch/export.go
package dispatch

import (
	"encoding/csv"
	"fmt"
	"net/http"

	"sqlgrid/internal/grid"
	"sqlgrid/internal/logging"
)

// export streams the filtered, unpaginated result set as a download.
// The "excel" variant ships the same CSV body under the legacy Excel
// content type, which Excel opens directly thanks to the UTF-8 BOM.
func (d *Dispatcher) export(w http.ResponseWriter, r *http.Request, req *actionRequest) {
	p := fetchParams(r, req.cfg)
	p.Page = 1
	p.PageSize = grid.PageSizeAll

	selectSQL, selectArgs, err := req.asm.Select(p)
	if err != nil {
		d.respondError(w, req.action, err)
		return
	}
	rows, err := d.queryRows(selectSQL, selectArgs)
	if err != nil {
		logging.Log.Errorf("Export query failed: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Operation failed.")
		return
	}

	filename := req.cfg.Table + ".csv"
	contentType := "text/csv; charset=utf-8"
	if req.action == grid.ActionExportExcel {
		filename = req.cfg.Table + ".xls"
		contentType = "application/vnd.ms-excel"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)

	// BOM for Excel compatibility
	w.Write([]byte{0xEF, 0xBB, 0xBF})

	if err := writeCSV(w, req.cfg, rows); err != nil {
		// headers are already out; all we can do is log
		logging.Log.Errorf("Export write failed: %v", err)
	}
	req.transition(StateResponding)
}

// writeCSV renders the visible columns with their titles as the header row.
func writeCSV(w http.ResponseWriter, cfg *grid.Config, rows []map[string]interface{}) error {
	csvWriter := csv.NewWriter(w)
	defer csvWriter.Flush()

	header := make([]string, 0, len(cfg.Columns))
	names := make([]string, 0, len(cfg.Columns))
	for _, col := range cfg.Columns {
		if col.Hidden {
			continue
		}
		title := col.Title
		if title == "" {
			title = col.Name
		}
		header = append(header, title)
		names = append(names, col.Name)
	}
	if err := csvWriter.Write(header); err != nil {
		return err
	}

	for _, row := range rows {
		record := make([]string, 0, len(names))
		for _, name := range names {
			val := row[name]
			if val == nil {
				record = append(record, "")
				continue
			}
			record = append(record, fmt.Sprintf("%v", val))
		}
		if err := csvWriter.Write(record); err != nil {
			return err
		}
	}
	return nil
}
