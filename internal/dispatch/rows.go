// filepath: internal/dispatch/rows.go
package dispatch

import (
	"database/sql"
)

// scanRows reads every row into a generic column->value map. []byte values
// become strings so they serialize as JSON text instead of base64.
func scanRows(rows *sql.Rows) ([]map[string]interface{}, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	out := make([]map[string]interface{}, 0)
	for rows.Next() {
		values := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make(map[string]interface{}, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// queryRows runs a statement and scans all result rows.
func (d *Dispatcher) queryRows(sqlText string, args []interface{}) ([]map[string]interface{}, error) {
	rows, err := d.Conn.DB.Query(sqlText, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRows(rows)
}

// queryRow runs a statement expected to produce exactly one row.
func (d *Dispatcher) queryRow(sqlText string, args []interface{}) (map[string]interface{}, error) {
	rows, err := d.queryRows(sqlText, args)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows[0], nil
}
