// filepath: internal/dispatch/actions.go
package dispatch

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"sqlgrid/internal/grid"
	"sqlgrid/internal/logging"
	"sqlgrid/internal/query"
	"sqlgrid/internal/validate"
)

// fetch answers one grid page: rows, counts and summary aggregates.
func (d *Dispatcher) fetch(r *http.Request, req *actionRequest) (*FetchResponse, error) {
	return d.FetchPage(req.cfg, fetchParams(r, req.cfg))
}

// FetchPage runs the count, select and summary queries for one page. The
// initial page render and the fetch action both go through here, so
// rehydrating the config and re-running a fetch reproduces the rendered
// row set and ordering exactly.
func (d *Dispatcher) FetchPage(cfg *grid.Config, p query.FetchParams) (*FetchResponse, error) {
	asm := query.NewAssembler(cfg, d.Conn.Builder)

	countSQL, countArgs, err := asm.Count(p)
	if err != nil {
		return nil, err
	}
	var total int64
	if err := d.Conn.DB.QueryRow(countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count query: %w", err)
	}

	selectSQL, selectArgs, err := asm.Select(p)
	if err != nil {
		return nil, err
	}
	logging.Log.Debugf("Generated SQL for fetch: %s", selectSQL)
	rows, err := d.queryRows(selectSQL, selectArgs)
	if err != nil {
		return nil, fmt.Errorf("fetch query: %w", err)
	}

	if len(cfg.Conditions) > 0 {
		for _, row := range rows {
			row["_actions"] = rowActions(cfg, row)
			for key := range row {
				if query.IsCondAlias(key) {
					delete(row, key)
				}
			}
		}
	}

	size := p.EffectivePageSize(cfg)
	pageCount := 1
	page := p.Page
	if page < 1 {
		page = 1
	}
	if size != grid.PageSizeAll {
		pageCount = int(math.Ceil(float64(total) / float64(size)))
		if pageCount < 1 {
			pageCount = 1
		}
	} else {
		page = 1
	}

	resp := &FetchResponse{
		Rows:      rows,
		Columns:   cfg.Columns,
		Page:      page,
		PageCount: pageCount,
		Total:     total,
	}

	summarySQL, summaryArgs, err := asm.Summary(p)
	if err != nil {
		return nil, err
	}
	if summarySQL != "" {
		summary, err := d.queryRow(summarySQL, summaryArgs)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("summary query: %w", err)
		}
		resp.Summary = summary
	}
	return resp, nil
}

// read answers the edit-form request: the raw row plus relation options.
func (d *Dispatcher) read(r *http.Request, req *actionRequest) (*ReadResponse, error) {
	id := r.FormValue("id")
	if id == "" {
		return nil, fmt.Errorf("%w: missing id", ErrNotFound)
	}

	rowSQL, rowArgs, err := req.asm.SelectRow(id)
	if err != nil {
		return nil, err
	}
	row, err := d.queryRow(rowSQL, rowArgs)
	if err != nil {
		return nil, err
	}

	resp := &ReadResponse{Row: row, Fields: req.cfg.Fields}
	for _, rel := range req.cfg.Relations {
		optSQL, optArgs, err := req.asm.RelationOptions(rel)
		if err != nil {
			return nil, err
		}
		optRows, err := d.queryRows(optSQL, optArgs)
		if err != nil {
			return nil, fmt.Errorf("relation options query: %w", err)
		}
		opts := make([]Option, 0, len(optRows))
		for _, o := range optRows {
			opts = append(opts, Option{Value: o[rel.Key], Label: o[rel.Label]})
		}
		if resp.Options == nil {
			resp.Options = map[string][]Option{}
		}
		resp.Options[rel.Field] = opts
	}
	return resp, nil
}

// create validates the payload, runs the lifecycle hooks and inserts a row.
func (d *Dispatcher) create(r *http.Request, req *actionRequest) (int, interface{}, map[string]string, error) {
	values, err := payloadValues(r)
	if err != nil {
		return 0, nil, nil, err
	}

	errs := validate.Row(req.cfg.Rules, values, false)
	d.checkUnique(req, values, nil, errs)
	if len(errs) > 0 {
		return 0, nil, errs, nil
	}

	if err := d.Hooks.Run(r.Context(), req.cfg.Hooks.BeforeCreate, values); err != nil {
		return 0, nil, nil, err
	}

	id, err := d.insertRow(req, values)
	if err != nil {
		return 0, nil, nil, err
	}
	values[req.cfg.PrimaryKey] = id
	if err := d.Hooks.Run(r.Context(), req.cfg.Hooks.AfterCreate, values); err != nil {
		return 0, nil, nil, err
	}

	row, err := d.loadRow(req, id)
	if err != nil {
		return 0, nil, nil, err
	}
	return http.StatusCreated, RowResponse{Row: row}, nil, nil
}

// update validates the payload against the current row, honors row-level
// conditions and writes the changes.
func (d *Dispatcher) update(r *http.Request, req *actionRequest) (int, interface{}, map[string]string, error) {
	id := r.FormValue("id")
	if id == "" {
		return 0, nil, nil, fmt.Errorf("%w: missing id", ErrNotFound)
	}
	row, err := d.loadRow(req, id)
	if err != nil {
		return 0, nil, nil, err
	}
	if !rowActionAllowed(req.cfg, grid.ActionUpdate, row) {
		return 0, nil, nil, fmt.Errorf("%w for this row: %s", ErrDisabled, grid.ActionUpdate)
	}

	values, err := payloadValues(r)
	if err != nil {
		return 0, nil, nil, err
	}
	errs := validate.Row(req.cfg.Rules, values, true)
	d.checkUnique(req, values, id, errs)
	if len(errs) > 0 {
		return 0, nil, errs, nil
	}

	if err := d.Hooks.Run(r.Context(), req.cfg.Hooks.BeforeUpdate, values); err != nil {
		return 0, nil, nil, err
	}

	updateSQL, updateArgs, err := req.asm.Update(id, values)
	if err != nil {
		return 0, nil, nil, err
	}
	if _, err := d.Conn.DB.Exec(updateSQL, updateArgs...); err != nil {
		return 0, nil, nil, fmt.Errorf("update exec: %w", err)
	}
	if err := d.Hooks.Run(r.Context(), req.cfg.Hooks.AfterUpdate, values); err != nil {
		return 0, nil, nil, err
	}

	updated, err := d.loadRow(req, id)
	if err != nil {
		return 0, nil, nil, err
	}
	return http.StatusOK, RowResponse{Row: updated}, nil, nil
}

// delete removes one row after re-checking its row-level condition.
func (d *Dispatcher) delete(r *http.Request, req *actionRequest) (interface{}, error) {
	id := r.FormValue("id")
	if id == "" {
		return nil, fmt.Errorf("%w: missing id", ErrNotFound)
	}
	row, err := d.loadRow(req, id)
	if err != nil {
		return nil, err
	}
	if !rowActionAllowed(req.cfg, grid.ActionDelete, row) {
		return nil, fmt.Errorf("%w for this row: %s", ErrDisabled, grid.ActionDelete)
	}

	if err := d.Hooks.Run(r.Context(), req.cfg.Hooks.BeforeDelete, row); err != nil {
		return nil, err
	}
	deleteSQL, deleteArgs, err := req.asm.Delete(id)
	if err != nil {
		return nil, err
	}
	if _, err := d.Conn.DB.Exec(deleteSQL, deleteArgs...); err != nil {
		return nil, fmt.Errorf("delete exec: %w", err)
	}
	if err := d.Hooks.Run(r.Context(), req.cfg.Hooks.AfterDelete, row); err != nil {
		return nil, err
	}
	return MessageResponse{Message: "Row deleted."}, nil
}

// duplicate copies the writable fields of a row into a new insert. The copy
// runs through the same rules as a create, so a unique column rejects a
// verbatim copy.
func (d *Dispatcher) duplicate(r *http.Request, req *actionRequest) (int, interface{}, map[string]string, error) {
	id := r.FormValue("id")
	if id == "" {
		return 0, nil, nil, fmt.Errorf("%w: missing id", ErrNotFound)
	}
	row, err := d.loadRow(req, id)
	if err != nil {
		return 0, nil, nil, err
	}
	if !rowActionAllowed(req.cfg, grid.ActionDuplicate, row) {
		return 0, nil, nil, fmt.Errorf("%w for this row: %s", ErrDisabled, grid.ActionDuplicate)
	}

	values := map[string]interface{}{}
	for _, f := range req.cfg.Fields {
		if f.ReadOnly || f.Name == req.cfg.PrimaryKey {
			continue
		}
		if v, ok := row[f.Name]; ok {
			values[f.Name] = v
		}
	}

	errs := validate.Row(req.cfg.Rules, values, true)
	d.checkUnique(req, values, nil, errs)
	if len(errs) > 0 {
		return 0, nil, errs, nil
	}

	if err := d.Hooks.Run(r.Context(), req.cfg.Hooks.BeforeCreate, values); err != nil {
		return 0, nil, nil, err
	}
	newID, err := d.insertRow(req, values)
	if err != nil {
		return 0, nil, nil, err
	}
	values[req.cfg.PrimaryKey] = newID
	if err := d.Hooks.Run(r.Context(), req.cfg.Hooks.AfterCreate, values); err != nil {
		return 0, nil, nil, err
	}

	copied, err := d.loadRow(req, newID)
	if err != nil {
		return 0, nil, nil, err
	}
	return http.StatusCreated, RowResponse{Row: copied}, nil, nil
}

// insertRow executes the insert and resolves the generated primary key.
func (d *Dispatcher) insertRow(req *actionRequest, values map[string]interface{}) (interface{}, error) {
	insertSQL, insertArgs, err := req.asm.Insert(values, d.Conn.Returning())
	if err != nil {
		return nil, err
	}
	if d.Conn.Returning() {
		var id interface{}
		if err := d.Conn.DB.QueryRow(insertSQL, insertArgs...).Scan(&id); err != nil {
			return nil, fmt.Errorf("insert exec: %w", err)
		}
		return id, nil
	}
	res, err := d.Conn.DB.Exec(insertSQL, insertArgs...)
	if err != nil {
		return nil, fmt.Errorf("insert exec: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert id: %w", err)
	}
	return id, nil
}

// loadRow fetches the raw row by primary key.
func (d *Dispatcher) loadRow(req *actionRequest, id interface{}) (map[string]interface{}, error) {
	rowSQL, rowArgs, err := req.asm.SelectRow(id)
	if err != nil {
		return nil, err
	}
	return d.queryRow(rowSQL, rowArgs)
}

// checkUnique runs the database-backed "unique" rules and merges failures
// into the error map.
func (d *Dispatcher) checkUnique(req *actionRequest, values map[string]interface{}, excludeID interface{}, errs map[string]string) {
	for _, rule := range req.cfg.Rules {
		if rule.Kind != "unique" {
			continue
		}
		if _, failed := errs[rule.Field]; failed {
			continue
		}
		val, ok := values[rule.Field]
		if !ok {
			continue
		}
		countSQL, countArgs, err := req.asm.CountValue(rule.Field, val, excludeID)
		if err != nil {
			errs[rule.Field] = "could not verify uniqueness"
			continue
		}
		var n int64
		if err := d.Conn.DB.QueryRow(countSQL, countArgs...).Scan(&n); err != nil {
			logging.Log.Errorf("Unique check failed for %s: %v", rule.Field, err)
			errs[rule.Field] = "could not verify uniqueness"
			continue
		}
		if n > 0 {
			if rule.Message != "" {
				errs[rule.Field] = rule.Message
			} else {
				errs[rule.Field] = "must be unique"
			}
		}
	}
}

// rowActions lists the mutating actions permitted for one fetched row.
func rowActions(cfg *grid.Config, row map[string]interface{}) []string {
	out := make([]string, 0, 3)
	for _, action := range []string{grid.ActionUpdate, grid.ActionDelete, grid.ActionDuplicate} {
		if rowActionAllowed(cfg, action, row) {
			out = append(out, action)
		}
	}
	sort.Strings(out)
	return out
}

// rowActionAllowed applies the row-level conditions on top of the
// grid-level action flag. A matching condition overrides the flag with its
// Allow value; later conditions win over earlier ones.
func rowActionAllowed(cfg *grid.Config, action string, row map[string]interface{}) bool {
	allowed := cfg.ActionEnabled(action)
	for _, cond := range cfg.Conditions {
		if cond.Action != action {
			continue
		}
		if conditionMatches(cond, conditionValue(row, cond.Column)) {
			allowed = cond.Allow
		}
	}
	return allowed
}

// conditionValue resolves the stored value a condition compares against.
// Fetched rows carry relation labels, so it prefers the raw projection the
// assembler adds for condition columns; raw rows from SelectRow have no such
// alias and are used as-is.
func conditionValue(row map[string]interface{}, column string) interface{} {
	if v, ok := row[query.CondAlias(column)]; ok {
		return v
	}
	return row[column]
}

// conditionMatches compares a row value against a condition, numerically
// when both sides parse as numbers and as strings otherwise.
func conditionMatches(cond grid.Condition, rowValue interface{}) bool {
	af, aok := toFloat(rowValue)
	bf, bok := toFloat(cond.Value)
	if aok && bok {
		return compareFloats(af, bf, cond.Op)
	}
	return compareStrings(asString(rowValue), asString(cond.Value), cond.Op)
}

func compareFloats(a, b float64, op string) bool {
	switch strings.ToUpper(op) {
	case "=":
		return a == b
	case "!=", "<>":
		return a != b
	case ">":
		return a > b
	case ">=":
		return a >= b
	case "<":
		return a < b
	case "<=":
		return a <= b
	default:
		return false
	}
}

func compareStrings(a, b, op string) bool {
	switch strings.ToUpper(op) {
	case "=":
		return a == b
	case "!=", "<>":
		return a != b
	case ">":
		return a > b
	case ">=":
		return a >= b
	case "<":
		return a < b
	case "<=":
		return a <= b
	case "LIKE":
		return strings.Contains(strings.ToLower(a), strings.ToLower(b))
	default:
		return false
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch f := v.(type) {
	case float64:
		return f, true
	case float32:
		return float64(f), true
	case int:
		return float64(f), true
	case int64:
		return float64(f), true
	case string:
		parsed, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	case []byte:
		parsed, err := strconv.ParseFloat(string(f), 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

func asString(v interface{}) string {
	if v == nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return fmt.Sprintf("%v", v)
	}
}
