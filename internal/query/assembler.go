// filepath: internal/query/assembler.go
// Package query converts an accumulated grid configuration into
// parameterized SQL. All user-supplied values travel as bound parameters;
// identifiers are validated against the grid allow-list before they are
// spliced into statement text.
package query

import (
	"fmt"
	"sort"
	"strings"

	"sqlgrid/internal/grid"

	"github.com/Masterminds/squirrel"
)

// Assembler builds statements for one grid configuration.
type Assembler struct {
	cfg *grid.Config
	sb  squirrel.StatementBuilderType
}

// NewAssembler returns an assembler for cfg using the driver's statement
// builder. The config must already have passed Validate.
func NewAssembler(cfg *grid.Config, sb squirrel.StatementBuilderType) *Assembler {
	return &Assembler{cfg: cfg, sb: sb}
}

// FetchParams are the per-request knobs of a fetch: pagination, search text
// and an ordering override.
type FetchParams struct {
	Page        int
	PageSize    int // 0 uses the config page size, grid.PageSizeAll disables the limit
	Search      string
	OrderColumn string
	OrderDir    string
}

// EffectivePageSize resolves the page size including the "all" sentinel.
func (p FetchParams) EffectivePageSize(cfg *grid.Config) int {
	size := p.PageSize
	if size == 0 {
		size = cfg.PageSize
	}
	if size <= 0 {
		return grid.PageSizeAll
	}
	return size
}

// relAlias is the join alias used for a relation on the given column.
func relAlias(field string) string {
	return "rel_" + field
}

// condPrefix marks the raw-value projections Select adds for row-condition
// columns. Conditions compare stored values, so fetch carries them alongside
// any relation-substituted labels.
const condPrefix = "_cond_"

// CondAlias is the projection alias for the raw value of a row-condition
// column.
func CondAlias(column string) string {
	return condPrefix + column
}

// IsCondAlias reports whether a result column is a raw condition projection.
func IsCondAlias(name string) bool {
	return strings.HasPrefix(name, condPrefix)
}

// columnExpr returns the SQL expression that produces the given column in
// result rows. Relation columns resolve to the joined label.
func (a *Assembler) columnExpr(name string) string {
	if rel, ok := a.cfg.Relation(name); ok {
		return fmt.Sprintf("%s.%s", relAlias(name), rel.Label)
	}
	return fmt.Sprintf("%s.%s", a.cfg.Table, name)
}

// Select builds the paginated, filtered, ordered SELECT for a fetch.
func (a *Assembler) Select(p FetchParams) (string, []interface{}, error) {
	cols := []string{fmt.Sprintf("%s.%s", a.cfg.Table, a.cfg.PrimaryKey)}
	seen := map[string]bool{a.cfg.PrimaryKey: true}
	for _, col := range a.cfg.Columns {
		if seen[col.Name] {
			continue
		}
		seen[col.Name] = true
		cols = append(cols, fmt.Sprintf("%s AS %s", a.columnExpr(col.Name), col.Name))
	}
	for _, sub := range a.cfg.Subselects {
		cols = append(cols, a.subselectExpr(sub))
	}
	for _, name := range a.conditionColumns() {
		cols = append(cols, fmt.Sprintf("%s.%s AS %s", a.cfg.Table, name, CondAlias(name)))
	}

	q, err := a.applyJoins(a.sb.Select(cols...).From(a.cfg.Table))
	if err != nil {
		return "", nil, err
	}

	where, err := a.whereExpr(p.Search)
	if err != nil {
		return "", nil, err
	}
	if where != nil {
		q = q.Where(where)
	}

	order, err := a.orderClauses(p)
	if err != nil {
		return "", nil, err
	}
	q = q.OrderBy(order...)

	if size := p.EffectivePageSize(a.cfg); size != grid.PageSizeAll {
		page := p.Page
		if page < 1 {
			page = 1
		}
		q = q.Limit(uint64(size)).Offset(uint64(size * (page - 1)))
	}

	return q.ToSql()
}

// Count builds the companion COUNT query for the same filters as Select.
func (a *Assembler) Count(p FetchParams) (string, []interface{}, error) {
	q, err := a.applyJoins(a.sb.Select("COUNT(*)").From(a.cfg.Table))
	if err != nil {
		return "", nil, err
	}

	where, err := a.whereExpr(p.Search)
	if err != nil {
		return "", nil, err
	}
	if where != nil {
		q = q.Where(where)
	}
	return q.ToSql()
}

// Summary builds the aggregate query over the filtered (unpaginated) set.
// Returns empty SQL when the config declares no summaries.
func (a *Assembler) Summary(p FetchParams) (string, []interface{}, error) {
	if len(a.cfg.Summaries) == 0 {
		return "", nil, nil
	}
	cols := make([]string, 0, len(a.cfg.Summaries))
	for _, s := range a.cfg.Summaries {
		cols = append(cols, fmt.Sprintf("%s(%s) AS %s",
			strings.ToUpper(s.Func), a.columnExpr(s.Column), s.Column))
	}

	q, err := a.applyJoins(a.sb.Select(cols...).From(a.cfg.Table))
	if err != nil {
		return "", nil, err
	}

	where, err := a.whereExpr(p.Search)
	if err != nil {
		return "", nil, err
	}
	if where != nil {
		q = q.Where(where)
	}
	return q.ToSql()
}

// SelectRow builds the raw single-row SELECT used by read, update and the
// row-condition checks. No relation substitution: editing needs the stored
// foreign keys, not their labels.
func (a *Assembler) SelectRow(id interface{}) (string, []interface{}, error) {
	return a.sb.Select(a.cfg.Table + ".*").
		From(a.cfg.Table).
		Where(squirrel.Eq{fmt.Sprintf("%s.%s", a.cfg.Table, a.cfg.PrimaryKey): id}).
		ToSql()
}

// RelationOptions builds the key/label listing for a relation's select
// widget, honoring the relation's filter and ordering.
func (a *Assembler) RelationOptions(rel grid.Relation) (string, []interface{}, error) {
	q := a.sb.Select(rel.Key, rel.Label).From(rel.Table)
	if rel.Filter != nil {
		expr, err := clauseExpr(rel.Table, *rel.Filter)
		if err != nil {
			return "", nil, err
		}
		q = q.Where(expr)
	}
	if rel.OrderBy != "" {
		dir := strings.ToUpper(rel.OrderDir)
		if dir != "DESC" {
			dir = "ASC"
		}
		q = q.OrderBy(rel.OrderBy + " " + dir)
	} else {
		q = q.OrderBy(rel.Label + " ASC")
	}
	return q.ToSql()
}

// Insert builds an INSERT from the writable subset of values. When returning
// is true a RETURNING clause yields the generated primary key (postgres).
func (a *Assembler) Insert(values map[string]interface{}, returning bool) (string, []interface{}, error) {
	cols, args, err := a.writablePairs(values)
	if err != nil {
		return "", nil, err
	}
	if len(cols) == 0 {
		return "", nil, ErrNoWritableFields
	}
	q := a.sb.Insert(a.cfg.Table).Columns(cols...).Values(args...)
	if returning {
		q = q.Suffix("RETURNING " + a.cfg.PrimaryKey)
	}
	return q.ToSql()
}

// Update builds an UPDATE of the writable subset of values for one row.
func (a *Assembler) Update(id interface{}, values map[string]interface{}) (string, []interface{}, error) {
	cols, args, err := a.writablePairs(values)
	if err != nil {
		return "", nil, err
	}
	if len(cols) == 0 {
		return "", nil, ErrNoWritableFields
	}
	q := a.sb.Update(a.cfg.Table)
	for i, col := range cols {
		q = q.Set(col, args[i])
	}
	return q.Where(squirrel.Eq{a.cfg.PrimaryKey: id}).ToSql()
}

// Delete builds the DELETE for one row.
func (a *Assembler) Delete(id interface{}) (string, []interface{}, error) {
	return a.sb.Delete(a.cfg.Table).
		Where(squirrel.Eq{a.cfg.PrimaryKey: id}).
		ToSql()
}

// CountValue builds the duplicate check behind the "unique" rule: how many
// rows other than excludeID already hold value in column. Pass a nil
// excludeID for inserts.
func (a *Assembler) CountValue(column string, value, excludeID interface{}) (string, []interface{}, error) {
	if !grid.SafeNameRegex.MatchString(column) {
		return "", nil, fmt.Errorf("%w: %q", grid.ErrInvalidIdentifier, column)
	}
	q := a.sb.Select("COUNT(*)").From(a.cfg.Table).Where(squirrel.Eq{column: value})
	if excludeID != nil {
		q = q.Where(squirrel.NotEq{a.cfg.PrimaryKey: excludeID})
	}
	return q.ToSql()
}

// writablePairs filters values down to declared, non-readonly fields and
// returns them in deterministic column order.
func (a *Assembler) writablePairs(values map[string]interface{}) ([]string, []interface{}, error) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var cols []string
	var args []interface{}
	for _, k := range keys {
		field, ok := a.cfg.Field(k)
		if !ok || field.ReadOnly {
			continue
		}
		if !grid.SafeNameRegex.MatchString(k) {
			return nil, nil, fmt.Errorf("%w: %q", grid.ErrInvalidIdentifier, k)
		}
		cols = append(cols, k)
		args = append(args, values[k])
	}
	return cols, args, nil
}

// applyJoins attaches relation joins and explicit joins. Relation filters go
// through clauseExpr so IS, IS NOT and IN render the same way they do in the
// options query.
func (a *Assembler) applyJoins(q squirrel.SelectBuilder) (squirrel.SelectBuilder, error) {
	for _, rel := range a.cfg.Relations {
		alias := relAlias(rel.Field)
		join := fmt.Sprintf("%s AS %s ON %s.%s = %s.%s",
			rel.Table, alias, alias, rel.Key, a.cfg.Table, rel.Field)
		if rel.Filter != nil {
			expr, err := clauseExpr(alias, *rel.Filter)
			if err != nil {
				return q, err
			}
			filterSQL, filterArgs, err := expr.ToSql()
			if err != nil {
				return q, err
			}
			q = q.LeftJoin(join+" AND "+filterSQL, filterArgs...)
		} else {
			q = q.LeftJoin(join)
		}
	}
	for _, j := range a.cfg.Joins {
		join := fmt.Sprintf("%s AS %s ON %s.%s = %s.%s",
			j.Table, j.Alias, j.Alias, j.Remote, a.cfg.Table, j.Local)
		if strings.ToUpper(j.Kind) == "INNER" {
			q = q.InnerJoin(join)
		} else {
			q = q.LeftJoin(join)
		}
	}
	return q, nil
}

// conditionColumns lists the distinct columns referenced by row conditions.
func (a *Assembler) conditionColumns() []string {
	var out []string
	seen := map[string]bool{}
	for _, cond := range a.cfg.Conditions {
		if seen[cond.Column] {
			continue
		}
		seen[cond.Column] = true
		out = append(out, cond.Column)
	}
	return out
}

// whereExpr folds the accumulated clauses and the search term into one
// expression. Clauses chain left to right; a clause marked Or attaches with
// OR, everything else with AND.
func (a *Assembler) whereExpr(search string) (squirrel.Sqlizer, error) {
	var expr squirrel.Sqlizer
	for _, cl := range a.cfg.Clauses {
		e, err := clauseExpr(a.cfg.Table, cl)
		if err != nil {
			return nil, err
		}
		switch {
		case expr == nil:
			expr = e
		case cl.Or:
			expr = squirrel.Or{expr, e}
		default:
			expr = squirrel.And{expr, e}
		}
	}

	if s := strings.TrimSpace(search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		var terms squirrel.Or
		for _, col := range a.cfg.Columns {
			if !col.Searchable {
				continue
			}
			terms = append(terms, squirrel.Expr(
				fmt.Sprintf("LOWER(%s) LIKE ?", a.columnExpr(col.Name)), like))
		}
		if len(terms) > 0 {
			if expr == nil {
				expr = terms
			} else {
				expr = squirrel.And{expr, terms}
			}
		}
	}
	return expr, nil
}

// clauseExpr renders a single clause. IS / IS NOT compare against NULL and
// ignore the value; IN expands a slice value through squirrel.
func clauseExpr(table string, cl grid.Clause) (squirrel.Sqlizer, error) {
	if err := cl.Validate(); err != nil {
		return nil, err
	}
	qualified := fmt.Sprintf("%s.%s", table, cl.Column)
	op := strings.ToUpper(cl.Op)
	switch op {
	case "IS", "IS NOT":
		return squirrel.Expr(fmt.Sprintf("%s %s NULL", qualified, op)), nil
	case "IN":
		return squirrel.Eq{qualified: cl.Value}, nil
	default:
		return squirrel.Expr(fmt.Sprintf("%s %s ?", qualified, op), cl.Value), nil
	}
}

// subselectExpr renders a correlated aggregate projection.
func (a *Assembler) subselectExpr(s grid.Subselect) string {
	return fmt.Sprintf("(SELECT %s(%s.%s) FROM %s WHERE %s.%s = %s.%s) AS %s",
		strings.ToUpper(s.Aggregate), s.Table, s.Column, s.Table,
		s.Table, s.ForeignKey, a.cfg.Table, a.cfg.PrimaryKey, s.Alias)
}

// orderClauses resolves request ordering, falling back to the config
// ordering and finally to the primary key, which keeps pagination stable.
func (a *Assembler) orderClauses(p FetchParams) ([]string, error) {
	if p.OrderColumn != "" {
		expr, err := a.orderExpr(p.OrderColumn)
		if err != nil {
			return nil, err
		}
		dir := strings.ToUpper(p.OrderDir)
		if dir != "DESC" {
			dir = "ASC"
		}
		return []string{expr + " " + dir}, nil
	}
	if len(a.cfg.Ordering) > 0 {
		out := make([]string, 0, len(a.cfg.Ordering))
		for _, o := range a.cfg.Ordering {
			expr, err := a.orderExpr(o.Column)
			if err != nil {
				return nil, err
			}
			out = append(out, expr+" "+strings.ToUpper(o.Dir))
		}
		return out, nil
	}
	return []string{fmt.Sprintf("%s.%s ASC", a.cfg.Table, a.cfg.PrimaryKey)}, nil
}

// orderExpr maps an order column name to its SQL expression; subselect
// aliases sort by alias, everything else must be a configured column.
func (a *Assembler) orderExpr(name string) (string, error) {
	for _, s := range a.cfg.Subselects {
		if s.Alias == name {
			return s.Alias, nil
		}
	}
	if name == a.cfg.PrimaryKey {
		return fmt.Sprintf("%s.%s", a.cfg.Table, name), nil
	}
	if _, ok := a.cfg.Column(name); !ok {
		return "", fmt.Errorf("%w: unknown order column %q", ErrInvalidOrder, name)
	}
	return a.columnExpr(name), nil
}
