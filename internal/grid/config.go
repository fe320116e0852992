// filepath: internal/grid/config.go
package grid

import (
	"fmt"
	"regexp"
	"strings"
)

// SafeNameRegex restricts table and column identifiers to names that can be
// embedded in SQL without quoting tricks. Values never pass through it, only
// identifiers; values are always bound as parameters.
var SafeNameRegex = regexp.MustCompile("^[a-zA-Z_][a-zA-Z0-9_]*$")

// PageSizeAll is the sentinel page size that bypasses the LIMIT clause.
const PageSizeAll = -1

// Action names understood by the dispatcher.
const (
	ActionFetch       = "fetch"
	ActionRead        = "read"
	ActionCreate      = "create"
	ActionUpdate      = "update"
	ActionDelete      = "delete"
	ActionDuplicate   = "duplicate"
	ActionUpload      = "upload"
	ActionExportCSV   = "export_csv"
	ActionExportExcel = "export_excel"
)

// Column describes one grid column.
type Column struct {
	Name       string `json:"name"`
	Title      string `json:"title,omitempty"`
	Width      int    `json:"width,omitempty"`
	Hidden     bool   `json:"hidden,omitempty"`
	Searchable bool   `json:"searchable,omitempty"`
}

// Field describes one editable form field.
type Field struct {
	Name     string `json:"name"`
	Label    string `json:"label,omitempty"`
	Input    string `json:"input,omitempty"` // text, textarea, select, checkbox, date, file
	ReadOnly bool   `json:"read_only,omitempty"`
}

// Rule is a validation rule bound to a field.
// Kind is one of: required, email, integer, numeric, pattern, minlen, maxlen,
// min, max, unique. Param carries the rule argument where one applies.
type Rule struct {
	Field   string `json:"field"`
	Kind    string `json:"kind"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message,omitempty"`
}

// Relation substitutes a foreign key column with a human-readable label from
// the target table. The optional Filter restricts the candidate rows.
type Relation struct {
	Field    string  `json:"field"`
	Table    string  `json:"table"`
	Key      string  `json:"key"`
	Label    string  `json:"label"`
	Filter   *Clause `json:"filter,omitempty"`
	OrderBy  string  `json:"order_by,omitempty"`
	OrderDir string  `json:"order_dir,omitempty"`
}

// Clause is a single accumulated WHERE condition. Or marks the clause as
// joined to the preceding ones with OR instead of AND.
type Clause struct {
	Column string      `json:"column"`
	Op     string      `json:"op"`
	Value  interface{} `json:"value"`
	Or     bool        `json:"or,omitempty"`
}

// Join is an explicit join against another table.
type Join struct {
	Kind   string `json:"kind"` // LEFT or INNER
	Table  string `json:"table"`
	Alias  string `json:"alias"`
	Local  string `json:"local"`   // column on the grid table
	Remote string `json:"remote"`  // column on the joined table
}

// Subselect projects a correlated aggregate as an extra result column.
type Subselect struct {
	Alias      string `json:"alias"`
	Table      string `json:"table"`
	Aggregate  string `json:"aggregate"` // COUNT, SUM, AVG, MIN, MAX
	Column     string `json:"column"`
	ForeignKey string `json:"foreign_key"` // column on Table referencing the grid row
}

// Ordering is one ORDER BY term.
type Ordering struct {
	Column string `json:"column"`
	Dir    string `json:"dir"`
}

// Summary is an aggregate computed over the filtered (unpaginated) result set.
type Summary struct {
	Column string `json:"column"`
	Func   string `json:"func"` // SUM, AVG, MIN, MAX, COUNT
}

// Actions records which grid actions are enabled.
type Actions struct {
	Create    bool `json:"create"`
	Edit      bool `json:"edit"`
	Delete    bool `json:"delete"`
	Duplicate bool `json:"duplicate"`
	Upload    bool `json:"upload"`
	Export    bool `json:"export"`
}

// Condition gates an action per row: rows matching (Column Op Value) get the
// action if and only if Allow is true. Non-matching rows keep the grid-level
// setting.
type Condition struct {
	Action string      `json:"action"`
	Column string      `json:"column"`
	Op     string      `json:"op"`
	Value  interface{} `json:"value"`
	Allow  bool        `json:"allow"`
}

// Hooks holds the registered names of lifecycle callbacks. Only names travel
// in the serialized config; the functions stay in the process-level registry.
type Hooks struct {
	BeforeCreate string `json:"before_create,omitempty"`
	AfterCreate  string `json:"after_create,omitempty"`
	BeforeUpdate string `json:"before_update,omitempty"`
	AfterUpdate  string `json:"after_update,omitempty"`
	BeforeDelete string `json:"before_delete,omitempty"`
	AfterDelete  string `json:"after_delete,omitempty"`
}

// Config is the complete serializable grid configuration. It is built
// through the fluent Builder, embedded into the rendered page as a signed
// token, and rehydrated from that token on every action request. It carries
// no cross-request identity beyond the client re-posting it.
type Config struct {
	Table      string      `json:"table"`
	PrimaryKey string      `json:"primary_key"`
	Columns    []Column    `json:"columns"`
	Fields     []Field     `json:"fields,omitempty"`
	Rules      []Rule      `json:"rules,omitempty"`
	Relations  []Relation  `json:"relations,omitempty"`
	Clauses    []Clause    `json:"clauses,omitempty"`
	Joins      []Join      `json:"joins,omitempty"`
	Subselects []Subselect `json:"subselects,omitempty"`
	Ordering   []Ordering  `json:"ordering,omitempty"`
	PageSize   int         `json:"page_size"`
	Actions    Actions     `json:"actions"`
	Conditions []Condition `json:"conditions,omitempty"`
	Summaries  []Summary   `json:"summaries,omitempty"`
	Hooks      Hooks       `json:"hooks,omitempty"`
}

// comparison operators accepted in clauses, filters and row conditions
var allowedOperators = map[string]bool{
	"=": true, "!=": true, "<>": true,
	">": true, ">=": true, "<": true, "<=": true,
	"LIKE": true, "NOT LIKE": true,
	"IS": true, "IS NOT": true, "IN": true,
}

var allowedAggregates = map[string]bool{
	"COUNT": true, "SUM": true, "AVG": true, "MIN": true, "MAX": true,
}

// ValidOperator reports whether op is on the comparison operator allow-list.
func ValidOperator(op string) bool {
	return allowedOperators[strings.ToUpper(op)]
}

// Validate checks every identifier and operator embedded in the config.
// A config that fails Validate must never reach the query assembler.
func (c *Config) Validate() error {
	if !SafeNameRegex.MatchString(c.Table) {
		return fmt.Errorf("%w: table %q", ErrInvalidIdentifier, c.Table)
	}
	if !SafeNameRegex.MatchString(c.PrimaryKey) {
		return fmt.Errorf("%w: primary key %q", ErrInvalidIdentifier, c.PrimaryKey)
	}
	if len(c.Columns) == 0 {
		return fmt.Errorf("grid %q: at least one column is required", c.Table)
	}
	for _, col := range c.Columns {
		if !SafeNameRegex.MatchString(col.Name) {
			return fmt.Errorf("%w: column %q", ErrInvalidIdentifier, col.Name)
		}
	}
	for _, f := range c.Fields {
		if !SafeNameRegex.MatchString(f.Name) {
			return fmt.Errorf("%w: field %q", ErrInvalidIdentifier, f.Name)
		}
	}
	for _, rel := range c.Relations {
		for _, name := range []string{rel.Field, rel.Table, rel.Key, rel.Label} {
			if !SafeNameRegex.MatchString(name) {
				return fmt.Errorf("%w: relation identifier %q", ErrInvalidIdentifier, name)
			}
		}
		if rel.OrderBy != "" && !SafeNameRegex.MatchString(rel.OrderBy) {
			return fmt.Errorf("%w: relation order column %q", ErrInvalidIdentifier, rel.OrderBy)
		}
		if rel.Filter != nil {
			if err := rel.Filter.Validate(); err != nil {
				return err
			}
		}
	}
	for _, cl := range c.Clauses {
		if err := cl.Validate(); err != nil {
			return err
		}
	}
	for _, j := range c.Joins {
		kind := strings.ToUpper(j.Kind)
		if kind != "LEFT" && kind != "INNER" {
			return fmt.Errorf("invalid join kind: %s", j.Kind)
		}
		for _, name := range []string{j.Table, j.Alias, j.Local, j.Remote} {
			if !SafeNameRegex.MatchString(name) {
				return fmt.Errorf("%w: join identifier %q", ErrInvalidIdentifier, name)
			}
		}
	}
	for _, s := range c.Subselects {
		if !allowedAggregates[strings.ToUpper(s.Aggregate)] {
			return fmt.Errorf("invalid subselect aggregate: %s", s.Aggregate)
		}
		for _, name := range []string{s.Alias, s.Table, s.Column, s.ForeignKey} {
			if !SafeNameRegex.MatchString(name) {
				return fmt.Errorf("%w: subselect identifier %q", ErrInvalidIdentifier, name)
			}
		}
	}
	for _, o := range c.Ordering {
		if !SafeNameRegex.MatchString(o.Column) {
			return fmt.Errorf("%w: order column %q", ErrInvalidIdentifier, o.Column)
		}
		dir := strings.ToUpper(o.Dir)
		if dir != "ASC" && dir != "DESC" {
			return fmt.Errorf("invalid order direction: %s", o.Dir)
		}
	}
	for _, s := range c.Summaries {
		if !allowedAggregates[strings.ToUpper(s.Func)] {
			return fmt.Errorf("invalid summary function: %s", s.Func)
		}
		if !SafeNameRegex.MatchString(s.Column) {
			return fmt.Errorf("%w: summary column %q", ErrInvalidIdentifier, s.Column)
		}
	}
	for _, cond := range c.Conditions {
		if !SafeNameRegex.MatchString(cond.Column) {
			return fmt.Errorf("%w: condition column %q", ErrInvalidIdentifier, cond.Column)
		}
		if !ValidOperator(cond.Op) {
			return fmt.Errorf("invalid condition operator: %s", cond.Op)
		}
	}
	return nil
}

// Validate checks the clause identifier and operator.
func (cl Clause) Validate() error {
	if !SafeNameRegex.MatchString(cl.Column) {
		return fmt.Errorf("%w: clause column %q", ErrInvalidIdentifier, cl.Column)
	}
	if !ValidOperator(cl.Op) {
		return fmt.Errorf("invalid clause operator: %s", cl.Op)
	}
	return nil
}

// Column returns the column definition by name.
func (c *Config) Column(name string) (Column, bool) {
	for _, col := range c.Columns {
		if col.Name == name {
			return col, true
		}
	}
	return Column{}, false
}

// Relation returns the relation bound to a column, if any.
func (c *Config) Relation(field string) (Relation, bool) {
	for _, rel := range c.Relations {
		if rel.Field == field {
			return rel, true
		}
	}
	return Relation{}, false
}

// Field returns the editable field definition by name.
func (c *Config) Field(name string) (Field, bool) {
	for _, f := range c.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// ActionEnabled reports the grid-level flag for an action name.
func (c *Config) ActionEnabled(action string) bool {
	switch action {
	case ActionFetch, ActionRead:
		return true
	case ActionCreate:
		return c.Actions.Create
	case ActionUpdate:
		return c.Actions.Edit
	case ActionDelete:
		return c.Actions.Delete
	case ActionDuplicate:
		return c.Actions.Duplicate
	case ActionUpload:
		return c.Actions.Upload
	case ActionExportCSV, ActionExportExcel:
		return c.Actions.Export
	default:
		return false
	}
}
