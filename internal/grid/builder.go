// filepath: internal/grid/builder.go
// Package grid accumulates fluent grid configuration into a serializable
// Config. A Builder is created per request (or once at startup for grids
// declared in the config file); the resulting Config is immutable once
// serialized into a page round-trip.
package grid

import (
	"strings"
)

// Builder accumulates grid configuration through chainable calls.
// Errors are collected and surfaced by Build, so call sites stay fluent.
type Builder struct {
	cfg Config
}

// New starts a builder for the given table.
func New(table string) *Builder {
	return &Builder{
		cfg: Config{
			Table:      table,
			PrimaryKey: "id",
			PageSize:   20,
			Actions: Actions{
				Create:    true,
				Edit:      true,
				Delete:    true,
				Duplicate: true,
				Upload:    true,
				Export:    true,
			},
		},
	}
}

// PrimaryKey overrides the default "id" primary key column.
func (b *Builder) PrimaryKey(column string) *Builder {
	b.cfg.PrimaryKey = column
	return b
}

// Column adds a visible column with a display title.
func (b *Builder) Column(name, title string) *Builder {
	b.cfg.Columns = append(b.cfg.Columns, Column{Name: name, Title: title})
	return b
}

// Columns adds several columns at once, titled by their names.
func (b *Builder) Columns(names ...string) *Builder {
	for _, name := range names {
		b.cfg.Columns = append(b.cfg.Columns, Column{Name: name, Title: name})
	}
	return b
}

// HiddenColumn adds a column that is fetched but not rendered.
func (b *Builder) HiddenColumn(name string) *Builder {
	b.cfg.Columns = append(b.cfg.Columns, Column{Name: name, Title: name, Hidden: true})
	return b
}

// Searchable marks columns as targets for the grid search box.
func (b *Builder) Searchable(names ...string) *Builder {
	for _, name := range names {
		found := false
		for i := range b.cfg.Columns {
			if b.cfg.Columns[i].Name == name {
				b.cfg.Columns[i].Searchable = true
				found = true
			}
		}
		if !found {
			b.cfg.Columns = append(b.cfg.Columns, Column{Name: name, Title: name, Searchable: true})
		}
	}
	return b
}

// Field declares an editable form field with an input type.
func (b *Builder) Field(name, input string) *Builder {
	b.cfg.Fields = append(b.cfg.Fields, Field{Name: name, Label: name, Input: input})
	return b
}

// Fields declares several text fields at once.
func (b *Builder) Fields(names ...string) *Builder {
	for _, name := range names {
		b.cfg.Fields = append(b.cfg.Fields, Field{Name: name, Label: name, Input: "text"})
	}
	return b
}

// ReadOnly marks fields that are shown in the form but never written.
func (b *Builder) ReadOnly(names ...string) *Builder {
	for _, name := range names {
		for i := range b.cfg.Fields {
			if b.cfg.Fields[i].Name == name {
				b.cfg.Fields[i].ReadOnly = true
			}
		}
	}
	return b
}

// Require adds a required-value rule for each field.
func (b *Builder) Require(fields ...string) *Builder {
	for _, f := range fields {
		b.cfg.Rules = append(b.cfg.Rules, Rule{Field: f, Kind: "required"})
	}
	return b
}

// Rule adds an arbitrary validation rule.
func (b *Builder) Rule(field, kind, param, message string) *Builder {
	b.cfg.Rules = append(b.cfg.Rules, Rule{Field: field, Kind: kind, Param: param, Message: message})
	return b
}

// Relation substitutes the foreign key in field with labels from
// table.label, matched through table.key.
func (b *Builder) Relation(field, table, key, label string) *Builder {
	b.cfg.Relations = append(b.cfg.Relations, Relation{
		Field: field, Table: table, Key: key, Label: label,
	})
	return b
}

// RelationFiltered is Relation with a filter and ordering on the target rows.
func (b *Builder) RelationFiltered(field, table, key, label string, filter *Clause, orderBy, orderDir string) *Builder {
	b.cfg.Relations = append(b.cfg.Relations, Relation{
		Field: field, Table: table, Key: key, Label: label,
		Filter: filter, OrderBy: orderBy, OrderDir: orderDir,
	})
	return b
}

// Where appends an AND condition on the grid table.
func (b *Builder) Where(column, op string, value interface{}) *Builder {
	b.cfg.Clauses = append(b.cfg.Clauses, Clause{Column: column, Op: op, Value: value})
	return b
}

// OrWhere appends an OR condition on the grid table.
func (b *Builder) OrWhere(column, op string, value interface{}) *Builder {
	b.cfg.Clauses = append(b.cfg.Clauses, Clause{Column: column, Op: op, Value: value, Or: true})
	return b
}

// Join adds an explicit join. kind is LEFT or INNER.
func (b *Builder) Join(kind, table, alias, local, remote string) *Builder {
	b.cfg.Joins = append(b.cfg.Joins, Join{
		Kind: strings.ToUpper(kind), Table: table, Alias: alias, Local: local, Remote: remote,
	})
	return b
}

// Subselect projects a correlated aggregate as an extra column.
func (b *Builder) Subselect(alias, aggregate, table, column, foreignKey string) *Builder {
	b.cfg.Subselects = append(b.cfg.Subselects, Subselect{
		Alias: alias, Aggregate: strings.ToUpper(aggregate),
		Table: table, Column: column, ForeignKey: foreignKey,
	})
	return b
}

// OrderBy appends an ordering term. An empty direction means ascending.
func (b *Builder) OrderBy(column, dir string) *Builder {
	d := strings.ToUpper(dir)
	if d == "" {
		d = "ASC"
	}
	b.cfg.Ordering = append(b.cfg.Ordering, Ordering{Column: column, Dir: d})
	return b
}

// PageSize sets the rows per page. PageSizeAll disables pagination.
func (b *Builder) PageSize(n int) *Builder {
	b.cfg.PageSize = n
	return b
}

// Disable turns off grid actions by name (create, edit, delete, duplicate,
// upload, export).
func (b *Builder) Disable(actions ...string) *Builder {
	for _, a := range actions {
		b.setAction(a, false)
	}
	return b
}

// Enable turns grid actions back on.
func (b *Builder) Enable(actions ...string) *Builder {
	for _, a := range actions {
		b.setAction(a, true)
	}
	return b
}

func (b *Builder) setAction(action string, v bool) {
	switch action {
	case ActionCreate:
		b.cfg.Actions.Create = v
	case ActionUpdate, "edit":
		b.cfg.Actions.Edit = v
	case ActionDelete:
		b.cfg.Actions.Delete = v
	case ActionDuplicate:
		b.cfg.Actions.Duplicate = v
	case ActionUpload:
		b.cfg.Actions.Upload = v
	case "export", ActionExportCSV, ActionExportExcel:
		b.cfg.Actions.Export = v
	}
}

// When gates an action per row: rows matching (column op value) get the
// action only if allow is true.
func (b *Builder) When(action, column, op string, value interface{}, allow bool) *Builder {
	b.cfg.Conditions = append(b.cfg.Conditions, Condition{
		Action: action, Column: column, Op: op, Value: value, Allow: allow,
	})
	return b
}

// Sum adds a SUM aggregate over a column to the fetch summary.
func (b *Builder) Sum(columns ...string) *Builder {
	for _, c := range columns {
		b.cfg.Summaries = append(b.cfg.Summaries, Summary{Column: c, Func: "SUM"})
	}
	return b
}

// Aggregate adds an arbitrary summary aggregate.
func (b *Builder) Aggregate(fn, column string) *Builder {
	b.cfg.Summaries = append(b.cfg.Summaries, Summary{Column: column, Func: strings.ToUpper(fn)})
	return b
}

// OnBeforeCreate registers the named hook to run before inserts.
func (b *Builder) OnBeforeCreate(name string) *Builder { b.cfg.Hooks.BeforeCreate = name; return b }

// OnAfterCreate registers the named hook to run after inserts.
func (b *Builder) OnAfterCreate(name string) *Builder { b.cfg.Hooks.AfterCreate = name; return b }

// OnBeforeUpdate registers the named hook to run before updates.
func (b *Builder) OnBeforeUpdate(name string) *Builder { b.cfg.Hooks.BeforeUpdate = name; return b }

// OnAfterUpdate registers the named hook to run after updates.
func (b *Builder) OnAfterUpdate(name string) *Builder { b.cfg.Hooks.AfterUpdate = name; return b }

// OnBeforeDelete registers the named hook to run before deletes.
func (b *Builder) OnBeforeDelete(name string) *Builder { b.cfg.Hooks.BeforeDelete = name; return b }

// OnAfterDelete registers the named hook to run after deletes.
func (b *Builder) OnAfterDelete(name string) *Builder { b.cfg.Hooks.AfterDelete = name; return b }

// Build validates the accumulated configuration and returns it.
// The returned Config must be treated as immutable.
func (b *Builder) Build() (*Config, error) {
	cfg := b.cfg
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
