// filepath: internal/validate/validate_test.go
package validate

import (
	"testing"

	"sqlgrid/internal/grid"

	"github.com/stretchr/testify/assert"
)

func TestRowRequired(t *testing.T) {
	rules := []grid.Rule{{Field: "name", Kind: "required"}}

	errs := Row(rules, map[string]interface{}{}, false)
	assert.Contains(t, errs, "name")

	errs = Row(rules, map[string]interface{}{"name": "   "}, false)
	assert.Contains(t, errs, "name")

	errs = Row(rules, map[string]interface{}{"name": "Widget"}, false)
	assert.Empty(t, errs)
}

func TestRowRequiredSkippedOnPartialUpdate(t *testing.T) {
	rules := []grid.Rule{{Field: "name", Kind: "required"}}

	// Absent field on an update is fine...
	errs := Row(rules, map[string]interface{}{"price": 5}, true)
	assert.Empty(t, errs)

	// ...but a present empty value is still rejected.
	errs = Row(rules, map[string]interface{}{"name": ""}, true)
	assert.Contains(t, errs, "name")
}

func TestRowKinds(t *testing.T) {
	tests := []struct {
		name  string
		rule  grid.Rule
		value interface{}
		fails bool
	}{
		{"valid email", grid.Rule{Field: "f", Kind: "email"}, "a@b.co", false},
		{"invalid email", grid.Rule{Field: "f", Kind: "email"}, "not-an-email", true},
		{"valid integer", grid.Rule{Field: "f", Kind: "integer"}, "42", false},
		{"invalid integer", grid.Rule{Field: "f", Kind: "integer"}, "4.2", true},
		{"valid numeric", grid.Rule{Field: "f", Kind: "numeric"}, "4.2", false},
		{"invalid numeric", grid.Rule{Field: "f", Kind: "numeric"}, "abc", true},
		{"pattern match", grid.Rule{Field: "f", Kind: "pattern", Param: "^[A-Z]{3}$"}, "ABC", false},
		{"pattern mismatch", grid.Rule{Field: "f", Kind: "pattern", Param: "^[A-Z]{3}$"}, "abc", true},
		{"minlen ok", grid.Rule{Field: "f", Kind: "minlen", Param: "3"}, "abcd", false},
		{"minlen short", grid.Rule{Field: "f", Kind: "minlen", Param: "3"}, "ab", true},
		{"maxlen ok", grid.Rule{Field: "f", Kind: "maxlen", Param: "3"}, "abc", false},
		{"maxlen long", grid.Rule{Field: "f", Kind: "maxlen", Param: "3"}, "abcd", true},
		{"min ok", grid.Rule{Field: "f", Kind: "min", Param: "0"}, 5, false},
		{"min below", grid.Rule{Field: "f", Kind: "min", Param: "0"}, -1, true},
		{"max ok", grid.Rule{Field: "f", Kind: "max", Param: "100"}, "99.5", false},
		{"max above", grid.Rule{Field: "f", Kind: "max", Param: "100"}, "100.5", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := Row([]grid.Rule{tt.rule}, map[string]interface{}{"f": tt.value}, false)
			if tt.fails {
				assert.Contains(t, errs, "f")
			} else {
				assert.Empty(t, errs)
			}
		})
	}
}

func TestRowFirstFailurePerField(t *testing.T) {
	rules := []grid.Rule{
		{Field: "age", Kind: "required"},
		{Field: "age", Kind: "integer", Message: "second rule"},
	}
	errs := Row(rules, map[string]interface{}{"age": ""}, false)
	assert.Equal(t, "this field is required", errs["age"])
}

func TestRowCustomMessage(t *testing.T) {
	rules := []grid.Rule{{Field: "name", Kind: "required", Message: "Name it!"}}
	errs := Row(rules, map[string]interface{}{}, false)
	assert.Equal(t, "Name it!", errs["name"])
}

func TestRowUniqueIsDeferred(t *testing.T) {
	// "unique" needs a database round-trip; the dispatcher handles it.
	rules := []grid.Rule{{Field: "sku", Kind: "unique"}}
	errs := Row(rules, map[string]interface{}{"sku": "X-1"}, false)
	assert.Empty(t, errs)
}
