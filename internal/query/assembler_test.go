// filepath: internal/query/assembler_test.go
package query

import (
	"testing"

	"sqlgrid/internal/grid"

	"github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var questionSB = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)
var dollarSB = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

func productGrid(t *testing.T) *grid.Config {
	t.Helper()
	cfg, err := grid.New("products").
		Columns("name", "price").
		Searchable("name").
		Fields("name", "price").
		Build()
	require.NoError(t, err)
	return cfg
}

func TestSelectPagination(t *testing.T) {
	a := NewAssembler(productGrid(t), questionSB)

	sql, args, err := a.Select(FetchParams{Page: 3, PageSize: 10})
	require.NoError(t, err)
	assert.Empty(t, args)
	assert.Equal(t,
		"SELECT products.id, products.name AS name, products.price AS price "+
			"FROM products ORDER BY products.id ASC LIMIT 10 OFFSET 20", sql)
}

func TestSelectFirstPageForZeroPage(t *testing.T) {
	a := NewAssembler(productGrid(t), questionSB)

	sql, _, err := a.Select(FetchParams{Page: 0, PageSize: 10})
	require.NoError(t, err)
	assert.Contains(t, sql, "LIMIT 10 OFFSET 0")
}

func TestSelectAllDisablesLimit(t *testing.T) {
	a := NewAssembler(productGrid(t), questionSB)

	sql, _, err := a.Select(FetchParams{Page: 1, PageSize: grid.PageSizeAll})
	require.NoError(t, err)
	assert.NotContains(t, sql, "LIMIT")
	assert.NotContains(t, sql, "OFFSET")
}

func TestSelectSearchIsCaseInsensitiveSubstring(t *testing.T) {
	cfg, err := grid.New("products").
		Columns("name", "sku", "price").
		Searchable("name", "sku").
		Build()
	require.NoError(t, err)
	a := NewAssembler(cfg, questionSB)

	sql, args, err := a.Select(FetchParams{Page: 1, PageSize: 10, Search: "Widget"})
	require.NoError(t, err)
	assert.Contains(t, sql, "LOWER(products.name) LIKE ? OR LOWER(products.sku) LIKE ?")
	assert.Equal(t, []interface{}{"%widget%", "%widget%"}, args)
}

func TestSelectSearchCombinesWithClauses(t *testing.T) {
	cfg, err := grid.New("products").
		Columns("name", "price").
		Searchable("name").
		Where("price", ">", 10).
		Build()
	require.NoError(t, err)
	a := NewAssembler(cfg, questionSB)

	sql, args, err := a.Select(FetchParams{Page: 1, PageSize: 10, Search: "x"})
	require.NoError(t, err)
	assert.Contains(t, sql, "products.price > ?")
	assert.Contains(t, sql, "LOWER(products.name) LIKE ?")
	assert.Equal(t, []interface{}{10, "%x%"}, args)
}

func TestSelectOrClauseChaining(t *testing.T) {
	cfg, err := grid.New("products").
		Columns("name", "status").
		Where("status", "=", "active").
		OrWhere("status", "=", "draft").
		Build()
	require.NoError(t, err)
	a := NewAssembler(cfg, questionSB)

	sql, args, err := a.Select(FetchParams{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Contains(t, sql, "(products.status = ? OR products.status = ?)")
	assert.Equal(t, []interface{}{"active", "draft"}, args)
}

func TestSelectRelationJoinAndLabel(t *testing.T) {
	cfg, err := grid.New("products").
		Columns("name", "category_id").
		Relation("category_id", "categories", "id", "name").
		Build()
	require.NoError(t, err)
	a := NewAssembler(cfg, questionSB)

	sql, _, err := a.Select(FetchParams{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Contains(t, sql, "rel_category_id.name AS category_id")
	assert.Contains(t, sql,
		"LEFT JOIN categories AS rel_category_id ON rel_category_id.id = products.category_id")
}

func TestSelectRelationFilterSpecialOperators(t *testing.T) {
	t.Run("in expands the slice", func(t *testing.T) {
		cfg, err := grid.New("products").
			Columns("name", "category_id").
			RelationFiltered("category_id", "categories", "id", "name",
				&grid.Clause{Column: "status", Op: "IN", Value: []string{"active", "new"}}, "", "").
			Build()
		require.NoError(t, err)
		a := NewAssembler(cfg, questionSB)

		sql, args, err := a.Select(FetchParams{Page: 1, PageSize: 10})
		require.NoError(t, err)
		assert.Contains(t, sql,
			"LEFT JOIN categories AS rel_category_id ON rel_category_id.id = products.category_id "+
				"AND rel_category_id.status IN (?,?)")
		assert.Equal(t, []interface{}{"active", "new"}, args)
	})

	t.Run("is compares against null", func(t *testing.T) {
		cfg, err := grid.New("products").
			Columns("name", "category_id").
			RelationFiltered("category_id", "categories", "id", "name",
				&grid.Clause{Column: "deleted_at", Op: "IS"}, "", "").
			Build()
		require.NoError(t, err)
		a := NewAssembler(cfg, questionSB)

		sql, args, err := a.Select(FetchParams{Page: 1, PageSize: 10})
		require.NoError(t, err)
		assert.Contains(t, sql, "AND rel_category_id.deleted_at IS NULL")
		assert.Empty(t, args)

		// Count shares the join and stays argument-free.
		sql, args, err = a.Count(FetchParams{})
		require.NoError(t, err)
		assert.Contains(t, sql, "AND rel_category_id.deleted_at IS NULL")
		assert.Empty(t, args)
	})
}

func TestSelectCarriesRawConditionValues(t *testing.T) {
	cfg, err := grid.New("products").
		Columns("name", "category_id").
		Relation("category_id", "categories", "id", "name").
		When("delete", "category_id", "=", 2, false).
		Build()
	require.NoError(t, err)
	a := NewAssembler(cfg, questionSB)

	sql, _, err := a.Select(FetchParams{Page: 1, PageSize: 10})
	require.NoError(t, err)
	// The relation substitutes the label, the condition projection keeps the
	// stored foreign key available.
	assert.Contains(t, sql, "rel_category_id.name AS category_id")
	assert.Contains(t, sql, "products.category_id AS _cond_category_id")
}

func TestSelectSubselectColumn(t *testing.T) {
	cfg, err := grid.New("products").
		Columns("name").
		Subselect("order_count", "COUNT", "order_items", "id", "product_id").
		Build()
	require.NoError(t, err)
	a := NewAssembler(cfg, questionSB)

	sql, _, err := a.Select(FetchParams{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Contains(t, sql,
		"(SELECT COUNT(order_items.id) FROM order_items WHERE order_items.product_id = products.id) AS order_count")

	// Subselect aliases are valid order targets.
	sql, _, err = a.Select(FetchParams{Page: 1, PageSize: 10, OrderColumn: "order_count", OrderDir: "desc"})
	require.NoError(t, err)
	assert.Contains(t, sql, "ORDER BY order_count DESC")
}

func TestSelectRejectsUnknownOrderColumn(t *testing.T) {
	a := NewAssembler(productGrid(t), questionSB)

	_, _, err := a.Select(FetchParams{Page: 1, PageSize: 10, OrderColumn: "secret_col"})
	assert.ErrorIs(t, err, ErrInvalidOrder)
}

func TestCountSharesFilters(t *testing.T) {
	a := NewAssembler(productGrid(t), questionSB)

	sql, args, err := a.Count(FetchParams{Search: "abc"})
	require.NoError(t, err)
	assert.Contains(t, sql, "SELECT COUNT(*) FROM products")
	assert.Contains(t, sql, "LOWER(products.name) LIKE ?")
	assert.Equal(t, []interface{}{"%abc%"}, args)
	assert.NotContains(t, sql, "LIMIT")
}

func TestSummary(t *testing.T) {
	cfg, err := grid.New("products").
		Columns("name", "price").
		Sum("price").
		Build()
	require.NoError(t, err)
	a := NewAssembler(cfg, questionSB)

	sql, _, err := a.Summary(FetchParams{})
	require.NoError(t, err)
	assert.Equal(t, "SELECT SUM(products.price) AS price FROM products", sql)
}

func TestSummaryEmptyWithoutAggregates(t *testing.T) {
	a := NewAssembler(productGrid(t), questionSB)

	sql, args, err := a.Summary(FetchParams{})
	require.NoError(t, err)
	assert.Empty(t, sql)
	assert.Empty(t, args)
}

func TestSelectRowUsesRawColumns(t *testing.T) {
	cfg, err := grid.New("products").
		Columns("name", "category_id").
		Relation("category_id", "categories", "id", "name").
		Build()
	require.NoError(t, err)
	a := NewAssembler(cfg, questionSB)

	sql, args, err := a.SelectRow(7)
	require.NoError(t, err)
	// No relation substitution: editing needs the stored foreign key.
	assert.Equal(t, "SELECT products.* FROM products WHERE products.id = ?", sql)
	assert.Equal(t, []interface{}{7}, args)
}

func TestRelationOptions(t *testing.T) {
	rel := grid.Relation{Field: "category_id", Table: "categories", Key: "id", Label: "name"}
	a := NewAssembler(productGrid(t), questionSB)

	sql, args, err := a.RelationOptions(rel)
	require.NoError(t, err)
	assert.Equal(t, "SELECT id, name FROM categories ORDER BY name ASC", sql)
	assert.Empty(t, args)
}

func TestRelationOptionsFiltered(t *testing.T) {
	rel := grid.Relation{
		Field: "category_id", Table: "categories", Key: "id", Label: "name",
		Filter:  &grid.Clause{Column: "active", Op: "=", Value: 1},
		OrderBy: "id", OrderDir: "desc",
	}
	a := NewAssembler(productGrid(t), questionSB)

	sql, args, err := a.RelationOptions(rel)
	require.NoError(t, err)
	assert.Equal(t, "SELECT id, name FROM categories WHERE categories.active = ? ORDER BY id DESC", sql)
	assert.Equal(t, []interface{}{1}, args)
}

func TestInsertWritableFieldsOnly(t *testing.T) {
	cfg, err := grid.New("products").
		Columns("name", "price").
		Fields("name", "price", "created_at").
		ReadOnly("created_at").
		Build()
	require.NoError(t, err)
	a := NewAssembler(cfg, questionSB)

	sql, args, err := a.Insert(map[string]interface{}{
		"name":       "Widget",
		"price":      9.5,
		"created_at": "2026-01-01", // read-only, dropped
		"injected":   "nope",       // undeclared, dropped
	}, false)
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO products (name,price) VALUES (?,?)", sql)
	assert.Equal(t, []interface{}{"Widget", 9.5}, args)
}

func TestInsertReturningForDollarPlaceholders(t *testing.T) {
	a := NewAssembler(productGrid(t), dollarSB)

	sql, args, err := a.Insert(map[string]interface{}{"name": "Widget"}, true)
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO products (name) VALUES ($1) RETURNING id", sql)
	assert.Equal(t, []interface{}{"Widget"}, args)
}

func TestInsertNoWritableFields(t *testing.T) {
	a := NewAssembler(productGrid(t), questionSB)

	_, _, err := a.Insert(map[string]interface{}{"bogus": 1}, false)
	assert.ErrorIs(t, err, ErrNoWritableFields)
}

func TestUpdate(t *testing.T) {
	a := NewAssembler(productGrid(t), questionSB)

	sql, args, err := a.Update(7, map[string]interface{}{"price": 12, "name": "New"})
	require.NoError(t, err)
	// Deterministic column order: sorted by field name.
	assert.Equal(t, "UPDATE products SET name = ?, price = ? WHERE id = ?", sql)
	assert.Equal(t, []interface{}{"New", 12, 7}, args)
}

func TestDelete(t *testing.T) {
	a := NewAssembler(productGrid(t), questionSB)

	sql, args, err := a.Delete(3)
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM products WHERE id = ?", sql)
	assert.Equal(t, []interface{}{3}, args)
}

func TestCountValue(t *testing.T) {
	a := NewAssembler(productGrid(t), questionSB)

	sql, args, err := a.CountValue("name", "Widget", nil)
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*) FROM products WHERE name = ?", sql)
	assert.Equal(t, []interface{}{"Widget"}, args)

	sql, args, err = a.CountValue("name", "Widget", 7)
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*) FROM products WHERE name = ? AND id <> ?", sql)
	assert.Equal(t, []interface{}{"Widget", 7}, args)
}

func TestCountValueRejectsBadColumn(t *testing.T) {
	a := NewAssembler(productGrid(t), questionSB)

	_, _, err := a.CountValue("name; --", "x", nil)
	assert.ErrorIs(t, err, grid.ErrInvalidIdentifier)
}

func TestEffectivePageSize(t *testing.T) {
	cfg := productGrid(t) // page size 20 by default

	assert.Equal(t, 20, FetchParams{}.EffectivePageSize(cfg))
	assert.Equal(t, 5, FetchParams{PageSize: 5}.EffectivePageSize(cfg))
	assert.Equal(t, grid.PageSizeAll, FetchParams{PageSize: grid.PageSizeAll}.EffectivePageSize(cfg))
}
