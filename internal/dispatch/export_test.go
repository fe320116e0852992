// filepath: internal/dispatch/export_test.go
package dispatch

import (
	"encoding/csv"
	"net/http"
	"strings"
	"testing"

	"sqlgrid/internal/grid"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportCSV(t *testing.T) {
	d, _ := newDispatcherForTest(t)
	cfg := productGridConfig(t)

	rr := doAction(t, d, cfg, "export_csv", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="products.csv"`, rr.Header().Get("Content-Disposition"))

	body := rr.Body.Bytes()
	// UTF-8 BOM for Excel compatibility
	require.True(t, len(body) > 3)
	assert.Equal(t, []byte{0xEF, 0xBB, 0xBF}, body[:3])

	records, err := csv.NewReader(strings.NewReader(string(body[3:]))).ReadAll()
	require.NoError(t, err)
	// header + every row, pagination bypassed
	require.Len(t, records, 26)
	assert.Equal(t, []string{"name", "sku", "price", "status"}, records[0])
	assert.Equal(t, "Product 01", records[1][0])
	assert.Equal(t, "SKU-025", records[25][1])
}

func TestExportExcelContentType(t *testing.T) {
	d, _ := newDispatcherForTest(t)
	cfg := productGridConfig(t)

	rr := doAction(t, d, cfg, "export_excel", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/vnd.ms-excel", rr.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="products.xls"`, rr.Header().Get("Content-Disposition"))
}

func TestExportHonorsSearchFilter(t *testing.T) {
	d, _ := newDispatcherForTest(t)
	cfg := productGridConfig(t)

	rr := doAction(t, d, cfg, "export_csv", map[string]string{"search": "sku-007"})
	require.Equal(t, http.StatusOK, rr.Code)

	records, err := csv.NewReader(strings.NewReader(string(rr.Body.Bytes()[3:]))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Product 07", records[1][0])
}

func TestExportSkipsHiddenColumns(t *testing.T) {
	d, _ := newDispatcherForTest(t)
	cfg, err := grid.New("products").
		Columns("name", "price").
		HiddenColumn("sku").
		Build()
	require.NoError(t, err)

	rr := doAction(t, d, cfg, "export_csv", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	records, err := csv.NewReader(strings.NewReader(string(rr.Body.Bytes()[3:]))).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "price"}, records[0])
}

func TestExportDisabled(t *testing.T) {
	d, _ := newDispatcherForTest(t)
	cfg, err := grid.New("products").
		Columns("name").
		Disable("export").
		Build()
	require.NoError(t, err)

	rr := doAction(t, d, cfg, "export_csv", nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}
