package inventory

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"stok-takip/internal/apierr"
	"stok-takip/internal/models"
	"stok-takip/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func newProduct(tenantID, categoryID uint, name string, stock float64) *models.Product {
	return &models.Product{
		TenantID:     tenantID,
		CategoryID:   categoryID,
		Name:         name,
		Unit:         models.UnitPiece,
		CurrentStock: stock,
		MinStock:     models.DefaultMinStock,
		MaxStock:     models.DefaultMaxStock,
		UnitPrice:    2,
		IsActive:     true,
	}
}

func fieldOf(t *testing.T, err error) string {
	t.Helper()
	var apiErr *apierr.Error
	require.ErrorAs(t, err, &apiErr)
	return apiErr.Field
}

func TestCreateProductRules(t *testing.T) {
	db := testutil.NewDB(t)
	tenant, _ := testutil.Tenant(t, db, "Cafe Luna")
	other, _ := testutil.Tenant(t, db, "Other Place")
	cat := testutil.Category(t, db, tenant.ID, "Coffee")
	foreignCat := testutil.Category(t, db, other.ID, "Coffee")

	p := newProduct(tenant.ID, cat.ID, "Espresso Beans", 12)
	p.Barcode = "869000"
	require.NoError(t, CreateProduct(db, p, tester))
	assert.Equal(t, "Coffee", p.Category.Name)

	ms := movements(t, db, p.ID)
	require.Len(t, ms, 1)
	assert.Equal(t, ReasonInitial, ms[0].Reason)
	assert.Equal(t, 12.0, ms[0].NewStock)

	dup := newProduct(tenant.ID, cat.ID, "ESPRESSO beans", 0)
	assert.Equal(t, "name", fieldOf(t, CreateProduct(db, dup, tester)))

	sameCode := newProduct(tenant.ID, cat.ID, "Decaf", 0)
	sameCode.Barcode = "869000"
	assert.Equal(t, "barcode", fieldOf(t, CreateProduct(db, sameCode, tester)))

	wrongCat := newProduct(tenant.ID, foreignCat.ID, "Decaf", 0)
	assert.Equal(t, "categoryId", fieldOf(t, CreateProduct(db, wrongCat, tester)))

	bounds := newProduct(tenant.ID, cat.ID, "Decaf", 0)
	bounds.MinStock, bounds.MaxStock = 10, 5
	assert.Equal(t, "maxStock", fieldOf(t, CreateProduct(db, bounds, tester)))

	// same name is fine in another tenant
	elsewhere := newProduct(other.ID, foreignCat.ID, "Espresso Beans", 0)
	require.NoError(t, CreateProduct(db, elsewhere, tester))
	assert.Empty(t, movements(t, db, elsewhere.ID))
}

func TestWhereStockStatusMatchesClassification(t *testing.T) {
	db := testutil.NewDB(t)
	tenant, _ := testutil.Tenant(t, db, "Cafe Luna")
	cat := testutil.Category(t, db, tenant.ID, "Coffee")

	stocks := map[string]float64{"empty": 0, "low": 5, "fine": 50, "full": 1000}
	for name, stock := range stocks {
		testutil.Product(t, db, tenant.ID, cat.ID, name, stock, 5)
	}

	for _, status := range []models.StockStatus{models.StockOut, models.StockCritical, models.StockNormal, models.StockExcess} {
		var got []models.Product
		require.NoError(t, WhereStockStatus(db.Model(&models.Product{}), status).Find(&got).Error)
		require.Len(t, got, 1, status)
		assert.Equal(t, status, got[0].StockStatus())
	}
}

func workbook(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &rows[i]))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestImportProductsWithoutHeader(t *testing.T) {
	db := testutil.NewDB(t)
	tenant, _ := testutil.Tenant(t, db, "Cafe Luna")

	buf := workbook(t, [][]any{
		{"Cola", "Drinks", "şişe", 24, 6, 100, 1.5, "", "Bottler"},
		{"Fanta", "drinks", "Bottle", 12},
		{"", "Drinks", "kg"},
		{"Chips", "", "paket", -1},
	})

	res, err := ImportProducts(db, tenant.ID, tester, buf)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, 1, res.CategoriesCreated)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, 4, res.Skipped[0].Row)
	assert.True(t, strings.Contains(res.Skipped[0].Reason, "current stock"))

	var cola models.Product
	require.NoError(t, db.Preload("Category").Where("name = ?", "Cola").First(&cola).Error)
	assert.Equal(t, models.UnitBottle, cola.Unit)
	assert.Equal(t, "Drinks", cola.Category.Name)
	assert.Equal(t, models.CategoryOther, cola.Category.Type)
	assert.Equal(t, "Bottler", cola.Supplier)

	var fanta models.Product
	require.NoError(t, db.Where("name = ?", "Fanta").First(&fanta).Error)
	assert.Equal(t, cola.CategoryID, fanta.CategoryID)
	assert.EqualValues(t, models.DefaultMinStock, fanta.MinStock)
}

func TestImportProductsRejectsGarbage(t *testing.T) {
	db := testutil.NewDB(t)
	tenant, _ := testutil.Tenant(t, db, "Cafe Luna")

	_, err := ImportProducts(db, tenant.ID, tester, strings.NewReader("not a workbook"))
	assert.Equal(t, "file", fieldOf(t, err))
}

func TestImportRollsBackCategoryOfSkippedRow(t *testing.T) {
	db := testutil.NewDB(t)
	tenant, _ := testutil.Tenant(t, db, "Cafe Luna")
	cat := testutil.Category(t, db, tenant.ID, "Coffee")
	testutil.Product(t, db, tenant.ID, cat.ID, "Cola", 1, 1)

	buf := workbook(t, [][]any{
		{"Product Name", "Category", "Unit"},
		{"Cola", "Drinks", "piece"},
	})
	res, err := ImportProducts(db, tenant.ID, tester, buf)
	require.NoError(t, err)
	assert.Zero(t, res.Created)
	assert.Zero(t, res.CategoriesCreated)

	var count int64
	db.Model(&models.Category{}).Where("tenant_id = ? AND name = ?", tenant.ID, "Drinks").Count(&count)
	assert.Zero(t, count)
}

func TestParseDate(t *testing.T) {
	start, err := ParseDate("2025-01-31", false)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC), start)

	end, err := ParseDate("2025-01-31", true)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 31, 23, 59, 59, 999999999, time.UTC), end)

	exact, err := ParseDate("2025-01-31T10:00:00+03:00", true)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 31, 7, 0, 0, 0, time.UTC), exact)

	_, err = ParseDate("31.01.2025", false)
	assert.Error(t, err)
}

func TestPage(t *testing.T) {
	p := Page{Number: 3, Limit: 20}
	assert.Equal(t, 40, p.Offset())
	assert.Equal(t, 3, p.TotalPages(41))
	assert.Equal(t, 0, p.TotalPages(0))
}
