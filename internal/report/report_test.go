package report

import (
	"bytes"
	"testing"
	"time"

	"stok-takip/internal/inventory"
	"stok-takip/internal/models"
	"stok-takip/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

var clerk = inventory.Actor{UserID: 1, Name: "Ana Garcia"}

type fixture struct {
	db      *gorm.DB
	tenant  *models.Tenant
	coffee  *models.Category
	dairy   *models.Category
	beans   *models.Product
	milk    *models.Product
	sugar   *models.Product
	foreign *models.Product
}

func setup(t *testing.T) fixture {
	t.Helper()
	db := testutil.NewDB(t)
	tenant, _ := testutil.Tenant(t, db, "Cafe Luna")
	coffee := testutil.Category(t, db, tenant.ID, "Coffee")
	dairy := testutil.Category(t, db, tenant.ID, "Dairy")

	other, _ := testutil.Tenant(t, db, "Other Place")
	otherCat := testutil.Category(t, db, other.ID, "Coffee")

	return fixture{
		db:      db,
		tenant:  tenant,
		coffee:  coffee,
		dairy:   dairy,
		beans:   testutil.Product(t, db, tenant.ID, coffee.ID, "Espresso Beans", 10, 5),
		milk:    testutil.Product(t, db, tenant.ID, dairy.ID, "Milk", 0, 5),
		sugar:   testutil.Product(t, db, tenant.ID, coffee.ID, "Sugar", 3, 5),
		foreign: testutil.Product(t, db, other.ID, otherCat.ID, "Foreign Beans", 100, 5),
	}
}

func movement(t *testing.T, db *gorm.DB, p *models.Product, typ models.MovementType, qty float64, at time.Time) {
	t.Helper()
	m := models.StockMovement{
		TenantID:   p.TenantID,
		ProductID:  p.ID,
		Type:       typ,
		Quantity:   qty,
		UnitPrice:  p.UnitPrice,
		TotalValue: models.LineValue(qty, p.UnitPrice),
		UserName:   "Ana Garcia",
		CreatedAt:  at,
	}
	require.NoError(t, db.Create(&m).Error)
}

func TestStockByCategory(t *testing.T) {
	f := setup(t)

	rows, err := StockByCategory(f.db, f.tenant.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "Coffee", rows[0].CategoryName)
	assert.EqualValues(t, 2, rows[0].TotalProducts)
	assert.Equal(t, 13.0, rows[0].TotalStock)
	assert.Equal(t, 130.0, rows[0].TotalValue)
	assert.EqualValues(t, 0, rows[0].OutOfStock)
	assert.EqualValues(t, 1, rows[0].CriticalStock)

	assert.Equal(t, "Dairy", rows[1].CategoryName)
	assert.EqualValues(t, 1, rows[1].OutOfStock)
	assert.EqualValues(t, 0, rows[1].CriticalStock)
}

func TestStockByCategorySkipsDeletedAndInactive(t *testing.T) {
	f := setup(t)
	require.NoError(t, f.db.Delete(f.sugar).Error)
	require.NoError(t, f.db.Model(f.milk).Update("is_active", false).Error)

	rows, err := StockByCategory(f.db, f.tenant.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.EqualValues(t, 1, rows[0].TotalProducts)
}

func TestStockMovementsGroupsByType(t *testing.T) {
	f := setup(t)
	_, err := inventory.StockIn(f.db, f.tenant.ID, clerk, inventory.StockInInput{ProductID: f.beans.ID, Quantity: 5})
	require.NoError(t, err)
	_, err = inventory.StockOut(f.db, f.tenant.ID, clerk, inventory.StockOutInput{ProductID: f.beans.ID, Quantity: 2})
	require.NoError(t, err)
	_, err = inventory.StockOut(f.db, f.tenant.ID, clerk, inventory.StockOutInput{ProductID: f.sugar.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = inventory.StockIn(f.db, f.foreign.TenantID, clerk, inventory.StockInInput{ProductID: f.foreign.ID, Quantity: 9})
	require.NoError(t, err)

	groups, err := StockMovements(f.db, f.tenant.ID, MovementFilter{})
	require.NoError(t, err)
	require.Len(t, groups, 2)

	assert.Equal(t, models.MovementIn, groups[0].Type)
	assert.EqualValues(t, 1, groups[0].TotalMovements)
	assert.Equal(t, 5.0, groups[0].TotalQuantity)

	out := groups[1]
	assert.Equal(t, models.MovementOut, out.Type)
	assert.EqualValues(t, 2, out.TotalMovements)
	assert.Equal(t, 3.0, out.TotalQuantity)
	assert.Equal(t, 30.0, out.TotalValue)
	require.Len(t, out.Movements, 2)
	assert.Equal(t, "Espresso Beans", out.Movements[0].Product)
	assert.Equal(t, "Coffee", out.Movements[0].Category)
	assert.Equal(t, "Ana Garcia", out.Movements[0].User)
}

func TestStockMovementsFilters(t *testing.T) {
	f := setup(t)
	now := time.Now().UTC()
	movement(t, f.db, f.beans, models.MovementIn, 4, now.AddDate(0, 0, -10))
	movement(t, f.db, f.beans, models.MovementOut, 1, now)
	movement(t, f.db, f.milk, models.MovementIn, 6, now)

	groups, err := StockMovements(f.db, f.tenant.ID, MovementFilter{Type: models.MovementIn})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.EqualValues(t, 2, groups[0].TotalMovements)

	groups, err = StockMovements(f.db, f.tenant.ID, MovementFilter{CategoryID: f.dairy.ID})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "Milk", groups[0].Movements[0].Product)

	groups, err = StockMovements(f.db, f.tenant.ID, MovementFilter{From: now.AddDate(0, 0, -1)})
	require.NoError(t, err)
	var total int64
	for _, g := range groups {
		total += g.TotalMovements
	}
	assert.EqualValues(t, 2, total)
}

func TestMostActiveProducts(t *testing.T) {
	f := setup(t)
	now := time.Now().UTC()
	movement(t, f.db, f.beans, models.MovementIn, 4, now)
	movement(t, f.db, f.beans, models.MovementOut, 1, now)
	movement(t, f.db, f.beans, models.MovementWaste, 2, now)
	movement(t, f.db, f.milk, models.MovementIn, 6, now)
	movement(t, f.db, f.sugar, models.MovementIn, 8, now.AddDate(0, 0, -40))

	rows, err := MostActiveProducts(f.db, f.tenant.ID, now.AddDate(0, 0, -30))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "Espresso Beans", rows[0].ProductName)
	assert.Equal(t, "Coffee", rows[0].CategoryName)
	assert.EqualValues(t, 3, rows[0].TotalMovements)
	assert.Equal(t, 7.0, rows[0].TotalQuantity)
	assert.Equal(t, 4.0, rows[0].InQuantity)
	assert.Equal(t, 3.0, rows[0].OutQuantity)
	assert.Equal(t, "Milk", rows[1].ProductName)
}

func TestDailySummaryBucketsInTenantZone(t *testing.T) {
	f := setup(t)
	loc := time.FixedZone("UTC+3", 3*3600)

	// 22:30 UTC is already the next day at UTC+3
	day := time.Date(2025, 3, 10, 22, 30, 0, 0, time.UTC)
	movement(t, f.db, f.beans, models.MovementIn, 2, day)
	movement(t, f.db, f.beans, models.MovementIn, 3, day.Add(time.Hour))
	movement(t, f.db, f.beans, models.MovementOut, 1, day.Add(-12*time.Hour))

	rows, err := DailySummary(f.db, f.tenant.ID, day.AddDate(0, 0, -7), day.Add(2*time.Hour), loc)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "2025-03-10", rows[0].Date)
	require.Len(t, rows[0].Movements, 1)
	assert.Equal(t, models.MovementOut, rows[0].Movements[0].Type)

	assert.Equal(t, "2025-03-11", rows[1].Date)
	require.Len(t, rows[1].Movements, 1)
	assert.EqualValues(t, 2, rows[1].Movements[0].TotalMovements)
	assert.Equal(t, 5.0, rows[1].Movements[0].TotalQuantity)
	assert.Equal(t, 50.0, rows[1].Movements[0].TotalValue)
}

func TestLowStock(t *testing.T) {
	f := setup(t)
	f.sugar.Supplier = "Sweet Co"
	require.NoError(t, f.db.Save(f.sugar).Error)

	items, err := LowStock(f.db, f.tenant.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "Milk", items[0].Name)
	assert.Equal(t, models.StockOut, items[0].StockStatus)
	assert.Equal(t, 5.0, items[0].Shortage)
	assert.Equal(t, "Dairy", items[0].Category)

	assert.Equal(t, "Sugar", items[1].Name)
	assert.Equal(t, models.StockCritical, items[1].StockStatus)
	assert.Equal(t, 2.0, items[1].Shortage)
	assert.Equal(t, "Sweet Co", items[1].Supplier)
}

func TestAnalyze(t *testing.T) {
	f := setup(t)

	res, err := Analyze(f.db, f.tenant.ID)
	require.NoError(t, err)

	assert.EqualValues(t, 3, res.Summary.TotalProducts)
	assert.Equal(t, 130.0, res.Summary.TotalValue)
	assert.Equal(t, 13.0, res.Summary.TotalStock)

	require.Len(t, res.CategoryValues, 2)
	assert.Equal(t, "Coffee", res.CategoryValues[0].CategoryName)
	assert.Equal(t, 130.0, res.CategoryValues[0].TotalValue)
	assert.Equal(t, 0.0, res.CategoryValues[1].TotalValue)

	require.Len(t, res.TopValueProducts, 3)
	assert.Equal(t, "Espresso Beans", res.TopValueProducts[0].Name)
	assert.Equal(t, 100.0, res.TopValueProducts[0].TotalValue)
}

func TestAnalyzeEmptyTenant(t *testing.T) {
	db := testutil.NewDB(t)
	tenant, _ := testutil.Tenant(t, db, "Empty")

	res, err := Analyze(db, tenant.ID)
	require.NoError(t, err)
	assert.Zero(t, res.Summary.TotalProducts)
	assert.Empty(t, res.CategoryValues)
	assert.Empty(t, res.TopValueProducts)
}

func TestWorkbook(t *testing.T) {
	f := setup(t)
	_, err := inventory.StockOut(f.db, f.tenant.ID, clerk, inventory.StockOutInput{ProductID: f.beans.ID, Quantity: 2})
	require.NoError(t, err)

	book, err := Workbook(f.db, f.tenant.ID, time.Time{}, time.Time{}, time.UTC)
	require.NoError(t, err)
	buf, err := book.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, book.Close())

	read, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer read.Close()

	assert.Equal(t, []string{productsSheet, movementsSheet}, read.GetSheetList())

	products, err := read.GetRows(productsSheet)
	require.NoError(t, err)
	require.Len(t, products, 4)
	assert.Equal(t, "Name", products[0][0])
	assert.Equal(t, "Espresso Beans", products[1][0])
	assert.Equal(t, "Coffee", products[1][1])

	movements, err := read.GetRows(movementsSheet)
	require.NoError(t, err)
	require.Len(t, movements, 2)
	assert.Equal(t, "Espresso Beans", movements[1][1])
	assert.Equal(t, "out", movements[1][2])
}
