package inventory

import (
	"errors"
	"testing"

	"stok-takip/internal/metrics"
	"stok-takip/internal/models"
	"stok-takip/internal/testutil"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var tester = Actor{UserID: 1, Name: "Ana Garcia"}

func reload(t *testing.T, db *gorm.DB, id uint) models.Product {
	t.Helper()
	var p models.Product
	require.NoError(t, db.First(&p, id).Error)
	return p
}

func movements(t *testing.T, db *gorm.DB, productID uint) []models.StockMovement {
	t.Helper()
	var ms []models.StockMovement
	require.NoError(t, db.Where("product_id = ?", productID).Order("id").Find(&ms).Error)
	return ms
}

func TestStockInAddsQuantityAndUpdatesPrice(t *testing.T) {
	db := testutil.NewDB(t)
	tenant, _ := testutil.Tenant(t, db, "Cafe Luna")
	cat := testutil.Category(t, db, tenant.ID, "Coffee")
	p := testutil.Product(t, db, tenant.ID, cat.ID, "Espresso Beans", 10, 5)

	price := 12.5
	res, err := StockIn(db, tenant.ID, tester, StockInInput{
		ProductID: p.ID, Quantity: 4, UnitPrice: &price, Supplier: "Roastery", InvoiceNumber: "INV-7",
	})
	require.NoError(t, err)

	assert.Equal(t, 14.0, res.Product.CurrentStock)
	assert.Equal(t, models.MovementIn, res.Movement.Type)
	assert.Equal(t, 10.0, res.Movement.PreviousStock)
	assert.Equal(t, 14.0, res.Movement.NewStock)
	assert.Equal(t, 50.0, res.Movement.TotalValue)
	assert.Equal(t, ReasonStockIn, res.Movement.Reason)
	assert.Equal(t, "Ana Garcia", res.Movement.UserName)

	stored := reload(t, db, p.ID)
	assert.Equal(t, 14.0, stored.CurrentStock)
	assert.Equal(t, 12.5, stored.UnitPrice)
}

func TestStockInKeepsPriceWhenNotGiven(t *testing.T) {
	db := testutil.NewDB(t)
	tenant, _ := testutil.Tenant(t, db, "Cafe Luna")
	cat := testutil.Category(t, db, tenant.ID, "Coffee")
	p := testutil.Product(t, db, tenant.ID, cat.ID, "Milk", 0, 5)

	res, err := StockIn(db, tenant.ID, Actor{}, StockInInput{ProductID: p.ID, Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, 10.0, res.Movement.UnitPrice)
	assert.Equal(t, 30.0, res.Movement.TotalValue)
	assert.Equal(t, "System", res.Movement.UserName)
	assert.Nil(t, res.Movement.UserID)
}

func TestStockInRejectsBadInput(t *testing.T) {
	db := testutil.NewDB(t)
	tenant, _ := testutil.Tenant(t, db, "Cafe Luna")
	cat := testutil.Category(t, db, tenant.ID, "Coffee")
	p := testutil.Product(t, db, tenant.ID, cat.ID, "Milk", 1, 5)

	_, err := StockIn(db, tenant.ID, tester, StockInInput{ProductID: p.ID, Quantity: 0})
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = StockIn(db, tenant.ID, tester, StockInInput{ProductID: p.ID, Quantity: -2})
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	neg := -1.0
	_, err = StockIn(db, tenant.ID, tester, StockInInput{ProductID: p.ID, Quantity: 1, UnitPrice: &neg})
	assert.ErrorIs(t, err, ErrNegativePrice)

	assert.Empty(t, movements(t, db, p.ID))
}

func TestStockOutScenario(t *testing.T) {
	db := testutil.NewDB(t)
	tenant, _ := testutil.Tenant(t, db, "Cafe Luna")
	cat := testutil.Category(t, db, tenant.ID, "Coffee")
	p := testutil.Product(t, db, tenant.ID, cat.ID, "Espresso Beans", 10, 5)
	assert.Equal(t, models.StockNormal, p.StockStatus())

	res, err := StockOut(db, tenant.ID, tester, StockOutInput{ProductID: p.ID, Quantity: 8})
	require.NoError(t, err)
	assert.Equal(t, 2.0, res.Product.CurrentStock)
	assert.Equal(t, models.StockCritical, res.Product.StockStatus())
	assert.Equal(t, 10.0, res.Movement.PreviousStock)
	assert.Equal(t, 2.0, res.Movement.NewStock)
	assert.Equal(t, ReasonStockOut, res.Movement.Reason)

	_, err = StockOut(db, tenant.ID, tester, StockOutInput{ProductID: p.ID, Quantity: 5})
	var insufficient *InsufficientStockError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, 2.0, insufficient.Available)
	assert.Equal(t, 5.0, insufficient.Requested)
	assert.Equal(t, "Insufficient stock! Current: 2, requested: 5", err.Error())

	assert.Equal(t, 2.0, reload(t, db, p.ID).CurrentStock)
	assert.Len(t, movements(t, db, p.ID), 1)
}

func TestStockOutOfEverythingLeavesZero(t *testing.T) {
	db := testutil.NewDB(t)
	tenant, _ := testutil.Tenant(t, db, "Cafe Luna")
	cat := testutil.Category(t, db, tenant.ID, "Coffee")
	p := testutil.Product(t, db, tenant.ID, cat.ID, "Sugar", 0.3, 1)

	res, err := StockOut(db, tenant.ID, tester, StockOutInput{ProductID: p.ID, Quantity: 0.1})
	require.NoError(t, err)
	assert.Equal(t, 0.2, res.Product.CurrentStock)

	res, err = StockOut(db, tenant.ID, tester, StockOutInput{ProductID: p.ID, Quantity: 0.2})
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Product.CurrentStock)
	assert.Equal(t, models.StockOut, res.Product.StockStatus())
}

func TestRecordWaste(t *testing.T) {
	db := testutil.NewDB(t)
	tenant, _ := testutil.Tenant(t, db, "Cafe Luna")
	cat := testutil.Category(t, db, tenant.ID, "Dairy")
	p := testutil.Product(t, db, tenant.ID, cat.ID, "Cream", 6, 2)

	res, err := RecordWaste(db, tenant.ID, tester, StockOutInput{ProductID: p.ID, Quantity: 1.5, Reason: "Expired"})
	require.NoError(t, err)
	assert.Equal(t, models.MovementWaste, res.Movement.Type)
	assert.Equal(t, "Expired", res.Movement.Reason)
	assert.Equal(t, 4.5, res.Product.CurrentStock)

	_, err = RecordWaste(db, tenant.ID, tester, StockOutInput{ProductID: p.ID, Quantity: 10})
	var insufficient *InsufficientStockError
	assert.ErrorAs(t, err, &insufficient)
}

func TestAdjust(t *testing.T) {
	db := testutil.NewDB(t)
	tenant, _ := testutil.Tenant(t, db, "Cafe Luna")
	cat := testutil.Category(t, db, tenant.ID, "Coffee")
	p := testutil.Product(t, db, tenant.ID, cat.ID, "Espresso Beans", 10, 5)

	_, err := Adjust(db, tenant.ID, tester, AdjustInput{ProductID: p.ID, NewStock: 10})
	assert.ErrorIs(t, err, ErrNoOp)

	_, err = Adjust(db, tenant.ID, tester, AdjustInput{ProductID: p.ID, NewStock: -1})
	assert.ErrorIs(t, err, ErrNegativeStock)

	res, err := Adjust(db, tenant.ID, tester, AdjustInput{ProductID: p.ID, NewStock: 7})
	require.NoError(t, err)
	assert.Equal(t, models.MovementCorrection, res.Movement.Type)
	assert.Equal(t, 3.0, res.Movement.Quantity)
	assert.Equal(t, ReasonAdjustment, res.Movement.Reason)

	res, err = Adjust(db, tenant.ID, tester, AdjustInput{ProductID: p.ID, NewStock: 12, Reason: "Counted"})
	require.NoError(t, err)
	assert.Equal(t, 5.0, res.Movement.Quantity)
	assert.Equal(t, 7.0, res.Movement.PreviousStock)
	assert.Equal(t, 12.0, reload(t, db, p.ID).CurrentStock)

	res, err = Adjust(db, tenant.ID, tester, AdjustInput{ProductID: p.ID, NewStock: 0})
	require.NoError(t, err)
	assert.Equal(t, 12.0, res.Movement.Quantity)
}

func TestLedgerIsTenantScoped(t *testing.T) {
	db := testutil.NewDB(t)
	luna, _ := testutil.Tenant(t, db, "Cafe Luna")
	sol, _ := testutil.Tenant(t, db, "Cafe Sol")
	cat := testutil.Category(t, db, luna.ID, "Coffee")
	p := testutil.Product(t, db, luna.ID, cat.ID, "Espresso Beans", 10, 5)

	_, err := StockIn(db, sol.ID, tester, StockInInput{ProductID: p.ID, Quantity: 1})
	assert.ErrorIs(t, err, ErrProductNotFound)
	_, err = StockOut(db, sol.ID, tester, StockOutInput{ProductID: p.ID, Quantity: 1})
	assert.ErrorIs(t, err, ErrProductNotFound)
	_, err = Adjust(db, sol.ID, tester, AdjustInput{ProductID: p.ID, NewStock: 1})
	assert.ErrorIs(t, err, ErrProductNotFound)

	assert.Equal(t, 10.0, reload(t, db, p.ID).CurrentStock)
}

func TestLedgerIgnoresDeletedProducts(t *testing.T) {
	db := testutil.NewDB(t)
	tenant, _ := testutil.Tenant(t, db, "Cafe Luna")
	cat := testutil.Category(t, db, tenant.ID, "Coffee")
	p := testutil.Product(t, db, tenant.ID, cat.ID, "Espresso Beans", 10, 5)
	require.NoError(t, db.Delete(p).Error)

	_, err := StockIn(db, tenant.ID, tester, StockInInput{ProductID: p.ID, Quantity: 1})
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestApplyDetectsConcurrentChange(t *testing.T) {
	db := testutil.NewDB(t)
	tenant, _ := testutil.Tenant(t, db, "Cafe Luna")
	cat := testutil.Category(t, db, tenant.ID, "Coffee")
	p := testutil.Product(t, db, tenant.ID, cat.ID, "Espresso Beans", 10, 5)

	racing := func(tx *gorm.DB, prod *models.Product) (*models.StockMovement, error) {
		// another writer lands between our read and our update
		if err := tx.Model(&models.Product{}).Where("id = ?", prod.ID).Update("current_stock", 4).Error; err != nil {
			return nil, err
		}
		return &models.StockMovement{Type: models.MovementOut, Quantity: 1, NewStock: prod.CurrentStock - 1}, nil
	}

	_, err := apply(db, tenant.ID, p.ID, racing, tester)
	assert.ErrorIs(t, err, ErrStockChanged)

	// the whole transaction rolled back, including the racing write
	assert.Equal(t, 10.0, reload(t, db, p.ID).CurrentStock)
	assert.Empty(t, movements(t, db, p.ID))
}

func TestRecordInitialStock(t *testing.T) {
	db := testutil.NewDB(t)
	tenant, _ := testutil.Tenant(t, db, "Cafe Luna")
	cat := testutil.Category(t, db, tenant.ID, "Coffee")
	p := testutil.Product(t, db, tenant.ID, cat.ID, "Espresso Beans", 10, 5)

	m, err := RecordInitialStock(db, p, tester)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, ReasonInitial, m.Reason)
	assert.Equal(t, 0.0, m.PreviousStock)
	assert.Equal(t, 10.0, m.NewStock)
	assert.Equal(t, 100.0, m.TotalValue)

	empty := testutil.Product(t, db, tenant.ID, cat.ID, "Oat Milk", 0, 5)
	m, err = RecordInitialStock(db, empty, tester)
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestInitialStockCountedOnlyAfterCommit(t *testing.T) {
	db := testutil.NewDB(t)
	tenant, _ := testutil.Tenant(t, db, "Cafe Luna")
	cat := testutil.Category(t, db, tenant.ID, "Coffee")
	inbound := metrics.StockMovements.WithLabelValues(string(models.MovementIn))
	before := promtest.ToFloat64(inbound)

	rolledBack := newProduct(tenant.ID, cat.ID, "Espresso Beans", 12)
	err := db.Transaction(func(tx *gorm.DB) error {
		require.NoError(t, CreateProduct(tx, rolledBack, tester))
		return errors.New("later step failed")
	})
	require.Error(t, err)
	assert.Equal(t, before, promtest.ToFloat64(inbound))

	var count int64
	db.Model(&models.StockMovement{}).Count(&count)
	assert.Zero(t, count)

	res, err := ImportProducts(db, tenant.ID, tester, workbook(t, [][]any{
		{"Cola", "Drinks", "bottle", 24},
		{"Fanta", "Drinks", "bottle", 0},
	}))
	require.NoError(t, err)
	require.Equal(t, 2, res.Created)
	assert.Equal(t, before+1, promtest.ToFloat64(inbound))
}
