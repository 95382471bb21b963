package report

import (
	"fmt"
	"time"

	"stok-takip/internal/models"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

const (
	productsSheet  = "Products"
	movementsSheet = "Movements"
)

var (
	productHeader = []any{
		"Name", "Category", "Unit", "Current Stock", "Min Stock", "Max Stock",
		"Unit Price", "Stock Value", "Status", "Supplier", "Barcode",
	}
	movementHeader = []any{
		"Date", "Product", "Type", "Quantity", "Previous Stock", "New Stock",
		"Unit Price", "Total Value", "Reason", "User",
	}
)

// Workbook writes the tenant's active products and its movements between
// from and to (zero means unbounded) into a two-sheet workbook. Dates are
// rendered in loc. The caller closes the file.
func Workbook(db *gorm.DB, tenantID uint, from, to time.Time, loc *time.Location) (*excelize.File, error) {
	var products []models.Product
	err := db.Preload("Category", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Where("tenant_id = ? AND is_active = ?", tenantID, true).
		Order("name ASC").
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("export products: %w", err)
	}

	q := db.Preload("Product", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Where("tenant_id = ?", tenantID)
	if !from.IsZero() {
		q = q.Where("created_at >= ?", from)
	}
	if !to.IsZero() {
		q = q.Where("created_at <= ?", to)
	}
	var movements []models.StockMovement
	if err := q.Order("created_at ASC, id ASC").Find(&movements).Error; err != nil {
		return nil, fmt.Errorf("export movements: %w", err)
	}

	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), productsSheet); err != nil {
		f.Close()
		return nil, err
	}
	if _, err := f.NewSheet(movementsSheet); err != nil {
		f.Close()
		return nil, err
	}

	if err := writeProducts(f, products); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeMovements(f, movements, loc); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func writeProducts(f *excelize.File, products []models.Product) error {
	if err := f.SetSheetRow(productsSheet, "A1", &productHeader); err != nil {
		return err
	}
	for i := range products {
		p := &products[i]
		row := []any{
			p.Name, categoryName(p), string(p.Unit), p.CurrentStock, p.MinStock, p.MaxStock,
			p.UnitPrice, p.StockValue(), string(p.StockStatus()), p.Supplier, p.Barcode,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(productsSheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func writeMovements(f *excelize.File, movements []models.StockMovement, loc *time.Location) error {
	if err := f.SetSheetRow(movementsSheet, "A1", &movementHeader); err != nil {
		return err
	}
	for i := range movements {
		m := &movements[i]
		product := ""
		if m.Product != nil {
			product = m.Product.Name
		}
		row := []any{
			m.CreatedAt.In(loc).Format("2006-01-02 15:04"), product, string(m.Type), m.Quantity,
			m.PreviousStock, m.NewStock, m.UnitPrice, m.TotalValue, m.Reason, m.UserName,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(movementsSheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}
