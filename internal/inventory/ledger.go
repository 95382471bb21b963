package inventory

import (
	"errors"
	"fmt"
	"strconv"

	"stok-takip/internal/metrics"
	"stok-takip/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be greater than zero")
	ErrNegativeStock   = errors.New("stock cannot be negative")
	ErrNegativePrice   = errors.New("unit price cannot be negative")
	ErrNoOp            = errors.New("new stock equals the current stock")
	ErrProductNotFound = errors.New("product not found")
	ErrStockChanged    = errors.New("stock was changed by another request, reload and try again")
)

// InsufficientStockError is returned when an outgoing movement exceeds the
// available stock.
type InsufficientStockError struct {
	Available float64
	Requested float64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Insufficient stock! Current: %s, requested: %s",
		formatQty(e.Available), formatQty(e.Requested))
}

const (
	ReasonStockIn    = "Stock in"
	ReasonStockOut   = "Stock out"
	ReasonAdjustment = "Stock adjustment"
	ReasonWaste      = "Waste"
	ReasonInitial    = "Initial stock"

	systemUser = "System"
)

// Actor is who a movement is attributed to.
type Actor struct {
	UserID uint
	Name   string
}

type StockInInput struct {
	ProductID     uint
	Quantity      float64
	UnitPrice     *float64
	Supplier      string
	InvoiceNumber string
	Reason        string
}

type StockOutInput struct {
	ProductID uint
	Quantity  float64
	Reason    string
}

type AdjustInput struct {
	ProductID uint
	NewStock  float64
	Reason    string
}

// Result is the committed movement and the product after it.
type Result struct {
	Movement models.StockMovement
	Product  models.Product
}

// StockIn adds quantity to the product. A supplied unit price becomes the
// product's new unit price.
func StockIn(db *gorm.DB, tenantID uint, actor Actor, in StockInInput) (*Result, error) {
	if in.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if in.UnitPrice != nil && *in.UnitPrice < 0 {
		return nil, ErrNegativePrice
	}

	return apply(db, tenantID, in.ProductID, func(_ *gorm.DB, p *models.Product) (*models.StockMovement, error) {
		price := p.UnitPrice
		if in.UnitPrice != nil && *in.UnitPrice > 0 {
			price = *in.UnitPrice
			p.UnitPrice = price
		}
		return &models.StockMovement{
			Type:          models.MovementIn,
			Quantity:      in.Quantity,
			NewStock:      addQty(p.CurrentStock, in.Quantity),
			UnitPrice:     price,
			Reason:        orDefault(in.Reason, ReasonStockIn),
			Supplier:      in.Supplier,
			InvoiceNumber: in.InvoiceNumber,
		}, nil
	}, actor)
}

// StockOut removes quantity. It fails with *InsufficientStockError when the
// product does not hold enough.
func StockOut(db *gorm.DB, tenantID uint, actor Actor, in StockOutInput) (*Result, error) {
	return outgoing(db, tenantID, actor, in, models.MovementOut, ReasonStockOut)
}

// RecordWaste removes spoiled or lost stock. It follows the stock-out rules.
func RecordWaste(db *gorm.DB, tenantID uint, actor Actor, in StockOutInput) (*Result, error) {
	return outgoing(db, tenantID, actor, in, models.MovementWaste, ReasonWaste)
}

func outgoing(db *gorm.DB, tenantID uint, actor Actor, in StockOutInput, kind models.MovementType, defaultReason string) (*Result, error) {
	if in.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	return apply(db, tenantID, in.ProductID, func(_ *gorm.DB, p *models.Product) (*models.StockMovement, error) {
		if in.Quantity > p.CurrentStock {
			return nil, &InsufficientStockError{Available: p.CurrentStock, Requested: in.Quantity}
		}
		return &models.StockMovement{
			Type:      kind,
			Quantity:  in.Quantity,
			NewStock:  addQty(p.CurrentStock, -in.Quantity),
			UnitPrice: p.UnitPrice,
			Reason:    orDefault(in.Reason, defaultReason),
		}, nil
	}, actor)
}

// Adjust sets the stock to an absolute value, recording the difference as a
// correction.
func Adjust(db *gorm.DB, tenantID uint, actor Actor, in AdjustInput) (*Result, error) {
	if in.NewStock < 0 {
		return nil, ErrNegativeStock
	}

	return apply(db, tenantID, in.ProductID, func(_ *gorm.DB, p *models.Product) (*models.StockMovement, error) {
		if in.NewStock == p.CurrentStock {
			return nil, ErrNoOp
		}
		diff := addQty(in.NewStock, -p.CurrentStock)
		if diff < 0 {
			diff = -diff
		}
		return &models.StockMovement{
			Type:      models.MovementCorrection,
			Quantity:  diff,
			NewStock:  in.NewStock,
			UnitPrice: p.UnitPrice,
			Reason:    orDefault(in.Reason, ReasonAdjustment),
		}, nil
	}, actor)
}

// RecordInitialStock writes the opening movement of a freshly created
// product. It must run in the transaction that created the product and is not
// counted in metrics until InitialStockCommitted.
func RecordInitialStock(tx *gorm.DB, p *models.Product, actor Actor) (*models.StockMovement, error) {
	if p.CurrentStock <= 0 {
		return nil, nil
	}
	m := &models.StockMovement{
		TenantID:      p.TenantID,
		ProductID:     p.ID,
		Type:          models.MovementIn,
		Quantity:      p.CurrentStock,
		PreviousStock: 0,
		NewStock:      p.CurrentStock,
		UnitPrice:     p.UnitPrice,
		TotalValue:    models.LineValue(p.CurrentStock, p.UnitPrice),
		Reason:        ReasonInitial,
	}
	attribute(m, actor)
	if err := tx.Create(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

// InitialStockCommitted counts the opening movement of p. Call it after the
// transaction that created p has committed.
func InitialStockCommitted(p *models.Product) {
	if p.CurrentStock > 0 {
		metrics.RecordMovement(string(models.MovementIn))
	}
}

type planFunc func(tx *gorm.DB, p *models.Product) (*models.StockMovement, error)

// apply loads the product inside a transaction, lets plan compute the
// movement, appends it and moves the product to the new stock with a
// compare-and-set on the stock that was read.
func apply(db *gorm.DB, tenantID, productID uint, plan planFunc, actor Actor) (*Result, error) {
	if productID == 0 {
		return nil, ErrProductNotFound
	}

	var res Result
	err := db.Transaction(func(tx *gorm.DB) error {
		var p models.Product
		if err := tx.Where("id = ? AND tenant_id = ?", productID, tenantID).First(&p).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProductNotFound
			}
			return err
		}

		previous := p.CurrentStock
		m, err := plan(tx, &p)
		if err != nil {
			return err
		}
		if m.NewStock < 0 {
			return ErrNegativeStock
		}

		m.TenantID = tenantID
		m.ProductID = p.ID
		m.PreviousStock = previous
		m.TotalValue = models.LineValue(m.Quantity, m.UnitPrice)
		attribute(m, actor)
		if err := tx.Create(m).Error; err != nil {
			return err
		}

		upd := tx.Model(&models.Product{}).
			Where("id = ? AND tenant_id = ? AND current_stock = ?", p.ID, tenantID, previous).
			Updates(map[string]interface{}{
				"current_stock": m.NewStock,
				"unit_price":    p.UnitPrice,
			})
		if upd.Error != nil {
			return upd.Error
		}
		if upd.RowsAffected == 0 {
			return ErrStockChanged
		}

		p.CurrentStock = m.NewStock
		res.Movement = *m
		res.Product = p
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrStockChanged) {
			metrics.StockConflicts.Inc()
		}
		return nil, err
	}

	metrics.RecordMovement(string(res.Movement.Type))
	return &res, nil
}

func attribute(m *models.StockMovement, actor Actor) {
	if actor.UserID != 0 {
		id := actor.UserID
		m.UserID = &id
	}
	m.UserName = orDefault(actor.Name, systemUser)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// addQty sums stock quantities in decimal so repeated movements do not drift.
func addQty(a, b float64) float64 {
	v, _ := decimal.NewFromFloat(a).Add(decimal.NewFromFloat(b)).Float64()
	return v
}

func formatQty(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
