package inventory

import (
	"errors"
	"fmt"
	"strings"

	"stok-takip/internal/apierr"
	"stok-takip/internal/auth"
	"stok-takip/internal/database"
	"stok-takip/internal/logger"
	"stok-takip/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type StockInRequest struct {
	ProductID     uint     `json:"productId" validate:"required"`
	Quantity      float64  `json:"quantity"`
	UnitPrice     *float64 `json:"unitPrice"`
	Supplier      string   `json:"supplier" validate:"max=100"`
	InvoiceNumber string   `json:"invoiceNumber" validate:"max=64"`
	Reason        string   `json:"reason" validate:"max=200"`
}

type StockOutRequest struct {
	ProductID uint    `json:"productId" validate:"required"`
	Quantity  float64 `json:"quantity"`
	Reason    string  `json:"reason" validate:"max=200"`
}

type AdjustRequest struct {
	ProductID uint     `json:"productId" validate:"required"`
	NewStock  *float64 `json:"newStock" validate:"required"`
	Reason    string   `json:"reason" validate:"max=200"`
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apierr.BadRequest("Invalid request body")
	}
	return apierr.Validate(out)
}

// POST /api/stock/in
func StockInHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body StockInRequest
		if err := parseBody(c, &body); err != nil {
			return err
		}

		res, err := StockIn(database.DB, auth.TenantID(c), actorFrom(c), StockInInput{
			ProductID:     body.ProductID,
			Quantity:      body.Quantity,
			UnitPrice:     body.UnitPrice,
			Supplier:      strings.TrimSpace(body.Supplier),
			InvoiceNumber: strings.TrimSpace(body.InvoiceNumber),
			Reason:        strings.TrimSpace(body.Reason),
		})
		if err != nil {
			return ledgerError(c, err)
		}
		return movementCreated(c, "Stock added", res)
	}
}

// POST /api/stock/out
func StockOutHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body StockOutRequest
		if err := parseBody(c, &body); err != nil {
			return err
		}

		res, err := StockOut(database.DB, auth.TenantID(c), actorFrom(c), StockOutInput{
			ProductID: body.ProductID,
			Quantity:  body.Quantity,
			Reason:    strings.TrimSpace(body.Reason),
		})
		if err != nil {
			return ledgerError(c, err)
		}
		return movementCreated(c, "Stock removed", res)
	}
}

// POST /api/stock/adjust
func AdjustStockHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body AdjustRequest
		if err := parseBody(c, &body); err != nil {
			return err
		}

		res, err := Adjust(database.DB, auth.TenantID(c), actorFrom(c), AdjustInput{
			ProductID: body.ProductID,
			NewStock:  *body.NewStock,
			Reason:    strings.TrimSpace(body.Reason),
		})
		if err != nil {
			return ledgerError(c, err)
		}
		return movementCreated(c, "Stock adjusted", res)
	}
}

func movementCreated(c *fiber.Ctx, message string, res *Result) error {
	logger.FromFiber(c).Info("stock movement recorded",
		zap.Uint("product_id", res.Product.ID),
		zap.String("type", string(res.Movement.Type)),
		zap.Float64("previous", res.Movement.PreviousStock),
		zap.Float64("new", res.Movement.NewStock))

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":  message,
		"movement": res.Movement,
		"product":  NewProductView(res.Product),
	})
}

// GET /api/stock/movements?product=1&type=out&startDate=2025-01-01&endDate=2025-01-31&page=1&limit=50
func ListMovementsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.Model(&models.StockMovement{}).Where("tenant_id = ?", auth.TenantID(c))

		productID, err := QueryID(c, "product")
		if err != nil {
			return err
		}
		if productID != 0 {
			dbq = dbq.Where("product_id = ?", productID)
		}
		if v := c.Query("type"); v != "" {
			if !models.MovementType(v).Valid() {
				return apierr.Validation("type", "type must be one of: in, out, correction, waste")
			}
			dbq = dbq.Where("type = ?", v)
		}

		from, to, err := DateRange(c)
		if err != nil {
			return err
		}
		if !from.IsZero() {
			dbq = dbq.Where("created_at >= ?", from)
		}
		if !to.IsZero() {
			dbq = dbq.Where("created_at <= ?", to)
		}

		return paginatedMovements(c, dbq, ParsePage(c, 50))
	}
}

// GET /api/stock/movements/:productId
func ProductMovementsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		productID, err := ParseID(c, "productId")
		if err != nil {
			return err
		}
		tenantID := auth.TenantID(c)

		var product models.Product
		if err := database.DB.Unscoped().Where("id = ? AND tenant_id = ?", productID, tenantID).First(&product).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierr.NotFound("Product not found")
			}
			return apierr.Wrap(err, "Could not load product")
		}

		dbq := database.DB.Model(&models.StockMovement{}).
			Where("tenant_id = ? AND product_id = ?", tenantID, productID)
		return paginatedMovements(c, dbq, ParsePage(c, 20))
	}
}

func paginatedMovements(c *fiber.Ctx, dbq *gorm.DB, page Page) error {
	dbq = dbq.Session(&gorm.Session{})

	var total int64
	if err := dbq.Count(&total).Error; err != nil {
		return apierr.Wrap(err, "Could not count movements")
	}

	var movements []models.StockMovement
	err := withProduct(dbq).
		Order("created_at desc, id desc").
		Offset(page.Offset()).Limit(page.Limit).
		Find(&movements).Error
	if err != nil {
		return apierr.Wrap(err, "Could not list movements")
	}

	return c.JSON(fiber.Map{
		"movements":   movements,
		"totalPages":  page.TotalPages(total),
		"currentPage": page.Number,
		"total":       total,
	})
}

// withProduct preloads the product (even if deleted since) and its category.
func withProduct(dbq *gorm.DB) *gorm.DB {
	return dbq.
		Preload("Product", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Preload("Product.Category", func(db *gorm.DB) *gorm.DB { return db.Unscoped() })
}

// GET /api/stock/summary
func StockSummaryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tenantID := auth.TenantID(c)

		summary, err := Summarize(database.DB, tenantID)
		if err != nil {
			return apierr.Wrap(err, "Could not build stock summary")
		}

		var recent []models.StockMovement
		err = withProduct(database.DB.Where("tenant_id = ?", tenantID)).
			Order("created_at desc, id desc").
			Limit(10).
			Find(&recent).Error
		if err != nil {
			return apierr.Wrap(err, "Could not list recent movements")
		}

		return c.JSON(fiber.Map{
			"totalProducts":   summary.TotalProducts,
			"outOfStock":      summary.OutOfStock,
			"criticalStock":   summary.CriticalStock,
			"totalValue":      summary.TotalValue,
			"recentMovements": recent,
		})
	}
}

// StockTotals are the headline inventory figures of a tenant.
type StockTotals struct {
	TotalProducts int64   `json:"totalProducts"`
	OutOfStock    int64   `json:"outOfStock"`
	CriticalStock int64   `json:"criticalStock"`
	TotalValue    float64 `json:"totalValue"`
}

// Summarize counts active products by stock status and sums their value.
func Summarize(db *gorm.DB, tenantID uint) (StockTotals, error) {
	var products []models.Product
	err := db.Select("id", "current_stock", "min_stock", "max_stock", "unit_price").
		Where("tenant_id = ? AND is_active = ?", tenantID, true).
		Find(&products).Error
	if err != nil {
		return StockTotals{}, fmt.Errorf("load products: %w", err)
	}

	var totals StockTotals
	value := decimal.Zero
	for i := range products {
		p := &products[i]
		totals.TotalProducts++
		switch p.StockStatus() {
		case models.StockOut:
			totals.OutOfStock++
		case models.StockCritical:
			totals.CriticalStock++
		}
		value = value.Add(decimal.NewFromFloat(p.CurrentStock).Mul(decimal.NewFromFloat(p.UnitPrice)))
	}
	totals.TotalValue, _ = value.Round(2).Float64()
	return totals, nil
}
