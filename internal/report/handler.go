package report

import (
	"fmt"
	"strconv"
	"time"

	"stok-takip/internal/apierr"
	"stok-takip/internal/auth"
	"stok-takip/internal/database"
	"stok-takip/internal/inventory"
	"stok-takip/internal/logger"
	"stok-takip/internal/models"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const maxWindowDays = 366

func failed(c *fiber.Ctx, name string, err error) error {
	logger.FromFiber(c).Error("report failed", zap.String("report", name), zap.Error(err))
	return apierr.Internal("Could not build the " + name + " report")
}

// windowDays reads ?days, falling back to def and capping at a year.
func windowDays(c *fiber.Ctx, def int) (int, error) {
	v := c.Query("days")
	if v == "" {
		return def, nil
	}
	days, err := strconv.Atoi(v)
	if err != nil || days < 1 {
		return 0, apierr.Validation("days", "days must be a positive number")
	}
	if days > maxWindowDays {
		days = maxWindowDays
	}
	return days, nil
}

func tenantLocation(c *fiber.Ctx) *time.Location {
	if t := auth.CurrentTenant(c); t != nil {
		return t.Location()
	}
	return time.UTC
}

// GET /api/reports/stock-by-category
func StockByCategoryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		rows, err := StockByCategory(database.DB, auth.TenantID(c))
		if err != nil {
			return failed(c, "stock by category", err)
		}
		return c.JSON(rows)
	}
}

// GET /api/reports/stock-movements?startDate=&endDate=&type=&category=
func StockMovementsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		from, to, err := inventory.DateRange(c)
		if err != nil {
			return err
		}
		f := MovementFilter{From: from, To: to}

		if v := c.Query("type"); v != "" {
			f.Type = models.MovementType(v)
			if !f.Type.Valid() {
				return apierr.Validation("type", "type must be one of: in, out, correction, waste")
			}
		}
		if f.CategoryID, err = inventory.QueryID(c, "category"); err != nil {
			return err
		}

		groups, err := StockMovements(database.DB, auth.TenantID(c), f)
		if err != nil {
			return failed(c, "stock movements", err)
		}
		return c.JSON(groups)
	}
}

// GET /api/reports/most-active-products?days=30
func MostActiveProductsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		days, err := windowDays(c, 30)
		if err != nil {
			return err
		}
		since := time.Now().UTC().AddDate(0, 0, -days)

		rows, err := MostActiveProducts(database.DB, auth.TenantID(c), since)
		if err != nil {
			return failed(c, "most active products", err)
		}
		return c.JSON(rows)
	}
}

// GET /api/reports/daily-summary?days=7
func DailySummaryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		days, err := windowDays(c, 7)
		if err != nil {
			return err
		}
		until := time.Now().UTC()
		since := until.AddDate(0, 0, -days)

		rows, err := DailySummary(database.DB, auth.TenantID(c), since, until, tenantLocation(c))
		if err != nil {
			return failed(c, "daily summary", err)
		}
		return c.JSON(rows)
	}
}

// GET /api/reports/low-stock-alert
func LowStockHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		items, err := LowStock(database.DB, auth.TenantID(c))
		if err != nil {
			return failed(c, "low stock", err)
		}
		return c.JSON(items)
	}
}

// GET /api/reports/value-analysis
func ValueAnalysisHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		res, err := Analyze(database.DB, auth.TenantID(c))
		if err != nil {
			return failed(c, "value analysis", err)
		}
		return c.JSON(res)
	}
}

// GET /api/reports/export?startDate=&endDate=
// Responds with an .xlsx attachment holding products and movements.
func ExportHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		from, to, err := inventory.DateRange(c)
		if err != nil {
			return err
		}

		loc := tenantLocation(c)
		book, err := Workbook(database.DB, auth.TenantID(c), from, to, loc)
		if err != nil {
			return failed(c, "export", err)
		}
		defer book.Close()

		buf, err := book.WriteToBuffer()
		if err != nil {
			return failed(c, "export", err)
		}

		name := "inventory-" + time.Now().In(loc).Format("2006-01-02") + ".xlsx"
		if t := auth.CurrentTenant(c); t != nil && t.Slug != "" {
			name = t.Slug + "-" + name
		}
		c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, name))
		return c.Send(buf.Bytes())
	}
}
