package inventory

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"stok-takip/internal/apierr"
	"stok-takip/internal/auth"
	"stok-takip/internal/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxPageSize = 200

// Page is a parsed page/limit pair.
type Page struct {
	Number int
	Limit  int
}

func (p Page) Offset() int { return (p.Number - 1) * p.Limit }

func (p Page) TotalPages(total int64) int {
	return int(math.Ceil(float64(total) / float64(p.Limit)))
}

// ParsePage reads ?page and ?limit, clamping to sane bounds.
func ParsePage(c *fiber.Ctx, defaultLimit int) Page {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	limit := c.QueryInt("limit", defaultLimit)
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return Page{Number: page, Limit: limit}
}

// ParseID reads a positive numeric route parameter.
func ParseID(c *fiber.Ctx, name string) (uint, error) {
	v, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || v == 0 {
		return 0, apierr.Validation(name, "Invalid "+name)
	}
	return uint(v), nil
}

// QueryID reads an optional positive numeric query parameter. It returns 0
// when the parameter is absent.
func QueryID(c *fiber.Ctx, name string) (uint, error) {
	v := c.Query(name)
	if v == "" {
		return 0, nil
	}
	id, err := strconv.ParseUint(v, 10, 64)
	if err != nil || id == 0 {
		return 0, apierr.Validation(name, "Invalid "+name)
	}
	return uint(id), nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds a LIKE pattern matching v literally anywhere in a
// value. Use it with ESCAPE '\'.
func containsPattern(v string) string {
	return "%" + likeEscaper.Replace(v) + "%"
}

// ParseDate accepts YYYY-MM-DD or RFC 3339. Date-only end bounds cover the
// whole day.
func ParseDate(value string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

// DateRange reads ?startDate and ?endDate. Zero times mean unbounded.
func DateRange(c *fiber.Ctx) (from, to time.Time, err error) {
	if v := c.Query("startDate"); v != "" {
		if from, err = ParseDate(v, false); err != nil {
			return from, to, apierr.Validation("startDate", "startDate must be YYYY-MM-DD")
		}
	}
	if v := c.Query("endDate"); v != "" {
		if to, err = ParseDate(v, true); err != nil {
			return from, to, apierr.Validation("endDate", "endDate must be YYYY-MM-DD")
		}
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return from, to, apierr.Validation("endDate", "endDate must not be before startDate")
	}
	return from, to, nil
}

// namedRowID returns the id of the tenant's live row of model whose name equals
// name ignoring Unicode case, or 0. Folding happens in Go because SQLite's
// LOWER only folds ASCII.
func namedRowID(db *gorm.DB, model any, tenantID uint, name string, exceptID uint) (uint, error) {
	q := db.Model(model).Select("id", "name").Where("tenant_id = ?", tenantID)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	var rows []struct {
		ID   uint
		Name string
	}
	if err := q.Find(&rows).Error; err != nil {
		return 0, err
	}
	for _, r := range rows {
		if strings.EqualFold(strings.TrimSpace(r.Name), strings.TrimSpace(name)) {
			return r.ID, nil
		}
	}
	return 0, nil
}

func actorFrom(c *fiber.Ctx) Actor {
	u := auth.CurrentUser(c)
	if u == nil {
		return Actor{}
	}
	return Actor{UserID: u.ID, Name: u.FullName()}
}

// ledgerError maps ledger errors to API errors.
func ledgerError(c *fiber.Ctx, err error) error {
	var insufficient *InsufficientStockError
	switch {
	case errors.As(err, &insufficient):
		return apierr.Conflict(insufficient.Error())
	case errors.Is(err, ErrInvalidQuantity):
		return apierr.Validation("quantity", "Quantity must be greater than 0")
	case errors.Is(err, ErrNegativeStock):
		return apierr.Validation("newStock", "Stock cannot be negative")
	case errors.Is(err, ErrNegativePrice):
		return apierr.Validation("unitPrice", "Unit price cannot be negative")
	case errors.Is(err, ErrNoOp):
		return apierr.Conflict("New stock is the same as the current stock")
	case errors.Is(err, ErrProductNotFound):
		return apierr.NotFound("Product not found")
	case errors.Is(err, ErrStockChanged):
		return apierr.Conflict("Stock was changed by another request, reload and try again")
	}
	logger.FromFiber(c).Error("stock update failed", zap.Error(err))
	return apierr.Internal("Stock could not be updated")
}
