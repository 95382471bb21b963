package inventory

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"stok-takip/internal/apierr"
	"stok-takip/internal/auth"
	"stok-takip/internal/database"
	"stok-takip/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// Column order of the import sheet.
const (
	colName = iota
	colCategory
	colUnit
	colCurrentStock
	colMinStock
	colMaxStock
	colUnitPrice
	colBarcode
	colSupplier
)

// unitAliases maps spreadsheet spellings, including the Turkish ones, to
// units.
var unitAliases = map[string]models.Unit{
	"piece": models.UnitPiece, "pcs": models.UnitPiece, "adet": models.UnitPiece,
	"kg": models.UnitKg, "kilo": models.UnitKg,
	"gram": models.UnitGram, "gr": models.UnitGram, "g": models.UnitGram,
	"liter": models.UnitLiter, "litre": models.UnitLiter, "lt": models.UnitLiter, "l": models.UnitLiter,
	"ml": models.UnitMl,
	"pack": models.UnitPack, "paket": models.UnitPack,
	"box": models.UnitBox, "kutu": models.UnitBox, "koli": models.UnitBox,
	"bottle": models.UnitBottle, "sise": models.UnitBottle, "şişe": models.UnitBottle,
}

type SkippedRow struct {
	Row    int    `json:"row"`
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

type ImportResult struct {
	Created           int          `json:"created"`
	CategoriesCreated int          `json:"categoriesCreated"`
	Skipped           []SkippedRow `json:"skipped"`
}

// POST /api/products/import (multipart, field "file")
func ImportProductsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			return apierr.Validation("file", "An .xlsx file is required")
		}
		if !strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".xlsx") {
			return apierr.Validation("file", "Only .xlsx files can be imported")
		}

		file, err := fileHeader.Open()
		if err != nil {
			return apierr.Wrap(err, "Could not open the uploaded file")
		}
		defer file.Close()

		result, err := ImportProducts(database.DB, auth.TenantID(c), actorFrom(c), file)
		if err != nil {
			var apiErr *apierr.Error
			if errors.As(err, &apiErr) {
				return apiErr
			}
			return apierr.Wrap(err, "Product import failed")
		}

		writeAudit(c, "product", 0, models.AuditActionImport,
			fmt.Sprintf("Imported %d products from %s", result.Created, fileHeader.Filename), nil, result)
		return c.JSON(result)
	}
}

// ImportProducts reads the first sheet of an xlsx workbook and creates one
// product per row. Rows that break a catalog rule are skipped and reported;
// unknown categories are created.
func ImportProducts(db *gorm.DB, tenantID uint, actor Actor, r io.Reader) (*ImportResult, error) {
	book, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apierr.Validation("file", "The file is not a readable Excel workbook")
	}
	defer book.Close()

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return nil, apierr.Validation("file", "The workbook has no sheets")
	}
	rows, err := book.GetRows(sheets[0])
	if err != nil {
		return nil, apierr.Validation("file", "The first sheet could not be read")
	}

	start := 0
	if len(rows) > 0 && isHeaderRow(rows[0]) {
		start = 1
	}

	result := &ImportResult{Skipped: []SkippedRow{}}
	categories := map[string]uint{}

	for i := start; i < len(rows); i++ {
		row := rows[i]
		name := strings.TrimSpace(cell(row, colName))
		if name == "" {
			continue
		}
		rowNo := i + 1

		p, err := productFromRow(row, tenantID)
		if err != nil {
			result.Skipped = append(result.Skipped, SkippedRow{Row: rowNo, Name: name, Reason: err.Error()})
			continue
		}

		err = db.Transaction(func(tx *gorm.DB) error {
			catID, created, err := resolveCategory(tx, tenantID, cell(row, colCategory), categories)
			if err != nil {
				return err
			}
			p.CategoryID = catID
			if err := CreateProduct(tx, p, actor); err != nil {
				return err
			}
			if created {
				result.CategoriesCreated++
			}
			return nil
		})
		if err != nil {
			var apiErr *apierr.Error
			if !errors.As(err, &apiErr) {
				return nil, err
			}
			// a rolled back row may have been the one that created the category
			for k, id := range categories {
				if id == p.CategoryID {
					delete(categories, k)
				}
			}
			result.Skipped = append(result.Skipped, SkippedRow{Row: rowNo, Name: name, Reason: apiErr.Message})
			continue
		}
		result.Created++
		InitialStockCommitted(p)
	}

	return result, nil
}

func isHeaderRow(row []string) bool {
	first := strings.ToUpper(strings.TrimSpace(cell(row, colName)))
	return strings.Contains(first, "NAME") || strings.Contains(first, "PRODUCT") ||
		strings.Contains(first, "ÜRÜN")
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func productFromRow(row []string, tenantID uint) (*models.Product, error) {
	unit, ok := unitAliases[strings.ToLower(strings.TrimSpace(cell(row, colUnit)))]
	if !ok {
		return nil, fmt.Errorf("unknown unit %q", cell(row, colUnit))
	}

	p := &models.Product{
		TenantID: tenantID,
		Name:     strings.TrimSpace(cell(row, colName)),
		Unit:     unit,
		MinStock: models.DefaultMinStock,
		MaxStock: models.DefaultMaxStock,
		Barcode:  strings.TrimSpace(cell(row, colBarcode)),
		Supplier: strings.TrimSpace(cell(row, colSupplier)),
		IsActive: true,
	}

	numbers := []struct {
		col  int
		name string
		dst  *float64
	}{
		{colCurrentStock, "current stock", &p.CurrentStock},
		{colMinStock, "min stock", &p.MinStock},
		{colMaxStock, "max stock", &p.MaxStock},
		{colUnitPrice, "unit price", &p.UnitPrice},
	}
	for _, n := range numbers {
		raw := strings.TrimSpace(cell(row, n.col))
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
		if err != nil || v < 0 {
			return nil, fmt.Errorf("%s must be a non-negative number", n.name)
		}
		*n.dst = v
	}
	return p, nil
}

// resolveCategory finds the tenant category by name, ignoring case, and
// creates it when missing. Blank names go to "Other".
func resolveCategory(tx *gorm.DB, tenantID uint, name string, cache map[string]uint) (uint, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Other"
	}
	key := strings.ToLower(name)
	if id, ok := cache[key]; ok {
		return id, false, nil
	}

	existing, err := namedRowID(tx, &models.Category{}, tenantID, name, 0)
	if err != nil {
		return 0, false, err
	}
	if existing != 0 {
		cache[key] = existing
		return existing, false, nil
	}

	cat := models.Category{
		TenantID: tenantID,
		Name:     name,
		Type:     models.CategoryOther,
		Color:    models.DefaultCategoryColor,
		IsActive: true,
	}
	if err := tx.Create(&cat).Error; err != nil {
		return 0, false, err
	}
	cache[key] = cat.ID
	return cat.ID, true, nil
}
