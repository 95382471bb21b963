package inventory

import (
	"errors"
	"strings"

	"stok-takip/internal/apierr"
	"stok-takip/internal/auth"
	"stok-takip/internal/database"
	"stok-takip/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductView is a product with its derived fields.
type ProductView struct {
	models.Product
	StockStatus models.StockStatus `json:"stockStatus"`
	StockValue  float64            `json:"stockValue"`
}

func NewProductView(p models.Product) ProductView {
	return ProductView{Product: p, StockStatus: p.StockStatus(), StockValue: p.StockValue()}
}

func productViews(ps []models.Product) []ProductView {
	out := make([]ProductView, 0, len(ps))
	for _, p := range ps {
		out = append(out, NewProductView(p))
	}
	return out
}

type CreateProductRequest struct {
	Name         string   `json:"name" validate:"required,max=100"`
	Description  string   `json:"description" validate:"max=500"`
	CategoryID   uint     `json:"categoryId" validate:"required"`
	Unit         string   `json:"unit" validate:"required,oneof=piece kg gram liter ml pack box bottle"`
	CurrentStock float64  `json:"currentStock" validate:"gte=0"`
	MinStock     *float64 `json:"minStock" validate:"omitempty,gte=0"`
	MaxStock     *float64 `json:"maxStock" validate:"omitempty,gte=0"`
	UnitPrice    float64  `json:"unitPrice" validate:"gte=0"`
	Supplier     string   `json:"supplier" validate:"max=100"`
	Barcode      string   `json:"barcode" validate:"max=64"`
}

type UpdateProductRequest struct {
	Name         *string  `json:"name" validate:"omitempty,max=100"`
	Description  *string  `json:"description" validate:"omitempty,max=500"`
	CategoryID   *uint    `json:"categoryId"`
	Unit         *string  `json:"unit" validate:"omitempty,oneof=piece kg gram liter ml pack box bottle"`
	CurrentStock *float64 `json:"currentStock"`
	MinStock     *float64 `json:"minStock" validate:"omitempty,gte=0"`
	MaxStock     *float64 `json:"maxStock" validate:"omitempty,gte=0"`
	UnitPrice    *float64 `json:"unitPrice" validate:"omitempty,gte=0"`
	Supplier     *string  `json:"supplier" validate:"omitempty,max=100"`
	Barcode      *string  `json:"barcode" validate:"omitempty,max=64"`
	IsActive     *bool    `json:"isActive"`
}

// GET /api/products?category=1&search=bean&stockStatus=critical&active=all&page=1&limit=50
func ListProductsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.Model(&models.Product{}).Where("products.tenant_id = ?", auth.TenantID(c))

		switch c.Query("active") {
		case "all":
		case "false":
			dbq = dbq.Where("products.is_active = ?", false)
		default:
			dbq = dbq.Where("products.is_active = ?", true)
		}

		categoryID, err := QueryID(c, "category")
		if err != nil {
			return err
		}
		if categoryID != 0 {
			dbq = dbq.Where("products.category_id = ?", categoryID)
		}

		if v := strings.TrimSpace(c.Query("search")); v != "" {
			pattern := containsPattern(strings.ToLower(v))
			dbq = dbq.Where(`(LOWER(products.name) LIKE ? ESCAPE '\' OR LOWER(products.description) LIKE ? ESCAPE '\' OR LOWER(products.supplier) LIKE ? ESCAPE '\' OR products.barcode = ?)`,
				pattern, pattern, pattern, v)
		}

		if v := c.Query("stockStatus"); v != "" {
			status := models.StockStatus(v)
			if !status.Valid() {
				return apierr.Validation("stockStatus", "stockStatus must be one of: out, critical, normal, excess")
			}
			dbq = WhereStockStatus(dbq, status)
		}

		dbq = dbq.Session(&gorm.Session{})

		var total int64
		if err := dbq.Count(&total).Error; err != nil {
			return apierr.Wrap(err, "Could not count products")
		}

		page := ParsePage(c, 50)
		var products []models.Product
		if err := dbq.Preload("Category").
			Order("products.name asc").
			Offset(page.Offset()).Limit(page.Limit).
			Find(&products).Error; err != nil {
			return apierr.Wrap(err, "Could not list products")
		}

		return c.JSON(fiber.Map{
			"products":    productViews(products),
			"totalPages":  page.TotalPages(total),
			"currentPage": page.Number,
			"total":       total,
		})
	}
}

// WhereStockStatus filters products to those ClassifyStock would put in
// status.
func WhereStockStatus(dbq *gorm.DB, status models.StockStatus) *gorm.DB {
	switch status {
	case models.StockOut:
		return dbq.Where("products.current_stock <= 0")
	case models.StockCritical:
		return dbq.Where("products.current_stock > 0 AND products.current_stock <= products.min_stock")
	case models.StockExcess:
		return dbq.Where("products.current_stock > 0 AND products.current_stock > products.min_stock AND products.current_stock >= products.max_stock")
	default:
		return dbq.Where("products.current_stock > 0 AND products.current_stock > products.min_stock AND products.current_stock < products.max_stock")
	}
}

// GET /api/products/alerts/critical
func CriticalStockAlertsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var products []models.Product
		err := database.DB.Preload("Category").
			Where("tenant_id = ? AND is_active = ? AND current_stock <= min_stock", auth.TenantID(c), true).
			Order("current_stock asc, name asc").
			Find(&products).Error
		if err != nil {
			return apierr.Wrap(err, "Could not list critical products")
		}
		return c.JSON(productViews(products))
	}
}

// GET /api/products/alerts/out-of-stock
func OutOfStockAlertsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var products []models.Product
		err := database.DB.Preload("Category").
			Where("tenant_id = ? AND is_active = ? AND current_stock <= 0", auth.TenantID(c), true).
			Order("name asc").
			Find(&products).Error
		if err != nil {
			return apierr.Wrap(err, "Could not list out of stock products")
		}
		return c.JSON(productViews(products))
	}
}

// GET /api/products/:id
func GetProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := findProduct(c)
		if err != nil {
			return err
		}
		return c.JSON(NewProductView(*p))
	}
}

// POST /api/products
func CreateProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateProductRequest
		if err := c.BodyParser(&body); err != nil {
			return apierr.BadRequest("Invalid request body")
		}

		body.Name = strings.TrimSpace(body.Name)
		body.Description = strings.TrimSpace(body.Description)
		body.Supplier = strings.TrimSpace(body.Supplier)
		body.Barcode = strings.TrimSpace(body.Barcode)
		if err := apierr.Validate(body); err != nil {
			return err
		}

		p := models.Product{
			TenantID:     auth.TenantID(c),
			Name:         body.Name,
			Description:  body.Description,
			CategoryID:   body.CategoryID,
			Unit:         models.Unit(body.Unit),
			CurrentStock: body.CurrentStock,
			MinStock:     models.DefaultMinStock,
			MaxStock:     models.DefaultMaxStock,
			UnitPrice:    body.UnitPrice,
			Supplier:     body.Supplier,
			Barcode:      body.Barcode,
			IsActive:     true,
		}
		if body.MinStock != nil {
			p.MinStock = *body.MinStock
		}
		if body.MaxStock != nil {
			p.MaxStock = *body.MaxStock
		}

		err := database.DB.Transaction(func(tx *gorm.DB) error {
			return CreateProduct(tx, &p, actorFrom(c))
		})
		if err != nil {
			var apiErr *apierr.Error
			if errors.As(err, &apiErr) {
				return apiErr
			}
			return apierr.Wrap(err, "Could not create product")
		}
		InitialStockCommitted(&p)

		writeAudit(c, "product", p.ID, models.AuditActionCreate, "Product created: "+p.Name, nil, p)
		return c.Status(fiber.StatusCreated).JSON(NewProductView(p))
	}
}

// CreateProduct validates p against the tenant's catalog, inserts it and
// records its opening stock. Category is loaded into p.
func CreateProduct(tx *gorm.DB, p *models.Product, actor Actor) error {
	if err := checkProduct(tx, p); err != nil {
		return err
	}
	if err := tx.Omit(clause.Associations).Create(p).Error; err != nil {
		return err
	}
	_, err := RecordInitialStock(tx, p, actor)
	return err
}

// checkProduct enforces the catalog rules shared by create and update.
func checkProduct(tx *gorm.DB, p *models.Product) error {
	if p.MaxStock < p.MinStock {
		return apierr.Validation("maxStock", "maxStock must be greater than or equal to minStock")
	}

	var cat models.Category
	if err := tx.Where("id = ? AND tenant_id = ?", p.CategoryID, p.TenantID).First(&cat).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apierr.Validation("categoryId", "Category not found")
		}
		return err
	}
	p.Category = &cat

	existing, err := namedRowID(tx, &models.Product{}, p.TenantID, p.Name, p.ID)
	if err != nil {
		return err
	}
	if existing != 0 {
		return apierr.Validation("name", "A product with this name already exists")
	}

	if p.Barcode != "" {
		var count int64
		q := tx.Model(&models.Product{}).Where("tenant_id = ? AND barcode = ?", p.TenantID, p.Barcode)
		if p.ID != 0 {
			q = q.Where("id <> ?", p.ID)
		}
		if err := q.Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return apierr.Validation("barcode", "This barcode is already in use")
		}
	}
	return nil
}

// PUT /api/products/:id
func UpdateProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := findProduct(c)
		if err != nil {
			return err
		}
		before := *p

		var body UpdateProductRequest
		if err := c.BodyParser(&body); err != nil {
			return apierr.BadRequest("Invalid request body")
		}
		if err := apierr.Validate(body); err != nil {
			return err
		}
		if body.CurrentStock != nil {
			return apierr.Validation("currentStock", "Stock can only be changed through stock movements")
		}

		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return apierr.Validation("name", "name cannot be empty")
			}
			p.Name = name
		}
		if body.Description != nil {
			p.Description = strings.TrimSpace(*body.Description)
		}
		if body.CategoryID != nil {
			p.CategoryID = *body.CategoryID
		}
		if body.Unit != nil {
			p.Unit = models.Unit(*body.Unit)
		}
		if body.MinStock != nil {
			p.MinStock = *body.MinStock
		}
		if body.MaxStock != nil {
			p.MaxStock = *body.MaxStock
		}
		if body.UnitPrice != nil {
			p.UnitPrice = *body.UnitPrice
		}
		if body.Supplier != nil {
			p.Supplier = strings.TrimSpace(*body.Supplier)
		}
		if body.Barcode != nil {
			p.Barcode = strings.TrimSpace(*body.Barcode)
		}
		if body.IsActive != nil {
			p.IsActive = *body.IsActive
		}

		err = database.DB.Transaction(func(tx *gorm.DB) error {
			if err := checkProduct(tx, p); err != nil {
				return err
			}
			// current_stock is owned by the ledger
			return tx.Model(p).Select(
				"name", "description", "category_id", "unit", "min_stock", "max_stock",
				"unit_price", "supplier", "barcode", "is_active",
			).Updates(p).Error
		})
		if err != nil {
			var apiErr *apierr.Error
			if errors.As(err, &apiErr) {
				return apiErr
			}
			return apierr.Wrap(err, "Could not update product")
		}

		writeAudit(c, "product", p.ID, models.AuditActionUpdate, "Product updated: "+p.Name, before, p)
		return c.JSON(NewProductView(*p))
	}
}

// DELETE /api/products/:id
func DeleteProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := findProduct(c)
		if err != nil {
			return err
		}

		if err := database.DB.Delete(&models.Product{}, p.ID).Error; err != nil {
			return apierr.Wrap(err, "Could not delete product")
		}

		writeAudit(c, "product", p.ID, models.AuditActionDelete, "Product deleted: "+p.Name, p, nil)
		return c.JSON(fiber.Map{"message": "Product deleted"})
	}
}

func findProduct(c *fiber.Ctx) (*models.Product, error) {
	id, err := ParseID(c, "id")
	if err != nil {
		return nil, err
	}

	var p models.Product
	err = database.DB.Preload("Category").
		Where("id = ? AND tenant_id = ?", id, auth.TenantID(c)).
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("Product not found")
		}
		return nil, apierr.Wrap(err, "Could not load product")
	}
	return &p, nil
}
