package inventory

import (
	"errors"
	"fmt"
	"strings"

	"stok-takip/internal/apierr"
	"stok-takip/internal/audit"
	"stok-takip/internal/auth"
	"stok-takip/internal/database"
	"stok-takip/internal/logger"
	"stok-takip/internal/models"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type CreateCategoryRequest struct {
	Name        string `json:"name" validate:"required,max=50"`
	Description string `json:"description" validate:"max=200"`
	Type        string `json:"type" validate:"omitempty,oneof=food drink other"`
	Color       string `json:"color" validate:"omitempty,hexcolor"`
}

type UpdateCategoryRequest struct {
	Name        *string `json:"name" validate:"omitempty,max=50"`
	Description *string `json:"description" validate:"omitempty,max=200"`
	Type        *string `json:"type" validate:"omitempty,oneof=food drink other"`
	Color       *string `json:"color" validate:"omitempty,hexcolor"`
	IsActive    *bool   `json:"isActive"`
}

// GET /api/categories?includeInactive=true
func ListCategoriesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.Where("tenant_id = ?", auth.TenantID(c))
		if c.Query("includeInactive") != "true" {
			dbq = dbq.Where("is_active = ?", true)
		}

		var categories []models.Category
		if err := dbq.Order("name asc").Find(&categories).Error; err != nil {
			return apierr.Wrap(err, "Could not list categories")
		}
		return c.JSON(categories)
	}
}

// GET /api/categories/:id
func GetCategoryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		cat, err := findCategory(c)
		if err != nil {
			return err
		}
		return c.JSON(cat)
	}
}

// GET /api/categories/:id/products/count
func CategoryProductCountHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		cat, err := findCategory(c)
		if err != nil {
			return err
		}
		count, err := countCategoryProducts(database.DB, cat)
		if err != nil {
			return apierr.Wrap(err, "Could not count products")
		}
		return c.JSON(fiber.Map{"count": count})
	}
}

// POST /api/categories
func CreateCategoryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateCategoryRequest
		if err := c.BodyParser(&body); err != nil {
			return apierr.BadRequest("Invalid request body")
		}

		body.Name = strings.TrimSpace(body.Name)
		body.Description = strings.TrimSpace(body.Description)
		if err := apierr.Validate(body); err != nil {
			return err
		}

		tenantID := auth.TenantID(c)
		if err := ensureCategoryNameFree(tenantID, body.Name, 0); err != nil {
			return err
		}

		cat := models.Category{
			TenantID:    tenantID,
			Name:        body.Name,
			Description: body.Description,
			Type:        models.CategoryType(body.Type),
			Color:       body.Color,
			IsActive:    true,
		}
		if cat.Type == "" {
			cat.Type = models.CategoryOther
		}
		if cat.Color == "" {
			cat.Color = models.DefaultCategoryColor
		}

		if err := database.DB.Create(&cat).Error; err != nil {
			return apierr.Wrap(err, "Could not create category")
		}

		writeAudit(c, "category", cat.ID, models.AuditActionCreate, "Category created: "+cat.Name, nil, cat)
		return c.Status(fiber.StatusCreated).JSON(cat)
	}
}

// PUT /api/categories/:id
func UpdateCategoryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		cat, err := findCategory(c)
		if err != nil {
			return err
		}
		before := *cat

		var body UpdateCategoryRequest
		if err := c.BodyParser(&body); err != nil {
			return apierr.BadRequest("Invalid request body")
		}
		if err := apierr.Validate(body); err != nil {
			return err
		}

		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return apierr.Validation("name", "name cannot be empty")
			}
			if err := ensureCategoryNameFree(cat.TenantID, name, cat.ID); err != nil {
				return err
			}
			cat.Name = name
		}
		if body.Description != nil {
			cat.Description = strings.TrimSpace(*body.Description)
		}
		if body.Type != nil {
			cat.Type = models.CategoryType(*body.Type)
		}
		if body.Color != nil && *body.Color != "" {
			cat.Color = *body.Color
		}
		if body.IsActive != nil {
			cat.IsActive = *body.IsActive
		}

		if err := database.DB.Save(cat).Error; err != nil {
			return apierr.Wrap(err, "Could not update category")
		}

		writeAudit(c, "category", cat.ID, models.AuditActionUpdate, "Category updated: "+cat.Name, before, cat)
		return c.JSON(cat)
	}
}

// DELETE /api/categories/:id
func DeleteCategoryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		cat, err := findCategory(c)
		if err != nil {
			return err
		}

		count, err := countCategoryProducts(database.DB, cat)
		if err != nil {
			return apierr.Wrap(err, "Could not count products")
		}
		if count > 0 {
			return apierr.Conflict(fmt.Sprintf(
				"This category has %d product(s). Delete them or move them to another category first.", count))
		}

		if err := database.DB.Delete(cat).Error; err != nil {
			return apierr.Wrap(err, "Could not delete category")
		}

		writeAudit(c, "category", cat.ID, models.AuditActionDelete, "Category deleted: "+cat.Name, cat, nil)
		return c.JSON(fiber.Map{"message": "Category deleted"})
	}
}

func findCategory(c *fiber.Ctx) (*models.Category, error) {
	id, err := ParseID(c, "id")
	if err != nil {
		return nil, err
	}

	var cat models.Category
	if err := database.DB.Where("id = ? AND tenant_id = ?", id, auth.TenantID(c)).First(&cat).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("Category not found")
		}
		return nil, apierr.Wrap(err, "Could not load category")
	}
	return &cat, nil
}

func countCategoryProducts(db *gorm.DB, cat *models.Category) (int64, error) {
	var count int64
	err := db.Model(&models.Product{}).
		Where("tenant_id = ? AND category_id = ?", cat.TenantID, cat.ID).
		Count(&count).Error
	return count, err
}

// ensureCategoryNameFree rejects a name already used by another live category
// of the tenant, ignoring case.
func ensureCategoryNameFree(tenantID uint, name string, exceptID uint) error {
	existing, err := namedRowID(database.DB, &models.Category{}, tenantID, name, exceptID)
	if err != nil {
		return apierr.Wrap(err, "Could not check category name")
	}
	if existing != 0 {
		return apierr.Validation("name", "A category with this name already exists")
	}
	return nil
}

func writeAudit(c *fiber.Ctx, entity string, id uint, action models.AuditAction, desc string, before, after any) {
	u := auth.CurrentUser(c)
	if u == nil {
		return
	}
	err := audit.WriteLog(database.DB, audit.LogOptions{
		TenantID:    u.TenantID,
		UserID:      u.ID,
		UserName:    u.FullName(),
		EntityType:  entity,
		EntityID:    id,
		Action:      action,
		Description: desc,
		Before:      before,
		After:       after,
	})
	if err != nil {
		logger.FromFiber(c).Warn("audit log failed", zap.Error(err))
	}
}
