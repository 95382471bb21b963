// Package server assembles the HTTP application.
package server

import (
	"time"

	"stok-takip/internal/admin"
	"stok-takip/internal/apierr"
	"stok-takip/internal/audit"
	"stok-takip/internal/auth"
	"stok-takip/internal/config"
	"stok-takip/internal/database"
	"stok-takip/internal/inventory"
	"stok-takip/internal/logger"
	"stok-takip/internal/metrics"
	"stok-takip/internal/models"
	"stok-takip/internal/report"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

const maxUploadBytes = 10 << 20

// NewApp builds the fiber app with every route registered. database.DB must
// be initialised.
func NewApp(cfg *config.Config) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: apierr.ErrorHandler,
		BodyLimit:    maxUploadBytes,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	app.Use(recover.New())
	app.Use(logger.RequestID())
	app.Use(logger.Access())
	app.Use(metrics.Middleware())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins(),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowCredentials: true,
	}))

	app.Get("/metrics", metrics.Handler())

	api := app.Group("/api")
	api.Get("/health", healthHandler())

	// Public auth
	api.Post("/auth/register", auth.RegisterHandler(cfg))
	api.Post("/auth/login", auth.LoginHandler(cfg))
	api.Post("/auth/logout", auth.LogoutHandler(cfg))

	// Protected
	protected := api.Group("", auth.RequireAuth(cfg), auth.RequireSameTenant())
	protected.Get("/auth/me", auth.MeHandler())

	// Categories
	manageCategories := auth.RequirePermission(models.PermManageCategories)
	protected.Get("/categories", inventory.ListCategoriesHandler())
	protected.Get("/categories/:id", inventory.GetCategoryHandler())
	protected.Get("/categories/:id/products/count", inventory.CategoryProductCountHandler())
	protected.Post("/categories", manageCategories, inventory.CreateCategoryHandler())
	protected.Put("/categories/:id", manageCategories, inventory.UpdateCategoryHandler())
	protected.Delete("/categories/:id", manageCategories, inventory.DeleteCategoryHandler())

	// Products
	manageProducts := auth.RequirePermission(models.PermManageProducts)
	protected.Get("/products", inventory.ListProductsHandler())
	protected.Get("/products/alerts/critical", inventory.CriticalStockAlertsHandler())
	protected.Get("/products/alerts/out-of-stock", inventory.OutOfStockAlertsHandler())
	protected.Get("/products/:id", inventory.GetProductHandler())
	protected.Post("/products", manageProducts, inventory.CreateProductHandler())
	protected.Post("/products/import", manageProducts, inventory.ImportProductsHandler())
	protected.Put("/products/:id", manageProducts, inventory.UpdateProductHandler())
	protected.Delete("/products/:id", manageProducts, inventory.DeleteProductHandler())

	// Stock ledger
	manageStock := auth.RequirePermission(models.PermManageStock)
	protected.Get("/stock/movements", inventory.ListMovementsHandler())
	protected.Get("/stock/movements/:productId", inventory.ProductMovementsHandler())
	protected.Get("/stock/summary", inventory.StockSummaryHandler())
	protected.Post("/stock/in", manageStock, inventory.StockInHandler())
	protected.Post("/stock/out", manageStock, inventory.StockOutHandler())
	protected.Post("/stock/adjust", manageStock, inventory.AdjustStockHandler())
	protected.Post("/stock/waste", manageStock, inventory.CreateWasteHandler())

	// Reports
	reports := protected.Group("/reports", auth.RequirePermission(models.PermViewReports))
	reports.Get("/stock-by-category", report.StockByCategoryHandler())
	reports.Get("/stock-movements", report.StockMovementsHandler())
	reports.Get("/most-active-products", report.MostActiveProductsHandler())
	reports.Get("/daily-summary", report.DailySummaryHandler())
	reports.Get("/low-stock-alert", report.LowStockHandler())
	reports.Get("/value-analysis", report.ValueAnalysisHandler())
	reports.Get("/export", report.ExportHandler())

	// Users and audit trail
	admins := auth.RequireRole(models.RoleOwner, models.RoleManager)
	users := protected.Group("/users", admins)
	users.Get("/", admin.ListUsersHandler())
	users.Post("/", admin.CreateUserHandler())
	users.Put("/:id", admin.UpdateUserHandler())
	users.Delete("/:id", admin.DeleteUserHandler())
	users.Put("/:id/password", admin.ChangePasswordHandler())

	protected.Get("/audit-logs", admins, audit.ListAuditLogsHandler())

	return app
}

// GET /api/health
func healthHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := database.Ping(); err != nil {
			logger.FromFiber(c).Warn("health check failed", zap.Error(err))
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status":   "unavailable",
				"database": "down",
			})
		}
		return c.JSON(fiber.Map{"status": "ok", "database": "up"})
	}
}
