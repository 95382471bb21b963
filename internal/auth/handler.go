package auth

import (
	"errors"
	"strings"
	"time"

	"stok-takip/internal/apierr"
	"stok-takip/internal/config"
	"stok-takip/internal/database"
	"stok-takip/internal/logger"
	"stok-takip/internal/metrics"
	"stok-takip/internal/models"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type RegisterRequest struct {
	RestaurantName string `json:"restaurantName" validate:"required,max=100"`
	OwnerFirstName string `json:"ownerFirstName" validate:"required,max=50"`
	OwnerLastName  string `json:"ownerLastName" validate:"required,max=50"`
	Email          string `json:"email" validate:"required,email"`
	Phone          string `json:"phone" validate:"max=50"`
	Password       string `json:"password" validate:"required,min=6"`
	Address        string `json:"address" validate:"max=200"`
	City           string `json:"city" validate:"max=100"`
	Plan           string `json:"plan" validate:"omitempty,oneof=basic premium enterprise"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// POST /api/auth/register
func RegisterHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RegisterRequest
		if err := c.BodyParser(&body); err != nil {
			return apierr.BadRequest("Invalid request body")
		}

		body.RestaurantName = strings.TrimSpace(body.RestaurantName)
		body.OwnerFirstName = strings.TrimSpace(body.OwnerFirstName)
		body.OwnerLastName = strings.TrimSpace(body.OwnerLastName)
		body.Email = strings.TrimSpace(strings.ToLower(body.Email))
		body.Phone = strings.TrimSpace(body.Phone)
		if err := apierr.Validate(body); err != nil {
			return err
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
		if err != nil {
			return apierr.Internal("Could not hash password")
		}

		plan := models.SubscriptionPlan(body.Plan)
		if plan == "" {
			plan = models.PlanBasic
		}

		var tenant models.Tenant
		var owner models.User
		err = database.DB.Transaction(func(tx *gorm.DB) error {
			var count int64
			if err := tx.Model(&models.User{}).Where("email = ?", body.Email).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return apierr.Validation("email", "This email address is already registered")
			}

			if err := tx.Model(&models.Tenant{}).Where("LOWER(name) = ?", strings.ToLower(body.RestaurantName)).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return apierr.Validation("restaurantName", "A restaurant with this name already exists")
			}

			slug, err := uniqueSlug(tx, body.RestaurantName)
			if err != nil {
				return err
			}

			username, err := uniqueUsername(tx, body.OwnerFirstName+" "+body.OwnerLastName)
			if err != nil {
				return err
			}

			tenant = models.Tenant{
				Name:     body.RestaurantName,
				Slug:     slug,
				Email:    body.Email,
				Phone:    body.Phone,
				Address:  models.Address{Street: body.Address, City: body.City, Country: "Türkiye"},
				Settings: models.DefaultSettings(),
				Subscription: models.Subscription{
					Plan:      plan,
					StartDate: time.Now().UTC(),
					IsActive:  true,
				},
			}
			if err := tx.Create(&tenant).Error; err != nil {
				return err
			}

			owner = models.User{
				TenantID:     tenant.ID,
				Username:     username,
				Email:        body.Email,
				PasswordHash: string(hash),
				Role:         models.RoleOwner,
				Permissions:  models.AllPermissions(),
				Profile: models.Profile{
					FirstName: body.OwnerFirstName,
					LastName:  body.OwnerLastName,
					Phone:     body.Phone,
				},
				IsActive: true,
			}
			return tx.Create(&owner).Error
		})
		if err != nil {
			var apiErr *apierr.Error
			if errors.As(err, &apiErr) {
				return apiErr
			}
			logger.FromFiber(c).Error("registration failed", zap.Error(err))
			return apierr.Internal("Registration failed")
		}

		metrics.TenantsRegistered.Inc()
		logger.FromFiber(c).Info("restaurant registered",
			zap.Uint("tenant_id", tenant.ID), zap.String("slug", tenant.Slug))

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"success": true,
			"message": "Restaurant registered successfully",
			"data": fiber.Map{
				"restaurant": fiber.Map{
					"id":   tenant.ID,
					"name": tenant.Name,
					"slug": tenant.Slug,
				},
				"user": fiber.Map{
					"id":          owner.ID,
					"username":    owner.Username,
					"email":       owner.Email,
					"role":        owner.Role,
					"permissions": owner.Permissions,
				},
			},
		})
	}
}

// POST /api/auth/login
func LoginHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LoginRequest
		if err := c.BodyParser(&body); err != nil {
			return apierr.BadRequest("Invalid request body")
		}

		body.Email = strings.TrimSpace(strings.ToLower(body.Email))
		if err := apierr.Validate(body); err != nil {
			return err
		}

		var user models.User
		err := database.DB.Preload("Tenant").
			Where("email = ? AND is_active = ?", body.Email, true).
			First(&user).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				metrics.RecordLogin("invalid")
				return apierr.Unauthenticated("Invalid email or password")
			}
			logger.FromFiber(c).Error("login lookup failed", zap.Error(err))
			return apierr.Internal("Login failed")
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(body.Password)); err != nil {
			metrics.RecordLogin("invalid")
			return apierr.Unauthenticated("Invalid email or password")
		}

		if user.Tenant == nil || !user.Tenant.Active(time.Now()) {
			metrics.RecordLogin("inactive")
			return apierr.Forbidden("Restaurant account is inactive")
		}

		now := time.Now().UTC()
		if err := database.DB.Model(&user).Update("last_login", now).Error; err != nil {
			logger.FromFiber(c).Warn("could not record last login", zap.Error(err))
		}
		user.LastLogin = &now

		token, sess, err := StartSession(database.DB, cfg, &user, c.Get(fiber.HeaderUserAgent), c.IP())
		if err != nil {
			logger.FromFiber(c).Error("session could not be created", zap.Error(err))
			return apierr.Internal("Login failed")
		}
		setSessionCookie(c, cfg, token, sess.ExpiresAt)
		metrics.RecordLogin("success")

		return c.JSON(fiber.Map{
			"success": true,
			"message": "Login successful",
			"data": fiber.Map{
				"user":       UserPayload(&user),
				"restaurant": restaurantPayload(user.Tenant, false),
				"token":      token,
				"expiresAt":  sess.ExpiresAt,
			},
		})
	}
}

// POST /api/auth/logout
func LogoutHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if raw := tokenFromRequest(c, cfg); raw != "" {
			if claims, err := parseToken(cfg.SessionSecret, raw); err == nil {
				if err := EndSession(database.DB, claims.ID); err != nil {
					logger.FromFiber(c).Warn("session could not be removed", zap.Error(err))
				}
			}
		}
		clearSessionCookie(c, cfg)

		return c.JSON(fiber.Map{
			"success": true,
			"message": "Logged out successfully",
		})
	}
}

// GET /api/auth/me
func MeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := CurrentUser(c)
		tenant := CurrentTenant(c)
		if user == nil || tenant == nil {
			return apierr.Unauthenticated("Authentication required")
		}

		return c.JSON(fiber.Map{
			"success": true,
			"data": fiber.Map{
				"user":       UserPayload(user),
				"restaurant": restaurantPayload(tenant, true),
			},
		})
	}
}

// UserPayload is the public view of a user.
func UserPayload(u *models.User) fiber.Map {
	return fiber.Map{
		"id":          u.ID,
		"username":    u.Username,
		"email":       u.Email,
		"role":        u.Role,
		"permissions": u.Permissions,
		"profile":     u.Profile,
		"fullName":    u.FullName(),
		"isActive":    u.IsActive,
		"lastLogin":   u.LastLogin,
		"createdAt":   u.CreatedAt,
	}
}

func restaurantPayload(t *models.Tenant, withSettings bool) fiber.Map {
	m := fiber.Map{
		"id":   t.ID,
		"name": t.Name,
		"slug": t.Slug,
		"plan": t.Subscription.Plan,
	}
	if withSettings {
		m["settings"] = t.Settings
		m["email"] = t.Email
		m["phone"] = t.Phone
		m["address"] = t.Address
		m["subscription"] = t.Subscription
	}
	return m
}
