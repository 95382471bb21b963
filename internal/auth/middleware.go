package auth

import (
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"stok-takip/internal/apierr"
	"stok-takip/internal/config"
	"stok-takip/internal/database"
	"stok-takip/internal/logger"
	"stok-takip/internal/models"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RequireAuth resolves the session to a user and tenant and stores both in
// c.Locals. Inactive users get 401, inactive tenants 403.
func RequireAuth(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := tokenFromRequest(c, cfg)
		if raw == "" {
			return apierr.Unauthenticated("Authentication required")
		}

		claims, err := parseToken(cfg.SessionSecret, raw)
		if err != nil {
			return apierr.Unauthenticated("Invalid or expired session")
		}

		sess, err := loadSession(database.DB, claims)
		if err != nil {
			if errors.Is(err, errSessionGone) {
				clearSessionCookie(c, cfg)
				return apierr.Unauthenticated("Session expired or revoked")
			}
			logger.FromFiber(c).Error("session lookup failed", zap.Error(err))
			return apierr.Internal("Could not verify session")
		}

		var user models.User
		if err := database.DB.Preload("Tenant").First(&user, sess.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				_ = EndSession(database.DB, sess.ID)
				clearSessionCookie(c, cfg)
				return apierr.Unauthenticated("User no longer exists")
			}
			logger.FromFiber(c).Error("user lookup failed", zap.Error(err))
			return apierr.Internal("Could not verify session")
		}

		if !user.IsActive {
			_ = EndSession(database.DB, sess.ID)
			clearSessionCookie(c, cfg)
			return apierr.Unauthenticated("User account is inactive")
		}
		if user.Tenant == nil || user.TenantID != sess.TenantID {
			return apierr.Unauthenticated("Session does not match the user")
		}
		if !user.Tenant.Active(time.Now()) {
			return apierr.Forbidden("Restaurant account is inactive")
		}

		if token, err := renewSession(database.DB, cfg, sess, user.Role); err != nil {
			logger.FromFiber(c).Warn("session renewal failed", zap.Error(err))
		} else if token != "" {
			setSessionCookie(c, cfg, token, sess.ExpiresAt)
		}

		c.Locals(CtxSessionKey, sess)
		c.Locals(CtxUserKey, &user)
		c.Locals(CtxTenantKey, user.Tenant)
		return c.Next()
	}
}

func RequireRole(allowedRoles ...models.UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := CurrentUser(c)
		if user == nil {
			return apierr.Unauthenticated("Authentication required")
		}

		for _, r := range allowedRoles {
			if r == user.Role {
				return c.Next()
			}
		}
		return apierr.Forbidden("You are not allowed to perform this action")
	}
}

// RequirePermission passes owners unconditionally and everyone else only
// with the permission flag set.
func RequirePermission(perm models.Permission) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := CurrentUser(c)
		if user == nil {
			return apierr.Unauthenticated("Authentication required")
		}
		if user.Role == models.RoleOwner || user.Permissions.Has(perm) {
			return c.Next()
		}
		return apierr.Forbidden("You do not have the " + string(perm) + " permission")
	}
}

type tenantRefs struct {
	TenantID     json.RawMessage `json:"tenantId"`
	RestaurantID json.RawMessage `json:"restaurantId"`
}

// RequireSameTenant rejects requests that name a tenant other than the
// session's in the path, query or JSON body.
func RequireSameTenant() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tenantID := TenantID(c)
		if tenantID == 0 {
			return apierr.Unauthenticated("Authentication required")
		}
		own := strconv.FormatUint(uint64(tenantID), 10)

		candidates := []string{
			c.Params("tenantId"),
			c.Query("tenantId"),
			c.Query("restaurantId"),
		}

		if len(c.Body()) > 0 && c.Is("json") {
			var refs tenantRefs
			if err := json.Unmarshal(c.Body(), &refs); err == nil {
				candidates = append(candidates, rawID(refs.TenantID), rawID(refs.RestaurantID))
			}
		}

		for _, v := range candidates {
			if v != "" && v != own {
				return apierr.Forbidden("Access to another restaurant's data is not allowed")
			}
		}
		return c.Next()
	}
}

// rawID accepts both 7 and "7".
func rawID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
