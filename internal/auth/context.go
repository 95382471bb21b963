package auth

import (
	"stok-takip/internal/models"

	"github.com/gofiber/fiber/v2"
)

const (
	CtxUserKey    = "user"
	CtxTenantKey  = "tenant"
	CtxSessionKey = "session"
)

func CurrentUser(c *fiber.Ctx) *models.User {
	u, _ := c.Locals(CtxUserKey).(*models.User)
	return u
}

func CurrentTenant(c *fiber.Ctx) *models.Tenant {
	t, _ := c.Locals(CtxTenantKey).(*models.Tenant)
	return t
}

// TenantID is the id of the session tenant, 0 outside RequireAuth.
func TenantID(c *fiber.Ctx) uint {
	if t := CurrentTenant(c); t != nil {
		return t.ID
	}
	return 0
}

func SessionID(c *fiber.Ctx) string {
	if s, ok := c.Locals(CtxSessionKey).(*models.Session); ok {
		return s.ID
	}
	return ""
}
