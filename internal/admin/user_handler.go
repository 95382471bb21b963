package admin

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
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type CreateUserRequest struct {
	Username    string              `json:"username" validate:"required,max=100"`
	Email       string              `json:"email" validate:"required,email"`
	Password    string              `json:"password" validate:"required,min=6"`
	Role        string              `json:"role" validate:"omitempty,oneof=owner manager employee"`
	FirstName   string              `json:"firstName" validate:"required,max=50"`
	LastName    string              `json:"lastName" validate:"required,max=50"`
	Phone       string              `json:"phone" validate:"max=50"`
	Permissions *models.Permissions `json:"permissions"`
}

type UpdateUserRequest struct {
	Role        *string                `json:"role" validate:"omitempty,oneof=owner manager employee"`
	FirstName   *string                `json:"firstName" validate:"omitempty,max=50"`
	LastName    *string                `json:"lastName" validate:"omitempty,max=50"`
	Phone       *string                `json:"phone" validate:"omitempty,max=50"`
	Avatar      *string                `json:"avatar" validate:"omitempty,max=255"`
	Permissions map[string]interface{} `json:"permissions"`
	IsActive    *bool                  `json:"isActive"`
}

type ChangePasswordRequest struct {
	NewPassword string `json:"newPassword" validate:"required,min=6"`
}

// NewUser validates and stores a user of the tenant. Email and username are
// unique across all tenants. Without explicit permissions the role defaults
// apply.
func NewUser(db *gorm.DB, tenantID uint, req CreateUserRequest) (*models.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Phone = strings.TrimSpace(req.Phone)
	if err := apierr.Validate(req); err != nil {
		return nil, err
	}

	role := models.UserRole(req.Role)
	if role == "" {
		role = models.RoleEmployee
	}

	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", req.Email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, apierr.Validation("email", "This email address is already in use")
	}
	taken, err := auth.UsernameTaken(db, req.Username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apierr.Validation("username", "This username is already in use")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	perms := models.DefaultPermissions(role)
	if req.Permissions != nil {
		perms = *req.Permissions
	}

	u := &models.User{
		TenantID:     tenantID,
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         role,
		Permissions:  perms,
		Profile: models.Profile{
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Phone:     req.Phone,
		},
		IsActive: true,
	}
	if err := db.Create(u).Error; err != nil {
		return nil, err
	}
	return u, nil
}

// GET /api/users
func ListUsersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var users []models.User
		if err := database.DB.Where("tenant_id = ?", auth.TenantID(c)).Order("created_at asc, id asc").Find(&users).Error; err != nil {
			return apierr.Wrap(err, "Could not list users")
		}

		out := make([]fiber.Map, 0, len(users))
		for i := range users {
			out = append(out, auth.UserPayload(&users[i]))
		}
		return c.JSON(fiber.Map{"success": true, "users": out})
	}
}

// POST /api/users
func CreateUserHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateUserRequest
		if err := c.BodyParser(&body); err != nil {
			return apierr.BadRequest("Invalid request body")
		}

		me := auth.CurrentUser(c)
		if models.UserRole(body.Role) == models.RoleOwner && me.Role != models.RoleOwner {
			return apierr.Forbidden("Only an owner can create another owner")
		}

		u, err := NewUser(database.DB, me.TenantID, body)
		if err != nil {
			return userError(c, "user create failed", err)
		}

		writeAudit(c, u.ID, models.AuditActionCreate, "User created: "+u.Username, nil, auth.UserPayload(u))
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"success": true,
			"message": "User created",
			"user":    auth.UserPayload(u),
		})
	}
}

// PUT /api/users/:id
// A user may edit their own profile here but not their role, status or
// permissions.
func UpdateUserHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		target, err := findUser(c)
		if err != nil {
			return err
		}
		me := auth.CurrentUser(c)

		var body UpdateUserRequest
		if err := c.BodyParser(&body); err != nil {
			return apierr.BadRequest("Invalid request body")
		}
		if err := apierr.Validate(body); err != nil {
			return err
		}

		if target.ID == me.ID && (body.Role != nil || body.IsActive != nil || body.Permissions != nil) {
			return apierr.BadRequest("You cannot change your own role, status or permissions")
		}
		if target.Role == models.RoleOwner && me.Role != models.RoleOwner {
			return apierr.Forbidden("Only an owner can edit another owner")
		}
		if body.Role != nil && models.UserRole(*body.Role) == models.RoleOwner && me.Role != models.RoleOwner {
			return apierr.Forbidden("Only an owner can grant the owner role")
		}

		before := auth.UserPayload(target)

		if body.Role != nil {
			target.Role = models.UserRole(*body.Role)
		}
		if body.FirstName != nil {
			target.Profile.FirstName = strings.TrimSpace(*body.FirstName)
		}
		if body.LastName != nil {
			target.Profile.LastName = strings.TrimSpace(*body.LastName)
		}
		if body.Phone != nil {
			target.Profile.Phone = strings.TrimSpace(*body.Phone)
		}
		if body.Avatar != nil {
			target.Profile.Avatar = strings.TrimSpace(*body.Avatar)
		}
		if body.Permissions != nil {
			if err := mergePermissions(&target.Permissions, body.Permissions); err != nil {
				return err
			}
		}
		if body.IsActive != nil {
			target.IsActive = *body.IsActive
		}

		err = database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Save(target).Error; err != nil {
				return err
			}
			if !target.IsActive {
				return auth.RevokeUserSessions(tx, target.ID, "")
			}
			return nil
		})
		if err != nil {
			return userError(c, "user update failed", err)
		}

		writeAudit(c, target.ID, models.AuditActionUpdate, "User updated: "+target.Username, before, auth.UserPayload(target))
		return c.JSON(fiber.Map{
			"success": true,
			"message": "User updated",
			"user":    auth.UserPayload(target),
		})
	}
}

// DELETE /api/users/:id
func DeleteUserHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		target, err := findUser(c)
		if err != nil {
			return err
		}
		me := auth.CurrentUser(c)

		if target.ID == me.ID {
			return apierr.BadRequest("You cannot delete your own account")
		}
		if target.Role == models.RoleOwner && me.Role != models.RoleOwner {
			return apierr.Forbidden("Only an owner can delete another owner")
		}

		err = database.DB.Transaction(func(tx *gorm.DB) error {
			if err := auth.RevokeUserSessions(tx, target.ID, ""); err != nil {
				return err
			}
			return tx.Delete(target).Error
		})
		if err != nil {
			return userError(c, "user delete failed", err)
		}

		writeAudit(c, target.ID, models.AuditActionDelete, "User deleted: "+target.Username, auth.UserPayload(target), nil)
		return c.JSON(fiber.Map{"success": true, "message": "User deleted"})
	}
}

// PUT /api/users/:id/password
// Other sessions of the user are ended; the caller keeps their own.
func ChangePasswordHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body ChangePasswordRequest
		if err := c.BodyParser(&body); err != nil {
			return apierr.BadRequest("Invalid request body")
		}
		if err := apierr.Validate(body); err != nil {
			return err
		}

		target, err := findUser(c)
		if err != nil {
			return err
		}
		me := auth.CurrentUser(c)
		if target.Role == models.RoleOwner && target.ID != me.ID && me.Role != models.RoleOwner {
			return apierr.Forbidden("Only an owner can change another owner's password")
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(body.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			return apierr.Internal("Could not hash password")
		}

		keep := ""
		if target.ID == me.ID {
			keep = auth.SessionID(c)
		}
		err = database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(target).Update("password_hash", string(hash)).Error; err != nil {
				return err
			}
			return auth.RevokeUserSessions(tx, target.ID, keep)
		})
		if err != nil {
			return userError(c, "password change failed", err)
		}

		writeAudit(c, target.ID, models.AuditActionPasswordChange, "Password changed: "+target.Username, nil, nil)
		return c.JSON(fiber.Map{"success": true, "message": "Password changed"})
	}
}

func findUser(c *fiber.Ctx) (*models.User, error) {
	var id uint
	if _, err := fmt.Sscan(c.Params("id"), &id); err != nil || id == 0 {
		return nil, apierr.Validation("id", "Invalid id")
	}

	var u models.User
	if err := database.DB.Where("id = ? AND tenant_id = ?", id, auth.TenantID(c)).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("User not found")
		}
		return nil, apierr.Wrap(err, "Could not load user")
	}
	return &u, nil
}

// mergePermissions applies the known boolean flags of patch onto p.
func mergePermissions(p *models.Permissions, patch map[string]interface{}) error {
	fields := map[models.Permission]*bool{
		models.PermManageProducts:   &p.CanManageProducts,
		models.PermManageCategories: &p.CanManageCategories,
		models.PermManageStock:      &p.CanManageStock,
		models.PermViewReports:      &p.CanViewReports,
		models.PermManageUsers:      &p.CanManageUsers,
	}
	for k, v := range patch {
		dst, ok := fields[models.Permission(k)]
		if !ok {
			return apierr.Validation("permissions", "Unknown permission: "+k)
		}
		b, ok := v.(bool)
		if !ok {
			return apierr.Validation("permissions", k+" must be true or false")
		}
		*dst = b
	}
	return nil
}

func userError(c *fiber.Ctx, msg string, err error) error {
	var apiErr *apierr.Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	logger.FromFiber(c).Error(msg, zap.Error(err))
	return apierr.Internal("User could not be saved")
}

func writeAudit(c *fiber.Ctx, id uint, action models.AuditAction, desc string, before, after any) {
	me := auth.CurrentUser(c)
	err := audit.WriteLog(database.DB, audit.LogOptions{
		TenantID:    me.TenantID,
		UserID:      me.ID,
		UserName:    me.FullName(),
		EntityType:  "user",
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
