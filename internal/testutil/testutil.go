// Package testutil provides an in-memory database and fixtures for tests.
package testutil

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"stok-takip/internal/database"
	"stok-takip/internal/models"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const Password = "secret1"

var dbSeq atomic.Int64

// NewDB creates a migrated in-memory SQLite database and installs it as
// database.DB for the duration of the test.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := database.Open("sqlite", dsn)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	prev := database.DB
	database.DB = db
	t.Cleanup(func() {
		database.DB = prev
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// Tenant creates an active tenant named name with an owner whose email is
// derived from the name and whose password is Password.
func Tenant(t *testing.T, db *gorm.DB, name string) (*models.Tenant, *models.User) {
	t.Helper()

	slug := strings.ReplaceAll(strings.ToLower(name), " ", "-")
	tenant := &models.Tenant{
		Name:     name,
		Slug:     slug,
		Email:    "owner@" + slug + ".test",
		Settings: models.TenantSettings{Currency: "TL", Timezone: "UTC", Language: "en"},
		Subscription: models.Subscription{
			Plan:      models.PlanBasic,
			StartDate: time.Now().UTC(),
			IsActive:  true,
		},
	}
	require.NoError(t, db.Create(tenant).Error)

	owner := User(t, db, tenant.ID, "owner@"+slug+".test", models.RoleOwner)
	return tenant, owner
}

// User creates an active user in the tenant with default permissions.
func User(t *testing.T, db *gorm.DB, tenantID uint, email string, role models.UserRole) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	require.NoError(t, err)

	u := &models.User{
		TenantID:     tenantID,
		Username:     strings.SplitN(email, "@", 2)[0],
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		Permissions:  models.DefaultPermissions(role),
		IsActive:     true,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func Category(t *testing.T, db *gorm.DB, tenantID uint, name string) *models.Category {
	t.Helper()

	c := &models.Category{
		TenantID: tenantID,
		Name:     name,
		Type:     models.CategoryOther,
		Color:    models.DefaultCategoryColor,
		IsActive: true,
	}
	require.NoError(t, db.Create(c).Error)
	return c
}

// Product creates a product directly, without an initial ledger entry.
func Product(t *testing.T, db *gorm.DB, tenantID, categoryID uint, name string, stock, minStock float64) *models.Product {
	t.Helper()

	p := &models.Product{
		TenantID:     tenantID,
		CategoryID:   categoryID,
		Name:         name,
		Unit:         models.UnitKg,
		CurrentStock: stock,
		MinStock:     minStock,
		MaxStock:     models.DefaultMaxStock,
		UnitPrice:    10,
		IsActive:     true,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}
