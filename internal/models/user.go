package models

import (
	"strings"
	"time"
)

type UserRole string

const (
	RoleOwner    UserRole = "owner"
	RoleManager  UserRole = "manager"
	RoleEmployee UserRole = "employee"
)

func (r UserRole) Valid() bool {
	switch r {
	case RoleOwner, RoleManager, RoleEmployee:
		return true
	}
	return false
}

type Permission string

const (
	PermManageProducts   Permission = "canManageProducts"
	PermManageCategories Permission = "canManageCategories"
	PermManageStock      Permission = "canManageStock"
	PermViewReports      Permission = "canViewReports"
	PermManageUsers      Permission = "canManageUsers"
)

type Permissions struct {
	CanManageProducts   bool `gorm:"not null" json:"canManageProducts"`
	CanManageCategories bool `gorm:"not null" json:"canManageCategories"`
	CanManageStock      bool `gorm:"not null" json:"canManageStock"`
	CanViewReports      bool `gorm:"not null" json:"canViewReports"`
	CanManageUsers      bool `gorm:"not null" json:"canManageUsers"`
}

func (p Permissions) Has(perm Permission) bool {
	switch perm {
	case PermManageProducts:
		return p.CanManageProducts
	case PermManageCategories:
		return p.CanManageCategories
	case PermManageStock:
		return p.CanManageStock
	case PermViewReports:
		return p.CanViewReports
	case PermManageUsers:
		return p.CanManageUsers
	}
	return false
}

// DefaultPermissions is the permission set a new user of the role receives.
func DefaultPermissions(role UserRole) Permissions {
	managerOrOwner := role == RoleOwner || role == RoleManager
	return Permissions{
		CanManageProducts:   managerOrOwner,
		CanManageCategories: managerOrOwner,
		CanManageStock:      true,
		CanViewReports:      true,
		CanManageUsers:      role == RoleOwner,
	}
}

// AllPermissions is granted to the owner created at registration.
func AllPermissions() Permissions {
	return Permissions{true, true, true, true, true}
}

type Profile struct {
	FirstName string `gorm:"size:50" json:"firstName"`
	LastName  string `gorm:"size:50" json:"lastName"`
	Phone     string `gorm:"size:50" json:"phone"`
	Avatar    string `gorm:"size:255" json:"avatar"`
}

type User struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	TenantID     uint        `gorm:"index;not null" json:"tenantId"`
	Tenant       *Tenant     `json:"-"`
	Username     string      `gorm:"size:100;not null;index" json:"username"`
	Email        string      `gorm:"size:100;uniqueIndex;not null" json:"email"`
	PasswordHash string      `gorm:"size:255;not null" json:"-"`
	Role         UserRole    `gorm:"size:20;not null" json:"role"`
	Permissions  Permissions `gorm:"embedded;embeddedPrefix:perm_" json:"permissions"`
	Profile      Profile     `gorm:"embedded;embeddedPrefix:profile_" json:"profile"`
	LastLogin    *time.Time  `json:"lastLogin"`
	IsActive     bool        `gorm:"not null" json:"isActive"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// FullName is "First Last", falling back to the username.
func (u *User) FullName() string {
	name := strings.TrimSpace(u.Profile.FirstName + " " + u.Profile.LastName)
	if name == "" {
		return u.Username
	}
	return name
}
