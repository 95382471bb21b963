package models

import (
	"time"

	"gorm.io/gorm"
)

type CategoryType string

const (
	CategoryFood  CategoryType = "food"
	CategoryDrink CategoryType = "drink"
	CategoryOther CategoryType = "other"
)

func (t CategoryType) Valid() bool {
	switch t {
	case CategoryFood, CategoryDrink, CategoryOther:
		return true
	}
	return false
}

const DefaultCategoryColor = "#007bff"

// Category names are unique per tenant among rows that are not soft-deleted;
// the handlers enforce it.
type Category struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	TenantID    uint           `gorm:"index;not null" json:"tenantId"`
	Name        string         `gorm:"size:50;not null" json:"name"`
	Description string         `gorm:"size:200" json:"description"`
	Type        CategoryType   `gorm:"size:20;not null" json:"type"`
	Color       string         `gorm:"size:20;not null" json:"color"`
	IsActive    bool           `gorm:"not null" json:"isActive"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}
