package models

import "time"

type MovementType string

const (
	MovementIn         MovementType = "in"
	MovementOut        MovementType = "out"
	MovementCorrection MovementType = "correction"
	MovementWaste      MovementType = "waste"
)

func (t MovementType) Valid() bool {
	switch t {
	case MovementIn, MovementOut, MovementCorrection, MovementWaste:
		return true
	}
	return false
}

// StockMovement is an append-only ledger row. Rows are never updated or
// deleted; the product they point at may later be soft-deleted.
type StockMovement struct {
	ID            uint         `gorm:"primaryKey" json:"id"`
	TenantID      uint         `gorm:"index;not null" json:"tenantId"`
	ProductID     uint         `gorm:"index;not null" json:"productId"`
	Product       *Product     `json:"product,omitempty"`
	Type          MovementType `gorm:"size:20;not null;index" json:"type"`
	Quantity      float64      `gorm:"not null" json:"quantity"`
	PreviousStock float64      `gorm:"not null" json:"previousStock"`
	NewStock      float64      `gorm:"not null" json:"newStock"`
	UnitPrice     float64      `gorm:"not null" json:"unitPrice"`
	TotalValue    float64      `gorm:"not null" json:"totalValue"`
	Reason        string       `gorm:"size:200" json:"reason"`
	Supplier      string       `gorm:"size:100" json:"supplier"`
	InvoiceNumber string       `gorm:"size:64" json:"invoiceNumber"`
	UserID        *uint        `json:"userId"`
	UserName      string       `gorm:"size:100;not null" json:"user"`
	CreatedAt     time.Time    `gorm:"index" json:"createdAt"`
}
