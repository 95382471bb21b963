package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Unit string

const (
	UnitPiece  Unit = "piece"
	UnitKg     Unit = "kg"
	UnitGram   Unit = "gram"
	UnitLiter  Unit = "liter"
	UnitMl     Unit = "ml"
	UnitPack   Unit = "pack"
	UnitBox    Unit = "box"
	UnitBottle Unit = "bottle"
)

var Units = []Unit{UnitPiece, UnitKg, UnitGram, UnitLiter, UnitMl, UnitPack, UnitBox, UnitBottle}

func (u Unit) Valid() bool {
	for _, known := range Units {
		if u == known {
			return true
		}
	}
	return false
}

type StockStatus string

const (
	StockOut      StockStatus = "out"
	StockCritical StockStatus = "critical"
	StockNormal   StockStatus = "normal"
	StockExcess   StockStatus = "excess"
)

func (s StockStatus) Valid() bool {
	switch s {
	case StockOut, StockCritical, StockNormal, StockExcess:
		return true
	}
	return false
}

const (
	DefaultMinStock = 5
	DefaultMaxStock = 1000
)

type Product struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	TenantID     uint           `gorm:"index;not null" json:"tenantId"`
	Name         string         `gorm:"size:100;not null" json:"name"`
	Description  string         `gorm:"size:500" json:"description"`
	CategoryID   uint           `gorm:"index;not null" json:"categoryId"`
	Category     *Category      `json:"category,omitempty"`
	Unit         Unit           `gorm:"size:20;not null" json:"unit"`
	CurrentStock float64        `gorm:"not null" json:"currentStock"`
	MinStock     float64        `gorm:"not null" json:"minStock"`
	MaxStock     float64        `gorm:"not null" json:"maxStock"`
	UnitPrice    float64        `gorm:"not null" json:"unitPrice"`
	Supplier     string         `gorm:"size:100" json:"supplier"`
	Barcode      string         `gorm:"size:64;index" json:"barcode"`
	IsActive     bool           `gorm:"not null" json:"isActive"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// ClassifyStock derives the stock status. Out wins over critical, critical
// over excess.
func ClassifyStock(current, min, max float64) StockStatus {
	switch {
	case current <= 0:
		return StockOut
	case current <= min:
		return StockCritical
	case current >= max:
		return StockExcess
	}
	return StockNormal
}

func (p *Product) StockStatus() StockStatus {
	return ClassifyStock(p.CurrentStock, p.MinStock, p.MaxStock)
}

// StockValue is currentStock × unitPrice rounded to cents.
func (p *Product) StockValue() float64 {
	return LineValue(p.CurrentStock, p.UnitPrice)
}

// LineValue multiplies quantity by price in decimal and rounds to cents.
func LineValue(quantity, unitPrice float64) float64 {
	v, _ := decimal.NewFromFloat(quantity).Mul(decimal.NewFromFloat(unitPrice)).Round(2).Float64()
	return v
}
