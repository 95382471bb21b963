package models

import "time"

type SubscriptionPlan string

const (
	PlanBasic      SubscriptionPlan = "basic"
	PlanPremium    SubscriptionPlan = "premium"
	PlanEnterprise SubscriptionPlan = "enterprise"
)

type Address struct {
	Street  string `gorm:"size:200" json:"street"`
	City    string `gorm:"size:100" json:"city"`
	State   string `gorm:"size:100" json:"state"`
	ZipCode string `gorm:"size:20" json:"zipCode"`
	Country string `gorm:"size:100" json:"country"`
}

type TenantSettings struct {
	Currency string `gorm:"size:10;not null" json:"currency"`
	Timezone string `gorm:"size:64;not null" json:"timezone"`
	Language string `gorm:"size:10;not null" json:"language"`
}

func DefaultSettings() TenantSettings {
	return TenantSettings{Currency: "TL", Timezone: "Europe/Istanbul", Language: "tr"}
}

type Subscription struct {
	Plan      SubscriptionPlan `gorm:"size:20;not null" json:"plan"`
	StartDate time.Time        `json:"startDate"`
	EndDate   *time.Time       `json:"endDate"`
	IsActive  bool             `gorm:"not null" json:"isActive"`
}

// Tenant is a restaurant. Every catalog and ledger row belongs to one.
type Tenant struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Name         string         `gorm:"size:100;not null" json:"name"`
	Slug         string         `gorm:"size:120;uniqueIndex;not null" json:"slug"`
	Email        string         `gorm:"size:100;not null" json:"email"`
	Phone        string         `gorm:"size:50" json:"phone"`
	Address      Address        `gorm:"embedded;embeddedPrefix:address_" json:"address"`
	Settings     TenantSettings `gorm:"embedded;embeddedPrefix:settings_" json:"settings"`
	Subscription Subscription   `gorm:"embedded;embeddedPrefix:subscription_" json:"subscription"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// Active reports whether the subscription allows use at t.
func (t *Tenant) Active(at time.Time) bool {
	if !t.Subscription.IsActive {
		return false
	}
	return t.Subscription.EndDate == nil || at.Before(*t.Subscription.EndDate)
}

// Location is the tenant's configured time zone, UTC if unknown.
func (t *Tenant) Location() *time.Location {
	if t.Settings.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(t.Settings.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
