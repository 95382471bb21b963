package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassifyStock(t *testing.T) {
	tests := []struct {
		current, min, max float64
		want              StockStatus
	}{
		{0, 5, 1000, StockOut},
		{-1, 5, 1000, StockOut},
		{0.5, 5, 1000, StockCritical},
		{5, 5, 1000, StockCritical},
		{5.01, 5, 1000, StockNormal},
		{10, 5, 1000, StockNormal},
		{1000, 5, 1000, StockExcess},
		{1500, 5, 1000, StockExcess},
		// critical takes precedence when the thresholds overlap
		{3, 5, 2, StockCritical},
		{0, 0, 0, StockOut},
	}
	for _, tt := range tests {
		got := ClassifyStock(tt.current, tt.min, tt.max)
		assert.Equal(t, tt.want, got, "current=%v min=%v max=%v", tt.current, tt.min, tt.max)
	}
}

func TestProductStockStatusAndValue(t *testing.T) {
	p := Product{CurrentStock: 10, MinStock: 5, MaxStock: 1000, UnitPrice: 12.345}
	assert.Equal(t, StockNormal, p.StockStatus())
	assert.Equal(t, 123.45, p.StockValue())

	p.CurrentStock = 2
	assert.Equal(t, StockCritical, p.StockStatus())
}

func TestLineValueRoundsToCents(t *testing.T) {
	assert.Equal(t, 0.3, LineValue(3, 0.1))
	assert.Equal(t, 33.33, LineValue(1, 33.333))
	assert.Equal(t, 0.0, LineValue(0, 99))
}

func TestUserFullName(t *testing.T) {
	u := User{Username: "ana"}
	assert.Equal(t, "ana", u.FullName())

	u.Profile = Profile{FirstName: "Ana", LastName: "Garcia"}
	assert.Equal(t, "Ana Garcia", u.FullName())

	u.Profile = Profile{FirstName: "Ana"}
	assert.Equal(t, "Ana", u.FullName())
}

func TestDefaultPermissions(t *testing.T) {
	owner := DefaultPermissions(RoleOwner)
	assert.True(t, owner.Has(PermManageUsers))
	assert.True(t, owner.Has(PermManageProducts))

	manager := DefaultPermissions(RoleManager)
	assert.False(t, manager.Has(PermManageUsers))
	assert.True(t, manager.Has(PermManageCategories))

	employee := DefaultPermissions(RoleEmployee)
	assert.False(t, employee.Has(PermManageProducts))
	assert.True(t, employee.Has(PermManageStock))
	assert.True(t, employee.Has(PermViewReports))

	assert.False(t, AllPermissions().Has(Permission("canFly")))
}

func TestTenantActive(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tenant := Tenant{Subscription: Subscription{IsActive: true}}
	assert.True(t, tenant.Active(now))

	tenant.Subscription.EndDate = &future
	assert.True(t, tenant.Active(now))

	tenant.Subscription.EndDate = &past
	assert.False(t, tenant.Active(now))

	tenant.Subscription = Subscription{IsActive: false}
	assert.False(t, tenant.Active(now))
}

func TestTenantLocationFallsBackToUTC(t *testing.T) {
	tenant := Tenant{Settings: TenantSettings{Timezone: "Not/AZone"}}
	assert.Equal(t, time.UTC, tenant.Location())
}
