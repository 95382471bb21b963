// Package report builds the read-only inventory reports of a tenant.
package report

import (
	"fmt"
	"sort"
	"time"

	"stok-takip/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CategoryStock struct {
	CategoryID    uint    `json:"categoryId"`
	CategoryName  string  `json:"categoryName"`
	CategoryType  string  `json:"categoryType"`
	TotalProducts int64   `json:"totalProducts"`
	TotalStock    float64 `json:"totalStock"`
	TotalValue    float64 `json:"totalValue"`
	OutOfStock    int64   `json:"outOfStock"`
	CriticalStock int64   `json:"criticalStock"`
}

// StockByCategory rolls active products up per category, sorted by name.
func StockByCategory(db *gorm.DB, tenantID uint) ([]CategoryStock, error) {
	rows := []CategoryStock{}
	err := db.Raw(`
		SELECT c.id AS category_id,
		       c.name AS category_name,
		       c.type AS category_type,
		       COUNT(p.id) AS total_products,
		       COALESCE(SUM(p.current_stock), 0) AS total_stock,
		       COALESCE(SUM(p.current_stock * p.unit_price), 0) AS total_value,
		       SUM(CASE WHEN p.current_stock <= 0 THEN 1 ELSE 0 END) AS out_of_stock,
		       SUM(CASE WHEN p.current_stock > 0 AND p.current_stock <= p.min_stock THEN 1 ELSE 0 END) AS critical_stock
		FROM products p
		JOIN categories c ON c.id = p.category_id
		WHERE p.tenant_id = ? AND p.is_active = ? AND p.deleted_at IS NULL
		GROUP BY c.id, c.name, c.type
		ORDER BY c.name ASC`, tenantID, true).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("stock by category: %w", err)
	}
	for i := range rows {
		rows[i].TotalValue = round2(rows[i].TotalValue)
	}
	return rows, nil
}

type MovementFilter struct {
	From       time.Time
	To         time.Time
	Type       models.MovementType
	CategoryID uint
}

type MovementLine struct {
	Date       time.Time `json:"date"`
	Product    string    `json:"product"`
	Category   string    `json:"category"`
	Quantity   float64   `json:"quantity"`
	UnitPrice  float64   `json:"unitPrice"`
	TotalValue float64   `json:"totalValue"`
	Reason     string    `json:"reason"`
	User       string    `json:"user"`
}

type MovementGroup struct {
	Type           models.MovementType `json:"type"`
	TotalMovements int64               `json:"totalMovements"`
	TotalQuantity  float64             `json:"totalQuantity"`
	TotalValue     float64             `json:"totalValue"`
	Movements      []MovementLine      `json:"movements"`
}

type movementRow struct {
	Type         models.MovementType
	Quantity     float64
	UnitPrice    float64
	TotalValue   float64
	Reason       string
	UserName     string
	CreatedAt    time.Time
	ProductName  string
	CategoryName string
}

// StockMovements groups the tenant's movements by type, each group listing
// its movements oldest first. Movements of deleted products are included.
func StockMovements(db *gorm.DB, tenantID uint, f MovementFilter) ([]MovementGroup, error) {
	q := db.Table("stock_movements AS m").
		Select(`m.type, m.quantity, m.unit_price, m.total_value, m.reason, m.user_name, m.created_at,
			p.name AS product_name, c.name AS category_name`).
		Joins("JOIN products p ON p.id = m.product_id").
		Joins("LEFT JOIN categories c ON c.id = p.category_id").
		Where("m.tenant_id = ?", tenantID)

	if !f.From.IsZero() {
		q = q.Where("m.created_at >= ?", f.From)
	}
	if !f.To.IsZero() {
		q = q.Where("m.created_at <= ?", f.To)
	}
	if f.Type != "" {
		q = q.Where("m.type = ?", f.Type)
	}
	if f.CategoryID != 0 {
		q = q.Where("p.category_id = ?", f.CategoryID)
	}

	var rows []movementRow
	if err := q.Order("m.created_at ASC, m.id ASC").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("stock movements: %w", err)
	}

	byType := map[models.MovementType]*MovementGroup{}
	quantities := map[models.MovementType]decimal.Decimal{}
	values := map[models.MovementType]decimal.Decimal{}
	for _, r := range rows {
		g, ok := byType[r.Type]
		if !ok {
			g = &MovementGroup{Type: r.Type, Movements: []MovementLine{}}
			byType[r.Type] = g
		}
		g.TotalMovements++
		quantities[r.Type] = quantities[r.Type].Add(decimal.NewFromFloat(r.Quantity))
		values[r.Type] = values[r.Type].Add(decimal.NewFromFloat(r.TotalValue))
		g.Movements = append(g.Movements, MovementLine{
			Date:       r.CreatedAt,
			Product:    r.ProductName,
			Category:   r.CategoryName,
			Quantity:   r.Quantity,
			UnitPrice:  r.UnitPrice,
			TotalValue: r.TotalValue,
			Reason:     r.Reason,
			User:       r.UserName,
		})
	}

	groups := make([]MovementGroup, 0, len(byType))
	for t, g := range byType {
		g.TotalQuantity, _ = quantities[t].Float64()
		g.TotalValue, _ = values[t].Round(2).Float64()
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Type < groups[j].Type })
	return groups, nil
}

type ActiveProduct struct {
	ProductID      uint    `json:"productId"`
	ProductName    string  `json:"productName"`
	CategoryName   string  `json:"categoryName"`
	CurrentStock   float64 `json:"currentStock"`
	TotalMovements int64   `json:"totalMovements"`
	TotalQuantity  float64 `json:"totalQuantity"`
	TotalValue     float64 `json:"totalValue"`
	InQuantity     float64 `json:"inQuantity"`
	OutQuantity    float64 `json:"outQuantity"`
}

const mostActiveLimit = 20

// MostActiveProducts ranks products by movement count since the given time.
// Waste counts toward outQuantity.
func MostActiveProducts(db *gorm.DB, tenantID uint, since time.Time) ([]ActiveProduct, error) {
	rows := []ActiveProduct{}
	err := db.Raw(`
		SELECT m.product_id AS product_id,
		       p.name AS product_name,
		       COALESCE(c.name, '') AS category_name,
		       p.current_stock AS current_stock,
		       COUNT(m.id) AS total_movements,
		       SUM(m.quantity) AS total_quantity,
		       SUM(m.total_value) AS total_value,
		       SUM(CASE WHEN m.type = ? THEN m.quantity ELSE 0 END) AS in_quantity,
		       SUM(CASE WHEN m.type IN (?, ?) THEN m.quantity ELSE 0 END) AS out_quantity
		FROM stock_movements m
		JOIN products p ON p.id = m.product_id
		LEFT JOIN categories c ON c.id = p.category_id
		WHERE m.tenant_id = ? AND m.created_at >= ?
		GROUP BY m.product_id, p.name, c.name, p.current_stock
		ORDER BY total_movements DESC, p.name ASC
		LIMIT ?`,
		models.MovementIn, models.MovementOut, models.MovementWaste,
		tenantID, since, mostActiveLimit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("most active products: %w", err)
	}
	for i := range rows {
		rows[i].TotalValue = round2(rows[i].TotalValue)
	}
	return rows, nil
}

type DayTypeTotals struct {
	Type           models.MovementType `json:"type"`
	TotalMovements int64               `json:"totalMovements"`
	TotalQuantity  float64             `json:"totalQuantity"`
	TotalValue     float64             `json:"totalValue"`
}

type DaySummary struct {
	Date      string          `json:"date"`
	Movements []DayTypeTotals `json:"movements"`
}

// DailySummary buckets movements between since and until by calendar day in
// loc, and by type within each day. Days without movements are omitted.
func DailySummary(db *gorm.DB, tenantID uint, since, until time.Time, loc *time.Location) ([]DaySummary, error) {
	var rows []models.StockMovement
	err := db.Select("type", "quantity", "total_value", "created_at").
		Where("tenant_id = ? AND created_at >= ? AND created_at <= ?", tenantID, since, until).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("daily summary: %w", err)
	}

	type key struct {
		day string
		typ models.MovementType
	}
	type agg struct {
		count    int64
		quantity decimal.Decimal
		value    decimal.Decimal
	}
	buckets := map[key]*agg{}
	for _, m := range rows {
		k := key{m.CreatedAt.In(loc).Format("2006-01-02"), m.Type}
		a, ok := buckets[k]
		if !ok {
			a = &agg{}
			buckets[k] = a
		}
		a.count++
		a.quantity = a.quantity.Add(decimal.NewFromFloat(m.Quantity))
		a.value = a.value.Add(decimal.NewFromFloat(m.TotalValue))
	}

	days := map[string]*DaySummary{}
	for k, a := range buckets {
		d, ok := days[k.day]
		if !ok {
			d = &DaySummary{Date: k.day}
			days[k.day] = d
		}
		qty, _ := a.quantity.Float64()
		val, _ := a.value.Round(2).Float64()
		d.Movements = append(d.Movements, DayTypeTotals{
			Type: k.typ, TotalMovements: a.count, TotalQuantity: qty, TotalValue: val,
		})
	}

	out := make([]DaySummary, 0, len(days))
	for _, d := range days {
		sort.Slice(d.Movements, func(i, j int) bool { return d.Movements[i].Type < d.Movements[j].Type })
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

type LowStockItem struct {
	ID           uint               `json:"id"`
	Name         string             `json:"name"`
	Category     string             `json:"category"`
	CurrentStock float64            `json:"currentStock"`
	MinStock     float64            `json:"minStock"`
	Unit         models.Unit        `json:"unit"`
	StockStatus  models.StockStatus `json:"stockStatus"`
	Shortage     float64            `json:"shortage"`
	Supplier     string             `json:"supplier"`
}

// LowStock lists active products at or below their minimum, lowest stock
// first.
func LowStock(db *gorm.DB, tenantID uint) ([]LowStockItem, error) {
	var products []models.Product
	err := db.Preload("Category", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Where("tenant_id = ? AND is_active = ? AND current_stock <= min_stock", tenantID, true).
		Order("current_stock ASC, name ASC").
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("low stock: %w", err)
	}

	items := make([]LowStockItem, 0, len(products))
	for i := range products {
		p := &products[i]
		shortage, _ := decimal.NewFromFloat(p.MinStock).Sub(decimal.NewFromFloat(p.CurrentStock)).Float64()
		items = append(items, LowStockItem{
			ID:           p.ID,
			Name:         p.Name,
			Category:     categoryName(p),
			CurrentStock: p.CurrentStock,
			MinStock:     p.MinStock,
			Unit:         p.Unit,
			StockStatus:  p.StockStatus(),
			Shortage:     shortage,
			Supplier:     p.Supplier,
		})
	}
	return items, nil
}

type ValueSummary struct {
	TotalValue    float64 `json:"totalValue"`
	TotalProducts int64   `json:"totalProducts"`
	TotalStock    float64 `json:"totalStock"`
}

type CategoryValue struct {
	CategoryID    uint    `json:"categoryId"`
	CategoryName  string  `json:"categoryName"`
	CategoryType  string  `json:"categoryType"`
	TotalValue    float64 `json:"totalValue"`
	TotalProducts int64   `json:"totalProducts"`
	TotalStock    float64 `json:"totalStock"`
}

type ProductValue struct {
	ID           uint    `json:"id"`
	Name         string  `json:"name"`
	Category     string  `json:"category"`
	CurrentStock float64 `json:"currentStock"`
	UnitPrice    float64 `json:"unitPrice"`
	TotalValue   float64 `json:"totalValue"`
}

type ValueAnalysis struct {
	Summary          ValueSummary    `json:"summary"`
	CategoryValues   []CategoryValue `json:"categoryValues"`
	TopValueProducts []ProductValue  `json:"topValueProducts"`
}

const topValueLimit = 10

// Analyze computes inventory value overall, per category (highest first) and
// for the most valuable products.
func Analyze(db *gorm.DB, tenantID uint) (*ValueAnalysis, error) {
	var products []models.Product
	err := db.Preload("Category", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Where("tenant_id = ? AND is_active = ?", tenantID, true).
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("value analysis: %w", err)
	}

	type catAgg struct {
		CategoryValue
		value decimal.Decimal
		stock decimal.Decimal
	}
	cats := map[uint]*catAgg{}
	total, stock := decimal.Zero, decimal.Zero
	top := make([]ProductValue, 0, len(products))

	for i := range products {
		p := &products[i]
		v := decimal.NewFromFloat(p.CurrentStock).Mul(decimal.NewFromFloat(p.UnitPrice))
		q := decimal.NewFromFloat(p.CurrentStock)
		total = total.Add(v)
		stock = stock.Add(q)

		a, ok := cats[p.CategoryID]
		if !ok {
			a = &catAgg{CategoryValue: CategoryValue{CategoryID: p.CategoryID, CategoryName: categoryName(p)}}
			if p.Category != nil {
				a.CategoryType = string(p.Category.Type)
			}
			cats[p.CategoryID] = a
		}
		a.TotalProducts++
		a.value = a.value.Add(v)
		a.stock = a.stock.Add(q)

		top = append(top, ProductValue{
			ID:           p.ID,
			Name:         p.Name,
			Category:     categoryName(p),
			CurrentStock: p.CurrentStock,
			UnitPrice:    p.UnitPrice,
			TotalValue:   p.StockValue(),
		})
	}

	res := &ValueAnalysis{CategoryValues: make([]CategoryValue, 0, len(cats))}
	res.Summary.TotalProducts = int64(len(products))
	res.Summary.TotalValue, _ = total.Round(2).Float64()
	res.Summary.TotalStock, _ = stock.Float64()

	for _, a := range cats {
		a.TotalValue, _ = a.value.Round(2).Float64()
		a.TotalStock, _ = a.stock.Float64()
		res.CategoryValues = append(res.CategoryValues, a.CategoryValue)
	}
	sort.Slice(res.CategoryValues, func(i, j int) bool {
		a, b := res.CategoryValues[i], res.CategoryValues[j]
		if a.TotalValue != b.TotalValue {
			return a.TotalValue > b.TotalValue
		}
		return a.CategoryName < b.CategoryName
	})

	sort.SliceStable(top, func(i, j int) bool {
		if top[i].TotalValue != top[j].TotalValue {
			return top[i].TotalValue > top[j].TotalValue
		}
		return top[i].Name < top[j].Name
	})
	if len(top) > topValueLimit {
		top = top[:topValueLimit]
	}
	res.TopValueProducts = top
	return res, nil
}

func categoryName(p *models.Product) string {
	if p.Category == nil {
		return ""
	}
	return p.Category.Name
}

func round2(v float64) float64 {
	r, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return r
}
