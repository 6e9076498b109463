package products

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a purchasable item. Codes are unique; when left blank at
// creation one is generated from the product code sequence.
type Product struct {
	ID            int64           `json:"id"`
	Code          string          `json:"code"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	CategoryID    *int64          `json:"category_id,omitempty"`
	CategoryName  string          `json:"category_name,omitempty"`
	Unit          string          `json:"unit"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	StockQuantity int             `json:"stock_quantity"`
	ReorderLevel  int             `json:"reorder_level"`
	IsActive      bool            `json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// BelowReorder reports whether stock has fallen to the reorder level.
func (p Product) BelowReorder() bool {
	return p.ReorderLevel > 0 && p.StockQuantity <= p.ReorderLevel
}
