package products

import "github.com/shopspring/decimal"

type productForm struct {
	Code          string          `json:"code" validate:"max=32"`
	Name          string          `json:"name" validate:"required,max=255"`
	Description   string          `json:"description"`
	CategoryID    *int64          `json:"category_id" validate:"omitempty,gt=0"`
	Unit          string          `json:"unit" validate:"required,max=32"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	StockQuantity int             `json:"stock_quantity" validate:"gte=0"`
	ReorderLevel  int             `json:"reorder_level" validate:"gte=0"`
}

func (f productForm) model() Product {
	return Product{
		Code:          f.Code,
		Name:          f.Name,
		Description:   f.Description,
		CategoryID:    f.CategoryID,
		Unit:          f.Unit,
		UnitPrice:     f.UnitPrice,
		StockQuantity: f.StockQuantity,
		ReorderLevel:  f.ReorderLevel,
	}
}
