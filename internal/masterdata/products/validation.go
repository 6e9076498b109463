package products

import (
	"fmt"
	"strings"

	internalshared "github.com/procuredesk/procuredesk/internal/shared"
)

func (s *Service) validate(p Product) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: product name is required", internalshared.ErrValidation)
	}
	if strings.TrimSpace(p.Unit) == "" {
		return fmt.Errorf("%w: unit of measure is required", internalshared.ErrValidation)
	}
	if p.UnitPrice.IsNegative() {
		return fmt.Errorf("%w: unit price cannot be negative", internalshared.ErrValidation)
	}
	if p.StockQuantity < 0 || p.ReorderLevel < 0 {
		return fmt.Errorf("%w: stock counters cannot be negative", internalshared.ErrValidation)
	}
	return nil
}
