package vendors

import (
	"fmt"
	"strings"

	internalshared "github.com/procuredesk/procuredesk/internal/shared"
)

func (s *Service) validate(v Vendor) error {
	if strings.TrimSpace(v.Code) == "" {
		return fmt.Errorf("%w: vendor code is required", internalshared.ErrValidation)
	}
	if strings.TrimSpace(v.CompanyName) == "" {
		return fmt.Errorf("%w: company name is required", internalshared.ErrValidation)
	}
	if v.CreditLimit.IsNegative() {
		return fmt.Errorf("%w: credit limit cannot be negative", internalshared.ErrValidation)
	}
	if v.Rating < 0 || v.Rating > 5 {
		return fmt.Errorf("%w: rating must be between 0 and 5", internalshared.ErrValidation)
	}
	return nil
}
