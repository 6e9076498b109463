package vendors

import (
	"time"

	"github.com/shopspring/decimal"
)

// ApprovalStatus is the onboarding state of a vendor.
type ApprovalStatus string

const (
	ApprovalPending   ApprovalStatus = "pending"
	ApprovalApproved  ApprovalStatus = "approved"
	ApprovalRejected  ApprovalStatus = "rejected"
	ApprovalSuspended ApprovalStatus = "suspended"
)

// Valid reports whether the status is a known approval state.
func (s ApprovalStatus) Valid() bool {
	switch s {
	case ApprovalPending, ApprovalApproved, ApprovalRejected, ApprovalSuspended:
		return true
	}
	return false
}

// Vendor represents a supplier company. Only active and approved vendors can
// be invited to an RFQ.
type Vendor struct {
	ID              int64           `json:"id"`
	Code            string          `json:"code"`
	CompanyName     string          `json:"company_name"`
	ContactName     string          `json:"contact_name"`
	Email           string          `json:"email"`
	Phone           string          `json:"phone"`
	Address         string          `json:"address"`
	PaymentTerms    string          `json:"payment_terms"`
	CreditLimit     decimal.Decimal `json:"credit_limit"`
	Rating          float64         `json:"rating"`
	ApprovalStatus  ApprovalStatus  `json:"approval_status"`
	RejectionReason string          `json:"rejection_reason,omitempty"`
	IsActive        bool            `json:"is_active"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}
