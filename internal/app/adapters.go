package app

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/procuredesk/procuredesk/internal/billing"
	"github.com/procuredesk/procuredesk/internal/billing/razorpay"
	"github.com/procuredesk/procuredesk/internal/masterdata/vendors"
	"github.com/procuredesk/procuredesk/internal/procurement"
)

// vendorDirectory adapts the vendor master data service to the procurement
// engine's directory port.
type vendorDirectory struct {
	svc *vendors.Service
}

// NewVendorDirectory wraps the vendor service for procurement.
func NewVendorDirectory(svc *vendors.Service) procurement.VendorDirectory {
	return vendorDirectory{svc: svc}
}

func (d vendorDirectory) Vendor(ctx context.Context, id int64) (procurement.VendorRef, error) {
	v, err := d.svc.Lookup(ctx, id)
	if err != nil {
		return procurement.VendorRef{}, err
	}
	return procurement.VendorRef{
		ID:          v.ID,
		CompanyName: v.CompanyName,
		Active:      v.IsActive,
		Approved:    v.ApprovalStatus == vendors.ApprovalApproved,
	}, nil
}

// orderDirectory adapts the procurement repository to billing's view of a
// purchase order.
type orderDirectory struct {
	repo *procurement.Repository
}

// NewOrderDirectory wraps the procurement repository for billing.
func NewOrderDirectory(repo *procurement.Repository) billing.OrderDirectory {
	return orderDirectory{repo: repo}
}

func (d orderDirectory) Order(ctx context.Context, id int64) (billing.OrderRef, error) {
	po, _, err := d.repo.GetPO(ctx, id)
	if err != nil {
		return billing.OrderRef{}, err
	}
	return billing.OrderRef{
		ID:          po.ID,
		Number:      po.Number,
		VendorID:    po.VendorID,
		Subtotal:    po.Subtotal,
		TaxAmount:   po.TaxAmount,
		TotalAmount: po.TotalAmount,
		Delivered:   po.Status == procurement.POStatusDelivered || po.Status == procurement.POStatusReceived,
	}, nil
}

// paymentGateway adapts the Razorpay client to billing's gateway port.
type paymentGateway struct {
	client *razorpay.Client
}

// NewPaymentGateway wraps the Razorpay client for billing.
func NewPaymentGateway(client *razorpay.Client) billing.Gateway {
	return paymentGateway{client: client}
}

func (g paymentGateway) CreateOrder(ctx context.Context, amount decimal.Decimal, receipt string) (billing.GatewayOrder, error) {
	o, err := g.client.CreateOrder(ctx, amount, receipt)
	if err != nil {
		return billing.GatewayOrder{}, err
	}
	return billing.GatewayOrder{ID: o.ID, Amount: o.Amount, Currency: o.Currency}, nil
}

func (g paymentGateway) VerifySignature(orderID, paymentID, signature string) bool {
	return g.client.VerifySignature(orderID, paymentID, signature)
}
