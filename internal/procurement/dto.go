package procurement

import (
	"time"

	"github.com/shopspring/decimal"
)

type createRequestDTO struct {
	ProductID     *int64 `json:"product_id,omitempty"`
	ItemName      string `json:"item_name" validate:"required,max=255"`
	Quantity      int64  `json:"quantity" validate:"required,gt=0"`
	Department    string `json:"department" validate:"required,max=100"`
	Urgency       string `json:"urgency" validate:"omitempty,oneof=low medium high urgent"`
	Justification string `json:"justification" validate:"max=2000"`
}

type updateRequestDTO struct {
	ProductID     *int64  `json:"product_id,omitempty"`
	ItemName      *string `json:"item_name,omitempty" validate:"omitempty,max=255"`
	Quantity      *int64  `json:"quantity,omitempty" validate:"omitempty,gt=0"`
	Department    *string `json:"department,omitempty" validate:"omitempty,max=100"`
	Urgency       *string `json:"urgency,omitempty" validate:"omitempty,oneof=low medium high urgent"`
	Justification *string `json:"justification,omitempty" validate:"omitempty,max=2000"`
}

type rejectDTO struct {
	Reason string `json:"reason" validate:"required,max=2000"`
}

type sendRFQDTO struct {
	VendorIDs        []int64    `json:"vendor_ids" validate:"required,min=1,dive,gt=0"`
	ResponseDeadline *time.Time `json:"response_deadline,omitempty"`
	AdminNotes       string     `json:"admin_notes" validate:"max=2000"`
}

type submitQuotationDTO struct {
	UnitPrice             decimal.Decimal `json:"unit_price" validate:"required"`
	Quantity              int64           `json:"quantity" validate:"required,gt=0"`
	TaxRate               decimal.Decimal `json:"tax_rate"`
	ShippingCost          decimal.Decimal `json:"shipping_cost"`
	EstimatedDeliveryDays int             `json:"estimated_delivery_days" validate:"gte=0"`
	ValidUntil            time.Time       `json:"valid_until" validate:"required"`
	PaymentTerms          string          `json:"payment_terms" validate:"max=1000"`
	WarrantyTerms         string          `json:"warranty_terms" validate:"max=1000"`
	AdditionalNotes       string          `json:"additional_notes" validate:"max=2000"`
}

type acceptQuotationDTO struct {
	QuotationID int64 `json:"quotation_id" validate:"required,gt=0"`
	CreatePO    *bool `json:"create_po,omitempty"`
}

type rejectQuotationDTO struct {
	QuotationID int64  `json:"quotation_id" validate:"required,gt=0"`
	ReviewNotes string `json:"review_notes" validate:"required,max=2000"`
}

type poItemDTO struct {
	ProductID   *int64          `json:"product_id,omitempty"`
	ProductName string          `json:"product_name" validate:"required,max=255"`
	Quantity    int64           `json:"quantity" validate:"required,gt=0"`
	UnitPrice   decimal.Decimal `json:"unit_price" validate:"required"`
}

type createPODTO struct {
	VendorID             int64           `json:"vendor_id" validate:"required,gt=0"`
	AssignedTo           *int64          `json:"assigned_to,omitempty"`
	ExpectedDeliveryDate *time.Time      `json:"expected_delivery_date,omitempty"`
	DeliveryDeadline     *time.Time      `json:"delivery_deadline,omitempty"`
	TaxRate              decimal.Decimal `json:"tax_rate"`
	ShippingCost         decimal.Decimal `json:"shipping_cost"`
	Notes                string          `json:"notes" validate:"max=2000"`
	Items                []poItemDTO     `json:"items" validate:"required,min=1,dive"`
}

type updatePODTO struct {
	Status               *string    `json:"status,omitempty" validate:"omitempty,oneof=draft pending approved sent in_progress received delivered delayed cancelled"`
	AssignedTo           *int64     `json:"assigned_to,omitempty"`
	ExpectedDeliveryDate *time.Time `json:"expected_delivery_date,omitempty"`
	DeliveryDeadline     *time.Time `json:"delivery_deadline,omitempty"`
	TrackingNumber       *string    `json:"tracking_number,omitempty" validate:"omitempty,max=100"`
	Notes                *string    `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

type deliveryStatusDTO struct {
	Status string `json:"status" validate:"required,oneof=pending in_progress received delivered delayed"`
	Reason string `json:"reason" validate:"max=2000"`
}

type receiptDTO struct {
	DeliveredQuantity int64  `json:"delivered_quantity" validate:"gte=0"`
	Condition         string `json:"condition" validate:"omitempty,oneof=good damaged shortage partial"`
	Notes             string `json:"notes" validate:"max=2000"`
}

type requestResponse struct {
	ID              int64      `json:"id"`
	Number          string     `json:"number"`
	RequesterID     int64      `json:"requester_id"`
	ProductID       *int64     `json:"product_id,omitempty"`
	ItemName        string     `json:"item_name"`
	Quantity        int64      `json:"quantity"`
	Department      string     `json:"department"`
	Urgency         string     `json:"urgency"`
	Justification   string     `json:"justification,omitempty"`
	Status          string     `json:"status"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
	ReviewedBy      *int64     `json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func toRequestResponse(pr PurchaseRequest) requestResponse {
	return requestResponse{
		ID: pr.ID, Number: pr.Number, RequesterID: pr.RequesterID, ProductID: pr.ProductID,
		ItemName: pr.ItemName, Quantity: pr.Quantity, Department: pr.Department,
		Urgency: string(pr.Urgency), Justification: pr.Justification, Status: string(pr.Status),
		RejectionReason: pr.RejectionReason, ReviewedBy: pr.ReviewedBy, ReviewedAt: pr.ReviewedAt,
		CreatedAt: pr.CreatedAt, UpdatedAt: pr.UpdatedAt,
	}
}

type rfqResponse struct {
	ID               int64      `json:"id"`
	Number           string     `json:"number"`
	RequestID        int64      `json:"request_id"`
	SentBy           int64      `json:"sent_by"`
	SentAt           time.Time  `json:"sent_at"`
	ResponseDeadline *time.Time `json:"response_deadline,omitempty"`
	Status           string     `json:"status"`
	AdminNotes       string     `json:"admin_notes,omitempty"`
	VendorIDs        []int64    `json:"vendor_ids"`
}

func toRFQResponse(rfq RFQ) rfqResponse {
	return rfqResponse{
		ID: rfq.ID, Number: rfq.Number, RequestID: rfq.RequestID, SentBy: rfq.SentBy,
		SentAt: rfq.SentAt, ResponseDeadline: rfq.ResponseDeadline, Status: string(rfq.Status),
		AdminNotes: rfq.AdminNotes, VendorIDs: rfq.VendorIDs,
	}
}

// Monetary fields serialise as fixed-point strings to keep precision out of
// JSON number territory.
type quotationResponse struct {
	ID                    int64      `json:"id"`
	Number                string     `json:"number"`
	RFQID                 int64      `json:"rfq_id"`
	VendorID              int64      `json:"vendor_id"`
	UnitPrice             string     `json:"unit_price"`
	Quantity              int64      `json:"quantity"`
	Subtotal              string     `json:"subtotal"`
	TaxRate               string     `json:"tax_rate"`
	TaxAmount             string     `json:"tax_amount"`
	ShippingCost          string     `json:"shipping_cost"`
	TotalAmount           string     `json:"total_amount"`
	EstimatedDeliveryDays int        `json:"estimated_delivery_days"`
	ValidUntil            time.Time  `json:"valid_until"`
	PaymentTerms          string     `json:"payment_terms,omitempty"`
	WarrantyTerms         string     `json:"warranty_terms,omitempty"`
	AdditionalNotes       string     `json:"additional_notes,omitempty"`
	Status                string     `json:"status"`
	ReviewNotes           string     `json:"review_notes,omitempty"`
	SubmittedAt           *time.Time `json:"submitted_at,omitempty"`
}

func toQuotationResponse(q Quotation) quotationResponse {
	return quotationResponse{
		ID: q.ID, Number: q.Number, RFQID: q.RFQID, VendorID: q.VendorID,
		UnitPrice: q.UnitPrice.StringFixed(2), Quantity: q.Quantity,
		Subtotal: q.Subtotal.StringFixed(2), TaxRate: q.TaxRate.String(),
		TaxAmount: q.TaxAmount.StringFixed(2), ShippingCost: q.ShippingCost.StringFixed(2),
		TotalAmount: q.TotalAmount.StringFixed(2), EstimatedDeliveryDays: q.EstimatedDeliveryDays,
		ValidUntil: q.ValidUntil, PaymentTerms: q.PaymentTerms, WarrantyTerms: q.WarrantyTerms,
		AdditionalNotes: q.AdditionalNotes, Status: string(q.Status), ReviewNotes: q.ReviewNotes,
		SubmittedAt: q.SubmittedAt,
	}
}

type poItemResponse struct {
	ID               int64  `json:"id"`
	ProductID        *int64 `json:"product_id,omitempty"`
	ProductName      string `json:"product_name"`
	Quantity         int64  `json:"quantity"`
	UnitPrice        string `json:"unit_price"`
	LineTotal        string `json:"line_total"`
	ReceivedQuantity int64  `json:"received_quantity"`
}

type poResponse struct {
	ID                   int64            `json:"id"`
	Number               string           `json:"number"`
	VendorID             int64            `json:"vendor_id"`
	RequestID            *int64           `json:"request_id,omitempty"`
	QuotationID          *int64           `json:"quotation_id,omitempty"`
	CreatedBy            int64            `json:"created_by"`
	AssignedTo           *int64           `json:"assigned_to,omitempty"`
	OrderDate            time.Time        `json:"order_date"`
	ExpectedDeliveryDate *time.Time       `json:"expected_delivery_date,omitempty"`
	DeliveryDeadline     *time.Time       `json:"delivery_deadline,omitempty"`
	Status               string           `json:"status"`
	Subtotal             string           `json:"subtotal"`
	TaxAmount            string           `json:"tax_amount"`
	ShippingCost         string           `json:"shipping_cost"`
	TotalAmount          string           `json:"total_amount"`
	TotalQuantity        int64            `json:"total_quantity"`
	TrackingNumber       string           `json:"tracking_number,omitempty"`
	DelayReason          string           `json:"delay_reason,omitempty"`
	Notes                string           `json:"notes,omitempty"`
	Items                []poItemResponse `json:"items,omitempty"`
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at"`
}

func toPOResponse(po PurchaseOrder, items []POItem) poResponse {
	resp := poResponse{
		ID: po.ID, Number: po.Number, VendorID: po.VendorID, RequestID: po.RequestID,
		QuotationID: po.QuotationID, CreatedBy: po.CreatedBy, AssignedTo: po.AssignedTo,
		OrderDate: po.OrderDate, ExpectedDeliveryDate: po.ExpectedDeliveryDate,
		DeliveryDeadline: po.DeliveryDeadline, Status: string(po.Status),
		Subtotal: po.Subtotal.StringFixed(2), TaxAmount: po.TaxAmount.StringFixed(2),
		ShippingCost: po.ShippingCost.StringFixed(2), TotalAmount: po.TotalAmount.StringFixed(2),
		TotalQuantity: po.TotalQuantity, TrackingNumber: po.TrackingNumber,
		DelayReason: po.DelayReason, Notes: po.Notes, CreatedAt: po.CreatedAt, UpdatedAt: po.UpdatedAt,
	}
	for _, item := range items {
		resp.Items = append(resp.Items, poItemResponse{
			ID: item.ID, ProductID: item.ProductID, ProductName: item.ProductName,
			Quantity: item.Quantity, UnitPrice: item.UnitPrice.StringFixed(2),
			LineTotal: item.LineTotal.StringFixed(2), ReceivedQuantity: item.ReceivedQuantity,
		})
	}
	return resp
}

type receiptResponse struct {
	ID                int64     `json:"id"`
	POID              int64     `json:"po_id"`
	DeliveredQuantity int64     `json:"delivered_quantity"`
	Condition         string    `json:"condition"`
	Notes             string    `json:"notes,omitempty"`
	ReceivedBy        int64     `json:"received_by"`
	ReceivedAt        time.Time `json:"received_at"`
}

func toReceiptResponse(gr GoodsReceipt) receiptResponse {
	return receiptResponse{
		ID: gr.ID, POID: gr.POID, DeliveredQuantity: gr.DeliveredQuantity,
		Condition: string(gr.Condition), Notes: gr.Notes, ReceivedBy: gr.ReceivedBy, ReceivedAt: gr.ReceivedAt,
	}
}
