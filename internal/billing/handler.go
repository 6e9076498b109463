package billing

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/procuredesk/procuredesk/internal/platform/httpx"
	"github.com/procuredesk/procuredesk/internal/shared"
)

// maxUploadBytes caps invoice document uploads.
const maxUploadBytes = 10 << 20

// Handler exposes invoices and payments over JSON REST.
type Handler struct {
	svc      *Service
	validate *validator.Validate
}

// NewHandler returns the HTTP handler for the billing module.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc, validate: validator.New()}
}

// MountRoutes registers billing endpoints on the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/invoices", func(r chi.Router) {
		r.Post("/", h.createInvoice)
		r.Get("/", h.listInvoices)
		r.Get("/{id}", h.getInvoice)
		r.Post("/{id}/approve", h.approveInvoice)
		r.Post("/{id}/cancel", h.cancelInvoice)
		r.Get("/{id}/payments", h.listPayments)
		r.Post("/{id}/payments", h.recordPayment)
		r.Post("/{id}/payment-order", h.createPaymentOrder)
		r.Post("/{id}/verify-payment", h.verifyPayment)
		r.Post("/{id}/file", h.uploadFile)
		r.Get("/{id}/file", h.downloadFile)
		r.Get("/{id}/pdf", h.downloadPDF)
	})
}

type createInvoiceDTO struct {
	POID        int64      `json:"po_id" validate:"required,gt=0"`
	InvoiceDate *time.Time `json:"invoice_date,omitempty"`
	DueDate     time.Time  `json:"due_date" validate:"required"`
	Notes       string     `json:"notes" validate:"max=2000"`
}

type paymentDTO struct {
	Amount    decimal.Decimal `json:"amount" validate:"required"`
	Method    string          `json:"method" validate:"required,oneof=razorpay bank_transfer check cash credit_card other"`
	Reference string          `json:"reference" validate:"max=255"`
	PaidAt    *time.Time      `json:"paid_at,omitempty"`
	Notes     string          `json:"notes" validate:"max=2000"`
}

type verifyPaymentDTO struct {
	OrderID   string          `json:"razorpay_order_id" validate:"required"`
	PaymentID string          `json:"razorpay_payment_id" validate:"required"`
	Signature string          `json:"razorpay_signature" validate:"required"`
	Amount    decimal.Decimal `json:"amount"`
}

type invoiceResponse struct {
	ID          int64     `json:"id"`
	Number      string    `json:"number"`
	POID        int64     `json:"po_id"`
	VendorID    int64     `json:"vendor_id"`
	InvoiceDate time.Time `json:"invoice_date"`
	DueDate     time.Time `json:"due_date"`
	Subtotal    string    `json:"subtotal"`
	TaxAmount   string    `json:"tax_amount"`
	TotalAmount string    `json:"total_amount"`
	PaidAmount  string    `json:"paid_amount"`
	Outstanding string    `json:"outstanding"`
	Status      string    `json:"status"`
	Overdue     bool      `json:"overdue"`
	Notes       string    `json:"notes,omitempty"`
	HasFile     bool      `json:"has_file"`
	CreatedAt   time.Time `json:"created_at"`
}

func toInvoiceResponse(inv Invoice, now time.Time) invoiceResponse {
	return invoiceResponse{
		ID: inv.ID, Number: inv.Number, POID: inv.POID, VendorID: inv.VendorID,
		InvoiceDate: inv.InvoiceDate, DueDate: inv.DueDate,
		Subtotal: inv.Subtotal.StringFixed(2), TaxAmount: inv.TaxAmount.StringFixed(2),
		TotalAmount: inv.TotalAmount.StringFixed(2), PaidAmount: inv.PaidAmount.StringFixed(2),
		Outstanding: inv.Outstanding().StringFixed(2), Status: string(inv.Status),
		Overdue: inv.Overdue(now), Notes: inv.Notes, HasFile: inv.FilePath != "", CreatedAt: inv.CreatedAt,
	}
}

type paymentResponse struct {
	ID        int64     `json:"id"`
	InvoiceID int64     `json:"invoice_id"`
	Amount    string    `json:"amount"`
	Method    string    `json:"method"`
	Reference string    `json:"reference,omitempty"`
	PaidAt    time.Time `json:"paid_at"`
	Notes     string    `json:"notes,omitempty"`
}

func toPaymentResponse(p Payment) paymentResponse {
	return paymentResponse{
		ID: p.ID, InvoiceID: p.InvoiceID, Amount: p.Amount.StringFixed(2),
		Method: string(p.Method), Reference: p.Reference, PaidAt: p.PaidAt, Notes: p.Notes,
	}
}

func idParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

func (h *Handler) createInvoice(w http.ResponseWriter, r *http.Request) {
	var dto createInvoiceDTO
	if err := httpx.DecodeJSON(r, &dto); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := h.validate.Struct(dto); err != nil {
		httpx.ValidationProblem(w, err)
		return
	}
	inv, err := h.svc.CreateInvoice(r.Context(), shared.IdentityFromContext(r.Context()), CreateInvoiceInput{
		POID:        dto.POID,
		InvoiceDate: dto.InvoiceDate,
		DueDate:     dto.DueDate,
		Notes:       dto.Notes,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toInvoiceResponse(inv, time.Now()))
}

func (h *Handler) listInvoices(w http.ResponseWriter, r *http.Request) {
	ident := shared.IdentityFromContext(r.Context())
	page, perPage := shared.PageParams(r)
	f := InvoiceFilters{
		Status:  InvoiceStatus(r.URL.Query().Get("status")),
		Overdue: r.URL.Query().Get("overdue") == "true",
	}
	if raw := r.URL.Query().Get("po_id"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			f.POID = id
		}
	}
	items, total, err := h.svc.ListInvoices(r.Context(), ident, f, perPage, shared.Offset(page, perPage))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	now := time.Now()
	resp := make([]invoiceResponse, 0, len(items))
	for _, inv := range items {
		resp = append(resp, toInvoiceResponse(inv, now))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"data":       resp,
		"pagination": shared.NewPagination(page, perPage, total),
	})
}

func (h *Handler) getInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "invalid id", "id must be a positive integer")
		return
	}
	inv, err := h.svc.GetInvoice(r.Context(), shared.IdentityFromContext(r.Context()), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toInvoiceResponse(inv, time.Now()))
}

func (h *Handler) approveInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "invalid id", "id must be a positive integer")
		return
	}
	inv, err := h.svc.ApproveInvoice(r.Context(), shared.IdentityFromContext(r.Context()), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toInvoiceResponse(inv, time.Now()))
}

func (h *Handler) cancelInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "invalid id", "id must be a positive integer")
		return
	}
	inv, err := h.svc.CancelInvoice(r.Context(), shared.IdentityFromContext(r.Context()), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toInvoiceResponse(inv, time.Now()))
}

func (h *Handler) listPayments(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "invalid id", "id must be a positive integer")
		return
	}
	payments, err := h.svc.ListPayments(r.Context(), shared.IdentityFromContext(r.Context()), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	resp := make([]paymentResponse, 0, len(payments))
	for _, p := range payments {
		resp = append(resp, toPaymentResponse(p))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": resp})
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "invalid id", "id must be a positive integer")
		return
	}
	var dto paymentDTO
	if err := httpx.DecodeJSON(r, &dto); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := h.validate.Struct(dto); err != nil {
		httpx.ValidationProblem(w, err)
		return
	}
	p, inv, err := h.svc.RecordPayment(r.Context(), shared.IdentityFromContext(r.Context()), id, PaymentInput{
		Amount:    dto.Amount,
		Method:    PaymentMethod(dto.Method),
		Reference: dto.Reference,
		PaidAt:    dto.PaidAt,
		Notes:     dto.Notes,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"payment": toPaymentResponse(p),
		"invoice": toInvoiceResponse(inv, time.Now()),
	})
}

func (h *Handler) createPaymentOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "invalid id", "id must be a positive integer")
		return
	}
	order, err := h.svc.CreatePaymentOrder(r.Context(), shared.IdentityFromContext(r.Context()), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"order_id": order.ID,
		"amount":   order.Amount,
		"currency": order.Currency,
	})
}

func (h *Handler) verifyPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "invalid id", "id must be a positive integer")
		return
	}
	var dto verifyPaymentDTO
	if err := httpx.DecodeJSON(r, &dto); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := h.validate.Struct(dto); err != nil {
		httpx.ValidationProblem(w, err)
		return
	}
	p, inv, err := h.svc.VerifyAndRecordPayment(r.Context(), shared.IdentityFromContext(r.Context()), id, VerifyPaymentInput{
		OrderID:   dto.OrderID,
		PaymentID: dto.PaymentID,
		Signature: dto.Signature,
		Amount:    dto.Amount,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"payment": toPaymentResponse(p),
		"invoice": toInvoiceResponse(inv, time.Now()),
	})
}

func (h *Handler) uploadFile(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "invalid id", "id must be a positive integer")
		return
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid upload", err.Error())
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid upload", "multipart field 'file' is required")
		return
	}
	defer file.Close()
	inv, err := h.svc.AttachInvoiceFile(r.Context(), shared.IdentityFromContext(r.Context()), id, header.Filename, file)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toInvoiceResponse(inv, time.Now()))
}

func (h *Handler) downloadFile(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "invalid id", "id must be a positive integer")
		return
	}
	rc, contentType, err := h.svc.OpenInvoiceFile(r.Context(), shared.IdentityFromContext(r.Context()), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	defer rc.Close()
	w.Header().Set("Content-Type", contentType)
	_, _ = io.Copy(w, rc)
}

func (h *Handler) downloadPDF(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "invalid id", "id must be a positive integer")
		return
	}
	pdf, err := h.svc.RenderInvoicePDF(r.Context(), shared.IdentityFromContext(r.Context()), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	_, _ = w.Write(pdf)
}
