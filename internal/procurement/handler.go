package procurement

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/procuredesk/procuredesk/internal/platform/httpx"
	"github.com/procuredesk/procuredesk/internal/shared"
)

// Handler exposes the procurement workflow over JSON REST.
type Handler struct {
	svc      *Service
	validate *validator.Validate
}

// NewHandler returns the HTTP handler for the procurement module.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc, validate: validator.New()}
}

// MountRoutes registers procurement endpoints on the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/purchase-requests", func(r chi.Router) {
		r.Post("/", h.createRequest)
		r.Get("/", h.listRequests)
		r.Get("/{id}", h.getRequest)
		r.Patch("/{id}", h.updateRequest)
		r.Delete("/{id}", h.deleteRequest)
		r.Post("/{id}/approve", h.approveRequest)
		r.Post("/{id}/reject", h.rejectRequest)
		r.Post("/{id}/send-rfq", h.sendRFQ)
	})
	r.Route("/rfqs", func(r chi.Router) {
		r.Get("/", h.listRFQs)
		r.Get("/{id}", h.getRFQ)
		r.Get("/{id}/quotations", h.listQuotations)
		r.Post("/{id}/quotations", h.submitQuotation)
		r.Post("/{id}/accept", h.acceptQuotation)
		r.Post("/{id}/reject", h.rejectQuotation)
	})
	r.Route("/purchase-orders", func(r chi.Router) {
		r.Post("/", h.createPO)
		r.Get("/", h.listPOs)
		r.Get("/{id}", h.getPO)
		r.Patch("/{id}", h.updatePO)
		r.Delete("/{id}", h.deletePO)
		r.Post("/{id}/status", h.updateDeliveryStatus)
		r.Get("/{id}/receipts", h.listReceipts)
		r.Post("/{id}/receipts", h.recordReceipt)
	})
}

func idParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

func (h *Handler) createRequest(w http.ResponseWriter, r *http.Request) {
	var dto createRequestDTO
	if err := httpx.DecodeJSON(r, &dto); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := h.validate.Struct(dto); err != nil {
		httpx.ValidationProblem(w, err)
		return
	}
	ident := shared.IdentityFromContext(r.Context())
	pr, err := h.svc.CreateRequest(r.Context(), ident, CreateRequestInput{
		ProductID:     dto.ProductID,
		ItemName:      dto.ItemName,
		Quantity:      dto.Quantity,
		Department:    dto.Department,
		Urgency:       Urgency(dto.Urgency),
		Justification: dto.Justification,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toRequestResponse(pr))
}

func (h *Handler) listRequests(w http.ResponseWriter, r *http.Request) {
	ident := shared.IdentityFromContext(r.Context())
	page, perPage := shared.PageParams(r)
	f := RequestFilters{
		Status:     RequestStatus(r.URL.Query().Get("status")),
		Department: r.URL.Query().Get("department"),
		Search:     r.URL.Query().Get("q"),
	}
	items, total, err := h.svc.ListRequests(r.Context(), ident, f, perPage, shared.Offset(page, perPage))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	resp := make([]requestResponse, 0, len(items))
	for _, pr := range items {
		resp = append(resp, toRequestResponse(pr))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"data":       resp,
		"pagination": shared.NewPagination(page, perPage, total),
	})
}

func (h *Handler) getRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "invalid id", "id must be a positive integer")
		return
	}
	pr, err := h.svc.GetRequest(r.Context(), shared.IdentityFromContext(r.Context()), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toRequestResponse(pr))
}

func (h *Handler) updateRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "invalid id", "id must be a positive integer")
		return
	}
	var dto updateRequestDTO
	if err := httpx.DecodeJSON(r, &dto); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := h.validate.Struct(dto); err != nil {
		httpx.ValidationProblem(w, err)
		return
	}
	input := UpdateRequestInput{
		ProductID:     dto.ProductID,
		ItemName:      dto.ItemName,
		Quantity:      dto.Quantity,
		Department:    dto.Department,
		Justification: dto.Justification,
	}
	if dto.Urgency != nil {
		u := Urgency(*dto.Urgency)
		input.Urgency = &u
	}
	pr, err := h.svc.UpdateRequest(r.Context(), shared.IdentityFromContext(r.Context()), id, input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toRequestResponse(pr))
}

func (h *Handler) deleteRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "invalid id", "id must be a positive integer")
		return
	}
	if err := h.svc.DeleteRequest(r.Context(), shared.IdentityFromContext(r.Context()), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) approveRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "invalid id", "id must be a positive integer")
		return
	}
	pr, err := h.svc.ApproveRequest(r.Context(), shared.IdentityFromContext(r.Context()), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toRequestResponse(pr))
}

func (h *Handler) rejectRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "invalid id", "id must be a positive integer")
		return
	}
	var dto rejectDTO
	if err := httpx.DecodeJSON(r, &dto); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := h.validate.Struct(dto); err != nil {
		httpx.ValidationProblem(w, err)
		return
	}
	pr, err := h.svc.RejectRequest(r.Context(), shared.IdentityFromContext(r.Context()), id, dto.Reason)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toRequestResponse(pr))
}

func (h *Handler) sendRFQ(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "invalid id", "id must be a positive integer")
		return
	}
	var dto sendRFQDTO
	if err := httpx.DecodeJSON(r, &dto); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := h.validate.Struct(dto); err != nil {
		httpx.ValidationProblem(w, err)
		return
	}
	rfq, err := h.svc.SendRFQ(r.Context(), shared.IdentityFromContext(r.Context()), id, SendRFQInput{
		VendorIDs:        dto.VendorIDs,
		ResponseDeadline: dto.ResponseDeadline,
		AdminNotes:       dto.AdminNotes,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toRFQResponse(rfq))
}

func (h *Handler) listRFQs(w http.ResponseWriter, r *http.Request) {
	ident := shared.IdentityFromContext(r.Context())
	page, perPage := shared.PageParams(r)
	f := RFQFilters{Status: RFQStatus(r.URL.Query().Get("status"))}
	if raw := r.URL.Query().Get("request_id"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			f.RequestID = id
		}
	}
	items, total, err := h.svc.ListRFQs(r.Context(), ident, f, perPage, shared.Offset(page, perPage))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	resp := make([]rfqResponse, 0, len(items))
	for _, rfq := range items {
		resp = append(resp, toRFQResponse(rfq))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"data":       resp,
		"pagination": shared.NewPagination(page, perPage, total),
	})
}

func (h *Handler) getRFQ(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "invalid id", "id must be a positive integer")
		return
	}
	rfq, err := h.svc.GetRFQ(r.Context(), shared.IdentityFromContext(r.Context()), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toRFQResponse(rfq))
}

func (h *Handler) listQuotations(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "invalid id", "id must be a positive integer")
		return
	}
	quotes, err := h.svc.ListQuotations(r.Context(), shared.IdentityFromContext(r.Context()), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	resp := make([]quotationResponse, 0, len(quotes))
	for _, q := range quotes {
		resp = append(resp, toQuotationResponse(q))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": resp})
}

func (h *Handler) submitQuotation(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "invalid id", "id must be a positive integer")
		return
	}
	var dto submitQuotationDTO
	if err := httpx.DecodeJSON(r, &dto); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := h.validate.Struct(dto); err != nil {
		httpx.ValidationProblem(w, err)
		return
	}
	q, err := h.svc.SubmitQuotation(r.Context(), shared.IdentityFromContext(r.Context()), id, SubmitQuotationInput{
		UnitPrice:             dto.UnitPrice,
		Quantity:              dto.Quantity,
		TaxRate:               dto.TaxRate,
		ShippingCost:          dto.ShippingCost,
		EstimatedDeliveryDays: dto.EstimatedDeliveryDays,
		ValidUntil:            dto.ValidUntil,
		PaymentTerms:          dto.PaymentTerms,
		WarrantyTerms:         dto.WarrantyTerms,
		AdditionalNotes:       dto.AdditionalNotes,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toQuotationResponse(q))
}

func (h *Handler) acceptQuotation(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "invalid id", "id must be a positive integer")
		return
	}
	var dto acceptQuotationDTO
	if err := httpx.DecodeJSON(r, &dto); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := h.validate.Struct(dto); err != nil {
		httpx.ValidationProblem(w, err)
		return
	}
	createPO := true
	if dto.CreatePO != nil {
		createPO = *dto.CreatePO
	}
	res, err := h.svc.AcceptQuotation(r.Context(), shared.IdentityFromContext(r.Context()), id, AcceptQuotationInput{
		QuotationID: dto.QuotationID,
		CreatePO:    createPO,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out := map[string]any{"quotation": toQuotationResponse(res.Quotation)}
	if res.PO != nil {
		out["purchase_order"] = toPOResponse(*res.PO, nil)
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) rejectQuotation(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "invalid id", "id must be a positive integer")
		return
	}
	var dto rejectQuotationDTO
	if err := httpx.DecodeJSON(r, &dto); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := h.validate.Struct(dto); err != nil {
		httpx.ValidationProblem(w, err)
		return
	}
	q, err := h.svc.RejectQuotation(r.Context(), shared.IdentityFromContext(r.Context()), id, RejectQuotationInput{
		QuotationID: dto.QuotationID,
		ReviewNotes: dto.ReviewNotes,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toQuotationResponse(q))
}

func (h *Handler) createPO(w http.ResponseWriter, r *http.Request) {
	var dto createPODTO
	if err := httpx.DecodeJSON(r, &dto); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := h.validate.Struct(dto); err != nil {
		httpx.ValidationProblem(w, err)
		return
	}
	input := CreatePOInput{
		VendorID:             dto.VendorID,
		AssignedTo:           dto.AssignedTo,
		ExpectedDeliveryDate: dto.ExpectedDeliveryDate,
		DeliveryDeadline:     dto.DeliveryDeadline,
		TaxRate:              dto.TaxRate,
		ShippingCost:         dto.ShippingCost,
		Notes:                dto.Notes,
	}
	for _, item := range dto.Items {
		input.Items = append(input.Items, POItemInput{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		})
	}
	po, err := h.svc.CreatePurchaseOrder(r.Context(), shared.IdentityFromContext(r.Context()), input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toPOResponse(po, nil))
}

func (h *Handler) listPOs(w http.ResponseWriter, r *http.Request) {
	ident := shared.IdentityFromContext(r.Context())
	page, perPage := shared.PageParams(r)
	f := POFilters{
		Status: POStatus(r.URL.Query().Get("status")),
		Search: r.URL.Query().Get("q"),
	}
	if raw := r.URL.Query().Get("assigned_to"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			f.AssignedTo = id
		}
	}
	items, total, err := h.svc.ListPurchaseOrders(r.Context(), ident, f, perPage, shared.Offset(page, perPage))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	resp := make([]poResponse, 0, len(items))
	for _, po := range items {
		resp = append(resp, toPOResponse(po, nil))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"data":       resp,
		"pagination": shared.NewPagination(page, perPage, total),
	})
}

func (h *Handler) getPO(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "invalid id", "id must be a positive integer")
		return
	}
	po, items, err := h.svc.GetPurchaseOrder(r.Context(), shared.IdentityFromContext(r.Context()), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPOResponse(po, items))
}

func (h *Handler) updatePO(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "invalid id", "id must be a positive integer")
		return
	}
	var dto updatePODTO
	if err := httpx.DecodeJSON(r, &dto); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := h.validate.Struct(dto); err != nil {
		httpx.ValidationProblem(w, err)
		return
	}
	input := UpdatePOInput{
		AssignedTo:           dto.AssignedTo,
		ExpectedDeliveryDate: dto.ExpectedDeliveryDate,
		DeliveryDeadline:     dto.DeliveryDeadline,
		TrackingNumber:       dto.TrackingNumber,
		Notes:                dto.Notes,
	}
	if dto.Status != nil {
		st := POStatus(*dto.Status)
		input.Status = &st
	}
	po, err := h.svc.UpdatePurchaseOrder(r.Context(), shared.IdentityFromContext(r.Context()), id, input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPOResponse(po, nil))
}

func (h *Handler) deletePO(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "invalid id", "id must be a positive integer")
		return
	}
	if err := h.svc.DeletePurchaseOrder(r.Context(), shared.IdentityFromContext(r.Context()), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) updateDeliveryStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "invalid id", "id must be a positive integer")
		return
	}
	var dto deliveryStatusDTO
	if err := httpx.DecodeJSON(r, &dto); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := h.validate.Struct(dto); err != nil {
		httpx.ValidationProblem(w, err)
		return
	}
	po, err := h.svc.UpdateDeliveryStatus(r.Context(), shared.IdentityFromContext(r.Context()), id, POStatus(dto.Status), dto.Reason)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPOResponse(po, nil))
}

func (h *Handler) listReceipts(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "invalid id", "id must be a positive integer")
		return
	}
	receipts, err := h.svc.ListReceipts(r.Context(), shared.IdentityFromContext(r.Context()), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	resp := make([]receiptResponse, 0, len(receipts))
	for _, gr := range receipts {
		resp = append(resp, toReceiptResponse(gr))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": resp})
}

func (h *Handler) recordReceipt(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "invalid id", "id must be a positive integer")
		return
	}
	var dto receiptDTO
	if err := httpx.DecodeJSON(r, &dto); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := h.validate.Struct(dto); err != nil {
		httpx.ValidationProblem(w, err)
		return
	}
	gr, err := h.svc.RecordGoodsReceipt(r.Context(), shared.IdentityFromContext(r.Context()), id, ReceiptInput{
		DeliveredQuantity: dto.DeliveredQuantity,
		Condition:         ReceiptCondition(dto.Condition),
		Notes:             dto.Notes,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toReceiptResponse(gr))
}
