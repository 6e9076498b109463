package vendors

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/procuredesk/procuredesk/internal/masterdata/shared"
	"github.com/procuredesk/procuredesk/internal/platform/httpx"
	internalshared "github.com/procuredesk/procuredesk/internal/shared"
)

// Handler exposes vendor management over JSON REST.
type Handler struct {
	svc      *Service
	validate *validator.Validate
}

// NewHandler returns the HTTP handler for vendors.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc, validate: validator.New()}
}

// MountRoutes registers vendor endpoints on the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/vendors", func(r chi.Router) {
		r.Post("/", h.create)
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
		r.Put("/{id}", h.update)
		r.Post("/{id}/approve", h.approve)
		r.Post("/{id}/reject", h.reject)
		r.Post("/{id}/suspend", h.suspend)
		r.Post("/{id}/activate", h.activate)
		r.Post("/{id}/deactivate", h.deactivate)
	})
}

type vendorForm struct {
	Code         string          `json:"code" validate:"required,max=32"`
	CompanyName  string          `json:"company_name" validate:"required,max=255"`
	ContactName  string          `json:"contact_name" validate:"max=255"`
	Email        string          `json:"email" validate:"omitempty,email"`
	Phone        string          `json:"phone" validate:"max=32"`
	Address      string          `json:"address"`
	PaymentTerms string          `json:"payment_terms" validate:"max=255"`
	CreditLimit  decimal.Decimal `json:"credit_limit"`
	Rating       float64         `json:"rating" validate:"gte=0,lte=5"`
}

type reasonForm struct {
	Reason string `json:"reason"`
}

func (f vendorForm) model() Vendor {
	return Vendor{
		Code:         f.Code,
		CompanyName:  f.CompanyName,
		ContactName:  f.ContactName,
		Email:        f.Email,
		Phone:        f.Phone,
		Address:      f.Address,
		PaymentTerms: f.PaymentTerms,
		CreditLimit:  f.CreditLimit,
		Rating:       f.Rating,
	}
}

func idParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var form vendorForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(form); err != nil {
		httpx.ValidationProblem(w, err)
		return
	}
	v, err := h.svc.Create(r.Context(), internalshared.IdentityFromContext(r.Context()), form.model())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, v)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, perPage := internalshared.PageParams(r)
	filters := shared.ListFilters{
		Search:   r.URL.Query().Get("search"),
		SortBy:   r.URL.Query().Get("sort"),
		SortDir:  r.URL.Query().Get("dir"),
		Approval: r.URL.Query().Get("approval_status"),
		Page:     page,
		Limit:    perPage,
	}
	if raw := r.URL.Query().Get("is_active"); raw != "" {
		active := raw == "true"
		filters.IsActive = &active
	}
	items, total, err := h.svc.List(r.Context(), internalshared.IdentityFromContext(r.Context()), filters)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"data":       items,
		"pagination": internalshared.NewPagination(page, perPage, total),
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid vendor id")
		return
	}
	v, err := h.svc.Get(r.Context(), internalshared.IdentityFromContext(r.Context()), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, v)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid vendor id")
		return
	}
	var form vendorForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(form); err != nil {
		httpx.ValidationProblem(w, err)
		return
	}
	v, err := h.svc.Update(r.Context(), internalshared.IdentityFromContext(r.Context()), id, form.model())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, v)
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	h.approval(w, r, func(r *http.Request, id int64, _ string) (Vendor, error) {
		return h.svc.Approve(r.Context(), internalshared.IdentityFromContext(r.Context()), id)
	})
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	h.approval(w, r, func(r *http.Request, id int64, reason string) (Vendor, error) {
		return h.svc.Reject(r.Context(), internalshared.IdentityFromContext(r.Context()), id, reason)
	})
}

func (h *Handler) suspend(w http.ResponseWriter, r *http.Request) {
	h.approval(w, r, func(r *http.Request, id int64, reason string) (Vendor, error) {
		return h.svc.Suspend(r.Context(), internalshared.IdentityFromContext(r.Context()), id, reason)
	})
}

func (h *Handler) approval(w http.ResponseWriter, r *http.Request, call func(*http.Request, int64, string) (Vendor, error)) {
	id, ok := idParam(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid vendor id")
		return
	}
	var form reasonForm
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &form); err != nil {
			httpx.RespondError(w, err)
			return
		}
	}
	v, err := call(r, id, form.Reason)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, v)
}

func (h *Handler) activate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

func (h *Handler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	id, ok := idParam(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid vendor id")
		return
	}
	v, err := h.svc.SetActive(r.Context(), internalshared.IdentityFromContext(r.Context()), id, active)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, v)
}
