package auth

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/procuredesk/procuredesk/internal/platform/httpx"
	"github.com/procuredesk/procuredesk/internal/shared"
)

// Handler wires the authentication endpoints.
type Handler struct {
	svc      *Service
	validate *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc, validate: validator.New()}
}

// MountPublicRoutes registers the unauthenticated endpoints.
func (h *Handler) MountPublicRoutes(r chi.Router) {
	r.Post("/auth/login", h.login)
}

// MountRoutes registers the authenticated endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/auth/logout", h.logout)
	r.Get("/auth/me", h.me)
	r.Route("/employees", func(r chi.Router) {
		r.Use(RequireRole(shared.RoleAdmin))
		r.Post("/", h.createUser)
		r.Get("/", h.listUsers)
		r.Post("/{id}/activate", h.setActive(true))
		r.Post("/{id}/deactivate", h.setActive(false))
	})
}

type loginDTO struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type createUserDTO struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required,max=255"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"required,oneof=admin employee vendor"`
	VendorID *int64 `json:"vendor_id,omitempty"`
}

type userResponse struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	VendorID  *int64    `json:"vendor_id,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserResponse(u User) userResponse {
	return userResponse{
		ID: u.ID, Email: u.Email, Name: u.Name, Role: string(u.Role),
		VendorID: u.VendorID, IsActive: u.IsActive, CreatedAt: u.CreatedAt,
	}
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var dto loginDTO
	if err := httpx.DecodeJSON(r, &dto); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := h.validate.Struct(dto); err != nil {
		httpx.ValidationProblem(w, err)
		return
	}
	user, token, err := h.svc.Login(r.Context(), dto.Email, dto.Password)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  toUserResponse(user),
	})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}
	if err := h.svc.Logout(r.Context(), token); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	ident := shared.IdentityFromContext(r.Context())
	httpx.JSON(w, http.StatusOK, map[string]any{
		"user_id":   ident.UserID,
		"role":      ident.Role,
		"vendor_id": ident.VendorID,
	})
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var dto createUserDTO
	if err := httpx.DecodeJSON(r, &dto); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := h.validate.Struct(dto); err != nil {
		httpx.ValidationProblem(w, err)
		return
	}
	user, err := h.svc.CreateUser(r.Context(), shared.IdentityFromContext(r.Context()), CreateUserInput{
		Email:    dto.Email,
		Name:     dto.Name,
		Password: dto.Password,
		Role:     shared.Role(dto.Role),
		VendorID: dto.VendorID,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toUserResponse(user))
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	ident := shared.IdentityFromContext(r.Context())
	page, perPage := shared.PageParams(r)
	role := shared.Role(r.URL.Query().Get("role"))
	users, total, err := h.svc.ListUsers(r.Context(), ident, role, perPage, shared.Offset(page, perPage))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	resp := make([]userResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, toUserResponse(u))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"data":       resp,
		"pagination": shared.NewPagination(page, perPage, total),
	})
}

func (h *Handler) setActive(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil || id <= 0 {
			httpx.Problem(w, http.StatusBadRequest, "invalid id", "id must be a positive integer")
			return
		}
		if err := h.svc.SetUserActive(r.Context(), shared.IdentityFromContext(r.Context()), id, active); err != nil {
			httpx.RespondError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
