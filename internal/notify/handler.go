package notify

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/procuredesk/procuredesk/internal/platform/httpx"
	"github.com/procuredesk/procuredesk/internal/shared"
)

// Handler exposes the caller's notification feed.
type Handler struct {
	svc *Service
}

// NewHandler returns the HTTP handler for notifications.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// MountRoutes registers notification endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/notifications", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/{id}/read", h.markRead)
		r.Post("/read-all", h.markAllRead)
	})
}

type notificationResponse struct {
	ID          int64     `json:"id"`
	Type        string    `json:"type"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	RelatedType string    `json:"related_type,omitempty"`
	RelatedID   int64     `json:"related_id,omitempty"`
	Read        bool      `json:"read"`
	CreatedAt   time.Time `json:"created_at"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	ident := shared.IdentityFromContext(r.Context())
	page, perPage := shared.PageParams(r)
	unreadOnly := r.URL.Query().Get("unread") == "true"
	items, total, err := h.svc.ListNotifications(r.Context(), ident.UserID, unreadOnly, perPage, shared.Offset(page, perPage))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	resp := make([]notificationResponse, 0, len(items))
	for _, n := range items {
		resp = append(resp, notificationResponse{
			ID: n.ID, Type: n.Type, Title: n.Title, Message: n.Message,
			RelatedType: n.RelatedType, RelatedID: n.RelatedID, Read: n.Read, CreatedAt: n.CreatedAt,
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"data":       resp,
		"pagination": shared.NewPagination(page, perPage, total),
	})
}

func (h *Handler) markRead(w http.ResponseWriter, r *http.Request) {
	ident := shared.IdentityFromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "invalid id", "id must be a positive integer")
		return
	}
	ok, err := h.svc.MarkRead(r.Context(), ident.UserID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if !ok {
		httpx.RespondError(w, shared.ErrNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) markAllRead(w http.ResponseWriter, r *http.Request) {
	ident := shared.IdentityFromContext(r.Context())
	n, err := h.svc.MarkAllRead(r.Context(), ident.UserID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"marked": n})
}
