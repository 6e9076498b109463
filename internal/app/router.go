package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/procuredesk/procuredesk/internal/auth"
	"github.com/procuredesk/procuredesk/internal/billing"
	"github.com/procuredesk/procuredesk/internal/masterdata/categories"
	"github.com/procuredesk/procuredesk/internal/masterdata/products"
	"github.com/procuredesk/procuredesk/internal/masterdata/vendors"
	"github.com/procuredesk/procuredesk/internal/notify"
	"github.com/procuredesk/procuredesk/internal/observability"
	"github.com/procuredesk/procuredesk/internal/procurement"
	"github.com/procuredesk/procuredesk/internal/shared"
	"github.com/procuredesk/procuredesk/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger *slog.Logger
	Config *Config

	AuthService        *auth.Service
	AuthHandler        *auth.Handler
	VendorHandler      *vendors.Handler
	ProductHandler     *products.Handler
	CategoryHandler    *categories.Handler
	ProcurementHandler *procurement.Handler
	BillingHandler     *billing.Handler
	NotifyHandler      *notify.Handler
	JobHandler         *jobs.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Handle("/metrics", params.Metrics.Handler())
	}

	params.AuthHandler.MountPublicRoutes(r)

	r.Group(func(r chi.Router) {
		r.Use(params.AuthService.Authenticate)

		params.AuthHandler.MountRoutes(r)
		params.VendorHandler.MountRoutes(r)
		params.ProductHandler.MountRoutes(r)
		params.CategoryHandler.MountRoutes(r)
		params.ProcurementHandler.MountRoutes(r)
		params.BillingHandler.MountRoutes(r)
		params.NotifyHandler.MountRoutes(r)

		if params.JobHandler != nil {
			r.Route("/jobs", func(r chi.Router) {
				r.Use(auth.RequireRole(shared.RoleAdmin))
				params.JobHandler.MountRoutes(r)
			})
		}
	})

	return r
}
