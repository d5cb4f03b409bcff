package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-procure/internal/ap"
	audithttp "github.com/odyssey-erp/odyssey-procure/internal/audit/http"
	"github.com/odyssey-erp/odyssey-procure/internal/inventory"
	"github.com/odyssey-erp/odyssey-procure/internal/masterdata/suppliers"
	"github.com/odyssey-erp/odyssey-procure/internal/observability"
	"github.com/odyssey-erp/odyssey-procure/internal/procurement"
	"github.com/odyssey-erp/odyssey-procure/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	Metrics            *observability.Metrics
	ProcurementHandler *procurement.Handler
	InventoryHandler   *inventory.Handler
	PayablesHandler    *ap.Handler
	SuppliersHandler   *suppliers.Handler
	AuditHandler       *audithttp.Handler
	JobHandler         *jobs.Handler
}

// NewRouter constructs the chi.Router with Odyssey defaults. Health and
// metrics stay outside the token check.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	var tokenHash string
	if params.Config != nil {
		tokenHash = params.Config.APITokenHash
	}
	r.Group(func(r chi.Router) {
		r.Use(RequireToken(tokenHash, params.Logger))
		if params.ProcurementHandler != nil {
			r.Route("/procurement", params.ProcurementHandler.MountRoutes)
		}
		if params.InventoryHandler != nil {
			r.Route("/inventory", params.InventoryHandler.MountRoutes)
		}
		if params.PayablesHandler != nil {
			r.Route("/ap", params.PayablesHandler.MountRoutes)
		}
		if params.SuppliersHandler != nil {
			r.Route("/masterdata/suppliers", params.SuppliersHandler.MountRoutes)
		}
		if params.AuditHandler != nil {
			r.Route("/audit", params.AuditHandler.MountRoutes)
		}
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})
	return r
}
