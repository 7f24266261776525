package app

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/ledgerline/ledgerline/internal/auth"
	"github.com/ledgerline/ledgerline/internal/dashboard"
	"github.com/ledgerline/ledgerline/internal/masterdata/customers"
	"github.com/ledgerline/ledgerline/internal/masterdata/items"
	"github.com/ledgerline/ledgerline/internal/masterdata/vendors"
	"github.com/ledgerline/ledgerline/internal/observability"
	postinghttp "github.com/ledgerline/ledgerline/internal/posting/http"
	"github.com/ledgerline/ledgerline/internal/shared"
	"github.com/ledgerline/ledgerline/internal/view"
	"github.com/ledgerline/ledgerline/jobs"
	"github.com/ledgerline/ledgerline/web"
)

// Requests per minute allowed on login and spreadsheet uploads.
const strictRequestsPerMinute = 10

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	Pages            *view.Responder
	SessionManager   *shared.SessionManager
	CSRFManager      *shared.CSRFManager
	AuthHandler      *auth.Handler
	AuthMiddleware   auth.Middleware
	DashboardHandler *dashboard.Handler
	CustomerHandler  *customers.Handler
	VendorHandler    *vendors.Handler
	ItemHandler      *items.Handler
	SaleHandler      *postinghttp.Handler
	PurchaseHandler  *postinghttp.Handler
	JobHandler       *jobs.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with Ledgerline defaults.
func NewRouter(params RouterParams) http.Handler {
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)
	r.Use(StrictLimit(strictRequestsPerMinute, auth.LoginPath, "/items/import"))
	r.Use(params.AuthMiddleware.LoadPrincipal)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	r.Route("/auth", params.AuthHandler.MountRoutes)

	r.Group(func(r chi.Router) {
		r.Use(params.AuthMiddleware.RequireLogin)

		params.DashboardHandler.MountRoutes(r)
		r.Route("/customers", params.CustomerHandler.MountRoutes)
		r.Route("/vendors", params.VendorHandler.MountRoutes)
		r.Route("/items", params.ItemHandler.MountRoutes)
		r.Route("/sales", params.SaleHandler.MountRoutes)
		r.Route("/purchases", params.PurchaseHandler.MountRoutes)
		r.Route("/api", params.ItemHandler.MountAPIRoutes)
	})

	if params.Pages != nil {
		r.NotFound(params.Pages.NotFound)
	}
	return r
}

// staticCacheHandler lets browsers keep embedded assets for an hour.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
