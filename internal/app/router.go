package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/facturo-erp/facturo-erp/internal/masterdata/products"
	"github.com/facturo-erp/facturo-erp/internal/payments"
	"github.com/facturo-erp/facturo-erp/internal/receivables"
	"github.com/facturo-erp/facturo-erp/internal/sales/customers"
	"github.com/facturo-erp/facturo-erp/internal/sales/invoices"
	"github.com/facturo-erp/facturo-erp/internal/sales/quotations"
	"github.com/facturo-erp/facturo-erp/jobs"
	"github.com/facturo-erp/facturo-erp/report"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	CustomerHandler    *customers.Handler
	ProductHandler     *products.Handler
	QuotationHandler   *quotations.Handler
	InvoiceHandler     *invoices.Handler
	PaymentHandler     *payments.Handler
	ReceivablesHandler *receivables.Handler
	ReportHandler      *report.Handler
	JobHandler         *jobs.Handler
}

// NewRouter constructs the chi.Router with Facturo defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/customers", params.CustomerHandler.MountRoutes)
	r.Route("/products", params.ProductHandler.MountRoutes)
	r.Route("/sales", func(r chi.Router) {
		params.QuotationHandler.MountRoutes(r)
		params.InvoiceHandler.MountRoutes(r)
	})
	r.Route("/payments", params.PaymentHandler.MountRoutes)
	r.Route("/reports", params.ReceivablesHandler.MountRoutes)
	if params.ReportHandler != nil {
		r.Route("/export", params.ReportHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	return r
}
