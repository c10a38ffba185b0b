package report

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/facturo-erp/facturo-erp/internal/platform/httpx"
	"github.com/facturo-erp/facturo-erp/internal/sales/invoices"
	"github.com/facturo-erp/facturo-erp/internal/sales/quotations"
)

// Handler manages PDF export endpoints.
type Handler struct {
	client     *Client
	invoices   *invoices.Service
	quotations *quotations.Service
	logger     *slog.Logger
}

// NewHandler creates a report handler.
func NewHandler(client *Client, inv *invoices.Service, quo *quotations.Service, logger *slog.Logger) *Handler {
	return &Handler{client: client, invoices: inv, quotations: quo, logger: logger}
}

// MountRoutes registers export routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/ping", h.ping)
	r.Get("/invoices/{id}/pdf", h.invoicePDF)
	r.Get("/quotations/{id}/pdf", h.quotationPDF)
}

func (h *Handler) ping(w http.ResponseWriter, r *http.Request) {
	if err := h.client.Ping(r.Context()); err != nil {
		h.logger.Warn("gotenberg ping failed", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (h *Handler) invoicePDF(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	sale, err := h.invoices.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	html, err := RenderInvoiceHTML(sale, time.Now())
	if err != nil {
		h.logger.Error("render invoice html", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.servePDF(w, r, html, sale.Number)
}

func (h *Handler) quotationPDF(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	quotation, err := h.quotations.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	html, err := RenderQuotationHTML(quotation, time.Now())
	if err != nil {
		h.logger.Error("render quotation html", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.servePDF(w, r, html, quotation.Number)
}

func (h *Handler) servePDF(w http.ResponseWriter, r *http.Request, html, name string) {
	pdf, err := h.client.RenderHTML(r.Context(), html)
	if err != nil {
		h.logger.Error("render pdf", slog.Any("error", err), slog.String("document", name))
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "inline; filename="+name+".pdf")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}
