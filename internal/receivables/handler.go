package receivables

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/facturo-erp/facturo-erp/internal/platform/httpx"
)

type Handler struct {
	logger  *slog.Logger
	service *Service
	now     func() time.Time
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, now: time.Now}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/receivables", h.Snapshot)
	r.Get("/dashboard", h.Dashboard)
}

func (h *Handler) Snapshot(w http.ResponseWriter, r *http.Request) {
	asOf := h.now()
	if v := r.URL.Query().Get("as_of"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Date", "as_of must be YYYY-MM-DD")
			return
		}
		asOf = parsed
	}

	snap, err := h.service.Snapshot(r.Context(), asOf)
	if err != nil {
		h.logger.Error("receivables snapshot failed", "error", err)
		httpx.RespondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, snap)
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	asOf := h.now()

	mtd, err := h.service.MonthToDate(r.Context(), asOf)
	if err != nil {
		h.logger.Error("dashboard aggregation failed", "error", err)
		httpx.RespondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, mtd)
}
