package ap

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-procure/internal/platform/httpx"
)

// Handler serves accounts payable endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the payables handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers payables routes and the aging report.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/payables", func(r chi.Router) {
		r.Get("/", h.listTitles)
		r.Post("/overdue-sweep", h.sweep)
		r.Get("/{id}", h.showTitle)
		r.Post("/{id}/pay", h.pay)
	})
	r.Get("/aging", h.aging)
}

type payRequest struct {
	PaidAt *time.Time `json:"paid_at"`
}

func (h *Handler) listTitles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{Status: TitleStatus(q.Get("status"))}
	if raw := q.Get("order_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "order_id must be an integer")
			return
		}
		filter.OrderID = id
	}
	if raw := q.Get("supplier_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "supplier_id must be an integer")
			return
		}
		filter.SupplierID = id
	}
	titles, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, titles)
}

func (h *Handler) showTitle(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IDParam(r, "id")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "title id must be a positive integer")
		return
	}
	title, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, title)
}

func (h *Handler) pay(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IDParam(r, "id")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "title id must be a positive integer")
		return
	}
	var req payRequest
	if r.ContentLength != 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
			return
		}
	}
	var paidAt time.Time
	if req.PaidAt != nil {
		paidAt = *req.PaidAt
	}
	title, err := h.service.MarkPaid(r.Context(), id, paidAt)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, title)
}

func (h *Handler) aging(w http.ResponseWriter, r *http.Request) {
	asOf, err := parseDate(r.URL.Query().Get("as_of"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "as_of must be YYYY-MM-DD")
		return
	}
	bucket, err := h.service.Aging(r.Context(), asOf)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"buckets": bucket, "total": bucket.Total()})
}

func (h *Handler) sweep(w http.ResponseWriter, r *http.Request) {
	asOf, err := parseDate(r.URL.Query().Get("as_of"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "as_of must be YYYY-MM-DD")
		return
	}
	changed, err := h.service.MarkOverdue(r.Context(), asOf)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]int{"marked_overdue": changed})
}

func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.DateOnly, raw)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrInvalidState):
		httpx.Problem(w, http.StatusConflict, "Invalid State", err.Error())
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("payables request failed", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
