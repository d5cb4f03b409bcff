package procurement

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-procure/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-procure/internal/shared"
	"github.com/odyssey-erp/odyssey-procure/internal/store"
)

// Handler wires procurement endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	idem    *shared.IdempotencyStore
}

// NewHandler builds a procurement handler. idem may be nil, which disables
// Idempotency-Key checks on create endpoints.
func NewHandler(logger *slog.Logger, service *Service, idem *shared.IdempotencyStore) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, idem: idem}
}

// MountRoutes registers procurement routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/requisitions", func(r chi.Router) {
		r.Get("/", h.listRequisitions)
		r.With(h.idem.Middleware("procurement.requisition", h.logger)).Post("/", h.createRequisition)
		r.Get("/eligible", h.eligibleRequisitions)
		r.Get("/{id}", h.getRequisition)
		r.Patch("/{id}", h.updateRequisition)
		r.Delete("/{id}", h.deleteRequisition)
		r.Post("/{id}/approve", h.approveRequisition)
		r.Post("/{id}/reject", h.rejectRequisition)
		r.Get("/{id}/approvals", h.requisitionApprovals)
	})
	r.Route("/quotations", func(r chi.Router) {
		r.Get("/", h.listQuotations)
		r.With(h.idem.Middleware("procurement.quotation", h.logger)).Post("/", h.createQuotation)
		r.Get("/eligible", h.eligibleQuotations)
		r.Get("/{id}", h.getQuotation)
		r.Patch("/{id}", h.updateQuotation)
		r.Delete("/{id}", h.deleteQuotation)
		r.Post("/{id}/approve", h.approveQuotation)
		r.Post("/{id}/reject", h.rejectQuotation)
		r.Get("/{id}/approvals", h.quotationApprovals)
	})
	r.Get("/approvals", h.pendingApprovals)
	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.listOrders)
		r.With(h.idem.Middleware("procurement.order", h.logger)).Post("/", h.createOrder)
		r.Get("/{id}", h.getOrder)
		r.Patch("/{id}", h.updateOrder)
		r.Delete("/{id}", h.deleteOrder)
		r.Post("/{id}/receive", h.receiveOrder)
	})
	r.Get("/stats", h.stats)
	r.Get("/export/{section}", h.export)
}

func (h *Handler) listRequisitions(w http.ResponseWriter, r *http.Request) {
	views, err := h.service.RequisitionViews(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, views)
}

func (h *Handler) createRequisition(w http.ResponseWriter, r *http.Request) {
	var req requisitionRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	created, err := h.service.CreateRequisition(r.Context(), req.input())
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) eligibleRequisitions(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.service.EligibleRequisitions(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, reqs)
}

func (h *Handler) getRequisition(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	req, err := h.service.GetRequisition(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, req)
}

func (h *Handler) updateRequisition(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	var req requisitionPatchRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	updated, err := h.service.UpdateRequisition(r.Context(), id, req.patch())
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) deleteRequisition(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteRequisition(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) approveRequisition(w http.ResponseWriter, r *http.Request) {
	h.decideRequisition(w, r, h.service.ApproveRequisition)
}

func (h *Handler) rejectRequisition(w http.ResponseWriter, r *http.Request) {
	h.decideRequisition(w, r, h.service.RejectRequisition)
}

func (h *Handler) decideRequisition(w http.ResponseWriter, r *http.Request, decide decideFunc[Requisition]) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	d, ok := h.decision(w, r)
	if !ok {
		return
	}
	req, err := decide(r.Context(), id, d)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, req)
}

func (h *Handler) requisitionApprovals(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	req, err := h.service.GetRequisition(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	logs, err := h.service.ApprovalHistory(r.Context(), PrefixRequisition, req.Number)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, logs)
}

func (h *Handler) listQuotations(w http.ResponseWriter, r *http.Request) {
	views, err := h.service.QuotationViews(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, views)
}

func (h *Handler) createQuotation(w http.ResponseWriter, r *http.Request) {
	var req quotationRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	created, err := h.service.CreateQuotation(r.Context(), req.input())
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) eligibleQuotations(w http.ResponseWriter, r *http.Request) {
	quotations, err := h.service.EligibleQuotations(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, quotations)
}

func (h *Handler) getQuotation(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	q, err := h.service.GetQuotation(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, q)
}

func (h *Handler) updateQuotation(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	var req quotationPatchRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	updated, err := h.service.UpdateQuotation(r.Context(), id, req.patch())
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) deleteQuotation(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteQuotation(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) approveQuotation(w http.ResponseWriter, r *http.Request) {
	h.decideQuotation(w, r, h.service.ApproveQuotation)
}

func (h *Handler) rejectQuotation(w http.ResponseWriter, r *http.Request) {
	h.decideQuotation(w, r, h.service.RejectQuotation)
}

func (h *Handler) decideQuotation(w http.ResponseWriter, r *http.Request, decide decideFunc[Quotation]) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	d, ok := h.decision(w, r)
	if !ok {
		return
	}
	q, err := decide(r.Context(), id, d)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, q)
}

func (h *Handler) quotationApprovals(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	q, err := h.service.GetQuotation(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	logs, err := h.service.ApprovalHistory(r.Context(), PrefixQuotation, q.Number)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, logs)
}

func (h *Handler) pendingApprovals(w http.ResponseWriter, r *http.Request) {
	views, err := h.service.ApprovalViews(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, views)
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	views, err := h.service.OrderViews(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, views)
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	created, err := h.service.CreatePurchaseOrder(r.Context(), OrderInput{
		QuotationID: req.QuotationID,
		ExpectedAt:  req.ExpectedAt,
		Notes:       req.Notes,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	po, err := h.service.GetPurchaseOrder(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, po)
}

func (h *Handler) updateOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	var req orderPatchRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	updated, err := h.service.UpdatePurchaseOrder(r.Context(), id, OrderPatch{
		Version:      req.Version,
		ExpectedAt:   req.ExpectedAt,
		PaymentTerms: req.PaymentTerms,
		Notes:        req.Notes,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	if err := h.service.DeletePurchaseOrder(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) receiveOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	d, ok := h.decision(w, r)
	if !ok {
		return
	}
	po, err := h.service.ReceivePurchaseOrder(r.Context(), id, d)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, po)
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	section := chi.URLParam(r, "section")
	switch section {
	case SectionRequisitions, SectionQuotations, SectionOrders:
	default:
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown export section")
		return
	}
	var buf bytes.Buffer
	if err := h.service.Export(r.Context(), section, &buf); err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+ExportFilename(section)+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

type decideFunc[T any] func(ctx context.Context, id int64, d Decision) (T, error)

func (h *Handler) id(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := httpx.IDParam(r, "id")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive integer")
	}
	return id, ok
}

func (h *Handler) decision(w http.ResponseWriter, r *http.Request) (Decision, bool) {
	var req decisionRequest
	if r.ContentLength != 0 {
		if err := httpx.DecodeAndValidate(r, &req); err != nil {
			h.writeError(w, err)
			return Decision{}, false
		}
	}
	return Decision{Notes: req.Notes}, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrValidation), errors.Is(err, httpx.ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrGuard):
		httpx.Problem(w, http.StatusConflict, "No Eligible Document", err.Error())
	case errors.Is(err, ErrInvalidState), errors.Is(err, ErrHasDependents):
		httpx.Problem(w, http.StatusConflict, "Invalid State", err.Error())
	case errors.Is(err, store.ErrVersionConflict):
		httpx.Problem(w, http.StatusConflict, "Version Conflict", err.Error())
	default:
		h.logger.Error("procurement request failed", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
