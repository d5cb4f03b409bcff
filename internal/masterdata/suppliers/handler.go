package suppliers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/odyssey-erp/odyssey-procure/internal/masterdata/shared"
	"github.com/odyssey-erp/odyssey-procure/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-procure/internal/store"
)

type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

type supplierRequest struct {
	Version      int64  `json:"version"`
	Code         string `json:"code" validate:"required,max=40"`
	Name         string `json:"name" validate:"required,max=160"`
	TaxID        string `json:"tax_id" validate:"max=32"`
	Email        string `json:"email" validate:"omitempty,email"`
	Phone        string `json:"phone" validate:"max=40"`
	Address      string `json:"address"`
	City         string `json:"city"`
	State        string `json:"state" validate:"omitempty,len=2"`
	Category     string `json:"category"`
	PaymentTerms string `json:"payment_terms" validate:"max=80"`
	Active       *bool  `json:"active"`
}

type listResponse struct {
	Items []Supplier `json:"items"`
	Total int        `json:"total"`
	Page  int        `json:"page"`
	Limit int        `json:"limit"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	filters := shared.ListFilters{
		Page:    page,
		Limit:   limit,
		Search:  r.URL.Query().Get("search"),
		SortBy:  r.URL.Query().Get("sort"),
		SortDir: r.URL.Query().Get("dir"),
	}
	if raw := r.URL.Query().Get("active"); raw != "" {
		if active, err := strconv.ParseBool(raw); err == nil {
			filters.IsActive = &active
		}
	}

	suppliers, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("list suppliers failed", "error", err)
		h.writeError(w, err)
		return
	}
	filters = filters.Normalize()
	httpx.JSON(w, http.StatusOK, listResponse{Items: suppliers, Total: total, Page: filters.Page, Limit: filters.Limit})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IDParam(r, "id")
	if !ok {
		h.writeError(w, shared.ErrInvalidID)
		return
	}

	supplier, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, supplier)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req supplierRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	created, err := h.service.Create(r.Context(), req.toSupplier())
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IDParam(r, "id")
	if !ok {
		h.writeError(w, shared.ErrInvalidID)
		return
	}
	var req supplierRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	if err := h.service.Update(r.Context(), id, req.toSupplier()); err != nil {
		h.writeError(w, err)
		return
	}
	updated, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IDParam(r, "id")
	if !ok {
		h.writeError(w, shared.ErrInvalidID)
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (req supplierRequest) toSupplier() Supplier {
	s := Supplier{
		Code:         req.Code,
		Name:         req.Name,
		TaxID:        req.TaxID,
		Email:        req.Email,
		Phone:        req.Phone,
		Address:      req.Address,
		City:         req.City,
		State:        req.State,
		Category:     req.Category,
		PaymentTerms: req.PaymentTerms,
		Active:       req.Active == nil || *req.Active,
	}
	s.Version = req.Version
	return s
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrInvalidID):
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", err.Error())
	case errors.Is(err, shared.ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrDuplicate), errors.Is(err, store.ErrVersionConflict):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
	default:
		httpx.RespondError(w, err)
	}
}
