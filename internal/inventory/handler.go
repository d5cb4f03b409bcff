package inventory

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-procure/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-procure/internal/store"
)

// Handler serves inventory HTTP endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler creates inventory handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/products", h.listProducts)
	r.Post("/products", h.createProduct)
	r.Get("/low-stock", h.lowStock)
	r.Get("/products/{id}", h.getProduct)
	r.Get("/products/{id}/bom-cost", h.bomCost)
	r.Post("/products/{id}/bom-cost/sync", h.syncBOMCost)
	r.Get("/products/{id}/stock-card", h.stockCard)
	r.Post("/adjustments", h.adjust)
}

type bomComponentRequest struct {
	ProductID int64           `json:"product_id" validate:"required,gt=0"`
	Quantity  decimal.Decimal `json:"quantity" validate:"gt=0"`
	Unit      string          `json:"unit" validate:"max=20"`
}

type productRequest struct {
	Code        string                `json:"code" validate:"required,max=40"`
	Description string                `json:"description" validate:"required"`
	Type        ProductType           `json:"type" validate:"omitempty,oneof=raw-material finished-good input marketing asset consumable fuel other"`
	Unit        string                `json:"unit" validate:"required,max=20"`
	Cost        decimal.Decimal       `json:"cost" validate:"gte=0"`
	Price       decimal.Decimal       `json:"price" validate:"gte=0"`
	MinStock    decimal.Decimal       `json:"min_stock" validate:"gte=0"`
	MaxStock    decimal.Decimal       `json:"max_stock" validate:"gte=0"`
	Stock       decimal.Decimal       `json:"current_stock" validate:"gte=0"`
	BOM         []bomComponentRequest `json:"bom" validate:"omitempty,dive"`
}

type adjustmentRequest struct {
	ProductID int64           `json:"product_id" validate:"required,gt=0"`
	Qty       decimal.Decimal `json:"qty" validate:"ne=0"`
	Note      string          `json:"note" validate:"max=200"`
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ListProducts(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, products)
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	bom := make([]BOMComponent, 0, len(req.BOM))
	for _, c := range req.BOM {
		bom = append(bom, BOMComponent{ProductID: c.ProductID, Quantity: c.Quantity, Unit: c.Unit})
	}
	product, err := h.service.CreateProduct(r.Context(), ProductInput{
		Code:        req.Code,
		Description: req.Description,
		Type:        req.Type,
		Unit:        req.Unit,
		Cost:        req.Cost,
		Price:       req.Price,
		MinStock:    req.MinStock,
		MaxStock:    req.MaxStock,
		Stock:       req.Stock,
		BOM:         bom,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, product)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IDParam(r, "id")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "product id must be a positive integer")
		return
	}
	product, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) bomCost(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IDParam(r, "id")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "product id must be a positive integer")
		return
	}
	rollup, err := h.service.CostRollup(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rollup)
}

func (h *Handler) syncBOMCost(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IDParam(r, "id")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "product id must be a positive integer")
		return
	}
	product, err := h.service.SyncBOMCost(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) stockCard(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IDParam(r, "id")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "product id must be a positive integer")
		return
	}
	movements, err := h.service.GetStockCard(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, movements)
}

func (h *Handler) lowStock(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.LowStock(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, products)
}

func (h *Handler) adjust(w http.ResponseWriter, r *http.Request) {
	var req adjustmentRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	movement, err := h.service.PostAdjustment(r.Context(), AdjustmentInput{ProductID: req.ProductID, Qty: req.Qty, Note: req.Note})
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, movement)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidQuantity), errors.Is(err, httpx.ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrNegativeStock), errors.Is(err, store.ErrVersionConflict):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		h.logger.Error("inventory request failed", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
