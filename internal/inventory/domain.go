package inventory

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-procure/internal/store"
)

// ProductType classifies catalogue items.
type ProductType string

const (
	ProductTypeRawMaterial ProductType = "raw-material"
	ProductTypeFinished    ProductType = "finished-good"
	ProductTypeInput       ProductType = "input"
	ProductTypeMarketing   ProductType = "marketing"
	ProductTypeAsset       ProductType = "asset"
	ProductTypeConsumable  ProductType = "consumable"
	ProductTypeFuel        ProductType = "fuel"
	ProductTypeOther       ProductType = "other"
)

// Valid reports whether t is a known product type.
func (t ProductType) Valid() bool {
	switch t {
	case ProductTypeRawMaterial, ProductTypeFinished, ProductTypeInput, ProductTypeMarketing,
		ProductTypeAsset, ProductTypeConsumable, ProductTypeFuel, ProductTypeOther:
		return true
	}
	return false
}

// BOMComponent is one input of a product's bill of materials.
type BOMComponent struct {
	ProductID int64           `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	Unit      string          `json:"unit"`
}

// Product is a catalogue item with stock levels.
type Product struct {
	store.Meta
	Code         string          `json:"code"`
	Description  string          `json:"description"`
	Type         ProductType     `json:"type"`
	Unit         string          `json:"unit"`
	Cost         decimal.Decimal `json:"cost"`
	Price        decimal.Decimal `json:"price"`
	MinStock     decimal.Decimal `json:"min_stock"`
	MaxStock     decimal.Decimal `json:"max_stock"`
	CurrentStock decimal.Decimal `json:"current_stock"`
	BOM          []BOMComponent  `json:"bom,omitempty"`
	Active       bool            `json:"active"`
	CreatedAt    time.Time       `json:"created_at"`
}

// BelowMinimum reports whether stock fell under the configured minimum.
func (p Product) BelowMinimum() bool {
	return p.MinStock.IsPositive() && p.CurrentStock.LessThan(p.MinStock)
}

// TransactionType enumerates supported inventory movements.
type TransactionType string

const (
	// TransactionTypeIn represents an inbound movement.
	TransactionTypeIn TransactionType = "IN"
	// TransactionTypeAdjust indicates manual adjustments.
	TransactionTypeAdjust TransactionType = "ADJUST"
)

// StockMovement is one entry of a product's stock card.
type StockMovement struct {
	store.Meta
	ProductID  int64           `json:"product_id"`
	Type       TransactionType `json:"type"`
	Qty        decimal.Decimal `json:"qty"`
	BalanceQty decimal.Decimal `json:"balance_qty"`
	UnitCost   decimal.Decimal `json:"unit_cost"`
	RefModule  string          `json:"ref_module,omitempty"`
	RefID      string          `json:"ref_id,omitempty"`
	Note       string          `json:"note,omitempty"`
	Actor      string          `json:"actor"`
	PostedAt   time.Time       `json:"posted_at"`
}

// InboundLine is a quantity entering stock.
type InboundLine struct {
	ProductID int64
	Qty       decimal.Decimal
	UnitCost  decimal.Decimal
}

// InboundInput groups inbound lines posted for one source document.
type InboundInput struct {
	RefModule string
	RefID     string
	Note      string
	Lines     []InboundLine
}

// AdjustmentInput describes request to adjust stock.
type AdjustmentInput struct {
	ProductID int64
	Qty       decimal.Decimal
	Note      string
}

// ProductInput describes a product to create.
type ProductInput struct {
	Code        string
	Description string
	Type        ProductType
	Unit        string
	Cost        decimal.Decimal
	Price       decimal.Decimal
	MinStock    decimal.Decimal
	MaxStock    decimal.Decimal
	Stock       decimal.Decimal
	BOM         []BOMComponent
}

var (
	// ErrNotFound indicates the product is missing.
	ErrNotFound = errors.New("inventory: product not found")
	// ErrNegativeStock triggered when movement would result negative qty.
	ErrNegativeStock = errors.New("inventory: negative stock not allowed")
	// ErrInvalidQuantity indicates invalid qty.
	ErrInvalidQuantity = errors.New("inventory: quantity must be non zero")
	// ErrValidation indicates invalid product data.
	ErrValidation = errors.New("inventory: invalid input")
)
