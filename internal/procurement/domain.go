package procurement

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-procure/internal/store"
)

// Document number prefixes.
const (
	PrefixRequisition   = "REQ"
	PrefixQuotation     = "COT"
	PrefixPurchaseOrder = "PC"
)

// defaultLeadTimeDays applies when an offer carries no lead time.
const defaultLeadTimeDays = 15

// RequisitionStatus enumerates requisition lifecycle statuses.
type RequisitionStatus string

const (
	RequisitionPending     RequisitionStatus = "pending"
	RequisitionApproved    RequisitionStatus = "approved"
	RequisitionRejected    RequisitionStatus = "rejected"
	RequisitionInQuotation RequisitionStatus = "in-quotation"
)

// Priority of a requisition.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// QuotationStatus enumerates quotation lifecycle statuses.
type QuotationStatus string

const (
	QuotationPending        QuotationStatus = "pending"
	QuotationApproved       QuotationStatus = "approved"
	QuotationRejected       QuotationStatus = "rejected"
	QuotationOrderGenerated QuotationStatus = "order-generated"
)

// ApprovalStatus is the state of a nested approval record.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// OrderStatus enumerates purchase order statuses.
type OrderStatus string

const (
	OrderSent     OrderStatus = "sent"
	OrderReceived OrderStatus = "received"
)

// ReceiptStatus is the state of a purchase order receipt.
type ReceiptStatus string

const (
	ReceiptPending  ReceiptStatus = "pending"
	ReceiptComplete ReceiptStatus = "complete"
)

// Approval records a reviewer decision on a requisition or quotation.
type Approval struct {
	Status    ApprovalStatus `json:"status"`
	DecidedBy string         `json:"decided_by,omitempty"`
	DecidedAt *time.Time     `json:"decided_at,omitempty"`
	SentAt    *time.Time     `json:"sent_at,omitempty"`
	Notes     string         `json:"notes,omitempty"`
}

// RequisitionLine is one requested item.
type RequisitionLine struct {
	ProductID     int64           `json:"product_id"`
	Quantity      decimal.Decimal `json:"quantity"`
	Unit          string          `json:"unit"`
	Justification string          `json:"justification,omitempty"`
}

// Requisition is an internal request to purchase materials.
type Requisition struct {
	store.Meta
	Number      string            `json:"number"`
	Requester   string            `json:"requester"`
	Department  string            `json:"department"`
	RequestedAt time.Time         `json:"requested_at"`
	NeededBy    time.Time         `json:"needed_by"`
	Status      RequisitionStatus `json:"status"`
	Priority    Priority          `json:"priority"`
	Notes       string            `json:"notes,omitempty"`
	Lines       []RequisitionLine `json:"lines"`
	Approval    Approval          `json:"approval"`
}

// OfferLine is a priced line within a supplier offer.
type OfferLine struct {
	ProductID  int64           `json:"product_id"`
	Quantity   decimal.Decimal `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

// SupplierOffer is one supplier's answer to a quotation.
type SupplierOffer struct {
	SupplierID   int64           `json:"supplier_id"`
	LeadTimeDays int             `json:"lead_time_days"`
	PaymentTerms string          `json:"payment_terms"`
	Freight      decimal.Decimal `json:"freight"`
	Lines        []OfferLine     `json:"lines"`
	TotalValue   decimal.Decimal `json:"total_value"`
}

// Priced returns the offer with line totals and the offer total computed
// as the sum of quantity times unit price plus freight.
func (o SupplierOffer) Priced() SupplierOffer {
	total := decimal.Zero
	lines := make([]OfferLine, len(o.Lines))
	for i, line := range o.Lines {
		line.TotalPrice = line.Quantity.Mul(line.UnitPrice)
		total = total.Add(line.TotalPrice)
		lines[i] = line
	}
	o.Lines = lines
	o.TotalValue = total.Add(o.Freight)
	return o
}

// Quotation collects competing supplier offers for one requisition.
type Quotation struct {
	store.Meta
	Number             string          `json:"number"`
	RequisitionID      int64           `json:"requisition_id"`
	IssuedAt           time.Time       `json:"issued_at"`
	DueDate            time.Time       `json:"due_date"`
	Status             QuotationStatus `json:"status"`
	Offers             []SupplierOffer `json:"offers"`
	SelectedSupplierID int64           `json:"selected_supplier_id"`
	TotalValue         decimal.Decimal `json:"total_value"`
	Notes              string          `json:"notes,omitempty"`
	Approval           Approval        `json:"approval"`
}

// SelectedOffer returns the offer of the selected supplier.
func (q Quotation) SelectedOffer() (SupplierOffer, bool) {
	for _, offer := range q.Offers {
		if offer.SupplierID == q.SelectedSupplierID {
			return offer, true
		}
	}
	return SupplierOffer{}, false
}

// OrderLine is a line of a purchase order.
type OrderLine struct {
	ProductID  int64           `json:"product_id"`
	Quantity   decimal.Decimal `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

// ReceivedLine records a quantity taken into stock.
type ReceivedLine struct {
	ProductID int64           `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// Receipt is the nested receiving record of a purchase order.
type Receipt struct {
	Status     ReceiptStatus  `json:"status"`
	ReceivedAt *time.Time     `json:"received_at,omitempty"`
	ReceivedBy string         `json:"received_by,omitempty"`
	Notes      string         `json:"notes,omitempty"`
	Lines      []ReceivedLine `json:"lines"`
}

// PurchaseOrder commits to buy the selected offer of a quotation.
type PurchaseOrder struct {
	store.Meta
	Number       string          `json:"number"`
	QuotationID  int64           `json:"quotation_id"`
	SupplierID   int64           `json:"supplier_id"`
	IssuedAt     time.Time       `json:"issued_at"`
	ExpectedAt   time.Time       `json:"expected_at"`
	DeliveredAt  *time.Time      `json:"delivered_at,omitempty"`
	Status       OrderStatus     `json:"status"`
	TotalValue   decimal.Decimal `json:"total_value"`
	PaymentTerms string          `json:"payment_terms"`
	Freight      decimal.Decimal `json:"freight"`
	Notes        string          `json:"notes,omitempty"`
	Lines        []OrderLine     `json:"lines"`
	Receipt      Receipt         `json:"receipt"`
}

// RequisitionInput describes a requisition to create.
type RequisitionInput struct {
	Requester  string
	Department string
	NeededBy   time.Time
	Priority   Priority
	Notes      string
	Lines      []RequisitionLine
}

// RequisitionPatch carries the editable fields of a requisition. Nil fields
// are left untouched; a non-nil Lines replaces the whole list.
type RequisitionPatch struct {
	Version    int64
	Requester  *string
	Department *string
	NeededBy   *time.Time
	Priority   *Priority
	Notes      *string
	Lines      []RequisitionLine
}

// QuotationInput describes a quotation to create.
type QuotationInput struct {
	RequisitionID      int64
	DueDate            time.Time
	Offers             []SupplierOffer
	SelectedSupplierID int64
	Notes              string
}

// QuotationPatch carries the editable fields of a quotation.
type QuotationPatch struct {
	Version            int64
	DueDate            *time.Time
	Offers             []SupplierOffer
	SelectedSupplierID *int64
	Notes              *string
}

// OrderInput describes a purchase order to create from a quotation. A zero
// ExpectedAt derives the forecast from the offer lead time.
type OrderInput struct {
	QuotationID int64
	ExpectedAt  time.Time
	Notes       string
}

// OrderPatch carries the editable fields of a purchase order.
type OrderPatch struct {
	Version      int64
	ExpectedAt   *time.Time
	PaymentTerms *string
	Notes        *string
}

// Decision is the reviewer input for approve and reject actions.
type Decision struct {
	Notes string
}

var (
	// ErrInvalidState occurs when action violates status workflow.
	ErrInvalidState = errors.New("procurement: invalid state transition")
	// ErrNotFound indicates record missing.
	ErrNotFound = errors.New("procurement: not found")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("procurement: invalid input")
	// ErrGuard reports that no eligible source document exists.
	ErrGuard = errors.New("procurement: no eligible source document")
	// ErrHasDependents refuses deletes that would orphan another document.
	ErrHasDependents = errors.New("procurement: document has dependents")
)
