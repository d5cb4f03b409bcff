package ap

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-procure/internal/store"
)

// TitleStatus enumerates payable title statuses.
type TitleStatus string

const (
	TitleStatusPending TitleStatus = "pending"
	TitleStatusPaid    TitleStatus = "paid"
	TitleStatusOverdue TitleStatus = "overdue"
)

// OriginPurchaseOrder marks titles generated from a purchase order.
const OriginPurchaseOrder = "purchase-order"

// PayableTitle is one installment owed to a supplier.
type PayableTitle struct {
	store.Meta
	Description     string          `json:"description"`
	Origin          string          `json:"origin"`
	PurchaseOrderID int64           `json:"purchase_order_id"`
	OrderNumber     string          `json:"order_number"`
	SupplierID      int64           `json:"supplier_id"`
	SupplierName    string          `json:"supplier_name"`
	Value           decimal.Decimal `json:"value"`
	IssueDate       time.Time       `json:"issue_date"`
	DueDate         time.Time       `json:"due_date"`
	Status          TitleStatus     `json:"status"`
	Installment     string          `json:"installment"`
	Notes           string          `json:"notes"`
	PaidAt          *time.Time      `json:"paid_at,omitempty"`
	PaidBy          string          `json:"paid_by,omitempty"`
}

// Open reports whether the title still awaits payment.
func (t PayableTitle) Open() bool {
	return t.Status == TitleStatusPending || t.Status == TitleStatusOverdue
}

// SplitInput carries the purchase order data needed to split a payable.
type SplitInput struct {
	OrderID      int64
	OrderNumber  string
	IssueDate    time.Time
	Total        decimal.Decimal
	SupplierID   int64
	SupplierName string
	Terms        string
}

// ListFilter narrows title listings.
type ListFilter struct {
	Status     TitleStatus
	OrderID    int64
	SupplierID int64
	DueBefore  time.Time
}

// AgingBucket summarises open totals by days past due.
type AgingBucket struct {
	Current   decimal.Decimal `json:"current"`
	Bucket30  decimal.Decimal `json:"bucket_30"`
	Bucket60  decimal.Decimal `json:"bucket_60"`
	Bucket90  decimal.Decimal `json:"bucket_90"`
	Bucket120 decimal.Decimal `json:"bucket_120"`
}

// Total sums every bucket.
func (b AgingBucket) Total() decimal.Decimal {
	return b.Current.Add(b.Bucket30).Add(b.Bucket60).Add(b.Bucket90).Add(b.Bucket120)
}

var (
	// ErrNotFound indicates the title is missing.
	ErrNotFound = errors.New("ap: payable title not found")
	// ErrInvalidState occurs when action violates status workflow.
	ErrInvalidState = errors.New("ap: invalid state transition")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("ap: invalid input")
)
