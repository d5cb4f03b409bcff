package procurement

import (
	"time"

	"github.com/shopspring/decimal"
)

type requisitionLineRequest struct {
	ProductID     int64           `json:"product_id" validate:"required,gt=0"`
	Quantity      decimal.Decimal `json:"quantity" validate:"gt=0"`
	Unit          string          `json:"unit" validate:"max=20"`
	Justification string          `json:"justification" validate:"max=500"`
}

type requisitionRequest struct {
	Requester  string                   `json:"requester" validate:"required,max=120"`
	Department string                   `json:"department" validate:"required,max=120"`
	NeededBy   time.Time                `json:"needed_by"`
	Priority   Priority                 `json:"priority" validate:"omitempty,oneof=low medium high"`
	Notes      string                   `json:"notes" validate:"max=1000"`
	Lines      []requisitionLineRequest `json:"lines" validate:"required,min=1,dive"`
}

type requisitionPatchRequest struct {
	Version    int64                    `json:"version" validate:"gte=0"`
	Requester  *string                  `json:"requester" validate:"omitempty,min=1,max=120"`
	Department *string                  `json:"department" validate:"omitempty,min=1,max=120"`
	NeededBy   *time.Time               `json:"needed_by"`
	Priority   *Priority                `json:"priority" validate:"omitempty,oneof=low medium high"`
	Notes      *string                  `json:"notes" validate:"omitempty,max=1000"`
	Lines      []requisitionLineRequest `json:"lines" validate:"omitempty,min=1,dive"`
}

type offerLineRequest struct {
	ProductID int64           `json:"product_id" validate:"required,gt=0"`
	Quantity  decimal.Decimal `json:"quantity" validate:"gt=0"`
	UnitPrice decimal.Decimal `json:"unit_price" validate:"gte=0"`
}

type offerRequest struct {
	SupplierID   int64              `json:"supplier_id" validate:"required,gt=0"`
	LeadTimeDays int                `json:"lead_time_days" validate:"gte=0"`
	PaymentTerms string             `json:"payment_terms" validate:"max=60"`
	Freight      decimal.Decimal    `json:"freight" validate:"gte=0"`
	Lines        []offerLineRequest `json:"lines" validate:"required,min=1,dive"`
}

type quotationRequest struct {
	RequisitionID      int64          `json:"requisition_id" validate:"required,gt=0"`
	DueDate            time.Time      `json:"due_date"`
	Offers             []offerRequest `json:"offers" validate:"required,min=1,dive"`
	SelectedSupplierID int64          `json:"selected_supplier_id" validate:"required,gt=0"`
	Notes              string         `json:"notes" validate:"max=1000"`
}

type quotationPatchRequest struct {
	Version            int64          `json:"version" validate:"gte=0"`
	DueDate            *time.Time     `json:"due_date"`
	Offers             []offerRequest `json:"offers" validate:"omitempty,min=1,dive"`
	SelectedSupplierID *int64         `json:"selected_supplier_id" validate:"omitempty,gt=0"`
	Notes              *string        `json:"notes" validate:"omitempty,max=1000"`
}

type orderRequest struct {
	QuotationID int64     `json:"quotation_id" validate:"required,gt=0"`
	ExpectedAt  time.Time `json:"expected_at"`
	Notes       string    `json:"notes" validate:"max=1000"`
}

type orderPatchRequest struct {
	Version      int64      `json:"version" validate:"gte=0"`
	ExpectedAt   *time.Time `json:"expected_at"`
	PaymentTerms *string    `json:"payment_terms" validate:"omitempty,min=1,max=60"`
	Notes        *string    `json:"notes" validate:"omitempty,max=1000"`
}

type decisionRequest struct {
	Notes string `json:"notes" validate:"max=1000"`
}

func (r requisitionRequest) input() RequisitionInput {
	return RequisitionInput{
		Requester:  r.Requester,
		Department: r.Department,
		NeededBy:   r.NeededBy,
		Priority:   r.Priority,
		Notes:      r.Notes,
		Lines:      requisitionLines(r.Lines),
	}
}

func (r requisitionPatchRequest) patch() RequisitionPatch {
	return RequisitionPatch{
		Version:    r.Version,
		Requester:  r.Requester,
		Department: r.Department,
		NeededBy:   r.NeededBy,
		Priority:   r.Priority,
		Notes:      r.Notes,
		Lines:      requisitionLines(r.Lines),
	}
}

func requisitionLines(lines []requisitionLineRequest) []RequisitionLine {
	if lines == nil {
		return nil
	}
	out := make([]RequisitionLine, 0, len(lines))
	for _, l := range lines {
		out = append(out, RequisitionLine{ProductID: l.ProductID, Quantity: l.Quantity, Unit: l.Unit, Justification: l.Justification})
	}
	return out
}

func (r quotationRequest) input() QuotationInput {
	return QuotationInput{
		RequisitionID:      r.RequisitionID,
		DueDate:            r.DueDate,
		Offers:             offers(r.Offers),
		SelectedSupplierID: r.SelectedSupplierID,
		Notes:              r.Notes,
	}
}

func (r quotationPatchRequest) patch() QuotationPatch {
	return QuotationPatch{
		Version:            r.Version,
		DueDate:            r.DueDate,
		Offers:             offers(r.Offers),
		SelectedSupplierID: r.SelectedSupplierID,
		Notes:              r.Notes,
	}
}

func offers(reqs []offerRequest) []SupplierOffer {
	if reqs == nil {
		return nil
	}
	out := make([]SupplierOffer, 0, len(reqs))
	for _, o := range reqs {
		lines := make([]OfferLine, 0, len(o.Lines))
		for _, l := range o.Lines {
			lines = append(lines, OfferLine{ProductID: l.ProductID, Quantity: l.Quantity, UnitPrice: l.UnitPrice})
		}
		out = append(out, SupplierOffer{
			SupplierID:   o.SupplierID,
			LeadTimeDays: o.LeadTimeDays,
			PaymentTerms: o.PaymentTerms,
			Freight:      o.Freight,
			Lines:        lines,
		})
	}
	return out
}
