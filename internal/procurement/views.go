package procurement

import (
	"context"

	"github.com/odyssey-erp/odyssey-procure/internal/store"
)

// Fallback labels for references that no longer resolve.
const (
	LabelProductNotFound     = "product not found"
	LabelRequisitionNotFound = "requisition not found"
	LabelQuotationNotFound   = "quotation not found"
	LabelSupplierNotFound    = "supplier not found"
)

// RequisitionLineView is a requisition line with its product description.
type RequisitionLineView struct {
	RequisitionLine
	Product string `json:"product"`
}

// RequisitionView is a requisition ready for display.
type RequisitionView struct {
	Requisition
	Lines []RequisitionLineView `json:"lines"`
}

// QuotationView is a quotation with its requisition number and selected
// supplier name resolved.
type QuotationView struct {
	Quotation
	Requisition string `json:"requisition"`
	Supplier    string `json:"supplier"`
}

// OrderView is a purchase order with its quotation number and supplier
// name resolved.
type OrderView struct {
	PurchaseOrder
	Quotation string `json:"quotation"`
	Supplier  string `json:"supplier"`
}

// resolver caches display lookups for one listing.
type resolver struct {
	s         *Service
	products  map[int64]string
	suppliers map[int64]string
}

func (s *Service) newResolver() *resolver {
	return &resolver{s: s, products: map[int64]string{}, suppliers: map[int64]string{}}
}

func (r *resolver) product(ctx context.Context, id int64) string {
	if name, ok := r.products[id]; ok {
		return name
	}
	name := LabelProductNotFound
	if p, err := r.s.inventory.GetProduct(ctx, id); err == nil {
		name = p.Description
	}
	r.products[id] = name
	return name
}

func (r *resolver) supplier(ctx context.Context, id int64) string {
	if name, ok := r.suppliers[id]; ok {
		return name
	}
	name := LabelSupplierNotFound
	if sup, err := r.s.suppliers.GetSupplier(ctx, id); err == nil {
		name = sup.Name
	}
	r.suppliers[id] = name
	return name
}

// RequisitionViews lists requisitions for display, filtered by a
// case-insensitive search term.
func (s *Service) RequisitionViews(ctx context.Context, search string) ([]RequisitionView, error) {
	reqs, err := s.repo.ListRequisitions(ctx)
	if err != nil {
		return nil, err
	}
	res := s.newResolver()
	views := make([]RequisitionView, 0, len(reqs))
	for _, req := range reqs {
		lines := make([]RequisitionLineView, 0, len(req.Lines))
		for _, line := range req.Lines {
			lines = append(lines, RequisitionLineView{RequisitionLine: line, Product: res.product(ctx, line.ProductID)})
		}
		views = append(views, RequisitionView{Requisition: req, Lines: lines})
	}
	return store.Search(views, search, func(v RequisitionView) []string {
		return []string{v.Number, v.Requester, v.Department, string(v.Status), string(v.Priority), v.Notes}
	}), nil
}

// QuotationViews lists quotations for display, filtered by search.
func (s *Service) QuotationViews(ctx context.Context, search string) ([]QuotationView, error) {
	quotations, err := s.repo.ListQuotations(ctx)
	if err != nil {
		return nil, err
	}
	views, err := s.quotationViews(ctx, quotations)
	if err != nil {
		return nil, err
	}
	return store.Search(views, search, func(v QuotationView) []string {
		return []string{v.Number, v.Requisition, v.Supplier, string(v.Status), v.TotalValue.String(), v.Notes}
	}), nil
}

// ApprovalViews lists quotations awaiting a decision for display.
func (s *Service) ApprovalViews(ctx context.Context) ([]QuotationView, error) {
	pending, err := s.PendingApprovals(ctx)
	if err != nil {
		return nil, err
	}
	return s.quotationViews(ctx, pending)
}

func (s *Service) quotationViews(ctx context.Context, quotations []Quotation) ([]QuotationView, error) {
	reqs, err := s.repo.ListRequisitions(ctx)
	if err != nil {
		return nil, err
	}
	numbers := make(map[int64]string, len(reqs))
	for _, r := range reqs {
		numbers[r.ID] = r.Number
	}
	res := s.newResolver()
	views := make([]QuotationView, 0, len(quotations))
	for _, q := range quotations {
		number, ok := numbers[q.RequisitionID]
		if !ok {
			number = LabelRequisitionNotFound
		}
		views = append(views, QuotationView{Quotation: q, Requisition: number, Supplier: res.supplier(ctx, q.SelectedSupplierID)})
	}
	return views, nil
}

// OrderViews lists purchase orders for display, filtered by search.
func (s *Service) OrderViews(ctx context.Context, search string) ([]OrderView, error) {
	orders, err := s.repo.ListOrders(ctx)
	if err != nil {
		return nil, err
	}
	quotations, err := s.repo.ListQuotations(ctx)
	if err != nil {
		return nil, err
	}
	numbers := make(map[int64]string, len(quotations))
	for _, q := range quotations {
		numbers[q.ID] = q.Number
	}
	res := s.newResolver()
	views := make([]OrderView, 0, len(orders))
	for _, po := range orders {
		number, ok := numbers[po.QuotationID]
		if !ok {
			number = LabelQuotationNotFound
		}
		views = append(views, OrderView{PurchaseOrder: po, Quotation: number, Supplier: res.supplier(ctx, po.SupplierID)})
	}
	return store.Search(views, search, func(v OrderView) []string {
		return []string{v.Number, v.Quotation, v.Supplier, string(v.Status), v.PaymentTerms, v.TotalValue.String(), v.Notes}
	}), nil
}
