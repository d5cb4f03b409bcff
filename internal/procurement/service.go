package procurement

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-procure/internal/ap"
	"github.com/odyssey-erp/odyssey-procure/internal/inventory"
	"github.com/odyssey-erp/odyssey-procure/internal/masterdata/suppliers"
	"github.com/odyssey-erp/odyssey-procure/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetRequisition(ctx context.Context, id int64) (Requisition, error)
	ListRequisitions(ctx context.Context) ([]Requisition, error)
	GetQuotation(ctx context.Context, id int64) (Quotation, error)
	ListQuotations(ctx context.Context) ([]Quotation, error)
	GetOrder(ctx context.Context, id int64) (PurchaseOrder, error)
	ListOrders(ctx context.Context) ([]PurchaseOrder, error)
}

// InventoryPort exposes required inventory integration.
type InventoryPort interface {
	GetProduct(ctx context.Context, id int64) (inventory.Product, error)
	PostInbound(ctx context.Context, input inventory.InboundInput) ([]inventory.StockMovement, error)
}

// SupplierPort resolves supplier master data.
type SupplierPort interface {
	GetSupplier(ctx context.Context, id int64) (suppliers.Supplier, error)
}

// PayablesPort generates payable titles for a purchase order.
type PayablesPort interface {
	GenerateForOrder(ctx context.Context, in ap.SplitInput) ([]ap.PayableTitle, error)
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// ApprovalPort records and lists approval history.
type ApprovalPort interface {
	Record(ctx context.Context, log shared.ApprovalLog) error
	List(ctx context.Context, module string, ref uuid.UUID) ([]shared.ApprovalLog, error)
}

// MetricsRecorder counts workflow transitions.
type MetricsRecorder interface {
	ObserveTransition(entity, action string)
}

// Service orchestrates the requisition to purchase order workflow.
type Service struct {
	repo      RepositoryPort
	inventory InventoryPort
	suppliers SupplierPort
	payables  PayablesPort
	notifier  shared.Notifier
	approvals ApprovalPort
	audit     AuditPort
	metrics   MetricsRecorder
	money     *shared.MoneyFormatter
	logger    *slog.Logger
	now       func() time.Time
}

// NewService constructs procurement service.
func NewService(repo RepositoryPort, inv InventoryPort, sup SupplierPort, payables PayablesPort, notifier shared.Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = shared.NewLogNotifier(logger)
	}
	return &Service{
		repo:      repo,
		inventory: inv,
		suppliers: sup,
		payables:  payables,
		notifier:  notifier,
		logger:    logger,
		now:       time.Now,
	}
}

// SetApprovals wires the approval history recorder.
func (s *Service) SetApprovals(approvals ApprovalPort) { s.approvals = approvals }

// SetAudit wires the audit trail.
func (s *Service) SetAudit(audit AuditPort) { s.audit = audit }

// SetMetrics wires the transition counters.
func (s *Service) SetMetrics(metrics MetricsRecorder) { s.metrics = metrics }

// SetMoneyFormatter sets the formatter used for stats and exports.
func (s *Service) SetMoneyFormatter(f *shared.MoneyFormatter) { s.money = f }

// SetClock overrides the time source.
func (s *Service) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// CreateRequisition stores a new pending requisition.
func (s *Service) CreateRequisition(ctx context.Context, input RequisitionInput) (Requisition, error) {
	if input.Priority == "" {
		input.Priority = PriorityMedium
	}
	now := s.now().UTC()
	req := Requisition{
		Requester:   strings.TrimSpace(input.Requester),
		Department:  strings.TrimSpace(input.Department),
		RequestedAt: now,
		NeededBy:    input.NeededBy,
		Status:      RequisitionPending,
		Priority:    input.Priority,
		Notes:       input.Notes,
		Lines:       append([]RequisitionLine(nil), input.Lines...),
		Approval:    Approval{Status: ApprovalPending},
	}
	if err := s.validateRequisition(req, now); err != nil {
		return Requisition{}, err
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		req.Number = tx.NextNumber(ctx, PrefixRequisition, now)
		var err error
		req, err = tx.CreateRequisition(ctx, req)
		return err
	})
	if err != nil {
		return Requisition{}, err
	}
	s.recordAudit(ctx, "REQUISITION_CREATE", "requisition", req.ID, map[string]any{"number": req.Number})
	s.transition("requisition", "create")
	s.notify(ctx, shared.NotificationSuccess, "Requisition created", "The requisition was created successfully.", "requisition", req.ID)
	return req, nil
}

// UpdateRequisition edits a pending requisition.
func (s *Service) UpdateRequisition(ctx context.Context, id int64, patch RequisitionPatch) (Requisition, error) {
	now := s.now().UTC()
	var updated Requisition
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		updated, err = tx.UpdateRequisition(ctx, id, patch.Version, func(r *Requisition) error {
			if r.Status != RequisitionPending {
				return fmt.Errorf("%w: requisition %s is %s", ErrInvalidState, r.Number, r.Status)
			}
			applyRequisitionPatch(r, patch)
			return s.validateRequisition(*r, now)
		})
		return err
	})
	if err != nil {
		return Requisition{}, err
	}
	s.recordAudit(ctx, "REQUISITION_UPDATE", "requisition", updated.ID, map[string]any{"version": updated.Version})
	s.notify(ctx, shared.NotificationSuccess, "Requisition updated", "The requisition was updated successfully.", "requisition", updated.ID)
	return updated, nil
}

// DeleteRequisition removes a requisition that no quotation references.
func (s *Service) DeleteRequisition(ctx context.Context, id int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := s.repo.GetRequisition(ctx, id); err != nil {
			return err
		}
		if _, ok, err := s.quotationFor(ctx, id); err != nil {
			return err
		} else if ok {
			return fmt.Errorf("%w: requisition %d has a quotation", ErrHasDependents, id)
		}
		return tx.DeleteRequisition(ctx, id)
	})
	if err != nil {
		s.warnDependents(ctx, err, "Requisition not deleted", "requisition", id)
		return err
	}
	s.recordAudit(ctx, "REQUISITION_DELETE", "requisition", id, nil)
	s.notify(ctx, shared.NotificationSuccess, "Requisition deleted", "The requisition was deleted successfully.", "requisition", id)
	return nil
}

// ApproveRequisition moves a pending requisition to approved.
func (s *Service) ApproveRequisition(ctx context.Context, id int64, d Decision) (Requisition, error) {
	if d.Notes == "" {
		d.Notes = "Approved for quotation"
	}
	req, err := s.decideRequisition(ctx, id, true, d)
	if err != nil {
		return Requisition{}, err
	}
	s.notify(ctx, shared.NotificationSuccess, "Requisition approved", "The requisition was approved and can be quoted.", "requisition", id)
	return req, nil
}

// RejectRequisition moves a pending requisition to rejected.
func (s *Service) RejectRequisition(ctx context.Context, id int64, d Decision) (Requisition, error) {
	if d.Notes == "" {
		d.Notes = "Requisition rejected"
	}
	req, err := s.decideRequisition(ctx, id, false, d)
	if err != nil {
		return Requisition{}, err
	}
	s.notify(ctx, shared.NotificationSuccess, "Requisition rejected", "The requisition was rejected.", "requisition", id)
	return req, nil
}

func (s *Service) decideRequisition(ctx context.Context, id int64, approve bool, d Decision) (Requisition, error) {
	status, approval, action := RequisitionRejected, ApprovalRejected, shared.ApprovalReject
	if approve {
		status, approval, action = RequisitionApproved, ApprovalApproved, shared.ApprovalApprove
	}
	actor := shared.ActorFromContext(ctx)
	now := s.now().UTC()
	var updated Requisition
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		updated, err = tx.UpdateRequisition(ctx, id, 0, func(r *Requisition) error {
			if r.Status != RequisitionPending {
				return fmt.Errorf("%w: requisition %s is %s", ErrInvalidState, r.Number, r.Status)
			}
			r.Status = status
			r.Approval = Approval{Status: approval, DecidedBy: actor, DecidedAt: &now, SentAt: r.Approval.SentAt, Notes: d.Notes}
			return nil
		})
		if err != nil {
			return err
		}
		return s.recordApproval(ctx, PrefixRequisition, updated.Number, action, d.Notes)
	})
	if err != nil {
		return Requisition{}, err
	}
	s.recordAudit(ctx, "REQUISITION_"+string(action), "requisition", id, map[string]any{"number": updated.Number})
	s.transition("requisition", strings.ToLower(string(action)))
	return updated, nil
}

// GetRequisition returns a requisition by id.
func (s *Service) GetRequisition(ctx context.Context, id int64) (Requisition, error) {
	return s.repo.GetRequisition(ctx, id)
}

// ListRequisitions returns every requisition.
func (s *Service) ListRequisitions(ctx context.Context) ([]Requisition, error) {
	return s.repo.ListRequisitions(ctx)
}

// EligibleRequisitions lists approved requisitions that no quotation references.
func (s *Service) EligibleRequisitions(ctx context.Context) ([]Requisition, error) {
	reqs, err := s.repo.ListRequisitions(ctx)
	if err != nil {
		return nil, err
	}
	quotations, err := s.repo.ListQuotations(ctx)
	if err != nil {
		return nil, err
	}
	quoted := make(map[int64]struct{}, len(quotations))
	for _, q := range quotations {
		quoted[q.RequisitionID] = struct{}{}
	}
	out := make([]Requisition, 0)
	for _, r := range reqs {
		if _, ok := quoted[r.ID]; ok || r.Status != RequisitionApproved {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// CreateQuotation opens a quotation for an eligible requisition and moves
// that requisition to in-quotation.
func (s *Service) CreateQuotation(ctx context.Context, input QuotationInput) (Quotation, error) {
	now := s.now().UTC()
	q := Quotation{
		RequisitionID:      input.RequisitionID,
		IssuedAt:           now,
		DueDate:            input.DueDate,
		Status:             QuotationPending,
		Offers:             priceOffers(input.Offers),
		SelectedSupplierID: input.SelectedSupplierID,
		Notes:              input.Notes,
		Approval:           Approval{Status: ApprovalPending, SentAt: &now},
	}
	if err := validateQuotation(q); err != nil {
		return Quotation{}, err
	}
	offer, _ := q.SelectedOffer()
	q.TotalValue = offer.TotalValue

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		eligible, err := s.EligibleRequisitions(ctx)
		if err != nil {
			return err
		}
		if len(eligible) == 0 {
			return fmt.Errorf("%w: no approved requisition without a quotation", ErrGuard)
		}
		if !containsRequisition(eligible, q.RequisitionID) {
			if _, err := s.repo.GetRequisition(ctx, q.RequisitionID); err != nil {
				return err
			}
			return fmt.Errorf("%w: requisition %d is not approved or already quoted", ErrInvalidState, q.RequisitionID)
		}
		q.Number = tx.NextNumber(ctx, PrefixQuotation, now)
		if q, err = tx.CreateQuotation(ctx, q); err != nil {
			return err
		}
		_, err = tx.UpdateRequisition(ctx, q.RequisitionID, 0, func(r *Requisition) error {
			r.Status = RequisitionInQuotation
			return nil
		})
		return err
	})
	if err != nil {
		s.warnGuard(ctx, err, "No requisition available", "There are no approved requisitions available for quotation.", "quotation")
		return Quotation{}, err
	}
	s.recordAudit(ctx, "QUOTATION_CREATE", "quotation", q.ID, map[string]any{"number": q.Number, "requisition_id": q.RequisitionID, "total": q.TotalValue.String()})
	s.transition("quotation", "create")
	s.notify(ctx, shared.NotificationSuccess, "Quotation created", "The quotation was created successfully.", "quotation", q.ID)
	return q, nil
}

// UpdateQuotation edits a quotation still awaiting approval.
func (s *Service) UpdateQuotation(ctx context.Context, id int64, patch QuotationPatch) (Quotation, error) {
	var updated Quotation
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		updated, err = tx.UpdateQuotation(ctx, id, patch.Version, func(q *Quotation) error {
			if q.Status != QuotationPending || q.Approval.Status != ApprovalPending {
				return fmt.Errorf("%w: quotation %s is %s", ErrInvalidState, q.Number, q.Status)
			}
			if patch.DueDate != nil {
				q.DueDate = *patch.DueDate
			}
			if patch.Notes != nil {
				q.Notes = *patch.Notes
			}
			if patch.Offers != nil {
				q.Offers = priceOffers(patch.Offers)
			}
			if patch.SelectedSupplierID != nil {
				q.SelectedSupplierID = *patch.SelectedSupplierID
			}
			if err := validateQuotation(*q); err != nil {
				return err
			}
			offer, _ := q.SelectedOffer()
			q.TotalValue = offer.TotalValue
			return nil
		})
		return err
	})
	if err != nil {
		return Quotation{}, err
	}
	s.recordAudit(ctx, "QUOTATION_UPDATE", "quotation", updated.ID, map[string]any{"version": updated.Version})
	s.notify(ctx, shared.NotificationSuccess, "Quotation updated", "The quotation was updated successfully.", "quotation", updated.ID)
	return updated, nil
}

// DeleteQuotation removes a quotation that no purchase order references.
// The owning requisition keeps its in-quotation status.
func (s *Service) DeleteQuotation(ctx context.Context, id int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := s.repo.GetQuotation(ctx, id); err != nil {
			return err
		}
		if _, ok, err := s.orderFor(ctx, id); err != nil {
			return err
		} else if ok {
			return fmt.Errorf("%w: quotation %d has a purchase order", ErrHasDependents, id)
		}
		return tx.DeleteQuotation(ctx, id)
	})
	if err != nil {
		s.warnDependents(ctx, err, "Quotation not deleted", "quotation", id)
		return err
	}
	s.recordAudit(ctx, "QUOTATION_DELETE", "quotation", id, nil)
	s.notify(ctx, shared.NotificationSuccess, "Quotation deleted", "The quotation was deleted successfully.", "quotation", id)
	return nil
}

// ApproveQuotation approves a pending quotation.
func (s *Service) ApproveQuotation(ctx context.Context, id int64, d Decision) (Quotation, error) {
	q, err := s.decideQuotation(ctx, id, true, d)
	if err != nil {
		return Quotation{}, err
	}
	s.notify(ctx, shared.NotificationSuccess, "Quotation approved", "The quotation was approved and can generate a purchase order.", "quotation", id)
	return q, nil
}

// RejectQuotation rejects a pending quotation.
func (s *Service) RejectQuotation(ctx context.Context, id int64, d Decision) (Quotation, error) {
	q, err := s.decideQuotation(ctx, id, false, d)
	if err != nil {
		return Quotation{}, err
	}
	s.notify(ctx, shared.NotificationSuccess, "Quotation rejected", "The quotation was rejected.", "quotation", id)
	return q, nil
}

func (s *Service) decideQuotation(ctx context.Context, id int64, approve bool, d Decision) (Quotation, error) {
	status, approval, action := QuotationRejected, ApprovalRejected, shared.ApprovalReject
	if approve {
		status, approval, action = QuotationApproved, ApprovalApproved, shared.ApprovalApprove
	}
	actor := shared.ActorFromContext(ctx)
	now := s.now().UTC()
	var updated Quotation
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		updated, err = tx.UpdateQuotation(ctx, id, 0, func(q *Quotation) error {
			if q.Status != QuotationPending || q.Approval.Status != ApprovalPending {
				return fmt.Errorf("%w: quotation %s is %s", ErrInvalidState, q.Number, q.Status)
			}
			q.Status = status
			q.Approval = Approval{Status: approval, DecidedBy: actor, DecidedAt: &now, SentAt: q.Approval.SentAt, Notes: d.Notes}
			return nil
		})
		if err != nil {
			return err
		}
		return s.recordApproval(ctx, PrefixQuotation, updated.Number, action, d.Notes)
	})
	if err != nil {
		return Quotation{}, err
	}
	s.recordAudit(ctx, "QUOTATION_"+string(action), "quotation", id, map[string]any{"number": updated.Number})
	s.transition("quotation", strings.ToLower(string(action)))
	return updated, nil
}

// GetQuotation returns a quotation by id.
func (s *Service) GetQuotation(ctx context.Context, id int64) (Quotation, error) {
	return s.repo.GetQuotation(ctx, id)
}

// ListQuotations returns every quotation.
func (s *Service) ListQuotations(ctx context.Context) ([]Quotation, error) {
	return s.repo.ListQuotations(ctx)
}

// PendingApprovals lists quotations awaiting a decision.
func (s *Service) PendingApprovals(ctx context.Context) ([]Quotation, error) {
	quotations, err := s.repo.ListQuotations(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Quotation, 0)
	for _, q := range quotations {
		if q.Approval.Status == ApprovalPending {
			out = append(out, q)
		}
	}
	return out, nil
}

// EligibleQuotations lists approved quotations that no purchase order references.
func (s *Service) EligibleQuotations(ctx context.Context) ([]Quotation, error) {
	quotations, err := s.repo.ListQuotations(ctx)
	if err != nil {
		return nil, err
	}
	orders, err := s.repo.ListOrders(ctx)
	if err != nil {
		return nil, err
	}
	ordered := make(map[int64]struct{}, len(orders))
	for _, po := range orders {
		ordered[po.QuotationID] = struct{}{}
	}
	out := make([]Quotation, 0)
	for _, q := range quotations {
		if _, ok := ordered[q.ID]; ok || q.Approval.Status != ApprovalApproved {
			continue
		}
		out = append(out, q)
	}
	return out, nil
}

// CreatedOrder is a new purchase order with the payables it generated.
type CreatedOrder struct {
	Order    PurchaseOrder     `json:"order"`
	Payables []ap.PayableTitle `json:"payables"`
}

// CreatePurchaseOrder issues a purchase order from the selected offer of an
// eligible quotation, generates its payable titles from the supplier's
// payment terms (the offer's when the supplier no longer resolves) and marks
// the quotation order-generated. All three happen in one transaction.
func (s *Service) CreatePurchaseOrder(ctx context.Context, input OrderInput) (CreatedOrder, error) {
	now := s.now().UTC()
	if !input.ExpectedAt.IsZero() && !input.ExpectedAt.After(now) {
		return CreatedOrder{}, fmt.Errorf("%w: expected date must be in the future", ErrValidation)
	}
	var result CreatedOrder
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		eligible, err := s.EligibleQuotations(ctx)
		if err != nil {
			return err
		}
		if len(eligible) == 0 {
			return fmt.Errorf("%w: no approved quotation without a purchase order", ErrGuard)
		}
		q, ok := findQuotation(eligible, input.QuotationID)
		if !ok {
			if _, err := s.repo.GetQuotation(ctx, input.QuotationID); err != nil {
				return err
			}
			return fmt.Errorf("%w: quotation %d is not approved or already ordered", ErrInvalidState, input.QuotationID)
		}
		offer, ok := q.SelectedOffer()
		if !ok {
			return fmt.Errorf("%w: quotation %s has no selected offer", ErrInvalidState, q.Number)
		}
		supplier, known := s.lookupSupplier(ctx, offer.SupplierID)

		expected := input.ExpectedAt
		if expected.IsZero() {
			lead := offer.LeadTimeDays
			if lead <= 0 {
				lead = defaultLeadTimeDays
			}
			expected = now.AddDate(0, 0, lead)
		}
		terms := strings.TrimSpace(offer.PaymentTerms)
		titleTerms := strings.TrimSpace(supplier.PaymentTerms)
		if !known {
			titleTerms = terms
		}
		if titleTerms == "" {
			titleTerms = ap.DefaultPaymentTerms
		}
		if terms == "" {
			terms = titleTerms
		}
		po := PurchaseOrder{
			Number:       tx.NextNumber(ctx, PrefixPurchaseOrder, now),
			QuotationID:  q.ID,
			SupplierID:   offer.SupplierID,
			IssuedAt:     now,
			ExpectedAt:   expected,
			Status:       OrderSent,
			TotalValue:   q.TotalValue,
			PaymentTerms: terms,
			Freight:      offer.Freight,
			Notes:        input.Notes,
			Lines:        orderLines(offer.Lines),
			Receipt:      Receipt{Status: ReceiptPending, Lines: []ReceivedLine{}},
		}
		if po, err = tx.CreateOrder(ctx, po); err != nil {
			return err
		}
		titles, err := s.payables.GenerateForOrder(ctx, ap.SplitInput{
			OrderID:      po.ID,
			OrderNumber:  po.Number,
			IssueDate:    po.IssuedAt,
			Total:        po.TotalValue,
			SupplierID:   offer.SupplierID,
			SupplierName: supplier.Name,
			Terms:        titleTerms,
		})
		if err != nil {
			return fmt.Errorf("procurement: generate payables: %w", err)
		}
		if _, err := tx.UpdateQuotation(ctx, q.ID, 0, func(q *Quotation) error {
			q.Status = QuotationOrderGenerated
			return nil
		}); err != nil {
			return err
		}
		result = CreatedOrder{Order: po, Payables: titles}
		return nil
	})
	if err != nil {
		s.warnGuard(ctx, err, "No quotation available", "There are no approved quotations available for a purchase order.", "purchase_order")
		return CreatedOrder{}, err
	}
	po := result.Order
	s.recordAudit(ctx, "PO_CREATE", "purchase_order", po.ID, map[string]any{
		"number":       po.Number,
		"quotation_id": po.QuotationID,
		"total":        po.TotalValue.String(),
		"installments": len(result.Payables),
	})
	s.transition("purchase_order", "create")
	s.notify(ctx, shared.NotificationSuccess, "Purchase order created",
		"The purchase order was created and its payable titles were generated.", "purchase_order", po.ID)
	return result, nil
}

// UpdatePurchaseOrder edits an order that has not been received. The total
// value is left as issued.
func (s *Service) UpdatePurchaseOrder(ctx context.Context, id int64, patch OrderPatch) (PurchaseOrder, error) {
	var updated PurchaseOrder
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		updated, err = tx.UpdateOrder(ctx, id, patch.Version, func(po *PurchaseOrder) error {
			if po.Status != OrderSent {
				return fmt.Errorf("%w: purchase order %s is %s", ErrInvalidState, po.Number, po.Status)
			}
			if patch.ExpectedAt != nil {
				if patch.ExpectedAt.IsZero() {
					return fmt.Errorf("%w: expected date required", ErrValidation)
				}
				po.ExpectedAt = *patch.ExpectedAt
			}
			if patch.PaymentTerms != nil {
				terms := strings.TrimSpace(*patch.PaymentTerms)
				if terms == "" {
					return fmt.Errorf("%w: payment terms required", ErrValidation)
				}
				po.PaymentTerms = terms
			}
			if patch.Notes != nil {
				po.Notes = *patch.Notes
			}
			return nil
		})
		return err
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	s.recordAudit(ctx, "PO_UPDATE", "purchase_order", updated.ID, map[string]any{"version": updated.Version})
	s.notify(ctx, shared.NotificationSuccess, "Purchase order updated", "The purchase order was updated successfully.", "purchase_order", updated.ID)
	return updated, nil
}

// DeletePurchaseOrder removes an order that has not been received. Payable
// titles generated for it are kept.
func (s *Service) DeletePurchaseOrder(ctx context.Context, id int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		po, err := s.repo.GetOrder(ctx, id)
		if err != nil {
			return err
		}
		if po.Status == OrderReceived {
			return fmt.Errorf("%w: purchase order %s was received", ErrHasDependents, po.Number)
		}
		return tx.DeleteOrder(ctx, id)
	})
	if err != nil {
		s.warnDependents(ctx, err, "Purchase order not deleted", "purchase_order", id)
		return err
	}
	s.recordAudit(ctx, "PO_DELETE", "purchase_order", id, nil)
	s.notify(ctx, shared.NotificationSuccess, "Purchase order deleted", "The purchase order was deleted successfully.", "purchase_order", id)
	return nil
}

// ReceivePurchaseOrder marks a sent order received, completes its receipt
// and adds every line quantity to product stock in one transaction.
func (s *Service) ReceivePurchaseOrder(ctx context.Context, id int64, d Decision) (PurchaseOrder, error) {
	actor := shared.ActorFromContext(ctx)
	now := s.now().UTC()
	var updated PurchaseOrder
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		updated, err = tx.UpdateOrder(ctx, id, 0, func(po *PurchaseOrder) error {
			if po.Status != OrderSent {
				return fmt.Errorf("%w: purchase order %s is %s", ErrInvalidState, po.Number, po.Status)
			}
			received := make([]ReceivedLine, 0, len(po.Lines))
			for _, line := range po.Lines {
				received = append(received, ReceivedLine{ProductID: line.ProductID, Quantity: line.Quantity})
			}
			po.Status = OrderReceived
			po.DeliveredAt = &now
			po.Receipt = Receipt{Status: ReceiptComplete, ReceivedAt: &now, ReceivedBy: actor, Notes: d.Notes, Lines: received}
			return nil
		})
		if err != nil {
			return err
		}
		lines := make([]inventory.InboundLine, 0, len(updated.Lines))
		for _, line := range updated.Lines {
			lines = append(lines, inventory.InboundLine{ProductID: line.ProductID, Qty: line.Quantity, UnitCost: line.UnitPrice})
		}
		_, err = s.inventory.PostInbound(ctx, inventory.InboundInput{
			RefModule: "procurement",
			RefID:     updated.Number,
			Note:      fmt.Sprintf("Receipt of %s", updated.Number),
			Lines:     lines,
		})
		if err != nil {
			return fmt.Errorf("procurement: post inbound: %w", err)
		}
		return nil
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	s.recordAudit(ctx, "PO_RECEIVE", "purchase_order", updated.ID, map[string]any{"number": updated.Number, "lines": len(updated.Lines)})
	s.transition("purchase_order", "receive")
	s.notify(ctx, shared.NotificationSuccess, "Purchase order received", "The purchase order was received and stock was updated.", "purchase_order", updated.ID)
	return updated, nil
}

// GetPurchaseOrder returns a purchase order by id.
func (s *Service) GetPurchaseOrder(ctx context.Context, id int64) (PurchaseOrder, error) {
	return s.repo.GetOrder(ctx, id)
}

// ListPurchaseOrders returns every purchase order.
func (s *Service) ListPurchaseOrders(ctx context.Context) ([]PurchaseOrder, error) {
	return s.repo.ListOrders(ctx)
}

func (s *Service) quotationFor(ctx context.Context, requisitionID int64) (Quotation, bool, error) {
	quotations, err := s.repo.ListQuotations(ctx)
	if err != nil {
		return Quotation{}, false, err
	}
	for _, q := range quotations {
		if q.RequisitionID == requisitionID {
			return q, true, nil
		}
	}
	return Quotation{}, false, nil
}

func (s *Service) orderFor(ctx context.Context, quotationID int64) (PurchaseOrder, bool, error) {
	orders, err := s.repo.ListOrders(ctx)
	if err != nil {
		return PurchaseOrder{}, false, err
	}
	for _, po := range orders {
		if po.QuotationID == quotationID {
			return po, true, nil
		}
	}
	return PurchaseOrder{}, false, nil
}

// lookupSupplier reports whether id resolves. A miss is logged and yields an
// unnamed supplier so callers can fall back to the document's own data.
func (s *Service) lookupSupplier(ctx context.Context, id int64) (suppliers.Supplier, bool) {
	supplier, err := s.suppliers.GetSupplier(ctx, id)
	if err != nil {
		s.logger.Warn("supplier lookup failed", slog.Int64("supplier_id", id), slog.Any("error", err))
		return suppliers.Supplier{}, false
	}
	return supplier, true
}

func (s *Service) validateRequisition(r Requisition, now time.Time) error {
	switch {
	case r.Requester == "":
		return fmt.Errorf("%w: requester required", ErrValidation)
	case r.Department == "":
		return fmt.Errorf("%w: department required", ErrValidation)
	case !r.Priority.Valid():
		return fmt.Errorf("%w: unknown priority %q", ErrValidation, r.Priority)
	case !r.NeededBy.IsZero() && !r.NeededBy.After(now):
		return fmt.Errorf("%w: need-by date must be in the future", ErrValidation)
	case len(r.Lines) == 0:
		return fmt.Errorf("%w: at least one line required", ErrValidation)
	}
	for i, line := range r.Lines {
		if line.ProductID <= 0 || !line.Quantity.IsPositive() {
			return fmt.Errorf("%w: line %d needs a product and a positive quantity", ErrValidation, i+1)
		}
	}
	return nil
}

func validateQuotation(q Quotation) error {
	if q.RequisitionID <= 0 {
		return fmt.Errorf("%w: requisition required", ErrValidation)
	}
	if len(q.Offers) == 0 {
		return fmt.Errorf("%w: at least one supplier offer required", ErrValidation)
	}
	seen := make(map[int64]struct{}, len(q.Offers))
	for _, offer := range q.Offers {
		if offer.SupplierID <= 0 {
			return fmt.Errorf("%w: offer supplier required", ErrValidation)
		}
		if _, dup := seen[offer.SupplierID]; dup {
			return fmt.Errorf("%w: supplier %d offered twice", ErrValidation, offer.SupplierID)
		}
		seen[offer.SupplierID] = struct{}{}
		if offer.Freight.IsNegative() || offer.LeadTimeDays < 0 {
			return fmt.Errorf("%w: supplier %d offer has negative freight or lead time", ErrValidation, offer.SupplierID)
		}
		if len(offer.Lines) == 0 {
			return fmt.Errorf("%w: supplier %d offer has no lines", ErrValidation, offer.SupplierID)
		}
		for _, line := range offer.Lines {
			if line.ProductID <= 0 || !line.Quantity.IsPositive() || line.UnitPrice.IsNegative() {
				return fmt.Errorf("%w: supplier %d offer has an invalid line", ErrValidation, offer.SupplierID)
			}
		}
	}
	if _, ok := q.SelectedOffer(); !ok {
		return fmt.Errorf("%w: selected supplier %d is not among the offers", ErrValidation, q.SelectedSupplierID)
	}
	return nil
}

func applyRequisitionPatch(r *Requisition, patch RequisitionPatch) {
	if patch.Requester != nil {
		r.Requester = strings.TrimSpace(*patch.Requester)
	}
	if patch.Department != nil {
		r.Department = strings.TrimSpace(*patch.Department)
	}
	if patch.NeededBy != nil {
		r.NeededBy = *patch.NeededBy
	}
	if patch.Priority != nil {
		r.Priority = *patch.Priority
	}
	if patch.Notes != nil {
		r.Notes = *patch.Notes
	}
	if patch.Lines != nil {
		r.Lines = append([]RequisitionLine(nil), patch.Lines...)
	}
}

func priceOffers(offers []SupplierOffer) []SupplierOffer {
	out := make([]SupplierOffer, 0, len(offers))
	for _, offer := range offers {
		out = append(out, offer.Priced())
	}
	return out
}

func orderLines(lines []OfferLine) []OrderLine {
	out := make([]OrderLine, 0, len(lines))
	for _, line := range lines {
		out = append(out, OrderLine{
			ProductID:  line.ProductID,
			Quantity:   line.Quantity,
			UnitPrice:  line.UnitPrice,
			TotalPrice: line.TotalPrice,
		})
	}
	return out
}

func containsRequisition(reqs []Requisition, id int64) bool {
	for _, r := range reqs {
		if r.ID == id {
			return true
		}
	}
	return false
}

func findQuotation(quotations []Quotation, id int64) (Quotation, bool) {
	for _, q := range quotations {
		if q.ID == id {
			return q, true
		}
	}
	return Quotation{}, false
}

func sumOrders(orders []PurchaseOrder) decimal.Decimal {
	total := decimal.Zero
	for _, po := range orders {
		total = total.Add(po.TotalValue)
	}
	return total
}
