package ap

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-procure/internal/shared"
)

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service orchestrates accounts payable titles.
type Service struct {
	repo   Repository
	audit  AuditPort
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs the payables service.
func NewService(repo Repository, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger, now: time.Now}
}

// GenerateForOrder splits the order total into installments and stores
// them. Called with a store transaction context it joins that transaction.
func (s *Service) GenerateForOrder(ctx context.Context, in SplitInput) ([]PayableTitle, error) {
	if in.OrderID <= 0 {
		return nil, fmt.Errorf("%w: purchase order id required", ErrValidation)
	}
	if in.Total.IsNegative() {
		return nil, fmt.Errorf("%w: order total must be >= 0", ErrValidation)
	}
	split := SplitInstallments(in)
	created := make([]PayableTitle, 0, len(split))
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for _, title := range split {
			stored, err := tx.CreateTitle(ctx, title)
			if err != nil {
				return err
			}
			created = append(created, stored)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("payable titles generated",
		slog.String("order_number", in.OrderNumber),
		slog.Int("installments", len(created)),
		slog.String("total", in.Total.String()))
	return created, nil
}

// List returns titles matching filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]PayableTitle, error) {
	return s.repo.ListTitles(ctx, filter)
}

// ListByOrder returns the titles generated for a purchase order.
func (s *Service) ListByOrder(ctx context.Context, orderID int64) ([]PayableTitle, error) {
	return s.repo.ListTitles(ctx, ListFilter{OrderID: orderID})
}

// Get returns a single title.
func (s *Service) Get(ctx context.Context, id int64) (PayableTitle, error) {
	return s.repo.GetTitle(ctx, id)
}

// MarkPaid settles an open title.
func (s *Service) MarkPaid(ctx context.Context, id int64, paidAt time.Time) (PayableTitle, error) {
	if paidAt.IsZero() {
		paidAt = s.now()
	}
	actor := shared.ActorFromContext(ctx)
	var updated PayableTitle
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		updated, err = tx.UpdateTitle(ctx, id, func(t *PayableTitle) error {
			if !t.Open() {
				return fmt.Errorf("%w: title %d is %s", ErrInvalidState, id, t.Status)
			}
			at := paidAt.UTC()
			t.Status = TitleStatusPaid
			t.PaidAt = &at
			t.PaidBy = actor
			return nil
		})
		return err
	})
	if err != nil {
		return PayableTitle{}, err
	}
	s.recordAudit(ctx, "AP_TITLE_PAID", updated.ID, map[string]any{"value": updated.Value.String(), "order": updated.OrderNumber})
	return updated, nil
}

// MarkOverdue flags pending titles due before asOf and returns how many changed.
func (s *Service) MarkOverdue(ctx context.Context, asOf time.Time) (int, error) {
	if asOf.IsZero() {
		asOf = s.now()
	}
	changed := 0
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		changed = 0
		due, err := s.repo.ListTitles(ctx, ListFilter{Status: TitleStatusPending, DueBefore: asOf})
		if err != nil {
			return err
		}
		for _, title := range due {
			if _, err := tx.UpdateTitle(ctx, title.ID, func(t *PayableTitle) error {
				t.Status = TitleStatusOverdue
				return nil
			}); err != nil {
				return err
			}
			changed++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if changed > 0 {
		s.logger.Info("payable titles overdue", slog.Int("count", changed), slog.Time("as_of", asOf))
	}
	return changed, nil
}

// Aging buckets the open titles by days past due at asOf.
func (s *Service) Aging(ctx context.Context, asOf time.Time) (AgingBucket, error) {
	if asOf.IsZero() {
		asOf = s.now()
	}
	titles, err := s.repo.ListTitles(ctx, ListFilter{})
	if err != nil {
		return AgingBucket{}, err
	}
	bucket := AgingBucket{Current: decimal.Zero, Bucket30: decimal.Zero, Bucket60: decimal.Zero, Bucket90: decimal.Zero, Bucket120: decimal.Zero}
	for _, t := range titles {
		if !t.Open() {
			continue
		}
		daysOverdue := int(asOf.Sub(t.DueDate).Hours() / 24)
		switch {
		case daysOverdue <= 0:
			bucket.Current = bucket.Current.Add(t.Value)
		case daysOverdue <= 30:
			bucket.Bucket30 = bucket.Bucket30.Add(t.Value)
		case daysOverdue <= 60:
			bucket.Bucket60 = bucket.Bucket60.Add(t.Value)
		case daysOverdue <= 90:
			bucket.Bucket90 = bucket.Bucket90.Add(t.Value)
		default:
			bucket.Bucket120 = bucket.Bucket120.Add(t.Value)
		}
	}
	return bucket, nil
}

func (s *Service) recordAudit(ctx context.Context, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		Action:   action,
		Entity:   "payable_title",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	}); err != nil {
		s.logger.Warn("ap audit", slog.String("action", action), slog.Any("error", err))
	}
}
