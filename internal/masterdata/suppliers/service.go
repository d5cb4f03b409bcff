package suppliers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-procure/internal/masterdata/shared"
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Supplier, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Supplier, error) {
	if id <= 0 {
		return Supplier{}, shared.ErrInvalidID
	}
	return s.repo.Get(ctx, id)
}

// GetSupplier returns the supplier with id, satisfying lookups from other modules.
func (s *Service) GetSupplier(ctx context.Context, id int64) (Supplier, error) {
	return s.Get(ctx, id)
}

// All returns every supplier without paging.
func (s *Service) All(ctx context.Context) ([]Supplier, error) {
	var out []Supplier
	for page := 1; ; page++ {
		items, total, err := s.repo.List(ctx, shared.ListFilters{Page: page, Limit: shared.MaxLimit})
		if err != nil {
			return nil, err
		}
		out = append(out, items...)
		if len(items) == 0 || len(out) >= total {
			return out, nil
		}
	}
}

func (s *Service) Create(ctx context.Context, supplier Supplier) (Supplier, error) {
	supplier = normalize(supplier)
	if err := s.validate(supplier); err != nil {
		return Supplier{}, err
	}
	now := s.now().UTC()
	supplier.Active = true
	supplier.CreatedAt = now
	supplier.UpdatedAt = now
	return s.repo.Create(ctx, supplier)
}

func (s *Service) Update(ctx context.Context, id int64, supplier Supplier) error {
	if id <= 0 {
		return shared.ErrInvalidID
	}
	supplier = normalize(supplier)
	if err := s.validate(supplier); err != nil {
		return err
	}
	supplier.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, id, supplier); err != nil {
		return fmt.Errorf("update supplier %d: %w", id, err)
	}
	return nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return shared.ErrInvalidID
	}
	return s.repo.Delete(ctx, id)
}

func normalize(s Supplier) Supplier {
	s.Code = strings.TrimSpace(s.Code)
	s.Name = strings.TrimSpace(s.Name)
	s.PaymentTerms = strings.TrimSpace(s.PaymentTerms)
	return s
}
