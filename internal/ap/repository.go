package ap

import (
	"context"
	"errors"
	"fmt"

	"github.com/odyssey-erp/odyssey-procure/internal/store"
)

// Repository exposes persistence operations for payable titles.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetTitle(ctx context.Context, id int64) (PayableTitle, error)
	ListTitles(ctx context.Context, filter ListFilter) ([]PayableTitle, error)
}

// TxRepository exposes transactional operations.
type TxRepository interface {
	CreateTitle(ctx context.Context, title PayableTitle) (PayableTitle, error)
	UpdateTitle(ctx context.Context, id int64, fn func(*PayableTitle) error) (PayableTitle, error)
}

type memRepository struct {
	st     *store.Store
	titles *store.Collection[PayableTitle, *PayableTitle]
}

// NewRepository keeps payable titles in the shared store.
func NewRepository(st *store.Store) Repository {
	return &memRepository{st: st, titles: store.Register[PayableTitle](st, "payable_titles")}
}

func (r *memRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return r.st.WithTx(ctx, func(ctx context.Context) error {
		return fn(ctx, &memTxRepository{repo: r})
	})
}

func (r *memRepository) GetTitle(ctx context.Context, id int64) (PayableTitle, error) {
	var (
		title PayableTitle
		ok    bool
	)
	_ = r.st.Read(ctx, func() error {
		title, ok = r.titles.Find(id)
		return nil
	})
	if !ok {
		return PayableTitle{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return title, nil
}

func (r *memRepository) ListTitles(ctx context.Context, filter ListFilter) ([]PayableTitle, error) {
	var titles []PayableTitle
	err := r.st.Read(ctx, func() error {
		titles = r.titles.Filter(func(t PayableTitle) bool {
			switch {
			case filter.Status != "" && t.Status != filter.Status:
				return false
			case filter.OrderID != 0 && t.PurchaseOrderID != filter.OrderID:
				return false
			case filter.SupplierID != 0 && t.SupplierID != filter.SupplierID:
				return false
			case !filter.DueBefore.IsZero() && !t.DueDate.Before(filter.DueBefore):
				return false
			}
			return true
		})
		return nil
	})
	return titles, err
}

type memTxRepository struct {
	repo *memRepository
}

func (tx *memTxRepository) CreateTitle(_ context.Context, title PayableTitle) (PayableTitle, error) {
	return tx.repo.titles.Add(title), nil
}

func (tx *memTxRepository) UpdateTitle(_ context.Context, id int64, fn func(*PayableTitle) error) (PayableTitle, error) {
	title, err := tx.repo.titles.Update(id, 0, fn)
	if errors.Is(err, store.ErrNotFound) {
		return PayableTitle{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return title, err
}
