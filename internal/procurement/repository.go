package procurement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/odyssey-erp/odyssey-procure/internal/store"
)

// Repository keeps procurement documents in the shared store.
type Repository struct {
	st           *store.Store
	requisitions *store.Collection[Requisition, *Requisition]
	quotations   *store.Collection[Quotation, *Quotation]
	orders       *store.Collection[PurchaseOrder, *PurchaseOrder]
}

// NewRepository constructs a repository.
func NewRepository(st *store.Store) *Repository {
	return &Repository{
		st:           st,
		requisitions: store.Register[Requisition](st, "requisitions"),
		quotations:   store.Register[Quotation](st, "quotations"),
		orders:       store.Register[PurchaseOrder](st, "purchase_orders"),
	}
}

// TxRepository exposes transactional operations.
type TxRepository interface {
	NextNumber(ctx context.Context, prefix string, now time.Time) string
	CreateRequisition(ctx context.Context, req Requisition) (Requisition, error)
	UpdateRequisition(ctx context.Context, id, version int64, fn func(*Requisition) error) (Requisition, error)
	DeleteRequisition(ctx context.Context, id int64) error
	CreateQuotation(ctx context.Context, q Quotation) (Quotation, error)
	UpdateQuotation(ctx context.Context, id, version int64, fn func(*Quotation) error) (Quotation, error)
	DeleteQuotation(ctx context.Context, id int64) error
	CreateOrder(ctx context.Context, po PurchaseOrder) (PurchaseOrder, error)
	UpdateOrder(ctx context.Context, id, version int64, fn func(*PurchaseOrder) error) (PurchaseOrder, error)
	DeleteOrder(ctx context.Context, id int64) error
}

type txRepo struct {
	repo *Repository
}

// WithTx runs fn inside a store transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return r.st.WithTx(ctx, func(ctx context.Context) error {
		return fn(ctx, &txRepo{repo: r})
	})
}

// GetRequisition returns a requisition by id.
func (r *Repository) GetRequisition(ctx context.Context, id int64) (Requisition, error) {
	return find(ctx, r.st, r.requisitions, id)
}

// ListRequisitions returns every requisition.
func (r *Repository) ListRequisitions(ctx context.Context) ([]Requisition, error) {
	return list(ctx, r.st, r.requisitions)
}

// GetQuotation returns a quotation by id.
func (r *Repository) GetQuotation(ctx context.Context, id int64) (Quotation, error) {
	return find(ctx, r.st, r.quotations, id)
}

// ListQuotations returns every quotation.
func (r *Repository) ListQuotations(ctx context.Context) ([]Quotation, error) {
	return list(ctx, r.st, r.quotations)
}

// GetOrder returns a purchase order by id.
func (r *Repository) GetOrder(ctx context.Context, id int64) (PurchaseOrder, error) {
	return find(ctx, r.st, r.orders, id)
}

// ListOrders returns every purchase order.
func (r *Repository) ListOrders(ctx context.Context) ([]PurchaseOrder, error) {
	return list(ctx, r.st, r.orders)
}

func find[T any, P store.Entity[T]](ctx context.Context, st *store.Store, c *store.Collection[T, P], id int64) (T, error) {
	var (
		rec T
		ok  bool
	)
	_ = st.Read(ctx, func() error {
		rec, ok = c.Find(id)
		return nil
	})
	if !ok {
		return rec, fmt.Errorf("%w: %s %d", ErrNotFound, c.Name(), id)
	}
	return rec, nil
}

func list[T any, P store.Entity[T]](ctx context.Context, st *store.Store, c *store.Collection[T, P]) ([]T, error) {
	var out []T
	err := st.Read(ctx, func() error {
		out = c.List()
		return nil
	})
	return out, err
}

func (tx *txRepo) NextNumber(_ context.Context, prefix string, now time.Time) string {
	var numbers []string
	switch prefix {
	case PrefixRequisition:
		numbers = store.Numbers(tx.repo.requisitions, func(r Requisition) string { return r.Number })
	case PrefixQuotation:
		numbers = store.Numbers(tx.repo.quotations, func(q Quotation) string { return q.Number })
	case PrefixPurchaseOrder:
		numbers = store.Numbers(tx.repo.orders, func(po PurchaseOrder) string { return po.Number })
	}
	return store.NextNumber(prefix, numbers, now)
}

func (tx *txRepo) CreateRequisition(_ context.Context, req Requisition) (Requisition, error) {
	return tx.repo.requisitions.Add(req), nil
}

func (tx *txRepo) UpdateRequisition(_ context.Context, id, version int64, fn func(*Requisition) error) (Requisition, error) {
	req, err := tx.repo.requisitions.Update(id, version, fn)
	return req, mapStoreErr(err)
}

func (tx *txRepo) DeleteRequisition(_ context.Context, id int64) error {
	if !tx.repo.requisitions.Delete(id) {
		return fmt.Errorf("%w: requisition %d", ErrNotFound, id)
	}
	return nil
}

func (tx *txRepo) CreateQuotation(_ context.Context, q Quotation) (Quotation, error) {
	return tx.repo.quotations.Add(q), nil
}

func (tx *txRepo) UpdateQuotation(_ context.Context, id, version int64, fn func(*Quotation) error) (Quotation, error) {
	q, err := tx.repo.quotations.Update(id, version, fn)
	return q, mapStoreErr(err)
}

func (tx *txRepo) DeleteQuotation(_ context.Context, id int64) error {
	if !tx.repo.quotations.Delete(id) {
		return fmt.Errorf("%w: quotation %d", ErrNotFound, id)
	}
	return nil
}

func (tx *txRepo) CreateOrder(_ context.Context, po PurchaseOrder) (PurchaseOrder, error) {
	return tx.repo.orders.Add(po), nil
}

func (tx *txRepo) UpdateOrder(_ context.Context, id, version int64, fn func(*PurchaseOrder) error) (PurchaseOrder, error) {
	po, err := tx.repo.orders.Update(id, version, fn)
	return po, mapStoreErr(err)
}

func (tx *txRepo) DeleteOrder(_ context.Context, id int64) error {
	if !tx.repo.orders.Delete(id) {
		return fmt.Errorf("%w: purchase order %d", ErrNotFound, id)
	}
	return nil
}

func mapStoreErr(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}
