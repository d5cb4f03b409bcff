package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-procure/internal/store"
)

// Repository keeps products and their stock card in the shared store.
type Repository struct {
	st        *store.Store
	products  *store.Collection[Product, *Product]
	movements *store.Collection[StockMovement, *StockMovement]
}

// NewRepository constructs Repository.
func NewRepository(st *store.Store) *Repository {
	return &Repository{
		st:        st,
		products:  store.Register[Product](st, "products"),
		movements: store.Register[StockMovement](st, "stock_movements"),
	}
}

// TxRepository exposes transactional operations used by service.
type TxRepository interface {
	CreateProduct(ctx context.Context, product Product) (Product, error)
	UpdateProduct(ctx context.Context, id, version int64, fn func(*Product) error) (Product, error)
	InsertMovement(ctx context.Context, movement StockMovement) (StockMovement, error)
}

type txRepo struct {
	repo *Repository
}

// WithTx executes the callback inside a store transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return r.st.WithTx(ctx, func(ctx context.Context) error {
		return fn(ctx, &txRepo{repo: r})
	})
}

// GetProduct returns the product with id.
func (r *Repository) GetProduct(ctx context.Context, id int64) (Product, error) {
	var (
		product Product
		ok      bool
	)
	_ = r.st.Read(ctx, func() error {
		product, ok = r.products.Find(id)
		return nil
	})
	if !ok {
		return Product{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return product, nil
}

// ListProducts returns every product in insertion order.
func (r *Repository) ListProducts(ctx context.Context) ([]Product, error) {
	var products []Product
	err := r.st.Read(ctx, func() error {
		products = r.products.List()
		return nil
	})
	return products, err
}

// ListMovements returns the stock card of productID; zero lists all.
func (r *Repository) ListMovements(ctx context.Context, productID int64) ([]StockMovement, error) {
	var movements []StockMovement
	err := r.st.Read(ctx, func() error {
		movements = r.movements.Filter(func(m StockMovement) bool {
			return productID == 0 || m.ProductID == productID
		})
		return nil
	})
	return movements, err
}

func (t *txRepo) CreateProduct(_ context.Context, product Product) (Product, error) {
	if t.repo.products.Any(func(p Product) bool { return product.Code != "" && p.Code == product.Code }) {
		return Product{}, fmt.Errorf("%w: duplicate code %s", ErrValidation, product.Code)
	}
	return t.repo.products.Add(product), nil
}

func (t *txRepo) UpdateProduct(_ context.Context, id, version int64, fn func(*Product) error) (Product, error) {
	product, err := t.repo.products.Update(id, version, fn)
	if err != nil {
		return Product{}, mapStoreErr(err)
	}
	return product, nil
}

func (t *txRepo) InsertMovement(_ context.Context, movement StockMovement) (StockMovement, error) {
	if movement.Qty.IsZero() {
		return StockMovement{}, ErrInvalidQuantity
	}
	if movement.UnitCost.IsNegative() {
		movement.UnitCost = decimal.Zero
	}
	return t.repo.movements.Add(movement), nil
}

func mapStoreErr(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}
