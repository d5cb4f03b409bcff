package suppliers

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/odyssey-erp/odyssey-procure/internal/masterdata/shared"
	"github.com/odyssey-erp/odyssey-procure/internal/store"
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Supplier, int, error)
	Get(ctx context.Context, id int64) (Supplier, error)
	Create(ctx context.Context, supplier Supplier) (Supplier, error)
	Update(ctx context.Context, id int64, supplier Supplier) error
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	st        *store.Store
	suppliers *store.Collection[Supplier, *Supplier]
}

func NewRepository(st *store.Store) Repository {
	return &repository{st: st, suppliers: store.Register[Supplier](st, "suppliers")}
}

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Supplier, int, error) {
	filters = filters.Normalize()
	var all []Supplier
	if err := r.st.Read(ctx, func() error {
		all = r.suppliers.List()
		return nil
	}); err != nil {
		return nil, 0, err
	}
	all = store.Search(all, filters.Search, func(s Supplier) []string {
		return []string{s.Code, s.Name, s.TaxID, s.City}
	})
	if filters.IsActive != nil {
		active := make([]Supplier, 0, len(all))
		for _, s := range all {
			if s.Active == *filters.IsActive {
				active = append(active, s)
			}
		}
		all = active
	}
	sort.SliceStable(all, sortOrder(all, filters.SortBy, filters.SortDir))
	total := len(all)
	start, end := filters.Window(total)
	return all[start:end], total, nil
}

func (r *repository) Get(ctx context.Context, id int64) (Supplier, error) {
	var (
		supplier Supplier
		ok       bool
	)
	_ = r.st.Read(ctx, func() error {
		supplier, ok = r.suppliers.Find(id)
		return nil
	})
	if !ok {
		return Supplier{}, fmt.Errorf("%w: supplier %d", shared.ErrNotFound, id)
	}
	return supplier, nil
}

func (r *repository) Create(ctx context.Context, supplier Supplier) (Supplier, error) {
	var created Supplier
	err := r.st.WithTx(ctx, func(context.Context) error {
		if r.duplicateCode(supplier.Code, 0) {
			return fmt.Errorf("%w: supplier code %s", shared.ErrDuplicate, supplier.Code)
		}
		created = r.suppliers.Add(supplier)
		return nil
	})
	return created, err
}

func (r *repository) Update(ctx context.Context, id int64, supplier Supplier) error {
	return r.st.WithTx(ctx, func(context.Context) error {
		if r.duplicateCode(supplier.Code, id) {
			return fmt.Errorf("%w: supplier code %s", shared.ErrDuplicate, supplier.Code)
		}
		_, err := r.suppliers.Update(id, supplier.Version, func(s *Supplier) error {
			s.Code = supplier.Code
			s.Name = supplier.Name
			s.TaxID = supplier.TaxID
			s.Email = supplier.Email
			s.Phone = supplier.Phone
			s.Address = supplier.Address
			s.City = supplier.City
			s.State = supplier.State
			s.Category = supplier.Category
			s.PaymentTerms = supplier.PaymentTerms
			s.Active = supplier.Active
			s.UpdatedAt = supplier.UpdatedAt
			return nil
		})
		return mapStoreErr(err)
	})
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	return r.st.WithTx(ctx, func(context.Context) error {
		if !r.suppliers.Delete(id) {
			return fmt.Errorf("%w: supplier %d", shared.ErrNotFound, id)
		}
		return nil
	})
}

func (r *repository) duplicateCode(code string, exceptID int64) bool {
	return r.suppliers.Any(func(s Supplier) bool {
		return s.ID != exceptID && strings.EqualFold(s.Code, code)
	})
}

func mapStoreErr(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %v", shared.ErrNotFound, err)
	}
	return err
}

func sortOrder(items []Supplier, sortBy, dir string) func(i, j int) bool {
	less := func(i, j int) bool { return items[i].ID < items[j].ID }
	switch sortBy {
	case "code":
		less = func(i, j int) bool { return items[i].Code < items[j].Code }
	case "name":
		less = func(i, j int) bool { return items[i].Name < items[j].Name }
	case "city":
		less = func(i, j int) bool { return items[i].City < items[j].City }
	}
	if dir == shared.SortDesc {
		return func(i, j int) bool { return less(j, i) }
	}
	return less
}
