package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-procure/internal/shared"
	"github.com/odyssey-erp/odyssey-procure/internal/store"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetProduct(ctx context.Context, id int64) (Product, error)
	ListProducts(ctx context.Context) ([]Product, error)
	ListMovements(ctx context.Context, productID int64) ([]StockMovement, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates inventory operations.
type Service struct {
	repo     RepositoryPort
	audit    AuditPort
	logger   *slog.Logger
	allowNeg bool
	now      func() time.Time
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	AllowNegativeStock bool
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, logger *slog.Logger, cfg ServiceConfig) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger, allowNeg: cfg.AllowNegativeStock, now: time.Now}
}

// ListProducts returns products whose code or description contain search.
func (s *Service) ListProducts(ctx context.Context, search string) ([]Product, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	return store.Search(products, search, func(p Product) []string {
		return []string{p.Code, p.Description}
	}), nil
}

// GetProduct returns a single product.
func (s *Service) GetProduct(ctx context.Context, id int64) (Product, error) {
	return s.repo.GetProduct(ctx, id)
}

// CreateProduct validates and stores a new product.
func (s *Service) CreateProduct(ctx context.Context, input ProductInput) (Product, error) {
	if strings.TrimSpace(input.Code) == "" || strings.TrimSpace(input.Description) == "" {
		return Product{}, fmt.Errorf("%w: code and description required", ErrValidation)
	}
	if input.Type == "" {
		input.Type = ProductTypeOther
	}
	if !input.Type.Valid() {
		return Product{}, fmt.Errorf("%w: unknown product type %q", ErrValidation, input.Type)
	}
	if input.Cost.IsNegative() || input.Price.IsNegative() || input.Stock.IsNegative() {
		return Product{}, fmt.Errorf("%w: cost, price and stock must be >= 0", ErrValidation)
	}
	for _, component := range input.BOM {
		if component.ProductID <= 0 || !component.Quantity.IsPositive() {
			return Product{}, fmt.Errorf("%w: bom components need a product and a positive quantity", ErrValidation)
		}
	}
	product := Product{
		Code:         strings.TrimSpace(input.Code),
		Description:  strings.TrimSpace(input.Description),
		Type:         input.Type,
		Unit:         input.Unit,
		Cost:         input.Cost,
		Price:        input.Price,
		MinStock:     input.MinStock,
		MaxStock:     input.MaxStock,
		CurrentStock: input.Stock,
		BOM:          input.BOM,
		Active:       true,
		CreatedAt:    s.now().UTC(),
	}
	var created Product
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		created, err = tx.CreateProduct(ctx, product)
		return err
	})
	if err != nil {
		return Product{}, err
	}
	s.recordAudit(ctx, "PRODUCT_CREATE", created.ID, map[string]any{"code": created.Code})
	return created, nil
}

// CostRollup reports the BOM cost of a product against its recorded cost.
func (s *Service) CostRollup(ctx context.Context, id int64) (CostRollup, error) {
	product, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return CostRollup{}, err
	}
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return CostRollup{}, err
	}
	components, total := rollupComponents(product.BOM, indexProducts(products))
	return CostRollup{
		ProductID:   product.ID,
		Components:  components,
		Total:       total,
		CurrentCost: product.Cost,
		Drift:       total.Sub(product.Cost),
	}, nil
}

// SyncBOMCost replaces the cost of a product that has a BOM with the BOM total.
func (s *Service) SyncBOMCost(ctx context.Context, id int64) (Product, error) {
	var updated Product
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		rollup, err := s.CostRollup(ctx, id)
		if err != nil {
			return err
		}
		product, err := s.repo.GetProduct(ctx, id)
		if err != nil {
			return err
		}
		if len(product.BOM) == 0 {
			return fmt.Errorf("%w: product %d has no bill of materials", ErrValidation, id)
		}
		updated, err = tx.UpdateProduct(ctx, id, 0, func(p *Product) error {
			p.Cost = rollup.Total
			return nil
		})
		return err
	})
	if err != nil {
		return Product{}, err
	}
	s.recordAudit(ctx, "PRODUCT_COST_SYNC", updated.ID, map[string]any{"cost": updated.Cost.String()})
	return updated, nil
}

// PostInbound adds each line quantity to product stock and writes the
// stock card. Lines naming unknown products are skipped. Called with a
// transaction context it joins that transaction.
func (s *Service) PostInbound(ctx context.Context, input InboundInput) ([]StockMovement, error) {
	for _, line := range input.Lines {
		if !line.Qty.IsPositive() {
			return nil, ErrInvalidQuantity
		}
	}
	var movements []StockMovement
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for _, line := range input.Lines {
			product, err := tx.UpdateProduct(ctx, line.ProductID, 0, func(p *Product) error {
				p.CurrentStock = p.CurrentStock.Add(line.Qty)
				return nil
			})
			if errors.Is(err, ErrNotFound) {
				s.logger.Warn("inbound line skipped, product not found",
					slog.Int64("product_id", line.ProductID),
					slog.String("ref_module", input.RefModule),
					slog.String("ref_id", input.RefID))
				continue
			}
			if err != nil {
				return err
			}
			movement, err := tx.InsertMovement(ctx, StockMovement{
				ProductID:  product.ID,
				Type:       TransactionTypeIn,
				Qty:        line.Qty,
				BalanceQty: product.CurrentStock,
				UnitCost:   line.UnitCost,
				RefModule:  input.RefModule,
				RefID:      input.RefID,
				Note:       input.Note,
				Actor:      shared.ActorFromContext(ctx),
				PostedAt:   s.now().UTC(),
			})
			if err != nil {
				return err
			}
			movements = append(movements, movement)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return movements, nil
}

// PostAdjustment posts an adjustment which may be positive or negative.
func (s *Service) PostAdjustment(ctx context.Context, input AdjustmentInput) (StockMovement, error) {
	if input.Qty.IsZero() {
		return StockMovement{}, ErrInvalidQuantity
	}
	var movement StockMovement
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		product, err := tx.UpdateProduct(ctx, input.ProductID, 0, func(p *Product) error {
			next := p.CurrentStock.Add(input.Qty)
			if !s.allowNeg && next.IsNegative() {
				return ErrNegativeStock
			}
			p.CurrentStock = next
			return nil
		})
		if err != nil {
			return err
		}
		movement, err = tx.InsertMovement(ctx, StockMovement{
			ProductID:  product.ID,
			Type:       TransactionTypeAdjust,
			Qty:        input.Qty,
			BalanceQty: product.CurrentStock,
			UnitCost:   product.Cost,
			Note:       input.Note,
			Actor:      shared.ActorFromContext(ctx),
			PostedAt:   s.now().UTC(),
		})
		return err
	})
	if err != nil {
		return StockMovement{}, err
	}
	s.recordAudit(ctx, "inventory:ADJUST", input.ProductID, map[string]any{
		"qty":  input.Qty.String(),
		"note": input.Note,
	})
	return movement, nil
}

// GetStockCard returns the movements of a product.
func (s *Service) GetStockCard(ctx context.Context, productID int64) ([]StockMovement, error) {
	if _, err := s.repo.GetProduct(ctx, productID); err != nil {
		return nil, err
	}
	return s.repo.ListMovements(ctx, productID)
}

// LowStock lists active products below their minimum stock.
func (s *Service) LowStock(ctx context.Context) ([]Product, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Product, 0)
	for _, p := range products {
		if p.Active && p.BelowMinimum() {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Service) recordAudit(ctx context.Context, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		Action:   action,
		Entity:   "product",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	}); err != nil {
		s.logger.Warn("inventory audit", slog.String("action", action), slog.Any("error", err))
	}
}
