package procurement

import (
	"context"

	"github.com/shopspring/decimal"
)

// Stats are the summary cards of the procurement dashboard.
type Stats struct {
	TotalRequisitions    int             `json:"total_requisitions"`
	ApprovedRequisitions int             `json:"approved_requisitions"`
	PendingApprovals     int             `json:"pending_approvals"`
	OrdersTotal          decimal.Decimal `json:"orders_total"`
	OrdersTotalDisplay   string          `json:"orders_total_display"`
	Currency             string          `json:"currency,omitempty"`
}

// Stats computes the dashboard cards from current state.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	reqs, err := s.repo.ListRequisitions(ctx)
	if err != nil {
		return Stats{}, err
	}
	pending, err := s.PendingApprovals(ctx)
	if err != nil {
		return Stats{}, err
	}
	orders, err := s.repo.ListOrders(ctx)
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{
		TotalRequisitions: len(reqs),
		PendingApprovals:  len(pending),
		OrdersTotal:       sumOrders(orders),
		Currency:          s.money.Currency(),
	}
	for _, r := range reqs {
		if r.Status == RequisitionApproved {
			stats.ApprovedRequisitions++
		}
	}
	stats.OrdersTotalDisplay = s.money.Format(stats.OrdersTotal)
	return stats, nil
}
