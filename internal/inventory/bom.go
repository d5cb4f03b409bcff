package inventory

import "github.com/shopspring/decimal"

// ComponentCost is the cost contribution of one BOM component.
type ComponentCost struct {
	ProductID   int64           `json:"product_id"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Missing     bool            `json:"missing"`
}

// CostRollup breaks down the BOM cost of a product.
type CostRollup struct {
	ProductID   int64           `json:"product_id"`
	Components  []ComponentCost `json:"components"`
	Total       decimal.Decimal `json:"total"`
	CurrentCost decimal.Decimal `json:"current_cost"`
	Drift       decimal.Decimal `json:"drift"`
}

// ComputeBOMCost sums quantity * cost over bom. Components whose product is
// not in products contribute zero.
func ComputeBOMCost(bom []BOMComponent, products []Product) decimal.Decimal {
	_, total := rollupComponents(bom, indexProducts(products))
	return total
}

func indexProducts(products []Product) map[int64]Product {
	index := make(map[int64]Product, len(products))
	for _, p := range products {
		index[p.ID] = p
	}
	return index
}

func rollupComponents(bom []BOMComponent, index map[int64]Product) ([]ComponentCost, decimal.Decimal) {
	total := decimal.Zero
	lines := make([]ComponentCost, 0, len(bom))
	for _, component := range bom {
		line := ComponentCost{ProductID: component.ProductID, Quantity: component.Quantity, UnitCost: decimal.Zero, Subtotal: decimal.Zero}
		product, ok := index[component.ProductID]
		if !ok {
			line.Missing = true
			lines = append(lines, line)
			continue
		}
		line.Description = product.Description
		line.UnitCost = product.Cost
		line.Subtotal = component.Quantity.Mul(product.Cost)
		total = total.Add(line.Subtotal)
		lines = append(lines, line)
	}
	return lines, total
}
