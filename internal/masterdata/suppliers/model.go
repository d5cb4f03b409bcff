package suppliers

import (
	"time"

	"github.com/odyssey-erp/odyssey-procure/internal/store"
)

// Supplier represents a supplier entity
type Supplier struct {
	store.Meta
	Code         string    `json:"code"`
	Name         string    `json:"name"`
	TaxID        string    `json:"tax_id"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	Address      string    `json:"address"`
	City         string    `json:"city"`
	State        string    `json:"state"`
	Category     string    `json:"category"`
	PaymentTerms string    `json:"payment_terms"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
