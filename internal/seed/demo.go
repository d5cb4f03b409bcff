// Package seed loads the demo data set used for local runs and screenshots.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-procure/internal/inventory"
	"github.com/odyssey-erp/odyssey-procure/internal/masterdata/suppliers"
	"github.com/odyssey-erp/odyssey-procure/internal/procurement"
	"github.com/odyssey-erp/odyssey-procure/internal/shared"
	"github.com/odyssey-erp/odyssey-procure/internal/store"
)

// ErrNotEmpty is returned when the store already holds data.
var ErrNotEmpty = errors.New("seed: store is not empty")

// Services are the write paths the demo data goes through.
type Services struct {
	Store       *store.Store
	Suppliers   *suppliers.Service
	Inventory   *inventory.Service
	Procurement *procurement.Service
	Logger      *slog.Logger
}

type catalogue struct {
	suppliers map[string]suppliers.Supplier
	products  map[string]inventory.Product
}

// Demo replays the demo suppliers, products, requisitions, quotations and
// the first purchase order through the services. The procurement clock is
// stepped to the historical dates and reset to time.Now afterwards.
func Demo(ctx context.Context, svc Services) error {
	if svc.Store != nil && !svc.Store.Empty(ctx) {
		return ErrNotEmpty
	}
	logger := svc.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cat := catalogue{
		suppliers: map[string]suppliers.Supplier{},
		products:  map[string]inventory.Product{},
	}

	logger.Info("seeding suppliers")
	if err := seedSuppliers(ctx, svc.Suppliers, &cat); err != nil {
		return fmt.Errorf("seed suppliers: %w", err)
	}
	logger.Info("seeding products")
	if err := seedProducts(ctx, svc.Inventory, &cat); err != nil {
		return fmt.Errorf("seed products: %w", err)
	}
	logger.Info("seeding procurement")
	clock := &steppedClock{}
	svc.Procurement.SetClock(clock.Now)
	defer svc.Procurement.SetClock(time.Now)
	if err := seedProcurement(ctx, svc.Procurement, clock, &cat); err != nil {
		return fmt.Errorf("seed procurement: %w", err)
	}
	logger.Info("seed complete")
	return nil
}

type steppedClock struct {
	at time.Time
}

func (c *steppedClock) Now() time.Time { return c.at }

func (c *steppedClock) set(raw string) {
	c.at = mustTime(raw)
}

func mustTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		panic(err)
	}
	return t
}

func dec(raw string) decimal.Decimal { return decimal.RequireFromString(raw) }

func seedSuppliers(ctx context.Context, svc *suppliers.Service, cat *catalogue) error {
	rows := []suppliers.Supplier{
		{Code: "FOR001", Name: "Fertilizantes Brasil S.A.", TaxID: "11.222.333/0001-44", Email: "vendas@fertilizantesbrasil.com.br",
			Phone: "(11) 3333-4444", Address: "Av. Paulista, 1000", City: "São Paulo", State: "SP",
			Category: "Matéria Prima", PaymentTerms: "30/60/90 dias", Active: true},
		{Code: "FOR002", Name: "Química Industrial Ltda", TaxID: "22.333.444/0001-55", Email: "comercial@quimicaindustrial.com.br",
			Phone: "(21) 2222-3333", Address: "Rua da Química, 500", City: "Rio de Janeiro", State: "RJ",
			Category: "Produtos Químicos", PaymentTerms: "À vista com 5% desconto", Active: true},
		{Code: "FOR003", Name: "Embalagens Modernas Ltda", TaxID: "33.444.555/0001-66", Email: "vendas@embalagenmodernas.com.br",
			Phone: "(11) 4444-5555", Address: "Rua das Embalagens, 200", City: "São Paulo", State: "SP",
			Category: "Embalagens", PaymentTerms: "30 dias", Active: true},
	}
	for _, row := range rows {
		created, err := svc.Create(ctx, row)
		if err != nil {
			return err
		}
		cat.suppliers[created.Code] = created
	}
	return nil
}

func seedProducts(ctx context.Context, svc *inventory.Service, cat *catalogue) error {
	raw := []inventory.ProductInput{
		{Code: "MP001", Description: "Ureia Técnica 46%", Type: inventory.ProductTypeRawMaterial, Unit: "TON",
			Cost: dec("2800"), Price: dec("3200"), MinStock: dec("50"), Stock: dec("150")},
		{Code: "MP002", Description: "Superfosfato Triplo", Type: inventory.ProductTypeRawMaterial, Unit: "TON",
			Cost: dec("3200"), Price: dec("3600"), MinStock: dec("30"), Stock: dec("80")},
		{Code: "MP003", Description: "Cloreto de Potássio", Type: inventory.ProductTypeRawMaterial, Unit: "TON",
			Cost: dec("2400"), Price: dec("2800"), MinStock: dec("40"), Stock: dec("120")},
		{Code: "MP004", Description: "MAP (Fosfato Monoamônico)", Type: inventory.ProductTypeRawMaterial, Unit: "TON",
			Cost: dec("3500"), Price: dec("3900"), MinStock: dec("25"), Stock: dec("65")},
		{Code: "MKT001", Description: "Sacaria Personalizada 50kg", Type: inventory.ProductTypeMarketing, Unit: "UN",
			Cost: dec("2.5"), MinStock: dec("1000"), Stock: dec("5000")},
		{Code: "CON001", Description: "EPI - Máscara PFF2", Type: inventory.ProductTypeConsumable, Unit: "UN",
			Cost: dec("3.5"), MinStock: dec("100"), Stock: dec("500")},
	}
	for _, input := range raw {
		if err := createProduct(ctx, svc, cat, input); err != nil {
			return err
		}
	}

	component := func(code, qty string) inventory.BOMComponent {
		return inventory.BOMComponent{ProductID: cat.products[code].ID, Quantity: dec(qty), Unit: "TON"}
	}
	finished := []inventory.ProductInput{
		{Code: "PA001", Description: "Fertilizante NPK 20-05-20", Type: inventory.ProductTypeFinished, Unit: "TON",
			Cost: dec("2500"), Price: dec("2800"), MinStock: dec("25"), Stock: dec("75"),
			BOM: []inventory.BOMComponent{component("MP001", "0.435"), component("MP002", "0.109"), component("MP003", "0.333")}},
		{Code: "PA002", Description: "Fertilizante NPK 04-14-08", Type: inventory.ProductTypeFinished, Unit: "TON",
			Cost: dec("2200"), Price: dec("2600"), MinStock: dec("20"), Stock: dec("60"),
			BOM: []inventory.BOMComponent{component("MP001", "0.087"), component("MP004", "0.269"), component("MP003", "0.133")}},
	}
	for _, input := range finished {
		if err := createProduct(ctx, svc, cat, input); err != nil {
			return err
		}
	}
	return nil
}

func createProduct(ctx context.Context, svc *inventory.Service, cat *catalogue, input inventory.ProductInput) error {
	created, err := svc.CreateProduct(ctx, input)
	if err != nil {
		return fmt.Errorf("product %s: %w", input.Code, err)
	}
	cat.products[created.Code] = created
	return nil
}

func seedProcurement(ctx context.Context, svc *procurement.Service, clock *steppedClock, cat *catalogue) error {
	product := func(code string) int64 { return cat.products[code].ID }
	supplier := func(code string) int64 { return cat.suppliers[code].ID }
	as := func(actor string) context.Context { return shared.ContextWithActor(ctx, actor) }

	clock.set("2024-01-15T10:30:00Z")
	req1, err := svc.CreateRequisition(as("João Silva"), procurement.RequisitionInput{
		Requester:  "João Silva",
		Department: "Produção",
		NeededBy:   mustTime("2024-01-25T00:00:00Z"),
		Priority:   procurement.PriorityHigh,
		Notes:      "Urgente para produção de NPK",
		Lines: []procurement.RequisitionLine{
			{ProductID: product("MP001"), Quantity: dec("50"), Unit: "TON", Justification: "Estoque baixo para produção"},
			{ProductID: product("MP003"), Quantity: dec("30"), Unit: "TON", Justification: "Reposição de estoque"},
		},
	})
	if err != nil {
		return err
	}
	clock.set("2024-01-16T14:20:00Z")
	if _, err := svc.ApproveRequisition(as("Maria Santos"), req1.ID, procurement.Decision{Notes: "Aprovado conforme necessidade de produção"}); err != nil {
		return err
	}

	clock.set("2024-01-17T09:00:00Z")
	q1, err := svc.CreateQuotation(as("Maria Santos"), procurement.QuotationInput{
		RequisitionID: req1.ID,
		DueDate:       mustTime("2024-01-24T23:59:59Z"),
		Notes:         "Cotação para materiais urgentes",
		Offers: []procurement.SupplierOffer{
			{SupplierID: supplier("FOR001"), LeadTimeDays: 7, PaymentTerms: "30/60/90 dias", Freight: dec("1500"),
				Lines: []procurement.OfferLine{
					{ProductID: product("MP001"), Quantity: dec("50"), UnitPrice: dec("2750")},
					{ProductID: product("MP003"), Quantity: dec("30"), UnitPrice: dec("2350")},
				}},
			{SupplierID: supplier("FOR002"), LeadTimeDays: 10, PaymentTerms: "À vista com 5% desconto", Freight: dec("1800"),
				Lines: []procurement.OfferLine{
					{ProductID: product("MP001"), Quantity: dec("50"), UnitPrice: dec("2800")},
					{ProductID: product("MP003"), Quantity: dec("30"), UnitPrice: dec("2400")},
				}},
		},
		SelectedSupplierID: supplier("FOR001"),
	})
	if err != nil {
		return err
	}
	clock.set("2024-01-18T11:15:00Z")
	if _, err := svc.ApproveQuotation(as("Maria Santos"), q1.ID, procurement.Decision{Notes: "Melhor proposta selecionada"}); err != nil {
		return err
	}
	clock.set("2024-01-18T15:30:00Z")
	if _, err := svc.CreatePurchaseOrder(as("Maria Santos"), procurement.OrderInput{
		QuotationID: q1.ID,
		ExpectedAt:  mustTime("2024-01-25T00:00:00Z"),
		Notes:       "Pedido urgente conforme cotação aprovada",
	}); err != nil {
		return err
	}

	clock.set("2024-01-18T08:15:00Z")
	if _, err := svc.CreateRequisition(as("Carlos Oliveira"), procurement.RequisitionInput{
		Requester:  "Carlos Oliveira",
		Department: "Manutenção",
		NeededBy:   mustTime("2024-02-01T00:00:00Z"),
		Priority:   procurement.PriorityMedium,
		Notes:      "Material para manutenção preventiva",
		Lines: []procurement.RequisitionLine{
			{ProductID: product("CON001"), Quantity: dec("100"), Unit: "UN", Justification: "Reposição de EPIs"},
		},
	}); err != nil {
		return err
	}

	clock.set("2024-01-20T16:45:00Z")
	req3, err := svc.CreateRequisition(as("Ana Costa"), procurement.RequisitionInput{
		Requester:  "Ana Costa",
		Department: "Logística",
		NeededBy:   mustTime("2024-01-30T00:00:00Z"),
		Priority:   procurement.PriorityLow,
		Notes:      "Reposição de materiais de embalagem",
		Lines: []procurement.RequisitionLine{
			{ProductID: product("MKT001"), Quantity: dec("2000"), Unit: "UN", Justification: "Estoque baixo de embalagens"},
		},
	})
	if err != nil {
		return err
	}
	clock.set("2024-01-21T09:30:00Z")
	if _, err := svc.ApproveRequisition(as("Maria Santos"), req3.ID, procurement.Decision{Notes: "Aprovado para cotação"}); err != nil {
		return err
	}
	clock.set("2024-01-22T14:30:00Z")
	_, err = svc.CreateQuotation(as("Maria Santos"), procurement.QuotationInput{
		RequisitionID: req3.ID,
		DueDate:       mustTime("2024-01-29T23:59:59Z"),
		Notes:         "Cotação para embalagens",
		Offers: []procurement.SupplierOffer{
			{SupplierID: supplier("FOR003"), LeadTimeDays: 15, PaymentTerms: "30 dias", Freight: dec("800"),
				Lines: []procurement.OfferLine{
					{ProductID: product("MKT001"), Quantity: dec("2000"), UnitPrice: dec("2.3")},
				}},
		},
		SelectedSupplierID: supplier("FOR003"),
	})
	return err
}
