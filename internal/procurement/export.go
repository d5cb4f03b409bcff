package procurement

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Built-in number format "#,##0.00".
const moneyNumFmt = 4

// Export sections.
const (
	SectionRequisitions = "requisitions"
	SectionQuotations   = "quotations"
	SectionOrders       = "orders"
)

type column[T any] struct {
	header string
	width  float64
	value  func(T) any
}

var requisitionColumns = []column[RequisitionView]{
	{"Number", 16, func(v RequisitionView) any { return v.Number }},
	{"Requester", 24, func(v RequisitionView) any { return v.Requester }},
	{"Department", 20, func(v RequisitionView) any { return v.Department }},
	{"Request Date", 14, func(v RequisitionView) any { return exportDate(v.RequestedAt) }},
	{"Status", 14, func(v RequisitionView) any { return string(v.Status) }},
	{"Priority", 10, func(v RequisitionView) any { return string(v.Priority) }},
	{"Notes", 40, func(v RequisitionView) any { return v.Notes }},
}

var quotationColumns = []column[QuotationView]{
	{"Number", 16, func(v QuotationView) any { return v.Number }},
	{"Requisition", 16, func(v QuotationView) any { return v.Requisition }},
	{"Issue Date", 14, func(v QuotationView) any { return exportDate(v.IssuedAt) }},
	{"Due Date", 14, func(v QuotationView) any { return exportDate(v.DueDate) }},
	{"Status", 16, func(v QuotationView) any { return string(v.Status) }},
	{"Approval Status", 16, func(v QuotationView) any { return string(v.Approval.Status) }},
	{"Supplier", 30, func(v QuotationView) any { return v.Supplier }},
	{"Total Value", 16, func(v QuotationView) any { return v.TotalValue }},
}

var orderColumns = []column[OrderView]{
	{"Number", 16, func(v OrderView) any { return v.Number }},
	{"Quotation", 16, func(v OrderView) any { return v.Quotation }},
	{"Supplier", 30, func(v OrderView) any { return v.Supplier }},
	{"Issue Date", 14, func(v OrderView) any { return exportDate(v.IssuedAt) }},
	{"Expected Date", 14, func(v OrderView) any { return exportDate(v.ExpectedAt) }},
	{"Status", 12, func(v OrderView) any { return string(v.Status) }},
	{"Total Value", 16, func(v OrderView) any { return v.TotalValue }},
}

// ExportFilename returns the download name for section.
func ExportFilename(section string) string {
	return section + ".xlsx"
}

// Export writes the section as an xlsx workbook with one sheet named after
// it. The data is read, never modified.
func (s *Service) Export(ctx context.Context, section string, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	var err error
	switch section {
	case SectionRequisitions:
		var views []RequisitionView
		if views, err = s.RequisitionViews(ctx, ""); err == nil {
			err = writeSheet(f, section, requisitionColumns, views)
		}
	case SectionQuotations:
		var views []QuotationView
		if views, err = s.QuotationViews(ctx, ""); err == nil {
			err = writeSheet(f, section, quotationColumns, views)
		}
	case SectionOrders:
		var views []OrderView
		if views, err = s.OrderViews(ctx, ""); err == nil {
			err = writeSheet(f, section, orderColumns, views)
		}
	default:
		return fmt.Errorf("%w: unknown export section %q", ErrValidation, section)
	}
	if err != nil {
		return err
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("procurement: write workbook: %w", err)
	}
	return nil
}

func writeSheet[T any](f *excelize.File, sheet string, columns []column[T], rows []T) error {
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}
	header, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true, Size: 11},
		Fill:   excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{{Type: "bottom", Color: "000000", Style: 1}},
	})
	if err != nil {
		return err
	}
	for i, col := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, col.header); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cell, cell, header); err != nil {
			return err
		}
		name, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheet, name, name, col.width); err != nil {
			return err
		}
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: moneyNumFmt})
	if err != nil {
		return err
	}
	for r, row := range rows {
		for i, col := range columns {
			cell, _ := excelize.CoordinatesToCellName(i+1, r+2)
			if err := setCell(f, sheet, cell, col.value(row), money); err != nil {
				return err
			}
		}
	}
	return nil
}

// setCell writes amounts as numeric cells carrying the exact decimal digits.
func setCell(f *excelize.File, sheet, cell string, value any, money int) error {
	amount, ok := value.(decimal.Decimal)
	if !ok {
		return f.SetCellValue(sheet, cell, value)
	}
	if err := f.SetCellDefault(sheet, cell, amount.StringFixed(2)); err != nil {
		return err
	}
	return f.SetCellStyle(sheet, cell, cell, money)
}

func exportDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.DateOnly)
}
