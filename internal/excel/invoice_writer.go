package excel

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"fabricstore/internal/domain"
)

const invoiceSheet = "Invoice"

var invoiceItemHeadings = []string{"#", "Code", "Product", "Selection", "Quantity", "Unit", "Price", "Total"}

// WriteInvoice renders inv as a single-sheet workbook: a header block, one
// row per item and the totals underneath.
func WriteInvoice(w io.Writer, inv domain.Invoice) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", invoiceSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	customer := strconv.FormatInt(inv.CustomerID, 10)
	if inv.Customer != nil {
		customer = inv.Customer.FullName()
	}
	header := [][2]any{
		{"Invoice", inv.InvoiceNumber},
		{"Customer", customer},
		{"Status", string(inv.Status)},
		{"Payment", string(inv.PaymentType)},
		{"Date", inv.CreatedAt.Format("2006-01-02")},
	}
	row := 1
	for _, pair := range header {
		if err := setRow(f, row, pair[0], pair[1]); err != nil {
			return err
		}
		row++
	}

	row++
	headingRow := row
	values := make([]any, len(invoiceItemHeadings))
	for i, h := range invoiceItemHeadings {
		values[i] = h
	}
	if err := setRow(f, row, values...); err != nil {
		return err
	}
	start, _ := excelize.CoordinatesToCellName(1, headingRow)
	end, _ := excelize.CoordinatesToCellName(len(invoiceItemHeadings), headingRow)
	if err := f.SetCellStyle(invoiceSheet, start, end, bold); err != nil {
		return fmt.Errorf("style headings: %w", err)
	}

	for i, item := range inv.Items {
		row++
		code, name := "", strconv.FormatInt(item.ProductID, 10)
		if item.Product != nil {
			code, name = item.Product.Code, item.Product.Name
		}
		if err := setRow(f, row, i+1, code, name, selectionLabel(item.Selection), item.Quantity, item.Unit, item.Price, item.TotalPrice()); err != nil {
			return err
		}
	}

	row += 2
	if err := setRow(f, row, "Subtotal", inv.Subtotal); err != nil {
		return err
	}
	row++
	if err := setRow(f, row, "Total", inv.Total); err != nil {
		return err
	}
	for method, amount := range inv.PaymentBreakdown {
		row++
		if err := setRow(f, row, "Paid by "+method, amount); err != nil {
			return err
		}
	}

	if err := f.SetColWidth(invoiceSheet, "B", "D", 22); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, row int, values ...any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(invoiceSheet, cell, &values); err != nil {
		return fmt.Errorf("write row %d: %w", row, err)
	}
	return nil
}

func selectionLabel(sel domain.Selection) string {
	if len(sel.SelectedSeries) > 0 {
		parts := make([]string, 0, len(sel.SelectedSeries))
		for _, n := range sel.SelectedSeries {
			parts = append(parts, strconv.FormatInt(n, 10))
		}
		return "series " + strings.Join(parts, ", ")
	}
	return sel.Color()
}
