package excel

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"fabricstore/internal/domain"
)

func workbook(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return &buf
}

func TestParseProductRowsFromWorkbook(t *testing.T) {
	buf := workbook(t, [][]any{
		{"کد محصول", "نام محصول", "Unit", "Sale_Price", "سری ها", "موجودی سری", "Colors", "Color Inventory"},
		{"S-1", "Velvet", "meter", "۳۵۰٬۰۰۰", "1, 2،3", "5,5,۴", "", ""},
		{"", "skipped", "", "", "", "", "", ""},
		{"C-1", "Linen", "", "120000", "", "", "red, blue", "12.5, 3"},
		{"C-2", "Silk", "", "", "", "", "white", ""},
	})

	rows, err := ParseProductRows("catalog.xlsx", buf)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	series := rows[0]
	assert.Equal(t, 2, series.Line)
	assert.Equal(t, "S-1", series.Code)
	assert.Equal(t, "Velvet", series.Name)
	require.NotNil(t, series.SalePrice)
	assert.Equal(t, 350000.0, *series.SalePrice)
	assert.Equal(t, []int64{1, 2, 3}, series.SeriesNumbers)
	assert.Equal(t, []int64{5, 5, 4}, series.SeriesInventory)
	assert.False(t, series.HasColors())

	colors := rows[1]
	assert.Equal(t, 4, colors.Line)
	assert.Equal(t, []string{"red", "blue"}, colors.Colors)
	assert.Equal(t, []float64{12.5, 3}, colors.ColorInventory)
	assert.Nil(t, colors.PurchasePrice)

	assert.Equal(t, []float64{0}, rows[2].ColorInventory)
}

func TestParseProductRowsFromCSV(t *testing.T) {
	data := "code,name,series,series inventory\nS-9,Wool,\"4,5\",\"1,2\"\n"
	rows, err := ParseProductRows("catalog.csv", strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, []int64{4, 5}, rows[0].SeriesNumbers)
	assert.Equal(t, []int64{1, 2}, rows[0].SeriesInventory)
}

func TestParseProductRowsErrors(t *testing.T) {
	cases := []struct {
		name string
		data string
		want string
	}{
		{name: "missing code column", data: "name\nVelvet\n", want: "missing required column: code"},
		{name: "fractional series", data: "code,series\nS-1,1.5\n", want: "row 2 invalid series number"},
		{name: "both modes", data: "code,series,colors\nS-1,1,red\n", want: "row 2 lists both series and colors"},
		{name: "no data rows", data: "code,name\n,Velvet\n", want: "no valid data rows"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseProductRows("x.csv", strings.NewReader(tc.data))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}

	_, err := ParseProductRows("x.xlsx", strings.NewReader(""))
	require.Error(t, err)
}

func TestWriteInvoice(t *testing.T) {
	inv := domain.Invoice{
		InvoiceNumber: "INV-1404-007",
		CustomerID:    3,
		Customer:      &domain.Customer{FirstName: "Sara", LastName: "Ahmadi"},
		Status:        domain.StatusApproved,
		PaymentType:   domain.PaymentCash,
		Subtotal:      1750000,
		Total:         1750000,
		CreatedAt:     time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		Items: []domain.InvoiceItem{{
			ProductID: 1,
			Quantity:  5,
			Unit:      "meter",
			Price:     350000,
			Selection: domain.Selection{SelectedSeries: []int64{1, 2}},
			Product:   &domain.Product{Code: "S-1", Name: "Velvet"},
		}},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteInvoice(&buf, inv))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Invoice")
	require.NoError(t, err)

	assert.Equal(t, []string{"Invoice", "INV-1404-007"}, rows[0])
	assert.Equal(t, []string{"Customer", "Sara Ahmadi"}, rows[1])
	assert.Equal(t, "Code", rows[6][1])
	item := rows[7]
	assert.Equal(t, []string{"1", "S-1", "Velvet", "series 1, 2", "5", "meter", "350000", "1750000"}, item)
	assert.Equal(t, []string{"Total", "1750000"}, rows[10])
}
