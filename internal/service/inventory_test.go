package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fabricstore/internal/domain"
	"fabricstore/internal/excel"
	"fabricstore/internal/repository"
)

func TestRecordTransactionAdjustsSelectedVariant(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	colored := f.seedColorProduct(t, "F-100")
	series := f.seedSeriesProduct(t, "S-200")

	txn, err := f.svc.RecordTransaction(ctx, warehouse, RecordTransactionInput{
		ProductID:      colored.ID,
		ChangeQuantity: 5,
		Reason:         domain.ReasonRestock,
		Notes:          ptr("supplier delivery"),
		Selection:      domain.Selection{SelectedColor: ptr("red")},
	})
	require.NoError(t, err)
	assert.Equal(t, warehouse.ID, txn.CreatedBy)
	assert.Equal(t, 25.0, colorStock(t, f.product(t, colored.ID), "red"))

	_, err = f.svc.RecordTransaction(ctx, warehouse, RecordTransactionInput{
		ProductID:      colored.ID,
		ChangeQuantity: -30,
		Reason:         domain.ReasonAdjustment,
		Selection:      domain.Selection{SelectedColor: ptr("red")},
	})
	assert.Equal(t, "insufficient color stock", validationErr(t, err).Message)

	_, err = f.svc.RecordTransaction(ctx, admin, RecordTransactionInput{
		ProductID:      series.ID,
		ChangeQuantity: 2,
		Reason:         domain.ReasonReturn,
		Selection:      domain.Selection{SelectedSeries: []int64{3}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), seriesStock(t, f.product(t, series.ID), 3))

	_, err = f.svc.RecordTransaction(ctx, admin, RecordTransactionInput{
		ProductID:      series.ID,
		ChangeQuantity: 1.5,
		Reason:         domain.ReasonRestock,
		Selection:      domain.Selection{SelectedSeries: []int64{3}},
	})
	assert.Equal(t, "change_quantity", validationErr(t, err).Field)

	_, err = f.svc.RecordTransaction(ctx, admin, RecordTransactionInput{
		ProductID:      series.ID,
		ChangeQuantity: 1,
		Reason:         domain.ReasonRestock,
		Selection:      domain.Selection{SelectedSeries: []int64{1, 2}},
	})
	assert.Equal(t, "selected_series", validationErr(t, err).Field)

	// without a selection only the ledger moves
	_, err = f.svc.RecordTransaction(ctx, admin, RecordTransactionInput{
		ProductID:      colored.ID,
		ChangeQuantity: -1,
		Reason:         domain.ReasonAdjustment,
	})
	require.NoError(t, err)
	assert.Equal(t, 25.0, colorStock(t, f.product(t, colored.ID), "red"))

	txns, err := f.svc.ListTransactions(ctx, accountant, repository.TransactionFilter{ProductID: ptr(colored.ID)})
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.Equal(t, -1.0, txns[0].ChangeQuantity)
	assert.Equal(t, 5.0, txns[1].ChangeQuantity)
}

func TestRecordTransactionGuards(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	product := f.seedColorProduct(t, "F-100")

	_, err := f.svc.RecordTransaction(ctx, warehouse, RecordTransactionInput{
		ProductID:      product.ID,
		ChangeQuantity: -5,
		Reason:         domain.ReasonSaleReservation,
	})
	assert.Equal(t, "reason", validationErr(t, err).Field)

	_, err = f.svc.RecordTransaction(ctx, warehouse, RecordTransactionInput{
		ProductID: product.ID,
		Reason:    domain.ReasonRestock,
	})
	assert.Equal(t, "change_quantity", validationErr(t, err).Field)

	_, err = f.svc.RecordTransaction(ctx, accountant, RecordTransactionInput{
		ProductID:      product.ID,
		ChangeQuantity: 1,
		Reason:         domain.ReasonRestock,
	})
	assert.True(t, domain.IsForbidden(err))

	_, err = f.svc.RecordTransaction(ctx, warehouse, RecordTransactionInput{
		ProductID:      404,
		ChangeQuantity: 1,
		Reason:         domain.ReasonRestock,
	})
	assert.True(t, domain.IsNotFound(err))

	assert.Empty(t, f.store.snapshot().txns)
}

func TestProductCrud(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})

	created, err := f.svc.CreateProduct(ctx, admin, ProductInput{
		Code:      ptr("F-300"),
		Name:      ptr("Linen"),
		SalePrice: ptr(420000.0),
		Variant:   &domain.VariantFields{AvailableColors: []string{"white"}, ColorInventory: []float64{40}},
	})
	require.NoError(t, err)
	assert.Equal(t, "meter", created.Unit)
	assert.True(t, created.Visible)
	assert.False(t, created.IsSeries())

	_, err = f.svc.CreateProduct(ctx, warehouse, ProductInput{
		Code:    ptr("F-300"),
		Name:    ptr("Linen copy"),
		Variant: &domain.VariantFields{AvailableColors: []string{"white"}, ColorInventory: []float64{1}},
	})
	assert.True(t, domain.IsConflict(err))

	_, err = f.svc.CreateProduct(ctx, admin, ProductInput{
		Code:    ptr("F-301"),
		Name:    ptr("Broken"),
		Variant: &domain.VariantFields{AvailableColors: []string{"white", "black"}, ColorInventory: []float64{1}},
	})
	assert.Equal(t, "color_inventory", validationErr(t, err).Field)

	_, err = f.svc.CreateProduct(ctx, accountant, ProductInput{Code: ptr("F-302")})
	assert.True(t, domain.IsForbidden(err))

	seriesFields := &domain.VariantFields{IsSeries: true, SeriesNumbers: []int64{1, 2}, SeriesInventory: []int64{3, 3}}
	updated, err := f.svc.UpdateProduct(ctx, admin, created.ID, ProductInput{Variant: seriesFields})
	require.NoError(t, err)
	assert.True(t, updated.IsSeries())

	_, err = f.svc.RecordTransaction(ctx, admin, RecordTransactionInput{
		ProductID:      created.ID,
		ChangeQuantity: 1,
		Reason:         domain.ReasonRestock,
		Selection:      domain.Selection{SelectedSeries: []int64{1}},
	})
	require.NoError(t, err)

	_, err = f.svc.UpdateProduct(ctx, admin, created.ID, ProductInput{
		Variant: &domain.VariantFields{AvailableColors: []string{"white"}, ColorInventory: []float64{40}},
	})
	assert.Equal(t, "is_series", validationErr(t, err).Field)

	updated, err = f.svc.UpdateProduct(ctx, admin, created.ID, ProductInput{
		Visible: ptr(false),
		Variant: &domain.VariantFields{IsSeries: true, SeriesNumbers: []int64{1, 2, 3}, SeriesInventory: []int64{4, 3, 9}},
	})
	require.NoError(t, err)
	assert.False(t, updated.Visible)
	assert.Equal(t, 16.0, updated.Variant.Available())

	panel := domain.Principal{ID: 77, Role: domain.RoleCustomer}
	_, err = f.svc.GetProduct(ctx, panel, created.ID)
	assert.True(t, domain.IsNotFound(err))
	list, err := f.svc.ListProducts(ctx, panel, repository.ProductFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)

	withImage, err := f.svc.AddProductImage(ctx, admin, created.ID, "swatch.jpg", strings.NewReader("jpg"))
	require.NoError(t, err)
	require.Len(t, withImage.Images, 1)

	require.NoError(t, f.svc.DeleteProduct(ctx, admin, created.ID))
	_, err = f.svc.GetProduct(ctx, admin, created.ID)
	assert.True(t, domain.IsNotFound(err))
}

func TestImportProductsUpsertsByCode(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	existing := f.seedColorProduct(t, "F-100")

	result, err := f.svc.ImportProducts(ctx, admin, []ProductInput{
		{Code: ptr("F-100"), SalePrice: ptr(500000.0)},
		{
			Code:    ptr("S-900"),
			Name:    ptr("Velvet"),
			Variant: &domain.VariantFields{IsSeries: true, SeriesNumbers: []int64{1}, SeriesInventory: []int64{2}},
		},
		{Code: ptr("X-1"), Name: ptr("No variant")},
		{Name: ptr("No code")},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 1, result.Updated)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "row 3")
	assert.Contains(t, result.Errors[1], "row 4")

	assert.Equal(t, 500000.0, f.product(t, existing.ID).SalePrice)

	_, err = f.svc.ImportProducts(ctx, accountant, nil)
	assert.True(t, domain.IsForbidden(err))
}

func TestProductInputFromRow(t *testing.T) {
	price := 120000.0
	in := ProductInputFromRow(excel.ProductRow{
		Code:            "S-1",
		Name:            "Velvet",
		SalePrice:       &price,
		SeriesNumbers:   []int64{1, 2},
		SeriesInventory: []int64{4, 0},
	})
	require.NotNil(t, in.Code)
	assert.Equal(t, "S-1", *in.Code)
	assert.Nil(t, in.Category)
	assert.Equal(t, &price, in.SalePrice)
	require.NotNil(t, in.Variant)
	assert.True(t, in.Variant.IsSeries)
	assert.Equal(t, []int64{4, 0}, in.Variant.SeriesInventory)

	colors := ProductInputFromRow(excel.ProductRow{Code: "C-1", Colors: []string{"red"}, ColorInventory: []float64{3}})
	require.NotNil(t, colors.Variant)
	assert.False(t, colors.Variant.IsSeries)
	assert.Equal(t, []string{"red"}, colors.Variant.AvailableColors)

	assert.Nil(t, ProductInputFromRow(excel.ProductRow{Code: "P-1"}).Variant)
}
