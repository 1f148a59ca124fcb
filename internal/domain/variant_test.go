package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestNewSeriesVariant_RejectsBadShapes(t *testing.T) {
	_, err := NewSeriesVariant([]int64{1, 2}, []int64{3})
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	_, err = NewSeriesVariant([]int64{1, 1}, []int64{3, 4})
	require.Error(t, err)

	_, err = NewSeriesVariant([]int64{1}, []int64{-1})
	require.Error(t, err)
}

func TestNewColorVariant_RejectsBadShapes(t *testing.T) {
	_, err := NewColorVariant([]string{"red"}, nil)
	require.Error(t, err)

	_, err = NewColorVariant([]string{"red", " red "}, []float64{1, 2})
	require.Error(t, err)

	_, err = NewColorVariant([]string{""}, []float64{1})
	require.Error(t, err)
}

func TestSeriesVariant_Validate(t *testing.T) {
	v, err := NewSeriesVariant([]int64{1, 2, 3}, []int64{2, 1, 3})
	require.NoError(t, err)

	tests := []struct {
		name    string
		sel     Selection
		message string
	}{
		{name: "two of one and one of two", sel: Selection{SelectedSeries: []int64{1, 1, 2}}},
		{name: "three of one", sel: Selection{SelectedSeries: []int64{1, 1, 1}}, message: "insufficient series stock"},
		{name: "unknown series", sel: Selection{SelectedSeries: []int64{9}}, message: "selection not offered"},
		{name: "empty", sel: Selection{}, message: "missing selection for product mode"},
		{name: "color on series product", sel: Selection{SelectedColor: strPtr("red")}, message: "missing selection for product mode"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := v.Validate(tc.sel, 10)
			if tc.message == "" {
				require.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.message, verr.Message)
		})
	}
}

func TestSeriesVariant_InsufficientStockDetails(t *testing.T) {
	v, err := NewSeriesVariant([]int64{1, 2, 3}, []int64{2, 1, 3})
	require.NoError(t, err)

	err = v.Validate(Selection{SelectedSeries: []int64{1, 1, 1}}, 3)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, int64(1), verr.Details["series"])
	assert.Equal(t, int64(2), verr.Details["available"])
	assert.Equal(t, int64(3), verr.Details["requested"])
}

func TestSeriesVariant_HoldAndRelease(t *testing.T) {
	v, err := NewSeriesVariant([]int64{1, 2, 3}, []int64{2, 1, 3})
	require.NoError(t, err)
	sel := Selection{SelectedSeries: []int64{1, 1, 2}}

	held, err := v.Hold(sel, 3)
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 0, 3}, held.(SeriesVariant).Inventory())
	assert.Equal(t, []int64{2, 1, 3}, v.Inventory(), "original must not change")

	_, err = held.Hold(sel, 3)
	require.Error(t, err)

	released, err := held.Release(sel, 3)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 1, 3}, released.(SeriesVariant).Inventory())
}

func TestColorVariant_ValidateHoldRelease(t *testing.T) {
	v, err := NewColorVariant([]string{"red", "blue"}, []float64{10, 2.5})
	require.NoError(t, err)

	require.NoError(t, v.Validate(Selection{SelectedColor: strPtr("red")}, 10))

	err = v.Validate(Selection{SelectedColor: strPtr("blue")}, 3)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "insufficient color stock", verr.Message)

	err = v.Validate(Selection{SelectedColor: strPtr("green")}, 1)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "selection not offered", verr.Message)

	err = v.Validate(Selection{}, 1)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "missing selection for product mode", verr.Message)

	held, err := v.Hold(Selection{SelectedColor: strPtr("red")}, 4)
	require.NoError(t, err)
	assert.Equal(t, []float64{6, 2.5}, held.(ColorVariant).Inventory())

	back, err := held.Release(Selection{SelectedColor: strPtr("red")}, 4)
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 2.5}, back.(ColorVariant).Inventory())
}

func TestSeriesBreakdown_EvenSplit(t *testing.T) {
	shares := SeriesBreakdown([]int64{5, 3, 1, 4, 2}, 50)
	require.Len(t, shares, 5)
	for i, share := range shares {
		assert.Equal(t, int64(i+1), share.SeriesNumber)
		assert.Equal(t, 1, share.Count)
		assert.InDelta(t, 10, share.Quantity, 1e-9)
	}
}

func TestSeriesBreakdown_WeightsRepeats(t *testing.T) {
	shares := SeriesBreakdown([]int64{2, 1, 2, 2}, 20)
	require.Len(t, shares, 2)
	assert.Equal(t, SeriesShare{SeriesNumber: 1, Count: 1, Quantity: 5}, shares[0])
	assert.Equal(t, SeriesShare{SeriesNumber: 2, Count: 3, Quantity: 15}, shares[1])
}

func TestBuildOrderDetail_Color(t *testing.T) {
	variant, err := NewColorVariant([]string{"red"}, []float64{10})
	require.NoError(t, err)
	item := CartItem{
		ProductID: 7,
		Quantity:  4,
		Price:     1000,
		Unit:      "meter",
		Selection: Selection{SelectedColor: strPtr("red")},
		Product:   &Product{ID: 7, Code: "C1", Name: "Cotton", Variant: variant},
	}
	detail := BuildOrderDetail(item)
	assert.False(t, detail.IsSeries)
	require.NotNil(t, detail.Color)
	assert.Equal(t, "red", detail.Color.Color)
	assert.Equal(t, 4.0, detail.Color.Quantity)
	assert.Equal(t, 4000.0, detail.TotalPrice)
}

func TestProduct_MarshalJSONFlattensVariant(t *testing.T) {
	variant, err := NewSeriesVariant([]int64{10, 20}, []int64{1, 2})
	require.NoError(t, err)
	raw, err := json.Marshal(Product{ID: 1, Code: "S1", Variant: variant})
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, true, out["is_series"])
	assert.Equal(t, []any{10.0, 20.0}, out["series_numbers"])
	assert.Equal(t, []any{1.0, 2.0}, out["series_inventory"])
	assert.NotContains(t, out, "available_colors")
}

func TestVariantFields_BuildRoundTrip(t *testing.T) {
	fields := VariantFields{AvailableColors: []string{"red"}, ColorInventory: []float64{3}}
	variant, err := fields.Build()
	require.NoError(t, err)
	assert.Equal(t, ModeColor, variant.Mode())
	assert.Equal(t, fields, FlattenVariant(variant))
}

func TestCheckHeldSelections(t *testing.T) {
	series, err := NewSeriesVariant([]int64{1, 3}, []int64{5, 5})
	require.NoError(t, err)
	assert.True(t, series.Offers(Selection{SelectedSeries: []int64{1, 3, 3}}))
	assert.False(t, series.Offers(Selection{SelectedSeries: []int64{1, 2}}))

	err = CheckHeldSelections(series, []Selection{{SelectedSeries: []int64{1}}, {SelectedSeries: []int64{2}}})
	require.Error(t, err)
	verr, ok := err.(*ValidationError)
	require.True(t, ok)
	assert.Equal(t, "series_numbers", verr.Field)

	colors, err := NewColorVariant([]string{"red"}, []float64{4})
	require.NoError(t, err)
	assert.True(t, colors.Offers(Selection{}))
	assert.NoError(t, CheckHeldSelections(colors, []Selection{{SelectedColor: strPtr(" red ")}}))

	err = CheckHeldSelections(colors, []Selection{{SelectedColor: strPtr("blue")}})
	require.Error(t, err)
	assert.Equal(t, "available_colors", err.(*ValidationError).Field)
}
