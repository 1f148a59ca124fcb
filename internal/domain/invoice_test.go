package domain

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvoiceStatus_Next(t *testing.T) {
	tests := []struct {
		from InvoiceStatus
		t    Transition
		to   InvoiceStatus
		ok   bool
	}{
		{StatusWarehousePending, TransitionReserve, StatusAccountantPending, true},
		{StatusAccountantPending, TransitionReserve, StatusAccountantPending, true},
		{StatusApproved, TransitionReserve, StatusApproved, false},
		{StatusAccountantPending, TransitionApprove, StatusApproved, true},
		{StatusWarehousePending, TransitionApprove, StatusWarehousePending, false},
		{StatusApproved, TransitionShip, StatusShipped, true},
		{StatusShipped, TransitionShip, StatusShipped, false},
		{StatusShipped, TransitionDeliver, StatusDelivered, true},
		{StatusApproved, TransitionDeliver, StatusApproved, false},
		{StatusDelivered, TransitionCancel, StatusCancelled, true},
		{StatusDraft, TransitionCancel, StatusCancelled, true},
		{StatusCancelled, TransitionCancel, StatusCancelled, false},
	}
	for _, tc := range tests {
		got, err := tc.from.Next(tc.t)
		if tc.ok {
			require.NoError(t, err, "%s -> %s", tc.from, tc.t)
		} else {
			require.Error(t, err, "%s -> %s", tc.from, tc.t)
			assert.True(t, IsValidation(err))
		}
		assert.Equal(t, tc.to, got)
	}
}

func TestTransitionRoles(t *testing.T) {
	assert.ElementsMatch(t, []Role{RoleWarehouse, RoleAdmin}, TransitionReserve.Roles())
	assert.ElementsMatch(t, []Role{RoleAccountant, RoleAdmin}, TransitionApprove.Roles())
	assert.ElementsMatch(t, []Role{RoleAccountant, RoleAdmin}, TransitionCancel.Roles())
}

func TestVisibleStatuses(t *testing.T) {
	assert.ElementsMatch(t,
		[]InvoiceStatus{StatusWarehousePending, StatusApproved, StatusShipped},
		VisibleStatuses(RoleWarehouse))
	assert.NotContains(t, VisibleStatuses(RoleAccountant), StatusDraft)
	assert.Len(t, VisibleStatuses(RoleAccountant), len(AllInvoiceStatuses)-1)
	assert.Nil(t, VisibleStatuses(RoleAdmin))

	assert.False(t, CanView(RoleWarehouse, StatusAccountantPending))
	assert.True(t, CanView(RoleAdmin, StatusDraft))
}

func floatPtr(f float64) *float64 { return &f }
func intPtr(i int) *int           { return &i }

func TestResolveQuantity(t *testing.T) {
	tests := []struct {
		name    string
		in      QuantityInput
		want    float64
		wantErr bool
	}{
		{name: "raw quantity", in: QuantityInput{Quantity: floatPtr(5)}, want: 5},
		{name: "rolls", in: QuantityInput{Quantity: floatPtr(1), RollsCount: intPtr(3), PiecesPerRoll: intPtr(4)}, want: 12},
		{name: "rolls without pieces", in: QuantityInput{RollsCount: intPtr(3)}, wantErr: true},
		{
			name: "detailed rolls win",
			in: QuantityInput{
				Quantity:      floatPtr(1),
				RollsCount:    intPtr(3),
				PiecesPerRoll: intPtr(4),
				DetailedRolls: []Roll{{Pieces: []float64{1.5, 2.5}}, {Pieces: []float64{6}}},
			},
			want: 10,
		},
		{name: "non-positive piece", in: QuantityInput{DetailedRolls: []Roll{{Pieces: []float64{1, 0}}}}, wantErr: true},
		{name: "zero quantity", in: QuantityInput{Quantity: floatPtr(0)}, wantErr: true},
		{name: "nothing", in: QuantityInput{}, wantErr: true},
		{
			name: "largest rolls multiply without overflow",
			in:   QuantityInput{RollsCount: intPtr(math.MaxInt32), PiecesPerRoll: intPtr(math.MaxInt32)},
			want: float64(math.MaxInt32) * float64(math.MaxInt32),
		},
		{name: "rolls beyond column range", in: QuantityInput{RollsCount: intPtr(beyondInt32()), PiecesPerRoll: intPtr(2)}, wantErr: true},
		{name: "pieces beyond column range on a quantity line", in: QuantityInput{Quantity: floatPtr(3), PiecesPerRoll: intPtr(beyondInt32())}, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ResolveQuantity(tc.in)
			if tc.wantErr {
				require.Error(t, err)
				assert.True(t, IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tc.want, got, 1e-9)
		})
	}
}

func TestInvoice_Recompute(t *testing.T) {
	inv := Invoice{Items: []InvoiceItem{
		{Quantity: 5, Price: 350000},
		{Quantity: 0.1, Price: 0.2},
	}}
	inv.Recompute()
	assert.Equal(t, 1750000.02, inv.Subtotal)
	assert.Equal(t, inv.Subtotal, inv.Total)
}

func beyondInt32() int {
	v := math.MaxInt32
	return v + 1
}

func TestSubtotalMatchesRoundedLineTotals(t *testing.T) {
	inv := Invoice{Items: []InvoiceItem{
		{Quantity: 3, Price: 0.333},
		{Quantity: 0.333, Price: 1},
	}}
	inv.Recompute()

	var lines float64
	for _, item := range inv.Items {
		lines += item.TotalPrice()
	}
	assert.Equal(t, 0.99, inv.Items[0].TotalPrice())
	assert.Equal(t, 0.33, inv.Items[1].TotalPrice())
	assert.InDelta(t, lines, inv.Subtotal, 1e-9)
	assert.Equal(t, 1.32, inv.Subtotal)

	// reloading stores the price rounded; totals do not move
	reloaded := InvoiceItem{Quantity: 3, Price: RoundMoney(0.333)}
	assert.Equal(t, inv.Items[0].TotalPrice(), reloaded.TotalPrice())
	assert.Equal(t, 0.0, RoundMoney(0.004))
}

func TestInvoiceItem_MarshalJSONIncludesTotal(t *testing.T) {
	raw, err := json.Marshal(InvoiceItem{Quantity: 5, Price: 350000, Selection: Selection{SelectedSeries: []int64{1}}})
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, 1750000.0, out["total_price"])
	assert.Equal(t, []any{1.0}, out["selected_series"])
}

func TestInvoiceNumbers(t *testing.T) {
	year := PersianYear(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, 1404, year)
	assert.Equal(t, "INV-1404-007", FormatInvoiceNumber(year, 7))
	assert.Equal(t, "INV-1404-1234", FormatInvoiceNumber(year, 1234))

	seq, ok := ParseInvoiceSequence("INV-1404-042", 1404)
	assert.True(t, ok)
	assert.Equal(t, int64(42), seq)

	_, ok = ParseInvoiceSequence("INV-1403-042", 1404)
	assert.False(t, ok)
	_, ok = ParseInvoiceSequence("INV-1404-abc", 1404)
	assert.False(t, ok)
}
