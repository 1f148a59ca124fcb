package service

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fabricstore/internal/domain"
	"fabricstore/internal/repository"
)

func TestPublicCartMissingColorPersistsNothing(t *testing.T) {
	f := newFixture(t, Options{})
	product := f.seedColorProduct(t, "F-100")

	_, err := f.svc.SubmitPublicCart(context.Background(), PublicCartInput{
		CustomerName:  "Guest",
		CustomerPhone: "0912000009",
		Items: []CartItemInput{
			{ProductID: product.ID, Quantity: 3, Unit: "meter", Price: 1000},
		},
	})
	verr := validationErr(t, err)
	assert.Equal(t, "items[0].selected_color", verr.Field)
	assert.Equal(t, "missing selection for product mode", verr.Message)

	state := f.store.snapshot()
	assert.Empty(t, state.carts)
	assert.Empty(t, state.cartItems)
}

func TestPublicCartComputesSeriesBreakdown(t *testing.T) {
	f := newFixture(t, Options{})
	product := f.seedSeriesProduct(t, "S-200")
	colored := f.seedColorProduct(t, "F-100")

	out, err := f.svc.SubmitPublicCart(context.Background(), PublicCartInput{
		CustomerName:  " Guest ",
		CustomerPhone: "0912000009",
		Items: []CartItemInput{
			{ProductID: product.ID, Quantity: 30, Price: 100000, Selection: domain.Selection{SelectedSeries: []int64{1, 2, 1}}},
			{ProductID: colored.ID, Quantity: 2.5, Price: 2000, Selection: domain.Selection{SelectedColor: ptr(" blue ")}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 3005000.0, out.TotalAmount)
	assert.Equal(t, fmt.Sprintf("سفارش شما با موفقیت ثبت شد. کد پیگیری: #%d", out.ID), out.Message)

	raw, err := json.Marshal(out)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.ElementsMatch(t, []string{"id", "message", "total_amount", "order_details"}, mapKeys(body))

	stored, err := f.svc.GetCart(context.Background(), accountant, out.ID)
	require.NoError(t, err)
	assert.Equal(t, "Guest", stored.Cart.CustomerName)
	assert.Equal(t, domain.CartPending, stored.Cart.Status)
	assert.NotNil(t, stored.Cart.SubmittedAt)
	assert.Equal(t, 3005000.0, stored.Cart.TotalAmount)
	require.Len(t, stored.Cart.Items, 2)
	assert.Equal(t, "meter", stored.Cart.Items[0].Unit)

	require.Len(t, out.OrderDetails, 2)
	series := out.OrderDetails[0]
	assert.True(t, series.IsSeries)
	assert.Equal(t, "S-200", series.ProductCode)
	assert.Equal(t, []domain.SeriesShare{
		{SeriesNumber: 1, Count: 2, Quantity: 20},
		{SeriesNumber: 2, Count: 1, Quantity: 10},
	}, series.Series)

	color := out.OrderDetails[1]
	require.NotNil(t, color.Color)
	assert.Equal(t, "blue", color.Color.Color)
	assert.Equal(t, 2.5, color.Color.Quantity)

	// intake never touches stock
	assert.Equal(t, int64(5), seriesStock(t, f.product(t, product.ID), 1))
}

func TestPublicCartRejectsOverdrawnSeries(t *testing.T) {
	f := newFixture(t, Options{})
	product := f.seedProduct(t, "S-201", domain.VariantFields{
		IsSeries:        true,
		SeriesNumbers:   []int64{1, 2},
		SeriesInventory: []int64{1, 4},
	})

	_, err := f.svc.SubmitPublicCart(context.Background(), PublicCartInput{
		CustomerName:  "Guest",
		CustomerPhone: "0912000009",
		Items: []CartItemInput{
			{ProductID: product.ID, Quantity: 10, Price: 1000, Selection: domain.Selection{SelectedSeries: []int64{1, 1}}},
		},
	})
	verr := validationErr(t, err)
	assert.Equal(t, "insufficient series stock", verr.Message)
	assert.Equal(t, int64(1), verr.Details["available"])
	assert.Equal(t, int64(2), verr.Details["requested"])
	assert.Equal(t, 0, verr.Details["item_index"])
}

func TestCustomerCartLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	customer := f.seedCustomer(t, "Sara", "0912000001")
	product := f.seedColorProduct(t, "F-100")
	panel := domain.Principal{ID: customer.ID, Role: domain.RoleCustomer}

	cart, err := f.svc.GetCustomerCart(ctx, panel)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.Equal(t, "Sara", cart.CustomerName)
	assert.Nil(t, cart.SubmittedAt)

	again, err := f.svc.GetCustomerCart(ctx, panel)
	require.NoError(t, err)
	assert.Equal(t, cart.ID, again.ID)

	cart, err = f.svc.AddCartItem(ctx, panel, CartItemInput{
		ProductID: product.ID,
		Quantity:  2,
		Price:     1000,
		Selection: domain.Selection{SelectedColor: ptr("red")},
	})
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 2000.0, cart.TotalAmount)
	itemID := cart.Items[0].ID

	cart, err = f.svc.UpdateCartItem(ctx, panel, itemID, CartItemInput{
		Quantity:  3,
		Price:     1000,
		Selection: domain.Selection{SelectedColor: ptr("red")},
	})
	require.NoError(t, err)
	assert.Equal(t, 3000.0, cart.TotalAmount)

	_, err = f.svc.UpdateCartItem(ctx, panel, itemID, CartItemInput{
		Quantity:  50,
		Price:     1000,
		Selection: domain.Selection{SelectedColor: ptr("red")},
	})
	assert.Equal(t, "insufficient color stock", validationErr(t, err).Message)

	cart, err = f.svc.RemoveCartItem(ctx, panel, itemID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.Equal(t, 0.0, cart.TotalAmount)

	_, err = f.svc.RemoveCartItem(ctx, panel, itemID)
	assert.True(t, domain.IsNotFound(err))

	_, err = f.svc.CheckoutCustomerCart(ctx, panel, nil)
	assert.Equal(t, "cart is empty", validationErr(t, err).Message)

	_, err = f.svc.AddCartItem(ctx, panel, CartItemInput{
		ProductID: product.ID,
		Quantity:  4,
		Price:     500,
		Selection: domain.Selection{SelectedColor: ptr("blue")},
	})
	require.NoError(t, err)

	submitted, err := f.svc.CheckoutCustomerCart(ctx, panel, ptr("deliver friday"))
	require.NoError(t, err)
	assert.Equal(t, cart.ID, submitted.ID)
	assert.Contains(t, submitted.Message, fmt.Sprintf("#%d", cart.ID))
	assert.Equal(t, 2000.0, submitted.TotalAmount)
	require.Len(t, submitted.OrderDetails, 1)

	stored, err := f.svc.GetCart(ctx, accountant, cart.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.Cart.SubmittedAt)
	assert.Equal(t, "deliver friday", *stored.Cart.Notes)

	fresh, err := f.svc.GetCustomerCart(ctx, panel)
	require.NoError(t, err)
	assert.NotEqual(t, cart.ID, fresh.ID)
	assert.Empty(t, fresh.Items)

	carts, err := f.svc.ListCarts(ctx, accountant, repository.CartFilter{})
	require.NoError(t, err)
	require.Len(t, carts, 1)
	assert.Equal(t, cart.ID, carts[0].ID)

	_, err = f.svc.GetCustomerCart(ctx, admin)
	assert.True(t, domain.IsForbidden(err))
}

func TestCartStatusHasNoEnforcedOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})
	product := f.seedColorProduct(t, "F-100")
	out, err := f.svc.SubmitPublicCart(ctx, PublicCartInput{
		CustomerName:  "Guest",
		CustomerPhone: "0912000009",
		Items: []CartItemInput{
			{ProductID: product.ID, Quantity: 1, Price: 1000, Selection: domain.Selection{SelectedColor: ptr("red")}},
		},
	})
	require.NoError(t, err)
	id := out.ID

	for _, status := range []domain.CartStatus{domain.CartRejected, domain.CartPending, domain.CartApproved, domain.CartReviewed} {
		cart, err := f.svc.UpdateCartStatus(ctx, accountant, id, status)
		require.NoError(t, err)
		assert.Equal(t, status, cart.Status)
	}

	_, err = f.svc.UpdateCartStatus(ctx, accountant, id, "shipped")
	assert.Equal(t, "status", validationErr(t, err).Field)

	_, err = f.svc.UpdateCartStatus(ctx, warehouse, id, domain.CartApproved)
	assert.True(t, domain.IsForbidden(err))

	stats, err := f.svc.CartStats(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalOrders)
	assert.Equal(t, 1000.0, stats.TotalAmount)
	assert.Equal(t, 1, stats.StatusBreakdown[domain.CartReviewed])

	require.NoError(t, f.svc.DeleteCart(ctx, admin, id))
	_, err = f.svc.GetCart(ctx, admin, id)
	assert.True(t, domain.IsNotFound(err))
}

func mapKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
