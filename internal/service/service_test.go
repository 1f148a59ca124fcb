package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"fabricstore/internal/auth"
	"fabricstore/internal/blob"
	"fabricstore/internal/domain"
	"fabricstore/internal/logging"
	"fabricstore/internal/repository"
)

var (
	admin      = domain.Principal{ID: 1, Role: domain.RoleAdmin}
	accountant = domain.Principal{ID: 2, Role: domain.RoleAccountant}
	warehouse  = domain.Principal{ID: 3, Role: domain.RoleWarehouse}
)

// 2025-06-01 falls in solar year 1404.
var fixedNow = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

type fixture struct {
	store *fakeStore
	svc   *Service
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	blobs, err := blob.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	store := newFakeStore()
	svc := New(store, blobs, auth.NewTokenIssuer("test-secret", time.Hour), logging.Discard(), opts)
	svc.now = func() time.Time { return fixedNow }
	return &fixture{store: store, svc: svc}
}

func ptr[T any](v T) *T { return &v }

func (f *fixture) seedCustomer(t *testing.T, firstName, phone string) domain.Customer {
	t.Helper()
	var created domain.Customer
	require.NoError(t, f.store.InTx(context.Background(), func(tx repository.Tx) error {
		var err error
		created, err = tx.CreateCustomer(context.Background(), domain.Customer{FirstName: firstName, Phone: phone})
		return err
	}))
	return created
}

func (f *fixture) seedProduct(t *testing.T, code string, fields domain.VariantFields) domain.Product {
	t.Helper()
	variant, err := fields.Build()
	require.NoError(t, err)
	var created domain.Product
	require.NoError(t, f.store.InTx(context.Background(), func(tx repository.Tx) error {
		created, err = tx.CreateProduct(context.Background(), domain.Product{
			Code:        code,
			Name:        "fabric " + code,
			Unit:        "meter",
			SalePrice:   350000,
			IsAvailable: true,
			Visible:     true,
			Images:      []string{},
			Variant:     variant,
		})
		return err
	}))
	return created
}

func (f *fixture) seedColorProduct(t *testing.T, code string) domain.Product {
	return f.seedProduct(t, code, domain.VariantFields{
		AvailableColors: []string{"red", "blue"},
		ColorInventory:  []float64{20, 10},
	})
}

func (f *fixture) seedSeriesProduct(t *testing.T, code string) domain.Product {
	return f.seedProduct(t, code, domain.VariantFields{
		IsSeries:        true,
		SeriesNumbers:   []int64{1, 2, 3},
		SeriesInventory: []int64{5, 5, 5},
	})
}

func (f *fixture) product(t *testing.T, id int64) domain.Product {
	t.Helper()
	p, ok := f.store.snapshot().products[id]
	require.True(t, ok)
	return p
}

func colorStock(t *testing.T, p domain.Product, color string) float64 {
	t.Helper()
	v, ok := p.Variant.(domain.ColorVariant)
	require.True(t, ok)
	stock, ok := v.Stock(color)
	require.True(t, ok)
	return stock
}

func seriesStock(t *testing.T, p domain.Product, number int64) int64 {
	t.Helper()
	v, ok := p.Variant.(domain.SeriesVariant)
	require.True(t, ok)
	stock, ok := v.Stock(number)
	require.True(t, ok)
	return stock
}

func validationErr(t *testing.T, err error) *domain.ValidationError {
	t.Helper()
	require.Error(t, err)
	verr, ok := err.(*domain.ValidationError)
	require.Truef(t, ok, "expected ValidationError, got %T: %v", err, err)
	return verr
}
