package sales

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gitlab.connectwisedev.com/paint-service/models"
	"gitlab.connectwisedev.com/paint-service/pkg/auth"
	"gitlab.connectwisedev.com/paint-service/pkg/dates"
	"gitlab.connectwisedev.com/paint-service/pkg/store"
)

var saleTime = time.Date(2024, time.March, 15, 14, 30, 0, 0, time.UTC)

type memBatches map[int64]models.Batch

func (m memBatches) Get(_ context.Context, id int64) (models.Batch, error) {
	b, ok := m[id]
	if !ok {
		return models.Batch{}, fmt.Errorf("batch %d: %w", id, store.ErrNotFound)
	}
	return b, nil
}

func (m memBatches) List(context.Context) ([]models.Batch, error) {
	var out []models.Batch
	for _, b := range m {
		out = append(out, b)
	}
	return out, nil
}

type memLedger struct {
	sales    []models.Sale
	taken    map[string]bool
	batches  memBatches
	recorded int
}

func (l *memLedger) Record(_ context.Context, sale models.Sale) error {
	if l.taken[sale.Reference] {
		return fmt.Errorf("sale reference %s: %w", sale.Reference, store.ErrDuplicateCode)
	}
	for _, it := range sale.Items {
		b := l.batches[it.ProductID]
		b.Quantity -= it.Quantity
		l.batches[it.ProductID] = b
	}
	l.taken[sale.Reference] = true
	l.sales = append(l.sales, sale)
	l.recorded++
	return nil
}

func (l *memLedger) List(context.Context) ([]models.Sale, error) { return l.sales, nil }

func (l *memLedger) Clear(context.Context) (int64, error) {
	n := int64(len(l.sales))
	l.sales = nil
	return n, nil
}

type refQueue struct {
	refs  []string
	calls int
}

func (r *refQueue) MintSaleReference(context.Context, time.Time) string {
	ref := r.refs[r.calls%len(r.refs)]
	r.calls++
	return ref
}

type countingCache struct{ n int }

func (c *countingCache) Invalidate(context.Context) error {
	c.n++
	return nil
}

func fixture() (memBatches, *memLedger) {
	exp := dates.Date(2024, time.March, 10)
	batches := memBatches{
		1: {ID: 1, Code: "031524001", Name: "Flat Latex", Brand: "Boysen", Type: "Latex", UnitPrice: decimal.RequireFromString("450.00"), Quantity: 10},
		2: {ID: 2, Code: "031524002", Name: "Primer", Brand: "Davies", Type: "", UnitPrice: decimal.RequireFromString("120.50"), Quantity: 2},
		3: {ID: 3, Code: "030124001", Name: "Old Enamel", Brand: "Boysen", Type: "Enamel", UnitPrice: decimal.RequireFromString("300"), Quantity: 5, ExpirationDate: &exp},
	}
	return batches, &memLedger{taken: map[string]bool{}, batches: batches}
}

func newService(b Batches, l Ledger, refs ReferenceMinter, opts ...Option) *Service {
	opts = append([]Option{WithClock(func() time.Time { return saleTime })}, opts...)
	return NewService(b, l, refs, zap.NewNop(), opts...)
}

func TestCheckout(t *testing.T) {
	batches, ledger := fixture()
	c := &countingCache{}
	svc := newService(batches, ledger, &refQueue{refs: []string{"031524001"}}, WithCache(c))

	receipt, err := svc.Checkout(context.Background(), []CartItem{
		{ProductID: 1, Quantity: 2},
		{ProductID: 2, Quantity: 1},
		{ProductID: 1, Quantity: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, "031524001", receipt.Sale.Reference)
	require.Len(t, receipt.Sale.Items, 2)
	assert.Equal(t, 3, receipt.Sale.Items[0].Quantity)
	assert.Equal(t, "Flat Latex", receipt.Sale.Items[0].Name)
	assert.Equal(t, "1470.5", receipt.Totals.Total.String())
	assert.Equal(t, "1312.95", receipt.Totals.VATable.String())
	assert.Equal(t, "157.55", receipt.Totals.VAT.String())
	assert.Equal(t, 7, batches[1].Quantity)
	assert.Equal(t, 1, c.n)
}

func TestCheckoutRejects(t *testing.T) {
	tests := []struct {
		name string
		cart []CartItem
		want error
	}{
		{"empty cart", nil, ErrEmptyCart},
		{"zero quantity", []CartItem{{ProductID: 1, Quantity: 0}}, ErrBadQuantity},
		{"unknown batch", []CartItem{{ProductID: 42, Quantity: 1}}, store.ErrNotFound},
		{"expired batch", []CartItem{{ProductID: 3, Quantity: 1}}, ErrNotSellable},
		{"over stock", []CartItem{{ProductID: 2, Quantity: 3}}, store.ErrInsufficientStock},
		{"merged lines over stock", []CartItem{{ProductID: 2, Quantity: 2}, {ProductID: 2, Quantity: 1}}, store.ErrInsufficientStock},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batches, ledger := fixture()
			svc := newService(batches, ledger, &refQueue{refs: []string{"031524001"}})
			_, err := svc.Checkout(context.Background(), tt.cart)
			assert.ErrorIs(t, err, tt.want)
			assert.Zero(t, ledger.recorded)
		})
	}
}

func TestCheckoutRetriesReference(t *testing.T) {
	batches, ledger := fixture()
	ledger.taken["031524001"] = true
	refs := &refQueue{refs: []string{"031524001", "031524002"}}
	svc := newService(batches, ledger, refs)

	receipt, err := svc.Checkout(context.Background(), []CartItem{{ProductID: 1, Quantity: 1}})
	require.NoError(t, err)
	assert.Equal(t, "031524002", receipt.Sale.Reference)
	assert.Equal(t, 2, refs.calls)
}

func TestCheckoutGivesUpOnReference(t *testing.T) {
	batches, ledger := fixture()
	ledger.taken["031524001"] = true
	refs := &refQueue{refs: []string{"031524001"}}
	svc := newService(batches, ledger, refs, WithRetryLimit(2))

	_, err := svc.Checkout(context.Background(), []CartItem{{ProductID: 1, Quantity: 1}})
	assert.ErrorIs(t, err, store.ErrDuplicateCode)
	assert.Equal(t, 2, refs.calls)
}

func TestComputeTotals(t *testing.T) {
	items := []models.SaleItem{{UnitPrice: decimal.RequireFromString("112"), Quantity: 1}}
	got := ComputeTotals(items, DefaultVATRate)
	assert.Equal(t, "112", got.Subtotal.String())
	assert.Equal(t, "100", got.VATable.String())
	assert.Equal(t, "12", got.VAT.String())
	assert.True(t, got.VATExempt.IsZero())

	empty := ComputeTotals(nil, DefaultVATRate)
	assert.True(t, empty.Total.IsZero())
	assert.True(t, empty.VAT.IsZero())
}

func TestClearAll(t *testing.T) {
	batches, ledger := fixture()
	ledger.sales = []models.Sale{{Reference: "a"}, {Reference: "b"}}
	svc := newService(batches, ledger, &refQueue{refs: []string{"x"}})

	_, err := svc.ClearAll(context.Background(), auth.Session{User: "clerk"})
	assert.ErrorIs(t, err, auth.ErrUnauthorized)

	n, err := svc.ClearAll(context.Background(), auth.Session{User: "owner", Admin: true})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Empty(t, ledger.sales)
}
