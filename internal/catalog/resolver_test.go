package catalog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fjod/acp-checkout/domain"
	"github.com/fjod/acp-checkout/internal/commerce/shopify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapLookup map[string]Mapping

func (m mapLookup) BySKU(_ context.Context, sku string) (*Mapping, error) {
	if v, ok := m[sku]; ok {
		return &v, nil
	}
	return nil, ErrSkuNotMapped
}

func (m mapLookup) ByProductID(_ context.Context, productID string) (*Mapping, error) {
	for _, v := range m {
		if v.ProductID == productID {
			return &v, nil
		}
	}
	return nil, ErrSkuNotMapped
}

type fakeVariants struct {
	calls atomic.Int32
	delay time.Duration
	err   error
}

func (f *fakeVariants) GetVariant(_ context.Context, id int64) (*shopify.Variant, error) {
	f.calls.Add(1)
	time.Sleep(f.delay)
	if f.err != nil {
		return nil, f.err
	}
	return &shopify.Variant{ID: id, Title: "Blue Mug", Price: 1000}, nil
}

func TestResolveVariant_BySKU(t *testing.T) {
	r := NewResolver(mapLookup{"MUG": {SKU: "MUG", VariantID: 111}}, &fakeVariants{})

	item, err := r.ResolveVariant(context.Background(), domain.ItemRequest{SKU: "MUG", Quantity: 2})

	require.NoError(t, err)
	assert.Equal(t, domain.CheckoutItem{SKU: "MUG", Quantity: 2, VariantID: 111, UnitPrice: 1000, Title: "Blue Mug"}, item)
}

func TestResolveVariant_ByProductID(t *testing.T) {
	r := NewResolver(mapLookup{"MUG": {SKU: "MUG", VariantID: 111, ProductID: "7"}}, &fakeVariants{})

	item, err := r.ResolveVariant(context.Background(), domain.ItemRequest{ProductID: "7", Quantity: 1})

	require.NoError(t, err)
	assert.Equal(t, int64(111), item.VariantID)
	assert.Equal(t, "7", item.ProductID)
}

func TestResolveVariant_Errors(t *testing.T) {
	r := NewResolver(mapLookup{}, &fakeVariants{})

	_, err := r.ResolveVariant(context.Background(), domain.ItemRequest{Quantity: 1})
	assert.True(t, domain.IsKind(err, domain.KindBadRequest))

	_, err = r.ResolveVariant(context.Background(), domain.ItemRequest{SKU: "UNKNOWN", Quantity: 1})
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
	assert.Contains(t, err.Error(), "UNKNOWN")
}

func TestResolveVariant_UpstreamFailurePropagates(t *testing.T) {
	upstreamErr := domain.Upstream("Failed to fetch variant", nil, errors.New("502"))
	r := NewResolver(mapLookup{"MUG": {SKU: "MUG", VariantID: 111}}, &fakeVariants{err: upstreamErr})

	_, err := r.ResolveVariant(context.Background(), domain.ItemRequest{SKU: "MUG", Quantity: 1})

	assert.True(t, domain.IsKind(err, domain.KindUpstream))
}

func TestResolveVariant_ConcurrentLookupsShareFetch(t *testing.T) {
	variants := &fakeVariants{delay: 50 * time.Millisecond}
	r := NewResolver(mapLookup{"MUG": {SKU: "MUG", VariantID: 111}}, variants)

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := r.ResolveVariant(context.Background(), domain.ItemRequest{SKU: "MUG", Quantity: 1})
			assert.NoError(t, err)
		}()
	}
	close(start)
	wg.Wait()

	assert.Less(t, variants.calls.Load(), int32(8))
}
