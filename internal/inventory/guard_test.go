package inventory

import (
	"context"
	"errors"
	"testing"

	"github.com/fjod/acp-checkout/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChecker struct {
	stock map[int64]*int64
	err   error
	calls []int64
}

func (s *stubChecker) CheckAvailability(_ context.Context, variantID, _ int64) (Availability, error) {
	s.calls = append(s.calls, variantID)
	if s.err != nil {
		return Availability{}, s.err
	}
	q, ok := s.stock[variantID]
	return Availability{Available: !ok || q == nil || *q > 0, AvailableQuantity: q}, nil
}

func qty(n int64) *int64 { return &n }

func TestGuard_Validate(t *testing.T) {
	checker := &stubChecker{stock: map[int64]*int64{
		1: qty(10),
		2: qty(1),
		3: nil,
	}}
	g := NewGuard(checker)

	t.Run("enough stock", func(t *testing.T) {
		err := g.Validate(context.Background(), []domain.CheckoutItem{{SKU: "A", VariantID: 1, Quantity: 10}})
		assert.NoError(t, err)
	})

	t.Run("unknown stock counts as available", func(t *testing.T) {
		err := g.Validate(context.Background(), []domain.CheckoutItem{{SKU: "C", VariantID: 3, Quantity: 500}})
		assert.NoError(t, err)
	})

	t.Run("shortfall names the sku", func(t *testing.T) {
		err := g.Validate(context.Background(), []domain.CheckoutItem{{SKU: "B", VariantID: 2, Quantity: 5}})
		require.Error(t, err)
		assert.True(t, domain.IsKind(err, domain.KindConflict))
		assert.Contains(t, err.Error(), "B")
	})

	t.Run("shortfall without a reference names the variant", func(t *testing.T) {
		err := g.Validate(context.Background(), []domain.CheckoutItem{{VariantID: 2, Quantity: 5}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "variant 2")
	})
}

func TestGuard_StopsAtFirstShortfall(t *testing.T) {
	checker := &stubChecker{stock: map[int64]*int64{1: qty(0), 2: qty(100)}}
	g := NewGuard(checker)

	err := g.Validate(context.Background(), []domain.CheckoutItem{
		{SKU: "A", VariantID: 1, Quantity: 1},
		{SKU: "B", VariantID: 2, Quantity: 1},
	})

	require.Error(t, err)
	assert.Equal(t, []int64{1}, checker.calls)
}

func TestGuard_CheckerFailureIsUpstream(t *testing.T) {
	g := NewGuard(&stubChecker{err: errors.New("dial tcp: refused")})

	err := g.Validate(context.Background(), []domain.CheckoutItem{{SKU: "A", VariantID: 1, Quantity: 1}})

	assert.True(t, domain.IsKind(err, domain.KindUpstream))
}
