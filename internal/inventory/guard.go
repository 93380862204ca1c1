// Package inventory validates requested quantities against the commerce
// platform's stock. It never reserves anything.
package inventory

import (
	"context"
	"fmt"

	"github.com/fjod/acp-checkout/domain"
)

// Availability is what the platform reports for one variant. A nil
// AvailableQuantity means the platform does not track stock for it.
type Availability struct {
	Available         bool
	AvailableQuantity *int64
}

// Shortfall reports whether the availability cannot cover quantity.
// Unknown stock counts as enough.
func (a Availability) Shortfall(quantity int64) bool {
	return a.AvailableQuantity != nil && *a.AvailableQuantity < quantity
}

type AvailabilityChecker interface {
	CheckAvailability(ctx context.Context, variantID, quantity int64) (Availability, error)
}

type Guard struct {
	checker AvailabilityChecker
}

func NewGuard(checker AvailabilityChecker) *Guard {
	return &Guard{checker: checker}
}

// Validate checks items in order and stops at the first shortfall.
func (g *Guard) Validate(ctx context.Context, items []domain.CheckoutItem) error {
	for _, item := range items {
		avail, err := g.checker.CheckAvailability(ctx, item.VariantID, item.Quantity)
		if err != nil {
			if domain.KindOf(err) != domain.KindInternal {
				return err
			}
			return domain.Upstream("inventory check failed", nil, err)
		}
		if avail.Shortfall(item.Quantity) {
			return domain.Conflict(fmt.Sprintf("insufficient inventory for %s", itemName(item)))
		}
	}
	return nil
}

func itemName(item domain.CheckoutItem) string {
	if ref := item.Ref(); ref != "" {
		return ref
	}
	return fmt.Sprintf("variant %d", item.VariantID)
}
