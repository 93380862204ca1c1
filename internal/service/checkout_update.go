package service

import (
	"context"

	"github.com/fjod/acp-checkout/domain"
)

// Update applies the supplied fields to a working copy. The stored session is
// replaced only once the whole item set resolves and passes inventory.
func (s *CheckoutServiceImpl) Update(ctx context.Context, req *domain.UpdateCheckoutRequest) (resp *domain.CheckoutResponse, err error) {
	ctx, end := s.begin(ctx, "update", req.SessionID)
	defer func() { end(err) }()

	if req.ShippingOption != "" && !req.ShippingOption.IsValid() {
		return nil, domain.BadRequest("Invalid shippingOption")
	}

	unlock := s.locks.lock(req.SessionID)
	defer unlock()

	sess, err := s.load(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if !sess.Status.IsMutable() {
		return nil, domain.Conflict("Session cannot be updated")
	}
	// the captured amount is fixed; changing the cart now would order unpaid items
	if p := sess.Payment; p != nil && p.Paid && !p.Refunded {
		return nil, domain.Conflict("Session has a captured payment and cannot be updated")
	}

	working := sess.Clone()
	refs := requests(working.Items)
	if len(req.Items) > 0 {
		refs = req.Items
	}
	if req.ShippingAddress != nil {
		addr := *req.ShippingAddress
		working.ShippingAddress = &addr
	}
	if req.ShippingOption != "" {
		working.ShippingOption = req.ShippingOption
	}

	items, err := s.resolveItems(ctx, refs)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Validate(ctx, items); err != nil {
		return nil, err
	}
	totals, err := price(items, working.ShippingOption)
	if err != nil {
		return nil, err
	}
	working.Items = items
	working.ApplyTotals(totals)

	if err := s.save(ctx, working); err != nil {
		return nil, err
	}
	return domain.NewCheckoutResponse(working), nil
}
