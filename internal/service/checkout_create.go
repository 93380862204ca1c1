package service

import (
	"context"
	"log/slog"

	"github.com/fjod/acp-checkout/domain"
	"github.com/fjod/acp-checkout/internal/pricing"
)

// Create resolves, validates and prices the items before anything is stored,
// so a failed create leaves no session behind.
func (s *CheckoutServiceImpl) Create(ctx context.Context, req *domain.CreateCheckoutRequest) (resp *domain.CheckoutResponse, err error) {
	ctx, end := s.begin(ctx, "create", "")
	defer func() { end(err) }()

	if req.ShippingOption != "" && !req.ShippingOption.IsValid() {
		return nil, domain.BadRequest("Invalid shippingOption")
	}

	items, err := s.resolveItems(ctx, req.Items)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Validate(ctx, items); err != nil {
		return nil, err
	}

	totals, err := price(items, req.ShippingOption)
	if err != nil {
		return nil, err
	}

	// a priced draft is ready for payment, so it is stored in one write
	if !domain.CanTransitionTo(domain.CheckoutStatusDraft, domain.CheckoutStatusAwaitingPayment) {
		return nil, illegalTransition(domain.CheckoutStatusDraft, domain.CheckoutStatusAwaitingPayment)
	}
	initial := &domain.Session{
		Items:           items,
		ShippingAddress: req.ShippingAddress,
		ShippingOption:  req.ShippingOption,
		Email:           req.Email,
		Currency:        s.currency,
		Status:          domain.CheckoutStatusAwaitingPayment,
	}
	initial.ApplyTotals(totals)

	sess, err := s.store.Create(ctx, initial)
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "checkout created",
		slog.String("session_id", sess.ID), slog.Int("items", len(sess.Items)), slog.Int64("total", sess.Total))

	resp = domain.NewCheckoutResponse(sess)
	resp.ShippingOptions = pricing.ShippingOptions()
	return resp, nil
}
