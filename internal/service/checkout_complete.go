package service

import (
	"context"
	"log/slog"

	"github.com/fjod/acp-checkout/domain"
	"github.com/fjod/acp-checkout/internal/commerce/shopify"
	"github.com/fjod/acp-checkout/internal/publisher"
)

func (s *CheckoutServiceImpl) Complete(ctx context.Context, req *domain.CompleteCheckoutRequest) (resp *domain.CompleteCheckoutResponse, err error) {
	ctx, end := s.begin(ctx, "complete", req.SessionID)
	defer func() { end(err) }()

	unlock := s.locks.lock(req.SessionID)
	defer unlock()

	sess, err := s.load(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	switch sess.Status {
	case domain.CheckoutStatusCompleted:
		return completedResponse(sess), nil
	case domain.CheckoutStatusCancelled:
		return nil, domain.Conflict("Cannot complete a cancelled session")
	}
	if !domain.CanTransitionTo(sess.Status, domain.CheckoutStatusCompleted) {
		return nil, domain.Conflict("Session is not awaiting payment")
	}

	if err := s.guard.Validate(ctx, sess.Items); err != nil {
		return nil, err
	}

	payment, err := s.capture(ctx, sess, req.PaymentToken)
	if err != nil {
		return nil, err
	}

	if req.Email != "" {
		sess.Email = req.Email
	}
	var order *shopify.Order
	err = s.upstreamCall(ctx, "Order creation", func(ctx context.Context) error {
		var err error
		order, err = s.orders.CreateOrder(ctx, shopify.OrderRequest{
			LineItems:       lineItems(sess.Items),
			Email:           sess.Email,
			ShippingAddress: sess.ShippingAddress,
			Paid:            payment.Paid,
		})
		return err
	})
	if err != nil {
		s.log.ErrorContext(ctx, "order creation failed after capture",
			slog.String("session_id", sess.ID), slog.Bool("paid", payment.Paid), slog.Any("error", err))
		return nil, err
	}

	sess.OrderID = order.ID
	sess.Status = domain.CheckoutStatusCompleted
	if err := s.save(ctx, sess); err != nil {
		s.log.ErrorContext(ctx, "failed to persist completed session",
			slog.String("session_id", sess.ID), slog.String("order_id", order.ID), slog.Any("error", err))
		return nil, err
	}

	s.log.InfoContext(ctx, "checkout completed",
		slog.String("session_id", sess.ID), slog.String("order_id", order.ID), slog.Bool("paid", payment.Paid))
	s.publish(ctx, publisher.EventCheckoutCompleted, sess)
	return completedResponse(sess), nil
}

func completedResponse(sess *domain.Session) *domain.CompleteCheckoutResponse {
	return &domain.CompleteCheckoutResponse{
		OrderID:        sess.OrderID,
		ShopifyOrderID: sess.OrderID,
		Status:         domain.CheckoutStatusCompleted,
	}
}

func lineItems(items []domain.CheckoutItem) []shopify.LineItem {
	out := make([]shopify.LineItem, len(items))
	for i, item := range items {
		out[i] = shopify.LineItem{VariantID: item.VariantID, Quantity: item.Quantity}
	}
	return out
}
