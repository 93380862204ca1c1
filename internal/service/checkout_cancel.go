package service

import (
	"context"
	"log/slog"

	"github.com/fjod/acp-checkout/domain"
	"github.com/fjod/acp-checkout/internal/publisher"
)

// Cancel compensates upstream first: the order is cancelled, or a capture
// without an order is refunded. The session is marked cancelled only after.
func (s *CheckoutServiceImpl) Cancel(ctx context.Context, req *domain.CancelCheckoutRequest) (resp *domain.CancelCheckoutResponse, err error) {
	ctx, end := s.begin(ctx, "cancel", req.SessionID)
	defer func() { end(err) }()

	unlock := s.locks.lock(req.SessionID)
	defer unlock()

	sess, err := s.load(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	switch sess.Status {
	case domain.CheckoutStatusCompleted:
		return nil, domain.Conflict("Cannot cancel a completed session")
	case domain.CheckoutStatusCancelled:
		return cancelledResponse(sess), nil
	}
	if !domain.CanTransitionTo(sess.Status, domain.CheckoutStatusCancelled) {
		return nil, illegalTransition(sess.Status, domain.CheckoutStatusCancelled)
	}

	if sess.OrderID != "" {
		err := s.upstreamCall(ctx, "Order cancellation", func(ctx context.Context) error {
			return s.orders.CancelOrder(ctx, sess.OrderID)
		})
		if err != nil {
			return nil, err
		}
	} else if err := s.refund(ctx, sess); err != nil {
		return nil, err
	}

	sess.Status = domain.CheckoutStatusCancelled
	sess.CancelReason = req.Reason
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "checkout cancelled", slog.String("session_id", sess.ID), slog.String("reason", req.Reason))
	s.publish(ctx, publisher.EventCheckoutCancelled, sess)
	return cancelledResponse(sess), nil
}

func cancelledResponse(sess *domain.Session) *domain.CancelCheckoutResponse {
	return &domain.CancelCheckoutResponse{SessionID: sess.ID, Status: domain.CheckoutStatusCancelled}
}
