package service

import (
	"context"
	"log/slog"

	"github.com/fjod/acp-checkout/domain"
	"github.com/fjod/acp-checkout/internal/payment/paypal"
)

// capture returns the payment for token, reusing a capture already recorded
// on the session. A new capture is persisted before the caller moves on.
func (s *CheckoutServiceImpl) capture(ctx context.Context, sess *domain.Session, token string) (*domain.PaymentRecord, error) {
	if p := sess.Payment; p != nil {
		if p.Matches(token) {
			s.log.InfoContext(ctx, "reusing recorded capture", slog.String("session_id", sess.ID))
			return p, nil
		}
		if p.Paid && !p.Refunded {
			return nil, domain.Conflict("A payment was already captured for this session")
		}
	}

	var c *paypal.Capture
	err := s.upstreamCall(ctx, "Payment capture", func(ctx context.Context) error {
		var err error
		c, err = s.payments.CapturePayment(ctx, token)
		return err
	})
	if err != nil {
		return nil, err
	}

	record := &domain.PaymentRecord{
		TokenHash:  domain.HashToken(token),
		Status:     c.Status,
		CaptureID:  c.CaptureID,
		Paid:       c.Paid(),
		CapturedAt: s.now(),
	}
	sess.Payment = record
	if err := s.save(ctx, sess); err != nil {
		// the capture happened; make sure it is not lost silently
		s.log.ErrorContext(ctx, "failed to record payment capture",
			slog.String("session_id", sess.ID), slog.String("capture_id", c.CaptureID), slog.Any("error", err))
		return nil, err
	}
	if !record.Paid {
		s.log.WarnContext(ctx, "capture not completed, order will be pending",
			slog.String("session_id", sess.ID), slog.String("status", c.Status))
	}
	return record, nil
}

// refund reverses a recorded capture that never became an order. The refund
// is persisted before the caller moves on, so a retry never refunds twice.
func (s *CheckoutServiceImpl) refund(ctx context.Context, sess *domain.Session) error {
	p := sess.Payment
	if p == nil || !p.Paid || p.Refunded || p.CaptureID == "" {
		return nil
	}
	err := s.upstreamCall(ctx, "Payment refund", func(ctx context.Context) error {
		return s.payments.RefundCapture(ctx, p.CaptureID)
	})
	if err != nil {
		return err
	}
	p.Refunded = true
	if err := s.save(ctx, sess); err != nil {
		s.log.ErrorContext(ctx, "failed to record payment refund",
			slog.String("session_id", sess.ID), slog.String("capture_id", p.CaptureID), slog.Any("error", err))
		return err
	}
	s.log.InfoContext(ctx, "captured payment refunded",
		slog.String("session_id", sess.ID), slog.String("capture_id", p.CaptureID))
	return nil
}
