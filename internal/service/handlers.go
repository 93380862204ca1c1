package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fjod/acp-checkout/domain"
	"github.com/fjod/acp-checkout/internal/inventory"
	"github.com/fjod/acp-checkout/internal/pricing"
	"github.com/fjod/acp-checkout/internal/store"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// upstreamCall runs fn under the per-call timeout. Timeouts and untyped
// failures come back as upstream errors.
func (s *CheckoutServiceImpl) upstreamCall(ctx context.Context, what string, fn func(ctx context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	err := fn(callCtx)
	if err == nil {
		return nil
	}
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return domain.Upstream(what+" timed out", map[string]any{"reason": "timeout"}, err)
	}
	if domain.KindOf(err) == domain.KindInternal {
		return domain.Upstream(what+" failed", nil, err)
	}
	return err
}

// resolveItems resolves every item in order and stops at the first failure.
func (s *CheckoutServiceImpl) resolveItems(ctx context.Context, items []domain.ItemRequest) ([]domain.CheckoutItem, error) {
	if len(items) == 0 {
		return nil, domain.BadRequest("At least one item is required")
	}
	out := make([]domain.CheckoutItem, 0, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, domain.BadRequest("Item quantity must be a positive integer")
		}

		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		resolved, err := s.resolver.ResolveVariant(callCtx, item)
		timedOut := errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil
		cancel()
		if err != nil {
			if timedOut {
				return nil, domain.Upstream("Variant lookup timed out", map[string]any{"reason": "timeout"}, err)
			}
			return nil, err
		}
		out = append(out, resolved)
	}
	return out, nil
}

// price totals items, reporting an unrepresentable total as a bad request.
func price(items []domain.CheckoutItem, option domain.ShippingOption) (domain.Totals, error) {
	totals, err := pricing.Calculate(items, option)
	if errors.Is(err, pricing.ErrAmountOverflow) {
		return totals, &domain.Error{Kind: domain.KindBadRequest, Message: "Order total exceeds the supported amount", Err: err}
	}
	return totals, err
}

// illegalTransition reports a status change the state machine forbids.
func illegalTransition(from, to domain.CheckoutStatus) error {
	return &domain.Error{
		Kind:    domain.KindConflict,
		Message: fmt.Sprintf("Session cannot move from %s to %s", from, to),
		Err:     IllegalTransitionError,
	}
}

func requests(items []domain.CheckoutItem) []domain.ItemRequest {
	out := make([]domain.ItemRequest, len(items))
	for i, item := range items {
		out[i] = domain.ItemRequest{SKU: item.SKU, ProductID: item.ProductID, Quantity: item.Quantity}
	}
	return out
}

// timedChecker bounds every availability lookup with the upstream timeout.
type timedChecker struct {
	checker inventory.AvailabilityChecker
	timeout time.Duration
}

func (c *timedChecker) CheckAvailability(ctx context.Context, variantID, quantity int64) (inventory.Availability, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	avail, err := c.checker.CheckAvailability(callCtx, variantID, quantity)
	if err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return avail, domain.Upstream("Inventory check timed out", map[string]any{"reason": "timeout"}, err)
	}
	return avail, err
}

// begin opens a span for operation and returns the func that records the outcome.
func (s *CheckoutServiceImpl) begin(ctx context.Context, operation, sessionID string) (context.Context, func(error)) {
	started := s.now()
	ctx, span := s.tracer.Start(ctx, "checkout."+operation, trace.WithAttributes(
		attribute.String("checkout.session_id", sessionID),
	))
	return ctx, func(err error) {
		outcome := "ok"
		if err != nil {
			outcome = string(domain.KindOf(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		}
		span.End()
		if s.metrics != nil {
			s.metrics.ObserveOperation(operation, outcome, started)
		}
	}
}

// publish enqueues a lifecycle event. Failures are logged only.
func (s *CheckoutServiceImpl) publish(ctx context.Context, eventType string, sess *domain.Session) {
	if s.events == nil {
		return
	}
	payload := map[string]any{
		"sessionId":  sess.ID,
		"status":     sess.Status,
		"orderId":    sess.OrderID,
		"currency":   sess.Currency,
		"total":      sess.Total,
		"reason":     sess.CancelReason,
		"occurredAt": sess.UpdatedAt,
	}
	if err := s.events.Enqueue(ctx, sess.ID, eventType, payload); err != nil {
		s.log.WarnContext(ctx, "failed to enqueue checkout event",
			slog.String("session_id", sess.ID), slog.String("event", eventType), slog.Any("error", err))
	}
}

func (s *CheckoutServiceImpl) load(ctx context.Context, id string) (*domain.Session, error) {
	sess, err := s.store.Get(ctx, id)
	if errors.Is(err, store.ErrSessionNotFound) {
		return nil, domain.BadRequest("Invalid sessionId")
	}
	if err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *CheckoutServiceImpl) save(ctx context.Context, sess *domain.Session) error {
	sess.UpdatedAt = s.now()
	return s.store.Set(ctx, sess)
}
