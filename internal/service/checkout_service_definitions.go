package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/fjod/acp-checkout/domain"
	"github.com/fjod/acp-checkout/internal/commerce/shopify"
	"github.com/fjod/acp-checkout/internal/inventory"
	"github.com/fjod/acp-checkout/internal/payment/paypal"
	"github.com/fjod/acp-checkout/internal/store"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const DefaultUpstreamTimeout = 10 * time.Second

type CheckoutService interface {
	Create(ctx context.Context, req *domain.CreateCheckoutRequest) (*domain.CheckoutResponse, error)
	Update(ctx context.Context, req *domain.UpdateCheckoutRequest) (*domain.CheckoutResponse, error)
	Complete(ctx context.Context, req *domain.CompleteCheckoutRequest) (*domain.CompleteCheckoutResponse, error)
	Cancel(ctx context.Context, req *domain.CancelCheckoutRequest) (*domain.CancelCheckoutResponse, error)
	Sessions(ctx context.Context) ([]*domain.Session, error)
}

// Resolver maps a client line item onto a priced catalog item.
type Resolver interface {
	ResolveVariant(ctx context.Context, item domain.ItemRequest) (domain.CheckoutItem, error)
}

type PaymentProcessor interface {
	CapturePayment(ctx context.Context, token string) (*paypal.Capture, error)
	RefundCapture(ctx context.Context, captureID string) error
}

type OrderManager interface {
	CreateOrder(ctx context.Context, req shopify.OrderRequest) (*shopify.Order, error)
	CancelOrder(ctx context.Context, orderID string) error
}

// EventSink receives lifecycle events after a session reaches a terminal state.
type EventSink interface {
	Enqueue(ctx context.Context, aggregateID, eventType string, payload any) error
}

type Observer interface {
	ObserveOperation(operation, outcome string, started time.Time)
}

type Dependencies struct {
	Store     store.SessionStore
	Resolver  Resolver
	Inventory inventory.AvailabilityChecker
	Payments  PaymentProcessor
	Orders    OrderManager
	Events    EventSink
	Metrics   Observer
	Logger    *slog.Logger
	Currency  string
	Timeout   time.Duration
}

type CheckoutServiceImpl struct {
	store    store.SessionStore
	resolver Resolver
	guard    *inventory.Guard
	payments PaymentProcessor
	orders   OrderManager
	events   EventSink
	metrics  Observer
	log      *slog.Logger
	tracer   trace.Tracer
	currency string
	timeout  time.Duration
	locks    *sessionLocks
	now      func() time.Time
}

func NewCheckoutService(deps Dependencies) *CheckoutServiceImpl {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Timeout <= 0 {
		deps.Timeout = DefaultUpstreamTimeout
	}
	if deps.Currency == "" {
		deps.Currency = store.DefaultCurrency
	}
	s := &CheckoutServiceImpl{
		store:    deps.Store,
		resolver: deps.Resolver,
		payments: deps.Payments,
		orders:   deps.Orders,
		events:   deps.Events,
		metrics:  deps.Metrics,
		log:      deps.Logger,
		tracer:   otel.Tracer("github.com/fjod/acp-checkout/internal/service"),
		currency: deps.Currency,
		timeout:  deps.Timeout,
		locks:    newSessionLocks(),
		now:      time.Now,
	}
	s.guard = inventory.NewGuard(&timedChecker{checker: deps.Inventory, timeout: deps.Timeout})
	return s
}
