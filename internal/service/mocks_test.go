package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fjod/acp-checkout/domain"
	"github.com/fjod/acp-checkout/internal/commerce/shopify"
	"github.com/fjod/acp-checkout/internal/inventory"
	"github.com/fjod/acp-checkout/internal/payment/paypal"
	"github.com/fjod/acp-checkout/internal/store"
)

// MockResolver resolves skus from a fixed price list.
type MockResolver struct {
	mu       sync.Mutex
	Prices   map[string]int64
	Variants map[string]int64
	Err      error
	Delay    time.Duration
	Calls    int
}

func (m *MockResolver) ResolveVariant(ctx context.Context, item domain.ItemRequest) (domain.CheckoutItem, error) {
	m.mu.Lock()
	m.Calls++
	m.mu.Unlock()

	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return domain.CheckoutItem{}, ctx.Err()
		}
	}
	if m.Err != nil {
		return domain.CheckoutItem{}, m.Err
	}
	if item.SKU == "" && item.ProductID == "" {
		return domain.CheckoutItem{}, domain.BadRequest("Each item must include sku or resolvable productId")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	price, ok := m.Prices[item.SKU]
	if !ok {
		return domain.CheckoutItem{}, domain.NotFound(fmt.Sprintf("SKU %s not mapped to Shopify variant", item.SKU))
	}
	return domain.CheckoutItem{
		SKU:       item.SKU,
		Quantity:  item.Quantity,
		VariantID: m.Variants[item.SKU],
		UnitPrice: price,
		Title:     item.SKU,
	}, nil
}

func (m *MockResolver) SetPrice(sku string, price int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Prices[sku] = price
}

// MockInventory reports stock per variant; missing variants are untracked.
type MockInventory struct {
	mu    sync.Mutex
	Stock map[int64]int64
	Err   error
	Calls int
}

func (m *MockInventory) CheckAvailability(_ context.Context, variantID, quantity int64) (inventory.Availability, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	if m.Err != nil {
		return inventory.Availability{}, m.Err
	}
	q, ok := m.Stock[variantID]
	if !ok {
		return inventory.Availability{Available: true}, nil
	}
	return inventory.Availability{Available: q >= quantity, AvailableQuantity: &q}, nil
}

func (m *MockInventory) SetStock(variantID, quantity int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Stock[variantID] = quantity
}

type MockPayments struct {
	mu          sync.Mutex
	Status      string
	CaptureErr  error
	RefundErr   error
	Block       chan struct{}
	CaptureCall int
	RefundCall  int
	Tokens      []string
	Refunded    []string
}

func (m *MockPayments) CapturePayment(ctx context.Context, token string) (*paypal.Capture, error) {
	m.mu.Lock()
	m.CaptureCall++
	m.Tokens = append(m.Tokens, token)
	block := m.Block
	m.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.CaptureErr != nil {
		return nil, m.CaptureErr
	}
	status := m.Status
	if status == "" {
		status = paypal.StatusComplete
	}
	return &paypal.Capture{OrderID: token, Status: status, CaptureID: "CAP-" + token}, nil
}

func (m *MockPayments) RefundCapture(_ context.Context, captureID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RefundCall++
	if m.RefundErr != nil {
		return m.RefundErr
	}
	m.Refunded = append(m.Refunded, captureID)
	return nil
}

func (m *MockPayments) captures() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CaptureCall
}

type MockOrders struct {
	mu         sync.Mutex
	CreateErr  error
	CancelErr  error
	Created    []shopify.OrderRequest
	Cancelled  []string
	nextID     int
	CancelCall int
}

func (m *MockOrders) CreateOrder(_ context.Context, req shopify.OrderRequest) (*shopify.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	m.nextID++
	m.Created = append(m.Created, req)
	return &shopify.Order{ID: fmt.Sprintf("%d", 450789468+m.nextID)}, nil
}

func (m *MockOrders) CancelOrder(_ context.Context, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CancelCall++
	if m.CancelErr != nil {
		return m.CancelErr
	}
	m.Cancelled = append(m.Cancelled, orderID)
	return nil
}

type recordedEvent struct {
	AggregateID string
	EventType   string
}

type MockEvents struct {
	mu     sync.Mutex
	Events []recordedEvent
	Err    error
}

func (m *MockEvents) Enqueue(_ context.Context, aggregateID, eventType string, _ any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Events = append(m.Events, recordedEvent{aggregateID, eventType})
	return nil
}

type MockObserver struct {
	mu       sync.Mutex
	Outcomes map[string][]string
}

func (m *MockObserver) ObserveOperation(operation, outcome string, _ time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Outcomes == nil {
		m.Outcomes = map[string][]string{}
	}
	m.Outcomes[operation] = append(m.Outcomes[operation], outcome)
}

// FailingStore wraps a store and fails Set once SetErr is non-nil.
type FailingStore struct {
	store.SessionStore
	mu     sync.Mutex
	SetErr error
	allow  int
}

// FailSetsAfter lets the next n writes through, then fails every write with err.
func (f *FailingStore) FailSetsAfter(n int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.allow = n
	f.SetErr = err
}

func (f *FailingStore) Set(ctx context.Context, s *domain.Session) error {
	f.mu.Lock()
	if f.SetErr != nil {
		if f.allow == 0 {
			err := f.SetErr
			f.mu.Unlock()
			return err
		}
		f.allow--
	}
	f.mu.Unlock()
	return f.SessionStore.Set(ctx, s)
}

var errUpstreamDown = domain.Upstream("Failed to create Shopify order", map[string]any{"status": 502}, errors.New("bad gateway"))
