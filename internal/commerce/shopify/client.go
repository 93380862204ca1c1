// Package shopify talks to the Shopify Admin REST API: variant lookup,
// availability, order creation and cancellation, product listing.
package shopify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/acp-checkout/domain"
	"github.com/fjod/acp-checkout/internal/inventory"
	"github.com/fjod/acp-checkout/internal/upstream"
	"github.com/shopspring/decimal"
)

const (
	APIVersion  = "2023-10"
	tokenHeader = "X-Shopify-Access-Token"
	system      = "shopify"
)

var ErrVariantNotFound = errors.New("shopify variant not found")

type Config struct {
	Shop        string
	AccessToken string
	// BaseURL overrides https://<shop>/admin/api/<version>.
	BaseURL   string
	Timeout   time.Duration
	Transport http.RoundTripper
	Observer  upstream.Observer
	Logger    *slog.Logger
}

type Client struct {
	http  *upstream.Client
	token string
}

func New(cfg Config) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = fmt.Sprintf("https://%s/admin/api/%s", cfg.Shop, APIVersion)
	}
	return &Client{
		token: cfg.AccessToken,
		http: upstream.New(upstream.Options{
			System:    system,
			BaseURL:   base,
			Timeout:   cfg.Timeout,
			Transport: cfg.Transport,
			Observer:  cfg.Observer,
			Logger:    cfg.Logger,
		}),
	}
}

// Variant is a product variant with its price in minor units.
type Variant struct {
	ID                int64
	ProductID         int64
	SKU               string
	Title             string
	Price             int64
	InventoryQuantity *int64
}

type LineItem struct {
	VariantID int64 `json:"variant_id"`
	Quantity  int64 `json:"quantity"`
}

type OrderRequest struct {
	LineItems       []LineItem
	Email           string
	ShippingAddress *domain.Address
	Paid            bool
}

type Order struct {
	ID   string
	Name string
}

type variantPayload struct {
	ID                int64  `json:"id"`
	ProductID         int64  `json:"product_id"`
	SKU               string `json:"sku"`
	Title             string `json:"title"`
	Name              string `json:"name"`
	Price             string `json:"price"`
	InventoryQuantity *int64 `json:"inventory_quantity"`
}

type shippingAddress struct {
	Address1 string `json:"address1"`
	Address2 string `json:"address2,omitempty"`
	City     string `json:"city"`
	Province string `json:"province,omitempty"`
	Zip      string `json:"zip"`
	Country  string `json:"country"`
}

type orderPayload struct {
	ID              int64            `json:"id,omitempty"`
	Name            string           `json:"name,omitempty"`
	Email           string           `json:"email,omitempty"`
	LineItems       []LineItem       `json:"line_items,omitempty"`
	ShippingAddress *shippingAddress `json:"shipping_address,omitempty"`
	FinancialStatus string           `json:"financial_status,omitempty"`
}

func (c *Client) header() http.Header {
	return http.Header{tokenHeader: []string{c.token}}
}

func (c *Client) GetVariant(ctx context.Context, variantID int64) (*Variant, error) {
	var out struct {
		Variant variantPayload `json:"variant"`
	}
	_, err := c.http.DoJSON(ctx, upstream.Request{
		Method: http.MethodGet,
		Path:   fmt.Sprintf("/variants/%d.json", variantID),
		Header: c.header(),
	}, &out)
	if err != nil {
		var se *upstream.StatusError
		if errors.As(err, &se) && se.Status == http.StatusNotFound {
			err = fmt.Errorf("variant %d: %w", variantID, ErrVariantNotFound)
		}
		return nil, domain.Upstream("Failed to fetch variant", upstream.Details(system, err), err)
	}
	return toVariant(out.Variant)
}

func toVariant(p variantPayload) (*Variant, error) {
	price, err := ParsePrice(p.Price)
	if err != nil {
		return nil, domain.Upstream("Failed to fetch variant", map[string]any{"system": system, "reason": "invalid price"}, err)
	}
	title := p.Title
	if title == "" {
		title = p.Name
	}
	return &Variant{
		ID:                p.ID,
		ProductID:         p.ProductID,
		SKU:               p.SKU,
		Title:             title,
		Price:             price,
		InventoryQuantity: p.InventoryQuantity,
	}, nil
}

// ParsePrice converts a decimal price string such as "19.99" to minor units.
func ParsePrice(price string) (int64, error) {
	if price == "" {
		return 0, errors.New("empty price")
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", price, err)
	}
	return d.Shift(2).Round(0).IntPart(), nil
}

// CheckAvailability reports stock for variantID. Variants without a tracked
// inventory_quantity come back with an unknown quantity.
func (c *Client) CheckAvailability(ctx context.Context, variantID, quantity int64) (inventory.Availability, error) {
	v, err := c.GetVariant(ctx, variantID)
	if err != nil {
		return inventory.Availability{}, err
	}
	avail := inventory.Availability{AvailableQuantity: v.InventoryQuantity}
	avail.Available = !avail.Shortfall(quantity)
	return avail, nil
}

// CreateOrder places an order marked paid or pending.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	status := "pending"
	if req.Paid {
		status = "paid"
	}
	body := struct {
		Order orderPayload `json:"order"`
	}{Order: orderPayload{
		Email:           req.Email,
		LineItems:       req.LineItems,
		ShippingAddress: toShippingAddress(req.ShippingAddress),
		FinancialStatus: status,
	}}

	var out struct {
		Order orderPayload `json:"order"`
	}
	_, err := c.http.DoJSON(ctx, upstream.Request{
		Method: http.MethodPost,
		Path:   "/orders.json",
		Header: c.header(),
		Body:   body,
	}, &out)
	if err != nil {
		return nil, domain.Upstream("Failed to create Shopify order", upstream.Details(system, err), err)
	}
	if out.Order.ID == 0 {
		err := errors.New("order response without id")
		return nil, domain.Upstream("Failed to create Shopify order", upstream.Details(system, err), err)
	}
	return &Order{ID: strconv.FormatInt(out.Order.ID, 10), Name: out.Order.Name}, nil
}

func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	_, err := c.http.Do(ctx, upstream.Request{
		Method: http.MethodPost,
		Path:   fmt.Sprintf("/orders/%s/cancel.json", orderID),
		Header: c.header(),
		Body:   struct{}{},
	})
	if err != nil {
		return domain.Upstream("Failed to cancel Shopify order", upstream.Details(system, err), err)
	}
	return nil
}

func toShippingAddress(a *domain.Address) *shippingAddress {
	if a == nil {
		return nil
	}
	return &shippingAddress{
		Address1: a.Line1,
		Address2: a.Line2,
		City:     a.City,
		Province: a.State,
		Zip:      a.PostalCode,
		Country:  a.Country,
	}
}
