package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

type ShippingOption string

const (
	ShippingStandard ShippingOption = "standard"
	ShippingExpress  ShippingOption = "express"
)

func (o ShippingOption) IsValid() bool {
	return o == ShippingStandard || o == ShippingExpress
}

// CheckoutItem is a line of a checkout session. VariantID, UnitPrice and Title
// are filled from the catalog, never from the client.
type CheckoutItem struct {
	SKU       string `json:"sku,omitempty"`
	ProductID string `json:"productId,omitempty"`
	Quantity  int64  `json:"quantity"`
	VariantID int64  `json:"variantId,omitempty"`
	UnitPrice int64  `json:"unitPrice"`
	Title     string `json:"title,omitempty"`
}

// Ref returns the client-facing reference of the item, preferring the SKU.
func (i CheckoutItem) Ref() string {
	if i.SKU != "" {
		return i.SKU
	}
	return i.ProductID
}

type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

// PaymentRecord is the outcome of the one capture attempt made for a session.
// Only a digest of the payment token is kept.
type PaymentRecord struct {
	TokenHash  string    `json:"tokenHash"`
	Status     string    `json:"status"`
	CaptureID  string    `json:"captureId,omitempty"`
	Paid       bool      `json:"paid"`
	Refunded   bool      `json:"refunded,omitempty"`
	CapturedAt time.Time `json:"capturedAt"`
}

// HashToken returns the digest stored in PaymentRecord.TokenHash.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Matches reports whether token is the one this capture was made with.
func (p *PaymentRecord) Matches(token string) bool {
	return p != nil && p.TokenHash == HashToken(token)
}

type Session struct {
	ID              string         `json:"id"`
	Items           []CheckoutItem `json:"items"`
	ShippingAddress *Address       `json:"shippingAddress,omitempty"`
	ShippingOption  ShippingOption `json:"shippingOption,omitempty"`
	Email           string         `json:"email,omitempty"`
	Currency        string         `json:"currency"`
	Subtotal        int64          `json:"subtotal"`
	ShippingAmount  int64          `json:"shippingAmount"`
	TaxAmount       int64          `json:"taxAmount"`
	Total           int64          `json:"total"`
	Status          CheckoutStatus `json:"status"`
	OrderID         string         `json:"orderId,omitempty"`
	Payment         *PaymentRecord `json:"payment,omitempty"`
	CancelReason    string         `json:"cancelReason,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

// Clone returns a deep copy so stores never hand out shared references.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	if s.Items != nil {
		c.Items = make([]CheckoutItem, len(s.Items))
		copy(c.Items, s.Items)
	}
	if s.ShippingAddress != nil {
		addr := *s.ShippingAddress
		c.ShippingAddress = &addr
	}
	if s.Payment != nil {
		p := *s.Payment
		c.Payment = &p
	}
	return &c
}

// ApplyTotals copies computed totals onto the session.
func (s *Session) ApplyTotals(t Totals) {
	s.Subtotal = t.Subtotal
	s.ShippingAmount = t.ShippingAmount
	s.TaxAmount = t.TaxAmount
	s.Total = t.Total
}

type Totals struct {
	Subtotal       int64
	ShippingAmount int64
	TaxAmount      int64
	Total          int64
}
