package domain

// ItemRequest is a client line item before catalog resolution.
type ItemRequest struct {
	SKU       string `json:"sku,omitempty"`
	ProductID string `json:"productId,omitempty"`
	Quantity  int64  `json:"quantity"`
}

type CreateCheckoutRequest struct {
	Items           []ItemRequest
	ShippingAddress *Address
	ShippingOption  ShippingOption
	Email           string
}

// UpdateCheckoutRequest carries only the fields the client supplied; nil and
// empty values mean "keep the current value".
type UpdateCheckoutRequest struct {
	SessionID       string
	Items           []ItemRequest
	ShippingAddress *Address
	ShippingOption  ShippingOption
}

type CompleteCheckoutRequest struct {
	SessionID    string
	PaymentToken string
	Email        string
}

type CancelCheckoutRequest struct {
	SessionID string
	Reason    string
}

type ShippingOptionQuote struct {
	ID     ShippingOption `json:"id"`
	Label  string         `json:"label"`
	Amount int64          `json:"amount"`
}

type CheckoutResponse struct {
	SessionID       string                `json:"sessionId"`
	Currency        string                `json:"currency"`
	Subtotal        int64                 `json:"subtotal"`
	Shipping        int64                 `json:"shipping"`
	Tax             int64                 `json:"tax"`
	Total           int64                 `json:"total"`
	ShippingOptions []ShippingOptionQuote `json:"shippingOptions,omitempty"`
	Status          CheckoutStatus        `json:"status"`
}

type CompleteCheckoutResponse struct {
	OrderID        string         `json:"orderId"`
	ShopifyOrderID string         `json:"shopifyOrderId"`
	Status         CheckoutStatus `json:"status"`
}

type CancelCheckoutResponse struct {
	SessionID string         `json:"sessionId"`
	Status    CheckoutStatus `json:"status"`
}

// NewCheckoutResponse builds the create/update payload from a session.
func NewCheckoutResponse(s *Session) *CheckoutResponse {
	return &CheckoutResponse{
		SessionID: s.ID,
		Currency:  s.Currency,
		Subtotal:  s.Subtotal,
		Shipping:  s.ShippingAmount,
		Tax:       s.TaxAmount,
		Total:     s.Total,
		Status:    s.Status,
	}
}
