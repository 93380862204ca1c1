package shopify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fjod/acp-checkout/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Config{Shop: "test.myshopify.com", AccessToken: "shpat_test", BaseURL: srv.URL})
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"19.99", 1999},
		{"10", 1000},
		{"0.5", 50},
		{"12.345", 1235},
	}
	for _, tt := range tests {
		got, err := ParsePrice(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParsePrice("abc")
	assert.Error(t, err)
	_, err = ParsePrice("")
	assert.Error(t, err)
}

func TestGetVariant(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/variants/111.json", r.URL.Path)
		assert.Equal(t, "shpat_test", r.Header.Get("X-Shopify-Access-Token"))
		fmt.Fprint(w, `{"variant":{"id":111,"product_id":7,"sku":"SKU-1","title":"Blue Mug","price":"10.00","inventory_quantity":3}}`)
	})

	v, err := c.GetVariant(context.Background(), 111)

	require.NoError(t, err)
	assert.Equal(t, int64(1000), v.Price)
	assert.Equal(t, "Blue Mug", v.Title)
	assert.Equal(t, int64(7), v.ProductID)
	require.NotNil(t, v.InventoryQuantity)
	assert.Equal(t, int64(3), *v.InventoryQuantity)
}

func TestGetVariant_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"errors":"Not Found"}`)
	})

	_, err := c.GetVariant(context.Background(), 5)

	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindUpstream))
	assert.True(t, errors.Is(err, ErrVariantNotFound))
}

func TestCheckAvailability(t *testing.T) {
	body := `{"variant":{"id":1,"price":"1.00","inventory_quantity":2}}`
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, body)
	})

	avail, err := c.CheckAvailability(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.True(t, avail.Available)

	avail, err = c.CheckAvailability(context.Background(), 1, 3)
	require.NoError(t, err)
	assert.False(t, avail.Available)
	assert.Equal(t, int64(2), *avail.AvailableQuantity)

	body = `{"variant":{"id":1,"price":"1.00"}}`
	avail, err = c.CheckAvailability(context.Background(), 1, 1000)
	require.NoError(t, err)
	assert.True(t, avail.Available)
	assert.Nil(t, avail.AvailableQuantity)
}

func TestCreateOrder(t *testing.T) {
	var got struct {
		Order orderPayload `json:"order"`
	}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/orders.json", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"order":{"id":450789469,"name":"#1001"}}`)
	})

	order, err := c.CreateOrder(context.Background(), OrderRequest{
		LineItems:       []LineItem{{VariantID: 111, Quantity: 2}},
		Email:           "buyer@example.com",
		ShippingAddress: &domain.Address{Line1: "1 Main St", City: "Austin", State: "TX", PostalCode: "78701", Country: "US"},
		Paid:            true,
	})

	require.NoError(t, err)
	assert.Equal(t, "450789469", order.ID)
	assert.Equal(t, "paid", got.Order.FinancialStatus)
	assert.Equal(t, "TX", got.Order.ShippingAddress.Province)
	assert.Equal(t, "78701", got.Order.ShippingAddress.Zip)
	assert.Equal(t, []LineItem{{VariantID: 111, Quantity: 2}}, got.Order.LineItems)
}

func TestCreateOrder_PendingWhenUnpaid(t *testing.T) {
	var got struct {
		Order orderPayload `json:"order"`
	}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"order":{"id":1}}`)
	})

	_, err := c.CreateOrder(context.Background(), OrderRequest{LineItems: []LineItem{{VariantID: 1, Quantity: 1}}})

	require.NoError(t, err)
	assert.Equal(t, "pending", got.Order.FinancialStatus)
	assert.Nil(t, got.Order.ShippingAddress)
}

func TestCreateOrder_UpstreamFailureRedactsToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"errors":"bad token shpat_test"}`)
	})

	_, err := c.CreateOrder(context.Background(), OrderRequest{})

	var de *domain.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, domain.KindUpstream, de.Kind)
	details := de.Details.(map[string]any)
	assert.Equal(t, http.StatusInternalServerError, details["status"])
	assert.NotContains(t, details["body"], "shpat_test")
}

func TestCancelOrder(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.Equal(t, "/orders/450789469/cancel.json", r.URL.Path)
		fmt.Fprint(w, `{"order":{"id":450789469}}`)
	})

	require.NoError(t, c.CancelOrder(context.Background(), "450789469"))
	assert.True(t, called)
}

func TestListProducts_FollowsPages(t *testing.T) {
	var srvURL string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("page_info") {
		case "":
			w.Header().Set("Link", fmt.Sprintf(`<%s/products.json?limit=250&page_info=abc>; rel="next"`, srvURL))
			fmt.Fprint(w, `{"products":[{"id":1,"title":"Mug","variants":[{"id":11,"sku":"MUG-1","price":"5.00"}]}]}`)
		case "abc":
			w.Header().Set("Link", fmt.Sprintf(`<%s/products.json?limit=250&page_info=xyz>; rel="previous"`, srvURL))
			fmt.Fprint(w, `{"products":[{"id":2,"title":"Cap","variants":[{"id":21,"sku":"CAP-1","price":"7.50"},{"id":22,"sku":"","price":"7.50"}]}]}`)
		default:
			t.Errorf("unexpected page_info %q", r.URL.Query().Get("page_info"))
		}
	}))
	defer srv.Close()
	srvURL = srv.URL

	c := New(Config{BaseURL: srv.URL, AccessToken: "x"})
	products, err := c.ListProducts(context.Background())

	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, int64(1), products[0].Variants[0].ProductID)
	assert.Equal(t, int64(750), products[1].Variants[0].Price)
	assert.Len(t, products[1].Variants, 2)
}
