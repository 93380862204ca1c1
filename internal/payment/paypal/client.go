// Package paypal captures approved PayPal orders and refunds captures.
package paypal

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/fjod/acp-checkout/domain"
	"github.com/fjod/acp-checkout/internal/upstream"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultBaseURL = "https://api-m.sandbox.paypal.com"
	StatusComplete = "COMPLETED"
	system         = "paypal"

	// tokens are refreshed this long before PayPal says they expire
	expirySkew = 60 * time.Second
)

type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
	Transport    http.RoundTripper
	Observer     upstream.Observer
	Logger       *slog.Logger
}

type Client struct {
	http         *upstream.Client
	clientID     string
	clientSecret string
	now          func() time.Time

	mu          sync.Mutex
	accessToken string
	expiresAt   time.Time
	sfg         singleflight.Group
}

// Capture is the outcome of capturing an approved order.
type Capture struct {
	OrderID   string
	Status    string
	CaptureID string
}

func (c Capture) Paid() bool {
	return c.Status == StatusComplete
}

func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	return &Client{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		now:          time.Now,
		http: upstream.New(upstream.Options{
			System:    system,
			BaseURL:   cfg.BaseURL,
			Timeout:   cfg.Timeout,
			Transport: cfg.Transport,
			Observer:  cfg.Observer,
			Logger:    cfg.Logger,
		}),
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// token returns a cached access token or fetches one. Concurrent callers share
// a single fetch.
func (c *Client) token(ctx context.Context) (string, error) {
	if tok := c.cachedToken(); tok != "" {
		return tok, nil
	}

	v, err, _ := c.sfg.Do("token", func() (interface{}, error) {
		if tok := c.cachedToken(); tok != "" {
			return tok, nil
		}
		form := url.Values{"grant_type": []string{"client_credentials"}}
		req := upstream.Request{
			Method:      http.MethodPost,
			Path:        "/v1/oauth2/token",
			RawBody:     []byte(form.Encode()),
			ContentType: "application/x-www-form-urlencoded",
			Header:      http.Header{"Authorization": []string{"Basic " + c.basicAuth()}},
		}

		var out tokenResponse
		if _, err := c.http.DoJSON(ctx, req, &out); err != nil {
			return "", err
		}
		if out.AccessToken == "" {
			return "", errors.New("token response without access_token")
		}

		c.mu.Lock()
		c.accessToken = out.AccessToken
		c.expiresAt = c.now().Add(time.Duration(out.ExpiresIn)*time.Second - expirySkew)
		c.mu.Unlock()
		return out.AccessToken, nil
	})
	if err != nil {
		return "", domain.Upstream("Failed to get PayPal access token", upstream.Details(system, err), err)
	}
	return v.(string), nil
}

func (c *Client) cachedToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.accessToken != "" && c.now().Before(c.expiresAt) {
		return c.accessToken
	}
	return ""
}

func (c *Client) basicAuth() string {
	return base64.StdEncoding.EncodeToString([]byte(c.clientID + ":" + c.clientSecret))
}

func (c *Client) bearer(ctx context.Context) (http.Header, error) {
	tok, err := c.token(ctx)
	if err != nil {
		return nil, err
	}
	return http.Header{"Authorization": []string{"Bearer " + tok}}, nil
}

type captureResponse struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	PurchaseUnits []struct {
		Payments struct {
			Captures []struct {
				ID     string `json:"id"`
				Status string `json:"status"`
			} `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
}

// CapturePayment captures the approved order identified by the shared token.
func (c *Client) CapturePayment(ctx context.Context, orderToken string) (*Capture, error) {
	header, err := c.bearer(ctx)
	if err != nil {
		return nil, err
	}

	var out captureResponse
	_, err = c.http.DoJSON(ctx, upstream.Request{
		Method: http.MethodPost,
		Path:   fmt.Sprintf("/v2/checkout/orders/%s/capture", url.PathEscape(orderToken)),
		Header: header,
		Body:   struct{}{},
	}, &out)
	if err != nil {
		return nil, domain.Upstream("PayPal capture failed", upstream.Details(system, err), err)
	}

	capture := &Capture{OrderID: out.ID, Status: out.Status}
	if len(out.PurchaseUnits) > 0 && len(out.PurchaseUnits[0].Payments.Captures) > 0 {
		capture.CaptureID = out.PurchaseUnits[0].Payments.Captures[0].ID
	}
	return capture, nil
}

// RefundCapture refunds a capture in full.
func (c *Client) RefundCapture(ctx context.Context, captureID string) error {
	header, err := c.bearer(ctx)
	if err != nil {
		return err
	}

	_, err = c.http.Do(ctx, upstream.Request{
		Method: http.MethodPost,
		Path:   fmt.Sprintf("/v2/payments/captures/%s/refund", url.PathEscape(captureID)),
		Header: header,
		Body:   struct{}{},
	})
	if err != nil {
		return domain.Upstream("PayPal refund failed", upstream.Details(system, err), err)
	}
	return nil
}
