// Package stripe provides a minimal client for the Stripe Checkout
// Sessions API: create a hosted session and retrieve it by id.
package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// PaymentStatusPaid is the session payment_status once the guest paid.
const PaymentStatusPaid = "paid"

// Client calls the Stripe REST API with a secret key.
type Client struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

// New creates a Stripe client.
func New(secretKey string) *Client {
	return &Client{
		baseURL:    "https://api.stripe.com",
		secretKey:  secretKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// CheckoutSessionParams describes one single-item hosted checkout.
type CheckoutSessionParams struct {
	Amount             int64 // Smallest currency unit
	Currency           string
	ProductName        string
	ProductDescription string
	SuccessURL         string
	CancelURL          string
	Locale             string
	PaymentMethodTypes []string
	Metadata           map[string]string
}

// CheckoutSession is the subset of the session object this server reads.
type CheckoutSession struct {
	ID            string            `json:"id"`
	URL           string            `json:"url"`
	AmountTotal   int64             `json:"amount_total"`
	Currency      string            `json:"currency"`
	PaymentStatus string            `json:"payment_status"`
	Metadata      map[string]string `json:"metadata"`
}

// APIError is a non-2xx response from the Stripe API.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("stripe: status %d: %s (%s)", e.StatusCode, e.Message, e.Type)
}

type errorEnvelope struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// CreateCheckoutSession creates a hosted checkout session and returns it
// with the redirect URL populated.
func (c *Client) CreateCheckoutSession(ctx context.Context, p CheckoutSessionParams) (*CheckoutSession, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", p.SuccessURL)
	form.Set("cancel_url", p.CancelURL)
	if p.Locale != "" {
		form.Set("locale", p.Locale)
	}
	for i, pm := range p.PaymentMethodTypes {
		form.Set(fmt.Sprintf("payment_method_types[%d]", i), pm)
	}
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", strings.ToLower(p.Currency))
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(p.Amount, 10))
	form.Set("line_items[0][price_data][product_data][name]", p.ProductName)
	if p.ProductDescription != "" {
		form.Set("line_items[0][price_data][product_data][description]", p.ProductDescription)
	}
	for k, v := range p.Metadata {
		form.Set(fmt.Sprintf("metadata[%s]", k), v)
	}

	return c.do(ctx, http.MethodPost, "/v1/checkout/sessions", form)
}

// GetCheckoutSession retrieves a session by id.
func (c *Client) GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	if sessionID == "" {
		return nil, errors.New("session id is required")
	}
	return c.do(ctx, http.MethodGet, "/v1/checkout/sessions/"+url.PathEscape(sessionID), nil)
}

func (c *Client) do(ctx context.Context, method, path string, form url.Values) (*CheckoutSession, error) {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var env errorEnvelope
		if err := json.Unmarshal(data, &env); err == nil && env.Error.Message != "" {
			return nil, &APIError{StatusCode: resp.StatusCode, Type: env.Error.Type, Message: env.Error.Message}
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: "request failed"}
	}

	var session CheckoutSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, errors.Wrap(err, "failed to parse session")
	}
	return &session, nil
}
