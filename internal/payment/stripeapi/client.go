package stripeapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gammapace/backend/internal/payment/domain"
)

const defaultBaseURL = "https://api.stripe.com"

// Client is a minimal form-encoded Stripe REST client covering the
// customer and payment intent surface this product needs.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewClient(apiKey, baseURL string) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		apiKey:  strings.TrimSpace(apiKey),
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 12 * time.Second},
	}
}

type Customer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type customerList struct {
	Data []Customer `json:"data"`
}

type PaymentIntent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}

// FindCustomerByEmail returns the first customer with the given email,
// or nil when none exists.
func (c *Client) FindCustomerByEmail(ctx context.Context, email string) (*Customer, error) {
	query := url.Values{}
	query.Set("email", email)
	query.Set("limit", "1")

	var list customerList
	if err := c.do(ctx, http.MethodGet, "/v1/customers?"+query.Encode(), nil, &list); err != nil {
		return nil, err
	}
	if len(list.Data) == 0 {
		return nil, nil
	}
	customer := list.Data[0]
	return &customer, nil
}

type CreateCustomerParams struct {
	Name     string
	Email    string
	Metadata map[string]string
}

func (c *Client) CreateCustomer(ctx context.Context, params CreateCustomerParams) (*Customer, error) {
	values := url.Values{}
	values.Set("name", params.Name)
	values.Set("email", params.Email)
	for key, value := range params.Metadata {
		values.Set("metadata["+key+"]", value)
	}

	var customer Customer
	if err := c.do(ctx, http.MethodPost, "/v1/customers", values, &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

// AttachPaymentMethod binds a payment method to a customer.
func (c *Client) AttachPaymentMethod(ctx context.Context, paymentMethodID, customerID string) error {
	values := url.Values{}
	values.Set("customer", customerID)
	return c.do(ctx, http.MethodPost, "/v1/payment_methods/"+url.PathEscape(paymentMethodID)+"/attach", values, nil)
}

// SetDefaultPaymentMethod marks the payment method as the customer's
// default for invoices.
func (c *Client) SetDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	values := url.Values{}
	values.Set("invoice_settings[default_payment_method]", paymentMethodID)
	return c.do(ctx, http.MethodPost, "/v1/customers/"+url.PathEscape(customerID), values, nil)
}

type CreateIntentParams struct {
	Amount          int64
	Currency        string
	CustomerID      string
	PaymentMethodID string
	Description     string
	ReturnURL       string
	Metadata        map[string]string
}

// CreateAndConfirmIntent creates a payment intent with immediate
// manual confirmation, charging the attached payment method.
func (c *Client) CreateAndConfirmIntent(ctx context.Context, params CreateIntentParams) (*PaymentIntent, error) {
	values := url.Values{}
	values.Set("amount", strconv.FormatInt(params.Amount, 10))
	values.Set("currency", strings.ToLower(params.Currency))
	values.Set("customer", params.CustomerID)
	values.Set("payment_method", params.PaymentMethodID)
	values.Set("confirmation_method", "manual")
	values.Set("confirm", "true")
	if params.ReturnURL != "" {
		values.Set("return_url", params.ReturnURL)
	}
	if params.Description != "" {
		values.Set("description", params.Description)
	}
	for key, value := range params.Metadata {
		values.Set("metadata["+key+"]", value)
	}

	var intent PaymentIntent
	if err := c.do(ctx, http.MethodPost, "/v1/payment_intents", values, &intent); err != nil {
		return nil, err
	}
	return &intent, nil
}

type stripeErrorResponse struct {
	Error struct {
		Type        string `json:"type"`
		Message     string `json:"message"`
		DeclineCode string `json:"decline_code"`
	} `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, values url.Values, out any) error {
	if c.apiKey == "" {
		return &domain.ProviderError{Type: domain.ErrorTypeAPI, Message: "payment provider not configured"}
	}

	body := ""
	if values != nil {
		body = values.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, strings.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if values != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return &domain.ProviderError{Type: domain.ErrorTypeAPI, Message: "payment provider unreachable"}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeError(resp *http.Response) error {
	var payload stripeErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return &domain.ProviderError{Type: domain.ErrorTypeAPI, Message: "payment provider request failed"}
	}

	message := strings.TrimSpace(payload.Error.Message)
	switch payload.Error.Type {
	case "card_error":
		if message == "" {
			message = "Your card was declined."
		}
		return &domain.ProviderError{
			Type:        domain.ErrorTypeCard,
			Message:     message,
			DeclineCode: payload.Error.DeclineCode,
		}
	case "invalid_request_error":
		return &domain.ProviderError{
			Type:    domain.ErrorTypeInvalidRequest,
			Message: "Invalid payment request. Please check your payment details.",
		}
	default:
		if message == "" {
			message = "Payment processing failed. Please try again."
		}
		return &domain.ProviderError{Type: domain.ErrorTypeAPI, Message: message}
	}
}
