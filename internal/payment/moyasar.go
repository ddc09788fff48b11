package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Invoice statuses reported by the gateway
const (
	InvoiceInitiated = "initiated"
	InvoicePaid      = "paid"
	InvoiceFailed    = "failed"
	InvoiceExpired   = "expired"
	InvoiceCanceled  = "canceled"
)

// ErrGateway wraps every non-2xx answer from the gateway
var ErrGateway = errors.New("payment gateway error")

// InvoiceRequest describes an invoice to create
type InvoiceRequest struct {
	Amount      decimal.Decimal // Major units, converted to minor units on the wire
	Currency    string
	Description string
	CallbackURL string
	SuccessURL  string
	BackURL     string
	Metadata    map[string]string
}

// Invoice is the gateway's view of an invoice
type Invoice struct {
	ID          string            `json:"id"`
	Status      string            `json:"status"`
	Amount      int64             `json:"amount"` // Minor units (halalas)
	Currency    string            `json:"currency"`
	Description string            `json:"description"`
	URL         string            `json:"url"` // Hosted payment page
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// IsFinalFailure reports whether the invoice can no longer be paid
func (i Invoice) IsFinalFailure() bool {
	switch i.Status {
	case InvoiceFailed, InvoiceExpired, InvoiceCanceled:
		return true
	}
	return false
}

// MoyasarClient talks to the Moyasar invoices API
type MoyasarClient struct {
	baseURL   string
	secretKey string
	http      *http.Client
}

// NewMoyasarClient creates a client. A nil httpClient uses a 15s timeout client.
func NewMoyasarClient(baseURL, secretKey string, httpClient *http.Client) *MoyasarClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &MoyasarClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
		http:      httpClient,
	}
}

type createInvoiceBody struct {
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Description string            `json:"description"`
	CallbackURL string            `json:"callback_url,omitempty"`
	SuccessURL  string            `json:"success_url,omitempty"`
	BackURL     string            `json:"back_url,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// ToMinorUnits converts an amount in riyals to halalas, rounding to the nearest unit
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// CreateInvoice registers a new invoice and returns it with its payment URL
func (c *MoyasarClient) CreateInvoice(ctx context.Context, req InvoiceRequest) (Invoice, error) {
	body := createInvoiceBody{
		Amount:      ToMinorUnits(req.Amount),
		Currency:    req.Currency,
		Description: req.Description,
		CallbackURL: req.CallbackURL,
		SuccessURL:  req.SuccessURL,
		BackURL:     req.BackURL,
		Metadata:    req.Metadata,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return Invoice{}, fmt.Errorf("encode invoice: %w", err)
	}
	var inv Invoice
	if err := c.do(ctx, http.MethodPost, "/invoices", bytes.NewReader(payload), &inv); err != nil {
		return Invoice{}, err
	}
	return inv, nil
}

// FetchInvoice returns the current state of an invoice
func (c *MoyasarClient) FetchInvoice(ctx context.Context, id string) (Invoice, error) {
	if strings.TrimSpace(id) == "" {
		return Invoice{}, fmt.Errorf("%w: empty invoice id", ErrGateway)
	}
	var inv Invoice
	if err := c.do(ctx, http.MethodGet, "/invoices/"+id, nil, &inv); err != nil {
		return Invoice{}, err
	}
	return inv, nil
}

func (c *MoyasarClient) do(ctx context.Context, method, path string, body io.Reader, dest any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build gateway request: %w", err)
	}
	req.SetBasicAuth(c.secretKey, "") // Secret key as the basic-auth user
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGateway, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: read body: %v", ErrGateway, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s %s returned %d: %s", ErrGateway, method, path, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("%w: decode body: %v", ErrGateway, err)
	}
	return nil
}
