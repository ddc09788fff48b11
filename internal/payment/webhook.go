package payment

import (
	"crypto/subtle"
	"errors"

	"github.com/tidwall/gjson"
)

// Webhook errors
var (
	ErrWebhookPayload = errors.New("malformed webhook payload")
	ErrWebhookToken   = errors.New("webhook token mismatch")
)

// WebhookEvent is the part of a gateway callback the service acts on
type WebhookEvent struct {
	ID        string // Event id
	Type      string // e.g. payment_paid, payment_failed
	InvoiceID string // Invoice the payment belongs to
	PaymentID string
	Status    string // Payment status inside the event
}

// ParseWebhook validates the shared secret and extracts the invoice reference.
// The event is only a hint: callers must re-fetch the invoice before moving money.
func ParseWebhook(body []byte, token string) (WebhookEvent, error) {
	if !gjson.ValidBytes(body) {
		return WebhookEvent{}, ErrWebhookPayload
	}
	res := gjson.GetManyBytes(body, "id", "type", "secret_token", "data.id", "data.invoice_id", "data.status")
	if token == "" || subtle.ConstantTimeCompare([]byte(res[2].String()), []byte(token)) != 1 {
		return WebhookEvent{}, ErrWebhookToken
	}
	ev := WebhookEvent{
		ID:        res[0].String(),
		Type:      res[1].String(),
		PaymentID: res[3].String(),
		InvoiceID: res[4].String(),
		Status:    res[5].String(),
	}
	if ev.InvoiceID == "" {
		return WebhookEvent{}, ErrWebhookPayload
	}
	return ev, nil
}
