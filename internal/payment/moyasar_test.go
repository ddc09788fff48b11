package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToMinorUnits(t *testing.T) {
	assert.Equal(t, int64(2500), ToMinorUnits(decimal.RequireFromString("25")))
	assert.Equal(t, int64(1999), ToMinorUnits(decimal.RequireFromString("19.99")))
	assert.Equal(t, int64(1000), ToMinorUnits(decimal.RequireFromString("9.995")))
}

func TestCreateInvoiceSendsMinorUnitsAndBasicAuth(t *testing.T) {
	var got createInvoiceBody
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "sk_test", user)
		assert.Empty(t, pass)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/invoices", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(Invoice{ID: "inv_1", Status: InvoiceInitiated, Amount: got.Amount, Currency: got.Currency, URL: "https://pay/inv_1"})
	}))
	defer srv.Close()

	c := NewMoyasarClient(srv.URL+"/", "sk_test", srv.Client())
	inv, err := c.CreateInvoice(context.Background(), InvoiceRequest{
		Amount:      decimal.RequireFromString("42.50"),
		Currency:    "SAR",
		Description: "note 7",
		CallbackURL: "https://api/cb",
		SuccessURL:  "https://web/ok",
		BackURL:     "https://web/back",
	})
	require.NoError(t, err)
	assert.Equal(t, "inv_1", inv.ID)
	assert.Equal(t, "https://pay/inv_1", inv.URL)
	assert.Equal(t, int64(4250), got.Amount)
	assert.Equal(t, "SAR", got.Currency)
	assert.Equal(t, "https://api/cb", got.CallbackURL)
}

func TestFetchInvoiceMapsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/invoices/inv_ok" {
			_, _ = w.Write([]byte(`{"id":"inv_ok","status":"paid","amount":1000,"currency":"SAR"}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"not found"}`))
	}))
	defer srv.Close()

	c := NewMoyasarClient(srv.URL, "sk", nil)
	inv, err := c.FetchInvoice(context.Background(), "inv_ok")
	require.NoError(t, err)
	assert.Equal(t, InvoicePaid, inv.Status)
	assert.False(t, inv.IsFinalFailure())

	_, err = c.FetchInvoice(context.Background(), "inv_missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrGateway))

	_, err = c.FetchInvoice(context.Background(), " ")
	assert.True(t, errors.Is(err, ErrGateway))
}

func TestInvoiceFinalFailure(t *testing.T) {
	for _, s := range []string{InvoiceFailed, InvoiceExpired, InvoiceCanceled} {
		assert.True(t, Invoice{Status: s}.IsFinalFailure(), s)
	}
	assert.False(t, Invoice{Status: InvoiceInitiated}.IsFinalFailure())
}
