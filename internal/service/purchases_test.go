package service

import (
	"context"
	"testing"

	"notes_marketplace/internal/domain"
	"notes_marketplace/internal/payment"
	"notes_marketplace/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFees(t *testing.T) {
	cases := []struct {
		price, fee, earnings string
	}{
		{"100", "15.00", "83.00"},
		{"25", "3.75", "19.25"},
		{"10.99", "1.65", "7.34"},
		{"2", "0.30", "0.00"}, // Edition tax eats the whole share
		{"0", "0.00", "0.00"},
	}
	for _, c := range cases {
		fee, earnings := Fees(dec(c.price), dec("0.15"), dec("2"))
		assert.Equal(t, c.fee, fee.StringFixed(2), "fee for %s", c.price)
		assert.Equal(t, c.earnings, earnings.StringFixed(2), "earnings for %s", c.price)
	}
}

func TestCheckoutThenConfirmPaidCompletesPurchase(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seller := testutil.CreateUser(t, env.deps.DB, "seller@test.com", "0", 2)
	buyer := testutil.CreateUser(t, env.deps.DB, "buyer@test.com", "0", 2)
	note := testutil.CreateNote(t, env.deps.DB, seller.ID, "Calculus", "100")

	res, err := env.svc.Purchases.Checkout(ctx, buyer.ID, note.ID)
	require.NoError(t, err)
	assert.False(t, res.Completed)
	assert.Equal(t, "inv_1", res.InvoiceID)
	assert.Equal(t, "https://pay.test/inv_1", res.PaymentURL)
	assert.Equal(t, domain.SalePending, res.Sale.Status)
	require.Len(t, env.gateway.Requests, 1)
	assert.Equal(t, "https://api.test/api/payments/callback", env.gateway.Requests[0].CallbackURL)
	assert.Equal(t, "SAR", env.gateway.Requests[0].Currency)

	// Still initiated at the gateway, nothing changes
	sale, err := env.svc.Purchases.Confirm(ctx, "inv_1", buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SalePending, sale.Status)

	env.gateway.SetStatus("inv_1", payment.InvoicePaid)
	sale, err = env.svc.Purchases.Confirm(ctx, "inv_1", buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SaleCompleted, sale.Status)
	assert.Equal(t, "15.00", sale.PlatformFee.StringFixed(2))
	assert.Equal(t, "83.00", sale.OwnerEarnings.StringFixed(2))

	var updated domain.User
	require.NoError(t, env.deps.DB.First(&updated, seller.ID).Error)
	assert.Equal(t, "83.00", updated.Balance.StringFixed(2))

	var purchases int64
	require.NoError(t, env.deps.DB.Model(&domain.Purchase{}).Where("note_id = ? AND user_id = ?", note.ID, buyer.ID).Count(&purchases).Error)
	assert.Equal(t, int64(1), purchases)

	var notes []domain.Notification
	require.NoError(t, env.deps.DB.Order("id").Find(&notes).Error)
	require.Len(t, notes, 2)
	assert.Equal(t, buyer.ID, notes[0].UserID)
	assert.Equal(t, domain.NotifyPurchase, notes[0].Type)
	assert.Equal(t, seller.ID, notes[1].UserID)
	assert.Equal(t, domain.NotifySale, notes[1].Type)

	// Confirming again is a no-op and never credits twice
	again, err := env.svc.Purchases.Confirm(ctx, "inv_1", buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SaleCompleted, again.Status)
	require.NoError(t, env.deps.DB.First(&updated, seller.ID).Error)
	assert.Equal(t, "83.00", updated.Balance.StringFixed(2))

	_, err = env.svc.Purchases.Checkout(ctx, buyer.ID, note.ID)
	assert.ErrorIs(t, err, ErrAlreadyPurchased)
}

func TestCheckoutRejectsOwnerAndUnpublished(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seller := testutil.CreateUser(t, env.deps.DB, "seller@test.com", "0", 2)
	buyer := testutil.CreateUser(t, env.deps.DB, "buyer@test.com", "0", 2)
	note := testutil.CreateNote(t, env.deps.DB, seller.ID, "Physics", "40")

	_, err := env.svc.Purchases.Checkout(ctx, seller.ID, note.ID)
	assert.ErrorIs(t, err, ErrOwnNote)

	require.NoError(t, env.deps.DB.Model(&note).Update("is_published", false).Error)
	_, err = env.svc.Purchases.Checkout(ctx, buyer.ID, note.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.svc.Purchases.Checkout(ctx, buyer.ID, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCheckoutFreeNoteCompletesImmediately(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seller := testutil.CreateUser(t, env.deps.DB, "seller@test.com", "0", 2)
	buyer := testutil.CreateUser(t, env.deps.DB, "buyer@test.com", "0", 2)
	note := testutil.CreateNote(t, env.deps.DB, seller.ID, "Free intro", "0")

	res, err := env.svc.Purchases.Checkout(ctx, buyer.ID, note.ID)
	require.NoError(t, err)
	assert.True(t, res.Completed)
	assert.Equal(t, domain.SaleCompleted, res.Sale.Status)
	assert.Equal(t, "free", res.Sale.PaymentMethod)
	assert.Nil(t, res.Sale.InvoiceID)
	assert.Empty(t, env.gateway.Requests)

	var updated domain.User
	require.NoError(t, env.deps.DB.First(&updated, seller.ID).Error)
	assert.True(t, updated.Balance.IsZero())
}

func TestCheckoutGatewayFailureLeavesNoSale(t *testing.T) {
	env := newTestEnv(t)
	seller := testutil.CreateUser(t, env.deps.DB, "seller@test.com", "0", 2)
	buyer := testutil.CreateUser(t, env.deps.DB, "buyer@test.com", "0", 2)
	note := testutil.CreateNote(t, env.deps.DB, seller.ID, "Chemistry", "30")
	env.gateway.FailCalls = true

	_, err := env.svc.Purchases.Checkout(context.Background(), buyer.ID, note.ID)
	assert.ErrorIs(t, err, ErrPaymentGateway)

	var sales int64
	require.NoError(t, env.deps.DB.Model(&domain.Sale{}).Count(&sales).Error)
	assert.Zero(t, sales)
}

func TestConfirmFailedInvoiceMarksSaleFailed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seller := testutil.CreateUser(t, env.deps.DB, "seller@test.com", "0", 2)
	buyer := testutil.CreateUser(t, env.deps.DB, "buyer@test.com", "0", 2)
	note := testutil.CreateNote(t, env.deps.DB, seller.ID, "Biology", "50")

	res, err := env.svc.Purchases.Checkout(ctx, buyer.ID, note.ID)
	require.NoError(t, err)
	env.gateway.SetStatus(res.InvoiceID, payment.InvoiceExpired)

	sale, err := env.svc.Purchases.Confirm(ctx, res.InvoiceID, 0)
	require.NoError(t, err)
	assert.Equal(t, domain.SaleFailed, sale.Status)
	assert.Equal(t, "payment expired", sale.Message)

	// Another buyer cannot look up someone else's invoice
	other := testutil.CreateUser(t, env.deps.DB, "other@test.com", "0", 2)
	_, err = env.svc.Purchases.Confirm(ctx, res.InvoiceID, other.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWebhookRequiresTokenAndRefetchesInvoice(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seller := testutil.CreateUser(t, env.deps.DB, "seller@test.com", "0", 2)
	buyer := testutil.CreateUser(t, env.deps.DB, "buyer@test.com", "0", 2)
	note := testutil.CreateNote(t, env.deps.DB, seller.ID, "History", "20")

	res, err := env.svc.Purchases.Checkout(ctx, buyer.ID, note.ID)
	require.NoError(t, err)

	_, err = env.svc.Purchases.Webhook(ctx, []byte(`{"type":"payment_paid","secret_token":"wrong","data":{"invoice_id":"`+res.InvoiceID+`"}}`))
	assert.ErrorIs(t, err, ErrForbidden)

	// The event claims paid but the gateway still says initiated
	body := []byte(`{"id":"evt_1","type":"payment_paid","secret_token":"whsec","data":{"id":"pay_1","invoice_id":"` + res.InvoiceID + `","status":"paid"}}`)
	sale, err := env.svc.Purchases.Webhook(ctx, body)
	require.NoError(t, err)
	assert.Equal(t, domain.SalePending, sale.Status)

	env.gateway.SetStatus(res.InvoiceID, payment.InvoicePaid)
	sale, err = env.svc.Purchases.Webhook(ctx, body)
	require.NoError(t, err)
	assert.Equal(t, domain.SaleCompleted, sale.Status)

	var updated domain.User
	require.NoError(t, env.deps.DB.First(&updated, seller.ID).Error)
	assert.Equal(t, "15.00", updated.Balance.StringFixed(2))
}

func TestCheckoutTwiceReusesOpenInvoice(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seller := testutil.CreateUser(t, env.deps.DB, "seller@test.com", "0", 2)
	buyer := testutil.CreateUser(t, env.deps.DB, "buyer@test.com", "0", 2)
	note := testutil.CreateNote(t, env.deps.DB, seller.ID, "Statistics", "60")

	first, err := env.svc.Purchases.Checkout(ctx, buyer.ID, note.ID)
	require.NoError(t, err)
	second, err := env.svc.Purchases.Checkout(ctx, buyer.ID, note.ID)
	require.NoError(t, err)
	assert.Equal(t, first.InvoiceID, second.InvoiceID)
	assert.Equal(t, first.PaymentURL, second.PaymentURL)
	assert.Equal(t, first.Sale.ID, second.Sale.ID)
	assert.Len(t, env.gateway.Requests, 1)

	// Paid but never confirmed, the next checkout finishes it
	env.gateway.SetStatus(first.InvoiceID, payment.InvoicePaid)
	third, err := env.svc.Purchases.Checkout(ctx, buyer.ID, note.ID)
	require.NoError(t, err)
	assert.True(t, third.Completed)
	assert.Equal(t, domain.SaleCompleted, third.Sale.Status)
	assert.Len(t, env.gateway.Requests, 1)

	var sales int64
	require.NoError(t, env.deps.DB.Model(&domain.Sale{}).Count(&sales).Error)
	assert.Equal(t, int64(1), sales)
}

func TestCheckoutReplacesDeadInvoice(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seller := testutil.CreateUser(t, env.deps.DB, "seller@test.com", "0", 2)
	buyer := testutil.CreateUser(t, env.deps.DB, "buyer@test.com", "0", 2)
	note := testutil.CreateNote(t, env.deps.DB, seller.ID, "Geometry", "60")

	first, err := env.svc.Purchases.Checkout(ctx, buyer.ID, note.ID)
	require.NoError(t, err)
	env.gateway.SetStatus(first.InvoiceID, payment.InvoiceExpired)

	second, err := env.svc.Purchases.Checkout(ctx, buyer.ID, note.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first.InvoiceID, second.InvoiceID)

	var old domain.Sale
	require.NoError(t, env.deps.DB.First(&old, first.Sale.ID).Error)
	assert.Equal(t, domain.SaleFailed, old.Status)

	// A price change also retires the open invoice
	require.NoError(t, env.deps.DB.Model(&note).Update("price", dec("45")).Error)
	third, err := env.svc.Purchases.Checkout(ctx, buyer.ID, note.ID)
	require.NoError(t, err)
	assert.NotEqual(t, second.InvoiceID, third.InvoiceID)
	assert.Equal(t, "45.00", third.Sale.Amount.StringFixed(2))
	require.NoError(t, env.deps.DB.First(&old, second.Sale.ID).Error)
	assert.Equal(t, domain.SaleFailed, old.Status)
	assert.Equal(t, "price changed", old.Message)
}

func TestConfirmDuplicatePaymentClosesSale(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seller := testutil.CreateUser(t, env.deps.DB, "seller@test.com", "0", 2)
	buyer := testutil.CreateUser(t, env.deps.DB, "buyer@test.com", "0", 2)
	note := testutil.CreateNote(t, env.deps.DB, seller.ID, "Economics", "100")

	first, err := env.svc.Purchases.Checkout(ctx, buyer.ID, note.ID)
	require.NoError(t, err)

	// A second invoice paid outside the normal flow
	extra, err := env.gateway.CreateInvoice(ctx, payment.InvoiceRequest{Amount: note.Price, Currency: "SAR"})
	require.NoError(t, err)
	dup := first.Sale
	dup.ID = 0
	dup.InvoiceID = &extra.ID
	require.NoError(t, env.deps.DB.Create(&dup).Error)

	env.gateway.SetStatus(first.InvoiceID, payment.InvoicePaid)
	env.gateway.SetStatus(extra.ID, payment.InvoicePaid)
	sale, err := env.svc.Purchases.Confirm(ctx, first.InvoiceID, buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SaleCompleted, sale.Status)

	_, err = env.svc.Purchases.Confirm(ctx, extra.ID, buyer.ID)
	assert.ErrorIs(t, err, ErrAlreadyPurchased)

	var stored domain.Sale
	require.NoError(t, env.deps.DB.First(&stored, dup.ID).Error)
	assert.Equal(t, domain.SaleFailed, stored.Status)
	assert.Equal(t, "duplicate payment, refund required", stored.Message)

	var refund int64
	require.NoError(t, env.deps.DB.Model(&domain.Notification{}).
		Where("user_id = ? AND title = ?", buyer.ID, "Duplicate payment").Count(&refund).Error)
	assert.Equal(t, int64(1), refund)

	var updated domain.User
	require.NoError(t, env.deps.DB.First(&updated, seller.ID).Error)
	assert.Equal(t, "83.00", updated.Balance.StringFixed(2), "seller is credited once")

	// Retried callbacks see the closed sale
	again, err := env.svc.Purchases.Confirm(ctx, extra.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, domain.SaleFailed, again.Status)
}

func TestConfirmRejectsAmountMismatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seller := testutil.CreateUser(t, env.deps.DB, "seller@test.com", "0", 2)
	buyer := testutil.CreateUser(t, env.deps.DB, "buyer@test.com", "0", 2)
	note := testutil.CreateNote(t, env.deps.DB, seller.ID, "Accounting", "100")

	res, err := env.svc.Purchases.Checkout(ctx, buyer.ID, note.ID)
	require.NoError(t, err)
	inv := env.gateway.Invoices[res.InvoiceID]
	inv.Status = payment.InvoicePaid
	inv.Amount = 100 // One riyal instead of a hundred
	env.gateway.Invoices[res.InvoiceID] = inv

	_, err = env.svc.Purchases.Confirm(ctx, res.InvoiceID, buyer.ID)
	assert.ErrorIs(t, err, ErrConflict)

	body := []byte(`{"id":"evt_2","type":"payment_paid","secret_token":"whsec","data":{"invoice_id":"` + res.InvoiceID + `"}}`)
	_, err = env.svc.Purchases.Webhook(ctx, body)
	assert.ErrorIs(t, err, ErrConflict)

	var sale domain.Sale
	require.NoError(t, env.deps.DB.First(&sale, res.Sale.ID).Error)
	assert.Equal(t, domain.SalePending, sale.Status)
	var purchases int64
	require.NoError(t, env.deps.DB.Model(&domain.Purchase{}).Count(&purchases).Error)
	assert.Zero(t, purchases)
	var updated domain.User
	require.NoError(t, env.deps.DB.First(&updated, seller.ID).Error)
	assert.True(t, updated.Balance.IsZero())
}
