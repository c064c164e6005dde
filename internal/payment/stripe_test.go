package payment

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
)

const testSecret = "whsec_test"

func sign(payload []byte, secret string) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: time.Now(),
	}).Header
}

func TestVerifyValidSignature(t *testing.T) {
	payload := []byte(`{"id":"evt_1","object":"event","type":"checkout.session.completed","data":{"object":{"id":"cs_1","metadata":{"artwork_ids":"a,b"}}}}`)

	evt, err := NewWebhookVerifier(testSecret).Verify(payload, sign(payload, testSecret))
	require.NoError(t, err)
	assert.Equal(t, "evt_1", evt.ID)
	assert.Equal(t, "checkout.session.completed", evt.Type)
	assert.JSONEq(t, `{"id":"cs_1","metadata":{"artwork_ids":"a,b"}}`, string(evt.Object))
}

func TestVerifyRejects(t *testing.T) {
	payload := []byte(`{"id":"evt_1","object":"event","type":"checkout.session.completed","data":{"object":{}}}`)

	_, err := NewWebhookVerifier(testSecret).Verify(payload, sign(payload, "whsec_other"))
	assert.Error(t, err)

	_, err = NewWebhookVerifier(testSecret).Verify(payload, "")
	assert.Error(t, err)

	_, err = NewWebhookVerifier("").Verify(payload, sign(payload, ""))
	assert.Error(t, err)

	tampered := []byte(`{"id":"evt_2","object":"event","type":"checkout.session.completed","data":{"object":{}}}`)
	_, err = NewWebhookVerifier(testSecret).Verify(tampered, sign(payload, testSecret))
	assert.Error(t, err)
}

func TestUnconfiguredGateway(t *testing.T) {
	g := NewStripeGateway("")

	_, err := g.CreateCheckoutSession(context.Background(), &SessionRequest{})
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = g.GetCheckoutSession(context.Background(), "cs_1")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestSummaryFromSession(t *testing.T) {
	s := &stripe.CheckoutSession{
		ID:            "cs_1",
		Created:       1700000000,
		AmountTotal:   85000,
		Currency:      stripe.CurrencyEUR,
		Status:        stripe.CheckoutSessionStatusComplete,
		PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid,
		CustomerDetails: &stripe.CheckoutSessionCustomerDetails{
			Name:    "Ada",
			Email:   "ada@example.com",
			Address: &stripe.Address{City: "Berlin", Country: "DE"},
		},
		LineItems: &stripe.LineItemList{
			Data: []*stripe.LineItem{{Description: "Blue Hour", Quantity: 1, AmountTotal: 85000, Currency: stripe.CurrencyEUR}},
		},
	}

	got := summaryFromSession(s)
	assert.Equal(t, "cs_1", got.SessionID)
	assert.Equal(t, "EUR", got.Currency)
	assert.Equal(t, "paid", got.PaidStatus)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), got.Created)
	require.NotNil(t, got.Customer)
	assert.Equal(t, "Berlin", got.Customer.Address.City)
	require.Len(t, got.LineItems, 1)
	assert.Equal(t, "Blue Hour", got.LineItems[0].Description)
	assert.Equal(t, "EUR", got.LineItems[0].Currency)
}
