// Package payment talks to Stripe: hosted Checkout Sessions and signed
// webhook events.
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"art-store/internal/models"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

var (
	// ErrNotConfigured is returned when no Stripe secret key is configured.
	ErrNotConfigured = errors.New("payment gateway not configured")
	// ErrSessionNotFound is returned for an unknown checkout session id.
	ErrSessionNotFound = errors.New("checkout session not found")
)

// LineItem is one artwork on a hosted checkout page. Quantity is always one.
type LineItem struct {
	Name       string
	UnitAmount int64
	Currency   string
	Image      string
}

// SessionRequest describes a hosted checkout to create.
type SessionRequest struct {
	LineItems         []LineItem
	SuccessURL        string
	CancelURL         string
	Metadata          map[string]string
	ShippingCountries []string
}

// Session is the part of a created checkout session the storefront needs.
type Session struct {
	ID  string
	URL string
}

// Event is a verified webhook event. Object holds the raw JSON of the event's
// data object.
type Event struct {
	ID     string
	Type   string
	Object json.RawMessage
}

// StripeGateway creates and reads Stripe Checkout Sessions.
type StripeGateway struct {
	api *client.API
}

// NewStripeGateway creates a gateway for the given secret key. An empty key
// yields a gateway whose calls fail with ErrNotConfigured.
func NewStripeGateway(secretKey string) *StripeGateway {
	if secretKey == "" {
		return &StripeGateway{}
	}
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeGateway{api: api}
}

// CreateCheckoutSession creates a hosted payment-mode checkout session
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req *SessionRequest) (*Session, error) {
	if g.api == nil {
		return nil, ErrNotConfigured
	}

	params := &stripe.CheckoutSessionParams{
		Mode:                     stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:               stripe.String(req.SuccessURL),
		CancelURL:                stripe.String(req.CancelURL),
		CustomerCreation:         stripe.String(string(stripe.CheckoutSessionCustomerCreationIfRequired)),
		BillingAddressCollection: stripe.String(string(stripe.CheckoutSessionBillingAddressCollectionRequired)),
		PhoneNumberCollection: &stripe.CheckoutSessionPhoneNumberCollectionParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx

	if len(req.ShippingCountries) > 0 {
		params.ShippingAddressCollection = &stripe.CheckoutSessionShippingAddressCollectionParams{
			AllowedCountries: stripe.StringSlice(req.ShippingCountries),
		}
	}

	for _, item := range req.LineItems {
		product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(item.Name),
		}
		if item.Image != "" {
			product.Images = stripe.StringSlice([]string{item.Image})
		}
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				// Stripe expects lowercase ISO codes.
				Currency:    stripe.String(strings.ToLower(item.Currency)),
				UnitAmount:  stripe.Int64(item.UnitAmount),
				ProductData: product,
			},
		})
	}

	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	s, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe create session failed: %w", err)
	}
	return &Session{ID: s.ID, URL: s.URL}, nil
}

// GetCheckoutSession retrieves a session with its line items
func (g *StripeGateway) GetCheckoutSession(ctx context.Context, sessionID string) (*models.CheckoutSummary, error) {
	if g.api == nil {
		return nil, ErrNotConfigured
	}

	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("line_items")

	s, err := g.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == http.StatusNotFound {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("stripe get session failed: %w", err)
	}
	return summaryFromSession(s), nil
}

func summaryFromSession(s *stripe.CheckoutSession) *models.CheckoutSummary {
	summary := &models.CheckoutSummary{
		SessionID:   s.ID,
		Status:      string(s.Status),
		PaidStatus:  string(s.PaymentStatus),
		Created:     time.Unix(s.Created, 0).UTC(),
		AmountTotal: s.AmountTotal,
		Currency:    strings.ToUpper(string(s.Currency)),
		LineItems:   []models.CheckoutLineItem{},
	}

	if cd := s.CustomerDetails; cd != nil {
		summary.Customer = &models.CustomerDetails{
			Name:  cd.Name,
			Email: cd.Email,
			Phone: cd.Phone,
		}
		if a := cd.Address; a != nil {
			summary.Customer.Address = &models.Address{
				Line1:      a.Line1,
				Line2:      a.Line2,
				PostalCode: a.PostalCode,
				City:       a.City,
				State:      a.State,
				Country:    a.Country,
			}
		}
	}

	if s.LineItems != nil {
		for _, li := range s.LineItems.Data {
			summary.LineItems = append(summary.LineItems, models.CheckoutLineItem{
				Description: li.Description,
				Quantity:    li.Quantity,
				AmountTotal: li.AmountTotal,
				Currency:    strings.ToUpper(string(li.Currency)),
			})
		}
	}
	return summary
}

// WebhookVerifier checks Stripe-Signature headers against the endpoint secret.
type WebhookVerifier struct {
	secret string
}

// NewWebhookVerifier creates a verifier. An empty secret rejects everything.
func NewWebhookVerifier(secret string) *WebhookVerifier {
	return &WebhookVerifier{secret: secret}
}

// Verify authenticates the raw request body and decodes the event envelope.
// payload must be the exact bytes received.
func (v *WebhookVerifier) Verify(payload []byte, signatureHeader string) (*Event, error) {
	if v.secret == "" {
		return nil, errors.New("webhook secret not configured")
	}
	if signatureHeader == "" {
		return nil, errors.New("missing signature header")
	}

	evt, err := webhook.ConstructEventWithOptions(payload, signatureHeader, v.secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, err
	}

	out := &Event{ID: evt.ID, Type: string(evt.Type)}
	if evt.Data != nil {
		out.Object = evt.Data.Raw
	}
	return out, nil
}
