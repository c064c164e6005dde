package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"art-store/internal/apperr"
	"art-store/internal/models"
	"art-store/internal/payment"
	"art-store/internal/util"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Metadata keys carrying the purchased artwork ids through the gateway.
const (
	MetadataArtworkIDs       = "artwork_ids"
	legacyMetadataArtworkIDs = "artwork_ids_csv"
)

// CheckoutService turns a list of artwork ids into a hosted payment page,
// always pricing from the catalog store.
type CheckoutService struct {
	artworks          ArtworkStore
	gateway           CheckoutGateway
	siteURL           *url.URL
	shippingCountries []string
	logger            *zap.Logger
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(
	artworks ArtworkStore,
	gateway CheckoutGateway,
	siteURL string,
	shippingCountries []string,
) *CheckoutService {
	u, err := url.Parse(strings.TrimRight(siteURL, "/"))
	if err != nil || u.Host == "" {
		u = &url.URL{Scheme: "http", Host: "localhost:8080"}
	}
	return &CheckoutService{
		artworks:          artworks,
		gateway:           gateway,
		siteURL:           u,
		shippingCountries: shippingCountries,
		logger:            util.Component("checkout"),
	}
}

// CreateCheckoutRequest is the validated input of a checkout attempt
type CreateCheckoutRequest struct {
	ArtworkIDs []string
	SuccessURL string
	CancelURL  string
}

// CreateCheckoutResponse carries the hosted payment page
type CreateCheckoutResponse struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// CreateCheckout validates the requested artworks against the catalog and
// creates a hosted checkout session for them
func (s *CheckoutService) CreateCheckout(ctx context.Context, req *CreateCheckoutRequest) (*CreateCheckoutResponse, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.CreateCheckout")
	defer span.End()

	start := time.Now()
	defer func() {
		util.CheckoutLatency.Observe(time.Since(start).Seconds())
	}()

	ids := uniqueIDs(req.ArtworkIDs)
	span.SetAttributes(attribute.StringSlice("artwork.ids", ids))
	if len(ids) == 0 {
		util.CheckoutRejectedTotal.WithLabelValues("empty").Inc()
		return nil, apperr.InvalidRequest("no artworks given")
	}

	artworks, err := s.artworks.GetArtworksByIDs(ctx, ids)
	if err != nil {
		util.FailSpan(span, err)
		util.CheckoutRejectedTotal.WithLabelValues("catalog_error").Inc()
		s.logger.Error("Failed to load artworks for checkout", zap.Strings("artwork_ids", ids), zap.Error(err))
		return nil, apperr.Upstream("catalog unavailable", err)
	}

	byID := make(map[string]*models.Artwork, len(artworks))
	for i := range artworks {
		byID[artworks[i].ID] = &artworks[i]
	}

	var missing []string
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		util.CheckoutRejectedTotal.WithLabelValues("not_found").Inc()
		return nil, apperr.NotFound("artworks", missing...)
	}

	var unavailable []string
	for _, id := range ids {
		if a := byID[id]; !a.Available {
			unavailable = append(unavailable, a.Title)
		}
	}
	if len(unavailable) > 0 {
		util.CheckoutRejectedTotal.WithLabelValues("unavailable").Inc()
		return nil, apperr.Conflict("not available: " + strings.Join(unavailable, ", "))
	}

	lineItems := make([]payment.LineItem, 0, len(ids))
	for _, id := range ids {
		a := byID[id]
		currency, ok := models.NormalizeCurrency(a.CurrencyCode)
		if !ok {
			currency = models.DefaultCurrency
		}
		lineItems = append(lineItems, payment.LineItem{
			Name:       a.Title,
			UnitAmount: a.PriceMinorUnits,
			Currency:   currency,
			Image:      a.PrimaryImage(),
		})
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, &payment.SessionRequest{
		LineItems:         lineItems,
		SuccessURL:        s.redirectURL(req.SuccessURL, "/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:         s.redirectURL(req.CancelURL, "/cart"),
		Metadata:          map[string]string{MetadataArtworkIDs: strings.Join(ids, ",")},
		ShippingCountries: s.shippingCountries,
	})
	if err != nil {
		util.FailSpan(span, err)
		util.CheckoutRejectedTotal.WithLabelValues("gateway_error").Inc()
		s.logger.Error("Failed to create checkout session", zap.Strings("artwork_ids", ids), zap.Error(err))
		return nil, apperr.Upstream("payment gateway unavailable", err)
	}

	util.CheckoutSessionsCreatedTotal.Inc()
	s.logger.Info("Checkout session created",
		zap.String("session_id", session.ID),
		zap.Strings("artwork_ids", ids))

	return &CreateCheckoutResponse{SessionID: session.ID, URL: session.URL}, nil
}

// GetOrderSummary returns the gateway's view of a checkout session
func (s *CheckoutService) GetOrderSummary(ctx context.Context, sessionID string) (*models.CheckoutSummary, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.GetOrderSummary")
	defer span.End()

	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, apperr.InvalidRequest("session_id is required")
	}

	summary, err := s.gateway.GetCheckoutSession(ctx, sessionID)
	if errors.Is(err, payment.ErrSessionNotFound) {
		return nil, apperr.NotFound("checkout session", sessionID)
	}
	if err != nil {
		util.FailSpan(span, err)
		s.logger.Error("Failed to load checkout session", zap.String("session_id", sessionID), zap.Error(err))
		return nil, apperr.Upstream("payment gateway unavailable", err)
	}
	return summary, nil
}

// redirectURL accepts a caller-supplied URL only on the site's own origin.
func (s *CheckoutService) redirectURL(candidate, defaultPath string) string {
	if candidate != "" {
		u, err := url.Parse(candidate)
		if err == nil && u.Scheme == s.siteURL.Scheme && u.Host == s.siteURL.Host {
			return candidate
		}
		s.logger.Warn("Ignoring foreign redirect URL", zap.String("url", candidate))
	}
	return s.siteURL.String() + defaultPath
}

// uniqueIDs trims ids, drops empty ones and keeps the first occurrence.
func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// splitArtworkIDs parses the comma separated metadata value.
func splitArtworkIDs(csv string) []string {
	return uniqueIDs(strings.Split(csv, ","))
}

func artworkIDsFromMetadata(md map[string]string) []string {
	if v, ok := md[MetadataArtworkIDs]; ok && strings.TrimSpace(v) != "" {
		return splitArtworkIDs(v)
	}
	return splitArtworkIDs(md[legacyMetadataArtworkIDs])
}
