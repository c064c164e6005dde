package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"art-store/internal/apperr"
	"art-store/internal/cart"
	"art-store/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Stripe recommends capping webhook bodies at 64 KiB.
const maxWebhookBody = 1 << 16

type checkoutRequest struct {
	Items      []json.RawMessage `json:"items"`
	SuccessURL string            `json:"success_url"`
	CancelURL  string            `json:"cancel_url"`
}

// itemIDs accepts plain id strings and cart snapshots alike and skips
// anything else. Anything a client says about price or title is dropped here.
func itemIDs(items []json.RawMessage) []string {
	ids := make([]string, 0, len(items))
	for _, raw := range items {
		var id string
		if err := json.Unmarshal(raw, &id); err == nil {
			ids = append(ids, id)
			continue
		}
		if entry, ok := cart.ParseEntry(raw); ok {
			ids = append(ids, entry.ID)
		}
	}
	return ids
}

// createCheckout handles checkout session creation
func (h *Handler) createCheckout(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, apperr.InvalidRequest("invalid request body"))
		return
	}

	resp, err := h.checkout.CreateCheckout(c.Request.Context(), &service.CreateCheckoutRequest{
		ArtworkIDs: itemIDs(req.Items),
		SuccessURL: req.SuccessURL,
		CancelURL:  req.CancelURL,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// checkoutSession returns the order summary for the success page and
// empties the caller's cart.
func (h *Handler) checkoutSession(c *gin.Context) {
	summary, err := h.checkout.GetOrderSummary(c.Request.Context(), c.Query("session_id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	if id, err := c.Cookie(cartCookie); err == nil && validCartID(id) {
		cart.Open(c.Request.Context(), h.carts, id, h.logger).Clear(c.Request.Context())
	}

	c.JSON(http.StatusOK, summary)
}

// stripeWebhook hands the raw body to settlement. Signature verification
// needs the exact bytes, so nothing may parse the body first.
func (h *Handler) stripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody+1))
	if err != nil {
		h.writeError(c, apperr.InvalidRequest("unreadable body"))
		return
	}
	if len(payload) > maxWebhookBody {
		h.writeError(c, apperr.InvalidRequest("body too large"))
		return
	}

	result, err := h.settlement.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	if result.Outcome == service.OutcomeUpdateFailed {
		h.logger.Warn("Webhook acknowledged without catalog update",
			zap.String("event_id", result.EventID),
			zap.String("artwork_ids", strings.Join(result.ArtworkIDs, ",")))
	}
	c.JSON(http.StatusOK, gin.H{
		"received": true,
		"outcome":  result.Outcome,
	})
}
