package api

import (
	"io"
	"net/http"

	"art-store/internal/apperr"
	"art-store/internal/cart"
	"art-store/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	cartCookie       = "cart_id"
	cartCookieMaxAge = 30 * 24 * 60 * 60
)

type cartResponse struct {
	Items    []models.CartEntry `json:"items"`
	Count    int                `json:"count"`
	Total    int64              `json:"total_cents"`
	Currency string             `json:"currency"`
}

// openCart loads the caller's cart, issuing a cart cookie on first access.
func (h *Handler) openCart(c *gin.Context) *cart.Cart {
	id, err := c.Cookie(cartCookie)
	if err != nil || !validCartID(id) {
		id = uuid.New().String()
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(cartCookie, id, cartCookieMaxAge, "/", "", !h.dev, true)
	}
	return cart.Open(c.Request.Context(), h.carts, id, h.logger)
}

func validCartID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func writeCart(c *gin.Context, status int, cc *cart.Cart) {
	c.JSON(status, cartResponse{
		Items:    cc.Entries(),
		Count:    cc.Count(),
		Total:    cc.TotalMinorUnits(),
		Currency: cc.Currency(),
	})
}

func (h *Handler) getCart(c *gin.Context) {
	writeCart(c, http.StatusOK, h.openCart(c))
}

// addCartItem stores a snapshot of an artwork. Adding an artwork that is
// already in the cart changes nothing.
func (h *Handler) addCartItem(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<16))
	if err != nil {
		h.writeError(c, apperr.InvalidRequest("unreadable body"))
		return
	}
	entry, ok := cart.ParseEntry(body)
	if !ok {
		h.writeError(c, apperr.InvalidRequest("cart item needs an id"))
		return
	}

	cc := h.openCart(c)
	status := http.StatusOK
	if cc.Add(c.Request.Context(), entry) {
		status = http.StatusCreated
	}
	writeCart(c, status, cc)
}

func (h *Handler) removeCartItem(c *gin.Context) {
	cc := h.openCart(c)
	cc.Remove(c.Request.Context(), c.Param("id"))
	writeCart(c, http.StatusOK, cc)
}

func (h *Handler) clearCart(c *gin.Context) {
	cc := h.openCart(c)
	cc.Clear(c.Request.Context())
	writeCart(c, http.StatusOK, cc)
}
