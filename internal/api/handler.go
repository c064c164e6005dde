package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"art-store/internal/apperr"
	"art-store/internal/cart"
	"art-store/internal/service"
	"art-store/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// Pinger is a dependency checked by the readiness probe
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps holds everything the HTTP layer talks to
type Deps struct {
	Catalog    *service.CatalogService
	Checkout   *service.CheckoutService
	Settlement *service.SettlementService
	Auth       *service.AuthService
	Carts      cart.Store
	Checks     map[string]Pinger
	SiteURL    string

	// VerboseErrors exposes upstream error detail to clients.
	VerboseErrors bool
}

// Handler contains HTTP handlers
type Handler struct {
	catalog    *service.CatalogService
	checkout   *service.CheckoutService
	settlement *service.SettlementService
	auth       *service.AuthService
	carts      cart.Store
	checks     map[string]Pinger
	siteURL    string
	dev        bool
	logger     *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(d Deps) *Handler {
	return &Handler{
		catalog:    d.Catalog,
		checkout:   d.Checkout,
		settlement: d.Settlement,
		auth:       d.Auth,
		carts:      d.Carts,
		checks:     d.Checks,
		siteURL:    strings.TrimRight(d.SiteURL, "/"),
		dev:        d.VerboseErrors,
		logger:     util.Component("http"),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(tracingMiddleware())
	router.Use(gin.Logger())
	router.Use(h.adminGate())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/robots.txt", h.robots)
	router.GET("/sitemap.xml", h.sitemap)

	admin := router.Group("/admin")
	{
		admin.GET("", h.adminPage)
		admin.GET("/login", h.loginPage)
		admin.POST("/login", h.login)
		admin.POST("/logout", h.logout)
	}

	api := router.Group("/api")
	{
		api.GET("/artworks", h.listArtworks)

		api.GET("/cart", h.getCart)
		api.POST("/cart/items", h.addCartItem)
		api.DELETE("/cart/items/:id", h.removeCartItem)
		api.DELETE("/cart", h.clearCart)

		api.POST("/checkout", h.createCheckout)
		api.GET("/checkout/session", h.checkoutSession)

		api.POST("/stripe/webhook", h.stripeWebhook)

		api.POST("/admin/login", h.login)
		api.POST("/admin/logout", h.logout)
		api.POST("/admin/artworks", h.createArtwork)
		api.POST("/admin/storage/signed-upload", h.signUploads)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck pings the database and Redis
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failed := gin.H{}
	for name, dep := range h.checks {
		if err := dep.Ping(ctx); err != nil {
			h.logger.Warn("Readiness check failed", zap.String("dependency", name), zap.Error(err))
			failed[name] = "unavailable"
		}
	}
	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"failed": failed,
			"time":   time.Now().Unix(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// writeError maps an error onto the {error, code} response body. Upstream
// detail is only exposed in development.
func (h *Handler) writeError(c *gin.Context, err error) {
	var appErr *apperr.AppError
	if !errors.As(err, &appErr) {
		appErr = &apperr.AppError{
			Code:    "INTERNAL",
			Message: "internal error",
			Status:  http.StatusInternalServerError,
			Err:     err,
		}
	}

	body := gin.H{
		"error": appErr.Message,
		"code":  appErr.Code,
	}
	if h.dev {
		if cause := appErr.Cause(); cause != nil {
			body["details"] = cause.Error()
		} else if appErr.Code == "INTERNAL" {
			body["details"] = err.Error()
		}
	}
	if appErr.Status >= http.StatusInternalServerError {
		h.logger.Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.Int("status", appErr.Status),
			util.TraceField(c.Request.Context()),
			zap.Error(err))
	}

	c.AbortWithStatusJSON(appErr.Status, body)
}

// tracingMiddleware opens the root span each service span hangs off
func tracingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		ctx, span := util.StartSpan(c.Request.Context(), c.Request.Method+" "+route,
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.route", route))
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.status_code", status))
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
