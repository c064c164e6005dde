package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CheckoutSessionsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkout_sessions_created_total",
		Help: "Total number of hosted checkout sessions created",
	})

	CheckoutRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_rejected_total",
		Help: "Total number of checkout attempts rejected before reaching the gateway",
	}, []string{"reason"})

	CheckoutLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkout_latency_seconds",
		Help:    "Latency of checkout session creation including catalog validation",
		Buckets: prometheus.DefBuckets,
	})

	WebhookEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_total",
		Help: "Total number of payment webhook deliveries",
	}, []string{"type", "outcome"})

	ArtworksSoldTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "artworks_sold_total",
		Help: "Total number of artworks flipped to unavailable by settlement",
	})

	ArtworksCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "artworks_created_total",
		Help: "Total number of artworks created through the admin area",
	})

	ImageUploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "image_uploads_total",
		Help: "Total number of artwork image uploads",
	}, []string{"outcome"})

	CatalogCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_cache_requests_total",
		Help: "Gallery listing cache lookups",
	}, []string{"result"})

	AdminLoginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "admin_logins_total",
		Help: "Admin login attempts",
	}, []string{"outcome"})

	GatewayBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "payment_gateway_breaker_state",
		Help: "Payment gateway circuit breaker state (0=closed, 1=half-open, 2=open)",
	}, []string{"name"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
