package payment

import (
	"context"
	"errors"
	"time"

	"art-store/internal/models"
	"art-store/internal/util"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// ErrGatewayOpen is returned while the breaker rejects calls to Stripe.
var ErrGatewayOpen = gobreaker.ErrOpenState

type checkoutGateway interface {
	CreateCheckoutSession(ctx context.Context, req *SessionRequest) (*Session, error)
	GetCheckoutSession(ctx context.Context, sessionID string) (*models.CheckoutSummary, error)
}

// BreakerConfig tunes when the gateway breaker opens.
type BreakerConfig struct {
	Timeout      time.Duration
	Interval     time.Duration
	FailureRatio float64
	MinRequests  uint32
}

// DefaultBreakerConfig trips after half of at least five calls fail and
// probes again after 30 seconds.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Timeout:      30 * time.Second,
		Interval:     60 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

// BreakerGateway fails fast while Stripe is unhealthy. Calls are never
// retried.
type BreakerGateway struct {
	next   checkoutGateway
	create *gobreaker.CircuitBreaker[*Session]
	get    *gobreaker.CircuitBreaker[*models.CheckoutSummary]
	logger *zap.Logger
}

// NewBreakerGateway wraps next with one breaker per operation.
func NewBreakerGateway(next checkoutGateway, cfg BreakerConfig) *BreakerGateway {
	g := &BreakerGateway{next: next, logger: util.Component("payment-breaker")}
	g.create = gobreaker.NewCircuitBreaker[*Session](g.settings("stripe_create_session", cfg))
	g.get = gobreaker.NewCircuitBreaker[*models.CheckoutSummary](g.settings("stripe_get_session", cfg))
	return g
}

func (g *BreakerGateway) settings(name string, cfg BreakerConfig) gobreaker.Settings {
	util.GatewayBreakerState.WithLabelValues(name).Set(0)
	return gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		// Caller mistakes and missing configuration say nothing about
		// Stripe's health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrNotConfigured)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			g.logger.Warn("Payment gateway breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
			util.GatewayBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
		},
	}
}

func breakerStateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// CreateCheckoutSession creates a session unless the breaker is open
func (g *BreakerGateway) CreateCheckoutSession(ctx context.Context, req *SessionRequest) (*Session, error) {
	return g.create.Execute(func() (*Session, error) {
		return g.next.CreateCheckoutSession(ctx, req)
	})
}

// GetCheckoutSession retrieves a session unless the breaker is open
func (g *BreakerGateway) GetCheckoutSession(ctx context.Context, sessionID string) (*models.CheckoutSummary, error) {
	return g.get.Execute(func() (*models.CheckoutSummary, error) {
		return g.next.GetCheckoutSession(ctx, sessionID)
	})
}
