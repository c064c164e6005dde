package worker

import (
	"context"
	"fmt"

	"art-store/internal/broker"
	"art-store/internal/models"
	"art-store/internal/util"

	"go.uber.org/zap"
)

type catalogCache interface {
	InvalidateCatalogCache(ctx context.Context) error
}

// CacheWorker drops the cached gallery listing whenever the catalog changes
type CacheWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	cache        catalogCache
	logger       *zap.Logger
}

// NewCacheWorker creates a new cache worker
func NewCacheWorker(consumer *broker.Consumer, cache catalogCache) *CacheWorker {
	w := &CacheWorker{
		consumer:     consumer,
		eventHandler: broker.NewEventHandler(),
		cache:        cache,
		logger:       util.Component("cache-worker"),
	}

	w.eventHandler.OnArtworksSold(w.handleArtworksSold)
	w.eventHandler.OnArtworkCreated(w.handleArtworkCreated)
	return w
}

func (w *CacheWorker) handleArtworksSold(ctx context.Context, event *models.ArtworksSoldEvent) error {
	w.logger.Info("Artworks sold, invalidating catalog cache",
		zap.String("session_id", event.CheckoutSessionID),
		zap.Strings("artwork_ids", event.ArtworkIDs))
	return w.invalidate(ctx)
}

func (w *CacheWorker) handleArtworkCreated(ctx context.Context, event *models.ArtworkCreatedEvent) error {
	w.logger.Info("Artwork created, invalidating catalog cache", zap.String("artwork_id", event.ArtworkID))
	return w.invalidate(ctx)
}

func (w *CacheWorker) invalidate(ctx context.Context) error {
	if err := w.cache.InvalidateCatalogCache(ctx); err != nil {
		return fmt.Errorf("failed to invalidate catalog cache: %w", err)
	}
	return nil
}

// Start starts the worker
func (w *CacheWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting catalog cache worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *CacheWorker) Stop() error {
	w.logger.Info("Stopping catalog cache worker")
	return w.consumer.Close()
}
