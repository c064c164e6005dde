package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"art-store/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCache struct {
	invalidations int
	err           error
}

func (f *fakeCache) InvalidateCatalogCache(context.Context) error {
	f.invalidations++
	return f.err
}

func message(t *testing.T, event interface{}) kafka.Message {
	t.Helper()
	data, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{Value: data}
}

func TestCacheWorkerInvalidatesOnCatalogEvents(t *testing.T) {
	cache := &fakeCache{}
	w := NewCacheWorker(nil, cache)
	ctx := context.Background()

	sold := &models.ArtworksSoldEvent{
		BaseEvent:         models.BaseEvent{EventID: "e1", EventType: models.EventTypeArtworksSold},
		CheckoutSessionID: "cs_1",
		ArtworkIDs:        []string{"a"},
	}
	created := &models.ArtworkCreatedEvent{
		BaseEvent: models.BaseEvent{EventID: "e2", EventType: models.EventTypeArtworkCreated},
		ArtworkID: "b",
	}

	require.NoError(t, w.eventHandler.HandleMessage(ctx, message(t, sold)))
	require.NoError(t, w.eventHandler.HandleMessage(ctx, message(t, created)))
	assert.Equal(t, 2, cache.invalidations)

	other := models.BaseEvent{EventID: "e3", EventType: "SOMETHING_ELSE"}
	require.NoError(t, w.eventHandler.HandleMessage(ctx, message(t, other)))
	assert.Equal(t, 2, cache.invalidations)
}

func TestCacheWorkerReportsCacheErrors(t *testing.T) {
	cache := &fakeCache{err: errors.New("redis down")}
	w := NewCacheWorker(nil, cache)

	sold := &models.ArtworksSoldEvent{
		BaseEvent:  models.BaseEvent{EventID: "e1", EventType: models.EventTypeArtworksSold},
		ArtworkIDs: []string{"a"},
	}
	err := w.eventHandler.HandleMessage(context.Background(), message(t, sold))
	assert.ErrorContains(t, err, "redis down")
}
