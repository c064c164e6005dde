package service

import (
	"context"
	"testing"

	"art-store/internal/models"
	"art-store/internal/payment"
	"art-store/internal/redisclient"
	"art-store/internal/storage"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/mock"
)

// --- Mock artwork store ---

type mockArtworkStore struct {
	mock.Mock
}

func (m *mockArtworkStore) ListArtworks(ctx context.Context) ([]models.Artwork, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Artwork), args.Error(1)
}

func (m *mockArtworkStore) GetArtworksByIDs(ctx context.Context, ids []string) ([]models.Artwork, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Artwork), args.Error(1)
}

func (m *mockArtworkStore) CreateArtwork(ctx context.Context, in *models.NewArtwork) (*models.Artwork, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Artwork), args.Error(1)
}

func (m *mockArtworkStore) MarkArtworksSold(ctx context.Context, ids []string) (int64, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).(int64), args.Error(1)
}

// --- Mock payment gateway ---

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) CreateCheckoutSession(ctx context.Context, req *payment.SessionRequest) (*payment.Session, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Session), args.Error(1)
}

func (m *mockGateway) GetCheckoutSession(ctx context.Context, sessionID string) (*models.CheckoutSummary, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CheckoutSummary), args.Error(1)
}

// --- Mock event publisher ---

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishArtworksSold(ctx context.Context, checkoutSessionID string, artworkIDs []string) error {
	args := m.Called(ctx, checkoutSessionID, artworkIDs)
	return args.Error(0)
}

func (m *mockPublisher) PublishArtworkCreated(ctx context.Context, artwork *models.Artwork) error {
	args := m.Called(ctx, artwork)
	return args.Error(0)
}

// --- Mock image storage ---

type mockImages struct {
	mock.Mock
}

func (m *mockImages) Upload(ctx context.Context, in *storage.UploadInput) (string, error) {
	args := m.Called(ctx, in)
	return args.String(0), args.Error(1)
}

func (m *mockImages) SignUpload(ctx context.Context, fileName, contentType string) (*storage.SignedUpload, error) {
	args := m.Called(ctx, fileName, contentType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.SignedUpload), args.Error(1)
}

// --- Test helpers ---

func setupTestRedis(t *testing.T) (*redisclient.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return redisclient.NewWithRedis(rdb), mr
}

func artwork(id, title string, price int64, available bool) models.Artwork {
	return models.Artwork{
		ID:              id,
		Title:           title,
		PriceMinorUnits: price,
		CurrencyCode:    "EUR",
		Available:       available,
		Images:          []string{"https://cdn.example/" + id + ".jpg"},
	}
}
