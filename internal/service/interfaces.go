package service

import (
	"context"
	"time"

	"art-store/internal/models"
	"art-store/internal/payment"
	"art-store/internal/storage"
)

// ArtworkStore is the catalog store
type ArtworkStore interface {
	ListArtworks(ctx context.Context) ([]models.Artwork, error)
	GetArtworksByIDs(ctx context.Context, ids []string) ([]models.Artwork, error)
	CreateArtwork(ctx context.Context, in *models.NewArtwork) (*models.Artwork, error)
	MarkArtworksSold(ctx context.Context, ids []string) (int64, error)
}

// CheckoutGateway creates and reads hosted checkout sessions
type CheckoutGateway interface {
	CreateCheckoutSession(ctx context.Context, req *payment.SessionRequest) (*payment.Session, error)
	GetCheckoutSession(ctx context.Context, sessionID string) (*models.CheckoutSummary, error)
}

// WebhookVerifier authenticates raw webhook deliveries
type WebhookVerifier interface {
	Verify(payload []byte, signatureHeader string) (*payment.Event, error)
}

// EventPublisher announces catalog changes
type EventPublisher interface {
	PublishArtworksSold(ctx context.Context, checkoutSessionID string, artworkIDs []string) error
	PublishArtworkCreated(ctx context.Context, artwork *models.Artwork) error
}

// CatalogCache caches the gallery listing
type CatalogCache interface {
	GetCatalogCache(ctx context.Context) ([]byte, bool, error)
	SetCatalogCache(ctx context.Context, data []byte, ttl time.Duration) error
	InvalidateCatalogCache(ctx context.Context) error
}

// IdempotencyStore remembers processed webhook events and serializes
// concurrent deliveries of the same event
type IdempotencyStore interface {
	CheckIdempotencyKey(ctx context.Context, key string) (bool, error)
	SetIdempotencyKey(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, lockKey string) error
}

// ImageStorage stores artwork images
type ImageStorage interface {
	Upload(ctx context.Context, in *storage.UploadInput) (string, error)
	SignUpload(ctx context.Context, fileName, contentType string) (*storage.SignedUpload, error)
}

// SessionStore keeps admin session tokens
type SessionStore interface {
	CreateAdminSession(ctx context.Context, token string, ttl time.Duration) error
	AdminSessionExists(ctx context.Context, token string) (bool, error)
	DeleteAdminSession(ctx context.Context, token string) error
}
