package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"art-store/internal/apperr"
	"art-store/internal/models"
	"art-store/internal/storage"
	"art-store/internal/util"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// MaxImagesPerArtwork caps uploads per artwork and per signing request.
const MaxImagesPerArtwork = 5

// CatalogService serves the gallery and lets the admin add artworks
type CatalogService struct {
	artworks  ArtworkStore
	cache     CatalogCache
	images    ImageStorage
	publisher EventPublisher
	cacheTTL  time.Duration
	logger    *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(
	artworks ArtworkStore,
	cache CatalogCache,
	images ImageStorage,
	publisher EventPublisher,
	cacheTTL time.Duration,
) *CatalogService {
	return &CatalogService{
		artworks:  artworks,
		cache:     cache,
		images:    images,
		publisher: publisher,
		cacheTTL:  cacheTTL,
		logger:    util.Component("catalog"),
	}
}

// ListArtworks returns every artwork, newest first, sold ones included.
func (s *CatalogService) ListArtworks(ctx context.Context) ([]models.Artwork, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.ListArtworks")
	defer span.End()

	if s.cacheTTL > 0 {
		data, ok, err := s.cache.GetCatalogCache(ctx)
		switch {
		case err != nil:
			util.CatalogCacheTotal.WithLabelValues("error").Inc()
			s.logger.Warn("Catalog cache read failed", zap.Error(err))
		case ok:
			var cached []models.Artwork
			if err := json.Unmarshal(data, &cached); err == nil {
				util.CatalogCacheTotal.WithLabelValues("hit").Inc()
				return cached, nil
			}
			util.CatalogCacheTotal.WithLabelValues("corrupt").Inc()
		default:
			util.CatalogCacheTotal.WithLabelValues("miss").Inc()
		}
	}

	artworks, err := s.artworks.ListArtworks(ctx)
	if err != nil {
		util.FailSpan(span, err)
		s.logger.Error("Failed to list artworks", zap.Error(err))
		return nil, apperr.Upstream("catalog unavailable", err)
	}
	if artworks == nil {
		artworks = []models.Artwork{}
	}

	if s.cacheTTL > 0 {
		if data, err := json.Marshal(artworks); err == nil {
			if err := s.cache.SetCatalogCache(ctx, data, s.cacheTTL); err != nil {
				s.logger.Warn("Catalog cache write failed", zap.Error(err))
			}
		}
	}
	return artworks, nil
}

// CreateArtworkInput is the raw admin form. Text fields are parsed here so
// the HTTP layer stays thin.
type CreateArtworkInput struct {
	Title       string
	Description string
	Size        string
	Price       string
	Currency    string
	Available   string
	Images      []storage.UploadInput
}

// CreateArtwork validates the form, uploads its images and inserts the artwork.
func (s *CatalogService) CreateArtwork(ctx context.Context, in *CreateArtworkInput) (*models.Artwork, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.CreateArtwork")
	defer span.End()

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperr.InvalidRequest("title is required")
	}

	price, err := ParsePriceMinorUnits(in.Price)
	if err != nil {
		return nil, err
	}

	currency := models.DefaultCurrency
	if c := strings.TrimSpace(in.Currency); c != "" {
		var ok bool
		if currency, ok = models.NormalizeCurrency(c); !ok {
			return nil, apperr.InvalidRequest("currency must be a three letter code")
		}
	}

	var files []storage.UploadInput
	for _, f := range in.Images {
		if f.Size > 0 {
			files = append(files, f)
		}
	}
	if len(files) > MaxImagesPerArtwork {
		return nil, apperr.InvalidRequest("at most 5 images per artwork")
	}

	images := make([]string, 0, len(files))
	for i := range files {
		publicURL, err := s.images.Upload(ctx, &files[i])
		if err != nil {
			util.ImageUploadsTotal.WithLabelValues("error").Inc()
			util.FailSpan(span, err)
			s.logger.Error("Image upload failed", zap.String("file", files[i].FileName), zap.Error(err))
			return nil, apperr.Upstream("image upload failed", err)
		}
		util.ImageUploadsTotal.WithLabelValues("ok").Inc()
		images = append(images, publicURL)
	}

	artwork, err := s.artworks.CreateArtwork(ctx, &models.NewArtwork{
		Title:           title,
		Description:     strings.TrimSpace(in.Description),
		SizeDescription: strings.TrimSpace(in.Size),
		PriceMinorUnits: price,
		CurrencyCode:    currency,
		Available:       parseAvailable(in.Available),
		Images:          images,
	})
	if err != nil {
		util.FailSpan(span, err)
		s.logger.Error("Failed to insert artwork", zap.String("title", title), zap.Error(err))
		return nil, apperr.Upstream("catalog unavailable", err)
	}
	span.SetAttributes(attribute.String("artwork.id", artwork.ID))

	util.ArtworksCreatedTotal.Inc()
	s.logger.Info("Artwork created",
		zap.String("artwork_id", artwork.ID),
		zap.Int("images", len(images)))

	if err := s.cache.InvalidateCatalogCache(ctx); err != nil {
		s.logger.Warn("Failed to invalidate catalog cache", zap.Error(err))
	}
	if err := s.publisher.PublishArtworkCreated(ctx, artwork); err != nil {
		s.logger.Error("Failed to publish ArtworkCreated event", zap.Error(err))
	}
	return artwork, nil
}

// UploadFile names one file a browser wants to upload directly.
type UploadFile struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// SignUploads returns one presigned PUT per file.
func (s *CatalogService) SignUploads(ctx context.Context, files []UploadFile) ([]storage.SignedUpload, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.SignUploads")
	defer span.End()

	if len(files) == 0 {
		return nil, apperr.InvalidRequest("no files given")
	}
	if len(files) > MaxImagesPerArtwork {
		return nil, apperr.InvalidRequest("at most 5 files per request")
	}

	out := make([]storage.SignedUpload, 0, len(files))
	for _, f := range files {
		signed, err := s.images.SignUpload(ctx, f.Name, f.Type)
		if err != nil {
			util.FailSpan(span, err)
			s.logger.Error("Failed to sign upload", zap.String("file", f.Name), zap.Error(err))
			return nil, apperr.Upstream("storage unavailable", err)
		}
		out = append(out, *signed)
	}
	return out, nil
}

// ParsePriceMinorUnits parses a major-unit price such as "1200", "12.5" or
// "12,50" into cents.
func ParsePriceMinorUnits(raw string) (int64, error) {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	if raw == "" {
		return 0, apperr.InvalidRequest("price is required")
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, apperr.InvalidRequest("price must be a number")
	}
	if d.IsNegative() {
		return 0, apperr.InvalidRequest("price must not be negative")
	}
	return d.Shift(2).Round(0).IntPart(), nil
}

func parseAvailable(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return true
	case "true", "on", "1", "yes":
		return true
	default:
		return false
	}
}
