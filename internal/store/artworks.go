package store

import (
	"context"
	"fmt"

	"art-store/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const artworkColumns = "id, title, description, size, price_cents, currency, available, images, created_at"

// ListArtworks retrieves all artworks, newest first
func (s *Store) ListArtworks(ctx context.Context) ([]models.Artwork, error) {
	artworks := []models.Artwork{}
	err := s.db.SelectContext(ctx, &artworks,
		"SELECT "+artworkColumns+" FROM artworks ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to list artworks: %w", err)
	}
	return artworks, nil
}

// GetArtworksByIDs retrieves the artworks with the given IDs. Missing IDs are
// simply absent from the result.
func (s *Store) GetArtworksByIDs(ctx context.Context, ids []string) ([]models.Artwork, error) {
	if len(ids) == 0 {
		return []models.Artwork{}, nil
	}

	query, args, err := sqlx.In("SELECT "+artworkColumns+" FROM artworks WHERE id IN (?)", ids)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	artworks := []models.Artwork{}
	if err := s.db.SelectContext(ctx, &artworks, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get artworks: %w", err)
	}
	return artworks, nil
}

// CreateArtwork inserts a new artwork and returns the stored record
func (s *Store) CreateArtwork(ctx context.Context, in *models.NewArtwork) (*models.Artwork, error) {
	query := `
		INSERT INTO artworks (id, title, description, size, price_cents, currency, available, images)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + artworkColumns

	images := in.Images
	if images == nil {
		images = []string{}
	}

	var artwork models.Artwork
	err := s.db.GetContext(ctx, &artwork, query,
		uuid.New().String(), in.Title, in.Description, in.SizeDescription,
		in.PriceMinorUnits, in.CurrencyCode, in.Available, pq.StringArray(images))
	if err != nil {
		return nil, fmt.Errorf("failed to create artwork: %w", err)
	}
	return &artwork, nil
}

// MarkArtworksSold sets available=false for all given IDs in one statement.
// Rows already sold are left alone, so repeating the call is harmless. It
// returns the number of rows that changed.
func (s *Store) MarkArtworksSold(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query, args, err := sqlx.In("UPDATE artworks SET available = false WHERE id IN (?) AND available = true", ids)
	if err != nil {
		return 0, err
	}
	query = s.db.Rebind(query)

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to mark artworks sold: %w", err)
	}
	return res.RowsAffected()
}
