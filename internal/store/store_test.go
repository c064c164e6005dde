package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"art-store/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewWithDB(sqlx.NewDb(db, "postgres")), mock
}

func artworkRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "title", "description", "size", "price_cents", "currency", "available", "images", "created_at",
	})
}

func TestGetArtworksByIDs(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+artworkColumns+" FROM artworks WHERE id IN ($1, $2)")).
		WithArgs("art-1", "art-2").
		WillReturnRows(artworkRows().
			AddRow("art-1", "Blue Hour", "", "60x80", int64(85000), "EUR", true, "{https://cdn/a.jpg,https://cdn/b.jpg}", now))

	got, err := s.GetArtworksByIDs(context.Background(), []string{"art-1", "art-2"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "art-1", got[0].ID)
	assert.Equal(t, int64(85000), got[0].PriceMinorUnits)
	assert.True(t, got[0].Available)
	assert.Equal(t, []string{"https://cdn/a.jpg", "https://cdn/b.jpg"}, []string(got[0].Images))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetArtworksByIDsEmpty(t *testing.T) {
	s, mock := newMockStore(t)

	got, err := s.GetArtworksByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListArtworks(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + artworkColumns + " FROM artworks ORDER BY created_at DESC")).
		WillReturnRows(artworkRows().
			AddRow("b", "Second", "", "", int64(100), "EUR", false, "{}", now).
			AddRow("a", "First", "oil", "", int64(200), "EUR", true, "{}", now))

	got, err := s.ListArtworks(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ID)
	assert.False(t, got[0].Available)
	assert.Empty(t, got[0].Images)
}

func TestCreateArtwork(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery("INSERT INTO artworks").
		WithArgs(sqlmock.AnyArg(), "Dune", "sand tones", "40x40", int64(12050), "EUR", true, sqlmock.AnyArg()).
		WillReturnRows(artworkRows().
			AddRow("new-id", "Dune", "sand tones", "40x40", int64(12050), "EUR", true, "{https://cdn/x.webp}", now))

	got, err := s.CreateArtwork(context.Background(), &models.NewArtwork{
		Title:           "Dune",
		Description:     "sand tones",
		SizeDescription: "40x40",
		PriceMinorUnits: 12050,
		CurrencyCode:    "EUR",
		Available:       true,
		Images:          []string{"https://cdn/x.webp"},
	})
	require.NoError(t, err)
	assert.Equal(t, "new-id", got.ID)
	assert.Equal(t, "https://cdn/x.webp", got.PrimaryImage())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkArtworksSold(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE artworks SET available = false WHERE id IN ($1, $2) AND available = true")).
		WithArgs("a", "b").
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := s.MarkArtworksSold(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkArtworksSoldTwiceChangesNothing(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("UPDATE artworks SET available = false").
		WithArgs("a").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE artworks SET available = false").
		WithArgs("a").
		WillReturnResult(sqlmock.NewResult(0, 0))

	n, err := s.MarkArtworksSold(context.Background(), []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = s.MarkArtworksSold(context.Background(), []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestMarkArtworksSoldError(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("UPDATE artworks").WillReturnError(errors.New("connection reset"))

	_, err := s.MarkArtworksSold(context.Background(), []string{"a"})
	assert.ErrorContains(t, err, "connection reset")
}

func TestMarkArtworksSoldNoIDs(t *testing.T) {
	s, mock := newMockStore(t)

	n, err := s.MarkArtworksSold(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
