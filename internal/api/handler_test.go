package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"art-store/internal/cart"
	"art-store/internal/models"
	"art-store/internal/payment"
	"art-store/internal/redisclient"
	"art-store/internal/service"
	"art-store/internal/storage"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testPassword      = "open-sesame"
	testWebhookSecret = "whsec_api"
	testSiteURL       = "https://shop.example"
)

type memoryCatalog struct {
	mu       sync.Mutex
	artworks map[string]*models.Artwork
	order    []string
	soldErr  error
}

func newMemoryCatalog(items ...models.Artwork) *memoryCatalog {
	m := &memoryCatalog{artworks: map[string]*models.Artwork{}}
	for i := range items {
		a := items[i]
		m.artworks[a.ID] = &a
		m.order = append(m.order, a.ID)
	}
	return m
}

func (m *memoryCatalog) ListArtworks(context.Context) ([]models.Artwork, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Artwork, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *m.artworks[id])
	}
	return out, nil
}

func (m *memoryCatalog) GetArtworksByIDs(_ context.Context, ids []string) ([]models.Artwork, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Artwork
	for _, id := range ids {
		if a, ok := m.artworks[id]; ok {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *memoryCatalog) CreateArtwork(_ context.Context, in *models.NewArtwork) (*models.Artwork, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := &models.Artwork{
		ID:              "new-" + in.Title,
		Title:           in.Title,
		Description:     in.Description,
		SizeDescription: in.SizeDescription,
		PriceMinorUnits: in.PriceMinorUnits,
		CurrencyCode:    in.CurrencyCode,
		Available:       in.Available,
		Images:          in.Images,
		CreatedAt:       time.Now(),
	}
	m.artworks[a.ID] = a
	m.order = append([]string{a.ID}, m.order...)
	return a, nil
}

func (m *memoryCatalog) MarkArtworksSold(_ context.Context, ids []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.soldErr != nil {
		return 0, m.soldErr
	}
	var changed int64
	for _, id := range ids {
		if a, ok := m.artworks[id]; ok && a.Available {
			a.Available = false
			changed++
		}
	}
	return changed, nil
}

func (m *memoryCatalog) available(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.artworks[id].Available
}

type fakeGateway struct {
	requests []*payment.SessionRequest
	err      error
}

func (g *fakeGateway) CreateCheckoutSession(_ context.Context, req *payment.SessionRequest) (*payment.Session, error) {
	if g.err != nil {
		return nil, g.err
	}
	g.requests = append(g.requests, req)
	return &payment.Session{ID: "cs_test", URL: "https://checkout.stripe.test/cs_test"}, nil
}

func (g *fakeGateway) GetCheckoutSession(_ context.Context, id string) (*models.CheckoutSummary, error) {
	if id != "cs_test" {
		return nil, payment.ErrSessionNotFound
	}
	return &models.CheckoutSummary{SessionID: id, Status: "complete", PaidStatus: "paid", AmountTotal: 12000, Currency: "EUR"}, nil
}

type nopPublisher struct{}

func (nopPublisher) PublishArtworksSold(context.Context, string, []string) error { return nil }
func (nopPublisher) PublishArtworkCreated(context.Context, *models.Artwork) error { return nil }

type fakeImages struct {
	uploaded []string
}

func (f *fakeImages) Upload(_ context.Context, in *storage.UploadInput) (string, error) {
	data, err := io.ReadAll(in.Data)
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", errors.New("empty upload")
	}
	key := storage.ObjectKey(in.FileName, in.ContentType)
	f.uploaded = append(f.uploaded, key)
	return "https://cdn.example/" + key, nil
}

func (f *fakeImages) SignUpload(_ context.Context, name, contentType string) (*storage.SignedUpload, error) {
	key := storage.ObjectKey(name, contentType)
	return &storage.SignedUpload{Path: key, URL: "https://s3.example/" + key + "?sig", PublicURL: "https://cdn.example/" + key}, nil
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("down") }

type testEnv struct {
	router  *gin.Engine
	catalog *memoryCatalog
	gateway *fakeGateway
	images  *fakeImages
	redis   *redisclient.Client
	mr      *miniredis.Miniredis
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	rc := redisclient.NewWithRedis(rdb)

	env := &testEnv{
		catalog: newMemoryCatalog(
			models.Artwork{ID: "a", Title: "Amber", PriceMinorUnits: 12000, CurrencyCode: "EUR", Available: true},
			models.Artwork{ID: "b", Title: "Blue", PriceMinorUnits: 5000, CurrencyCode: "EUR", Available: true},
			models.Artwork{ID: "c", Title: "Coal", PriceMinorUnits: 7000, CurrencyCode: "EUR", Available: false},
		),
		gateway: &fakeGateway{},
		images:  &fakeImages{},
		redis:   rc,
		mr:      mr,
	}

	h := NewHandler(Deps{
		Catalog:    service.NewCatalogService(env.catalog, rc, env.images, nopPublisher{}, time.Minute),
		Checkout:   service.NewCheckoutService(env.catalog, env.gateway, testSiteURL, []string{"DE"}),
		Settlement: service.NewSettlementService(payment.NewWebhookVerifier(testWebhookSecret), env.catalog, rc, nopPublisher{}),
		Auth:       service.NewAuthService(testPassword, rc, 8*time.Hour),
		Carts:      cart.NewRedisStore(rc, time.Hour),
		Checks:     map[string]Pinger{"redis": rc},
		SiteURL:    testSiteURL,
	})
	env.router = gin.New()
	h.SetupRoutes(env.router)
	return env
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func cookieNamed(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	env.mr.Close()
	w = env.do(httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestReadyReportsFailedDependency(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHandler(Deps{Checks: map[string]Pinger{"database": failingPinger{}}})
	router := gin.New()
	router.GET("/ready", h.readinessCheck)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"database":"unavailable"`)
}

func TestListArtworks(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(httptest.NewRequest(http.MethodGet, "/api/artworks", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Items []models.Artwork `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Items, 3)
	assert.False(t, body.Items[2].Available)
}

func TestRobotsAndSitemap(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(httptest.NewRequest(http.MethodGet, "/robots.txt", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Sitemap: https://shop.example/sitemap.xml")

	w = env.do(httptest.NewRequest(http.MethodGet, "/sitemap.xml", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<loc>https://shop.example/</loc>")
	assert.Contains(t, w.Body.String(), "<loc>https://shop.example/datenschutz</loc>")
}
