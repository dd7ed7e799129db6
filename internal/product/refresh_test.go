package product

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/konekt/standardbooks-sync/internal/cache"
	"github.com/konekt/standardbooks-sync/internal/config"
	"github.com/konekt/standardbooks-sync/internal/standardbooks"
	"github.com/konekt/standardbooks-sync/internal/storage/postgres"
)

type fakeClient struct {
	article      *standardbooks.Article
	stock        *standardbooks.ArticleStock
	articleCalls int
	stockCalls   int
}

func (f *fakeClient) GetArticle(context.Context, string) (*standardbooks.Article, error) {
	f.articleCalls++
	return f.article, nil
}

func (f *fakeClient) GetArticleStock(context.Context, string, string) (*standardbooks.ArticleStock, error) {
	f.stockCalls++
	return f.stock, nil
}

type fakeStore struct {
	product      *postgres.Product
	stockWrites  int
	lastQuantity float64
	lastStatus   string
	taxWrites    int
	lastTaxClass string
}

func (f *fakeStore) Product(context.Context, string) (*postgres.Product, error) {
	return f.product, nil
}

func (f *fakeStore) SetProductStock(_ context.Context, _ string, quantity float64, status string, _ bool) error {
	f.stockWrites++
	f.lastQuantity, f.lastStatus = quantity, status
	return nil
}

func (f *fakeStore) SetProductTaxClass(_ context.Context, _, taxClass string) error {
	f.taxWrites++
	f.lastTaxClass = taxClass
	return nil
}

type fakeTaxes struct {
	classes map[string]string
}

func (f fakeTaxes) LocalTaxClass(vatCode string) (string, bool) {
	slug, ok := f.classes[vatCode]
	return slug, ok
}

type memCache struct {
	data map[string][]byte
}

func newMemCache() *memCache { return &memCache{data: map[string][]byte{}} }

func (m *memCache) Get(_ context.Context, key string, dest any) (bool, error) {
	raw, ok := m.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (m *memCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = raw
	return nil
}

func (m *memCache) Delete(_ context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func refreshSettings() config.Settings {
	return config.Settings{
		Stock: config.StockSettings{
			SyncAllowed:        true,
			PrimaryWarehouse:   "MAIN",
			RefreshRateMinutes: 15,
		},
		Product: config.ProductSettings{
			SyncAllowed:     true,
			RefreshRateDays: 30,
		},
	}
}

func newTestRefresher(client *fakeClient, store *fakeStore, c cache.Cache, taxes fakeTaxes) *Refresher {
	return NewRefresher(client, store, c, taxes, refreshSettings(), zap.NewNop().Sugar())
}

func TestRefreshStockUpdatesProduct(t *testing.T) {
	client := &fakeClient{stock: &standardbooks.ArticleStock{Code: "SKU-1", Location: "MAIN", InStock: 12}}
	store := &fakeStore{product: &postgres.Product{SKU: "SKU-1", ManageStock: true, StockQuantity: 5}}
	r := newTestRefresher(client, store, newMemCache(), fakeTaxes{})

	require.NoError(t, r.RefreshStock(context.Background(), "SKU-1"))

	assert.Equal(t, 1, store.stockWrites)
	assert.Equal(t, 12.0, store.lastQuantity)
	assert.Equal(t, "instock", store.lastStatus)
}

func TestRefreshStockZeroMarksOutOfStock(t *testing.T) {
	client := &fakeClient{stock: &standardbooks.ArticleStock{Code: "SKU-1", InStock: 0}}
	store := &fakeStore{product: &postgres.Product{SKU: "SKU-1", ManageStock: true, StockQuantity: 5}}
	r := newTestRefresher(client, store, newMemCache(), fakeTaxes{})

	require.NoError(t, r.RefreshStock(context.Background(), "SKU-1"))
	assert.Equal(t, "outofstock", store.lastStatus)
}

func TestRefreshStockSkipsWhenCached(t *testing.T) {
	client := &fakeClient{stock: &standardbooks.ArticleStock{InStock: 12}}
	store := &fakeStore{product: &postgres.Product{SKU: "SKU-1", ManageStock: true}}
	c := newMemCache()
	require.NoError(t, c.Set(context.Background(), cache.StockKey("SKU-1"), 12.0, time.Minute))

	r := newTestRefresher(client, store, c, fakeTaxes{})
	require.NoError(t, r.RefreshStock(context.Background(), "SKU-1"))

	assert.Zero(t, client.stockCalls)
	assert.Zero(t, store.stockWrites)
}

func TestRefreshStockSkipsUnchangedLevel(t *testing.T) {
	client := &fakeClient{stock: &standardbooks.ArticleStock{InStock: 5}}
	store := &fakeStore{product: &postgres.Product{SKU: "SKU-1", ManageStock: true, StockQuantity: 5}}
	r := newTestRefresher(client, store, newMemCache(), fakeTaxes{})

	require.NoError(t, r.RefreshStock(context.Background(), "SKU-1"))
	assert.Zero(t, store.stockWrites)
}

func TestRefreshStockDisabled(t *testing.T) {
	client := &fakeClient{}
	settings := refreshSettings()
	settings.Stock.SyncAllowed = false
	r := NewRefresher(client, &fakeStore{}, newMemCache(), fakeTaxes{}, settings, zap.NewNop().Sugar())

	require.NoError(t, r.RefreshStock(context.Background(), "SKU-1"))
	assert.Zero(t, client.stockCalls)
}

func TestRefreshArticleUpdatesTaxClass(t *testing.T) {
	client := &fakeClient{article: &standardbooks.Article{Code: "SKU-1", VATCode: "2"}}
	store := &fakeStore{product: &postgres.Product{SKU: "SKU-1", TaxClass: ""}}
	taxes := fakeTaxes{classes: map[string]string{"2": "reduced-rate"}}
	r := newTestRefresher(client, store, newMemCache(), taxes)

	require.NoError(t, r.RefreshArticle(context.Background(), "SKU-1"))

	assert.Equal(t, 1, store.taxWrites)
	assert.Equal(t, "reduced-rate", store.lastTaxClass)
}

func TestRefreshArticleUnmappedCodeLeavesProductAlone(t *testing.T) {
	client := &fakeClient{article: &standardbooks.Article{Code: "SKU-1", VATCode: "77"}}
	store := &fakeStore{product: &postgres.Product{SKU: "SKU-1"}}
	r := newTestRefresher(client, store, newMemCache(), fakeTaxes{})

	require.NoError(t, r.RefreshArticle(context.Background(), "SKU-1"))
	assert.Zero(t, store.taxWrites)
}

func TestRefreshArticleSkipsWhenCached(t *testing.T) {
	client := &fakeClient{article: &standardbooks.Article{Code: "SKU-1", VATCode: "2"}}
	c := newMemCache()
	require.NoError(t, c.Set(context.Background(), cache.ArticleKey("SKU-1"),
		standardbooks.Article{Code: "SKU-1"}, time.Hour))

	r := newTestRefresher(client, &fakeStore{}, c, fakeTaxes{})
	require.NoError(t, r.RefreshArticle(context.Background(), "SKU-1"))
	assert.Zero(t, client.articleCalls)
}

func TestRefreshArticleMissingArticle(t *testing.T) {
	client := &fakeClient{article: nil}
	store := &fakeStore{product: &postgres.Product{SKU: "SKU-1"}}
	r := newTestRefresher(client, store, newMemCache(), fakeTaxes{})

	require.NoError(t, r.RefreshArticle(context.Background(), "SKU-1"))
	assert.Zero(t, store.taxWrites)
}
