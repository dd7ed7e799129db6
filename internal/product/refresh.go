// Package product keeps the shop's product records aligned with the article
// register: stock levels on a minutes cadence, tax classes on a days
// cadence. The cache entry doubles as the rate limiter; while it lives, the
// external system is not asked again.
package product

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/konekt/standardbooks-sync/internal/cache"
	"github.com/konekt/standardbooks-sync/internal/config"
	"github.com/konekt/standardbooks-sync/internal/standardbooks"
	"github.com/konekt/standardbooks-sync/internal/storage/postgres"
)

// Client is the slice of the Standard Books API the refresher reads from.
type Client interface {
	GetArticle(ctx context.Context, code string) (*standardbooks.Article, error)
	GetArticleStock(ctx context.Context, code, warehouse string) (*standardbooks.ArticleStock, error)
}

// Store is the product persistence the refresher writes back to.
type Store interface {
	Product(ctx context.Context, sku string) (*postgres.Product, error)
	SetProductStock(ctx context.Context, sku string, quantity float64, status string, manageStock bool) error
	SetProductTaxClass(ctx context.Context, sku, taxClass string) error
}

// TaxResolver maps external VAT codes back to local tax classes.
type TaxResolver interface {
	LocalTaxClass(vatCode string) (string, bool)
}

// Refresher pulls article data into the shop's product records.
type Refresher struct {
	client   Client
	store    Store
	cache    cache.Cache
	taxes    TaxResolver
	settings config.Settings
	log      *zap.SugaredLogger
}

func NewRefresher(client Client, store Store, c cache.Cache, taxes TaxResolver, settings config.Settings, log *zap.SugaredLogger) *Refresher {
	return &Refresher{
		client:   client,
		store:    store,
		cache:    c,
		taxes:    taxes,
		settings: settings,
		log:      log,
	}
}

// RefreshStock updates one product's stock level from the primary warehouse.
// A cache hit within the refresh window means the level is considered fresh
// and nothing happens.
func (r *Refresher) RefreshStock(ctx context.Context, sku string) error {
	if !r.settings.Stock.SyncAllowed || sku == "" {
		return nil
	}

	var cached float64
	if ok, err := r.cache.Get(ctx, cache.StockKey(sku), &cached); err == nil && ok {
		return nil
	}

	stock, err := r.client.GetArticleStock(ctx, sku, r.settings.Stock.PrimaryWarehouse)
	if err != nil {
		return fmt.Errorf("fetch stock for %s: %w", sku, err)
	}
	if stock == nil {
		r.log.Debugw("no stock record for article", "sku", sku)
		return nil
	}

	ttl := time.Duration(r.settings.Stock.RefreshRateMinutes) * time.Minute
	if err := r.cache.Set(ctx, cache.StockKey(sku), stock.InStock, ttl); err != nil {
		r.log.Warnw("failed to cache stock level", "sku", sku, "error", err)
	}

	product, err := r.store.Product(ctx, sku)
	if err != nil {
		return fmt.Errorf("load product %s: %w", sku, err)
	}
	if product == nil {
		return nil
	}
	if product.ManageStock && product.StockQuantity == stock.InStock {
		return nil
	}

	status := "outofstock"
	if stock.InStock > 0 {
		status = "instock"
	}
	if err := r.store.SetProductStock(ctx, sku, stock.InStock, status, true); err != nil {
		return fmt.Errorf("update stock for %s: %w", sku, err)
	}

	r.log.Infow("stock refreshed", "sku", sku, "quantity", stock.InStock)
	return nil
}

// RefreshArticle pulls the article's tax code and maps it onto the product's
// local tax class. Runs on a much slower cadence than stock since tax setup
// rarely changes.
func (r *Refresher) RefreshArticle(ctx context.Context, sku string) error {
	if !r.settings.Product.SyncAllowed || sku == "" {
		return nil
	}

	var cached standardbooks.Article
	if ok, err := r.cache.Get(ctx, cache.ArticleKey(sku), &cached); err == nil && ok {
		return nil
	}

	article, err := r.client.GetArticle(ctx, sku)
	if err != nil {
		return fmt.Errorf("fetch article %s: %w", sku, err)
	}
	if article == nil {
		r.log.Debugw("article not found", "sku", sku)
		return nil
	}

	ttl := time.Duration(r.settings.Product.RefreshRateDays) * 24 * time.Hour
	if err := r.cache.Set(ctx, cache.ArticleKey(sku), article, ttl); err != nil {
		r.log.Warnw("failed to cache article", "sku", sku, "error", err)
	}

	taxClass, ok := r.taxes.LocalTaxClass(article.VATCode)
	if !ok {
		r.log.Debugw("article tax code has no local mapping", "sku", sku, "vat_code", article.VATCode)
		return nil
	}

	product, err := r.store.Product(ctx, sku)
	if err != nil {
		return fmt.Errorf("load product %s: %w", sku, err)
	}
	if product == nil || product.TaxClass == taxClass {
		return nil
	}

	if err := r.store.SetProductTaxClass(ctx, sku, taxClass); err != nil {
		return fmt.Errorf("update tax class for %s: %w", sku, err)
	}

	r.log.Infow("article refreshed", "sku", sku, "tax_class", taxClass)
	return nil
}
