// Package cache is the expiring key/value layer in front of the Standard
// Books reference data (tax table, articles, stock levels). Cached values
// are idempotent read replicas: concurrent writers racing on the same key
// are harmless, the last one wins.
package cache

import (
	"context"
	"time"
)

// Cache is the store interface the rest of the service depends on.
type Cache interface {
	// Get unmarshals the cached value into dest and reports whether the key
	// was present.
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Key helpers shared by the components that cache reference data.

func StockKey(sku string) string { return "article_stock_" + sku }

func ArticleKey(sku string) string { return "article_" + sku }

func AllArticlesKey() string { return "all_article" }

func TaxesKey() string { return "taxes" }
