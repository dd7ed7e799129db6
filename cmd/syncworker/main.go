// Command syncworker runs the background refresh sweep: on each tick it
// walks the stock-managed products and pulls fresh stock levels and article
// data from Standard Books. The cache keeps the sweep cheap; products whose
// cached entry is still live are skipped without an API call.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/konekt/standardbooks-sync/internal/cache"
	appconfig "github.com/konekt/standardbooks-sync/internal/config"
	"github.com/konekt/standardbooks-sync/internal/product"
	"github.com/konekt/standardbooks-sync/internal/standardbooks"
	"github.com/konekt/standardbooks-sync/internal/storage/postgres"
	"github.com/konekt/standardbooks-sync/internal/taxes"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	log := logger.Sugar()

	cfg, err := appconfig.Load()
	if err != nil {
		log.Fatalw("failed to load config", "error", err)
	}
	settings, err := appconfig.LoadSettings(cfg.SettingsFile)
	if err != nil {
		log.Fatalw("failed to load settings", "error", err)
	}

	db, err := postgres.OpenDatabase(cfg.Database)
	if err != nil {
		log.Fatalw("failed to connect to shop database", "error", err)
	}
	defer db.Close()

	store, err := cache.NewRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalw("failed to connect to redis", "error", err)
	}
	defer store.Close()

	repo := postgres.NewRepository(db)
	client := standardbooks.NewClient(cfg.API, log)
	taxSvc := taxes.NewService(client, store, settings.Taxes, log)
	refresher := product.NewRefresher(client, repo, store, taxSvc, settings, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	interval := time.Duration(settings.Stock.RefreshRateMinutes) * time.Minute
	log.Infow("sync worker started", "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sweep(ctx, repo, refresher, log)
	for {
		select {
		case <-ctx.Done():
			log.Infow("sync worker stopping")
			return
		case <-ticker.C:
			sweep(ctx, repo, refresher, log)
		}
	}
}

func sweep(ctx context.Context, repo *postgres.Repository, refresher *product.Refresher, log *zap.SugaredLogger) {
	skus, err := repo.ManagedSKUs(ctx)
	if err != nil {
		log.Errorw("failed to list products for refresh", "error", err)
		return
	}

	for _, sku := range skus {
		if ctx.Err() != nil {
			return
		}
		if err := refresher.RefreshStock(ctx, sku); err != nil {
			log.Warnw("stock refresh failed", "sku", sku, "error", err)
		}
		if err := refresher.RefreshArticle(ctx, sku); err != nil {
			log.Warnw("article refresh failed", "sku", sku, "error", err)
		}
	}

	log.Infow("refresh sweep finished", "products", len(skus))
}
