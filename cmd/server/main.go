// Command server runs the Standard Books sync service: the HTTP API for
// manual submissions and webhooks, plus the Kafka consumer that reacts to
// order status changes.
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/konekt/standardbooks-sync/internal/api"
	"github.com/konekt/standardbooks-sync/internal/cache"
	appconfig "github.com/konekt/standardbooks-sync/internal/config"
	"github.com/konekt/standardbooks-sync/internal/events"
	"github.com/konekt/standardbooks-sync/internal/product"
	"github.com/konekt/standardbooks-sync/internal/standardbooks"
	"github.com/konekt/standardbooks-sync/internal/storage/postgres"
	syncsvc "github.com/konekt/standardbooks-sync/internal/sync"
	"github.com/konekt/standardbooks-sync/internal/taxes"
	"github.com/konekt/standardbooks-sync/internal/telemetry"
)

func main() {
	app := fx.New(
		fx.Provide(
			appconfig.Load,
			newLogger,
			newSettings,
			newSQLDB,
			newCache,
			newAPIClient,
			newKafkaProducer,
			func(db *sql.DB) *postgres.Repository { return postgres.NewRepository(db) },
			newTaxService,
			newSyncService,
			newRefresher,
		),
		fx.Invoke(
			func(log *zap.SugaredLogger, cfg appconfig.Config) {
				log.Infow("starting", "service", cfg.ServiceName)
			},
			setupTelemetry,
			registerWebServer,
			registerStatusConsumer,
		),
	)

	app.Run()
}

func newLogger(lc fx.Lifecycle) *zap.SugaredLogger {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			_ = logger.Sync()
			return nil
		},
	})
	return logger.Sugar()
}

func newSettings(cfg appconfig.Config) (appconfig.Settings, error) {
	return appconfig.LoadSettings(cfg.SettingsFile)
}

func newSQLDB(lc fx.Lifecycle, cfg appconfig.Config, log *zap.SugaredLogger) (*sql.DB, error) {
	log.Infow("connecting to shop database",
		"host", cfg.Database.Host,
		"port", cfg.Database.Port,
		"database", cfg.Database.Database,
	)
	db, err := postgres.OpenDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error { return db.Close() },
	})
	return db, nil
}

func newCache(lc fx.Lifecycle, cfg appconfig.Config) (cache.Cache, error) {
	r, err := cache.NewRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error { return r.Close() },
	})
	return r, nil
}

func newAPIClient(cfg appconfig.Config, log *zap.SugaredLogger) *standardbooks.Client {
	return standardbooks.NewClient(cfg.API, log)
}

func newKafkaProducer(lc fx.Lifecycle, cfg appconfig.Config) *events.Producer {
	prod := events.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.InvoiceTopic)
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error { return prod.Close() },
	})
	return prod
}

func newTaxService(client *standardbooks.Client, c cache.Cache, settings appconfig.Settings, log *zap.SugaredLogger) *taxes.Service {
	return taxes.NewService(client, c, settings.Taxes, log)
}

func newSyncService(client *standardbooks.Client, repo *postgres.Repository, prod *events.Producer, taxSvc *taxes.Service, settings appconfig.Settings, log *zap.SugaredLogger) *syncsvc.Service {
	return syncsvc.NewService(client, repo, prod, taxSvc, settings, log)
}

func newRefresher(client *standardbooks.Client, repo *postgres.Repository, c cache.Cache, taxSvc *taxes.Service, settings appconfig.Settings, log *zap.SugaredLogger) *product.Refresher {
	return product.NewRefresher(client, repo, c, taxSvc, settings, log)
}

func setupTelemetry(lc fx.Lifecycle, cfg appconfig.Config, log *zap.SugaredLogger) {
	var shutdown func(context.Context) error
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			var err error
			shutdown, err = telemetry.InitTracer(cfg.ServiceName, log)
			return err
		},
		OnStop: func(ctx context.Context) error {
			if shutdown != nil {
				return shutdown(ctx)
			}
			return nil
		},
	})
}

func registerWebServer(lc fx.Lifecycle, cfg appconfig.Config, log *zap.SugaredLogger, shutdowner fx.Shutdowner,
	svc *syncsvc.Service, repo *postgres.Repository, taxSvc *taxes.Service, refresher *product.Refresher,
	client *standardbooks.Client, c cache.Cache) {

	mux := http.NewServeMux()
	api.RegisterWebhookRoutes(mux, svc, log)
	api.RegisterOrderRoutes(mux, svc, repo)
	api.RegisterTaxRoutes(mux, taxSvc)
	api.RegisterProductRoutes(mux, refresher, log)
	api.RegisterArticleRoutes(mux, client, c, log)

	httpServer := &http.Server{Addr: cfg.HTTP.Addr, Handler: mux}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				log.Infow("http api listening", "addr", cfg.HTTP.Addr)
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Errorw("http server error", "error", err)
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	})
}

func registerStatusConsumer(lc fx.Lifecycle, cfg appconfig.Config, log *zap.SugaredLogger, shutdowner fx.Shutdowner, svc *syncsvc.Service) {
	consumer := events.NewStatusConsumer(
		cfg.Kafka.Brokers,
		cfg.Kafka.OrderStatusTopic,
		cfg.Kafka.ConsumerGroup,
		func(ctx context.Context, evt events.StatusEvent) error {
			return svc.HandleStatusChange(ctx, evt.OrderID, evt.NewStatus)
		},
		log,
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				log.Infow("status consumer started",
					"topic", cfg.Kafka.OrderStatusTopic,
					"group", cfg.Kafka.ConsumerGroup,
				)
				if err := consumer.Run(ctx); err != nil {
					log.Errorw("status consumer stopped", "error", err)
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			_ = consumer.Close()
			<-done
			return nil
		},
	})
}
