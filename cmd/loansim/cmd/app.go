package cmd

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/rustyeddy/loansim/catalog"
	"github.com/rustyeddy/loansim/config"
	"github.com/rustyeddy/loansim/internal/logging"
	"github.com/rustyeddy/loansim/journal"
	"github.com/rustyeddy/loansim/publish"
	"github.com/rustyeddy/loansim/simulation"
	"github.com/rustyeddy/loansim/telemetry"
)

// app is the wired process: one database, one aggregator, one queue.
type app struct {
	cfg       *config.Config
	log       *zap.Logger
	db        *sql.DB
	store     *journal.Store
	products  catalog.Catalog
	telemetry telemetry.Aggregator
	queue     *telemetry.Queue
	publisher publish.Publisher
	sim       *simulation.Service
}

func openApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	db, err := journal.Open(cfg.Storage.DBPath)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: log, db: db}

	if a.store, err = journal.NewStore(db); err != nil {
		a.Close()
		return nil, err
	}
	if a.products, err = openCatalog(ctx, cfg, db, log); err != nil {
		a.Close()
		return nil, err
	}

	switch cfg.Telemetry.Backend {
	case "sqlite":
		if a.telemetry, err = journal.NewTelemetry(db); err != nil {
			a.Close()
			return nil, err
		}
	default:
		a.telemetry = telemetry.NewRegistry()
	}
	a.queue = telemetry.NewQueue(a.telemetry, log, cfg.Telemetry.QueueSize, cfg.Telemetry.Workers)

	a.publisher = publish.New(publish.Options{
		Addr:   cfg.Publisher.RedisAddr,
		Stream: cfg.Publisher.Stream,
		MaxLen: cfg.Publisher.MaxLen,
	})

	a.sim = simulation.NewService(simulation.Deps{
		Products:  a.products,
		Store:     a.store,
		Publisher: a.publisher,
		Spans:     telemetry.NewInstrument(log, a.queue),
		Log:       log,
	})
	return a, nil
}

// openCatalog serves the configured products from memory, or from the
// database after seeding it when it is empty.
func openCatalog(ctx context.Context, cfg *config.Config, db *sql.DB, log *zap.Logger) (catalog.Catalog, error) {
	if cfg.Catalog.Backend == "memory" {
		return catalog.NewStatic(cfg.Catalog.Products), nil
	}

	products, err := catalog.NewSQLite(db)
	if err != nil {
		return nil, err
	}
	if cfg.Catalog.Seed {
		n, err := products.Seed(ctx, cfg.Catalog.Products)
		if err != nil {
			return nil, fmt.Errorf("seed catalog: %w", err)
		}
		if n > 0 {
			log.Info("seeded product catalog", zap.Int("products", n))
		}
	}
	return products, nil
}

// Close drains telemetry before closing the database it may write to.
func (a *app) Close() {
	if a.queue != nil {
		a.queue.Close()
		if n := a.queue.Dropped(); n > 0 {
			a.log.Warn("telemetry observations dropped", zap.Int64("dropped", n))
		}
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.log.Warn("close publisher", zap.Error(err))
		}
	}
	if err := a.db.Close(); err != nil {
		a.log.Warn("close database", zap.Error(err))
	}
	_ = a.log.Sync()
}
