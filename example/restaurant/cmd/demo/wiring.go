package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/AntonStoeckl/decider-eventstore-go/application"
	"github.com/AntonStoeckl/decider-eventstore-go/eventstore"
	"github.com/AntonStoeckl/decider-eventstore-go/eventstore/memoryengine"
	"github.com/AntonStoeckl/decider-eventstore-go/eventstore/oteladapters"
	"github.com/AntonStoeckl/decider-eventstore-go/eventstore/postgresengine"
	"github.com/AntonStoeckl/decider-eventstore-go/eventstore/sqliteengine"
	"github.com/AntonStoeckl/decider-eventstore-go/example/restaurant/core"
	"github.com/AntonStoeckl/decider-eventstore-go/example/restaurant/shell"
	"github.com/AntonStoeckl/decider-eventstore-go/example/restaurant/shell/config"
)

const instrumentationName = "restaurant-demo"

// stores are the opened persistence backends. stateStore is nil for the memory engine.
type stores struct {
	eventStore eventstore.EventStore
	snapshots  eventstore.SnapshotStore
	stateStore *shell.SQLStateStore
	close      func()
}

func openStores(ctx context.Context, cfg config.Config, logger *slog.Logger) (stores, error) {
	switch cfg.Engine {
	case config.EngineSQLite:
		es, err := sqliteengine.Open(cfg.SQLitePath, sqliteengine.WithLogger(logger))
		if err != nil {
			return stores{}, err
		}

		stateStore, err := newStateStore(ctx, sqlx.NewDb(es.DB(), "sqlite"), logger)
		if err != nil {
			_ = es.Close()
			return stores{}, err
		}

		return stores{eventStore: es, snapshots: es, stateStore: stateStore, close: func() { _ = es.Close() }}, nil

	case config.EnginePostgres:
		return openPostgres(ctx, cfg, logger)

	default:
		es, err := memoryengine.NewEventStore(memoryengine.WithLogger(logger))
		if err != nil {
			return stores{}, err
		}

		return stores{eventStore: es, snapshots: es, close: func() {}}, nil
	}
}

func openPostgres(ctx context.Context, cfg config.Config, logger *slog.Logger) (stores, error) {
	var es postgresengine.EventStore
	var db *sqlx.DB
	var closeDB func()

	switch cfg.PostgresDriver {
	case config.DriverSQLDB:
		sqlDB, err := config.PostgresSQLDB(ctx, cfg)
		if err != nil {
			return stores{}, err
		}

		closeDB = func() { _ = sqlDB.Close() }
		db = sqlx.NewDb(sqlDB, "postgres")
		es, err = postgresengine.NewEventStoreFromSQLDB(sqlDB, postgresengine.WithLogger(logger))
		if err != nil {
			closeDB()
			return stores{}, err
		}

	case config.DriverSQLX:
		sqlxDB, err := config.PostgresSQLX(ctx, cfg)
		if err != nil {
			return stores{}, err
		}

		closeDB = func() { _ = sqlxDB.Close() }
		db = sqlxDB
		es, err = postgresengine.NewEventStoreFromSQLX(sqlxDB, postgresengine.WithLogger(logger))
		if err != nil {
			closeDB()
			return stores{}, err
		}

	default:
		pool, err := config.PostgresPGXPool(ctx, cfg)
		if err != nil {
			return stores{}, err
		}

		sqlDB := stdlib.OpenDBFromPool(pool)
		closeDB = func() {
			_ = sqlDB.Close()
			pool.Close()
		}
		db = sqlx.NewDb(sqlDB, "pgx")
		es, err = postgresengine.NewEventStoreFromPGXPool(pool, postgresengine.WithLogger(logger))
		if err != nil {
			closeDB()
			return stores{}, err
		}
	}

	if err := es.CreateSchema(ctx); err != nil {
		closeDB()
		return stores{}, err
	}

	stateStore, err := newStateStore(ctx, db, logger)
	if err != nil {
		closeDB()
		return stores{}, err
	}

	return stores{eventStore: es, snapshots: es, stateStore: stateStore, close: closeDB}, nil
}

func newStateStore(ctx context.Context, db *sqlx.DB, logger *slog.Logger) (*shell.SQLStateStore, error) {
	stateStore, err := shell.NewSQLStateStore(db, shell.WithStateStoreLogger(logger))
	if err != nil {
		return nil, err
	}

	if err = stateStore.CreateSchema(ctx); err != nil {
		return nil, err
	}

	return stateStore, nil
}

// telemetry keeps traces and metrics in process. The metrics are summarized when the demo ends.
type telemetry struct {
	options        []application.Option
	reader         *sdkmetric.ManualReader
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
}

func newTelemetry(cfg config.Config) telemetry {
	if !cfg.Telemetry {
		return telemetry{}
	}

	reader := sdkmetric.NewManualReader()
	meterProvider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	tracerProvider := sdktrace.NewTracerProvider()

	return telemetry{
		options: []application.Option{
			application.WithMetrics(oteladapters.NewMetricsCollector(meterProvider.Meter(instrumentationName))),
			application.WithTracing(oteladapters.NewTracingCollector(tracerProvider.Tracer(instrumentationName))),
			application.WithContextualLogger(oteladapters.NewSlogBridgeLogger(instrumentationName)),
		},
		reader:         reader,
		tracerProvider: tracerProvider,
		meterProvider:  meterProvider,
	}
}

func (t telemetry) summarize(ctx context.Context, logger *slog.Logger) {
	if t.reader == nil {
		return
	}

	var collected metricdata.ResourceMetrics
	if err := t.reader.Collect(ctx, &collected); err != nil {
		logger.Warn("collecting metrics failed", "error", err)
		return
	}

	for _, scope := range collected.ScopeMetrics {
		for _, m := range scope.Metrics {
			logger.Info("metric recorded", "name", m.Name, "unit", m.Unit)
		}
	}
}

func (t telemetry) shutdown(ctx context.Context) error {
	if t.reader == nil {
		return nil
	}

	return errors.Join(t.tracerProvider.Shutdown(ctx), t.meterProvider.Shutdown(ctx))
}

// app is the wired command side plus the queries the demo reports with.
type app struct {
	dispatcher  application.Dispatcher[core.Command]
	orderStatus func(ctx context.Context, id core.RestaurantOrderID) (core.OrderStatus, bool, error)
	catchUp     func(ctx context.Context) (int, error)
}

func newApp(cfg config.Config, s stores, options []application.Option) (app, error) {
	busOptions := []shell.BusOption{
		shell.WithRuntimeOptions(slices.Concat(options, []application.Option{application.WithMaxSagaDepth(cfg.MaxSagaDepth)})...),
	}

	switch cfg.Mode {
	case config.ModeStateStored:
		return newStateStoredApp(s, busOptions)
	default:
		return newEventSourcedApp(s, options, busOptions)
	}
}

func newEventSourcedApp(s stores, options []application.Option, busOptions []shell.BusOption) (app, error) {
	repository, err := shell.NewEventRepository(s.eventStore)
	if err != nil {
		return app{}, err
	}

	bus, err := shell.NewEventSourcedCommandBus(repository, busOptions...)
	if err != nil {
		return app{}, err
	}

	readModels, err := shell.NewReadModels(s.eventStore, s.snapshots, options...)
	if err != nil {
		return app{}, err
	}

	return app{
		dispatcher: bus,
		orderStatus: func(ctx context.Context, id core.RestaurantOrderID) (core.OrderStatus, bool, error) {
			order, err := readModels.RestaurantOrder(ctx, id)
			if err != nil || order == nil {
				return "", false, err
			}

			return order.Status, true, nil
		},
		catchUp: readModels.CatchUp,
	}, nil
}

func newStateStoredApp(s stores, busOptions []shell.BusOption) (app, error) {
	if s.stateStore == nil {
		restaurants := shell.NewMemoryRestaurantRepository()
		orders := shell.NewMemoryRestaurantOrderRepository()

		bus, err := shell.NewStateStoredCommandBus(restaurants, orders, busOptions...)
		if err != nil {
			return app{}, err
		}

		return app{
			dispatcher: bus,
			orderStatus: func(_ context.Context, id core.RestaurantOrderID) (core.OrderStatus, bool, error) {
				order, _, ok := orders.Get(string(id))
				if !ok || order == nil {
					return "", false, nil
				}

				return order.Status, true, nil
			},
			catchUp: noCatchUp,
		}, nil
	}

	orders := shell.NewSQLRestaurantOrderRepository(s.stateStore)

	bus, err := shell.NewStateStoredCommandBus(shell.NewSQLRestaurantRepository(s.stateStore), orders, busOptions...)
	if err != nil {
		return app{}, err
	}

	return app{
		dispatcher: bus,
		orderStatus: func(ctx context.Context, id core.RestaurantOrderID) (core.OrderStatus, bool, error) {
			order, _, err := orders.Get(ctx, id)
			if err != nil || order == nil {
				return "", false, err
			}

			return order.Status, true, nil
		},
		catchUp: noCatchUp,
	}, nil
}

// noCatchUp is used in state-stored mode, where the states are the read side.
func noCatchUp(context.Context) (int, error) {
	return 0, nil
}

func describe(cfg config.Config) string {
	if cfg.Engine == config.EnginePostgres {
		return fmt.Sprintf("%s/%s/%s", cfg.Engine, cfg.PostgresDriver, cfg.Mode)
	}

	return fmt.Sprintf("%s/%s", cfg.Engine, cfg.Mode)
}
