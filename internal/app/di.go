// Package app assembles the hub from configuration.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	capabilityUseCase "github.com/allisson/missionhub/internal/capability/usecase"
	"github.com/allisson/missionhub/internal/command"
	"github.com/allisson/missionhub/internal/config"
	"github.com/allisson/missionhub/internal/database"
	"github.com/allisson/missionhub/internal/document"
	"github.com/allisson/missionhub/internal/eventlog"
	"github.com/allisson/missionhub/internal/http"
	"github.com/allisson/missionhub/internal/hub"
	"github.com/allisson/missionhub/internal/metrics"
	missionUseCase "github.com/allisson/missionhub/internal/mission/usecase"
	outboundUseCase "github.com/allisson/missionhub/internal/outbound/usecase"
	"github.com/allisson/missionhub/internal/topic"
	natsTransport "github.com/allisson/missionhub/internal/transport/nats"
)

// DriverMemory selects the in-memory store. Nothing survives a restart.
const DriverMemory = "memory"

// Container wires the hub from configuration. Every component is built on first
// access, so a CLI command only opens what it uses.
type Container struct {
	config *config.Config

	logger          lazy[*slog.Logger]
	db              lazy[*sql.DB]
	dialect         lazy[database.Dialect]
	metricsProvider lazy[*metrics.Provider]
	businessMetrics lazy[metrics.BusinessMetrics]
	eventLog        lazy[*eventlog.EventLog]

	txManager    lazy[database.TxManager]
	store        lazy[document.Store]
	grantRepo    lazy[capabilityUseCase.GrantRepository]
	eventRepo    lazy[missionUseCase.EventRepository]
	snapshotRepo lazy[missionUseCase.SnapshotRepository]

	authorizerUseCase lazy[capabilityUseCase.AuthorizerUseCase]
	missionUseCase    lazy[missionUseCase.UseCase]
	topicRegistry     lazy[*topic.Registry]

	capabilityMaps  lazy[command.CapabilityMaps]
	missionRouter   lazy[*command.Router]
	checklistRouter lazy[*command.Router]
	transport       lazy[*natsTransport.Transport]
	outboundQueue   lazy[*outboundUseCase.Queue]
	hub             lazy[*hub.Hub]

	httpServer    lazy[*http.Server]
	metricsServer lazy[*http.MetricsServer]

	shutdownMu sync.Mutex
}

// NewContainer returns an empty container for cfg.
func NewContainer(cfg *config.Config) *Container {
	return &Container{config: cfg}
}

// Config returns the configuration the container was built with.
func (c *Container) Config() *config.Config {
	return c.config
}

// UsesMemoryStore reports whether the container runs without a database.
func (c *Container) UsesMemoryStore() bool {
	return c.config.DBDriver == DriverMemory
}

// Logger returns the JSON logger at the configured level.
func (c *Container) Logger() *slog.Logger {
	logger, _ := c.logger.get(infallible(c.initLogger))
	return logger
}

// DB returns the SQL connection pool. It fails for the memory driver.
func (c *Container) DB() (*sql.DB, error) {
	return c.db.get(c.initDB)
}

// Dialect returns the SQL dialect of the configured driver.
func (c *Container) Dialect() (database.Dialect, error) {
	return c.dialect.get(func() (database.Dialect, error) {
		return database.NewDialect(c.config.DBDriver)
	})
}

// MetricsProvider returns the OpenTelemetry provider, or nil when metrics are disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	return c.metricsProvider.get(c.initMetricsProvider)
}

// BusinessMetrics returns the business metrics recorder, a no-op when metrics are disabled.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	return c.businessMetrics.get(c.initBusinessMetrics)
}

// EventLog returns the operational audit trail.
func (c *Container) EventLog() *eventlog.EventLog {
	log, _ := c.eventLog.get(infallible(func() *eventlog.EventLog {
		return eventlog.New(c.config.EventLogCapacity)
	}))
	return log
}

// TxManager returns the transaction manager. On the memory driver it spans every
// in-memory repository.
func (c *Container) TxManager() (database.TxManager, error) {
	return c.txManager.get(c.initTxManager)
}

// DocumentStore returns the aggregate document store.
func (c *Container) DocumentStore() (document.Store, error) {
	return c.store.get(c.initDocumentStore)
}

// Shutdown releases what was built, outermost first: listeners, the outbound queue,
// the transport, the metrics provider and finally the database.
func (c *Container) Shutdown(ctx context.Context) error {
	c.shutdownMu.Lock()
	defer c.shutdownMu.Unlock()

	var errs []error
	collect := func(what string, err error) {
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", what, err))
		}
	}

	if server, ok := c.httpServer.peek(); ok {
		collect("http server shutdown", server.Shutdown(ctx))
	}
	if server, ok := c.metricsServer.peek(); ok && server != nil {
		collect("metrics server shutdown", server.Shutdown(ctx))
	}
	if queue, ok := c.outboundQueue.peek(); ok {
		collect("outbound queue stop", queue.Stop())
	}
	if transport, ok := c.transport.peek(); ok {
		collect("transport close", transport.Close())
	}
	if provider, ok := c.metricsProvider.peek(); ok && provider != nil {
		collect("metrics provider shutdown", provider.Shutdown(ctx))
	}
	if db, ok := c.db.peek(); ok {
		collect("database close", db.Close())
	}

	return errors.Join(errs...)
}

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// initLogger writes JSON to stdout; unknown levels fall back to info.
func (c *Container) initLogger() *slog.Logger {
	level, ok := logLevels[c.config.LogLevel]
	if !ok {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})).
		With(slog.String("hub", c.config.HubIdentity))
}

// initDB creates and configures the database connection.
func (c *Container) initDB() (*sql.DB, error) {
	if c.UsesMemoryStore() {
		return nil, fmt.Errorf("no database connection with the %s driver", DriverMemory)
	}

	db, err := database.Connect(database.Config{
		Driver:             c.config.DBDriver,
		ConnectionString:   c.config.DBConnectionString,
		MaxOpenConnections: c.config.DBMaxOpenConnections,
		MaxIdleConnections: c.config.DBMaxIdleConnections,
		ConnMaxLifetime:    c.config.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// initMetricsProvider creates the Prometheus-backed meter provider.
func (c *Container) initMetricsProvider() (*metrics.Provider, error) {
	if !c.config.MetricsEnabled {
		return nil, nil
	}

	provider, err := metrics.NewProvider(c.config.MetricsNamespace)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics provider: %w", err)
	}
	return provider, nil
}

// initBusinessMetrics creates the business metrics recorder.
func (c *Container) initBusinessMetrics() (metrics.BusinessMetrics, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for business metrics: %w", err)
	}
	if provider == nil {
		return metrics.NewNoOpBusinessMetrics(), nil
	}

	businessMetrics, err := metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}
	return businessMetrics, nil
}

// initTxManager creates the transaction manager for the configured driver.
func (c *Container) initTxManager() (database.TxManager, error) {
	if c.UsesMemoryStore() {
		return c.initMemoryTxManager()
	}

	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for tx manager: %w", err)
	}
	return database.NewTxManager(db), nil
}

// initMemoryTxManager builds a MemoryTxManager over every in-memory repository so a
// failed call rolls all of them back together.
func (c *Container) initMemoryTxManager() (database.TxManager, error) {
	store, err := c.DocumentStore()
	if err != nil {
		return nil, err
	}
	grantRepo, err := c.GrantRepository()
	if err != nil {
		return nil, err
	}
	eventRepo, err := c.EventRepository()
	if err != nil {
		return nil, err
	}
	snapshotRepo, err := c.SnapshotRepository()
	if err != nil {
		return nil, err
	}

	txManager := database.NewMemoryTxManager()
	for _, candidate := range []any{store, grantRepo, eventRepo, snapshotRepo} {
		if participant, ok := candidate.(database.Checkpointer); ok {
			txManager.Register(participant)
		}
	}
	return txManager, nil
}

// initDocumentStore creates the aggregate document store.
func (c *Container) initDocumentStore() (document.Store, error) {
	if c.UsesMemoryStore() {
		return document.NewMemoryStore(), nil
	}

	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for document store: %w", err)
	}
	dialect, err := c.Dialect()
	if err != nil {
		return nil, fmt.Errorf("failed to get dialect for document store: %w", err)
	}
	return document.NewSQLStore(db, dialect), nil
}
