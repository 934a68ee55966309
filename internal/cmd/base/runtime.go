package base

import (
	"fmt"

	"github.com/hashicorp/go-hclog"
	"gorm.io/gorm"

	"github.com/hashicorp-forge/distributor/internal/config"
	"github.com/hashicorp-forge/distributor/pkg/connection"
	"github.com/hashicorp-forge/distributor/pkg/database"
	"github.com/hashicorp-forge/distributor/pkg/events"
	"github.com/hashicorp-forge/distributor/pkg/localstore"
	"github.com/hashicorp-forge/distributor/pkg/subscriptions"
)

// Runtime holds the collaborators built from a configuration file.
type Runtime struct {
	Config        *config.Config
	Logger        hclog.Logger
	DB            *gorm.DB
	Store         *localstore.Store
	Subscriptions *subscriptions.GormRegistry
	Events        events.Sink

	closers []func()
}

// LoadConfig reads the configuration at config.Path(path).
func (c *Command) LoadConfig(path string) (*config.Config, error) {
	return config.Load(c.fs(), config.Path(path))
}

// Open loads the configuration and connects everything it declares. The
// caller must Close the runtime.
func (c *Command) Open(path string) (*Runtime, error) {
	cfg, err := c.LoadConfig(path)
	if err != nil {
		return nil, err
	}

	logger := hclog.New(cfg.Log.LoggerOptions("distributor"))
	rt := &Runtime{Config: cfg, Logger: logger}

	db, err := database.Connect(cfg.Database.DatabaseConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}
	rt.DB = db
	rt.closers = append(rt.closers, func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	if err := database.Migrate(db); err != nil {
		rt.Close()
		return nil, fmt.Errorf("error migrating database: %w", err)
	}

	rt.Store = localstore.New(db, cfg.Site.StoreConfig(), logger)
	rt.Subscriptions = subscriptions.NewGormRegistry(db, logger)

	switch cfg.Events.Sink {
	case "kafka":
		sink, err := events.NewKafkaSink(cfg.Events.KafkaConfig())
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("error creating kafka event sink: %w", err)
		}
		rt.Events = sink
		rt.closers = append(rt.closers, sink.Close)
	case "log":
		rt.Events = events.LogSink{Logger: logger.Named("events")}
	default:
		rt.Events = events.Nop{}
	}

	return rt, nil
}

// Connection builds the named connection wired to the runtime's store,
// registry and event sink.
func (rt *Runtime) Connection(name string) (*connection.Connection, error) {
	block, err := rt.Config.Connection(name)
	if err != nil {
		return nil, err
	}

	cfg, err := block.ConnectionConfig(rt.Config.Site, rt.Logger)
	if err != nil {
		return nil, err
	}
	cfg.Store = rt.Store
	cfg.Exporter = rt.Store
	cfg.Importer = rt.Store
	cfg.Subscriptions = rt.Subscriptions
	cfg.Events = rt.Events

	return connection.New(cfg)
}

// Close releases everything Open acquired, in reverse order.
func (rt *Runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
	rt.closers = nil
}
