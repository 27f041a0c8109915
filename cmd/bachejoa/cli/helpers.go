package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/642studio/bachejoa/internal/config"
	"github.com/642studio/bachejoa/internal/connector"
	"github.com/642studio/bachejoa/internal/datastore"
)

// connectStore connects to the configured database.
func connectStore(cfg config.StoreConfig) (*datastore.SQLStore, error) {
	store, err := datastore.Open(connector.ConnectionConfig{
		Driver:          cfg.Driver,
		DSN:             cfg.DSN,
		SchemaName:      cfg.Schema,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Driver, err)
	}
	return store, nil
}

// openStore connects and creates any missing tables.
func openStore(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (*datastore.SQLStore, error) {
	store, err := connectStore(cfg)
	if err != nil {
		return nil, err
	}
	if _, err := store.Migrate(ctx, logger); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

// versionString returns a display version string.
func versionString() string {
	if appVersion == "" || appVersion == "dev" {
		return "dev"
	}
	if strings.HasPrefix(appVersion, "v") {
		return appVersion
	}
	return "v" + appVersion
}
