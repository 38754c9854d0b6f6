package order

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/orderdesk/internal/config"
)

// Module provides the orders file store to Fx.
var Module = fx.Provide(NewFromConfig)

// NewFromConfig builds a Store for the configured orders file.
func NewFromConfig(cfg config.Config, logger *zap.Logger) *Store {
	return NewStore(cfg.Storage.Path, logger.Named("store"),
		WithSnapshot(cfg.Storage.SnapshotName, cfg.Storage.SnapshotDir),
	)
}
