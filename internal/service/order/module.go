package order

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/orderdesk/internal/config"
	"github.com/Additional-Code/orderdesk/internal/lock"
)

// Module provides the order service and the Operations surface to Fx.
var Module = fx.Provide(NewService, NewOperations)

// NewOperations exposes the bare Service unless a writer lock driver is configured.
func NewOperations(svc *Service, locker lock.Locker, cfg config.Config, logger *zap.Logger) Operations {
	if cfg.Lock.Driver == "none" || cfg.Lock.Driver == "" {
		return svc
	}
	return NewGuarded(svc, locker, cfg.Lock.Key, logger.Named("guard"))
}
