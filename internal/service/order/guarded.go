package order

import (
	"context"

	"go.uber.org/zap"

	"github.com/Additional-Code/orderdesk/internal/entity"
	"github.com/Additional-Code/orderdesk/internal/lock"
	repo "github.com/Additional-Code/orderdesk/internal/repository/order"
	"github.com/Additional-Code/orderdesk/pkg/errorbank"
)

// Guarded holds a writer lock across each mutation's load/save cycle.
// Reads pass straight through.
type Guarded struct {
	next   Operations
	locker lock.Locker
	key    string
	logger *zap.Logger
}

// NewGuarded wraps next so Create, Replace and Delete run one at a time per key.
func NewGuarded(next Operations, locker lock.Locker, key string, logger *zap.Logger) *Guarded {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guarded{next: next, locker: locker, key: key, logger: logger}
}

func (g *Guarded) List(ctx context.Context) ([]entity.Order, error) {
	return g.next.List(ctx)
}

func (g *Guarded) Get(ctx context.Context, id int64) (entity.Order, error) {
	return g.next.Get(ctx, id)
}

func (g *Guarded) Create(ctx context.Context, order entity.Order) (entity.Order, error) {
	var out entity.Order
	err := g.locked(ctx, func() error {
		var err error
		out, err = g.next.Create(ctx, order)
		return err
	})
	return out, err
}

func (g *Guarded) Replace(ctx context.Context, id int64, order entity.Order) (entity.Order, error) {
	var out entity.Order
	err := g.locked(ctx, func() error {
		var err error
		out, err = g.next.Replace(ctx, id, order)
		return err
	})
	return out, err
}

func (g *Guarded) Delete(ctx context.Context, id int64) error {
	return g.locked(ctx, func() error {
		return g.next.Delete(ctx, id)
	})
}

func (g *Guarded) Count(ctx context.Context) (int, error) {
	return g.next.Count(ctx)
}

func (g *Guarded) Filter(ctx context.Context, f Filter) ([]entity.Order, error) {
	return g.next.Filter(ctx, f)
}

func (g *Guarded) ContentHash(ctx context.Context) (string, error) {
	return g.next.ContentHash(ctx)
}

func (g *Guarded) CompressSnapshot(ctx context.Context) (repo.Snapshot, error) {
	return g.next.CompressSnapshot(ctx)
}

func (g *Guarded) locked(ctx context.Context, fn func() error) error {
	unlock, err := g.locker.Lock(ctx, g.key)
	if err != nil {
		g.logger.Error("writer lock unavailable", zap.String("key", g.key), zap.Error(err))
		return errorbank.StorageUnavailable("orders file is busy, retry later", errorbank.WithCause(err))
	}
	defer func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			g.logger.Warn("writer lock release failed", zap.String("key", g.key), zap.Error(err))
		}
	}()
	return fn()
}
