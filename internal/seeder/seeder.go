package seeder

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/orderdesk/internal/entity"
	serviceorder "github.com/Additional-Code/orderdesk/internal/service/order"
	"github.com/Additional-Code/orderdesk/pkg/errorbank"
)

// Module provides the Seeder to Fx.
var Module = fx.Provide(New)

// Seeder fills an orders file with sample data for local setups.
type Seeder struct {
	ops    serviceorder.Operations
	logger *zap.Logger
}

// New constructs a Seeder that writes through the order operations.
func New(ops serviceorder.Operations, logger *zap.Logger) *Seeder {
	return &Seeder{ops: ops, logger: logger.Named("seeder")}
}

// Samples returns the sample orders, all stamped at base.
func Samples(base time.Time) ([]entity.Order, error) {
	rows := []struct {
		id, customer int64
		value        float64
		items        int64
	}{
		{1000, 1, 129.90, 3},
		{1001, 1, 49.50, 1},
		{1002, 2, 310.00, 6},
		{1003, 3, 15.75, 1},
	}

	out := make([]entity.Order, 0, len(rows))
	for i, r := range rows {
		o, err := entity.NewOrder(r.id, r.customer, r.value, base.Add(time.Duration(i)*time.Hour), r.items)
		if err != nil {
			return nil, fmt.Errorf("sample order %d: %w", r.id, err)
		}
		out = append(out, o)
	}
	return out, nil
}

// Orders creates the sample orders, skipping ids that already exist. It returns how many were added.
func (s *Seeder) Orders(ctx context.Context) (int, error) {
	samples, err := Samples(time.Now().UTC().Truncate(time.Second))
	if err != nil {
		return 0, err
	}

	created := 0
	for _, order := range samples {
		if _, err := s.ops.Create(ctx, order); err != nil {
			if errorbank.Is(err, errorbank.KindConflict) {
				s.logger.Debug("sample order already present", zap.Int64("id", order.ID))
				continue
			}
			return created, err
		}
		created++
	}

	s.logger.Info("seeded orders", zap.Int("created", created), zap.Int("skipped", len(samples)-created))
	return created, nil
}
