package order

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/orderdesk/internal/entity"
	"github.com/Additional-Code/orderdesk/internal/messaging"
	repo "github.com/Additional-Code/orderdesk/internal/repository/order"
	"github.com/Additional-Code/orderdesk/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/Additional-Code/orderdesk/service/order")

// Repository is the whole-file storage the service reads and rewrites.
type Repository interface {
	Load(ctx context.Context) ([]entity.Order, error)
	Save(ctx context.Context, orders []entity.Order) error
	ContentHash(ctx context.Context) (string, error)
	CompressSnapshot(ctx context.Context) (repo.Snapshot, error)
}

// Operations is the order surface consumed by transports and the CLI.
type Operations interface {
	List(ctx context.Context) ([]entity.Order, error)
	Get(ctx context.Context, id int64) (entity.Order, error)
	Create(ctx context.Context, order entity.Order) (entity.Order, error)
	Replace(ctx context.Context, id int64, order entity.Order) (entity.Order, error)
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int, error)
	Filter(ctx context.Context, f Filter) ([]entity.Order, error)
	ContentHash(ctx context.Context) (string, error)
	CompressSnapshot(ctx context.Context) (repo.Snapshot, error)
}

// Filter narrows a listing. Nil fields impose no constraint.
type Filter struct {
	CustomerID *int64
	ValueMin   *float64
	ValueMax   *float64
	CountMin   *int64
	CountMax   *int64
}

// Service runs every operation as a full load, an in-memory step and, for
// mutations, a full save. It performs no locking: concurrent mutations can
// overwrite each other's saves. Wrap it in Guarded to serialise writers.
type Service struct {
	repo      Repository
	logger    *zap.Logger
	publisher messaging.Client
	metrics   *metrics
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Repository *repo.Store
	Logger     *zap.Logger
	Publisher  messaging.Client
}

// NewService wires a Service from the Fx graph.
func NewService(p Params) *Service {
	return New(p.Repository, p.Logger, p.Publisher)
}

// New builds a Service over any Repository. A nil publisher disables audit events.
func New(repository Repository, logger *zap.Logger, publisher messaging.Client) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:      repository,
		logger:    logger.Named("orders"),
		publisher: publisher,
		metrics:   newMetrics(logger),
	}
}

// List returns every stored order in file order.
func (s *Service) List(ctx context.Context) ([]entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.List")
	defer span.End()

	orders, err := s.load(ctx, span, opList)
	if err != nil {
		return nil, err
	}

	s.logger.Info("order list requested", zap.Int("count", len(orders)))
	s.metrics.record(ctx, opList, outcomeOK)
	return orders, nil
}

// Get returns the first order with the given id.
func (s *Service) Get(ctx context.Context, id int64) (entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Get", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	orders, err := s.load(ctx, span, opGet)
	if err != nil {
		return entity.Order{}, err
	}

	if i := indexOf(orders, id); i >= 0 {
		s.logger.Info("order found", zap.Int64("id", id))
		s.metrics.record(ctx, opGet, outcomeOK)
		return orders[i], nil
	}

	s.logger.Error("order not found", zap.Int64("id", id))
	s.metrics.record(ctx, opGet, outcomeNotFound)
	span.SetStatus(codes.Error, "not found")
	return entity.Order{}, notFound(id)
}

// Create appends a new order. An existing id is rejected and nothing is written.
func (s *Service) Create(ctx context.Context, order entity.Order) (entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Create", trace.WithAttributes(attribute.Int64("order.id", order.ID)))
	defer span.End()

	orders, err := s.load(ctx, span, opCreate)
	if err != nil {
		return entity.Order{}, err
	}

	if indexOf(orders, order.ID) >= 0 {
		s.logger.Warn("duplicate order id rejected", zap.Int64("id", order.ID))
		s.metrics.record(ctx, opCreate, outcomeConflict)
		span.SetStatus(codes.Error, "duplicate id")
		return entity.Order{}, errorbank.Conflict(
			fmt.Sprintf("order with id %d already exists", order.ID),
			errorbank.WithDetail("id", order.ID),
		)
	}

	orders = append(orders, order)
	if err := s.save(ctx, span, opCreate, orders); err != nil {
		return entity.Order{}, err
	}

	s.logger.Info("order created", zap.Int64("id", order.ID))
	s.metrics.record(ctx, opCreate, outcomeOK)
	s.publish(ctx, EventOrderCreated, order.ID, &order)
	return order, nil
}

// Replace swaps the first order with the given id for the payload, keeping its position.
// The payload's own id is stored as given, even when it differs from id.
func (s *Service) Replace(ctx context.Context, id int64, order entity.Order) (entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Replace", trace.WithAttributes(
		attribute.Int64("order.id", id),
		attribute.Int64("order.payload_id", order.ID),
	))
	defer span.End()

	orders, err := s.load(ctx, span, opReplace)
	if err != nil {
		return entity.Order{}, err
	}

	i := indexOf(orders, id)
	if i < 0 {
		s.logger.Error("order not found for replace", zap.Int64("id", id))
		s.metrics.record(ctx, opReplace, outcomeNotFound)
		span.SetStatus(codes.Error, "not found")
		return entity.Order{}, notFound(id)
	}

	orders[i] = order
	if err := s.save(ctx, span, opReplace, orders); err != nil {
		return entity.Order{}, err
	}

	if order.ID != id {
		s.logger.Warn("order replaced under a different id", zap.Int64("id", id), zap.Int64("payload_id", order.ID))
	}
	s.logger.Info("order replaced", zap.Int64("id", id))
	s.metrics.record(ctx, opReplace, outcomeOK)
	s.publish(ctx, EventOrderReplaced, id, &order)
	return order, nil
}

// Delete removes every order with the given id.
func (s *Service) Delete(ctx context.Context, id int64) error {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Delete", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	orders, err := s.load(ctx, span, opDelete)
	if err != nil {
		return err
	}

	kept := make([]entity.Order, 0, len(orders))
	for _, o := range orders {
		if o.ID != id {
			kept = append(kept, o)
		}
	}
	if len(kept) == len(orders) {
		s.logger.Warn("delete requested for missing order", zap.Int64("id", id))
		s.metrics.record(ctx, opDelete, outcomeNotFound)
		span.SetStatus(codes.Error, "not found")
		return notFound(id)
	}

	if err := s.save(ctx, span, opDelete, kept); err != nil {
		return err
	}

	s.logger.Info("order deleted", zap.Int64("id", id), zap.Int("removed", len(orders)-len(kept)))
	s.metrics.record(ctx, opDelete, outcomeOK)
	s.publish(ctx, EventOrderDeleted, id, nil)
	return nil
}

// Count returns the number of stored orders.
func (s *Service) Count(ctx context.Context) (int, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Count")
	defer span.End()

	orders, err := s.load(ctx, span, opCount)
	if err != nil {
		return 0, err
	}

	s.logger.Info("order count requested", zap.Int("count", len(orders)))
	s.metrics.record(ctx, opCount, outcomeOK)
	return len(orders), nil
}

// Filter returns the orders matching every set predicate, in file order.
func (s *Service) Filter(ctx context.Context, f Filter) ([]entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Filter")
	defer span.End()

	s.logger.Info("order filter requested", f.fields()...)

	orders, err := s.load(ctx, span, opFilter)
	if err != nil {
		return nil, err
	}

	matched := f.Apply(orders)
	span.SetAttributes(attribute.Int("orders.matched", len(matched)))
	s.logger.Info("order filter applied", zap.Int("matched", len(matched)), zap.Int("total", len(orders)))
	s.metrics.record(ctx, opFilter, outcomeOK)
	return matched, nil
}

// ContentHash returns the SHA-256 hex digest of the orders file.
func (s *Service) ContentHash(ctx context.Context) (string, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.ContentHash")
	defer span.End()

	sum, err := s.repo.ContentHash(ctx)
	if err != nil {
		return "", s.storageFailure(ctx, span, opHash, err, "failed to hash orders file")
	}

	s.logger.Info("orders file hash computed", zap.String("sha256", sum))
	s.metrics.record(ctx, opHash, outcomeOK)
	return sum, nil
}

// CompressSnapshot returns a zip archive of the orders file.
func (s *Service) CompressSnapshot(ctx context.Context) (repo.Snapshot, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.CompressSnapshot")
	defer span.End()

	snapshot, err := s.repo.CompressSnapshot(ctx)
	if err != nil {
		return repo.Snapshot{}, s.storageFailure(ctx, span, opSnapshot, err, "failed to compress orders file")
	}

	s.logger.Info("orders file compressed", zap.String("name", snapshot.Name), zap.Int("bytes", len(snapshot.Data)))
	s.metrics.record(ctx, opSnapshot, outcomeOK)
	return snapshot, nil
}

// Apply narrows orders by each set predicate in turn, preserving order.
func (f Filter) Apply(orders []entity.Order) []entity.Order {
	out := make([]entity.Order, 0, len(orders))
	for _, o := range orders {
		if f.matches(o) {
			out = append(out, o)
		}
	}
	return out
}

func (f Filter) matches(o entity.Order) bool {
	if f.CustomerID != nil && o.CustomerID != *f.CustomerID {
		return false
	}
	if f.ValueMin != nil && !(o.TotalValue >= *f.ValueMin) {
		return false
	}
	if f.ValueMax != nil && !(o.TotalValue <= *f.ValueMax) {
		return false
	}
	if f.CountMin != nil && o.ItemCount < *f.CountMin {
		return false
	}
	if f.CountMax != nil && o.ItemCount > *f.CountMax {
		return false
	}
	return true
}

func (f Filter) fields() []zap.Field {
	fields := make([]zap.Field, 0, 5)
	if f.CustomerID != nil {
		fields = append(fields, zap.Int64("cliente_id", *f.CustomerID))
	}
	if f.ValueMin != nil {
		fields = append(fields, zap.Float64("valor_minimo", *f.ValueMin))
	}
	if f.ValueMax != nil {
		fields = append(fields, zap.Float64("valor_maximo", *f.ValueMax))
	}
	if f.CountMin != nil {
		fields = append(fields, zap.Int64("quantidade_minima", *f.CountMin))
	}
	if f.CountMax != nil {
		fields = append(fields, zap.Int64("quantidade_maxima", *f.CountMax))
	}
	return fields
}

func (s *Service) load(ctx context.Context, span trace.Span, op string) ([]entity.Order, error) {
	orders, err := s.repo.Load(ctx)
	if err == nil {
		return orders, nil
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, "load failed")
	s.metrics.record(ctx, op, outcomeError)

	var rowErr *repo.RowError
	var verr *entity.ValidationError
	if errors.As(err, &verr) {
		opts := []errorbank.Option{errorbank.WithCause(err), errorbank.WithDetails(verr.Fields())}
		if errors.As(err, &rowErr) {
			opts = append(opts, errorbank.WithDetail("row", rowErr.Row))
		}
		s.logger.Error("orders file failed validation", zap.String("operation", op), zap.Error(err))
		return nil, errorbank.Unprocessable("orders file contains an invalid order", opts...)
	}

	s.logger.Error("orders file could not be read", zap.String("operation", op), zap.Error(err))
	return nil, errorbank.Internal("failed to load orders", errorbank.WithCause(err))
}

func (s *Service) save(ctx context.Context, span trace.Span, op string, orders []entity.Order) error {
	if err := s.repo.Save(ctx, orders); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "save failed")
		s.metrics.record(ctx, op, outcomeError)
		s.logger.Error("orders file could not be written", zap.String("operation", op), zap.Error(err))
		return errorbank.Internal("failed to save orders", errorbank.WithCause(err))
	}
	return nil
}

func (s *Service) storageFailure(ctx context.Context, span trace.Span, op string, err error, message string) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, message)
	s.metrics.record(ctx, op, outcomeError)
	s.logger.Error(message, zap.Error(err))

	if errors.Is(err, repo.ErrStorageUnavailable) {
		return errorbank.StorageUnavailable("orders file does not exist", errorbank.WithCause(err))
	}
	return errorbank.Internal(message, errorbank.WithCause(err))
}

func indexOf(orders []entity.Order, id int64) int {
	for i, o := range orders {
		if o.ID == id {
			return i
		}
	}
	return -1
}

func notFound(id int64) error {
	return errorbank.NotFound(fmt.Sprintf("order with id %d not found", id), errorbank.WithDetail("id", id))
}
