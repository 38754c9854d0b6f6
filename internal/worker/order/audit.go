package order

import (
	"context"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/orderdesk/internal/config"
	"github.com/Additional-Code/orderdesk/internal/messaging"
	ordersvc "github.com/Additional-Code/orderdesk/internal/service/order"
	"github.com/Additional-Code/orderdesk/internal/worker"
)

var workerTracer = otel.Tracer("github.com/Additional-Code/orderdesk/worker/order")

// Module registers the order audit consumer with the worker engine.
var Module = fx.Module("worker_order",
	fx.Provide(
		fx.Annotate(
			NewAuditHandler,
			fx.ResultTags(`group:"worker.handlers"`),
		),
	),
)

// NewAuditHandler consumes order audit events and writes them to the audit log.
func NewAuditHandler(logger *zap.Logger, cfg config.Config) worker.HandlerRegistration {
	return worker.HandlerRegistration{
		Topic:   cfg.Messaging.Kafka.Topic,
		Handler: auditHandler(logger.Named("audit_consumer")),
	}
}

func auditHandler(logger *zap.Logger) messaging.Handler {
	return func(ctx context.Context, msg messaging.Message) error {
		_, span := workerTracer.Start(ctx, "worker.orders.audit", trace.WithAttributes(
			attribute.String("messaging.topic", msg.Topic),
			attribute.Int64("messaging.offset", msg.Offset),
		))
		defer span.End()

		var event ordersvc.AuditEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			logger.Error("failed to decode audit event", zap.Int64("offset", msg.Offset), zap.Error(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "decode error")
			return fmt.Errorf("decode audit event: %w", err)
		}
		if header := msg.Headers[ordersvc.EventTypeHeader]; header != "" && header != event.Type {
			logger.Warn("audit event type header disagrees with payload",
				zap.String("header", header),
				zap.String("payload", event.Type),
			)
		}
		span.SetAttributes(attribute.String("audit.type", event.Type), attribute.Int64("order.id", event.OrderID))

		fields := []zap.Field{
			zap.String("event_id", event.ID),
			zap.String("type", event.Type),
			zap.Int64("order_id", event.OrderID),
			zap.Time("occurred_at", event.OccurredAt),
		}
		if o := event.Order; o != nil {
			fields = append(fields,
				zap.Int64("cliente_id", o.CustomerID),
				zap.Float64("valor_total", o.TotalValue),
				zap.Int64("quantidade_itens", o.ItemCount),
			)
		}

		switch event.Type {
		case ordersvc.EventOrderCreated, ordersvc.EventOrderReplaced, ordersvc.EventOrderDeleted:
			logger.Info("order audit event", fields...)
		default:
			logger.Warn("unknown audit event type", fields...)
		}
		return nil
	}
}
