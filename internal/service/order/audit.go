package order

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/Additional-Code/orderdesk/internal/entity"
	"github.com/Additional-Code/orderdesk/internal/messaging"
)

const (
	opList     = "list"
	opGet      = "get"
	opCreate   = "create"
	opReplace  = "replace"
	opDelete   = "delete"
	opCount    = "count"
	opFilter   = "filter"
	opHash     = "hash"
	opSnapshot = "snapshot"

	outcomeOK       = "ok"
	outcomeNotFound = "not_found"
	outcomeConflict = "conflict"
	outcomeError    = "error"
)

// Audit event types published after a successful mutation.
const (
	EventOrderCreated  = "order.created"
	EventOrderReplaced = "order.replaced"
	EventOrderDeleted  = "order.deleted"
)

// EventTypeHeader carries the event type on published messages.
const EventTypeHeader = "event-type"

// AuditEvent records a mutation of the orders file.
type AuditEvent struct {
	ID         string        `json:"id"`
	Type       string        `json:"type"`
	OrderID    int64         `json:"order_id"`
	Order      *OrderPayload `json:"order,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}

// OrderPayload is the order as carried inside an AuditEvent.
type OrderPayload struct {
	ID         int64   `json:"id"`
	CustomerID int64   `json:"cliente_id"`
	TotalValue float64 `json:"valor_total"`
	Timestamp  string  `json:"data"`
	ItemCount  int64   `json:"quantidade_itens"`
}

func newOrderPayload(o entity.Order) *OrderPayload {
	return &OrderPayload{
		ID:         o.ID,
		CustomerID: o.CustomerID,
		TotalValue: o.TotalValue,
		Timestamp:  entity.FormatTimestamp(o.Timestamp),
		ItemCount:  o.ItemCount,
	}
}

func (s *Service) publish(ctx context.Context, eventType string, orderID int64, order *entity.Order) {
	if s.publisher == nil || !s.publisher.Enabled() {
		return
	}

	event := AuditEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		OrderID:    orderID,
		OccurredAt: time.Now().UTC(),
	}
	if order != nil {
		event.Order = newOrderPayload(*order)
	}

	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("marshal audit event", zap.String("type", eventType), zap.Error(err))
		return
	}

	msg := messaging.Message{
		Key:     []byte(fmt.Sprintf("order-%d", orderID)),
		Value:   payload,
		Headers: map[string]string{EventTypeHeader: eventType},
	}
	if err := s.publisher.Publish(ctx, msg); err != nil {
		s.logger.Error("publish audit event", zap.String("type", eventType), zap.Int64("id", orderID), zap.Error(err))
	}
}

type metrics struct {
	operations metric.Int64Counter
}

func newMetrics(logger *zap.Logger) *metrics {
	meter := otel.Meter("github.com/Additional-Code/orderdesk/service/order")
	counter, err := meter.Int64Counter("orderdesk.operations",
		metric.WithDescription("Order operations by name and outcome"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		logger.Warn("order operations counter unavailable", zap.Error(err))
		return &metrics{}
	}
	return &metrics{operations: counter}
}

func (m *metrics) record(ctx context.Context, op, outcome string) {
	if m == nil || m.operations == nil {
		return
	}
	m.operations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("outcome", outcome),
	))
}
