package entity

import (
	"fmt"
	"strings"
	"time"
)

// Order is a single purchase record held in the orders file.
type Order struct {
	ID         int64
	CustomerID int64
	TotalValue float64
	Timestamp  time.Time
	ItemCount  int64
}

// FieldViolation names a field that broke an Order invariant.
type FieldViolation struct {
	Field   string
	Message string
}

// ValidationError lists every invariant an Order candidate violated.
type ValidationError struct {
	Violations []FieldViolation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, fmt.Sprintf("%s: %s", v.Field, v.Message))
	}
	return "invalid order: " + strings.Join(parts, "; ")
}

// Fields returns the violations keyed by field name.
func (e *ValidationError) Fields() map[string]any {
	out := make(map[string]any, len(e.Violations))
	for _, v := range e.Violations {
		out[v.Field] = v.Message
	}
	return out
}

// NewOrder builds an Order or fails with a *ValidationError.
func NewOrder(id, customerID int64, totalValue float64, timestamp time.Time, itemCount int64) (Order, error) {
	var violations []FieldViolation
	if !(totalValue > 0) {
		violations = append(violations, FieldViolation{Field: "valor_total", Message: "must be greater than 0"})
	}
	if itemCount <= 0 {
		violations = append(violations, FieldViolation{Field: "quantidade_itens", Message: "must be greater than 0"})
	}
	if len(violations) > 0 {
		return Order{}, &ValidationError{Violations: violations}
	}

	return Order{
		ID:         id,
		CustomerID: customerID,
		TotalValue: totalValue,
		Timestamp:  timestamp,
		ItemCount:  itemCount,
	}, nil
}

// timestampLayouts covers the ISO-8601 date-time forms accepted in the orders file:
// "T" or space separator, hour/minute/second precision with optional fraction,
// and an offset written as ±hh:mm, ±hhmm, ±hh, Z or nothing.
var timestampLayouts = func() []string {
	var layouts []string
	for _, sep := range []string{"T", " "} {
		for _, clock := range []string{"15:04:05.999999999", "15:04", "15"} {
			for _, zone := range []string{"Z07:00", "Z0700", "Z07", ""} {
				layouts = append(layouts, "2006-01-02"+sep+clock+zone)
			}
		}
	}
	return append(layouts, "2006-01-02")
}()

// ParseTimestamp reads ISO-8601 text. Values without an offset are taken as UTC.
func ParseTimestamp(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, &ValidationError{Violations: []FieldViolation{{Field: "data", Message: "is required"}}}
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, &ValidationError{Violations: []FieldViolation{
		{Field: "data", Message: fmt.Sprintf("%q is not an ISO-8601 date-time", raw)},
	}}
}

// FormatTimestamp writes ts as RFC 3339, keeping its offset and any fractional seconds.
func FormatTimestamp(ts time.Time) string {
	return ts.Format(time.RFC3339Nano)
}
