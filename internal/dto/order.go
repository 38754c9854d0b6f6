package dto

import (
	"github.com/Additional-Code/orderdesk/internal/entity"
)

// Order is the wire form of an order, shared by the HTTP request and response bodies.
// Field names match the orders file columns.
type Order struct {
	ID         *int64   `json:"id"`
	CustomerID *int64   `json:"cliente_id"`
	TotalValue *float64 `json:"valor_total"`
	Timestamp  *string  `json:"data"`
	ItemCount  *int64   `json:"quantidade_itens"`
}

// FromEntity renders an order for transport.
func FromEntity(o entity.Order) Order {
	ts := entity.FormatTimestamp(o.Timestamp)
	return Order{
		ID:         &o.ID,
		CustomerID: &o.CustomerID,
		TotalValue: &o.TotalValue,
		Timestamp:  &ts,
		ItemCount:  &o.ItemCount,
	}
}

// FromEntities renders a slice of orders, never returning nil.
func FromEntities(orders []entity.Order) []Order {
	out := make([]Order, 0, len(orders))
	for _, o := range orders {
		out = append(out, FromEntity(o))
	}
	return out
}

// ToEntity validates the payload and builds an order. Missing fields and
// invariant violations are reported together in one *entity.ValidationError.
func (p Order) ToEntity() (entity.Order, error) {
	var missing []entity.FieldViolation
	require := func(present bool, field string) {
		if !present {
			missing = append(missing, entity.FieldViolation{Field: field, Message: "is required"})
		}
	}
	require(p.ID != nil, "id")
	require(p.CustomerID != nil, "cliente_id")
	require(p.TotalValue != nil, "valor_total")
	require(p.Timestamp != nil, "data")
	require(p.ItemCount != nil, "quantidade_itens")
	if len(missing) > 0 {
		return entity.Order{}, &entity.ValidationError{Violations: missing}
	}

	ts, err := entity.ParseTimestamp(*p.Timestamp)
	if err != nil {
		return entity.Order{}, err
	}
	return entity.NewOrder(*p.ID, *p.CustomerID, *p.TotalValue, ts, *p.ItemCount)
}

// Count is the body of the order count endpoint.
type Count struct {
	Quantity int `json:"quantidade"`
}

// Hash is the body of the content hash endpoint.
type Hash struct {
	SHA256 string `json:"hash_sha256"`
}
