package order

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/orderdesk/internal/dto"
	"github.com/Additional-Code/orderdesk/internal/entity"
	"github.com/Additional-Code/orderdesk/internal/presentation/http/response"
	service "github.com/Additional-Code/orderdesk/internal/service/order"
	"github.com/Additional-Code/orderdesk/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/Additional-Code/orderdesk/transport/http/order")

// Handler exposes order endpoints over HTTP.
type Handler struct {
	ops service.Operations
}

// NewHandler constructs an order Handler.
func NewHandler(ops service.Operations) *Handler {
	return &Handler{ops: ops}
}

// Register mounts the order routes on e.
func Register(e *echo.Echo, h *Handler) {
	e.GET("/pedidos", h.list)
	e.POST("/pedidos", h.create)
	e.GET("/pedidos/:id", h.get)
	e.PUT("/pedidos/:id", h.replace)
	e.DELETE("/pedidos/:id", h.delete)
	e.GET("/pedidosquantidade", h.count)
	e.GET("/pedidoshash", h.hash)
	e.GET("/pedidoscompactar", h.snapshot)
	e.GET("/pedidosfiltrar", h.filter)
}

func (h *Handler) list(c echo.Context) error {
	b := response.New(c)
	ctx, span := httpTracer.Start(c.Request().Context(), "orders.list")
	defer span.End()

	orders, err := h.ops.List(ctx)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.FromEntities(orders)).WithMeta("count", len(orders)).Build()
}

func (h *Handler) get(c echo.Context) error {
	b := response.New(c)

	id, err := pathID(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.get", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order, err := h.ops.Get(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.FromEntity(order)).Build()
}

func (h *Handler) create(c echo.Context) error {
	b := response.New(c)

	order, err := bindOrder(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.create", trace.WithAttributes(attribute.Int64("order.id", order.ID)))
	defer span.End()

	created, err := h.ops.Create(ctx, order)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithStatus(http.StatusCreated).WithData(dto.FromEntity(created)).Build()
}

func (h *Handler) replace(c echo.Context) error {
	b := response.New(c)

	id, err := pathID(c)
	if err != nil {
		return b.WithError(err).Build()
	}
	order, err := bindOrder(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.replace", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	replaced, err := h.ops.Replace(ctx, id, order)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.FromEntity(replaced)).Build()
}

func (h *Handler) delete(c echo.Context) error {
	b := response.New(c)

	id, err := pathID(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.delete", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	if err := h.ops.Delete(ctx, id); err != nil {
		return b.WithError(err).Build()
	}
	return b.WithStatus(http.StatusNoContent).Build()
}

func (h *Handler) count(c echo.Context) error {
	b := response.New(c)
	ctx, span := httpTracer.Start(c.Request().Context(), "orders.count")
	defer span.End()

	n, err := h.ops.Count(ctx)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.Count{Quantity: n}).Build()
}

func (h *Handler) hash(c echo.Context) error {
	b := response.New(c)
	ctx, span := httpTracer.Start(c.Request().Context(), "orders.hash")
	defer span.End()

	sum, err := h.ops.ContentHash(ctx)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.Hash{SHA256: sum}).Build()
}

func (h *Handler) snapshot(c echo.Context) error {
	b := response.New(c)
	ctx, span := httpTracer.Start(c.Request().Context(), "orders.snapshot")
	defer span.End()

	snap, err := h.ops.CompressSnapshot(ctx)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithAttachment(snap.Name, snap.ContentType, snap.Data).Build()
}

func (h *Handler) filter(c echo.Context) error {
	b := response.New(c)

	f, err := bindFilter(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.filter")
	defer span.End()

	orders, err := h.ops.Filter(ctx, f)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.FromEntities(orders)).WithMeta("count", len(orders)).Build()
}

// bindFilter reads the optional filter parameters. Absent or empty parameters impose no constraint.
func bindFilter(c echo.Context) (service.Filter, error) {
	var f service.Filter
	params := c.QueryParams()
	binder := echo.QueryParamsBinder(c)
	if params.Get("cliente_id") != "" {
		f.CustomerID = new(int64)
		binder.Int64("cliente_id", f.CustomerID)
	}
	if params.Get("valor_minimo") != "" {
		f.ValueMin = new(float64)
		binder.Float64("valor_minimo", f.ValueMin)
	}
	if params.Get("valor_maximo") != "" {
		f.ValueMax = new(float64)
		binder.Float64("valor_maximo", f.ValueMax)
	}
	if params.Get("quantidade_minima") != "" {
		f.CountMin = new(int64)
		binder.Int64("quantidade_minima", f.CountMin)
	}
	if params.Get("quantidade_maxima") != "" {
		f.CountMax = new(int64)
		binder.Int64("quantidade_maxima", f.CountMax)
	}
	if err := binder.BindError(); err != nil {
		return service.Filter{}, errorbank.BadRequest("invalid filter parameters", errorbank.WithCause(err))
	}
	return f, nil
}

func pathID(c echo.Context) (int64, error) {
	raw := c.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errorbank.BadRequest("invalid id", errorbank.WithCause(err), errorbank.WithDetail("id", raw))
	}
	return id, nil
}

func bindOrder(c echo.Context) (entity.Order, error) {
	var payload dto.Order
	if err := (&echo.DefaultBinder{}).BindBody(c, &payload); err != nil {
		return entity.Order{}, errorbank.BadRequest("invalid payload", errorbank.WithCause(err))
	}

	order, err := payload.ToEntity()
	if err != nil {
		var verr *entity.ValidationError
		if errors.As(err, &verr) {
			return entity.Order{}, errorbank.Unprocessable("order payload failed validation",
				errorbank.WithCause(err), errorbank.WithDetails(verr.Fields()))
		}
		return entity.Order{}, errorbank.BadRequest("invalid payload", errorbank.WithCause(err))
	}
	return order, nil
}
