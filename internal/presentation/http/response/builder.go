package response

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Additional-Code/orderdesk/pkg/errorbank"
)

// Builder helps construct consistent HTTP responses.
type Builder struct {
	ctx        echo.Context
	status     int
	data       any
	err        error
	meta       map[string]any
	attachment *attachment
}

type attachment struct {
	name        string
	contentType string
	body        []byte
}

// New instantiates a Builder for the provided request context.
func New(ctx echo.Context) *Builder {
	return &Builder{ctx: ctx, status: http.StatusOK}
}

// WithStatus overrides the response status code.
func (b *Builder) WithStatus(status int) *Builder {
	if status > 0 {
		b.status = status
	}
	return b
}

// WithData attaches a success payload.
func (b *Builder) WithData(data any) *Builder {
	b.data = data
	return b
}

// WithError records an error to be rendered.
func (b *Builder) WithError(err error) *Builder {
	b.err = err
	return b
}

// WithMeta appends auxiliary metadata to the response.
func (b *Builder) WithMeta(key string, value any) *Builder {
	if key == "" {
		return b
	}
	if b.meta == nil {
		b.meta = make(map[string]any)
	}
	b.meta[key] = value
	return b
}

// WithAttachment sends body as a downloadable file instead of the JSON envelope.
func (b *Builder) WithAttachment(name, contentType string, body []byte) *Builder {
	b.attachment = &attachment{name: name, contentType: contentType, body: body}
	return b
}

// Build finalises and emits the HTTP response.
func (b *Builder) Build() error {
	switch {
	case b.err != nil:
		return b.buildError()
	case b.status == http.StatusNoContent:
		return b.ctx.NoContent(http.StatusNoContent)
	case b.attachment != nil:
		return b.buildAttachment()
	default:
		return b.buildSuccess()
	}
}

func (b *Builder) buildSuccess() error {
	payload := struct {
		Success bool           `json:"success"`
		Data    any            `json:"data"`
		Meta    map[string]any `json:"meta,omitempty"`
	}{
		Success: true,
		Data:    b.data,
		Meta:    b.meta,
	}
	return b.ctx.JSON(b.status, payload)
}

func (b *Builder) buildAttachment() error {
	a := b.attachment
	b.ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", a.name))
	return b.ctx.Blob(b.status, a.contentType, a.body)
}

func (b *Builder) buildError() error {
	appErr := errorbank.From(b.err)
	status := b.status
	if status < 400 {
		status = appErr.StatusCode()
	}
	payload := struct {
		Success bool `json:"success"`
		Error   struct {
			Kind    string         `json:"kind"`
			Message string         `json:"message"`
			Details map[string]any `json:"details,omitempty"`
		} `json:"error"`
		Meta map[string]any `json:"meta,omitempty"`
	}{
		Success: false,
		Meta:    b.meta,
	}
	payload.Error.Kind = string(appErr.Kind())
	payload.Error.Message = appErr.Message()
	payload.Error.Details = appErr.Details()

	return b.ctx.JSON(status, payload)
}
