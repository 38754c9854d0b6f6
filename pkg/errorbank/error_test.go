package errorbank

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
)

func TestKindMapping(t *testing.T) {
	tests := []struct {
		err    *AppError
		status int
		code   codes.Code
	}{
		{BadRequest("bad"), http.StatusBadRequest, codes.InvalidArgument},
		{Conflict("dup"), http.StatusConflict, codes.AlreadyExists},
		{NotFound("gone"), http.StatusNotFound, codes.NotFound},
		{Unprocessable("invalid"), http.StatusUnprocessableEntity, codes.FailedPrecondition},
		{StorageUnavailable("no file"), http.StatusServiceUnavailable, codes.Unavailable},
		{Internal("boom"), http.StatusInternalServerError, codes.Internal},
		{nil, http.StatusInternalServerError, codes.Internal},
	}

	for _, tc := range tests {
		t.Run(string(tc.err.Kind()), func(t *testing.T) {
			assert.Equal(t, tc.status, tc.err.StatusCode())
			assert.Equal(t, tc.code, tc.err.GRPCCode())
		})
	}
}

func TestUnknownKindFallsBackToInternal(t *testing.T) {
	err := New(Kind("teapot"), "short and stout")
	assert.Equal(t, http.StatusInternalServerError, err.StatusCode())
	assert.Equal(t, codes.Internal, err.GRPCCode())
	assert.Nil(t, New(KindConflict, "dup", WithDetails(nil)).Details())
}

func TestOptionsAndUnwrap(t *testing.T) {
	cause := errors.New("disk on fire")
	err := NotFound("order 7 not found",
		WithCause(cause),
		WithDetail("id", 7),
		WithDetails(map[string]any{"path": "database.csv"}),
	)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "order 7 not found: disk on fire", err.Error())
	assert.Equal(t, map[string]any{"id": 7, "path": "database.csv"}, err.Details())
}

func TestIsAndFrom(t *testing.T) {
	wrapped := fmt.Errorf("create: %w", Conflict("duplicate id"))

	assert.True(t, Is(wrapped, KindConflict))
	assert.False(t, Is(wrapped, KindNotFound))
	assert.False(t, Is(errors.New("plain"), KindConflict))

	assert.Same(t, errors.Unwrap(wrapped), From(wrapped))

	plain := From(errors.New("plain"))
	require.NotNil(t, plain)
	assert.Equal(t, KindInternal, plain.Kind())
	assert.Nil(t, From(nil))
}

func TestEmptyMessageFallsBackToKind(t *testing.T) {
	assert.Equal(t, "not_found", New(KindNotFound, "").Message())
}
