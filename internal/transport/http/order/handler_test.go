package order

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Additional-Code/orderdesk/internal/messaging"
	repo "github.com/Additional-Code/orderdesk/internal/repository/order"
	service "github.com/Additional-Code/orderdesk/internal/service/order"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Meta    map[string]any  `json:"meta"`
	Error   struct {
		Kind    string         `json:"kind"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

type server struct {
	e    *echo.Echo
	path string
}

func newServer(t *testing.T) server {
	t.Helper()
	logger := zaptest.NewLogger(t)
	path := filepath.Join(t.TempDir(), "database.csv")
	store := repo.NewStore(path, logger)
	svc := service.New(store, logger, messaging.NewNoop("orders.audit"))

	e := echo.New()
	Register(e, NewHandler(svc))
	return server{e: e, path: path}
}

func (s server) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func orderBody(id, customer int, value string, items int) string {
	return `{"id":` + itoa(id) + `,"cliente_id":` + itoa(customer) + `,"valor_total":` + value +
		`,"data":"2024-01-01T00:00:00Z","quantidade_itens":` + itoa(items) + `}`
}

func itoa(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func TestCreateAndGet(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodPost, "/pedidos", orderBody(1, 10, "99.5", 2))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.True(t, decode(t, rec).Success)

	rec = s.do(t, http.MethodGet, "/pedidos/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t,
		`{"id":1,"cliente_id":10,"valor_total":99.5,"data":"2024-01-01T00:00:00Z","quantidade_itens":2}`,
		string(decode(t, rec).Data))
}

func TestListEmptyReturnsArray(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodGet, "/pedidos", "")
	require.Equal(t, http.StatusOK, rec.Code)
	env := decode(t, rec)
	assert.JSONEq(t, `[]`, string(env.Data))
	assert.EqualValues(t, 0, env.Meta["count"])
}

func TestErrorStatuses(t *testing.T) {
	s := newServer(t)
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/pedidos", orderBody(1, 10, "5", 1)).Code)

	tests := []struct {
		name   string
		method string
		target string
		body   string
		status int
		kind   string
	}{
		{"get missing", http.MethodGet, "/pedidos/99", "", http.StatusNotFound, "not_found"},
		{"duplicate id", http.MethodPost, "/pedidos", orderBody(1, 10, "5", 1), http.StatusConflict, "conflict"},
		{"non-positive value", http.MethodPost, "/pedidos", orderBody(2, 10, "0", 1), http.StatusUnprocessableEntity, "unprocessable_entity"},
		{"zero items", http.MethodPost, "/pedidos", orderBody(2, 10, "5", 0), http.StatusUnprocessableEntity, "unprocessable_entity"},
		{"missing fields", http.MethodPost, "/pedidos", `{"id":2}`, http.StatusUnprocessableEntity, "unprocessable_entity"},
		{"malformed json", http.MethodPost, "/pedidos", `{"id":`, http.StatusBadRequest, "bad_request"},
		{"bad path id", http.MethodGet, "/pedidos/abc", "", http.StatusBadRequest, "bad_request"},
		{"replace missing", http.MethodPut, "/pedidos/42", orderBody(42, 1, "5", 1), http.StatusNotFound, "not_found"},
		{"delete missing", http.MethodDelete, "/pedidos/42", "", http.StatusNotFound, "not_found"},
		{"bad filter", http.MethodGet, "/pedidosfiltrar?valor_minimo=cheap", "", http.StatusBadRequest, "bad_request"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := s.do(t, tc.method, tc.target, tc.body)
			require.Equal(t, tc.status, rec.Code, rec.Body.String())
			env := decode(t, rec)
			assert.False(t, env.Success)
			assert.Equal(t, tc.kind, env.Error.Kind)
		})
	}
}

func TestValidationDetailsNameFields(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodPost, "/pedidos", orderBody(2, 10, "-1", 0))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	details := decode(t, rec).Error.Details
	assert.Contains(t, details, "valor_total")
	assert.Contains(t, details, "quantidade_itens")
}

func TestReplaceAndDelete(t *testing.T) {
	s := newServer(t)
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/pedidos", orderBody(1, 10, "5", 1)).Code)

	rec := s.do(t, http.MethodPut, "/pedidos/1", orderBody(1, 11, "7.25", 3))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t,
		`{"id":1,"cliente_id":11,"valor_total":7.25,"data":"2024-01-01T00:00:00Z","quantidade_itens":3}`,
		string(decode(t, rec).Data))

	rec = s.do(t, http.MethodDelete, "/pedidos/1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.Bytes())

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/pedidos/1", "").Code)
}

func TestCountAndHash(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodGet, "/pedidoshash", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "storage_unavailable", decode(t, rec).Error.Kind)

	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/pedidos", orderBody(1, 10, "5", 1)).Code)
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/pedidos", orderBody(2, 10, "6", 1)).Code)

	rec = s.do(t, http.MethodGet, "/pedidosquantidade", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"quantidade":2}`, string(decode(t, rec).Data))

	rec = s.do(t, http.MethodGet, "/pedidoshash", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		SHA256 string `json:"hash_sha256"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &body))
	assert.Len(t, body.SHA256, 64)
}

func TestSnapshotAttachment(t *testing.T) {
	s := newServer(t)
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/pedidos", orderBody(1, 10, "5", 1)).Code)

	rec := s.do(t, http.MethodGet, "/pedidoscompactar", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/zip", rec.Header().Get(echo.HeaderContentType))
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), `filename="database.zip"`)

	zr, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 1)
	assert.Equal(t, "database.csv", zr.File[0].Name)

	f, err := zr.File[0].Open()
	require.NoError(t, err)
	defer f.Close()
	inflated, err := io.ReadAll(f)
	require.NoError(t, err)

	onDisk, err := os.ReadFile(s.path)
	require.NoError(t, err)
	assert.Equal(t, onDisk, inflated)
}

func TestFilterQuery(t *testing.T) {
	s := newServer(t)
	for _, body := range []string{
		orderBody(1, 10, "50", 1),
		orderBody(2, 10, "150", 3),
		orderBody(3, 20, "200", 5),
	} {
		require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/pedidos", body).Code)
	}

	tests := []struct {
		query string
		want  []int64
	}{
		{"", []int64{1, 2, 3}},
		{"?cliente_id=10", []int64{1, 2}},
		{"?valor_minimo=100", []int64{2, 3}},
		{"?cliente_id=10&valor_minimo=100&valor_maximo=160", []int64{2}},
		{"?quantidade_minima=2&quantidade_maxima=4", []int64{2}},
		{"?cliente_id=", []int64{1, 2, 3}},
		{"?cliente_id=99", []int64{}},
	}

	for _, tc := range tests {
		t.Run(tc.query, func(t *testing.T) {
			rec := s.do(t, http.MethodGet, "/pedidosfiltrar"+tc.query, "")
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			var orders []struct {
				ID int64 `json:"id"`
			}
			require.NoError(t, json.Unmarshal(decode(t, rec).Data, &orders))
			got := make([]int64, 0, len(orders))
			for _, o := range orders {
				got = append(got, o.ID)
			}
			assert.Equal(t, tc.want, got)
		})
	}
}
