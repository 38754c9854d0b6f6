package order

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zip"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Additional-Code/orderdesk/internal/entity"
)

var repoTracer = otel.Tracer("github.com/Additional-Code/orderdesk/repository/order")

const hashChunkSize = 4096

// Column names of the orders file, in write order.
var columns = []string{"id", "cliente_id", "valor_total", "data", "quantidade_itens"}

// ErrStorageUnavailable is returned when an operation needs the orders file and it does not exist.
var ErrStorageUnavailable = errors.New("orders file unavailable")

// RowError reports the data row that failed to load. Row 1 is the first line after the header.
type RowError struct {
	Row int
	Err error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// Snapshot is a compressed copy of the orders file.
type Snapshot struct {
	Name        string
	ContentType string
	Data        []byte
}

// Store reads and rewrites the whole orders file. It holds no cache and takes no locks.
type Store struct {
	path         string
	snapshotName string
	snapshotDir  string
	logger       *zap.Logger
}

// StoreOption tweaks optional Store settings.
type StoreOption func(*Store)

// WithSnapshot sets the archive name and, when dir is not empty, the directory the archive is also written to.
func WithSnapshot(name, dir string) StoreOption {
	return func(s *Store) {
		if name != "" {
			s.snapshotName = name
		}
		s.snapshotDir = dir
	}
}

// NewStore returns a Store backed by the CSV file at path.
func NewStore(path string, logger *zap.Logger, opts ...StoreOption) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		path:         path,
		snapshotName: "database.zip",
		logger:       logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the orders file location.
func (s *Store) Path() string {
	return s.path
}

// Load parses every row of the orders file. A missing file yields an empty slice;
// any invalid row fails the whole load.
func (s *Store) Load(ctx context.Context) ([]entity.Order, error) {
	_, span := repoTracer.Start(ctx, "OrderStore.Load", trace.WithAttributes(attribute.String("storage.path", s.path)))
	defer span.End()

	file, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("orders file not found", zap.String("path", s.path))
		return []entity.Order{}, nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "open failed")
		return nil, fmt.Errorf("open orders file: %w", err)
	}
	defer file.Close()

	orders, err := decode(file)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "decode failed")
		return nil, err
	}

	span.SetAttributes(attribute.Int("orders.count", len(orders)))
	s.logger.Info("orders loaded from file", zap.Int("count", len(orders)), zap.String("path", s.path))
	return orders, nil
}

// Save replaces the orders file with the given sequence.
func (s *Store) Save(ctx context.Context, orders []entity.Order) error {
	_, span := repoTracer.Start(ctx, "OrderStore.Save", trace.WithAttributes(
		attribute.String("storage.path", s.path),
		attribute.Int("orders.count", len(orders)),
	))
	defer span.End()

	if err := s.write(orders); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "write failed")
		return err
	}

	s.logger.Info("orders saved to file", zap.Int("count", len(orders)), zap.String("path", s.path))
	return nil
}

func (s *Store) write(orders []entity.Order) error {
	file, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("create orders file: %w", err)
	}

	buf := bufio.NewWriter(file)
	if err := encode(buf, orders); err != nil {
		_ = file.Close()
		return err
	}
	if err := buf.Flush(); err != nil {
		_ = file.Close()
		return fmt.Errorf("flush orders file: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close orders file: %w", err)
	}
	return nil
}

// ContentHash returns the hex SHA-256 digest of the orders file bytes.
func (s *Store) ContentHash(ctx context.Context) (string, error) {
	_, span := repoTracer.Start(ctx, "OrderStore.ContentHash", trace.WithAttributes(attribute.String("storage.path", s.path)))
	defer span.End()

	file, err := s.open()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "open failed")
		return "", err
	}
	defer file.Close()

	hasher := sha256.New()
	chunk := make([]byte, hashChunkSize)
	for {
		n, err := file.Read(chunk)
		hasher.Write(chunk[:n])
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "read failed")
			return "", fmt.Errorf("hash orders file: %w", err)
		}
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// CompressSnapshot zips the current orders file into a single-entry archive named after the file.
func (s *Store) CompressSnapshot(ctx context.Context) (Snapshot, error) {
	_, span := repoTracer.Start(ctx, "OrderStore.CompressSnapshot", trace.WithAttributes(attribute.String("storage.path", s.path)))
	defer span.End()

	file, err := s.open()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "open failed")
		return Snapshot{}, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return Snapshot{}, fmt.Errorf("stat orders file: %w", err)
	}

	var archive bytes.Buffer
	zw := zip.NewWriter(&archive)
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return Snapshot{}, fmt.Errorf("zip header: %w", err)
	}
	header.Name = filepath.Base(s.path)
	header.Method = zip.Deflate

	entry, err := zw.CreateHeader(header)
	if err != nil {
		return Snapshot{}, fmt.Errorf("zip entry: %w", err)
	}
	if _, err := io.Copy(entry, file); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "compress failed")
		return Snapshot{}, fmt.Errorf("compress orders file: %w", err)
	}
	if err := zw.Close(); err != nil {
		return Snapshot{}, fmt.Errorf("finish archive: %w", err)
	}

	snapshot := Snapshot{
		Name:        s.snapshotName,
		ContentType: "application/zip",
		Data:        archive.Bytes(),
	}

	if s.snapshotDir != "" {
		target := filepath.Join(s.snapshotDir, s.snapshotName)
		if err := os.WriteFile(target, snapshot.Data, 0o644); err != nil {
			span.RecordError(err)
			return Snapshot{}, fmt.Errorf("write snapshot: %w", err)
		}
		s.logger.Info("orders snapshot written", zap.String("path", target), zap.Int("bytes", len(snapshot.Data)))
	}

	span.SetAttributes(attribute.Int("snapshot.bytes", len(snapshot.Data)))
	return snapshot, nil
}

func (s *Store) open() (*os.File, error) {
	file, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s: %w", ErrStorageUnavailable, s.path, err)
	}
	if err != nil {
		return nil, fmt.Errorf("open orders file: %w", err)
	}
	return file, nil
}

func decode(r io.Reader) ([]entity.Order, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return []entity.Order{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, name := range columns {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("orders file header is missing column %q", name)
		}
	}

	orders := []entity.Order{}
	for row := 1; ; row++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &RowError{Row: row, Err: err}
		}

		field := func(name string) string {
			i := index[name]
			if i >= len(record) {
				return ""
			}
			return record[i]
		}

		order, err := parseRow(field)
		if err != nil {
			return nil, &RowError{Row: row, Err: err}
		}
		orders = append(orders, order)
	}
	return orders, nil
}

func parseRow(field func(string) string) (entity.Order, error) {
	var violations []entity.FieldViolation
	parseInt := func(name string) int64 {
		v, err := strconv.ParseInt(strings.TrimSpace(field(name)), 10, 64)
		if err != nil {
			violations = append(violations, entity.FieldViolation{Field: name, Message: "is not an integer"})
		}
		return v
	}

	id := parseInt("id")
	customerID := parseInt("cliente_id")
	itemCount := parseInt("quantidade_itens")
	totalValue, err := strconv.ParseFloat(strings.TrimSpace(field("valor_total")), 64)
	if err != nil {
		violations = append(violations, entity.FieldViolation{Field: "valor_total", Message: "is not a number"})
	}
	if len(violations) > 0 {
		return entity.Order{}, &entity.ValidationError{Violations: violations}
	}

	ts, err := entity.ParseTimestamp(field("data"))
	if err != nil {
		return entity.Order{}, err
	}
	return entity.NewOrder(id, customerID, totalValue, ts, itemCount)
}

func encode(w io.Writer, orders []entity.Order) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, o := range orders {
		record := []string{
			strconv.FormatInt(o.ID, 10),
			strconv.FormatInt(o.CustomerID, 10),
			strconv.FormatFloat(o.TotalValue, 'f', -1, 64),
			entity.FormatTimestamp(o.Timestamp),
			strconv.FormatInt(o.ItemCount, 10),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write order %d: %w", o.ID, err)
		}
	}
	writer.Flush()
	return writer.Error()
}
