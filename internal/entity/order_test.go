package entity

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOrder(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		totalValue float64
		itemCount  int64
		timestamp  time.Time
		wantFields []string
	}{
		{name: "valid", totalValue: 99.5, itemCount: 2, timestamp: ts},
		{name: "zero value", totalValue: 0, itemCount: 2, timestamp: ts, wantFields: []string{"valor_total"}},
		{name: "negative value", totalValue: -1, itemCount: 2, timestamp: ts, wantFields: []string{"valor_total"}},
		{name: "NaN value", totalValue: math.NaN(), itemCount: 2, timestamp: ts, wantFields: []string{"valor_total"}},
		{name: "zero count", totalValue: 10, itemCount: 0, timestamp: ts, wantFields: []string{"quantidade_itens"}},
		{name: "earliest representable date", totalValue: 10, itemCount: 1, timestamp: time.Time{}},
		{name: "value and count wrong", totalValue: 0, itemCount: -3, wantFields: []string{"valor_total", "quantidade_itens"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order, err := NewOrder(1, 10, tt.totalValue, tt.timestamp, tt.itemCount)
			if len(tt.wantFields) == 0 {
				require.NoError(t, err)
				assert.Equal(t, int64(1), order.ID)
				assert.Equal(t, int64(10), order.CustomerID)
				return
			}

			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "expected *ValidationError, got %v", err)
			fields := verr.Fields()
			assert.Len(t, fields, len(tt.wantFields))
			for _, f := range tt.wantFields {
				assert.Contains(t, fields, f)
			}
			assert.Equal(t, Order{}, order)
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Time
	}{
		{raw: "2024-01-01T00:00:00", want: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{raw: "2024-01-01T10:30:00.123456", want: time.Date(2024, 1, 1, 10, 30, 0, 123456000, time.UTC)},
		{raw: "2024-01-01 10:30:00", want: time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC)},
		{raw: "2024-01-01T10:30:00Z", want: time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC)},
		{raw: "2024-01-01T10:30:00+03:00", want: time.Date(2024, 1, 1, 7, 30, 0, 0, time.UTC)},
		{raw: "2024-01-01", want: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{raw: "2024-01-01T10", want: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)},
		{raw: "2024-01-01 10:00", want: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)},
		{raw: "2024-01-01T10:00:00+0000", want: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)},
		{raw: "2024-01-01T10:00-0130", want: time.Date(2024, 1, 1, 11, 30, 0, 0, time.UTC)},
		{raw: "2024-01-01T10:00:00+03", want: time.Date(2024, 1, 1, 7, 0, 0, 0, time.UTC)},
		{raw: "2024-01-01 10:30:00.5+03:00", want: time.Date(2024, 1, 1, 7, 30, 0, 500000000, time.UTC)},
		{raw: "0001-01-01T00:00:00", want: time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseTimestamp(tt.raw)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestParseTimestampRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "yesterday", "2024-13-01T00:00:00", "01/02/2024"} {
		_, err := ParseTimestamp(raw)
		var verr *ValidationError
		assert.True(t, errors.As(err, &verr), "input %q: expected validation error, got %v", raw, err)
	}
}

func TestFormatTimestampRoundTrip(t *testing.T) {
	zone := time.FixedZone("", -3*60*60)
	for _, ts := range []time.Time{
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 5, 17, 13, 45, 9, 500000000, zone),
	} {
		parsed, err := ParseTimestamp(FormatTimestamp(ts))
		require.NoError(t, err)
		assert.True(t, ts.Equal(parsed))
	}
}
