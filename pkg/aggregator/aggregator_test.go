package aggregator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ngoyal88/msgproxy/pkg/storage"
)

type fakeStore struct {
	projections []storage.StatsProjection
}

func (f *fakeStore) Add(e *storage.Exchange) error { return nil }

func (f *fakeStore) GetStatsProjections(from, to time.Time) ([]storage.StatsProjection, error) {
	var out []storage.StatsProjection
	for _, p := range f.projections {
		if !p.Timestamp.Before(from) && p.Timestamp.Before(to) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) Ping() error  { return nil }
func (f *fakeStore) Close() error { return nil }

func TestAggregate_HourlyGrouping(t *testing.T) {
	store := &fakeStore{projections: []storage.StatsProjection{
		{Timestamp: time.Date(2026, 1, 1, 10, 5, 0, 0, time.UTC), HasLLM: true, InputTokens: 10, OutputTokens: 20},
		{Timestamp: time.Date(2026, 1, 1, 10, 45, 0, 0, time.UTC), HasLLM: false},
		{Timestamp: time.Date(2026, 1, 1, 11, 0, 0, 0, time.UTC), HasLLM: true, InputTokens: 5, OutputTokens: 7},
	}}

	a := New(store, nil)
	buckets, err := a.Aggregate(context.Background(), Hourly, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, buckets, 2)

	require.Equal(t, time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC), buckets[0].TimeBucket)
	require.Equal(t, 2, buckets[0].RequestCount)
	require.Equal(t, 1, buckets[0].LLMRequestCount)
	require.Equal(t, int64(10), buckets[0].TotalInputTokens)
	require.Equal(t, int64(20), buckets[0].TotalOutputTokens)

	require.Equal(t, time.Date(2026, 1, 1, 11, 0, 0, 0, time.UTC), buckets[1].TimeBucket)
	require.Equal(t, 1, buckets[1].RequestCount)
}

func TestAggregate_DailyGrouping(t *testing.T) {
	store := &fakeStore{projections: []storage.StatsProjection{
		{Timestamp: time.Date(2026, 1, 1, 1, 0, 0, 0, time.UTC)},
		{Timestamp: time.Date(2026, 1, 1, 23, 0, 0, 0, time.UTC)},
		{Timestamp: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)},
	}}

	a := New(store, nil)
	buckets, err := a.Aggregate(context.Background(), Daily, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, buckets, 2)
	require.Equal(t, 2, buckets[0].RequestCount)
	require.Equal(t, 1, buckets[1].RequestCount)
}

func TestAggregate_ExclusiveUpperBound(t *testing.T) {
	to := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	store := &fakeStore{projections: []storage.StatsProjection{
		{Timestamp: to},
	}}

	a := New(store, nil)
	buckets, err := a.Aggregate(context.Background(), Hourly, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), to)
	require.NoError(t, err)
	require.Empty(t, buckets)
}

func TestAggregate_NoGapFilling(t *testing.T) {
	store := &fakeStore{projections: []storage.StatsProjection{
		{Timestamp: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
		{Timestamp: time.Date(2026, 1, 1, 5, 0, 0, 0, time.UTC)},
	}}

	a := New(store, nil)
	buckets, err := a.Aggregate(context.Background(), Hourly, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, buckets, 2)
}
