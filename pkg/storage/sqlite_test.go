package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	store, err := OpenSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestAdd_ExchangeOnly(t *testing.T) {
	store := openTestStore(t)

	err := store.Add(&Exchange{
		Timestamp:       time.Now(),
		Method:          "GET",
		Path:            "/healthz",
		RequestHeaders:  "{}",
		ResponseStatus:  200,
		ResponseHeaders: "{}",
		DurationMs:      5,
	})
	require.NoError(t, err)
}

func TestAdd_ExchangeWithTokenUsageAtomic(t *testing.T) {
	store := openTestStore(t)
	now := time.Now()

	exchange := &Exchange{
		Timestamp:       now,
		Method:          "POST",
		Path:            "/v1/messages",
		RequestHeaders:  "{}",
		ResponseStatus:  200,
		ResponseHeaders: "{}",
		DurationMs:      42,
		TokenUsage: &TokenUsage{
			Timestamp:    now,
			Model:        "claude-sonnet-4-6",
			HasModel:     true,
			InputTokens:  10,
			OutputTokens: 25,
		},
	}

	require.NoError(t, store.Add(exchange))
	require.NotZero(t, exchange.ID)
	require.Equal(t, exchange.ID, exchange.TokenUsage.ExchangeID)
}

func TestGetStatsProjections_RangeAndExclusiveUpperBound(t *testing.T) {
	store := openTestStore(t)

	t0 := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	t1 := time.Date(2026, 1, 1, 11, 0, 0, 0, time.UTC)

	require.NoError(t, store.Add(&Exchange{
		Timestamp: t0, Method: "GET", Path: "/a", RequestHeaders: "{}",
		ResponseStatus: 200, ResponseHeaders: "{}", DurationMs: 1,
	}))
	require.NoError(t, store.Add(&Exchange{
		Timestamp: t1, Method: "GET", Path: "/b", RequestHeaders: "{}",
		ResponseStatus: 200, ResponseHeaders: "{}", DurationMs: 1,
	}))

	projections, err := store.GetStatsProjections(t0, t1)
	require.NoError(t, err)
	require.Len(t, projections, 1)
	require.True(t, projections[0].Timestamp.Equal(t0))
}

func TestGetStatsProjections_LLMFlagFollowsTokenUsagePresence(t *testing.T) {
	store := openTestStore(t)
	now := time.Now()

	require.NoError(t, store.Add(&Exchange{
		Timestamp: now, Method: "POST", Path: "/v1/messages", RequestHeaders: "{}",
		ResponseStatus: 200, ResponseHeaders: "{}", DurationMs: 1,
		TokenUsage: &TokenUsage{Timestamp: now, InputTokens: 3, OutputTokens: 7},
	}))

	projections, err := store.GetStatsProjections(now.Add(-time.Minute), now.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, projections, 1)
	require.True(t, projections[0].HasLLM)
	require.Equal(t, int64(3), projections[0].InputTokens)
	require.Equal(t, int64(7), projections[0].OutputTokens)
}

func TestPing(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.Ping())
}

func TestGetStatsProjections_SameWholeSecondOrderingIsNumericNotLexical(t *testing.T) {
	store := openTestStore(t)

	// Both timestamps fall in the same whole second; RFC3339Nano would
	// render the first as "...:00Z" (no fractional field) and the second as
	// "...:00.5Z", and "Z" sorts after "." lexically, which would put the
	// whole-second mark after the half-second mark under string comparison.
	whole := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	half := whole.Add(500 * time.Millisecond)
	bound := whole.Add(time.Second)

	require.NoError(t, store.Add(&Exchange{
		Timestamp: whole, Method: "GET", Path: "/whole", RequestHeaders: "{}",
		ResponseStatus: 200, ResponseHeaders: "{}", DurationMs: 1,
	}))
	require.NoError(t, store.Add(&Exchange{
		Timestamp: half, Method: "GET", Path: "/half", RequestHeaders: "{}",
		ResponseStatus: 200, ResponseHeaders: "{}", DurationMs: 1,
	}))

	projections, err := store.GetStatsProjections(whole, bound)
	require.NoError(t, err)
	require.Len(t, projections, 2)
}
