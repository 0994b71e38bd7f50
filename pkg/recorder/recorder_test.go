package recorder

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ngoyal88/msgproxy/pkg/headerfmt"
	"github.com/ngoyal88/msgproxy/pkg/storage"
)

type fakeStore struct {
	mu    sync.Mutex
	added []*storage.Exchange
	err   error
}

func (f *fakeStore) Add(e *storage.Exchange) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.added = append(f.added, e)
	return nil
}

func (f *fakeStore) GetStatsProjections(from, to time.Time) ([]storage.StatsProjection, error) {
	return nil, nil
}

func (f *fakeStore) Ping() error  { return nil }
func (f *fakeStore) Close() error { return nil }

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.added)
}

func TestRecordCore_AttachesTokenUsageForLLMCall(t *testing.T) {
	store := &fakeStore{}
	r := New(store, "test")

	headers := headerfmt.Encode(headersOf("Content-Type", "application/json"))
	exchange := &storage.Exchange{
		Method:          "POST",
		Path:            "/v1/messages",
		ResponseHeaders: headers,
		ResponseBody:    `{"model":"claude-sonnet-4-6","usage":{"input_tokens":10,"output_tokens":5}}`,
		Timestamp:       time.Now(),
	}

	r.RecordCore(exchange)

	require.Equal(t, 1, store.count())
	require.NotNil(t, exchange.TokenUsage)
	require.Equal(t, int64(10), exchange.TokenUsage.InputTokens)
}

func TestRecordCore_NonLLMCallHasNoTokenUsage(t *testing.T) {
	store := &fakeStore{}
	r := New(store, "test")

	exchange := &storage.Exchange{Method: "GET", Path: "/health", Timestamp: time.Now()}
	r.RecordCore(exchange)

	require.Equal(t, 1, store.count())
	require.Nil(t, exchange.TokenUsage)
}

func TestRecordCore_ParseFailureStillPersists(t *testing.T) {
	store := &fakeStore{}
	r := New(store, "test")

	exchange := &storage.Exchange{
		Method:       "POST",
		Path:         "/v1/messages",
		ResponseBody: "not json",
		Timestamp:    time.Now(),
	}
	r.RecordCore(exchange)

	require.Equal(t, 1, store.count())
	require.Nil(t, exchange.TokenUsage)
}

func TestRecordCore_PersistFailureIsSwallowed(t *testing.T) {
	store := &fakeStore{err: errors.New("disk full")}
	r := New(store, "test")

	exchange := &storage.Exchange{Method: "GET", Path: "/health", Timestamp: time.Now()}
	require.NotPanics(t, func() { r.RecordCore(exchange) })
}

func TestRecord_BackgroundDispatchDrainsOnWait(t *testing.T) {
	store := &fakeStore{}
	r := New(store, "test")

	for i := 0; i < 5; i++ {
		r.Record(&storage.Exchange{Method: "GET", Path: "/health", Timestamp: time.Now()})
	}
	r.Wait()

	require.Equal(t, 5, store.count())
}

func headersOf(kv ...string) map[string][]string {
	h := map[string][]string{}
	for i := 0; i < len(kv); i += 2 {
		h[kv[i]] = []string{kv[i+1]}
	}
	return h
}
