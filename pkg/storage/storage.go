// Package storage persists proxied Exchanges (and their optional TokenUsage
// child) and serves the range projection the aggregator reads from. It is
// the sole writer of the persistent store.
package storage

import "time"

// Exchange is one recorded (request, response) pair plus timing. TokenUsage
// is attached only when the recorder classified the call as an LLM call
// and the parser returned a result.
type Exchange struct {
	ID              int64
	Timestamp       time.Time
	Method          string
	Path            string
	RequestHeaders  string
	RequestBody     string
	HasRequestBody  bool
	ResponseStatus  int
	ResponseHeaders string
	ResponseBody    string
	HasResponseBody bool
	DurationMs      int64

	TokenUsage *TokenUsage
}

// TokenUsage is at most one per Exchange, enforced by a unique index on
// ExchangeID.
type TokenUsage struct {
	ID                  int64
	ExchangeID          int64
	Timestamp           time.Time
	Model               string
	HasModel            bool
	InputTokens         int64
	OutputTokens        int64
	CacheReadTokens     int64
	CacheCreationTokens int64
}

// StatsProjection is the read-only shape GetStatsProjections returns for
// the aggregator: just enough to bucket and count, never the bodies.
type StatsProjection struct {
	Timestamp    time.Time
	HasLLM       bool
	InputTokens  int64
	OutputTokens int64
}

// Store is the narrow interface service code depends on. Add commits an
// Exchange (and its optional TokenUsage) atomically; GetStatsProjections
// serves the aggregator's range scan. Implementations own their own
// connection pool/transaction management — callers never see an ORM type.
type Store interface {
	Add(exchange *Exchange) error
	GetStatsProjections(from, to time.Time) ([]StatsProjection, error)
	Ping() error
	Close() error
}
