// Package aggregator groups stored exchanges into time buckets for the
// analytics API. Grouping happens in process memory over the projections
// the storage layer already decoded; there is no SQL-dialect-specific
// date-truncation involved.
package aggregator

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/ngoyal88/msgproxy/pkg/cache"
	"github.com/ngoyal88/msgproxy/pkg/storage"
)

// Granularity selects the bucket width.
type Granularity int

const (
	Hourly Granularity = iota
	Daily
)

// Bucket is one aggregated time window.
type Bucket struct {
	TimeBucket        time.Time `json:"timeBucket"`
	RequestCount      int       `json:"requestCount"`
	LLMRequestCount   int       `json:"llmRequestCount"`
	TotalInputTokens  int64     `json:"totalInputTokens"`
	TotalOutputTokens int64     `json:"totalOutputTokens"`
}

// Aggregator computes Bucket slices from a Store, optionally accelerated by
// a short-TTL Redis cache keyed on (granularity, from, to). The cache is a
// read-path accelerator only: the proxy itself never touches it, and a
// cache miss or Redis outage falls back transparently to recomputing from
// the store.
type Aggregator struct {
	store storage.Store
	cache *cache.Client
	ttl   time.Duration
}

// New builds an Aggregator. cacheClient may be nil, in which case every
// call recomputes from store.
func New(store storage.Store, cacheClient *cache.Client) *Aggregator {
	return &Aggregator{store: store, cache: cacheClient, ttl: 30 * time.Second}
}

// Aggregate returns Buckets for [from, to) at the given granularity, sorted
// ascending, with no gap-filling for empty buckets.
func (a *Aggregator) Aggregate(ctx context.Context, granularity Granularity, from, to time.Time) ([]Bucket, error) {
	from, to = from.UTC(), to.UTC()

	cacheKey := fmt.Sprintf("relay:stats:%d:%s:%s", granularity, from.Format(time.RFC3339), to.Format(time.RFC3339))
	if a.cache != nil {
		if cached, ok := a.readCache(ctx, cacheKey); ok {
			return cached, nil
		}
	}

	projections, err := a.store.GetStatsProjections(from, to)
	if err != nil {
		return nil, fmt.Errorf("aggregator: get projections: %w", err)
	}

	buckets := group(projections, granularity)

	if a.cache != nil {
		a.writeCache(ctx, cacheKey, buckets)
	}

	return buckets, nil
}

func group(projections []storage.StatsProjection, granularity Granularity) []Bucket {
	byBucket := make(map[time.Time]*Bucket)

	for _, p := range projections {
		key := truncate(p.Timestamp, granularity)
		b, ok := byBucket[key]
		if !ok {
			b = &Bucket{TimeBucket: key}
			byBucket[key] = b
		}
		b.RequestCount++
		if p.HasLLM {
			b.LLMRequestCount++
			b.TotalInputTokens += p.InputTokens
			b.TotalOutputTokens += p.OutputTokens
		}
	}

	out := make([]Bucket, 0, len(byBucket))
	for _, b := range byBucket {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TimeBucket.Before(out[j].TimeBucket) })
	return out
}

func truncate(t time.Time, granularity Granularity) time.Time {
	t = t.UTC()
	if granularity == Daily {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, time.UTC)
}

func (a *Aggregator) readCache(ctx context.Context, key string) ([]Bucket, bool) {
	raw, err := a.cache.Get(ctx, key)
	if err != nil {
		return nil, false
	}
	var buckets []Bucket
	if err := json.Unmarshal(raw, &buckets); err != nil {
		return nil, false
	}
	return buckets, true
}

func (a *Aggregator) writeCache(ctx context.Context, key string, buckets []Bucket) {
	raw, err := json.Marshal(buckets)
	if err != nil {
		return
	}
	_ = a.cache.Set(ctx, key, raw, a.ttl)
}
