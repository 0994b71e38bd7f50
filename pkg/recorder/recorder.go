// Package recorder implements the exchange-recording contract: parse token
// usage when applicable, persist the Exchange atomically, and never let a
// persist failure or a panic escape to the forwarder.
package recorder

import (
	"log"

	"github.com/sony/gobreaker"
	"github.com/sourcegraph/conc/pool"

	"github.com/ngoyal88/msgproxy/pkg/cost"
	"github.com/ngoyal88/msgproxy/pkg/headerfmt"
	"github.com/ngoyal88/msgproxy/pkg/metrics"
	"github.com/ngoyal88/msgproxy/pkg/storage"
	"github.com/ngoyal88/msgproxy/pkg/tokenusage"
)

// Recorder owns the storage handle and fronts it with a circuit breaker and
// an unbounded background pool, so a string of persist failures degrades to
// fast, logged ERR_PERSIST outcomes instead of piling up slow writes, and a
// panic inside RecordCore is recovered rather than crashing the process.
type Recorder struct {
	store   storage.Store
	pool    *pool.Pool
	breaker *gobreaker.CircuitBreaker
}

// New wraps store behind a Recorder. breakerName is only the circuit
// breaker's name; state transitions are not logged.
func New(store storage.Store, breakerName string) *Recorder {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: breakerName,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &Recorder{
		store:   store,
		pool:    pool.New(),
		breaker: breaker,
	}
}

// Record submits exchange for background recording and returns immediately;
// the forwarder never blocks on storage. Call Wait during shutdown to drain
// in-flight writes.
func (r *Recorder) Record(exchange *storage.Exchange) {
	r.pool.Go(func() {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("[RECORDER] recovered panic recording %s %s: %v", exchange.Method, exchange.Path, rec)
			}
		}()
		r.RecordCore(exchange)
	})
}

// Wait blocks until every submitted Record call has completed. Used during
// graceful shutdown so a trailing write is not dropped.
func (r *Recorder) Wait() {
	r.pool.Wait()
}

// RecordCore performs the parse-then-persist sequence synchronously; tests
// call it directly to observe outcomes without racing a goroutine.
func (r *Recorder) RecordCore(exchange *storage.Exchange) {
	if tokenusage.IsAnthropicMessagesCall(exchange.Path, exchange.Method) {
		contentType, _ := headerfmt.Lookup(exchange.ResponseHeaders, "Content-Type")
		streaming := tokenusage.IsStreaming(contentType)

		if usage := tokenusage.Parse(exchange.ResponseBody, streaming); usage != nil {
			exchange.TokenUsage = &storage.TokenUsage{
				Timestamp:           exchange.Timestamp,
				Model:               usage.Model,
				HasModel:            usage.Model != "",
				InputTokens:         int64(usage.InputTokens),
				OutputTokens:        int64(usage.OutputTokens),
				CacheReadTokens:     int64(usage.CacheReadTokens),
				CacheCreationTokens: int64(usage.CacheCreationTokens),
			}
			metrics.TokenHistogram.WithLabelValues("input").Observe(float64(usage.InputTokens))
			metrics.TokenHistogram.WithLabelValues("output").Observe(float64(usage.OutputTokens))

			estimate := cost.EstimateFromUsage(usage.Model, *usage)
			metrics.CostEstimateUSD.Observe(estimate.TotalUSD)
		} else {
			metrics.ParseFailures.Inc()
			sane := cost.SanityCheckTokens("", exchange.RequestBody)
			log.Printf("[RECORDER] ERR_PARSE_BODY: LLM call %s %s yielded no token usage (tiktoken sanity check: ~%d tokens in request body)", exchange.Method, exchange.Path, sane)
		}
	}

	_, err := r.breaker.Execute(func() (any, error) {
		return nil, r.store.Add(exchange)
	})
	if err != nil {
		metrics.PersistFailures.Inc()
		log.Printf("[RECORDER] persist failed for %s %s: %v", exchange.Method, exchange.Path, err)
		return
	}
	metrics.ExchangesRecorded.Inc()
}
