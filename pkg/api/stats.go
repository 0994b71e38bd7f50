// Package api exposes the read-only analytics endpoints over the
// aggregator: GET /api/stats/hourly and GET /api/stats/daily.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ngoyal88/msgproxy/pkg/aggregator"
)

const defaultLookback = 7 * 24 * time.Hour

// Handler serves the analytics routes. Register it ahead of the proxy
// forwarder so the host matches these paths first.
type Handler struct {
	agg *aggregator.Aggregator
}

// New builds a Handler over agg.
func New(agg *aggregator.Aggregator) *Handler {
	return &Handler{agg: agg}
}

// Register attaches the analytics routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/stats/hourly", h.serve(aggregator.Hourly))
	mux.HandleFunc("/api/stats/daily", h.serve(aggregator.Daily))
}

func (h *Handler) serve(granularity aggregator.Granularity) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		to, from, err := parseBounds(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		buckets, err := h.agg.Aggregate(r.Context(), granularity, from, to)
		if err != nil {
			http.Error(w, "failed to compute stats", http.StatusInternalServerError)
			return
		}
		if buckets == nil {
			buckets = []aggregator.Bucket{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(buckets)
	}
}

func parseBounds(r *http.Request) (to, from time.Time, err error) {
	to = time.Now().UTC()
	if v := r.URL.Query().Get("to"); v != "" {
		to, err = time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid to parameter: %s", v)
		}
	}

	from = to.Add(-defaultLookback)
	if v := r.URL.Query().Get("from"); v != "" {
		from, err = time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid from parameter: %s", v)
		}
	}

	return to.UTC(), from.UTC(), nil
}
