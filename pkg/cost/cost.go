// Package cost produces best-effort USD estimates and a tiktoken-based
// sanity check, for logging and Prometheus histograms only. Nothing it
// computes is ever written into a TokenUsage row.
package cost

import (
	"github.com/pkoukk/tiktoken-go"

	"github.com/ngoyal88/msgproxy/pkg/tokenusage"
)

// Estimate is a rough per-exchange USD cost split by direction.
type Estimate struct {
	InputCostUSD  float64
	OutputCostUSD float64
	TotalUSD      float64
}

// pricePer1kTokens is a small static per-model price table, input/output
// USD per 1k tokens. Unknown models fall back to the Sonnet rate.
var pricePer1kTokens = map[string][2]float64{
	"claude-opus-4-6":   {0.015, 0.075},
	"claude-sonnet-4-6": {0.003, 0.015},
	"claude-haiku-4-6":  {0.0008, 0.004},
}

const fallbackModel = "claude-sonnet-4-6"

// EstimateFromUsage turns a parsed Usage into a rough USD estimate.
func EstimateFromUsage(model string, u tokenusage.Usage) Estimate {
	rates, ok := pricePer1kTokens[model]
	if !ok {
		rates = pricePer1kTokens[fallbackModel]
	}

	in := (float64(u.InputTokens) / 1000.0) * rates[0]
	out := (float64(u.OutputTokens) / 1000.0) * rates[1]
	return Estimate{InputCostUSD: in, OutputCostUSD: out, TotalUSD: in + out}
}

// SanityCheckTokens runs tiktoken over text independently of the
// Anthropic-reported usage, for the ERR_PARSE_BODY warning log line when a
// call classified as an LLM call yielded no usable usage. It never errors:
// an unrecognized model falls back to cl100k_base.
func SanityCheckTokens(model, text string) int {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return 0
		}
	}
	return len(enc.Encode(text, nil, nil))
}
