// Package headerfmt implements the one recording-header encoding spec.md §3
// calls out: a name→joined-values mapping serialized as JSON text. It is
// observability-only — the wire-forwarding path in pkg/proxy never reads
// through this package, only writes through it — and is shared between the
// forwarder (producer) and the recorder (consumer, to recover Content-Type
// for the token-usage parser's streaming discriminator) so neither package
// has to import the other.
package headerfmt

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"
)

// Encode serializes h as a JSON object mapping each header name to its
// values joined by ", ". Multi-valued headers collapse to one string; order
// among names is alphabetical so the encoding is deterministic for tests and
// diffing, since HTTP header name order carries no semantics once hop-by-hop
// filtering has already happened.
func Encode(h http.Header) string {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)

	joined := make(map[string]string, len(names))
	for _, name := range names {
		joined[name] = strings.Join(h[name], ", ")
	}

	out, err := json.Marshal(joined)
	if err != nil {
		// joined is a map[string]string; Marshal cannot fail on it.
		return "{}"
	}
	return string(out)
}

// Lookup decodes an Encode-produced string and returns the value for name,
// matched case-insensitively as HTTP header names require. It reports
// whether name was present.
func Lookup(encoded, name string) (string, bool) {
	if encoded == "" {
		return "", false
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(encoded), &m); err != nil {
		return "", false
	}
	for k, v := range m {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}
