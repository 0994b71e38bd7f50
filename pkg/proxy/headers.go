package proxy

import (
	"net/http"
	"strings"
)

// requestHopByHop is stripped when building the outgoing upstream request.
// Host and Content-Length are excluded here (rather than treated as
// ordinary headers) because the outgoing client derives both itself: Host
// from the upstream authority, Content-Length from the buffered body.
var requestHopByHop = newHeaderSet(
	"Connection", "Keep-Alive", "Proxy-Authenticate", "Proxy-Authorization",
	"TE", "Trailers", "Transfer-Encoding", "Upgrade", "Proxy-Connection",
	"Host", "Content-Length",
)

// responseHopByHop is stripped when copying the upstream response back to
// the client. Content-Length is stripped so the HTTP server recomputes it
// from what is actually written, since streamed/buffered paths may differ
// from the upstream's own framing.
var responseHopByHop = newHeaderSet(
	"Connection", "Keep-Alive", "Proxy-Authenticate", "Proxy-Authorization",
	"TE", "Trailers", "Transfer-Encoding", "Upgrade", "Proxy-Connection",
	"Content-Length",
)

type headerSet map[string]struct{}

func newHeaderSet(names ...string) headerSet {
	s := make(headerSet, len(names))
	for _, n := range names {
		s[strings.ToLower(n)] = struct{}{}
	}
	return s
}

func (s headerSet) has(name string) bool {
	_, ok := s[strings.ToLower(name)]
	return ok
}

// copyHeaders copies every header in src to dst except those named in
// exclude, matched case-insensitively, preserving multi-valued headers.
func copyHeaders(dst, src http.Header, exclude headerSet) {
	for name, values := range src {
		if exclude.has(name) {
			continue
		}
		for _, v := range values {
			dst.Add(name, v)
		}
	}
}
