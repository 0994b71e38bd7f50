// Package proxy implements the terminal reverse-proxy handler: the
// six-step buffer/build/dispatch/copy/stream/record pipeline for every
// path not claimed by the analytics API.
package proxy

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	kgzip "github.com/klauspost/compress/gzip"

	"github.com/ngoyal88/msgproxy/pkg/headerfmt"
	"github.com/ngoyal88/msgproxy/pkg/metrics"
	"github.com/ngoyal88/msgproxy/pkg/recorder"
	"github.com/ngoyal88/msgproxy/pkg/storage"
)

const streamChunkSize = 8 * 1024

// Forwarder is the terminal http.Handler proxying every request to a
// single upstream and handing the completed Exchange to the Recorder.
type Forwarder struct {
	client             *http.Client
	upstreamBaseURL    string
	maxStoredBodyBytes int
	recorder           *recorder.Recorder
}

// NewForwarder builds a Forwarder against upstreamBaseURL (trailing slash
// trimmed once here). client is the process-wide shared *http.Client with
// redirect-following and transport-level auto-decompression both disabled.
func NewForwarder(client *http.Client, upstreamBaseURL string, maxStoredBodyBytes int, rec *recorder.Recorder) *Forwarder {
	return &Forwarder{
		client:             client,
		upstreamBaseURL:    strings.TrimRight(upstreamBaseURL, "/"),
		maxStoredBodyBytes: maxStoredBodyBytes,
		recorder:           rec,
	}
}

func (f *Forwarder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Step 1: buffer request body, capture headers, start the clock.
	arrival := time.Now().UTC()
	start := time.Now()

	reqBody, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Bad Gateway: could not read request body.", http.StatusBadGateway)
		return
	}
	requestHeaders := headerfmt.Encode(r.Header)

	// Step 2: build the upstream request.
	targetURL := f.upstreamBaseURL + r.URL.Path
	if r.URL.RawQuery != "" {
		targetURL += "?" + r.URL.RawQuery
	}

	var bodyReader io.Reader
	if len(reqBody) > 0 {
		bodyReader = bytes.NewReader(reqBody)
	}

	upReq, err := http.NewRequestWithContext(r.Context(), r.Method, targetURL, bodyReader)
	if err != nil {
		http.Error(w, "Bad Gateway: could not build upstream request.", http.StatusBadGateway)
		return
	}
	copyHeaders(upReq.Header, r.Header, requestHopByHop)
	if ct := r.Header.Get("Content-Type"); ct != "" {
		upReq.Header.Set("Content-Type", ct)
	}

	// Step 3: dispatch, with streaming response-header completion.
	upResp, err := f.client.Do(upReq)
	if err != nil {
		f.handleDispatchError(w, r, err, start)
		return
	}
	defer upResp.Body.Close()

	// Step 4: copy response status and headers.
	copyHeaders(w.Header(), upResp.Header, responseHopByHop)
	responseHeaders := headerfmt.Encode(w.Header())
	if id := RequestID(r.Context()); id != "" {
		w.Header().Set("X-Relay-Request-Id", id)
	}
	w.WriteHeader(upResp.StatusCode)

	contentType := upResp.Header.Get("Content-Type")
	streaming := strings.Contains(strings.ToLower(mediaType(contentType)), "text/event-stream")

	respCapture := newCapture()

	var copyErr error
	if streaming {
		copyErr = f.streamBody(w, upResp.Body, respCapture)
	} else {
		copyErr = f.bufferBody(w, upResp.Body, respCapture)
	}

	if r.Context().Err() != nil || errors.Is(copyErr, context.Canceled) {
		// Client disconnected mid-body: silent, no record.
		return
	}

	// Step 6: record.
	duration := time.Since(start)
	metrics.RequestDuration.WithLabelValues("ok").Observe(duration.Seconds())

	requestText := decodeBody(reqBody, r.Header.Get("Content-Encoding"))
	responseText := decodeBody(respCapture.Bytes(), upResp.Header.Get("Content-Encoding"))

	exchange := &storage.Exchange{
		Timestamp:       arrival,
		Method:          r.Method,
		Path:            pathAndQuery(r),
		RequestHeaders:  requestHeaders,
		RequestBody:     truncateWithTrailer(requestText, f.maxStoredBodyBytes),
		HasRequestBody:  len(reqBody) > 0,
		ResponseStatus:  upResp.StatusCode,
		ResponseHeaders: responseHeaders,
		ResponseBody:    truncateWithTrailer(responseText, f.maxStoredBodyBytes),
		HasResponseBody: respCapture.Len() > 0,
		DurationMs:      duration.Milliseconds(),
	}
	f.recorder.Record(exchange)
}

func (f *Forwarder) handleDispatchError(w http.ResponseWriter, r *http.Request, err error, start time.Time) {
	if r.Context().Err() != nil {
		// Client cancelled before headers arrived: abandon silently.
		return
	}

	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		metrics.UpstreamErrors.WithLabelValues("timeout").Inc()
		metrics.RequestDuration.WithLabelValues("timeout").Observe(time.Since(start).Seconds())
		http.Error(w, "Gateway Timeout: upstream did not respond in time.", http.StatusGatewayTimeout)
		return
	}

	metrics.UpstreamErrors.WithLabelValues("transport").Inc()
	metrics.RequestDuration.WithLabelValues("transport_error").Observe(time.Since(start).Seconds())
	http.Error(w, "Bad Gateway: could not connect to upstream.", http.StatusBadGateway)
}

func (f *Forwarder) streamBody(w http.ResponseWriter, body io.Reader, capture *capture) error {
	flusher, _ := w.(http.Flusher)
	buf := make([]byte, streamChunkSize)

	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			if _, err := w.Write(chunk); err != nil {
				return err
			}
			if flusher != nil {
				flusher.Flush()
			}
			capture.Write(chunk)
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return nil
			}
			return readErr
		}
	}
}

func (f *Forwarder) bufferBody(w http.ResponseWriter, body io.Reader, capture *capture) error {
	tee := io.TeeReader(body, capture)
	_, err := io.Copy(w, tee)
	return err
}

func pathAndQuery(r *http.Request) string {
	if r.URL.RawQuery == "" {
		return r.URL.Path
	}
	return r.URL.Path + "?" + r.URL.RawQuery
}

func mediaType(contentType string) string {
	if idx := strings.IndexByte(contentType, ';'); idx >= 0 {
		return strings.TrimSpace(contentType[:idx])
	}
	return strings.TrimSpace(contentType)
}

// decodeBody returns body as UTF-8 text, applying gzip decompression first
// when contentEncoding names gzip. This is the storage-path decode only:
// the wire-forwarding path above never touches these bytes.
func decodeBody(body []byte, contentEncoding string) string {
	if !strings.Contains(strings.ToLower(contentEncoding), "gzip") {
		return string(body)
	}
	zr, err := kgzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return string(body)
	}
	defer zr.Close()
	decoded, err := io.ReadAll(zr)
	if err != nil {
		return string(body)
	}
	return string(decoded)
}
