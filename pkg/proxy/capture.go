package proxy

import "bytes"

// capture is the in-memory accumulator §4.1 step 5 describes: every chunk
// written to the client is also appended here, unbounded, so step 6 can
// decode the whole body before the truncation rule (applied on the decoded
// text, see truncate.go) ever runs.
type capture struct {
	buf bytes.Buffer
}

func newCapture() *capture {
	return &capture{}
}

func (c *capture) Write(p []byte) (int, error) {
	return c.buf.Write(p)
}

func (c *capture) Bytes() []byte {
	return c.buf.Bytes()
}

func (c *capture) Len() int {
	return c.buf.Len()
}
