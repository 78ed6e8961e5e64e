package cache

import (
	"bytes"
	"net/http"
	"sync"
)

// capturePool reuses capture buffers across requests. release resets every
// field so a pooled capture never retains a writer or body.
var capturePool = sync.Pool{
	New: func() any { return &responseCapture{buf: new(bytes.Buffer)} },
}

// responseCapture buffers status and body while the handler runs. Headers go
// straight to the underlying writer's header map, which is not sent until
// flush calls WriteHeader.
type responseCapture struct {
	http.ResponseWriter
	buf         *bytes.Buffer
	status      int
	wroteHeader bool
}

// acquireCapture wraps w. The caller must defer release.
func acquireCapture(w http.ResponseWriter) *responseCapture {
	c := capturePool.Get().(*responseCapture)
	c.ResponseWriter = w
	c.status = http.StatusOK
	c.wroteHeader = false
	c.buf.Reset()
	return c
}

// release detaches the underlying writer and returns the capture to the pool.
// Anything not flushed by then is discarded.
func (c *responseCapture) release() {
	c.ResponseWriter = nil
	c.buf.Reset()
	capturePool.Put(c)
}

func (c *responseCapture) WriteHeader(code int) {
	if c.wroteHeader {
		return
	}
	c.status = code
	c.wroteHeader = true
}

func (c *responseCapture) Write(b []byte) (int, error) {
	if !c.wroteHeader {
		c.WriteHeader(http.StatusOK)
	}
	return c.buf.Write(b)
}

// Flush is a no-op: nothing reaches the client before flush sends the
// finished response. The capture has no Unwrap method, so
// http.ResponseController cannot reach the underlying writer either.
func (c *responseCapture) Flush() {}

// FlushError is the http.ResponseController form of Flush.
func (c *responseCapture) FlushError() error {
	return nil
}

// Status returns the buffered status code, 200 when none was written.
func (c *responseCapture) Status() int {
	return c.status
}

// Bytes returns the buffered body. The slice is only valid until release.
func (c *responseCapture) Bytes() []byte {
	return c.buf.Bytes()
}

// flush sends the buffered status and body to the underlying writer.
func (c *responseCapture) flush() error {
	c.ResponseWriter.WriteHeader(c.status)
	if c.buf.Len() == 0 {
		return nil
	}
	_, err := c.ResponseWriter.Write(c.buf.Bytes())
	return err
}
