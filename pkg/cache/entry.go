package cache

import (
	"bytes"
	"net/http"
	"strings"
	"time"
)

// Entry is the stored snapshot of a cacheable response.
type Entry struct {
	// Headers are the response headers, one value per canonical name.
	Headers map[string]string `json:"headers"`

	// Body is the captured response body. It must not be modified once stored.
	Body []byte `json:"body"`

	// ContentLength is the body length at capture time.
	ContentLength *int64 `json:"content_length,omitempty"`

	// StatusCode is the HTTP status code of the captured response
	StatusCode int `json:"status_code"`

	// ContentType is the Content-Type of the captured response
	ContentType string `json:"content_type"`

	// Expiry is the lifetime the handler declared for this response
	Expiry time.Duration `json:"expiry"`

	// CachedAt is when the response was captured
	CachedAt time.Time `json:"cached_at"`
}

// excludedHeaders are never copied into an entry. They either describe the
// live connection or must not be replayed to another client.
var excludedHeaders = map[string]struct{}{
	"Content-Length":    {},
	"Date":              {},
	"Transfer-Encoding": {},
	"Connection":        {},
	"Set-Cookie":        {},
}

// NewEntry builds an entry from response headers and a captured body.
// The body is cloned so the entry never aliases a reusable buffer.
func NewEntry(header http.Header, statusCode int, body []byte, expiry time.Duration) *Entry {
	headers := make(map[string]string, len(header))
	for name, values := range header {
		name = http.CanonicalHeaderKey(name)
		if _, skip := excludedHeaders[name]; skip || len(values) == 0 {
			continue
		}
		if _, exists := headers[name]; exists {
			continue
		}
		headers[name] = strings.Join(values, ", ")
	}

	length := int64(len(body))
	return &Entry{
		Headers:       headers,
		Body:          bytes.Clone(body),
		ContentLength: &length,
		StatusCode:    statusCode,
		ContentType:   header.Get("Content-Type"),
		Expiry:        expiry,
		CachedAt:      time.Now(),
	}
}

// Header returns the stored value for name, compared case-insensitively.
func (e *Entry) Header(name string) string {
	if e == nil {
		return ""
	}
	if v, ok := e.Headers[http.CanonicalHeaderKey(name)]; ok {
		return v
	}
	for k, v := range e.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// ETag returns the stored ETag header, if any.
func (e *Entry) ETag() string {
	return e.Header("ETag")
}

// Length returns the body length, preferring the recorded ContentLength.
func (e *Entry) Length() int64 {
	if e.ContentLength != nil {
		return *e.ContentLength
	}
	return int64(len(e.Body))
}
