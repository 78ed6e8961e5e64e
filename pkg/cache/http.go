package cache

import (
	"crypto/sha1"
	"encoding/base64"
	"net/http"
	"strconv"
)

// Checksum returns a quoted ETag value for body. When acceptEncoding is
// non-empty it is mixed into the hash so differently encoded variants of the
// same resource get distinct validators.
func Checksum(body []byte, acceptEncoding string) string {
	h := sha1.New()
	h.Write(body)
	if acceptEncoding != "" {
		h.Write([]byte(acceptEncoding))
	}
	return `"` + base64.RawURLEncoding.EncodeToString(h.Sum(nil)) + `"`
}

// addETag sets the ETag header unless one is already present or the status
// is not a success.
func addETag(header http.Header, statusCode int, etag string) bool {
	if statusCode > 299 || header.Get("ETag") != "" {
		return false
	}
	header.Set("ETag", etag)
	return true
}

// IsNotModified reports whether the request's If-None-Match validator
// matches the entry's ETag.
func IsNotModified(r *http.Request, entry *Entry) bool {
	if r == nil || entry == nil {
		return false
	}
	inm := r.Header.Get("If-None-Match")
	if inm == "" {
		return false
	}
	return inm == entry.ETag()
}

// writeEntry materializes a stored entry onto w. Headers already present on
// w are left alone. It reports whether a 304 was sent.
func writeEntry(w http.ResponseWriter, r *http.Request, entry *Entry) (bool, error) {
	header := w.Header()
	for name, value := range entry.Headers {
		if _, present := header[http.CanonicalHeaderKey(name)]; present {
			continue
		}
		header.Set(name, value)
	}

	if IsNotModified(r, entry) {
		header.Set("Content-Length", "0")
		w.WriteHeader(http.StatusNotModified)
		return true, nil
	}

	if entry.ContentType != "" {
		header.Set("Content-Type", entry.ContentType)
	}
	header.Set("Content-Length", strconv.FormatInt(entry.Length(), 10))
	w.WriteHeader(entry.StatusCode)
	if len(entry.Body) == 0 {
		return false, nil
	}
	_, err := w.Write(entry.Body)
	return false, err
}
