package cache

import (
	"bytes"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
)

// maxFormBytes caps how much of a form-encoded body is read for key generation.
const maxFormBytes = 10 << 20

// KeyGenerator derives a cache key from a request.
// An empty key disables caching for that request.
type KeyGenerator interface {
	Key(r *http.Request) string
}

// KeyFunc adapts an ordinary function to a KeyGenerator.
type KeyFunc func(r *http.Request) string

// Key calls f(r).
func (f KeyFunc) Key(r *http.Request) string {
	return f(r)
}

// DefaultKeyGenerator builds an absolute-URL-shaped key:
//
//	scheme://host[:port][path]?k1=v1&k2=v2
//
// Query parameters come first in the order they appear, then form fields
// (application/x-www-form-urlencoded only) overwrite or extend them, then the
// Accept header is appended as Accept=<value>. Parameter order is significant:
// two requests differing only in query order produce different keys. Names
// and values are query-escaped, and repeated query values are joined with a
// literal comma.
//
// Example:
//
//	http://example.com:8080/greet/alice?lang=en&Accept=text%2Fplain
type DefaultKeyGenerator struct{}

// Key implements KeyGenerator.
func (DefaultKeyGenerator) Key(r *http.Request) string {
	if r == nil {
		return ""
	}

	params := newOrderedParams()

	// Step 1: query parameters, as encountered
	for _, pair := range splitQuery(requestRawQuery(r)) {
		params.merge(pair[0], pair[1])
	}

	// Step 2: form fields, last writer wins
	if isFormEncoded(r) {
		for _, pair := range readForm(r) {
			params.set(pair[0], pair[1])
		}
	}

	// Step 3: Accept header
	if accept := r.Header.Get("Accept"); accept != "" {
		params.set("Accept", accept)
	}

	var b strings.Builder
	b.WriteString(requestScheme(r))
	b.WriteString("://")
	host, port := splitHostPort(requestHost(r))
	b.WriteString(host)
	if port != "" {
		b.WriteString(":")
		b.WriteString(port)
	}
	if path := requestPath(r); path != "/" {
		b.WriteString(path)
	}
	if params.len() > 0 {
		b.WriteString("?")
		b.WriteString(params.encode())
	}
	return b.String()
}

// orderedParams is an insertion-ordered string map. Names and values are
// stored query-escaped.
type orderedParams struct {
	names  []string
	values map[string]string
}

func newOrderedParams() *orderedParams {
	return &orderedParams{values: make(map[string]string)}
}

func (p *orderedParams) len() int {
	return len(p.names)
}

// set overwrites the value for name, keeping its original position.
func (p *orderedParams) set(name, value string) {
	name, value = url.QueryEscape(name), url.QueryEscape(value)
	if _, ok := p.values[name]; !ok {
		p.names = append(p.names, name)
	}
	p.values[name] = value
}

// merge appends value to an existing name, comma separated.
func (p *orderedParams) merge(name, value string) {
	escaped := url.QueryEscape(name)
	if existing, ok := p.values[escaped]; ok {
		p.values[escaped] = existing + "," + url.QueryEscape(value)
		return
	}
	p.set(name, value)
}

func (p *orderedParams) encode() string {
	parts := make([]string, len(p.names))
	for i, name := range p.names {
		parts[i] = name + "=" + p.values[name]
	}
	return strings.Join(parts, "&")
}

// orderedForm keeps form fields in body order.
type orderedForm [][2]string

// splitQuery decodes a raw query string preserving parameter order.
func splitQuery(raw string) orderedForm {
	var out orderedForm
	for raw != "" {
		var pair string
		pair, raw, _ = strings.Cut(raw, "&")
		if pair == "" {
			continue
		}
		name, value, _ := strings.Cut(pair, "=")
		name = unescape(name)
		if name == "" {
			continue
		}
		out = append(out, [2]string{name, unescape(value)})
	}
	return out
}

func unescape(s string) string {
	if u, err := url.QueryUnescape(s); err == nil {
		return u
	}
	return s
}

func isFormEncoded(r *http.Request) bool {
	if r.Body == nil || r.Body == http.NoBody {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/x-www-form-urlencoded"
}

// readForm reads the form body and restores it for the handler.
func readForm(r *http.Request) orderedForm {
	rest := r.Body
	body, err := io.ReadAll(io.LimitReader(rest, maxFormBytes))
	r.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(body), rest), rest}
	if err != nil {
		return nil
	}
	return splitQuery(string(body))
}

func requestRawQuery(r *http.Request) string {
	if r.URL == nil {
		return ""
	}
	return r.URL.RawQuery
}

func requestPath(r *http.Request) string {
	if r.URL == nil {
		return ""
	}
	return r.URL.Path
}

func requestScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if r.URL != nil && r.URL.Scheme != "" {
		return strings.ToLower(r.URL.Scheme)
	}
	return "http"
}

func requestHost(r *http.Request) string {
	if r.Host != "" {
		return r.Host
	}
	if r.URL != nil {
		return r.URL.Host
	}
	return ""
}

// splitHostPort separates an optional port and brackets IPv6 literals.
func splitHostPort(hostport string) (string, string) {
	host, port, err := net.SplitHostPort(hostport)
	if err != nil {
		host, port = strings.Trim(hostport, "[]"), ""
	}
	if ip := net.ParseIP(host); ip != nil && ip.To4() == nil {
		host = "[" + ip.String() + "]"
	}
	return host, port
}
