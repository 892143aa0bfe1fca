package httpclient

import (
	"io"
	"net/http"
	"net/url"
)

// Request describes an outbound streaming HTTP request.
type Request struct {
	// Method is the HTTP method. Defaults to GET.
	Method string
	// URL is the absolute request URL.
	URL string
	// Headers are request-specific headers (merged over client defaults).
	Headers map[string]string
	// Query are URL query parameters, added to any already present in URL.
	Query url.Values
	// Body is the request body. Accepts io.Reader, []byte, string, or any value
	// that will be JSON-encoded.
	Body any
	// Auth overrides the client-level auth for this request.
	Auth *AuthConfig
}

// StreamResponse wraps a streaming HTTP response.
type StreamResponse struct {
	// StatusCode is the HTTP status code.
	StatusCode int
	// Headers are the response headers.
	Headers map[string]string
	// ContentType is the response media type.
	ContentType string
	// Body is the raw streaming body. The caller must Close the response.
	Body io.ReadCloser
}

// Close releases the response body.
func (r *StreamResponse) Close() error {
	if r == nil || r.Body == nil {
		return nil
	}
	return r.Body.Close()
}

// flattenHeaders converts multi-value headers to single-value.
func flattenHeaders(h http.Header) map[string]string {
	result := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) > 0 {
			result[k] = v[0]
		}
	}
	return result
}
