// Package httpclient provides the streaming HTTP client used by the NDJSON and
// SSE transports, with built-in authentication, TLS, an optional cookie jar
// and classified errors.
//
// Subpackages provide incremental body readers:
//
//   - sse: Server-Sent Events reader
//   - ndjson: newline-delimited JSON reader
//
// # Basic Usage
//
//	client, err := httpclient.New(httpclient.Config{
//	    Auth: httpclient.BearerAuth("my-token"),
//	})
//
//	resp, err := client.Stream(ctx, httpclient.Request{
//	    Method: http.MethodGet,
//	    URL:    "https://api.example.com/events",
//	})
//	defer resp.Close()
//
// Failures are *Error values. Cancelling ctx yields an aborted error
// (IsAborted), an expired deadline a timeout error (IsTimeout).
package httpclient
