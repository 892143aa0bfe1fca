package transport

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/streamkit/errors"
	"github.com/kbukum/streamkit/httpclient"
	"github.com/kbukum/streamkit/logger"
)

func ndjsonServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newNDJSONTransport(endpoint string, opts Options) Transport {
	return newNDJSON(endpoint, opts, logger.Nop())
}

func TestNDJSON_TwoLines(t *testing.T) {
	srv := ndjsonServer(t, "{\"a\":1}\n{\"b\":2}\n")
	rec := newRecorder()
	connect(t, newNDJSONTransport(srv.URL, Options{}), rec, nil)

	events := rec.waitFor(t, 3)
	if got := kinds(events); !equalStrings(got, []string{"raw", "raw", "complete"}) {
		t.Fatalf("unexpected sequence %v", got)
	}
	if events[0].text() != `{"a":1}` || events[1].text() != `{"b":2}` {
		t.Errorf("unexpected values %s %s", events[0].text(), events[1].text())
	}
}

func TestNDJSON_MalformedLineContinues(t *testing.T) {
	srv := ndjsonServer(t, "{\"a\":1}\nnot-json\n{\"b\":2}\n")
	rec := newRecorder()
	connect(t, newNDJSONTransport(srv.URL, Options{}), rec, nil)

	events := rec.waitFor(t, 4)
	if got := kinds(events); !equalStrings(got, []string{"raw", "error", "raw", "complete"}) {
		t.Fatalf("unexpected sequence %v", got)
	}
	if events[1].err.Kind != errors.KindProtocol {
		t.Errorf("expected protocol error, got %v", events[1].err)
	}
	if events[2].text() != `{"b":2}` {
		t.Errorf("unexpected value after bad line %s", events[2].text())
	}
}

func TestNDJSON_LongLineDoesNotEndStream(t *testing.T) {
	big := strings.Repeat("x", 2<<20)
	srv := ndjsonServer(t, "{\"s\":\""+big+"\"}\n{\"b\":2}\n")
	rec := newRecorder()
	connect(t, newNDJSONTransport(srv.URL, Options{}), rec, nil)

	events := rec.waitFor(t, 3)
	if got := kinds(events); !equalStrings(got, []string{"raw", "raw", "complete"}) {
		t.Fatalf("unexpected sequence %v", got)
	}
	if len(events[0].text()) != len(big)+8 || events[1].text() != `{"b":2}` {
		t.Errorf("unexpected values after long line")
	}
}

func TestNDJSON_TrailingPartialLine(t *testing.T) {
	srv := ndjsonServer(t, "{\"a\":1}\r\n\r\n  {\"b\":2}")
	rec := newRecorder()
	connect(t, newNDJSONTransport(srv.URL, Options{}), rec, nil)

	events := rec.waitFor(t, 3)
	if got := kinds(events); !equalStrings(got, []string{"raw", "raw", "complete"}) {
		t.Fatalf("unexpected sequence %v", got)
	}
	if events[1].text() != `{"b":2}` {
		t.Errorf("expected trailing line to be parsed, got %s", events[1].text())
	}
}

func TestNDJSON_RequestShape(t *testing.T) {
	type seen struct {
		method, contentType, auth, custom string
		query                              map[string][]string
		body                               string
	}
	got := make(chan seen, 2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got <- seen{
			method:      r.Method,
			contentType: r.Header.Get("Content-Type"),
			auth:        r.Header.Get("Authorization"),
			custom:      r.Header.Get("X-Trace"),
			query:       r.URL.Query(),
			body:        string(body),
		}
	}))
	t.Cleanup(srv.Close)

	opts := Options{
		Headers: map[string]string{"X-Trace": "t-1"},
		Query:   map[string]any{"symbol": "BTC", "limit": 0, "skip": nil},
		Auth:    httpclient.BearerAuth("tok"),
	}

	rec := newRecorder()
	connect(t, newNDJSONTransport(srv.URL, opts), rec, nil)
	get := <-got
	if get.method != http.MethodGet || get.contentType != "" || get.body != "" {
		t.Errorf("expected bare GET, got %+v", get)
	}
	if get.auth != "Bearer tok" || get.custom != "t-1" {
		t.Errorf("missing headers %+v", get)
	}
	if get.query["symbol"][0] != "BTC" || get.query["limit"][0] != "0" {
		t.Errorf("unexpected query %v", get.query)
	}
	if _, ok := get.query["skip"]; ok {
		t.Error("nil query values must be skipped")
	}

	rec2 := newRecorder()
	connect(t, newNDJSONTransport(srv.URL, opts), rec2, map[string]string{"q": "prices"})
	post := <-got
	if post.method != http.MethodPost || post.contentType != "application/json" {
		t.Errorf("expected JSON POST, got %+v", post)
	}
	var payload map[string]string
	if err := json.Unmarshal([]byte(post.body), &payload); err != nil || payload["q"] != "prices" {
		t.Errorf("unexpected body %q", post.body)
	}
}

func TestNDJSON_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	rec := newRecorder()
	connect(t, newNDJSONTransport(srv.URL, Options{}), rec, nil)

	events := rec.waitFor(t, 1)
	if events[0].kind != "error" || !errors.IsTransport(events[0].err) {
		t.Fatalf("expected transport error, got %+v", events[0])
	}
	if !httpclient.IsServerError(events[0].err) {
		t.Errorf("expected server error cause, got %v", events[0].err)
	}
	if got := rec.settle(); len(got) != 1 {
		t.Errorf("no completion after a failed request, got %v", kinds(got))
	}
}

func TestNDJSON_NoBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)

	rec := newRecorder()
	connect(t, newNDJSONTransport(srv.URL, Options{}), rec, nil)

	events := rec.waitFor(t, 1)
	if !errors.IsTransport(events[0].err) || !httpclient.IsNoBody(events[0].err) {
		t.Errorf("expected no_body transport error, got %v", events[0].err)
	}
}

func blockingNDJSONServer(t *testing.T, first string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, first)
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNDJSON_Timeout(t *testing.T) {
	srv := blockingNDJSONServer(t, "{\"a\":1}\n")
	rec := newRecorder()
	connect(t, newNDJSONTransport(srv.URL, Options{Timeout: 100 * time.Millisecond}), rec, nil)

	events := rec.waitFor(t, 2)
	if events[0].kind != "raw" {
		t.Fatalf("expected the first line before the timeout, got %v", kinds(events))
	}
	if !errors.IsTransport(events[1].err) || !httpclient.IsTimeout(events[1].err) {
		t.Errorf("expected timeout transport error, got %v", events[1].err)
	}
}

func TestNDJSON_AbortedByContext(t *testing.T) {
	srv := blockingNDJSONServer(t, "{\"a\":1}\n")
	rec := newRecorder()
	tr := newNDJSONTransport(srv.URL, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	if err := tr.Connect(ctx, rec.handlers(), ConnectOptions{}); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	rec.waitFor(t, 1)
	cancel()

	events := rec.waitFor(t, 2)
	if !errors.IsTransport(events[1].err) || !httpclient.IsAborted(events[1].err) {
		t.Errorf("expected aborted transport error, got %v", events[1].err)
	}
	if httpclient.IsConnection(events[1].err) {
		t.Error("an abort must be distinguishable from a connection failure")
	}
}

func TestNDJSON_DisconnectIsSilent(t *testing.T) {
	srv := blockingNDJSONServer(t, "{\"a\":1}\n")
	rec := newRecorder()
	tr := newNDJSONTransport(srv.URL, Options{})
	connect(t, tr, rec, nil)

	rec.waitFor(t, 1)
	if err := tr.Disconnect(); err != nil {
		t.Fatalf("Disconnect failed: %v", err)
	}
	if err := tr.Disconnect(); err != nil {
		t.Fatalf("second Disconnect failed: %v", err)
	}
	if got := rec.settle(); len(got) != 1 {
		t.Errorf("expected no events after Disconnect, got %v", kinds(got))
	}
}

func TestNDJSON_ConnectIsIdempotent(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)

	rec := newRecorder()
	tr := newNDJSONTransport(srv.URL, Options{})
	connect(t, tr, rec, nil)
	if err := tr.Connect(context.Background(), rec.handlers(), ConnectOptions{}); err != nil {
		t.Fatalf("second Connect failed: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	if n := requests.Load(); n != 1 {
		t.Errorf("expected one request, got %d", n)
	}
}

func TestNDJSON_SyncErrors(t *testing.T) {
	tr := newNDJSONTransport("http://localhost", Options{TLS: &httpclient.TLSConfig{CertFile: "only-cert.pem"}})
	if err := tr.Connect(context.Background(), Handlers{}, ConnectOptions{}); !errors.IsInternal(err) {
		t.Errorf("expected internal error for bad TLS options, got %v", err)
	}

	tr = newNDJSONTransport("http://localhost", Options{})
	err := tr.Connect(context.Background(), Handlers{}, ConnectOptions{Payload: make(chan int)})
	if !errors.IsInternal(err) {
		t.Errorf("expected internal error for unencodable payload, got %v", err)
	}
}
