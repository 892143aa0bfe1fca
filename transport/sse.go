package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/kbukum/streamkit/errors"
	"github.com/kbukum/streamkit/httpclient"
	"github.com/kbukum/streamkit/httpclient/sse"
	"github.com/kbukum/streamkit/logger"
)

const eventStreamType = "text/event-stream"

// sseTransport follows a Server-Sent Events endpoint. When the server ends
// the response cleanly it reconnects after the retry delay, sending the last
// event id. It never completes on its own.
type sseTransport struct {
	endpoint string
	opts     Options
	sse      SSEOptions
	log      *logger.Logger

	mu   sync.Mutex
	sess *session
}

func newSSE(endpoint string, opts Options, sseOpts SSEOptions, log *logger.Logger) *sseTransport {
	if sseOpts.Retry <= 0 {
		sseOpts.Retry = DefaultSSEOptions().Retry
	}
	return &sseTransport{endpoint: endpoint, opts: opts, sse: sseOpts, log: log}
}

func (t *sseTransport) Connect(ctx context.Context, h Handlers, _ ConnectOptions) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sess != nil {
		return nil
	}

	client, err := httpclient.New(httpclient.Config{
		DialTimeout: t.opts.Timeout,
		Auth:        t.opts.Auth,
		TLS:         t.opts.TLS,
		Cookies:     t.sse.WithCredentials,
	})
	if err != nil {
		return errors.Internal("invalid transport options", err)
	}

	sess := newSession(ctx, h)
	t.sess = sess
	go t.run(sess, client)
	return nil
}

func (t *sseTransport) run(sess *session, client *httpclient.Client) {
	defer t.release(sess)

	retry := t.sse.Retry
	lastEventID := ""
	for attempt := 1; ; attempt++ {
		id, serverRetry, err := t.stream(sess, client, lastEventID)
		if id != "" {
			lastEventID = id
		}
		if serverRetry > 0 {
			retry = serverRetry
		}
		if err != nil {
			sess.emitError(err)
			return
		}

		t.log.Debug("sse stream ended, reconnecting", logger.Fields(logger.FieldAttempt, attempt, "retry", retry.String()))
		timer := time.NewTimer(retry)
		select {
		case <-sess.ctx.Done():
			timer.Stop()
			sess.emitError(errors.Transport("sse connection aborted", httpclient.NewAbortedError(sess.ctx.Err())))
			return
		case <-timer.C:
		}
	}
}

// stream reads one response. A nil error means the server ended it cleanly.
func (t *sseTransport) stream(sess *session, client *httpclient.Client, lastEventID string) (string, time.Duration, *errors.Error) {
	headers := make(map[string]string, len(t.opts.Headers)+3)
	for k, v := range t.opts.Headers {
		headers[k] = v
	}
	headers["Accept"] = eventStreamType
	headers["Cache-Control"] = "no-cache"
	if lastEventID != "" {
		headers["Last-Event-ID"] = lastEventID
	}

	resp, err := client.Stream(sess.ctx, httpclient.Request{
		Method:  http.MethodGet,
		URL:     t.endpoint,
		Headers: headers,
		Query:   EncodeQuery(t.opts.Query),
	})
	if err != nil {
		return "", 0, errors.Transport("sse connection failed", err)
	}
	if resp.ContentType != eventStreamType {
		_ = resp.Close()
		return "", 0, errors.Transport(fmt.Sprintf("sse: unexpected content type %q", resp.ContentType), nil)
	}

	reader := sse.NewReader(resp.Body)
	defer reader.Close()

	for {
		ev, err := reader.Next()
		if err == io.EOF {
			return reader.LastEventID(), reader.Retry(), nil
		}
		if err != nil {
			return reader.LastEventID(), reader.Retry(),
				errors.Transport("sse read failed", httpclient.ClassifyContextError(sess.ctx, err))
		}
		if !t.accepts(ev.Type()) {
			continue
		}
		var raw json.RawMessage
		if err := json.Unmarshal([]byte(ev.Data), &raw); err != nil {
			sess.emitError(errors.Protocol("invalid JSON event data", err))
			continue
		}
		sess.emitRaw(raw)
	}
}

func (t *sseTransport) accepts(eventType string) bool {
	if eventType == "message" {
		return true
	}
	for _, e := range t.sse.Events {
		if e == eventType {
			return true
		}
	}
	return false
}

func (t *sseTransport) release(sess *session) {
	t.mu.Lock()
	if t.sess == sess {
		t.sess = nil
	}
	t.mu.Unlock()
	sess.cancel()
}

func (t *sseTransport) Disconnect() error {
	t.mu.Lock()
	sess := t.sess
	t.sess = nil
	t.mu.Unlock()

	if sess != nil {
		sess.halt()
		t.log.Debug("sse disconnected")
	}
	return nil
}
