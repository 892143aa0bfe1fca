package transport

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"sync"

	"github.com/kbukum/streamkit/errors"
	"github.com/kbukum/streamkit/httpclient"
	"github.com/kbukum/streamkit/httpclient/ndjson"
	"github.com/kbukum/streamkit/logger"
)

// ndjsonTransport streams newline-delimited JSON from one HTTP response.
type ndjsonTransport struct {
	endpoint string
	opts     Options
	log      *logger.Logger

	mu   sync.Mutex
	sess *session
}

func newNDJSON(endpoint string, opts Options, log *logger.Logger) *ndjsonTransport {
	return &ndjsonTransport{endpoint: endpoint, opts: opts, log: log}
}

func (t *ndjsonTransport) Connect(ctx context.Context, h Handlers, co ConnectOptions) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sess != nil {
		return nil
	}

	client, err := httpclient.New(httpclient.Config{Auth: t.opts.Auth, TLS: t.opts.TLS})
	if err != nil {
		return errors.Internal("invalid transport options", err)
	}

	req := httpclient.Request{
		Method:  http.MethodGet,
		URL:     t.endpoint,
		Headers: t.opts.Headers,
		Query:   EncodeQuery(t.opts.Query),
	}
	if co.Payload != nil {
		body, err := json.Marshal(co.Payload)
		if err != nil {
			return errors.Internal("encode request payload", err)
		}
		req.Method = http.MethodPost
		req.Body = json.RawMessage(body)
	}

	sess := newSession(ctx, h)
	t.sess = sess
	go t.run(sess, client, req)
	return nil
}

func (t *ndjsonTransport) run(sess *session, client *httpclient.Client, req httpclient.Request) {
	ctx := sess.ctx
	if t.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.opts.Timeout)
		defer cancel()
	}
	defer t.release(sess)

	t.log.Debug("ndjson request", logger.Fields("method", req.Method))
	resp, err := client.Stream(ctx, req)
	if err != nil {
		sess.emitError(errors.Transport("ndjson request failed", err))
		return
	}

	reader := ndjson.NewReader(resp.Body)
	defer reader.Close()

	for {
		doc, err := reader.Next()
		if err == io.EOF {
			break
		}
		var syn *ndjson.SyntaxError
		if stderrors.As(err, &syn) {
			sess.emitError(errors.Protocol("invalid JSON line", syn))
			continue
		}
		if err != nil {
			sess.emitError(errors.Transport("ndjson read failed", httpclient.ClassifyContextError(ctx, err)))
			return
		}
		sess.emitRaw(doc)
	}

	sess.emitComplete()
}

// release forgets sess once its run ends so a later Connect can start over.
func (t *ndjsonTransport) release(sess *session) {
	t.mu.Lock()
	if t.sess == sess {
		t.sess = nil
	}
	t.mu.Unlock()
	sess.cancel()
}

func (t *ndjsonTransport) Disconnect() error {
	t.mu.Lock()
	sess := t.sess
	t.sess = nil
	t.mu.Unlock()

	if sess != nil {
		sess.halt()
		t.log.Debug("ndjson disconnected")
	}
	return nil
}
