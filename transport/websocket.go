package transport

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kbukum/streamkit/errors"
	"github.com/kbukum/streamkit/httpclient"
	"github.com/kbukum/streamkit/logger"
)

const (
	defaultHandshakeTimeout = 45 * time.Second
	closeWriteTimeout       = time.Second
)

// frame is an encoded outgoing WebSocket message.
type frame struct {
	messageType int
	data        []byte
}

// encodeFrame maps strings to text frames, byte slices to binary frames and
// anything else to JSON text frames.
func encodeFrame(data any) (frame, error) {
	switch v := data.(type) {
	case string:
		return frame{websocket.TextMessage, []byte(v)}, nil
	case []byte:
		return frame{websocket.BinaryMessage, v}, nil
	case json.RawMessage:
		return frame{websocket.TextMessage, v}, nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return frame{}, err
		}
		return frame{websocket.TextMessage, b}, nil
	}
}

// wsSession adds the live socket to a session. writeMu serializes writes.
type wsSession struct {
	*session
	mu      sync.Mutex
	writeMu sync.Mutex
	conn    *websocket.Conn
}

func (s *wsSession) setConn(c *websocket.Conn) {
	s.mu.Lock()
	s.conn = c
	s.mu.Unlock()
}

func (s *wsSession) currentConn() *websocket.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn
}

func (s *wsSession) write(conn *websocket.Conn, f frame) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return conn.WriteMessage(f.messageType, f.data)
}

// websocketTransport is a duplex transport over one WebSocket at a time.
type websocketTransport struct {
	endpoint string
	opts     Options
	ws       WebSocketOptions
	log      *logger.Logger

	mu   sync.Mutex
	sess *wsSession
}

func newWebSocket(endpoint string, opts Options, wsOpts WebSocketOptions, log *logger.Logger) *websocketTransport {
	return &websocketTransport{endpoint: endpoint, opts: opts, ws: wsOpts, log: log}
}

func (t *websocketTransport) Connect(ctx context.Context, h Handlers, co ConnectOptions) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sess != nil {
		return nil
	}

	dialer, target, header, err := t.handshake()
	if err != nil {
		return err
	}

	var hello *frame
	if co.Payload != nil {
		f, err := encodeFrame(co.Payload)
		if err != nil {
			return errors.Internal("encode connect payload", err)
		}
		hello = &f
	}

	sess := &wsSession{session: newSession(ctx, h)}
	t.sess = sess
	go t.run(sess, dialer, target, header, hello)
	return nil
}

// handshake prepares the dialer, URL and headers from the options.
func (t *websocketTransport) handshake() (*websocket.Dialer, string, http.Header, error) {
	target, err := appendQuery(t.endpoint, t.opts.Query)
	if err != nil {
		return nil, "", nil, errors.Internal("invalid websocket endpoint", err)
	}

	tlsCfg, err := t.opts.TLS.Build()
	if err != nil {
		return nil, "", nil, errors.Internal("invalid transport options", err)
	}
	if err := t.opts.Auth.Validate(); err != nil {
		return nil, "", nil, errors.Internal("invalid transport options", err)
	}

	timeout := t.opts.Timeout
	if timeout <= 0 {
		timeout = defaultHandshakeTimeout
	}
	dialer := &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: timeout,
		Subprotocols:     t.ws.Protocols,
		TLSClientConfig:  tlsCfg,
	}

	u, err := url.Parse(target)
	if err != nil {
		return nil, "", nil, errors.Internal("invalid websocket endpoint", err)
	}
	header := make(http.Header, len(t.opts.Headers))
	for k, v := range t.opts.Headers {
		header.Set(k, v)
	}
	t.opts.Auth.Sign(header, u)

	return dialer, u.String(), header, nil
}

func (t *websocketTransport) run(sess *wsSession, dialer *websocket.Dialer, target string, header http.Header, hello *frame) {
	defer t.release(sess)

	for attempt := 1; ; attempt++ {
		err := t.open(sess, dialer, target, header, hello)
		if !sess.live() {
			return
		}
		if sess.ctx.Err() != nil {
			sess.emitError(errors.Transport("websocket aborted", httpclient.NewAbortedError(sess.ctx.Err())))
			return
		}
		if err != nil {
			sess.emitError(err)
		}
		sess.emitComplete()

		if !t.ws.AutoReconnect || !sess.live() {
			return
		}
		t.log.Debug("websocket reconnecting", logger.Fields(logger.FieldAttempt, attempt, "delay", t.ws.ReconnectDelay.String()))
		if t.ws.ReconnectDelay > 0 {
			timer := time.NewTimer(t.ws.ReconnectDelay)
			select {
			case <-sess.ctx.Done():
				timer.Stop()
			case <-timer.C:
			}
		}
		if !sess.live() {
			return
		}
		if sess.ctx.Err() != nil {
			sess.emitError(errors.Transport("websocket aborted", httpclient.NewAbortedError(sess.ctx.Err())))
			return
		}
	}
}

// open dials one socket and reads it until it closes. It returns nil for a
// clean close and a transport error otherwise.
func (t *websocketTransport) open(sess *wsSession, dialer *websocket.Dialer, target string, header http.Header, hello *frame) *errors.Error {
	conn, resp, err := dialer.DialContext(sess.ctx, target, header)
	if err != nil {
		if resp != nil {
			if herr := httpclient.ClassifyStatusCode(resp.StatusCode, nil); herr != nil {
				return errors.Transport("websocket handshake failed", herr)
			}
		}
		return errors.Transport("websocket dial failed", httpclient.ClassifyContextError(sess.ctx, err))
	}
	sess.setConn(conn)
	stop := context.AfterFunc(sess.ctx, func() { _ = conn.Close() })
	defer func() {
		stop()
		sess.setConn(nil)
		_ = conn.Close()
	}()
	t.log.Debug("websocket open", logger.Fields("protocol", conn.Subprotocol()))

	if hello != nil {
		if err := sess.write(conn, *hello); err != nil {
			return errors.Transport("websocket send failed", err)
		}
	}

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			var ce *websocket.CloseError
			if stderrors.As(err, &ce) && ce.Code != websocket.CloseAbnormalClosure {
				t.log.Debug("websocket closed", logger.Fields("code", ce.Code))
				return nil
			}
			return errors.Transport("websocket connection lost", err)
		}
		switch messageType {
		case websocket.TextMessage:
			var raw json.RawMessage
			if err := json.Unmarshal(data, &raw); err != nil {
				sess.emitError(errors.Protocol("invalid JSON message", err))
				continue
			}
			sess.emitRaw(raw)
		case websocket.BinaryMessage:
			sess.emitRaw(data)
		}
	}
}

func (t *websocketTransport) release(sess *wsSession) {
	t.mu.Lock()
	if t.sess == sess {
		t.sess = nil
	}
	t.mu.Unlock()
	sess.cancel()
}

// Send writes data to the open socket. A string or json.RawMessage goes out
// as a text frame and a []byte as a binary frame, sent as is. Any other value
// is JSON encoded into a text frame.
func (t *websocketTransport) Send(data any) error {
	t.mu.Lock()
	sess := t.sess
	t.mu.Unlock()

	var conn *websocket.Conn
	if sess != nil {
		conn = sess.currentConn()
	}
	if conn == nil {
		return errors.Transport("websocket is not open", nil)
	}

	f, err := encodeFrame(data)
	if err != nil {
		return errors.Internal(fmt.Sprintf("encode %T message", data), err)
	}
	if err := sess.write(conn, f); err != nil {
		return errors.Transport("websocket send failed", err)
	}
	return nil
}

func (t *websocketTransport) Disconnect() error {
	t.mu.Lock()
	sess := t.sess
	t.sess = nil
	t.mu.Unlock()

	if sess == nil {
		return nil
	}
	sess.halted.Store(true)

	var closeErr error
	if conn := sess.currentConn(); conn != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(closeWriteTimeout))
		if err := conn.Close(); err != nil && !stderrors.Is(err, net.ErrClosed) {
			closeErr = errors.Internal("websocket close failed", err)
		}
	}
	sess.cancel()
	t.log.Debug("websocket disconnected")
	return closeErr
}
