package transport

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/kbukum/streamkit/errors"
	"github.com/kbukum/streamkit/httpclient"
)

// Mode selects a transport driver.
type Mode string

const (
	ModeNDJSON    Mode = "ndjson"
	ModeSSE       Mode = "sse"
	ModeWebSocket Mode = "websocket"
)

// Valid reports whether m names a known driver.
func (m Mode) Valid() bool {
	switch m {
	case ModeNDJSON, ModeSSE, ModeWebSocket:
		return true
	}
	return false
}

// Handlers receive the output of a connected transport. Callbacks run on the
// driver goroutine, one at a time and in the order the transport produced them.
type Handlers struct {
	OnRaw      func(raw any)
	OnError    func(err *errors.Error)
	OnComplete func()
}

// ConnectOptions carries per-connection input.
type ConnectOptions struct {
	// Payload is the mapped request. NDJSON posts it as JSON; WebSocket sends
	// it on every opened socket. Nil means no payload.
	Payload any
}

// Transport owns at most one underlying connection.
type Transport interface {
	// Connect opens the connection and returns once delivery has started.
	// Cancelling ctx aborts the connection with a transport error. Calling
	// Connect while connected is a no-op. An error return means nothing was
	// started.
	Connect(ctx context.Context, h Handlers, opts ConnectOptions) error
	// Disconnect releases the connection. No handler fires afterwards.
	// Disconnecting an idle transport is a no-op.
	Disconnect() error
}

// Sender is implemented by duplex transports.
type Sender interface {
	// Send writes data to the open connection.
	Send(data any) error
}

// Options are the transport options shared by all modes.
type Options struct {
	// Headers are sent with the request or handshake.
	Headers map[string]string
	// Query parameters are appended to the endpoint. Nil values are skipped.
	Query map[string]any
	// Timeout bounds the whole NDJSON operation, and the connection setup of
	// SSE and the WebSocket handshake. Zero means no timeout.
	Timeout time.Duration
	// Auth is applied to every request or handshake.
	Auth *httpclient.AuthConfig
	// TLS configures the client side of TLS connections.
	TLS *httpclient.TLSConfig
}

// SSEOptions configure the Server-Sent Events driver.
type SSEOptions struct {
	// WithCredentials keeps cookies set by the server across reconnects.
	WithCredentials bool
	// Retry is the reconnect delay after the server ends the stream, until
	// the server announces its own. Zero or less uses the default.
	Retry time.Duration
	// Events lists event types delivered in addition to "message".
	Events []string
}

// DefaultSSEOptions returns the options used when none are given.
func DefaultSSEOptions() SSEOptions {
	return SSEOptions{Retry: 3 * time.Second}
}

// WebSocketOptions configure the WebSocket driver.
type WebSocketOptions struct {
	// Protocols are the requested subprotocols.
	Protocols []string
	// AutoReconnect reopens the socket after a close not caused by Disconnect.
	AutoReconnect bool
	// ReconnectDelay is the wait before reopening. Zero reconnects at once.
	ReconnectDelay time.Duration
}

// DefaultWebSocketOptions returns the options used when none are given.
func DefaultWebSocketOptions() WebSocketOptions {
	return WebSocketOptions{ReconnectDelay: time.Second}
}

// session is one Connect..Disconnect lifetime. Once halted, nothing is
// emitted.
type session struct {
	ctx      context.Context
	cancel   context.CancelFunc
	handlers Handlers
	halted   atomic.Bool
}

func newSession(parent context.Context, h Handlers) *session {
	ctx, cancel := context.WithCancel(parent)
	return &session{ctx: ctx, cancel: cancel, handlers: h}
}

func (s *session) halt() {
	s.halted.Store(true)
	s.cancel()
}

func (s *session) live() bool {
	return !s.halted.Load()
}

func (s *session) emitRaw(raw any) {
	if s.live() && s.handlers.OnRaw != nil {
		s.handlers.OnRaw(raw)
	}
}

func (s *session) emitError(err *errors.Error) {
	if s.live() && s.handlers.OnError != nil {
		s.handlers.OnError(err)
	}
}

func (s *session) emitComplete() {
	if s.live() && s.handlers.OnComplete != nil {
		s.handlers.OnComplete()
	}
}
