package transport

import (
	"fmt"

	"github.com/kbukum/streamkit/errors"
	"github.com/kbukum/streamkit/logger"
)

// Config selects and configures a driver.
type Config struct {
	Mode     Mode
	Endpoint string
	Options  Options
	// SSE options; nil uses DefaultSSEOptions.
	SSE *SSEOptions
	// WebSocket options; nil uses DefaultWebSocketOptions.
	WebSocket *WebSocketOptions
}

type settings struct {
	log *logger.Logger
}

// Option configures drivers built by New.
type Option func(*settings)

// WithLogger sets the driver logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *settings) { s.log = l }
}

// New returns a fresh driver for cfg.Mode. An unknown mode is an internal error.
func New(cfg Config, opts ...Option) (Transport, error) {
	s := settings{}
	for _, opt := range opts {
		opt(&s)
	}
	if s.log == nil {
		s.log = logger.WithComponent("transport")
	}
	log := s.log.WithFields(logger.Fields(logger.FieldMode, string(cfg.Mode), logger.FieldEndpoint, cfg.Endpoint))

	switch cfg.Mode {
	case ModeNDJSON:
		return newNDJSON(cfg.Endpoint, cfg.Options, log), nil
	case ModeSSE:
		sse := DefaultSSEOptions()
		if cfg.SSE != nil {
			sse = *cfg.SSE
		}
		return newSSE(cfg.Endpoint, cfg.Options, sse, log), nil
	case ModeWebSocket:
		ws := DefaultWebSocketOptions()
		if cfg.WebSocket != nil {
			ws = *cfg.WebSocket
		}
		return newWebSocket(cfg.Endpoint, cfg.Options, ws, log), nil
	default:
		return nil, errors.Internal(fmt.Sprintf("unsupported stream mode %q", cfg.Mode), nil)
	}
}
