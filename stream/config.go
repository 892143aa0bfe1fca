package stream

import (
	"github.com/kbukum/streamkit/config"
	"github.com/kbukum/streamkit/httpclient"
	"github.com/kbukum/streamkit/transport"
)

// FromConfig builds a Definition from file or environment configuration.
// Requests passed to StartWith are sent as is.
func FromConfig[T any](cfg config.StreamConfig, hydrator Hydrator[T]) (Definition[any, T], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return Definition[any, T]{}, err
	}

	var query map[string]any
	if len(cfg.Query) > 0 {
		query = make(map[string]any, len(cfg.Query))
		for k, v := range cfg.Query {
			query[k] = v
		}
	}

	def := Definition[any, T]{
		Name:     cfg.Name,
		Mode:     transport.Mode(cfg.Mode),
		Endpoint: cfg.Endpoint,
		Transport: transport.Options{
			Headers: cfg.Headers,
			Query:   query,
			Timeout: cfg.Timeout,
		},
		ResponseHydrator: hydrator,
		Meta:             cfg.Meta,
	}
	if cfg.Auth.Scheme != "" {
		def.Transport.Auth = &httpclient.AuthConfig{
			Scheme:    httpclient.AuthScheme(cfg.Auth.Scheme),
			Token:     cfg.Auth.Token,
			Username:  cfg.Auth.Username,
			Password:  cfg.Auth.Password,
			Key:       cfg.Auth.Key,
			KeyHeader: cfg.Auth.KeyHeader,
			KeyParam:  cfg.Auth.KeyParam,
		}
		if err := def.Transport.Auth.Validate(); err != nil {
			return Definition[any, T]{}, err
		}
	}
	switch def.Mode {
	case transport.ModeSSE:
		def.SSE = &transport.SSEOptions{
			WithCredentials: cfg.SSE.WithCredentials,
			Retry:           cfg.SSE.Retry,
			Events:          cfg.SSE.Events,
		}
	case transport.ModeWebSocket:
		def.WebSocket = &transport.WebSocketOptions{
			Protocols:      cfg.WebSocket.Protocols,
			AutoReconnect:  cfg.WebSocket.AutoReconnect,
			ReconnectDelay: cfg.WebSocket.ReconnectDelay,
		}
	}
	return def, def.Validate()
}
