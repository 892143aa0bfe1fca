package stream

import (
	"encoding/json"
	"fmt"

	"github.com/kbukum/streamkit/transport"
	"github.com/kbukum/streamkit/validation"
)

// Hydrator turns a raw transport value into a typed value. Raw values are
// json.RawMessage for JSON payloads and []byte for binary WebSocket frames.
type Hydrator[T any] func(raw any) (T, error)

// RequestMapper turns a start request into the transport payload.
type RequestMapper[Req any] func(req Req) (any, error)

// Definition describes how to connect to one stream and interpret its
// values. It is not modified after it is handed to New.
type Definition[Req, T any] struct {
	// Name labels logs, spans and metrics. Defaults to Endpoint.
	Name     string
	Mode     transport.Mode
	Endpoint string `validate:"required"`

	// Transport holds headers, query parameters, timeout, auth and TLS.
	Transport transport.Options

	// RequestMapper is optional. Without it a request passed to StartWith
	// is sent as is.
	RequestMapper    RequestMapper[Req]
	ResponseHydrator Hydrator[T] `validate:"required"`

	Meta map[string]any

	// SSE and WebSocket options; nil uses the transport defaults.
	SSE       *transport.SSEOptions
	WebSocket *transport.WebSocketOptions
}

// Validate checks the fields New requires. The mode is checked when the
// transport is created.
func (d Definition[Req, T]) Validate() error {
	return validation.Validate(d)
}

func (d Definition[Req, T]) name() string {
	if d.Name != "" {
		return d.Name
	}
	return d.Endpoint
}

func (d Definition[Req, T]) transportConfig() transport.Config {
	return transport.Config{
		Mode:      d.Mode,
		Endpoint:  d.Endpoint,
		Options:   d.Transport,
		SSE:       d.SSE,
		WebSocket: d.WebSocket,
	}
}

// JSON returns a hydrator that decodes JSON raw values into T.
func JSON[T any]() Hydrator[T] {
	return func(raw any) (T, error) {
		var v T
		var data []byte
		switch r := raw.(type) {
		case json.RawMessage:
			data = r
		case []byte:
			data = r
		case string:
			data = []byte(r)
		default:
			return v, fmt.Errorf("cannot decode %T as JSON", raw)
		}
		if err := json.Unmarshal(data, &v); err != nil {
			return v, err
		}
		return v, nil
	}
}
