// Package transport provides the stream transports: NDJSON over HTTP,
// Server-Sent Events and WebSocket.
//
// Every driver implements Transport. Connect starts delivering raw values
// through Handlers on a driver goroutine and returns at once; Disconnect
// stops delivery silently. JSON payloads arrive as json.RawMessage,
// WebSocket binary frames as []byte.
//
// New selects the driver for a Mode:
//
//	t, err := transport.New(transport.Config{
//	    Mode:     transport.ModeNDJSON,
//	    Endpoint: "https://api.example.com/stream",
//	})
//	err = t.Connect(ctx, transport.Handlers{OnRaw: ..., OnError: ..., OnComplete: ...}, transport.ConnectOptions{})
package transport
