package errors

// Kind classifies a stream failure.
type Kind string

const (
	// KindTransport covers connection and network failures: non-2xx status,
	// missing body, aborted requests, socket errors, send while closed.
	KindTransport Kind = "transport"
	// KindProtocol covers malformed payloads at the wire level, such as an
	// NDJSON line or an SSE/WebSocket message that is not valid JSON.
	KindProtocol Kind = "protocol"
	// KindHydrate indicates the caller-supplied hydration function failed.
	KindHydrate Kind = "hydrate"
	// KindInternal covers unexpected states: unsupported mode, synchronous
	// start failures, disconnect-time failures.
	KindInternal Kind = "internal"
)

var knownKinds = map[Kind]bool{
	KindTransport: true,
	KindProtocol:  true,
	KindHydrate:   true,
	KindInternal:  true,
}

// Valid reports whether k is one of the four known kinds.
func (k Kind) Valid() bool {
	return knownKinds[k]
}

// String returns the kind name.
func (k Kind) String() string { return string(k) }
