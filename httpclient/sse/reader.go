// Package sse provides an incremental Server-Sent Events reader.
package sse

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"time"
)

// Event represents a single server-sent event.
type Event struct {
	// Event is the SSE event type (from "event:" line). Empty for data-only events.
	Event string
	// Data is the event payload (from "data:" line(s)). Multi-line data is joined with newlines.
	Data string
	// ID is the last event ID in effect when the event was dispatched.
	ID string
	// Retry is the reconnection delay announced by the server, or zero.
	Retry time.Duration
}

// Type returns the event type, "message" when none was given.
func (e *Event) Type() string {
	if e.Event == "" {
		return "message"
	}
	return e.Event
}

// Reader reads server-sent events from a stream.
type Reader interface {
	// Next returns the next SSE event. Returns io.EOF when the stream ends.
	Next() (*Event, error)
	// LastEventID returns the most recent "id:" value seen, including ids on
	// blocks that carried no data.
	LastEventID() string
	// Retry returns the most recent "retry:" value seen, or zero.
	Retry() time.Duration
	// Close releases the underlying resources.
	Close() error
}

type reader struct {
	br          *bufio.Reader
	body        io.ReadCloser
	done        bool
	lastEventID string
	retry       time.Duration
}

// NewReader creates an SSE reader from a readable stream.
func NewReader(body io.ReadCloser) Reader {
	return &reader{
		br:   bufio.NewReader(body),
		body: body,
	}
}

// Next returns the next SSE event. Returns io.EOF when the stream ends.
// A trailing block without a terminating blank line is discarded. Lines
// have no size limit.
func (r *reader) Next() (*Event, error) {
	var event Event
	var hasData bool

	for !r.done {
		line, err := r.br.ReadString('\n')
		if err == io.EOF {
			// The last line has no terminator, so it cannot dispatch.
			r.done = true
		} else if err != nil {
			return nil, err
		}
		line = strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")
		if r.done && line == "" {
			break
		}

		// Blank line dispatches the pending event
		if line == "" {
			if hasData {
				event.ID = r.lastEventID
				event.Retry = r.retry
				return &event, nil
			}
			event = Event{}
			continue
		}

		// Skip comments
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value := parseLine(line)
		switch field {
		case "data":
			if hasData {
				event.Data += "\n" + value
			} else {
				event.Data = value
				hasData = true
			}
		case "event":
			event.Event = value
		case "id":
			if !strings.ContainsRune(value, 0) {
				r.lastEventID = value
			}
		case "retry":
			if ms, err := strconv.Atoi(value); err == nil && ms >= 0 {
				r.retry = time.Duration(ms) * time.Millisecond
			}
		}
	}

	return nil, io.EOF
}

func (r *reader) LastEventID() string  { return r.lastEventID }
func (r *reader) Retry() time.Duration { return r.retry }

// Close releases the underlying stream.
func (r *reader) Close() error {
	return r.body.Close()
}

// parseLine parses a single SSE line into field and value.
func parseLine(line string) (field, value string) {
	idx := strings.IndexByte(line, ':')
	if idx < 0 {
		return line, ""
	}
	field = line[:idx]
	value = line[idx+1:]
	// Strip single leading space after colon
	if value != "" && value[0] == ' ' {
		value = value[1:]
	}
	return field, value
}
