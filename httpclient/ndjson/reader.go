// Package ndjson provides an incremental newline-delimited JSON reader.
package ndjson

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrLineTooLong is the cause of a SyntaxError for a line over the reader's
// size limit.
var ErrLineTooLong = errors.New("ndjson: line too long")

// SyntaxError reports a line that is not a JSON document.
// The reader stays usable after returning it.
type SyntaxError struct {
	// Line is the 1-based line number in the body.
	Line int
	// Text is the offending line, trimmed. Empty for oversize lines.
	Text string
	// Err is the decoder error or ErrLineTooLong.
	Err error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("ndjson: invalid JSON on line %d: %v", e.Line, e.Err)
}

func (e *SyntaxError) Unwrap() error { return e.Err }

// Reader reads one JSON document per line. Lines may end in "\n" or "\r\n",
// surrounding whitespace is trimmed and blank lines are skipped. A final line
// without a terminating newline is still returned.
type Reader struct {
	br      *bufio.Reader
	body    io.ReadCloser
	maxLine int
	line    int
	done    bool
}

// NewReader creates a reader with no line size limit.
func NewReader(body io.ReadCloser) *Reader {
	return NewReaderSize(body, 0)
}

// NewReaderSize creates a reader that rejects lines longer than maxLine
// bytes, not counting the line terminator. An oversize line is skipped and
// reported as a *SyntaxError wrapping ErrLineTooLong. Zero or less means no
// limit.
func NewReaderSize(body io.ReadCloser, maxLine int) *Reader {
	return &Reader{br: bufio.NewReader(body), body: body, maxLine: maxLine}
}

// Next returns the next JSON document. It returns a *SyntaxError for a
// malformed or oversize line, io.EOF at the end of the body, or the read
// error.
func (r *Reader) Next() (json.RawMessage, error) {
	for !r.done {
		raw, tooLong, err := r.readLine()
		switch {
		case err == io.EOF:
			r.done = true
			if len(raw) == 0 && !tooLong {
				return nil, io.EOF
			}
		case err != nil:
			return nil, err
		}
		r.line++
		if tooLong {
			return nil, &SyntaxError{Line: r.line, Err: ErrLineTooLong}
		}
		line := bytes.TrimSpace(raw)
		if len(line) == 0 {
			continue
		}
		var doc json.RawMessage
		if err := json.Unmarshal(line, &doc); err != nil {
			return nil, &SyntaxError{Line: r.line, Text: string(line), Err: err}
		}
		return doc, nil
	}
	return nil, io.EOF
}

// readLine returns the next line without its terminator. Once a line passes
// the limit the rest of it is consumed and discarded.
func (r *Reader) readLine() (line []byte, tooLong bool, err error) {
	for {
		var chunk []byte
		chunk, err = r.br.ReadSlice('\n')
		if !tooLong {
			line = append(line, chunk...)
			// +2 leaves room for a CRLF terminator.
			if r.maxLine > 0 && len(line) > r.maxLine+2 {
				tooLong, line = true, nil
			}
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		line = bytes.TrimSuffix(bytes.TrimSuffix(line, []byte("\n")), []byte("\r"))
		if r.maxLine > 0 && len(line) > r.maxLine {
			tooLong, line = true, nil
		}
		return line, tooLong, err
	}
}

// Close releases the underlying body.
func (r *Reader) Close() error {
	return r.body.Close()
}
