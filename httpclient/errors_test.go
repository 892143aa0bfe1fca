package httpclient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestClassifyStatusCode(t *testing.T) {
	tests := []struct {
		status    int
		wantNil   bool
		wantCode  ErrorCode
		retryable bool
	}{
		{200, true, 0, false},
		{204, true, 0, false},
		{400, false, ErrCodeValidation, false},
		{401, false, ErrCodeAuth, false},
		{403, false, ErrCodeAuth, false},
		{404, false, ErrCodeNotFound, false},
		{429, false, ErrCodeRateLimit, true},
		{500, false, ErrCodeServer, true},
		{503, false, ErrCodeServer, true},
		{302, false, ErrCodeServer, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("HTTP_%d", tt.status), func(t *testing.T) {
			err := ClassifyStatusCode(tt.status, []byte("body"))
			if tt.wantNil {
				if err != nil {
					t.Fatalf("expected nil, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error")
			}
			if err.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", err.Code, tt.wantCode)
			}
			if err.Retryable != tt.retryable {
				t.Errorf("retryable = %v, want %v", err.Retryable, tt.retryable)
			}
			if err.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", err.StatusCode, tt.status)
			}
		})
	}
}

func TestClassifyContextError(t *testing.T) {
	cause := errors.New("read failed")

	if err := ClassifyContextError(context.Background(), cause); err.Code != ErrCodeConnection {
		t.Errorf("live context: got %s", err.Code)
	}

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	if err := ClassifyContextError(cancelled, cause); err.Code != ErrCodeAborted {
		t.Errorf("cancelled context: got %s", err.Code)
	}

	expired, cancel2 := context.WithTimeout(context.Background(), 0)
	defer cancel2()
	<-expired.Done()
	if err := ClassifyContextError(expired, cause); err.Code != ErrCodeTimeout {
		t.Errorf("expired context: got %s", err.Code)
	}

	existing := NewNoBodyError(200)
	if got := ClassifyContextError(cancelled, fmt.Errorf("wrapped: %w", existing)); got != existing {
		t.Error("expected an existing *Error to be kept")
	}
}

func TestError_Format(t *testing.T) {
	withStatus := ClassifyStatusCode(502, nil)
	if !strings.Contains(withStatus.Error(), "HTTP 502") {
		t.Errorf("unexpected message %q", withStatus.Error())
	}
	conn := NewConnectionError(errors.New("refused"))
	if conn.Error() != "httpclient: connection: refused" {
		t.Errorf("unexpected message %q", conn.Error())
	}
	if !errors.Is(conn, conn.Err) {
		t.Error("expected Unwrap to expose the cause")
	}
}

func TestErrorCode_String(t *testing.T) {
	codes := map[ErrorCode]string{
		ErrCodeTimeout:    "timeout",
		ErrCodeAborted:    "aborted",
		ErrCodeConnection: "connection",
		ErrCodeAuth:       "auth",
		ErrCodeNotFound:   "not_found",
		ErrCodeRateLimit:  "rate_limit",
		ErrCodeValidation: "validation",
		ErrCodeServer:     "server",
		ErrCodeNoBody:     "no_body",
		ErrorCode(99):     "unknown",
	}
	for code, want := range codes {
		if code.String() != want {
			t.Errorf("%d.String() = %q, want %q", code, code.String(), want)
		}
	}
}
