package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Constructors(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want Kind
	}{
		{"transport", Transport("boom", nil), KindTransport},
		{"protocol", Protocol("bad json", nil), KindProtocol},
		{"hydrate", Hydrate("bad shape", nil), KindHydrate},
		{"internal", Internal("unexpected", nil), KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Kind != tt.want {
				t.Errorf("expected kind %s, got %s", tt.want, tt.err.Kind)
			}
			if !tt.err.Kind.Valid() {
				t.Errorf("expected kind %s to be valid", tt.err.Kind)
			}
			if KindOf(tt.err) != tt.want {
				t.Errorf("KindOf = %s, want %s", KindOf(tt.err), tt.want)
			}
		})
	}
}

func TestError_Error_Format(t *testing.T) {
	err := Transport("HTTP 502", nil)
	if got := err.Error(); got != "transport: HTTP 502" {
		t.Errorf("unexpected string %q", got)
	}

	withCause := Protocol("invalid JSON line", fmt.Errorf("unexpected token"))
	if !strings.Contains(withCause.Error(), "unexpected token") {
		t.Errorf("Error() should contain cause, got %q", withCause.Error())
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("underlying")
	err := Internal("disconnect failed", cause)
	if !stderrors.Is(err, cause) {
		t.Error("expected errors.Is to reach the cause")
	}
}

func TestError_WithStatusBefore_Copies(t *testing.T) {
	orig := Hydrate("bad value", nil)
	annotated := orig.WithStatusBefore("streaming")

	if annotated.StatusBefore != "streaming" {
		t.Errorf("expected status_before streaming, got %q", annotated.StatusBefore)
	}
	if orig.StatusBefore != "" {
		t.Error("original error must not be mutated")
	}
	if annotated == orig {
		t.Error("expected a distinct copy")
	}
}

func TestWrap_KeepsExistingError(t *testing.T) {
	orig := Transport("socket closed", nil)
	wrapped := fmt.Errorf("context: %w", orig)

	got := Wrap(wrapped, KindInternal, "start failed")
	if got != orig {
		t.Errorf("expected the original *Error, got %v", got)
	}
}

func TestWrap_ForeignError(t *testing.T) {
	cause := fmt.Errorf("plain")
	got := Wrap(cause, KindInternal, "start failed")
	if got.Kind != KindInternal {
		t.Errorf("expected internal, got %s", got.Kind)
	}
	if got.Cause != cause {
		t.Error("expected cause to be kept")
	}
	if Wrap(nil, KindInternal, "x") != nil {
		t.Error("expected nil for nil input")
	}
}

func TestFromPanic(t *testing.T) {
	e := FromPanic("kaboom", KindHydrate, "hydrator panicked")
	if e.Kind != KindHydrate || !strings.Contains(e.Error(), "kaboom") {
		t.Errorf("unexpected error %v", e)
	}

	cause := fmt.Errorf("typed")
	e2 := FromPanic(cause, KindInternal, "mapper panicked")
	if e2.Cause != cause {
		t.Error("expected error panic value to become the cause")
	}
}

func TestMatchers(t *testing.T) {
	if !IsTransport(Transport("x", nil)) {
		t.Error("IsTransport")
	}
	if !IsProtocol(Protocol("x", nil)) {
		t.Error("IsProtocol")
	}
	if !IsHydrate(Hydrate("x", nil)) {
		t.Error("IsHydrate")
	}
	if !IsInternal(Internal("x", nil)) {
		t.Error("IsInternal")
	}
	if IsTransport(fmt.Errorf("plain")) {
		t.Error("plain errors have no kind")
	}
	if KindOf(nil) != "" {
		t.Error("nil has no kind")
	}
	if Kind("bogus").Valid() {
		t.Error("unknown kind must not be valid")
	}
}
