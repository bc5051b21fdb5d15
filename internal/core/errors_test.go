// internal/core/errors_test.go
package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_Error(t *testing.T) {
	err := &Error{Code: "TEST_ERROR", Message: "test message"}
	if err.Error() != "[TEST_ERROR] test message" {
		t.Errorf("unexpected error string: %s", err.Error())
	}
}

func TestError_ErrorWithCause(t *testing.T) {
	err := WrapError(ErrSourceFailed, errors.New("status 503"))
	want := "[SOURCE_FAILED] source request failed: status 503"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{Code: "WRAP", Message: "wrapped", Cause: cause}
	if !errors.Is(err, cause) {
		t.Error("Unwrap should return cause")
	}
}

func TestError_Is(t *testing.T) {
	if !errors.Is(ErrNoSources, ErrNoSources) {
		t.Error("same error should match")
	}
	if errors.Is(ErrNoSources, ErrNoData) {
		t.Error("different codes should not match")
	}

	wrapped := fmt.Errorf("lookup AAPL: %w", WrapError(ErrRateLimited, nil))
	if !errors.Is(wrapped, ErrRateLimited) {
		t.Error("wrapped error should match by code")
	}
}

func TestWrapError(t *testing.T) {
	cause := errors.New("original")
	wrapped := WrapError(ErrSourceTimeout, cause)
	if wrapped.Cause != cause {
		t.Error("cause not set")
	}
	if wrapped.Code != ErrSourceTimeout.Code {
		t.Error("code not preserved")
	}
}
