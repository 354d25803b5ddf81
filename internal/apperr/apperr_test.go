package apperr

import (
	"errors"
	"net/http"
	"testing"
)

func TestStatusForKnownCode(t *testing.T) {
	if got := StatusFor(Expired); got != http.StatusGone {
		t.Fatalf("StatusFor(Expired) = %d, want %d", got, http.StatusGone)
	}
	if got := StatusFor(RateLimited); got != http.StatusTooManyRequests {
		t.Fatalf("StatusFor(RateLimited) = %d, want %d", got, http.StatusTooManyRequests)
	}
}

func TestStatusForUnknownCodeDefaultsInternal(t *testing.T) {
	if got := StatusFor(Code("made_up")); got != http.StatusInternalServerError {
		t.Fatalf("StatusFor(unknown) = %d, want %d", got, http.StatusInternalServerError)
	}
}

func TestWrapUnwrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(Unavailable, "dial redis", cause)

	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is to find wrapped cause")
	}
	if err.Error() == "" {
		t.Fatalf("expected non-empty error message")
	}
}

func TestAsPassesThroughTypedError(t *testing.T) {
	original := New(NotFound, "share not found")
	if got := As(original); got != original {
		t.Fatalf("As should return the same *Error instance, got %v", got)
	}
}

func TestAsWrapsForeignError(t *testing.T) {
	got := As(errors.New("boom"))
	if got.Code != Internal {
		t.Fatalf("As(foreign error).Code = %s, want %s", got.Code, Internal)
	}
}

func TestAsNil(t *testing.T) {
	if got := As(nil); got != nil {
		t.Fatalf("As(nil) = %v, want nil", got)
	}
}
