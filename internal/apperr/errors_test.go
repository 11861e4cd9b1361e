package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsMatchesKindThroughWrapping(t *testing.T) {
	err := fmt.Errorf("encoding task_7: %w", Connectivity("encode", errors.New("dial tcp: refused")))

	if !IsConnectivity(err) {
		t.Fatal("expected connectivity error to match through fmt.Errorf wrapping")
	}
	if IsValidation(err) {
		t.Error("connectivity error should not match validation")
	}
	if KindOf(err) != KindConnectivity {
		t.Errorf("KindOf = %v, want connectivity", KindOf(err))
	}
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{Validation("search", "k", "must be between 1 and 100"), "search: validation on k: must be between 1 and 100"},
		{DuplicateKey("insert", "task_7"), "insert: duplicate_key (task_7)"},
		{NotFound("get", "user_3"), "get: not_found (user_3)"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func TestUnwrapReachesCause(t *testing.T) {
	cause := errors.New("boom")
	err := PartialData("rebuild", "user_9", cause)
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the wrapped cause")
	}
	if !IsPartialData(err) {
		t.Error("expected partial data kind")
	}
}

func TestKindOfUnknown(t *testing.T) {
	if KindOf(errors.New("plain")) != KindUnknown {
		t.Error("plain errors should report KindUnknown")
	}
	if KindOf(nil) != KindUnknown {
		t.Error("nil should report KindUnknown")
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{Validation("search", "k", "bad"), 400},
		{NotFound("get", "task_1"), 404},
		{DuplicateKey("insert", "task_1"), 409},
		{fmt.Errorf("wrapped: %w", Connectivity("encode", errors.New("down"))), 503},
		{errors.New("plain"), 500},
	}
	for _, tt := range tests {
		if got := HTTPStatus(tt.err); got != tt.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
