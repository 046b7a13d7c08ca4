package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  *Error
		want int
	}{
		{Validation("bad input", "field missing"), http.StatusBadRequest},
		{NotFound("thing %d", 7), http.StatusNotFound},
		{Conflict("already done"), http.StatusConflict},
		{ImmutableState("frozen"), http.StatusConflict},
		{Expired("too late"), http.StatusGone},
		{Unauthorized("who are you"), http.StatusUnauthorized},
		{Forbidden("not yours"), http.StatusForbidden},
		{Upstream("provider down", errors.New("timeout")), http.StatusBadGateway},
		{MalformedResponse("garbage", nil), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := tt.err.HTTPStatus(); got != tt.want {
			t.Errorf("%s: status = %d, want %d", tt.err.Kind, got, tt.want)
		}
	}
}

func TestErrorMessageIncludesViolations(t *testing.T) {
	err := Validation("simulation is invalid", "title must not be empty", "duration out of range")
	msg := err.Error()
	if msg != "simulation is invalid: title must not be empty; duration out of range" {
		t.Errorf("message = %q", msg)
	}
}

func TestAsThroughWrapping(t *testing.T) {
	inner := NotFound("simulation %d not found", 3)
	wrapped := fmt.Errorf("loading owner: %w", inner)

	appErr, ok := As(wrapped)
	if !ok {
		t.Fatal("As failed to find the typed error through wrapping")
	}
	if appErr.Kind != KindNotFound {
		t.Errorf("kind = %s, want NOT_FOUND", appErr.Kind)
	}

	if !IsKind(wrapped, KindNotFound) {
		t.Error("IsKind(wrapped, NOT_FOUND) = false")
	}
	if IsKind(wrapped, KindConflict) {
		t.Error("IsKind(wrapped, CONFLICT) = true")
	}
	if IsKind(errors.New("plain"), KindNotFound) {
		t.Error("IsKind(plain error) = true")
	}
}

func TestUnwrapExposesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Upstream("AI provider call failed", cause)
	if !errors.Is(err, cause) {
		t.Error("errors.Is does not reach the cause")
	}
}
