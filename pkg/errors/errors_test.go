package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestErrorIncludesInternal(t *testing.T) {
	internal := stdErrors.New("boom")
	err := Wrap(internal, "failed")

	if err.Error() != "failed: boom" {
		t.Fatalf("unexpected error string: %s", err.Error())
	}
}

func TestWithInternalCopies(t *testing.T) {
	base := New("TEST", "test", 400)
	with := base.WithInternal(stdErrors.New("oops"))

	if with == base {
		t.Fatal("expected WithInternal to return a copy")
	}

	if base.Internal != nil {
		t.Fatal("expected original error to remain unchanged")
	}

	if with.Internal == nil {
		t.Fatal("expected internal error to be set")
	}

	if !stdErrors.Is(with, base) {
		t.Fatal("expected copy to match its sentinel")
	}
}

func TestFromError(t *testing.T) {
	appErr := ErrNotFound
	if out := FromError(appErr); out != appErr {
		t.Fatal("expected FromError to return the same AppError instance")
	}

	raw := stdErrors.New("raw")
	out := FromError(raw)
	if out.Code != ErrInternalServer.Code {
		t.Fatalf("expected internal server code, got %s", out.Code)
	}
	if out.Internal == nil {
		t.Fatal("expected internal error to be attached")
	}
}

func TestTaxonomyConstructors(t *testing.T) {
	cases := []struct {
		err    *AppError
		code   string
		status int
	}{
		{NewBadRequest("invalid payload"), ErrBadRequest.Code, http.StatusBadRequest},
		{NewNotFound("role not found"), ErrNotFound.Code, http.StatusNotFound},
		{NewConflict("role name already exists"), ErrConflict.Code, http.StatusConflict},
		{NewForbidden("ambiguous company scope"), ErrForbidden.Code, http.StatusForbidden},
	}

	for _, tc := range cases {
		if tc.err.Code != tc.code {
			t.Fatalf("expected %s, got %s", tc.code, tc.err.Code)
		}
		if tc.err.StatusCode != tc.status {
			t.Fatalf("unexpected status: %d", tc.err.StatusCode)
		}
		if tc.err.Retryable {
			t.Fatalf("%s must not be retryable", tc.code)
		}
	}
}

func TestTransientIsRetryable(t *testing.T) {
	err := NewTransient(stdErrors.New("connection reset"))
	if !IsRetryable(err) {
		t.Fatal("expected transient error to be retryable")
	}
	if !IsRetryable(fmt.Errorf("role service: %w", err)) {
		t.Fatal("expected wrapped transient error to be retryable")
	}
	if IsRetryable(stdErrors.New("plain")) {
		t.Fatal("plain errors are not retryable")
	}
	if StatusOf(err) != http.StatusServiceUnavailable {
		t.Fatalf("unexpected status: %d", StatusOf(err))
	}
}
