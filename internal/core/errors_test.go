package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestDomainError_ErrorAndUnwrap(t *testing.T) {
	cause := errors.New("root")
	err := (&DomainError{
		Category: ErrCatValidation,
		Code:     "CODE",
		Message:  "message",
	}).WithCause(cause)

	if err.Unwrap() != cause {
		t.Fatalf("expected cause to be unwrapped")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is to match cause")
	}

	match := &DomainError{Category: ErrCatValidation, Code: "CODE"}
	if !errors.Is(err, match) {
		t.Fatalf("expected errors.Is to match category and code")
	}
	if err.Error() != "[validation] CODE: message (root)" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestDomainError_WithDetail(t *testing.T) {
	err := &DomainError{Category: ErrCatExecution, Code: "X", Message: "msg"}
	err.WithDetail("k", "v")
	if err.Details == nil || err.Details["k"] != "v" {
		t.Fatalf("expected details to be set")
	}
}

func TestErrNotFound(t *testing.T) {
	err := ErrNotFound("style", 42)
	if err.Message != "style not found: 42" {
		t.Fatalf("Message = %q", err.Message)
	}
	if err.Details["id"] != int64(42) {
		t.Fatalf("expected id detail")
	}
}

func TestGetCategory(t *testing.T) {
	wrapped := fmt.Errorf("loading: %w", ErrState(CodeWorkerLost, "gone"))
	if GetCategory(wrapped) != ErrCatState {
		t.Fatalf("expected state category through wrapping")
	}
	if GetCategory(errors.New("plain")) != ErrCatInternal {
		t.Fatalf("plain errors should be internal")
	}
	if !IsCategory(ErrValidation(CodeEmptyName, "x"), ErrCatValidation) {
		t.Fatalf("expected validation category")
	}
}
