package apperror

import (
	"errors"
	"fmt"
	"testing"
)

func TestCodeOf(t *testing.T) {
	err := New(NotFound, "member %s not found", "abc")
	if CodeOf(err) != NotFound {
		t.Errorf("code = %s, want not_found", CodeOf(err))
	}
	if err.Error() != "member abc not found" {
		t.Errorf("message = %q", err.Error())
	}
}

func TestCodeOfWrappedChain(t *testing.T) {
	inner := New(PermissionDenied, "role CHILD not permitted")
	wrapped := fmt.Errorf("approve completion: %w", inner)

	if CodeOf(wrapped) != PermissionDenied {
		t.Errorf("code through fmt wrap = %s, want permission_denied", CodeOf(wrapped))
	}
	if !Is(wrapped, PermissionDenied) {
		t.Error("Is should match through wrapping")
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(Internal, cause, "insert audit entry")

	if !errors.Is(err, cause) {
		t.Error("wrapped cause should be reachable via errors.Is")
	}
	if CodeOf(err) != Internal {
		t.Errorf("code = %s, want internal", CodeOf(err))
	}
}

func TestCodeOfPlainError(t *testing.T) {
	if CodeOf(errors.New("boom")) != Internal {
		t.Error("plain errors map to internal")
	}
	if Is(errors.New("boom"), NotFound) {
		t.Error("plain errors are not NotFound")
	}
}
