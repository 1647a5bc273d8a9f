package agenterr

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestKindOfUnwrapsWrappedErrors(t *testing.T) {
	base := Precondition("run /search first")
	wrapped := fmt.Errorf("handler: %w", base)
	if got := KindOf(wrapped); got != KindPrecondition {
		t.Fatalf("expected precondition kind, got %q", got)
	}
	if got := KindOf(errors.New("plain")); got != KindNone {
		t.Fatalf("expected empty kind for plain error, got %q", got)
	}
}

func TestExternalKeepsCause(t *testing.T) {
	cause := errors.New("status 502")
	err := External("job search", cause)
	if !errors.Is(err, cause) {
		t.Fatal("expected external error to unwrap to its cause")
	}
	if !strings.Contains(err.UserText(), "status 502") {
		t.Fatalf("expected detail in user text, got %q", err.UserText())
	}
}
