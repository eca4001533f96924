package job

import (
	"errors"
	"testing"
)

func TestWrapTagsMarker(t *testing.T) {
	err := Wrap(ErrSubmission, "submit", "", errors.New("boom"))
	if !errors.Is(err, ErrSubmission) {
		t.Fatalf("marker lost: %v", err)
	}
	if errors.Is(err, ErrTimeout) {
		t.Fatalf("wrong marker matched: %v", err)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(ErrRetrieval, "fetch", "", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("cause lost: %v", err)
	}
}

func TestWrapNilMarkerDefaults(t *testing.T) {
	err := Wrap(nil, "", "", nil)
	if !errors.Is(err, ErrRetrieval) {
		t.Fatalf("expected retrieval default, got %v", err)
	}
	if err.Error() != "retrieval error: job failure" {
		t.Errorf("message = %q", err.Error())
	}
}
