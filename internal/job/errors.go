package job

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel markers classifying how a job failed. Exactly one of these tags
// every terminal error; polling "not yet available" conditions never surface
// here because they are retried inside the orchestrator.
var (
	ErrInput      = errors.New("input error")
	ErrSubmission = errors.New("submission error")
	ErrExecution  = errors.New("backend execution error")
	ErrRetrieval  = errors.New("retrieval error")
	ErrTimeout    = errors.New("timeout")
)

// Wrap builds an error message that includes operation context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, operation, message string, err error) error {
	detail := buildDetail(operation, message)
	if marker == nil {
		marker = ErrRetrieval
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(operation, message string) string {
	parts := make([]string, 0, 2)
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "job failure"
	}
	return strings.Join(parts, ": ")
}
