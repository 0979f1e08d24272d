package contracts

import "fmt"

// ValidationError reports an envelope or payload that violates its schema.
// It is a permanent failure: redelivering a structurally invalid message can
// never succeed, so consumers acknowledge and drop it.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("contracts: invalid field '%s': %s", e.Field, e.Reason)
}

// IsRetryable marks validation failures as non-retryable for retry policies.
func (e *ValidationError) IsRetryable() bool {
	return false
}
