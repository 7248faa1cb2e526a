package enums

// OutboxDLQErrorReason explains why a row was moved to the dead letter table.
type OutboxDLQErrorReason string

const (
	// retries exhausted
	OutboxDLQReasonMaxAttempts OutboxDLQErrorReason = "max_attempts"
	// the row can never be decoded or validated
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
	// no publisher exists for the resolved topic
	OutboxDLQReasonUnroutable OutboxDLQErrorReason = "unroutable"
)

func (r OutboxDLQErrorReason) IsValid() bool {
	switch r {
	case OutboxDLQReasonMaxAttempts, OutboxDLQReasonNonRetryable, OutboxDLQReasonUnroutable:
		return true
	}
	return false
}
