package metrics

import "fmt"

// Tag creates a formatted DataDog tag string in "key:value" format.
func Tag(key, value string) string {
	return fmt.Sprintf("%s:%s", key, value)
}

// OutcomeTag tags a refresh attempt with its outcome.
func OutcomeTag(outcome string) string {
	return Tag("outcome", outcome)
}

// OperationTag creates an operation tag.
func OperationTag(op string) string {
	return Tag("operation", op)
}

// StatusTag tags an HTTP response class or similar status.
func StatusTag(status string) string {
	return Tag("status", status)
}

// SinkTag names a snapshot sink.
func SinkTag(sink string) string {
	return Tag("sink", sink)
}

// CircuitStateTag creates a circuit breaker state tag.
func CircuitStateTag(state string) string {
	return Tag("circuit_state", state)
}
