package catalog

import "fmt"

// ValidationError reports a malformed or unresolvable record from a source.
// It is logged at entity granularity and never aborts the run.
type ValidationError struct {
	ID     string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("validation: %s", e.Reason)
	}
	return fmt.Sprintf("validation: %s: %s", e.ID, e.Reason)
}

// SecurityError reports a URL that failed allowlist or scheme validation.
// Fatal for that fetch, never retried, never bypassed.
type SecurityError struct {
	URL    string
	Reason string
}

func (e *SecurityError) Error() string {
	return fmt.Sprintf("security: %s: %s", e.URL, e.Reason)
}

// TransientNetworkError is the terminal form of a retryable failure after the
// retry budget is exhausted.
type TransientNetworkError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *TransientNetworkError) Error() string {
	return fmt.Sprintf("transient network: %s after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *TransientNetworkError) Unwrap() error { return e.Err }

// ResourceLimitError reports a response that exceeded the transfer size cap.
// The transfer is aborted, not truncated, and never retried.
type ResourceLimitError struct {
	URL   string
	Limit int64
}

func (e *ResourceLimitError) Error() string {
	return fmt.Sprintf("resource limit: %s exceeded %d bytes", e.URL, e.Limit)
}

// ConsistencyError means the merged set violates a structural invariant
// (duplicate id, night-rank gap or duplicate). Fatal for the whole run:
// publication is aborted and the previous snapshot stays the last good state.
type ConsistencyError struct {
	Reason string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("consistency: %s", e.Reason)
}
