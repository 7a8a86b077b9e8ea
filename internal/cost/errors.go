package cost

import "fmt"

// UpstreamQueryError wraps a billing or inventory client failure that
// survived the retry loop (or was never retryable). The pipeline step
// that triggered it aborts; completed steps keep their results.
type UpstreamQueryError struct {
	Op  string
	Err error
}

func (e *UpstreamQueryError) Error() string {
	return fmt.Sprintf("upstream query %s: %v", e.Op, e.Err)
}

func (e *UpstreamQueryError) Unwrap() error { return e.Err }
