package campaign

import "fmt"

// StoreError represents a failure to read or write the result list.
// It is fatal to a run: without a working store no progress can be recorded.
type StoreError struct {
	Op    string // "load" or "write"
	Path  string
	Cause error
}

func (e *StoreError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("result store %s failed for %s: %v", e.Op, e.Path, e.Cause)
	}
	return fmt.Sprintf("result store %s failed: %v", e.Op, e.Cause)
}

func (e *StoreError) Unwrap() error {
	return e.Cause
}
