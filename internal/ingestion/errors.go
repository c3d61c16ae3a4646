package ingestion

import "fmt"

// InputError represents a problem with the target list or one of its rows.
type InputError struct {
	Path    string
	Line    int // 0 when the error concerns the whole file
	Message string
	Cause   error
}

func (e *InputError) Error() string {
	loc := e.Path
	if e.Line > 0 {
		loc = fmt.Sprintf("%s:%d", e.Path, e.Line)
	}
	if e.Cause != nil {
		return fmt.Sprintf("input error at %s: %s: %v", loc, e.Message, e.Cause)
	}
	return fmt.Sprintf("input error at %s: %s", loc, e.Message)
}

func (e *InputError) Unwrap() error {
	return e.Cause
}
