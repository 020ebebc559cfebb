package deliberation

import (
	"fmt"
	"strings"
)

// ValidationError reports malformed input on a submission or update. It is
// never retried; the caller fixes the input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func validationf(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// PreconditionError reports a consensus calculation attempted before every
// panel advisor responded. It carries both sides of the roster so the caller
// can say exactly who is outstanding. Nothing is written when this is returned.
type PreconditionError struct {
	Responded []string
	Missing   []string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("consensus requires a response from every advisor; missing: %s",
		strings.Join(e.Missing, ", "))
}
