// Package fault classifies run errors as fatal (the run stops) or
// recoverable (the failure is isolated to one entry, click or side channel).
package fault

import "errors"

// Kind is the severity of a fault.
type Kind int

const (
	Recoverable Kind = iota
	Fatal
)

func (k Kind) String() string {
	if k == Fatal {
		return "fatal"
	}
	return "recoverable"
}

// Error wraps an underlying error with the operation that failed and its Kind.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// NewFatal wraps err as a fatal fault.
func NewFatal(op string, err error) error {
	return &Error{Kind: Fatal, Op: op, Err: err}
}

// NewRecoverable wraps err as a recoverable fault.
func NewRecoverable(op string, err error) error {
	return &Error{Kind: Recoverable, Op: op, Err: err}
}

// IsFatal reports whether any error in err's chain is a fatal fault.
func IsFatal(err error) bool {
	var f *Error
	if errors.As(err, &f) {
		return f.Kind == Fatal
	}
	return false
}
