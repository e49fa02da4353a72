package panicerr

import (
	"errors"
	"fmt"
)

// Halt aborts the calling goroutine's current Recover call with err.
// Unlike a plain panic, no stack is captured: a halt is an expected way for
// a machine to stop.
func Halt(err error) {
	panic(haltError{err})
}

type haltError struct{ error }

func (err haltError) Error() string {
	if err.error != nil {
		return fmt.Sprintf("halted: %v", err.error)
	}
	return "halted"
}

func (err haltError) Unwrap() error { return err.error }

// HaltCause returns the error passed to Halt, and true, if err came from a
// recovered Halt; a nil cause means a clean halt.
func HaltCause(err error) (error, bool) {
	var he haltError
	if errors.As(err, &he) {
		return he.error, true
	}
	return nil, false
}
