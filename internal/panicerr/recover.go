// Package panicerr turns panics and goroutine exits into returned errors, so
// that code which must stop abruptly, like a virtual machine hitting a fatal
// fault, can do so without threading errors through every frame.
package panicerr

import (
	"errors"
	"fmt"
)

// Recover runs f in a new goroutine, waiting for it to finish, and converts
// any abnormal exit into a non-nil error: a Halt becomes its halt error, any
// other panic becomes an error carrying the panic value and stack.
func Recover(name string, f func() error) error {
	errch := make(chan error, 1)
	go func() {
		defer close(errch)
		defer recoverExitError(name, errch)
		defer recoverPanicError(name, errch)
		errch <- f()
	}()
	return <-errch
}

func recoverExitError(name string, errch chan<- error) {
	select {
	case errch <- exitError(name):
	default:
		// the happy path, or a recovered panic, already sent
	}
}

type exitError string

func (name exitError) Error() string {
	if name == "" {
		return "runtime.Goexit called"
	}
	return fmt.Sprintf("%v called runtime.Goexit", string(name))
}

// IsExit returns true if err indicates a recovered goroutine exit.
func IsExit(err error) bool {
	var xe exitError
	return errors.As(err, &xe)
}
