// Package internal provides helpers shared by the runtime packages.
package internal

import (
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
)

type runtimeError struct{ error }

func (runtimeError) RuntimeError() {}

// WrapPanic adds stack trace information to a panic recovered in a worker.
// Workers convert the result into a task failure instead of repanicking, so
// the stack of the offending body function would otherwise be lost.
func WrapPanic(p interface{}) interface{} {
	if p != nil {
		s := fmt.Sprintf("%v\n%s\nrecovered at", p, debug.Stack())
		if _, isError := p.(error); isError {
			r := errors.New(s)
			if _, isRuntimeError := p.(runtime.Error); isRuntimeError {
				return runtimeError{r}
			}
			return r
		}
		return s
	}
	return nil
}
