package scheduler

import (
	"errors"
	"fmt"
)

// ErrClosed is returned by Submit after the scheduler has been closed.
var ErrClosed = errors.New("scheduler: closed")

// A FatalError aggregates the first failure observed while running a task.
// Individual worker failures are not distinguished: the first subtask error
// or recovered panic trips the task's error flag, the remaining subtasks are
// skipped, and the submitter receives this single error. The failed task's
// partial output is unspecified; resubmission is up to the caller.
type FatalError struct {
	// Task is the name of the failed task, if it had one.
	Task string
	// Err is the first failure.
	Err error
}

func (e *FatalError) Error() string {
	if e.Task == "" {
		return fmt.Sprintf("scheduler: task failed: %v", e.Err)
	}
	return fmt.Sprintf("scheduler: task %q failed: %v", e.Task, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }
