package database

import (
	"errors"
	"fmt"
)

// ErrUnsafeStatement marks a candidate that failed the read-only guard. It
// is raised before any execution attempt and is retryable: the agent feeds
// it back to the model like any other execution failure.
var ErrUnsafeStatement = errors.New("only read-only statements are allowed")

// ExecError is a statement-level failure surfaced by the database driver.
// Retryable: the diagnostic text is handed to the model for refinement.
type ExecError struct {
	SQL string
	Err error
}

func (e *ExecError) Error() string {
	return e.Err.Error()
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

// ConnectivityError means the target database cannot be reached or opened.
// Fatal to a run; the self-correction loop never retries it.
type ConnectivityError struct {
	Op  string
	Err error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ConnectivityError) Unwrap() error {
	return e.Err
}
