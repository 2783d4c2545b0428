package launch

import "fmt"

// DuplicationError indicates that no new process could be created.
// Nothing has been reported and nothing needs cleanup.
type DuplicationError struct {
	Err error
}

func (e *DuplicationError) Error() string {
	return fmt.Sprintf("could not create process: %v", e.Err)
}

func (e *DuplicationError) Unwrap() error { return e.Err }

// SessionError indicates that the new process could not become a session
// leader. Only the new process observes it.
type SessionError struct {
	Err error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("could not create session: %v", e.Err)
}

func (e *SessionError) Unwrap() error { return e.Err }

// ExecError indicates that the program could not be loaded.
type ExecError struct {
	Op      string
	Program string
	Err     error
}

func (e *ExecError) Error() string {
	op := e.Op
	if op == "" {
		op = "exec"
	}
	return fmt.Sprintf("%s %s: %v", op, e.Program, e.Err)
}

func (e *ExecError) Unwrap() error { return e.Err }
