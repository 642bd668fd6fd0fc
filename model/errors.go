package model

import "fmt"

type NotFoundError struct {
	Kind string
	ID   string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

type DuplicateError struct {
	Kind string
	ID   string
}

func (e DuplicateError) Error() string {
	return fmt.Sprintf("%s %s already exists", e.Kind, e.ID)
}

type ValidationError struct {
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid workflow definition: %s", e.Reason)
}

type InvalidTransitionError struct {
	WorkflowID string
	State      string
	Event      string
	Reason     string
}

func (e InvalidTransitionError) Error() string {
	return fmt.Sprintf("workflow %s: event %q rejected in state %q: %s", e.WorkflowID, e.Event, e.State, e.Reason)
}

// ExecutionError covers entry-action failures: non-zero exit, timeout,
// dependency install failure. It is logged or routed to onErrorEvent, never
// returned to the transition caller.
type ExecutionError struct {
	WorkflowID string
	State      string
	Reason     string
	Err        error
}

func (e ExecutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("workflow %s state %s: %s: %v", e.WorkflowID, e.State, e.Reason, e.Err)
	}
	return fmt.Sprintf("workflow %s state %s: %s", e.WorkflowID, e.State, e.Reason)
}

func (e ExecutionError) Unwrap() error {
	return e.Err
}
