// Package workflow holds the status rules shared by workflows, steps and tasks.
// It has no storage dependencies; services apply the returned Transition to their rows.
package workflow

import (
	"errors"
	"time"
)

// Status is the lifecycle state of a workflow, step or task
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
)

var (
	// ErrInvalidTransition is returned for backward moves and moves out of a terminal state
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrWorkflowClosed is returned when a step or task of a finished workflow is changed
	ErrWorkflowClosed = errors.New("workflow is closed")
	// ErrUnknownStatus is returned for a status string outside the known set
	ErrUnknownStatus = errors.New("unknown status")
)

// ParseStatus converts a request value into a Status
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusInProgress, StatusCompleted, StatusCancelled:
		return Status(s), nil
	}
	return "", ErrUnknownStatus
}

// ParseItemStatus is ParseStatus restricted to the states a step or task may take
func ParseItemStatus(s string) (Status, error) {
	st, err := ParseStatus(s)
	if err != nil {
		return "", err
	}
	if st == StatusCancelled {
		return "", ErrInvalidTransition
	}
	return st, nil
}

// IsTerminal reports whether no further transition is allowed out of s
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransition reports whether from -> to is a forward move.
// PENDING may jump straight to COMPLETED; CANCELLED is reachable from any open state.
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	switch from {
	case StatusPending:
		return to == StatusInProgress || to == StatusCompleted || to == StatusCancelled
	case StatusInProgress:
		return to == StatusCompleted || to == StatusCancelled
	}
	return false
}

// Transition is the result of moving an item to a new status
type Transition struct {
	Status      Status
	StartedAt   *time.Time
	CompletedAt *time.Time
	// Duration is whole minutes between StartedAt and CompletedAt, nil when never started
	Duration *int
	// Started is true when this transition stamped StartedAt
	Started bool
	Changed bool
}

// Advance computes the new timestamps for an item moving from -> to at now.
// A same-status move is a no-op.
func Advance(from, to Status, startedAt, completedAt *time.Time, now time.Time) (Transition, error) {
	t := Transition{Status: from, StartedAt: startedAt, CompletedAt: completedAt}
	if from == to {
		return t, nil
	}
	if !CanTransition(from, to) {
		return t, ErrInvalidTransition
	}

	t.Status = to
	t.Changed = true

	switch to {
	case StatusInProgress:
		if t.StartedAt == nil {
			stamp := now
			t.StartedAt = &stamp
			t.Started = true
		}
	case StatusCompleted:
		stamp := now
		t.CompletedAt = &stamp
		if t.StartedAt != nil {
			minutes := ElapsedMinutes(*t.StartedAt, now)
			t.Duration = &minutes
		}
	case StatusCancelled:
		stamp := now
		t.CompletedAt = &stamp
	}
	return t, nil
}

// ElapsedMinutes returns floor((to - from) / 1m), clamped at zero
func ElapsedMinutes(from, to time.Time) int {
	d := to.Sub(from)
	if d <= 0 {
		return 0
	}
	return int(d / time.Minute)
}

// WaitMinutes is the idle time between the previous step finishing and now.
// Returns nil for the first step or when the previous step never completed.
func WaitMinutes(previousCompletedAt *time.Time, now time.Time) *int {
	if previousCompletedAt == nil {
		return nil
	}
	m := ElapsedMinutes(*previousCompletedAt, now)
	return &m
}

// GuardItemChange rejects step/task changes once the parent workflow is terminal
func GuardItemChange(workflowStatus Status) error {
	if workflowStatus.IsTerminal() {
		return ErrWorkflowClosed
	}
	return nil
}

// RollUp derives the workflow status implied by its step statuses.
// It returns the current status unchanged when nothing needs to move.
func RollUp(current Status, steps []Status) Status {
	if current.IsTerminal() || len(steps) == 0 {
		return current
	}
	allDone := true
	anyStarted := false
	for _, s := range steps {
		if s != StatusCompleted {
			allDone = false
		}
		if s == StatusInProgress || s == StatusCompleted {
			anyStarted = true
		}
	}
	if allDone {
		return StatusCompleted
	}
	if anyStarted && current == StatusPending {
		return StatusInProgress
	}
	return current
}
