package behavior

import (
	"fmt"
	"strings"
)

// Status is the result of a single node evaluation.
//
// The zero value is Running, which is also the status a tree records for a
// node that has not been evaluated yet.
type Status uint8

const (
	// Running means the node must be evaluated again on the next tick before
	// any of its siblings.
	Running Status = iota
	// Success is terminal for the current cycle.
	Success
	// Failure is terminal for the current cycle.
	Failure
)

// String returns the lower-case status name.
func (s Status) String() string {
	switch s {
	case Running:
		return "running"
	case Success:
		return "success"
	case Failure:
		return "failure"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// Valid reports whether s is one of the three defined statuses.
func (s Status) Valid() bool {
	return s <= Failure
}

// ParseStatus converts a case-insensitive status name into a Status.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "running":
		return Running, nil
	case "success":
		return Success, nil
	case "failure":
		return Failure, nil
	default:
		return Failure, fmt.Errorf("invalid status: %q", s)
	}
}
