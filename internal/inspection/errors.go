package inspection

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("not found")

// NetworkError means a gateway or directory request never produced a usable
// answer. Local state is left as it was, so the call can be retried.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// PartialReason says which half of the save contract was violated.
type PartialReason string

const (
	// ReasonFailed: the backend reported failed task writes.
	ReasonFailed PartialReason = "failed"
	// ReasonIncomplete: fewer tasks saved than were sent.
	ReasonIncomplete PartialReason = "incomplete"
)

// PartialPersistenceError reports a save the backend accepted only in part.
// Local state has already been replaced by a reload when it is returned.
type PartialPersistenceError struct {
	MissionID string
	Reason    PartialReason
	Saved     int
	Total     int
	Failed    int
}

func (e *PartialPersistenceError) Error() string {
	return fmt.Sprintf("mission %s partially saved (%s): %d/%d tasks saved, %d failed",
		e.MissionID, e.Reason, e.Saved, e.Total, e.Failed)
}

// IsNetwork reports whether err is (or wraps) a NetworkError.
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// IsPartial reports whether err is (or wraps) a PartialPersistenceError.
func IsPartial(err error) bool {
	var pe *PartialPersistenceError
	return errors.As(err, &pe)
}
