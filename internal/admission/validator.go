// Package admission decides whether a candidate reservation may be accepted.
// It is a pure decision layer: it never writes, and it is the only place the
// capacity and overlap rules live. The lifecycle service is its sole caller.
package admission

import (
	"errors"
	"fmt"
	"time"

	"stolik/internal/models"
)

var (
	ErrInvalidInterval     = errors.New("reservation end must be after start")
	ErrResourceUnavailable = errors.New("resource is closed or does not exist")
	ErrCapacityExceeded    = errors.New("party size exceeds resource capacity")
	ErrSlotConflict        = errors.New("slot conflicts with an active reservation")
)

// ConflictError carries the identity of the reservation that blocked
// admission. errors.Is(err, ErrSlotConflict) holds for it.
type ConflictError struct {
	ReservationID string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("slot conflicts with active reservation %s", e.ReservationID)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrSlotConflict
}

// Candidate is a reservation request before it has an identity or a status.
type Candidate struct {
	ResourceID int64
	Date       time.Time
	Start      int
	End        int
	PartySize  int64
	UserID     string
}

// Interval returns the candidate's time span.
func (c Candidate) Interval() models.Interval {
	return models.Interval{Date: c.Date, Start: c.Start, End: c.End}
}

// Decide checks the candidate against the resource and the existing
// reservations for that resource/date. Checks run in a fixed order and stop
// at the first failure so callers surface a precise reason:
//
//  1. the interval must have positive length
//  2. the resource must exist and be available
//  3. the party must fit the capacity
//  4. no active (pending or completed) reservation may overlap
//
// Canceled reservations never count against the slot. A nil return admits
// the candidate; persistence is the caller's job.
func Decide(c Candidate, resource *models.Resource, existing []models.Reservation) error {
	if !c.Interval().Valid() {
		return ErrInvalidInterval
	}

	if !resource.IsAvailable() {
		return ErrResourceUnavailable
	}

	if c.PartySize > resource.Capacity {
		return ErrCapacityExceeded
	}

	candidate := c.Interval()
	for i := range existing {
		r := &existing[i]
		if !r.IsActive() {
			continue
		}
		if models.Overlaps(candidate, r.Interval()) {
			return &ConflictError{ReservationID: r.ID}
		}
	}

	return nil
}
