package models

import "time"

type Reservation struct {
	ID           string    `json:"id"`
	ResourceID   int64     `json:"resource_id"` // 0 after the resource is deleted
	ResourceName string    `json:"resource_name"`
	Date         time.Time `json:"date"`
	Start        int       `json:"start"`
	End          int       `json:"end"`
	PartySize    int64     `json:"party_size"`
	UserID       string    `json:"user_id"`
	Status       string    `json:"status"` // pending, completed, canceled
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Version      int64     `json:"version"`
}

// Interval returns the reservation's time span for overlap checks.
func (r *Reservation) Interval() Interval {
	return Interval{Date: r.Date, Start: r.Start, End: r.End}
}

// IsActive reports whether the reservation still occupies its slot.
// Canceled reservations free the slot; completed ones keep it.
func (r *Reservation) IsActive() bool {
	return r.Status == StatusPending || r.Status == StatusCompleted
}

// IsTerminal reports whether the reservation reached a final status.
func (r *Reservation) IsTerminal() bool {
	return IsTerminalStatus(r.Status)
}

// ReservationFilter narrows list queries. Zero values mean "any".
type ReservationFilter struct {
	ResourceID int64
	Date       time.Time
	Status     string
	UserID     string
}
