package models

import "time"

const (
	NotificationEmail = "email"
	NotificationSMS   = "sms"
)

// Notification is a fire-and-forget message about a reservation change.
// Delivery and formatting belong to the sender collaborator.
type Notification struct {
	Type          string    `json:"type"`
	Message       string    `json:"message"`
	ReservationID string    `json:"reservation_id"`
	UserID        string    `json:"user_id"`
	CreatedAt     time.Time `json:"created_at"`
}
