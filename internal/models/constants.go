package models

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusCanceled  = "canceled"
)

const (
	KindTable  = "table"
	KindSaloon = "saloon"
)

const (
	ResourceAvailable   = "available"
	ResourceUnavailable = "unavailable"
)

const (
	RoleClient    = "client"
	RoleManager   = "manager"
	RoleAdmin     = "admin"
	RoleSuperuser = "superuser"
)

// DateLayout is the canonical day format used in storage and cache keys.
const DateLayout = "2006-01-02"

const (
	// DefaultOccupancyTTL время жизни кэша занятости в Redis (секунды)
	DefaultOccupancyTTL = 5 * 60

	// NotifyQueueSize размер очереди уведомлений
	NotifyQueueSize = 256

	// RateLimitRequests количество запросов в окне
	RateLimitRequests = 30

	// RateLimitWindow окно ограничения частоты запросов (секунды)
	RateLimitWindow = 60
)

// IsTerminalStatus reports whether no further transition may leave the status.
func IsTerminalStatus(status string) bool {
	return status == StatusCompleted || status == StatusCanceled
}

// IsValidStatus reports whether the status is one of the known lifecycle states.
func IsValidStatus(status string) bool {
	switch status {
	case StatusPending, StatusCompleted, StatusCanceled:
		return true
	}
	return false
}
