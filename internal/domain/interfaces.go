package domain

import (
	"context"
	"time"

	"stolik/internal/models"
)

// ReservationStore owns reservation persistence. The lifecycle service is
// the only writer; everything else reads.
type ReservationStore interface {
	CreateReservation(ctx context.Context, r *models.Reservation) error
	GetReservation(ctx context.Context, id string) (*models.Reservation, error)
	ListReservations(ctx context.Context, filter models.ReservationFilter) ([]models.Reservation, error)
	ListActiveByResourceDate(ctx context.Context, resourceID int64, date time.Time) ([]models.Reservation, error)
	ListExpiredPending(ctx context.Context, cutoff time.Time) ([]models.Reservation, error)
	TransitionStatus(ctx context.Context, id, to string) (*models.Reservation, error)
	DeleteReservation(ctx context.Context, id string) error
	GetDayOccupancy(ctx context.Context, resourceID int64, date time.Time) (*models.DayOccupancy, error)
}

// ResourceRegistry is the read-only feed of bookable resources.
type ResourceRegistry interface {
	GetResource(ctx context.Context, id int64) (*models.Resource, error)
	ListResources(ctx context.Context) ([]models.Resource, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// OccupancyCache stores day-occupancy snapshots for the availability read
// path and tracks per-client request budgets.
type OccupancyCache interface {
	GetOccupancy(ctx context.Context, resourceID int64, date time.Time) (*models.DayOccupancy, error)
	SetOccupancy(ctx context.Context, occ *models.DayOccupancy) error
	InvalidateOccupancy(ctx context.Context, resourceID int64, date time.Time) error
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// NotificationSender delivers a notification; formatting and transport are
// the collaborator's concern.
type NotificationSender interface {
	Send(ctx context.Context, n models.Notification) error
}

// ReservationService is the booking façade exposed to transports.
type ReservationService interface {
	Create(ctx context.Context, req CreateRequest) (*models.Reservation, error)
	Cancel(ctx context.Context, id string, actor models.Actor) (*models.Reservation, error)
	Complete(ctx context.Context, id string, actor models.Actor) (*models.Reservation, error)
	Delete(ctx context.Context, id string, actor models.Actor) error
	Get(ctx context.Context, id string) (*models.Reservation, error)
	List(ctx context.Context, filter models.ReservationFilter) ([]models.Reservation, error)
	Occupancy(ctx context.Context, resourceID int64, date time.Time) (*models.DayOccupancy, error)
}

// CreateRequest carries a booking request into the lifecycle service.
// Actor is who submits the request; staff may book on behalf of a guest,
// so it can differ from UserID. Zero value means the guest books themselves.
type CreateRequest struct {
	ResourceID int64
	Date       time.Time
	Start      int
	End        int
	PartySize  int64
	UserID     string
	Actor      models.Actor
}
