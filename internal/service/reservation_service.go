package service

import (
	"context"
	"errors"
	"time"

	"stolik/internal/admission"
	"stolik/internal/database"
	"stolik/internal/domain"
	"stolik/internal/events"
	"stolik/internal/metrics"
	"stolik/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrNotAuthorized is returned when the actor lacks rights for the requested
// transition. Policy lives in the access-control collaborator; this is only
// the enforcement point.
var ErrNotAuthorized = errors.New("actor is not authorized for this operation")

// ReservationService owns the reservation state machine and the concurrency
// discipline around admission. It is the single writer of the store and the
// single caller of the admission validator.
type ReservationService struct {
	store    domain.ReservationStore
	registry domain.ResourceRegistry
	eventBus domain.EventPublisher
	cache    domain.OccupancyCache
	locks    *slotLocks
	logger   *zerolog.Logger
}

func NewReservationService(
	store domain.ReservationStore,
	registry domain.ResourceRegistry,
	eventBus domain.EventPublisher,
	cache domain.OccupancyCache,
	logger *zerolog.Logger,
) *ReservationService {
	return &ReservationService{
		store:    store,
		registry: registry,
		eventBus: eventBus,
		cache:    cache,
		locks:    newSlotLocks(),
		logger:   logger,
	}
}

// Create admits and persists a new reservation. The read-decide-write
// sequence runs under the (resource, date) partition lock, so two racing
// requests for overlapping intervals can never both be admitted: the loser
// re-reads a conflict set that already contains the winner.
func (s *ReservationService) Create(ctx context.Context, req domain.CreateRequest) (*models.Reservation, error) {
	unlock := s.locks.acquire(slotKey(req.ResourceID, req.Date))
	defer unlock()

	// A missing resource is an admission outcome (ResourceUnavailable), not
	// an infrastructure failure; the validator handles the nil resource.
	resource, err := s.registry.GetResource(ctx, req.ResourceID)
	if err != nil && !errors.Is(err, database.ErrResourceNotFound) {
		return nil, err
	}

	existing, err := s.store.ListActiveByResourceDate(ctx, req.ResourceID, req.Date)
	if err != nil {
		return nil, err
	}

	candidate := admission.Candidate{
		ResourceID: req.ResourceID,
		Date:       req.Date,
		Start:      req.Start,
		End:        req.End,
		PartySize:  req.PartySize,
		UserID:     req.UserID,
	}
	if err := admission.Decide(candidate, resource, existing); err != nil {
		metrics.IncAdmission(admissionOutcome(err))
		s.logger.Debug().
			Err(err).
			Int64("resource_id", req.ResourceID).
			Str("date", req.Date.Format(models.DateLayout)).
			Msg("admission rejected")
		return nil, err
	}

	r := &models.Reservation{
		ID:           uuid.NewString(),
		ResourceID:   resource.ID,
		ResourceName: resource.Name,
		Date:         req.Date,
		Start:        req.Start,
		End:          req.End,
		PartySize:    req.PartySize,
		UserID:       req.UserID,
		Status:       models.StatusPending,
	}
	if err := s.store.CreateReservation(ctx, r); err != nil {
		return nil, err
	}

	metrics.IncAdmission("admitted")
	s.afterChange(ctx, events.EventReservationCreated, r, creatingActor(req))

	return r, nil
}

// creatingActor resolves who placed the booking. Staff booking on behalf of
// a guest keep their own identity and role in the emitted event.
func creatingActor(req domain.CreateRequest) models.Actor {
	if req.Actor.UserID != "" {
		return req.Actor
	}
	return models.Actor{UserID: req.UserID, Role: models.RoleClient}
}

// Cancel moves a pending reservation to canceled. Owners and privileged
// roles may cancel. Runs under the partition lock so a concurrent Create
// never decides against a half-applied cancellation.
func (s *ReservationService) Cancel(ctx context.Context, id string, actor models.Actor) (*models.Reservation, error) {
	current, err := s.store.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}

	if !actor.IsPrivileged() && !actor.Owns(current) {
		return nil, ErrNotAuthorized
	}

	unlock := s.locks.acquire(slotKey(current.ResourceID, current.Date))
	defer unlock()

	updated, err := s.store.TransitionStatus(ctx, id, models.StatusCanceled)
	if err != nil {
		return nil, err
	}

	metrics.IncTransition(models.StatusCanceled)
	s.afterChange(ctx, events.EventReservationCanceled, updated, actor)
	return updated, nil
}

// Complete marks a pending reservation as completed. Administrative only.
func (s *ReservationService) Complete(ctx context.Context, id string, actor models.Actor) (*models.Reservation, error) {
	if !actor.IsPrivileged() {
		return nil, ErrNotAuthorized
	}

	current, err := s.store.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.acquire(slotKey(current.ResourceID, current.Date))
	defer unlock()

	updated, err := s.store.TransitionStatus(ctx, id, models.StatusCompleted)
	if err != nil {
		return nil, err
	}

	metrics.IncTransition(models.StatusCompleted)
	s.afterChange(ctx, events.EventReservationCompleted, updated, actor)
	return updated, nil
}

// Delete removes a reservation outright. Owners may only delete terminal
// reservations; privileged actors bypass the lifecycle entirely. No conflict
// re-validation: the record is leaving the store.
func (s *ReservationService) Delete(ctx context.Context, id string, actor models.Actor) error {
	current, err := s.store.GetReservation(ctx, id)
	if err != nil {
		return err
	}

	if !actor.IsPrivileged() {
		if !actor.Owns(current) {
			return ErrNotAuthorized
		}
		if !current.IsTerminal() {
			return database.ErrNotTerminal
		}
	}

	if err := s.store.DeleteReservation(ctx, id); err != nil {
		return err
	}

	s.invalidateOccupancy(ctx, current)
	return nil
}

func (s *ReservationService) Get(ctx context.Context, id string) (*models.Reservation, error) {
	return s.store.GetReservation(ctx, id)
}

// List reads settled reservations; no partition lock needed.
func (s *ReservationService) List(ctx context.Context, filter models.ReservationFilter) ([]models.Reservation, error) {
	return s.store.ListReservations(ctx, filter)
}

// Occupancy serves the availability read model, cache first.
func (s *ReservationService) Occupancy(ctx context.Context, resourceID int64, date time.Time) (*models.DayOccupancy, error) {
	if s.cache != nil {
		if occ, err := s.cache.GetOccupancy(ctx, resourceID, date); err == nil && occ != nil {
			return occ, nil
		}
	}

	occ, err := s.store.GetDayOccupancy(ctx, resourceID, date)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetOccupancy(ctx, occ); err != nil {
			s.logger.Warn().Err(err).Int64("resource_id", resourceID).Msg("occupancy cache set failed")
		}
	}
	return occ, nil
}

// CompleteExpired transitions every pending reservation older than the
// cutoff. Used by the background sweeper with the system actor.
func (s *ReservationService) CompleteExpired(ctx context.Context, cutoff time.Time) (int, error) {
	expired, err := s.store.ListExpiredPending(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	completed := 0
	for i := range expired {
		if _, err := s.Complete(ctx, expired[i].ID, models.SystemActor); err != nil {
			s.logger.Error().Err(err).Str("reservation_id", expired[i].ID).Msg("auto-complete failed")
			continue
		}
		completed++
	}
	return completed, nil
}

func (s *ReservationService) afterChange(ctx context.Context, eventType string, r *models.Reservation, actor models.Actor) {
	s.invalidateOccupancy(ctx, r)
	s.publishEvent(eventType, r, actor)
}

func (s *ReservationService) invalidateOccupancy(ctx context.Context, r *models.Reservation) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateOccupancy(ctx, r.ResourceID, r.Date); err != nil {
		s.logger.Warn().Err(err).Str("reservation_id", r.ID).Msg("occupancy cache invalidate failed")
	}
}

func (s *ReservationService) publishEvent(eventType string, r *models.Reservation, actor models.Actor) {
	if s.eventBus == nil {
		return
	}

	payload := events.ReservationEventPayload{
		ReservationID: r.ID,
		ResourceID:    r.ResourceID,
		ResourceName:  r.ResourceName,
		Date:          r.Date,
		Start:         r.Start,
		End:           r.End,
		PartySize:     r.PartySize,
		UserID:        r.UserID,
		Status:        r.Status,
		ChangedBy:     actor.UserID,
		ChangedByRole: actor.Role,
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Str("reservation_id", r.ID).Msg("publish event error")
	}
}

func admissionOutcome(err error) string {
	switch {
	case errors.Is(err, admission.ErrInvalidInterval):
		return "invalid_interval"
	case errors.Is(err, admission.ErrResourceUnavailable):
		return "resource_unavailable"
	case errors.Is(err, admission.ErrCapacityExceeded):
		return "capacity_exceeded"
	case errors.Is(err, admission.ErrSlotConflict):
		return "slot_conflict"
	default:
		return "error"
	}
}
