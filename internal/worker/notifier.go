package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"stolik/internal/domain"
	"stolik/internal/events"
	"stolik/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Notifier consumes reservation events and delivers user-facing
// notifications through the configured sender. Delivery is asynchronous
// behind a channel queue; failed deliveries are retried with backoff and
// parked on the redis dead-letter list when the budget runs out.
type Notifier struct {
	sender        domain.NotificationSender
	redis         *redis.Client
	retryPolicy   RetryPolicy
	queue         chan models.Notification
	deadLetterKey string
	logger        zerolog.Logger
}

func NewNotifier(sender domain.NotificationSender, redisClient *redis.Client, retry RetryPolicy, queueSize int, logger *zerolog.Logger) *Notifier {
	retry = retry.withDefaults()
	if queueSize <= 0 {
		queueSize = models.NotifyQueueSize
	}

	base := zerolog.Nop()
	if logger != nil {
		base = logger.With().Str("component", "notifier").Logger()
	}

	return &Notifier{
		sender:        sender,
		redis:         redisClient,
		retryPolicy:   retry,
		queue:         make(chan models.Notification, queueSize),
		deadLetterKey: "notifications:deadletter",
		logger:        base,
	}
}

// Bind subscribes the notifier to the reservation lifecycle events.
func (n *Notifier) Bind(bus *events.EventBus) {
	bus.Subscribe(events.EventReservationCreated, n.onEvent)
	bus.Subscribe(events.EventReservationCanceled, n.onEvent)
	bus.Subscribe(events.EventReservationCompleted, n.onEvent)
}

func (n *Notifier) onEvent(event *events.Event) error {
	var payload events.ReservationEventPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return fmt.Errorf("decode event payload: %w", err)
	}

	notification := models.Notification{
		Type:          models.NotificationEmail,
		Message:       messageFor(event.Type, payload),
		ReservationID: payload.ReservationID,
		UserID:        payload.UserID,
		CreatedAt:     time.Now(),
	}

	select {
	case n.queue <- notification:
	default:
		n.logger.Warn().Str("reservation_id", payload.ReservationID).Msg("notification queue full, dropping")
	}
	return nil
}

func messageFor(eventType string, p events.ReservationEventPayload) string {
	date := p.Date.Format(models.DateLayout)
	span := fmt.Sprintf("%s-%s", models.FormatClock(p.Start), models.FormatClock(p.End))

	switch eventType {
	case events.EventReservationCreated:
		return fmt.Sprintf("Your reservation for %s on %s (%s) is confirmed.", p.ResourceName, date, span)
	case events.EventReservationCanceled:
		return fmt.Sprintf("Your reservation for %s on %s (%s) was canceled.", p.ResourceName, date, span)
	case events.EventReservationCompleted:
		return fmt.Sprintf("Thank you for visiting! Your reservation for %s on %s is complete.", p.ResourceName, date)
	default:
		return fmt.Sprintf("Your reservation for %s on %s was updated.", p.ResourceName, date)
	}
}

// Start launches the delivery loop; stops when ctx is done.
func (n *Notifier) Start(ctx context.Context) {
	n.logger.Info().Msg("notifier started")
	defer n.logger.Info().Msg("notifier stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case notification := <-n.queue:
			n.deliver(ctx, notification)
		}
	}
}

func (n *Notifier) deliver(ctx context.Context, notification models.Notification) {
	var lastErr error
	for attempt := 1; attempt <= n.retryPolicy.MaxRetries; attempt++ {
		lastErr = n.sender.Send(ctx, notification)
		if lastErr == nil {
			return
		}

		n.logger.Warn().
			Err(lastErr).
			Int("attempt", attempt).
			Str("reservation_id", notification.ReservationID).
			Msg("notification delivery failed")

		if attempt == n.retryPolicy.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(n.retryPolicy.NextDelay(attempt)):
		}
	}

	n.pushDeadLetter(ctx, notification, lastErr)
}

func (n *Notifier) pushDeadLetter(ctx context.Context, notification models.Notification, cause error) {
	n.logger.Error().
		Err(cause).
		Str("reservation_id", notification.ReservationID).
		Msg("notification delivery exhausted retries")

	if n.redis == nil {
		return
	}
	data, err := json.Marshal(notification)
	if err != nil {
		n.logger.Error().Err(err).Msg("encode deadletter notification")
		return
	}
	if err := n.redis.LPush(ctx, n.deadLetterKey, data).Err(); err != nil {
		n.logger.Error().Err(err).Msg("deadletter push failed")
	}
}
