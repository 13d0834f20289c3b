package worker

import (
	"context"

	"stolik/internal/models"

	"github.com/rs/zerolog"
)

// LogSender writes notifications to the application log. Stands in for a
// real mail or SMS gateway in environments that have none configured.
type LogSender struct {
	logger zerolog.Logger
}

func NewLogSender(logger *zerolog.Logger) *LogSender {
	base := zerolog.Nop()
	if logger != nil {
		base = logger.With().Str("component", "notification_sender").Logger()
	}
	return &LogSender{logger: base}
}

func (s *LogSender) Send(ctx context.Context, n models.Notification) error {
	s.logger.Info().
		Str("type", n.Type).
		Str("user_id", n.UserID).
		Str("reservation_id", n.ReservationID).
		Str("message", n.Message).
		Msg("notification sent")
	return nil
}
