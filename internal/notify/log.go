package notify

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// LogNotifier writes events to the log instead of delivering them. Used in
// memory-store mode and as a stand-in when no broker is configured.
type LogNotifier struct {
	log zerolog.Logger
}

func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(ctx context.Context, ev Event) error {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now()
	}
	n.log.Info().
		Str("event", string(ev.Type)).
		Str("appointment_id", ev.AppointmentID.String()).
		Str("provider_id", ev.ProviderID.String()).
		Str("requester_id", ev.RequesterID.String()).
		Str("date", ev.Date).
		Str("start_time", ev.StartTime).
		Msg("notification event")
	return nil
}
