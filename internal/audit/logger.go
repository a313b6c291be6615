package audit

import (
	"context"

	"github.com/joshua-takyi/dishrated/internal/helpers"
	"github.com/joshua-takyi/dishrated/internal/models"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Logger writes one structured line per business transition on an event.
type Logger struct {
	log zerolog.Logger
}

func New(log zerolog.Logger) *Logger {
	return &Logger{
		log: log.With().Bool("audit", true).Logger(),
	}
}

// Nop discards all audit entries.
func Nop() *Logger {
	return &Logger{log: zerolog.Nop()}
}

func (l *Logger) EventCreated(ctx context.Context, e *models.Event, actor models.Actor) {
	l.log.Info().
		Str("action", "event_created").
		Str("event_id", e.ID.Hex()).
		Str("actor_id", actor.ID.Hex()).
		Str("actor_role", string(actor.Role)).
		Str("event_type", string(e.EventType)).
		Str("status", string(e.Status)).
		Str("approval_status", string(e.ApprovalStatus)).
		Str("request_id", helpers.RequestIDFromContext(ctx)).
		Msg("Event created")
}

func (l *Logger) EventUpdated(ctx context.Context, e *models.Event, actor models.Actor) {
	l.log.Info().
		Str("action", "event_updated").
		Str("event_id", e.ID.Hex()).
		Str("actor_id", actor.ID.Hex()).
		Str("status", string(e.Status)).
		Str("approval_status", string(e.ApprovalStatus)).
		Str("request_id", helpers.RequestIDFromContext(ctx)).
		Msg("Event updated")
}

func (l *Logger) EventDeleted(ctx context.Context, eventID primitive.ObjectID, actor models.Actor) {
	l.log.Warn().
		Str("action", "event_deleted").
		Str("event_id", eventID.Hex()).
		Str("actor_id", actor.ID.Hex()).
		Str("request_id", helpers.RequestIDFromContext(ctx)).
		Msg("Event deleted")
}

func (l *Logger) ParticipantAdded(ctx context.Context, eventID, truckID primitive.ObjectID, status models.ParticipationStatus, actor models.Actor) {
	l.log.Info().
		Str("action", "participant_added").
		Str("event_id", eventID.Hex()).
		Str("truck_id", truckID.Hex()).
		Str("status", string(status)).
		Str("actor_id", actor.ID.Hex()).
		Str("request_id", helpers.RequestIDFromContext(ctx)).
		Msg("Truck registered for event")
}

func (l *Logger) ParticipantRemoved(ctx context.Context, eventID, truckID primitive.ObjectID, actor models.Actor) {
	l.log.Info().
		Str("action", "participant_removed").
		Str("event_id", eventID.Hex()).
		Str("truck_id", truckID.Hex()).
		Str("actor_id", actor.ID.Hex()).
		Str("request_id", helpers.RequestIDFromContext(ctx)).
		Msg("Truck unregistered from event")
}

func (l *Logger) ParticipantStatusChanged(ctx context.Context, eventID, truckID primitive.ObjectID, status models.ParticipationStatus, actor models.Actor) {
	l.log.Info().
		Str("action", "participant_status_changed").
		Str("event_id", eventID.Hex()).
		Str("truck_id", truckID.Hex()).
		Str("status", string(status)).
		Str("actor_id", actor.ID.Hex()).
		Str("request_id", helpers.RequestIDFromContext(ctx)).
		Msg("Participant status changed")
}

func (l *Logger) EventApproved(ctx context.Context, eventID primitive.ObjectID, actor models.Actor, notes string) {
	l.log.Info().
		Str("action", "event_approved").
		Str("event_id", eventID.Hex()).
		Str("actor_id", actor.ID.Hex()).
		Str("notes", notes).
		Str("request_id", helpers.RequestIDFromContext(ctx)).
		Msg("Event approved")
}

func (l *Logger) EventRejected(ctx context.Context, eventID primitive.ObjectID, actor models.Actor, reason string) {
	l.log.Warn().
		Str("action", "event_rejected").
		Str("event_id", eventID.Hex()).
		Str("actor_id", actor.ID.Hex()).
		Str("reason", reason).
		Str("request_id", helpers.RequestIDFromContext(ctx)).
		Msg("Event rejected")
}
