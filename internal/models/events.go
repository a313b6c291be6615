package models

import (
	"encoding/json"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	EventsColName     = "events"
	FoodTrucksColName = "foodtrucks"
)

type EventType string

const (
	EventTypeCity  EventType = "city_event"
	EventTypeTruck EventType = "truck_event"
	EventTypeOffer EventType = "offer"
)

func (t EventType) Valid() bool {
	switch t {
	case EventTypeCity, EventTypeTruck, EventTypeOffer:
		return true
	}
	return false
}

type EventStatus string

const (
	EventStatusDraft     EventStatus = "draft"
	EventStatusPublished EventStatus = "published"
	EventStatusCancelled EventStatus = "cancelled"
	EventStatusCompleted EventStatus = "completed"
)

type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

type ParticipationStatus string

const (
	ParticipationPending   ParticipationStatus = "pending"
	ParticipationConfirmed ParticipationStatus = "confirmed"
	ParticipationDeclined  ParticipationStatus = "declined"
)

func (s ParticipationStatus) Valid() bool {
	switch s {
	case ParticipationPending, ParticipationConfirmed, ParticipationDeclined:
		return true
	}
	return false
}

// Role is the actor role carried in the access token.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleOwner Role = "owner"
	RoleUser  Role = "user"
)

type Coordinates struct {
	Lat float64 `bson:"lat" json:"lat" validate:"gte=-90,lte=90"`
	Lng float64 `bson:"lng" json:"lng" validate:"gte=-180,lte=180"`
}

type Location struct {
	Address     string       `bson:"address" json:"address" validate:"required,max=300"`
	Coordinates *Coordinates `bson:"coordinates,omitempty" json:"coordinates,omitempty"`
}

type ParticipatingTruck struct {
	Truck       primitive.ObjectID  `bson:"truck" json:"truck"`
	Status      ParticipationStatus `bson:"status" json:"status"`
	ConfirmedAt time.Time           `bson:"confirmedAt" json:"confirmedAt"`
}

type Event struct {
	ID                   primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Title                string               `bson:"title" json:"title"`
	Description          string               `bson:"description" json:"description"`
	Image                string               `bson:"image,omitempty" json:"image,omitempty"`
	Date                 time.Time            `bson:"date" json:"date"`
	EndDate              *time.Time           `bson:"endDate,omitempty" json:"endDate,omitempty"`
	Location             Location             `bson:"location" json:"location"`
	EventType            EventType            `bson:"eventType" json:"eventType"`
	Organizer            primitive.ObjectID   `bson:"organizer" json:"organizer"`
	OrganizerType        Role                 `bson:"organizerType" json:"organizerType"`
	ParticipatingTrucks  []ParticipatingTruck `bson:"participatingTrucks" json:"participatingTrucks"`
	MaxParticipants      *int                 `bson:"maxParticipants,omitempty" json:"maxParticipants,omitempty"`
	RegistrationDeadline *time.Time           `bson:"registrationDeadline,omitempty" json:"registrationDeadline,omitempty"`
	Status               EventStatus          `bson:"status" json:"status"`
	ApprovalStatus       ApprovalStatus       `bson:"approvalStatus" json:"approvalStatus"`
	ApprovedBy           *primitive.ObjectID  `bson:"approvedBy,omitempty" json:"approvedBy,omitempty"`
	ApprovedAt           *time.Time           `bson:"approvedAt,omitempty" json:"approvedAt,omitempty"`
	ApprovalNotes        string               `bson:"approvalNotes,omitempty" json:"approvalNotes,omitempty"`
	RejectionReason      string               `bson:"rejectionReason,omitempty" json:"rejectionReason,omitempty"`
	Featured             bool                 `bson:"featured" json:"featured"`
	Tags                 []string             `bson:"tags,omitempty" json:"tags,omitempty"`
	Version              int64                `bson:"version" json:"-"`
	CreatedAt            time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt            time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// InitialStates decides the lifecycle and approval status of a new event.
// Only city events proposed by truck owners go through moderation.
func InitialStates(eventType EventType, organizerType Role) (EventStatus, ApprovalStatus, error) {
	if !eventType.Valid() {
		return "", "", NewValidationError("invalid event type", map[string]string{"eventType": fmt.Sprintf("unsupported value %q", eventType)})
	}
	switch organizerType {
	case RoleAdmin:
		return EventStatusPublished, ApprovalApproved, nil
	case RoleOwner:
		if eventType == EventTypeCity {
			return EventStatusDraft, ApprovalPending, nil
		}
		return EventStatusPublished, ApprovalApproved, nil
	default:
		return "", "", NewForbidden("only admins and truck owners can organize events")
	}
}

// ParticipantCount is the number of confirmed trucks.
func (e *Event) ParticipantCount() int {
	n := 0
	for _, p := range e.ParticipatingTrucks {
		if p.Status == ParticipationConfirmed {
			n++
		}
	}
	return n
}

// AvailableSpots returns nil for events without a participant cap.
func (e *Event) AvailableSpots() *int {
	if e.MaxParticipants == nil {
		return nil
	}
	spots := *e.MaxParticipants - e.ParticipantCount()
	return &spots
}

func (e *Event) IsPubliclyVisible() bool {
	return e.Status == EventStatusPublished && e.ApprovalStatus == ApprovalApproved
}

func (e *Event) IsOrganizer(userID primitive.ObjectID) bool {
	return !userID.IsZero() && e.Organizer == userID
}

// ChangeEventType re-runs the creation routing for the new type, so a
// change into or out of city_event moves the event through moderation
// again. Approval metadata is cleared when the approval state changes.
// Cancelled and completed events only change type.
func (e *Event) ChangeEventType(newType EventType, now time.Time) error {
	if newType == e.EventType {
		return nil
	}
	if e.ApprovalStatus == ApprovalRejected {
		return NewBusinessRule("Rejected events cannot change type.")
	}
	status, approval, err := InitialStates(newType, e.OrganizerType)
	if err != nil {
		return err
	}

	e.EventType = newType
	e.UpdatedAt = now
	// Closed events are not moderated again.
	if e.Status == EventStatusCancelled || e.Status == EventStatusCompleted {
		return nil
	}

	// The status only moves when moderation is added or lifted.
	switch {
	case approval == ApprovalPending:
		e.Status = EventStatusDraft
	case e.ApprovalStatus == ApprovalPending:
		e.Status = status
	}
	if approval != e.ApprovalStatus {
		e.ApprovalStatus = approval
		e.ApprovedBy = nil
		e.ApprovedAt = nil
		e.ApprovalNotes = ""
		e.RejectionReason = ""
	}
	return nil
}

// MarshalJSON adds the derived participation fields.
func (e Event) MarshalJSON() ([]byte, error) {
	type event Event
	return json.Marshal(struct {
		event
		ParticipantCount int  `json:"participantCount"`
		AvailableSpots   *int `json:"availableSpots,omitempty"`
	}{
		event:            event(e),
		ParticipantCount: e.ParticipantCount(),
		AvailableSpots:   e.AvailableSpots(),
	})
}

// FoodTruck is the subset of the truck document this service reads.
type FoodTruck struct {
	ID    primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Owner primitive.ObjectID `bson:"owner" json:"owner"`
	Name  string             `bson:"name" json:"name"`
}
