package models

import "time"

type CreateEventInput struct {
	Title                string     `json:"title" validate:"required,min=3,max=120"`
	Description          string     `json:"description" validate:"required,max=2000"`
	Image                string     `json:"image" validate:"omitempty,url"`
	Date                 time.Time  `json:"date" validate:"required"`
	EndDate              *time.Time `json:"endDate"`
	Location             Location   `json:"location"`
	EventType            EventType  `json:"eventType" validate:"required,oneof=city_event truck_event offer"`
	MaxParticipants      *int       `json:"maxParticipants" validate:"omitempty,min=1"`
	RegistrationDeadline *time.Time `json:"registrationDeadline"`
	Featured             bool       `json:"featured"`
	Tags                 []string   `json:"tags" validate:"omitempty,max=10,dive,max=40"`
}

// UpdateEventInput lists every field an organizer may change. Anything
// else in the request body is ignored.
type UpdateEventInput struct {
	Title                *string      `json:"title" validate:"omitempty,min=3,max=120"`
	Description          *string      `json:"description" validate:"omitempty,max=2000"`
	Image                *string      `json:"image" validate:"omitempty,url"`
	Date                 *time.Time   `json:"date"`
	EndDate              *time.Time   `json:"endDate"`
	Location             *Location    `json:"location"`
	EventType            *EventType   `json:"eventType" validate:"omitempty,oneof=city_event truck_event offer"`
	MaxParticipants      *int         `json:"maxParticipants" validate:"omitempty,min=1"`
	RegistrationDeadline *time.Time   `json:"registrationDeadline"`
	Status               *EventStatus `json:"status" validate:"omitempty,oneof=draft published cancelled completed"`
	Featured             *bool        `json:"featured"`
	Tags                 []string     `json:"tags" validate:"omitempty,max=10,dive,max=40"`
}

type ParticipationInput struct {
	TruckID string `json:"truckId"`
}

type ParticipantStatusInput struct {
	Status ParticipationStatus `json:"status" validate:"required,oneof=pending confirmed declined"`
}

type ApproveEventInput struct {
	Notes string `json:"notes" validate:"max=1000"`
}

type RejectEventInput struct {
	Reason string `json:"reason" validate:"required,max=1000"`
}

// ValidateSchedule checks the ordering of the event's dates.
func ValidateSchedule(date time.Time, endDate, deadline *time.Time) error {
	fields := map[string]string{}
	if endDate != nil && !endDate.After(date) {
		fields["endDate"] = "must be after date"
	}
	if deadline != nil && deadline.After(date) {
		fields["registrationDeadline"] = "must not be after date"
	}
	if len(fields) > 0 {
		return NewValidationError("invalid event schedule", fields)
	}
	return nil
}
