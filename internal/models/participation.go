package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ReasonDeadlinePassed = "Registration deadline has passed."
	ReasonEventFull      = "Event is full."
)

type EligibilityKind int

const (
	Eligible EligibilityKind = iota
	Blocked
	AlreadyPresent
)

func (k EligibilityKind) String() string {
	switch k {
	case Eligible:
		return "eligible"
	case Blocked:
		return "blocked"
	case AlreadyPresent:
		return "already_present"
	}
	return "unknown"
}

// Eligibility is the outcome of checking whether a truck may join an event.
// Reason is set for Blocked, CurrentStatus for AlreadyPresent.
type Eligibility struct {
	Kind          EligibilityKind
	Reason        string
	CurrentStatus ParticipationStatus
}

// ParticipationCheck is the client-facing form of Eligibility.
type ParticipationCheck struct {
	CanParticipate bool                `json:"canParticipate"`
	Reason         string              `json:"reason,omitempty"`
	CurrentStatus  ParticipationStatus `json:"currentStatus,omitempty"`
}

func (el Eligibility) View() ParticipationCheck {
	switch el.Kind {
	case Blocked:
		return ParticipationCheck{Reason: el.Reason}
	case AlreadyPresent:
		return ParticipationCheck{
			Reason:        "Already " + string(el.CurrentStatus),
			CurrentStatus: el.CurrentStatus,
		}
	}
	return ParticipationCheck{CanParticipate: true}
}

// CheckEligibility evaluates, in order: registration deadline, capacity,
// existing entry. The first rule that fails decides the result.
func (e *Event) CheckEligibility(truckID primitive.ObjectID, now time.Time) Eligibility {
	if e.RegistrationDeadline != nil && now.After(*e.RegistrationDeadline) {
		return Eligibility{Kind: Blocked, Reason: ReasonDeadlinePassed}
	}
	if e.MaxParticipants != nil && e.ParticipantCount() >= *e.MaxParticipants {
		return Eligibility{Kind: Blocked, Reason: ReasonEventFull}
	}
	if p := e.participant(truckID); p != nil {
		return Eligibility{Kind: AlreadyPresent, CurrentStatus: p.Status}
	}
	return Eligibility{Kind: Eligible}
}

// AddParticipatingTruck adds the truck with the given status. A truck that
// is already listed has its status overwritten and confirmedAt reset.
func (e *Event) AddParticipatingTruck(truckID primitive.ObjectID, status ParticipationStatus, now time.Time) error {
	if status == "" {
		status = ParticipationPending
	}
	if !status.Valid() {
		return NewValidationError("invalid participation status", map[string]string{"status": "must be one of pending confirmed declined"})
	}

	el := e.CheckEligibility(truckID, now)
	switch el.Kind {
	case Blocked:
		return NewBusinessRule(el.Reason)
	case AlreadyPresent:
		p := e.participant(truckID)
		p.Status = status
		p.ConfirmedAt = now
	default:
		e.ParticipatingTrucks = append(e.ParticipatingTrucks, ParticipatingTruck{
			Truck:       truckID,
			Status:      status,
			ConfirmedAt: now,
		})
	}
	e.UpdatedAt = now
	return nil
}

// RemoveParticipatingTruck drops the truck from the list. Removing a truck
// that is not listed is not an error.
func (e *Event) RemoveParticipatingTruck(truckID primitive.ObjectID, now time.Time) {
	kept := make([]ParticipatingTruck, 0, len(e.ParticipatingTrucks))
	for _, p := range e.ParticipatingTrucks {
		if p.Truck != truckID {
			kept = append(kept, p)
		}
	}
	e.ParticipatingTrucks = kept
	e.UpdatedAt = now
}

// SetParticipantStatus changes the status of a listed truck. Moving a truck
// into confirmed respects the participant cap; the registration deadline
// only binds new registrations.
func (e *Event) SetParticipantStatus(truckID primitive.ObjectID, status ParticipationStatus, now time.Time) error {
	if !status.Valid() {
		return NewValidationError("invalid participation status", map[string]string{"status": "must be one of pending confirmed declined"})
	}
	p := e.participant(truckID)
	if p == nil {
		return NewNotFound("Participating truck")
	}
	if status == ParticipationConfirmed && p.Status != ParticipationConfirmed &&
		e.MaxParticipants != nil && e.ParticipantCount() >= *e.MaxParticipants {
		return NewBusinessRule(ReasonEventFull)
	}
	p.Status = status
	p.ConfirmedAt = now
	e.UpdatedAt = now
	return nil
}

func (e *Event) HasParticipant(truckID primitive.ObjectID) bool {
	return e.participant(truckID) != nil
}

func (e *Event) participant(truckID primitive.ObjectID) *ParticipatingTruck {
	for i := range e.ParticipatingTrucks {
		if e.ParticipatingTrucks[i].Truck == truckID {
			return &e.ParticipatingTrucks[i]
		}
	}
	return nil
}
