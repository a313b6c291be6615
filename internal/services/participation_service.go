package services

import (
	"context"
	"strings"

	"github.com/joshua-takyi/dishrated/internal/helpers"
	"github.com/joshua-takyi/dishrated/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// resolveTruck finds the truck the caller acts for. An explicit truck id
// must belong to the caller; without one the caller must own exactly one truck.
func (s *EventService) resolveTruck(ctx context.Context, actor models.Actor, rawTruckID string) (primitive.ObjectID, error) {
	if !actor.IsOwner() {
		return primitive.NilObjectID, models.NewForbidden("only truck owners can manage their participation")
	}

	if strings.TrimSpace(rawTruckID) != "" {
		truckID, err := helpers.ParseObjectID(rawTruckID, "truckId")
		if err != nil {
			return primitive.NilObjectID, err
		}
		truck, err := s.trucks.GetTruckByID(ctx, truckID)
		if err != nil {
			return primitive.NilObjectID, err
		}
		if truck.Owner != actor.ID {
			return primitive.NilObjectID, models.NewForbidden("you do not own this truck")
		}
		return truck.ID, nil
	}

	trucks, err := s.trucks.GetTrucksByOwner(ctx, actor.ID)
	if err != nil {
		return primitive.NilObjectID, err
	}
	switch len(trucks) {
	case 0:
		return primitive.NilObjectID, models.NewNotFound("Food truck")
	case 1:
		return trucks[0].ID, nil
	default:
		return primitive.NilObjectID, models.NewValidationError("truckId is required", map[string]string{
			"truckId": "is required when you own more than one truck",
		})
	}
}

func visibleTo(actor models.Actor, e *models.Event) bool {
	return e.IsPubliclyVisible() || actor.CanManage(e)
}

func (s *EventService) CheckTruckEligibility(ctx context.Context, actor models.Actor, eventID primitive.ObjectID, rawTruckID string) (models.ParticipationCheck, error) {
	truckID, err := s.resolveTruck(ctx, actor, rawTruckID)
	if err != nil {
		return models.ParticipationCheck{}, err
	}
	event, err := s.events.GetEventByID(ctx, eventID)
	if err != nil {
		return models.ParticipationCheck{}, err
	}
	if !visibleTo(actor, event) {
		return models.ParticipationCheck{}, models.NewNotFound("Event")
	}
	return event.CheckEligibility(truckID, s.now()).View(), nil
}

// RegisterTruck adds the caller's truck as a pending participant.
func (s *EventService) RegisterTruck(ctx context.Context, actor models.Actor, eventID primitive.ObjectID, rawTruckID string) (*models.Event, error) {
	truckID, err := s.resolveTruck(ctx, actor, rawTruckID)
	if err != nil {
		return nil, err
	}
	return s.addParticipant(ctx, actor, eventID, truckID, models.ParticipationPending)
}

func (s *EventService) addParticipant(ctx context.Context, actor models.Actor, eventID, truckID primitive.ObjectID, status models.ParticipationStatus) (*models.Event, error) {
	event, err := s.mutate(ctx, eventID, func(e *models.Event) error {
		if !visibleTo(actor, e) {
			return models.NewNotFound("Event")
		}
		return e.AddParticipatingTruck(truckID, status, s.now())
	})
	if err != nil {
		return nil, err
	}
	s.audit.ParticipantAdded(ctx, eventID, truckID, status, actor)
	return event, nil
}

func (s *EventService) UnregisterTruck(ctx context.Context, actor models.Actor, eventID primitive.ObjectID, rawTruckID string) (*models.Event, error) {
	truckID, err := s.resolveTruck(ctx, actor, rawTruckID)
	if err != nil {
		return nil, err
	}
	event, err := s.mutate(ctx, eventID, func(e *models.Event) error {
		e.RemoveParticipatingTruck(truckID, s.now())
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.audit.ParticipantRemoved(ctx, eventID, truckID, actor)
	return event, nil
}

// SetParticipantStatus lets the organizer or an admin confirm, decline or
// reset a truck that already registered.
func (s *EventService) SetParticipantStatus(ctx context.Context, actor models.Actor, eventID, truckID primitive.ObjectID, status models.ParticipationStatus) (*models.Event, error) {
	if err := models.ValidateStruct(models.ParticipantStatusInput{Status: status}); err != nil {
		return nil, err
	}
	event, err := s.mutate(ctx, eventID, func(e *models.Event) error {
		if !actor.CanManage(e) {
			return models.NewForbidden("only the organizer or an admin can manage participants")
		}
		return e.SetParticipantStatus(truckID, status, s.now())
	})
	if err != nil {
		return nil, err
	}
	s.audit.ParticipantStatusChanged(ctx, eventID, truckID, status, actor)
	return event, nil
}
