package services

import (
	"context"
	"strings"

	"github.com/joshua-takyi/dishrated/internal/messaging"
	"github.com/joshua-takyi/dishrated/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func (s *EventService) ListPendingEvents(ctx context.Context, actor models.Actor, page, limit int) ([]*models.Event, int, error) {
	if !actor.IsAdmin() {
		return nil, 0, models.NewForbidden("admin access required")
	}
	return s.events.ListEvents(ctx, models.EventFilter{
		ApprovalStatus: models.ApprovalPending,
	}, (page-1)*limit, limit)
}

func (s *EventService) ApproveEvent(ctx context.Context, actor models.Actor, id primitive.ObjectID, notes string) (*models.Event, error) {
	if !actor.IsAdmin() {
		return nil, models.NewForbidden("admin access required")
	}
	if err := models.ValidateStruct(models.ApproveEventInput{Notes: notes}); err != nil {
		return nil, err
	}

	event, err := s.mutate(ctx, id, func(e *models.Event) error {
		return e.Approve(actor.ID, notes, s.now())
	})
	if err != nil {
		return nil, err
	}

	s.audit.EventApproved(ctx, id, actor, event.ApprovalNotes)
	s.publish(ctx, messaging.RoutingEventApproved, event)
	return event, nil
}

func (s *EventService) RejectEvent(ctx context.Context, actor models.Actor, id primitive.ObjectID, reason string) (*models.Event, error) {
	if !actor.IsAdmin() {
		return nil, models.NewForbidden("admin access required")
	}
	reason = strings.TrimSpace(reason)
	if err := models.ValidateStruct(models.RejectEventInput{Reason: reason}); err != nil {
		return nil, err
	}

	event, err := s.mutate(ctx, id, func(e *models.Event) error {
		return e.Reject(reason, s.now())
	})
	if err != nil {
		return nil, err
	}

	s.audit.EventRejected(ctx, id, actor, reason)
	s.publish(ctx, messaging.RoutingEventRejected, event)
	return event, nil
}
