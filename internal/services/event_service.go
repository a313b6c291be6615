package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joshua-takyi/dishrated/internal/audit"
	"github.com/joshua-takyi/dishrated/internal/cache"
	"github.com/joshua-takyi/dishrated/internal/messaging"
	"github.com/joshua-takyi/dishrated/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	defaultDetailsTTL     = 30 * time.Second
	defaultListTTL        = 15 * time.Second
	defaultMaxRetries     = 5
	publishTimeout        = 2 * time.Second
	defaultNearbyRadiusKm = 25.0
	maxNearbyRadiusKm     = 500.0
)

type Cache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, val any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type Publisher interface {
	Publish(ctx context.Context, routingKey string, data any) error
}

type EventService struct {
	events    models.EventsRepo
	trucks    models.FoodTruckRepo
	cache     Cache
	publisher Publisher
	audit     *audit.Logger
	logger    *slog.Logger
	now       func() time.Time

	detailsTTL time.Duration
	listTTL    time.Duration
	maxRetries int
}

type Option func(*EventService)

func WithCache(c Cache, detailsTTL, listTTL time.Duration) Option {
	return func(s *EventService) {
		s.cache = c
		if detailsTTL > 0 {
			s.detailsTTL = detailsTTL
		}
		if listTTL > 0 {
			s.listTTL = listTTL
		}
	}
}

func WithPublisher(p Publisher) Option {
	return func(s *EventService) { s.publisher = p }
}

func WithAudit(a *audit.Logger) Option {
	return func(s *EventService) { s.audit = a }
}

func WithClock(now func() time.Time) Option {
	return func(s *EventService) { s.now = now }
}

func WithMaxWriteRetries(n int) Option {
	return func(s *EventService) {
		if n > 0 {
			s.maxRetries = n
		}
	}
}

func NewEventService(events models.EventsRepo, trucks models.FoodTruckRepo, logger *slog.Logger, opts ...Option) *EventService {
	s := &EventService{
		events:     events,
		trucks:     trucks,
		publisher:  messaging.NoopPublisher{},
		audit:      audit.Nop(),
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
		detailsTTL: defaultDetailsTTL,
		listTTL:    defaultListTTL,
		maxRetries: defaultMaxRetries,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// mutate loads the event, applies fn and writes it back only if nobody
// else wrote in between. On a lost race the whole read-apply-write cycle
// runs again, so fn always sees the latest state.
func (s *EventService) mutate(ctx context.Context, id primitive.ObjectID, fn func(e *models.Event) error) (*models.Event, error) {
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		event, err := s.events.GetEventByID(ctx, id)
		if err != nil {
			return nil, err
		}
		version := event.Version
		if err := fn(event); err != nil {
			return nil, err
		}

		err = s.events.SaveEvent(ctx, event, version)
		if err == nil {
			s.invalidate(ctx, id)
			return event, nil
		}
		if !errors.Is(err, models.ErrWriteConflict) {
			return nil, err
		}
		s.logger.Debug("Event write conflict, retrying",
			"event_id", id.Hex(),
			"attempt", attempt,
		)
	}
	return nil, models.NewConflict("Event was modified concurrently, please retry.", models.ErrWriteConflict)
}

func (s *EventService) CreateEvent(ctx context.Context, actor models.Actor, in models.CreateEventInput) (*models.Event, error) {
	if !actor.IsAdmin() && !actor.IsOwner() {
		return nil, models.NewForbidden("only admins and truck owners can create events")
	}
	if err := models.ValidateStruct(in); err != nil {
		return nil, err
	}

	now := s.now()
	if !in.Date.After(now) {
		return nil, models.NewValidationError("invalid event schedule", map[string]string{"date": "must be in the future"})
	}
	if err := models.ValidateSchedule(in.Date, in.EndDate, in.RegistrationDeadline); err != nil {
		return nil, err
	}
	if in.Featured && !actor.IsAdmin() {
		return nil, models.NewForbidden("only admins can feature events")
	}

	status, approval, err := models.InitialStates(in.EventType, actor.Role)
	if err != nil {
		return nil, err
	}

	event := &models.Event{
		ID:                   primitive.NewObjectID(),
		Title:                strings.TrimSpace(in.Title),
		Description:          strings.TrimSpace(in.Description),
		Image:                strings.TrimSpace(in.Image),
		Date:                 in.Date.UTC(),
		EndDate:              in.EndDate,
		Location:             in.Location,
		EventType:            in.EventType,
		Organizer:            actor.ID,
		OrganizerType:        actor.Role,
		ParticipatingTrucks:  []models.ParticipatingTruck{},
		MaxParticipants:      in.MaxParticipants,
		RegistrationDeadline: in.RegistrationDeadline,
		Status:               status,
		ApprovalStatus:       approval,
		Featured:             in.Featured,
		Tags:                 in.Tags,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	created, err := s.events.CreateEvent(ctx, event)
	if err != nil {
		return nil, err
	}

	s.audit.EventCreated(ctx, created, actor)
	s.publish(ctx, messaging.RoutingEventCreated, created)
	return created, nil
}

// GetEvent returns a publicly visible event to anyone. Organizers and
// admins also see their draft, pending and rejected events.
func (s *EventService) GetEvent(ctx context.Context, actor *models.Actor, id primitive.ObjectID) (*models.Event, error) {
	key := cache.EventKey(id.Hex())
	if s.cache != nil {
		var cached models.Event
		found, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			s.logger.Warn("Event cache read failed", "event_id", id.Hex(), "error", err)
		} else if found {
			return &cached, nil
		}
	}

	event, err := s.events.GetEventByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !event.IsPubliclyVisible() {
		if actor == nil || !actor.CanManage(event) {
			return nil, models.NewNotFound("Event")
		}
		return event, nil
	}

	if s.cache != nil {
		s.fillEventCache(ctx, key, event)
	}
	return event, nil
}

// fillEventCache stores event only while it is still the stored version.
// A write that lands between the read and the fill has already run its
// invalidation, so caching the older copy would outlive it.
func (s *EventService) fillEventCache(ctx context.Context, key string, event *models.Event) {
	current, err := s.events.GetEventByID(ctx, event.ID)
	if err != nil || current.Version != event.Version {
		return
	}
	if err := s.cache.Set(ctx, key, event, s.detailsTTL); err != nil {
		s.logger.Warn("Event cache write failed", "event_id", event.ID.Hex(), "error", err)
	}
}

func (s *EventService) UpdateEvent(ctx context.Context, actor models.Actor, id primitive.ObjectID, in models.UpdateEventInput) (*models.Event, error) {
	if err := models.ValidateStruct(in); err != nil {
		return nil, err
	}
	if in.Featured != nil && !actor.IsAdmin() {
		return nil, models.NewForbidden("only admins can feature events")
	}

	updated, err := s.mutate(ctx, id, func(e *models.Event) error {
		if !actor.CanManage(e) {
			return models.NewForbidden("only the organizer or an admin can update this event")
		}
		return s.applyUpdate(e, in)
	})
	if err != nil {
		return nil, err
	}

	s.audit.EventUpdated(ctx, updated, actor)
	return updated, nil
}

func (s *EventService) applyUpdate(e *models.Event, in models.UpdateEventInput) error {
	now := s.now()

	if in.Title != nil {
		e.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		e.Description = strings.TrimSpace(*in.Description)
	}
	if in.Image != nil {
		e.Image = strings.TrimSpace(*in.Image)
	}
	if in.Location != nil {
		e.Location = *in.Location
	}
	if in.Tags != nil {
		e.Tags = in.Tags
	}
	if in.Featured != nil {
		e.Featured = *in.Featured
	}
	if in.Date != nil && !in.Date.Equal(e.Date) {
		if !in.Date.After(now) {
			return models.NewValidationError("invalid event schedule", map[string]string{"date": "must be in the future"})
		}
		e.Date = in.Date.UTC()
	}
	if in.EndDate != nil {
		e.EndDate = in.EndDate
	}
	if in.RegistrationDeadline != nil {
		e.RegistrationDeadline = in.RegistrationDeadline
	}
	if err := models.ValidateSchedule(e.Date, e.EndDate, e.RegistrationDeadline); err != nil {
		return err
	}
	if in.MaxParticipants != nil {
		if *in.MaxParticipants < e.ParticipantCount() {
			return models.NewValidationError("invalid participant cap", map[string]string{
				"maxParticipants": fmt.Sprintf("must be at least the %d confirmed trucks", e.ParticipantCount()),
			})
		}
		e.MaxParticipants = in.MaxParticipants
	}
	if in.EventType != nil {
		if err := e.ChangeEventType(*in.EventType, now); err != nil {
			return err
		}
	}
	if in.Status != nil && *in.Status != e.Status {
		if e.ApprovalStatus == models.ApprovalRejected {
			return models.NewBusinessRule("Rejected events cannot be reopened.")
		}
		if *in.Status == models.EventStatusPublished && e.ApprovalStatus != models.ApprovalApproved {
			return models.NewBusinessRule("Event must be approved before it can be published.")
		}
		e.Status = *in.Status
	}

	e.UpdatedAt = now
	return nil
}

func (s *EventService) DeleteEvent(ctx context.Context, actor models.Actor, id primitive.ObjectID) error {
	event, err := s.events.GetEventByID(ctx, id)
	if err != nil {
		return err
	}
	if !actor.CanManage(event) {
		return models.NewForbidden("only the organizer or an admin can delete this event")
	}
	if err := s.events.DeleteEvent(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)

	s.audit.EventDeleted(ctx, id, actor)
	s.publish(ctx, messaging.RoutingEventDeleted, map[string]string{"id": id.Hex()})
	return nil
}

type PublicEventQuery struct {
	EventType models.EventType
	Featured  *bool
	Search    string
	Upcoming  bool
}

type eventPage struct {
	Events []*models.Event `json:"events"`
	Total  int             `json:"total"`
}

func (s *EventService) ListPublicEvents(ctx context.Context, q PublicEventQuery, page, limit int) ([]*models.Event, int, error) {
	if q.EventType != "" && !q.EventType.Valid() {
		return nil, 0, models.NewValidationError("invalid event type", map[string]string{"eventType": "must be one of city_event truck_event offer"})
	}

	filter := models.EventFilter{
		PublicOnly: true,
		EventType:  q.EventType,
		Featured:   q.Featured,
		Search:     strings.TrimSpace(q.Search),
	}
	if q.Upcoming {
		now := s.now()
		filter.StartsAfter = &now
	}

	key := cache.EventListKey(listCacheHash(q, page, limit))
	if s.cache != nil {
		var cached eventPage
		found, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			s.logger.Warn("Event list cache read failed", "error", err)
		} else if found {
			return cached.Events, cached.Total, nil
		}
	}

	events, total, err := s.events.ListEvents(ctx, filter, (page-1)*limit, limit)
	if err != nil {
		return nil, 0, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, eventPage{Events: events, Total: total}, s.listTTL); err != nil {
			s.logger.Warn("Event list cache write failed", "error", err)
		}
	}
	return events, total, nil
}

func listCacheHash(q PublicEventQuery, page, limit int) string {
	featured := "any"
	if q.Featured != nil {
		featured = fmt.Sprint(*q.Featured)
	}
	raw := fmt.Sprintf("type=%s|featured=%s|search=%s|upcoming=%t|page=%d|limit=%d",
		q.EventType, featured, strings.ToLower(strings.TrimSpace(q.Search)), q.Upcoming, page, limit)
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:16])
}

// ListNearbyEvents returns upcoming public events inside a bounding box
// around the given point.
func (s *EventService) ListNearbyEvents(ctx context.Context, lat, lng, radiusKm float64, page, limit int) ([]*models.Event, int, error) {
	fields := map[string]string{}
	if lat < -90 || lat > 90 {
		fields["lat"] = "must be between -90 and 90"
	}
	if lng < -180 || lng > 180 {
		fields["lng"] = "must be between -180 and 180"
	}
	if radiusKm == 0 {
		radiusKm = defaultNearbyRadiusKm
	}
	if radiusKm < 0 || radiusKm > maxNearbyRadiusKm {
		fields["radius"] = fmt.Sprintf("must be between 0 and %.0f", maxNearbyRadiusKm)
	}
	if len(fields) > 0 {
		return nil, 0, models.NewValidationError("invalid location query", fields)
	}

	box := models.NewBoundingBox(lat, lng, radiusKm)
	now := s.now()
	return s.events.ListEvents(ctx, models.EventFilter{
		PublicOnly:  true,
		Bounds:      &box,
		StartsAfter: &now,
	}, (page-1)*limit, limit)
}

func (s *EventService) ListMyEvents(ctx context.Context, actor models.Actor, page, limit int) ([]*models.Event, int, error) {
	if !actor.IsAdmin() && !actor.IsOwner() {
		return nil, 0, models.NewForbidden("only admins and truck owners organize events")
	}
	return s.events.ListEvents(ctx, models.EventFilter{
		Organizer:   actor.ID,
		NewestFirst: true,
	}, (page-1)*limit, limit)
}

func (s *EventService) invalidate(ctx context.Context, id primitive.ObjectID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, cache.EventKey(id.Hex())); err != nil {
		s.logger.Warn("Event cache invalidation failed", "event_id", id.Hex(), "error", err)
	}
}

// publish is best effort: the write already happened.
func (s *EventService) publish(ctx context.Context, routingKey string, data any) {
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.publisher.Publish(pubCtx, routingKey, data); err != nil {
		s.logger.Warn("Failed to publish domain event",
			"routing_key", routingKey,
			"error", err,
		)
	}
}
