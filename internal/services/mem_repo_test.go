package services

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/joshua-takyi/dishrated/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memEvents is an in-memory EventsRepo with the same version check as the
// Mongo implementation.
type memEvents struct {
	mu     sync.Mutex
	events map[primitive.ObjectID]*models.Event
	saves  int
	// afterGet runs once, after the next read returns its copy.
	afterGet func()
}

func newMemEvents() *memEvents {
	return &memEvents{events: map[primitive.ObjectID]*models.Event{}}
}

func cloneEvent(e *models.Event) *models.Event {
	c := *e
	c.ParticipatingTrucks = append([]models.ParticipatingTruck(nil), e.ParticipatingTrucks...)
	c.Tags = append([]string(nil), e.Tags...)
	return &c
}

func (m *memEvents) CreateEvent(_ context.Context, e *models.Event) (*models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	e.Version = 1
	m.events[e.ID] = cloneEvent(e)
	return e, nil
}

func (m *memEvents) GetEventByID(_ context.Context, id primitive.ObjectID) (*models.Event, error) {
	m.mu.Lock()
	e, ok := m.events[id]
	var out *models.Event
	if ok {
		out = cloneEvent(e)
	}
	hook := m.afterGet
	m.afterGet = nil
	m.mu.Unlock()

	if hook != nil {
		hook()
	}
	if !ok {
		return nil, models.NewNotFound("Event")
	}
	return out, nil
}

func (m *memEvents) SaveEvent(_ context.Context, e *models.Event, expectedVersion int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.events[e.ID]
	if !ok || stored.Version != expectedVersion {
		return models.ErrWriteConflict
	}
	e.Version = expectedVersion + 1
	m.events[e.ID] = cloneEvent(e)
	m.saves++
	return nil
}

func (m *memEvents) DeleteEvent(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[id]; !ok {
		return models.NewNotFound("Event")
	}
	delete(m.events, id)
	return nil
}

func (m *memEvents) ListEvents(_ context.Context, f models.EventFilter, offset, limit int) ([]*models.Event, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []*models.Event
	for _, e := range m.events {
		if f.Matches(e) {
			matched = append(matched, cloneEvent(e))
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if f.NewestFirst {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].Date.Before(matched[j].Date)
	})
	total := len(matched)
	if offset >= total {
		return []*models.Event{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (m *memEvents) stored(id primitive.ObjectID) *models.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneEvent(m.events[id])
}

type memTrucks struct {
	trucks map[primitive.ObjectID]*models.FoodTruck
}

func newMemTrucks(trucks ...*models.FoodTruck) *memTrucks {
	m := &memTrucks{trucks: map[primitive.ObjectID]*models.FoodTruck{}}
	for _, t := range trucks {
		m.trucks[t.ID] = t
	}
	return m
}

func (m *memTrucks) GetTruckByID(_ context.Context, id primitive.ObjectID) (*models.FoodTruck, error) {
	t, ok := m.trucks[id]
	if !ok {
		return nil, models.NewNotFound("Food truck")
	}
	return t, nil
}

func (m *memTrucks) GetTrucksByOwner(_ context.Context, owner primitive.ObjectID) ([]*models.FoodTruck, error) {
	var out []*models.FoodTruck
	for _, t := range m.trucks {
		if t.Owner == owner {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Hex() < out[j].ID.Hex() })
	return out, nil
}

type recordedMessage struct {
	routingKey string
	data       any
}

type recordingPublisher struct {
	mu       sync.Mutex
	messages []recordedMessage
}

func (p *recordingPublisher) Publish(_ context.Context, routingKey string, data any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, recordedMessage{routingKey: routingKey, data: data})
	return nil
}

func (p *recordingPublisher) keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, m := range p.messages {
		out = append(out, m.routingKey)
	}
	return out
}

var fixedNow = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	svc    *EventService
	events *memEvents
	trucks *memTrucks
	pub    *recordingPublisher

	admin models.Actor
	owner models.Actor
	user  models.Actor
	truck *models.FoodTruck
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		events: newMemEvents(),
		pub:    &recordingPublisher{},
		admin:  models.Actor{ID: primitive.NewObjectID(), Role: models.RoleAdmin},
		owner:  models.Actor{ID: primitive.NewObjectID(), Role: models.RoleOwner},
		user:   models.Actor{ID: primitive.NewObjectID(), Role: models.RoleUser},
	}
	f.truck = &models.FoodTruck{ID: primitive.NewObjectID(), Owner: f.owner.ID, Name: "Taco Loco"}
	f.trucks = newMemTrucks(f.truck)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	base := []Option{
		WithClock(func() time.Time { return fixedNow }),
		WithPublisher(f.pub),
	}
	f.svc = NewEventService(f.events, f.trucks, logger, append(base, opts...)...)
	return f
}

func (f *fixture) createInput(eventType models.EventType) models.CreateEventInput {
	return models.CreateEventInput{
		Title:       "Riverside Street Food",
		Description: "Trucks along the river",
		Date:        fixedNow.Add(10 * 24 * time.Hour),
		Location:    models.Location{Address: "1 River Rd", Coordinates: &models.Coordinates{Lat: 51.5, Lng: -0.12}},
		EventType:   eventType,
	}
}

func (f *fixture) newOwner() (models.Actor, *models.FoodTruck) {
	owner := models.Actor{ID: primitive.NewObjectID(), Role: models.RoleOwner}
	truck := &models.FoodTruck{ID: primitive.NewObjectID(), Owner: owner.ID, Name: "Truck"}
	f.trucks.trucks[truck.ID] = truck
	return owner, truck
}
