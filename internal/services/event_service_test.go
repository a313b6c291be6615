package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/joshua-takyi/dishrated/internal/cache"
	"github.com/joshua-takyi/dishrated/internal/messaging"
	"github.com/joshua-takyi/dishrated/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCreateEvent_RoutesByRoleAndType(t *testing.T) {
	tests := []struct {
		name       string
		admin      bool
		eventType  models.EventType
		wantStatus models.EventStatus
		wantApp    models.ApprovalStatus
	}{
		{"admin city event", true, models.EventTypeCity, models.EventStatusPublished, models.ApprovalApproved},
		{"admin offer", true, models.EventTypeOffer, models.EventStatusPublished, models.ApprovalApproved},
		{"owner city event", false, models.EventTypeCity, models.EventStatusDraft, models.ApprovalPending},
		{"owner truck event", false, models.EventTypeTruck, models.EventStatusPublished, models.ApprovalApproved},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			actor := f.owner
			if tt.admin {
				actor = f.admin
			}

			e, err := f.svc.CreateEvent(context.Background(), actor, f.createInput(tt.eventType))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, e.Status)
			assert.Equal(t, tt.wantApp, e.ApprovalStatus)
			assert.Equal(t, actor.ID, e.Organizer)
			assert.Equal(t, actor.Role, e.OrganizerType)
			assert.Equal(t, fixedNow, e.CreatedAt)
			assert.Equal(t, []string{messaging.RoutingEventCreated}, f.pub.keys())
		})
	}
}

func TestCreateEvent_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateEvent(ctx, f.user, f.createInput(models.EventTypeTruck))
	assert.True(t, models.HasCode(err, models.ErrCodeForbidden))

	past := f.createInput(models.EventTypeTruck)
	past.Date = fixedNow.Add(-time.Hour)
	_, err = f.svc.CreateEvent(ctx, f.owner, past)
	appErr, ok := models.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "must be in the future", appErr.Fields["date"])

	bad := f.createInput(models.EventTypeTruck)
	bad.Title = ""
	_, err = f.svc.CreateEvent(ctx, f.owner, bad)
	appErr, ok = models.AsAppError(err)
	require.True(t, ok)
	assert.Contains(t, appErr.Fields, "title")

	featured := f.createInput(models.EventTypeTruck)
	featured.Featured = true
	_, err = f.svc.CreateEvent(ctx, f.owner, featured)
	assert.True(t, models.HasCode(err, models.ErrCodeForbidden))

	deadline := f.createInput(models.EventTypeTruck)
	late := deadline.Date.Add(time.Hour)
	deadline.RegistrationDeadline = &late
	_, err = f.svc.CreateEvent(ctx, f.owner, deadline)
	assert.True(t, models.HasCode(err, models.ErrCodeValidation))

	assert.Empty(t, f.pub.keys())
}

func TestGetEvent_Visibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pending, err := f.svc.CreateEvent(ctx, f.owner, f.createInput(models.EventTypeCity))
	require.NoError(t, err)

	_, err = f.svc.GetEvent(ctx, nil, pending.ID)
	assert.True(t, models.HasCode(err, models.ErrCodeNotFound))

	_, err = f.svc.GetEvent(ctx, &f.user, pending.ID)
	assert.True(t, models.HasCode(err, models.ErrCodeNotFound))

	got, err := f.svc.GetEvent(ctx, &f.owner, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, pending.ID, got.ID)

	_, err = f.svc.GetEvent(ctx, &f.admin, pending.ID)
	require.NoError(t, err)

	_, err = f.svc.GetEvent(ctx, nil, primitive.NewObjectID())
	assert.True(t, models.HasCode(err, models.ErrCodeNotFound))
}

func TestGetEvent_CachesPublicEventsAndInvalidatesOnWrite(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	f := newFixture(t, WithCache(cache.New(rdb), time.Minute, time.Second))
	ctx := context.Background()

	e, err := f.svc.CreateEvent(ctx, f.admin, f.createInput(models.EventTypeTruck))
	require.NoError(t, err)

	_, err = f.svc.GetEvent(ctx, nil, e.ID)
	require.NoError(t, err)
	assert.True(t, mr.Exists(cache.EventKey(e.ID.Hex())))

	title := "Renamed Festival"
	_, err = f.svc.UpdateEvent(ctx, f.admin, e.ID, models.UpdateEventInput{Title: &title})
	require.NoError(t, err)
	assert.False(t, mr.Exists(cache.EventKey(e.ID.Hex())))

	got, err := f.svc.GetEvent(ctx, nil, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed Festival", got.Title)
}

func TestGetEvent_DoesNotCacheCopyOverwrittenDuringRead(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	f := newFixture(t, WithCache(cache.New(rdb), time.Minute, time.Second))
	ctx := context.Background()

	t.Run("updated", func(t *testing.T) {
		e, err := f.svc.CreateEvent(ctx, f.admin, f.createInput(models.EventTypeTruck))
		require.NoError(t, err)
		key := cache.EventKey(e.ID.Hex())

		title := "Renamed Mid Read"
		f.events.afterGet = func() {
			_, err := f.svc.UpdateEvent(ctx, f.admin, e.ID, models.UpdateEventInput{Title: &title})
			require.NoError(t, err)
		}

		got, err := f.svc.GetEvent(ctx, nil, e.ID)
		require.NoError(t, err)
		assert.Equal(t, "Riverside Street Food", got.Title)
		assert.False(t, mr.Exists(key))

		got, err = f.svc.GetEvent(ctx, nil, e.ID)
		require.NoError(t, err)
		assert.Equal(t, title, got.Title)
		assert.True(t, mr.Exists(key))
	})

	t.Run("deleted", func(t *testing.T) {
		e, err := f.svc.CreateEvent(ctx, f.admin, f.createInput(models.EventTypeTruck))
		require.NoError(t, err)
		key := cache.EventKey(e.ID.Hex())

		f.events.afterGet = func() {
			require.NoError(t, f.svc.DeleteEvent(ctx, f.admin, e.ID))
		}

		_, err = f.svc.GetEvent(ctx, nil, e.ID)
		require.NoError(t, err)
		assert.False(t, mr.Exists(key))

		_, err = f.svc.GetEvent(ctx, nil, e.ID)
		assert.True(t, models.HasCode(err, models.ErrCodeNotFound))
	})
}

func TestUpdateEvent_Permissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	e, err := f.svc.CreateEvent(ctx, f.owner, f.createInput(models.EventTypeTruck))
	require.NoError(t, err)

	title := "Someone else's edit"
	other, _ := f.newOwner()
	_, err = f.svc.UpdateEvent(ctx, other, e.ID, models.UpdateEventInput{Title: &title})
	assert.True(t, models.HasCode(err, models.ErrCodeForbidden))

	featured := true
	_, err = f.svc.UpdateEvent(ctx, f.owner, e.ID, models.UpdateEventInput{Featured: &featured})
	assert.True(t, models.HasCode(err, models.ErrCodeForbidden))

	updated, err := f.svc.UpdateEvent(ctx, f.admin, e.ID, models.UpdateEventInput{Featured: &featured, Title: &title})
	require.NoError(t, err)
	assert.True(t, updated.Featured)
	assert.Equal(t, title, updated.Title)
	assert.Equal(t, int64(2), f.events.stored(e.ID).Version)
}

func TestUpdateEvent_EventTypeChangeReroutes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	e, err := f.svc.CreateEvent(ctx, f.owner, f.createInput(models.EventTypeTruck))
	require.NoError(t, err)

	city := models.EventTypeCity
	updated, err := f.svc.UpdateEvent(ctx, f.owner, e.ID, models.UpdateEventInput{EventType: &city})
	require.NoError(t, err)
	assert.Equal(t, models.EventStatusDraft, updated.Status)
	assert.Equal(t, models.ApprovalPending, updated.ApprovalStatus)

	// still pending, so the owner cannot publish it directly
	published := models.EventStatusPublished
	_, err = f.svc.UpdateEvent(ctx, f.owner, e.ID, models.UpdateEventInput{Status: &published})
	assert.True(t, models.HasCode(err, models.ErrCodeBusinessRule))

	// a cancelled event is not brought back by changing its type
	cancelledEvent, err := f.svc.CreateEvent(ctx, f.owner, f.createInput(models.EventTypeTruck))
	require.NoError(t, err)
	cancelled := models.EventStatusCancelled
	_, err = f.svc.UpdateEvent(ctx, f.owner, cancelledEvent.ID, models.UpdateEventInput{Status: &cancelled})
	require.NoError(t, err)

	offer := models.EventTypeOffer
	updated, err = f.svc.UpdateEvent(ctx, f.owner, cancelledEvent.ID, models.UpdateEventInput{EventType: &offer})
	require.NoError(t, err)
	assert.Equal(t, models.EventStatusCancelled, updated.Status)
	assert.Equal(t, models.ApprovalApproved, updated.ApprovalStatus)
	assert.False(t, updated.IsPubliclyVisible())

	list, total, err := f.svc.ListPublicEvents(ctx, PublicEventQuery{}, 1, 10)
	require.NoError(t, err)
	for _, ev := range list {
		assert.NotEqual(t, cancelledEvent.ID, ev.ID)
	}
	assert.Equal(t, 0, total)
}

func TestUpdateEvent_ScheduleAndCap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := f.createInput(models.EventTypeTruck)
	in.MaxParticipants = intPtr(5)
	e, err := f.svc.CreateEvent(ctx, f.owner, in)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := f.svc.addParticipant(ctx, f.admin, e.ID, primitive.NewObjectID(), models.ParticipationConfirmed)
		require.NoError(t, err)
	}

	_, err = f.svc.UpdateEvent(ctx, f.owner, e.ID, models.UpdateEventInput{MaxParticipants: intPtr(1)})
	assert.True(t, models.HasCode(err, models.ErrCodeValidation))

	past := fixedNow.Add(-time.Hour)
	_, err = f.svc.UpdateEvent(ctx, f.owner, e.ID, models.UpdateEventInput{Date: &past})
	assert.True(t, models.HasCode(err, models.ErrCodeValidation))

	end := e.Date.Add(-time.Minute)
	_, err = f.svc.UpdateEvent(ctx, f.owner, e.ID, models.UpdateEventInput{EndDate: &end})
	assert.True(t, models.HasCode(err, models.ErrCodeValidation))

	updated, err := f.svc.UpdateEvent(ctx, f.owner, e.ID, models.UpdateEventInput{MaxParticipants: intPtr(2)})
	require.NoError(t, err)
	assert.Equal(t, 0, *updated.AvailableSpots())
}

func TestDeleteEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	e, err := f.svc.CreateEvent(ctx, f.owner, f.createInput(models.EventTypeOffer))
	require.NoError(t, err)

	err = f.svc.DeleteEvent(ctx, f.user, e.ID)
	assert.True(t, models.HasCode(err, models.ErrCodeForbidden))

	require.NoError(t, f.svc.DeleteEvent(ctx, f.owner, e.ID))
	_, err = f.events.GetEventByID(ctx, e.ID)
	assert.True(t, models.HasCode(err, models.ErrCodeNotFound))
	assert.Contains(t, f.pub.keys(), messaging.RoutingEventDeleted)

	err = f.svc.DeleteEvent(ctx, f.admin, e.ID)
	assert.True(t, models.HasCode(err, models.ErrCodeNotFound))
}

func TestListPublicEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateEvent(ctx, f.owner, f.createInput(models.EventTypeCity))
	require.NoError(t, err)
	visible, err := f.svc.CreateEvent(ctx, f.owner, f.createInput(models.EventTypeTruck))
	require.NoError(t, err)
	offer := f.createInput(models.EventTypeOffer)
	offer.Title = "Half price tacos"
	_, err = f.svc.CreateEvent(ctx, f.admin, offer)
	require.NoError(t, err)

	events, total, err := f.svc.ListPublicEvents(ctx, PublicEventQuery{}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, events, 2)

	events, total, err = f.svc.ListPublicEvents(ctx, PublicEventQuery{EventType: models.EventTypeTruck}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, visible.ID, events[0].ID)

	_, total, err = f.svc.ListPublicEvents(ctx, PublicEventQuery{Search: "TACOS"}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	events, total, err = f.svc.ListPublicEvents(ctx, PublicEventQuery{}, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, events, 1)

	_, _, err = f.svc.ListPublicEvents(ctx, PublicEventQuery{EventType: "parade"}, 1, 10)
	assert.True(t, models.HasCode(err, models.ErrCodeValidation))
}

func TestListPublicEvents_UsesListCache(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	f := newFixture(t, WithCache(cache.New(rdb), time.Minute, 30*time.Second))
	ctx := context.Background()

	_, err := f.svc.CreateEvent(ctx, f.admin, f.createInput(models.EventTypeTruck))
	require.NoError(t, err)

	_, total, err := f.svc.ListPublicEvents(ctx, PublicEventQuery{}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	// served from cache until the TTL runs out
	_, err = f.svc.CreateEvent(ctx, f.admin, f.createInput(models.EventTypeOffer))
	require.NoError(t, err)
	_, total, err = f.svc.ListPublicEvents(ctx, PublicEventQuery{}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	mr.FastForward(31 * time.Second)
	_, total, err = f.svc.ListPublicEvents(ctx, PublicEventQuery{}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestListNearbyEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	near := f.createInput(models.EventTypeTruck)
	near.Location.Coordinates = &models.Coordinates{Lat: 51.51, Lng: -0.13}
	nearEvent, err := f.svc.CreateEvent(ctx, f.admin, near)
	require.NoError(t, err)

	far := f.createInput(models.EventTypeTruck)
	far.Location.Coordinates = &models.Coordinates{Lat: 48.85, Lng: 2.35}
	_, err = f.svc.CreateEvent(ctx, f.admin, far)
	require.NoError(t, err)

	noCoords := f.createInput(models.EventTypeTruck)
	noCoords.Location.Coordinates = nil
	_, err = f.svc.CreateEvent(ctx, f.admin, noCoords)
	require.NoError(t, err)

	events, total, err := f.svc.ListNearbyEvents(ctx, 51.5, -0.12, 10, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, nearEvent.ID, events[0].ID)

	_, _, err = f.svc.ListNearbyEvents(ctx, 95, 0, 10, 1, 10)
	assert.True(t, models.HasCode(err, models.ErrCodeValidation))
	_, _, err = f.svc.ListNearbyEvents(ctx, 0, 0, 5000, 1, 10)
	assert.True(t, models.HasCode(err, models.ErrCodeValidation))
}

func TestListMyEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateEvent(ctx, f.owner, f.createInput(models.EventTypeCity))
	require.NoError(t, err)
	_, err = f.svc.CreateEvent(ctx, f.owner, f.createInput(models.EventTypeTruck))
	require.NoError(t, err)
	_, err = f.svc.CreateEvent(ctx, f.admin, f.createInput(models.EventTypeTruck))
	require.NoError(t, err)

	events, total, err := f.svc.ListMyEvents(ctx, f.owner, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	for _, e := range events {
		assert.Equal(t, f.owner.ID, e.Organizer)
	}

	_, _, err = f.svc.ListMyEvents(ctx, f.user, 1, 10)
	assert.True(t, models.HasCode(err, models.ErrCodeForbidden))
}

func intPtr(v int) *int { return &v }
