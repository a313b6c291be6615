package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/joshua-takyi/dishrated/internal/helpers"
	"github.com/joshua-takyi/dishrated/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal(line, &m))
		out = append(out, m)
	}
	return out
}

func TestLogger_ApprovalEntries(t *testing.T) {
	var buf bytes.Buffer
	l := New(zerolog.New(&buf))

	ctx := helpers.WithRequestID(context.Background(), "req-1")
	eventID := primitive.NewObjectID()
	admin := models.Actor{ID: primitive.NewObjectID(), Role: models.RoleAdmin}

	l.EventApproved(ctx, eventID, admin, "looks good")
	l.EventRejected(ctx, eventID, admin, "spam")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)

	assert.Equal(t, true, lines[0]["audit"])
	assert.Equal(t, "event_approved", lines[0]["action"])
	assert.Equal(t, eventID.Hex(), lines[0]["event_id"])
	assert.Equal(t, admin.ID.Hex(), lines[0]["actor_id"])
	assert.Equal(t, "looks good", lines[0]["notes"])
	assert.Equal(t, "req-1", lines[0]["request_id"])
	assert.Equal(t, "info", lines[0]["level"])

	assert.Equal(t, "event_rejected", lines[1]["action"])
	assert.Equal(t, "spam", lines[1]["reason"])
	assert.Equal(t, "warn", lines[1]["level"])
}

func TestLogger_ParticipantEntries(t *testing.T) {
	var buf bytes.Buffer
	l := New(zerolog.New(&buf))

	eventID, truckID := primitive.NewObjectID(), primitive.NewObjectID()
	owner := models.Actor{ID: primitive.NewObjectID(), Role: models.RoleOwner}

	l.ParticipantAdded(context.Background(), eventID, truckID, models.ParticipationPending, owner)
	l.ParticipantStatusChanged(context.Background(), eventID, truckID, models.ParticipationConfirmed, owner)
	l.ParticipantRemoved(context.Background(), eventID, truckID, owner)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 3)
	assert.Equal(t, "participant_added", lines[0]["action"])
	assert.Equal(t, "pending", lines[0]["status"])
	assert.Equal(t, truckID.Hex(), lines[0]["truck_id"])
	assert.Equal(t, "confirmed", lines[1]["status"])
	assert.Equal(t, "participant_removed", lines[2]["action"])
}

func TestNop(t *testing.T) {
	l := Nop()
	l.EventDeleted(context.Background(), primitive.NewObjectID(), models.Actor{})
}
