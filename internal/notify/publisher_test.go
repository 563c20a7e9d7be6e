package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/space-reservation-backend/internal/reservation"
)

type capturePublisher struct {
	events []Event
	err    error
}

func (c *capturePublisher) Publish(ctx context.Context, e Event) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("publish without deadline")
	}
	if c.err != nil {
		return c.err
	}
	c.events = append(c.events, e)
	return nil
}

var occurred = time.Date(2030, 3, 1, 9, 0, 0, 0, time.UTC)

func sample() reservation.Reservation {
	return reservation.Reservation{
		ID:         "r-1",
		ResourceID: "hall-a",
		HolderID:   "alice",
		StartTime:  time.Date(2030, 3, 2, 10, 0, 0, 0, time.UTC),
		EndTime:    time.Date(2030, 3, 2, 14, 0, 0, 0, time.UTC),
		TotalPrice: 30000,
		Status:     reservation.StatusConfirmed,
	}
}

func TestHookPublishesEvent(t *testing.T) {
	pub := &capturePublisher{}
	hook := Hook(pub, func() time.Time { return occurred })

	require.NoError(t, hook(context.Background(), sample(), reservation.StatusPending))
	require.Len(t, pub.events, 1)

	e := pub.events[0]
	assert.Equal(t, "reservation.confirmed", e.Type)
	assert.Equal(t, "pending", e.PreviousStatus)
	assert.Equal(t, occurred, e.OccurredAt)

	pub.err = errors.New("broker down")
	assert.ErrorContains(t, hook(context.Background(), sample(), reservation.StatusPending), "broker down")
}

func TestEventJSON(t *testing.T) {
	r := sample()
	r.Status = reservation.StatusPending

	body, err := json.Marshal(NewEvent(r, "", occurred))
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"type": "reservation.pending",
		"reservation_id": "r-1",
		"resource_id": "hall-a",
		"holder_id": "alice",
		"status": "pending",
		"start_time": "2030-03-02T10:00:00Z",
		"end_time": "2030-03-02T14:00:00Z",
		"total_price": "300.00",
		"occurred_at": "2030-03-01T09:00:00Z"
	}`, string(body))
}
