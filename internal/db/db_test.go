package db_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/space-reservation-backend/internal/db"
	"github.com/nekogravitycat/space-reservation-backend/internal/pkg/money"
	"github.com/nekogravitycat/space-reservation-backend/internal/reservation"
	"github.com/nekogravitycat/space-reservation-backend/internal/resource"
)

// Requires TEST_DB_DSN pointing at a disposable Postgres database.
func TestPostgresRejectsOverlapWithoutServiceCheck(t *testing.T) {
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	ctx := context.Background()

	pool, err := db.NewPool(ctx, dsn, 4)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, db.Migrate(ctx, pool))
	// Applying twice must be a no-op.
	require.NoError(t, db.Migrate(ctx, pool))

	resources := resource.NewPgxRepository(pool)
	res := &resource.Resource{Name: "Integration room", HourlyRate: money.FromMajor(10)}
	require.NoError(t, resources.Create(ctx, res))

	repo := reservation.NewPgxRepository(pool)
	start := time.Date(2031, 1, 1, 9, 0, 0, 0, time.UTC)
	insert := func(from, to time.Time) error {
		return repo.WithinResource(ctx, res.ID, func(tx reservation.Tx) error {
			return tx.Insert(ctx, &reservation.Reservation{
				ResourceID: res.ID,
				HolderID:   "integration",
				StartTime:  from,
				EndTime:    to,
				TotalPrice: money.FromMajor(10),
				Status:     reservation.StatusPending,
			})
		})
	}

	require.NoError(t, insert(start, start.Add(time.Hour)))
	// Adjacent slots share a boundary but do not overlap.
	require.NoError(t, insert(start.Add(time.Hour), start.Add(2*time.Hour)))

	err = insert(start.Add(30*time.Minute), start.Add(90*time.Minute))
	assert.ErrorIs(t, err, reservation.ErrSlotUnavailable)

	active, err := repo.HasActiveReservations(ctx, res.ID)
	require.NoError(t, err)
	assert.True(t, active)
}
