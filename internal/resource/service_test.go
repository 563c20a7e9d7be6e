package resource

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/space-reservation-backend/internal/lock"
	"github.com/nekogravitycat/space-reservation-backend/internal/pkg/money"
)

type fakeUsage struct {
	busy map[string]bool
	err  error
}

func (f *fakeUsage) HasActiveReservations(ctx context.Context, resourceID string) (bool, error) {
	return f.busy[resourceID], f.err
}

func ptr[T any](v T) *T { return &v }

func TestCreateValidation(t *testing.T) {
	svc := NewService(NewMemoryRepository(), nil)
	ctx := context.Background()

	tests := []struct {
		name string
		req  CreateRequest
		err  error
	}{
		{"empty name", CreateRequest{Name: "  ", HourlyRate: 100}, ErrEmptyName},
		{"negative rate", CreateRequest{Name: "Hall A", HourlyRate: -1}, ErrNegativeRate},
		{"zero capacity", CreateRequest{Name: "Hall A", Capacity: ptr(0)}, ErrInvalidCapacity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.req)
			assert.ErrorIs(t, err, tt.err)
		})
	}

	res, err := svc.Create(ctx, CreateRequest{Name: " Hall A ", HourlyRate: money.FromMajor(75), Capacity: ptr(40)})
	require.NoError(t, err)
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, "Hall A", res.Name)
	assert.Equal(t, money.Cents(7500), res.HourlyRate)
	assert.False(t, res.CreatedAt.IsZero())
}

func TestUpdateKeepsUnsetFields(t *testing.T) {
	svc := NewService(NewMemoryRepository(), nil)
	ctx := context.Background()

	res, err := svc.Create(ctx, CreateRequest{Name: "Room 101", Description: ptr("second floor"), HourlyRate: 5000})
	require.NoError(t, err)

	rate := money.Cents(6000)
	updated, err := svc.Update(ctx, res.ID, UpdateRequest{HourlyRate: &rate})
	require.NoError(t, err)
	assert.Equal(t, "Room 101", updated.Name)
	assert.Equal(t, "second floor", *updated.Description)
	assert.Equal(t, rate, updated.HourlyRate)

	_, err = svc.Update(ctx, res.ID, UpdateRequest{Name: ptr("")})
	assert.ErrorIs(t, err, ErrEmptyName)

	_, err = svc.Update(ctx, "missing", UpdateRequest{Name: ptr("x")})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListFiltersAndPaginates(t *testing.T) {
	svc := NewService(NewMemoryRepository(), nil)
	ctx := context.Background()

	for _, n := range []string{"Hall A", "Hall B", "Field 2"} {
		_, err := svc.Create(ctx, CreateRequest{Name: n})
		require.NoError(t, err)
	}

	items, total, err := svc.List(ctx, Filter{Keyword: "hall", SortBy: "name", SortOrder: "ASC", Page: 1, PageSize: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, items, 1)
	assert.Equal(t, "Hall A", items[0].Name)

	items, _, err = svc.List(ctx, Filter{Keyword: "hall", SortBy: "name", SortOrder: "ASC", Page: 2, PageSize: 1})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Hall B", items[0].Name)

	_, _, err = svc.List(ctx, Filter{SortBy: "id; drop table"})
	assert.ErrorIs(t, err, ErrInvalidSortField)
}

func TestDeleteRejectsResourceInUse(t *testing.T) {
	usage := &fakeUsage{busy: map[string]bool{}}
	svc := NewService(NewMemoryRepository(), usage)
	ctx := context.Background()

	res, err := svc.Create(ctx, CreateRequest{Name: "Hall A"})
	require.NoError(t, err)

	usage.busy[res.ID] = true
	assert.ErrorIs(t, svc.Delete(ctx, res.ID), ErrInUse)

	usage.err = errors.New("store down")
	usage.busy[res.ID] = false
	assert.EqualError(t, svc.Delete(ctx, res.ID), "store down")

	usage.err = nil
	require.NoError(t, svc.Delete(ctx, res.ID))

	_, err = svc.GetByID(ctx, res.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, res.ID), ErrNotFound)
}

func TestDeleteWaitsForResourceLock(t *testing.T) {
	locker := lock.NewKeyedMutex()
	usage := &fakeUsage{busy: map[string]bool{}}
	svc := NewService(NewMemoryRepository(), usage, WithLocker(locker))
	ctx := context.Background()

	res, err := svc.Create(ctx, CreateRequest{Name: "Hall A"})
	require.NoError(t, err)

	unlock, err := locker.Lock(ctx, lock.ResourceKey(res.ID))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- svc.Delete(ctx, res.ID) }()

	select {
	case err := <-done:
		t.Fatalf("delete finished while the resource was locked: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	// A reservation committed while the lock was held is seen by the usage check.
	usage.busy[res.ID] = true
	unlock()
	assert.ErrorIs(t, <-done, ErrInUse)
}

func TestDeleteHonoursContextWhileLocked(t *testing.T) {
	locker := lock.NewKeyedMutex()
	svc := NewService(NewMemoryRepository(), nil, WithLocker(locker))

	res, err := svc.Create(context.Background(), CreateRequest{Name: "Hall A"})
	require.NoError(t, err)

	unlock, err := locker.Lock(context.Background(), lock.ResourceKey(res.ID))
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, svc.Delete(ctx, res.ID), context.DeadlineExceeded)

	_, err = svc.GetByID(context.Background(), res.ID)
	assert.NoError(t, err)
}
