package payment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/space-reservation-backend/internal/lock"
	"github.com/nekogravitycat/space-reservation-backend/internal/pkg/money"
	"github.com/nekogravitycat/space-reservation-backend/internal/reservation"
	"github.com/nekogravitycat/space-reservation-backend/internal/resource"
)

type recordingGateway struct {
	mu       sync.Mutex
	refunded []string
	err      error
}

func (g *recordingGateway) Refund(ctx context.Context, p Payment) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return g.err
	}
	g.refunded = append(g.refunded, p.ID)
	return nil
}

type fixture struct {
	payments  Service
	scheduler reservation.Service
	gateway   *recordingGateway
	resource  *resource.Resource
	slot      int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	catalog := resource.NewService(resource.NewMemoryRepository(), nil)
	res, err := catalog.Create(ctx, resource.CreateRequest{Name: "Hall A", HourlyRate: money.FromMajor(75)})
	require.NoError(t, err)

	scheduler := reservation.NewService(reservation.NewMemoryRepository(), catalog, lock.NewKeyedMutex())
	gateway := &recordingGateway{}
	payments := NewService(NewMemoryRepository(), scheduler, gateway)
	scheduler.OnStatusChange(payments.HandleReservationStatus)

	return &fixture{payments: payments, scheduler: scheduler, gateway: gateway, resource: res}
}

// reserve books a fresh four hour slot for alice.
func (f *fixture) reserve(t *testing.T) *reservation.Reservation {
	t.Helper()
	f.slot++
	start := time.Now().Add(time.Duration(f.slot*24) * time.Hour).Truncate(time.Hour)
	r, err := f.scheduler.Create(context.Background(), reservation.CreateRequest{
		HolderID:   "alice",
		ResourceID: f.resource.ID,
		StartTime:  start,
		EndTime:    start.Add(4 * time.Hour),
	})
	require.NoError(t, err)
	return r
}

func (f *fixture) open(t *testing.T, r *reservation.Reservation) *Payment {
	t.Helper()
	p, err := f.payments.Open(context.Background(), OpenRequest{ReservationID: r.ID, ExternalRef: "pi_123", CallerID: "alice"})
	require.NoError(t, err)
	return p
}

func (f *fixture) status(t *testing.T, id string) reservation.Status {
	t.Helper()
	r, err := f.scheduler.GetByID(context.Background(), id)
	require.NoError(t, err)
	return r.Status
}

func TestOpen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.reserve(t)

	_, err := f.payments.Open(ctx, OpenRequest{ReservationID: r.ID, CallerID: "bob"})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = f.payments.Open(ctx, OpenRequest{ReservationID: "missing", CallerID: "alice"})
	assert.ErrorIs(t, err, ErrReservationNotFound)

	p := f.open(t, r)
	assert.Equal(t, money.Cents(30000), p.Amount)
	assert.Equal(t, StatusPending, p.Status)

	_, err = f.payments.Open(ctx, OpenRequest{ReservationID: r.ID, CallerID: "root", IsAdmin: true})
	assert.ErrorIs(t, err, ErrAlreadyOpen)

	_, err = f.scheduler.Transition(ctx, r.ID, reservation.StatusConfirmed)
	require.NoError(t, err)
	other := f.reserve(t)
	_, err = f.scheduler.Transition(ctx, other.ID, reservation.StatusConfirmed)
	require.NoError(t, err)
	_, err = f.payments.Open(ctx, OpenRequest{ReservationID: other.ID, CallerID: "alice"})
	assert.ErrorIs(t, err, ErrReservationNotPending)
}

func TestSucceedConfirmsReservation(t *testing.T) {
	f := newFixture(t)
	r := f.reserve(t)
	p := f.open(t, r)

	paid, err := f.payments.Succeed(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, paid.Status)
	assert.Equal(t, reservation.StatusConfirmed, f.status(t, r.ID))

	_, err = f.payments.Succeed(context.Background(), p.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestFailCancelsReservation(t *testing.T) {
	f := newFixture(t)
	r := f.reserve(t)
	p := f.open(t, r)

	failed, err := f.payments.Fail(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, failed.Status)
	assert.Equal(t, reservation.StatusCancelled, f.status(t, r.ID))
	assert.Empty(t, f.gateway.refunded)
}

func TestRefundCancelsReservation(t *testing.T) {
	f := newFixture(t)
	r := f.reserve(t)
	p := f.open(t, r)

	_, err := f.payments.Refund(context.Background(), p.ID)
	assert.ErrorIs(t, err, ErrInvalidState, "pending payments cannot be refunded")

	_, err = f.payments.Succeed(context.Background(), p.ID)
	require.NoError(t, err)

	refunded, err := f.payments.Refund(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRefunded, refunded.Status)
	assert.Equal(t, reservation.StatusCancelled, f.status(t, r.ID))
	assert.Equal(t, []string{p.ID}, f.gateway.refunded, "refund must be issued exactly once")
}

func TestCancellingConfirmedReservationRefunds(t *testing.T) {
	f := newFixture(t)
	r := f.reserve(t)
	p := f.open(t, r)

	_, err := f.payments.Succeed(context.Background(), p.ID)
	require.NoError(t, err)

	_, err = f.scheduler.Cancel(context.Background(), r.ID)
	require.NoError(t, err)

	stored, err := f.payments.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRefunded, stored.Status)
	assert.Equal(t, []string{p.ID}, f.gateway.refunded)
}

func TestCancellingPendingReservationFailsOpenPayment(t *testing.T) {
	f := newFixture(t)
	r := f.reserve(t)
	p := f.open(t, r)

	_, err := f.scheduler.Cancel(context.Background(), r.ID)
	require.NoError(t, err)

	stored, err := f.payments.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, stored.Status)

	// a late success notification must not resurrect the reservation
	_, err = f.payments.Succeed(context.Background(), p.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, reservation.StatusCancelled, f.status(t, r.ID))
}

func TestGatewayFailureKeepsPaymentSettled(t *testing.T) {
	f := newFixture(t)
	r := f.reserve(t)
	p := f.open(t, r)

	_, err := f.payments.Succeed(context.Background(), p.ID)
	require.NoError(t, err)

	f.gateway.err = errors.New("processor unavailable")
	_, err = f.payments.Refund(context.Background(), p.ID)
	assert.ErrorContains(t, err, "processor unavailable")

	stored, err := f.payments.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, stored.Status)
	assert.Equal(t, reservation.StatusConfirmed, f.status(t, r.ID))
}

func TestListByReservation(t *testing.T) {
	f := newFixture(t)
	r := f.reserve(t)
	p := f.open(t, r)

	_, err := f.payments.ListByReservation(context.Background(), r.ID, "bob", false)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	items, err := f.payments.ListByReservation(context.Background(), r.ID, "alice", false)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, p.ID, items[0].ID)
}
