package payment

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryRepository struct {
	mu    sync.Mutex
	items map[string]Payment
	now   func() time.Time
}

// NewMemoryRepository returns a Repository kept in process memory.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		items: make(map[string]Payment),
		now:   time.Now,
	}
}

func (r *memoryRepository) Create(ctx context.Context, p *Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.items {
		if existing.ReservationID == p.ReservationID && existing.Status.Open() {
			return ErrAlreadyOpen
		}
	}

	now := r.now().UTC()
	p.ID = uuid.NewString()
	p.CreatedAt = now
	p.UpdatedAt = now
	r.items[p.ID] = *p
	return nil
}

func (r *memoryRepository) GetByID(ctx context.Context, id string) (*Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (r *memoryRepository) ListByReservation(ctx context.Context, reservationID string) ([]*Payment, error) {
	r.mu.Lock()
	var out []*Payment
	for _, p := range r.items {
		if p.ReservationID == reservationID {
			out = append(out, &p)
		}
	}
	r.mu.Unlock()

	slices.SortFunc(out, func(a, b *Payment) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out, nil
}

func (r *memoryRepository) UpdateStatus(ctx context.Context, id string, from, to Status) (*Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	if p.Status != from {
		return nil, ErrInvalidState
	}
	p.Status = to
	p.UpdatedAt = r.now().UTC()
	r.items[id] = p
	return &p, nil
}
