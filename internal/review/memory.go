package review

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryRepository struct {
	mu    sync.RWMutex
	items map[string]Review
	now   func() time.Time
}

// NewMemoryRepository returns a Repository kept in process memory.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		items: make(map[string]Review),
		now:   time.Now,
	}
}

func (r *memoryRepository) Create(ctx context.Context, rv *Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.items {
		if existing.ReservationID == rv.ReservationID {
			return ErrAlreadyExists
		}
	}

	now := r.now().UTC()
	rv.ID = uuid.NewString()
	rv.CreatedAt = now
	rv.UpdatedAt = now
	r.items[rv.ID] = *rv
	return nil
}

func (r *memoryRepository) GetByID(ctx context.Context, id string) (*Review, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rv, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &rv, nil
}

func (r *memoryRepository) List(ctx context.Context, filter Filter) ([]*Review, int, error) {
	r.mu.RLock()
	var matched []*Review
	for _, rv := range r.items {
		if filter.ResourceID != "" && rv.ResourceID != filter.ResourceID {
			continue
		}
		if filter.HolderID != "" && rv.HolderID != filter.HolderID {
			continue
		}
		matched = append(matched, &rv)
	}
	r.mu.RUnlock()

	slices.SortFunc(matched, func(a, b *Review) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}

	total := len(matched)
	start := min((filter.Page-1)*filter.PageSize, total)
	end := min(start+filter.PageSize, total)
	return matched[start:end], total, nil
}

func (r *memoryRepository) Update(ctx context.Context, rv *Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[rv.ID]; !ok {
		return ErrNotFound
	}
	rv.UpdatedAt = r.now().UTC()
	r.items[rv.ID] = *rv
	return nil
}

func (r *memoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *memoryRepository) Summarize(ctx context.Context, resourceID string) (Summary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var s Summary
	for _, rv := range r.items {
		if rv.ResourceID == resourceID && rv.Rating >= MinRating && rv.Rating <= MaxRating {
			s.Distribution[rv.Rating]++
		}
	}
	s.finish()
	return s, nil
}
